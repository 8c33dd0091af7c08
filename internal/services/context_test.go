package services_test

import (
	"context"
	"testing"

	"reelcache/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithRunID(ctx, "run-1")
	ctx = services.WithQuery(ctx, "Inception")
	ctx = services.WithRequestID(ctx, "req-123")

	if id, ok := services.RunIDFromContext(ctx); !ok || id != "run-1" {
		t.Fatalf("unexpected run id: %v %v", id, ok)
	}
	if title, ok := services.QueryFromContext(ctx); !ok || title != "Inception" {
		t.Fatalf("unexpected query: %v %v", title, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithQuery(ctx, "")
	ctx = services.WithRunID(ctx, "")
	if _, ok := services.QueryFromContext(ctx); ok {
		t.Fatal("expected no query value")
	}
	if _, ok := services.RunIDFromContext(ctx); ok {
		t.Fatal("expected no run id value")
	}
}
