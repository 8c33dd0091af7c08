package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"reelcache/internal/catalog"
	"reelcache/internal/catalog/tmdb"
	"reelcache/internal/config"
	"reelcache/internal/enrichment"
	"reelcache/internal/ledger"
	"reelcache/internal/logging"
	"reelcache/internal/mediacache"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error

	store  *mediacache.Store
	ledger *ledger.Ledger
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

// cache opens the cache directory once per invocation.
func (c *commandContext) cache() (*mediacache.Store, error) {
	if c.store != nil {
		return c.store, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	store, err := mediacache.Open(cfg.Paths.CacheDir, mediacache.Backend(cfg.Cache.RecordBackend), logger)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	c.store = store
	return store, nil
}

func (c *commandContext) runLedger() (*ledger.Ledger, error) {
	if c.ledger != nil {
		return c.ledger, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	l, err := ledger.Open(ledger.Path(cfg.Paths.CacheDir))
	if err != nil {
		return nil, fmt.Errorf("open run ledger: %w", err)
	}
	c.ledger = l
	return l, nil
}

// enricher wires the TMDB client, record cache, and search cache together.
func (c *commandContext) enricher() (*enrichment.Enricher, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.RequireTMDBToken(); err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	store, err := c.cache()
	if err != nil {
		return nil, err
	}
	client, err := tmdb.New(cfg.TMDB.ReadToken, cfg.TMDB.BaseURL, cfg.TMDB.Language, tmdb.WithTimeout(cfg.RequestTimeout()))
	if err != nil {
		return nil, err
	}
	service := catalog.NewService(client, store, logger)
	return enrichment.New(service, store, logger), nil
}

func (c *commandContext) close() error {
	var firstErr error
	if c.ledger != nil {
		if err := c.ledger.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		c.ledger = nil
	}
	if c.store != nil {
		if err := c.store.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		c.store = nil
	}
	return firstErr
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
