package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"reelcache/internal/catalog/tmdb"
	"reelcache/internal/config"
)

// tmdbCheckTimeout bounds the token check independently of the batch timeout.
const tmdbCheckTimeout = 10 * time.Second

// CheckTMDB verifies that TMDB is reachable and accepts the read token.
// It makes a single attempt.
func CheckTMDB(ctx context.Context, cfg *config.Config) Result {
	const name = "TMDB"

	if cfg.TMDB.ReadToken == "" {
		return Result{Name: name, Detail: "read token missing (set TMDB_READ_TOKEN)"}
	}
	client, err := tmdb.New(cfg.TMDB.ReadToken, cfg.TMDB.BaseURL, cfg.TMDB.Language, tmdb.WithTimeout(tmdbCheckTimeout))
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}

	checkCtx, cancel := context.WithTimeout(ctx, tmdbCheckTimeout)
	defer cancel()

	if err := client.Authenticate(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeTMDBError(err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (token accepted)", cfg.TMDB.BaseURL)}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

func summarizeTMDBError(err error) string {
	var te *tmdb.TransportError
	if errors.As(err, &te) && te.Unauthorized() {
		return "token rejected (check TMDB_READ_TOKEN)"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "token check timed out (TMDB unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "token check timed out (TMDB unreachable)"
	}
	return err.Error()
}
