// Package cmd provides common initialization for the command-line binaries.
package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/weftwork/weft/pkg/store"
	"github.com/weftwork/weft/pkg/store/memory"
	"github.com/weftwork/weft/pkg/store/redis"
)

// NewStore selects a persistence backend from the database URL. Anything
// other than a redis URL gets the in-memory store, which survives only for
// the process lifetime.
func NewStore(ctx context.Context, logger *slog.Logger, databaseURL string) (store.Store, error) {
	if strings.HasPrefix(databaseURL, "redis://") || strings.HasPrefix(databaseURL, "rediss://") {
		st, err := redis.NewStore(databaseURL)
		if err != nil {
			return nil, err
		}

		if err := st.HealthCheck(ctx); err != nil {
			return nil, err
		}

		logger.InfoContext(ctx, "Using redis store")

		return st, nil
	}

	logger.WarnContext(ctx, "Using in-memory store, state is lost on restart")

	return memory.NewStore(), nil
}
