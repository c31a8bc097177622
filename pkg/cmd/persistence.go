// Package cmd holds the shared wiring used by the registrar binaries.
package cmd

import (
	"context"
	"strings"

	"github.com/opencatalog/registrar/pkg/persistence"
	"github.com/opencatalog/registrar/pkg/persistence/file"
	"github.com/opencatalog/registrar/pkg/persistence/postgresql"
	"github.com/opencatalog/registrar/pkg/persistence/redis"
)

// NewPersistence picks the record store from the database URL scheme.
// Unrecognized schemes fall back to the file store.
func NewPersistence(ctx context.Context, databaseURL string) (persistence.Persistence, error) {
	switch parseScheme(databaseURL) {
	case "postgres", "postgresql":
		return postgresql.NewPersistence(ctx, databaseURL)
	case "redis", "rediss":
		return redis.NewPersistence(databaseURL)
	default:
		return file.NewPersistence(databaseURL), nil
	}
}

func parseScheme(databaseURL string) string {
	scheme, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return "file"
	}

	return scheme
}
