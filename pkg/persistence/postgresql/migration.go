package postgresql

import (
	"context"
	"database/sql"
	"fmt"
)

// migrate applies the schema. Statements are idempotent so startup can run
// them unconditionally.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS providers (
		id       TEXT PRIMARY KEY,
		data     JSONB NOT NULL,
		revision BIGINT NOT NULL,
		state    TEXT NOT NULL,
		active   BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE INDEX IF NOT EXISTS providers_state_idx ON providers (state)`,
	`CREATE TABLE IF NOT EXISTS services (
		id            TEXT PRIMARY KEY,
		data          JSONB NOT NULL,
		revision      BIGINT NOT NULL,
		main_provider TEXT NOT NULL,
		template      BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE INDEX IF NOT EXISTS services_main_provider_idx ON services (main_provider)`,
	// At most one template service per provider, enforced by the store
	// rather than by the engine's query-then-check.
	`CREATE UNIQUE INDEX IF NOT EXISTS services_one_template_per_provider
		ON services (main_provider) WHERE template`,
}

func migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}
