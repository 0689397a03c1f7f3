package graph

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// ============================================================================
// Schema Migrations
// ============================================================================

// schemaVersion marks the applied migration set.
const schemaVersion = "follow_graph_v1"

type migration struct {
	name  string
	query string
}

// Every statement is idempotent, so reapplying is harmless.
var migrations = []migration{
	{
		name:  "user id uniqueness",
		query: `CREATE CONSTRAINT user_id_unique IF NOT EXISTS FOR (u:User) REQUIRE u.id IS UNIQUE`,
	},
	{
		name:  "user country index",
		query: `CREATE INDEX user_country_code IF NOT EXISTS FOR (u:User) ON (u.country_code)`,
	},
}

// SchemaApplied reports whether the current migration set has been recorded.
func (r *Repository) SchemaApplied(ctx context.Context) (bool, error) {
	res, err := r.client.ExecuteRead(ctx, `
		MATCH (m:Migration {version: $version})
		RETURN m.applied_at AS applied_at
	`, map[string]any{"version": schemaVersion})
	if err != nil {
		return false, fmt.Errorf("failed to check migration status: %w", err)
	}
	return len(res.Records) > 0, nil
}

// EnsureSchema applies the constraints and indexes the lookups by user id
// rely on. It reports whether any migration ran.
func (r *Repository) EnsureSchema(ctx context.Context, force bool) (bool, error) {
	if !force {
		applied, err := r.SchemaApplied(ctx)
		if err != nil {
			return false, err
		}
		if applied {
			r.logger.Debug("Schema already applied", zap.String("version", schemaVersion))
			return false, nil
		}
	}

	for _, m := range migrations {
		if _, err := r.client.ExecuteWrite(ctx, m.query, nil); err != nil {
			return false, fmt.Errorf("migration %q failed: %w", m.name, err)
		}
		r.logger.Info("Migration applied", zap.String("migration", m.name))
	}

	_, err := r.client.ExecuteWrite(ctx, `
		MERGE (m:Migration {version: $version})
		SET m.applied_at = datetime()
	`, map[string]any{"version": schemaVersion})
	if err != nil {
		// The migrations themselves succeeded
		r.logger.Warn("Failed to mark migration as applied", zap.Error(err))
	}
	return true, nil
}
