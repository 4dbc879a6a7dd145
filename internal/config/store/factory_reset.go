package store

import (
	"context"
	"database/sql"
	"fmt"
)

// FactoryReset wipes all configuration state and reseeds the singleton rows
// under their fixed identifiers. Everything happens in one transaction: an
// interrupted reset leaves the previous state intact.
func (s *Store) FactoryReset(ctx context.Context) error {
	if s.readOnly {
		return fmt.Errorf("config: factory reset: store opened read-only")
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		// Child tables first; foreign keys cascade but the order keeps the
		// intent explicit.
		tables := []string{
			"tracker_endpoint",
			"tracker_config",
			"engine_profile",
			"fs_policy",
			"app_profile",
			"secret_refs",
			"setup_tokens",
		}
		for _, table := range tables {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("config: factory reset %s: %w", table, err)
			}
		}

		for _, stmt := range seedStatements() {
			if _, err := tx.ExecContext(ctx, stmt.query, stmt.args...); err != nil {
				return fmt.Errorf("config: reseed %s: %w", stmt.entity, err)
			}
		}
		return nil
	})
}
