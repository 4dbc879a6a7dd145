package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Fixed identifiers for the singleton configuration rows. Factory reset
// recreates the rows under the same IDs so references stay stable.
const (
	AppProfileID    = "00000000-0000-0000-0000-000000000001"
	EngineProfileID = "00000000-0000-0000-0000-000000000002"
	FSPolicyID      = "00000000-0000-0000-0000-000000000003"
)

// Default filesystem locations seeded into new databases. Relative paths are
// resolved against the rivet home at runtime.
const (
	defaultDownloadRoot = ".server_root/downloads"
	defaultResumeDir    = ".server_root/resume"
	defaultLibraryRoot  = ".server_root/library"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS app_profile (
		id TEXT PRIMARY KEY,
		instance_name TEXT NOT NULL,
		mode TEXT NOT NULL DEFAULT 'setup' CHECK (mode IN ('setup', 'active')),
		version INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS engine_profile (
		id TEXT PRIMARY KEY,
		implementation TEXT NOT NULL DEFAULT 'libtorrent',
		listen_port INTEGER,
		dht INTEGER NOT NULL DEFAULT 1,
		encryption TEXT NOT NULL DEFAULT 'prefer',
		max_active INTEGER,
		max_download_bps INTEGER,
		max_upload_bps INTEGER,
		sequential_default INTEGER NOT NULL DEFAULT 0,
		resume_dir TEXT NOT NULL,
		download_root TEXT NOT NULL,
		enable_lsd INTEGER NOT NULL DEFAULT 0,
		enable_upnp INTEGER NOT NULL DEFAULT 0,
		enable_natpmp INTEGER NOT NULL DEFAULT 0,
		enable_pex INTEGER NOT NULL DEFAULT 0,
		anonymous_mode INTEGER NOT NULL DEFAULT 0,
		force_proxy INTEGER NOT NULL DEFAULT 0,
		prefer_rc4 INTEGER NOT NULL DEFAULT 0,
		allow_multiple_connections_per_ip INTEGER NOT NULL DEFAULT 0,
		enable_outgoing_utp INTEGER NOT NULL DEFAULT 0,
		enable_incoming_utp INTEGER NOT NULL DEFAULT 0,
		dht_bootstrap_nodes TEXT,
		dht_router_nodes TEXT,
		ip_filter TEXT,
		listen_interfaces TEXT,
		ipv6_mode TEXT NOT NULL DEFAULT 'disabled',
		created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS tracker_config (
		profile_id TEXT PRIMARY KEY,
		user_agent TEXT,
		announce_ip TEXT,
		listen_interface TEXT,
		request_timeout_ms INTEGER,
		replace_trackers INTEGER NOT NULL DEFAULT 0,
		announce_to_all INTEGER NOT NULL DEFAULT 0,
		proxy_host TEXT,
		proxy_port INTEGER,
		proxy_kind TEXT,
		proxy_peers INTEGER,
		proxy_username_secret TEXT,
		proxy_password_secret TEXT,
		updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (profile_id) REFERENCES engine_profile(id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS tracker_endpoint (
		profile_id TEXT NOT NULL,
		kind TEXT NOT NULL CHECK (kind IN ('default', 'extra')),
		url TEXT NOT NULL,
		ordinal INTEGER NOT NULL,
		PRIMARY KEY (profile_id, kind, ordinal),
		UNIQUE (profile_id, kind, url),
		FOREIGN KEY (profile_id) REFERENCES engine_profile(id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS fs_policy (
		id TEXT PRIMARY KEY,
		library_root TEXT NOT NULL,
		extract INTEGER NOT NULL DEFAULT 0,
		par2 TEXT NOT NULL DEFAULT 'disabled',
		flatten INTEGER NOT NULL DEFAULT 0,
		move_mode TEXT NOT NULL DEFAULT 'copy' CHECK (move_mode IN ('copy', 'move', 'hardlink')),
		created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS secret_refs (
		name TEXT PRIMARY KEY,
		ciphertext TEXT NOT NULL,
		created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS setup_tokens (
		id TEXT PRIMARY KEY,
		token_hash TEXT NOT NULL,
		issued_by TEXT NOT NULL DEFAULT '',
		expires_at TEXT NOT NULL,
		consumed_at TEXT,
		created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
}

func applyPragmas(ctx context.Context, db *sql.DB, readOnly bool) error {
	pragmas := []string{
		fmt.Sprintf("PRAGMA busy_timeout = %d", int(defaultBusyTimeout.Milliseconds())),
		"PRAGMA foreign_keys = ON",
	}

	if !readOnly {
		pragmas = append(pragmas,
			"PRAGMA journal_mode = WAL",
			"PRAGMA synchronous = NORMAL",
			"PRAGMA temp_store = MEMORY",
		)
	}

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("config: apply pragma %q: %w", pragma, err)
		}
	}

	return nil
}

func applySchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("config: begin schema transaction: %w", err)
	}

	for _, stmt := range schemaStatements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			tx.Rollback()
			return fmt.Errorf("config: apply schema statement %q: %w", abbreviate(stmt), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("config: commit schema transaction: %w", err)
	}

	return nil
}

func seedDefaults(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("config: begin seed transaction: %w", err)
	}

	for _, stmt := range seedStatements() {
		if _, err := tx.ExecContext(ctx, stmt.query, stmt.args...); err != nil {
			tx.Rollback()
			return fmt.Errorf("config: seed %s: %w", stmt.entity, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("config: commit seed transaction: %w", err)
	}

	return nil
}

type seedStatement struct {
	entity string
	query  string
	args   []any
}

func seedStatements() []seedStatement {
	return []seedStatement{
		{
			entity: "app profile",
			query: `
				INSERT INTO app_profile (id, instance_name, mode)
				VALUES (?, 'rivet', 'setup')
				ON CONFLICT(id) DO NOTHING
			`,
			args: []any{AppProfileID},
		},
		{
			entity: "engine profile",
			query: `
				INSERT INTO engine_profile (
					id, implementation, listen_port, dht, encryption,
					max_active, resume_dir, download_root, ipv6_mode
				)
				VALUES (?, 'libtorrent', 6881, 1, 'prefer', 4, ?, ?, 'disabled')
				ON CONFLICT(id) DO NOTHING
			`,
			args: []any{EngineProfileID, defaultResumeDir, defaultDownloadRoot},
		},
		{
			entity: "fs policy",
			query: `
				INSERT INTO fs_policy (id, library_root, extract, par2, flatten, move_mode)
				VALUES (?, ?, 0, 'disabled', 0, 'copy')
				ON CONFLICT(id) DO NOTHING
			`,
			args: []any{FSPolicyID, defaultLibraryRoot},
		},
	}
}

// abbreviate trims a schema statement down to its first line for error messages.
func abbreviate(stmt string) string {
	stmt = strings.TrimSpace(stmt)
	if idx := strings.IndexByte(stmt, '\n'); idx > 0 {
		stmt = stmt[:idx]
	}
	if len(stmt) > 80 {
		stmt = stmt[:80] + "…"
	}
	return stmt
}
