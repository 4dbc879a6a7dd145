package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rivetbt/rivet/internal/config/tracker"
)

// Endpoint list kinds as stored in tracker_endpoint.kind.
const (
	endpointKindDefault = "default"
	endpointKindExtra   = "extra"
)

// SaveTrackerConfig persists the canonical tracker configuration for a
// profile: one transaction upserting the tracker_config row and replacing
// both endpoint lists wholesale.
func (s *Store) SaveTrackerConfig(ctx context.Context, profileID string, cfg tracker.Config) error {
	if s.readOnly {
		return fmt.Errorf("config: save tracker config: store opened read-only")
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := ensureEngineProfile(ctx, tx, profileID); err != nil {
			return err
		}
		if err := upsertTrackerConfig(ctx, tx, profileID, cfg); err != nil {
			return err
		}
		return replaceTrackerEndpoints(ctx, tx, profileID, cfg)
	})
}

// TrackerConfig renders the stored tracker configuration for a profile back
// into its canonical form. A profile with no stored row and no endpoints
// renders as the canonical-empty configuration.
func (s *Store) TrackerConfig(ctx context.Context, profileID string) (tracker.Config, error) {
	var (
		cfg       tracker.Config
		userAgent sql.NullString
		announce  sql.NullString
		listenIf  sql.NullString
		timeout   sql.NullInt64
		replace   int
		toAll     int
		proxyHost sql.NullString
		proxyPort sql.NullInt64
		proxyKind sql.NullString
		proxyPeer sql.NullInt64
		proxyUser sql.NullString
		proxyPass sql.NullString
	)

	rowPresent := true
	err := s.db.QueryRowContext(ctx, `
		SELECT user_agent, announce_ip, listen_interface, request_timeout_ms,
		       replace_trackers, announce_to_all,
		       proxy_host, proxy_port, proxy_kind, proxy_peers,
		       proxy_username_secret, proxy_password_secret
		FROM tracker_config
		WHERE profile_id = ?
	`, profileID).Scan(
		&userAgent, &announce, &listenIf, &timeout,
		&replace, &toAll,
		&proxyHost, &proxyPort, &proxyKind, &proxyPeer,
		&proxyUser, &proxyPass,
	)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		rowPresent = false
	case err != nil:
		return tracker.Config{}, fmt.Errorf("config: load tracker config: %w", err)
	}

	defaults, extras, err := s.trackerEndpoints(ctx, profileID)
	if err != nil {
		return tracker.Config{}, err
	}

	// Fast path: nothing stored at all.
	if !rowPresent && len(defaults) == 0 && len(extras) == 0 {
		return tracker.Config{}, nil
	}

	cfg.Default = defaults
	cfg.Extra = extras
	if rowPresent {
		cfg.Replace = replace == 1
		cfg.AnnounceToAll = toAll == 1
		cfg.UserAgent = userAgent.String
		cfg.AnnounceIP = announce.String
		cfg.ListenInterface = listenIf.String
		if timeout.Valid {
			value := timeout.Int64
			cfg.RequestTimeoutMS = &value
		}
		if proxyHost.Valid {
			cfg.Proxy = &tracker.Proxy{
				Host:           proxyHost.String,
				Port:           int(proxyPort.Int64),
				Kind:           proxyKind.String,
				ProxyPeers:     proxyPeer.Int64 == 1,
				UsernameSecret: proxyUser.String,
				PasswordSecret: proxyPass.String,
			}
		}
	}

	return cfg, nil
}

func (s *Store) trackerEndpoints(ctx context.Context, profileID string) (defaults, extras []string, err error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, url
		FROM tracker_endpoint
		WHERE profile_id = ?
		ORDER BY kind, ordinal
	`, profileID)
	if err != nil {
		return nil, nil, fmt.Errorf("config: list tracker endpoints: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var kind, url string
		if err := rows.Scan(&kind, &url); err != nil {
			return nil, nil, fmt.Errorf("config: scan tracker endpoint: %w", err)
		}
		switch kind {
		case endpointKindDefault:
			defaults = append(defaults, url)
		case endpointKindExtra:
			extras = append(extras, url)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("config: iterate tracker endpoints: %w", err)
	}

	return defaults, extras, nil
}

func ensureEngineProfile(ctx context.Context, tx *sql.Tx, profileID string) error {
	var exists bool
	if err := tx.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM engine_profile WHERE id = ?)
	`, profileID).Scan(&exists); err != nil {
		return fmt.Errorf("config: check engine profile %q: %w", profileID, err)
	}
	if !exists {
		return NotFoundError{Entity: "engine profile", Key: profileID}
	}
	return nil
}

func upsertTrackerConfig(ctx context.Context, tx *sql.Tx, profileID string, cfg tracker.Config) error {
	var (
		proxyHost any
		proxyPort any
		proxyKind any
		proxyPeer any
		proxyUser any
		proxyPass any
	)
	if cfg.Proxy != nil {
		proxyHost = cfg.Proxy.Host
		proxyPort = cfg.Proxy.Port
		proxyKind = cfg.Proxy.Kind
		proxyPeer = boolToInt(cfg.Proxy.ProxyPeers)
		proxyUser = nullableString(cfg.Proxy.UsernameSecret)
		proxyPass = nullableString(cfg.Proxy.PasswordSecret)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO tracker_config (
			profile_id, user_agent, announce_ip, listen_interface,
			request_timeout_ms, replace_trackers, announce_to_all,
			proxy_host, proxy_port, proxy_kind, proxy_peers,
			proxy_username_secret, proxy_password_secret
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(profile_id) DO UPDATE SET
			user_agent = excluded.user_agent,
			announce_ip = excluded.announce_ip,
			listen_interface = excluded.listen_interface,
			request_timeout_ms = excluded.request_timeout_ms,
			replace_trackers = excluded.replace_trackers,
			announce_to_all = excluded.announce_to_all,
			proxy_host = excluded.proxy_host,
			proxy_port = excluded.proxy_port,
			proxy_kind = excluded.proxy_kind,
			proxy_peers = excluded.proxy_peers,
			proxy_username_secret = excluded.proxy_username_secret,
			proxy_password_secret = excluded.proxy_password_secret,
			updated_at = CURRENT_TIMESTAMP
	`, profileID,
		nullableString(cfg.UserAgent),
		nullableString(cfg.AnnounceIP),
		nullableString(cfg.ListenInterface),
		nullableInt64(cfg.RequestTimeoutMS),
		boolToInt(cfg.Replace),
		boolToInt(cfg.AnnounceToAll),
		proxyHost, proxyPort, proxyKind, proxyPeer, proxyUser, proxyPass,
	); err != nil {
		return fmt.Errorf("config: upsert tracker config: %w", err)
	}

	return nil
}

func replaceTrackerEndpoints(ctx context.Context, tx *sql.Tx, profileID string, cfg tracker.Config) error {
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM tracker_endpoint WHERE profile_id = ?
	`, profileID); err != nil {
		return fmt.Errorf("config: clear tracker endpoints: %w", err)
	}

	insert := func(kind string, urls []string) error {
		for i, url := range urls {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO tracker_endpoint (profile_id, kind, url, ordinal)
				VALUES (?, ?, ?, ?)
			`, profileID, kind, url, i+1); err != nil {
				return fmt.Errorf("config: insert %s tracker endpoint: %w", kind, err)
			}
		}
		return nil
	}

	if err := insert(endpointKindDefault, cfg.Default); err != nil {
		return err
	}
	return insert(endpointKindExtra, cfg.Extra)
}
