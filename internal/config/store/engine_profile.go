package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rivetbt/rivet/internal/config/tracker"
)

// EngineProfile is the full torrent-engine configuration record. It is
// updated only as a whole; partial writes would leave the engine observing a
// mix of old and new values.
type EngineProfile struct {
	ID                            string
	Implementation                string
	ListenPort                    *int
	DHT                           bool
	Encryption                    string
	MaxActive                     *int
	MaxDownloadBPS                *int64
	MaxUploadBPS                  *int64
	SequentialDefault             bool
	ResumeDir                     string
	DownloadRoot                  string
	EnableLSD                     bool
	EnableUPnP                    bool
	EnableNATPMP                  bool
	EnablePEX                     bool
	AnonymousMode                 bool
	ForceProxy                    bool
	PreferRC4                     bool
	AllowMultipleConnectionsPerIP bool
	EnableOutgoingUTP             bool
	EnableIncomingUTP             bool
	DHTBootstrapNodes             []string
	DHTRouterNodes                []string
	IPFilter                      []string
	ListenInterfaces              []string
	IPv6Mode                      string
	CreatedAt                     string
	UpdatedAt                     string
}

// EngineProfile loads the engine profile record by id.
func (s *Store) EngineProfile(ctx context.Context, id string) (EngineProfile, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, implementation, listen_port, dht, encryption,
		       max_active, max_download_bps, max_upload_bps,
		       sequential_default, resume_dir, download_root,
		       enable_lsd, enable_upnp, enable_natpmp, enable_pex,
		       anonymous_mode, force_proxy, prefer_rc4,
		       allow_multiple_connections_per_ip,
		       enable_outgoing_utp, enable_incoming_utp,
		       dht_bootstrap_nodes, dht_router_nodes, ip_filter,
		       listen_interfaces, ipv6_mode, created_at, updated_at
		FROM engine_profile
		WHERE id = ?
	`, id)

	profile, err := scanEngineProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return EngineProfile{}, NotFoundError{Entity: "engine profile", Key: id}
	}
	if err != nil {
		return EngineProfile{}, fmt.Errorf("config: load engine profile: %w", err)
	}
	return profile, nil
}

// UpdateEngineProfile rewrites the whole engine profile record and persists
// the supplied tracker configuration in the same transaction. Either every
// change lands or none does.
func (s *Store) UpdateEngineProfile(ctx context.Context, profile EngineProfile, trackerCfg tracker.Config) error {
	if s.readOnly {
		return fmt.Errorf("config: update engine profile: store opened read-only")
	}

	bootstrapNodes, err := encodeJSON(profile.DHTBootstrapNodes)
	if err != nil {
		return fmt.Errorf("config: encode dht bootstrap nodes: %w", err)
	}
	routerNodes, err := encodeJSON(profile.DHTRouterNodes)
	if err != nil {
		return fmt.Errorf("config: encode dht router nodes: %w", err)
	}
	ipFilter, err := encodeJSON(profile.IPFilter)
	if err != nil {
		return fmt.Errorf("config: encode ip filter: %w", err)
	}
	listenInterfaces, err := encodeJSON(profile.ListenInterfaces)
	if err != nil {
		return fmt.Errorf("config: encode listen interfaces: %w", err)
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE engine_profile SET
				implementation = ?,
				listen_port = ?,
				dht = ?,
				encryption = ?,
				max_active = ?,
				max_download_bps = ?,
				max_upload_bps = ?,
				sequential_default = ?,
				resume_dir = ?,
				download_root = ?,
				enable_lsd = ?,
				enable_upnp = ?,
				enable_natpmp = ?,
				enable_pex = ?,
				anonymous_mode = ?,
				force_proxy = ?,
				prefer_rc4 = ?,
				allow_multiple_connections_per_ip = ?,
				enable_outgoing_utp = ?,
				enable_incoming_utp = ?,
				dht_bootstrap_nodes = ?,
				dht_router_nodes = ?,
				ip_filter = ?,
				listen_interfaces = ?,
				ipv6_mode = ?,
				updated_at = CURRENT_TIMESTAMP
			WHERE id = ?
		`,
			profile.Implementation,
			nullableIntPtr(profile.ListenPort),
			boolToInt(profile.DHT),
			profile.Encryption,
			nullableIntPtr(profile.MaxActive),
			nullableInt64(profile.MaxDownloadBPS),
			nullableInt64(profile.MaxUploadBPS),
			boolToInt(profile.SequentialDefault),
			profile.ResumeDir,
			profile.DownloadRoot,
			boolToInt(profile.EnableLSD),
			boolToInt(profile.EnableUPnP),
			boolToInt(profile.EnableNATPMP),
			boolToInt(profile.EnablePEX),
			boolToInt(profile.AnonymousMode),
			boolToInt(profile.ForceProxy),
			boolToInt(profile.PreferRC4),
			boolToInt(profile.AllowMultipleConnectionsPerIP),
			boolToInt(profile.EnableOutgoingUTP),
			boolToInt(profile.EnableIncomingUTP),
			bootstrapNodes,
			routerNodes,
			ipFilter,
			listenInterfaces,
			profile.IPv6Mode,
			profile.ID,
		)
		if err != nil {
			return fmt.Errorf("config: update engine profile: %w", err)
		}

		rows, _ := res.RowsAffected()
		if rows == 0 {
			return NotFoundError{Entity: "engine profile", Key: profile.ID}
		}

		if err := upsertTrackerConfig(ctx, tx, profile.ID, trackerCfg); err != nil {
			return err
		}
		return replaceTrackerEndpoints(ctx, tx, profile.ID, trackerCfg)
	})
}

func scanEngineProfile(scanner rowScanner) (EngineProfile, error) {
	var (
		profile          EngineProfile
		listenPort       sql.NullInt64
		maxActive        sql.NullInt64
		maxDownload      sql.NullInt64
		maxUpload        sql.NullInt64
		dht              int
		sequential       int
		lsd              int
		upnp             int
		natpmp           int
		pex              int
		anonymous        int
		forceProxy       int
		preferRC4        int
		multiConn        int
		outgoingUTP      int
		incomingUTP      int
		bootstrapNodes   sql.NullString
		routerNodes      sql.NullString
		ipFilter         sql.NullString
		listenInterfaces sql.NullString
	)

	if err := scanner.Scan(
		&profile.ID, &profile.Implementation, &listenPort, &dht, &profile.Encryption,
		&maxActive, &maxDownload, &maxUpload,
		&sequential, &profile.ResumeDir, &profile.DownloadRoot,
		&lsd, &upnp, &natpmp, &pex,
		&anonymous, &forceProxy, &preferRC4,
		&multiConn,
		&outgoingUTP, &incomingUTP,
		&bootstrapNodes, &routerNodes, &ipFilter,
		&listenInterfaces, &profile.IPv6Mode, &profile.CreatedAt, &profile.UpdatedAt,
	); err != nil {
		return EngineProfile{}, err
	}

	if listenPort.Valid {
		port := int(listenPort.Int64)
		profile.ListenPort = &port
	}
	if maxActive.Valid {
		active := int(maxActive.Int64)
		profile.MaxActive = &active
	}
	if maxDownload.Valid {
		profile.MaxDownloadBPS = &maxDownload.Int64
	}
	if maxUpload.Valid {
		profile.MaxUploadBPS = &maxUpload.Int64
	}
	profile.DHT = dht == 1
	profile.SequentialDefault = sequential == 1
	profile.EnableLSD = lsd == 1
	profile.EnableUPnP = upnp == 1
	profile.EnableNATPMP = natpmp == 1
	profile.EnablePEX = pex == 1
	profile.AnonymousMode = anonymous == 1
	profile.ForceProxy = forceProxy == 1
	profile.PreferRC4 = preferRC4 == 1
	profile.AllowMultipleConnectionsPerIP = multiConn == 1
	profile.EnableOutgoingUTP = outgoingUTP == 1
	profile.EnableIncomingUTP = incomingUTP == 1

	var err error
	if profile.DHTBootstrapNodes, err = decodeJSON(bootstrapNodes); err != nil {
		return EngineProfile{}, err
	}
	if profile.DHTRouterNodes, err = decodeJSON(routerNodes); err != nil {
		return EngineProfile{}, err
	}
	if profile.IPFilter, err = decodeJSON(ipFilter); err != nil {
		return EngineProfile{}, err
	}
	if profile.ListenInterfaces, err = decodeJSON(listenInterfaces); err != nil {
		return EngineProfile{}, err
	}

	return profile, nil
}
