package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"

	"github.com/rivetbt/rivet/internal/config/store"
	"github.com/rivetbt/rivet/internal/profile"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// profileDocument is the JSON shape of `profile apply --file`. Struct tags
// catch obviously broken documents at the CLI edge; the tracker payload is
// passed through untyped so the normalizer stays the single authority on
// tracker semantics.
type profileDocument struct {
	Implementation                string         `json:"implementation" validate:"required"`
	ListenPort                    *int           `json:"listen_port" validate:"omitempty,min=1,max=65535"`
	DHT                           bool           `json:"dht"`
	Encryption                    string         `json:"encryption" validate:"required,oneof=prefer require disable"`
	MaxActive                     *int           `json:"max_active" validate:"omitempty,min=1"`
	MaxDownloadBPS                *int64         `json:"max_download_bps" validate:"omitempty,min=1"`
	MaxUploadBPS                  *int64         `json:"max_upload_bps" validate:"omitempty,min=1"`
	SequentialDefault             bool           `json:"sequential_default"`
	ResumeDir                     string         `json:"resume_dir" validate:"required"`
	DownloadRoot                  string         `json:"download_root" validate:"required"`
	EnableLSD                     bool           `json:"enable_lsd"`
	EnableUPnP                    bool           `json:"enable_upnp"`
	EnableNATPMP                  bool           `json:"enable_natpmp"`
	EnablePEX                     bool           `json:"enable_pex"`
	AnonymousMode                 bool           `json:"anonymous_mode"`
	ForceProxy                    bool           `json:"force_proxy"`
	PreferRC4                     bool           `json:"prefer_rc4"`
	AllowMultipleConnectionsPerIP bool           `json:"allow_multiple_connections_per_ip"`
	EnableOutgoingUTP             bool           `json:"enable_outgoing_utp"`
	EnableIncomingUTP             bool           `json:"enable_incoming_utp"`
	DHTBootstrapNodes             []string       `json:"dht_bootstrap_nodes" validate:"omitempty,dive,required"`
	DHTRouterNodes                []string       `json:"dht_router_nodes" validate:"omitempty,dive,required"`
	IPFilter                      []string       `json:"ip_filter"`
	ListenInterfaces              []string       `json:"listen_interfaces"`
	IPv6Mode                      string         `json:"ipv6_mode" validate:"omitempty,oneof=disabled enabled prefer_v6"`
	Tracker                       map[string]any `json:"tracker"`
}

func profileShow(cmd *cobra.Command, _ []string) error {
	svc, closeFn, err := openService()
	if err != nil {
		return err
	}
	defer closeFn()

	effective, _ := cmd.Flags().GetBool("effective")
	if effective {
		view, err := svc.Effective(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(cmd, view)
	}

	engine, err := svc.EngineProfile(cmd.Context())
	if err != nil {
		return err
	}
	trackerCfg, err := svc.TrackerConfig(cmd.Context())
	if err != nil {
		return err
	}

	return printJSON(cmd, map[string]any{
		"engine_profile": engine,
		"tracker":        trackerCfg,
	})
}

func profileApply(cmd *cobra.Command, _ []string) error {
	path, _ := cmd.Flags().GetString("file")

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	var doc profileDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	if err := validate.Struct(doc); err != nil {
		return fmt.Errorf("invalid profile document: %w", err)
	}
	if doc.IPv6Mode == "" {
		doc.IPv6Mode = "disabled"
	}

	svc, closeFn, err := openService()
	if err != nil {
		return err
	}
	defer closeFn()

	cfg, err := svc.UpdateEngineProfile(cmd.Context(), profileUpdateRequest(doc))
	if err != nil {
		return err
	}

	return printJSON(cmd, map[string]any{
		"profile_id": store.EngineProfileID,
		"tracker":    cfg,
	})
}

func profileUpdateRequest(doc profileDocument) (req profile.UpdateRequest) {
	req.Profile = store.EngineProfile{
		ID:                            store.EngineProfileID,
		Implementation:                doc.Implementation,
		ListenPort:                    doc.ListenPort,
		DHT:                           doc.DHT,
		Encryption:                    doc.Encryption,
		MaxActive:                     doc.MaxActive,
		MaxDownloadBPS:                doc.MaxDownloadBPS,
		MaxUploadBPS:                  doc.MaxUploadBPS,
		SequentialDefault:             doc.SequentialDefault,
		ResumeDir:                     doc.ResumeDir,
		DownloadRoot:                  doc.DownloadRoot,
		EnableLSD:                     doc.EnableLSD,
		EnableUPnP:                    doc.EnableUPnP,
		EnableNATPMP:                  doc.EnableNATPMP,
		EnablePEX:                     doc.EnablePEX,
		AnonymousMode:                 doc.AnonymousMode,
		ForceProxy:                    doc.ForceProxy,
		PreferRC4:                     doc.PreferRC4,
		AllowMultipleConnectionsPerIP: doc.AllowMultipleConnectionsPerIP,
		EnableOutgoingUTP:             doc.EnableOutgoingUTP,
		EnableIncomingUTP:             doc.EnableIncomingUTP,
		DHTBootstrapNodes:             doc.DHTBootstrapNodes,
		DHTRouterNodes:                doc.DHTRouterNodes,
		IPFilter:                      doc.IPFilter,
		ListenInterfaces:              doc.ListenInterfaces,
		IPv6Mode:                      doc.IPv6Mode,
	}
	req.Tracker = doc.Tracker
	return req
}
