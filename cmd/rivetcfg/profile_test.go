package main

import (
	"encoding/json"
	"testing"

	"github.com/rivetbt/rivet/internal/config/store"
)

func validDocument() profileDocument {
	port := 6881
	return profileDocument{
		Implementation: "libtorrent",
		ListenPort:     &port,
		Encryption:     "prefer",
		ResumeDir:      ".server_root/resume",
		DownloadRoot:   ".server_root/downloads",
	}
}

func TestProfileDocumentValidation(t *testing.T) {
	t.Parallel()

	if err := validate.Struct(validDocument()); err != nil {
		t.Fatalf("valid document rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*profileDocument)
	}{
		{"missing implementation", func(d *profileDocument) { d.Implementation = "" }},
		{"bad encryption", func(d *profileDocument) { d.Encryption = "rot13" }},
		{"port out of range", func(d *profileDocument) { port := 70000; d.ListenPort = &port }},
		{"zero max active", func(d *profileDocument) { zero := 0; d.MaxActive = &zero }},
		{"missing download root", func(d *profileDocument) { d.DownloadRoot = "" }},
		{"bad ipv6 mode", func(d *profileDocument) { d.IPv6Mode = "sometimes" }},
		{"blank bootstrap node", func(d *profileDocument) { d.DHTBootstrapNodes = []string{""} }},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			doc := validDocument()
			tt.mutate(&doc)
			if err := validate.Struct(doc); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestProfileUpdateRequestMapping(t *testing.T) {
	t.Parallel()

	raw := []byte(`{
		"implementation": "libtorrent",
		"listen_port": 51413,
		"dht": true,
		"encryption": "require",
		"sequential_default": true,
		"resume_dir": "/data/resume",
		"download_root": "/data/downloads",
		"dht_bootstrap_nodes": ["router.bittorrent.com:6881"],
		"ipv6_mode": "enabled",
		"tracker": {"default": ["udp://t"], "replace": true}
	}`)

	var doc profileDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if err := validate.Struct(doc); err != nil {
		t.Fatalf("validate: %v", err)
	}

	req := profileUpdateRequest(doc)
	if req.Profile.ID != store.EngineProfileID {
		t.Fatalf("profile id = %s", req.Profile.ID)
	}
	if req.Profile.ListenPort == nil || *req.Profile.ListenPort != 51413 {
		t.Fatalf("listen port = %v", req.Profile.ListenPort)
	}
	if !req.Profile.DHT || !req.Profile.SequentialDefault {
		t.Fatal("boolean fields lost in mapping")
	}
	if req.Profile.Encryption != "require" || req.Profile.IPv6Mode != "enabled" {
		t.Fatalf("enums = %s / %s", req.Profile.Encryption, req.Profile.IPv6Mode)
	}
	if req.Tracker == nil {
		t.Fatal("tracker payload must pass through untyped")
	}
	if _, ok := req.Tracker["default"]; !ok {
		t.Fatalf("tracker payload = %v", req.Tracker)
	}
}
