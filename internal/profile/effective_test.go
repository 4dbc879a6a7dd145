package profile

import (
	"strings"
	"testing"

	"github.com/rivetbt/rivet/internal/config/store"
	"github.com/rivetbt/rivet/internal/config/tracker"
)

func intPtr(v int) *int       { return &v }
func int64Ptr(v int64) *int64 { return &v }

func TestGuardRailsListenPort(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		port     *int
		wantPort *int
		warns    bool
	}{
		{name: "valid kept", port: intPtr(6881), wantPort: intPtr(6881)},
		{name: "low bound kept", port: intPtr(1), wantPort: intPtr(1)},
		{name: "zero disabled", port: intPtr(0), warns: true},
		{name: "too high disabled", port: intPtr(70000), warns: true},
		{name: "absent stays absent", port: nil},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			effective := applyGuardRails(store.EngineProfile{
				ListenPort: tt.port,
				Encryption: EncryptionPrefer,
				IPv6Mode:   IPv6Disabled,
			}, tracker.Config{})

			if tt.wantPort == nil {
				if effective.Profile.ListenPort != nil {
					t.Fatalf("port = %v, want disabled", *effective.Profile.ListenPort)
				}
			} else if effective.Profile.ListenPort == nil || *effective.Profile.ListenPort != *tt.wantPort {
				t.Fatalf("port = %v, want %d", effective.Profile.ListenPort, *tt.wantPort)
			}
			if tt.warns != (len(effective.Warnings) > 0) {
				t.Fatalf("warnings = %v", effective.Warnings)
			}
		})
	}
}

func TestGuardRailsRateLimitClamp(t *testing.T) {
	t.Parallel()

	effective := applyGuardRails(store.EngineProfile{
		MaxDownloadBPS: int64Ptr(MaxRateLimitBPS + 1),
		MaxUploadBPS:   int64Ptr(-5),
		Encryption:     EncryptionPrefer,
		IPv6Mode:       IPv6Disabled,
	}, tracker.Config{})

	if effective.Profile.MaxDownloadBPS == nil || *effective.Profile.MaxDownloadBPS != MaxRateLimitBPS {
		t.Fatalf("download limit = %v, want clamped to %d", effective.Profile.MaxDownloadBPS, int64(MaxRateLimitBPS))
	}
	if effective.Profile.MaxUploadBPS != nil {
		t.Fatalf("negative upload limit should be removed, got %v", *effective.Profile.MaxUploadBPS)
	}
	if len(effective.Warnings) != 2 {
		t.Fatalf("warnings = %v", effective.Warnings)
	}
}

func TestGuardRailsEnumFallbacks(t *testing.T) {
	t.Parallel()

	effective := applyGuardRails(store.EngineProfile{
		Encryption: "rot13",
		IPv6Mode:   "sometimes",
	}, tracker.Config{})

	if effective.Profile.Encryption != EncryptionPrefer {
		t.Fatalf("encryption = %s, want prefer fallback", effective.Profile.Encryption)
	}
	if effective.Profile.IPv6Mode != IPv6Disabled {
		t.Fatalf("ipv6_mode = %s, want disabled fallback", effective.Profile.IPv6Mode)
	}
	if len(effective.Warnings) != 2 {
		t.Fatalf("warnings = %v", effective.Warnings)
	}
}

func TestGuardRailsEnumAliases(t *testing.T) {
	t.Parallel()

	effective := applyGuardRails(store.EngineProfile{
		Encryption: "REQUIRED",
		IPv6Mode:   "prefer-v6",
	}, tracker.Config{})

	if effective.Profile.Encryption != EncryptionRequire {
		t.Fatalf("encryption = %s", effective.Profile.Encryption)
	}
	if effective.Profile.IPv6Mode != IPv6PreferV6 {
		t.Fatalf("ipv6_mode = %s", effective.Profile.IPv6Mode)
	}
	if len(effective.Warnings) != 0 {
		t.Fatalf("aliases should resolve without warnings: %v", effective.Warnings)
	}
}

func TestGuardRailsNodeListSanitized(t *testing.T) {
	t.Parallel()

	effective := applyGuardRails(store.EngineProfile{
		Encryption:        EncryptionPrefer,
		IPv6Mode:          IPv6Disabled,
		DHTBootstrapNodes: []string{" node-a:6881 ", "node-a:6881", "", "node-b:6881"},
	}, tracker.Config{})

	nodes := effective.Profile.DHTBootstrapNodes
	if len(nodes) != 2 || nodes[0] != "node-a:6881" || nodes[1] != "node-b:6881" {
		t.Fatalf("nodes = %v", nodes)
	}
	if len(effective.Warnings) != 1 || !strings.Contains(effective.Warnings[0], "dht_bootstrap_nodes") {
		t.Fatalf("warnings = %v", effective.Warnings)
	}
}

func TestGuardRailsAnonymousModeForcesProxy(t *testing.T) {
	t.Parallel()

	trackerCfg := tracker.Config{
		Proxy: &tracker.Proxy{Host: "p", Port: 1080, Kind: tracker.ProxyKindSOCKS5},
	}

	effective := applyGuardRails(store.EngineProfile{
		AnonymousMode: true,
		Encryption:    EncryptionPrefer,
		IPv6Mode:      IPv6Disabled,
	}, trackerCfg)

	if !effective.Profile.ForceProxy {
		t.Fatal("anonymous mode with a tracker proxy should force the peer proxy")
	}
	if len(effective.Warnings) != 1 {
		t.Fatalf("warnings = %v", effective.Warnings)
	}

	// Without a tracker proxy there is nothing to force.
	effective = applyGuardRails(store.EngineProfile{
		AnonymousMode: true,
		Encryption:    EncryptionPrefer,
		IPv6Mode:      IPv6Disabled,
	}, tracker.Config{})
	if effective.Profile.ForceProxy {
		t.Fatal("force_proxy should stay off without a tracker proxy")
	}
}
