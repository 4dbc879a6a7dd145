package store

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/rivetbt/rivet/internal/config/tracker"
)

func sampleTrackerConfig(t *testing.T) tracker.Config {
	t.Helper()

	cfg, err := tracker.Normalize(map[string]any{
		"default":         []any{" http://a ", "http://a", "http://b"},
		"extra":           []any{"udp://x", "udp://y"},
		"replace":         true,
		"announce_to_all": true,
		"user_agent":      "rivet/1.0",
		"proxy": map[string]any{
			"host": "proxy.local",
			"port": float64(1080),
			"kind": "socks5",
		},
	})
	if err != nil {
		t.Fatalf("normalize sample: %v", err)
	}
	return cfg
}

func TestTrackerConfigRoundTrip(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	cfg := sampleTrackerConfig(t)
	if err := s.SaveTrackerConfig(ctx, EngineProfileID, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := s.TrackerConfig(ctx, EngineProfileID)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !got.Equal(cfg) {
		t.Fatalf("round trip mismatch:\nsaved    %+v\nrendered %+v", cfg, got)
	}

	// Persisting a rendered config and rendering again must be a fixed point.
	if err := s.SaveTrackerConfig(ctx, EngineProfileID, got); err != nil {
		t.Fatalf("re-save: %v", err)
	}
	again, err := s.TrackerConfig(ctx, EngineProfileID)
	if err != nil {
		t.Fatalf("re-render: %v", err)
	}
	if !again.Equal(got) {
		t.Fatalf("second round trip drifted:\nfirst  %+v\nsecond %+v", got, again)
	}
}

func TestTrackerConfigCanonicalEmpty(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	// Fast path: no row ever written.
	got, err := s.TrackerConfig(ctx, EngineProfileID)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !got.IsEmpty() {
		t.Fatalf("fresh profile should render canonical-empty, got %+v", got)
	}

	data, err := json.Marshal(got)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != "{}" {
		t.Fatalf("canonical-empty render = %s, want {}", data)
	}

	// Storing the canonical-empty config must render back as empty too.
	if err := s.SaveTrackerConfig(ctx, EngineProfileID, tracker.Config{}); err != nil {
		t.Fatalf("save empty: %v", err)
	}
	got, err = s.TrackerConfig(ctx, EngineProfileID)
	if err != nil {
		t.Fatalf("render after empty save: %v", err)
	}
	if !got.IsEmpty() {
		t.Fatalf("stored empty config should render canonical-empty, got %+v", got)
	}
}

func TestTrackerConfigEndpointOrderPreserved(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	cfg := tracker.Config{
		Default: []string{"udp://c", "udp://a", "udp://b"},
		Extra:   []string{"http://z", "http://m"},
	}
	if err := s.SaveTrackerConfig(ctx, EngineProfileID, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := s.TrackerConfig(ctx, EngineProfileID)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !got.Equal(cfg) {
		t.Fatalf("endpoint order not preserved:\nsaved    %+v\nrendered %+v", cfg, got)
	}
}

func TestSaveTrackerConfigReplacesWholesale(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	first := tracker.Config{
		Default:   []string{"udp://old-1", "udp://old-2"},
		Extra:     []string{"http://old"},
		Replace:   true,
		UserAgent: "old-agent",
	}
	if err := s.SaveTrackerConfig(ctx, EngineProfileID, first); err != nil {
		t.Fatalf("save first: %v", err)
	}

	second := tracker.Config{
		Default: []string{"udp://new"},
	}
	if err := s.SaveTrackerConfig(ctx, EngineProfileID, second); err != nil {
		t.Fatalf("save second: %v", err)
	}

	got, err := s.TrackerConfig(ctx, EngineProfileID)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !got.Equal(second) {
		t.Fatalf("old state leaked through replace:\nwant %+v\ngot  %+v", second, got)
	}

	// No orphaned endpoint rows may survive the replace.
	var count int
	if err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM tracker_endpoint WHERE profile_id = ?
	`, EngineProfileID).Scan(&count); err != nil {
		t.Fatalf("count endpoints: %v", err)
	}
	if count != 1 {
		t.Fatalf("endpoint rows = %d, want 1", count)
	}
}

func TestSaveTrackerConfigUnknownProfile(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)

	err := s.SaveTrackerConfig(context.Background(), "missing-profile", sampleTrackerConfig(t))
	if !IsNotFound(err) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestTrackerConfigPersistsAcrossReopen(t *testing.T) {
	t.Parallel()

	dbPath := filepath.Join(t.TempDir(), "config.db")
	ctx := context.Background()

	first, err := Open(Options{DBPath: dbPath})
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	cfg := sampleTrackerConfig(t)
	if err := first.SaveTrackerConfig(ctx, EngineProfileID, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	second, err := Open(Options{DBPath: dbPath})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	t.Cleanup(func() { second.Close() })

	got, err := second.TrackerConfig(ctx, EngineProfileID)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !got.Equal(cfg) {
		t.Fatalf("tracker config lost across reopen:\nsaved    %+v\nrendered %+v", cfg, got)
	}
}
