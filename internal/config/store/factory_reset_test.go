package store

import (
	"context"
	"testing"
	"time"
)

func TestFactoryResetRestoresSeedState(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	// Dirty every table the reset covers.
	if err := s.SaveTrackerConfig(ctx, EngineProfileID, sampleTrackerConfig(t)); err != nil {
		t.Fatalf("save tracker: %v", err)
	}
	if err := s.UpdateEngineProfile(ctx, modifiedEngineProfile(t, s), sampleTrackerConfig(t)); err != nil {
		t.Fatalf("update profile: %v", err)
	}
	if err := s.SetSecret(ctx, "proxy-pass", "secret"); err != nil {
		t.Fatalf("set secret: %v", err)
	}
	token, err := s.IssueSetupToken(ctx, "cli", time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	if err := s.ConsumeSetupToken(ctx, token); err != nil {
		t.Fatalf("consume token: %v", err)
	}

	if err := s.FactoryReset(ctx); err != nil {
		t.Fatalf("factory reset: %v", err)
	}

	app, err := s.AppProfile(ctx)
	if err != nil {
		t.Fatalf("app profile: %v", err)
	}
	if app.Mode != AppModeSetup {
		t.Fatalf("app mode = %s, want setup", app.Mode)
	}

	engine, err := s.EngineProfile(ctx, EngineProfileID)
	if err != nil {
		t.Fatalf("engine profile: %v", err)
	}
	if engine.ListenPort == nil || *engine.ListenPort != 6881 {
		t.Fatalf("listen port = %v, want seeded 6881", engine.ListenPort)
	}
	if engine.SequentialDefault || engine.AnonymousMode {
		t.Fatal("engine toggles should be back at defaults")
	}

	rendered, err := s.TrackerConfig(ctx, EngineProfileID)
	if err != nil {
		t.Fatalf("render tracker: %v", err)
	}
	if !rendered.IsEmpty() {
		t.Fatalf("tracker config should render canonical-empty after reset, got %+v", rendered)
	}

	if _, err := s.Secret(ctx, "proxy-pass"); !IsNotFound(err) {
		t.Fatalf("secrets should be wiped, got %v", err)
	}

	names, err := s.SecretNames(ctx)
	if err != nil {
		t.Fatalf("list secrets: %v", err)
	}
	if len(names) != 0 {
		t.Fatalf("secret names = %v, want none", names)
	}

	policy, err := s.FSPolicy(ctx)
	if err != nil {
		t.Fatalf("fs policy: %v", err)
	}
	if policy.LibraryRoot != defaultLibraryRoot || policy.MoveMode != "copy" {
		t.Fatalf("fs policy not reseeded: %+v", policy)
	}
}
