// Package profile composes validation, normalization and persistence into
// the engine-profile update pipeline and computes the effective view the
// engine actually runs with.
package profile

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/rivetbt/rivet/internal/config/store"
	"github.com/rivetbt/rivet/internal/config/tracker"
)

// Service owns the configuration write path. All tracker payloads pass
// through the normalizer before anything touches storage.
type Service struct {
	store *store.Store
	log   zerolog.Logger
}

// New wires a Service on top of an open store.
func New(st *store.Store, log zerolog.Logger) *Service {
	return &Service{
		store: st,
		log:   log.With().Str("component", "profile").Logger(),
	}
}

// UpdateRequest carries a full engine profile record plus the raw tracker
// payload to persist with it.
type UpdateRequest struct {
	Profile store.EngineProfile
	Tracker map[string]any
}

// UpdateEngineProfile validates and normalizes the tracker payload, then
// persists the whole profile and the canonical tracker configuration in one
// transaction. A normalization failure leaves stored state untouched.
func (s *Service) UpdateEngineProfile(ctx context.Context, req UpdateRequest) (tracker.Config, error) {
	cfg, err := tracker.Normalize(req.Tracker)
	if err != nil {
		return tracker.Config{}, err
	}

	if err := s.store.UpdateEngineProfile(ctx, req.Profile, cfg); err != nil {
		return tracker.Config{}, err
	}

	s.log.Info().
		Str("profile_id", req.Profile.ID).
		Int("default_trackers", len(cfg.Default)).
		Int("extra_trackers", len(cfg.Extra)).
		Msg("engine profile updated")

	return cfg, nil
}

// EngineProfile loads the stored engine profile record.
func (s *Service) EngineProfile(ctx context.Context) (store.EngineProfile, error) {
	return s.store.EngineProfile(ctx, store.EngineProfileID)
}

// TrackerConfig renders the stored tracker configuration in canonical form.
func (s *Service) TrackerConfig(ctx context.Context) (tracker.Config, error) {
	return s.store.TrackerConfig(ctx, store.EngineProfileID)
}

// SetTrackerConfig validates, normalizes and persists a raw tracker payload
// for the singleton engine profile, returning the canonical form.
func (s *Service) SetTrackerConfig(ctx context.Context, raw map[string]any) (tracker.Config, error) {
	cfg, err := tracker.Normalize(raw)
	if err != nil {
		return tracker.Config{}, err
	}

	if err := s.store.SaveTrackerConfig(ctx, store.EngineProfileID, cfg); err != nil {
		return tracker.Config{}, err
	}

	s.log.Info().
		Int("default_trackers", len(cfg.Default)).
		Int("extra_trackers", len(cfg.Extra)).
		Bool("replace", cfg.Replace).
		Msg("tracker config updated")

	return cfg, nil
}

// FactoryReset wipes all configuration and reseeds the defaults.
func (s *Service) FactoryReset(ctx context.Context) error {
	if err := s.store.FactoryReset(ctx); err != nil {
		return fmt.Errorf("profile: factory reset: %w", err)
	}
	s.log.Warn().Msg("factory reset completed")
	return nil
}
