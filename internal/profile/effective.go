package profile

import (
	"context"
	"fmt"
	"strings"

	"github.com/rivetbt/rivet/internal/config/store"
	"github.com/rivetbt/rivet/internal/config/tracker"
)

// MaxRateLimitBPS is the upper guard rail for rate limits (≈5 Gbps).
const MaxRateLimitBPS = 5_000_000_000

// Recognized IPv6 modes in canonical form.
const (
	IPv6Disabled = "disabled"
	IPv6Enabled  = "enabled"
	IPv6PreferV6 = "prefer_v6"
)

// Recognized encryption policies in canonical form.
const (
	EncryptionPrefer  = "prefer"
	EncryptionRequire = "require"
	EncryptionDisable = "disable"
)

// EffectiveProfile is the stored profile with guard rails applied: values
// the engine cannot run with are clamped or defaulted rather than rejected,
// and every adjustment is reported as a warning.
type EffectiveProfile struct {
	Profile  store.EngineProfile
	Tracker  tracker.Config
	Warnings []string
}

// Effective loads the stored profile and tracker configuration and applies
// the guard rails. Warnings are logged and returned to the caller.
func (s *Service) Effective(ctx context.Context) (EffectiveProfile, error) {
	stored, err := s.EngineProfile(ctx)
	if err != nil {
		return EffectiveProfile{}, err
	}
	trackerCfg, err := s.TrackerConfig(ctx)
	if err != nil {
		return EffectiveProfile{}, err
	}

	effective := applyGuardRails(stored, trackerCfg)
	for _, warning := range effective.Warnings {
		s.log.Warn().Str("profile_id", stored.ID).Msg(warning)
	}
	return effective, nil
}

func applyGuardRails(profile store.EngineProfile, trackerCfg tracker.Config) EffectiveProfile {
	var warnings []string

	if profile.ListenPort != nil {
		if port := *profile.ListenPort; port < 1 || port > 65535 {
			warnings = append(warnings, fmt.Sprintf("listen_port %d is out of range; disabling listen override", port))
			profile.ListenPort = nil
		}
	}

	profile.MaxDownloadBPS = clampRateLimit("max_download_bps", profile.MaxDownloadBPS, &warnings)
	profile.MaxUploadBPS = clampRateLimit("max_upload_bps", profile.MaxUploadBPS, &warnings)

	if profile.MaxActive != nil && *profile.MaxActive < 1 {
		warnings = append(warnings, fmt.Sprintf("max_active %d is not positive; removing limit", *profile.MaxActive))
		profile.MaxActive = nil
	}

	profile.Encryption = canonicalEncryption(profile.Encryption, &warnings)
	profile.IPv6Mode = canonicalIPv6Mode(profile.IPv6Mode, &warnings)

	profile.DHTBootstrapNodes = sanitizeEndpoints(profile.DHTBootstrapNodes, "dht_bootstrap_nodes", &warnings)
	profile.DHTRouterNodes = sanitizeEndpoints(profile.DHTRouterNodes, "dht_router_nodes", &warnings)
	profile.ListenInterfaces = sanitizeEndpoints(profile.ListenInterfaces, "listen_interfaces", &warnings)

	if profile.AnonymousMode && trackerCfg.Proxy != nil && !profile.ForceProxy {
		warnings = append(warnings, "anonymous_mode requested with a tracker proxy; forcing peer proxy")
		profile.ForceProxy = true
	}

	return EffectiveProfile{
		Profile:  profile,
		Tracker:  trackerCfg,
		Warnings: warnings,
	}
}

func clampRateLimit(field string, value *int64, warnings *[]string) *int64 {
	if value == nil {
		return nil
	}
	switch {
	case *value <= 0:
		*warnings = append(*warnings, fmt.Sprintf("%s %d is not positive; removing limit", field, *value))
		return nil
	case *value > MaxRateLimitBPS:
		*warnings = append(*warnings, fmt.Sprintf("%s %d exceeds max; clamping", field, *value))
		clamped := int64(MaxRateLimitBPS)
		return &clamped
	default:
		return value
	}
}

func canonicalEncryption(raw string, warnings *[]string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "require", "required":
		return EncryptionRequire
	case "disable", "disabled":
		return EncryptionDisable
	case "prefer":
		return EncryptionPrefer
	default:
		*warnings = append(*warnings, fmt.Sprintf("unknown encryption policy %q; defaulting to %q", raw, EncryptionPrefer))
		return EncryptionPrefer
	}
}

func canonicalIPv6Mode(raw string, warnings *[]string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "disabled", "disable", "off":
		return IPv6Disabled
	case "enabled", "enable", "on", "v6", "ipv6":
		return IPv6Enabled
	case "prefer_v6", "prefer-v6", "prefer6", "prefer":
		return IPv6PreferV6
	default:
		*warnings = append(*warnings, fmt.Sprintf("unknown ipv6_mode %q; defaulting to %q", raw, IPv6Disabled))
		return IPv6Disabled
	}
}

// sanitizeEndpoints trims, drops empties and dedups a node/interface list,
// keeping first-occurrence order.
func sanitizeEndpoints(values []string, field string, warnings *[]string) []string {
	if len(values) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(values))
	var out []string
	dropped := 0
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			dropped++
			continue
		}
		if _, dup := seen[trimmed]; dup {
			dropped++
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	if dropped > 0 {
		*warnings = append(*warnings, fmt.Sprintf("%s: dropped %d empty or duplicate entries", field, dropped))
	}
	return out
}
