package tracker

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// Normalize reduces a loosely-typed tracker payload to its canonical form.
// A nil payload is treated as empty. Any rule violation rejects the whole
// payload with a ValidationError; nothing is silently defaulted except where
// a default is part of the canonical form (absent booleans, proxy kind).
//
// URL lists are trimmed, stripped of empty entries and deduplicated by exact
// string equality, keeping the position of the first occurrence. Repeated
// normalization is a fixed point: Normalize applied to its own output (as a
// payload) yields an equal Config.
func Normalize(raw map[string]any) (Config, error) {
	if raw == nil {
		return Config{}, nil
	}
	if err := ValidateShape(raw); err != nil {
		return Config{}, err
	}

	var cfg Config
	var err error

	if cfg.Default, err = normalizeList(raw["default"], "default"); err != nil {
		return Config{}, err
	}
	if cfg.Extra, err = normalizeList(raw["extra"], "extra"); err != nil {
		return Config{}, err
	}
	if cfg.Replace, err = boolField(raw, "replace"); err != nil {
		return Config{}, err
	}
	if cfg.AnnounceToAll, err = boolField(raw, "announce_to_all"); err != nil {
		return Config{}, err
	}

	if cfg.UserAgent, err = stringField(raw, "user_agent"); err != nil {
		return Config{}, err
	}
	if len(cfg.UserAgent) > MaxUserAgentLen {
		return Config{}, ValidationError{
			Kind:   KindTooLong,
			Field:  "user_agent",
			Reason: fmt.Sprintf("exceeds %d characters", MaxUserAgentLen),
		}
	}
	if cfg.AnnounceIP, err = stringField(raw, "announce_ip"); err != nil {
		return Config{}, err
	}
	if cfg.ListenInterface, err = stringField(raw, "listen_interface"); err != nil {
		return Config{}, err
	}

	if cfg.RequestTimeoutMS, err = timeoutField(raw, "request_timeout_ms"); err != nil {
		return Config{}, err
	}

	if cfg.Proxy, err = normalizeProxy(raw["proxy"]); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func normalizeList(value any, field string) ([]string, error) {
	entries, err := stringList(value, field)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(entries))
	var out []string
	for _, entry := range entries {
		trimmed := strings.TrimSpace(entry)
		if trimmed == "" {
			continue
		}
		if len(trimmed) > MaxEndpointLen {
			return nil, ValidationError{
				Kind:   KindTooLong,
				Field:  field,
				Reason: fmt.Sprintf("entry exceeds %d characters", MaxEndpointLen),
			}
		}
		if _, dup := seen[trimmed]; dup {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	return out, nil
}

func normalizeProxy(value any) (*Proxy, error) {
	if value == nil {
		return nil, nil
	}
	raw, ok := value.(map[string]any)
	if !ok {
		return nil, ValidationError{Kind: KindShape, Field: "proxy", Reason: "must be a mapping"}
	}

	host, err := stringField(raw, "host")
	if err != nil {
		return nil, prefixField(err, "proxy")
	}
	if host == "" {
		return nil, ValidationError{Kind: KindMissingField, Field: "proxy.host", Reason: "host is required"}
	}

	portValue, present := raw["port"]
	if !present || portValue == nil {
		return nil, ValidationError{Kind: KindMissingField, Field: "proxy.port", Reason: "port is required"}
	}
	port, err := intValue(portValue, "proxy.port")
	if err != nil {
		return nil, err
	}
	if port < 1 || port > 65_535 {
		return nil, ValidationError{Kind: KindOutOfRange, Field: "proxy.port", Reason: "must be between 1 and 65535"}
	}

	kind, err := stringField(raw, "kind")
	if err != nil {
		return nil, prefixField(err, "proxy")
	}
	if kind == "" {
		kind = ProxyKindHTTP
	}
	switch kind {
	case ProxyKindHTTP, ProxyKindHTTPS, ProxyKindSOCKS5:
	default:
		return nil, ValidationError{
			Kind:   KindUnsupportedValue,
			Field:  "proxy.kind",
			Reason: "must be one of http, https, socks5",
		}
	}

	proxyPeers, err := boolField(raw, "proxy_peers")
	if err != nil {
		return nil, prefixField(err, "proxy")
	}

	usernameSecret, err := stringField(raw, "username_secret")
	if err != nil {
		return nil, prefixField(err, "proxy")
	}
	passwordSecret, err := stringField(raw, "password_secret")
	if err != nil {
		return nil, prefixField(err, "proxy")
	}

	return &Proxy{
		Host:           host,
		Port:           int(port),
		Kind:           kind,
		ProxyPeers:     proxyPeers,
		UsernameSecret: usernameSecret,
		PasswordSecret: passwordSecret,
	}, nil
}

func boolField(raw map[string]any, field string) (bool, error) {
	value, ok := raw[field]
	if !ok || value == nil {
		return false, nil
	}
	b, ok := value.(bool)
	if !ok {
		return false, ValidationError{Kind: KindInvalidType, Field: field, Reason: "must be a boolean"}
	}
	return b, nil
}

func stringField(raw map[string]any, field string) (string, error) {
	value, ok := raw[field]
	if !ok || value == nil {
		return "", nil
	}
	text, ok := value.(string)
	if !ok {
		return "", ValidationError{Kind: KindInvalidType, Field: field, Reason: "must be a string"}
	}
	return strings.TrimSpace(text), nil
}

func timeoutField(raw map[string]any, field string) (*int64, error) {
	value, ok := raw[field]
	if !ok || value == nil {
		return nil, nil
	}
	ms, err := intValue(value, field)
	if err != nil {
		return nil, err
	}
	if ms < 0 || ms > MaxRequestTimeMS {
		return nil, ValidationError{
			Kind:   KindOutOfRange,
			Field:  field,
			Reason: fmt.Sprintf("must be between 0 and %d milliseconds", MaxRequestTimeMS),
		}
	}
	return &ms, nil
}

// intValue coerces a payload number to an integer. JSON decoding yields
// float64 (or json.Number when configured), so integral floats are accepted
// while fractional values are rejected.
func intValue(value any, field string) (int64, error) {
	switch v := value.(type) {
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		if v != math.Trunc(v) {
			return 0, ValidationError{Kind: KindInvalidType, Field: field, Reason: "must be an integer"}
		}
		return int64(v), nil
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, ValidationError{Kind: KindInvalidType, Field: field, Reason: "must be an integer"}
		}
		return n, nil
	default:
		return 0, ValidationError{Kind: KindInvalidType, Field: field, Reason: "must be an integer"}
	}
}

func prefixField(err error, prefix string) error {
	verr, ok := err.(ValidationError)
	if !ok {
		return err
	}
	if strings.HasPrefix(verr.Field, prefix+".") {
		return verr
	}
	verr.Field = prefix + "." + verr.Field
	return verr
}
