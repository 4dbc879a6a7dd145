// Package tracker holds the canonical tracker configuration model and the
// validation/normalization pipeline that reduces loosely-typed payloads to
// that canonical form. It is storage-free; persistence lives in
// internal/config/store.
package tracker

import "encoding/json"

// Proxy kinds accepted for tracker announces.
const (
	ProxyKindHTTP   = "http"
	ProxyKindHTTPS  = "https"
	ProxyKindSOCKS5 = "socks5"
)

// Limits applied during normalization.
const (
	MaxEndpointLen   = 512
	MaxUserAgentLen  = 255
	MaxRequestTimeMS = 900_000
)

// Proxy is the announce proxy carried by a canonical config. Host, Port,
// Kind and ProxyPeers are always present; the secret references are elided
// when empty. The secret fields hold opaque names resolved through the
// secret store, never credential material.
type Proxy struct {
	Host           string `json:"host"`
	Port           int    `json:"port"`
	Kind           string `json:"kind"`
	ProxyPeers     bool   `json:"proxy_peers"`
	UsernameSecret string `json:"username_secret,omitempty"`
	PasswordSecret string `json:"password_secret,omitempty"`
}

// Config is the canonical tracker configuration. Default, Extra, Replace and
// AnnounceToAll are always rendered; every other field is present only with
// a meaningful (non-default, non-empty) value. The zero value is the
// canonical-empty sentinel, which marshals to {}.
type Config struct {
	Default          []string
	Extra            []string
	Replace          bool
	AnnounceToAll    bool
	UserAgent        string
	AnnounceIP       string
	ListenInterface  string
	RequestTimeoutMS *int64
	Proxy            *Proxy
}

// IsEmpty reports whether the config carries no override at all, i.e. every
// field would serialize to its default/absent form.
func (c Config) IsEmpty() bool {
	return len(c.Default) == 0 &&
		len(c.Extra) == 0 &&
		!c.Replace &&
		!c.AnnounceToAll &&
		c.UserAgent == "" &&
		c.AnnounceIP == "" &&
		c.ListenInterface == "" &&
		c.RequestTimeoutMS == nil &&
		c.Proxy == nil
}

// Equal reports canonical equality. Empty and nil URL lists compare equal.
func (c Config) Equal(other Config) bool {
	if !stringSlicesEqual(c.Default, other.Default) ||
		!stringSlicesEqual(c.Extra, other.Extra) {
		return false
	}
	if c.Replace != other.Replace ||
		c.AnnounceToAll != other.AnnounceToAll ||
		c.UserAgent != other.UserAgent ||
		c.AnnounceIP != other.AnnounceIP ||
		c.ListenInterface != other.ListenInterface {
		return false
	}
	if (c.RequestTimeoutMS == nil) != (other.RequestTimeoutMS == nil) {
		return false
	}
	if c.RequestTimeoutMS != nil && *c.RequestTimeoutMS != *other.RequestTimeoutMS {
		return false
	}
	if (c.Proxy == nil) != (other.Proxy == nil) {
		return false
	}
	if c.Proxy != nil && *c.Proxy != *other.Proxy {
		return false
	}
	return true
}

// MarshalJSON renders the canonical payload shape: the empty sentinel
// collapses to {}, otherwise the four core fields are always emitted and
// optional fields only when set.
func (c Config) MarshalJSON() ([]byte, error) {
	if c.IsEmpty() {
		return []byte("{}"), nil
	}

	type payload struct {
		Default          []string `json:"default"`
		Extra            []string `json:"extra"`
		Replace          bool     `json:"replace"`
		AnnounceToAll    bool     `json:"announce_to_all"`
		UserAgent        string   `json:"user_agent,omitempty"`
		AnnounceIP       string   `json:"announce_ip,omitempty"`
		ListenInterface  string   `json:"listen_interface,omitempty"`
		RequestTimeoutMS *int64   `json:"request_timeout_ms,omitempty"`
		Proxy            *Proxy   `json:"proxy,omitempty"`
	}

	out := payload{
		Default:          c.Default,
		Extra:            c.Extra,
		Replace:          c.Replace,
		AnnounceToAll:    c.AnnounceToAll,
		UserAgent:        c.UserAgent,
		AnnounceIP:       c.AnnounceIP,
		ListenInterface:  c.ListenInterface,
		RequestTimeoutMS: c.RequestTimeoutMS,
		Proxy:            c.Proxy,
	}
	if out.Default == nil {
		out.Default = []string{}
	}
	if out.Extra == nil {
		out.Extra = []string{}
	}
	return json.Marshal(out)
}

func stringSlicesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
