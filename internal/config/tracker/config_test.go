package tracker

import (
	"encoding/json"
	"testing"
)

func TestConfigMarshalEmptyObject(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(Config{})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != "{}" {
		t.Fatalf("canonical-empty config = %s, want {}", data)
	}
}

func TestConfigMarshalCoreFieldsAlwaysPresent(t *testing.T) {
	t.Parallel()

	cfg := Config{Default: []string{"udp://x"}}
	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"default", "extra", "replace", "announce_to_all"} {
		if _, ok := doc[key]; !ok {
			t.Fatalf("missing core key %q in %s", key, data)
		}
	}
	if string(doc["extra"]) != "[]" {
		t.Fatalf("nil extra should render as [], got %s", doc["extra"])
	}
	for _, key := range []string{"user_agent", "announce_ip", "listen_interface", "request_timeout_ms", "proxy"} {
		if _, ok := doc[key]; ok {
			t.Fatalf("unset optional key %q should be omitted", key)
		}
	}
}

func TestConfigEqualTreatsNilAndEmptySlicesAlike(t *testing.T) {
	t.Parallel()

	a := Config{Default: nil, Extra: []string{}}
	b := Config{Default: []string{}, Extra: nil}
	if !a.Equal(b) {
		t.Fatal("nil and empty endpoint lists should compare equal")
	}
	if !a.IsEmpty() || !b.IsEmpty() {
		t.Fatal("both configs should be canonical-empty")
	}
}

func TestConfigEqualComparesProxy(t *testing.T) {
	t.Parallel()

	timeout := int64(5000)
	a := Config{
		Proxy:            &Proxy{Host: "p", Port: 1080, Kind: ProxyKindSOCKS5},
		RequestTimeoutMS: &timeout,
	}
	b := a
	other := timeout
	b.RequestTimeoutMS = &other
	b.Proxy = &Proxy{Host: "p", Port: 1080, Kind: ProxyKindSOCKS5}
	if !a.Equal(b) {
		t.Fatal("structurally identical configs should compare equal")
	}

	b.Proxy.Port = 1081
	if a.Equal(b) {
		t.Fatal("differing proxy ports should not compare equal")
	}

	b.Proxy = nil
	if a.Equal(b) {
		t.Fatal("present vs absent proxy should not compare equal")
	}
}

func TestConfigIsEmptyFalseWhenAnyFieldSet(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "replace flag", cfg: Config{Replace: true}},
		{name: "announce flag", cfg: Config{AnnounceToAll: true}},
		{name: "endpoint", cfg: Config{Extra: []string{"http://e"}}},
		{name: "user agent", cfg: Config{UserAgent: "rivet/1.0"}},
		{name: "timeout", cfg: Config{RequestTimeoutMS: ptrInt64(0)}},
		{name: "proxy", cfg: Config{Proxy: &Proxy{Host: "p", Port: 1, Kind: ProxyKindHTTP}}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if tt.cfg.IsEmpty() {
				t.Fatalf("config with %s set should not be empty", tt.name)
			}
		})
	}
}

func ptrInt64(v int64) *int64 { return &v }
