package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestGetRivetHome(t *testing.T) {
	t.Setenv("RIVET_HOME", "")
	os.Unsetenv("RIVET_HOME")

	home := GetRivetHome()

	userHome, _ := os.UserHomeDir()
	expected := filepath.Join(userHome, ".rivet")

	if home != expected {
		t.Errorf("GetRivetHome() = %s; want %s", home, expected)
	}
}

func TestGetRivetHomeOverride(t *testing.T) {
	t.Setenv("RIVET_HOME", "/tmp/rivet-test-home")

	if home := GetRivetHome(); home != "/tmp/rivet-test-home" {
		t.Errorf("GetRivetHome() = %s; want RIVET_HOME override", home)
	}
}

func TestGetPaths(t *testing.T) {
	t.Setenv("RIVET_HOME", "/tmp/rivet-test-home")

	paths := GetPaths()

	if paths.ConfigDB != "/tmp/rivet-test-home/config.db" {
		t.Errorf("ConfigDB path incorrect: %s", paths.ConfigDB)
	}
	if !strings.Contains(paths.DownloadRoot, ".server_root/downloads") {
		t.Errorf("DownloadRoot path incorrect: %s", paths.DownloadRoot)
	}
	if !strings.Contains(paths.ResumeDir, ".server_root/resume") {
		t.Errorf("ResumeDir path incorrect: %s", paths.ResumeDir)
	}
}

func TestExpandPath(t *testing.T) {
	home, _ := os.UserHomeDir()

	tests := []struct {
		input    string
		expected string
	}{
		{"~", home},
		{"~/downloads", filepath.Join(home, "downloads")},
		{"/absolute/path", "/absolute/path"},
		{"relative/path", "relative/path"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := ExpandPath(tt.input); got != tt.expected {
			t.Errorf("ExpandPath(%q) = %q; want %q", tt.input, got, tt.expected)
		}
	}
}

func TestEnsureDirs(t *testing.T) {
	t.Setenv("RIVET_HOME", filepath.Join(t.TempDir(), ".rivet"))

	paths, err := EnsureDirs()
	if err != nil {
		t.Fatalf("EnsureDirs: %v", err)
	}

	for _, dir := range []string{paths.Home, paths.DownloadRoot, paths.ResumeDir, paths.Logs} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("stat %s: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("%s is not a directory", dir)
		}
	}
}
