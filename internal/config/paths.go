package config

import (
	"os"
	"path/filepath"
)

// Paths contains the on-disk layout for a rivet installation.
type Paths struct {
	Home         string // Rivet home directory (~/.rivet)
	ConfigDB     string // SQLite configuration store path
	DownloadRoot string // Default download destination
	ResumeDir    string // Fast-resume data directory
	Logs         string // Logs directory
}

// GetPaths returns the standard directory layout rooted at the rivet home.
func GetPaths() Paths {
	home := GetRivetHome()
	serverRoot := filepath.Join(home, ".server_root")

	return Paths{
		Home:         home,
		ConfigDB:     filepath.Join(home, "config.db"),
		DownloadRoot: filepath.Join(serverRoot, "downloads"),
		ResumeDir:    filepath.Join(serverRoot, "resume"),
		Logs:         filepath.Join(home, "logs"),
	}
}

// GetRivetHome returns the rivet home directory (~/.rivet), honouring the
// RIVET_HOME override.
func GetRivetHome() string {
	if custom := os.Getenv("RIVET_HOME"); custom != "" {
		return custom
	}
	userHome, _ := os.UserHomeDir()
	return filepath.Join(userHome, ".rivet")
}

// ExpandPath expands ~ to the user home directory.
func ExpandPath(path string) string {
	if len(path) == 0 {
		return path
	}
	if path[0] == '~' {
		home, _ := os.UserHomeDir()
		if len(path) == 1 {
			return home
		}
		if path[1] == '/' || path[1] == os.PathSeparator {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

// EnsureDirs creates the rivet directory structure if it does not exist.
func EnsureDirs() (Paths, error) {
	paths := GetPaths()

	dirs := []string{
		paths.Home,
		paths.DownloadRoot,
		paths.ResumeDir,
		paths.Logs,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return paths, err
		}
	}

	return paths, nil
}
