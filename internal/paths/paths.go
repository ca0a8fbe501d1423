package paths

import (
	"os"
	"path/filepath"
)

const appName = "pkgtx"

// Resolver centralizes pkgtx default locations.
// It derives base directories from HOME and the XDG variables.
type Resolver struct {
	homeDir string
	getenv  func(string) string
}

// NewResolver creates a Resolver for the current user
func NewResolver() *Resolver {
	homeDir, err := os.UserHomeDir()
	if err != nil || homeDir == "" {
		homeDir = os.Getenv("HOME")
	}
	if homeDir == "" {
		homeDir = "."
	}
	return &Resolver{
		homeDir: homeDir,
		getenv:  os.Getenv,
	}
}

// NewResolverWithHome creates a Resolver with an explicit home and environment (useful for tests)
func NewResolverWithHome(homeDir string, getenv func(string) string) *Resolver {
	if getenv == nil {
		getenv = func(string) string { return "" }
	}
	return &Resolver{
		homeDir: homeDir,
		getenv:  getenv,
	}
}

// HomeDir returns the resolved home directory
func (r *Resolver) HomeDir() string {
	return r.homeDir
}

// xdg returns $env when it is an absolute path, otherwise ~/fallback
func (r *Resolver) xdg(env string, fallback ...string) string {
	if dir := r.getenv(env); filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(append([]string{r.homeDir}, fallback...)...)
}

// ConfigDir returns $XDG_CONFIG_HOME/pkgtx, ~/.config/pkgtx by default
func (r *Resolver) ConfigDir() string {
	return filepath.Join(r.xdg("XDG_CONFIG_HOME", ".config"), appName)
}

// DataDir returns $XDG_DATA_HOME/pkgtx, ~/.local/share/pkgtx by default
func (r *Resolver) DataDir() string {
	return filepath.Join(r.xdg("XDG_DATA_HOME", ".local", "share"), appName)
}

// ConfigSearchPaths lists the directories searched for config.toml, highest priority first
func (r *Resolver) ConfigSearchPaths() []string {
	return []string{r.ConfigDir(), filepath.Join("/etc", appName), "."}
}

// LockFile returns the default lock file path. It lives in the system temp
// directory so every user invoking pkgtx contends on the same file.
func (r *Resolver) LockFile() string {
	return filepath.Join(os.TempDir(), appName+".lock")
}

// Expand expands a leading ~ and environment variables
func (r *Resolver) Expand(path string) string {
	if path == "" {
		return path
	}
	if path == "~" || (len(path) > 1 && path[0] == '~' && path[1] == '/') {
		path = filepath.Join(r.homeDir, path[1:])
	}
	return os.Expand(path, r.getenv)
}
