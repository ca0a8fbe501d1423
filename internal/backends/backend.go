package backends

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/quantmind-br/pkgtx/internal/config"
	"github.com/quantmind-br/pkgtx/internal/helpers"
	"github.com/quantmind-br/pkgtx/internal/lock"
	"github.com/quantmind-br/pkgtx/internal/syspkg"
	"github.com/quantmind-br/pkgtx/internal/syspkg/arch"
	"github.com/quantmind-br/pkgtx/internal/syspkg/dnf"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

// Factory builds a host provider
type Factory func() syspkg.Provider

type entry struct {
	name    string
	binary  string
	factory Factory
}

// Registry manages the host package managers pkgtx can drive
type Registry struct {
	entries  []entry
	selected string
	runner   helpers.CommandRunner
	logger   *zerolog.Logger
}

// NewRegistry creates a registry with all supported host providers.
// Host commands run with LC_ALL=C so their output can be parsed.
func NewRegistry(cfg *config.Config, fs afero.Fs, log *zerolog.Logger) *Registry {
	return NewRegistryWithRunner(cfg, fs, helpers.NewOSCommandRunner("LC_ALL=C"), log)
}

// NewRegistryWithRunner creates a registry that runs host commands through runner
func NewRegistryWithRunner(cfg *config.Config, fs afero.Fs, runner helpers.CommandRunner, log *zerolog.Logger) *Registry {
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}
	newLock := func() *lock.FileLock {
		return lock.NewFileLock(fs, cfg.Paths.LockFile, lock.Options{
			Wait:         cfg.Lock.Wait,
			PollInterval: cfg.Lock.PollInterval,
		}, log)
	}

	registry := &Registry{
		selected: cfg.Host.Backend,
		runner:   runner,
		logger:   log,
	}

	// Register providers in detection order
	dnfBinary := orDefault(cfg.Host.DNFBinary, "dnf")
	registry.entries = append(registry.entries, entry{
		name:   "dnf",
		binary: dnfBinary,
		factory: func() syspkg.Provider {
			return dnf.NewProvider(runner, fs, newLock(), dnf.Options{
				Binary:  dnfBinary,
				UseSudo: cfg.Host.UseSudo,
			}, log)
		},
	})

	pacmanBinary := orDefault(cfg.Host.PacmanBinary, "pacman")
	registry.entries = append(registry.entries, entry{
		name:   "pacman",
		binary: pacmanBinary,
		factory: func() syspkg.Provider {
			return arch.NewPacmanProvider(runner, newLock(), arch.Options{
				Binary:  pacmanBinary,
				UseSudo: cfg.Host.UseSudo,
			}, log)
		},
	})

	return registry
}

// Provider returns the configured provider, or the first one whose binary is
// on PATH when host.backend is "auto"
func (r *Registry) Provider() (syspkg.Provider, error) {
	if r.selected != "" && r.selected != "auto" {
		return r.GetProvider(r.selected)
	}

	for _, e := range r.entries {
		if r.runner.CommandExists(e.binary) {
			r.logger.Debug().
				Str("backend", e.name).
				Str("binary", e.binary).
				Msg("host package manager detected")
			return e.factory(), nil
		}
	}

	return nil, fmt.Errorf("no supported package manager found (tried %s): %w",
		strings.Join(r.ListBackends(), ", "), exec.ErrNotFound)
}

// GetProvider builds a provider by name
func (r *Registry) GetProvider(name string) (syspkg.Provider, error) {
	for _, e := range r.entries {
		if e.name == name {
			return e.factory(), nil
		}
	}
	return nil, fmt.Errorf("backend not found: %s", name)
}

// ListBackends returns all registered provider names
func (r *Registry) ListBackends() []string {
	names := make([]string, len(r.entries))
	for i, e := range r.entries {
		names[i] = e.name
	}
	return names
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
