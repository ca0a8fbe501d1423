// Package dnf drives dnf as a subprocess to stage, resolve and commit transactions.
package dnf

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/quantmind-br/pkgtx/internal/fsops"
	"github.com/quantmind-br/pkgtx/internal/helpers"
	"github.com/quantmind-br/pkgtx/internal/security"
	"github.com/quantmind-br/pkgtx/internal/syspkg"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

// Options configures how dnf is invoked
type Options struct {
	Binary  string
	UseSudo bool
}

// Provider implements syspkg.Provider for dnf based systems
type Provider struct {
	runner helpers.CommandRunner
	fs     afero.Fs
	locker syspkg.Locker
	logger *zerolog.Logger
	opts   Options

	erases    []string
	installs  []string
	scriptDir string
	plan      *syspkg.Plan
}

var (
	_ syspkg.Provider          = (*Provider)(nil)
	_ syspkg.BuildDepInstaller = (*Provider)(nil)
)

// NewProvider creates a dnf provider. locker guards the package database and fs
// holds the generated shell scripts.
func NewProvider(runner helpers.CommandRunner, fs afero.Fs, locker syspkg.Locker, opts Options, logger *zerolog.Logger) *Provider {
	if opts.Binary == "" {
		opts.Binary = "dnf"
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Provider{
		runner: runner,
		fs:     fs,
		locker: locker,
		logger: logger,
		opts:   opts,
	}
}

// Name returns "dnf"
func (p *Provider) Name() string {
	return "dnf"
}

// Lock acquires the package database lock
func (p *Provider) Lock(ctx context.Context) error {
	if err := p.runner.RequireCommand(p.opts.Binary); err != nil {
		return err
	}
	return p.locker.Lock(ctx)
}

// Unlock releases the package database lock
func (p *Provider) Unlock() error {
	return p.locker.Unlock()
}

// StageInstall records an install request
func (p *Provider) StageInstall(name, version string) error {
	spec, err := stageSpec(name, version)
	if err != nil {
		return err
	}
	p.installs = append(p.installs, spec)
	p.plan = nil
	return nil
}

// StageErase records an erase request
func (p *Provider) StageErase(name, version string) error {
	spec, err := stageSpec(name, version)
	if err != nil {
		return err
	}
	p.erases = append(p.erases, spec)
	p.plan = nil
	return nil
}

func stageSpec(name, version string) (string, error) {
	if err := security.ValidateRequest(name, version); err != nil {
		return "", err
	}
	if version == "" {
		return name, nil
	}
	return name + "-" + version, nil
}

// Reset discards staged requests, the resolved plan and the generated script
func (p *Provider) Reset() {
	p.erases = nil
	p.installs = nil
	p.plan = nil
	if p.scriptDir != "" {
		if err := p.fs.RemoveAll(p.scriptDir); err != nil {
			p.logger.Warn().Err(err).Str("dir", p.scriptDir).Msg("failed to remove dnf script dir")
		}
		p.scriptDir = ""
	}
}

// InstallBuildDeps installs the build dependencies of a spec file or source package
func (p *Provider) InstallBuildDeps(ctx context.Context, spec string) error {
	if strings.TrimSpace(spec) == "" {
		return fmt.Errorf("builddep: empty source spec")
	}
	if err := security.ValidateCommandArg(spec); err != nil {
		return fmt.Errorf("builddep %s: %w", spec, err)
	}
	if err := p.runner.RequireCommand(p.opts.Binary); err != nil {
		return err
	}

	name, args := p.command(true, "builddep", "-y", spec)
	p.logger.Info().Str("spec", spec).Msg("installing build dependencies")
	_, stderr, err := p.runner.RunCommandWithOutput(ctx, name, args...)
	if err != nil {
		return fmt.Errorf("builddep %s: %w: %s", spec, err, lastLine(stderr))
	}
	return nil
}

// command builds the argv for a dnf invocation, prefixing sudo for privileged calls
func (p *Provider) command(privileged bool, args ...string) (string, []string) {
	if privileged && p.opts.UseSudo {
		return "sudo", append([]string{"-n", p.opts.Binary}, args...)
	}
	return p.opts.Binary, args
}

// writeScript renders staged requests as a dnf shell script and returns its path
func (p *Provider) writeScript() (string, error) {
	if p.scriptDir == "" {
		dir, err := fsops.CreateTempDir(p.fs, "pkgtx-dnf-")
		if err != nil {
			return "", err
		}
		p.scriptDir = dir
	}

	var b strings.Builder
	for _, spec := range p.erases {
		fmt.Fprintf(&b, "remove %s\n", spec)
	}
	for _, spec := range p.installs {
		fmt.Fprintf(&b, "install %s\n", spec)
	}
	b.WriteString("run\n")

	path := filepath.Join(p.scriptDir, "transaction.dnf")
	if err := afero.WriteFile(p.fs, path, []byte(b.String()), 0o600); err != nil {
		return "", fmt.Errorf("write dnf script: %w", err)
	}
	return path, nil
}

func (p *Provider) staged() bool {
	return len(p.erases)+len(p.installs) > 0
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
