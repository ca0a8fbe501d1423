package arch

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/quantmind-br/pkgtx/internal/core"
	"github.com/quantmind-br/pkgtx/internal/helpers"
	"github.com/quantmind-br/pkgtx/internal/security"
	"github.com/quantmind-br/pkgtx/internal/syspkg"
	"github.com/rs/zerolog"
)

const printFormat = "%n %v %r %a"

// Options configures how pacman is invoked
type Options struct {
	Binary  string
	UseSudo bool
}

// PacmanProvider implements the Provider interface for Arch Linux
type PacmanProvider struct {
	runner helpers.CommandRunner
	locker syspkg.Locker
	logger *zerolog.Logger
	opts   Options

	erases   []string
	installs []string
	plan     *syspkg.Plan
}

var _ syspkg.Provider = (*PacmanProvider)(nil)

// NewPacmanProvider creates a new Pacman provider
func NewPacmanProvider(runner helpers.CommandRunner, locker syspkg.Locker, opts Options, logger *zerolog.Logger) *PacmanProvider {
	if opts.Binary == "" {
		opts.Binary = "pacman"
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &PacmanProvider{
		runner: runner,
		locker: locker,
		logger: logger,
		opts:   opts,
	}
}

func (p *PacmanProvider) Name() string {
	return "pacman"
}

// Lock acquires the package database lock
func (p *PacmanProvider) Lock(ctx context.Context) error {
	if err := p.runner.RequireCommand(p.opts.Binary); err != nil {
		return err
	}
	return p.locker.Lock(ctx)
}

// Unlock releases the package database lock
func (p *PacmanProvider) Unlock() error {
	return p.locker.Unlock()
}

// StageInstall records an install request as a "name=version" target
func (p *PacmanProvider) StageInstall(name, version string) error {
	if err := security.ValidateRequest(name, version); err != nil {
		return err
	}
	target := name
	if version != "" {
		target = name + "=" + version
	}
	p.installs = append(p.installs, target)
	p.plan = nil
	return nil
}

// StageErase records an erase request. pacman removes by name only, so the
// version is validated and then dropped.
func (p *PacmanProvider) StageErase(name, version string) error {
	if err := security.ValidateRequest(name, version); err != nil {
		return err
	}
	if version != "" {
		p.logger.Debug().Str("package", name).Str("version", version).Msg("pacman removes by name, ignoring version")
	}
	p.erases = append(p.erases, name)
	p.plan = nil
	return nil
}

// Reset discards staged requests and the resolved plan
func (p *PacmanProvider) Reset() {
	p.erases = nil
	p.installs = nil
	p.plan = nil
}

// BuildPlan resolves staged requests with --print, which never touches the system
func (p *PacmanProvider) BuildPlan(ctx context.Context) (core.PlanStatus, []string, error) {
	p.plan = nil

	members, diags, err := p.resolve(ctx)
	if err != nil {
		return 0, nil, err
	}
	if diags != nil {
		return 1, diags, nil
	}

	p.plan = &syspkg.Plan{Members: members}
	if len(members) == 0 {
		return core.PlanNothingToDo, nil, nil
	}
	return core.PlanReady, nil, nil
}

// resolve returns the plan members, or diagnostics when pacman rejected a target
func (p *PacmanProvider) resolve(ctx context.Context) ([]syspkg.Member, []string, error) {
	var members []syspkg.Member

	if len(p.erases) > 0 {
		out, diags, err := p.print(ctx, append([]string{"-R"}, p.erases...))
		if err != nil || diags != nil {
			return nil, diags, err
		}
		for _, id := range parsePrintOutput(out) {
			members = append(members, syspkg.Member{Name: id.Name, Package: &id, Code: core.ActionErase})
		}
	}

	if len(p.installs) > 0 {
		out, diags, err := p.print(ctx, append([]string{"-S", "--needed"}, p.installs...))
		if err != nil || diags != nil {
			return nil, diags, err
		}
		ids := parsePrintOutput(out)
		installed, err := p.installedVersions(ctx, ids)
		if err != nil {
			return nil, nil, err
		}
		for _, id := range ids {
			code, err := p.installCode(ctx, id, installed)
			if err != nil {
				return nil, nil, err
			}
			members = append(members, syspkg.Member{Name: id.Name, Package: &id, Code: code})
		}
	}

	return members, nil, nil
}

func (p *PacmanProvider) print(ctx context.Context, args []string) (string, []string, error) {
	args = append(args, "--print", "--print-format", printFormat)
	stdout, stderr, err := p.runner.RunCommandWithOutput(ctx, p.opts.Binary, args...)
	if err == nil {
		return stdout, nil, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", nil, ctxErr
	}
	if p.runner.GetExitCode(err) < 0 {
		return "", nil, fmt.Errorf("run pacman: %w", err)
	}
	return "", errorLines(stderr), nil
}

// installedVersions maps names of currently installed packages to their version
func (p *PacmanProvider) installedVersions(ctx context.Context, ids []syspkg.PackageID) (map[string]string, error) {
	versions := make(map[string]string)
	if len(ids) == 0 {
		return versions, nil
	}

	args := []string{"-Q"}
	for _, id := range ids {
		args = append(args, id.Name)
	}
	// pacman -Q exits 1 when any name is not installed, but still lists the rest
	stdout, _, err := p.runner.RunCommandWithOutput(ctx, p.opts.Binary, args...)
	if err != nil && p.runner.GetExitCode(err) != 1 {
		return nil, fmt.Errorf("pacman -Q: %w", err)
	}
	for _, line := range strings.Split(stdout, "\n") {
		if fields := strings.Fields(line); len(fields) == 2 {
			versions[fields[0]] = fields[1]
		}
	}
	return versions, nil
}

func (p *PacmanProvider) installCode(ctx context.Context, id syspkg.PackageID, installed map[string]string) (core.ActionCode, error) {
	old, ok := installed[id.Name]
	if !ok {
		return core.ActionInstall, nil
	}
	cmp, err := p.vercmp(ctx, evrString(id), old)
	if err != nil {
		return "", err
	}
	switch {
	case cmp > 0:
		return core.ActionUpdate, nil
	case cmp < 0:
		return core.ActionDowngrade, nil
	default:
		return core.ActionReinstall, nil
	}
}

func (p *PacmanProvider) vercmp(ctx context.Context, a, b string) (int, error) {
	out, err := p.runner.RunCommand(ctx, "vercmp", a, b)
	if err != nil {
		return 0, fmt.Errorf("vercmp %s %s: %w", a, b, err)
	}
	n, err := strconv.Atoi(strings.TrimSpace(out))
	if err != nil {
		return 0, fmt.Errorf("vercmp %s %s: unexpected output %q", a, b, out)
	}
	return n, nil
}

// parsePrintOutput reads lines in printFormat ("name version repo arch")
func parsePrintOutput(out string) []syspkg.PackageID {
	var ids []syspkg.PackageID
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) != 4 || strings.HasSuffix(fields[0], ":") {
			continue
		}
		epoch, version, release := syspkg.ParseEVR(fields[1])
		ids = append(ids, syspkg.PackageID{
			Name:    fields[0],
			Epoch:   epoch,
			Version: version,
			Release: release,
			Repo:    fields[2],
			Arch:    fields[3],
		})
	}
	return ids
}

func evrString(id syspkg.PackageID) string {
	s := id.Version
	if id.Epoch != "" && id.Epoch != "0" {
		s = id.Epoch + ":" + s
	}
	if id.Release != "" {
		s += "-" + id.Release
	}
	return s
}

func errorLines(stderr string) []string {
	var lines []string
	for _, line := range strings.Split(stderr, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "error:") {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		lines = []string{"pacman could not resolve the transaction"}
		if s := strings.TrimSpace(stderr); s != "" {
			lines = []string{s}
		}
	}
	return lines
}

// command builds the argv for a privileged pacman invocation
func (p *PacmanProvider) command(args ...string) (string, []string) {
	if p.opts.UseSudo {
		return "sudo", append([]string{"-n", p.opts.Binary}, args...)
	}
	return p.opts.Binary, args
}
