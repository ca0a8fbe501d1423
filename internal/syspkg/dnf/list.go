package dnf

import (
	"context"
	"fmt"
	"strings"

	"github.com/quantmind-br/pkgtx/internal/syspkg"
)

// ListPackages queries dnf without taking the lock
func (p *Provider) ListPackages(ctx context.Context, scope syspkg.ListScope) (*syspkg.PackageLists, error) {
	name, args := p.command(false, "list", "--quiet", "--showduplicates", "--"+string(scope))
	stdout, stderr, err := p.runner.RunCommandWithOutput(ctx, name, args...)
	if err != nil {
		// dnf exits 1 when a scope has no packages at all
		if p.runner.GetExitCode(err) != 1 {
			return nil, fmt.Errorf("dnf list: %w: %s", err, lastLine(stderr))
		}
	}

	return parseListOutput(stdout), nil
}

func parseListOutput(output string) *syspkg.PackageLists {
	lists := &syspkg.PackageLists{
		Installed:     []syspkg.PackageID{},
		Available:     []syspkg.PackageID{},
		Reinstallable: []syspkg.PackageID{},
		Extras:        []syspkg.PackageID{},
	}

	var (
		section *[]syspkg.PackageID
		pending string
	)
	installed := make(map[string]bool)

	for _, raw := range strings.Split(output, "\n") {
		line := strings.TrimSpace(raw)
		switch line {
		case "":
			continue
		case "Installed Packages":
			section, pending = &lists.Installed, ""
			continue
		case "Available Packages":
			section, pending = &lists.Available, ""
			continue
		case "Extra Packages":
			section, pending = &lists.Extras, ""
			continue
		}
		if section == nil {
			continue
		}

		fields := strings.Fields(line)
		if pending != "" {
			fields = append([]string{pending}, fields...)
			pending = ""
		}
		if len(fields) == 1 {
			pending = fields[0]
			continue
		}
		if len(fields) < 3 {
			continue
		}

		name, arch := splitNameArch(fields[0])
		epoch, version, release := syspkg.ParseEVR(fields[1])
		id := syspkg.PackageID{
			Name:    name,
			Epoch:   epoch,
			Version: version,
			Release: release,
			Arch:    arch,
			Repo:    fields[2],
		}

		if section == &lists.Installed {
			installed[identityKey(id)] = true
		}
		// an available build identical to the installed one can be reinstalled
		if section == &lists.Available && installed[identityKey(id)] {
			lists.Reinstallable = append(lists.Reinstallable, id)
			continue
		}
		*section = append(*section, id)
	}

	return lists
}

func identityKey(id syspkg.PackageID) string {
	return id.Name + "|" + id.Epoch + "|" + id.Version + "|" + id.Release + "|" + id.Arch
}
