package arch

import (
	"context"
	"fmt"
	"strings"

	"github.com/quantmind-br/pkgtx/internal/syspkg"
)

// ListPackages queries the local and sync databases without taking the lock
func (p *PacmanProvider) ListPackages(ctx context.Context, scope syspkg.ListScope) (*syspkg.PackageLists, error) {
	lists := &syspkg.PackageLists{
		Installed:     []syspkg.PackageID{},
		Available:     []syspkg.PackageID{},
		Reinstallable: []syspkg.PackageID{},
		Extras:        []syspkg.PackageID{},
	}

	if scope == syspkg.ScopeAll || scope == syspkg.ScopeInstalled {
		out, err := p.query(ctx, "-Q")
		if err != nil {
			return nil, err
		}
		lists.Installed = parseQueryOutput(out, "local")
	}

	if scope == syspkg.ScopeAll || scope == syspkg.ScopeExtras {
		out, err := p.query(ctx, "-Qm")
		if err != nil {
			return nil, err
		}
		lists.Extras = parseQueryOutput(out, "local")
	}

	if scope == syspkg.ScopeAll || scope == syspkg.ScopeAvailable {
		out, err := p.query(ctx, "-Sl")
		if err != nil {
			return nil, err
		}
		lists.Available, lists.Reinstallable = parseSyncList(out)
	}

	return lists, nil
}

func (p *PacmanProvider) query(ctx context.Context, flag string) (string, error) {
	stdout, stderr, err := p.runner.RunCommandWithOutput(ctx, p.opts.Binary, flag)
	if err != nil {
		// -Qm exits 1 when there are no foreign packages
		if p.runner.GetExitCode(err) == 1 && strings.TrimSpace(stdout) == "" {
			return "", nil
		}
		return "", fmt.Errorf("pacman %s: %w: %s", flag, err, strings.TrimSpace(stderr))
	}
	return stdout, nil
}

// parseQueryOutput reads "name version" lines
func parseQueryOutput(out, repo string) []syspkg.PackageID {
	ids := []syspkg.PackageID{}
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) != 2 {
			continue
		}
		epoch, version, release := syspkg.ParseEVR(fields[1])
		ids = append(ids, syspkg.PackageID{
			Name:    fields[0],
			Epoch:   epoch,
			Version: version,
			Release: release,
			Repo:    repo,
		})
	}
	return ids
}

// parseSyncList reads "repo name version [installed]" lines. A package whose
// installed version matches the sync version can be reinstalled.
func parseSyncList(out string) (available, reinstallable []syspkg.PackageID) {
	available = []syspkg.PackageID{}
	reinstallable = []syspkg.PackageID{}
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		epoch, version, release := syspkg.ParseEVR(fields[2])
		id := syspkg.PackageID{
			Name:    fields[1],
			Epoch:   epoch,
			Version: version,
			Release: release,
			Repo:    fields[0],
		}
		if len(fields) == 4 && fields[3] == "[installed]" {
			reinstallable = append(reinstallable, id)
			continue
		}
		available = append(available, id)
	}
	return available, reinstallable
}
