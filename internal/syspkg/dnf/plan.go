package dnf

import (
	"context"
	"fmt"
	"strings"

	"github.com/quantmind-br/pkgtx/internal/core"
	"github.com/quantmind-br/pkgtx/internal/syspkg"
)

// sectionCodes maps transaction table headings to the code of their rows
var sectionCodes = map[string]core.ActionCode{
	"Installing":                   core.ActionInstall,
	"Installing dependencies":      core.ActionTrueInstall,
	"Installing weak dependencies": core.ActionTrueInstall,
	"Upgrading":                    core.ActionUpdate,
	"Reinstalling":                 core.ActionReinstall,
	"Downgrading":                  core.ActionDowngrade,
	"Removing":                     core.ActionErase,
	"Removing dependent packages":  core.ActionErase,
	"Removing unused dependencies": core.ActionErase,
}

// BuildPlan resolves the staged requests with an --assumeno dry run of the script.
// It returns 0 when dnf has nothing to do, 2 when a plan was parsed and 1 otherwise.
func (p *Provider) BuildPlan(ctx context.Context) (core.PlanStatus, []string, error) {
	p.plan = nil
	if !p.staged() {
		p.plan = &syspkg.Plan{}
		return core.PlanNothingToDo, nil, nil
	}

	script, err := p.writeScript()
	if err != nil {
		return 0, nil, err
	}

	name, args := p.command(true, "shell", "--assumeno", script)
	stdout, stderr, err := p.runner.RunCommandWithOutput(ctx, name, args...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, nil, ctxErr
		}
		if p.runner.GetExitCode(err) < 0 {
			return 0, nil, fmt.Errorf("run dnf shell: %w", err)
		}
	}

	members := parseTransactionTable(stdout)
	switch {
	case len(members) > 0:
		p.plan = &syspkg.Plan{Members: members}
		p.logger.Debug().Int("members", len(members)).Msg("dnf plan resolved")
		return core.PlanReady, nil, nil
	case strings.Contains(stdout, "Nothing to do"):
		p.plan = &syspkg.Plan{}
		return core.PlanNothingToDo, nil, nil
	default:
		return 1, diagnostics(stdout, stderr), nil
	}
}

func parseTransactionTable(output string) []syspkg.Member {
	var (
		members   []syspkg.Member
		code      core.ActionCode
		inSection bool
		pending   string
	)

	for _, raw := range strings.Split(output, "\n") {
		line := strings.TrimRight(raw, "\r ")
		if line == "" {
			pending = ""
			continue
		}
		if strings.HasPrefix(line, "Transaction Summary") {
			break
		}
		if !strings.HasPrefix(line, " ") {
			pending = ""
			code, inSection = sectionCodes[strings.TrimSuffix(line, ":")]
			continue
		}
		if !inSection {
			continue
		}

		fields := strings.Fields(line)
		if fields[0] == "replacing" {
			if len(fields) >= 3 {
				members = appendReplaced(members, fields[1], fields[2])
			}
			continue
		}

		// long names are printed on their own line
		if pending != "" {
			fields = append([]string{pending}, fields...)
			pending = ""
		}
		if len(fields) == 1 {
			pending = fields[0]
			continue
		}
		if len(fields) < 4 {
			continue
		}

		epoch, version, release := syspkg.ParseEVR(fields[2])
		members = append(members, syspkg.Member{
			Name: fields[0],
			Package: &syspkg.PackageID{
				Name:    fields[0],
				Epoch:   epoch,
				Version: version,
				Release: release,
				Arch:    fields[1],
				Repo:    fields[3],
			},
			Code: code,
		})
	}

	return members
}

// appendReplaced records a package that the previous row replaces. The same name
// means the old side of an upgrade; a different name is an obsoleted package.
func appendReplaced(members []syspkg.Member, nameArch, evr string) []syspkg.Member {
	name, arch := splitNameArch(nameArch)
	epoch, version, release := syspkg.ParseEVR(evr)
	replaced := syspkg.Member{
		Name: name,
		Package: &syspkg.PackageID{
			Name:    name,
			Epoch:   epoch,
			Version: version,
			Release: release,
			Arch:    arch,
			Repo:    "@System",
		},
		Code: core.ActionObsoleted,
	}

	if n := len(members); n > 0 {
		prev := &members[n-1]
		switch {
		case prev.Name == name && prev.Code == core.ActionDowngrade:
			replaced.Code = core.ActionDowngraded
		case prev.Name == name && prev.Code == core.ActionReinstall:
			replaced.Code = core.ActionReinstalled
		case prev.Name == name:
			replaced.Code = core.ActionUpdated
		case prev.Code == core.ActionInstall || prev.Code == core.ActionTrueInstall:
			prev.Code = core.ActionObsoleting
		}
	}

	return append(members, replaced)
}

func splitNameArch(s string) (name, arch string) {
	if i := strings.LastIndex(s, "."); i > 0 {
		return s[:i], s[i+1:]
	}
	return s, ""
}

// diagnostics collects the error lines dnf printed, falling back to all of stderr
func diagnostics(stdout, stderr string) []string {
	var diags []string
	for _, line := range strings.Split(stderr+"\n"+stdout, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "Error") ||
			strings.HasPrefix(line, "No match for argument") ||
			strings.HasPrefix(line, "Problem") ||
			strings.HasPrefix(line, "- ") {
			diags = append(diags, line)
		}
	}
	if len(diags) == 0 {
		for _, line := range strings.Split(stderr, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				diags = append(diags, line)
			}
		}
	}
	return diags
}
