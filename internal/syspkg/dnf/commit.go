package dnf

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/quantmind-br/pkgtx/internal/core"
	"github.com/quantmind-br/pkgtx/internal/helpers"
	"github.com/quantmind-br/pkgtx/internal/syspkg"
)

// stepCodes maps the per-package steps dnf prints while running a transaction
var stepCodes = map[string]core.ActionCode{
	"Installing":   core.ActionInstall,
	"Upgrading":    core.ActionUpdate,
	"Downgrading":  core.ActionDowngrade,
	"Reinstalling": core.ActionReinstall,
	"Erasing":      core.ActionErase,
	"Obsoleting":   core.ActionObsoleted,
	"Cleanup":      core.ActionUpdated,
}

var progressSteps = map[string]bool{
	"Preparing":         true,
	"Verifying":         true,
	"Running scriptlet": true,
}

// Commit runs the resolved script twice: a test transaction that changes nothing,
// then the real one. Output is streamed into sink as it arrives.
func (p *Provider) Commit(ctx context.Context, sink syspkg.EventSink) (*syspkg.Plan, error) {
	if p.plan == nil {
		return nil, errors.New("dnf commit: no resolved plan")
	}

	script, err := p.writeScript()
	if err != nil {
		return nil, err
	}

	name, args := p.command(true, "shell", "-y", "--setopt=tsflags=test", script)
	if _, stderr, err := p.runner.RunCommandWithOutput(ctx, name, args...); err != nil {
		return nil, fmt.Errorf("transaction test failed: %w: %s", err, lastLine(stderr))
	}
	p.logger.Debug().Msg("dnf transaction test passed")

	parser := newCommitParser(sink)
	stdout := helpers.NewLineWriter(parser.stdoutLine)
	stderr := helpers.NewLineWriter(parser.stderrLine)

	name, args = p.command(true, "shell", "-y", script)
	runErr := p.runner.RunCommandStreaming(ctx, stdout, stderr, name, args...)
	stdout.Flush()
	stderr.Flush()

	exitCode := p.runner.GetExitCode(runErr)
	if exitCode < 0 {
		return nil, fmt.Errorf("run dnf transaction: %w", runErr)
	}
	if exitCode > 0 && !parser.started {
		return nil, fmt.Errorf("dnf transaction did not start: %w: %s", runErr, parser.lastError())
	}

	return parser.finalPlan(p.plan, exitCode != 0), nil
}

// commitParser turns dnf transaction output into sink events. The stdout and
// stderr writers may be fed from different goroutines.
type commitParser struct {
	mu   sync.Mutex
	sink syspkg.EventSink

	started       bool
	inTransaction bool
	inFailed      bool
	current       string
	verified      map[string]bool
	failed        map[string]bool
	errors        []string
}

func newCommitParser(sink syspkg.EventSink) *commitParser {
	return &commitParser{
		sink:     sink,
		verified: make(map[string]bool),
		failed:   make(map[string]bool),
	}
}

func (c *commitParser) stdoutLine(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	trimmed := strings.TrimSpace(line)
	switch {
	case trimmed == "":
		c.inFailed = false
		return
	case trimmed == "Running transaction":
		c.started = true
		c.inTransaction = true
		return
	case trimmed == "Failed:":
		c.inFailed = true
		c.inTransaction = false
		return
	}

	if c.inFailed {
		for _, nevra := range strings.Fields(trimmed) {
			c.failed[nevraName(nevra)] = true
		}
		return
	}

	if !c.inTransaction {
		return
	}

	// summary headings ("Installed:", "Removed:") end the transaction block
	if strings.HasSuffix(trimmed, ":") && !strings.Contains(trimmed, " ") {
		c.inTransaction = false
		return
	}

	if step, rest, ok := strings.Cut(trimmed, ":"); ok {
		step = strings.TrimSpace(step)
		if code, isPackageStep := stepCodes[step]; isPackageStep {
			pkg, _, _ := parseStepTarget(rest)
			c.current = pkg
			c.sink.OnPackageEvent(pkg, code)
			return
		}
		if progressSteps[step] {
			pkg, done, total := parseStepTarget(rest)
			if pkg != "" {
				c.current = pkg
			}
			if step == "Verifying" {
				c.verified[nevraName(pkg)] = true
			}
			c.sink.OnProgress(pkg, done, total)
			return
		}
	}

	c.sink.OnScriptOutput(c.current, trimmed)
}

func (c *commitParser) stderrLine(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if trimmed := strings.TrimSpace(line); trimmed != "" {
		c.errors = append(c.errors, trimmed)
		c.sink.OnError(trimmed)
	}
}

func (c *commitParser) lastError() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.errors) == 0 {
		return "no error output"
	}
	return c.errors[len(c.errors)-1]
}

// finalPlan copies plan and marks members that failed. After a non-zero exit,
// members dnf never verified count as failed too.
func (c *commitParser) finalPlan(plan *syspkg.Plan, exitFailed bool) *syspkg.Plan {
	c.mu.Lock()
	defer c.mu.Unlock()

	final := &syspkg.Plan{Members: make([]syspkg.Member, len(plan.Members))}
	copy(final.Members, plan.Members)

	for i := range final.Members {
		m := &final.Members[i]
		if c.failed[m.Name] || (exitFailed && !c.verified[m.Name]) {
			m.Code = core.ActionFailed
		}
	}
	return final
}

// parseStepTarget splits "pkg-1.0-1.noarch   3/7" into its parts
func parseStepTarget(rest string) (pkg string, done, total int64) {
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return "", 0, 0
	}
	if d, t, ok := strings.Cut(fields[len(fields)-1], "/"); ok {
		dv, err1 := strconv.ParseInt(d, 10, 64)
		tv, err2 := strconv.ParseInt(t, 10, 64)
		if err1 == nil && err2 == nil {
			done, total = dv, tv
			fields = fields[:len(fields)-1]
		}
	}
	if len(fields) > 0 {
		pkg = fields[0]
	}
	return pkg, done, total
}

// nevraName extracts the package name from name-[epoch:]version-release.arch
func nevraName(nevra string) string {
	s := nevra
	if i := strings.LastIndex(s, "."); i > 0 {
		s = s[:i]
	}
	i := strings.LastIndex(s, "-")
	if i <= 0 {
		return nevra
	}
	j := strings.LastIndex(s[:i], "-")
	if j <= 0 {
		return nevra
	}
	return s[:j]
}
