package arch

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/quantmind-br/pkgtx/internal/core"
	"github.com/quantmind-br/pkgtx/internal/helpers"
	"github.com/quantmind-br/pkgtx/internal/syspkg"
)

// stepLine matches pacman's "(3/7) installing foo" progress lines
var stepLine = regexp.MustCompile(`^\((\d+)/(\d+)\)\s+(.+)$`)

var stepVerbs = map[string]core.ActionCode{
	"installing":   core.ActionInstall,
	"upgrading":    core.ActionUpdate,
	"downgrading":  core.ActionDowngrade,
	"reinstalling": core.ActionReinstall,
	"removing":     core.ActionErase,
}

// Commit re-checks the plan with --print and then runs the removal and the
// install as two pacman transactions.
func (p *PacmanProvider) Commit(ctx context.Context, sink syspkg.EventSink) (*syspkg.Plan, error) {
	if p.plan == nil {
		return nil, errors.New("pacman commit: no resolved plan")
	}

	if _, diags, err := p.resolve(ctx); err != nil {
		return nil, fmt.Errorf("transaction test failed: %w", err)
	} else if diags != nil {
		return nil, fmt.Errorf("transaction test failed: %s", diags[0])
	}

	final := &syspkg.Plan{Members: make([]syspkg.Member, len(p.plan.Members))}
	copy(final.Members, p.plan.Members)

	steps := []struct {
		verb    []string
		targets []string
		erase   bool
	}{
		{verb: []string{"-R", "--noconfirm"}, targets: p.erases, erase: true},
		{verb: []string{"-S", "--needed", "--noconfirm"}, targets: p.installs},
	}

	ran := false
	for _, step := range steps {
		if len(step.targets) == 0 {
			continue
		}

		parser := newStepParser(sink)
		stdout := helpers.NewLineWriter(parser.line)
		stderr := helpers.NewLineWriter(parser.line)

		name, args := p.command(append(append([]string{}, step.verb...), step.targets...)...)
		runErr := p.runner.RunCommandStreaming(ctx, stdout, stderr, name, args...)
		stdout.Flush()
		stderr.Flush()

		exitCode := p.runner.GetExitCode(runErr)
		if exitCode < 0 {
			return nil, fmt.Errorf("run pacman %s: %w", step.verb[0], runErr)
		}
		if exitCode > 0 && !ran && !parser.touched() {
			return nil, fmt.Errorf("pacman %s failed: %w: %s", step.verb[0], runErr, parser.lastError())
		}
		ran = true

		if exitCode > 0 {
			for i := range final.Members {
				m := &final.Members[i]
				if (m.Code == core.ActionErase) == step.erase && !parser.done(m.Name) {
					m.Code = core.ActionFailed
				}
			}
		}
	}

	return final, nil
}

// stepParser turns one pacman transaction's output into sink events
type stepParser struct {
	mu      sync.Mutex
	sink    syspkg.EventSink
	current string
	seen    map[string]bool
	errors  []string
}

func newStepParser(sink syspkg.EventSink) *stepParser {
	return &stepParser{sink: sink, seen: make(map[string]bool)}
}

func (s *stepParser) line(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return
	}

	if strings.HasPrefix(trimmed, "error:") {
		s.errors = append(s.errors, trimmed)
		s.sink.OnError(trimmed)
		return
	}

	if m := stepLine.FindStringSubmatch(trimmed); m != nil {
		done, _ := strconv.ParseInt(m[1], 10, 64)
		total, _ := strconv.ParseInt(m[2], 10, 64)
		fields := strings.Fields(m[3])
		if code, ok := stepVerbs[fields[0]]; ok && len(fields) > 1 {
			pkg := strings.TrimSuffix(fields[1], "...")
			s.current = pkg
			s.seen[pkg] = true
			s.sink.OnPackageEvent(pkg, code)
			return
		}
		s.sink.OnProgress(s.current, done, total)
		return
	}

	s.sink.OnScriptOutput(s.current, trimmed)
}

func (s *stepParser) done(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seen[name]
}

func (s *stepParser) touched() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen) > 0
}

func (s *stepParser) lastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.errors) == 0 {
		return "no error output"
	}
	return s.errors[len(s.errors)-1]
}
