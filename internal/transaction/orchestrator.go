package transaction

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/quantmind-br/pkgtx/internal/core"
	"github.com/quantmind-br/pkgtx/internal/security"
	"github.com/quantmind-br/pkgtx/internal/syspkg"
	"github.com/rs/zerolog"
)

// State is the position of an orchestrator in its single-use lifecycle
type State int

const (
	StateIdle State = iota
	StateLocked
	StateStaged
	StateEmptyPlan
	StatePlanned
	StateExecuting
	StateCompleted
	StatePartialFailure
	StateUnlocked
)

var stateNames = [...]string{
	StateIdle:           "idle",
	StateLocked:         "locked",
	StateStaged:         "staged",
	StateEmptyPlan:      "empty-plan",
	StatePlanned:        "planned",
	StateExecuting:      "executing",
	StateCompleted:      "completed",
	StatePartialFailure: "partial-failure",
	StateUnlocked:       "unlocked",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Orchestrator runs one install/erase transaction against the host package manager
type Orchestrator struct {
	provider    syspkg.Provider
	logger      *zerolog.Logger
	state       State
	transitions []State
	used        bool
}

// NewOrchestrator creates an orchestrator bound to provider
func NewOrchestrator(provider syspkg.Provider, logger *zerolog.Logger) *Orchestrator {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Orchestrator{
		provider:    provider,
		logger:      logger,
		state:       StateIdle,
		transitions: []State{StateIdle},
	}
}

// State returns the current lifecycle state
func (o *Orchestrator) State() State {
	return o.state
}

// Transitions returns every state visited so far, in order
func (o *Orchestrator) Transitions() []State {
	return append([]State(nil), o.transitions...)
}

func (o *Orchestrator) setState(s State) {
	o.state = s
	o.transitions = append(o.transitions, s)
}

// Run acquires the package database lock, stages requests, resolves and executes
// the plan, and returns the collected outcomes. The lock is released and plan state
// discarded before Run returns, on every path including a panic.
func (o *Orchestrator) Run(ctx context.Context, requests []core.PackageRequest) (result *core.Result, err error) {
	if o.used {
		return nil, ErrAlreadyRun
	}
	o.used = true

	guard := NewGuard(o.logger)
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = &UnexpectedError{Value: r, Stack: debug.Stack()}
		}
		if relErr := guard.Release(); relErr != nil {
			if err == nil {
				result = nil
				err = relErr
			} else {
				o.logger.Error().Err(relErr).Msg("release after failed transaction")
			}
		}
		o.setState(StateUnlocked)
	}()

	if err := o.provider.Lock(ctx); err != nil {
		return nil, fmt.Errorf("acquire package database lock: %w", err)
	}
	guard.Push("unlock", o.provider.Unlock)
	guard.Push("discard plan", func() error {
		o.provider.Reset()
		return nil
	})
	o.setState(StateLocked)

	if err := o.Stage(requests); err != nil {
		return nil, err
	}

	status, err := o.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	if status == core.PlanNothingToDo {
		return &core.Result{Status: status, Outcomes: []core.PackageOutcome{}}, nil
	}

	collector := NewResultCollector(o.logger)
	if err := o.Execute(ctx, collector); err != nil {
		return nil, err
	}

	return &core.Result{Status: status, Outcomes: collector.Outcomes()}, nil
}

// Stage forwards erase requests and then install requests to the host, each in
// request order
func (o *Orchestrator) Stage(requests []core.PackageRequest) error {
	if o.state != StateLocked {
		return fmt.Errorf("%w: stage while %s", ErrInvalidState, o.state)
	}

	var installs, erases []core.PackageRequest
	for _, req := range requests {
		switch req.Kind {
		case core.RequestInstall:
			installs = append(installs, req)
		case core.RequestErase:
			erases = append(erases, req)
		default:
			return fmt.Errorf("stage %s: unknown request kind %q", req, req.Kind)
		}
	}

	for _, req := range erases {
		req = o.stageable(req)
		o.logger.Debug().Str("package", req.Name).Str("version", req.Version).Msg("staging erase")
		if err := o.provider.StageErase(req.Name, req.Version); err != nil {
			return fmt.Errorf("stage erase %s: %w", req, err)
		}
	}
	for _, req := range installs {
		req = o.stageable(req)
		o.logger.Debug().Str("package", req.Name).Str("version", req.Version).Msg("staging install")
		if err := o.provider.StageInstall(req.Name, req.Version); err != nil {
			return fmt.Errorf("stage install %s: %w", req, err)
		}
	}

	o.setState(StateStaged)
	return nil
}

// stageable drops a version the host cannot be given, so a malformed
// specifier stages as a name-only request instead of failing the batch
func (o *Orchestrator) stageable(req core.PackageRequest) core.PackageRequest {
	if req.Version == "" {
		return req
	}
	if err := security.ValidateVersion(req.Version); err != nil {
		o.logger.Warn().
			Err(err).
			Str("package", req.Name).
			Str("version", req.Version).
			Msg("ignoring malformed version, staging by name")
		req.Version = ""
	}
	return req
}

// Resolve asks the host to build a plan from everything staged.
// Status 0 means nothing to do, 2 means ready; anything else is a ResolutionError.
func (o *Orchestrator) Resolve(ctx context.Context) (core.PlanStatus, error) {
	if o.state != StateStaged {
		return 0, fmt.Errorf("%w: resolve while %s", ErrInvalidState, o.state)
	}

	status, diagnostics, err := o.provider.BuildPlan(ctx)
	if err != nil {
		return status, fmt.Errorf("build transaction plan: %w", err)
	}

	switch status {
	case core.PlanNothingToDo:
		o.logger.Info().Msg("nothing to do")
		o.setState(StateEmptyPlan)
	case core.PlanReady:
		o.setState(StatePlanned)
	default:
		return status, &ResolutionError{Status: status, Diagnostics: diagnostics}
	}
	return status, nil
}

// Execute commits the resolved plan with listener as the event sink. If any member
// ends in a failed state the whole transaction is reported as a PartialFailureError
// and the listener is not told about completion.
func (o *Orchestrator) Execute(ctx context.Context, listener CompletionListener) error {
	if o.state != StatePlanned {
		return fmt.Errorf("%w: execute while %s", ErrInvalidState, o.state)
	}
	o.setState(StateExecuting)

	// Once committing starts the host runs to completion; cancellation only
	// applies to the lock wait and plan resolution.
	plan, err := o.provider.Commit(context.WithoutCancel(ctx), listener)
	if err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	if failed := plan.Failed(); len(failed) > 0 {
		o.setState(StatePartialFailure)
		return &PartialFailureError{Failed: failed}
	}

	listener.OnTransactionComplete(plan)
	o.setState(StateCompleted)
	return nil
}
