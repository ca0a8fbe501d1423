package transaction

import (
	"github.com/quantmind-br/pkgtx/internal/core"
	"github.com/quantmind-br/pkgtx/internal/syspkg"
	"github.com/rs/zerolog"
)

// CompletionListener is an event sink that is also told about the final plan
type CompletionListener interface {
	syspkg.EventSink
	OnTransactionComplete(plan *syspkg.Plan)
}

// ResultCollector logs events like LogListener and builds one outcome per plan
// member when the transaction completes
type ResultCollector struct {
	*LogListener
	outcomes []core.PackageOutcome
	done     bool
}

var _ CompletionListener = (*ResultCollector)(nil)

// NewResultCollector creates a collector that logs to logger
func NewResultCollector(logger *zerolog.Logger) *ResultCollector {
	return &ResultCollector{LogListener: NewLogListener(logger)}
}

// OnTransactionComplete walks the plan in host order. Only the first call has effect.
func (c *ResultCollector) OnTransactionComplete(plan *syspkg.Plan) {
	if c.done {
		if c.logger != nil {
			c.logger.Warn().Msg("transaction already collected, ignoring repeated completion")
		}
		return
	}
	c.done = true

	c.outcomes = make([]core.PackageOutcome, 0)
	if plan == nil {
		return
	}
	for _, m := range plan.Members {
		c.outcomes = append(c.outcomes, outcomeFor(m))
	}
}

// Outcomes returns the collected outcomes, or nil before completion
func (c *ResultCollector) Outcomes() []core.PackageOutcome {
	return c.outcomes
}

// Completed reports whether OnTransactionComplete has run
func (c *ResultCollector) Completed() bool {
	return c.done
}

func outcomeFor(m syspkg.Member) core.PackageOutcome {
	if m.Package == nil {
		return core.PackageOutcome{
			Name:       m.Name,
			ActionType: Classify(m.Code),
		}
	}
	return core.PackageOutcome{
		Name:       m.Package.Name,
		Epoch:      m.Package.Epoch,
		Version:    m.Package.Version,
		Release:    m.Package.Release,
		Arch:       m.Package.Arch,
		Repo:       m.Package.Repo,
		ActionCode: m.Code,
		ActionType: Classify(m.Code),
	}
}
