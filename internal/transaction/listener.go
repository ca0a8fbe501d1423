package transaction

import (
	"strings"

	"github.com/quantmind-br/pkgtx/internal/core"
	"github.com/quantmind-br/pkgtx/internal/syspkg"
	"github.com/rs/zerolog"
)

// LogListener forwards informational transaction events to the log.
// Progress ticks are ignored.
type LogListener struct {
	logger *zerolog.Logger
}

var _ syspkg.EventSink = (*LogListener)(nil)

// NewLogListener creates a listener that logs to logger
func NewLogListener(logger *zerolog.Logger) *LogListener {
	return &LogListener{logger: logger}
}

func (l *LogListener) infoEnabled() bool {
	if l.logger == nil {
		return false
	}
	return l.logger.GetLevel() <= zerolog.InfoLevel && zerolog.GlobalLevel() <= zerolog.InfoLevel
}

// OnProgress implements syspkg.EventSink
func (l *LogListener) OnProgress(string, int64, int64) {}

// OnScriptOutput logs each non-blank line of scriptlet output
func (l *LogListener) OnScriptOutput(pkg, text string) {
	if !l.infoEnabled() {
		return
	}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		l.logger.Info().Str("package", pkg).Msg(line)
	}
}

// OnError logs error text from the host. The host decides whether it is fatal.
func (l *LogListener) OnError(text string) {
	if l.logger == nil {
		return
	}
	l.logger.Error().Msg(strings.TrimSpace(text))
}

// OnPackageEvent logs a per-package lifecycle event
func (l *LogListener) OnPackageEvent(pkg string, code core.ActionCode) {
	if !l.infoEnabled() {
		return
	}
	kind := Classify(code)
	l.logger.Info().
		Str("package", pkg).
		Str("action_code", string(code)).
		Str("action_type", string(kind)).
		Msgf("%s: %s", kind, pkg)
}
