package fence

import "time"

// Resolve event actions. They match the actions emitted through hooks so a
// single vocabulary covers both channels.
const (
	EventPresetApplied = "preset.applied"
	EventPresetMissing = "preset.missing"
	EventParseFailed   = "preset.parse_failed"
	EventResolved      = "resolved"
)

// ResolveEvent describes one step of a resolution for logging.
type ResolveEvent struct {
	Action   string
	Preset   string
	Block    string
	Duration time.Duration
	Err      error
}

// ResolveLogger records resolver events. Implementations adapt whatever
// logging backend the host uses.
type ResolveLogger interface {
	LogResolve(ResolveEvent)
}

// ResolveLoggerFunc adapts a function to ResolveLogger.
type ResolveLoggerFunc func(ResolveEvent)

// LogResolve implements ResolveLogger.
func (f ResolveLoggerFunc) LogResolve(event ResolveEvent) {
	if f != nil {
		f(event)
	}
}

type noopResolveLogger struct{}

func (noopResolveLogger) LogResolve(ResolveEvent) {}

// WithResolveLogger attaches a resolve logger to the resolver.
func WithResolveLogger(logger ResolveLogger) ResolverOption {
	return func(cfg *resolverConfig) {
		if logger == nil {
			cfg.logger = noopResolveLogger{}
			return
		}
		cfg.logger = logger
	}
}
