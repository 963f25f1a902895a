// Package hook fans resolution events out to caller-registered observers.
// Hooks are observers only: a failing hook never alters resolution results.
package hook

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Actions emitted by the resolver.
const (
	ActionPresetApplied = "preset.applied"
	ActionPresetMissing = "preset.missing"
	ActionParseFailed   = "preset.parse_failed"
	ActionResolved      = "resolved"
)

// Event describes one resolution occurrence that can be fanned out to hooks.
// Identifiers are stringly-typed to avoid coupling call sites to document
// types.
type Event struct {
	Action     string
	Preset     string
	Block      string
	Metadata   map[string]any
	OccurredAt time.Time
}

// Hook receives normalised resolution events.
type Hook interface {
	Notify(ctx context.Context, event Event) error
}

// HookFunc allows plain functions to satisfy Hook.
type HookFunc func(ctx context.Context, event Event) error

// Notify dispatches to the underlying function.
func (fn HookFunc) Notify(ctx context.Context, event Event) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, event)
}

// Hooks fans out events to zero or more hooks.
type Hooks []Hook

// Enabled reports whether there are any hooks to notify.
func (h Hooks) Enabled() bool {
	return len(h) > 0
}

// Notify forwards the event to all hooks, returning a joined error if any
// fail. It normalises the event first and short-circuits when the action is
// missing.
func (h Hooks) Notify(ctx context.Context, event Event) error {
	if len(h) == 0 {
		return nil
	}

	normalized := NormalizeEvent(event)
	if normalized.Action == "" {
		return nil
	}

	if ctx == nil {
		ctx = context.Background()
	}

	var errs []error
	for _, hk := range h {
		if hk == nil {
			continue
		}
		if err := hk.Notify(ctx, normalized); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}

// NormalizeEvent trims identifier whitespace and stamps OccurredAt when the
// caller left it zero.
func NormalizeEvent(event Event) Event {
	event.Action = strings.TrimSpace(event.Action)
	event.Preset = strings.TrimSpace(event.Preset)
	event.Block = strings.TrimSpace(event.Block)
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	return event
}
