// Package hydrate converts loosely keyed configuration payloads into
// strongly typed values via a JSON round-trip, with hooks for normalising
// the payload before decoding and validating the result after.
package hydrate

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Context carries identifiers tied to a payload, used only for error
// messages.
type Context struct {
	// Origin names the payload source: a block path, a preset name, or
	// whatever label the caller has.
	Origin string
}

// PreHook lets callers mutate or normalise the payload before decoding.
// Returning a nil map keeps the current payload.
type PreHook func(Context, map[string]any) (map[string]any, error)

// PostHook lets callers adjust or validate the hydrated value after
// decoding.
type PostHook[T any] func(Context, *T) error

// Option configures a Decoder instance.
type Option[T any] func(*Decoder[T])

// WithPreHook applies hook prior to decoding. Hooks run in registration
// order.
func WithPreHook[T any](hook PreHook) Option[T] {
	return func(d *Decoder[T]) {
		d.preHooks = append(d.preHooks, hook)
	}
}

// WithPostHook applies hook after decoding completes.
func WithPostHook[T any](hook PostHook[T]) Option[T] {
	return func(d *Decoder[T]) {
		d.postHooks = append(d.postHooks, hook)
	}
}

// WithStrictFields makes decoding fail on payload keys the target type does
// not declare.
func WithStrictFields[T any]() Option[T] {
	return func(d *Decoder[T]) {
		d.strict = true
	}
}

// Decoder hydrates map payloads into values of type T.
type Decoder[T any] struct {
	preHooks  []PreHook
	postHooks []PostHook[T]
	strict    bool
}

// NewDecoder constructs a Decoder from the supplied options.
func NewDecoder[T any](opts ...Option[T]) *Decoder[T] {
	d := &Decoder[T]{}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Decode converts payload into T, applying configured hooks. The payload is
// cloned first so hooks never mutate the caller's map.
func (d *Decoder[T]) Decode(ctx Context, payload map[string]any) (T, error) {
	var zero T

	if payload == nil {
		return zero, fmt.Errorf("hydrate: payload is nil for %q", ctx.Origin)
	}

	current, err := clonePayload(payload)
	if err != nil {
		return zero, fmt.Errorf("hydrate: clone payload for %q: %w", ctx.Origin, err)
	}

	for _, hook := range d.preHooks {
		if hook == nil {
			continue
		}
		next, err := hook(ctx, current)
		if err != nil {
			return zero, fmt.Errorf("hydrate: pre-hook for %q failed: %w", ctx.Origin, err)
		}
		if next != nil {
			current = next
		}
	}

	encoded, err := json.Marshal(current)
	if err != nil {
		return zero, fmt.Errorf("hydrate: encode payload for %q: %w", ctx.Origin, err)
	}

	dec := json.NewDecoder(bytes.NewReader(encoded))
	if d.strict {
		dec.DisallowUnknownFields()
	}
	var result T
	if err := dec.Decode(&result); err != nil {
		return zero, fmt.Errorf("hydrate: decode payload for %q: %w", ctx.Origin, err)
	}

	for _, hook := range d.postHooks {
		if hook == nil {
			continue
		}
		if err := hook(ctx, &result); err != nil {
			return zero, fmt.Errorf("hydrate: post-hook for %q failed: %w", ctx.Origin, err)
		}
	}

	return result, nil
}

func clonePayload(payload map[string]any) (map[string]any, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	var clone map[string]any
	if err := json.Unmarshal(encoded, &clone); err != nil {
		return nil, err
	}
	return clone, nil
}
