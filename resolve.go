package fence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/RachelAmbler/ultra-code-fence/layering"
	"github.com/RachelAmbler/ultra-code-fence/pkg/hook"
)

// ErrNoParser indicates a preset was referenced but the resolver has no
// parser to turn its raw source into a Document.
var ErrNoParser = errors.New("fence: no parser configured")

// PresetSource supplies raw preset sources by name. The registry is owned by
// the caller; the resolver only reads it.
type PresetSource interface {
	Lookup(name string) (string, bool)
}

// Registry is the simplest preset source: an in-memory name → raw source
// map.
type Registry map[string]string

// Lookup implements PresetSource.
func (r Registry) Lookup(name string) (string, bool) {
	raw, ok := r[name]
	return raw, ok
}

// Parser turns raw configuration text into a Document. Syntax errors are the
// parser's to report; the resolver only degrades on them.
type Parser interface {
	Parse(raw string) (Document, error)
}

// ParserFunc adapts a function to Parser.
type ParserFunc func(raw string) (Document, error)

// Parse implements Parser.
func (f ParserFunc) Parse(raw string) (Document, error) {
	return f(raw)
}

// ParseCache stores parsed preset fragments keyed by their raw source, so a
// registry edit naturally misses. The cache is caller-owned: the resolver
// consults it when supplied but never keeps parsed fragments in its own
// state, which keeps one document's edits from leaking into another's
// resolution.
type ParseCache interface {
	Get(key string) (Document, bool)
	Set(key string, doc Document)
}

// ResolverOption configures a Resolver.
type ResolverOption func(*resolverConfig)

type resolverConfig struct {
	parser   Parser
	cache    ParseCache
	logger   ResolveLogger
	hooks    hook.Hooks
	defaults *Document
}

// WithParser sets the parser used to lazily parse preset raw sources.
func WithParser(p Parser) ResolverOption {
	return func(cfg *resolverConfig) {
		cfg.parser = p
	}
}

// WithParseCache registers a caller-owned cache for parsed preset fragments.
func WithParseCache(cache ParseCache) ResolverOption {
	return func(cfg *resolverConfig) {
		cfg.cache = cache
	}
}

// WithHooks attaches resolution event hooks. Hook failures are logged, never
// surfaced: observers must not break rendering.
func WithHooks(hooks hook.Hooks) ResolverOption {
	return func(cfg *resolverConfig) {
		cfg.hooks = hooks
	}
}

// WithDefaults supplies host-wide defaults as an explicit fourth, weakest
// layer. Without this option the resolver composes at most three layers.
func WithDefaults(defaults Document) ResolverOption {
	return func(cfg *resolverConfig) {
		d := defaults.Clone()
		cfg.defaults = &d
	}
}

// Resolver composes the layered configuration for one code block. It holds
// no mutable state and is safe for concurrent use.
type Resolver struct {
	cfg resolverConfig
}

// NewResolver constructs a Resolver from the supplied options.
func NewResolver(opts ...ResolverOption) *Resolver {
	cfg := resolverConfig{logger: noopResolveLogger{}}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return &Resolver{cfg: cfg}
}

// ResolvePreset resolves block against presets and an optional page default
// using a one-shot resolver. It is the package-level convenience form of
// Resolver.Resolve.
func ResolvePreset(block Document, presets Registry, page *Document, opts ...ResolverOption) Document {
	return NewResolver(opts...).Resolve(block, presets, page)
}

// Resolve produces the effective configuration for a block. Priority, lowest
// to highest: defaults < preset < page < block. The block-level preset name
// wins over the page-level one; an unknown or unparsable preset degrades to
// an empty base layer rather than failing, so a stale preset reference never
// breaks a block's own configuration. The Meta.Preset directive is stripped
// from every layer and from the result.
//
// Resolve is idempotent on its own output: a resolved document carries no
// preset directive, so resolving it again (without a page) returns it
// unchanged.
func (r *Resolver) Resolve(block Document, presets PresetSource, page *Document) Document {
	doc, _ := r.resolve(block, presets, page)
	return doc
}

// ResolveTraced is Resolve plus provenance for the layers that took part.
func (r *Resolver) ResolveTraced(block Document, presets PresetSource, page *Document) (Document, Trace) {
	return r.resolve(block, presets, page)
}

func (r *Resolver) resolve(block Document, presets PresetSource, page *Document) (Document, Trace) {
	start := time.Now()
	blockLabel := documentLabel(block)

	name := presetName(block)
	if name == "" && page != nil {
		name = presetName(*page)
	}

	trace := newTrace(name)

	// Fast path: nothing to layer underneath the block.
	if name == "" && page == nil && r.cfg.defaults == nil {
		trace.record(layering.Layer{Level: layering.LevelBlock}, true)
		trace.Duration = time.Since(start)
		r.notify(EventResolved, "", blockLabel, nil, trace.Duration)
		return block, trace
	}

	base := Document{}
	applied := false
	if name != "" && presets != nil {
		raw, ok := presets.Lookup(name)
		if !ok {
			r.notify(EventPresetMissing, name, blockLabel, nil, 0)
		} else if parsed, err := r.parsePreset(name, raw); err != nil {
			r.notify(EventParseFailed, name, blockLabel, err, 0)
		} else {
			base = parsed
			applied = true
			r.notify(EventPresetApplied, name, blockLabel, nil, 0)
		}
	} else if name != "" {
		r.notify(EventPresetMissing, name, blockLabel, nil, 0)
	}

	// Presets must not chain: a fragment declaring its own preset reference
	// contributes nothing to resolution.
	result := stripPresetDirective(base)
	if r.cfg.defaults != nil {
		result = Merge(stripPresetDirective(*r.cfg.defaults), result)
	}
	if page != nil {
		result = Merge(result, stripPresetDirective(*page))
	}
	result = Merge(result, stripPresetDirective(block))
	result = stripPresetDirective(result)

	chain := layering.NewChain(
		layering.Layer{Level: layering.LevelDefaults},
		layering.Layer{Level: layering.LevelPreset, Name: name},
		layering.Layer{Level: layering.LevelPage},
		layering.Layer{Level: layering.LevelBlock},
	)
	present := map[layering.Level]bool{
		layering.LevelDefaults: r.cfg.defaults != nil,
		layering.LevelPreset:   applied,
		layering.LevelPage:     page != nil,
		layering.LevelBlock:    true,
	}
	for _, layer := range chain.Ordered() {
		trace.record(layer, present[layer.Level])
	}

	trace.Duration = time.Since(start)
	r.notify(EventResolved, name, blockLabel, nil, trace.Duration)
	return result, trace
}

func (r *Resolver) parsePreset(name, raw string) (Document, error) {
	if r.cfg.cache != nil {
		if doc, ok := r.cfg.cache.Get(raw); ok {
			return doc.Clone(), nil
		}
	}
	if r.cfg.parser == nil {
		return Document{}, ErrNoParser
	}
	doc, err := r.cfg.parser.Parse(raw)
	if err != nil {
		return Document{}, fmt.Errorf("fence: parse preset %q: %w", name, err)
	}
	if r.cfg.cache != nil {
		r.cfg.cache.Set(raw, doc.Clone())
	}
	return doc, nil
}

func (r *Resolver) notify(action, preset, block string, err error, duration time.Duration) {
	r.cfg.logger.LogResolve(ResolveEvent{
		Action:   action,
		Preset:   preset,
		Block:    block,
		Duration: duration,
		Err:      err,
	})
	if !r.cfg.hooks.Enabled() {
		return
	}
	event := hook.Event{Action: action, Preset: preset, Block: block}
	if err != nil {
		event.Metadata = map[string]any{"error": err.Error()}
	}
	if nerr := r.cfg.hooks.Notify(context.Background(), event); nerr != nil {
		r.cfg.logger.LogResolve(ResolveEvent{Action: "hook.failed", Preset: preset, Block: block, Err: nerr})
	}
}

func presetName(doc Document) string {
	if doc.Meta == nil || doc.Meta.Preset == nil {
		return ""
	}
	return *doc.Meta.Preset
}

func documentLabel(doc Document) string {
	if doc.Meta == nil {
		return ""
	}
	if doc.Meta.Path != nil {
		return *doc.Meta.Path
	}
	if doc.Meta.Title != nil {
		return *doc.Meta.Title
	}
	return ""
}

// stripPresetDirective returns a copy of doc without the Meta.Preset
// directive. The Meta section itself stays present when set, since its other
// fields remain part of the configuration.
func stripPresetDirective(doc Document) Document {
	out := doc.Clone()
	if out.Meta != nil {
		out.Meta.Preset = nil
	}
	return out
}
