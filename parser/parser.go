// Package parser turns raw fence configuration text (YAML) into Documents.
// It is the upstream collaborator of the resolution engine: all syntax and
// validation errors are reported here, so the engine downstream can assume
// well-formed Documents.
package parser

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	fence "github.com/RachelAmbler/ultra-code-fence"
	"github.com/RachelAmbler/ultra-code-fence/internal/hydrate"
)

// Option configures a Parser.
type Option func(*Parser)

// WithAliases registers extra key aliases on top of the built-in table.
// Keys are "section.alias" paths (e.g. "display.stripes"), values the
// canonical key name.
func WithAliases(extra map[string]string) Option {
	return func(p *Parser) {
		for path, canonical := range extra {
			p.aliases[path] = canonical
		}
	}
}

// WithStrict turns unrecognised-key warnings into parse errors.
func WithStrict() Option {
	return func(p *Parser) {
		p.strict = true
	}
}

// Parser parses raw configuration text. It satisfies the engine's Parser
// interface and is safe for concurrent use once constructed.
type Parser struct {
	aliases map[string]string
	strict  bool
	decoder *hydrate.Decoder[fence.Document]
}

// New constructs a Parser.
func New(opts ...Option) *Parser {
	p := &Parser{aliases: map[string]string{}}
	for path, canonical := range defaultAliases {
		p.aliases[path] = canonical
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	p.decoder = hydrate.NewDecoder(
		hydrate.WithPreHook[fence.Document](func(_ hydrate.Context, payload map[string]any) (map[string]any, error) {
			return p.normalize(payload), nil
		}),
		hydrate.WithPostHook[fence.Document](func(_ hydrate.Context, doc *fence.Document) error {
			return validateDocument(doc)
		}),
	)
	return p
}

// Parse converts raw into a Document, discarding warnings.
func (p *Parser) Parse(raw string) (fence.Document, error) {
	doc, _, err := p.ParseWithWarnings(raw)
	return doc, err
}

// ParseWithWarnings converts raw into a Document and reports unrecognised
// keys. Warnings are non-fatal unless the parser is strict; an empty source
// yields an empty Document.
func (p *Parser) ParseWithWarnings(raw string) (fence.Document, []string, error) {
	var payload map[string]any
	if err := yaml.Unmarshal([]byte(raw), &payload); err != nil {
		return fence.Document{}, nil, fmt.Errorf("parser: invalid configuration: %w", err)
	}
	if payload == nil {
		return fence.Document{}, nil, nil
	}

	normalized := p.normalize(payload)
	warnings := collectWarnings(normalized)
	if p.strict && len(warnings) > 0 {
		return fence.Document{}, warnings, fmt.Errorf("parser: %s", strings.Join(warnings, "; "))
	}

	doc, err := p.decoder.Decode(hydrate.Context{Origin: origin(normalized)}, normalized)
	if err != nil {
		return fence.Document{}, warnings, fmt.Errorf("parser: %w", err)
	}
	return doc, warnings, nil
}

// defaultAliases maps accepted spellings to canonical keys, per path. Entry
// keys live under the synthetic "entry" section.
var defaultAliases = map[string]string{
	"notes":                  "annotations",
	"display.line-numbers":   "lineNumbers",
	"display.linenos":        "lineNumbers",
	"display.lang":           "language",
	"display.copy-join":      "copyJoin",
	"filter.by-lines":        "byLines",
	"filter.by-marks":        "byMarks",
	"annotations.print-mode": "printMode",
	"entry.line":             "lines",
	"entry.type":             "kind",
}

func (p *Parser) normalize(payload map[string]any) map[string]any {
	out := p.renameKeys(payload, "")
	for _, section := range []string{"display", "filter", "annotations"} {
		if sub, ok := out[section].(map[string]any); ok {
			out[section] = p.renameKeys(sub, section)
		}
	}
	if annotations, ok := out["annotations"].(map[string]any); ok {
		if entries, ok := annotations["entries"].([]any); ok {
			for i, raw := range entries {
				entry, ok := raw.(map[string]any)
				if !ok {
					continue
				}
				entry = p.renameKeys(entry, "entry")
				normalizeEntryLines(entry)
				entries[i] = entry
			}
		}
	}
	return out
}

func (p *Parser) renameKeys(section map[string]any, path string) map[string]any {
	out := make(map[string]any, len(section))
	for key, value := range section {
		lookup := key
		if path != "" {
			lookup = path + "." + key
		}
		if canonical, ok := p.aliases[lookup]; ok {
			key = canonical
		}
		out[key] = value
	}
	return out
}

// normalizeEntryLines widens a scalar line target into a one-element list so
// `line: 3` and `lines: [3]` decode identically.
func normalizeEntryLines(entry map[string]any) {
	switch v := entry["lines"].(type) {
	case int:
		entry["lines"] = []any{v}
	case float64:
		entry["lines"] = []any{v}
	}
}

var (
	knownTop         = keySet("meta", "display", "filter", "annotations", "prompt", "styles")
	knownMeta        = keySet("title", "description", "path", "preset")
	knownDisplay     = keySet("lineNumbers", "zebra", "fold", "scroll", "style", "language", "copyJoin")
	knownFilter      = keySet("byLines", "byMarks")
	knownAnnotations = keySet("mode", "printMode", "style", "entries")
	knownEntry       = keySet("lines", "text", "kind", "mode", "replace")
	knownStyles      = keySet("prompt", "command", "output")
)

// collectWarnings reports keys the schema does not recognise. The filter and
// styles sub-maps are free-form, so only their section-level keys are
// checked.
func collectWarnings(payload map[string]any) []string {
	var warnings []string

	flag := func(section map[string]any, known map[string]struct{}, prefix string) {
		for key := range section {
			if _, ok := known[key]; !ok {
				warnings = append(warnings, fmt.Sprintf("unrecognized key %q", prefix+key))
			}
		}
	}

	flag(payload, knownTop, "")
	if meta, ok := payload["meta"].(map[string]any); ok {
		flag(meta, knownMeta, "meta.")
	}
	if display, ok := payload["display"].(map[string]any); ok {
		flag(display, knownDisplay, "display.")
	}
	if filter, ok := payload["filter"].(map[string]any); ok {
		flag(filter, knownFilter, "filter.")
	}
	if styles, ok := payload["styles"].(map[string]any); ok {
		flag(styles, knownStyles, "styles.")
	}
	if annotations, ok := payload["annotations"].(map[string]any); ok {
		flag(annotations, knownAnnotations, "annotations.")
		if entries, ok := annotations["entries"].([]any); ok {
			for i, raw := range entries {
				if entry, ok := raw.(map[string]any); ok {
					flag(entry, knownEntry, fmt.Sprintf("annotations.entries[%d].", i))
				}
			}
		}
	}

	sort.Strings(warnings)
	return warnings
}

func origin(payload map[string]any) string {
	if meta, ok := payload["meta"].(map[string]any); ok {
		if path, ok := meta["path"].(string); ok && path != "" {
			return path
		}
		if title, ok := meta["title"].(string); ok && title != "" {
			return title
		}
	}
	return "config"
}

func keySet(keys ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		out[key] = struct{}{}
	}
	return out
}
