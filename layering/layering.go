// Package layering names the precedence chain that produces an effective
// fence configuration. It knows nothing about document contents; it only
// orders and labels the sources that contribute to a merge.
package layering

import "slices"

// Level identifies the precedence of a configuration source. Higher levels
// override lower levels when layering.
type Level int

const (
	// LevelUnknown guards against misconfiguration so call sites can detect
	// missing metadata.
	LevelUnknown Level = iota
	// LevelDefaults is the weakest layer: host-supplied global defaults.
	LevelDefaults
	// LevelPreset is a named, reusable configuration fragment.
	LevelPreset
	// LevelPage is the document-wide default for every block on a page.
	LevelPage
	// LevelBlock is the strongest layer: the block's own override.
	LevelBlock
)

func (l Level) String() string {
	switch l {
	case LevelDefaults:
		return "defaults"
	case LevelPreset:
		return "preset"
	case LevelPage:
		return "page"
	case LevelBlock:
		return "block"
	default:
		return "unknown"
	}
}

// ParseLevel converts a string representation into the corresponding Level.
// Returns LevelUnknown for unrecognised values.
func ParseLevel(value string) Level {
	switch value {
	case "defaults", "DEFAULTS":
		return LevelDefaults
	case "preset", "PRESET":
		return LevelPreset
	case "page", "PAGE":
		return LevelPage
	case "block", "BLOCK":
		return LevelBlock
	default:
		return LevelUnknown
	}
}

// Layer names one contributing source. Name distinguishes peers at the same
// level (for presets it is the preset name; the other levels normally use
// their level name).
type Layer struct {
	Name  string
	Level Level
}

// Identifier returns a stable slug suitable for deduplication and logging
// (e.g. "preset/teaching").
func (l Layer) Identifier() string {
	if l.Name == "" {
		return l.Level.String()
	}
	return l.Level.String() + "/" + l.Name
}

// Chain is the ordered layering sequence from strongest to weakest.
type Chain struct {
	ordered []Layer
}

// NewChain constructs a chain, dropping unknown levels and deduplicating
// layers by Identifier. Stronger levels always sort before weaker ones while
// peers keep their relative order.
func NewChain(layers ...Layer) Chain {
	filtered := make([]Layer, 0, len(layers))
	seen := map[string]struct{}{}

	for _, layer := range layers {
		if layer.Level == LevelUnknown {
			continue
		}
		id := layer.Identifier()
		if _, exists := seen[id]; exists {
			continue
		}
		seen[id] = struct{}{}
		filtered = append(filtered, layer)
	}

	slices.SortStableFunc(filtered, func(a, b Layer) int {
		if a.Level == b.Level {
			return 0
		}
		if a.Level > b.Level {
			return -1
		}
		return 1
	})

	return Chain{ordered: filtered}
}

// Ordered returns the layering sequence from strongest (index 0) to weakest.
func (c Chain) Ordered() []Layer {
	out := make([]Layer, len(c.ordered))
	copy(out, c.ordered)
	return out
}

// Len returns the number of layers in the chain.
func (c Chain) Len() int {
	return len(c.ordered)
}

// Strongest returns the first layer in the chain (zero layer if empty).
func (c Chain) Strongest() Layer {
	if len(c.ordered) == 0 {
		return Layer{}
	}
	return c.ordered[0]
}

// Weakest returns the final layer in the chain (zero layer if empty).
func (c Chain) Weakest() Layer {
	if len(c.ordered) == 0 {
		return Layer{}
	}
	return c.ordered[len(c.ordered)-1]
}
