package fence

import "sort"

// RenderTarget distinguishes the surface a block is being rendered for. The
// print-context mode override participates only for TargetPrint.
type RenderTarget int

const (
	// TargetScreen is the normal interactive rendering path.
	TargetScreen RenderTarget = iota
	// TargetPrint is the print/export rendering path.
	TargetPrint
)

// LineIndex maps a line number to the entries targeting it. Buckets keep the
// relative order of the source entries list, so downstream numbering is
// stable and reproducible. The index is derived and ephemeral: build it
// fresh per render, never persist it.
type LineIndex map[int][]AnnotationEntry

// GroupByLine builds a line index from entries. Iteration is single-pass in
// list order; an entry targeting several lines lands in each targeted
// bucket, once per line, in the target set's own order. Lines outside the
// block's actual range simply produce buckets nobody asks for — a missing
// bucket means "nothing to inject here", never an error.
func GroupByLine(entries []AnnotationEntry) LineIndex {
	idx := make(LineIndex)
	for _, entry := range entries {
		for _, line := range entry.Lines {
			idx[line] = append(idx[line], entry)
		}
	}
	return idx
}

// Entries returns the bucket for line, nil when no entry targets it.
func (idx LineIndex) Entries(line int) []AnnotationEntry {
	return idx[line]
}

// ShouldReplace reports whether any entry targeting line wants to replace
// the line's own content rather than supplement it. A line with no entries
// returns false.
func (idx LineIndex) ShouldReplace(line int) bool {
	for _, entry := range idx[line] {
		if entry.Replace {
			return true
		}
	}
	return false
}

// Lines returns the indexed line numbers in ascending order, for renderers
// that want deterministic iteration.
func (idx LineIndex) Lines() []int {
	out := make([]int, 0, len(idx))
	for line := range idx {
		out = append(out, line)
	}
	sort.Ints(out)
	return out
}

// LineIndex builds the line index for the block's entries. Safe on a nil
// receiver.
func (a *Annotations) LineIndex() LineIndex {
	if a == nil {
		return LineIndex{}
	}
	return GroupByLine(a.Entries)
}

// EffectiveMode resolves the display mode for one entry: the entry's own
// override wins, then the block's print-context mode (print target only),
// then the block default, then DefaultMode.
func (a *Annotations) EffectiveMode(entry AnnotationEntry, target RenderTarget) DisplayMode {
	if entry.Mode != nil {
		return *entry.Mode
	}
	if a != nil {
		if target == TargetPrint && a.PrintMode != nil {
			return *a.PrintMode
		}
		if a.Mode != nil {
			return *a.Mode
		}
	}
	return DefaultMode
}

// FilterByMode returns the entries whose effective display mode equals mode
// on the screen target. The filter is stable: survivors keep their relative
// order from the entries list.
func (a *Annotations) FilterByMode(mode DisplayMode) []AnnotationEntry {
	return a.FilterByModeFor(mode, TargetScreen)
}

// FilterByModeFor is FilterByMode for an explicit render target.
func (a *Annotations) FilterByModeFor(mode DisplayMode, target RenderTarget) []AnnotationEntry {
	if a == nil {
		return nil
	}
	var out []AnnotationEntry
	for _, entry := range a.Entries {
		if a.EffectiveMode(entry, target) == mode {
			out = append(out, entry)
		}
	}
	return out
}
