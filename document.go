// Package fence resolves layered code-fence configuration into a single
// effective document and routes per-line annotations for rendering.
//
// A Document may arrive fully or partially specified. Fields left unset are
// first-class: a nil pointer, map, or slice means "inherit from a weaker
// layer", while a non-nil empty value means the layer asserts emptiness.
// Merge, Resolver, and the annotation grouping helpers all preserve that
// distinction.
package fence

// DisplayMode routes an annotation entry to one of the mutually distinct
// presentation surfaces.
type DisplayMode string

const (
	// ModeInline renders the annotation inside the line itself.
	ModeInline DisplayMode = "inline"
	// ModeFootnote renders the annotation below the block, numbered.
	ModeFootnote DisplayMode = "footnote"
	// ModePopover renders the annotation behind a per-line trigger.
	ModePopover DisplayMode = "popover"
)

// DefaultMode is the surface used when neither an entry nor its block names
// one.
const DefaultMode = ModePopover

// Document is a resolved or partially specified fence configuration. Every
// section is optional; nil sections contribute nothing during a merge.
type Document struct {
	Meta        *Meta         `json:"meta,omitempty" yaml:"meta,omitempty"`
	Display     *Display      `json:"display,omitempty" yaml:"display,omitempty"`
	Filter      *Filter       `json:"filter,omitempty" yaml:"filter,omitempty"`
	Annotations *Annotations  `json:"annotations,omitempty" yaml:"annotations,omitempty"`
	Prompt      *string       `json:"prompt,omitempty" yaml:"prompt,omitempty"`
	Styles      *StyledTriple `json:"styles,omitempty" yaml:"styles,omitempty"`
}

// Meta carries descriptive fields. Preset is a resolution directive naming
// the fragment to layer underneath this document; the resolver strips it and
// it never appears on an effective configuration.
type Meta struct {
	Title       *string `json:"title,omitempty" yaml:"title,omitempty"`
	Description *string `json:"description,omitempty" yaml:"description,omitempty"`
	Path        *string `json:"path,omitempty" yaml:"path,omitempty"`
	Preset      *string `json:"preset,omitempty" yaml:"preset,omitempty"`
}

// Display holds per-block presentation toggles. Keys are independent; there
// are no cross-key invariants.
type Display struct {
	LineNumbers *bool   `json:"lineNumbers,omitempty" yaml:"lineNumbers,omitempty"`
	Zebra       *bool   `json:"zebra,omitempty" yaml:"zebra,omitempty"`
	Fold        *int    `json:"fold,omitempty" yaml:"fold,omitempty"`
	Scroll      *int    `json:"scroll,omitempty" yaml:"scroll,omitempty"`
	Style       *string `json:"style,omitempty" yaml:"style,omitempty"`
	Language    *string `json:"language,omitempty" yaml:"language,omitempty"`
	CopyJoin    *bool   `json:"copyJoin,omitempty" yaml:"copyJoin,omitempty"`
}

// Filter pairs the two independently merged filter sub-maps.
type Filter struct {
	ByLines map[string]string `json:"byLines,omitempty" yaml:"byLines,omitempty"`
	ByMarks map[string]string `json:"byMarks,omitempty" yaml:"byMarks,omitempty"`
}

// StyleMap holds scalar style properties keyed by property name.
type StyleMap map[string]string

// StyledTriple holds the three role-keyed style sub-maps. Each sub-map
// merges key-by-key, independently of its siblings.
type StyledTriple struct {
	Prompt  StyleMap `json:"prompt,omitempty" yaml:"prompt,omitempty"`
	Command StyleMap `json:"command,omitempty" yaml:"command,omitempty"`
	Output  StyleMap `json:"output,omitempty" yaml:"output,omitempty"`
}

// Annotations configures the block's annotation entries and how they route
// to presentation surfaces.
type Annotations struct {
	Mode      *DisplayMode `json:"mode,omitempty" yaml:"mode,omitempty"`
	PrintMode *DisplayMode `json:"printMode,omitempty" yaml:"printMode,omitempty"`
	Style     *string      `json:"style,omitempty" yaml:"style,omitempty"`

	// Entries is positional: list order defines numbering and grouping
	// order. When set on an override layer — including set to an empty,
	// non-nil slice — it replaces the weaker layer's entries wholesale.
	// Entries are never merged element-by-element.
	Entries []AnnotationEntry `json:"entries,omitempty" yaml:"entries,omitempty"`
}

// AnnotationEntry is one line-targeted note. Target line numbers arrive
// already resolved to concrete integers. Kind is an opaque semantic tag,
// normalised elsewhere. Entries are immutable values with no identity
// beyond their list position.
type AnnotationEntry struct {
	Lines   []int        `json:"lines,omitempty" yaml:"lines,omitempty"`
	Text    string       `json:"text,omitempty" yaml:"text,omitempty"`
	Kind    string       `json:"kind,omitempty" yaml:"kind,omitempty"`
	Mode    *DisplayMode `json:"mode,omitempty" yaml:"mode,omitempty"`
	Replace bool         `json:"replace,omitempty" yaml:"replace,omitempty"`
}

// Bool returns a pointer to v, for building documents in place.
func Bool(v bool) *bool { return &v }

// Int returns a pointer to v, for building documents in place.
func Int(v int) *int { return &v }

// String returns a pointer to v, for building documents in place.
func String(v string) *string { return &v }

// Mode returns a pointer to m, for building documents in place.
func Mode(m DisplayMode) *DisplayMode { return &m }

// Clone returns a deep copy of d. Nil and explicitly empty values survive
// the copy unchanged.
func (d Document) Clone() Document {
	return Document{
		Meta:        d.Meta.clone(),
		Display:     d.Display.clone(),
		Filter:      d.Filter.clone(),
		Annotations: d.Annotations.clone(),
		Prompt:      clonePtr(d.Prompt),
		Styles:      d.Styles.clone(),
	}
}

func (m *Meta) clone() *Meta {
	if m == nil {
		return nil
	}
	return &Meta{
		Title:       clonePtr(m.Title),
		Description: clonePtr(m.Description),
		Path:        clonePtr(m.Path),
		Preset:      clonePtr(m.Preset),
	}
}

func (d *Display) clone() *Display {
	if d == nil {
		return nil
	}
	return &Display{
		LineNumbers: clonePtr(d.LineNumbers),
		Zebra:       clonePtr(d.Zebra),
		Fold:        clonePtr(d.Fold),
		Scroll:      clonePtr(d.Scroll),
		Style:       clonePtr(d.Style),
		Language:    clonePtr(d.Language),
		CopyJoin:    clonePtr(d.CopyJoin),
	}
}

func (f *Filter) clone() *Filter {
	if f == nil {
		return nil
	}
	return &Filter{
		ByLines: cloneStringMap(f.ByLines),
		ByMarks: cloneStringMap(f.ByMarks),
	}
}

func (s *StyledTriple) clone() *StyledTriple {
	if s == nil {
		return nil
	}
	return &StyledTriple{
		Prompt:  StyleMap(cloneStringMap(s.Prompt)),
		Command: StyleMap(cloneStringMap(s.Command)),
		Output:  StyleMap(cloneStringMap(s.Output)),
	}
}

func (a *Annotations) clone() *Annotations {
	if a == nil {
		return nil
	}
	return &Annotations{
		Mode:      clonePtr(a.Mode),
		PrintMode: clonePtr(a.PrintMode),
		Style:     clonePtr(a.Style),
		Entries:   cloneEntries(a.Entries),
	}
}

// Clone returns a deep copy of the entry, detaching its line set and mode
// override from the original.
func (e AnnotationEntry) Clone() AnnotationEntry {
	out := e
	out.Mode = clonePtr(e.Mode)
	if e.Lines != nil {
		out.Lines = make([]int, len(e.Lines))
		copy(out.Lines, e.Lines)
	}
	return out
}

func clonePtr[T any](v *T) *T {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneStringMap[M ~map[string]string](m M) M {
	if m == nil {
		return nil
	}
	out := make(M, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneEntries(entries []AnnotationEntry) []AnnotationEntry {
	if entries == nil {
		return nil
	}
	out := make([]AnnotationEntry, len(entries))
	for i := range entries {
		out[i] = entries[i].Clone()
	}
	return out
}
