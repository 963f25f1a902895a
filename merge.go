package fence

// Merge combines base and override into a new Document without mutating
// either input. Override wins wherever it explicitly sets a value; anything
// it leaves unset is inherited from base. The function is total: any two
// well-formed Documents merge without error.
//
// Section rules:
//   - Meta, Display, and each sub-map of Filter and Styles merge key-by-key.
//     A key absent from override never erases the base's value for it.
//   - Annotations merges its scalar fields key-by-key, but Entries is
//     atomic: a set list (even an empty one) replaces the base list
//     wholesale.
//   - Prompt is a plain scalar override.
func Merge(base, override Document) Document {
	return Document{
		Meta:        mergeMeta(base.Meta, override.Meta),
		Display:     mergeDisplay(base.Display, override.Display),
		Filter:      mergeFilter(base.Filter, override.Filter),
		Annotations: mergeAnnotations(base.Annotations, override.Annotations),
		Prompt:      pick(base.Prompt, override.Prompt),
		Styles:      mergeStyles(base.Styles, override.Styles),
	}
}

// MergeAll folds Merge over layers ordered weakest first, so later layers
// override earlier ones.
func MergeAll(layers ...Document) Document {
	if len(layers) == 0 {
		return Document{}
	}
	out := layers[0].Clone()
	for _, layer := range layers[1:] {
		out = Merge(out, layer)
	}
	return out
}

func mergeMeta(base, override *Meta) *Meta {
	switch {
	case override == nil:
		return base.clone()
	case base == nil:
		return override.clone()
	}
	return &Meta{
		Title:       pick(base.Title, override.Title),
		Description: pick(base.Description, override.Description),
		Path:        pick(base.Path, override.Path),
		Preset:      pick(base.Preset, override.Preset),
	}
}

func mergeDisplay(base, override *Display) *Display {
	switch {
	case override == nil:
		return base.clone()
	case base == nil:
		return override.clone()
	}
	return &Display{
		LineNumbers: pick(base.LineNumbers, override.LineNumbers),
		Zebra:       pick(base.Zebra, override.Zebra),
		Fold:        pick(base.Fold, override.Fold),
		Scroll:      pick(base.Scroll, override.Scroll),
		Style:       pick(base.Style, override.Style),
		Language:    pick(base.Language, override.Language),
		CopyJoin:    pick(base.CopyJoin, override.CopyJoin),
	}
}

func mergeFilter(base, override *Filter) *Filter {
	switch {
	case override == nil:
		return base.clone()
	case base == nil:
		return override.clone()
	}
	return &Filter{
		ByLines: mergeStringMap(base.ByLines, override.ByLines),
		ByMarks: mergeStringMap(base.ByMarks, override.ByMarks),
	}
}

func mergeStyles(base, override *StyledTriple) *StyledTriple {
	switch {
	case override == nil:
		return base.clone()
	case base == nil:
		return override.clone()
	}
	return &StyledTriple{
		Prompt:  mergeStringMap(base.Prompt, override.Prompt),
		Command: mergeStringMap(base.Command, override.Command),
		Output:  mergeStringMap(base.Output, override.Output),
	}
}

func mergeAnnotations(base, override *Annotations) *Annotations {
	switch {
	case override == nil:
		return base.clone()
	case base == nil:
		return override.clone()
	}
	out := &Annotations{
		Mode:      pick(base.Mode, override.Mode),
		PrintMode: pick(base.PrintMode, override.PrintMode),
		Style:     pick(base.Style, override.Style),
	}
	// Entries carry identity by position only, so there is no sound
	// element-by-element merge. A set list replaces the weaker one
	// atomically; set-empty clears it.
	if override.Entries != nil {
		out.Entries = cloneEntries(override.Entries)
	} else {
		out.Entries = cloneEntries(base.Entries)
	}
	return out
}

// pick returns a copy of override when set, else a copy of base.
func pick[T any](base, override *T) *T {
	if override != nil {
		return clonePtr(override)
	}
	return clonePtr(base)
}

// mergeStringMap merges key-by-key: every key present on either side lands
// in the result, override winning where both set it. A non-nil result is
// produced whenever either side is non-nil, preserving explicit emptiness.
func mergeStringMap[M ~map[string]string](base, override M) M {
	switch {
	case override == nil:
		return cloneStringMap(base)
	case base == nil:
		return cloneStringMap(override)
	}
	out := make(M, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}
