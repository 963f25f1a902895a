package parser

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	fence "github.com/RachelAmbler/ultra-code-fence"
)

var displayModes = []any{fence.ModeInline, fence.ModeFootnote, fence.ModePopover}

// validateDocument checks the parts of a Document that must be well-formed
// before reaching the resolution engine. Unset fields are always valid —
// absence means "inherit", never "invalid".
func validateDocument(doc *fence.Document) error {
	a := doc.Annotations
	if a == nil {
		return nil
	}
	if err := validation.Validate(a.Mode, validation.In(displayModes...)); err != nil {
		return fmt.Errorf("annotations.mode: %w", err)
	}
	if err := validation.Validate(a.PrintMode, validation.In(displayModes...)); err != nil {
		return fmt.Errorf("annotations.printMode: %w", err)
	}
	for i, entry := range a.Entries {
		if err := validateEntry(entry); err != nil {
			return fmt.Errorf("annotations.entries[%d]: %w", i, err)
		}
	}
	return nil
}

func validateEntry(entry fence.AnnotationEntry) error {
	return validation.ValidateStruct(&entry,
		validation.Field(&entry.Text, validation.Required),
		validation.Field(&entry.Lines, validation.Required, validation.Each(validation.Min(1))),
		validation.Field(&entry.Mode, validation.In(displayModes...)),
	)
}
