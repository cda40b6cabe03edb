package model

import (
	"fmt"
	"strings"
)

// ValidationError holds a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation failure on a named field.
type FieldError struct {
	Field   string
	Message string
}

// Error formats the validation error as a semicolon-separated list of field messages.
func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// HasErrors reports whether the validation error contains any field errors.
func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}

// ValidateRow checks a registry Row before it is inserted.
// It returns a *ValidationError if any rules fail, or nil if the row is valid.
func ValidateRow(r *Row) error {
	var ve ValidationError

	if !r.Class.IsValid() {
		ve.Errors = append(ve.Errors, FieldError{
			Field:   "class",
			Message: fmt.Sprintf("invalid value %q", r.Class),
		})
	}

	if strings.TrimSpace(r.EntityID) == "" {
		ve.Errors = append(ve.Errors, FieldError{Field: "entity_id", Message: "is required"})
	} else if (r.Class == ClassOutfitDashboard || r.Class == ClassOutfitTracker) && !strings.Contains(r.EntityID, "/") {
		ve.Errors = append(ve.Errors, FieldError{Field: "entity_id", Message: "must be platform/outfit_id"})
	}

	if !r.Kind.IsValid() {
		ve.Errors = append(ve.Errors, FieldError{
			Field:   "kind",
			Message: fmt.Sprintf("invalid value %q", r.Kind),
		})
	} else if r.Class.IsValid() && r.Kind != r.Class.SinkKind() {
		ve.Errors = append(ve.Errors, FieldError{
			Field:   "kind",
			Message: fmt.Sprintf("class %s requires %s sinks", r.Class, r.Class.SinkKind()),
		})
	}

	if r.ChannelID == "" {
		ve.Errors = append(ve.Errors, FieldError{Field: "channel_id", Message: "is required"})
	}
	if r.Kind == SinkMessage && r.MessageID == "" {
		ve.Errors = append(ve.Errors, FieldError{Field: "message_id", Message: "is required for message sinks"})
	}
	if r.Kind == SinkChannel && r.MessageID != "" {
		ve.Errors = append(ve.Errors, FieldError{Field: "message_id", Message: "must be empty for channel sinks"})
	}

	if r.Variant != "" && r.Variant != VariantFaction {
		ve.Errors = append(ve.Errors, FieldError{
			Field:   "variant",
			Message: fmt.Sprintf("invalid value %q", r.Variant),
		})
	}

	if ve.HasErrors() {
		return &ve
	}
	return nil
}
