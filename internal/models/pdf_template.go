package models

import (
	"time"

	"github.com/google/uuid"
)

// TargetField is a single field a PDF template asks the AI to extract.
// The hint is passed through to the extraction prompt verbatim.
type TargetField struct {
	ID        string `json:"id"`
	FieldName string `json:"field_name"`
	AIHint    string `json:"ai_hint,omitempty"`
}

// PdfTemplate defines a named, ordered list of fields to extract from
// a single uploaded PDF.
type PdfTemplate struct {
	ID           uuid.UUID     `json:"id"`
	Name         string        `json:"name"`
	Description  string        `json:"description"`
	TargetFields []TargetField `json:"target_fields"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// PdfTemplateUpdate carries a partial update. Nil fields keep their
// prior values.
type PdfTemplateUpdate struct {
	Name         *string        `json:"name"`
	Description  *string        `json:"description"`
	TargetFields *[]TargetField `json:"target_fields"`
}

func (t *PdfTemplate) Validate() error {
	if t.Name == "" {
		return ErrTemplateNameRequired
	}
	for _, f := range t.TargetFields {
		if f.FieldName == "" {
			return ErrFieldNameRequired
		}
	}
	return nil
}

// EnsureFieldIDs assigns ids to target fields that were created without one.
func (t *PdfTemplate) EnsureFieldIDs() {
	for i := range t.TargetFields {
		if t.TargetFields[i].ID == "" {
			t.TargetFields[i].ID = uuid.New().String()
		}
	}
}

// Common errors
var (
	ErrTemplateNameRequired = &ValidationError{Field: "name", Message: "Template name is required"}
	ErrFieldNameRequired    = &ValidationError{Field: "field_name", Message: "Field name is required"}
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
