package models

import (
	"time"

	"github.com/google/uuid"
)

// EmailMatchingCriteria describes when an inbound email is considered
// a match for a template. Empty lists put no constraint on that axis.
type EmailMatchingCriteria struct {
	SenderDomains   []string `json:"sender_domains"`
	SenderEmails    []string `json:"sender_emails"`
	SubjectKeywords []string `json:"subject_keywords"`
	RequiredWords   []string `json:"required_words"`
	ExcludedWords   []string `json:"excluded_words"`
}

// EmailExtractionField is a field to extract from a matched email's PDF.
type EmailExtractionField struct {
	ID                string `json:"id"`
	FieldName         string `json:"field_name"`
	AIHint            string `json:"ai_hint,omitempty"`
	Required          bool   `json:"required"`
	ValidationPattern string `json:"validation_pattern,omitempty"`
}

// EmailTemplate pairs matching criteria with the fields to extract when
// the criteria hold.
type EmailTemplate struct {
	ID               uuid.UUID              `json:"id"`
	Name             string                 `json:"name"`
	Description      string                 `json:"description"`
	IsActive         bool                   `json:"is_active"`
	UsageCount       int                    `json:"usage_count"`
	MatchingCriteria EmailMatchingCriteria  `json:"matching_criteria"`
	ExtractionFields []EmailExtractionField `json:"extraction_fields"`
	CreatedBy        string                 `json:"created_by"`
	CreatedAt        time.Time              `json:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at"`
}

// EmailTemplateUpdate carries a partial update. Nil fields keep their
// prior values.
type EmailTemplateUpdate struct {
	Name             *string                 `json:"name"`
	Description      *string                 `json:"description"`
	MatchingCriteria *EmailMatchingCriteria  `json:"matching_criteria"`
	ExtractionFields *[]EmailExtractionField `json:"extraction_fields"`
	IsActive         *bool                   `json:"is_active"`
}

// EmailMatchResult is the outcome of scoring one email against one
// template's criteria.
type EmailMatchResult struct {
	TemplateID      string   `json:"template_id"`
	TemplateName    string   `json:"template_name"`
	ConfidenceScore float64  `json:"confidence_score"`
	MatchReasons    []string `json:"match_reasons"`
	AutoProcessable bool     `json:"auto_processable"`
}

func (t *EmailTemplate) Validate() error {
	if t.Name == "" {
		return ErrTemplateNameRequired
	}
	for _, f := range t.ExtractionFields {
		if f.FieldName == "" {
			return ErrFieldNameRequired
		}
	}
	return nil
}

// EnsureFieldIDs assigns ids to extraction fields created without one.
func (t *EmailTemplate) EnsureFieldIDs() {
	for i := range t.ExtractionFields {
		if t.ExtractionFields[i].ID == "" {
			t.ExtractionFields[i].ID = uuid.New().String()
		}
	}
}
