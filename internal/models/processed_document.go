package models

import (
	"time"
)

// Document sources
const (
	SourceFileUpload = "file_upload"
	SourceEmail      = "email"
)

// Document statuses
const (
	DocumentStatusProcessed = "processed"
	DocumentStatusExported  = "exported"
	DocumentStatusCorrected = "corrected"
	DocumentStatusError     = "error"
)

// FieldMap holds extracted values keyed by field name. Keys are defined
// by templates at runtime, values are scalars or null, so a fixed struct
// is impractical here.
type FieldMap map[string]interface{}

// Merge returns a copy of m with the entries of other laid over it.
// Keys absent from other are kept, never dropped.
func (m FieldMap) Merge(other FieldMap) FieldMap {
	merged := make(FieldMap, len(m)+len(other))
	for k, v := range m {
		merged[k] = v
	}
	for k, v := range other {
		merged[k] = v
	}
	return merged
}

// ProcessedDocument is the stored result of one extraction run,
// regardless of whether the PDF arrived by upload or by email.
type ProcessedDocument struct {
	ID                string     `json:"id"`
	Source            string     `json:"source"`
	OriginalFilename  string     `json:"original_filename"`
	TemplateID        *string    `json:"template_id,omitempty"`
	TemplateName      *string    `json:"template_name,omitempty"`
	ExtractedData     FieldMap   `json:"extracted_data"`
	RawText           string     `json:"raw_text,omitempty"`
	Corrections       FieldMap   `json:"corrections,omitempty"`
	ProcessedDate     time.Time  `json:"processed_date"`
	Status            string     `json:"status"`
	ErrorMessage      *string    `json:"error_message,omitempty"`
	UserID            string     `json:"user_id"`
	UserEmail         string     `json:"user_email"`
	EmailSender       *string    `json:"email_sender,omitempty"`
	EmailSubject      *string    `json:"email_subject,omitempty"`
	EmailReceivedDate *time.Time `json:"email_received_date,omitempty"`
	EmailAddress      *string    `json:"email_address,omitempty"`
	PdfStorageKey     *string    `json:"pdf_storage_key,omitempty"`
	PageCount         int        `json:"page_count"`
	ExportCount       int        `json:"export_count"`
	LastExportedDate  *time.Time `json:"last_exported_date,omitempty"`
}

// ExportView is the data a document contributes to an export: the
// corrections overlaid on the original extracted data.
func (d *ProcessedDocument) ExportView() FieldMap {
	if d.Corrections == nil {
		return d.ExtractedData
	}
	return d.ExtractedData.Merge(d.Corrections)
}

// DocumentFilter narrows a document listing. Nil fields match everything.
type DocumentFilter struct {
	Source     *string    `json:"source" form:"source"`
	Status     *string    `json:"status" form:"status"`
	TemplateID *string    `json:"template_id" form:"template_id"`
	StartDate  *time.Time `json:"start_date" form:"start_date" time_format:"2006-01-02"`
	EndDate    *time.Time `json:"end_date" form:"end_date" time_format:"2006-01-02"`
	UserID     *string    `json:"user_id" form:"user_id"`
}
