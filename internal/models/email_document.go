package models

import (
	"time"
)

// Inbound email channels. Both are IMAP mailboxes; "webhook" is the
// address fronted by the mail-receiver webhook, "imap" the directly
// polled one.
const (
	ChannelWebhook = "webhook"
	ChannelIMAP    = "imap"
)

// Email document statuses, in order of progression.
const (
	EmailStatusNew          = "new"
	EmailStatusSuggested    = "template_suggested"
	EmailStatusReadyForAuto = "ready_for_auto_processing"
	EmailStatusProcessing   = "processing"
	EmailStatusCompleted    = "completed"
	EmailStatusError        = "error"
)

// EmailAnalysis is the template suggestion attached to a fetched email.
type EmailAnalysis struct {
	SuggestedTemplateID *string  `json:"suggested_template_id"`
	ConfidenceScore     *float64 `json:"confidence_score"`
	Reasoning           *string  `json:"reasoning"`
}

// EmailDocument is the inbox representation of a fetched email before
// its attachments become processed documents.
type EmailDocument struct {
	ID                  string     `json:"id"`
	Channel             string     `json:"channel"`
	Sender              string     `json:"sender"`
	Subject             string     `json:"subject"`
	ReceivedDate        time.Time  `json:"received_date"`
	PdfCount            int        `json:"pdf_count"`
	Status              string     `json:"status"`
	ErrorMessage        *string    `json:"error_message,omitempty"`
	UserID              string     `json:"user_id"`
	EmailAddress        *string    `json:"email_address,omitempty"`
	SuggestedTemplateID *string    `json:"suggested_template_id,omitempty"`
	ConfidenceScore     *float64   `json:"confidence_score,omitempty"`
	Reasoning           *string    `json:"reasoning,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	ProcessedAt         *time.Time `json:"processed_at,omitempty"`
}

// EmailAttachment references one stored PDF attachment of an email document.
type EmailAttachment struct {
	ID              string `json:"id"`
	EmailDocumentID string `json:"email_document_id"`
	Index           int    `json:"index"`
	Filename        string `json:"filename"`
	StorageKey      string `json:"storage_key"`
	SizeBytes       int64  `json:"size_bytes"`
}

// ValidChannel reports whether name is a known inbound email channel.
func ValidChannel(name string) bool {
	return name == ChannelWebhook || name == ChannelIMAP
}
