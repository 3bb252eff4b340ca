package repositories

import (
	"database/sql"
	"time"

	"github.com/digitool/volerex/internal/models"
	"github.com/google/uuid"
)

type EmailDocumentRepository struct {
	db *sql.DB
}

func NewEmailDocumentRepository(db *sql.DB) *EmailDocumentRepository {
	return &EmailDocumentRepository{
		db: db,
	}
}

const emailDocumentColumns = `id, channel, sender, subject, received_date, pdf_count, status, error_message,
	user_id, email_address, suggested_template_id, confidence_score, reasoning, created_at, processed_at`

// Create creates a new inbound email record
func (r *EmailDocumentRepository) Create(doc *models.EmailDocument) error {
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	if doc.Status == "" {
		doc.Status = models.EmailStatusNew
	}

	query := `
		INSERT INTO email_documents (` + emailDocumentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := r.db.Exec(query,
		doc.ID,
		doc.Channel,
		doc.Sender,
		doc.Subject,
		doc.ReceivedDate,
		doc.PdfCount,
		doc.Status,
		doc.ErrorMessage,
		doc.UserID,
		doc.EmailAddress,
		doc.SuggestedTemplateID,
		doc.ConfidenceScore,
		doc.Reasoning,
		doc.CreatedAt,
		doc.ProcessedAt,
	)

	return err
}

// GetByID retrieves an inbound email by ID
func (r *EmailDocumentRepository) GetByID(id string) (*models.EmailDocument, error) {
	query := `SELECT ` + emailDocumentColumns + ` FROM email_documents WHERE id = $1`

	return r.scanOne(r.db.QueryRow(query, id))
}

// ListByChannel retrieves a user's inbound emails on one channel,
// newest first
func (r *EmailDocumentRepository) ListByChannel(userID, channel string) ([]*models.EmailDocument, error) {
	query := `
		SELECT ` + emailDocumentColumns + `
		FROM email_documents
		WHERE user_id = $1 AND channel = $2
		ORDER BY received_date DESC
	`

	rows, err := r.db.Query(query, userID, channel)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*models.EmailDocument
	for rows.Next() {
		doc, err := r.scanOne(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}

	return docs, rows.Err()
}

// UpdateStatus moves an email through the processing pipeline
func (r *EmailDocumentRepository) UpdateStatus(id, status string, errorMessage *string) error {
	query := `
		UPDATE email_documents
		SET status = $1, error_message = $2,
			processed_at = CASE WHEN $1 IN ('completed', 'error') THEN $3 ELSE processed_at END
		WHERE id = $4
	`

	result, err := r.db.Exec(query, status, errorMessage, time.Now().UTC(), id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return sql.ErrNoRows
	}

	return nil
}

// SetAnalysis records the matcher's suggestion for an email
func (r *EmailDocumentRepository) SetAnalysis(id, status string, analysis *models.EmailAnalysis) error {
	query := `
		UPDATE email_documents
		SET status = $1, suggested_template_id = $2, confidence_score = $3, reasoning = $4
		WHERE id = $5
	`

	result, err := r.db.Exec(query, status,
		analysis.SuggestedTemplateID, analysis.ConfidenceScore, analysis.Reasoning, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return sql.ErrNoRows
	}

	return nil
}

// AddAttachment records a stored PDF attachment for an email
func (r *EmailDocumentRepository) AddAttachment(att *models.EmailAttachment) error {
	if att.ID == "" {
		att.ID = uuid.New().String()
	}

	query := `
		INSERT INTO email_attachments (id, email_document_id, idx, filename, storage_key, size_bytes)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.Exec(query, att.ID, att.EmailDocumentID, att.Index, att.Filename, att.StorageKey, att.SizeBytes)
	return err
}

// ListAttachments retrieves an email's stored attachments in order
func (r *EmailDocumentRepository) ListAttachments(emailDocumentID string) ([]*models.EmailAttachment, error) {
	query := `
		SELECT id, email_document_id, idx, filename, storage_key, size_bytes
		FROM email_attachments
		WHERE email_document_id = $1
		ORDER BY idx
	`

	rows, err := r.db.Query(query, emailDocumentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var atts []*models.EmailAttachment
	for rows.Next() {
		att := &models.EmailAttachment{}
		if err := rows.Scan(&att.ID, &att.EmailDocumentID, &att.Index, &att.Filename, &att.StorageKey, &att.SizeBytes); err != nil {
			return nil, err
		}
		atts = append(atts, att)
	}

	return atts, rows.Err()
}

// Delete deletes an inbound email and its attachment records
func (r *EmailDocumentRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM email_documents WHERE id = $1`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return sql.ErrNoRows
	}

	return nil
}

func (r *EmailDocumentRepository) scanOne(row rowScanner) (*models.EmailDocument, error) {
	doc := &models.EmailDocument{}

	err := row.Scan(
		&doc.ID,
		&doc.Channel,
		&doc.Sender,
		&doc.Subject,
		&doc.ReceivedDate,
		&doc.PdfCount,
		&doc.Status,
		&doc.ErrorMessage,
		&doc.UserID,
		&doc.EmailAddress,
		&doc.SuggestedTemplateID,
		&doc.ConfidenceScore,
		&doc.Reasoning,
		&doc.CreatedAt,
		&doc.ProcessedAt,
	)
	if err != nil {
		return nil, err
	}

	return doc, nil
}
