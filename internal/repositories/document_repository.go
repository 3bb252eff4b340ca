package repositories

import (
	"database/sql"
	"encoding/json"
	"strconv"
	"time"

	"github.com/digitool/volerex/internal/models"
	"github.com/google/uuid"
)

type DocumentRepository struct {
	db *sql.DB
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{
		db: db,
	}
}

const documentColumns = `id, source, original_filename, template_id, template_name, extracted_data, raw_text, corrections,
	processed_date, status, error_message, user_id, user_email, email_sender, email_subject, email_received_date,
	email_address, pdf_storage_key, page_count, export_count, last_exported_date`

// Create creates a new processed document
func (r *DocumentRepository) Create(doc *models.ProcessedDocument) error {
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	if doc.ProcessedDate.IsZero() {
		doc.ProcessedDate = time.Now().UTC()
	}
	if doc.Status == "" {
		doc.Status = models.DocumentStatusProcessed
	}

	extracted, err := json.Marshal(doc.ExtractedData)
	if err != nil {
		return err
	}

	var corrections *string
	if doc.Corrections != nil {
		b, err := json.Marshal(doc.Corrections)
		if err != nil {
			return err
		}
		s := string(b)
		corrections = &s
	}

	query := `
		INSERT INTO processed_documents (` + documentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
	`

	_, err = r.db.Exec(query,
		doc.ID,
		doc.Source,
		doc.OriginalFilename,
		doc.TemplateID,
		doc.TemplateName,
		string(extracted),
		doc.RawText,
		corrections,
		doc.ProcessedDate,
		doc.Status,
		doc.ErrorMessage,
		doc.UserID,
		doc.UserEmail,
		doc.EmailSender,
		doc.EmailSubject,
		doc.EmailReceivedDate,
		doc.EmailAddress,
		doc.PdfStorageKey,
		doc.PageCount,
		doc.ExportCount,
		doc.LastExportedDate,
	)

	return err
}

// GetByID retrieves a processed document by ID
func (r *DocumentRepository) GetByID(id string) (*models.ProcessedDocument, error) {
	query := `SELECT ` + documentColumns + ` FROM processed_documents WHERE id = $1`

	return r.scanOne(r.db.QueryRow(query, id))
}

// List retrieves processed documents matching the optional filter,
// newest first
func (r *DocumentRepository) List(filter *models.DocumentFilter) ([]*models.ProcessedDocument, error) {
	query := `SELECT ` + documentColumns + ` FROM processed_documents WHERE 1=1`
	var args []interface{}

	if filter != nil {
		if filter.Source != nil {
			args = append(args, *filter.Source)
			query += ` AND source = $` + strconv.Itoa(len(args))
		}
		if filter.Status != nil {
			args = append(args, *filter.Status)
			query += ` AND status = $` + strconv.Itoa(len(args))
		}
		if filter.TemplateID != nil {
			args = append(args, *filter.TemplateID)
			query += ` AND template_id = $` + strconv.Itoa(len(args))
		}
		if filter.StartDate != nil {
			args = append(args, *filter.StartDate)
			query += ` AND processed_date >= $` + strconv.Itoa(len(args))
		}
		if filter.EndDate != nil {
			args = append(args, *filter.EndDate)
			query += ` AND processed_date <= $` + strconv.Itoa(len(args))
		}
		if filter.UserID != nil {
			args = append(args, *filter.UserID)
			query += ` AND user_id = $` + strconv.Itoa(len(args))
		}
	}

	query += ` ORDER BY processed_date DESC`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*models.ProcessedDocument
	for rows.Next() {
		doc, err := r.scanOne(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}

	return docs, rows.Err()
}

// GetByIDs retrieves the documents for the given ids, keyed by id
func (r *DocumentRepository) GetByIDs(ids []string) (map[string]*models.ProcessedDocument, error) {
	docs := make(map[string]*models.ProcessedDocument, len(ids))
	for _, id := range ids {
		doc, err := r.GetByID(id)
		if err != nil {
			if err == sql.ErrNoRows {
				continue
			}
			return nil, err
		}
		docs[doc.ID] = doc
	}
	return docs, nil
}

// UpdateData updates a document's extracted data, corrections and status
func (r *DocumentRepository) UpdateData(doc *models.ProcessedDocument) error {
	extracted, err := json.Marshal(doc.ExtractedData)
	if err != nil {
		return err
	}

	var corrections *string
	if doc.Corrections != nil {
		b, err := json.Marshal(doc.Corrections)
		if err != nil {
			return err
		}
		s := string(b)
		corrections = &s
	}

	query := `
		UPDATE processed_documents
		SET extracted_data = $1, corrections = $2, status = $3
		WHERE id = $4
	`

	result, err := r.db.Exec(query, string(extracted), corrections, doc.Status, doc.ID)
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

// MarkExported stamps the export bookkeeping on every given document
// in one transaction
func (r *DocumentRepository) MarkExported(ids []string, exportedAt time.Time) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		UPDATE processed_documents
		SET export_count = export_count + 1,
			last_exported_date = $1,
			status = CASE WHEN status = 'processed' THEN 'exported' ELSE status END
		WHERE id = $2
	`

	for _, id := range ids {
		result, err := tx.Exec(query, exportedAt, id)
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
	}

	return tx.Commit()
}

// Delete deletes a processed document
func (r *DocumentRepository) Delete(id string) error {
	query := `DELETE FROM processed_documents WHERE id = $1`

	result, err := r.db.Exec(query, id)
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

// DeleteBatch deletes all given documents in one transaction. Any
// unknown id aborts the whole batch.
func (r *DocumentRepository) DeleteBatch(ids []string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, id := range ids {
		result, err := tx.Exec(`DELETE FROM processed_documents WHERE id = $1`, id)
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
	}

	return tx.Commit()
}

func (r *DocumentRepository) scanOne(row rowScanner) (*models.ProcessedDocument, error) {
	doc := &models.ProcessedDocument{}
	var extracted string
	var corrections *string

	err := row.Scan(
		&doc.ID,
		&doc.Source,
		&doc.OriginalFilename,
		&doc.TemplateID,
		&doc.TemplateName,
		&extracted,
		&doc.RawText,
		&corrections,
		&doc.ProcessedDate,
		&doc.Status,
		&doc.ErrorMessage,
		&doc.UserID,
		&doc.UserEmail,
		&doc.EmailSender,
		&doc.EmailSubject,
		&doc.EmailReceivedDate,
		&doc.EmailAddress,
		&doc.PdfStorageKey,
		&doc.PageCount,
		&doc.ExportCount,
		&doc.LastExportedDate,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(extracted), &doc.ExtractedData); err != nil {
		return nil, err
	}
	if corrections != nil {
		if err := json.Unmarshal([]byte(*corrections), &doc.Corrections); err != nil {
			return nil, err
		}
	}

	return doc, nil
}

