package repositories

import (
	"database/sql"
	"encoding/json"

	"github.com/digitool/volerex/internal/models"
	"github.com/google/uuid"
)

type EmailTemplateRepository struct {
	db *sql.DB
}

func NewEmailTemplateRepository(db *sql.DB) *EmailTemplateRepository {
	return &EmailTemplateRepository{
		db: db,
	}
}

// Create creates a new email template
func (r *EmailTemplateRepository) Create(template *models.EmailTemplate) error {
	criteria, err := json.Marshal(template.MatchingCriteria)
	if err != nil {
		return err
	}
	fields, err := json.Marshal(template.ExtractionFields)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO email_templates (id, name, description, is_active, usage_count, matching_criteria, extraction_fields, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	template.ID = uuid.New()

	_, err = r.db.Exec(query,
		template.ID.String(),
		template.Name,
		template.Description,
		template.IsActive,
		template.UsageCount,
		string(criteria),
		string(fields),
		template.CreatedBy,
	)

	return err
}

// GetByID retrieves an email template by ID
func (r *EmailTemplateRepository) GetByID(id string) (*models.EmailTemplate, error) {
	query := `
		SELECT id, name, description, is_active, usage_count, matching_criteria, extraction_fields, created_by, created_at, updated_at
		FROM email_templates
		WHERE id = $1
	`

	return r.scanOne(r.db.QueryRow(query, id))
}

// List retrieves all email templates ordered by name
func (r *EmailTemplateRepository) List() ([]*models.EmailTemplate, error) {
	query := `
		SELECT id, name, description, is_active, usage_count, matching_criteria, extraction_fields, created_by, created_at, updated_at
		FROM email_templates
		ORDER BY name COLLATE NOCASE ASC
	`

	return r.queryMany(query)
}

// ListActive retrieves all active email templates ordered by name
func (r *EmailTemplateRepository) ListActive() ([]*models.EmailTemplate, error) {
	query := `
		SELECT id, name, description, is_active, usage_count, matching_criteria, extraction_fields, created_by, created_at, updated_at
		FROM email_templates
		WHERE is_active = 1
		ORDER BY name COLLATE NOCASE ASC
	`

	return r.queryMany(query)
}

// Update updates an email template
func (r *EmailTemplateRepository) Update(template *models.EmailTemplate) error {
	criteria, err := json.Marshal(template.MatchingCriteria)
	if err != nil {
		return err
	}
	fields, err := json.Marshal(template.ExtractionFields)
	if err != nil {
		return err
	}

	query := `
		UPDATE email_templates
		SET name = $1, description = $2, is_active = $3, matching_criteria = $4, extraction_fields = $5, updated_at = CURRENT_TIMESTAMP
		WHERE id = $6
	`

	result, err := r.db.Exec(query,
		template.Name,
		template.Description,
		template.IsActive,
		string(criteria),
		string(fields),
		template.ID.String(),
	)

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

// IncrementUsage increments a template's usage counter
func (r *EmailTemplateRepository) IncrementUsage(id string) error {
	query := `
		UPDATE email_templates
		SET usage_count = usage_count + 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`

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

// Delete deletes an email template
func (r *EmailTemplateRepository) Delete(id string) error {
	query := `DELETE FROM email_templates WHERE id = $1`

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

func (r *EmailTemplateRepository) queryMany(query string, args ...interface{}) ([]*models.EmailTemplate, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var templates []*models.EmailTemplate
	for rows.Next() {
		template, err := r.scanOne(rows)
		if err != nil {
			return nil, err
		}
		templates = append(templates, template)
	}

	return templates, rows.Err()
}

func (r *EmailTemplateRepository) scanOne(row rowScanner) (*models.EmailTemplate, error) {
	template := &models.EmailTemplate{}
	var id, criteria, fields string

	err := row.Scan(
		&id,
		&template.Name,
		&template.Description,
		&template.IsActive,
		&template.UsageCount,
		&criteria,
		&fields,
		&template.CreatedBy,
		&template.CreatedAt,
		&template.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	template.ID, err = uuid.Parse(id)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(criteria), &template.MatchingCriteria); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(fields), &template.ExtractionFields); err != nil {
		return nil, err
	}
	if template.ExtractionFields == nil {
		template.ExtractionFields = []models.EmailExtractionField{}
	}

	return template, nil
}
