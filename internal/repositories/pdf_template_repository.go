package repositories

import (
	"database/sql"
	"encoding/json"

	"github.com/digitool/volerex/internal/models"
	"github.com/google/uuid"
)

type PdfTemplateRepository struct {
	db *sql.DB
}

func NewPdfTemplateRepository(db *sql.DB) *PdfTemplateRepository {
	return &PdfTemplateRepository{
		db: db,
	}
}

// Create creates a new PDF template
func (r *PdfTemplateRepository) Create(template *models.PdfTemplate) error {
	fields, err := json.Marshal(template.TargetFields)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO pdf_templates (id, name, description, target_fields)
		VALUES ($1, $2, $3, $4)
	`

	template.ID = uuid.New()

	_, err = r.db.Exec(query,
		template.ID.String(),
		template.Name,
		template.Description,
		string(fields),
	)

	return err
}

// GetByID retrieves a PDF template by ID
func (r *PdfTemplateRepository) GetByID(id string) (*models.PdfTemplate, error) {
	query := `
		SELECT id, name, description, target_fields, created_at, updated_at
		FROM pdf_templates
		WHERE id = $1
	`

	return r.scanOne(r.db.QueryRow(query, id))
}

// GetByName retrieves a PDF template by its unique name
func (r *PdfTemplateRepository) GetByName(name string) (*models.PdfTemplate, error) {
	query := `
		SELECT id, name, description, target_fields, created_at, updated_at
		FROM pdf_templates
		WHERE name = $1
	`

	return r.scanOne(r.db.QueryRow(query, name))
}

// List retrieves all PDF templates ordered by name
func (r *PdfTemplateRepository) List() ([]*models.PdfTemplate, error) {
	query := `
		SELECT id, name, description, target_fields, created_at, updated_at
		FROM pdf_templates
		ORDER BY name COLLATE NOCASE ASC
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var templates []*models.PdfTemplate
	for rows.Next() {
		template, err := r.scanOne(rows)
		if err != nil {
			return nil, err
		}
		templates = append(templates, template)
	}

	return templates, rows.Err()
}

// Update updates a PDF template
func (r *PdfTemplateRepository) Update(template *models.PdfTemplate) error {
	fields, err := json.Marshal(template.TargetFields)
	if err != nil {
		return err
	}

	query := `
		UPDATE pdf_templates
		SET name = $1, description = $2, target_fields = $3, updated_at = CURRENT_TIMESTAMP
		WHERE id = $4
	`

	result, err := r.db.Exec(query,
		template.Name,
		template.Description,
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

// Delete deletes a PDF template
func (r *PdfTemplateRepository) Delete(id string) error {
	query := `DELETE FROM pdf_templates WHERE id = $1`

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

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *PdfTemplateRepository) scanOne(row rowScanner) (*models.PdfTemplate, error) {
	template := &models.PdfTemplate{}
	var id, fields string

	err := row.Scan(
		&id,
		&template.Name,
		&template.Description,
		&fields,
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

	if err := json.Unmarshal([]byte(fields), &template.TargetFields); err != nil {
		return nil, err
	}
	if template.TargetFields == nil {
		template.TargetFields = []models.TargetField{}
	}

	return template, nil
}
