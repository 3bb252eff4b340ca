package services

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/digitool/volerex/internal/models"
	"github.com/digitool/volerex/internal/repositories"
)

type PdfTemplateService struct {
	templateRepo *repositories.PdfTemplateRepository
}

func NewPdfTemplateService(templateRepo *repositories.PdfTemplateRepository) *PdfTemplateService {
	return &PdfTemplateService{
		templateRepo: templateRepo,
	}
}

// CreateTemplate creates a new extraction template
func (s *PdfTemplateService) CreateTemplate(template *models.PdfTemplate) error {
	template.Name = strings.TrimSpace(template.Name)

	if err := template.Validate(); err != nil {
		return err
	}

	existing, err := s.templateRepo.GetByName(template.Name)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	if existing != nil {
		return ErrTemplateNameTaken
	}

	template.EnsureFieldIDs()
	return s.templateRepo.Create(template)
}

// GetTemplate retrieves a template by ID
func (s *PdfTemplateService) GetTemplate(id string) (*models.PdfTemplate, error) {
	if id == "" {
		return nil, errors.New("template ID is required")
	}
	return s.templateRepo.GetByID(id)
}

// ListTemplates retrieves all extraction templates
func (s *PdfTemplateService) ListTemplates() ([]*models.PdfTemplate, error) {
	return s.templateRepo.List()
}

// UpdateTemplate applies a partial update to a template
func (s *PdfTemplateService) UpdateTemplate(id string, update *models.PdfTemplateUpdate) (*models.PdfTemplate, error) {
	template, err := s.templateRepo.GetByID(id)
	if err != nil {
		return nil, err
	}

	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name != template.Name {
			existing, err := s.templateRepo.GetByName(name)
			if err != nil && !errors.Is(err, sql.ErrNoRows) {
				return nil, err
			}
			if existing != nil {
				return nil, ErrTemplateNameTaken
			}
		}
		template.Name = name
	}
	if update.Description != nil {
		template.Description = *update.Description
	}
	if update.TargetFields != nil {
		template.TargetFields = *update.TargetFields
	}

	if err := template.Validate(); err != nil {
		return nil, err
	}
	template.EnsureFieldIDs()

	if err := s.templateRepo.Update(template); err != nil {
		return nil, err
	}

	return template, nil
}

// DeleteTemplate deletes a template
func (s *PdfTemplateService) DeleteTemplate(id string) error {
	if id == "" {
		return errors.New("template ID is required")
	}
	return s.templateRepo.Delete(id)
}
