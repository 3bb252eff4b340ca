package services

import (
	"errors"
	"strings"

	"github.com/digitool/volerex/internal/models"
	"github.com/digitool/volerex/internal/repositories"
)

type EmailTemplateService struct {
	templateRepo *repositories.EmailTemplateRepository
}

func NewEmailTemplateService(templateRepo *repositories.EmailTemplateRepository) *EmailTemplateService {
	return &EmailTemplateService{
		templateRepo: templateRepo,
	}
}

// CreateTemplate creates a new email matching template
func (s *EmailTemplateService) CreateTemplate(template *models.EmailTemplate) error {
	template.Name = strings.TrimSpace(template.Name)

	if err := template.Validate(); err != nil {
		return err
	}

	template.EnsureFieldIDs()
	return s.templateRepo.Create(template)
}

// GetTemplate retrieves an email template by ID
func (s *EmailTemplateService) GetTemplate(id string) (*models.EmailTemplate, error) {
	if id == "" {
		return nil, errors.New("template ID is required")
	}
	return s.templateRepo.GetByID(id)
}

// ListTemplates retrieves all email templates
func (s *EmailTemplateService) ListTemplates() ([]*models.EmailTemplate, error) {
	return s.templateRepo.List()
}

// ListActiveTemplates retrieves the templates eligible for matching
func (s *EmailTemplateService) ListActiveTemplates() ([]*models.EmailTemplate, error) {
	return s.templateRepo.ListActive()
}

// UpdateTemplate applies a partial update to an email template.
// Fields absent from the update keep their stored values.
func (s *EmailTemplateService) UpdateTemplate(id string, update *models.EmailTemplateUpdate) (*models.EmailTemplate, error) {
	template, err := s.templateRepo.GetByID(id)
	if err != nil {
		return nil, err
	}

	if update.Name != nil {
		template.Name = strings.TrimSpace(*update.Name)
	}
	if update.Description != nil {
		template.Description = *update.Description
	}
	if update.IsActive != nil {
		template.IsActive = *update.IsActive
	}
	if update.MatchingCriteria != nil {
		template.MatchingCriteria = *update.MatchingCriteria
	}
	if update.ExtractionFields != nil {
		template.ExtractionFields = *update.ExtractionFields
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

// RecordUsage bumps a template's usage counter after an extraction
func (s *EmailTemplateService) RecordUsage(id string) error {
	return s.templateRepo.IncrementUsage(id)
}

// DeleteTemplate deletes an email template
func (s *EmailTemplateService) DeleteTemplate(id string) error {
	if id == "" {
		return errors.New("template ID is required")
	}
	return s.templateRepo.Delete(id)
}
