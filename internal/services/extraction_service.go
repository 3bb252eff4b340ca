package services

import (
	"context"
	"time"

	"github.com/digitool/volerex/internal/ai"
	"github.com/digitool/volerex/internal/models"
	"github.com/digitool/volerex/internal/repositories"
	"github.com/digitool/volerex/internal/storage"
	"github.com/digitool/volerex/pkg/logger"
)

// TextExtractor turns PDF bytes into plain text
type TextExtractor interface {
	Extract(data []byte) (text string, pageCount int, err error)
}

// FieldExtractor pulls named fields out of document text
type FieldExtractor interface {
	ExtractFields(ctx context.Context, text string, fields []ai.FieldSpec) (map[string]interface{}, error)
	IsConfigured() bool
}

// ExtractionService runs the PDF-to-structured-data pipeline for both
// direct uploads and email attachments
type ExtractionService struct {
	pdfTemplateService *PdfTemplateService
	documentRepo       *repositories.DocumentRepository
	fileStore          *storage.FileStore
	textExtractor      TextExtractor
	fieldExtractor     FieldExtractor
}

func NewExtractionService(
	pdfTemplateService *PdfTemplateService,
	documentRepo *repositories.DocumentRepository,
	fileStore *storage.FileStore,
	textExtractor TextExtractor,
	fieldExtractor FieldExtractor,
) *ExtractionService {
	return &ExtractionService{
		pdfTemplateService: pdfTemplateService,
		documentRepo:       documentRepo,
		fileStore:          fileStore,
		textExtractor:      textExtractor,
		fieldExtractor:     fieldExtractor,
	}
}

// ExtractFromUpload runs extraction for a directly uploaded PDF. Any
// failure is returned to the caller and nothing is persisted. Without
// a template id the extraction is generic: the AI decides which fields
// the document carries.
func (s *ExtractionService) ExtractFromUpload(ctx context.Context, userID, userEmail, filename string, data []byte, templateID string) (*models.ProcessedDocument, error) {
	var template *models.PdfTemplate
	if templateID != "" {
		var err error
		template, err = s.pdfTemplateService.GetTemplate(templateID)
		if err != nil {
			return nil, err
		}
	}

	text, pageCount, err := s.textExtractor.Extract(data)
	if err != nil {
		return nil, err
	}

	var fields []ai.FieldSpec
	if template != nil {
		fields = make([]ai.FieldSpec, 0, len(template.TargetFields))
		for _, f := range template.TargetFields {
			fields = append(fields, ai.FieldSpec{Name: f.FieldName, Hint: f.AIHint})
		}
	}

	extracted, err := s.fieldExtractor.ExtractFields(ctx, text, fields)
	if err != nil {
		return nil, err
	}

	storageKey, err := s.fileStore.SavePDF(filename, data)
	if err != nil {
		return nil, err
	}

	doc := &models.ProcessedDocument{
		Source:           models.SourceFileUpload,
		OriginalFilename: filename,
		ExtractedData:    extracted,
		RawText:          text,
		Status:           models.DocumentStatusProcessed,
		UserID:           userID,
		UserEmail:        userEmail,
		PdfStorageKey:    &storageKey,
		PageCount:        pageCount,
	}
	if template != nil {
		templateIDStr := template.ID.String()
		doc.TemplateID = &templateIDStr
		doc.TemplateName = &template.Name
	}

	if err := s.documentRepo.Create(doc); err != nil {
		return nil, err
	}

	logFields := map[string]interface{}{
		"document_id": doc.ID,
		"pages":       pageCount,
	}
	if template != nil {
		logFields["template"] = template.Name
	}
	logger.WithFields(logFields).Info("Processed uploaded PDF")

	return doc, nil
}

// ExtractFromEmail runs extraction for a PDF that arrived by email.
// Failures after text was read are recorded as an error document so
// the intake pipeline keeps a trace of what went wrong.
func (s *ExtractionService) ExtractFromEmail(ctx context.Context, email *models.EmailDocument, filename string, data []byte, template *models.EmailTemplate) (*models.ProcessedDocument, error) {
	templateID := template.ID.String()
	receivedDate := email.ReceivedDate

	doc := &models.ProcessedDocument{
		Source:            models.SourceEmail,
		OriginalFilename:  filename,
		TemplateID:        &templateID,
		TemplateName:      &template.Name,
		ExtractedData:     models.FieldMap{},
		UserID:            email.UserID,
		EmailSender:       &email.Sender,
		EmailSubject:      &email.Subject,
		EmailReceivedDate: &receivedDate,
		EmailAddress:      email.EmailAddress,
	}

	text, pageCount, err := s.textExtractor.Extract(data)
	if err != nil {
		return s.persistEmailFailure(doc, err)
	}
	doc.RawText = text
	doc.PageCount = pageCount

	fields := make([]ai.FieldSpec, 0, len(template.ExtractionFields))
	for _, f := range template.ExtractionFields {
		fields = append(fields, ai.FieldSpec{Name: f.FieldName, Hint: f.AIHint})
	}

	extracted, err := s.fieldExtractor.ExtractFields(ctx, text, fields)
	if err != nil {
		return s.persistEmailFailure(doc, err)
	}
	doc.ExtractedData = extracted

	storageKey, err := s.fileStore.SavePDF(filename, data)
	if err != nil {
		return s.persistEmailFailure(doc, err)
	}
	doc.PdfStorageKey = &storageKey

	doc.Status = models.DocumentStatusProcessed
	doc.ProcessedDate = time.Now().UTC()

	if err := s.documentRepo.Create(doc); err != nil {
		return nil, err
	}

	return doc, nil
}

func (s *ExtractionService) persistEmailFailure(doc *models.ProcessedDocument, cause error) (*models.ProcessedDocument, error) {
	msg := cause.Error()
	doc.Status = models.DocumentStatusError
	doc.ErrorMessage = &msg

	if err := s.documentRepo.Create(doc); err != nil {
		return nil, err
	}

	logger.WithFields(map[string]interface{}{
		"document_id": doc.ID,
		"filename":    doc.OriginalFilename,
	}).WithError(cause).Error("Email attachment extraction failed")

	return doc, cause
}
