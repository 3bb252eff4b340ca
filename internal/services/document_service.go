package services

import (
	"errors"

	"github.com/digitool/volerex/internal/models"
	"github.com/digitool/volerex/internal/repositories"
	"github.com/digitool/volerex/internal/storage"
	"github.com/digitool/volerex/pkg/logger"
)

type DocumentService struct {
	documentRepo *repositories.DocumentRepository
	fileStore    *storage.FileStore
}

func NewDocumentService(documentRepo *repositories.DocumentRepository, fileStore *storage.FileStore) *DocumentService {
	return &DocumentService{
		documentRepo: documentRepo,
		fileStore:    fileStore,
	}
}

// ListDocuments retrieves documents matching the filter
func (s *DocumentService) ListDocuments(filter *models.DocumentFilter) ([]*models.ProcessedDocument, error) {
	return s.documentRepo.List(filter)
}

// GetDocument retrieves a document by ID
func (s *DocumentService) GetDocument(id string) (*models.ProcessedDocument, error) {
	if id == "" {
		return nil, errors.New("document ID is required")
	}
	return s.documentRepo.GetByID(id)
}

// UpdateDocument merges the supplied data and corrections over the
// stored maps. Keys absent from the update are kept, so a partial
// correction never wipes earlier values. Any correction moves the
// document to the corrected status.
func (s *DocumentService) UpdateDocument(id string, extractedData, corrections models.FieldMap) (*models.ProcessedDocument, error) {
	doc, err := s.documentRepo.GetByID(id)
	if err != nil {
		return nil, err
	}

	if extractedData != nil {
		doc.ExtractedData = doc.ExtractedData.Merge(extractedData)
	}
	if corrections != nil {
		doc.Corrections = doc.Corrections.Merge(corrections)
		doc.Status = models.DocumentStatusCorrected
	}

	if err := s.documentRepo.UpdateData(doc); err != nil {
		return nil, err
	}

	return doc, nil
}

// DeleteDocument deletes a document and its stored PDF
func (s *DocumentService) DeleteDocument(id string) error {
	doc, err := s.documentRepo.GetByID(id)
	if err != nil {
		return err
	}

	if err := s.documentRepo.Delete(id); err != nil {
		return err
	}

	if doc.PdfStorageKey != nil {
		if err := s.fileStore.DeletePDF(*doc.PdfStorageKey); err != nil {
			logger.WithField("document_id", id).WithError(err).Warn("Failed to remove stored PDF")
		}
	}

	return nil
}

// DeleteDocuments deletes a batch of documents. The batch is
// all-or-nothing: one unknown id and no document is deleted.
func (s *DocumentService) DeleteDocuments(ids []string) error {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return errors.New("no document ids to delete")
	}

	docs, err := s.documentRepo.GetByIDs(ids)
	if err != nil {
		return err
	}

	if err := s.documentRepo.DeleteBatch(ids); err != nil {
		return err
	}

	for _, doc := range docs {
		if doc.PdfStorageKey != nil {
			if err := s.fileStore.DeletePDF(*doc.PdfStorageKey); err != nil {
				logger.WithField("document_id", doc.ID).WithError(err).Warn("Failed to remove stored PDF")
			}
		}
	}

	return nil
}

// uniqueIDs drops repeated ids, keeping first-seen order, so a batch
// touches each document exactly once
func uniqueIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		unique = append(unique, id)
	}
	return unique
}

// OpenPDF resolves the stored PDF for a document
func (s *DocumentService) OpenPDF(id string) (*models.ProcessedDocument, []byte, error) {
	doc, err := s.documentRepo.GetByID(id)
	if err != nil {
		return nil, nil, err
	}

	if doc.PdfStorageKey == nil {
		return nil, nil, errors.New("document has no stored PDF")
	}

	data, err := s.fileStore.ReadPDF(*doc.PdfStorageKey)
	if err != nil {
		return nil, nil, err
	}

	return doc, data, nil
}
