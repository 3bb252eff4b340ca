package services

import (
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/digitool/volerex/internal/models"
	"github.com/digitool/volerex/internal/repositories"
	"github.com/digitool/volerex/internal/storage"
	"github.com/digitool/volerex/pkg/logger"
)

var metadataColumns = []string{"Document ID", "Filename", "Processed Date", "Export Count", "Last Exported"}

// ExportService turns batches of processed documents into XLSX
// workbooks, one row per document
type ExportService struct {
	documentRepo       *repositories.DocumentRepository
	pdfTemplateService *PdfTemplateService
	fileStore          *storage.FileStore
}

func NewExportService(documentRepo *repositories.DocumentRepository, pdfTemplateService *PdfTemplateService, fileStore *storage.FileStore) *ExportService {
	return &ExportService{
		documentRepo:       documentRepo,
		pdfTemplateService: pdfTemplateService,
		fileStore:          fileStore,
	}
}

// ExportBatch writes the given documents to a new XLSX file and
// returns its download filename. The batch is all-or-nothing: every id
// must resolve and all documents must share one template.
func (s *ExportService) ExportBatch(ids []string) (string, error) {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return "", ErrNothingToExport
	}

	docs := make([]*models.ProcessedDocument, 0, len(ids))
	byID, err := s.documentRepo.GetByIDs(ids)
	if err != nil {
		return "", err
	}
	for _, id := range ids {
		doc, ok := byID[id]
		if !ok {
			return "", sql.ErrNoRows
		}
		docs = append(docs, doc)
	}

	templateID, templateName, err := sharedTemplate(docs)
	if err != nil {
		return "", err
	}

	columns := s.fieldColumns(templateID, docs)

	filename := exportFilename(templateName)
	path, err := s.fileStore.ExportPath(filename)
	if err != nil {
		return "", err
	}

	if err := writeWorkbook(path, sheetName(templateName), columns, docs); err != nil {
		return "", err
	}

	if err := s.documentRepo.MarkExported(ids, time.Now().UTC()); err != nil {
		return "", err
	}

	logger.WithFields(map[string]interface{}{
		"filename":  filename,
		"documents": len(docs),
	}).Info("Exported document batch")

	return filename, nil
}

// OpenExport resolves a previously generated export file for download
func (s *ExportService) OpenExport(filename string) (string, error) {
	return s.fileStore.OpenExport(filename)
}

func sharedTemplate(docs []*models.ProcessedDocument) (string, string, error) {
	var templateID, templateName string
	for i, doc := range docs {
		id := ""
		if doc.TemplateID != nil {
			id = *doc.TemplateID
		}
		if i == 0 {
			templateID = id
			if doc.TemplateName != nil {
				templateName = *doc.TemplateName
			}
			continue
		}
		if id != templateID {
			return "", "", ErrMixedTemplates
		}
	}
	if templateName == "" {
		templateName = "documents"
	}
	return templateID, templateName, nil
}

// fieldColumns prefers the template's declared fields so exports stay
// stable across documents; without a resolvable template it falls back
// to the union of extracted keys
func (s *ExportService) fieldColumns(templateID string, docs []*models.ProcessedDocument) []string {
	if templateID != "" {
		if template, err := s.pdfTemplateService.GetTemplate(templateID); err == nil {
			names := make([]string, 0, len(template.TargetFields))
			for _, f := range template.TargetFields {
				names = append(names, f.FieldName)
			}
			sort.Strings(names)
			return names
		}
	}

	seen := make(map[string]bool)
	for _, doc := range docs {
		for k := range doc.ExportView() {
			seen[k] = true
		}
	}
	names := make([]string, 0, len(seen))
	for k := range seen {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func writeWorkbook(path, sheet string, columns []string, docs []*models.ProcessedDocument) error {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", sheet)

	header := append(append([]string{}, metadataColumns...), columns...)
	for i, name := range header {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, name); err != nil {
			return err
		}
	}

	for row, doc := range docs {
		lastExported := ""
		if doc.LastExportedDate != nil {
			lastExported = doc.LastExportedDate.Format(time.RFC3339)
		}

		values := make([]interface{}, 0, len(header))
		values = append(values,
			doc.ID,
			doc.OriginalFilename,
			doc.ProcessedDate.Format(time.RFC3339),
			doc.ExportCount,
			lastExported,
		)

		view := doc.ExportView()
		for _, col := range columns {
			values = append(values, view[col])
		}

		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to write export file: %w", err)
	}
	return nil
}

func exportFilename(templateName string) string {
	return fmt.Sprintf("export_%s_%s.xlsx", sanitizeName(templateName), time.Now().UTC().Format("20060102_150405"))
}

// Excel caps sheet names at 31 characters
func sheetName(templateName string) string {
	name := strings.TrimSpace(templateName)
	if name == "" {
		name = "Documents"
	}
	if runes := []rune(name); len(runes) > 31 {
		name = string(runes[:31])
	}
	return name
}

func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "documents"
	}
	return b.String()
}
