package services

import (
	"database/sql"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/digitool/volerex/internal/models"
	"github.com/digitool/volerex/internal/repositories"
	"github.com/digitool/volerex/internal/storage"
	"github.com/digitool/volerex/pkg/database"
)

type exportFixture struct {
	service      *ExportService
	documentRepo *repositories.DocumentRepository
	templates    *PdfTemplateService
	dataDir      string
}

func setupExport(t *testing.T) *exportFixture {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.RunSQLScripts(db, "../../migrations"))

	dataDir := t.TempDir()
	fileStore, err := storage.NewFileStore(dataDir)
	require.NoError(t, err)

	documentRepo := repositories.NewDocumentRepository(db)
	templates := NewPdfTemplateService(repositories.NewPdfTemplateRepository(db))

	return &exportFixture{
		service:      NewExportService(documentRepo, templates, fileStore),
		documentRepo: documentRepo,
		templates:    templates,
		dataDir:      dataDir,
	}
}

func (f *exportFixture) createDocument(t *testing.T, templateID, templateName string, data models.FieldMap, corrections models.FieldMap) *models.ProcessedDocument {
	t.Helper()

	doc := &models.ProcessedDocument{
		Source:           models.SourceFileUpload,
		OriginalFilename: "doc.pdf",
		TemplateID:       &templateID,
		TemplateName:     &templateName,
		ExtractedData:    data,
		Corrections:      corrections,
		Status:           models.DocumentStatusProcessed,
		UserID:           "user-1",
	}
	require.NoError(t, f.documentRepo.Create(doc))
	return doc
}

func TestExportBatch(t *testing.T) {
	t.Run("Exports template columns with corrections applied", func(t *testing.T) {
		f := setupExport(t)

		template := createInvoiceTemplate(t, f.templates)
		templateID := template.ID.String()

		first := f.createDocument(t, templateID, template.Name,
			models.FieldMap{"invoice_number": "INV-1", "total": 100.0}, nil)
		second := f.createDocument(t, templateID, template.Name,
			models.FieldMap{"invoice_number": "INV-2", "total": 200.0},
			models.FieldMap{"total": 250.0})

		filename, err := f.service.ExportBatch([]string{first.ID, second.ID})
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(filename, "export_Invoices_"))
		assert.True(t, strings.HasSuffix(filename, ".xlsx"))

		wb, err := excelize.OpenFile(filepath.Join(f.dataDir, "exports", filename))
		require.NoError(t, err)
		defer wb.Close()

		rows, err := wb.GetRows("Invoices")
		require.NoError(t, err)
		require.Len(t, rows, 3)

		// The metadata block leads, then the field columns sorted
		assert.Equal(t, "Document ID", rows[0][0])
		assert.Equal(t, "Filename", rows[0][1])
		assert.Equal(t, "invoice_number", rows[0][5])
		assert.Equal(t, "total", rows[0][6])

		assert.Equal(t, first.ID, rows[1][0])
		assert.Equal(t, "INV-1", rows[1][5])
		assert.Equal(t, "100", rows[1][6])
		assert.Equal(t, "250", rows[2][6], "corrections overlay the extracted value")

		stored, err := f.documentRepo.GetByID(first.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, stored.ExportCount)
		assert.Equal(t, models.DocumentStatusExported, stored.Status)
		require.NotNil(t, stored.LastExportedDate)
	})

	t.Run("Unknown id aborts the whole batch", func(t *testing.T) {
		f := setupExport(t)
		template := createInvoiceTemplate(t, f.templates)
		doc := f.createDocument(t, template.ID.String(), template.Name, models.FieldMap{"total": 1.0}, nil)

		_, err := f.service.ExportBatch([]string{doc.ID, "missing"})
		assert.ErrorIs(t, err, sql.ErrNoRows)

		stored, getErr := f.documentRepo.GetByID(doc.ID)
		require.NoError(t, getErr)
		assert.Equal(t, 0, stored.ExportCount)
		assert.Equal(t, models.DocumentStatusProcessed, stored.Status)
	})

	t.Run("Mixed templates are rejected", func(t *testing.T) {
		f := setupExport(t)
		first := f.createDocument(t, "template-a", "A", models.FieldMap{"x": 1.0}, nil)
		second := f.createDocument(t, "template-b", "B", models.FieldMap{"x": 2.0}, nil)

		_, err := f.service.ExportBatch([]string{first.ID, second.ID})
		assert.ErrorIs(t, err, ErrMixedTemplates)
	})

	t.Run("Empty batch is rejected", func(t *testing.T) {
		f := setupExport(t)

		_, err := f.service.ExportBatch(nil)
		assert.ErrorIs(t, err, ErrNothingToExport)
	})

	t.Run("Repeated ids count once", func(t *testing.T) {
		f := setupExport(t)
		template := createInvoiceTemplate(t, f.templates)
		doc := f.createDocument(t, template.ID.String(), template.Name,
			models.FieldMap{"invoice_number": "INV-1", "total": 1.0}, nil)

		filename, err := f.service.ExportBatch([]string{doc.ID, doc.ID})
		require.NoError(t, err)

		wb, err := excelize.OpenFile(filepath.Join(f.dataDir, "exports", filename))
		require.NoError(t, err)
		defer wb.Close()

		rows, err := wb.GetRows("Invoices")
		require.NoError(t, err)
		assert.Len(t, rows, 2, "one header and one document row")

		stored, err := f.documentRepo.GetByID(doc.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, stored.ExportCount)
	})

	t.Run("Sheet name keeps whole runes at the 31 character cap", func(t *testing.T) {
		name := sheetName(strings.Repeat("Ø", 40))
		assert.Equal(t, 31, utf8.RuneCountInString(name))
		assert.True(t, utf8.ValidString(name))
	})

	t.Run("Falls back to key union without a stored template", func(t *testing.T) {
		f := setupExport(t)
		doc := f.createDocument(t, "gone-template", "Old invoices",
			models.FieldMap{"b_field": "2", "a_field": "1"}, nil)

		filename, err := f.service.ExportBatch([]string{doc.ID})
		require.NoError(t, err)

		wb, err := excelize.OpenFile(filepath.Join(f.dataDir, "exports", filename))
		require.NoError(t, err)
		defer wb.Close()

		rows, err := wb.GetRows("Old invoices")
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, "a_field", rows[0][5])
		assert.Equal(t, "b_field", rows[0][6])
	})
}
