package services

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digitool/volerex/internal/models"
	"github.com/digitool/volerex/internal/repositories"
	"github.com/digitool/volerex/internal/storage"
	"github.com/digitool/volerex/pkg/database"
)

type inboundFixture struct {
	service        *InboundEmailService
	templates      *EmailTemplateService
	emailRepo      *repositories.EmailDocumentRepository
	documentRepo   *repositories.DocumentRepository
	configRepo     *repositories.EmailConfigRepository
	fieldExtractor *fakeFieldExtractor
}

func setupInbound(t *testing.T) *inboundFixture {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.RunSQLScripts(db, "../../migrations"))

	fileStore, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)

	configRepo := repositories.NewEmailConfigRepository(db)
	emailRepo := repositories.NewEmailDocumentRepository(db)
	documentRepo := repositories.NewDocumentRepository(db)
	templates := NewEmailTemplateService(repositories.NewEmailTemplateRepository(db))
	pdfTemplates := NewPdfTemplateService(repositories.NewPdfTemplateRepository(db))
	matcher := NewEmailMatcherService(0.7)

	text := &fakeTextExtractor{text: "Invoice INV-7 amount due 700", pages: 1}
	fields := &fakeFieldExtractor{result: map[string]interface{}{"invoice_number": "INV-7"}}
	extraction := NewExtractionService(pdfTemplates, documentRepo, fileStore, text, fields)

	return &inboundFixture{
		service:        NewInboundEmailService(configRepo, emailRepo, templates, matcher, extraction, fileStore),
		templates:      templates,
		emailRepo:      emailRepo,
		documentRepo:   documentRepo,
		configRepo:     configRepo,
		fieldExtractor: fields,
	}
}

func (f *inboundFixture) createMatchingTemplate(t *testing.T) *models.EmailTemplate {
	t.Helper()

	template := &models.EmailTemplate{
		Name:     "Supplier Invoices",
		IsActive: true,
		MatchingCriteria: models.EmailMatchingCriteria{
			SenderEmails:    []string{"billing@supplier.example"},
			SubjectKeywords: []string{"invoice"},
			RequiredWords:   []string{"amount due"},
		},
		ExtractionFields: []models.EmailExtractionField{
			{FieldName: "invoice_number"},
		},
	}
	require.NoError(t, f.templates.CreateTemplate(template))
	return template
}

func inboundInvoice() *InboundEmail {
	return &InboundEmail{
		Sender:       "billing@supplier.example",
		Subject:      "Invoice INV-7",
		Body:         "amount due 700",
		ReceivedDate: time.Now().UTC(),
		Attachments: []InboundAttachment{
			{Filename: "invoice.pdf", Data: []byte("%PDF")},
		},
	}
}

func TestIngestAutoProcessesConfidentMatches(t *testing.T) {
	f := setupInbound(t)
	template := f.createMatchingTemplate(t)

	email, err := f.service.Ingest(context.Background(), "user-1", "intake@digitool.no", models.ChannelWebhook, inboundInvoice())
	require.NoError(t, err)

	assert.Equal(t, models.EmailStatusCompleted, email.Status)
	require.NotNil(t, email.SuggestedTemplateID)
	assert.Equal(t, template.ID.String(), *email.SuggestedTemplateID)
	require.NotNil(t, email.ConfidenceScore)
	assert.GreaterOrEqual(t, *email.ConfidenceScore, 0.7)

	docs, err := f.documentRepo.List(nil)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, models.SourceEmail, docs[0].Source)
	assert.Equal(t, "INV-7", docs[0].ExtractedData["invoice_number"])

	updated, err := f.templates.GetTemplate(template.ID.String())
	require.NoError(t, err)
	assert.Equal(t, 1, updated.UsageCount)
}

func TestIngestLeavesWeakMatchesForReview(t *testing.T) {
	f := setupInbound(t)

	template := &models.EmailTemplate{
		Name:     "Keyword only",
		IsActive: true,
		MatchingCriteria: models.EmailMatchingCriteria{
			SubjectKeywords: []string{"invoice"},
		},
		ExtractionFields: []models.EmailExtractionField{{FieldName: "invoice_number"}},
	}
	require.NoError(t, f.templates.CreateTemplate(template))

	email, err := f.service.Ingest(context.Background(), "user-1", "", models.ChannelWebhook, inboundInvoice())
	require.NoError(t, err)

	assert.Equal(t, models.EmailStatusSuggested, email.Status)

	docs, err := f.documentRepo.List(nil)
	require.NoError(t, err)
	assert.Empty(t, docs, "no extraction before the suggestion is confirmed")
}

func TestIngestWithoutAnyMatch(t *testing.T) {
	f := setupInbound(t)

	email, err := f.service.Ingest(context.Background(), "user-1", "", models.ChannelWebhook, inboundInvoice())
	require.NoError(t, err)

	assert.Equal(t, models.EmailStatusNew, email.Status)
	assert.Nil(t, email.SuggestedTemplateID)
	assert.Equal(t, 1, email.PdfCount)
}

func TestProcessDocumentManually(t *testing.T) {
	f := setupInbound(t)

	template := &models.EmailTemplate{
		Name:             "Manual",
		IsActive:         true,
		ExtractionFields: []models.EmailExtractionField{{FieldName: "invoice_number"}},
	}
	require.NoError(t, f.templates.CreateTemplate(template))

	email, err := f.service.Ingest(context.Background(), "user-1", "", models.ChannelIMAP, inboundInvoice())
	require.NoError(t, err)
	require.Equal(t, models.EmailStatusNew, email.Status)

	t.Run("Processing without any template fails", func(t *testing.T) {
		_, _, err := f.service.ProcessDocument(context.Background(), email.ID, "")
		assert.ErrorIs(t, err, ErrNoTemplateForEmail)
	})

	t.Run("Explicit template runs extraction", func(t *testing.T) {
		updated, docs, err := f.service.ProcessDocument(context.Background(), email.ID, template.ID.String())
		require.NoError(t, err)

		assert.Equal(t, models.EmailStatusCompleted, updated.Status)
		require.Len(t, docs, 1)
		assert.Equal(t, models.DocumentStatusProcessed, docs[0].Status)
	})

	t.Run("Unknown template is a not-found error", func(t *testing.T) {
		_, _, err := f.service.ProcessDocument(context.Background(), email.ID, "00000000-0000-0000-0000-000000000000")
		assert.ErrorIs(t, err, sql.ErrNoRows)
	})
}

func TestCheckMailboxRequiresConfiguration(t *testing.T) {
	f := setupInbound(t)

	for _, channel := range []string{models.ChannelIMAP, models.ChannelWebhook} {
		_, err := f.service.CheckMailbox(context.Background(), "user-1", channel)
		assert.ErrorIs(t, err, ErrChannelNotConfigured, channel)
	}
}

func TestCheckMailboxPollsBothChannels(t *testing.T) {
	f := setupInbound(t)

	// A configured but unreachable server: the poll must get as far as
	// dialing on either channel instead of short-circuiting.
	for _, channel := range []string{models.ChannelIMAP, models.ChannelWebhook} {
		require.NoError(t, f.configRepo.Upsert(&models.EmailConfig{
			UserID:     "user-1",
			Channel:    channel,
			ImapServer: "127.0.0.1",
			Username:   "intake@digitool.no",
			Password:   "secret",
			Port:       1,
			Enabled:    true,
		}))

		_, err := f.service.CheckMailbox(context.Background(), "user-1", channel)
		assert.ErrorIs(t, err, ErrIMAPConnectionFailed, channel)
	}
}
