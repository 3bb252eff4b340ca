package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"

	"github.com/digitool/volerex/internal/models"
	"github.com/digitool/volerex/internal/repositories"
	"github.com/digitool/volerex/internal/storage"
	"github.com/digitool/volerex/pkg/logger"
)

var (
	// ErrIMAPConnectionFailed indicates the IMAP server could not be reached
	ErrIMAPConnectionFailed = errors.New("IMAP connection failed")
	// ErrNoTemplateForEmail indicates processing was requested without a template
	ErrNoTemplateForEmail = errors.New("no template available for this email")
)

const defaultLookback = 30 * 24 * time.Hour

// InboundAttachment is one PDF pulled from an inbound email
type InboundAttachment struct {
	Filename string
	Data     []byte
}

// InboundEmail is an email entering the intake pipeline, from either
// the webhook or the IMAP poller
type InboundEmail struct {
	Sender       string
	Subject      string
	Body         string
	ReceivedDate time.Time
	Attachments  []InboundAttachment
}

// InboundEmailService runs the email intake pipeline: record the
// email, store its PDFs, suggest a template, and extract when the
// match is confident enough
type InboundEmailService struct {
	configRepo      *repositories.EmailConfigRepository
	emailRepo       *repositories.EmailDocumentRepository
	templateService *EmailTemplateService
	matcher         *EmailMatcherService
	extraction      *ExtractionService
	fileStore       *storage.FileStore
}

func NewInboundEmailService(
	configRepo *repositories.EmailConfigRepository,
	emailRepo *repositories.EmailDocumentRepository,
	templateService *EmailTemplateService,
	matcher *EmailMatcherService,
	extraction *ExtractionService,
	fileStore *storage.FileStore,
) *InboundEmailService {
	return &InboundEmailService{
		configRepo:      configRepo,
		emailRepo:       emailRepo,
		templateService: templateService,
		matcher:         matcher,
		extraction:      extraction,
		fileStore:       fileStore,
	}
}

// Ingest records an inbound email, stores its PDF attachments, and
// runs template matching. A confident match triggers extraction right
// away; weaker matches wait for manual confirmation.
func (s *InboundEmailService) Ingest(ctx context.Context, userID, emailAddress, channel string, in *InboundEmail) (*models.EmailDocument, error) {
	if !models.ValidChannel(channel) {
		return nil, errors.New("unknown email channel")
	}

	doc := &models.EmailDocument{
		Channel:      channel,
		Sender:       in.Sender,
		Subject:      in.Subject,
		ReceivedDate: in.ReceivedDate,
		PdfCount:     len(in.Attachments),
		Status:       models.EmailStatusNew,
		UserID:       userID,
	}
	if emailAddress != "" {
		doc.EmailAddress = &emailAddress
	}

	if err := s.emailRepo.Create(doc); err != nil {
		return nil, err
	}

	for i, att := range in.Attachments {
		key, err := s.fileStore.SavePDF(att.Filename, att.Data)
		if err != nil {
			return nil, err
		}
		record := &models.EmailAttachment{
			EmailDocumentID: doc.ID,
			Index:           i,
			Filename:        att.Filename,
			StorageKey:      key,
			SizeBytes:       int64(len(att.Data)),
		}
		if err := s.emailRepo.AddAttachment(record); err != nil {
			return nil, err
		}
	}

	templates, err := s.templateService.ListActiveTemplates()
	if err != nil {
		return nil, err
	}

	match := s.matcher.Match(in.Sender, in.Subject, in.Body, templates)
	if match == nil {
		return s.emailRepo.GetByID(doc.ID)
	}

	templateID := match.TemplateID
	reasoning := strings.Join(match.MatchReasons, "; ")
	analysis := &models.EmailAnalysis{
		SuggestedTemplateID: &templateID,
		ConfidenceScore:     &match.ConfidenceScore,
		Reasoning:           &reasoning,
	}

	status := models.EmailStatusSuggested
	if match.AutoProcessable {
		status = models.EmailStatusReadyForAuto
	}
	if err := s.emailRepo.SetAnalysis(doc.ID, status, analysis); err != nil {
		return nil, err
	}

	if match.AutoProcessable {
		if _, _, err := s.ProcessDocument(ctx, doc.ID, templateID); err != nil {
			logger.WithField("email_id", doc.ID).WithError(err).Error("Auto processing failed")
		}
	}

	return s.emailRepo.GetByID(doc.ID)
}

// ProcessDocument runs extraction over every stored attachment of an
// inbound email. An explicit template id wins over the suggested one.
func (s *InboundEmailService) ProcessDocument(ctx context.Context, emailID, templateID string) (*models.EmailDocument, []*models.ProcessedDocument, error) {
	email, err := s.emailRepo.GetByID(emailID)
	if err != nil {
		return nil, nil, err
	}

	if templateID == "" {
		if email.SuggestedTemplateID == nil {
			return nil, nil, ErrNoTemplateForEmail
		}
		templateID = *email.SuggestedTemplateID
	}

	template, err := s.templateService.GetTemplate(templateID)
	if err != nil {
		return nil, nil, err
	}

	attachments, err := s.emailRepo.ListAttachments(emailID)
	if err != nil {
		return nil, nil, err
	}

	if err := s.emailRepo.UpdateStatus(emailID, models.EmailStatusProcessing, nil); err != nil {
		return nil, nil, err
	}

	var docs []*models.ProcessedDocument
	var failures []string
	for _, att := range attachments {
		data, err := s.fileStore.ReadPDF(att.StorageKey)
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", att.Filename, err))
			continue
		}

		doc, err := s.extraction.ExtractFromEmail(ctx, email, att.Filename, data, template)
		if doc != nil {
			docs = append(docs, doc)
		}
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", att.Filename, err))
		}
	}

	if len(failures) > 0 {
		msg := strings.Join(failures, "; ")
		if err := s.emailRepo.UpdateStatus(emailID, models.EmailStatusError, &msg); err != nil {
			return nil, docs, err
		}
	} else {
		if err := s.emailRepo.UpdateStatus(emailID, models.EmailStatusCompleted, nil); err != nil {
			return nil, docs, err
		}
		if err := s.templateService.RecordUsage(templateID); err != nil {
			logger.WithField("template_id", templateID).WithError(err).Warn("Failed to record template usage")
		}
	}

	updated, err := s.emailRepo.GetByID(emailID)
	return updated, docs, err
}

// ListEmails retrieves a user's inbound emails on one channel
func (s *InboundEmailService) ListEmails(userID, channel string) ([]*models.EmailDocument, error) {
	if !models.ValidChannel(channel) {
		return nil, errors.New("unknown email channel")
	}
	return s.emailRepo.ListByChannel(userID, channel)
}

// GetEmail retrieves one inbound email with its attachments
func (s *InboundEmailService) GetEmail(id string) (*models.EmailDocument, []*models.EmailAttachment, error) {
	email, err := s.emailRepo.GetByID(id)
	if err != nil {
		return nil, nil, err
	}
	attachments, err := s.emailRepo.ListAttachments(id)
	if err != nil {
		return nil, nil, err
	}
	return email, attachments, nil
}

// CheckMailbox polls the channel's configured mailbox for new emails
// with PDF attachments and runs each through intake. Both channels
// poll the same way; only the stored config differs. The check
// timestamp only advances when the whole poll succeeds.
func (s *InboundEmailService) CheckMailbox(ctx context.Context, userID, channel string) (int, error) {
	if !models.ValidChannel(channel) {
		return 0, errors.New("unknown email channel")
	}
	cfg, err := s.configRepo.Get(userID, channel)
	if err != nil {
		return 0, ErrChannelNotConfigured
	}
	if !cfg.IsConfigured() || !cfg.Enabled {
		return 0, ErrChannelNotConfigured
	}

	since := time.Now().Add(-defaultLookback)
	if cfg.LastCheck != nil {
		since = *cfg.LastCheck
	}

	emails, err := s.fetchIMAP(cfg, since)
	if err != nil {
		return 0, err
	}

	processed := 0
	for _, in := range emails {
		if len(in.Attachments) == 0 {
			continue
		}
		if _, err := s.Ingest(ctx, userID, cfg.Username, channel, in); err != nil {
			return processed, err
		}
		processed++
	}

	if err := s.configRepo.RecordCheck(userID, channel, processed); err != nil {
		return processed, err
	}

	logger.WithFields(map[string]interface{}{
		"user_id":   userID,
		"channel":   channel,
		"processed": processed,
	}).Info("Mailbox check completed")

	return processed, nil
}

// TestConnection verifies the IMAP credentials and records the result
func (s *InboundEmailService) TestConnection(userID, channel string) error {
	cfg, err := s.configRepo.Get(userID, channel)
	if err != nil {
		return ErrChannelNotConfigured
	}
	if !cfg.IsConfigured() {
		return ErrChannelNotConfigured
	}

	c, err := s.connect(cfg)
	if err == nil {
		c.Logout()
	}

	status := "success"
	if err != nil {
		status = "failed"
	}
	if recordErr := s.configRepo.RecordTest(userID, channel, status); recordErr != nil {
		return recordErr
	}

	return err
}

func (s *InboundEmailService) connect(cfg *models.EmailConfig) (*client.Client, error) {
	addr := fmt.Sprintf("%s:%d", cfg.ImapServer, cfg.Port)

	var c *client.Client
	var err error
	if cfg.UseSSL {
		c, err = client.DialTLS(addr, nil)
	} else {
		c, err = client.Dial(addr)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIMAPConnectionFailed, err)
	}

	c.Timeout = 2 * time.Minute

	if err := c.Login(cfg.Username, cfg.Password); err != nil {
		c.Logout()
		return nil, fmt.Errorf("%w: login failed: %v", ErrIMAPConnectionFailed, err)
	}

	return c, nil
}

func (s *InboundEmailService) fetchIMAP(cfg *models.EmailConfig, since time.Time) ([]*InboundEmail, error) {
	c, err := s.connect(cfg)
	if err != nil {
		return nil, err
	}
	defer c.Logout()

	mbox, err := c.Select("INBOX", false)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIMAPConnectionFailed, err)
	}
	if mbox.Messages == 0 {
		return nil, nil
	}

	criteria := imap.NewSearchCriteria()
	criteria.Since = since
	criteria.WithoutFlags = []string{imap.SeenFlag}
	seqNums, err := c.Search(criteria)
	if err != nil {
		return nil, fmt.Errorf("%w: search failed: %v", ErrIMAPConnectionFailed, err)
	}
	if len(seqNums) == 0 {
		return nil, nil
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(seqNums...)

	// Fetching the body without Peek marks the message seen, so a
	// later check will not pick it up again
	section := &imap.BodySectionName{}
	items := []imap.FetchItem{imap.FetchEnvelope, section.FetchItem()}

	messages := make(chan *imap.Message, 10)
	done := make(chan error, 1)
	go func() {
		done <- c.Fetch(seqSet, items, messages)
	}()

	var emails []*InboundEmail
	for msg := range messages {
		in := parseIMAPMessage(msg, section)
		if in != nil {
			emails = append(emails, in)
		}
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("%w: fetch failed: %v", ErrIMAPConnectionFailed, err)
	}

	return emails, nil
}

func parseIMAPMessage(msg *imap.Message, section *imap.BodySectionName) *InboundEmail {
	in := &InboundEmail{}

	if msg.Envelope != nil {
		in.Subject = msg.Envelope.Subject
		in.ReceivedDate = msg.Envelope.Date
		if len(msg.Envelope.From) > 0 {
			in.Sender = msg.Envelope.From[0].Address()
		}
	}
	if in.ReceivedDate.IsZero() {
		in.ReceivedDate = time.Now().UTC()
	}

	r := msg.GetBody(section)
	if r == nil {
		return in
	}

	entity, err := message.Read(r)
	if err != nil {
		return in
	}

	parseMessageEntity(entity, in)
	return in
}

// parseMessageEntity recursively walks the MIME tree, collecting the
// plain text body and PDF attachments
func parseMessageEntity(entity *message.Entity, in *InboundEmail) {
	mediaType, params, _ := entity.Header.ContentType()

	if strings.HasPrefix(mediaType, "multipart/") {
		mr := entity.MultipartReader()
		for {
			part, err := mr.NextPart()
			if err != nil {
				break
			}
			parseMessageEntity(part, in)
		}
		return
	}

	if mediaType == "text/plain" && in.Body == "" {
		body, _ := io.ReadAll(entity.Body)
		in.Body = string(body)
		return
	}

	filename := partFilename(entity, params)
	if mediaType != "application/pdf" && !strings.HasSuffix(strings.ToLower(filename), ".pdf") {
		return
	}

	data, err := io.ReadAll(entity.Body)
	if err != nil || len(data) == 0 {
		return
	}
	if filename == "" {
		filename = "attachment.pdf"
	}

	in.Attachments = append(in.Attachments, InboundAttachment{
		Filename: filename,
		Data:     data,
	})
}

func partFilename(entity *message.Entity, params map[string]string) string {
	var filename string

	if disposition := entity.Header.Get("Content-Disposition"); disposition != "" {
		if _, dispParams, err := mime.ParseMediaType(disposition); err == nil {
			filename = dispParams["filename"]
		}
	}
	if filename == "" {
		filename = params["name"]
	}

	if filename != "" {
		dec := new(mime.WordDecoder)
		if decoded, err := dec.DecodeHeader(filename); err == nil {
			filename = decoded
		}
	}

	return filename
}
