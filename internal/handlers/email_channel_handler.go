package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/digitool/volerex/internal/middleware"
	"github.com/digitool/volerex/internal/models"
	"github.com/digitool/volerex/internal/services"
)

// EmailChannelHandler serves one intake channel. The webhook and IMAP
// channels share the same surface, so two instances are registered
// under different route groups.
type EmailChannelHandler struct {
	channel        string
	inboundService *services.InboundEmailService
	configService  *services.EmailConfigService
}

func NewEmailChannelHandler(channel string, inbound *services.InboundEmailService, configService *services.EmailConfigService) *EmailChannelHandler {
	return &EmailChannelHandler{
		channel:        channel,
		inboundService: inbound,
		configService:  configService,
	}
}

// Status handles GET .../status
func (h *EmailChannelHandler) Status(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	status, err := h.configService.ChannelStatus(userID, h.channel)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"channel": h.channel,
		"status":  status,
	})
}

// Check handles POST .../check, polling the channel's mailbox now
func (h *EmailChannelHandler) Check(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	processed, err := h.inboundService.CheckMailbox(c.Request.Context(), userID, h.channel)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"channel":   h.channel,
		"processed": processed,
	})
}

// ListDocuments handles GET .../documents
func (h *EmailChannelHandler) ListDocuments(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	docs, err := h.inboundService.ListEmails(userID, h.channel)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	if docs == nil {
		docs = []*models.EmailDocument{}
	}
	c.JSON(http.StatusOK, docs)
}

// ListPDFs handles GET .../documents/:id/pdfs
func (h *EmailChannelHandler) ListPDFs(c *gin.Context) {
	_, attachments, err := h.inboundService.GetEmail(c.Param("id"))
	if err != nil {
		respondServiceError(c, err, "path", "id")
		return
	}

	if attachments == nil {
		attachments = []*models.EmailAttachment{}
	}
	c.JSON(http.StatusOK, attachments)
}

type processRequest struct {
	TemplateID string `json:"template_id"`
}

// Process handles POST .../documents/:id/process. Without an explicit
// template id the suggested template is used.
func (h *EmailChannelHandler) Process(c *gin.Context) {
	var req processRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "validation_error", "Invalid request body: "+err.Error())
			return
		}
	}

	email, docs, err := h.inboundService.ProcessDocument(c.Request.Context(), c.Param("id"), req.TemplateID)
	if err != nil {
		respondServiceError(c, err, "path", "id")
		return
	}

	if docs == nil {
		docs = []*models.ProcessedDocument{}
	}
	c.JSON(http.StatusOK, gin.H{
		"email":     email,
		"documents": docs,
	})
}

// GetConfig handles GET .../config
func (h *EmailChannelHandler) GetConfig(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	cfg, err := h.configService.GetConfig(userID, h.channel)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, cfg.Status())
}

// SaveConfig handles PUT and POST .../config
func (h *EmailChannelHandler) SaveConfig(c *gin.Context) {
	var update models.EmailConfigUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		respondError(c, http.StatusBadRequest, "validation_error", "Invalid request body: "+err.Error())
		return
	}

	userID, _ := middleware.GetUserIDFromContext(c)

	cfg, err := h.configService.SaveConfig(userID, h.channel, &update)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, cfg.Status())
}

// DeleteConfig handles DELETE .../config
func (h *EmailChannelHandler) DeleteConfig(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	if err := h.configService.DeleteConfig(userID, h.channel); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Configuration removed"})
}

// TestConnection handles POST .../test-connection
func (h *EmailChannelHandler) TestConnection(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	if err := h.inboundService.TestConnection(userID, h.channel); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Connection successful"})
}

type webhookAttachment struct {
	Filename string `json:"filename" binding:"required"`
	Content  []byte `json:"content" binding:"required"`
}

type webhookRequest struct {
	Sender       string              `json:"sender" binding:"required"`
	Subject      string              `json:"subject"`
	Body         string              `json:"body"`
	ReceivedDate *time.Time          `json:"received_date"`
	Attachments  []webhookAttachment `json:"attachments"`
}

// Webhook handles POST /routes/email/webhook, pushing one email into
// intake. Attachments arrive base64 encoded and must be PDFs.
func (h *EmailChannelHandler) Webhook(c *gin.Context) {
	var req webhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "validation_error", "Invalid request body: "+err.Error())
		return
	}

	receivedDate := time.Now().UTC()
	if req.ReceivedDate != nil {
		receivedDate = *req.ReceivedDate
	}

	in := &services.InboundEmail{
		Sender:       req.Sender,
		Subject:      req.Subject,
		Body:         req.Body,
		ReceivedDate: receivedDate,
	}
	for _, att := range req.Attachments {
		in.Attachments = append(in.Attachments, services.InboundAttachment{
			Filename: att.Filename,
			Data:     att.Content,
		})
	}

	userID, _ := middleware.GetUserIDFromContext(c)
	userEmail, _ := middleware.GetUserEmailFromContext(c)

	doc, err := h.inboundService.Ingest(c.Request.Context(), userID, userEmail, h.channel, in)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, doc)
}

