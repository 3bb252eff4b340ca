package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/digitool/volerex/internal/middleware"
	"github.com/digitool/volerex/internal/models"
	"github.com/digitool/volerex/internal/services"
)

type EmailTemplateHandler struct {
	templateService *services.EmailTemplateService
	matcher         *services.EmailMatcherService
}

func NewEmailTemplateHandler(templateService *services.EmailTemplateService, matcher *services.EmailMatcherService) *EmailTemplateHandler {
	return &EmailTemplateHandler{
		templateService: templateService,
		matcher:         matcher,
	}
}

// Create handles POST /routes/email-templates
func (h *EmailTemplateHandler) Create(c *gin.Context) {
	var template models.EmailTemplate
	if err := c.ShouldBindJSON(&template); err != nil {
		respondError(c, http.StatusBadRequest, "validation_error", "Invalid request body: "+err.Error())
		return
	}

	if userID, ok := middleware.GetUserIDFromContext(c); ok {
		template.CreatedBy = userID
	}

	if err := h.templateService.CreateTemplate(&template); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, template)
}

// List handles GET /routes/email-templates
func (h *EmailTemplateHandler) List(c *gin.Context) {
	templates, err := h.templateService.ListTemplates()
	if err != nil {
		respondServiceError(c, err)
		return
	}

	if templates == nil {
		templates = []*models.EmailTemplate{}
	}
	c.JSON(http.StatusOK, templates)
}

// Get handles GET /routes/email-templates/:id
func (h *EmailTemplateHandler) Get(c *gin.Context) {
	template, err := h.templateService.GetTemplate(c.Param("id"))
	if err != nil {
		respondServiceError(c, err, "path", "id")
		return
	}

	c.JSON(http.StatusOK, template)
}

// Update handles PUT /routes/email-templates/:id
func (h *EmailTemplateHandler) Update(c *gin.Context) {
	var update models.EmailTemplateUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		respondError(c, http.StatusBadRequest, "validation_error", "Invalid request body: "+err.Error())
		return
	}

	template, err := h.templateService.UpdateTemplate(c.Param("id"), &update)
	if err != nil {
		respondServiceError(c, err, "path", "id")
		return
	}

	c.JSON(http.StatusOK, template)
}

// Delete handles DELETE /routes/email-templates/:id
func (h *EmailTemplateHandler) Delete(c *gin.Context) {
	if err := h.templateService.DeleteTemplate(c.Param("id")); err != nil {
		respondServiceError(c, err, "path", "id")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Email template deleted"})
}

type testMatchRequest struct {
	TemplateID string `form:"template_id"`
	Sender     string `form:"email_sender" binding:"required"`
	Subject    string `form:"email_subject"`
	Content    string `form:"email_content"`
}

// TestMatch handles POST /routes/email-templates/test-match. It runs
// the matcher without touching any state: against one template when a
// template_id is given, otherwise against all active templates.
func (h *EmailTemplateHandler) TestMatch(c *gin.Context) {
	var req testMatchRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondError(c, http.StatusBadRequest, "validation_error", "Invalid query parameters: "+err.Error(), "query")
		return
	}

	var templates []*models.EmailTemplate
	if req.TemplateID != "" {
		template, err := h.templateService.GetTemplate(req.TemplateID)
		if err != nil {
			respondServiceError(c, err, "query", "template_id")
			return
		}
		templates = []*models.EmailTemplate{template}
	} else {
		var err error
		templates, err = h.templateService.ListActiveTemplates()
		if err != nil {
			respondServiceError(c, err)
			return
		}
	}

	match := h.matcher.Match(req.Sender, req.Subject, req.Content, templates)
	if match == nil {
		c.JSON(http.StatusOK, gin.H{"matched": false})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"matched": true,
		"match":   match,
	})
}
