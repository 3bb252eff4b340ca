package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/digitool/volerex/internal/models"
	"github.com/digitool/volerex/internal/services"
)

type PdfTemplateHandler struct {
	templateService *services.PdfTemplateService
}

func NewPdfTemplateHandler(templateService *services.PdfTemplateService) *PdfTemplateHandler {
	return &PdfTemplateHandler{
		templateService: templateService,
	}
}

// Create handles POST /routes/templates
func (h *PdfTemplateHandler) Create(c *gin.Context) {
	var template models.PdfTemplate
	if err := c.ShouldBindJSON(&template); err != nil {
		respondError(c, http.StatusBadRequest, "validation_error", "Invalid request body: "+err.Error())
		return
	}

	if err := h.templateService.CreateTemplate(&template); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, template)
}

// List handles GET /routes/templates
func (h *PdfTemplateHandler) List(c *gin.Context) {
	templates, err := h.templateService.ListTemplates()
	if err != nil {
		respondServiceError(c, err)
		return
	}

	if templates == nil {
		templates = []*models.PdfTemplate{}
	}
	c.JSON(http.StatusOK, templates)
}

// Get handles GET /routes/templates/:id
func (h *PdfTemplateHandler) Get(c *gin.Context) {
	template, err := h.templateService.GetTemplate(c.Param("id"))
	if err != nil {
		respondServiceError(c, err, "path", "id")
		return
	}

	c.JSON(http.StatusOK, template)
}

// Update handles PUT /routes/templates/:id
func (h *PdfTemplateHandler) Update(c *gin.Context) {
	var update models.PdfTemplateUpdate
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

// Delete handles DELETE /routes/templates/:id
func (h *PdfTemplateHandler) Delete(c *gin.Context) {
	if err := h.templateService.DeleteTemplate(c.Param("id")); err != nil {
		respondServiceError(c, err, "path", "id")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Template deleted"})
}
