package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/digitool/volerex/internal/models"
	"github.com/digitool/volerex/internal/services"
)

type DocumentHandler struct {
	documentService *services.DocumentService
	exportService   *services.ExportService
}

func NewDocumentHandler(documentService *services.DocumentService, exportService *services.ExportService) *DocumentHandler {
	return &DocumentHandler{
		documentService: documentService,
		exportService:   exportService,
	}
}

// List handles GET /routes/list
func (h *DocumentHandler) List(c *gin.Context) {
	var filter models.DocumentFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		respondError(c, http.StatusBadRequest, "validation_error", "Invalid query parameters: "+err.Error(), "query")
		return
	}

	docs, err := h.documentService.ListDocuments(&filter)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	if docs == nil {
		docs = []*models.ProcessedDocument{}
	}
	c.JSON(http.StatusOK, docs)
}

// Get handles GET /routes/get/:id
func (h *DocumentHandler) Get(c *gin.Context) {
	doc, err := h.documentService.GetDocument(c.Param("id"))
	if err != nil {
		respondServiceError(c, err, "path", "id")
		return
	}

	c.JSON(http.StatusOK, doc)
}

type documentUpdateRequest struct {
	ExtractedData models.FieldMap `json:"extracted_data"`
	Corrections   models.FieldMap `json:"corrections"`
}

// Update handles PUT /routes/update/:id. Supplied keys are merged over
// the stored data; omitted keys are untouched.
func (h *DocumentHandler) Update(c *gin.Context) {
	var req documentUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "validation_error", "Invalid request body: "+err.Error())
		return
	}

	doc, err := h.documentService.UpdateDocument(c.Param("id"), req.ExtractedData, req.Corrections)
	if err != nil {
		respondServiceError(c, err, "path", "id")
		return
	}

	c.JSON(http.StatusOK, doc)
}

// Delete handles DELETE /routes/delete/:id
func (h *DocumentHandler) Delete(c *gin.Context) {
	if err := h.documentService.DeleteDocument(c.Param("id")); err != nil {
		respondServiceError(c, err, "path", "id")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Document deleted"})
}

type batchRequest struct {
	DocumentIDs []string `json:"document_ids" binding:"required"`
}

// DeleteBatch handles POST /routes/delete-batch. The batch is
// all-or-nothing.
func (h *DocumentHandler) DeleteBatch(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "validation_error", "Invalid request body: "+err.Error())
		return
	}

	if err := h.documentService.DeleteDocuments(req.DocumentIDs); err != nil {
		respondServiceError(c, err, "body", "document_ids")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Documents deleted",
		"deleted": len(req.DocumentIDs),
	})
}

// ExportBatch handles POST /routes/export-batch
func (h *DocumentHandler) ExportBatch(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "validation_error", "Invalid request body: "+err.Error())
		return
	}

	filename, err := h.exportService.ExportBatch(req.DocumentIDs)
	if err != nil {
		respondServiceError(c, err, "body", "document_ids")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":        "Export generated",
		"filename":       filename,
		"download_url":   "/routes/download-export/" + filename,
		"document_count": len(req.DocumentIDs),
	})
}

// DownloadExport handles GET /routes/download-export/:filename
func (h *DocumentHandler) DownloadExport(c *gin.Context) {
	path, err := h.exportService.OpenExport(c.Param("filename"))
	if err != nil {
		respondServiceError(c, err, "path", "filename")
		return
	}

	c.FileAttachment(path, c.Param("filename"))
}

// DownloadPDF handles GET /routes/download-pdf/:document_id
func (h *DocumentHandler) DownloadPDF(c *gin.Context) {
	doc, data, err := h.documentService.OpenPDF(c.Param("document_id"))
	if err != nil {
		respondServiceError(c, err, "path", "document_id")
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+doc.OriginalFilename+`"`)
	c.Data(http.StatusOK, "application/pdf", data)
}
