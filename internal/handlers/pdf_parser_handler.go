package handlers

import (
	"io"
	"net/http"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"github.com/digitool/volerex/internal/middleware"
	"github.com/digitool/volerex/internal/services"
)

// 25 MB upload cap, matching what mail providers accept
const maxUploadBytes = 25 << 20

type PdfParserHandler struct {
	extractionService *services.ExtractionService
}

func NewPdfParserHandler(extractionService *services.ExtractionService) *PdfParserHandler {
	return &PdfParserHandler{
		extractionService: extractionService,
	}
}

// ExtractData handles POST /routes/pdf-parser/extract-data. It takes a
// multipart PDF upload plus an optional template id; without one the
// extraction is generic. Failures return an error and persist nothing.
func (h *PdfParserHandler) ExtractData(c *gin.Context) {
	templateID := c.PostForm("template_id")

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respondError(c, http.StatusBadRequest, "validation_error", "A PDF file is required", "body", "file")
		return
	}
	if fileHeader.Size > maxUploadBytes {
		respondError(c, http.StatusBadRequest, "validation_error", "File is too large", "body", "file")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respondError(c, http.StatusBadRequest, "validation_error", "Could not read uploaded file", "body", "file")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(c, http.StatusBadRequest, "validation_error", "Could not read uploaded file", "body", "file")
		return
	}

	userID, _ := middleware.GetUserIDFromContext(c)
	userEmail, _ := middleware.GetUserEmailFromContext(c)

	doc, err := h.extractionService.ExtractFromUpload(c.Request.Context(), userID, userEmail, fileHeader.Filename, data, templateID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":         "Document processed",
		"document_id":     doc.ID,
		"file_name":       doc.OriginalFilename,
		"extracted_data":  doc.ExtractedData,
		"raw_text_sample": rawTextSample(doc.RawText),
	})
}

// rawTextSample returns the opening slice of the extracted text for
// display next to the extracted fields. The cut lands on a rune
// boundary so the sample stays valid UTF-8.
func rawTextSample(text string) string {
	const sampleLen = 500
	if len(text) <= sampleLen {
		return text
	}
	cut := sampleLen
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}
