package handlers

import (
	"database/sql"
	"errors"
	"io/fs"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/digitool/volerex/internal/ai"
	"github.com/digitool/volerex/internal/models"
	"github.com/digitool/volerex/internal/pdftext"
	"github.com/digitool/volerex/internal/services"
	"github.com/digitool/volerex/internal/storage"
)

// ErrorDetail is one entry of the uniform error payload. Every error
// response carries a detail list so clients parse a single shape.
type ErrorDetail struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Detail []ErrorDetail `json:"detail"`
}

func respondError(c *gin.Context, status int, errType, msg string, loc ...string) {
	if len(loc) == 0 {
		loc = []string{"body"}
	}
	c.JSON(status, ErrorResponse{
		Detail: []ErrorDetail{
			{Loc: loc, Msg: msg, Type: errType},
		},
	})
}

// respondServiceError maps domain errors onto HTTP statuses
func respondServiceError(c *gin.Context, err error, loc ...string) {
	var validationErr *models.ValidationError

	switch {
	case errors.Is(err, sql.ErrNoRows), errors.Is(err, fs.ErrNotExist):
		respondError(c, http.StatusNotFound, "not_found", "Resource not found", loc...)
	case errors.As(err, &validationErr):
		respondError(c, http.StatusBadRequest, "validation_error", err.Error(), loc...)
	case errors.Is(err, services.ErrTemplateNameTaken):
		respondError(c, http.StatusConflict, "conflict", err.Error(), loc...)
	case errors.Is(err, services.ErrMixedTemplates),
		errors.Is(err, services.ErrNothingToExport),
		errors.Is(err, services.ErrNoTemplateForEmail),
		errors.Is(err, pdftext.ErrNotPDF),
		errors.Is(err, pdftext.ErrNoText),
		errors.Is(err, storage.ErrInvalidFilename):
		respondError(c, http.StatusBadRequest, "validation_error", err.Error(), loc...)
	case errors.Is(err, services.ErrChannelNotConfigured):
		respondError(c, http.StatusBadRequest, "configuration_error", err.Error(), loc...)
	case errors.Is(err, ai.ErrNotConfigured):
		respondError(c, http.StatusBadRequest, "configuration_error", "AI extraction is not configured", loc...)
	case errors.Is(err, ai.ErrAPICallFailed), errors.Is(err, ai.ErrInvalidResponse):
		respondError(c, http.StatusServiceUnavailable, "upstream_error", err.Error(), loc...)
	case errors.Is(err, services.ErrIMAPConnectionFailed):
		respondError(c, http.StatusServiceUnavailable, "upstream_error", err.Error(), loc...)
	default:
		respondError(c, http.StatusInternalServerError, "internal_error", err.Error(), loc...)
	}
}
