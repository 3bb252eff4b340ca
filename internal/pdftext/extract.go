package pdftext

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	ledongthuc "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

var (
	// ErrNotPDF indicates the payload is not a readable PDF
	ErrNotPDF = errors.New("file is not a valid PDF")
	// ErrNoText indicates the PDF contains no extractable text
	ErrNoText = errors.New("no text could be extracted from the PDF")
)

// Extractor turns PDF bytes into plain text
type Extractor interface {
	Extract(data []byte) (text string, pageCount int, err error)
}

type pdfExtractor struct{}

func NewExtractor() Extractor {
	return &pdfExtractor{}
}

// Extract validates the PDF and returns its plain text and page count
func (e *pdfExtractor) Extract(data []byte) (string, int, error) {
	pageCount, err := api.PageCount(bytes.NewReader(data), nil)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", ErrNotPDF, err)
	}

	reader, err := ledongthuc.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", ErrNotPDF, err)
	}

	textReader, err := reader.GetPlainText()
	if err != nil {
		return "", 0, fmt.Errorf("failed to read pdf text: %w", err)
	}

	var b strings.Builder
	if _, err := io.Copy(&b, textReader); err != nil {
		return "", 0, fmt.Errorf("failed to read pdf text: %w", err)
	}

	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", pageCount, ErrNoText
	}

	return text, pageCount, nil
}
