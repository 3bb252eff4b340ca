package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"
)

var (
	// ErrNotConfigured indicates the AI client has no API key
	ErrNotConfigured = errors.New("AI client not configured")
	// ErrAPICallFailed indicates the AI API call failed
	ErrAPICallFailed = errors.New("AI API call failed")
	// ErrInvalidResponse indicates an invalid response from the AI API
	ErrInvalidResponse = errors.New("invalid AI API response")
)

const maxDocumentChars = 4000

// FieldSpec describes one field the model should extract
type FieldSpec struct {
	Name string
	Hint string
}

// Client handles communication with an OpenAI-compatible chat
// completions API for document field extraction
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new AI Client instance
func NewClient(baseURL, apiKey, model string) *Client {
	return &Client{
		apiKey:  apiKey,
		model:   model,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// IsConfigured returns whether the client has an API key
func (c *Client) IsConfigured() bool {
	return c.apiKey != ""
}

// ChatMessage represents a message in a chat conversation
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest represents a chat completion request
type ChatRequest struct {
	Model          string        `json:"model"`
	Messages       []ChatMessage `json:"messages"`
	Temperature    float64       `json:"temperature"`
	ResponseFormat struct {
		Type string `json:"type"`
	} `json:"response_format"`
}

// ChatResponse represents a chat completion response
type ChatResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Message ChatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// ExtractFields asks the model to pull the given fields out of a
// document's text. The result maps field names to extracted values,
// with null for fields the model could not find. With no fields the
// model extracts whatever business fields it infers from the document.
func (c *Client) ExtractFields(ctx context.Context, text string, fields []FieldSpec) (map[string]interface{}, error) {
	text = truncateOnRune(text, maxDocumentChars)

	messages := []ChatMessage{
		{
			Role:    "system",
			Content: buildExtractionPrompt(fields),
		},
		{
			Role:    "user",
			Content: "Document text:\n\n" + text,
		},
	}

	response, err := c.sendChatRequest(ctx, messages)
	if err != nil {
		return nil, err
	}

	var extracted map[string]interface{}
	if err := json.Unmarshal([]byte(response), &extracted); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	// Generic extraction keeps whatever the model found
	if len(fields) == 0 {
		return extracted, nil
	}

	// Only keep the fields that were asked for, and make sure every
	// requested field is present in the result
	result := make(map[string]interface{}, len(fields))
	for _, f := range fields {
		if v, ok := extracted[f.Name]; ok {
			result[f.Name] = v
		} else {
			result[f.Name] = nil
		}
	}

	return result, nil
}

// truncateOnRune caps text at limit bytes without splitting a UTF-8
// sequence
func truncateOnRune(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}

func buildExtractionPrompt(fields []FieldSpec) string {
	var b strings.Builder
	b.WriteString("You are a data extraction assistant. Extract the requested fields from the document text.\n")
	b.WriteString("Rules:\n")
	b.WriteString("- Respond with a single JSON object\n")
	b.WriteString("- Use null for any field that cannot be found in the document\n")
	b.WriteString("- Preserve numbers and dates exactly as written in the document\n")
	b.WriteString("- Do not include any explanation or additional text\n\n")
	if len(fields) == 0 {
		b.WriteString("No field list is configured. Extract the key business fields of the document ")
		b.WriteString("(for example invoice number, dates, amounts, parties) using descriptive snake_case keys.\n")
		return b.String()
	}
	b.WriteString("The object keys must be exactly the field names listed below.\n")
	b.WriteString("Fields to extract:\n")
	for _, f := range fields {
		if f.Hint != "" {
			fmt.Fprintf(&b, "- %s: %s\n", f.Name, f.Hint)
		} else {
			fmt.Fprintf(&b, "- %s\n", f.Name)
		}
	}
	return b.String()
}

func (c *Client) sendChatRequest(ctx context.Context, messages []ChatMessage) (string, error) {
	if !c.IsConfigured() {
		return "", ErrNotConfigured
	}

	request := ChatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: 0.1,
	}
	request.ResponseFormat.Type = "json_object"

	body, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAPICallFailed, err)
	}

	url := c.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAPICallFailed, err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAPICallFailed, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAPICallFailed, err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d: %s", ErrAPICallFailed, resp.StatusCode, string(respBody))
	}

	var chatResp ChatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	if chatResp.Error != nil {
		return "", fmt.Errorf("%w: %s", ErrAPICallFailed, chatResp.Error.Message)
	}

	if len(chatResp.Choices) == 0 {
		return "", ErrInvalidResponse
	}

	return chatResp.Choices[0].Message.Content, nil
}
