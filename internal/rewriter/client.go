// Package rewriter is the HTTP client for the external resume generation API.
package rewriter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/digkill/ResumeForge/internal/config"
)

const maxResponseBytes = 32 << 20

var ErrEmptyDocument = errors.New("generator returned an empty document")

type Client struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
	log        *slog.Logger
}

// APIError is returned for any non-200 response. Diagnostic is the message
// the generator reported, shown to users as is.
type APIError struct {
	StatusCode int
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("generator error: status=%d body=%s", e.StatusCode, e.Body)
}

func (e *APIError) Diagnostic() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Body
}

type generateRequest struct {
	ResumeText     string `json:"resume_text"`
	JobDescription string `json:"job_description"`
}

// NewClient builds a client for cfg.GeneratorURL. The caller bounds each call
// with its context, the http.Client timeout is only a backstop.
func NewClient(cfg config.Config, log *slog.Logger) *Client {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		apiKey:   cfg.GeneratorAPIKey,
		endpoint: strings.TrimRight(cfg.GeneratorURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout + 5*time.Second,
		},
		log: log,
	}
}

// Generate sends the sanitized resume and the job description and returns
// the base64 document from the response.
func (c *Client) Generate(ctx context.Context, resumeText, jobDescription string) (string, error) {
	body, err := json.Marshal(generateRequest{
		ResumeText:     Sanitize(resumeText),
		JobDescription: jobDescription,
	})
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("post generator: %w", err)
	}
	defer resp.Body.Close()

	rawBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			Message:    errorField(rawBody),
			Body:       truncateBody(rawBody),
		}
		if c.log != nil {
			c.log.Error("generator call failed", "status", resp.StatusCode, "body", apiErr.Body)
		}
		return "", apiErr
	}

	doc, err := documentFromBody(rawBody)
	if err != nil {
		return "", err
	}
	if c.log != nil {
		c.log.Debug("generator call succeeded", "payload_length", len(doc))
	}
	return doc, nil
}

// documentFromBody accepts a bare base64 string, a JSON string, or a JSON
// object whose pdf_base64 or body field holds either of those. A body field
// may itself be a JSON encoded envelope, one level deep.
func documentFromBody(raw []byte) (string, error) {
	return unwrap(raw, 2)
}

func unwrap(raw []byte, depth int) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return "", ErrEmptyDocument
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", fmt.Errorf("decode string response: %w", err)
		}
		if depth > 0 {
			inner := strings.TrimSpace(s)
			if strings.HasPrefix(inner, "{") {
				return unwrap([]byte(inner), depth-1)
			}
		}
		return nonEmpty(s)
	case '{':
		var envelope struct {
			PDFBase64 json.RawMessage `json:"pdf_base64"`
			Body      json.RawMessage `json:"body"`
		}
		if err := json.Unmarshal(trimmed, &envelope); err != nil {
			return "", fmt.Errorf("decode envelope: %w (body=%s)", err, truncateBody(trimmed))
		}
		field := envelope.PDFBase64
		if len(field) == 0 || string(field) == "null" {
			field = envelope.Body
		}
		if len(field) == 0 || string(field) == "null" {
			return "", fmt.Errorf("%w: envelope has no pdf_base64 or body", ErrEmptyDocument)
		}
		if depth == 0 {
			var s string
			if err := json.Unmarshal(field, &s); err != nil {
				return "", fmt.Errorf("decode envelope field: %w", err)
			}
			return nonEmpty(s)
		}
		return unwrap(field, depth-1)
	default:
		return nonEmpty(string(trimmed))
	}
}

func nonEmpty(s string) (string, error) {
	if strings.TrimSpace(s) == "" {
		return "", ErrEmptyDocument
	}
	return s, nil
}

func errorField(body []byte) string {
	var payload struct {
		Error any `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || payload.Error == nil {
		return ""
	}
	if s, ok := payload.Error.(string); ok {
		return s
	}
	b, err := json.Marshal(payload.Error)
	if err != nil {
		return ""
	}
	return string(b)
}

func truncateBody(body []byte) string {
	const limit = 512
	s := strings.TrimSpace(string(body))
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "…"
}
