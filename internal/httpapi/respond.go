package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/digkill/ResumeForge/internal/service"
)

const (
	codeNotFound            = "not_found"
	codeInsufficientCredits = "insufficient_credits"
	codeNoSourceData        = "no_source_data"
	codeGenerationFailed    = "generation_failed"
	codeValidation          = "validation_error"
	codeUnauthorized        = "unauthorized"
	codeConflict            = "conflict"
	codeExtractionFailed    = "extraction_failed"
	codeInternal            = "internal_error"
)

type errorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code"`
}

type dataBody struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, dataBody{Success: true, Message: message, Data: data})
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Error: message, Code: code})
}

// handleError maps service outcomes to HTTP responses.
func (s *Server) handleError(w http.ResponseWriter, r *http.Request, err error) {
	var genErr *service.GenerationError
	switch {
	case errors.As(err, &genErr):
		writeError(w, http.StatusBadGateway, codeGenerationFailed, genErr.Detail)
	case errors.Is(err, service.ErrAccountNotFound):
		writeError(w, http.StatusNotFound, codeNotFound, "User not found")
	case errors.Is(err, service.ErrResumeNotFound):
		writeError(w, http.StatusNotFound, codeNotFound, "Resume not found")
	case errors.Is(err, service.ErrPackageNotFound):
		writeError(w, http.StatusNotFound, codeNotFound, "Plan not found")
	case errors.Is(err, service.ErrInsufficientCredits):
		writeError(w, http.StatusPaymentRequired, codeInsufficientCredits, "Insufficient credits. Please purchase more credits.")
	case errors.Is(err, service.ErrNoSourceData):
		writeError(w, http.StatusBadRequest, codeNoSourceData, "No resume data found. Please upload a resume first.")
	case errors.Is(err, service.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, codeValidation, "Invalid credit amount")
	case errors.Is(err, service.ErrValidation):
		writeError(w, http.StatusBadRequest, codeValidation, validationMessage(err))
	case errors.Is(err, service.ErrEmailTaken):
		writeError(w, http.StatusConflict, codeConflict, "User with this email already exists")
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "Invalid email or password")
	case errors.Is(err, service.ErrNoFile):
		writeError(w, http.StatusBadRequest, codeValidation, "No file uploaded")
	case errors.Is(err, service.ErrFileTooLarge):
		writeError(w, http.StatusBadRequest, codeValidation, "File size exceeds "+strconv.FormatInt(s.uploadLimit()>>20, 10)+"MB limit")
	case errors.Is(err, service.ErrExtractionFail):
		writeError(w, http.StatusBadRequest, codeExtractionFailed, "Failed to extract text from file")
	default:
		s.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		writeError(w, http.StatusInternalServerError, codeInternal, "internal error")
	}
}

func validationMessage(err error) string {
	var one *service.ValidationError
	if errors.As(err, &one) {
		return one.Message
	}
	var many service.ValidationErrors
	if errors.As(err, &many) {
		return strings.Join(many, "; ")
	}
	return err.Error()
}

func (s *Server) uploadLimit() int64 {
	if s.extraction == nil {
		return 10 << 20
	}
	return s.extraction.MaxBytes()
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(v)
}
