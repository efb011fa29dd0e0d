package httpapi

import (
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/digkill/ResumeForge/internal/models"
	"github.com/digkill/ResumeForge/internal/service"
)

const (
	defaultResumeLimit = 50
	maxResumeLimit     = 200
	multipartOverhead  = 1 << 20
)

type fileInfoView struct {
	Filename string  `json:"filename"`
	Size     int64   `json:"size"`
	SizeMB   float64 `json:"size_mb"`
}

type processView struct {
	ResumeTextLength     int          `json:"resume_text_length"`
	JobDescriptionLength int          `json:"job_description_length"`
	FileInfo             fileInfoView `json:"file_info"`
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request, accountID string) {
	limit := s.extraction.MaxBytes()
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)
	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.handleError(w, r, service.ErrFileTooLarge)
			return
		}
		s.handleError(w, r, service.ErrNoFile)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("resumeFile")
	if err != nil {
		s.handleError(w, r, service.ErrNoFile)
		return
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	e, err := s.extraction.Process(r.Context(), accountID, service.Upload{
		Filename:       header.Filename,
		Content:        content,
		JobDescription: r.FormValue("jobDescription"),
	})
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	writeData(w, http.StatusOK, "Resume and job description processed successfully", processView{
		ResumeTextLength:     len(e.ResumeText),
		JobDescriptionLength: len(e.JobDescription),
		FileInfo: fileInfoView{
			Filename: e.Filename,
			Size:     e.FileSize,
			SizeMB:   math.Round(float64(e.FileSize)/(1<<20)*100) / 100,
		},
	})
}

type extractionView struct {
	ResumeText     string       `json:"resume_text"`
	JobDescription *string      `json:"job_description"`
	FileType       string       `json:"file_type"`
	FileInfo       fileInfoView `json:"file_info"`
	ExtractedAt    string       `json:"extracted_at"`
}

func (s *Server) handleGetExtracted(w http.ResponseWriter, r *http.Request, accountID string) {
	e, ok := s.extraction.Get(accountID)
	if !ok {
		writeError(w, http.StatusNotFound, codeNotFound, "No extracted data found for user")
		return
	}
	view := extractionView{
		ResumeText: e.ResumeText,
		FileType:   e.FileType,
		FileInfo: fileInfoView{
			Filename: e.Filename,
			Size:     e.FileSize,
			SizeMB:   math.Round(float64(e.FileSize)/(1<<20)*100) / 100,
		},
		ExtractedAt: e.ExtractedAt.UTC().Format(time.RFC3339),
	}
	if e.JobDescription != "" {
		jd := e.JobDescription
		view.JobDescription = &jd
	}
	writeData(w, http.StatusOK, "", view)
}

func (s *Server) handleClearExtracted(w http.ResponseWriter, r *http.Request, accountID string) {
	s.extraction.Clear(accountID)
	writeData(w, http.StatusOK, "Extracted data cleared successfully", nil)
}

type generateRequest struct {
	JobDescription string `json:"job_description"`
}

type generateView struct {
	ResumeID         string `json:"resume_id,omitempty"`
	PDFBase64        string `json:"pdf_base64"`
	FileSizeKB       int    `json:"file_size_kb"`
	CreditsRemaining int    `json:"credits_remaining"`
	CreditsUsed      int    `json:"credits_used"`
	ResumesGenerated int    `json:"resumes_generated"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request, accountID string) {
	var req generateRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, codeValidation, "Invalid request body")
			return
		}
	}

	result, err := s.generation.Generate(r.Context(), accountID, service.GenerateRequest{JobDescription: req.JobDescription})
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Resume generated successfully", generateView{
		ResumeID:         result.ResumeID,
		PDFBase64:        result.PDFBase64,
		FileSizeKB:       kilobytes(int64(result.SizeBytes)),
		CreditsRemaining: result.Balance.Credits,
		CreditsUsed:      result.Balance.CreditsUsed,
		ResumesGenerated: result.Balance.ResumesGenerated,
	})
}

type resumeSummaryView struct {
	ID            string `json:"id"`
	Date          string `json:"date"`
	OriginalFile  string `json:"originalFile"`
	JobDesc       string `json:"jobDesc"`
	Status        string `json:"status"`
	FileSizeKB    int    `json:"file_size_kb"`
	DownloadCount int    `json:"download_count"`
	CreatedAt     string `json:"created_at"`
}

func newResumeSummary(res models.Resume) resumeSummaryView {
	jobDesc := "None"
	if strings.TrimSpace(res.JobDescription) != "" {
		jobDesc = "Provided"
	}
	original := res.OriginalFilename
	if original == "" {
		original = "Unknown"
	}
	return resumeSummaryView{
		ID:            res.ID,
		Date:          res.CreatedAt.UTC().Format("2006-01-02"),
		OriginalFile:  original,
		JobDesc:       jobDesc,
		Status:        titleCase(string(res.Status)),
		FileSizeKB:    kilobytes(res.SizeBytes),
		DownloadCount: res.DownloadCount,
		CreatedAt:     res.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func (s *Server) handleListResumes(w http.ResponseWriter, r *http.Request, accountID string) {
	limit := defaultResumeLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, codeValidation, "limit must be a positive integer")
			return
		}
		limit = min(n, maxResumeLimit)
	}
	resumes, err := s.resumes.List(r.Context(), accountID, limit)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	out := make([]resumeSummaryView, 0, len(resumes))
	for _, res := range resumes {
		out = append(out, newResumeSummary(res))
	}
	writeData(w, http.StatusOK, "", out)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request, accountID string) {
	dl, err := s.resumes.Download(r.Context(), accountID, chi.URLParam(r, "id"))
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", `attachment; filename="`+dl.Filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(dl.Content)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(dl.Content)
}

func (s *Server) handleResumeStats(w http.ResponseWriter, r *http.Request, accountID string) {
	stats, err := s.resumes.Stats(r.Context(), accountID)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "", stats)
}

func kilobytes(n int64) int {
	return int(math.Round(float64(n) / 1024))
}

// A Caser keeps state, so each call gets its own.
func titleCase(s string) string {
	return cases.Title(language.English).String(s)
}
