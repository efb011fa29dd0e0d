package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/digkill/ResumeForge/internal/config"
	"github.com/digkill/ResumeForge/internal/extract"
	"github.com/digkill/ResumeForge/internal/session"
)

var (
	ErrNoFile         = errors.New("no file uploaded")
	ErrFileTooLarge   = errors.New("file size exceeds upload limit")
	ErrExtractionFail = errors.New("failed to extract text from file")
)

const archiveTimeout = 10 * time.Second

// Archiver keeps a text snapshot of each extraction. It is optional.
type Archiver interface {
	Archive(ctx context.Context, accountID string, snapshot []byte) (string, error)
}

type SessionStore interface {
	SessionReader
	Set(accountID string, e session.Extraction)
	Clear(accountID string) bool
}

type ExtractionService struct {
	log      *slog.Logger
	sessions SessionStore
	archive  Archiver
	maxBytes int64
	now      func() time.Time
}

type Upload struct {
	Filename       string
	Content        []byte
	JobDescription string
}

func NewExtractionService(cfg config.Config, log *slog.Logger, sessions SessionStore, archive Archiver) *ExtractionService {
	limit := cfg.MaxUploadBytes
	if limit <= 0 {
		limit = 10 << 20
	}
	return &ExtractionService{
		log:      log,
		sessions: sessions,
		archive:  archive,
		maxBytes: limit,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *ExtractionService) MaxBytes() int64 {
	return s.maxBytes
}

// Process extracts the resume text and stores it as the account's pending
// extraction, replacing any previous one.
func (s *ExtractionService) Process(ctx context.Context, accountID string, up Upload) (*session.Extraction, error) {
	if up.Filename == "" || len(up.Content) == 0 {
		return nil, ErrNoFile
	}
	if int64(len(up.Content)) > s.maxBytes {
		return nil, fmt.Errorf("%w: %d MB", ErrFileTooLarge, s.maxBytes>>20)
	}
	format, err := extract.FormatFromFilename(up.Filename)
	if err != nil {
		return nil, invalid("resumeFile", "Unsupported file format. Please use PDF, DOC, or DOCX")
	}

	text, err := extract.Text(format, up.Content)
	if err != nil {
		s.log.Warn("text extraction failed", "account_id", accountID, "filename", up.Filename, "err", err)
		if errors.Is(err, extract.ErrLegacyDoc) {
			return nil, invalid("resumeFile", "DOC files are not supported, please convert to PDF or DOCX")
		}
		return nil, fmt.Errorf("%w: %v", ErrExtractionFail, err)
	}

	e := session.Extraction{
		ResumeText:     text,
		JobDescription: strings.TrimSpace(up.JobDescription),
		Filename:       up.Filename,
		FileType:       string(format),
		FileSize:       int64(len(up.Content)),
		ExtractedAt:    s.now(),
	}
	e.ArchiveKey = s.archiveSnapshot(ctx, accountID, e)

	s.sessions.Set(accountID, e)
	s.log.Info("resume extracted", "account_id", accountID, "file_type", e.FileType, "text_length", len(e.ResumeText))
	return &e, nil
}

func (s *ExtractionService) Get(accountID string) (session.Extraction, bool) {
	return s.sessions.Get(accountID)
}

// Clear always succeeds, whether or not an extraction was pending.
func (s *ExtractionService) Clear(accountID string) {
	s.sessions.Clear(accountID)
}

func (s *ExtractionService) archiveSnapshot(ctx context.Context, accountID string, e session.Extraction) string {
	if s.archive == nil {
		return ""
	}
	ctx, cancel := context.WithTimeout(ctx, archiveTimeout)
	defer cancel()
	key, err := s.archive.Archive(ctx, accountID, Snapshot(accountID, e))
	if err != nil {
		s.log.Warn("extraction archive failed", "account_id", accountID, "err", err)
		return ""
	}
	return key
}

// Snapshot renders the plain text archive record of an extraction.
func Snapshot(accountID string, e session.Extraction) []byte {
	rule := strings.Repeat("=", 50)
	var b strings.Builder
	b.WriteString("EXTRACTED RESUME DATA\n")
	b.WriteString(rule + "\n")
	fmt.Fprintf(&b, "Original File: %s\n", e.Filename)
	fmt.Fprintf(&b, "User ID: %s\n", accountID)
	fmt.Fprintf(&b, "Extraction Time: %s\n", e.ExtractedAt.UTC().Format(time.RFC3339))
	b.WriteString(rule + "\n\n")
	b.WriteString("RESUME TEXT:\n")
	b.WriteString(e.ResumeText + "\n\n")
	b.WriteString(rule + "\n")
	b.WriteString("JOB DESCRIPTION:\n")
	if e.JobDescription != "" {
		b.WriteString(e.JobDescription + "\n\n")
	} else {
		b.WriteString("Not provided\n\n")
	}
	b.WriteString(rule + "\n")
	fmt.Fprintf(&b, "Total Characters: %d\n", len(e.ResumeText)+len(e.JobDescription))
	return []byte(b.String())
}
