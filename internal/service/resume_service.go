package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"

	"github.com/digkill/ResumeForge/internal/models"
)

const downloadFilenameLayout = "20060102_150405"

// ResumeStore is the persistence for generated resumes.
type ResumeStore interface {
	ResumeWriter
	FindByUser(ctx context.Context, userID string, limit int) ([]models.Resume, error)
	FindByID(ctx context.Context, id string) (*models.Resume, error)
	IncrementDownload(ctx context.Context, id string) (bool, error)
	Stats(ctx context.Context, userID string) (models.ResumeStats, error)
}

type ResumeService struct {
	log   *slog.Logger
	store ResumeStore
}

type Download struct {
	Filename string
	Content  []byte
}

func NewResumeService(log *slog.Logger, store ResumeStore) *ResumeService {
	return &ResumeService{log: log, store: store}
}

func (s *ResumeService) List(ctx context.Context, accountID string, limit int) ([]models.Resume, error) {
	return s.store.FindByUser(ctx, accountID, limit)
}

func (s *ResumeService) Stats(ctx context.Context, accountID string) (models.ResumeStats, error) {
	return s.store.Stats(ctx, accountID)
}

// Download decodes the stored document and counts the download. Resumes of
// other accounts are reported as not found.
func (s *ResumeService) Download(ctx context.Context, accountID, resumeID string) (*Download, error) {
	resume, err := s.store.FindByID(ctx, resumeID)
	if err != nil {
		return nil, err
	}
	if resume == nil || resume.UserID != accountID {
		return nil, ErrResumeNotFound
	}

	content, err := base64.StdEncoding.DecodeString(strings.TrimSpace(resume.PDFBase64))
	if err != nil {
		return nil, fmt.Errorf("decode stored resume %s: %w", resumeID, err)
	}

	ok, err := s.store.IncrementDownload(ctx, resumeID)
	if err != nil {
		s.log.Warn("failed to count download", "resume_id", resumeID, "err", err)
	} else if !ok {
		s.log.Warn("download counter not updated", "resume_id", resumeID)
	}

	return &Download{
		Filename: DownloadFilename(resume),
		Content:  content,
	}, nil
}

func DownloadFilename(resume *models.Resume) string {
	return "optimized_resume_" + resume.CreatedAt.UTC().Format(downloadFilenameLayout) + ".pdf"
}
