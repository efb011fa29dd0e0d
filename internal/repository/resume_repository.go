package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/digkill/ResumeForge/internal/models"
)

const defaultResumeListLimit = 50

type ResumeRepository struct {
	db *sql.DB
}

func NewResumeRepository(db *sql.DB) *ResumeRepository {
	return &ResumeRepository{db: db}
}

// Save inserts a generated resume. Records are never updated afterwards except
// for the download counters.
func (r *ResumeRepository) Save(ctx context.Context, resume *models.Resume) error {
	const query = `
INSERT INTO resumes (id, user_id, original_filename, job_description, resume_text, pdf_base64, size_bytes, status, download_count, created_at)
VALUES (?, ?, ?, NULLIF(?, ''), ?, ?, ?, ?, 0, ?)`
	if resume.CreatedAt.IsZero() {
		resume.CreatedAt = time.Now().UTC()
	}
	if resume.Status == "" {
		resume.Status = models.ResumeStatusCompleted
	}
	if _, err := r.db.ExecContext(ctx, query,
		resume.ID, resume.UserID, resume.OriginalFilename, resume.JobDescription,
		resume.ResumeText, resume.PDFBase64, resume.SizeBytes, resume.Status, resume.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert resume: %w", err)
	}
	return nil
}

// FindByUser lists a user's resumes newest first. The document payload and
// source text are not loaded; use FindByID for those.
func (r *ResumeRepository) FindByUser(ctx context.Context, userID string, limit int) ([]models.Resume, error) {
	if limit <= 0 {
		limit = defaultResumeListLimit
	}
	const query = `
SELECT id, user_id, original_filename, COALESCE(job_description, ''), size_bytes, status, download_count, last_downloaded, created_at
FROM resumes
WHERE user_id = ?
ORDER BY created_at DESC
LIMIT ?`
	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list resumes: %w", err)
	}
	defer rows.Close()

	resumes := []models.Resume{}
	for rows.Next() {
		var res models.Resume
		var lastDownloaded sql.NullTime
		if err := rows.Scan(&res.ID, &res.UserID, &res.OriginalFilename, &res.JobDescription, &res.SizeBytes, &res.Status, &res.DownloadCount, &lastDownloaded, &res.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan resume: %w", err)
		}
		if lastDownloaded.Valid {
			t := lastDownloaded.Time
			res.LastDownloaded = &t
		}
		resumes = append(resumes, res)
	}
	return resumes, rows.Err()
}

func (r *ResumeRepository) FindByID(ctx context.Context, id string) (*models.Resume, error) {
	const query = `
SELECT id, user_id, original_filename, COALESCE(job_description, ''), resume_text, pdf_base64, size_bytes, status, download_count, last_downloaded, created_at
FROM resumes WHERE id = ?`
	var res models.Resume
	var lastDownloaded sql.NullTime
	row := r.db.QueryRowContext(ctx, query, id)
	if err := row.Scan(&res.ID, &res.UserID, &res.OriginalFilename, &res.JobDescription, &res.ResumeText, &res.PDFBase64, &res.SizeBytes, &res.Status, &res.DownloadCount, &lastDownloaded, &res.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get resume: %w", err)
	}
	if lastDownloaded.Valid {
		t := lastDownloaded.Time
		res.LastDownloaded = &t
	}
	return &res, nil
}

// IncrementDownload bumps the download counter and stamps the download time.
// It reports whether a record was modified.
func (r *ResumeRepository) IncrementDownload(ctx context.Context, id string) (bool, error) {
	const query = `UPDATE resumes SET download_count = download_count + 1, last_downloaded = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query, time.Now().UTC(), id)
	if err != nil {
		return false, fmt.Errorf("increment download: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("download rows affected: %w", err)
	}
	return affected > 0, nil
}

func (r *ResumeRepository) Stats(ctx context.Context, userID string) (models.ResumeStats, error) {
	const query = `SELECT COUNT(*), COALESCE(SUM(download_count), 0) FROM resumes WHERE user_id = ?`
	var stats models.ResumeStats
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&stats.TotalResumes, &stats.TotalDownloads); err != nil {
		return models.ResumeStats{}, fmt.Errorf("resume stats: %w", err)
	}
	return stats, nil
}
