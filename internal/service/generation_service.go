package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/digkill/ResumeForge/internal/config"
	"github.com/digkill/ResumeForge/internal/metrics"
	"github.com/digkill/ResumeForge/internal/models"
	"github.com/digkill/ResumeForge/internal/session"
)

var pdfMagic = []byte("%PDF-")

const alertTimeout = 5 * time.Second

// DocumentGenerator calls the external service that rewrites a resume into a
// PDF. It returns the base64 encoded document.
type DocumentGenerator interface {
	Generate(ctx context.Context, resumeText, jobDescription string) (string, error)
}

// Diagnostic is implemented by generator errors that carry a message meant
// for the end user.
type Diagnostic interface {
	Diagnostic() string
}

type SessionReader interface {
	Get(accountID string) (session.Extraction, bool)
}

type ResumeWriter interface {
	Save(ctx context.Context, resume *models.Resume) error
}

// Notifier delivers operator alerts. Failures are logged and otherwise ignored.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

type generationState string

const (
	stateChecking        generationState = "CHECKING"
	stateCharging        generationState = "CHARGING"
	stateCallingExternal generationState = "CALLING_EXTERNAL"
	statePersisting      generationState = "PERSISTING"
	stateDone            generationState = "DONE"
)

type GenerationService struct {
	log       *slog.Logger
	ledger    *LedgerService
	sessions  SessionReader
	resumes   ResumeWriter
	generator DocumentGenerator
	notifier  Notifier
	cost      int
	timeout   time.Duration
	alerts    sync.WaitGroup
}

type GenerateRequest struct {
	// JobDescription overrides the one captured at extraction time when non-empty.
	JobDescription string
}

type GenerationResult struct {
	ResumeID  string
	PDFBase64 string
	SizeBytes int
	Balance   models.Balance
}

func NewGenerationService(cfg config.Config, log *slog.Logger, ledger *LedgerService, sessions SessionReader, resumes ResumeWriter, generator DocumentGenerator, notifier Notifier) *GenerationService {
	cost := cfg.GenerationCost
	if cost <= 0 {
		cost = defaultChargeCost
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &GenerationService{
		log:       log,
		ledger:    ledger,
		sessions:  sessions,
		resumes:   resumes,
		generator: generator,
		notifier:  notifier,
		cost:      cost,
		timeout:   timeout,
	}
}

// Generate runs one generation transaction for the account. Once the charge
// succeeds the credit stays spent: a failed generator call is reported as
// ErrGenerationFailed and never refunded or retried, while storage failures
// after a successful call are only logged.
func (s *GenerationService) Generate(ctx context.Context, accountID string, req GenerateRequest) (*GenerationResult, error) {
	log := s.log.With("account_id", accountID)

	s.enter(log, stateChecking)
	balance, err := s.ledger.CurrentBalance(ctx, accountID)
	if err != nil {
		return nil, s.fail(err)
	}
	if balance.Credits < s.cost {
		return nil, s.fail(ErrInsufficientCredits)
	}

	extraction, ok := s.sessions.Get(accountID)
	if !ok || strings.TrimSpace(extraction.ResumeText) == "" {
		return nil, s.fail(ErrNoSourceData)
	}
	jobDescription := extraction.JobDescription
	if jd := strings.TrimSpace(req.JobDescription); jd != "" {
		jobDescription = jd
	}

	s.enter(log, stateCharging)
	if err := s.ledger.Charge(ctx, accountID, s.cost); err != nil {
		return nil, s.fail(err)
	}

	// The credit is spent. Only the generator timeout may interrupt what follows.
	ctx = context.WithoutCancel(ctx)

	s.enter(log, stateCallingExternal)
	payload, size, err := s.callGenerator(ctx, extraction.ResumeText, jobDescription)
	if err != nil {
		log.Error("generation failed after charge", "cost", s.cost, "err", err)
		s.alert(ctx, log, fmt.Sprintf("Charged generation failed\naccount: %s\ncost: %d\nerror: %v", accountID, s.cost, err))
		return nil, s.fail(err)
	}

	s.enter(log, statePersisting)
	result := &GenerationResult{
		PDFBase64: payload,
		SizeBytes: size,
		Balance: models.Balance{
			Credits:          balance.Credits - s.cost,
			CreditsUsed:      balance.CreditsUsed + s.cost,
			CreditsPurchased: balance.CreditsPurchased,
			ResumesGenerated: balance.ResumesGenerated,
		},
	}

	if err := s.ledger.RecordGeneration(ctx, accountID); err != nil {
		s.degraded(log, "record_generation", err)
	} else {
		result.Balance.ResumesGenerated++
	}

	resume := &models.Resume{
		ID:               uuid.NewString(),
		UserID:           accountID,
		OriginalFilename: extraction.Filename,
		JobDescription:   jobDescription,
		ResumeText:       extraction.ResumeText,
		PDFBase64:        payload,
		SizeBytes:        int64(size),
		Status:           models.ResumeStatusCompleted,
		CreatedAt:        time.Now().UTC(),
	}
	if err := s.resumes.Save(ctx, resume); err != nil {
		s.degraded(log, "save_resume", err)
	} else {
		result.ResumeID = resume.ID
	}

	if fresh, err := s.ledger.CurrentBalance(ctx, accountID); err != nil {
		s.degraded(log, "refresh_balance", err)
	} else {
		result.Balance = *fresh
	}

	s.enter(log, stateDone)
	metrics.GenerationOutcomes.WithLabelValues("success").Inc()
	log.Info("resume generated", "resume_id", result.ResumeID, "size_bytes", size)
	return result, nil
}

func (s *GenerationService) callGenerator(ctx context.Context, resumeText, jobDescription string) (string, int, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	started := time.Now()
	raw, err := s.generator.Generate(callCtx, resumeText, jobDescription)
	metrics.GeneratorLatency.Observe(time.Since(started).Seconds())
	if err != nil {
		detail := "generation service unavailable"
		var diag Diagnostic
		if errors.As(err, &diag) && diag.Diagnostic() != "" {
			detail = diag.Diagnostic()
		} else if errors.Is(err, context.DeadlineExceeded) {
			detail = "generation service timed out"
		}
		return "", 0, &GenerationError{Detail: detail, Err: err}
	}

	payload, size, err := decodeDocument(raw)
	if err != nil {
		return "", 0, &GenerationError{Detail: "generated document is invalid", Err: err}
	}
	return payload, size, nil
}

// decodeDocument validates a base64 PDF and returns its canonical encoding and decoded size.
func decodeDocument(raw string) (string, int, error) {
	cleaned := strings.Join(strings.Fields(raw), "")
	if cleaned == "" {
		return "", 0, errors.New("empty document")
	}
	decoded, err := base64.StdEncoding.DecodeString(cleaned)
	if err != nil {
		return "", 0, fmt.Errorf("decode base64: %w", err)
	}
	if !bytes.HasPrefix(decoded, pdfMagic) {
		return "", 0, errors.New("payload is not a PDF document")
	}
	return cleaned, len(decoded), nil
}

func (s *GenerationService) enter(log *slog.Logger, state generationState) {
	log.Debug("generation state", "state", string(state))
}

func (s *GenerationService) fail(err error) error {
	outcome := "error"
	switch {
	case errors.Is(err, ErrAccountNotFound):
		outcome = "not_found"
	case errors.Is(err, ErrInsufficientCredits):
		outcome = "insufficient_credits"
	case errors.Is(err, ErrNoSourceData):
		outcome = "no_source_data"
	case errors.Is(err, ErrGenerationFailed):
		outcome = "generation_failed"
	}
	metrics.GenerationOutcomes.WithLabelValues(outcome).Inc()
	return err
}

func (s *GenerationService) degraded(log *slog.Logger, step string, err error) {
	metrics.PersistenceDegraded.WithLabelValues(step).Inc()
	log.Warn("persistence degraded after generation", "step", step, "err", err)
}

// alert hands text to the notifier in the background; Generate never waits on it.
func (s *GenerationService) alert(ctx context.Context, log *slog.Logger, text string) {
	if s.notifier == nil {
		return
	}
	alertCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), alertTimeout)
	s.alerts.Add(1)
	go func() {
		defer s.alerts.Done()
		defer cancel()
		if err := s.notifier.Notify(alertCtx, text); err != nil {
			log.Warn("ops alert failed", "err", err)
		}
	}()
}

// WaitAlerts blocks until every alert in flight has been handed to the notifier.
func (s *GenerationService) WaitAlerts() {
	s.alerts.Wait()
}
