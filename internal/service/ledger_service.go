package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/digkill/ResumeForge/internal/config"
	"github.com/digkill/ResumeForge/internal/metrics"
	"github.com/digkill/ResumeForge/internal/models"
)

const defaultChargeCost = 1

// LedgerStore is the persistence the credit ledger relies on. ConsumeCredits
// must be a single conditional write: decrement only while credits >= cost.
type LedgerStore interface {
	Ledger(ctx context.Context, id string) (*models.LedgerRow, error)
	ConsumeCredits(ctx context.Context, id string, cost int) (bool, error)
	AppendPurchase(ctx context.Context, id string, rec models.PurchaseRecord, welcomeBonus int) (bool, error)
	IncrementResumesGenerated(ctx context.Context, id string) (bool, error)
	AddCredits(ctx context.Context, id string, amount int) (bool, error)
}

type LedgerService struct {
	log          *slog.Logger
	store        LedgerStore
	welcomeBonus int
	now          func() time.Time
}

type GrantRequest struct {
	Amount        int     `json:"amount"`
	TransactionID string  `json:"transaction_id"`
	Price         float64 `json:"price"`
}

func NewLedgerService(cfg config.Config, log *slog.Logger, store LedgerStore) *LedgerService {
	return &LedgerService{
		log:          log,
		store:        store,
		welcomeBonus: cfg.WelcomeBonusCredits,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (s *LedgerService) WelcomeBonus() int {
	return s.welcomeBonus
}

// CurrentBalance always reads from the store.
func (s *LedgerService) CurrentBalance(ctx context.Context, accountID string) (*models.Balance, error) {
	row, err := s.store.Ledger(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, ErrAccountNotFound
	}
	return &models.Balance{
		Credits:          row.Credits,
		CreditsUsed:      row.CreditsUsed,
		CreditsPurchased: row.PurchaseHistory.Total(s.welcomeBonus),
		ResumesGenerated: row.ResumesGenerated,
	}, nil
}

// Charge spends cost credits. A zero cost means the default of one credit.
// The balance read is only a fast path; the conditional write decides.
func (s *LedgerService) Charge(ctx context.Context, accountID string, cost int) error {
	if cost == 0 {
		cost = defaultChargeCost
	}
	if cost < 0 {
		return ErrInvalidAmount
	}

	balance, err := s.CurrentBalance(ctx, accountID)
	if err != nil {
		return err
	}
	if balance.Credits < cost {
		metrics.LedgerOperations.WithLabelValues("charge", "insufficient").Inc()
		return ErrInsufficientCredits
	}

	ok, err := s.store.ConsumeCredits(ctx, accountID, cost)
	if err != nil {
		metrics.LedgerOperations.WithLabelValues("charge", "error").Inc()
		return err
	}
	if !ok {
		s.log.Info("charge lost race", "account_id", accountID, "cost", cost)
		metrics.LedgerOperations.WithLabelValues("charge", "insufficient").Inc()
		return ErrInsufficientCredits
	}
	metrics.LedgerOperations.WithLabelValues("charge", "ok").Inc()
	return nil
}

// Grant records an externally confirmed payment and returns the refreshed balance.
func (s *LedgerService) Grant(ctx context.Context, accountID string, req GrantRequest) (*models.Balance, error) {
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	req.TransactionID = strings.TrimSpace(req.TransactionID)
	if req.TransactionID == "" {
		return nil, invalid("transaction_id", "transaction ID is required")
	}
	if req.Price < 0 {
		return nil, invalid("price", "price must not be negative")
	}

	ts := s.now()
	rec := models.PurchaseRecord{
		Amount:        req.Amount,
		Timestamp:     &ts,
		TransactionID: req.TransactionID,
		Price:         req.Price,
	}
	found, err := s.store.AppendPurchase(ctx, accountID, rec, s.welcomeBonus)
	if err != nil {
		metrics.LedgerOperations.WithLabelValues("grant", "error").Inc()
		return nil, fmt.Errorf("grant credits: %w", err)
	}
	if !found {
		return nil, ErrAccountNotFound
	}
	metrics.LedgerOperations.WithLabelValues("grant", "ok").Inc()
	s.log.Info("credits granted", "account_id", accountID, "amount", req.Amount, "transaction_id", req.TransactionID)
	return s.CurrentBalance(ctx, accountID)
}

func (s *LedgerService) RecordGeneration(ctx context.Context, accountID string) error {
	ok, err := s.store.IncrementResumesGenerated(ctx, accountID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrAccountNotFound
	}
	return nil
}

// Refund gives credits back after a charged generation failed. It is an
// operator action: credits_used and the purchase history stay as they are.
func (s *LedgerService) Refund(ctx context.Context, accountID string, amount int) (*models.Balance, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	ok, err := s.store.AddCredits(ctx, accountID, amount)
	if err != nil {
		metrics.LedgerOperations.WithLabelValues("refund", "error").Inc()
		return nil, fmt.Errorf("refund credits: %w", err)
	}
	if !ok {
		return nil, ErrAccountNotFound
	}
	metrics.LedgerOperations.WithLabelValues("refund", "ok").Inc()
	s.log.Warn("credits refunded", "account_id", accountID, "amount", amount)
	return s.CurrentBalance(ctx, accountID)
}

// PurchaseHistory lists the purchase records newest first.
func (s *LedgerService) PurchaseHistory(ctx context.Context, accountID string) ([]models.PurchaseRecord, error) {
	row, err := s.store.Ledger(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, ErrAccountNotFound
	}
	return row.PurchaseHistory.Listing(), nil
}
