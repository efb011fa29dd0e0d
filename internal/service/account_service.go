package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/digkill/ResumeForge/internal/config"
	"github.com/digkill/ResumeForge/internal/models"
	"github.com/digkill/ResumeForge/internal/repository"
)

const (
	minNameLength     = 2
	minPasswordLength = 6
)

type AccountStore interface {
	Create(ctx context.Context, a *models.Account) error
	FindByID(ctx context.Context, id string) (*models.Account, error)
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
}

type TokenIssuer interface {
	Issue(userID, email string) (string, error)
}

type AccountService struct {
	log          *slog.Logger
	store        AccountStore
	tokens       TokenIssuer
	welcomeBonus int
	bcryptCost   int
}

type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type Session struct {
	Token   string
	Account *models.Account
}

func NewAccountService(cfg config.Config, log *slog.Logger, store AccountStore, tokens TokenIssuer) *AccountService {
	return &AccountService{
		log:          log,
		store:        store,
		tokens:       tokens,
		welcomeBonus: cfg.WelcomeBonusCredits,
		bcryptCost:   bcrypt.DefaultCost,
	}
}

// ValidationErrors collects every problem with a request so clients can show them together.
type ValidationErrors []string

func (v ValidationErrors) Error() string { return strings.Join(v, "; ") }

func (v ValidationErrors) Is(target error) bool { return target == ErrValidation }

func (in RegisterInput) validate() error {
	var errs ValidationErrors
	switch name := strings.TrimSpace(in.Name); {
	case name == "":
		errs = append(errs, "Name is required")
	case len([]rune(name)) < minNameLength:
		errs = append(errs, "Name must be at least 2 characters")
	}
	if strings.TrimSpace(in.Email) == "" {
		errs = append(errs, "Email is required")
	} else if !validEmail(in.Email) {
		errs = append(errs, "Invalid email format")
	}
	switch {
	case in.Password == "":
		errs = append(errs, "Password is required")
	case len(in.Password) < minPasswordLength:
		errs = append(errs, "Password must be at least 6 characters")
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validEmail(raw string) bool {
	raw = strings.TrimSpace(raw)
	addr, err := mail.ParseAddress(raw)
	if err != nil || addr.Address != raw {
		return false
	}
	at := strings.LastIndex(raw, "@")
	return at > 0 && strings.Contains(raw[at+1:], ".")
}

// Register creates an account holding the welcome bonus and returns a session token.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))

	existing, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	account := &models.Account{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         strings.TrimSpace(in.Name),
		PasswordHash: hash,
		Credits:      s.welcomeBonus,
		PurchaseHistory: models.DetailedHistory(models.PurchaseRecord{
			Amount:        s.welcomeBonus,
			Timestamp:     &now,
			TransactionID: models.WelcomeBonusTransactionID,
		}),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	s.log.Info("account registered", "account_id", account.ID)

	token, err := s.tokens.Issue(account.ID, account.Email)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, Account: account}, nil
}

func (s *AccountService) Login(ctx context.Context, in LoginInput) (*Session, error) {
	var errs ValidationErrors
	if strings.TrimSpace(in.Email) == "" {
		errs = append(errs, "Email is required")
	}
	if in.Password == "" {
		errs = append(errs, "Password is required")
	}
	if len(errs) > 0 {
		return nil, errs
	}

	account, err := s.store.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(in.Email)))
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(account.PasswordHash, []byte(in.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(account.ID, account.Email)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, Account: account}, nil
}

func (s *AccountService) Profile(ctx context.Context, accountID string) (*models.Account, error) {
	account, err := s.store.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}
	return account, nil
}
