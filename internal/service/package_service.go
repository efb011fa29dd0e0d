package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/digkill/ResumeForge/internal/config"
	"github.com/digkill/ResumeForge/internal/models"
)

type PackageStore interface {
	List(ctx context.Context) ([]models.CreditPackage, error)
	ListActive(ctx context.Context) ([]models.CreditPackage, error)
	Count(ctx context.Context) (int, error)
	GetByID(ctx context.Context, id int64) (*models.CreditPackage, error)
	Create(ctx context.Context, p *models.CreditPackage) (*models.CreditPackage, error)
	Update(ctx context.Context, p *models.CreditPackage) (*models.CreditPackage, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

// PackageService manages the catalog of credit packages shown to buyers.
// Payments themselves happen elsewhere; confirmed ones come back through Grant.
type PackageService struct {
	cfg   config.Config
	store PackageStore
}

type CreatePackageInput struct {
	Title           string `json:"title"`
	Description     string `json:"description"`
	Currency        string `json:"currency"`
	PriceMinorUnits int    `json:"price_minor_units"`
	Credits         int    `json:"credits"`
	IsActive        *bool  `json:"is_active"`
}

type UpdatePackageInput struct {
	Title           *string `json:"title"`
	Description     *string `json:"description"`
	Currency        *string `json:"currency"`
	PriceMinorUnits *int    `json:"price_minor_units"`
	Credits         *int    `json:"credits"`
	IsActive        *bool   `json:"is_active"`
}

func NewPackageService(cfg config.Config, store PackageStore) *PackageService {
	return &PackageService{cfg: cfg, store: store}
}

// EnsureDefault seeds the catalog with the configured package when it is empty.
func (s *PackageService) EnsureDefault(ctx context.Context) error {
	n, err := s.store.Count(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	_, err = s.store.Create(ctx, &models.CreditPackage{
		Title:           fmt.Sprintf("%d resume credits", s.cfg.PaymentCreditsPerPackage),
		Description:     "Standard credit package",
		Currency:        s.cfg.PaymentCurrency,
		PriceMinorUnits: s.cfg.PaymentPriceMinorUnits,
		Credits:         s.cfg.PaymentCreditsPerPackage,
		IsActive:        true,
	})
	if err != nil {
		return fmt.Errorf("create default package: %w", err)
	}
	return nil
}

func (s *PackageService) List(ctx context.Context) ([]models.CreditPackage, error) {
	return s.store.List(ctx)
}

func (s *PackageService) ListActive(ctx context.Context) ([]models.CreditPackage, error) {
	return s.store.ListActive(ctx)
}

func (s *PackageService) Create(ctx context.Context, in CreatePackageInput) (*models.CreditPackage, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return nil, invalid("title", "title is required")
	}
	if in.Currency == "" {
		in.Currency = s.cfg.PaymentCurrency
	}
	if in.PriceMinorUnits <= 0 {
		return nil, invalid("price_minor_units", "price must be positive")
	}
	if in.Credits <= 0 {
		return nil, invalid("credits", "credits must be positive")
	}
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	return s.store.Create(ctx, &models.CreditPackage{
		Title:           in.Title,
		Description:     in.Description,
		Currency:        strings.ToUpper(in.Currency),
		PriceMinorUnits: in.PriceMinorUnits,
		Credits:         in.Credits,
		IsActive:        active,
	})
}

func (s *PackageService) Update(ctx context.Context, id int64, in UpdatePackageInput) (*models.CreditPackage, error) {
	existing, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, ErrPackageNotFound
	}
	if in.Title != nil {
		if strings.TrimSpace(*in.Title) == "" {
			return nil, invalid("title", "title must not be empty")
		}
		existing.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		existing.Description = *in.Description
	}
	if in.Currency != nil && *in.Currency != "" {
		existing.Currency = strings.ToUpper(*in.Currency)
	}
	if in.PriceMinorUnits != nil {
		if *in.PriceMinorUnits <= 0 {
			return nil, invalid("price_minor_units", "price must be positive")
		}
		existing.PriceMinorUnits = *in.PriceMinorUnits
	}
	if in.Credits != nil {
		if *in.Credits <= 0 {
			return nil, invalid("credits", "credits must be positive")
		}
		existing.Credits = *in.Credits
	}
	if in.IsActive != nil {
		existing.IsActive = *in.IsActive
	}
	return s.store.Update(ctx, existing)
}

func (s *PackageService) Delete(ctx context.Context, id int64) error {
	ok, err := s.store.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrPackageNotFound
	}
	return nil
}
