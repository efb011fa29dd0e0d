package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/digkill/ResumeForge/internal/dbx"
	"github.com/digkill/ResumeForge/internal/models"
)

// PackageRepository stores the catalog of purchasable credit packages.
type PackageRepository struct {
	db dbx.DBTX
}

func NewPackageRepository(db dbx.DBTX) *PackageRepository {
	return &PackageRepository{db: db}
}

const packageColumns = `id, title, COALESCE(description, ''), currency, price_minor_units, credits, is_active, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPackage(row rowScanner) (models.CreditPackage, error) {
	var p models.CreditPackage
	err := row.Scan(&p.ID, &p.Title, &p.Description, &p.Currency, &p.PriceMinorUnits, &p.Credits, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *PackageRepository) list(ctx context.Context, onlyActive bool) ([]models.CreditPackage, error) {
	query := `SELECT ` + packageColumns + ` FROM pricing_plans`
	if onlyActive {
		query += ` WHERE is_active = 1`
	}
	query += ` ORDER BY price_minor_units ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list packages: %w", err)
	}
	defer rows.Close()

	packages := []models.CreditPackage{}
	for rows.Next() {
		p, err := scanPackage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan package: %w", err)
		}
		packages = append(packages, p)
	}
	return packages, rows.Err()
}

func (r *PackageRepository) List(ctx context.Context) ([]models.CreditPackage, error) {
	return r.list(ctx, false)
}

func (r *PackageRepository) ListActive(ctx context.Context) ([]models.CreditPackage, error) {
	return r.list(ctx, true)
}

func (r *PackageRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pricing_plans`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count packages: %w", err)
	}
	return n, nil
}

func (r *PackageRepository) GetByID(ctx context.Context, id int64) (*models.CreditPackage, error) {
	query := `SELECT ` + packageColumns + ` FROM pricing_plans WHERE id = ?`
	p, err := scanPackage(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get package: %w", err)
	}
	return &p, nil
}

func (r *PackageRepository) Create(ctx context.Context, p *models.CreditPackage) (*models.CreditPackage, error) {
	const query = `
INSERT INTO pricing_plans (title, description, currency, price_minor_units, credits, is_active)
VALUES (?, NULLIF(?, ''), ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, query, p.Title, p.Description, p.Currency, p.PriceMinorUnits, p.Credits, p.IsActive)
	if err != nil {
		return nil, fmt.Errorf("create package: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("package last insert id: %w", err)
	}
	return r.GetByID(ctx, id)
}

// Update overwrites a package and returns the stored row, or nil when the id is unknown.
func (r *PackageRepository) Update(ctx context.Context, p *models.CreditPackage) (*models.CreditPackage, error) {
	const query = `
UPDATE pricing_plans
SET title = ?, description = NULLIF(?, ''), currency = ?, price_minor_units = ?, credits = ?, is_active = ?, updated_at = NOW()
WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, p.Title, p.Description, p.Currency, p.PriceMinorUnits, p.Credits, p.IsActive, p.ID); err != nil {
		return nil, fmt.Errorf("update package: %w", err)
	}
	return r.GetByID(ctx, p.ID)
}

func (r *PackageRepository) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM pricing_plans WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete package: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete package rows affected: %w", err)
	}
	return affected > 0, nil
}
