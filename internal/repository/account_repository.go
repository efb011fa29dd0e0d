package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/digkill/ResumeForge/internal/dbx"
	"github.com/digkill/ResumeForge/internal/models"
)

// ErrDuplicate is returned when an insert hits a unique index.
var ErrDuplicate = errors.New("duplicate key")

const mysqlDuplicateEntry = 1062

type AccountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

const accountColumns = `id, email, name, password_hash, credits, credits_used, credits_purchased, resumes_generated, created_at, updated_at`

func scanAccount(row *sql.Row) (*models.Account, error) {
	var a models.Account
	var purchased []byte
	if err := row.Scan(&a.ID, &a.Email, &a.Name, &a.PasswordHash, &a.Credits, &a.CreditsUsed, &purchased, &a.ResumesGenerated, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	history, err := models.ParsePurchaseHistory(purchased)
	if err != nil {
		return nil, fmt.Errorf("account %s: %w", a.ID, err)
	}
	a.PurchaseHistory = history
	return &a, nil
}

func (r *AccountRepository) FindByID(ctx context.Context, id string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM users WHERE id = ?`
	a, err := scanAccount(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}
	return a, nil
}

func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM users WHERE email = ?`
	a, err := scanAccount(r.db.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan account by email: %w", err)
	}
	return a, nil
}

// Create inserts a new account. The caller supplies the id, starting credits
// and the initial purchase history.
func (r *AccountRepository) Create(ctx context.Context, a *models.Account) error {
	const query = `
INSERT INTO users (id, email, name, password_hash, credits, credits_used, credits_purchased, resumes_generated)
VALUES (?, ?, ?, ?, ?, 0, CAST(? AS JSON), 0)`
	history, err := json.Marshal(a.PurchaseHistory)
	if err != nil {
		return fmt.Errorf("encode purchase history: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, a.ID, a.Email, a.Name, a.PasswordHash, a.Credits, string(history)); err != nil {
		var myErr *mysql.MySQLError
		if errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry {
			return ErrDuplicate
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

// Ledger reads the counters of one account straight from the store.
func (r *AccountRepository) Ledger(ctx context.Context, id string) (*models.LedgerRow, error) {
	const query = `
SELECT credits, credits_used, credits_purchased, resumes_generated
FROM users WHERE id = ?`
	var row models.LedgerRow
	var purchased []byte
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&row.Credits, &row.CreditsUsed, &purchased, &row.ResumesGenerated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan ledger: %w", err)
	}
	history, err := models.ParsePurchaseHistory(purchased)
	if err != nil {
		return nil, fmt.Errorf("ledger %s: %w", id, err)
	}
	row.PurchaseHistory = history
	return &row, nil
}

// ConsumeCredits spends cost credits only if the balance still covers it at
// write time. It reports false when the guard did not hold or the account is gone.
func (r *AccountRepository) ConsumeCredits(ctx context.Context, id string, cost int) (bool, error) {
	const query = `
UPDATE users SET credits = credits - ?, credits_used = credits_used + ?, updated_at = NOW()
WHERE id = ? AND credits >= ?`
	res, err := r.db.ExecContext(ctx, query, cost, cost, id, cost)
	if err != nil {
		return false, fmt.Errorf("consume credits: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("consume rows affected: %w", err)
	}
	return affected > 0, nil
}

// AppendPurchase locks the account row, rewrites a legacy or absent purchase
// history into a one-record list, then adds the credits and appends rec.
// It reports false when the account does not exist.
func (r *AccountRepository) AppendPurchase(ctx context.Context, id string, rec models.PurchaseRecord, welcomeBonus int) (bool, error) {
	found := false
	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		const lockQuery = `SELECT credits_purchased, created_at FROM users WHERE id = ? FOR UPDATE`
		var purchased []byte
		var createdAt time.Time
		if err := tx.QueryRowContext(ctx, lockQuery, id).Scan(&purchased, &createdAt); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil
			}
			return fmt.Errorf("lock account: %w", err)
		}
		found = true

		history, err := models.ParsePurchaseHistory(purchased)
		if err != nil {
			return err
		}
		if history.NeedsMigration() {
			migrated, err := json.Marshal(models.DetailedHistory(history.MigrationRecord(welcomeBonus, createdAt)))
			if err != nil {
				return fmt.Errorf("encode migrated history: %w", err)
			}
			const migrateQuery = `UPDATE users SET credits_purchased = CAST(? AS JSON) WHERE id = ?`
			if _, err := tx.ExecContext(ctx, migrateQuery, string(migrated), id); err != nil {
				return fmt.Errorf("migrate purchase history: %w", err)
			}
		}

		encoded, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode purchase record: %w", err)
		}
		const appendQuery = `
UPDATE users SET credits = credits + ?, credits_purchased = JSON_ARRAY_APPEND(credits_purchased, '$', CAST(? AS JSON)), updated_at = NOW()
WHERE id = ?`
		if _, err := tx.ExecContext(ctx, appendQuery, rec.Amount, string(encoded), id); err != nil {
			return fmt.Errorf("append purchase: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return found, nil
}

func (r *AccountRepository) IncrementResumesGenerated(ctx context.Context, id string) (bool, error) {
	const query = `UPDATE users SET resumes_generated = resumes_generated + 1, updated_at = NOW() WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("increment resumes generated: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("resumes rows affected: %w", err)
	}
	return affected > 0, nil
}

// AddCredits returns credits to the spendable balance without touching the
// lifetime counters or the purchase history.
func (r *AccountRepository) AddCredits(ctx context.Context, id string, amount int) (bool, error) {
	const query = `UPDATE users SET credits = credits + ?, updated_at = NOW() WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query, amount, id)
	if err != nil {
		return false, fmt.Errorf("add credits: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("add credits rows affected: %w", err)
	}
	return affected > 0, nil
}
