package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digkill/ResumeForge/internal/models"
)

var packageCols = []string{"id", "title", "description", "currency", "price_minor_units", "credits", "is_active", "created_at", "updated_at"}

func newPackageRepo(t *testing.T) (*PackageRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPackageRepository(db), mock
}

func TestPackageRepository_ListActive(t *testing.T) {
	repo, mock := newPackageRepo(t)
	now := time.Now()

	mock.ExpectQuery(`FROM pricing_plans WHERE is_active = 1 ORDER BY price_minor_units ASC`).
		WillReturnRows(sqlmock.NewRows(packageCols).AddRow(1, "Starter", "", "USD", 499, 5, true, now, now))

	list, err := repo.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 5, list[0].Credits)
}

func TestPackageRepository_CreateReturnsStoredRow(t *testing.T) {
	repo, mock := newPackageRepo(t)
	now := time.Now()

	mock.ExpectExec(`INSERT INTO pricing_plans`).
		WithArgs("Pro", "", "USD", 1499, 20, true).
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectQuery(`FROM pricing_plans WHERE id = \?`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(packageCols).AddRow(7, "Pro", "", "USD", 1499, 20, true, now, now))

	got, err := repo.Create(context.Background(), &models.CreditPackage{Title: "Pro", Currency: "USD", PriceMinorUnits: 1499, Credits: 20, IsActive: true})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(7), got.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPackageRepository_Delete(t *testing.T) {
	repo, mock := newPackageRepo(t)

	mock.ExpectExec(`DELETE FROM pricing_plans WHERE id = \?`).WithArgs(int64(9)).WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.Delete(context.Background(), 9)
	require.NoError(t, err)
	assert.False(t, ok)
}
