package service

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digkill/ResumeForge/internal/config"
	"github.com/digkill/ResumeForge/internal/models"
)

type memoryPackages struct {
	mu     sync.Mutex
	nextID int64
	items  map[int64]models.CreditPackage
}

func newMemoryPackages() *memoryPackages {
	return &memoryPackages{items: map[int64]models.CreditPackage{}}
}

func (m *memoryPackages) list(onlyActive bool) []models.CreditPackage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.CreditPackage{}
	for _, p := range m.items {
		if !onlyActive || p.IsActive {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *memoryPackages) List(context.Context) ([]models.CreditPackage, error) {
	return m.list(false), nil
}

func (m *memoryPackages) ListActive(context.Context) ([]models.CreditPackage, error) {
	return m.list(true), nil
}

func (m *memoryPackages) Count(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items), nil
}

func (m *memoryPackages) GetByID(_ context.Context, id int64) (*models.CreditPackage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.items[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *memoryPackages) Create(_ context.Context, p *models.CreditPackage) (*models.CreditPackage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	p.ID = m.nextID
	m.items[p.ID] = *p
	cp := *p
	return &cp, nil
}

func (m *memoryPackages) Update(_ context.Context, p *models.CreditPackage) (*models.CreditPackage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[p.ID]; !ok {
		return nil, nil
	}
	m.items[p.ID] = *p
	cp := *p
	return &cp, nil
}

func (m *memoryPackages) Delete(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.items[id]
	delete(m.items, id)
	return ok, nil
}

func newPackageService() (*PackageService, *memoryPackages) {
	store := newMemoryPackages()
	cfg := config.Config{PaymentCurrency: "USD", PaymentPriceMinorUnits: 499, PaymentCreditsPerPackage: 5}
	return NewPackageService(cfg, store), store
}

func TestPackageService_EnsureDefaultSeedsOnce(t *testing.T) {
	svc, store := newPackageService()

	require.NoError(t, svc.EnsureDefault(context.Background()))
	require.NoError(t, svc.EnsureDefault(context.Background()))

	list, _ := store.List(context.Background())
	require.Len(t, list, 1)
	assert.Equal(t, 5, list[0].Credits)
	assert.Equal(t, 499, list[0].PriceMinorUnits)
	assert.True(t, list[0].IsActive)
}

func TestPackageService_CreateUpdateDelete(t *testing.T) {
	svc, _ := newPackageService()
	ctx := context.Background()

	_, err := svc.Create(ctx, CreatePackageInput{Title: " ", PriceMinorUnits: 100, Credits: 1})
	assert.ErrorIs(t, err, ErrValidation)

	inactive := false
	p, err := svc.Create(ctx, CreatePackageInput{Title: "Pro", Currency: "eur", PriceMinorUnits: 1499, Credits: 20, IsActive: &inactive})
	require.NoError(t, err)
	assert.Equal(t, "EUR", p.Currency)

	active, err := svc.ListActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)

	credits := 25
	on := true
	p, err = svc.Update(ctx, p.ID, UpdatePackageInput{Credits: &credits, IsActive: &on})
	require.NoError(t, err)
	assert.Equal(t, 25, p.Credits)
	assert.True(t, p.IsActive)

	bad := 0
	_, err = svc.Update(ctx, p.ID, UpdatePackageInput{PriceMinorUnits: &bad})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.Update(ctx, 999, UpdatePackageInput{})
	assert.ErrorIs(t, err, ErrPackageNotFound)

	require.NoError(t, svc.Delete(ctx, p.ID))
	assert.ErrorIs(t, svc.Delete(ctx, p.ID), ErrPackageNotFound)
}
