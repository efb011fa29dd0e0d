package httpapi

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/digkill/ResumeForge/internal/models"
	"github.com/digkill/ResumeForge/internal/repository"
)

type memAccounts struct {
	mu   sync.Mutex
	rows map[string]*models.Account
}

func newMemAccounts() *memAccounts {
	return &memAccounts{rows: map[string]*models.Account{}}
}

func cloneAccount(a *models.Account) *models.Account {
	cp := *a
	cp.PurchaseHistory.Records = append([]models.PurchaseRecord(nil), a.PurchaseHistory.Records...)
	return &cp
}

func (m *memAccounts) Create(_ context.Context, a *models.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.rows {
		if existing.Email == a.Email {
			return repository.ErrDuplicate
		}
	}
	m.rows[a.ID] = cloneAccount(a)
	return nil
}

func (m *memAccounts) FindByID(_ context.Context, id string) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.rows[id]
	if !ok {
		return nil, nil
	}
	return cloneAccount(a), nil
}

func (m *memAccounts) FindByEmail(_ context.Context, email string) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.rows {
		if a.Email == email {
			return cloneAccount(a), nil
		}
	}
	return nil, nil
}

func (m *memAccounts) setCredits(id string, credits int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[id].Credits = credits
}

func (m *memAccounts) Ledger(_ context.Context, id string) (*models.LedgerRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.rows[id]
	if !ok {
		return nil, nil
	}
	cp := cloneAccount(a)
	return &models.LedgerRow{
		Credits:          cp.Credits,
		CreditsUsed:      cp.CreditsUsed,
		PurchaseHistory:  cp.PurchaseHistory,
		ResumesGenerated: cp.ResumesGenerated,
	}, nil
}

func (m *memAccounts) ConsumeCredits(_ context.Context, id string, cost int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.rows[id]
	if !ok || a.Credits < cost {
		return false, nil
	}
	a.Credits -= cost
	a.CreditsUsed += cost
	return true, nil
}

func (m *memAccounts) AppendPurchase(_ context.Context, id string, rec models.PurchaseRecord, welcomeBonus int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.rows[id]
	if !ok {
		return false, nil
	}
	if a.PurchaseHistory.NeedsMigration() {
		a.PurchaseHistory = models.DetailedHistory(a.PurchaseHistory.MigrationRecord(welcomeBonus, a.CreatedAt))
	}
	a.PurchaseHistory.Records = append(a.PurchaseHistory.Records, rec)
	a.Credits += rec.Amount
	return true, nil
}

func (m *memAccounts) IncrementResumesGenerated(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.rows[id]
	if !ok {
		return false, nil
	}
	a.ResumesGenerated++
	return true, nil
}

func (m *memAccounts) AddCredits(_ context.Context, id string, amount int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.rows[id]
	if !ok {
		return false, nil
	}
	a.Credits += amount
	return true, nil
}

type memResumes struct {
	mu    sync.Mutex
	items map[string]*models.Resume
}

func newMemResumes() *memResumes {
	return &memResumes{items: map[string]*models.Resume{}}
}

func (m *memResumes) Save(_ context.Context, r *models.Resume) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	m.items[r.ID] = &cp
	return nil
}

func (m *memResumes) FindByUser(_ context.Context, userID string, limit int) ([]models.Resume, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Resume
	for _, r := range m.items {
		if r.UserID == userID {
			cp := *r
			cp.PDFBase64 = ""
			cp.ResumeText = ""
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memResumes) FindByID(_ context.Context, id string) (*models.Resume, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.items[id]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (m *memResumes) IncrementDownload(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.items[id]
	if !ok {
		return false, nil
	}
	r.DownloadCount++
	now := time.Now().UTC()
	r.LastDownloaded = &now
	return true, nil
}

func (m *memResumes) Stats(_ context.Context, userID string) (models.ResumeStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var st models.ResumeStats
	for _, r := range m.items {
		if r.UserID == userID {
			st.TotalResumes++
			st.TotalDownloads += r.DownloadCount
		}
	}
	return st, nil
}

type memPackages struct {
	mu     sync.Mutex
	nextID int64
	items  map[int64]*models.CreditPackage
}

func newMemPackages() *memPackages {
	return &memPackages{items: map[int64]*models.CreditPackage{}}
}

func (m *memPackages) sorted(activeOnly bool) []models.CreditPackage {
	var out []models.CreditPackage
	for _, p := range m.items {
		if activeOnly && !p.IsActive {
			continue
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *memPackages) List(context.Context) ([]models.CreditPackage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sorted(false), nil
}

func (m *memPackages) ListActive(context.Context) ([]models.CreditPackage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sorted(true), nil
}

func (m *memPackages) Count(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items), nil
}

func (m *memPackages) GetByID(_ context.Context, id int64) (*models.CreditPackage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.items[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *memPackages) Create(_ context.Context, p *models.CreditPackage) (*models.CreditPackage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	cp := *p
	cp.ID = m.nextID
	cp.CreatedAt = time.Now().UTC()
	cp.UpdatedAt = cp.CreatedAt
	m.items[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (m *memPackages) Update(_ context.Context, p *models.CreditPackage) (*models.CreditPackage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[p.ID]; !ok {
		return nil, errors.New("missing package")
	}
	cp := *p
	cp.UpdatedAt = time.Now().UTC()
	m.items[p.ID] = &cp
	out := cp
	return &out, nil
}

func (m *memPackages) Delete(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return false, nil
	}
	delete(m.items, id)
	return true, nil
}

type fakePinger struct{ err error }

func (p fakePinger) PingContext(context.Context) error { return p.err }
