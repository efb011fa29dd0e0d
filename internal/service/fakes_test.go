package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/digkill/ResumeForge/internal/config"
	"github.com/digkill/ResumeForge/internal/models"
	"github.com/digkill/ResumeForge/internal/session"
	"github.com/digkill/ResumeForge/pkg/logger"
)

const testWelcomeBonus = 3

// memoryLedger mimics the MySQL account row: every method is one atomic
// statement, and ConsumeCredits applies the same credits >= cost guard.
type memoryLedger struct {
	mu       sync.Mutex
	rows     map[string]*models.LedgerRow
	created  map[string]time.Time
	failNext map[string]error
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{
		rows:     map[string]*models.LedgerRow{},
		created:  map[string]time.Time{},
		failNext: map[string]error{},
	}
}

func (m *memoryLedger) put(id string, row models.LedgerRow) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[id] = &row
	m.created[id] = time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
}

func (m *memoryLedger) get(id string) models.LedgerRow {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.rows[id]
}

func (m *memoryLedger) failOn(op string, err error) {
	m.mu.Lock()
	m.failNext[op] = err
	m.mu.Unlock()
}

func (m *memoryLedger) takeFailure(op string) error {
	err := m.failNext[op]
	delete(m.failNext, op)
	return err
}

func (m *memoryLedger) Ledger(_ context.Context, id string) (*models.LedgerRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure("ledger"); err != nil {
		return nil, err
	}
	row, ok := m.rows[id]
	if !ok {
		return nil, nil
	}
	cp := *row
	cp.PurchaseHistory.Records = append([]models.PurchaseRecord(nil), row.PurchaseHistory.Records...)
	return &cp, nil
}

func (m *memoryLedger) ConsumeCredits(_ context.Context, id string, cost int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure("consume"); err != nil {
		return false, err
	}
	row, ok := m.rows[id]
	if !ok || row.Credits < cost {
		return false, nil
	}
	row.Credits -= cost
	row.CreditsUsed += cost
	return true, nil
}

func (m *memoryLedger) AppendPurchase(_ context.Context, id string, rec models.PurchaseRecord, welcomeBonus int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure("append"); err != nil {
		return false, err
	}
	row, ok := m.rows[id]
	if !ok {
		return false, nil
	}
	if row.PurchaseHistory.NeedsMigration() {
		row.PurchaseHistory = models.DetailedHistory(row.PurchaseHistory.MigrationRecord(welcomeBonus, m.created[id]))
	}
	row.PurchaseHistory.Records = append(row.PurchaseHistory.Records, rec)
	row.Credits += rec.Amount
	return true, nil
}

func (m *memoryLedger) IncrementResumesGenerated(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure("record"); err != nil {
		return false, err
	}
	row, ok := m.rows[id]
	if !ok {
		return false, nil
	}
	row.ResumesGenerated++
	return true, nil
}

func (m *memoryLedger) AddCredits(_ context.Context, id string, amount int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return false, nil
	}
	row.Credits += amount
	return true, nil
}

type memoryResumes struct {
	mu      sync.Mutex
	items   map[string]*models.Resume
	saveErr error
}

func newMemoryResumes() *memoryResumes {
	return &memoryResumes{items: map[string]*models.Resume{}}
}

func (m *memoryResumes) Save(_ context.Context, r *models.Resume) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	cp := *r
	m.items[r.ID] = &cp
	return nil
}

func (m *memoryResumes) FindByUser(_ context.Context, userID string, limit int) ([]models.Resume, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Resume
	for _, r := range m.items {
		if r.UserID == userID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *memoryResumes) FindByID(_ context.Context, id string) (*models.Resume, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.items[id]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (m *memoryResumes) IncrementDownload(_ context.Context, id string) (bool, error) {
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

func (m *memoryResumes) Stats(_ context.Context, userID string) (models.ResumeStats, error) {
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

func (m *memoryResumes) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

type stubGenerator struct {
	mu       sync.Mutex
	payload  string
	err      error
	block    bool
	calls    int
	lastText string
	lastJD   string
}

func (g *stubGenerator) Generate(ctx context.Context, resumeText, jobDescription string) (string, error) {
	g.mu.Lock()
	g.calls++
	g.lastText = resumeText
	g.lastJD = jobDescription
	payload, err, block := g.payload, g.err, g.block
	g.mu.Unlock()
	if block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return payload, err
}

type diagError struct{ msg string }

func (e diagError) Error() string      { return "generator status 422: " + e.msg }
func (e diagError) Diagnostic() string { return e.msg }

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *recordingNotifier) Notify(_ context.Context, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, text)
	return nil
}

func (n *recordingNotifier) sent() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.messages...)
}

// blockingNotifier holds every Notify call until release is closed.
type blockingNotifier struct {
	started chan struct{}
	release chan struct{}
	ctxErr  error
}

func (n *blockingNotifier) Notify(ctx context.Context, _ string) error {
	close(n.started)
	<-n.release
	n.ctxErr = ctx.Err()
	return nil
}

var errStoreDown = errors.New("store down")

func testConfig() config.Config {
	return config.Config{
		WelcomeBonusCredits: testWelcomeBonus,
		GenerationCost:      1,
		RequestTimeout:      time.Second,
	}
}

func newTestLedger(store LedgerStore) *LedgerService {
	return NewLedgerService(testConfig(), logger.Discard(), store)
}

func newTestSessions() *session.Store {
	return session.NewStore(time.Hour)
}
