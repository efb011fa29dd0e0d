package models

import "time"

type ResumeStatus string

const (
	ResumeStatusCompleted ResumeStatus = "completed"
)

type Account struct {
	ID               string
	Email            string
	Name             string
	PasswordHash     []byte
	Credits          int
	CreditsUsed      int
	PurchaseHistory  PurchaseHistory
	ResumesGenerated int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// LedgerRow is the subset of an account the credit ledger reads on every operation.
type LedgerRow struct {
	Credits          int
	CreditsUsed      int
	PurchaseHistory  PurchaseHistory
	ResumesGenerated int
}

// Balance is a point-in-time snapshot of an account's counters.
type Balance struct {
	Credits          int `json:"credits_available"`
	CreditsUsed      int `json:"credits_used"`
	CreditsPurchased int `json:"credits_purchased"`
	ResumesGenerated int `json:"resumes_generated"`
}

type Resume struct {
	ID               string
	UserID           string
	OriginalFilename string
	JobDescription   string
	ResumeText       string
	PDFBase64        string
	SizeBytes        int64
	Status           ResumeStatus
	DownloadCount    int
	LastDownloaded   *time.Time
	CreatedAt        time.Time
}

type ResumeStats struct {
	TotalResumes   int `json:"total_resumes"`
	TotalDownloads int `json:"total_downloads"`
}

type CreditPackage struct {
	ID              int64
	Title           string
	Description     string
	Currency        string
	PriceMinorUnits int
	Credits         int
	IsActive        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
