package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/digkill/ResumeForge/internal/models"
	"github.com/digkill/ResumeForge/internal/service"
)

func (s *Server) handleCredits(w http.ResponseWriter, r *http.Request, accountID string) {
	balance, err := s.ledger.CurrentBalance(r.Context(), accountID)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "", balance)
}

type grantView struct {
	CreditsAdded     int    `json:"credits_added"`
	CreditsAvailable int    `json:"credits_available"`
	CreditsUsed      int    `json:"credits_used"`
	CreditsPurchased int    `json:"credits_purchased"`
	TransactionID    string `json:"transaction_id"`
	Timestamp        string `json:"timestamp"`
}

// handleAddCredits records a payment the client confirmed with the gateway.
func (s *Server) handleAddCredits(w http.ResponseWriter, r *http.Request, accountID string) {
	var req service.GrantRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, "Invalid credit amount")
		return
	}
	balance, err := s.ledger.Grant(r.Context(), accountID, req)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Successfully added "+strconv.Itoa(req.Amount)+" credits", grantView{
		CreditsAdded:     req.Amount,
		CreditsAvailable: balance.Credits,
		CreditsUsed:      balance.CreditsUsed,
		CreditsPurchased: balance.CreditsPurchased,
		TransactionID:    req.TransactionID,
		Timestamp:        time.Now().UTC().Format(time.RFC3339),
	})
}

type purchasesView struct {
	Purchases      []models.PurchaseRecord `json:"purchases"`
	TotalPurchases int                     `json:"total_purchases"`
}

func (s *Server) handlePurchaseHistory(w http.ResponseWriter, r *http.Request, accountID string) {
	records, err := s.ledger.PurchaseHistory(r.Context(), accountID)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	if records == nil {
		records = []models.PurchaseRecord{}
	}
	writeData(w, http.StatusOK, "", purchasesView{Purchases: records, TotalPurchases: len(records)})
}

type packageView struct {
	ID              int64  `json:"id"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	Currency        string `json:"currency"`
	PriceMinorUnits int    `json:"price_minor_units"`
	Credits         int    `json:"credits"`
	IsActive        bool   `json:"is_active"`
	CreatedAt       string `json:"created_at"`
	UpdatedAt       string `json:"updated_at"`
}

func newPackageView(p models.CreditPackage) packageView {
	return packageView{
		ID:              p.ID,
		Title:           p.Title,
		Description:     p.Description,
		Currency:        p.Currency,
		PriceMinorUnits: p.PriceMinorUnits,
		Credits:         p.Credits,
		IsActive:        p.IsActive,
		CreatedAt:       p.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:       p.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func packageViews(pkgs []models.CreditPackage) []packageView {
	out := make([]packageView, 0, len(pkgs))
	for _, p := range pkgs {
		out = append(out, newPackageView(p))
	}
	return out
}

func (s *Server) handleListActivePackages(w http.ResponseWriter, r *http.Request) {
	pkgs, err := s.packages.ListActive(r.Context())
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "", packageViews(pkgs))
}
