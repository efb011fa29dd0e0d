package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/digkill/ResumeForge/internal/service"
)

func (s *Server) handleListPackages(w http.ResponseWriter, r *http.Request) {
	pkgs, err := s.packages.List(r.Context())
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "", packageViews(pkgs))
}

func (s *Server) handleCreatePackage(w http.ResponseWriter, r *http.Request) {
	var req service.CreatePackageInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, "invalid json")
		return
	}
	pkg, err := s.packages.Create(r.Context(), req)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, "", newPackageView(*pkg))
}

func (s *Server) handleUpdatePackage(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, "invalid id")
		return
	}
	var req service.UpdatePackageInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, "invalid json")
		return
	}
	pkg, err := s.packages.Update(r.Context(), id, req)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "", newPackageView(*pkg))
}

func (s *Server) handleDeletePackage(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, "invalid id")
		return
	}
	if err := s.packages.Delete(r.Context(), id); err != nil {
		s.handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type refundRequest struct {
	Amount int    `json:"amount"`
	Reason string `json:"reason"`
}

// handleRefund returns credits after a charged generation failed.
func (s *Server) handleRefund(w http.ResponseWriter, r *http.Request) {
	accountID := strings.TrimSpace(chi.URLParam(r, "id"))
	var req refundRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, "invalid json")
		return
	}
	balance, err := s.ledger.Refund(r.Context(), accountID, req.Amount)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	s.log.Info("admin refund", "account_id", accountID, "amount", req.Amount, "reason", req.Reason)
	writeData(w, http.StatusOK, "Credits refunded", balance)
}

func parseID(value string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(value), 10, 64)
}
