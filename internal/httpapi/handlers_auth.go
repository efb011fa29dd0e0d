package httpapi

import (
	"net/http"
	"time"

	"github.com/digkill/ResumeForge/internal/models"
	"github.com/digkill/ResumeForge/internal/service"
)

type userView struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Email            string `json:"email"`
	Credits          int    `json:"credits"`
	CreditsPurchased int    `json:"credits_purchased"`
	CreditsUsed      int    `json:"credits_used"`
	ResumesGenerated int    `json:"resumes_generated"`
	MemberSince      string `json:"member_since"`
}

func (s *Server) newUserView(a *models.Account) userView {
	return userView{
		ID:               a.ID,
		Name:             a.Name,
		Email:            a.Email,
		Credits:          a.Credits,
		CreditsPurchased: a.PurchaseHistory.Total(s.ledger.WelcomeBonus()),
		CreditsUsed:      a.CreditsUsed,
		ResumesGenerated: a.ResumesGenerated,
		MemberSince:      a.CreatedAt.UTC().Format(time.RFC3339),
	}
}

type sessionView struct {
	Token string   `json:"token"`
	User  userView `json:"user"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, "No data provided")
		return
	}
	sess, err := s.accounts.Register(r.Context(), req)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, "User registered successfully", sessionView{
		Token: sess.Token,
		User:  s.newUserView(sess.Account),
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req service.LoginInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, "No data provided")
		return
	}
	sess, err := s.accounts.Login(r.Context(), req)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Login successful", sessionView{
		Token: sess.Token,
		User:  s.newUserView(sess.Account),
	})
}

// Tokens are stateless, the client drops its copy.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, "Logout successful", nil)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request, accountID string) {
	account, err := s.accounts.Profile(r.Context(), accountID)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "", s.newUserView(account))
}
