// Package httpapi is the JSON API and the basic-auth admin panel.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/digkill/ResumeForge/internal/auth"
	"github.com/digkill/ResumeForge/internal/config"
	"github.com/digkill/ResumeForge/internal/service"
)

type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

type Pinger interface {
	PingContext(ctx context.Context) error
}

// Deps are the collaborators the handlers call into.
type Deps struct {
	Tokens     TokenVerifier
	DB         Pinger
	Accounts   *service.AccountService
	Ledger     *service.LedgerService
	Generation *service.GenerationService
	Resumes    *service.ResumeService
	Extraction *service.ExtractionService
	Packages   *service.PackageService
}

type Server struct {
	addr         string
	username     string
	password     string
	writeTimeout time.Duration
	log          *slog.Logger
	tokens       TokenVerifier
	db           Pinger
	accounts     *service.AccountService
	ledger       *service.LedgerService
	generation   *service.GenerationService
	resumes      *service.ResumeService
	extraction   *service.ExtractionService
	packages     *service.PackageService
	router       *chi.Mux
}

func NewServer(cfg config.Config, log *slog.Logger, deps Deps) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	writeTimeout := cfg.RequestTimeout + 30*time.Second
	if cfg.RequestTimeout <= 0 {
		writeTimeout = 90 * time.Second
	}

	s := &Server{
		addr:         cfg.ListenAddr,
		username:     cfg.AdminUsername,
		password:     cfg.AdminPassword,
		writeTimeout: writeTimeout,
		log:          log,
		tokens:       deps.Tokens,
		db:           deps.DB,
		accounts:     deps.Accounts,
		ledger:       deps.Ledger,
		generation:   deps.Generation,
		resumes:      deps.Resumes,
		extraction:   deps.Extraction,
		packages:     deps.Packages,
		router:       r,
	}

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(api chi.Router) {
		api.Use(instrument)
		api.Get("/health", s.handleHealth)

		api.Route("/auth", func(r chi.Router) {
			r.Post("/register", s.handleRegister)
			r.Post("/login", s.handleLogin)
			r.Post("/logout", s.handleLogout)
		})

		api.Get("/user/profile", s.authenticated(s.handleProfile))

		api.Route("/payment", func(r chi.Router) {
			r.Get("/credits", s.authenticated(s.handleCredits))
			r.Post("/add-credits", s.authenticated(s.handleAddCredits))
			r.Get("/purchase-history", s.authenticated(s.handlePurchaseHistory))
			r.Get("/plans", s.handleListActivePackages)
		})

		api.Route("/resume", func(r chi.Router) {
			r.Post("/process", s.authenticated(s.handleProcess))
			r.Get("/get-extracted-data", s.authenticated(s.handleGetExtracted))
			r.Delete("/clear-extracted-data", s.authenticated(s.handleClearExtracted))
			r.Post("/generate", s.authenticated(s.handleGenerate))
			r.Post("/generate-resume", s.authenticated(s.handleGenerate))
			r.Get("/user-resumes", s.authenticated(s.handleListResumes))
			r.Get("/download/{id}", s.authenticated(s.handleDownload))
			r.Get("/stats", s.authenticated(s.handleResumeStats))
		})
	})

	r.Route("/admin", func(admin chi.Router) {
		admin.Use(instrument)
		admin.Use(s.basicAuthMiddleware())
		admin.Route("/plans", func(r chi.Router) {
			r.Get("/", s.handleListPackages)
			r.Post("/", s.handleCreatePackage)
			r.Put("/{id}", s.handleUpdatePackage)
			r.Delete("/{id}", s.handleDeletePackage)
		})
		admin.Post("/accounts/{id}/refund", s.handleRefund)
	})

	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      s.writeTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Error("http shutdown error", "err", err)
		}
	}()

	s.log.Info("http api listening", "addr", s.addr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http listen: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if s.db != nil {
		if err := s.db.PingContext(ctx); err != nil {
			s.log.Warn("health check failed", "err", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{
				"status":   "unhealthy",
				"database": "disconnected",
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "healthy",
		"database": "connected",
	})
}
