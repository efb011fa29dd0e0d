package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"

	"github.com/digkill/ResumeForge/internal/auth"
	"github.com/digkill/ResumeForge/internal/config"
	"github.com/digkill/ResumeForge/internal/database"
	"github.com/digkill/ResumeForge/internal/httpapi"
	"github.com/digkill/ResumeForge/internal/notify"
	"github.com/digkill/ResumeForge/internal/repository"
	"github.com/digkill/ResumeForge/internal/rewriter"
	"github.com/digkill/ResumeForge/internal/service"
	"github.com/digkill/ResumeForge/internal/session"
	"github.com/digkill/ResumeForge/internal/storage"
	"github.com/digkill/ResumeForge/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logr := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(ctx, cfg.MySQLDSN)
	if err != nil {
		log.Fatalf("database connect: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		log.Fatalf("database migrate: %v", err)
	}

	accountRepo := repository.NewAccountRepository(db)
	resumeRepo := repository.NewResumeRepository(db)
	packageRepo := repository.NewPackageRepository(db)

	var archive service.Archiver
	if cfg.ArchiveEnabled() {
		a, err := storage.NewArchive(storage.ConfigFrom(cfg))
		if err != nil {
			log.Fatalf("storage archive: %v", err)
		}
		archive = a
	} else {
		logr.Info("extraction archive disabled, S3 is not configured")
	}

	var notifier service.Notifier
	if cfg.AlertsEnabled() {
		tg, err := notify.NewTelegram(cfg.TelegramBotToken, cfg.TelegramAlertChatID, logr)
		if err != nil {
			logr.Error("telegram alerts disabled", "err", err)
		} else {
			notifier = tg
		}
	}

	sessions := session.NewStore(cfg.SessionTTL)
	go sessions.Run(ctx)

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTExpiration)
	generator := rewriter.NewClient(cfg, logr)

	ledgerService := service.NewLedgerService(cfg, logr, accountRepo)
	accountService := service.NewAccountService(cfg, logr, accountRepo, tokens)
	resumeService := service.NewResumeService(logr, resumeRepo)
	extractionService := service.NewExtractionService(cfg, logr, sessions, archive)
	generationService := service.NewGenerationService(cfg, logr, ledgerService, sessions, resumeRepo, generator, notifier)
	packageService := service.NewPackageService(cfg, packageRepo)

	if err := packageService.EnsureDefault(ctx); err != nil {
		log.Fatalf("ensure default package: %v", err)
	}

	server := httpapi.NewServer(cfg, logr, httpapi.Deps{
		Tokens:     tokens,
		DB:         db,
		Accounts:   accountService,
		Ledger:     ledgerService,
		Generation: generationService,
		Resumes:    resumeService,
		Extraction: extractionService,
		Packages:   packageService,
	})

	if err := server.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logr.Error("http server stopped", "err", err)
	}
	generationService.WaitAlerts()
}
