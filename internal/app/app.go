// Package app wires the ledger's layers together for the server and the CLI.
package app

import (
	"context"
	"fmt"
	"os"

	"github.com/Dan9191/ledger-service/internal/balance"
	"github.com/Dan9191/ledger-service/internal/banksync"
	"github.com/Dan9191/ledger-service/internal/config"
	"github.com/Dan9191/ledger-service/internal/importer"
	"github.com/Dan9191/ledger-service/internal/integrations/plaid"
	"github.com/Dan9191/ledger-service/internal/repository"
	"github.com/Dan9191/ledger-service/internal/service"
	"github.com/Dan9191/ledger-service/internal/utils"
	"github.com/Dan9191/ledger-service/internal/utils/email"
	"github.com/sirupsen/logrus"
)

// App holds the initialized layers.
type App struct {
	Config     *config.Config
	Log        *logrus.Logger
	Repo       *repository.Repository
	Service    *service.Service
	Reconciler *banksync.Reconciler
	Importer   *importer.Importer
}

// NewLogger builds the JSON logger used by every entry point.
func NewLogger(level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stderr)
	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)
	return logger
}

// New opens the database, migrates it and builds the service layers.
func New(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*App, error) {
	repo, err := repository.Open(cfg.DBDriver, cfg.DBConn)
	if err != nil {
		return nil, err
	}
	if err := repo.InitializeSchema(ctx); err != nil {
		repo.Close()
		return nil, err
	}

	svc := service.NewService(repo, balance.NewEngine(logger), logger)
	if err := svc.SeedDefaultSubTypes(ctx); err != nil {
		repo.Close()
		return nil, err
	}

	box, err := utils.NewSecretBox(cfg.EncryptionKey)
	if err != nil {
		repo.Close()
		return nil, fmt.Errorf("invalid encryption key: %w", err)
	}

	opts := banksync.Options{
		Timeout:  cfg.FeedTimeout,
		MaxPages: cfg.FeedMaxPages,
	}
	if cfg.EmailEnabled() {
		opts.Notifier = email.NewSender(cfg, logger)
	} else {
		logger.Info("SMTP not configured, feed error reports will only be logged")
	}
	reconciler := banksync.NewReconciler(repo, svc, plaid.NewClient(cfg, logger), box, logger, opts)

	var rules *importer.Rules
	if cfg.CategoryRules != "" {
		rules, err = importer.LoadRules(cfg.CategoryRules)
		if err != nil {
			repo.Close()
			return nil, err
		}
		logger.Infof("Loaded category rules from %s", cfg.CategoryRules)
	}

	return &App{
		Config:     cfg,
		Log:        logger,
		Repo:       repo,
		Service:    svc,
		Reconciler: reconciler,
		Importer:   importer.NewImporter(svc, rules, logger),
	}, nil
}

// Close releases the database.
func (a *App) Close() error {
	return a.Repo.Close()
}
