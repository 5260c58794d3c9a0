// Package app wires configuration into the stores, services and notifier
// shared by the binaries.
package app

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/hray3182/remindbot/internal/config"
	"github.com/hray3182/remindbot/internal/database"
	"github.com/hray3182/remindbot/internal/models"
	"github.com/hray3182/remindbot/internal/notify"
	"github.com/hray3182/remindbot/internal/reminder"
	"github.com/hray3182/remindbot/internal/repository"
)

type UserStore interface {
	GetOrCreate(ctx context.Context, userID string, userName string) (*models.User, error)
}

// Stores holds the repositories for the configured driver.
type Stores struct {
	Reminders reminder.Store
	Users     UserStore
	close     func()
}

func (s *Stores) Close() {
	if s.close != nil {
		s.close()
	}
}

// OpenStores connects to the configured backend. Postgres migrations are
// applied on open; the SQLite schema is created by OpenSQLite.
func OpenStores(ctx context.Context, cfg config.DatabaseConfig, log zerolog.Logger) (*Stores, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		db, err := database.New(ctx, cfg.URI)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(ctx, log); err != nil {
			db.Close()
			return nil, err
		}
		log.Info().Msg("connected to postgres")
		return &Stores{
			Reminders: repository.NewReminderRepository(db),
			Users:     repository.NewUserRepository(db),
			close:     db.Close,
		}, nil

	case config.DriverSQLite:
		db, err := database.OpenSQLite(ctx, cfg.URI, cfg.BusyTimeout)
		if err != nil {
			return nil, err
		}
		log.Info().Str("path", cfg.URI).Msg("opened sqlite database")
		return &Stores{
			Reminders: repository.NewSQLiteReminderRepository(db),
			Users:     repository.NewSQLiteUserRepository(db),
			close:     func() { _ = db.Close() },
		}, nil

	case config.DriverMemory:
		log.Warn().Msg("using in-memory store, reminders are lost on exit")
		return &Stores{
			Reminders: repository.NewMemoryReminderRepository(),
			Users:     repository.NewMemoryUserRepository(),
		}, nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
}

// Migrate applies pending migrations without starting anything else.
func Migrate(ctx context.Context, cfg config.DatabaseConfig, log zerolog.Logger) error {
	stores, err := OpenStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	stores.Close()
	return nil
}

// NewService builds the lifecycle service in the configured zone.
func NewService(cfg *config.Config, store reminder.Store, log zerolog.Logger) (*reminder.Service, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	return reminder.NewService(store, loc, log), nil
}

// NewScanner builds a scanner that pushes through notifier.
func NewScanner(cfg config.ScanConfig, store reminder.Store, notifier reminder.Notifier, log zerolog.Logger) *reminder.Scanner {
	return reminder.NewScanner(store, notifier, reminder.ScannerConfig{
		Lookahead:        cfg.Lookahead,
		CandidateTimeout: cfg.CandidateTimeout,
		Concurrency:      cfg.Concurrency,
		APIKey:           cfg.APIKey,
	}, log)
}

// NewTelegram connects the bot API and wraps it in a rate limited notifier.
func NewTelegram(cfg *config.Config, log zerolog.Logger) (*tgbotapi.BotAPI, *notify.Telegram, error) {
	if err := cfg.RequireTelegram(); err != nil {
		return nil, nil, err
	}
	api, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create telegram api: %w", err)
	}
	log.Info().Str("username", api.Self.UserName).Msg("authorized on telegram")
	return api, notify.NewTelegram(api, cfg.Notify.RatePerSec, log), nil
}
