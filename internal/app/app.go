// Package app инициализирует все компоненты приложения.
// app.go — точка сборки: создаёт БД-пул, репозитории, сервисы, обработчики,
// фильтры и собирает всё в один объект Bot.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"adspredia.site/platform-bot/internal/bot"
	"adspredia.site/platform-bot/internal/bot/filters"
	"adspredia.site/platform-bot/internal/common"
	"adspredia.site/platform-bot/internal/config"
	"adspredia.site/platform-bot/internal/db/postgres"
	"adspredia.site/platform-bot/internal/features/accounts"
	"adspredia.site/platform-bot/internal/features/admin"
	"adspredia.site/platform-bot/internal/features/daily"
	"adspredia.site/platform-bot/internal/features/ledger"
	"adspredia.site/platform-bot/internal/features/reconcile"
	"adspredia.site/platform-bot/internal/features/submissions"
	"adspredia.site/platform-bot/internal/features/tasks"
	"adspredia.site/platform-bot/internal/jobs"
	"adspredia.site/platform-bot/internal/oracle"
	"adspredia.site/platform-bot/internal/snapshot"
)

// App содержит все компоненты приложения.
type App struct {
	Bot       *bot.Bot
	Scheduler *jobs.Scheduler
	DB        *pgxpool.Pool
	BotAPI    *tgbotapi.BotAPI
}

// New создаёт и инициализирует приложение.
// Порядок инициализации важен — компоненты зависят друг от друга.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	// === 1. База данных ===
	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к БД: %w", err)
	}

	if err := runMigrations(ctx, pool); err != nil {
		return nil, fmt.Errorf("ошибка миграций: %w", err)
	}

	// === 2. Telegram Bot API ===
	botAPI, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания Telegram API: %w", err)
	}
	botAPI.Debug = cfg.AppEnv == "development"
	log.Infof("Авторизован как @%s", botAPI.Self.UserName)

	// === 3. Репозитории ===
	accountRepo := accounts.NewRepository(pool)
	taskRepo := tasks.NewRepository(pool)
	ledgerRepo := ledger.NewRepository(pool)
	submissionRepo := submissions.NewRepository(pool)
	adminRepo := admin.NewRepository(pool)

	// === 4. Сервисы ===
	accountService := accounts.NewService(accountRepo)
	taskService := tasks.NewService(taskRepo)
	ledgerService := ledger.NewService(ledgerRepo)

	var verifier submissions.Verifier
	if cfg.FeatureOracleEnabled && cfg.OracleAPIKey != "" {
		verifier = oracle.NewClient(cfg)
	}
	submissionService := submissions.NewService(
		submissionRepo, taskService, accountService, verifier)

	dailyService := daily.NewService(
		accountService, ledgerService, cfg.Location(), cfg.DailyBonusCoins, cfg.SpinDailyLimit)
	reconcileService := reconcile.NewService(
		accountService, ledgerService, taskService, cfg.MinWithdrawal)

	snapshotRepo := snapshot.NewRepository(
		pool, accountService, taskService, submissionService, ledgerService)
	snapshotService := snapshot.NewService(snapshotRepo)

	adminService := admin.NewService(adminRepo, accountService, cfg)

	// === 5. Сидирование ===
	if err := seedRootAdmin(ctx, accountRepo); err != nil {
		return nil, fmt.Errorf("ошибка сидирования админа: %w", err)
	}

	// === 6. Обработчики ===
	accountHandler := accounts.NewHandler(accountService, ledgerService, botAPI, cfg)
	taskHandler := tasks.NewHandler(taskService, accountService, botAPI)
	submissionHandler := submissions.NewHandler(submissionService, accountService, botAPI)
	ledgerHandler := ledger.NewHandler(ledgerService, func(ctx context.Context, telegramID int64) (int64, error) {
		a, err := accountService.GetByTelegramID(ctx, telegramID)
		if err != nil {
			return 0, err
		}
		return a.ID, nil
	}, botAPI)
	dailyHandler := daily.NewHandler(dailyService, accountService, botAPI, cfg)
	reconcileHandler := reconcile.NewHandler(reconcileService, accountService, botAPI, cfg)
	adminHandler := admin.NewHandler(adminService, taskService, reconcileService, snapshotService, botAPI)

	// === 7. Фильтры ===
	accessFilter := filters.NewAccessFilter(accountService, botAPI)

	// === 8. Собираем бота ===
	b := bot.New(
		botAPI, cfg,
		accountHandler,
		taskHandler,
		submissionHandler,
		ledgerHandler,
		dailyHandler,
		reconcileHandler,
		adminHandler,
		accessFilter,
	)

	// === 9. Планировщик задач ===
	scheduler := jobs.NewScheduler(submissionService, adminRepo, cfg)

	return &App{
		Bot:       b,
		Scheduler: scheduler,
		DB:        pool,
		BotAPI:    botAPI,
	}, nil
}

// seedRootAdmin создаёт корневой админ-аккаунт при первом запуске.
func seedRootAdmin(ctx context.Context, repo *accounts.Repository) error {
	const rootEmail = "admin@adspredia.site"

	_, err := repo.GetByEmail(ctx, rootEmail)
	if err == nil {
		return nil
	}
	if !errors.Is(err, common.ErrAccountNotFound) {
		return err
	}

	root := &accounts.Account{
		Email:        rootEmail,
		Name:         "Root Administrator",
		Role:         accounts.RoleAdmin,
		Balance:      decimal.Zero,
		ReferralCode: "ADMIN001",
		JoinedAt:     time.Now().UTC(),
	}
	if err := repo.Create(ctx, root); err != nil {
		return err
	}
	log.WithField("account_id", root.ID).Info("Создан корневой админ-аккаунт")
	return nil
}

// runMigrations выполняет все SQL-миграции.
func runMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	if err := postgres.InitMigrations(ctx, pool); err != nil {
		return err
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{1, migration001Accounts},
		{2, migration002Tasks},
		{3, migration003Submissions},
		{4, migration004Transactions},
		{5, migration005Admin},
		{6, migration006Settings},
	}

	for _, m := range migrations {
		if err := postgres.ExecMigrationSQL(ctx, pool, m.version, m.sql); err != nil {
			return fmt.Errorf("миграция %d: %w", m.version, err)
		}
		log.Infof("Миграция %d применена", m.version)
	}

	return nil
}

// SQL-миграции встроены в код для упрощения деплоя.

var migration001Accounts = `
CREATE TABLE IF NOT EXISTS accounts (
    id BIGSERIAL PRIMARY KEY,
    telegram_id BIGINT UNIQUE,
    email VARCHAR(255) UNIQUE NOT NULL,
    name VARCHAR(255) NOT NULL,
    role VARCHAR(32) NOT NULL DEFAULT 'user',
    coins BIGINT NOT NULL DEFAULT 0,
    balance NUMERIC(14,3) NOT NULL DEFAULT 0,
    referral_code VARCHAR(32) UNIQUE NOT NULL,
    referral_count INTEGER NOT NULL DEFAULT 0,
    login_streak INTEGER NOT NULL DEFAULT 0,
    last_bonus_date DATE,
    spins_today INTEGER NOT NULL DEFAULT 0,
    last_spin_date DATE,
    is_banned BOOLEAN NOT NULL DEFAULT FALSE,
    joined_at TIMESTAMP NOT NULL DEFAULT NOW(),
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_accounts_telegram_id ON accounts(telegram_id);
CREATE INDEX IF NOT EXISTS idx_accounts_referral_code ON accounts(referral_code);
`

var migration002Tasks = `
CREATE TABLE IF NOT EXISTS tasks (
    id BIGSERIAL PRIMARY KEY,
    title VARCHAR(255) NOT NULL,
    category VARCHAR(64) NOT NULL DEFAULT '',
    description TEXT NOT NULL DEFAULT '',
    reward_coins BIGINT NOT NULL,
    instructions TEXT[] NOT NULL DEFAULT '{}',
    status VARCHAR(32) NOT NULL DEFAULT 'available',
    creator_id BIGINT NOT NULL REFERENCES accounts(id),
    completions INTEGER NOT NULL DEFAULT 0,
    completion_limit INTEGER NOT NULL,
    auto_approve BOOLEAN NOT NULL DEFAULT FALSE,
    link TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);
CREATE INDEX IF NOT EXISTS idx_tasks_creator_id ON tasks(creator_id);
`

var migration003Submissions = `
CREATE TABLE IF NOT EXISTS submissions (
    id BIGSERIAL PRIMARY KEY,
    -- Без внешнего ключа: задание может быть удалено окончательно,
    -- а заявки и история выплат по нему остаются
    task_id BIGINT NOT NULL,
    worker_id BIGINT NOT NULL,
    worker_name VARCHAR(255) NOT NULL DEFAULT '',
    proof_text TEXT NOT NULL DEFAULT '',
    proof_image_mime VARCHAR(64) NOT NULL DEFAULT '',
    proof_image_b64 TEXT NOT NULL DEFAULT '',
    status VARCHAR(32) NOT NULL DEFAULT 'pending',
    reward_coins BIGINT NOT NULL,
    verdict TEXT NOT NULL DEFAULT '',
    submitted_at TIMESTAMP NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_submissions_task_id ON submissions(task_id);
CREATE INDEX IF NOT EXISTS idx_submissions_worker_id ON submissions(worker_id);
CREATE INDEX IF NOT EXISTS idx_submissions_status ON submissions(status);
`

var migration004Transactions = `
CREATE TABLE IF NOT EXISTS transactions (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL,
    user_name VARCHAR(255) NOT NULL DEFAULT '',
    tx_type VARCHAR(32) NOT NULL,
    amount NUMERIC(14,3) NOT NULL,
    status VARCHAR(32) NOT NULL DEFAULT 'completed',
    method VARCHAR(64) NOT NULL DEFAULT '',
    account_number VARCHAR(128) NOT NULL DEFAULT '',
    account_name VARCHAR(255) NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_transactions_user_id ON transactions(user_id);
CREATE INDEX IF NOT EXISTS idx_transactions_status ON transactions(status);
CREATE INDEX IF NOT EXISTS idx_transactions_created_at ON transactions(created_at DESC);
`

var migration005Admin = `
CREATE TABLE IF NOT EXISTS admin_sessions (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT,
    session_token VARCHAR(255) UNIQUE,
    authenticated_at TIMESTAMP DEFAULT NOW(),
    expires_at TIMESTAMP,
    last_activity TIMESTAMP DEFAULT NOW(),
    is_active BOOLEAN DEFAULT TRUE
);
CREATE INDEX IF NOT EXISTS idx_admin_sessions_user_id ON admin_sessions(user_id);
CREATE TABLE IF NOT EXISTS admin_login_attempts (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT,
    attempt_time TIMESTAMP DEFAULT NOW(),
    success BOOLEAN DEFAULT FALSE
);
`

var migration006Settings = `
CREATE TABLE IF NOT EXISTS settings (
    id INTEGER PRIMARY KEY,
    site_name VARCHAR(255) NOT NULL DEFAULT 'AdsPredia',
    logo_url TEXT NOT NULL DEFAULT '',
    hero_banner_url TEXT NOT NULL DEFAULT ''
);
INSERT INTO settings (id, site_name) VALUES (1, 'AdsPredia')
ON CONFLICT (id) DO NOTHING;
`
