// Package app инициализирует все компоненты приложения.
// app.go — точка сборки: создаёт БД-пул, репозитории, сервисы, обработчики,
// фильтры и собирает всё в один объект Bot.
package app

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"poruka.club/vouch-bot/internal/bot"
	"poruka.club/vouch-bot/internal/bot/filters"
	"poruka.club/vouch-bot/internal/config"
	"poruka.club/vouch-bot/internal/db/postgres"
	"poruka.club/vouch-bot/internal/features/admin"
	"poruka.club/vouch-bot/internal/features/members"
	"poruka.club/vouch-bot/internal/features/profile"
	"poruka.club/vouch-bot/internal/features/tiers"
	"poruka.club/vouch-bot/internal/features/vouch"
	"poruka.club/vouch-bot/internal/jobs"
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

	// Запускаем миграции
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
	memberRepo := members.NewRepository(pool)
	vouchRepo := vouch.NewRepository(pool)
	profileRepo := profile.NewRepository(pool)
	adminRepo := admin.NewRepository(pool)

	// === 4. Сервисы ===
	// Пул замков на кулдаун: фиксированный размер, один на процесс.
	lockPool := vouch.NewLockPool(cfg.VouchLockStripes)
	resolver := tiers.NewResolver(cfg)

	memberService := members.NewService(memberRepo)
	vouchService := vouch.NewService(vouchRepo, lockPool, cfg)
	profileService := profile.NewService(profileRepo)
	adminService := admin.NewService(adminRepo, cfg)

	// === 5. Обработчики ===
	vouchHandler := vouch.NewHandler(vouchService, memberService, resolver, botAPI, cfg)
	profileHandler := profile.NewHandler(profileService, memberService, botAPI)
	adminHandler := admin.NewHandler(
		adminService, vouchService, vouchHandler,
		profileService, memberService, resolver,
		botAPI, cfg,
	)

	// === 6. Фильтры ===
	chatFilter := filters.NewChatFilter(cfg.FloodChatID, memberService, botAPI)

	// === 7. Собираем бота ===
	b := bot.New(
		botAPI, cfg,
		memberService,
		vouchHandler,
		profileHandler,
		adminHandler,
		chatFilter,
	)

	// === 8. Планировщик задач ===
	scheduler := jobs.NewScheduler(
		vouchRepo,
		b.SendMessageToUser,
		func(chatID int64, text string) {
			msg := tgbotapi.NewMessage(chatID, text)
			if _, err := botAPI.Send(msg); err != nil {
				log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки сводки")
			}
		},
		cfg.VouchLogChatID,
		cfg.FeatureRemindersEnabled,
		cfg.FeatureDigestEnabled,
	)

	return &App{
		Bot:       b,
		Scheduler: scheduler,
		DB:        pool,
		BotAPI:    botAPI,
	}, nil
}

// runMigrations выполняет все SQL-миграции.
func runMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	// Инициализируем систему миграций
	if err := postgres.InitMigrations(ctx, pool); err != nil {
		return err
	}

	// Выполняем миграции по порядку
	migrations := []struct {
		version int
		sql     string
	}{
		{1, migration001Members},
		{2, migration002VouchCodes},
		{3, migration003RedeemedUsers},
		{4, migration004UserProfiles},
		{5, migration005Admin},
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
// Все временные колонки — TIMESTAMPTZ, в БД время хранится в UTC.

var migration001Members = `
CREATE TABLE IF NOT EXISTS members (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT UNIQUE NOT NULL,
    username VARCHAR(255),
    first_name VARCHAR(255) NOT NULL,
    last_name VARCHAR(255),
    role VARCHAR(64),
    is_admin BOOLEAN DEFAULT FALSE,
    is_banned BOOLEAN DEFAULT FALSE,
    joined_at TIMESTAMPTZ DEFAULT NOW(),
    created_at TIMESTAMPTZ DEFAULT NOW(),
    updated_at TIMESTAMPTZ DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_members_user_id ON members(user_id);
CREATE INDEX IF NOT EXISTS idx_members_username ON members(username);
`

var migration002VouchCodes = `
CREATE TABLE IF NOT EXISTS vouch_codes (
    code VARCHAR(32) PRIMARY KEY,
    chat_id BIGINT NOT NULL,
    role_id BIGINT NOT NULL,
    creator_id BIGINT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    redeemer_id BIGINT,
    status VARCHAR(16) NOT NULL DEFAULT 'ACTIVE',
    reward_amount INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_vouch_codes_creator ON vouch_codes(creator_id);
CREATE INDEX IF NOT EXISTS idx_vouch_codes_creator_created ON vouch_codes(creator_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_vouch_codes_status_created ON vouch_codes(status, created_at);
`

var migration003RedeemedUsers = `
CREATE TABLE IF NOT EXISTS redeemed_users (
    user_id BIGINT PRIMARY KEY,
    first_redeem_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

var migration004UserProfiles = `
CREATE TABLE IF NOT EXISTS user_profiles (
    user_id BIGINT PRIMARY KEY,
    reputation INTEGER NOT NULL DEFAULT 0,
    last_voucher_id BIGINT
);
`

var migration005Admin = `
CREATE TABLE IF NOT EXISTS admin_sessions (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT REFERENCES members(user_id),
    session_token VARCHAR(255) UNIQUE,
    authenticated_at TIMESTAMPTZ DEFAULT NOW(),
    expires_at TIMESTAMPTZ,
    last_activity TIMESTAMPTZ DEFAULT NOW(),
    is_active BOOLEAN DEFAULT TRUE
);
CREATE INDEX IF NOT EXISTS idx_admin_sessions_user_id ON admin_sessions(user_id);
CREATE TABLE IF NOT EXISTS admin_login_attempts (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT,
    attempt_time TIMESTAMPTZ DEFAULT NOW(),
    success BOOLEAN DEFAULT FALSE
);
`
