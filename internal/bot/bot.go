// Package bot содержит главный модуль бота — инициализацию, запуск и остановку.
// bot.go принимает готовые сервисы, подключает обработчики и запускает polling.
package bot

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"poruka.club/vouch-bot/internal/bot/filters"
	"poruka.club/vouch-bot/internal/bot/middleware"
	"poruka.club/vouch-bot/internal/config"
	"poruka.club/vouch-bot/internal/features/admin"
	"poruka.club/vouch-bot/internal/features/members"
	"poruka.club/vouch-bot/internal/features/profile"
	"poruka.club/vouch-bot/internal/features/vouch"
)

// Bot — главная структура бота, объединяющая все компоненты.
type Bot struct {
	api *tgbotapi.BotAPI
	cfg *config.Config

	chatFilter  *filters.ChatFilter
	rateLimiter *middleware.RateLimiter

	vouchHandler   *vouch.Handler
	profileHandler *profile.Handler
	adminHandler   *admin.Handler

	memberService *members.Service

	parser *CommandParser

	// ограничитель параллелизма обработки апдейтов
	inflight chan struct{}
}

// New создаёт новый экземпляр бота со всеми зависимостями.
func New(
	api *tgbotapi.BotAPI,
	cfg *config.Config,
	memberService *members.Service,
	vouchHandler *vouch.Handler,
	profileHandler *profile.Handler,
	adminHandler *admin.Handler,
	chatFilter *filters.ChatFilter,
) *Bot {
	maxInFlight := cfg.BotMaxInflight
	if maxInFlight <= 0 {
		maxInFlight = 64
	}

	return &Bot{
		api:            api,
		cfg:            cfg,
		chatFilter:     chatFilter,
		rateLimiter:    middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow),
		vouchHandler:   vouchHandler,
		profileHandler: profileHandler,
		adminHandler:   adminHandler,
		memberService:  memberService,
		parser:         NewCommandParser(),
		inflight:       make(chan struct{}, maxInFlight),
	}
}

// Start запускает polling обновлений от Telegram.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.cfg.BotUpdateTimeoutSeconds

	updates := b.api.GetUpdatesChan(u)

	log.WithFields(log.Fields{
		"max_inflight": b.cfg.BotMaxInflight,
		"timeout_sec":  b.cfg.BotUpdateTimeoutSeconds,
	}).Info("Бот запущен и ожидает сообщения...")

	for {
		select {
		case <-ctx.Done():
			log.Info("Бот останавливается (ctx done)...")
			b.api.StopReceivingUpdates()
			return

		case update, ok := <-updates:
			if !ok {
				log.Info("Канал updates закрыт, бот остановлен")
				return
			}

			// лимит параллелизма
			b.inflight <- struct{}{}
			go func(upd tgbotapi.Update) {
				defer func() { <-b.inflight }()
				b.handleUpdate(ctx, upd)
			}(update)
		}
	}
}

// handleUpdate обрабатывает одно обновление от Telegram.
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer middleware.RecoverFromPanic(update.UpdateID)

	// Обрабатываем новых участников (событие вступления)
	if update.Message != nil && update.Message.NewChatMembers != nil {
		if update.Message.Chat != nil && update.Message.Chat.ID == b.cfg.FloodChatID {
			b.handleNewMembers(ctx, update.Message.NewChatMembers)
		}
		return
	}

	// Обрабатываем обычные сообщения
	if update.Message == nil || update.Message.Text == "" {
		return
	}

	message := update.Message

	// Логируем входящее
	middleware.LogMessage(message)

	// Проверяем доступ (FLOOD_CHAT_ID или DM участника)
	if !b.chatFilter.CheckAccess(ctx, message) {
		return
	}

	// Rate limiting
	if message.From != nil && !b.rateLimiter.Allow(message.From.ID) {
		log.WithField("user_id", message.From.ID).Debug("rate limited")
		return
	}

	chatID := message.Chat.ID
	userID := message.From.ID

	// EnsureMember — без актуальной записи участника команды поручений
	// не смогут определить tier по роли
	if err := b.memberService.EnsureMember(ctx, userID,
		message.From.UserName, message.From.FirstName, message.From.LastName,
	); err != nil {
		log.WithError(err).WithField("user_id", userID).Warn("EnsureMember failed")
	}

	// В DM сначала проверяем админ-панель
	if message.Chat.IsPrivate() {
		handled := b.adminHandler.HandleAdminMessage(ctx, chatID, userID, message.Text)
		if handled {
			return
		}
	}

	// Парсим команду
	cmd, args, isCommand := b.parser.ParseCommand(message.Text)
	if !isCommand {
		return
	}

	log.WithFields(log.Fields{
		"cmd":  cmd,
		"args": args,
	}).Debug("parsed command")

	b.routeCommand(ctx, chatID, userID, cmd, args)
}

// routeCommand маршрутизирует команду к нужному обработчику.
func (b *Bot) routeCommand(ctx context.Context, chatID, userID int64, cmd string, args []string) {
	switch cmd {
	case "start", "help":
		b.sendMessage(chatID, helpText)

	case "login":
		if chatID == userID {
			b.adminHandler.HandleAdminMessage(ctx, chatID, userID, "/login "+strings.Join(args, " "))
		}

	case "поручение":
		b.vouchHandler.HandleGenerate(ctx, chatID, userID)

	case "погасить":
		b.vouchHandler.HandleRedeem(ctx, chatID, userID, args)

	case "поручения":
		b.vouchHandler.HandleList(ctx, chatID, userID)

	case "отозвать":
		b.vouchHandler.HandleRevoke(ctx, chatID, userID, args)

	case "профиль":
		b.profileHandler.HandleProfile(ctx, chatID, userID, args)
	}
}

const helpText = `📜 Команды бота:
!поручение — выдать новый код поручения (по вашему tier)
!погасить <код> — погасить код поручения
!поручения — ваши последние коды
!отозвать <код> — отозвать свой код
!профиль [@user] — репутация и поручитель
/login <пароль> — вход в админ-панель (только в личке)`

// handleNewMembers обрабатывает вступление новых участников.
func (b *Bot) handleNewMembers(ctx context.Context, newMembers []tgbotapi.User) {
	for _, user := range newMembers {
		if user.IsBot {
			continue
		}
		if err := b.memberService.HandleNewMember(ctx, user.ID, user.UserName, user.FirstName, user.LastName); err != nil {
			log.WithError(err).WithField("user_id", user.ID).Warn("HandleNewMember failed")
		}

		log.WithField("user", user.UserName).Info("Новый участник обработан")
	}
}

// sendMessage — утилита для отправки сообщений.
func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки сообщения")
	}
}

// SendMessageToUser отправляет сообщение пользователю (для напоминаний).
func (b *Bot) SendMessageToUser(userID int64, text string) {
	msg := tgbotapi.NewMessage(userID, text)
	if _, err := b.api.Send(msg); err != nil {
		log.WithError(err).WithField("user_id", userID).Debug("Не удалось отправить сообщение")
	}
}

// CommandParser парсит русские команды с префиксами !, . и /
type CommandParser struct {
	validPrefixes []string
}

// NewCommandParser создаёт парсер команд.
func NewCommandParser() *CommandParser {
	return &CommandParser{
		validPrefixes: []string{"!", ".", "/"},
	}
}

// ParseCommand разбирает текст на команду и аргументы.
func (p *CommandParser) ParseCommand(text string) (string, []string, bool) {
	text = strings.TrimSpace(text)

	hasPrefix := false
	for _, prefix := range p.validPrefixes {
		if strings.HasPrefix(text, prefix) {
			text = strings.TrimPrefix(text, prefix)
			hasPrefix = true
			break
		}
	}

	if !hasPrefix {
		return "", nil, false
	}

	text = strings.TrimSpace(text)
	parts := strings.Fields(text)

	if len(parts) == 0 {
		return "", nil, false
	}

	command := strings.ToLower(parts[0])
	var args []string
	if len(parts) > 1 {
		args = parts[1:]
	}

	return command, args, true
}
