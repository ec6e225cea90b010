// Package filters содержит фильтры доступа к боту.
package filters

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"poruka.club/vouch-bot/internal/features/members"
)

// ChatFilter пропускает сообщения только из основного чата сообщества
// и из личек участников этого чата. Коды поручений выдаются и гасятся
// только своими.
type ChatFilter struct {
	floodChatID   int64
	memberService *members.Service
	bot           *tgbotapi.BotAPI
}

func NewChatFilter(floodChatID int64, memberService *members.Service, bot *tgbotapi.BotAPI) *ChatFilter {
	return &ChatFilter{
		floodChatID:   floodChatID,
		memberService: memberService,
		bot:           bot,
	}
}

func (f *ChatFilter) CheckAccess(ctx context.Context, message *tgbotapi.Message) bool {
	if message == nil || message.Chat == nil {
		log.WithField("component", "ChatFilter").Warn("nil message/chat")
		return false
	}
	if message.From == nil {
		log.WithFields(log.Fields{
			"component": "ChatFilter",
			"chat_id":   message.Chat.ID,
			"chat_type": message.Chat.Type,
		}).Warn("nil message.From (сервисное сообщение или канал?)")
		return false
	}
	if f.floodChatID == 0 {
		log.WithField("component", "ChatFilter").Error("floodChatID = 0 (ошибка конфигурации)")
		return false
	}

	chatID := message.Chat.ID
	userID := message.From.ID

	logger := log.WithFields(log.Fields{
		"component":     "ChatFilter",
		"chat_id":       chatID,
		"chat_type":     message.Chat.Type,
		"user_id":       userID,
		"flood_chat_id": f.floodChatID,
	})

	// 1) Основной чат
	if chatID == f.floodChatID {
		logger.Debug("allow: основной чат")
		return true
	}

	// 2) Личка: сначала быстрая проверка по БД
	if message.Chat.IsPrivate() {
		isMember, err := f.memberService.IsMember(ctx, userID)
		if err != nil {
			logger.WithError(err).Error("проверка участника не удалась (db)")
			return false
		}
		if isMember {
			logger.Debug("allow: личка (участник по БД)")
			return true
		}

		// 2.1) БД не знает пользователя: спрашиваем Telegram напрямую
		cm, err := f.bot.GetChatMember(tgbotapi.GetChatMemberConfig{
			ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
				ChatID: f.floodChatID,
				UserID: userID, // int64, без int(...)
			},
		})
		if err != nil {
			logger.WithError(err).Error("проверка участника не удалась (telegram GetChatMember)")
			return false
		}

		switch cm.Status {
		case "creator", "administrator", "member", "restricted":
			if err := f.memberService.EnsureMember(
				ctx, userID,
				message.From.UserName,
				message.From.FirstName,
				message.From.LastName,
			); err != nil {
				logger.WithError(err).Warn("не удалось дозаписать участника в БД (пропускаем всё равно)")
			}
			logger.WithField("tg_status", cm.Status).Info("allow: личка (участник по Telegram, дозаписан)")
			return true

		default:
			logger.WithField("tg_status", cm.Status).Info("deny: личка (не участник чата)")
			msg := tgbotapi.NewMessage(chatID, "❌ Бот работает только для участников основного чата")
			if _, sendErr := f.bot.Send(msg); sendErr != nil {
				logger.WithError(sendErr).Warn("не удалось отправить отказ")
			}
			return false
		}
	}

	// 3) Остальные чаты игнорируем
	logger.Info("deny: не основной чат и не личка")
	return false
}
