// Package profile — handlers.go обрабатывает команду !профиль.
package profile

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"poruka.club/vouch-bot/internal/common"
	"poruka.club/vouch-bot/internal/features/members"
)

// Handler обрабатывает команды профиля.
type Handler struct {
	service       *Service
	memberService *members.Service
	bot           *tgbotapi.BotAPI
}

// NewHandler создаёт обработчик профилей.
func NewHandler(service *Service, memberService *members.Service, bot *tgbotapi.BotAPI) *Handler {
	return &Handler{service: service, memberService: memberService, bot: bot}
}

// HandleProfile обрабатывает команду !профиль [@username].
// Без аргумента показывает профиль автора команды.
//
// Формат ответа:
//
//	👤 @username
//	⭐ Репутация: 50 очков
//	🔖 Поручитель: @voucher
//	👑 Роль: Участник
//	📅 В чате с: 01.02.2026
func (h *Handler) HandleProfile(ctx context.Context, chatID, userID int64, args []string) {
	target, err := h.resolveTarget(ctx, userID, args)
	if err != nil {
		h.sendMessage(chatID, "❌ Пользователь не найден")
		return
	}

	p, err := h.service.GetProfile(ctx, target.UserID)
	if err != nil {
		log.WithError(err).Error("Ошибка получения профиля")
		h.sendMessage(chatID, "❌ Ошибка получения профиля")
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("👤 %s\n", target.DisplayName()))
	sb.WriteString(fmt.Sprintf("⭐ Репутация: %s\n", common.FormatReputation(p.Reputation)))

	voucherText := "нет записи"
	if p.VoucherID != nil {
		if voucher, err := h.memberService.GetByUserID(ctx, *p.VoucherID); err == nil {
			voucherText = voucher.DisplayName()
		} else {
			voucherText = fmt.Sprintf("id %d (покинул чат)", *p.VoucherID)
		}
	}
	sb.WriteString(fmt.Sprintf("🔖 Поручитель: %s\n", voucherText))

	roleText := target.RoleName()
	if roleText == "" {
		roleText = "без роли"
	}
	sb.WriteString(fmt.Sprintf("👑 Роль: %s\n", roleText))
	sb.WriteString(fmt.Sprintf("📅 В чате с: %s", common.FormatDateTime(target.JoinedAt)))

	h.sendMessage(chatID, sb.String())
}

// resolveTarget определяет, чей профиль показывать:
// @username из аргумента или автора команды.
func (h *Handler) resolveTarget(ctx context.Context, userID int64, args []string) (*members.Member, error) {
	if len(args) > 0 {
		username := strings.TrimPrefix(args[0], "@")
		return h.memberService.GetByUsername(ctx, username)
	}
	return h.memberService.GetByUserID(ctx, userID)
}

// sendMessage — утилита для отправки сообщений.
func (h *Handler) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки сообщения")
	}
}
