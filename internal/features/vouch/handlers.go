// Package vouch — handlers.go обрабатывает команды:
// !поручение (генерация), !погасить <код>, !поручения (список), !отозвать <код>.
package vouch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"poruka.club/vouch-bot/internal/common"
	"poruka.club/vouch-bot/internal/config"
	"poruka.club/vouch-bot/internal/features/members"
	"poruka.club/vouch-bot/internal/features/tiers"
)

// statusEmoji — индикаторы статусов для списка кодов.
var statusEmoji = map[Status]string{
	StatusActive:  "🟢",
	StatusUsed:    "🔴",
	StatusRevoked: "⚫",
	StatusExpired: "🟡",
}

// Handler обрабатывает команды поручений.
type Handler struct {
	service       *Service
	memberService *members.Service // Исполнитель ролей и поиск участников
	resolver      *tiers.Resolver  // Тир поручителя → кулдаун и награда
	bot           *tgbotapi.BotAPI
	cfg           *config.Config
}

// NewHandler создаёт обработчик команд поручений.
func NewHandler(service *Service, memberService *members.Service, resolver *tiers.Resolver, bot *tgbotapi.BotAPI, cfg *config.Config) *Handler {
	return &Handler{
		service:       service,
		memberService: memberService,
		resolver:      resolver,
		bot:           bot,
		cfg:           cfg,
	}
}

// HandleGenerate обрабатывает команду !поручение.
// Тир-гейт → кулдаун-гейт → создание кода → код уходит в личку поручителю.
func (h *Handler) HandleGenerate(ctx context.Context, chatID, userID int64) {
	member, err := h.memberService.GetByUserID(ctx, userID)
	if err != nil {
		h.sendMessage(chatID, "❌ Сначала напишите что-нибудь в основном чате")
		return
	}

	tier := h.resolver.Resolve(member.RoleName())
	if tier == nil {
		h.sendMessage(chatID, "⛔ Ваша роль не даёт права генерировать коды поручений")
		return
	}

	record, err := h.service.Generate(ctx, h.cfg.FloodChatID, userID, h.cfg.VouchGrantRoleID, tier.CooldownMinutes, tier.RepValue)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrCooldownActive):
			h.sendMessage(chatID, fmt.Sprintf(
				"⏳ Кулдаун ещё не прошёл. Тир «%s» позволяет 1 код в %d минут",
				tier.Name, tier.CooldownMinutes,
			))
		case errors.Is(err, common.ErrDuplicateCode):
			h.sendMessage(chatID, "❌ Не удалось создать код, попробуйте ещё раз")
		default:
			log.WithError(err).Error("Ошибка генерации кода")
			h.sendMessage(chatID, "❌ Ошибка генерации кода")
		}
		return
	}

	roleName := h.cfg.RoleName(record.RoleID)
	dm := fmt.Sprintf(
		"🎫 Ваш код поручения:\n\n`%s`\n\nРоль: %s\nТир: %s\nРепутация: +%d\nКод действует 3 %s.",
		record.Code, roleName, tier.Name, tier.RepValue, common.PluralizeDays(3),
	)
	h.sendDM(userID, dm)

	if chatID != userID {
		h.sendMessage(chatID, "✅ Код создан и отправлен вам в личку")
	}

	h.sendAuditLog(fmt.Sprintf("🎫 %s создал код поручения (тир %s)", member.DisplayName(), tier.Name))
}

// HandleRedeem обрабатывает команду !погасить <код>.
// Само погашение атомарно выполняет движок; здесь — выдача роли
// и сообщения пользователю. Зафиксированное погашение финально:
// неудача выдачи роли его не откатывает.
func (h *Handler) HandleRedeem(ctx context.Context, chatID, userID int64, args []string) {
	if len(args) < 1 {
		h.sendMessage(chatID, "❌ Формат: !погасить V-XXXX-XXXX-XXXX")
		return
	}

	result, err := h.service.Redeem(ctx, args[0], userID)
	if err != nil {
		h.sendMessage(chatID, redeemFailureText(err))
		return
	}

	roleName := h.cfg.RoleName(result.RoleID)
	if err := h.memberService.GrantRole(ctx, userID, roleName); err != nil {
		log.WithError(err).WithField("user_id", userID).Error("Не удалось выдать роль после погашения")
		h.sendMessage(chatID, "⚠️ Код погашен, но роль выдать не удалось — обратитесь к администратору")
		return
	}

	if result.FirstTime {
		h.sendMessage(chatID, fmt.Sprintf(
			"🎉 Добро пожаловать! Код погашен, роль «%s» выдана.\nЭто ваше первое поручение — освойтесь и представьтесь в чате.",
			roleName,
		))
	} else {
		h.sendMessage(chatID, fmt.Sprintf("✅ Код погашен, роль «%s» выдана", roleName))
	}

	h.sendAuditLog(fmt.Sprintf("📥 Код `%s` погашен пользователем %d (+%d репутации поручителю)",
		result.Code, userID, result.RepValue))
}

// HandleList обрабатывает команду !поручения — список кодов поручителя.
func (h *Handler) HandleList(ctx context.Context, chatID, userID int64) {
	codes, err := h.service.ListByCreator(ctx, userID)
	if err != nil {
		log.WithError(err).Error("Ошибка получения списка кодов")
		h.sendMessage(chatID, "❌ Ошибка получения списка кодов")
		return
	}
	if len(codes) == 0 {
		h.sendMessage(chatID, "📭 Вы ещё не создали ни одного кода")
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📋 Ваши коды (%d %s):\n", len(codes), common.PluralizeCodes(len(codes))))
	for _, c := range codes {
		sb.WriteString(fmt.Sprintf("%s `%s` — %s, создан %s\n",
			statusEmoji[c.Status], c.Code, c.Status, common.FormatDateTime(c.CreatedAt)))
	}
	h.sendMessage(chatID, sb.String())
}

// HandleRevoke обрабатывает команду !отозвать <код>.
// Поручитель может отзывать только свои коды; чужие отзывает админка.
func (h *Handler) HandleRevoke(ctx context.Context, chatID, userID int64, args []string) {
	if len(args) < 1 {
		h.sendMessage(chatID, "❌ Формат: !отозвать V-XXXX-XXXX-XXXX")
		return
	}

	record, err := h.service.GetCode(ctx, args[0])
	if err != nil {
		if errors.Is(err, common.ErrCodeNotFound) {
			h.sendMessage(chatID, "❌ Код не найден")
		} else {
			log.WithError(err).Error("Ошибка чтения кода")
			h.sendMessage(chatID, "❌ Ошибка чтения кода")
		}
		return
	}
	if record.CreatorID != userID {
		h.sendMessage(chatID, "⛔ Можно отзывать только свои коды")
		return
	}

	h.RevokeCode(ctx, chatID, record.Code, fmt.Sprintf("пользователем %d", userID))
}

// RevokeCode выполняет отзыв кода и все его последствия:
// для USED-кода снимает роль с погасившего и шлёт ему уведомление.
// Используется и обычным отзывом, и админкой.
func (h *Handler) RevokeCode(ctx context.Context, chatID int64, code, revokedBy string) {
	result, err := h.service.Revoke(ctx, code)
	if err != nil {
		if status, ok := IsFinalized(err); ok {
			h.sendMessage(chatID, fmt.Sprintf("❌ Код уже в статусе %s и не может быть отозван", status))
		} else if errors.Is(err, common.ErrCodeNotFound) {
			h.sendMessage(chatID, "❌ Код не найден")
		} else {
			log.WithError(err).Error("Ошибка отзыва кода")
			h.sendMessage(chatID, "❌ Ошибка отзыва кода")
		}
		return
	}

	lines := []string{fmt.Sprintf("🗑 Код `%s` отозван %s", result.Code, revokedBy)}

	// Код был погашен — снимаем роль и уведомляем пользователя
	if result.PriorStatus == StatusUsed && result.RedeemerID != nil {
		redeemer := *result.RedeemerID
		roleName := h.cfg.RoleName(result.RoleID)

		if err := h.memberService.RevokeRole(ctx, redeemer); err != nil {
			log.WithError(err).WithField("user_id", redeemer).Warn("Не удалось снять роль при отзыве")
			lines = append(lines, "⚠️ Роль снять не удалось")
		} else {
			lines = append(lines, fmt.Sprintf("Роль «%s» снята с пользователя %d", roleName, redeemer))
		}

		h.sendDM(redeemer, fmt.Sprintf(
			"⚠️ Ваш доступ по коду `%s` отозван. Роль «%s» снята.",
			result.Code, roleName,
		))
	}

	text := strings.Join(lines, "\n")
	h.sendMessage(chatID, text)
	h.sendAuditLog(text)
}

// redeemFailureText возвращает текст для пользователя по типу ошибки погашения.
// Каждая причина — своя формулировка, «что-то пошло не так» не бывает.
func redeemFailureText(err error) string {
	if status, ok := IsFinalized(err); ok {
		switch status {
		case StatusUsed:
			return "❌ Этот код уже погашен"
		case StatusRevoked:
			return "❌ Этот код отозван"
		case StatusExpired:
			return "❌ Срок действия кода истёк (3 дня)"
		}
		return fmt.Sprintf("❌ Код в статусе %s", status)
	}
	switch {
	case errors.Is(err, common.ErrCodeNotFound):
		return "❌ Код не найден. Проверьте, правильно ли он скопирован"
	case errors.Is(err, common.ErrCodeExpired):
		return "❌ Срок действия кода истёк (3 дня)"
	default:
		log.WithError(err).Error("Ошибка погашения кода")
		return "❌ Ошибка погашения кода"
	}
}

// sendMessage — утилита для отправки сообщений в чат.
func (h *Handler) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки сообщения")
	}
}

// sendDM отправляет личное сообщение пользователю.
// Закрытая личка — не ошибка уровня Error, просто логируем.
func (h *Handler) sendDM(userID int64, text string) {
	msg := tgbotapi.NewMessage(userID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).WithField("user_id", userID).Debug("Не удалось отправить личное сообщение")
	}
}

// sendAuditLog отправляет событие в чат аудит-лога (если настроен).
func (h *Handler) sendAuditLog(text string) {
	if h.cfg.VouchLogChatID == 0 {
		return
	}
	msg := tgbotapi.NewMessage(h.cfg.VouchLogChatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).Debug("Не удалось отправить аудит-лог")
	}
}
