// Package admin — handlers.go обрабатывает админ-команды в личке:
// /login <пароль>, /logout, !массовая @user N, !поручитель @user @voucher,
// !аннулировать <код>.
//
// Авторизация операций генерации/отзыва живёт здесь, а не в ядре
// поручений: ядро принимает любые корректные вызовы.
package admin

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"poruka.club/vouch-bot/internal/common"
	"poruka.club/vouch-bot/internal/config"
	"poruka.club/vouch-bot/internal/features/members"
	"poruka.club/vouch-bot/internal/features/profile"
	"poruka.club/vouch-bot/internal/features/tiers"
	"poruka.club/vouch-bot/internal/features/vouch"
)

// Handler обрабатывает админ-команды.
type Handler struct {
	service        *Service
	vouchService   *vouch.Service
	vouchHandler   *vouch.Handler
	profileService *profile.Service
	memberService  *members.Service
	resolver       *tiers.Resolver
	bot            *tgbotapi.BotAPI
	cfg            *config.Config
}

// NewHandler создаёт обработчик админ-команд.
func NewHandler(
	service *Service,
	vouchService *vouch.Service,
	vouchHandler *vouch.Handler,
	profileService *profile.Service,
	memberService *members.Service,
	resolver *tiers.Resolver,
	bot *tgbotapi.BotAPI,
	cfg *config.Config,
) *Handler {
	return &Handler{
		service:        service,
		vouchService:   vouchService,
		vouchHandler:   vouchHandler,
		profileService: profileService,
		memberService:  memberService,
		resolver:       resolver,
		bot:            bot,
		cfg:            cfg,
	}
}

// HandleAdminMessage пытается обработать сообщение как админ-команду.
// Возвращает true, если сообщение обработано (дальше роутить не надо).
func (h *Handler) HandleAdminMessage(ctx context.Context, chatID, userID int64, text string) bool {
	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) == 0 {
		return false
	}

	cmd := strings.ToLower(strings.TrimLeft(fields[0], "!./"))
	args := fields[1:]

	switch cmd {
	case "login":
		h.handleLogin(ctx, chatID, userID, args)
		return true
	case "logout":
		h.handleLogout(ctx, chatID, userID)
		return true
	case "массовая":
		return h.requireSession(ctx, chatID, userID, func() {
			h.handleBulkGenerate(ctx, chatID, args)
		})
	case "поручитель":
		return h.requireSession(ctx, chatID, userID, func() {
			h.handleSetVoucher(ctx, chatID, args)
		})
	case "аннулировать":
		return h.requireSession(ctx, chatID, userID, func() {
			h.handleRevokeAny(ctx, chatID, userID, args)
		})
	}

	return false
}

// requireSession выполняет действие только при активной админ-сессии.
func (h *Handler) requireSession(ctx context.Context, chatID, userID int64, action func()) bool {
	if !h.service.HasActiveSession(ctx, userID) {
		h.sendMessage(chatID, "⛔ Требуется авторизация: /login <пароль> в личке")
		return true
	}
	action()
	return true
}

// handleLogin обрабатывает /login <пароль>.
func (h *Handler) handleLogin(ctx context.Context, chatID, userID int64, args []string) {
	if len(args) < 1 {
		h.sendMessage(chatID, "❌ Формат: /login <пароль>")
		return
	}

	err := h.service.Login(ctx, userID, strings.Join(args, " "))
	switch {
	case err == nil:
		h.sendMessage(chatID, "✅ Авторизация успешна. Сессия на 24 часа")
	case errors.Is(err, common.ErrTooManyAttempts):
		h.sendMessage(chatID, "⛔ Слишком много попыток, подождите 1 час")
	case errors.Is(err, common.ErrWrongPassword):
		h.sendMessage(chatID, "❌ Неверный пароль")
	default:
		log.WithError(err).Error("Ошибка входа администратора")
		h.sendMessage(chatID, "❌ Ошибка входа")
	}
}

// handleLogout обрабатывает /logout.
func (h *Handler) handleLogout(ctx context.Context, chatID, userID int64) {
	if err := h.service.Logout(ctx, userID); err != nil {
		log.WithError(err).Error("Ошибка выхода")
		h.sendMessage(chatID, "❌ Ошибка выхода")
		return
	}
	h.sendMessage(chatID, "✅ Сессия закрыта")
}

// handleBulkGenerate обрабатывает !массовая @user N —
// создаёт N кодов от имени указанного участника и шлёт их ему в личку.
// Награда репутации берётся из тира участника (0, если тира нет).
func (h *Handler) handleBulkGenerate(ctx context.Context, chatID int64, args []string) {
	if len(args) < 2 {
		h.sendMessage(chatID, "❌ Формат: !массовая @username количество")
		return
	}

	target, err := h.memberService.GetByUsername(ctx, strings.TrimPrefix(args[0], "@"))
	if err != nil {
		h.sendMessage(chatID, "❌ Пользователь не найден")
		return
	}

	amount, err := strconv.Atoi(args[1])
	if err != nil {
		h.sendMessage(chatID, "❌ Количество должно быть числом")
		return
	}

	repValue := 0
	if tier := h.resolver.Resolve(target.RoleName()); tier != nil {
		repValue = tier.RepValue
	}

	codes, err := h.vouchService.BulkGenerate(ctx, h.cfg.FloodChatID, target.UserID, h.cfg.VouchGrantRoleID, amount, repValue)
	if err != nil {
		if errors.Is(err, common.ErrInvalidBulkAmount) {
			h.sendMessage(chatID, "⚠️ Количество кодов должно быть от 1 до 20")
		} else {
			log.WithError(err).Error("Ошибка массовой генерации")
			h.sendMessage(chatID, "❌ Ошибка массовой генерации")
		}
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🎫 Вам выдано %d %s поручения:\n", len(codes), common.PluralizeCodes(len(codes))))
	for _, c := range codes {
		sb.WriteString(fmt.Sprintf("`%s`\n", c))
	}
	sb.WriteString("Коды действуют 3 дня.")

	// Личка может быть закрыта — тогда показываем коды админу
	dm := tgbotapi.NewMessage(target.UserID, sb.String())
	dm.ParseMode = tgbotapi.ModeMarkdown
	if _, err := h.bot.Send(dm); err != nil {
		log.WithError(err).WithField("user_id", target.UserID).Warn("Личка закрыта, отдаём коды админу")
		h.sendMessage(chatID, fmt.Sprintf("⚠️ Личка %s закрыта. Коды:\n%s", target.DisplayName(), strings.Join(codes, "\n")))
		return
	}

	h.sendMessage(chatID, fmt.Sprintf("✅ Создано %d %s для %s, отправлены в личку",
		len(codes), common.PluralizeCodes(len(codes)), target.DisplayName()))
}

// handleSetVoucher обрабатывает !поручитель @user @voucher —
// вручную исправляет, кто поручился за пользователя.
func (h *Handler) handleSetVoucher(ctx context.Context, chatID int64, args []string) {
	if len(args) < 2 {
		h.sendMessage(chatID, "❌ Формат: !поручитель @username @новый_поручитель")
		return
	}

	target, err := h.memberService.GetByUsername(ctx, strings.TrimPrefix(args[0], "@"))
	if err != nil {
		h.sendMessage(chatID, "❌ Пользователь не найден")
		return
	}
	voucher, err := h.memberService.GetByUsername(ctx, strings.TrimPrefix(args[1], "@"))
	if err != nil {
		h.sendMessage(chatID, "❌ Поручитель не найден")
		return
	}

	if err := h.profileService.SetVoucher(ctx, target.UserID, voucher.UserID); err != nil {
		log.WithError(err).Error("Ошибка исправления поручителя")
		h.sendMessage(chatID, "❌ Ошибка исправления поручителя")
		return
	}

	h.sendMessage(chatID, fmt.Sprintf("✅ Теперь за %s поручился %s",
		target.DisplayName(), voucher.DisplayName()))
}

// handleRevokeAny обрабатывает !аннулировать <код> — отзыв любого кода
// без проверки создателя. Последствия (снятие роли, уведомления)
// выполняет общий обработчик отзыва.
func (h *Handler) handleRevokeAny(ctx context.Context, chatID, userID int64, args []string) {
	if len(args) < 1 {
		h.sendMessage(chatID, "❌ Формат: !аннулировать V-XXXX-XXXX-XXXX")
		return
	}
	h.vouchHandler.RevokeCode(ctx, chatID, args[0], fmt.Sprintf("администратором %d", userID))
}

// sendMessage — утилита для отправки сообщений.
func (h *Handler) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки сообщения")
	}
}
