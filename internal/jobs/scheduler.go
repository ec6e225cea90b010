// Package jobs управляет фоновыми задачами (cron).
// scheduler.go настраивает расписание: ежечасные напоминания об
// истекающих кодах и ежедневная сводка в лог-чат.
//
// Задачи только читают БД. Просроченные коды помечаются лениво при
// обращении к ним, фоновой «уборки» статусов здесь нет.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"poruka.club/vouch-bot/internal/common"
	"poruka.club/vouch-bot/internal/features/vouch"
)

// Scheduler управляет фоновыми задачами.
type Scheduler struct {
	cron      *cron.Cron
	vouchRepo *vouch.Repository
	sendFunc  func(userID int64, text string)
	sendChat  func(chatID int64, text string)
	logChatID int64

	remindersEnabled bool
	digestEnabled    bool
}

// NewScheduler создаёт планировщик задач с московским часовым поясом.
func NewScheduler(
	vouchRepo *vouch.Repository,
	sendFunc func(userID int64, text string),
	sendChat func(chatID int64, text string),
	logChatID int64,
	remindersEnabled, digestEnabled bool,
) *Scheduler {
	loc, err := time.LoadLocation("Europe/Moscow")
	if err != nil {
		log.WithError(err).Warn("Не удалось загрузить Europe/Moscow, используем UTC+3")
		loc = time.FixedZone("MSK", 3*60*60)
	}

	c := cron.New(cron.WithLocation(loc))

	return &Scheduler{
		cron:             c,
		vouchRepo:        vouchRepo,
		sendFunc:         sendFunc,
		sendChat:         sendChat,
		logChatID:        logChatID,
		remindersEnabled: remindersEnabled,
		digestEnabled:    digestEnabled,
	}
}

// Start запускает все фоновые задачи.
func (s *Scheduler) Start(ctx context.Context) {
	if s.remindersEnabled {
		// Каждый час: напоминания о кодах, истекающих в ближайшие ~3 часа
		s.cron.AddFunc("0 * * * *", func() {
			log.Debug("[CRON] Проверка истекающих кодов")
			if err := s.sendExpiryReminders(ctx); err != nil {
				log.WithError(err).Error("[CRON] Ошибка напоминаний")
			}
		})
	}

	if s.digestEnabled {
		// Ежедневная сводка в 09:00 по Москве
		s.cron.AddFunc("0 9 * * *", func() {
			log.Info("[CRON] Ежедневная сводка по кодам")
			if err := s.sendDailyDigest(ctx); err != nil {
				log.WithError(err).Error("[CRON] Ошибка сводки")
			}
		})
	}

	s.cron.Start()
	log.WithFields(log.Fields{
		"reminders": s.remindersEnabled,
		"digest":    s.digestEnabled,
	}).Info("Планировщик задач запущен (Europe/Moscow)")
}

// Stop останавливает планировщик.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("Планировщик задач остановлен")
}

// sendExpiryReminders шлёт создателям кодов напоминание, что код скоро
// истечёт. Окно (now+2h, now+3h] вместе с ежечасным запуском даёт ровно
// одно напоминание на код.
func (s *Scheduler) sendExpiryReminders(ctx context.Context) error {
	now := time.Now()

	// код истекает в created_at + TTL; ищем коды, чей дедлайн попадает
	// в часовое окно примерно за 3 часа до истечения
	from := now.Add(-vouch.CodeTTL).Add(2 * time.Hour)
	to := from.Add(time.Hour)

	codes, err := s.vouchRepo.ListExpiringBetween(ctx, from, to)
	if err != nil {
		return fmt.Errorf("выборка истекающих кодов: %w", err)
	}

	for _, c := range codes {
		deadline := c.CreatedAt.Add(vouch.CodeTTL)
		s.sendFunc(c.CreatorID, fmt.Sprintf(
			"⏳ Ваш код поручения %s истекает %s. Если он ещё нужен — передайте его человеку сейчас.",
			c.Code, common.FormatDateTime(deadline),
		))
	}

	if len(codes) > 0 {
		log.WithField("count", len(codes)).Info("[CRON] Отправлены напоминания об истекающих кодах")
	}
	return nil
}

// sendDailyDigest публикует сводку по кодам в лог-чат.
func (s *Scheduler) sendDailyDigest(ctx context.Context) error {
	counts, err := s.vouchRepo.CountByStatus(ctx)
	if err != nil {
		return fmt.Errorf("подсчёт по статусам: %w", err)
	}

	created, err := s.vouchRepo.CountCreatedSince(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		return fmt.Errorf("подсчёт выданных за сутки: %w", err)
	}

	text := fmt.Sprintf(
		"📊 Сводка по поручениям за сутки:\n"+
			"Выдано за 24ч: %d\n"+
			"🟢 Активных: %d\n"+
			"🔴 Погашено: %d\n"+
			"⚫ Истекло: %d\n"+
			"🟡 Отозвано: %d",
		created,
		counts[vouch.StatusActive],
		counts[vouch.StatusUsed],
		counts[vouch.StatusExpired],
		counts[vouch.StatusRevoked],
	)

	s.sendChat(s.logChatID, text)
	return nil
}
