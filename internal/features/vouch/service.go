// Package vouch — service.go содержит бизнес-логику жизненного цикла кодов:
// генерацию под кулдаун-гейтом, погашение, отзыв и массовую выдачу.
//
// Авторизацию («кто вообще имеет право генерировать/отзывать») сервис
// НЕ проверяет — это делают обработчики и админка выше.
package vouch

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"poruka.club/vouch-bot/internal/common"
	"poruka.club/vouch-bot/internal/config"
)

// Store — граница персистентности жизненного цикла кодов.
// Реализуется Repository; в тестах подменяется фейком.
type Store interface {
	CreateCode(ctx context.Context, c *VouchCode) error
	GetCode(ctx context.Context, code string) (*VouchCode, error)
	ListByCreator(ctx context.Context, creatorID int64, limit int) ([]*VouchCode, error)
	CountRecentByCreator(ctx context.Context, creatorID int64, since time.Time) (int, error)
	Redeem(ctx context.Context, code string, userID int64, now time.Time) (*RedeemResult, error)
	Revoke(ctx context.Context, code string, now time.Time) (*RevokeResult, error)
}

// Service управляет жизненным циклом кодов поручений.
type Service struct {
	store Store
	locks *LockPool // Полосатые локи кулдаун-гейта (владелец — app)
	cfg   *config.Config
}

// NewService создаёт сервис поручений.
// Пул локов передаётся снаружи: им владеет сборка приложения,
// а не глобальное состояние пакета.
func NewService(store Store, locks *LockPool, cfg *config.Config) *Service {
	return &Service{store: store, locks: locks, cfg: cfg}
}

// CanGenerate отвечает, разрешает ли кулдаун-гейт генерацию прямо сейчас.
// cooldownMinutes <= 0 — всегда да. Используется для отображения меню;
// настоящая проверка перед вставкой повторяется в Generate под локом.
func (s *Service) CanGenerate(ctx context.Context, issuerID int64, cooldownMinutes int) (bool, error) {
	if cooldownMinutes <= 0 {
		return true, nil
	}
	since := time.Now().UTC().Add(-time.Duration(cooldownMinutes) * time.Minute)
	count, err := s.store.CountRecentByCreator(ctx, issuerID, since)
	if err != nil {
		return false, err
	}
	return count == 0, nil
}

// Generate создаёт новый код поручения.
//
// При cooldownMinutes > 0 проверка окна и вставка выполняются под одним
// удерживаемым полосатым локом поручителя: раздельные локи снова открыли бы
// гонку двойной отправки, которую гейт и должен закрывать.
//
// Возможные ошибки: common.ErrCooldownActive, common.ErrDuplicateCode.
func (s *Service) Generate(ctx context.Context, chatID, issuerID, roleID int64, cooldownMinutes, repValue int) (*VouchCode, error) {
	now := time.Now().UTC()

	if cooldownMinutes > 0 {
		mu := s.locks.For(issuerID)
		mu.Lock()
		defer mu.Unlock()

		since := now.Add(-time.Duration(cooldownMinutes) * time.Minute)
		count, err := s.store.CountRecentByCreator(ctx, issuerID, since)
		if err != nil {
			return nil, err
		}
		if count > 0 {
			return nil, common.ErrCooldownActive
		}
	}

	code, err := GenerateCode(s.cfg.VouchCodePrefix, s.cfg.VouchCodeLength, s.cfg.VouchCodeGroup)
	if err != nil {
		return nil, err
	}

	record := &VouchCode{
		Code:      code,
		ChatID:    chatID,
		RoleID:    roleID,
		CreatorID: issuerID,
		CreatedAt: now,
		Status:    StatusActive,
		RepValue:  repValue,
	}
	if err := s.store.CreateCode(ctx, record); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"code":       code,
		"creator_id": issuerID,
		"role_id":    roleID,
		"rep":        repValue,
	}).Info("Код поручения создан")

	return record, nil
}

// BulkGenerate создаёт от 1 до 20 кодов от имени targetID (админ-операция,
// кулдаун-гейт намеренно не применяется). Возвращает созданные коды.
func (s *Service) BulkGenerate(ctx context.Context, chatID, targetID, roleID int64, amount, repValue int) ([]string, error) {
	if amount < 1 || amount > 20 {
		return nil, common.ErrInvalidBulkAmount
	}

	codes := make([]string, 0, amount)
	for i := 0; i < amount; i++ {
		code, err := GenerateCode(s.cfg.VouchCodePrefix, s.cfg.VouchCodeLength, s.cfg.VouchCodeGroup)
		if err != nil {
			return codes, err
		}
		record := &VouchCode{
			Code:      code,
			ChatID:    chatID,
			RoleID:    roleID,
			CreatorID: targetID,
			CreatedAt: time.Now().UTC(),
			Status:    StatusActive,
			RepValue:  repValue,
		}
		if err := s.store.CreateCode(ctx, record); err != nil {
			return codes, err
		}
		codes = append(codes, code)
	}

	log.WithFields(log.Fields{
		"target_id": targetID,
		"amount":    amount,
	}).Info("Массовая генерация кодов выполнена")

	return codes, nil
}

// Redeem погашает код от имени userID.
// Ввод нормализуется (пробелы, регистр) перед поиском.
func (s *Service) Redeem(ctx context.Context, rawCode string, userID int64) (*RedeemResult, error) {
	code := NormalizeCode(rawCode)
	result, err := s.store.Redeem(ctx, code, userID, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"code":       code,
		"user_id":    userID,
		"first_time": result.FirstTime,
		"rep":        result.RepValue,
	}).Info("Код поручения погашен")

	return result, nil
}

// Revoke отзывает код. Для USED-кодов результат содержит погасившего
// и роль — вызывающая сторона снимает роль и уведомляет пользователя.
func (s *Service) Revoke(ctx context.Context, rawCode string) (*RevokeResult, error) {
	code := NormalizeCode(rawCode)
	result, err := s.store.Revoke(ctx, code, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"code":         code,
		"prior_status": result.PriorStatus,
	}).Info("Код поручения отозван")

	return result, nil
}

// GetCode возвращает запись кода (для детального просмотра).
func (s *Service) GetCode(ctx context.Context, rawCode string) (*VouchCode, error) {
	return s.store.GetCode(ctx, NormalizeCode(rawCode))
}

// ListByCreator возвращает последние коды поручителя.
func (s *Service) ListByCreator(ctx context.Context, creatorID int64) ([]*VouchCode, error) {
	return s.store.ListByCreator(ctx, creatorID, s.cfg.VouchListLimit)
}
