// Package profile — service.go содержит бизнес-логику реестра репутации.
package profile

import (
	"context"

	log "github.com/sirupsen/logrus"
)

// Service управляет профилями репутации.
type Service struct {
	repo *Repository
}

// NewService создаёт сервис профилей.
func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// GetProfile возвращает профиль пользователя (нулевой, если записи нет).
func (s *Service) GetProfile(ctx context.Context, userID int64) (*Profile, error) {
	return s.repo.GetProfile(ctx, userID)
}

// SetVoucher вручную исправляет, кто поручился за пользователя.
// Репутация при этом не меняется.
func (s *Service) SetVoucher(ctx context.Context, userID, voucherID int64) error {
	if err := s.repo.SetVoucher(ctx, userID, voucherID); err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"user_id":    userID,
		"voucher_id": voucherID,
	}).Info("Поручитель исправлен вручную")
	return nil
}

// HasRedeemed сообщает, гасил ли пользователь хоть один код.
func (s *Service) HasRedeemed(ctx context.Context, userID int64) (bool, error) {
	return s.repo.HasRedeemed(ctx, userID)
}
