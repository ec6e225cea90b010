// Package members — service.go содержит бизнес-логику управления участниками.
// Сервис координирует регистрацию и выступает «исполнителем ролей»:
// именно он применяет и снимает роль, которую выдало или отозвало поручение.
package members

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"poruka.club/vouch-bot/internal/common"
)

// Service управляет участниками чата.
type Service struct {
	repo *Repository // Репозиторий для работы с таблицей members
}

// NewService создаёт новый сервис участников.
func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// HandleNewMember обрабатывает вступление нового пользователя в чат.
// Если пользователь уже есть в базе (перезашёл) — обновляет его данные.
// Если пользователь новый — создаёт запись.
func (s *Service) HandleNewMember(ctx context.Context, userID int64, username, firstName, lastName string) error {
	existing, _ := s.repo.GetByUserID(ctx, userID)
	if existing != nil {
		// Пользователь уже зарегистрирован — обновляем данные
		log.WithField("user_id", userID).Info("Участник перезашёл в чат, обновляем данные")
		return s.repo.UpdateInfo(ctx, userID, UpdateInfo{
			Username:  username,
			FirstName: firstName,
			LastName:  lastName,
		})
	}

	member := &Member{
		UserID:    userID,
		Username:  username,
		FirstName: firstName,
		LastName:  lastName,
		IsAdmin:   false,
		IsBanned:  false,
	}

	if err := s.repo.Create(ctx, member); err != nil {
		return fmt.Errorf("ошибка регистрации нового участника: %w", err)
	}

	log.WithFields(log.Fields{
		"user_id":  userID,
		"username": username,
	}).Info("Новый участник зарегистрирован")

	return nil
}

// IsMember проверяет, является ли пользователь участником чата.
// Используется для валидации доступа к DM.
func (s *Service) IsMember(ctx context.Context, userID int64) (bool, error) {
	return s.repo.Exists(ctx, userID)
}

// GetByUserID возвращает участника по его Telegram user ID.
func (s *Service) GetByUserID(ctx context.Context, userID int64) (*Member, error) {
	return s.repo.GetByUserID(ctx, userID)
}

// GetByUsername возвращает участника по @username (без @).
func (s *Service) GetByUsername(ctx context.Context, username string) (*Member, error) {
	return s.repo.GetByUsername(ctx, username)
}

// EnsureMember гарантирует, что пользователь есть в базе.
// Если нет — создаёт запись. Используется при первом сообщении в чате.
func (s *Service) EnsureMember(ctx context.Context, userID int64, username, firstName, lastName string) error {
	exists, err := s.repo.Exists(ctx, userID)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return s.HandleNewMember(ctx, userID, username, firstName, lastName)
}

// GrantRole применяет роль участнику. Вызывается после успешного
// погашения кода: ядро поручений само ролей не трогает.
func (s *Service) GrantRole(ctx context.Context, userID int64, role string) error {
	if len([]rune(role)) > 64 {
		return common.ErrRoleTooLong
	}
	if err := s.repo.UpdateRole(ctx, userID, &role); err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"user_id": userID,
		"role":    role,
	}).Info("Роль выдана")
	return nil
}

// RevokeRole снимает роль участника. Вызывается после отзыва
// погашенного кода.
func (s *Service) RevokeRole(ctx context.Context, userID int64) error {
	if err := s.repo.UpdateRole(ctx, userID, nil); err != nil {
		return err
	}
	log.WithField("user_id", userID).Info("Роль снята")
	return nil
}
