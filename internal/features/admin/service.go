// Package admin — service.go содержит логику аутентификации и сессий.
// Пароль администратора хранится как Argon2id-хеш в переменной окружения
// (scripts/generate_hash.go генерирует его).
package admin

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/argon2"

	"poruka.club/vouch-bot/internal/common"
	"poruka.club/vouch-bot/internal/config"
)

// sessionTTL — срок жизни админ-сессии.
const sessionTTL = 24 * time.Hour

// maxFailedAttempts — неудачных попыток входа за час до блокировки.
const maxFailedAttempts = 3

// Service управляет админ-панелью.
type Service struct {
	repo *Repository
	cfg  *config.Config
}

// NewService создаёт сервис админ-панели.
func NewService(repo *Repository, cfg *config.Config) *Service {
	return &Service{repo: repo, cfg: cfg}
}

// Login проверяет пароль администратора и открывает сессию.
// Защита от brute-force: 3 неудачные попытки за час = блокировка.
func (s *Service) Login(ctx context.Context, userID int64, password string) error {
	attempts, err := s.repo.CountFailedAttempts(ctx, userID, 1*time.Hour)
	if err != nil {
		return err
	}
	if attempts >= maxFailedAttempts {
		return common.ErrTooManyAttempts
	}

	match := verifyArgon2id(password, s.cfg.AdminPasswordHash)

	if err := s.repo.LogAttempt(ctx, userID, match); err != nil {
		log.WithError(err).Warn("Не удалось записать попытку входа")
	}

	if !match {
		return common.ErrWrongPassword
	}

	session := &AdminSession{
		UserID:       userID,
		SessionToken: uuid.NewString(),
		ExpiresAt:    time.Now().Add(sessionTTL),
	}
	if err := s.repo.CreateSession(ctx, session); err != nil {
		return err
	}

	log.WithField("user_id", userID).Info("Администратор авторизован")
	return nil
}

// Logout закрывает все сессии администратора.
func (s *Service) Logout(ctx context.Context, userID int64) error {
	return s.repo.DeactivateSessions(ctx, userID)
}

// HasActiveSession проверяет, есть ли у пользователя активная сессия.
// Попутно обновляет время последней активности.
func (s *Service) HasActiveSession(ctx context.Context, userID int64) bool {
	session, err := s.repo.GetActiveSession(ctx, userID)
	if err != nil {
		log.WithError(err).Warn("Ошибка проверки сессии")
		return false
	}
	if session == nil {
		return false
	}
	if err := s.repo.TouchSession(ctx, userID); err != nil {
		log.WithError(err).Debug("Не удалось обновить активность сессии")
	}
	return true
}

// verifyArgon2id проверяет пароль по хешу Argon2id.
// Формат хеша: $argon2id$v=19$m=65536,t=3,p=2$<salt_base64>$<hash_base64>
func verifyArgon2id(password, encodedHash string) bool {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 {
		log.Error("Некорректный формат хеша Argon2id")
		return false
	}

	var memory uint32
	var iterations uint32
	var parallelism uint8
	_, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &parallelism)
	if err != nil {
		log.WithError(err).Error("Ошибка парсинга параметров Argon2id")
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		log.WithError(err).Error("Ошибка декодирования соли")
		return false
	}

	expectedHash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		log.WithError(err).Error("Ошибка декодирования хеша")
		return false
	}

	computedHash := argon2.IDKey([]byte(password), salt, iterations, memory, parallelism, uint32(len(expectedHash)))

	// Сравниваем в постоянном времени (защита от timing attack)
	return subtle.ConstantTimeCompare(computedHash, expectedHash) == 1
}
