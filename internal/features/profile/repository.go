// Package profile — repository.go выполняет операции с таблицами
// user_profiles и redeemed_users.
package profile

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository работает с таблицами user_profiles и redeemed_users.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий профилей.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// GetProfile возвращает профиль пользователя.
// Если записи нет — возвращает нулевой профиль (репутация 0, без поручителя):
// отсутствие записи не ошибка, профили создаются лениво.
func (r *Repository) GetProfile(ctx context.Context, userID int64) (*Profile, error) {
	query := `SELECT user_id, reputation, last_voucher_id FROM user_profiles WHERE user_id = $1`
	var p Profile
	err := r.db.QueryRow(ctx, query, userID).Scan(&p.UserID, &p.Reputation, &p.VoucherID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &Profile{UserID: userID}, nil
		}
		return nil, fmt.Errorf("ошибка чтения профиля: %w", err)
	}
	return &p, nil
}

// AdjustReputation добавляет delta к репутации пользователя.
// Вызывается только движком погашения (внутри его транзакции репутация
// начисляется тем же upsert-ом); этот метод — отдельная точка входа
// для ручных корректировок.
func (r *Repository) AdjustReputation(ctx context.Context, userID int64, delta int) error {
	query := `
		INSERT INTO user_profiles (user_id, reputation)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE
		SET reputation = user_profiles.reputation + EXCLUDED.reputation
	`
	_, err := r.db.Exec(ctx, query, userID, delta)
	if err != nil {
		return fmt.Errorf("ошибка изменения репутации: %w", err)
	}
	return nil
}

// SetVoucher записывает поручителя пользователя, НЕ трогая репутацию.
// Административное исправление неверной атрибуции.
func (r *Repository) SetVoucher(ctx context.Context, userID, voucherID int64) error {
	query := `
		INSERT INTO user_profiles (user_id, reputation, last_voucher_id)
		VALUES ($1, 0, $2)
		ON CONFLICT (user_id) DO UPDATE
		SET last_voucher_id = EXCLUDED.last_voucher_id
	`
	_, err := r.db.Exec(ctx, query, userID, voucherID)
	if err != nil {
		return fmt.Errorf("ошибка записи поручителя: %w", err)
	}
	return nil
}

// HasRedeemed проверяет наличие write-once отметки погашения.
func (r *Repository) HasRedeemed(ctx context.Context, userID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM redeemed_users WHERE user_id = $1)`, userID,
	).Scan(&exists)
	return exists, err
}
