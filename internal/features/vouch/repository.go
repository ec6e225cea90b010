// Package vouch — repository.go выполняет все операции с таблицей vouch_codes
// и связанными таблицами redeemed_users / user_profiles.
//
// Погашение и отзыв — многошаговые мутации. Оба выполняются в ОДНОЙ
// транзакции БД с блокировкой строки кода (SELECT ... FOR UPDATE):
// два параллельных погашения одного кода сериализуются на строке,
// и успешным будет ровно одно.
package vouch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"poruka.club/vouch-bot/internal/common"
)

// pgUniqueViolation — код ошибки PostgreSQL "duplicate key value".
const pgUniqueViolation = "23505"

// Repository работает с таблицами vouch_codes, redeemed_users и user_profiles.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий поручений.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// CreateCode вставляет новую запись кода со статусом ACTIVE.
// Генератор даёт высокоэнтропийные коды, так что коллизий по сути не бывает;
// уникальность первичного ключа здесь — страховка корректности,
// на конфликте возвращается common.ErrDuplicateCode.
func (r *Repository) CreateCode(ctx context.Context, c *VouchCode) error {
	query := `
		INSERT INTO vouch_codes (code, chat_id, role_id, creator_id, created_at, status, reward_amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.Exec(ctx, query,
		c.Code, c.ChatID, c.RoleID, c.CreatorID, c.CreatedAt.UTC(), c.Status, c.RepValue,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return common.ErrDuplicateCode
		}
		return fmt.Errorf("ошибка создания кода: %w", err)
	}
	return nil
}

// GetCode возвращает запись кода или common.ErrCodeNotFound.
func (r *Repository) GetCode(ctx context.Context, code string) (*VouchCode, error) {
	query := `
		SELECT code, chat_id, role_id, creator_id, created_at, redeemer_id, status, reward_amount
		FROM vouch_codes
		WHERE code = $1
	`
	var c VouchCode
	err := r.db.QueryRow(ctx, query, code).Scan(
		&c.Code, &c.ChatID, &c.RoleID, &c.CreatorID,
		&c.CreatedAt, &c.RedeemerID, &c.Status, &c.RepValue,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrCodeNotFound
		}
		return nil, fmt.Errorf("ошибка чтения кода: %w", err)
	}
	return &c, nil
}

// ListByCreator возвращает коды поручителя, свежие первыми.
func (r *Repository) ListByCreator(ctx context.Context, creatorID int64, limit int) ([]*VouchCode, error) {
	if limit <= 0 {
		limit = 25
	}
	query := `
		SELECT code, chat_id, role_id, creator_id, created_at, redeemer_id, status, reward_amount
		FROM vouch_codes
		WHERE creator_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, creatorID, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка кодов: %w", err)
	}
	defer rows.Close()

	var codes []*VouchCode
	for rows.Next() {
		var c VouchCode
		if err := rows.Scan(
			&c.Code, &c.ChatID, &c.RoleID, &c.CreatorID,
			&c.CreatedAt, &c.RedeemerID, &c.Status, &c.RepValue,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования кода: %w", err)
		}
		codes = append(codes, &c)
	}
	return codes, rows.Err()
}

// SetStatus безусловно записывает статус (и при необходимости погасившего).
// Валидация легальности перехода — обязанность вызывающей стороны;
// обычный путь идёт через Redeem/Revoke, этот метод остаётся для
// ручных исправлений.
func (r *Repository) SetStatus(ctx context.Context, code string, status Status, redeemerID *int64) error {
	var err error
	if redeemerID != nil {
		_, err = r.db.Exec(ctx,
			`UPDATE vouch_codes SET status = $2, redeemer_id = $3 WHERE code = $1`,
			code, status, *redeemerID,
		)
	} else {
		_, err = r.db.Exec(ctx,
			`UPDATE vouch_codes SET status = $2 WHERE code = $1`,
			code, status,
		)
	}
	if err != nil {
		return fmt.Errorf("ошибка записи статуса: %w", err)
	}
	return nil
}

// CountRecentByCreator считает коды, созданные поручителем начиная с since.
// Используется кулдаун-гейтом: вызов обязан идти под полосатым локом
// поручителя, вместе с последующим CreateCode.
func (r *Repository) CountRecentByCreator(ctx context.Context, creatorID int64, since time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM vouch_codes WHERE creator_id = $1 AND created_at >= $2`
	var count int
	err := r.db.QueryRow(ctx, query, creatorID, since.UTC()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчёта кодов в окне кулдауна: %w", err)
	}
	return count, nil
}

// Redeem выполняет погашение кода: ленивая просрочка, переход ACTIVE → USED,
// отметка первого погашения и начисление репутации — всё одной транзакцией.
//
// Возможные ошибки: common.ErrCodeNotFound, common.ErrCodeExpired
// (при этом статус EXPIRED зафиксирован в БД), *FinalizedError.
func (r *Repository) Redeem(ctx context.Context, code string, userID int64, now time.Time) (*RedeemResult, error) {
	now = now.UTC()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	// Блокируем строку кода: параллельные погашения выстраиваются здесь
	var c VouchCode
	err = tx.QueryRow(ctx, `
		SELECT code, chat_id, role_id, creator_id, created_at, redeemer_id, status, reward_amount
		FROM vouch_codes
		WHERE code = $1
		FOR UPDATE
	`, code).Scan(
		&c.Code, &c.ChatID, &c.RoleID, &c.CreatorID,
		&c.CreatedAt, &c.RedeemerID, &c.Status, &c.RepValue,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrCodeNotFound
		}
		return nil, fmt.Errorf("ошибка чтения кода: %w", err)
	}

	// Ленивая просрочка: переход EXPIRED фиксируется как побочный
	// эффект обнаружения, поэтому транзакцию надо закоммитить
	if c.ExpiredBy(now) {
		if _, err := tx.Exec(ctx,
			`UPDATE vouch_codes SET status = $2 WHERE code = $1`,
			code, StatusExpired,
		); err != nil {
			return nil, fmt.Errorf("ошибка записи просрочки: %w", err)
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("ошибка фиксации просрочки: %w", err)
		}
		return nil, common.ErrCodeExpired
	}

	if c.Status != StatusActive {
		return nil, &FinalizedError{Status: c.Status}
	}

	// ACTIVE → USED с записью погасившего
	if _, err := tx.Exec(ctx,
		`UPDATE vouch_codes SET status = $2, redeemer_id = $3 WHERE code = $1`,
		code, StatusUsed, userID,
	); err != nil {
		return nil, fmt.Errorf("ошибка перевода кода в USED: %w", err)
	}

	// Первое ли это погашение в истории пользователя?
	var alreadyRedeemed bool
	if err := tx.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM redeemed_users WHERE user_id = $1)`, userID,
	).Scan(&alreadyRedeemed); err != nil {
		return nil, fmt.Errorf("ошибка проверки первого погашения: %w", err)
	}
	if !alreadyRedeemed {
		if _, err := tx.Exec(ctx,
			`INSERT INTO redeemed_users (user_id, first_redeem_at) VALUES ($1, $2)`,
			userID, now,
		); err != nil {
			return nil, fmt.Errorf("ошибка записи отметки первого погашения: %w", err)
		}
	}

	// Начисляем репутацию и записываем поручителя.
	// Профиля может ещё не быть — upsert
	if _, err := tx.Exec(ctx, `
		INSERT INTO user_profiles (user_id, reputation, last_voucher_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE
		SET reputation = user_profiles.reputation + EXCLUDED.reputation,
		    last_voucher_id = EXCLUDED.last_voucher_id
	`, userID, c.RepValue, c.CreatorID); err != nil {
		return nil, fmt.Errorf("ошибка начисления репутации: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("ошибка фиксации погашения: %w", err)
	}

	return &RedeemResult{
		Code:      c.Code,
		RoleID:    c.RoleID,
		CreatorID: c.CreatorID,
		RepValue:  c.RepValue,
		FirstTime: !alreadyRedeemed,
	}, nil
}

// Revoke отзывает код: переход в REVOKED из ACTIVE или USED.
// Погасивший сохраняется в записи, репутация НЕ отнимается.
// Отзыв — управленческий просмотр кода, поэтому ленивая просрочка
// применяется и здесь: ACTIVE-код старше 3 дней сперва фиксируется
// как EXPIRED, а попытка отзыва завершается FinalizedError.
func (r *Repository) Revoke(ctx context.Context, code string, now time.Time) (*RevokeResult, error) {
	now = now.UTC()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	var c VouchCode
	err = tx.QueryRow(ctx, `
		SELECT code, chat_id, role_id, creator_id, created_at, redeemer_id, status, reward_amount
		FROM vouch_codes
		WHERE code = $1
		FOR UPDATE
	`, code).Scan(
		&c.Code, &c.ChatID, &c.RoleID, &c.CreatorID,
		&c.CreatedAt, &c.RedeemerID, &c.Status, &c.RepValue,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrCodeNotFound
		}
		return nil, fmt.Errorf("ошибка чтения кода: %w", err)
	}

	if c.ExpiredBy(now) {
		if _, err := tx.Exec(ctx,
			`UPDATE vouch_codes SET status = $2 WHERE code = $1`,
			code, StatusExpired,
		); err != nil {
			return nil, fmt.Errorf("ошибка записи просрочки: %w", err)
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("ошибка фиксации просрочки: %w", err)
		}
		return nil, &FinalizedError{Status: StatusExpired}
	}

	if !c.Status.CanTransitionTo(StatusRevoked) {
		return nil, &FinalizedError{Status: c.Status}
	}

	// redeemer_id не трогаем: для USED-кодов он нужен вызывающей
	// стороне, чтобы снять роль
	if _, err := tx.Exec(ctx,
		`UPDATE vouch_codes SET status = $2 WHERE code = $1`,
		code, StatusRevoked,
	); err != nil {
		return nil, fmt.Errorf("ошибка перевода кода в REVOKED: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("ошибка фиксации отзыва: %w", err)
	}

	return &RevokeResult{
		Code:        c.Code,
		PriorStatus: c.Status,
		RedeemerID:  c.RedeemerID,
		RoleID:      c.RoleID,
	}, nil
}

// ListExpiringBetween возвращает ACTIVE-коды, созданные в интервале
// (from, to]. Используется напоминаниями: статус здесь НЕ меняется,
// просрочка фиксируется только лениво при погашении или отзыве.
func (r *Repository) ListExpiringBetween(ctx context.Context, from, to time.Time) ([]*VouchCode, error) {
	query := `
		SELECT code, chat_id, role_id, creator_id, created_at, redeemer_id, status, reward_amount
		FROM vouch_codes
		WHERE status = $1 AND created_at > $2 AND created_at <= $3
		ORDER BY created_at
	`
	rows, err := r.db.Query(ctx, query, StatusActive, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки истекающих кодов: %w", err)
	}
	defer rows.Close()

	var codes []*VouchCode
	for rows.Next() {
		var c VouchCode
		if err := rows.Scan(
			&c.Code, &c.ChatID, &c.RoleID, &c.CreatorID,
			&c.CreatedAt, &c.RedeemerID, &c.Status, &c.RepValue,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования кода: %w", err)
		}
		codes = append(codes, &c)
	}
	return codes, rows.Err()
}

// CountByStatus возвращает количество кодов в каждом статусе.
// Используется ежедневным дайджестом.
func (r *Repository) CountByStatus(ctx context.Context) (map[Status]int, error) {
	rows, err := r.db.Query(ctx, `SELECT status, COUNT(*) FROM vouch_codes GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("ошибка подсчёта по статусам: %w", err)
	}
	defer rows.Close()

	counts := make(map[Status]int)
	for rows.Next() {
		var s Status
		var n int
		if err := rows.Scan(&s, &n); err != nil {
			return nil, fmt.Errorf("ошибка сканирования счётчика: %w", err)
		}
		counts[s] = n
	}
	return counts, rows.Err()
}

// CountCreatedSince возвращает количество кодов, созданных начиная с since.
func (r *Repository) CountCreatedSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM vouch_codes WHERE created_at >= $1`, since.UTC(),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчёта созданных кодов: %w", err)
	}
	return count, nil
}
