// Package vouch реализует систему поручений: одноразовые коды, которые
// доверенные участники выдают новичкам. Погашение кода выдаёт роль и
// начисляет репутацию поручителю-новичку.
// models.go описывает запись кода и машину состояний его жизненного цикла.
package vouch

import "time"

// Status — статус кода поручения.
// Переходы строго монотонны: код никогда не возвращается в ACTIVE.
type Status string

const (
	// StatusActive — код создан и ещё не погашен
	StatusActive Status = "ACTIVE"
	// StatusUsed — код погашен (хранит, кем именно)
	StatusUsed Status = "USED"
	// StatusExpired — код протух: 3 дня прошли до погашения
	StatusExpired Status = "EXPIRED"
	// StatusRevoked — код отозван создателем или админом
	StatusRevoked Status = "REVOKED"
)

// CodeTTL — срок жизни непогашенного кода с момента создания.
// Продления не существует.
const CodeTTL = 72 * time.Hour

// Terminal сообщает, является ли статус конечным.
// Из EXPIRED и REVOKED переходов нет.
func (s Status) Terminal() bool {
	return s == StatusExpired || s == StatusRevoked
}

// CanTransitionTo проверяет, разрешён ли переход s → next.
// Разрешённые переходы: ACTIVE → {USED, EXPIRED, REVOKED}, USED → REVOKED.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusActive:
		return next == StatusUsed || next == StatusExpired || next == StatusRevoked
	case StatusUsed:
		return next == StatusRevoked
	default:
		return false
	}
}

// VouchCode — запись кода в реестре.
// Записи никогда не удаляются: даже погашенные и отозванные коды
// остаются как аудит-след. Мутируются только Status и RedeemerID.
type VouchCode struct {
	Code       string    `db:"code"`        // Уникальный код V-XXXX-XXXX-XXXX
	ChatID     int64     `db:"chat_id"`     // Чат (сообщество), в котором код создан
	RoleID     int64     `db:"role_id"`     // Роль, которую выдаёт погашение
	CreatorID  int64     `db:"creator_id"`  // Поручитель (создатель кода)
	CreatedAt  time.Time `db:"created_at"`  // Момент создания (UTC)
	RedeemerID *int64    `db:"redeemer_id"` // Кто погасил (nil, пока не погашен)
	Status     Status    `db:"status"`       // Текущий статус
	RepValue   int       `db:"reward_amount"` // Сколько репутации даёт погашение
}

// ExpiredBy сообщает, должен ли код считаться просроченным на момент now.
// Просрочка определяется ТОЛЬКО от времени создания и ТОЛЬКО для ACTIVE:
// код в статусе USED не становится просроченным задним числом, сколько бы
// ему ни было.
func (c *VouchCode) ExpiredBy(now time.Time) bool {
	return c.Status == StatusActive && now.Sub(c.CreatedAt) > CodeTTL
}

// RedeemResult — результат успешного погашения кода.
// Выдачу роли выполняет вызывающая сторона, ядро ролями не управляет.
type RedeemResult struct {
	Code      string // Погашенный код
	RoleID    int64  // Роль, которую надо выдать
	CreatorID int64  // Поручитель (записан как last_voucher погасившего)
	RepValue  int    // Начисленная репутация
	FirstTime bool   // Первое погашение в истории пользователя
}

// RevokeResult — результат успешного отзыва кода.
// Если код был USED, вызывающая сторона по RedeemerID и RoleID
// снимает роль и уведомляет пользователя.
type RevokeResult struct {
	Code        string // Отозванный код
	PriorStatus Status // Статус до отзыва (ACTIVE или USED)
	RedeemerID  *int64 // Кто успел погасить (nil для ACTIVE)
	RoleID      int64  // Роль, выданная кодом
}
