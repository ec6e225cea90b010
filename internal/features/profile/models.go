// Package profile реализует реестр репутации: накопительный счёт
// и ссылку «кто поручился последним».
// models.go описывает структуру профиля.
package profile

import "time"

// Profile — запись репутации пользователя.
// Создаётся лениво: при первом погашении кода или ручном исправлении.
// Репутация в рамках этого модуля только растёт.
type Profile struct {
	UserID     int64  `db:"user_id"`         // Telegram user ID
	Reputation int    `db:"reputation"`      // Накопленная репутация (неотрицательная)
	VoucherID  *int64 `db:"last_voucher_id"` // Последний поручитель (nil = нет записи)
}

// RedeemedMarker — write-once отметка «пользователь уже гасил код».
// Само существование записи означает «не первый раз».
type RedeemedMarker struct {
	UserID        int64     `db:"user_id"`
	FirstRedeemAt time.Time `db:"first_redeem_at"`
}
