// Package vouch — errors.go содержит типизированную ошибку финализированного кода.
// Остальные ошибки ядра — сентинелы в internal/common.
package vouch

import (
	"errors"
	"fmt"
)

// FinalizedError возвращается при попытке перехода из статуса,
// который его не допускает: погашение не-ACTIVE кода или отзыв
// кода в EXPIRED/REVOKED. Несёт фактический статус, чтобы
// обработчик мог показать пользователю конкретную причину.
type FinalizedError struct {
	Status Status
}

func (e *FinalizedError) Error() string {
	return fmt.Sprintf("код уже в статусе %s", e.Status)
}

// IsFinalized проверяет, является ли ошибка FinalizedError,
// и возвращает статус кода из неё.
func IsFinalized(err error) (Status, bool) {
	var fe *FinalizedError
	if errors.As(err, &fe) {
		return fe.Status, true
	}
	return "", false
}
