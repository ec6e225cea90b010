package middleware

import (
	"runtime/debug"

	log "github.com/sirupsen/logrus"
)

// RecoverFromPanic перехватывает панику в обработчике обновления,
// чтобы одно «ядовитое» сообщение не роняло весь цикл бота.
func RecoverFromPanic(updateID int) {
	if r := recover(); r != nil {
		log.WithFields(log.Fields{
			"update_id": updateID,
			"panic":     r,
			"stack":     string(debug.Stack()),
		}).Error("Паника при обработке обновления")
	}
}
