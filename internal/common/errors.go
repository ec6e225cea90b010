// Package common — errors.go определяет пользовательские ошибки,
// которые используются во всех модулях бота.
// Эти ошибки позволяют обработчикам различать типы проблем
// и отправлять пользователю понятные сообщения.
package common

import "errors"

// Ошибки системы поручений (коды-ваучеры)
var (
	// ErrCodeNotFound — код не найден в реестре
	ErrCodeNotFound = errors.New("код не найден")
	// ErrCodeExpired — код просрочен (старше 3 дней)
	ErrCodeExpired = errors.New("срок действия кода истёк (3 дня)")
	// ErrCooldownActive — поручитель ещё в кулдауне после прошлой генерации
	ErrCooldownActive = errors.New("кулдаун генерации ещё не прошёл")
	// ErrDuplicateCode — такой код уже существует (коллизия генератора)
	ErrDuplicateCode = errors.New("такой код уже существует")
	// ErrInvalidBulkAmount — некорректное количество кодов для массовой генерации
	ErrInvalidBulkAmount = errors.New("количество кодов должно быть от 1 до 20")
)

// Ошибки участников
var (
	// ErrUserNotFound — пользователь не найден в базе
	ErrUserNotFound = errors.New("пользователь не найден")
	// ErrNoTier — у пользователя нет тира, разрешающего генерацию
	ErrNoTier = errors.New("нет тира с правом генерации кодов")
)

// Ошибки админки
var (
	// ErrNotAdmin — пользователь не является администратором
	ErrNotAdmin = errors.New("у вас нет прав администратора")
	// ErrWrongPassword — неверный пароль
	ErrWrongPassword = errors.New("неверный пароль")
	// ErrTooManyAttempts — слишком много неудачных попыток входа
	ErrTooManyAttempts = errors.New("слишком много попыток, подождите 1 час")
	// ErrSessionExpired — сессия истекла
	ErrSessionExpired = errors.New("сессия истекла, авторизуйтесь заново")
	// ErrRoleTooLong — роль слишком длинная (максимум 64 символа)
	ErrRoleTooLong = errors.New("роль слишком длинная (максимум 64 символа)")
)
