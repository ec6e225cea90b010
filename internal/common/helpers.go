// Package common содержит общие утилиты, используемые во всём проекте.
// Сюда входят: русская плюрализация, форматирование дат, работа с временем.
package common

import (
	"fmt"
	"math"
	"time"
)

// PluralizeCodes возвращает правильную форму слова «код» для числа n.
//
// Правила русского языка:
//   - n%10==1 И n%100!=11 → "код" (1, 21, 31, 101, ...)
//   - n%10 в [2,3,4] И n%100 НЕ в [12,13,14] → "кода" (2, 3, 4, 22, 23, ...)
//   - Остальные случаи → "кодов" (0, 5-20, 25-30, 100, ...)
//
// Примеры:
//
//	PluralizeCodes(1)  → "код"
//	PluralizeCodes(3)  → "кода"
//	PluralizeCodes(5)  → "кодов"
//	PluralizeCodes(11) → "кодов"
//	PluralizeCodes(21) → "код"
func PluralizeCodes(n int) string {
	absN := int(math.Abs(float64(n)))
	lastDigit := absN % 10
	lastTwoDigits := absN % 100

	// Единственное число: 1, 21, 31, 101 (но НЕ 11, 111)
	if lastDigit == 1 && lastTwoDigits != 11 {
		return "код"
	}

	// Малое множественное: 2-4, 22-24, 32-34 (но НЕ 12-14)
	if lastDigit >= 2 && lastDigit <= 4 && (lastTwoDigits < 12 || lastTwoDigits > 14) {
		return "кода"
	}

	return "кодов"
}

// PluralizeDays возвращает правильную форму слова «день» для числа n.
//
// Правила:
//   - 1, 21, 31 → "день"
//   - 2-4, 22-24 → "дня"
//   - 5-20, 25-30 → "дней"
func PluralizeDays(n int) string {
	absN := int(math.Abs(float64(n)))
	lastDigit := absN % 10
	lastTwoDigits := absN % 100

	if lastDigit == 1 && lastTwoDigits != 11 {
		return "день"
	}
	if lastDigit >= 2 && lastDigit <= 4 && (lastTwoDigits < 12 || lastTwoDigits > 14) {
		return "дня"
	}
	return "дней"
}

// PluralizePoints возвращает правильную форму слова «очко» (репутации).
func PluralizePoints(n int) string {
	absN := int(math.Abs(float64(n)))
	lastDigit := absN % 10
	lastTwoDigits := absN % 100

	if lastDigit == 1 && lastTwoDigits != 11 {
		return "очко"
	}
	if lastDigit >= 2 && lastDigit <= 4 && (lastTwoDigits < 12 || lastTwoDigits > 14) {
		return "очка"
	}
	return "очков"
}

// FormatReputation форматирует репутацию в читабельную строку.
// Пример: FormatReputation(50) → "50 очков"
func FormatReputation(rep int) string {
	return fmt.Sprintf("%d %s", rep, PluralizePoints(rep))
}

// GetMoscowTime возвращает текущее время в часовом поясе Москвы (Europe/Moscow).
// Используется планировщиком для дайджестов и напоминаний.
func GetMoscowTime() time.Time {
	loc, err := time.LoadLocation("Europe/Moscow")
	if err != nil {
		// Если не удалось загрузить — используем UTC+3 вручную
		loc = time.FixedZone("MSK", 3*60*60)
	}
	return time.Now().In(loc)
}

// FormatDateTime форматирует время в формат "02.01.2006 15:04" (день.месяц.год часы:минуты).
// Используется для отображения дат создания кодов.
func FormatDateTime(t time.Time) string {
	loc, _ := time.LoadLocation("Europe/Moscow")
	return t.In(loc).Format("02.01.2006 15:04")
}
