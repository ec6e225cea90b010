// Package vouch — codegen.go генерирует коды поручений.
// Используется crypto/rand (НЕ math/rand): код — это учётные данные,
// и его нельзя угадывать по состоянию генератора.
package vouch

import (
	"crypto/rand"
	"fmt"
	"strings"
)

// codeAlphabet — заглавные латинские буквы и цифры: легко читать
// и диктовать, нет строчных двойников.
const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateCode генерирует код формата <префикс>-XXXX-XXXX-XXXX.
//
// Параметры:
//   - prefix: префикс кода (обычно "V")
//   - length: количество случайных символов (обычно 12)
//   - groupSize: размер группы символов между дефисами (обычно 4)
//
// Пример: GenerateCode("V", 12, 4) → "V-A3KD-92XZ-BT7P"
func GenerateCode(prefix string, length, groupSize int) (string, error) {
	if length <= 0 || groupSize <= 0 {
		return "", fmt.Errorf("некорректные параметры генератора: length=%d group=%d", length, groupSize)
	}

	raw := make([]byte, 0, length)
	buf := make([]byte, 1)
	for len(raw) < length {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("ошибка чтения случайных байт: %w", err)
		}
		// Отбрасываем байты вне 0..251, чтобы распределение по 36 символам
		// было равномерным (252 = 36*7)
		b := buf[0]
		if b >= 252 {
			continue
		}
		raw = append(raw, codeAlphabet[int(b)%len(codeAlphabet)])
	}

	var sb strings.Builder
	sb.WriteString(prefix)
	for i := 0; i < length; i += groupSize {
		end := i + groupSize
		if end > length {
			end = length
		}
		sb.WriteByte('-')
		sb.Write(raw[i:end])
	}
	return sb.String(), nil
}

// NormalizeCode приводит введённый пользователем код к канонической форме:
// обрезает пробелы и поднимает регистр. Пользователи копируют коды
// из чатов как попало.
func NormalizeCode(input string) string {
	return strings.ToUpper(strings.TrimSpace(input))
}
