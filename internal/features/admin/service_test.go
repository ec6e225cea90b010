package admin

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"testing"

	"golang.org/x/crypto/argon2"
)

// makeHash собирает хеш в том же формате, что и scripts/generate_hash.go.
func makeHash(t *testing.T, password string) string {
	t.Helper()

	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		t.Fatalf("генерация соли: %v", err)
	}

	var (
		memory      uint32 = 65536
		iterations  uint32 = 3
		parallelism uint8  = 2
	)
	hash := argon2.IDKey([]byte(password), salt, iterations, memory, parallelism, 32)

	return fmt.Sprintf("$argon2id$v=19$m=%d,t=%d,p=%d$%s$%s",
		memory, iterations, parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	)
}

func TestVerifyArgon2id(t *testing.T) {
	encoded := makeHash(t, "правильный-пароль")

	if !verifyArgon2id("правильный-пароль", encoded) {
		t.Error("корректный пароль отвергнут")
	}
	if verifyArgon2id("неправильный", encoded) {
		t.Error("некорректный пароль принят")
	}
	if verifyArgon2id("", encoded) {
		t.Error("пустой пароль принят")
	}
}

func TestVerifyArgon2idMalformedHash(t *testing.T) {
	tests := []struct {
		name string
		hash string
	}{
		{"пустой хеш", ""},
		{"мало секций", "$argon2id$v=19$m=65536,t=3,p=2$c2FsdA"},
		{"битые параметры", "$argon2id$v=19$garbage$c2FsdA$aGFzaA"},
		{"битая соль", "$argon2id$v=19$m=65536,t=3,p=2$!!!$aGFzaA"},
		{"битый хеш", "$argon2id$v=19$m=65536,t=3,p=2$c2FsdA$!!!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if verifyArgon2id("пароль", tt.hash) {
				t.Error("повреждённый хеш не должен проходить проверку")
			}
		})
	}
}

func TestVerifyArgon2idDifferentSaltsDifferentHashes(t *testing.T) {
	h1 := makeHash(t, "пароль")
	h2 := makeHash(t, "пароль")

	if h1 == h2 {
		t.Error("две генерации одного пароля дали одинаковый хеш (соль не случайна?)")
	}
	// Оба хеша при этом валидны
	if !verifyArgon2id("пароль", h1) || !verifyArgon2id("пароль", h2) {
		t.Error("пароль не проходит по собственному хешу")
	}
}
