package vouch

import (
	"regexp"
	"strings"
	"testing"
)

func TestGenerateCodeFormat(t *testing.T) {
	want := regexp.MustCompile(`^V(-[A-Z0-9]{4}){3}$`)

	for i := 0; i < 100; i++ {
		code, err := GenerateCode("V", 12, 4)
		if err != nil {
			t.Fatalf("GenerateCode: %v", err)
		}
		if !want.MatchString(code) {
			t.Fatalf("код %q не соответствует формату V-XXXX-XXXX-XXXX", code)
		}
	}
}

func TestGenerateCodeCustomParams(t *testing.T) {
	tests := []struct {
		name      string
		prefix    string
		length    int
		groupSize int
		pattern   string
	}{
		{"короткий код", "K", 6, 3, `^K(-[A-Z0-9]{3}){2}$`},
		{"длина не кратна группе", "V", 10, 4, `^V-[A-Z0-9]{4}-[A-Z0-9]{4}-[A-Z0-9]{2}$`},
		{"одна группа", "X", 4, 8, `^X-[A-Z0-9]{4}$`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, err := GenerateCode(tt.prefix, tt.length, tt.groupSize)
			if err != nil {
				t.Fatalf("GenerateCode: %v", err)
			}
			if !regexp.MustCompile(tt.pattern).MatchString(code) {
				t.Errorf("код %q не соответствует %s", code, tt.pattern)
			}
		})
	}
}

func TestGenerateCodeInvalidParams(t *testing.T) {
	if _, err := GenerateCode("V", 0, 4); err == nil {
		t.Error("ожидалась ошибка при length=0")
	}
	if _, err := GenerateCode("V", 12, 0); err == nil {
		t.Error("ожидалась ошибка при groupSize=0")
	}
}

func TestGenerateCodeUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		code, err := GenerateCode("V", 12, 4)
		if err != nil {
			t.Fatalf("GenerateCode: %v", err)
		}
		if seen[code] {
			t.Fatalf("повтор кода %q за 1000 генераций", code)
		}
		seen[code] = true
	}
}

func TestNormalizeCode(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"v-a3kd-92xz-bt7p", "V-A3KD-92XZ-BT7P"},
		{"  V-A3KD-92XZ-BT7P  ", "V-A3KD-92XZ-BT7P"},
		{"\tv-A3kd-92XZ-bt7p\n", "V-A3KD-92XZ-BT7P"},
		{"V-A3KD-92XZ-BT7P", "V-A3KD-92XZ-BT7P"},
	}

	for _, tt := range tests {
		if got := NormalizeCode(tt.in); got != tt.want {
			t.Errorf("NormalizeCode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeCodeDoesNotStripInnerSpaces(t *testing.T) {
	// Внутренние пробелы остаются: такой код просто не найдётся в БД
	got := NormalizeCode(" v-a3kd 92xz ")
	if !strings.Contains(got, " ") {
		t.Errorf("внутренний пробел не должен удаляться: %q", got)
	}
}
