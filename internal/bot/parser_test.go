package bot

import (
	"reflect"
	"testing"
)

func TestParseCommand(t *testing.T) {
	p := NewCommandParser()

	tests := []struct {
		name     string
		text     string
		wantCmd  string
		wantArgs []string
		wantOK   bool
	}{
		{"восклицательный префикс", "!поручение", "поручение", nil, true},
		{"точка-префикс", ".поручения", "поручения", nil, true},
		{"слэш-префикс", "/login секрет", "login", []string{"секрет"}, true},
		{"команда с аргументом", "!погасить V-A3KD-92XZ-BT7P", "погасить", []string{"V-A3KD-92XZ-BT7P"}, true},
		{"несколько аргументов", "!массовая @user 5", "массовая", []string{"@user", "5"}, true},
		{"регистр команды опускается", "!ПОГАСИТЬ X", "погасить", []string{"X"}, true},
		{"пробелы вокруг", "  !поручение  ", "поручение", nil, true},
		{"пробел после префикса", "! поручение", "поручение", nil, true},
		{"без префикса", "поручение", "", nil, false},
		{"обычный текст", "привет всем", "", nil, false},
		{"только префикс", "!", "", nil, false},
		{"пустая строка", "", "", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, args, ok := p.ParseCommand(tt.text)
			if ok != tt.wantOK {
				t.Fatalf("ParseCommand(%q) ok = %v, want %v", tt.text, ok, tt.wantOK)
			}
			if cmd != tt.wantCmd {
				t.Errorf("cmd = %q, want %q", cmd, tt.wantCmd)
			}
			if !reflect.DeepEqual(args, tt.wantArgs) {
				t.Errorf("args = %v, want %v", args, tt.wantArgs)
			}
		})
	}
}

func TestParseCommandPreservesArgCase(t *testing.T) {
	p := NewCommandParser()

	// Код в аргументе не должен менять регистр на этапе парсинга:
	// нормализацией занимается сервис поручений
	_, args, ok := p.ParseCommand("!погасить v-a3kd-92xz-bt7p")
	if !ok || len(args) != 1 {
		t.Fatalf("парсинг не удался: args=%v ok=%v", args, ok)
	}
	if args[0] != "v-a3kd-92xz-bt7p" {
		t.Errorf("аргумент изменён парсером: %q", args[0])
	}
}
