package config

import (
	"strings"
	"testing"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:test-token")
	t.Setenv("FLOOD_CHAT_ID", "-1001234567890")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("ADMIN_PASSWORD_HASH", "$argon2id$v=19$m=65536,t=3,p=2$c2FsdA$aGFzaA")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.VouchCodePrefix != "V" || cfg.VouchCodeLength != 12 || cfg.VouchCodeGroup != 4 {
		t.Errorf("дефолты формата кода: prefix=%q length=%d group=%d",
			cfg.VouchCodePrefix, cfg.VouchCodeLength, cfg.VouchCodeGroup)
	}
	if cfg.VouchListLimit != 25 {
		t.Errorf("VouchListLimit = %d, want 25", cfg.VouchListLimit)
	}
	if cfg.VouchLockStripes != 64 {
		t.Errorf("VouchLockStripes = %d, want 64", cfg.VouchLockStripes)
	}
	if len(cfg.VouchTiers) != 5 {
		t.Fatalf("тиров по умолчанию = %d, want 5", len(cfg.VouchTiers))
	}
	if cfg.VouchTiers[0].Name != "Owner" || cfg.VouchTiers[0].RepValue != 50 {
		t.Errorf("первый тир = %+v", cfg.VouchTiers[0])
	}
	if cfg.RoleName(1) == "" {
		t.Error("роль 1 должна иметь имя по умолчанию")
	}
}

func TestLoadMissingRequired(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "")

	if _, err := Load(); err == nil {
		t.Fatal("ожидалась ошибка без TELEGRAM_BOT_TOKEN")
	}
}

func TestDatabaseDSN(t *testing.T) {
	cfg := &Config{
		DBHost: "dbhost", DBPort: 5433, DBUser: "u",
		DBPassword: "p", DBName: "vouch", DBSSLMode: "disable",
	}
	want := "postgres://u:p@dbhost:5433/vouch?sslmode=disable"
	if got := cfg.DatabaseDSN(); got != want {
		t.Errorf("DSN = %q, want %q", got, want)
	}
}

func TestParseTiers(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    int
		wantErr bool
	}{
		{"стандартная строка", "Owner:0:50,Mod:0:20", 2, false},
		{"имя с пробелом", "All Stars:10:10", 1, false},
		{"пробелы вокруг элементов", " Owner : 0 : 50 , Mod : 0 : 20 ", 2, false},
		{"пустая строка", "", 0, false},
		{"мало полей", "Owner:0", 0, true},
		{"нечисловой кулдаун", "Owner:abc:50", 0, true},
		{"отрицательная репутация", "Owner:0:-5", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseTiers(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseTiers(%q): ожидалась ошибка", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseTiers(%q): %v", tt.in, err)
			}
			if len(got) != tt.want {
				t.Errorf("parseTiers(%q) = %d тиров, want %d", tt.in, len(got), tt.want)
			}
		})
	}
}

func TestParseTiersKeepsOrder(t *testing.T) {
	got, err := parseTiers("Owner:0:50,Mod:0:20,Kaiser:60:5")
	if err != nil {
		t.Fatalf("parseTiers: %v", err)
	}
	if got[0].Name != "Owner" || got[1].Name != "Mod" || got[2].Name != "Kaiser" {
		t.Errorf("порядок тиров нарушен: %+v", got)
	}
}

func TestParseRoles(t *testing.T) {
	roles, err := parseRoles("1:Участник,2:Друг")
	if err != nil {
		t.Fatalf("parseRoles: %v", err)
	}
	if roles[1] != "Участник" || roles[2] != "Друг" {
		t.Errorf("parseRoles = %v", roles)
	}

	if _, err := parseRoles("abc:Участник"); err == nil {
		t.Error("ожидалась ошибка на нечисловом id")
	}
	if _, err := parseRoles("1:"); err == nil {
		t.Error("ожидалась ошибка на пустом имени")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			FloodChatID:             -100123,
			BotMaxInflight:          64,
			BotUpdateTimeoutSeconds: 60,
			DBMaxConns:              25,
			DBMinConns:              5,
			VouchCodeLength:         12,
			VouchCodeGroup:          4,
			VouchLockStripes:        64,
			VouchGrantRoleID:        1,
			VouchTiers:              []TierSpec{{Name: "Owner"}},
			VouchRoles:              map[int64]string{1: "Участник"},
		}
	}

	if err := valid().Validate(); err != nil {
		t.Fatalf("валидный конфиг отвергнут: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		wantIn string
	}{
		{"нулевой чат", func(c *Config) { c.FloodChatID = 0 }, "FLOOD_CHAT_ID"},
		{"нулевой inflight", func(c *Config) { c.BotMaxInflight = 0 }, "BOT_MAX_INFLIGHT"},
		{"min > max conns", func(c *Config) { c.DBMinConns = 30 }, "DB_MIN_CONNS"},
		{"нулевые полосы", func(c *Config) { c.VouchLockStripes = 0 }, "VOUCH_LOCK_STRIPES"},
		{"пустые тиры", func(c *Config) { c.VouchTiers = nil }, "VOUCH_TIERS"},
		{"роль не из списка", func(c *Config) { c.VouchGrantRoleID = 99 }, "VOUCH_GRANT_ROLE_ID"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("ожидалась ошибка валидации")
			}
			if !strings.Contains(err.Error(), tt.wantIn) {
				t.Errorf("ошибка %q не упоминает %s", err, tt.wantIn)
			}
		})
	}
}
