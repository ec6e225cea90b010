// Package config загружает конфигурацию бота из переменных окружения.
// Используется envconfig для маппинга переменных окружения на поля структуры.
// Все переменные окружения читаются ТОЛЬКО здесь — остальные модули
// получают готовую структуру Config.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// TierSpec описывает один тир поручителей: имя, кулдаун генерации и награда репутации.
// Порядок тиров в конфиге задаёт иерархию (выше в списке = выше по рангу).
type TierSpec struct {
	Name            string // Имя тира (совпадает с ролью участника)
	CooldownMinutes int    // Минут между генерациями (0 = без кулдауна)
	RepValue        int    // Сколько репутации получает погасивший код
}

// Config содержит ВСЕ настройки приложения.
type Config struct {
	// --- Telegram ---
	TelegramBotToken string `envconfig:"TELEGRAM_BOT_TOKEN" required:"true"`
	// ID чата, в котором бот работает (единственный разрешённый групповой чат)
	FloodChatID int64 `envconfig:"FLOOD_CHAT_ID" required:"true"`
	// Чат для аудит-лога поручений (0 = лог только в stdout)
	VouchLogChatID int64 `envconfig:"VOUCH_LOG_CHAT_ID" default:"0"`

	// --- Database ---
	// В Docker внутри контейнера "localhost" почти всегда неправильно.
	// Дефолт ставим "postgres" (имя сервиса в docker-compose), а для локалки переопределяй DB_HOST=localhost.
	DBHost     string `envconfig:"DB_HOST" default:"postgres"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"botuser"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" default:"vouch_bot"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	DBMaxConns int32  `envconfig:"DB_MAX_CONNS" default:"25"`
	DBMinConns int32  `envconfig:"DB_MIN_CONNS" default:"5"`

	// --- Application ---
	AppEnv      string `envconfig:"APP_ENV" default:"development"`
	AppLogLevel string `envconfig:"APP_LOG_LEVEL" default:"debug"`
	AppTimezone string `envconfig:"APP_TIMEZONE" default:"Europe/Moscow"`

	// --- Bot runtime ---
	// Сколько апдейтов обрабатываем параллельно. Иначе "go на каждый апдейт" = утечка памяти при флуде.
	BotMaxInflight int `envconfig:"BOT_MAX_INFLIGHT" default:"64"`
	// Таймаут long polling (секунды)
	BotUpdateTimeoutSeconds int `envconfig:"BOT_UPDATE_TIMEOUT_SECONDS" default:"60"`

	// --- Admin ---
	AdminPasswordHash string `envconfig:"ADMIN_PASSWORD_HASH" required:"true"`

	// --- Vouch ---
	// Формат кода: <префикс>-XXXX-XXXX-XXXX
	VouchCodePrefix string `envconfig:"VOUCH_CODE_PREFIX" default:"V"`
	VouchCodeLength int    `envconfig:"VOUCH_CODE_LENGTH" default:"12"`
	VouchCodeGroup  int    `envconfig:"VOUCH_CODE_GROUP" default:"4"`
	// Сколько кодов показываем в списке управления
	VouchListLimit int `envconfig:"VOUCH_LIST_LIMIT" default:"25"`
	// Роль, которую выдаёт погашенный код (id из VOUCH_ROLES)
	VouchGrantRoleID int64 `envconfig:"VOUCH_GRANT_ROLE_ID" default:"1"`
	// Размер пула полосатых локов для кулдаун-гейта
	VouchLockStripes int `envconfig:"VOUCH_LOCK_STRIPES" default:"64"`
	// Тиры поручителей: "Имя:кулдаун_мин:репутация,..."
	VouchTiersRaw string  `envconfig:"VOUCH_TIERS" default:"Owner:0:50,Mod:0:20,All Stars:10:10,Kaiser:60:5,Warlord:60:5"`
	VouchTiers    []TierSpec `envconfig:"-"` // заполним вручную
	// Соответствие id роли → отображаемое имя: "1:Участник,2:Друг"
	VouchRolesRaw string           `envconfig:"VOUCH_ROLES" default:"1:Участник,2:Друг"`
	VouchRoles    map[int64]string `envconfig:"-"` // заполним вручную

	// --- Rate Limiting ---
	RateLimitRequests int           `envconfig:"RATE_LIMIT_REQUESTS" default:"10"`
	RateLimitWindow   time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`

	// --- Feature Flags ---
	FeatureRemindersEnabled bool `envconfig:"FEATURE_REMINDERS_ENABLED" default:"true"`
	FeatureDigestEnabled    bool `envconfig:"FEATURE_DIGEST_ENABLED" default:"true"`
}

// DatabaseDSN возвращает строку подключения к PostgreSQL в формате DSN.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// RoleName возвращает отображаемое имя роли по её id.
// Для неизвестного id возвращает пустую строку.
func (c *Config) RoleName(roleID int64) string {
	return c.VouchRoles[roleID]
}

func (c *Config) Validate() error {
	if c.FloodChatID == 0 {
		return fmt.Errorf("FLOOD_CHAT_ID не задан или равен 0")
	}
	if c.BotMaxInflight <= 0 {
		return fmt.Errorf("BOT_MAX_INFLIGHT должен быть > 0")
	}
	if c.BotUpdateTimeoutSeconds <= 0 {
		return fmt.Errorf("BOT_UPDATE_TIMEOUT_SECONDS должен быть > 0")
	}
	if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("некорректные DB_MIN_CONNS/DB_MAX_CONNS")
	}
	if c.VouchCodeLength <= 0 || c.VouchCodeGroup <= 0 {
		return fmt.Errorf("некорректные VOUCH_CODE_LENGTH/VOUCH_CODE_GROUP")
	}
	if c.VouchLockStripes <= 0 {
		return fmt.Errorf("VOUCH_LOCK_STRIPES должен быть > 0")
	}
	if len(c.VouchTiers) == 0 {
		return fmt.Errorf("VOUCH_TIERS пуст")
	}
	if _, ok := c.VouchRoles[c.VouchGrantRoleID]; !ok {
		return fmt.Errorf("VOUCH_GRANT_ROLE_ID=%d отсутствует в VOUCH_ROLES", c.VouchGrantRoleID)
	}
	return nil
}

// Load читает переменные окружения и заполняет структуру Config.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("не удалось загрузить конфигурацию: %w", err)
	}

	tiers, err := parseTiers(cfg.VouchTiersRaw)
	if err != nil {
		return nil, fmt.Errorf("VOUCH_TIERS parse: %w", err)
	}
	cfg.VouchTiers = tiers

	roles, err := parseRoles(cfg.VouchRolesRaw)
	if err != nil {
		return nil, fmt.Errorf("VOUCH_ROLES parse: %w", err)
	}
	cfg.VouchRoles = roles

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// parseTiers разбирает строку вида "Owner:0:50,Mod:0:20" в список тиров.
// Порядок элементов сохраняется — он задаёт иерархию.
func parseTiers(s string) ([]TierSpec, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]TierSpec, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		fields := strings.Split(p, ":")
		if len(fields) != 3 {
			return nil, fmt.Errorf("ожидается имя:кулдаун:репутация, получено %q", p)
		}
		cooldown, err := strconv.Atoi(strings.TrimSpace(fields[1]))
		if err != nil || cooldown < 0 {
			return nil, fmt.Errorf("некорректный кулдаун в %q", p)
		}
		rep, err := strconv.Atoi(strings.TrimSpace(fields[2]))
		if err != nil || rep < 0 {
			return nil, fmt.Errorf("некорректная репутация в %q", p)
		}
		out = append(out, TierSpec{
			Name:            strings.TrimSpace(fields[0]),
			CooldownMinutes: cooldown,
			RepValue:        rep,
		})
	}
	return out, nil
}

// parseRoles разбирает строку вида "1:Участник,2:Друг" в map[id]имя.
func parseRoles(s string) (map[int64]string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make(map[int64]string, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		fields := strings.SplitN(p, ":", 2)
		if len(fields) != 2 {
			return nil, fmt.Errorf("ожидается id:имя, получено %q", p)
		}
		id, err := strconv.ParseInt(strings.TrimSpace(fields[0]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("некорректный id роли в %q: %w", p, err)
		}
		name := strings.TrimSpace(fields[1])
		if name == "" {
			return nil, fmt.Errorf("пустое имя роли в %q", p)
		}
		out[id] = name
	}
	return out, nil
}
