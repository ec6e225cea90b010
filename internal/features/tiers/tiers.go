// Package tiers разрешает тир поручителя по его роли.
// Тир определяет параметры генерации: кулдаун между кодами и награду
// репутации при погашении. Список тиров упорядочен — это иерархия,
// и участник получает самый высокий подходящий тир.
package tiers

import (
	"strings"

	"poruka.club/vouch-bot/internal/config"
)

// Tier — разрешённый тир поручителя.
type Tier struct {
	Name            string // Имя тира
	CooldownMinutes int    // Минут между генерациями (0 = без кулдауна)
	RepValue        int    // Репутация поручителю-новичку за погашение
}

// Resolver сопоставляет роль участника с тиром.
type Resolver struct {
	ordered []Tier
}

// NewResolver строит резолвер из конфигурации.
// Порядок тиров в конфиге сохраняется (иерархия сверху вниз).
func NewResolver(cfg *config.Config) *Resolver {
	ordered := make([]Tier, 0, len(cfg.VouchTiers))
	for _, t := range cfg.VouchTiers {
		ordered = append(ordered, Tier{
			Name:            t.Name,
			CooldownMinutes: t.CooldownMinutes,
			RepValue:        t.RepValue,
		})
	}
	return &Resolver{ordered: ordered}
}

// Resolve возвращает тир для роли участника или nil, если роль
// не даёт права генерации. Сравнение без учёта регистра.
func (r *Resolver) Resolve(role string) *Tier {
	role = strings.TrimSpace(role)
	if role == "" {
		return nil
	}
	for i := range r.ordered {
		if strings.EqualFold(r.ordered[i].Name, role) {
			t := r.ordered[i]
			return &t
		}
	}
	return nil
}

// Tiers возвращает иерархию тиров (для справки и сообщений).
func (r *Resolver) Tiers() []Tier {
	out := make([]Tier, len(r.ordered))
	copy(out, r.ordered)
	return out
}
