package tiers

import (
	"testing"

	"poruka.club/vouch-bot/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		VouchTiers: []config.TierSpec{
			{Name: "Owner", CooldownMinutes: 0, RepValue: 50},
			{Name: "Mod", CooldownMinutes: 0, RepValue: 20},
			{Name: "All Stars", CooldownMinutes: 10, RepValue: 10},
			{Name: "Kaiser", CooldownMinutes: 60, RepValue: 5},
			{Name: "Warlord", CooldownMinutes: 60, RepValue: 5},
		},
	}
}

func TestResolve(t *testing.T) {
	r := NewResolver(testConfig())

	tests := []struct {
		role         string
		wantName     string
		wantCooldown int
		wantRep      int
	}{
		{"Owner", "Owner", 0, 50},
		{"Mod", "Mod", 0, 20},
		{"All Stars", "All Stars", 10, 10},
		{"Kaiser", "Kaiser", 60, 5},
		{"Warlord", "Warlord", 60, 5},
	}

	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			tier := r.Resolve(tt.role)
			if tier == nil {
				t.Fatalf("Resolve(%q) = nil", tt.role)
			}
			if tier.Name != tt.wantName || tier.CooldownMinutes != tt.wantCooldown || tier.RepValue != tt.wantRep {
				t.Errorf("Resolve(%q) = %+v", tt.role, tier)
			}
		})
	}
}

func TestResolveCaseInsensitive(t *testing.T) {
	r := NewResolver(testConfig())

	for _, role := range []string{"owner", "OWNER", "oWnEr", "  Owner  "} {
		if tier := r.Resolve(role); tier == nil || tier.Name != "Owner" {
			t.Errorf("Resolve(%q) должен найти Owner, got %+v", role, tier)
		}
	}
}

func TestResolveUnknown(t *testing.T) {
	r := NewResolver(testConfig())

	for _, role := range []string{"", "   ", "Новичок", "Ownerz"} {
		if tier := r.Resolve(role); tier != nil {
			t.Errorf("Resolve(%q) = %+v, want nil", role, tier)
		}
	}
}

func TestTiersPreservesOrder(t *testing.T) {
	r := NewResolver(testConfig())

	tiers := r.Tiers()
	want := []string{"Owner", "Mod", "All Stars", "Kaiser", "Warlord"}
	if len(tiers) != len(want) {
		t.Fatalf("получено %d тиров, want %d", len(tiers), len(want))
	}
	for i, name := range want {
		if tiers[i].Name != name {
			t.Errorf("позиция %d: %s, want %s (порядок — иерархия)", i, tiers[i].Name, name)
		}
	}
}

func TestTiersReturnsCopy(t *testing.T) {
	r := NewResolver(testConfig())

	tiers := r.Tiers()
	tiers[0].Name = "Hacked"

	if r.Resolve("Hacked") != nil {
		t.Error("мутация возвращённого среза не должна влиять на резолвер")
	}
	if r.Resolve("Owner") == nil {
		t.Error("Owner пропал после мутации копии")
	}
}
