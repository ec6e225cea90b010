package vouch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"poruka.club/vouch-bot/internal/common"
	"poruka.club/vouch-bot/internal/config"
)

// fakeStore — фейк Store для юнит-тестов сервиса (БД не трогаем).
type fakeStore struct {
	mu    sync.Mutex
	codes map[string]*VouchCode

	redeemCalls []string
	revokeCalls []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{codes: make(map[string]*VouchCode)}
}

func (f *fakeStore) CreateCode(ctx context.Context, c *VouchCode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.codes[c.Code]; ok {
		return common.ErrDuplicateCode
	}
	cp := *c
	f.codes[c.Code] = &cp
	return nil
}

func (f *fakeStore) GetCode(ctx context.Context, code string) (*VouchCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.codes[code]
	if !ok {
		return nil, common.ErrCodeNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeStore) ListByCreator(ctx context.Context, creatorID int64, limit int) ([]*VouchCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*VouchCode
	for _, c := range f.codes {
		if c.CreatorID == creatorID && len(out) < limit {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeStore) CountRecentByCreator(ctx context.Context, creatorID int64, since time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, c := range f.codes {
		if c.CreatorID == creatorID && !c.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) Redeem(ctx context.Context, code string, userID int64, now time.Time) (*RedeemResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.redeemCalls = append(f.redeemCalls, code)
	c, ok := f.codes[code]
	if !ok {
		return nil, common.ErrCodeNotFound
	}
	if c.ExpiredBy(now) {
		c.Status = StatusExpired
		return nil, common.ErrCodeExpired
	}
	if c.Status != StatusActive {
		return nil, &FinalizedError{Status: c.Status}
	}
	c.Status = StatusUsed
	c.RedeemerID = &userID
	return &RedeemResult{Code: code, RoleID: c.RoleID, CreatorID: c.CreatorID, RepValue: c.RepValue}, nil
}

func (f *fakeStore) Revoke(ctx context.Context, code string, now time.Time) (*RevokeResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revokeCalls = append(f.revokeCalls, code)
	c, ok := f.codes[code]
	if !ok {
		return nil, common.ErrCodeNotFound
	}
	if !c.Status.CanTransitionTo(StatusRevoked) {
		return nil, &FinalizedError{Status: c.Status}
	}
	prior := c.Status
	c.Status = StatusRevoked
	return &RevokeResult{Code: code, PriorStatus: prior, RedeemerID: c.RedeemerID, RoleID: c.RoleID}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		VouchCodePrefix: "V",
		VouchCodeLength: 12,
		VouchCodeGroup:  4,
		VouchListLimit:  25,
	}
}

func newTestService(store Store) *Service {
	return NewService(store, NewLockPool(16), testConfig())
}

func TestGenerateWithoutCooldown(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	c, err := svc.Generate(context.Background(), 100, 1, 2, 0, 10)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if c.Status != StatusActive {
		t.Errorf("статус нового кода = %s, want ACTIVE", c.Status)
	}
	if c.CreatorID != 1 || c.RoleID != 2 || c.RepValue != 10 {
		t.Errorf("поля кода не совпадают: %+v", c)
	}

	// Без кулдауна вторая генерация подряд проходит
	if _, err := svc.Generate(context.Background(), 100, 1, 2, 0, 10); err != nil {
		t.Fatalf("вторая генерация без кулдауна: %v", err)
	}
}

func TestGenerateCooldownBlocks(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	if _, err := svc.Generate(context.Background(), 100, 1, 2, 60, 10); err != nil {
		t.Fatalf("первая генерация: %v", err)
	}

	_, err := svc.Generate(context.Background(), 100, 1, 2, 60, 10)
	if !errors.Is(err, common.ErrCooldownActive) {
		t.Fatalf("ожидался ErrCooldownActive, got %v", err)
	}

	// Другой поручитель не блокируется
	if _, err := svc.Generate(context.Background(), 100, 2, 2, 60, 10); err != nil {
		t.Fatalf("генерация другим поручителем: %v", err)
	}
}

func TestGenerateCooldownConcurrentSingleWinner(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	const goroutines = 20
	var wg sync.WaitGroup
	results := make(chan error, goroutines)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Generate(context.Background(), 100, 1, 2, 60, 10)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var ok, cooldown int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, common.ErrCooldownActive):
			cooldown++
		default:
			t.Fatalf("неожиданная ошибка: %v", err)
		}
	}

	if ok != 1 {
		t.Errorf("успешных генераций = %d, want ровно 1", ok)
	}
	if cooldown != goroutines-1 {
		t.Errorf("отказов по кулдауну = %d, want %d", cooldown, goroutines-1)
	}
}

func TestBulkGenerateBounds(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	tests := []struct {
		amount  int
		wantErr bool
	}{
		{0, true},
		{-3, true},
		{21, true},
		{1, false},
		{20, false},
	}

	for _, tt := range tests {
		codes, err := svc.BulkGenerate(context.Background(), 100, 5, 2, tt.amount, 10)
		if tt.wantErr {
			if !errors.Is(err, common.ErrInvalidBulkAmount) {
				t.Errorf("amount=%d: ожидался ErrInvalidBulkAmount, got %v", tt.amount, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("amount=%d: %v", tt.amount, err)
			continue
		}
		if len(codes) != tt.amount {
			t.Errorf("amount=%d: получено %d кодов", tt.amount, len(codes))
		}
	}
}

func TestBulkGenerateIgnoresCooldown(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	// Обычная генерация заняла окно кулдауна
	if _, err := svc.Generate(context.Background(), 100, 5, 2, 60, 10); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	// Массовая — админская, гейт не применяется
	codes, err := svc.BulkGenerate(context.Background(), 100, 5, 2, 3, 10)
	if err != nil {
		t.Fatalf("BulkGenerate: %v", err)
	}
	if len(codes) != 3 {
		t.Fatalf("получено %d кодов, want 3", len(codes))
	}
}

func TestRedeemNormalizesInput(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	c, err := svc.Generate(context.Background(), 100, 1, 2, 0, 10)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	// Нижний регистр и пробелы по краям
	raw := "  " + lower(c.Code) + " "
	res, err := svc.Redeem(context.Background(), raw, 42)
	if err != nil {
		t.Fatalf("Redeem(%q): %v", raw, err)
	}
	if res.CreatorID != 1 {
		t.Errorf("CreatorID = %d, want 1", res.CreatorID)
	}

	if got := store.redeemCalls[len(store.redeemCalls)-1]; got != c.Code {
		t.Errorf("в хранилище ушёл код %q, want %q", got, c.Code)
	}
}

func TestRedeemFinalizedCode(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	c, _ := svc.Generate(context.Background(), 100, 1, 2, 0, 10)
	if _, err := svc.Redeem(context.Background(), c.Code, 42); err != nil {
		t.Fatalf("первое погашение: %v", err)
	}

	_, err := svc.Redeem(context.Background(), c.Code, 43)
	status, ok := IsFinalized(err)
	if !ok {
		t.Fatalf("ожидался FinalizedError, got %v", err)
	}
	if status != StatusUsed {
		t.Errorf("финальный статус = %s, want USED", status)
	}
}

func TestRevokeUsedKeepsRedeemer(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	c, _ := svc.Generate(context.Background(), 100, 1, 2, 0, 10)
	if _, err := svc.Redeem(context.Background(), c.Code, 42); err != nil {
		t.Fatalf("Redeem: %v", err)
	}

	res, err := svc.Revoke(context.Background(), c.Code)
	if err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if res.PriorStatus != StatusUsed {
		t.Errorf("PriorStatus = %s, want USED", res.PriorStatus)
	}
	if res.RedeemerID == nil || *res.RedeemerID != 42 {
		t.Errorf("RedeemerID = %v, want 42", res.RedeemerID)
	}
}

func TestRevokeUnknownCode(t *testing.T) {
	svc := newTestService(newFakeStore())

	_, err := svc.Revoke(context.Background(), "V-XXXX-XXXX-XXXX")
	if !errors.Is(err, common.ErrCodeNotFound) {
		t.Fatalf("ожидался ErrCodeNotFound, got %v", err)
	}
}

func lower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + 32
		}
	}
	return string(b)
}
