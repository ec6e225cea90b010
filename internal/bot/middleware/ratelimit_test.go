package middleware

import (
	"testing"
	"time"
)

func TestRateLimiterAllowsWithinLimit(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute)
	defer rl.Close()

	for i := 0; i < 3; i++ {
		if !rl.Allow(1) {
			t.Fatalf("запрос %d должен пройти", i+1)
		}
	}
	if rl.Allow(1) {
		t.Error("четвёртый запрос в окне должен быть отклонён")
	}
}

func TestRateLimiterPerUser(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	defer rl.Close()

	if !rl.Allow(1) {
		t.Fatal("первый пользователь должен пройти")
	}
	if !rl.Allow(2) {
		t.Error("лимит одного пользователя не должен блокировать другого")
	}
	if rl.Allow(1) {
		t.Error("повтор первого пользователя должен быть отклонён")
	}
}

func TestRateLimiterWindowSlides(t *testing.T) {
	rl := NewRateLimiter(1, 50*time.Millisecond)
	defer rl.Close()

	if !rl.Allow(1) {
		t.Fatal("первый запрос должен пройти")
	}
	if rl.Allow(1) {
		t.Fatal("второй запрос в окне должен быть отклонён")
	}

	time.Sleep(60 * time.Millisecond)

	if !rl.Allow(1) {
		t.Error("после истечения окна запрос должен пройти")
	}
}

func TestPrune(t *testing.T) {
	now := time.Now()
	times := []time.Time{
		now.Add(-3 * time.Minute),
		now.Add(-30 * time.Second),
		now,
	}

	recent := prune(times, now.Add(-time.Minute))
	if len(recent) != 2 {
		t.Errorf("prune оставил %d отметок, want 2", len(recent))
	}
}

func TestRateLimiterCloseIdempotent(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	rl.Close()
	rl.Close() // повторный Close не должен паниковать
}
