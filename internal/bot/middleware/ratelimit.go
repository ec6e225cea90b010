package middleware

import (
	"sync"
	"time"
)

// RateLimiter ограничивает частоту команд на пользователя
// по алгоритму скользящего окна. Защищает от спама командами
// генерации и погашения кодов.
type RateLimiter struct {
	mu     sync.Mutex
	seen   map[int64][]time.Time
	limit  int
	window time.Duration

	stopOnce sync.Once
	stopCh   chan struct{}
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		seen:   make(map[int64][]time.Time),
		limit:  limit,
		window: window,
		stopCh: make(chan struct{}),
	}
	go rl.cleanup()
	return rl
}

// Close останавливает фоновую горутину очистки.
// Вызывается на shutdown, иначе cleanup живёт вечно.
func (rl *RateLimiter) Close() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

// Allow возвращает true, если пользователю можно обработать ещё одну команду.
func (rl *RateLimiter) Allow(userID int64) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	recent := prune(rl.seen[userID], now.Add(-rl.window))

	if len(recent) >= rl.limit {
		rl.seen[userID] = recent
		return false
	}

	rl.seen[userID] = append(recent, now)
	return true
}

// prune отбрасывает отметки старше cutoff.
func prune(times []time.Time, cutoff time.Time) []time.Time {
	var recent []time.Time
	for _, t := range times {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}
	return recent
}

func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopCh:
			return
		case <-ticker.C:
			rl.mu.Lock()
			cutoff := time.Now().Add(-rl.window)
			for userID, times := range rl.seen {
				recent := prune(times, cutoff)
				if len(recent) == 0 {
					delete(rl.seen, userID)
				} else {
					rl.seen[userID] = recent
				}
			}
			rl.mu.Unlock()
		}
	}
}
