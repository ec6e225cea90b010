package vouch

import (
	"sync"
	"testing"
)

func TestLockPoolSameIDSameMutex(t *testing.T) {
	p := NewLockPool(64)

	for _, id := range []int64{0, 1, -1, 42, 1<<62 + 17} {
		if p.For(id) != p.For(id) {
			t.Errorf("id %d должен всегда попадать на одну полосу", id)
		}
	}
}

func TestLockPoolBounded(t *testing.T) {
	p := NewLockPool(8)
	if p.Size() != 8 {
		t.Fatalf("Size() = %d, want 8", p.Size())
	}

	// Сколько бы ни было id, все мьютексы — из фиксированных 8 полос
	seen := make(map[*sync.Mutex]bool)
	for id := int64(0); id < 10000; id++ {
		seen[p.For(id)] = true
	}
	if len(seen) > 8 {
		t.Errorf("пул выдал %d разных мьютексов при 8 полосах", len(seen))
	}
}

func TestLockPoolDefaultSize(t *testing.T) {
	if got := NewLockPool(0).Size(); got != defaultLockStripes {
		t.Errorf("размер по умолчанию = %d, want %d", got, defaultLockStripes)
	}
	if got := NewLockPool(-5).Size(); got != defaultLockStripes {
		t.Errorf("размер при отрицательном = %d, want %d", got, defaultLockStripes)
	}
}

func TestLockPoolSerializesSameID(t *testing.T) {
	p := NewLockPool(16)
	const id = int64(777)

	var counter int
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			mu := p.For(id)
			mu.Lock()
			counter++
			mu.Unlock()
		}()
	}
	wg.Wait()

	if counter != 100 {
		t.Errorf("counter = %d, want 100 (лок не сериализует)", counter)
	}
}
