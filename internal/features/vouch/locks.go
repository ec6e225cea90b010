// Package vouch — locks.go содержит пул полосатых локов для кулдаун-гейта.
//
// Зачем: проверка «не создавал ли поручитель код в окне кулдауна» и вставка
// нового кода должны выполняться под ОДНИМ удерживаемым локом — иначе два
// параллельных запроса одного пользователя оба увидят «окно чистое» и оба
// вставят. Лок при этом должен быть per-issuer, чтобы разные поручители
// друг другу не мешали.
//
// Наивная map[issuerID]*sync.Mutex растёт вечно — по записи на каждого,
// кто хоть раз нажал кнопку. Вместо этого фиксированный массив полос:
// issuerID хешируется в одну из N полос. Коллизии двух разных поручителей
// на одной полосе дают лишь лишнюю сериализацию, но не ошибку.
package vouch

import (
	"hash/fnv"
	"sync"
)

// defaultLockStripes — размер пула по умолчанию.
const defaultLockStripes = 64

// LockPool — ограниченный пул мьютексов, полосатых по хешу id.
// Явно создаётся в app и передаётся сервису — никакого глобального
// состояния на уровне пакета.
type LockPool struct {
	stripes []sync.Mutex
}

// NewLockPool создаёт пул из size полос. size <= 0 → размер по умолчанию.
func NewLockPool(size int) *LockPool {
	if size <= 0 {
		size = defaultLockStripes
	}
	return &LockPool{stripes: make([]sync.Mutex, size)}
}

// For возвращает мьютекс полосы для данного id.
// Один и тот же id всегда попадает на одну и ту же полосу.
func (p *LockPool) For(id int64) *sync.Mutex {
	h := fnv.New32a()
	var buf [8]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(uint64(id) >> (8 * i))
	}
	h.Write(buf[:])
	return &p.stripes[h.Sum32()%uint32(len(p.stripes))]
}

// Size возвращает количество полос в пуле.
func (p *LockPool) Size() int {
	return len(p.stripes)
}
