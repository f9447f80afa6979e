package engine

import "sync"

// LockArena - арена мьютексов по ID лимита
//
// Секция "оценить -> решить -> пометить сработавшим" для одного лимита
// должна выполняться строго последовательно, иначе два конкурентных цикла
// могут оба решить закрыть одни и те же позиции. Глобальный мьютекс здесь
// не годится: он сцепил бы циклы несвязанных владельцев. Арена выдаёт
// отдельный мьютекс на каждый лимит.
//
// Мьютексы создаются лениво и не удаляются: количество лимитов ограничено
// и мьютекс дешевле учёта времени жизни.
type LockArena struct {
	mu    sync.Mutex
	locks map[int]*sync.Mutex
}

// NewLockArena создаёт пустую арену
func NewLockArena() *LockArena {
	return &LockArena{
		locks: make(map[int]*sync.Mutex),
	}
}

// Lock захватывает мьютекс лимита, создавая его при первом обращении
func (a *LockArena) Lock(limitID int) {
	a.get(limitID).Lock()
}

// Unlock освобождает мьютекс лимита
func (a *LockArena) Unlock(limitID int) {
	a.get(limitID).Unlock()
}

func (a *LockArena) get(limitID int) *sync.Mutex {
	a.mu.Lock()
	defer a.mu.Unlock()

	lock, ok := a.locks[limitID]
	if !ok {
		lock = &sync.Mutex{}
		a.locks[limitID] = lock
	}
	return lock
}

// Size возвращает количество известных арене лимитов
func (a *LockArena) Size() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.locks)
}
