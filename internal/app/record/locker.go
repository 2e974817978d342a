package record

import "sync"

// Locker serializa as escritas por dono. Cada chave tem um mutex próprio,
// removido do mapa quando ninguém mais o usa.
type Locker struct {
	mu    sync.Mutex
	locks map[string]*ownerLock
}

type ownerLock struct {
	mu   sync.Mutex
	refs int
}

// NewLocker cria um Locker vazio
func NewLocker() *Locker {
	return &Locker{locks: make(map[string]*ownerLock)}
}

// Lock bloqueia a chave e devolve a função que a libera
func (l *Locker) Lock(key string) func() {
	l.mu.Lock()
	lock, ok := l.locks[key]
	if !ok {
		lock = &ownerLock{}
		l.locks[key] = lock
	}
	lock.refs++
	l.mu.Unlock()

	lock.mu.Lock()

	return func() {
		lock.mu.Unlock()

		l.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}
}

// size devolve quantas chaves estão em uso
func (l *Locker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
