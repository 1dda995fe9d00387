package lifecycle

import (
	"context"
	"sync"
)

// KeyLocker serializes read-modify-write sequences per incident id. Without
// it two concurrent recurrences of the same ticket could both read
// occurrences=N and write N+1, losing an increment.
type KeyLocker interface {
	// Lock blocks until the key is held and returns the release function.
	Lock(ctx context.Context, key string) (func(), error)
}

// mutexKeyLocker is the in-process implementation. Mutexes are kept forever;
// the key space (incident ids seen by one process) stays small.
type mutexKeyLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewMutexKeyLocker returns an in-process KeyLocker.
func NewMutexKeyLocker() KeyLocker {
	return &mutexKeyLocker{locks: make(map[string]*sync.Mutex)}
}

func (l *mutexKeyLocker) Lock(_ context.Context, key string) (func(), error) {
	l.mu.Lock()
	keyLock, ok := l.locks[key]
	if !ok {
		keyLock = &sync.Mutex{}
		l.locks[key] = keyLock
	}
	l.mu.Unlock()

	keyLock.Lock()
	return keyLock.Unlock, nil
}
