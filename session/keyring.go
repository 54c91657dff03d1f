package session

import "sync"

// Keyring provides per-key mutual exclusion so concurrent requests for the
// same session serialize while different sessions proceed in parallel.
type Keyring struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

// NewKeyring creates an empty keyring.
func NewKeyring() *Keyring {
	return &Keyring{locks: make(map[string]*keyLock)}
}

// Lock acquires the mutex for key and returns its release function. Entries
// are removed once no holder or waiter remains.
func (k *Keyring) Lock(key string) func() {
	k.mu.Lock()
	entry, ok := k.locks[key]
	if !ok {
		entry = &keyLock{}
		k.locks[key] = entry
	}
	entry.refs++
	k.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		k.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
