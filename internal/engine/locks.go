package engine

import "sync"

// keyedMutex provides mutual exclusion per string key. Mutations to the
// same budget or the same user pair must be serialized to keep the
// consumed-amount and net-balance aggregates race-free; unrelated keys
// proceed concurrently.
//
// Locks are created on first use and kept for the process lifetime; the
// key space (budgets and user pairs actively mutated) is small.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for key and returns its unlock function.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// pairKey builds a canonical lock key for a pair of users, independent
// of direction.
func pairKey(userA, userB string) string {
	if userA > userB {
		userA, userB = userB, userA
	}
	return "pair:" + userA + ":" + userB
}

func budgetKey(budgetID string) string {
	return "budget:" + budgetID
}
