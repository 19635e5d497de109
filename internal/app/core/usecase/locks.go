package usecase

import "sync"

// AccountLocks serializes operations per account number. Operations on the
// same account run one at a time; operations on different accounts proceed
// in parallel. Every use case that mutates account state must go through the
// same registry, so one instance is shared at wiring time. Lock entries are
// never removed: the set of account numbers is small and bounded by accounts
// ever touched by this process.
type AccountLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewAccountLocks() *AccountLocks {
	return &AccountLocks{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for accountNumber, creating it on first use.
func (l *AccountLocks) Lock(accountNumber string) {
	l.mu.Lock()
	m, ok := l.locks[accountNumber]
	if !ok {
		m = &sync.Mutex{}
		l.locks[accountNumber] = m
	}
	l.mu.Unlock()
	m.Lock()
}

func (l *AccountLocks) Unlock(accountNumber string) {
	l.mu.Lock()
	m := l.locks[accountNumber]
	l.mu.Unlock()
	m.Unlock()
}
