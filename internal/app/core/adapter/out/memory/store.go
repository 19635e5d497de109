package memory

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/biberdw/zeobase-account/internal/app/core/domain"
	"github.com/biberdw/zeobase-account/pkg/wal"
)

// walEntry is one replayable mutation: an appended transaction record, an
// account write, or both (a balance change and its record commit together).
type walEntry struct {
	Tran    *domain.Transaction `json:"tran,omitempty"`
	Account *domain.Account     `json:"account,omitempty"`
	User    *domain.User        `json:"user,omitempty"`
}

// Store is the in-memory implementation of the user directory, the account
// directory and the transaction store. All reads hand out detached copies;
// a mutation takes effect only through Save, under the store lock, and is
// appended to the WAL (when configured) before it becomes visible.
type Store struct {
	mu sync.RWMutex

	users            map[int64]*domain.User
	accountsByNumber map[string]*domain.Account
	lastNumber       string
	lastIssuedID     int64
	nextAccountID    int64

	transactions     map[string]*domain.Transaction
	cancelByOriginal map[string]string

	wal *wal.WAL
}

// NewStore builds a Store, replaying w when it is non-nil. A nil WAL gives a
// purely volatile store, which is what tests use.
func NewStore(w *wal.WAL) (*Store, error) {
	s := &Store{
		users:            make(map[int64]*domain.User),
		accountsByNumber: make(map[string]*domain.Account),
		nextAccountID:    1,
		transactions:     make(map[string]*domain.Transaction),
		cancelByOriginal: make(map[string]string),
		wal:              w,
	}
	if w != nil {
		if err := s.recover(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// recover rebuilds state from the WAL. Runs before the store is shared, so
// no locking.
func (s *Store) recover() error {
	return s.wal.ReadAll(func(raw []byte) error {
		var entry walEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			return err
		}
		s.apply(&entry)
		return nil
	})
}

// apply installs an entry into the maps. Caller holds the write lock (or is
// the recovery path).
func (s *Store) apply(entry *walEntry) {
	if entry.User != nil {
		user := *entry.User
		s.users[user.ID] = &user
	}
	if entry.Account != nil {
		account := *entry.Account
		s.accountsByNumber[account.AccountNumber] = &account
		if account.ID >= s.nextAccountID {
			s.nextAccountID = account.ID + 1
		}
		// Last issued means highest id, not highest string: lexicographic
		// order breaks once numbers grow a digit.
		if account.ID >= s.lastIssuedID {
			s.lastIssuedID = account.ID
			s.lastNumber = account.AccountNumber
		}
	}
	if entry.Tran != nil {
		tran := *entry.Tran
		s.transactions[tran.ID] = &tran
		if tran.Type == domain.TransactionTypeCancel && tran.Result == domain.ResultTypeSuccess && tran.OriginalID != "" {
			s.cancelByOriginal[tran.OriginalID] = tran.ID
		}
	}
}

// append writes the entry to the WAL before it is applied. Write-ahead: an
// entry that was not durably logged must not become visible.
func (s *Store) append(entry *walEntry) error {
	if s.wal == nil {
		return nil
	}
	return s.wal.Append(entry)
}

// PutUser registers a user. The directory port is read-only; this is for
// seeding and tests.
func (s *Store) PutUser(user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := *user
	if err := s.append(&walEntry{User: &u}); err != nil {
		return err
	}
	s.apply(&walEntry{User: &u})
	return nil
}

// FindUser implements usecase.UserDirectory.
func (s *Store) FindUser(ctx context.Context, userID int64) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[userID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	u := *user
	return &u, nil
}

// FindByNumber implements usecase.AccountDirectory.
func (s *Store) FindByNumber(ctx context.Context, accountNumber string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.accountsByNumber[accountNumber]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	a := *account
	return &a, nil
}

// FindByUser implements usecase.AccountDirectory.
func (s *Store) FindByUser(ctx context.Context, userID int64) ([]*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var accounts []*domain.Account
	for _, account := range s.accountsByNumber {
		if account.UserID == userID {
			a := *account
			accounts = append(accounts, &a)
		}
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].ID < accounts[j].ID })
	return accounts, nil
}

// CountByUser implements usecase.AccountDirectory.
func (s *Store) CountByUser(ctx context.Context, userID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, account := range s.accountsByNumber {
		if account.UserID == userID {
			count++
		}
	}
	return count, nil
}

// LastAccountNumber implements usecase.AccountDirectory.
func (s *Store) LastAccountNumber(ctx context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastNumber, nil
}

// Save implements usecase.AccountDirectory. A zero ID means insert. The
// account number is unique: an insert under a taken number is rejected
// rather than overwriting, the same way the mysql unique index behaves.
func (s *Store) Save(ctx context.Context, account *domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := *account
	if existing, ok := s.accountsByNumber[a.AccountNumber]; ok && existing.ID != a.ID {
		return domain.ErrDuplicateAccountNumber
	}
	if a.ID == 0 {
		a.ID = s.nextAccountID
	}
	if err := s.append(&walEntry{Account: &a}); err != nil {
		return err
	}
	s.apply(&walEntry{Account: &a})
	account.ID = a.ID
	return nil
}

// Append implements usecase.TransactionStore. When account is
// non-nil, record and account state become visible together under the one
// store lock. Successful cancels are unique per original: the second writer
// loses.
func (s *Store) Append(ctx context.Context, tran *domain.Transaction, account *domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tran.Type == domain.TransactionTypeCancel && tran.Result == domain.ResultTypeSuccess && tran.OriginalID != "" {
		if _, exists := s.cancelByOriginal[tran.OriginalID]; exists {
			return domain.ErrTransactionAlreadyCanceled
		}
	}

	entry := &walEntry{}
	t := *tran
	entry.Tran = &t
	if account != nil {
		a := *account
		entry.Account = &a
	}

	if err := s.append(entry); err != nil {
		return err
	}
	s.apply(entry)
	return nil
}

// FindByID implements usecase.TransactionStore.
func (s *Store) FindByID(ctx context.Context, tranID string) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tran, ok := s.transactions[tranID]
	if !ok {
		return nil, domain.ErrTransactionNotFound
	}
	t := *tran
	return &t, nil
}

// HasCancelOf implements usecase.TransactionStore.
func (s *Store) HasCancelOf(ctx context.Context, originalID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.cancelByOriginal[originalID]
	return ok, nil
}
