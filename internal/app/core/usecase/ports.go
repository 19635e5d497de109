package usecase

import (
	"context"

	"github.com/biberdw/zeobase-account/internal/app/core/domain"
)

// UserDirectory resolves registered users.
type UserDirectory interface {
	// FindUser returns domain.ErrUserNotFound when the user does not exist.
	FindUser(ctx context.Context, userID int64) (*domain.User, error)
}

// AccountDirectory resolves and persists accounts by their external number.
// Implementations return detached copies; mutations take effect only through
// Save or through TransactionStore.Append.
type AccountDirectory interface {
	// FindByNumber returns domain.ErrAccountNotFound when absent.
	FindByNumber(ctx context.Context, accountNumber string) (*domain.Account, error)
	// FindByUser returns the user's accounts ordered by id.
	FindByUser(ctx context.Context, userID int64) ([]*domain.Account, error)
	CountByUser(ctx context.Context, userID int64) (int, error)
	// LastAccountNumber returns the most recently issued number, or "" when
	// no account exists yet.
	LastAccountNumber(ctx context.Context) (string, error)
	// Save inserts the account (assigning its id) or updates it in place.
	Save(ctx context.Context, account *domain.Account) error
}

// TransactionStore persists the append-only transaction log.
type TransactionStore interface {
	// Append appends a record. When account is non-nil its balance and
	// status are persisted in the same atomic commit, so a debit or credit
	// and its record land together or not at all. For successful CANCEL
	// records the store enforces at most one cancel per original: a
	// concurrent loser gets domain.ErrTransactionAlreadyCanceled.
	Append(ctx context.Context, tran *domain.Transaction, account *domain.Account) error
	// FindByID returns domain.ErrTransactionNotFound when absent.
	FindByID(ctx context.Context, tranID string) (*domain.Transaction, error)
	// HasCancelOf reports whether a successful CANCEL references originalID.
	HasCancelOf(ctx context.Context, originalID string) (bool, error)
}
