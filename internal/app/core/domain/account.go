package domain

import "time"

// AccountStatus is the lifecycle state of an account.
type AccountStatus string

const (
	AccountStatusActive AccountStatus = "ACTIVE"
	AccountStatusClosed AccountStatus = "CLOSED"
)

// Account holds a user's balance in minor currency units.
// Balance is never negative; it changes only through Debit and Credit.
// Status eligibility is checked by the use case layer, not here.
type Account struct {
	ID            int64
	UserID        int64
	AccountNumber string
	Status        AccountStatus
	Balance       int64
	RegisteredAt  time.Time
	ClosedAt      *time.Time
}

// Debit reduces the balance by amount.
// The amount must be positive and must not exceed the current balance.
func (a *Account) Debit(amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if amount > a.Balance {
		return ErrInsufficientBalance
	}
	a.Balance -= amount
	return nil
}

// Credit increases the balance by amount.
func (a *Account) Credit(amount int64) error {
	if amount < 0 {
		return ErrInvalidAmount
	}
	a.Balance += amount
	return nil
}
