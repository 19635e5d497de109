package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/biberdw/zeobase-account/internal/app/core/domain"
	"github.com/biberdw/zeobase-account/pkg/logging"
)

// TransactionResult is the caller-facing snapshot of one recorded operation.
type TransactionResult struct {
	TransactionID   string
	AccountNumber   string
	Type            domain.TransactionType
	Result          domain.ResultType
	Amount          int64
	BalanceSnapshot int64
	TransactedAt    time.Time
}

// TransactionUseCase coordinates balance operations: it resolves the
// collaborators, validates, mutates the balance and appends the audit record
// as one serialized unit per account.
type TransactionUseCase struct {
	users        UserDirectory
	accounts     AccountDirectory
	transactions TransactionStore
	locks        *AccountLocks
	log          *logging.Logger

	// now is swapped in tests to exercise the cancel window.
	now func() time.Time
}

// NewTransactionUseCase wires the coordinator. locks must be the registry
// shared with every other use case touching account state; nil gets a private
// one, which only makes sense when nothing else mutates accounts.
func NewTransactionUseCase(
	users UserDirectory,
	accounts AccountDirectory,
	transactions TransactionStore,
	locks *AccountLocks,
	log *logging.Logger,
) *TransactionUseCase {
	if locks == nil {
		locks = NewAccountLocks()
	}
	if log == nil {
		log = logging.NewNop()
	}
	return &TransactionUseCase{
		users:        users,
		accounts:     accounts,
		transactions: transactions,
		locks:        locks,
		log:          log,
		now:          time.Now,
	}
}

// UseBalance debits amount from the account and appends a USE/SUCCESS record
// whose snapshot is the post-debit balance. Every validation failure aborts
// before any mutation or record is written; use SaveFailedUse to remember a
// failed attempt.
func (u *TransactionUseCase) UseBalance(ctx context.Context, userID int64, accountNumber string, amount int64) (*TransactionResult, error) {
	user, err := u.users.FindUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	u.locks.Lock(accountNumber)
	defer u.locks.Unlock(accountNumber)

	account, err := u.accounts.FindByNumber(ctx, accountNumber)
	if err != nil {
		return nil, err
	}

	if err := validateUseBalance(user, account, amount); err != nil {
		return nil, err
	}

	if err := account.Debit(amount); err != nil {
		return nil, err
	}

	tran := u.newTransaction(domain.TransactionTypeUse, domain.ResultTypeSuccess, account, amount)
	if err := u.transactions.Append(ctx, tran, account); err != nil {
		return nil, err
	}

	u.log.Info("balance used",
		zap.String("account", accountNumber),
		zap.String("transaction", tran.ID),
		zap.Int64("amount", amount),
		zap.Int64("balance", account.Balance))

	return resultOf(tran), nil
}

// SaveFailedUse appends a USE/FAILED record against the current, unchanged
// balance. It mutates nothing and validates nothing beyond resolving the
// account: it exists to preserve the audit trail when an attempted debit
// could not be completed end to end by an external caller.
func (u *TransactionUseCase) SaveFailedUse(ctx context.Context, accountNumber string, amount int64) error {
	return u.saveFailed(ctx, domain.TransactionTypeUse, accountNumber, amount)
}

// CancelBalance fully reverses a prior successful use: it credits the exact
// original amount back and appends a CANCEL/SUCCESS record referencing the
// original. Partial cancels, re-cancels and cancels past the one-year window
// are rejected before any mutation.
func (u *TransactionUseCase) CancelBalance(ctx context.Context, transactionID, accountNumber string, amount int64) (*TransactionResult, error) {
	u.locks.Lock(accountNumber)
	defer u.locks.Unlock(accountNumber)

	original, err := u.transactions.FindByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	canceled, err := u.transactions.HasCancelOf(ctx, original.ID)
	if err != nil {
		return nil, err
	}
	if canceled {
		return nil, domain.ErrTransactionAlreadyCanceled
	}

	account, err := u.accounts.FindByNumber(ctx, accountNumber)
	if err != nil {
		return nil, err
	}

	if err := u.validateCancelBalance(original, account, amount); err != nil {
		return nil, err
	}

	if err := account.Credit(amount); err != nil {
		return nil, err
	}

	tran := u.newTransaction(domain.TransactionTypeCancel, domain.ResultTypeSuccess, account, amount)
	tran.OriginalID = original.ID
	if err := u.transactions.Append(ctx, tran, account); err != nil {
		return nil, err
	}

	u.log.Info("use canceled",
		zap.String("account", accountNumber),
		zap.String("transaction", tran.ID),
		zap.String("original", original.ID),
		zap.Int64("amount", amount),
		zap.Int64("balance", account.Balance))

	return resultOf(tran), nil
}

// SaveFailedCancel is the compensating twin of SaveFailedUse for the cancel
// flow: a CANCEL/FAILED record against the current balance, no mutation.
func (u *TransactionUseCase) SaveFailedCancel(ctx context.Context, accountNumber string, amount int64) error {
	return u.saveFailed(ctx, domain.TransactionTypeCancel, accountNumber, amount)
}

// QueryTransaction resolves a record by identifier. Read-only.
func (u *TransactionUseCase) QueryTransaction(ctx context.Context, transactionID string) (*TransactionResult, error) {
	tran, err := u.transactions.FindByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	return resultOf(tran), nil
}

func (u *TransactionUseCase) saveFailed(ctx context.Context, tranType domain.TransactionType, accountNumber string, amount int64) error {
	u.locks.Lock(accountNumber)
	defer u.locks.Unlock(accountNumber)

	account, err := u.accounts.FindByNumber(ctx, accountNumber)
	if err != nil {
		return err
	}

	tran := u.newTransaction(tranType, domain.ResultTypeFailed, account, amount)
	if err := u.transactions.Append(ctx, tran, nil); err != nil {
		return err
	}

	u.log.Info("failed operation recorded",
		zap.String("account", accountNumber),
		zap.String("transaction", tran.ID),
		zap.String("type", string(tranType)),
		zap.Int64("amount", amount))

	return nil
}

func validateUseBalance(user *domain.User, account *domain.Account, amount int64) error {
	if user.ID != account.UserID {
		return domain.ErrOwnershipMismatch
	}
	if account.Status != domain.AccountStatusActive {
		return domain.ErrAccountClosed
	}
	if account.Balance < amount {
		return domain.ErrInsufficientBalance
	}
	return nil
}

func (u *TransactionUseCase) validateCancelBalance(original *domain.Transaction, account *domain.Account, amount int64) error {
	if original.AccountID != account.ID {
		return domain.ErrTransactionAccountMismatch
	}
	// A closed account's balance never changes again, so there is nothing
	// to credit back to.
	if account.Status != domain.AccountStatusActive {
		return domain.ErrAccountClosed
	}
	if original.Type != domain.TransactionTypeUse || original.Result != domain.ResultTypeSuccess {
		return domain.ErrTransactionNotCancelable
	}
	if original.Amount != amount {
		return domain.ErrPartialCancelNotAllowed
	}
	// Strictly more than one year old, measured at cancel time.
	if original.TransactedAt.Before(u.now().AddDate(-1, 0, 0)) {
		return domain.ErrCancelWindowExpired
	}
	return nil
}

// newTransaction builds a record against the account's current balance, so
// callers mutate first (or not at all, for FAILED records).
func (u *TransactionUseCase) newTransaction(tranType domain.TransactionType, result domain.ResultType, account *domain.Account, amount int64) *domain.Transaction {
	return &domain.Transaction{
		ID:              domain.NewTransactionID(),
		Type:            tranType,
		Result:          result,
		AccountID:       account.ID,
		AccountNumber:   account.AccountNumber,
		Amount:          amount,
		BalanceSnapshot: account.Balance,
		TransactedAt:    u.now(),
	}
}

func resultOf(tran *domain.Transaction) *TransactionResult {
	return &TransactionResult{
		TransactionID:   tran.ID,
		AccountNumber:   tran.AccountNumber,
		Type:            tran.Type,
		Result:          tran.Result,
		Amount:          tran.Amount,
		BalanceSnapshot: tran.BalanceSnapshot,
		TransactedAt:    tran.TransactedAt,
	}
}
