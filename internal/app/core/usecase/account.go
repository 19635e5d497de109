package usecase

import (
	"context"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/biberdw/zeobase-account/internal/app/core/domain"
	"github.com/biberdw/zeobase-account/pkg/logging"
)

const (
	// firstAccountNumber is issued when no account exists yet; later numbers
	// follow sequentially from the most recently issued one.
	firstAccountNumber = "1000000000"
	maxAccountsPerUser = 10
)

// AccountResult is the caller-facing snapshot of one account.
type AccountResult struct {
	UserID        int64
	AccountNumber string
	Balance       int64
	RegisteredAt  time.Time
	ClosedAt      *time.Time
}

// AccountUseCase opens, closes and lists accounts. Balance mutation is the
// TransactionUseCase's job; here the balance only gates closing.
type AccountUseCase struct {
	users    UserDirectory
	accounts AccountDirectory
	locks    *AccountLocks
	log      *logging.Logger
	now      func() time.Time

	// issueMu serializes account-number issuance: the next number is derived
	// from the last issued one, so read and save must not interleave.
	issueMu sync.Mutex
}

// NewAccountUseCase wires the account operations. locks must be the registry
// shared with the TransactionUseCase so a close cannot interleave with a
// debit or credit on the same account; nil gets a private one.
func NewAccountUseCase(users UserDirectory, accounts AccountDirectory, locks *AccountLocks, log *logging.Logger) *AccountUseCase {
	if locks == nil {
		locks = NewAccountLocks()
	}
	if log == nil {
		log = logging.NewNop()
	}
	return &AccountUseCase{
		users:    users,
		accounts: accounts,
		locks:    locks,
		log:      log,
		now:      time.Now,
	}
}

// CreateAccount opens an ACTIVE account for the user with the given starting
// balance. A user holds at most ten accounts.
func (a *AccountUseCase) CreateAccount(ctx context.Context, userID int64, initialBalance int64) (*AccountResult, error) {
	user, err := a.users.FindUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	a.issueMu.Lock()
	defer a.issueMu.Unlock()

	count, err := a.accounts.CountByUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if count >= maxAccountsPerUser {
		return nil, domain.ErrMaxAccountsPerUser
	}

	number, err := a.nextAccountNumber(ctx)
	if err != nil {
		return nil, err
	}

	account := &domain.Account{
		UserID:        user.ID,
		AccountNumber: number,
		Status:        domain.AccountStatusActive,
		Balance:       initialBalance,
		RegisteredAt:  a.now(),
	}
	if err := a.accounts.Save(ctx, account); err != nil {
		return nil, err
	}

	a.log.Info("account created",
		zap.Int64("user", user.ID),
		zap.String("account", account.AccountNumber),
		zap.Int64("balance", account.Balance))

	return accountResultOf(account), nil
}

// CloseAccount marks the account CLOSED. The caller must own it and its
// balance must already be zero; a closed account never changes again.
func (a *AccountUseCase) CloseAccount(ctx context.Context, userID int64, accountNumber string) (*AccountResult, error) {
	user, err := a.users.FindUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	a.locks.Lock(accountNumber)
	defer a.locks.Unlock(accountNumber)

	account, err := a.accounts.FindByNumber(ctx, accountNumber)
	if err != nil {
		return nil, err
	}

	if user.ID != account.UserID {
		return nil, domain.ErrOwnershipMismatch
	}
	if account.Status == domain.AccountStatusClosed {
		return nil, domain.ErrAccountClosed
	}
	if account.Balance > 0 {
		return nil, domain.ErrBalanceNotEmpty
	}

	closedAt := a.now()
	account.Status = domain.AccountStatusClosed
	account.ClosedAt = &closedAt
	if err := a.accounts.Save(ctx, account); err != nil {
		return nil, err
	}

	a.log.Info("account closed",
		zap.Int64("user", user.ID),
		zap.String("account", account.AccountNumber))

	return accountResultOf(account), nil
}

// ListAccounts returns the user's accounts ordered by creation.
func (a *AccountUseCase) ListAccounts(ctx context.Context, userID int64) ([]AccountResult, error) {
	user, err := a.users.FindUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	accounts, err := a.accounts.FindByUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	results := make([]AccountResult, 0, len(accounts))
	for _, account := range accounts {
		results = append(results, *accountResultOf(account))
	}
	return results, nil
}

func (a *AccountUseCase) nextAccountNumber(ctx context.Context) (string, error) {
	last, err := a.accounts.LastAccountNumber(ctx)
	if err != nil {
		return "", err
	}
	if last == "" {
		return firstAccountNumber, nil
	}
	n, err := strconv.ParseInt(last, 10, 64)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n+1, 10), nil
}

func accountResultOf(account *domain.Account) *AccountResult {
	return &AccountResult{
		UserID:        account.UserID,
		AccountNumber: account.AccountNumber,
		Balance:       account.Balance,
		RegisteredAt:  account.RegisteredAt,
		ClosedAt:      account.ClosedAt,
	}
}
