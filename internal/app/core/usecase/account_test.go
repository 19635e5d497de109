package usecase

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biberdw/zeobase-account/internal/app/core/adapter/out/memory"
	"github.com/biberdw/zeobase-account/internal/app/core/domain"
)

func newAccountFixture(t *testing.T) (*memory.Store, *AccountUseCase) {
	t.Helper()
	store, err := memory.NewStore(nil)
	require.NoError(t, err)
	return store, NewAccountUseCase(store, store, nil, nil)
}

func TestCreateAccountFirstNumber(t *testing.T) {
	store, uc := newAccountFixture(t)
	require.NoError(t, store.PutUser(&domain.User{ID: 1, Name: "Pobi"}))

	result, err := uc.CreateAccount(context.Background(), 1, 1000)
	require.NoError(t, err)

	assert.Equal(t, "1000000000", result.AccountNumber)
	assert.Equal(t, int64(1), result.UserID)
	assert.Equal(t, int64(1000), result.Balance)
	assert.Nil(t, result.ClosedAt)
}

func TestCreateAccountSequentialNumbers(t *testing.T) {
	store, uc := newAccountFixture(t)
	require.NoError(t, store.PutUser(&domain.User{ID: 1}))
	ctx := context.Background()

	first, err := uc.CreateAccount(ctx, 1, 0)
	require.NoError(t, err)
	second, err := uc.CreateAccount(ctx, 1, 0)
	require.NoError(t, err)

	assert.Equal(t, "1000000000", first.AccountNumber)
	assert.Equal(t, "1000000001", second.AccountNumber)
}

func TestCreateAccountUserNotFound(t *testing.T) {
	_, uc := newAccountFixture(t)

	_, err := uc.CreateAccount(context.Background(), 1, 1000)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestCreateAccountLimit(t *testing.T) {
	store, uc := newAccountFixture(t)
	require.NoError(t, store.PutUser(&domain.User{ID: 1}))
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, err := uc.CreateAccount(ctx, 1, 0)
		require.NoError(t, err)
	}

	_, err := uc.CreateAccount(ctx, 1, 0)
	assert.ErrorIs(t, err, domain.ErrMaxAccountsPerUser)
}

func TestCloseAccount(t *testing.T) {
	store, uc := newAccountFixture(t)
	require.NoError(t, store.PutUser(&domain.User{ID: 1}))
	ctx := context.Background()

	created, err := uc.CreateAccount(ctx, 1, 0)
	require.NoError(t, err)

	result, err := uc.CloseAccount(ctx, 1, created.AccountNumber)
	require.NoError(t, err)
	require.NotNil(t, result.ClosedAt)

	account, err := store.FindByNumber(ctx, created.AccountNumber)
	require.NoError(t, err)
	assert.Equal(t, domain.AccountStatusClosed, account.Status)
}

func TestCloseAccountOwnershipMismatch(t *testing.T) {
	store, uc := newAccountFixture(t)
	require.NoError(t, store.PutUser(&domain.User{ID: 1}))
	require.NoError(t, store.PutUser(&domain.User{ID: 2}))
	ctx := context.Background()

	created, err := uc.CreateAccount(ctx, 1, 0)
	require.NoError(t, err)

	_, err = uc.CloseAccount(ctx, 2, created.AccountNumber)
	assert.ErrorIs(t, err, domain.ErrOwnershipMismatch)
}

func TestCloseAccountBalanceNotEmpty(t *testing.T) {
	store, uc := newAccountFixture(t)
	require.NoError(t, store.PutUser(&domain.User{ID: 1}))
	ctx := context.Background()

	created, err := uc.CreateAccount(ctx, 1, 100)
	require.NoError(t, err)

	_, err = uc.CloseAccount(ctx, 1, created.AccountNumber)
	assert.ErrorIs(t, err, domain.ErrBalanceNotEmpty)
}

func TestCloseAccountAlreadyClosed(t *testing.T) {
	store, uc := newAccountFixture(t)
	require.NoError(t, store.PutUser(&domain.User{ID: 1}))
	ctx := context.Background()

	created, err := uc.CreateAccount(ctx, 1, 0)
	require.NoError(t, err)
	_, err = uc.CloseAccount(ctx, 1, created.AccountNumber)
	require.NoError(t, err)

	_, err = uc.CloseAccount(ctx, 1, created.AccountNumber)
	assert.ErrorIs(t, err, domain.ErrAccountClosed)
}

func TestCloseAccountNotFound(t *testing.T) {
	store, uc := newAccountFixture(t)
	require.NoError(t, store.PutUser(&domain.User{ID: 1}))

	_, err := uc.CloseAccount(context.Background(), 1, "0000000000")
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestListAccounts(t *testing.T) {
	store, uc := newAccountFixture(t)
	require.NoError(t, store.PutUser(&domain.User{ID: 1}))
	require.NoError(t, store.PutUser(&domain.User{ID: 2}))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := uc.CreateAccount(ctx, 1, int64(1000*(i+1)))
		require.NoError(t, err)
	}
	_, err := uc.CreateAccount(ctx, 2, 42)
	require.NoError(t, err)

	results, err := uc.ListAccounts(ctx, 1)
	require.NoError(t, err)
	require.Len(t, results, 3)
	for i, result := range results {
		assert.Equal(t, fmt.Sprintf("100000000%d", i), result.AccountNumber)
		assert.Equal(t, int64(1000*(i+1)), result.Balance)
	}
}

func TestListAccountsUserNotFound(t *testing.T) {
	_, uc := newAccountFixture(t)

	_, err := uc.ListAccounts(context.Background(), 1)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

// Concurrent creates must each get their own number: issuance is
// read-then-save, so without serialization two creates can read the same
// last number and the second silently overwrites the first account.
func TestCreateAccountConcurrent(t *testing.T) {
	store, uc := newAccountFixture(t)
	ctx := context.Background()

	const workers = 16
	for i := 1; i <= workers; i++ {
		require.NoError(t, store.PutUser(&domain.User{ID: int64(i)}))
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	numbers := make(map[string]int64)

	for i := 1; i <= workers; i++ {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			result, err := uc.CreateAccount(ctx, userID, 1000)
			if assert.NoError(t, err) {
				mu.Lock()
				numbers[result.AccountNumber] = userID
				mu.Unlock()
			}
		}(int64(i))
	}
	wg.Wait()

	// Every create got a distinct number and every account survived.
	require.Len(t, numbers, workers)
	for number, userID := range numbers {
		account, err := store.FindByNumber(ctx, number)
		require.NoError(t, err)
		assert.Equal(t, userID, account.UserID)
		assert.Equal(t, int64(1000), account.Balance)
	}
}

// A close racing a cancel on the same account must serialize: whichever
// commits second sees the other's state and fails its validation, so a
// CLOSED account can never be resurrected by a stale write.
func TestCloseAccountDuringCancel(t *testing.T) {
	store, err := memory.NewStore(nil)
	require.NoError(t, err)
	locks := NewAccountLocks()
	transactions := NewTransactionUseCase(store, store, store, locks, nil)
	accounts := NewAccountUseCase(store, store, locks, nil)
	require.NoError(t, store.PutUser(&domain.User{ID: 1}))
	ctx := context.Background()

	created, err := accounts.CreateAccount(ctx, 1, 1000)
	require.NoError(t, err)
	use, err := transactions.UseBalance(ctx, 1, created.AccountNumber, 1000)
	require.NoError(t, err)

	var wg sync.WaitGroup
	var cancelErr, closeErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, cancelErr = transactions.CancelBalance(ctx, use.TransactionID, created.AccountNumber, 1000)
	}()
	go func() {
		defer wg.Done()
		_, closeErr = accounts.CloseAccount(ctx, 1, created.AccountNumber)
	}()
	wg.Wait()

	account, err := store.FindByNumber(ctx, created.AccountNumber)
	require.NoError(t, err)

	switch {
	case cancelErr == nil:
		// Cancel won: the credited balance blocks the close.
		assert.ErrorIs(t, closeErr, domain.ErrBalanceNotEmpty)
		assert.Equal(t, domain.AccountStatusActive, account.Status)
		assert.Equal(t, int64(1000), account.Balance)
		assert.Nil(t, account.ClosedAt)
	case closeErr == nil:
		// Close won: a closed account's balance is immutable.
		assert.ErrorIs(t, cancelErr, domain.ErrAccountClosed)
		assert.Equal(t, domain.AccountStatusClosed, account.Status)
		assert.Equal(t, int64(0), account.Balance)
		assert.NotNil(t, account.ClosedAt)
	default:
		t.Fatalf("both operations failed: cancel=%v close=%v", cancelErr, closeErr)
	}
}

// Clock injection sanity: CloseAccount stamps ClosedAt with the usecase
// clock, not the store's.
func TestCloseAccountTimestamp(t *testing.T) {
	store, uc := newAccountFixture(t)
	require.NoError(t, store.PutUser(&domain.User{ID: 1}))
	frozen := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
	uc.now = func() time.Time { return frozen }
	ctx := context.Background()

	created, err := uc.CreateAccount(ctx, 1, 0)
	require.NoError(t, err)

	result, err := uc.CloseAccount(ctx, 1, created.AccountNumber)
	require.NoError(t, err)
	require.NotNil(t, result.ClosedAt)
	assert.True(t, result.ClosedAt.Equal(frozen))
}
