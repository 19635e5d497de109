package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biberdw/zeobase-account/internal/app/core/adapter/out/memory"
	"github.com/biberdw/zeobase-account/internal/app/core/domain"
	"github.com/biberdw/zeobase-account/internal/app/core/usecase"
)

func newTestApp(t *testing.T) (*fiber.App, *memory.Store) {
	t.Helper()

	store, err := memory.NewStore(nil)
	require.NoError(t, err)
	require.NoError(t, store.PutUser(&domain.User{ID: 1, Name: "Pobi", RegisteredAt: time.Now()}))

	locks := usecase.NewAccountLocks()
	transactions := usecase.NewTransactionUseCase(store, store, store, locks, nil)
	accounts := usecase.NewAccountUseCase(store, store, locks, nil)

	app := fiber.New()
	NewHandler(transactions, accounts).Register(app)
	return app, store
}

func postJSON(t *testing.T, app *fiber.App, path string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeJSON[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var v T
	require.NoError(t, json.Unmarshal(raw, &v), string(raw))
	return v
}

func seedAccount(t *testing.T, store *memory.Store, balance int64) string {
	t.Helper()
	account := &domain.Account{
		UserID:        1,
		AccountNumber: "1000000000",
		Status:        domain.AccountStatusActive,
		Balance:       balance,
		RegisteredAt:  time.Now(),
	}
	require.NoError(t, store.Save(context.Background(), account))
	return account.AccountNumber
}

func TestUseBalanceEndpoint(t *testing.T) {
	app, store := newTestApp(t)
	number := seedAccount(t, store, 10000)

	resp := postJSON(t, app, "/v1/transaction/use", useRequest{
		UserID: 1, AccountNumber: number, Amount: 1000,
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeJSON[transactionResponse](t, resp)
	assert.Equal(t, number, body.AccountNumber)
	assert.Equal(t, "USE", body.Type)
	assert.Equal(t, "SUCCESS", body.Result)
	assert.Equal(t, int64(1000), body.Amount)
	assert.Equal(t, int64(9000), body.BalanceSnapshot)
	assert.NotEmpty(t, body.TransactionID)
}

func TestUseBalanceEndpointUserNotFound(t *testing.T) {
	app, store := newTestApp(t)
	number := seedAccount(t, store, 10000)

	resp := postJSON(t, app, "/v1/transaction/use", useRequest{
		UserID: 42, AccountNumber: number, Amount: 1000,
	})
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestUseBalanceEndpointInsufficient(t *testing.T) {
	app, store := newTestApp(t)
	number := seedAccount(t, store, 100)

	resp := postJSON(t, app, "/v1/transaction/use", useRequest{
		UserID: 1, AccountNumber: number, Amount: 1000,
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestCancelBalanceEndpoint(t *testing.T) {
	app, store := newTestApp(t)
	number := seedAccount(t, store, 10000)

	use := decodeJSON[transactionResponse](t, postJSON(t, app, "/v1/transaction/use", useRequest{
		UserID: 1, AccountNumber: number, Amount: 1000,
	}))

	resp := postJSON(t, app, "/v1/transaction/cancel", cancelRequest{
		TransactionID: use.TransactionID, AccountNumber: number, Amount: 1000,
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeJSON[transactionResponse](t, resp)
	assert.Equal(t, "CANCEL", body.Type)
	assert.Equal(t, int64(10000), body.BalanceSnapshot)

	// A second cancel of the same transaction is a conflict.
	resp = postJSON(t, app, "/v1/transaction/cancel", cancelRequest{
		TransactionID: use.TransactionID, AccountNumber: number, Amount: 1000,
	})
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestCancelBalanceEndpointNotFound(t *testing.T) {
	app, store := newTestApp(t)
	number := seedAccount(t, store, 10000)

	resp := postJSON(t, app, "/v1/transaction/cancel", cancelRequest{
		TransactionID: "missing", AccountNumber: number, Amount: 1000,
	})
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestSaveFailedUseEndpoint(t *testing.T) {
	app, store := newTestApp(t)
	number := seedAccount(t, store, 100)

	resp := postJSON(t, app, "/v1/transaction/use/failure", failureRequest{
		AccountNumber: number, Amount: 1000,
	})
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	// Failure recording never touches the balance.
	account, err := store.FindByNumber(context.Background(), number)
	require.NoError(t, err)
	assert.Equal(t, int64(100), account.Balance)
}

func TestSaveFailedCancelEndpoint(t *testing.T) {
	app, store := newTestApp(t)
	number := seedAccount(t, store, 100)

	resp := postJSON(t, app, "/v1/transaction/cancel/failure", failureRequest{
		AccountNumber: number, Amount: 1000,
	})
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
}

func TestQueryTransactionEndpoint(t *testing.T) {
	app, store := newTestApp(t)
	number := seedAccount(t, store, 10000)

	use := decodeJSON[transactionResponse](t, postJSON(t, app, "/v1/transaction/use", useRequest{
		UserID: 1, AccountNumber: number, Amount: 1000,
	}))

	req, err := http.NewRequest(http.MethodGet, "/v1/transaction/"+use.TransactionID, nil)
	require.NoError(t, err)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeJSON[transactionResponse](t, resp)
	assert.Equal(t, use.TransactionID, body.TransactionID)
	assert.Equal(t, int64(1000), body.Amount)
}

func TestQueryTransactionEndpointNotFound(t *testing.T) {
	app, _ := newTestApp(t)

	req, err := http.NewRequest(http.MethodGet, "/v1/transaction/missing", nil)
	require.NoError(t, err)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestCreateAccountEndpoint(t *testing.T) {
	app, _ := newTestApp(t)

	resp := postJSON(t, app, "/v1/accounts", createAccountRequest{UserID: 1, InitialBalance: 5000})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	body := decodeJSON[accountResponse](t, resp)
	assert.Equal(t, "1000000000", body.AccountNumber)
	assert.Equal(t, int64(5000), body.Balance)
	assert.Nil(t, body.ClosedAt)
}

func TestCloseAccountEndpoint(t *testing.T) {
	app, store := newTestApp(t)
	number := seedAccount(t, store, 0)

	req, err := http.NewRequest(http.MethodDelete, "/v1/accounts",
		bytes.NewReader(mustJSON(t, closeAccountRequest{UserID: 1, AccountNumber: number})))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeJSON[accountResponse](t, resp)
	require.NotNil(t, body.ClosedAt)
}

func TestListAccountsEndpoint(t *testing.T) {
	app, _ := newTestApp(t)

	for i := 0; i < 2; i++ {
		resp := postJSON(t, app, "/v1/accounts", createAccountRequest{UserID: 1})
		require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	}

	req, err := http.NewRequest(http.MethodGet, "/v1/accounts?user_id=1", nil)
	require.NoError(t, err)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	accounts := decodeJSON[[]accountResponse](t, resp)
	require.Len(t, accounts, 2)
	assert.Equal(t, "1000000000", accounts[0].AccountNumber)
	assert.Equal(t, "1000000001", accounts[1].AccountNumber)
}

func TestListAccountsEndpointMissingUser(t *testing.T) {
	app, _ := newTestApp(t)

	req, err := http.NewRequest(http.MethodGet, "/v1/accounts", nil)
	require.NoError(t, err)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestUseBalanceEndpointBadBody(t *testing.T) {
	app, _ := newTestApp(t)

	req, err := http.NewRequest(http.MethodPost, "/v1/transaction/use", bytes.NewReader([]byte("{")))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}
