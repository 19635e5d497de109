package http

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/biberdw/zeobase-account/internal/app/core/domain"
	"github.com/biberdw/zeobase-account/internal/app/core/usecase"
)

var (
	opsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "account_operations_total",
		Help: "Balance and account operations by outcome",
	}, []string{"op", "outcome"})

	opsLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "account_operation_duration_seconds",
		Help:    "Operation latency",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	}, []string{"op"})
)

// Handler exposes the use cases over HTTP. It is a thin adapter: request
// decoding, error-to-status mapping and metrics, nothing else.
type Handler struct {
	transactions *usecase.TransactionUseCase
	accounts     *usecase.AccountUseCase
}

func NewHandler(transactions *usecase.TransactionUseCase, accounts *usecase.AccountUseCase) *Handler {
	return &Handler{transactions: transactions, accounts: accounts}
}

// Register mounts all routes under /v1.
func (h *Handler) Register(app *fiber.App) {
	v1 := app.Group("/v1")

	v1.Post("/transaction/use", h.UseBalance)
	v1.Post("/transaction/use/failure", h.SaveFailedUse)
	v1.Post("/transaction/cancel", h.CancelBalance)
	v1.Post("/transaction/cancel/failure", h.SaveFailedCancel)
	v1.Get("/transaction/:id", h.QueryTransaction)

	v1.Post("/accounts", h.CreateAccount)
	v1.Delete("/accounts", h.CloseAccount)
	v1.Get("/accounts", h.ListAccounts)
}

type useRequest struct {
	UserID        int64  `json:"user_id"`
	AccountNumber string `json:"account_number"`
	Amount        int64  `json:"amount"`
}

type cancelRequest struct {
	TransactionID string `json:"transaction_id"`
	AccountNumber string `json:"account_number"`
	Amount        int64  `json:"amount"`
}

type failureRequest struct {
	AccountNumber string `json:"account_number"`
	Amount        int64  `json:"amount"`
}

type transactionResponse struct {
	TransactionID   string    `json:"transaction_id"`
	AccountNumber   string    `json:"account_number"`
	Type            string    `json:"transaction_type"`
	Result          string    `json:"transaction_result"`
	Amount          int64     `json:"amount"`
	BalanceSnapshot int64     `json:"balance_snapshot"`
	TransactedAt    time.Time `json:"transacted_at"`
}

type createAccountRequest struct {
	UserID         int64 `json:"user_id"`
	InitialBalance int64 `json:"initial_balance"`
}

type closeAccountRequest struct {
	UserID        int64  `json:"user_id"`
	AccountNumber string `json:"account_number"`
}

type accountResponse struct {
	UserID        int64      `json:"user_id"`
	AccountNumber string     `json:"account_number"`
	Balance       int64      `json:"balance"`
	RegisteredAt  time.Time  `json:"registered_at"`
	ClosedAt      *time.Time `json:"closed_at,omitempty"`
}

func (h *Handler) UseBalance(c *fiber.Ctx) error {
	timer := prometheus.NewTimer(opsLatency.WithLabelValues("use"))
	defer timer.ObserveDuration()

	var req useRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	result, err := h.transactions.UseBalance(c.Context(), req.UserID, req.AccountNumber, req.Amount)
	if err != nil {
		opsTotal.WithLabelValues("use", "error").Inc()
		return respondError(c, err)
	}
	opsTotal.WithLabelValues("use", "ok").Inc()
	return c.JSON(transactionResponseOf(result))
}

func (h *Handler) SaveFailedUse(c *fiber.Ctx) error {
	var req failureRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if err := h.transactions.SaveFailedUse(c.Context(), req.AccountNumber, req.Amount); err != nil {
		opsTotal.WithLabelValues("use_failure", "error").Inc()
		return respondError(c, err)
	}
	opsTotal.WithLabelValues("use_failure", "ok").Inc()
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) CancelBalance(c *fiber.Ctx) error {
	timer := prometheus.NewTimer(opsLatency.WithLabelValues("cancel"))
	defer timer.ObserveDuration()

	var req cancelRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	result, err := h.transactions.CancelBalance(c.Context(), req.TransactionID, req.AccountNumber, req.Amount)
	if err != nil {
		opsTotal.WithLabelValues("cancel", "error").Inc()
		return respondError(c, err)
	}
	opsTotal.WithLabelValues("cancel", "ok").Inc()
	return c.JSON(transactionResponseOf(result))
}

func (h *Handler) SaveFailedCancel(c *fiber.Ctx) error {
	var req failureRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if err := h.transactions.SaveFailedCancel(c.Context(), req.AccountNumber, req.Amount); err != nil {
		opsTotal.WithLabelValues("cancel_failure", "error").Inc()
		return respondError(c, err)
	}
	opsTotal.WithLabelValues("cancel_failure", "ok").Inc()
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) QueryTransaction(c *fiber.Ctx) error {
	result, err := h.transactions.QueryTransaction(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(transactionResponseOf(result))
}

func (h *Handler) CreateAccount(c *fiber.Ctx) error {
	var req createAccountRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	result, err := h.accounts.CreateAccount(c.Context(), req.UserID, req.InitialBalance)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(accountResponseOf(result))
}

func (h *Handler) CloseAccount(c *fiber.Ctx) error {
	var req closeAccountRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	result, err := h.accounts.CloseAccount(c.Context(), req.UserID, req.AccountNumber)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(accountResponseOf(result))
}

func (h *Handler) ListAccounts(c *fiber.Ctx) error {
	userID := int64(c.QueryInt("user_id"))
	if userID == 0 {
		return badRequest(c, "user_id is required")
	}
	results, err := h.accounts.ListAccounts(c.Context(), userID)
	if err != nil {
		return respondError(c, err)
	}
	responses := make([]accountResponse, 0, len(results))
	for i := range results {
		responses = append(responses, *accountResponseOf(&results[i]))
	}
	return c.JSON(responses)
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}

func respondError(c *fiber.Ctx, err error) error {
	return c.Status(statusOf(err)).JSON(fiber.Map{"error": err.Error()})
}

// statusOf maps domain errors onto HTTP statuses. Anything unrecognized is a
// 500: the core only returns typed errors, so an unknown one is a collaborator
// failure.
func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrAccountNotFound),
		errors.Is(err, domain.ErrTransactionNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, domain.ErrTransactionAlreadyCanceled):
		return fiber.StatusConflict
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInsufficientBalance),
		errors.Is(err, domain.ErrOwnershipMismatch),
		errors.Is(err, domain.ErrAccountClosed),
		errors.Is(err, domain.ErrBalanceNotEmpty),
		errors.Is(err, domain.ErrMaxAccountsPerUser),
		errors.Is(err, domain.ErrTransactionAccountMismatch),
		errors.Is(err, domain.ErrTransactionNotCancelable),
		errors.Is(err, domain.ErrPartialCancelNotAllowed),
		errors.Is(err, domain.ErrCancelWindowExpired):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

func transactionResponseOf(result *usecase.TransactionResult) *transactionResponse {
	return &transactionResponse{
		TransactionID:   result.TransactionID,
		AccountNumber:   result.AccountNumber,
		Type:            string(result.Type),
		Result:          string(result.Result),
		Amount:          result.Amount,
		BalanceSnapshot: result.BalanceSnapshot,
		TransactedAt:    result.TransactedAt,
	}
}

func accountResponseOf(result *usecase.AccountResult) *accountResponse {
	return &accountResponse{
		UserID:        result.UserID,
		AccountNumber: result.AccountNumber,
		Balance:       result.Balance,
		RegisteredAt:  result.RegisteredAt,
		ClosedAt:      result.ClosedAt,
	}
}
