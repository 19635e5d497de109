package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// TransactionType is the kind of balance operation.
type TransactionType string

const (
	TransactionTypeUse    TransactionType = "USE"
	TransactionTypeCancel TransactionType = "CANCEL"
)

// ResultType records whether the attempted operation went through.
type ResultType string

const (
	ResultTypeSuccess ResultType = "SUCCESS"
	ResultTypeFailed  ResultType = "FAILED"
)

// Transaction is one immutable audit record of a balance operation attempt.
// Records are append-only: never updated or deleted. Whether a use has been
// reversed is derived from the existence of a successful CANCEL record whose
// OriginalID points at it.
type Transaction struct {
	// ID is an opaque, globally unique token with no semantic encoding.
	ID     string
	Type   TransactionType
	Result ResultType
	// AccountID and AccountNumber reference the owning account; the record
	// never owns the account itself.
	AccountID     int64
	AccountNumber string
	Amount        int64
	// BalanceSnapshot is the account balance after this operation's effect,
	// or the unchanged balance for a FAILED record.
	BalanceSnapshot int64
	// OriginalID is set on successful CANCEL records and references the USE
	// being reversed. At most one successful CANCEL may reference a given use.
	OriginalID   string
	TransactedAt time.Time
}

// NewTransactionID returns a fresh record identifier.
func NewTransactionID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}
