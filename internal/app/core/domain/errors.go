package domain

import "errors"

var (
	// ErrInvalidAmount non-positive debit or negative credit
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInsufficientBalance debit exceeds balance
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrUserNotFound no such user
	ErrUserNotFound = errors.New("user not found")

	// ErrAccountNotFound no such account number
	ErrAccountNotFound = errors.New("account not found")

	// ErrDuplicateAccountNumber the number is already assigned to another account
	ErrDuplicateAccountNumber = errors.New("account number already in use")

	// ErrOwnershipMismatch user does not own the account
	ErrOwnershipMismatch = errors.New("user does not own account")

	// ErrAccountClosed account is closed and can no longer change
	ErrAccountClosed = errors.New("account is closed")

	// ErrBalanceNotEmpty closing requires a zero balance
	ErrBalanceNotEmpty = errors.New("balance must be zero to close account")

	// ErrMaxAccountsPerUser per-user account limit reached
	ErrMaxAccountsPerUser = errors.New("user already has the maximum number of accounts")

	// ErrTransactionNotFound no such transaction record
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrTransactionAlreadyCanceled the use was already reversed
	ErrTransactionAlreadyCanceled = errors.New("transaction already canceled")

	// ErrTransactionAccountMismatch record belongs to a different account
	ErrTransactionAccountMismatch = errors.New("transaction does not belong to account")

	// ErrTransactionNotCancelable only successful USE records can be canceled
	ErrTransactionNotCancelable = errors.New("transaction cannot be canceled")

	// ErrPartialCancelNotAllowed cancel amount must equal the original exactly
	ErrPartialCancelNotAllowed = errors.New("cancel amount must equal the original amount")

	// ErrCancelWindowExpired more than one year since the original use
	ErrCancelWindowExpired = errors.New("transaction is too old to cancel")
)
