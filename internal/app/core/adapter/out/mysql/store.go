package mysql

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/biberdw/zeobase-account/internal/app/core/domain"
	"github.com/biberdw/zeobase-account/internal/app/core/usecase"
	"github.com/biberdw/zeobase-account/pkg/mysql"
)

// sqlUser maps the users table.
type sqlUser struct {
	ID           int64 `gorm:"primaryKey"`
	Name         string
	RegisteredAt time.Time `gorm:"autoCreateTime"`
}

func (*sqlUser) TableName() string { return "users" }

// sqlAccount maps the accounts table.
type sqlAccount struct {
	ID            int64  `gorm:"primaryKey;autoIncrement"`
	UserID        int64  `gorm:"index"`
	AccountNumber string `gorm:"type:varchar(16);uniqueIndex"`
	Status        string `gorm:"type:varchar(8)"`
	Balance       int64
	RegisteredAt  time.Time
	ClosedAt      *time.Time
}

func (*sqlAccount) TableName() string { return "accounts" }

// sqlTransaction maps the transactions table. original_id carries a unique
// index: NULLs (USE records, failed cancels) repeat freely, but two
// successful cancels of the same use collide and the second insert fails.
type sqlTransaction struct {
	ID              int64   `gorm:"primaryKey;autoIncrement"`
	TranID          string  `gorm:"column:tran_id;type:varchar(32);uniqueIndex"`
	Type            string  `gorm:"type:varchar(8)"`
	Result          string  `gorm:"type:varchar(8)"`
	AccountID       int64   `gorm:"index"`
	AccountNumber   string  `gorm:"type:varchar(16)"`
	Amount          int64
	BalanceSnapshot int64
	OriginalID      *string `gorm:"column:original_id;type:varchar(32);uniqueIndex"`
	TransactedAt    time.Time
}

func (*sqlTransaction) TableName() string { return "transactions" }

// Store is the MySQL implementation of the directory and store ports.
type Store struct {
	client *mysql.Client
}

// NewStore migrates the schema and returns the store.
func NewStore(client *mysql.Client) (*Store, error) {
	if err := client.DB().AutoMigrate(&sqlUser{}, &sqlAccount{}, &sqlTransaction{}); err != nil {
		return nil, err
	}
	return &Store{client: client}, nil
}

// PutUser registers a user, for seeding.
func (s *Store) PutUser(ctx context.Context, user *domain.User) error {
	row := sqlUser{ID: user.ID, Name: user.Name}
	return s.client.DB().WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row).Error
}

// FindUser implements usecase.UserDirectory.
func (s *Store) FindUser(ctx context.Context, userID int64) (*domain.User, error) {
	var row sqlUser
	err := s.client.DB().WithContext(ctx).First(&row, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &domain.User{ID: row.ID, Name: row.Name, RegisteredAt: row.RegisteredAt}, nil
}

// FindByNumber implements usecase.AccountDirectory.
func (s *Store) FindByNumber(ctx context.Context, accountNumber string) (*domain.Account, error) {
	var row sqlAccount
	err := s.client.DB().WithContext(ctx).First(&row, "account_number = ?", accountNumber).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return accountFromRow(&row), nil
}

// FindByUser implements usecase.AccountDirectory.
func (s *Store) FindByUser(ctx context.Context, userID int64) ([]*domain.Account, error) {
	var rows []sqlAccount
	err := s.client.DB().WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	accounts := make([]*domain.Account, 0, len(rows))
	for i := range rows {
		accounts = append(accounts, accountFromRow(&rows[i]))
	}
	return accounts, nil
}

// CountByUser implements usecase.AccountDirectory.
func (s *Store) CountByUser(ctx context.Context, userID int64) (int, error) {
	var count int64
	err := s.client.DB().WithContext(ctx).
		Model(&sqlAccount{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return int(count), err
}

// LastAccountNumber implements usecase.AccountDirectory.
func (s *Store) LastAccountNumber(ctx context.Context) (string, error) {
	var row sqlAccount
	err := s.client.DB().WithContext(ctx).Order("id DESC").First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return row.AccountNumber, nil
}

// Save implements usecase.AccountDirectory. The unique index on
// account_number turns a double-issued number into an error instead of a
// silent overwrite.
func (s *Store) Save(ctx context.Context, account *domain.Account) error {
	row := rowFromAccount(account)
	if err := s.client.DB().WithContext(ctx).Save(row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ErrDuplicateAccountNumber
		}
		return err
	}
	account.ID = row.ID
	return nil
}

// Append implements usecase.TransactionStore. Record and account state are
// committed in one database transaction; the account row is locked FOR
// UPDATE so a concurrent writer in another process observes the new balance.
func (s *Store) Append(ctx context.Context, tran *domain.Transaction, account *domain.Account) error {
	return s.client.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if account != nil {
			var locked sqlAccount
			err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				First(&locked, "id = ?", account.ID).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrAccountNotFound
			}
			if err != nil {
				return err
			}
		}

		row := rowFromTransaction(tran)
		if err := tx.Create(row).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) && row.OriginalID != nil {
				return domain.ErrTransactionAlreadyCanceled
			}
			return err
		}

		if account != nil {
			if err := tx.Save(rowFromAccount(account)).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// FindByID implements usecase.TransactionStore.
func (s *Store) FindByID(ctx context.Context, tranID string) (*domain.Transaction, error) {
	var row sqlTransaction
	err := s.client.DB().WithContext(ctx).First(&row, "tran_id = ?", tranID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrTransactionNotFound
	}
	if err != nil {
		return nil, err
	}
	return transactionFromRow(&row), nil
}

// HasCancelOf implements usecase.TransactionStore.
func (s *Store) HasCancelOf(ctx context.Context, originalID string) (bool, error) {
	var count int64
	err := s.client.DB().WithContext(ctx).
		Model(&sqlTransaction{}).
		Where("original_id = ?", originalID).
		Count(&count).Error
	return count > 0, err
}

func accountFromRow(row *sqlAccount) *domain.Account {
	return &domain.Account{
		ID:            row.ID,
		UserID:        row.UserID,
		AccountNumber: row.AccountNumber,
		Status:        domain.AccountStatus(row.Status),
		Balance:       row.Balance,
		RegisteredAt:  row.RegisteredAt,
		ClosedAt:      row.ClosedAt,
	}
}

func rowFromAccount(account *domain.Account) *sqlAccount {
	return &sqlAccount{
		ID:            account.ID,
		UserID:        account.UserID,
		AccountNumber: account.AccountNumber,
		Status:        string(account.Status),
		Balance:       account.Balance,
		RegisteredAt:  account.RegisteredAt,
		ClosedAt:      account.ClosedAt,
	}
}

func rowFromTransaction(tran *domain.Transaction) *sqlTransaction {
	row := &sqlTransaction{
		TranID:          tran.ID,
		Type:            string(tran.Type),
		Result:          string(tran.Result),
		AccountID:       tran.AccountID,
		AccountNumber:   tran.AccountNumber,
		Amount:          tran.Amount,
		BalanceSnapshot: tran.BalanceSnapshot,
		TransactedAt:    tran.TransactedAt,
	}
	if tran.OriginalID != "" {
		originalID := tran.OriginalID
		row.OriginalID = &originalID
	}
	return row
}

func transactionFromRow(row *sqlTransaction) *domain.Transaction {
	tran := &domain.Transaction{
		ID:              row.TranID,
		Type:            domain.TransactionType(row.Type),
		Result:          domain.ResultType(row.Result),
		AccountID:       row.AccountID,
		AccountNumber:   row.AccountNumber,
		Amount:          row.Amount,
		BalanceSnapshot: row.BalanceSnapshot,
		TransactedAt:    row.TransactedAt,
	}
	if row.OriginalID != nil {
		tran.OriginalID = *row.OriginalID
	}
	return tran
}

var (
	_ usecase.UserDirectory    = (*Store)(nil)
	_ usecase.AccountDirectory = (*Store)(nil)
	_ usecase.TransactionStore = (*Store)(nil)
)
