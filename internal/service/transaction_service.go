// Package service contains the service layer for the Finance API
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nsvirk/financeapi/internal/apperror"
	"github.com/nsvirk/financeapi/internal/models"
	"github.com/nsvirk/financeapi/internal/repository"
	"github.com/nsvirk/financeapi/pkg/utils/zaplogger"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TransactionsChannel is the Postgres NOTIFY channel and the Redis channel for fresh inserts
var TransactionsChannel = "CH:API:TRANSACTIONS:NEW"

// TransactionNotifier announces freshly inserted transactions
type TransactionNotifier interface {
	NotifyTransaction(ctx context.Context, txn *models.Transaction) error
}

// TransactionService validates and stores webhook transaction events
type TransactionService struct {
	users        *repository.UserRepository
	transactions *repository.TransactionRepository
	notifier     TransactionNotifier
}

// NewTransactionService creates a new transaction service, notifier may be nil
func NewTransactionService(db *gorm.DB, notifier TransactionNotifier) *TransactionService {
	return &TransactionService{
		users:        repository.NewUserRepository(db),
		transactions: repository.NewTransactionRepository(db),
		notifier:     notifier,
	}
}

// Ingest stores a transaction event. Redelivery of a stored transaction_id is not an error.
// expected restricts db_cr when not empty.
func (s *TransactionService) Ingest(ctx context.Context, event models.TransactionEvent, expected models.DbCr) (*models.IngestResult, error) {
	txn, err := ParseTransactionEvent(event)
	if err != nil {
		transactionsIngestedTotal.WithLabelValues(string(expected), "rejected").Inc()
		return nil, err
	}
	if expected != "" && txn.DbCr != expected {
		transactionsIngestedTotal.WithLabelValues(string(expected), "rejected").Inc()
		return nil, apperror.Validation("db_cr must be %s on this endpoint", expected)
	}

	owner, err := s.users.GetUserByBankAccount(ctx, txn.AccountID)
	if errors.Is(err, repository.ErrUserNotFound) {
		transactionsIngestedTotal.WithLabelValues(string(txn.DbCr), "unknown_account").Inc()
		zaplogger.Warn("transaction dropped, unknown account", zaplogger.Fields{
			"transaction_id": txn.TransactionID,
			"account_id":     zaplogger.Mask(txn.AccountID),
		})
		return nil, apperror.NotFound("account %s not found", txn.AccountID)
	}
	if err != nil {
		return nil, apperror.Server("failed to look up account", err)
	}

	inserted, err := s.transactions.InsertIfAbsent(ctx, txn)
	if err != nil {
		return nil, apperror.Server("failed to store transaction", err)
	}

	outcome := "duplicate"
	if inserted {
		outcome = "inserted"
		if s.notifier != nil {
			if err := s.notifier.NotifyTransaction(ctx, txn); err != nil {
				zaplogger.Error("failed to notify transaction", zaplogger.Fields{
					"transaction_id": txn.TransactionID,
					"error":          err.Error(),
				})
			}
		}
	}
	transactionsIngestedTotal.WithLabelValues(string(txn.DbCr), outcome).Inc()
	zaplogger.Debug("transaction ingested", zaplogger.Fields{
		"transaction_id": txn.TransactionID,
		"db_cr":          txn.DbCr,
		"user_id":        owner.UserID,
		"outcome":        outcome,
	})

	return &models.IngestResult{TransactionID: txn.TransactionID, Inserted: inserted}, nil
}

// ParseTransactionEvent validates a webhook event and converts it to a Transaction
func ParseTransactionEvent(event models.TransactionEvent) (*models.Transaction, error) {
	required := []struct {
		name  string
		value string
	}{
		{"transaction_id", event.TransactionID.String()},
		{"transaction_date", strings.TrimSpace(event.TransactionDate)},
		{"mcc_code", event.MccCode.String()},
		{"transaction_amount", event.TransactionAmount.String()},
		{"db_cr", strings.TrimSpace(event.DbCr)},
		{"account_id", event.AccountID.String()},
	}
	var missing []string
	for _, field := range required {
		if field.value == "" {
			missing = append(missing, field.name)
		}
	}
	if len(missing) > 0 {
		return nil, apperror.Validation("missing required fields: %s", strings.Join(missing, ", "))
	}

	dbCr := models.DbCr(strings.ToUpper(strings.TrimSpace(event.DbCr)))
	if !dbCr.Valid() {
		return nil, apperror.Validation("db_cr must be %s or %s", models.Withdrawal, models.Deposit)
	}

	amount, err := decimal.NewFromString(event.TransactionAmount.String())
	if err != nil {
		return nil, apperror.Validation("transaction_amount is not a decimal number")
	}
	if amount.IsNegative() {
		return nil, apperror.Validation("transaction_amount must not be negative")
	}
	if amount.Exponent() < -2 && !amount.Equal(amount.Round(2)) {
		return nil, apperror.Validation("transaction_amount must have at most 2 decimal places")
	}

	date, err := ParseDate(event.TransactionDate)
	if err != nil {
		return nil, apperror.Validation("transaction_date must be YYYY-MM-DD or RFC3339")
	}

	return &models.Transaction{
		TransactionID:   event.TransactionID.String(),
		TransactionDate: date,
		MccCode:         event.MccCode.String(),
		Detail:          strings.TrimSpace(event.Detail),
		Amount:          amount.Round(2),
		MerchantName:    strings.TrimSpace(event.MerchantName),
		MerchantCity:    strings.TrimSpace(event.MerchantCity),
		MerchantState:   strings.TrimSpace(event.MerchantState),
		MerchantStreet:  strings.TrimSpace(event.MerchantStreet),
		MerchantZip:     event.MerchantZip.String(),
		DbCr:            dbCr,
		AccountID:       event.AccountID.String(),
	}, nil
}

// ParseDate accepts YYYY-MM-DD or RFC3339 and returns the instant in UTC
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.DateOnly, value); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", value)
	}
	return t.UTC(), nil
}

// transactionNotice is the payload published for a fresh insert
type transactionNotice struct {
	TransactionID   string          `json:"transaction_id"`
	AccountID       string          `json:"account_id"`
	DbCr            models.DbCr     `json:"db_cr"`
	Amount          decimal.Decimal `json:"amount"`
	TransactionDate time.Time       `json:"transaction_date"`
}

// PgNotifier announces inserts with pg_notify, PublishService relays them to Redis
type PgNotifier struct {
	db *gorm.DB
}

// NewPgNotifier creates a Postgres notifier
func NewPgNotifier(db *gorm.DB) *PgNotifier {
	return &PgNotifier{db: db}
}

// NotifyTransaction sends the transaction on TransactionsChannel
func (n *PgNotifier) NotifyTransaction(ctx context.Context, txn *models.Transaction) error {
	payload, err := json.Marshal(transactionNotice{
		TransactionID:   txn.TransactionID,
		AccountID:       txn.AccountID,
		DbCr:            txn.DbCr,
		Amount:          txn.Amount,
		TransactionDate: txn.TransactionDate,
	})
	if err != nil {
		return err
	}
	return n.db.WithContext(ctx).Exec("SELECT pg_notify(?, ?)", TransactionsChannel, string(payload)).Error
}
