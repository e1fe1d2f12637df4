// Package models contains the models for the Finance API
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionsTableName is the name of the table for ingested transactions
var TransactionsTableName = "client_transactions"

// DbCr is the direction of a transaction
type DbCr string

const (
	Withdrawal DbCr = "WITHDRAWAL"
	Deposit    DbCr = "DEPOSIT"
)

// Valid reports whether d is a known direction
func (d DbCr) Valid() bool {
	return d == Withdrawal || d == Deposit
}

// Transaction is a bank transaction pushed by the core-banking webhook.
// TransactionID is the idempotency key.
type Transaction struct {
	TransactionID   string          `gorm:"primaryKey" json:"transaction_id"`
	TransactionDate time.Time       `gorm:"index:idx_account_date,priority:2;not null" json:"transaction_date"`
	MccCode         string          `gorm:"index" json:"mcc_code"`
	Detail          string          `json:"detail"`
	Amount          decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"amount"`
	MerchantName    string          `json:"merchant_name"`
	MerchantCity    string          `json:"merchant_city"`
	MerchantState   string          `json:"merchant_state"`
	MerchantStreet  string          `json:"merchant_street"`
	MerchantZip     string          `json:"merchant_zip"`
	DbCr            DbCr            `gorm:"size:10;not null" json:"db_cr"`
	AccountID       string          `gorm:"index:idx_account_date,priority:1;not null" json:"account_id"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"-"`
}

// TableName specifies the table name for the Transaction model
func (Transaction) TableName() string {
	return TransactionsTableName
}

// TransactionEvent is the webhook payload. Amount is kept raw so it can be
// parsed as an exact decimal whether it arrives as a JSON string or number.
type TransactionEvent struct {
	TransactionID     FlexString `json:"transaction_id"`
	TransactionDate   string     `json:"transaction_date"`
	MccCode           FlexString `json:"mcc_code"`
	Detail            string     `json:"detail"`
	TransactionAmount FlexString `json:"transaction_amount"`
	MerchantName      string     `json:"merchant_name"`
	MerchantCity      string     `json:"merchant_city"`
	MerchantState     string     `json:"merchant_state"`
	MerchantStreet    string     `json:"merchant_street"`
	MerchantZip       FlexString `json:"merchant_zip"`
	DbCr              string     `json:"db_cr"`
	AccountID         FlexString `json:"account_id"`
}

// IngestResult is what the ingestion endpoint learned about an event
type IngestResult struct {
	TransactionID string `json:"transaction_id"`
	Inserted      bool   `json:"-"`
}

// TransactionSummary is the income/expense split of an account over a period
type TransactionSummary struct {
	AccountID     string          `json:"account_id"`
	StartDate     string          `json:"start_date"`
	EndDate       string          `json:"end_date"`
	TotalIncome   decimal.Decimal `json:"totalIncome"`
	TotalExpenses decimal.Decimal `json:"totalExpenses"`
	NetBalance    decimal.Decimal `json:"netBalance"`
}

// CategorySpend is the withdrawal total of one expense type
type CategorySpend struct {
	ExpenseType string          `json:"expense_type"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// SpendByType is a row of the per-user monthly spend report
type SpendByType struct {
	UserID      string          `json:"user_id"`
	FirstName   string          `json:"first_name"`
	LastName    string          `json:"last_name"`
	AccountID   string          `json:"account_id"`
	Year        int             `json:"year"`
	Month       int             `json:"month"`
	ExpenseType string          `json:"expense_type"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}
