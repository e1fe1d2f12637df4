// Package models contains the models for the Finance API
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Reference and budget table names
var (
	BudgetBucketsTableName  = "budget_buckets"
	MccCodesTableName       = "mcc_codes"
	AccountBudgetsTableName = "account_budgets"
)

// BudgetBucket maps a bucket code to its expense-type label
type BudgetBucket struct {
	BudgetBucketCode string `gorm:"primaryKey;size:8" json:"budget_bucket_code"`
	ExpenseType      string `gorm:"not null" json:"expense_type"`
}

// TableName specifies the table name for the BudgetBucket model
func (BudgetBucket) TableName() string {
	return BudgetBucketsTableName
}

// MccCode maps a merchant category code to a budget bucket
type MccCode struct {
	Mcc              string `gorm:"primaryKey;size:4" json:"mcc"`
	Description      string `json:"description"`
	BudgetBucketCode string `gorm:"index;not null" json:"budget_bucket_code"`
}

// TableName specifies the table name for the MccCode model
func (MccCode) TableName() string {
	return MccCodesTableName
}

// AccountBudget is the planned spend of one account in one bucket for a month
type AccountBudget struct {
	AccountID        string          `gorm:"primaryKey" json:"account_id"`
	Year             int             `gorm:"primaryKey;autoIncrement:false" json:"year"`
	Month            int             `gorm:"primaryKey;autoIncrement:false" json:"month"`
	BudgetBucketCode string          `gorm:"primaryKey;size:8" json:"budget_bucket_code"`
	BudgetAmt        decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"budget_amt"`
	UpdatedAt        time.Time       `gorm:"autoUpdateTime" json:"-"`
}

// TableName specifies the table name for the AccountBudget model
func (AccountBudget) TableName() string {
	return AccountBudgetsTableName
}

// BudgetLine is one bucket of a budget upsert request
type BudgetLine struct {
	BudgetBucketCode string     `json:"budget_bucket_code" validate:"required"`
	BudgetAmt        FlexString `json:"budget_amt" validate:"required"`
}

// BudgetReport is a row of the monthly budget report
type BudgetReport struct {
	UserID           string          `json:"user_id"`
	FirstName        string          `json:"first_name"`
	LastName         string          `json:"last_name"`
	AccountID        string          `json:"account_id"`
	Year             int             `json:"year"`
	Month            int             `json:"month"`
	BudgetBucketCode string          `json:"budget_bucket_code"`
	ExpenseType      string          `json:"expense_type"`
	BudgetAmt        decimal.Decimal `json:"budget_amt"`
}
