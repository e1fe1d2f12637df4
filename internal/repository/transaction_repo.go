// Package repository contains the repository layer for the Finance API
package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/nsvirk/financeapi/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UncategorizedExpenseType labels withdrawals whose MCC has no bucket
const UncategorizedExpenseType = "Uncategorized"

// TransactionRepository stores ingested transactions and runs the reports over them
type TransactionRepository struct {
	DB *gorm.DB
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{DB: db}
}

// InsertIfAbsent inserts the transaction unless its id is already stored.
// Returns true when a row was written.
func (r *TransactionRepository) InsertIfAbsent(ctx context.Context, txn *models.Transaction) (bool, error) {
	result := r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "transaction_id"}},
		DoNothing: true,
	}).Create(txn)
	if result.Error != nil {
		return false, fmt.Errorf("failed to insert transaction %s: %v", txn.TransactionID, result.Error)
	}
	return result.RowsAffected == 1, nil
}

// GetTransactionsByAccount gets all transactions of an account, newest first
func (r *TransactionRepository) GetTransactionsByAccount(ctx context.Context, accountID string) ([]models.Transaction, error) {
	var transactions []models.Transaction
	err := r.DB.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("transaction_date DESC").
		Order("transaction_id").
		Find(&transactions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions: %v", err)
	}
	return transactions, nil
}

// amountRow is one scanned (db_cr, amount) pair
type amountRow struct {
	DbCr   models.DbCr
	Amount decimal.Decimal
}

// scanAmounts runs a query selecting a label, db_cr and amount and hands each row
// to fn. Totals are added in decimal, SQLite keeps numeric columns as REAL.
func (r *TransactionRepository) scanAmounts(ctx context.Context, fn func(label string, row amountRow), query string, args ...interface{}) error {
	rows, err := r.DB.WithContext(ctx).Raw(query, args...).Rows()
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			label string
			row   amountRow
		)
		if err := rows.Scan(&label, &row.DbCr, &row.Amount); err != nil {
			return err
		}
		row.Amount = row.Amount.Round(2)
		fn(label, row)
	}
	return rows.Err()
}

// GetSummary sums deposits and withdrawals of an account in [start, end).
// Returns the number of matching rows alongside the totals.
func (r *TransactionRepository) GetSummary(ctx context.Context, accountID string, start, end time.Time) (int64, decimal.Decimal, decimal.Decimal, error) {
	var (
		count    int64
		income   = decimal.Zero
		expenses = decimal.Zero
	)
	err := r.scanAmounts(ctx, func(_ string, row amountRow) {
		count++
		switch row.DbCr {
		case models.Deposit:
			income = income.Add(row.Amount)
		case models.Withdrawal:
			expenses = expenses.Add(row.Amount)
		}
	}, `
		SELECT '' AS label, db_cr, amount
		FROM client_transactions
		WHERE account_id = ? AND transaction_date >= ? AND transaction_date < ?`,
		accountID, start, end,
	)
	if err != nil {
		return 0, decimal.Zero, decimal.Zero, fmt.Errorf("failed to get summary: %v", err)
	}
	return count, income, expenses, nil
}

// GetSpendingByCategory sums withdrawals of an account in [start, end) per expense type,
// resolving mcc_code -> budget bucket -> expense type
func (r *TransactionRepository) GetSpendingByCategory(ctx context.Context, accountID string, start, end time.Time) ([]models.CategorySpend, error) {
	totals := map[string]decimal.Decimal{}
	err := r.scanAmounts(ctx, func(expenseType string, row amountRow) {
		totals[expenseType] = totals[expenseType].Add(row.Amount)
	}, `
		SELECT COALESCE(bb.expense_type, ?) AS expense_type, ct.db_cr, ct.amount
		FROM client_transactions AS ct
		LEFT JOIN mcc_codes AS mc ON ct.mcc_code = mc.mcc
		LEFT JOIN budget_buckets AS bb ON mc.budget_bucket_code = bb.budget_bucket_code
		WHERE ct.account_id = ? AND ct.db_cr = ? AND ct.transaction_date >= ? AND ct.transaction_date < ?`,
		UncategorizedExpenseType, accountID, models.Withdrawal, start, end,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get spending by category: %v", err)
	}

	rows := make([]models.CategorySpend, 0, len(totals))
	for expenseType, total := range totals {
		rows = append(rows, models.CategorySpend{ExpenseType: expenseType, TotalAmount: total})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ExpenseType < rows[j].ExpenseType })
	return rows, nil
}

// GetBalance returns deposits minus withdrawals over the whole history of an account
func (r *TransactionRepository) GetBalance(ctx context.Context, accountID string) (decimal.Decimal, error) {
	balance := decimal.Zero
	err := r.scanAmounts(ctx, func(_ string, row amountRow) {
		if row.DbCr == models.Deposit {
			balance = balance.Add(row.Amount)
			return
		}
		balance = balance.Sub(row.Amount)
	}, `
		SELECT '' AS label, db_cr, amount
		FROM client_transactions
		WHERE account_id = ?`,
		accountID,
	)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get balance: %v", err)
	}
	return balance, nil
}

// CountIngestedSince counts transactions stored at or after since
func (r *TransactionRepository) CountIngestedSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&models.Transaction{}).
		Where("created_at >= ?", since).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count transactions: %v", err)
	}
	return count, nil
}
