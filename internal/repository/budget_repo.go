// Package repository contains the repository layer for the Finance API
package repository

import (
	"context"
	"fmt"

	"github.com/nsvirk/financeapi/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BudgetRepository stores the reference tables and the monthly account budgets
type BudgetRepository struct {
	DB *gorm.DB
}

// NewBudgetRepository creates a new budget repository
func NewBudgetRepository(db *gorm.DB) *BudgetRepository {
	return &BudgetRepository{DB: db}
}

// InsertBudgetBuckets inserts the buckets that are not stored yet
func (r *BudgetRepository) InsertBudgetBuckets(ctx context.Context, buckets []models.BudgetBucket) (int64, error) {
	if len(buckets) == 0 {
		return 0, nil
	}
	result := r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "budget_bucket_code"}},
		DoNothing: true,
	}).Create(&buckets)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to insert budget buckets: %v", result.Error)
	}
	return result.RowsAffected, nil
}

// InsertMccCodes inserts the MCC mappings that are not stored yet
func (r *BudgetRepository) InsertMccCodes(ctx context.Context, codes []models.MccCode) (int64, error) {
	if len(codes) == 0 {
		return 0, nil
	}
	result := r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "mcc"}},
		DoNothing: true,
	}).Create(&codes)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to insert mcc codes: %v", result.Error)
	}
	return result.RowsAffected, nil
}

// GetBudgetBucketCodes returns the set of known bucket codes
func (r *BudgetRepository) GetBudgetBucketCodes(ctx context.Context) (map[string]bool, error) {
	var codes []string
	err := r.DB.WithContext(ctx).Model(&models.BudgetBucket{}).
		Pluck("budget_bucket_code", &codes).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get budget buckets: %v", err)
	}
	known := make(map[string]bool, len(codes))
	for _, code := range codes {
		known[code] = true
	}
	return known, nil
}

// UpsertAccountBudgets writes the budgets in one transaction, replacing existing amounts
func (r *BudgetRepository) UpsertAccountBudgets(ctx context.Context, budgets []models.AccountBudget) error {
	if len(budgets) == 0 {
		return nil
	}
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "account_id"},
				{Name: "year"},
				{Name: "month"},
				{Name: "budget_bucket_code"},
			},
			DoUpdates: clause.AssignmentColumns([]string{"budget_amt", "updated_at"}),
		}).Create(&budgets).Error
		if err != nil {
			return fmt.Errorf("failed to upsert account budgets: %v", err)
		}
		return nil
	})
}

// GetBudgetReport joins the account budgets of a user's bank account with the buckets
func (r *BudgetRepository) GetBudgetReport(ctx context.Context, userID string, year, month int) ([]models.BudgetReport, error) {
	var rows []models.BudgetReport
	err := r.DB.WithContext(ctx).Raw(`
		SELECT
			u.user_id, u.first_name, u.last_name,
			ab.account_id, ab.year, ab.month,
			ab.budget_bucket_code, bb.expense_type, ab.budget_amt
		FROM account_budgets AS ab
		JOIN users AS u ON ab.account_id = u.bank_account
		JOIN budget_buckets AS bb ON ab.budget_bucket_code = bb.budget_bucket_code
		WHERE u.user_id = ? AND ab.year = ? AND ab.month = ?
		ORDER BY ab.budget_bucket_code`,
		userID, year, month,
	).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get budget report: %v", err)
	}
	return rows, nil
}
