// Package service contains the service layer for the Finance API
package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/nsvirk/financeapi/internal/apperror"
	"github.com/nsvirk/financeapi/internal/models"
	"github.com/nsvirk/financeapi/internal/repository"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Period is the half-open interval [Start, End) of a report
type Period struct {
	Start time.Time
	End   time.Time
}

// MonthPeriod returns the calendar month in UTC
func MonthPeriod(year, month int) (Period, error) {
	if year < 1900 || year > 9999 {
		return Period{}, apperror.Validation("year must be between 1900 and 9999")
	}
	if month < 1 || month > 12 {
		return Period{}, apperror.Validation("month must be between 1 and 12")
	}
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return Period{Start: start, End: start.AddDate(0, 1, 0)}, nil
}

// ParseYearMonth parses path or query year and month values
func ParseYearMonth(year, month string) (int, int, error) {
	y, err := strconv.Atoi(strings.TrimSpace(year))
	if err != nil {
		return 0, 0, apperror.Validation("year must be a number")
	}
	m, err := strconv.Atoi(strings.TrimSpace(month))
	if err != nil {
		return 0, 0, apperror.Validation("month must be a number")
	}
	if _, err := MonthPeriod(y, m); err != nil {
		return 0, 0, err
	}
	return y, m, nil
}

// ParsePeriod builds a period from year and month, or from start_date and end_date.
// A date-only end_date includes that whole day.
func ParsePeriod(year, month, startDate, endDate string) (Period, error) {
	if year != "" || month != "" {
		y, m, err := ParseYearMonth(year, month)
		if err != nil {
			return Period{}, err
		}
		return MonthPeriod(y, m)
	}

	if startDate == "" || endDate == "" {
		return Period{}, apperror.Validation("either year and month or start_date and end_date are required")
	}
	start, err := ParseDate(startDate)
	if err != nil {
		return Period{}, apperror.Validation("start_date must be YYYY-MM-DD or RFC3339")
	}
	end, err := ParseDate(endDate)
	if err != nil {
		return Period{}, apperror.Validation("end_date must be YYYY-MM-DD or RFC3339")
	}
	if _, err := time.Parse(time.DateOnly, strings.TrimSpace(endDate)); err == nil {
		end = end.AddDate(0, 0, 1)
	}
	if !end.After(start) {
		return Period{}, apperror.Validation("end_date must not be before start_date")
	}
	return Period{Start: start, End: end}, nil
}

// ReportService answers the read-only budget and spend reports
type ReportService struct {
	users        *repository.UserRepository
	transactions *repository.TransactionRepository
	budgets      *repository.BudgetRepository
}

// NewReportService creates a new report service
func NewReportService(db *gorm.DB) *ReportService {
	return &ReportService{
		users:        repository.NewUserRepository(db),
		transactions: repository.NewTransactionRepository(db),
		budgets:      repository.NewBudgetRepository(db),
	}
}

// Budgets returns the budget lines of a user's account for a month
func (s *ReportService) Budgets(ctx context.Context, userID string, year, month int) ([]models.BudgetReport, error) {
	if _, err := MonthPeriod(year, month); err != nil {
		return nil, err
	}
	rows, err := s.budgets.GetBudgetReport(ctx, userID, year, month)
	if err != nil {
		return nil, apperror.Server("failed to get budgets", err)
	}
	if len(rows) == 0 {
		return nil, apperror.NotFound("no budgets found for this user")
	}
	return rows, nil
}

// UpsertBudgets sets the budget of each bucket for a month and returns the resulting report
func (s *ReportService) UpsertBudgets(ctx context.Context, userID string, year, month int, lines []models.BudgetLine) ([]models.BudgetReport, error) {
	if _, err := MonthPeriod(year, month); err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, apperror.Validation("at least one budget line is required")
	}

	user, err := s.accountHolder(ctx, userID)
	if err != nil {
		return nil, err
	}

	known, err := s.budgets.GetBudgetBucketCodes(ctx)
	if err != nil {
		return nil, apperror.Server("failed to get budget buckets", err)
	}

	budgets := make([]models.AccountBudget, 0, len(lines))
	seen := make(map[string]bool, len(lines))
	for _, line := range lines {
		code := strings.ToUpper(strings.TrimSpace(line.BudgetBucketCode))
		if !known[code] {
			return nil, apperror.Validation("unknown budget_bucket_code %q", line.BudgetBucketCode)
		}
		if seen[code] {
			return nil, apperror.Validation("budget_bucket_code %q is repeated", code)
		}
		seen[code] = true

		amount, err := decimal.NewFromString(line.BudgetAmt.String())
		if err != nil || amount.IsNegative() {
			return nil, apperror.Validation("budget_amt of %s must be a non-negative decimal", code)
		}
		budgets = append(budgets, models.AccountBudget{
			AccountID:        user.BankAccount,
			Year:             year,
			Month:            month,
			BudgetBucketCode: code,
			BudgetAmt:        amount.Round(2),
		})
	}

	if err := s.budgets.UpsertAccountBudgets(ctx, budgets); err != nil {
		return nil, apperror.Server("failed to save budgets", err)
	}
	return s.Budgets(ctx, userID, year, month)
}

// TotalSpendByType sums a user's withdrawals of a month per expense type
func (s *ReportService) TotalSpendByType(ctx context.Context, userID string, year, month int) ([]models.SpendByType, error) {
	period, err := MonthPeriod(year, month)
	if err != nil {
		return nil, err
	}
	user, err := s.accountHolder(ctx, userID)
	if err != nil {
		return nil, err
	}

	spend, err := s.transactions.GetSpendingByCategory(ctx, user.BankAccount, period.Start, period.End)
	if err != nil {
		return nil, apperror.Server("failed to get spend by type", err)
	}
	if len(spend) == 0 {
		return nil, apperror.NotFound("no transactions found for this user")
	}

	rows := make([]models.SpendByType, 0, len(spend))
	for _, row := range spend {
		rows = append(rows, models.SpendByType{
			UserID:      user.UserID,
			FirstName:   user.FirstName,
			LastName:    user.LastName,
			AccountID:   user.BankAccount,
			Year:        year,
			Month:       month,
			ExpenseType: row.ExpenseType,
			TotalAmount: row.TotalAmount,
		})
	}
	return rows, nil
}

// Transactions lists all transactions of an account, newest first
func (s *ReportService) Transactions(ctx context.Context, accountID string) ([]models.Transaction, error) {
	rows, err := s.transactions.GetTransactionsByAccount(ctx, accountID)
	if err != nil {
		return nil, apperror.Server("failed to get transactions", err)
	}
	if len(rows) == 0 {
		return nil, apperror.NotFound("no transactions found for this account")
	}
	return rows, nil
}

// Summary splits an account's transactions in the period into income and expenses
func (s *ReportService) Summary(ctx context.Context, accountID string, period Period) (*models.TransactionSummary, error) {
	count, income, expenses, err := s.transactions.GetSummary(ctx, accountID, period.Start, period.End)
	if err != nil {
		return nil, apperror.Server("failed to get summary", err)
	}
	if count == 0 {
		return nil, apperror.NotFound("no transactions found for this period")
	}
	return &models.TransactionSummary{
		AccountID:     accountID,
		StartDate:     period.Start.Format(time.DateOnly),
		EndDate:       period.End.Add(-time.Nanosecond).Format(time.DateOnly),
		TotalIncome:   income,
		TotalExpenses: expenses,
		NetBalance:    income.Sub(expenses),
	}, nil
}

// SpendingByCategory sums an account's withdrawals in the period per expense type
func (s *ReportService) SpendingByCategory(ctx context.Context, accountID string, period Period) ([]models.CategorySpend, error) {
	rows, err := s.transactions.GetSpendingByCategory(ctx, accountID, period.Start, period.End)
	if err != nil {
		return nil, apperror.Server("failed to get spending by category", err)
	}
	if len(rows) == 0 {
		return nil, apperror.NotFound("no spending found for this period")
	}
	return rows, nil
}

// accountHolder gets a user that has a bank account
func (s *ReportService) accountHolder(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperror.NotFound("user not found")
		}
		return nil, apperror.Server("failed to get user", err)
	}
	if user.BankAccount == "" {
		return nil, apperror.NotFound("user has no bank account")
	}
	return user, nil
}
