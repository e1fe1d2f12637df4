package service

import (
	"context"
	"testing"
	"time"

	"github.com/nsvirk/financeapi/internal/apperror"
	"github.com/nsvirk/financeapi/internal/models"
	"github.com/nsvirk/financeapi/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type ReportServiceSuite struct {
	suite.Suite
	ctx     context.Context
	service *ReportService
	ingest  *TransactionService
	user    *models.User
}

func (s *ReportServiceSuite) SetupTest() {
	s.ctx = context.Background()
	db := newTestDB(s.T())
	s.service = NewReportService(db)
	s.ingest = NewTransactionService(db, nil)

	_, _, err := NewReferenceService(db).SeedReferenceData(s.ctx)
	s.Require().NoError(err)

	s.user = &models.User{
		Username:     "jdoe",
		Email:        "jdoe@example.com",
		PasswordHash: "hash",
		FirstName:    "John",
		LastName:     "Doe",
		BankAccount:  "1000200030",
	}
	s.Require().NoError(repository.NewUserRepository(db).CreateUser(s.ctx, s.user))
}

func (s *ReportServiceSuite) add(id, date, mcc, amount string, dbCr models.DbCr) {
	_, err := s.ingest.Ingest(s.ctx, models.TransactionEvent{
		TransactionID:     models.FlexString(id),
		TransactionDate:   date,
		MccCode:           models.FlexString(mcc),
		TransactionAmount: models.FlexString(amount),
		DbCr:              string(dbCr),
		AccountID:         models.FlexString(s.user.BankAccount),
	}, "")
	s.Require().NoError(err)
}

func (s *ReportServiceSuite) TestSummaryForMonth() {
	s.add("D1", "2024-01-05", "6011", "100", models.Deposit)
	s.add("W1", "2024-01-10", "5411", "40", models.Withdrawal)
	s.add("W2", "2024-02-10", "5411", "9", models.Withdrawal)

	period, err := MonthPeriod(2024, 1)
	s.Require().NoError(err)
	summary, err := s.service.Summary(s.ctx, s.user.BankAccount, period)
	s.Require().NoError(err)

	s.Equal("100.00", summary.TotalIncome.StringFixed(2))
	s.Equal("40.00", summary.TotalExpenses.StringFixed(2))
	s.Equal("60.00", summary.NetBalance.StringFixed(2))
	s.Equal("2024-01-01", summary.StartDate)
	s.Equal("2024-01-31", summary.EndDate)
}

func (s *ReportServiceSuite) TestSummaryEmptyIsNotFound() {
	period, err := MonthPeriod(2024, 1)
	s.Require().NoError(err)
	_, err = s.service.Summary(s.ctx, s.user.BankAccount, period)
	s.ErrorIs(err, apperror.ErrNotFound)
}

func (s *ReportServiceSuite) TestSpendingByCategoryAttributesToBucket() {
	s.add("W1", "2024-01-10", "5411", "52.75", models.Withdrawal)

	period, err := MonthPeriod(2024, 1)
	s.Require().NoError(err)
	rows, err := s.service.SpendingByCategory(s.ctx, s.user.BankAccount, period)
	s.Require().NoError(err)

	s.Require().Len(rows, 1)
	s.Equal("Groceries", rows[0].ExpenseType)
	s.Equal("52.75", rows[0].TotalAmount.StringFixed(2))
}

func (s *ReportServiceSuite) TestTotalSpendByType() {
	s.add("W1", "2024-01-10", "5411", "20", models.Withdrawal)
	s.add("W2", "2024-01-11", "5812", "15", models.Withdrawal)

	rows, err := s.service.TotalSpendByType(s.ctx, s.user.UserID, 2024, 1)
	s.Require().NoError(err)
	s.Require().Len(rows, 2)
	s.Equal("Dining", rows[0].ExpenseType)
	s.Equal("Groceries", rows[1].ExpenseType)
	s.Equal(s.user.UserID, rows[0].UserID)
	s.Equal("Doe", rows[0].LastName)
	s.Equal(2024, rows[0].Year)
	s.Equal(1, rows[0].Month)

	_, err = s.service.TotalSpendByType(s.ctx, s.user.UserID, 2024, 2)
	s.ErrorIs(err, apperror.ErrNotFound)

	_, err = s.service.TotalSpendByType(s.ctx, s.user.UserID, 2024, 13)
	s.ErrorIs(err, apperror.ErrValidation)
}

func (s *ReportServiceSuite) TestTransactions() {
	_, err := s.service.Transactions(s.ctx, s.user.BankAccount)
	s.ErrorIs(err, apperror.ErrNotFound)

	s.add("W1", "2024-01-10", "5411", "20", models.Withdrawal)
	rows, err := s.service.Transactions(s.ctx, s.user.BankAccount)
	s.Require().NoError(err)
	s.Len(rows, 1)
}

func (s *ReportServiceSuite) TestUpsertAndReadBudgets() {
	_, err := s.service.Budgets(s.ctx, s.user.UserID, 2024, 1)
	s.ErrorIs(err, apperror.ErrNotFound)

	rows, err := s.service.UpsertBudgets(s.ctx, s.user.UserID, 2024, 1, []models.BudgetLine{
		{BudgetBucketCode: "groc", BudgetAmt: "400"},
		{BudgetBucketCode: "DINE", BudgetAmt: "125.50"},
	})
	s.Require().NoError(err)
	s.Require().Len(rows, 2)
	s.Equal("DINE", rows[0].BudgetBucketCode)
	s.Equal("125.50", rows[0].BudgetAmt.StringFixed(2))
	s.Equal("Groceries", rows[1].ExpenseType)

	_, err = s.service.UpsertBudgets(s.ctx, s.user.UserID, 2024, 1, []models.BudgetLine{
		{BudgetBucketCode: "NOPE", BudgetAmt: "1"},
	})
	s.ErrorIs(err, apperror.ErrValidation)

	_, err = s.service.UpsertBudgets(s.ctx, s.user.UserID, 2024, 1, []models.BudgetLine{
		{BudgetBucketCode: "GROC", BudgetAmt: "-5"},
	})
	s.ErrorIs(err, apperror.ErrValidation)
}

func TestReportServiceSuite(t *testing.T) {
	suite.Run(t, new(ReportServiceSuite))
}

func TestParsePeriod(t *testing.T) {
	p, err := ParsePeriod("2024", "2", "", "")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), p.Start)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), p.End)

	p, err = ParsePeriod("", "", "2024-01-01", "2024-01-31")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), p.End)

	_, err = ParsePeriod("", "", "2024-02-01", "2024-01-01")
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = ParsePeriod("", "", "", "")
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = ParsePeriod("2024", "", "", "")
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestSeedReferenceDataIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	svc := NewReferenceService(db)

	buckets, codes, err := svc.SeedReferenceData(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(len(DefaultBudgetBuckets)), buckets)
	assert.Equal(t, int64(len(DefaultMccCodes)), codes)

	buckets, codes, err = svc.SeedReferenceData(context.Background())
	require.NoError(t, err)
	assert.Zero(t, buckets)
	assert.Zero(t, codes)
}
