package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/nsvirk/financeapi/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := ConnectSQLite(":memory:", "silent")
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d.UTC()
}

type RepositorySuite struct {
	suite.Suite
	ctx     context.Context
	db      *gorm.DB
	users   *UserRepository
	txns    *TransactionRepository
	budgets *BudgetRepository
	user    *models.User
}

func (s *RepositorySuite) SetupTest() {
	s.ctx = context.Background()
	s.db = newTestDB(s.T())
	s.users = NewUserRepository(s.db)
	s.txns = NewTransactionRepository(s.db)
	s.budgets = NewBudgetRepository(s.db)

	s.user = &models.User{
		Username:      "jdoe",
		Email:         "jdoe@example.com",
		PasswordHash:  "hash",
		FirstName:     "John",
		LastName:      "Doe",
		BankAccount:   "1000200030",
		RoutingNumber: "021000021",
	}
	s.Require().NoError(s.users.CreateUser(s.ctx, s.user))

	_, err := s.budgets.InsertBudgetBuckets(s.ctx, []models.BudgetBucket{
		{BudgetBucketCode: "GROC", ExpenseType: "Groceries"},
		{BudgetBucketCode: "DINE", ExpenseType: "Dining"},
	})
	s.Require().NoError(err)
	_, err = s.budgets.InsertMccCodes(s.ctx, []models.MccCode{
		{Mcc: "5411", Description: "Grocery Stores", BudgetBucketCode: "GROC"},
		{Mcc: "5812", Description: "Restaurants", BudgetBucketCode: "DINE"},
	})
	s.Require().NoError(err)
}

func transactionCount(t *testing.T, db *gorm.DB, transactionID string) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(&models.Transaction{}).Where("transaction_id = ?", transactionID).Count(&count).Error)
	return count
}

func (s *RepositorySuite) insert(id string, date string, mcc string, amount string, dbCr models.DbCr) bool {
	inserted, err := s.txns.InsertIfAbsent(s.ctx, &models.Transaction{
		TransactionID:   id,
		TransactionDate: day(date),
		MccCode:         mcc,
		Amount:          decimal.RequireFromString(amount),
		DbCr:            dbCr,
		AccountID:       s.user.BankAccount,
	})
	s.Require().NoError(err)
	return inserted
}

func (s *RepositorySuite) TestCreateUserGeneratesID() {
	s.NotEmpty(s.user.UserID)

	found, err := s.users.GetUserByID(s.ctx, s.user.UserID)
	s.Require().NoError(err)
	s.Equal("jdoe", found.Username)
}

func (s *RepositorySuite) TestCreateUserDuplicate() {
	err := s.users.CreateUser(s.ctx, &models.User{
		Username:     "jdoe",
		Email:        "other@example.com",
		PasswordHash: "hash",
	})
	s.ErrorIs(err, ErrDuplicateUser)

	exists, err := s.users.ExistsByUsernameOrEmail(s.ctx, "someone", "jdoe@example.com")
	s.Require().NoError(err)
	s.True(exists)
}

func (s *RepositorySuite) TestGetUserByUsernameOrEmail() {
	byName, err := s.users.GetUserByUsernameOrEmail(s.ctx, "jdoe")
	s.Require().NoError(err)
	s.Equal(s.user.UserID, byName.UserID)

	byEmail, err := s.users.GetUserByUsernameOrEmail(s.ctx, "jdoe@example.com")
	s.Require().NoError(err)
	s.Equal(s.user.UserID, byEmail.UserID)

	_, err = s.users.GetUserByUsernameOrEmail(s.ctx, "JDOE")
	s.ErrorIs(err, ErrUserNotFound)
}

func (s *RepositorySuite) TestBankAccountExists() {
	exists, err := s.users.BankAccountExists(s.ctx, "1000200030")
	s.Require().NoError(err)
	s.True(exists)

	exists, err = s.users.BankAccountExists(s.ctx, "999")
	s.Require().NoError(err)
	s.False(exists)
}

func (s *RepositorySuite) TestGetUserByBankAccount() {
	found, err := s.users.GetUserByBankAccount(s.ctx, "1000200030")
	s.Require().NoError(err)
	s.Equal(s.user.UserID, found.UserID)

	_, err = s.users.GetUserByBankAccount(s.ctx, "999")
	s.ErrorIs(err, ErrUserNotFound)
}

func (s *RepositorySuite) TestBankAccountIsUnique() {
	err := s.users.CreateUser(s.ctx, &models.User{
		Username:     "asmith",
		Email:        "asmith@example.com",
		PasswordHash: "hash",
		BankAccount:  "1000200030",
	})
	s.ErrorIs(err, ErrDuplicateUser)

	// users without an account do not collide
	for _, name := range []string{"bsmith", "csmith"} {
		s.Require().NoError(s.users.CreateUser(s.ctx, &models.User{
			Username:     name,
			Email:        name + "@example.com",
			PasswordHash: "hash",
		}))
	}
}

func (s *RepositorySuite) TestInsertIfAbsentIsIdempotent() {
	s.True(s.insert("T1", "2024-01-05", "5411", "12.50", models.Withdrawal))
	s.False(s.insert("T1", "2024-01-05", "5411", "12.50", models.Withdrawal))

	s.Equal(int64(1), transactionCount(s.T(), s.db, "T1"))
}

func (s *RepositorySuite) TestInsertIfAbsentConcurrent() {
	var wg sync.WaitGroup
	results := make([]bool, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			inserted, err := s.txns.InsertIfAbsent(s.ctx, &models.Transaction{
				TransactionID:   "T-CONC",
				TransactionDate: day("2024-01-05"),
				MccCode:         "5411",
				Amount:          decimal.RequireFromString("1.00"),
				DbCr:            models.Withdrawal,
				AccountID:       s.user.BankAccount,
			})
			s.NoError(err)
			results[i] = inserted
		}(i)
	}
	wg.Wait()

	inserted := 0
	for _, r := range results {
		if r {
			inserted++
		}
	}
	s.Equal(1, inserted)

	s.Equal(int64(1), transactionCount(s.T(), s.db, "T-CONC"))
}

func (s *RepositorySuite) TestGetSummary() {
	s.insert("D1", "2024-01-05", "", "100.00", models.Deposit)
	s.insert("W1", "2024-01-10", "5411", "40.00", models.Withdrawal)
	s.insert("W2", "2024-02-01", "5411", "7.00", models.Withdrawal)

	count, income, expenses, err := s.txns.GetSummary(s.ctx, s.user.BankAccount, day("2024-01-01"), day("2024-02-01"))
	s.Require().NoError(err)
	s.Equal(int64(2), count)
	s.True(income.Equal(decimal.NewFromInt(100)), income.String())
	s.True(expenses.Equal(decimal.NewFromInt(40)), expenses.String())
}

func (s *RepositorySuite) TestGetSummaryEmpty() {
	count, income, expenses, err := s.txns.GetSummary(s.ctx, s.user.BankAccount, day("2024-01-01"), day("2024-02-01"))
	s.Require().NoError(err)
	s.Zero(count)
	s.True(income.IsZero())
	s.True(expenses.IsZero())
}

func (s *RepositorySuite) TestGetSummaryRoundsToCents() {
	for i := 0; i < 10; i++ {
		s.insert("C"+string(rune('0'+i)), "2024-03-02", "5411", "0.10", models.Withdrawal)
	}
	_, _, expenses, err := s.txns.GetSummary(s.ctx, s.user.BankAccount, day("2024-03-01"), day("2024-04-01"))
	s.Require().NoError(err)
	s.Equal("1.00", expenses.StringFixed(2))
}

func (s *RepositorySuite) TestAggregatesAreExactForCents() {
	for i := 0; i < 10; i++ {
		s.insert(fmt.Sprintf("D%d", i), "2024-01-03", "", "0.10", models.Deposit)
	}
	s.insert("W1", "2024-01-04", "5411", "0.10", models.Withdrawal)
	s.insert("W2", "2024-01-05", "5411", "0.20", models.Withdrawal)

	count, income, expenses, err := s.txns.GetSummary(s.ctx, s.user.BankAccount, day("2024-01-01"), day("2024-02-01"))
	s.Require().NoError(err)
	s.Equal(int64(12), count)
	s.Equal("1", income.String())
	s.Equal("0.3", expenses.String())
	s.Equal("0.7", income.Sub(expenses).String())

	rows, err := s.txns.GetSpendingByCategory(s.ctx, s.user.BankAccount, day("2024-01-01"), day("2024-02-01"))
	s.Require().NoError(err)
	s.Require().Len(rows, 1)
	s.Equal("Groceries", rows[0].ExpenseType)
	s.Equal("0.3", rows[0].TotalAmount.String())

	balance, err := s.txns.GetBalance(s.ctx, s.user.BankAccount)
	s.Require().NoError(err)
	s.Equal("0.7", balance.String())
}

func (s *RepositorySuite) TestGetSpendingByCategory() {
	s.insert("W1", "2024-01-10", "5411", "40.00", models.Withdrawal)
	s.insert("W2", "2024-01-11", "5411", "2.25", models.Withdrawal)
	s.insert("W3", "2024-01-12", "5812", "15.00", models.Withdrawal)
	s.insert("W4", "2024-01-13", "9999", "3.00", models.Withdrawal)
	s.insert("D1", "2024-01-05", "5411", "100.00", models.Deposit)

	rows, err := s.txns.GetSpendingByCategory(s.ctx, s.user.BankAccount, day("2024-01-01"), day("2024-02-01"))
	s.Require().NoError(err)
	s.Require().Len(rows, 3)

	totals := map[string]string{}
	for _, r := range rows {
		totals[r.ExpenseType] = r.TotalAmount.StringFixed(2)
	}
	s.Equal("15.00", totals["Dining"])
	s.Equal("42.25", totals["Groceries"])
	s.Equal("3.00", totals[UncategorizedExpenseType])
}

func (s *RepositorySuite) TestGetBalance() {
	s.insert("D1", "2024-01-05", "", "100.00", models.Deposit)
	s.insert("W1", "2024-01-10", "5411", "40.55", models.Withdrawal)

	balance, err := s.txns.GetBalance(s.ctx, s.user.BankAccount)
	s.Require().NoError(err)
	s.Equal("59.45", balance.StringFixed(2))
}

func (s *RepositorySuite) TestGetTransactionsByAccount() {
	s.insert("W1", "2024-01-10", "5411", "40.00", models.Withdrawal)
	s.insert("D1", "2024-01-05", "", "100.00", models.Deposit)

	rows, err := s.txns.GetTransactionsByAccount(s.ctx, s.user.BankAccount)
	s.Require().NoError(err)
	s.Require().Len(rows, 2)
	s.Equal("W1", rows[0].TransactionID)
	s.Equal("D1", rows[1].TransactionID)
}

func (s *RepositorySuite) TestCountIngestedSince() {
	s.insert("W1", "2024-01-10", "5411", "40.00", models.Withdrawal)

	count, err := s.txns.CountIngestedSince(s.ctx, time.Now().Add(-time.Hour))
	s.Require().NoError(err)
	s.Equal(int64(1), count)

	count, err = s.txns.CountIngestedSince(s.ctx, time.Now().Add(time.Hour))
	s.Require().NoError(err)
	s.Zero(count)
}

func (s *RepositorySuite) TestReferenceSeedIsIdempotent() {
	n, err := s.budgets.InsertBudgetBuckets(s.ctx, []models.BudgetBucket{
		{BudgetBucketCode: "GROC", ExpenseType: "Groceries"},
		{BudgetBucketCode: "UTIL", ExpenseType: "Utilities"},
	})
	s.Require().NoError(err)
	s.Equal(int64(1), n)

	codes, err := s.budgets.GetBudgetBucketCodes(s.ctx)
	s.Require().NoError(err)
	s.Len(codes, 3)
	s.True(codes["UTIL"])
}

func (s *RepositorySuite) TestUpsertAccountBudgets() {
	budgets := []models.AccountBudget{
		{AccountID: s.user.BankAccount, Year: 2024, Month: 1, BudgetBucketCode: "GROC", BudgetAmt: decimal.RequireFromString("300.00")},
		{AccountID: s.user.BankAccount, Year: 2024, Month: 1, BudgetBucketCode: "DINE", BudgetAmt: decimal.RequireFromString("120.00")},
	}
	s.Require().NoError(s.budgets.UpsertAccountBudgets(s.ctx, budgets))

	budgets[0].BudgetAmt = decimal.RequireFromString("350.00")
	s.Require().NoError(s.budgets.UpsertAccountBudgets(s.ctx, budgets[:1]))

	rows, err := s.budgets.GetBudgetReport(s.ctx, s.user.UserID, 2024, 1)
	s.Require().NoError(err)
	s.Require().Len(rows, 2)
	s.Equal("DINE", rows[0].BudgetBucketCode)
	s.Equal("Dining", rows[0].ExpenseType)
	s.Equal("GROC", rows[1].BudgetBucketCode)
	s.Equal("350.00", rows[1].BudgetAmt.StringFixed(2))
	s.Equal("John", rows[1].FirstName)
	s.Equal(s.user.BankAccount, rows[1].AccountID)

	rows, err = s.budgets.GetBudgetReport(s.ctx, s.user.UserID, 2024, 2)
	s.Require().NoError(err)
	s.Empty(rows)
}

func TestRepositorySuite(t *testing.T) {
	suite.Run(t, new(RepositorySuite))
}

func TestConnectSQLiteFile(t *testing.T) {
	path := t.TempDir() + "/finance.db"
	db, err := ConnectSQLite(path, "silent")
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.WithContext(context.Background()).Model(&models.User{}).Count(&count).Error)
	assert.Zero(t, count)
}
