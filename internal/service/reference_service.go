// Package service contains the service layer for the Finance API
package service

import (
	"context"
	"fmt"

	"github.com/nsvirk/financeapi/internal/models"
	"github.com/nsvirk/financeapi/internal/repository"
	"gorm.io/gorm"
)

// DefaultBudgetBuckets are the expense types every deployment starts with
var DefaultBudgetBuckets = []models.BudgetBucket{
	{BudgetBucketCode: "GROC", ExpenseType: "Groceries"},
	{BudgetBucketCode: "DINE", ExpenseType: "Dining"},
	{BudgetBucketCode: "TRAN", ExpenseType: "Transportation"},
	{BudgetBucketCode: "UTIL", ExpenseType: "Utilities"},
	{BudgetBucketCode: "ENTM", ExpenseType: "Entertainment"},
	{BudgetBucketCode: "SHOP", ExpenseType: "Shopping"},
	{BudgetBucketCode: "HLTH", ExpenseType: "Health"},
	{BudgetBucketCode: "TRVL", ExpenseType: "Travel"},
	{BudgetBucketCode: "OTHR", ExpenseType: "Other"},
}

// DefaultMccCodes map common merchant category codes to the default buckets
var DefaultMccCodes = []models.MccCode{
	{Mcc: "5411", Description: "Grocery Stores, Supermarkets", BudgetBucketCode: "GROC"},
	{Mcc: "5422", Description: "Freezer and Locker Meat Provisioners", BudgetBucketCode: "GROC"},
	{Mcc: "5499", Description: "Misc. Food Stores", BudgetBucketCode: "GROC"},
	{Mcc: "5812", Description: "Eating Places, Restaurants", BudgetBucketCode: "DINE"},
	{Mcc: "5814", Description: "Fast Food Restaurants", BudgetBucketCode: "DINE"},
	{Mcc: "4111", Description: "Commuter Transport", BudgetBucketCode: "TRAN"},
	{Mcc: "4121", Description: "Taxicabs and Limousines", BudgetBucketCode: "TRAN"},
	{Mcc: "5541", Description: "Service Stations", BudgetBucketCode: "TRAN"},
	{Mcc: "5542", Description: "Automated Fuel Dispensers", BudgetBucketCode: "TRAN"},
	{Mcc: "4900", Description: "Utilities", BudgetBucketCode: "UTIL"},
	{Mcc: "4814", Description: "Telecommunication Services", BudgetBucketCode: "UTIL"},
	{Mcc: "7832", Description: "Motion Picture Theaters", BudgetBucketCode: "ENTM"},
	{Mcc: "5815", Description: "Digital Goods Media", BudgetBucketCode: "ENTM"},
	{Mcc: "5311", Description: "Department Stores", BudgetBucketCode: "SHOP"},
	{Mcc: "5651", Description: "Family Clothing Stores", BudgetBucketCode: "SHOP"},
	{Mcc: "5912", Description: "Drug Stores and Pharmacies", BudgetBucketCode: "HLTH"},
	{Mcc: "8011", Description: "Doctors", BudgetBucketCode: "HLTH"},
	{Mcc: "8062", Description: "Hospitals", BudgetBucketCode: "HLTH"},
	{Mcc: "4511", Description: "Airlines", BudgetBucketCode: "TRVL"},
	{Mcc: "7011", Description: "Hotels, Motels, Resorts", BudgetBucketCode: "TRVL"},
}

// ReferenceService seeds the budget buckets and MCC mappings
type ReferenceService struct {
	repo *repository.BudgetRepository
}

// NewReferenceService creates a new reference service
func NewReferenceService(db *gorm.DB) *ReferenceService {
	return &ReferenceService{repo: repository.NewBudgetRepository(db)}
}

// SeedReferenceData inserts the default buckets and MCC codes that are missing.
// Existing rows are left untouched.
func (s *ReferenceService) SeedReferenceData(ctx context.Context) (int64, int64, error) {
	buckets, err := s.repo.InsertBudgetBuckets(ctx, DefaultBudgetBuckets)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to seed budget buckets: %v", err)
	}
	codes, err := s.repo.InsertMccCodes(ctx, DefaultMccCodes)
	if err != nil {
		return buckets, 0, fmt.Errorf("failed to seed mcc codes: %v", err)
	}
	return buckets, codes, nil
}
