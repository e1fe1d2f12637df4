// Package repository contains the repository layer for the Finance API
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/nsvirk/financeapi/internal/models"
	"gorm.io/gorm"
)

var (
	// ErrUserNotFound is returned when no user matches a lookup
	ErrUserNotFound = errors.New("user not found")
	// ErrDuplicateUser is returned when the username, email or bank account is taken
	ErrDuplicateUser = errors.New("user already exists")
)

// UserRepository is the credential store
type UserRepository struct {
	DB *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{DB: db}
}

// CreateUser inserts a user, the user id is generated on create
func (r *UserRepository) CreateUser(ctx context.Context, user *models.User) error {
	err := r.DB.WithContext(ctx).Create(user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateUser
		}
		return fmt.Errorf("failed to create user: %v", err)
	}
	return nil
}

// GetUserByID gets a user by user id
func (r *UserRepository) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	return r.first(ctx, "user_id = ?", userID)
}

// GetUserByUsernameOrEmail gets a user whose username or email equals the value (case-sensitive)
func (r *UserRepository) GetUserByUsernameOrEmail(ctx context.Context, usernameOrEmail string) (*models.User, error) {
	return r.first(ctx, "username = ? OR email = ?", usernameOrEmail, usernameOrEmail)
}

// GetUserByBankAccount gets the user who registered the bank account
func (r *UserRepository) GetUserByBankAccount(ctx context.Context, bankAccount string) (*models.User, error) {
	return r.first(ctx, "bank_account = ?", bankAccount)
}

// BankAccountExists checks whether any user registered the bank account
func (r *UserRepository) BankAccountExists(ctx context.Context, bankAccount string) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&models.User{}).
		Where("bank_account = ?", bankAccount).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check bank account: %v", err)
	}
	return count > 0, nil
}

// ExistsByUsernameOrEmail checks whether the username or the email is taken
func (r *UserRepository) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&models.User{}).
		Where("username = ? OR email = ?", username, email).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check user: %v", err)
	}
	return count > 0, nil
}

func (r *UserRepository) first(ctx context.Context, query string, args ...interface{}) (*models.User, error) {
	var user models.User
	err := r.DB.WithContext(ctx).Where(query, args...).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}
