// Package models contains the models for the Finance API
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// UsersTableName is the name of the table for users
var UsersTableName = "users"

// User is a registered account holder
type User struct {
	UserID        string    `gorm:"primaryKey;size:36" json:"user_id"`
	Username      string    `gorm:"uniqueIndex;not null" json:"username"`
	Email         string    `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash  string    `gorm:"not null" json:"-"`
	FirstName     string    `json:"first_name"`
	LastName      string    `json:"last_name"`
	BankAccount   string    `gorm:"uniqueIndex:idx_users_bank_account_unique,where:bank_account <> ''" json:"bank_account,omitempty"`
	RoutingNumber string    `json:"routing_number,omitempty"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"-"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"-"`
}

// TableName specifies the table name for the User model
func (User) TableName() string {
	return UsersTableName
}

// BeforeCreate generates the user id
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.UserID == "" {
		u.UserID = uuid.NewString()
	}
	return nil
}

// Dashboard is the landing payload of an authenticated user
type Dashboard struct {
	Username  string          `json:"username"`
	FirstName string          `json:"first_name"`
	Balance   decimal.Decimal `json:"balance"`
}
