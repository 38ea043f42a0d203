/*
Copyright (C) 2026 Lumentrack

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package auth

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Operator is a local console operator account.
type Operator struct {
	ID           string `gorm:"type:uuid;primaryKey"`
	Username     string `gorm:"uniqueIndex"`
	PasswordHash string
	Role         string `gorm:"type:varchar(16)"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ErrOperatorNotFound is returned when no operator matches the username.
var ErrOperatorNotFound = errors.New("operator not found")

// ErrInvalidCredentials is returned when a password does not match.
var ErrInvalidCredentials = errors.New("invalid credentials")

// CreateOperator hashes password and inserts a new operator account.
func CreateOperator(db *gorm.DB, username, password, role string) (*Operator, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	op := &Operator{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: string(hash),
		Role:         role,
	}
	if err := db.Create(op).Error; err != nil {
		return nil, err
	}
	return op, nil
}

// Authenticate verifies a username/password pair against the operator store.
func Authenticate(db *gorm.DB, username, password string) (*Operator, error) {
	var op Operator
	if err := db.Where("username = ?", username).First(&op).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOperatorNotFound
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(op.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return &op, nil
}

// SetPassword rehashes and persists a new password for an existing operator.
func SetPassword(db *gorm.DB, operatorID, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return db.Model(&Operator{}).Where("id = ?", operatorID).Update("password_hash", string(hash)).Error
}
