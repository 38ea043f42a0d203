/*
Copyright (C) 2026 Lumentrack

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// API key constants.
const (
	APIKeyPrefix      = "lc_"
	APIKeyRandomBytes = 24 // 24 bytes ≈ 192 bits entropy
)

// APIKeyExpirationOptions are the selectable lifetimes offered when issuing a
// new key from the control API.
var APIKeyExpirationOptions = []struct {
	Label string
	Days  int
}{
	{"30 days", 30},
	{"90 days", 90},
	{"180 days", 180},
	{"1 year", 365},
}

// ErrAPIKeyNotFound is returned when an API key doesn't exist.
var ErrAPIKeyNotFound = errors.New("api key not found")

// ErrAPIKeyExpired is returned when an API key has expired.
var ErrAPIKeyExpired = errors.New("api key expired")

// ErrAPIKeyRevoked is returned when an API key has been revoked.
var ErrAPIKeyRevoked = errors.New("api key revoked")

// APIKey authenticates unattended automation clients (show-control software,
// timecode sources) against the control API without an operator login.
type APIKey struct {
	ID         string `gorm:"type:uuid;primaryKey"`
	OperatorID string `gorm:"type:uuid;index"`
	Name       string
	KeyHash    string `gorm:"uniqueIndex"`
	KeyPrefix  string
	ExpiresAt  time.Time
	RevokedAt  *time.Time
	LastUsedAt *time.Time
	CreatedAt  time.Time
}

// IsExpired reports whether the key's expiry has passed.
func (k *APIKey) IsExpired() bool {
	return !k.ExpiresAt.IsZero() && time.Now().After(k.ExpiresAt)
}

// IsRevoked reports whether the key has been revoked.
func (k *APIKey) IsRevoked() bool {
	return k.RevokedAt != nil
}

// GenerateAPIKey creates a new API key for an operator. Returns the
// plaintext key (shown once) and the model to persist.
func GenerateAPIKey(operatorID, name string, expiresIn time.Duration) (string, *APIKey, error) {
	randomBytes := make([]byte, APIKeyRandomBytes)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", nil, err
	}

	plaintextKey := APIKeyPrefix + hex.EncodeToString(randomBytes)

	hash := sha256.Sum256([]byte(plaintextKey))
	keyHash := hex.EncodeToString(hash[:])
	keyPrefix := plaintextKey[:11] // "lc_" + first 8 hex chars

	key := &APIKey{
		ID:         uuid.NewString(),
		OperatorID: operatorID,
		Name:       name,
		KeyHash:    keyHash,
		KeyPrefix:  keyPrefix,
		ExpiresAt:  time.Now().Add(expiresIn),
	}

	return plaintextKey, key, nil
}

// ValidateAPIKey validates an API key and returns claims if valid. Also
// updates the key's LastUsedAt timestamp.
func ValidateAPIKey(db *gorm.DB, plaintextKey string) (*Claims, error) {
	hash := sha256.Sum256([]byte(plaintextKey))
	keyHash := hex.EncodeToString(hash[:])

	var key APIKey
	result := db.Where("key_hash = ?", keyHash).First(&key)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, ErrAPIKeyNotFound
	}
	if result.Error != nil {
		return nil, result.Error
	}

	if key.IsRevoked() {
		return nil, ErrAPIKeyRevoked
	}
	if key.IsExpired() {
		return nil, ErrAPIKeyExpired
	}

	var op Operator
	result = db.First(&op, "id = ?", key.OperatorID)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, ErrOperatorNotFound
	}
	if result.Error != nil {
		return nil, result.Error
	}

	now := time.Now()
	go db.Model(&key).Update("last_used_at", now)

	return &Claims{OperatorID: op.ID, Role: op.Role}, nil
}

// RevokeAPIKey revokes an API key. Only the owning operator can revoke it.
func RevokeAPIKey(db *gorm.DB, keyID, operatorID string) error {
	now := time.Now()
	result := db.Model(&APIKey{}).
		Where("id = ? AND operator_id = ?", keyID, operatorID).
		Update("revoked_at", now)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAPIKeyNotFound
	}
	return nil
}

// ListAPIKeys returns all API keys for an operator.
func ListAPIKeys(db *gorm.DB, operatorID string) ([]APIKey, error) {
	var keys []APIKey
	err := db.Where("operator_id = ?", operatorID).
		Order("created_at DESC").
		Find(&keys).Error
	return keys, err
}

// DeleteAPIKey permanently deletes an API key. Use RevokeAPIKey for soft delete.
func DeleteAPIKey(db *gorm.DB, keyID, operatorID string) error {
	result := db.Where("id = ? AND operator_id = ?", keyID, operatorID).
		Delete(&APIKey{})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAPIKeyNotFound
	}
	return nil
}
