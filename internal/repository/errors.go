package repository

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

var (
	ErrOrderNotFound          = errors.New("order not found")
	ErrDuplicateSession       = errors.New("order already exists for payment session")
	ErrStaleStatus            = errors.New("order status changed concurrently")
	ErrPendingSessionNotFound = errors.New("pending payment session not found or expired")
	ErrVariantNotFound        = errors.New("product variant not found")
)

// isUniqueViolation covers drivers whose errors gorm does not translate.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate entry") ||
		strings.Contains(msg, "duplicate key")
}
