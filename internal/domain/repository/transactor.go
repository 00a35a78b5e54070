package repository

import (
	"context"

	"gorm.io/gorm"
)

// Transactor hands out database handles to usecases.
// WithinTransaction commits when fn returns nil and rolls back otherwise.
type Transactor interface {
	Conn(ctx context.Context) *gorm.DB
	WithinTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error
}
