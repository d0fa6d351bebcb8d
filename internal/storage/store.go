// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/splitbill/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// BillStore defines bill persistence operations.
type BillStore interface {
	// CreateBill persists a finalized bill with its items, participants and
	// assignments in one transaction. Missing IDs and CreatedAt are filled in.
	CreateBill(ctx context.Context, bill *models.Bill) error

	// GetBill retrieves a bill by its ID, including all items and participants.
	// Returns ErrNotFound if the bill does not exist.
	GetBill(ctx context.Context, billID string) (*models.Bill, error)

	// ListBillsByUser returns summaries of a user's bills, newest first.
	ListBillsByUser(ctx context.Context, userID string) ([]models.BillSummary, error)

	// DeleteBill removes a bill and everything attached to it.
	// Returns ErrNotFound if the bill does not exist.
	DeleteBill(ctx context.Context, billID string) error
}

// UserStore defines user persistence operations.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByEmail and GetUserByID return ErrNotFound for unknown users.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// Store is the full storage backend. This abstraction allows swapping storage
// backends (SQLite, PostgreSQL) without changing the service layer.
type Store interface {
	BillStore
	UserStore

	// Close releases any resources held by the store.
	Close() error
}
