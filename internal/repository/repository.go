// Package repository declares the document store capability the inventory
// service is built on. Adapters live in the mongodb and memory subpackages.
package repository

import (
	"context"
	"errors"

	"github.com/mamadbah2/inventory/internal/domain/models"
)

// ErrStoreUnavailable indicates the underlying document store could not be reached.
var ErrStoreUnavailable = errors.New("document store unavailable")

// DocumentStore defines the persistence operations the inventory service needs.
// Lookups that match nothing return a nil record and a nil error.
type DocumentStore interface {
	Insert(ctx context.Context, doc models.Inventory) (models.Inventory, error)
	FindAll(ctx context.Context) ([]models.Inventory, error)
	FindByID(ctx context.Context, id string) (*models.Inventory, error)
	Find(ctx context.Context, query models.Query) ([]models.Inventory, error)
	Upsert(ctx context.Context, id string, set []models.Assignment) error
	UpdateExisting(ctx context.Context, id string, set []models.Assignment) (bool, error)
	FindAndRemove(ctx context.Context, id string) (*models.Inventory, error)
	EnsureIndex(ctx context.Context, field models.Field, direction models.Direction) error
	Close(ctx context.Context) error
}
