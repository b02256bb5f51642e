package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrInvalidInventory indicates an inventory record failed validation.
var ErrInvalidInventory = errors.New("invalid inventory")

// Inventory is a single stock-keeping record persisted in the document store.
type Inventory struct {
	ID                string            `bson:"-" json:"id"`
	Name              string            `bson:"name" json:"name"`
	ProductType       string            `bson:"productType" json:"productType"`
	Description       string            `bson:"description,omitempty" json:"description,omitempty"`
	AveragePrice      *decimal.Decimal  `bson:"averagePrice,omitempty" json:"averagePrice,omitempty"`
	Amount            *decimal.Decimal  `bson:"amount,omitempty" json:"amount,omitempty"`
	UnitOfMeasurement UnitOfMeasurement `bson:"unitOfMeasurement,omitempty" json:"unitOfMeasurement,omitempty"`
	BestBeforeDate    *time.Time        `bson:"bestBeforeDate,omitempty" json:"bestBeforeDate,omitempty"`
	NeverExpires      bool              `bson:"neverExpires" json:"neverExpires"`
}

// Validate checks the record-level invariants enforced before writes reach the store.
func (i Inventory) Validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return fmt.Errorf("%w: name must not be empty", ErrInvalidInventory)
	}
	if i.AveragePrice != nil && i.AveragePrice.IsNegative() {
		return fmt.Errorf("%w: averagePrice must not be negative", ErrInvalidInventory)
	}
	if i.Amount != nil && i.Amount.IsNegative() {
		return fmt.Errorf("%w: amount must not be negative", ErrInvalidInventory)
	}
	if i.UnitOfMeasurement != "" && !IsValidUnit(string(i.UnitOfMeasurement)) {
		return fmt.Errorf("%w: unknown unitOfMeasurement %q", ErrInvalidInventory, i.UnitOfMeasurement)
	}
	return nil
}

// Expired reports whether the record is past its best-before date at now.
// Records flagged NeverExpires or without a date never expire.
func (i Inventory) Expired(now time.Time) bool {
	if i.NeverExpires || i.BestBeforeDate == nil {
		return false
	}
	return i.BestBeforeDate.Before(now)
}

// Clone returns a deep copy so callers can mutate the result freely.
func (i Inventory) Clone() Inventory {
	out := i
	if i.AveragePrice != nil {
		v := *i.AveragePrice
		out.AveragePrice = &v
	}
	if i.Amount != nil {
		v := *i.Amount
		out.Amount = &v
	}
	if i.BestBeforeDate != nil {
		v := *i.BestBeforeDate
		out.BestBeforeDate = &v
	}
	return out
}

// DeleteStatus reports what happened to a single id in a batch delete.
type DeleteStatus string

const (
	DeleteStatusDeleted  DeleteStatus = "deleted"
	DeleteStatusNotFound DeleteStatus = "not_found"
)

// DeleteResult is the per-id outcome of a batch delete.
type DeleteResult struct {
	ID     string       `json:"id"`
	Status DeleteStatus `json:"status"`
	Record *Inventory   `json:"record,omitempty"`
}

// FilterParams is the typed filter contract. Nil fields impose no constraint.
type FilterParams struct {
	Unit       *UnitOfMeasurement
	Amount     *decimal.Decimal
	BestBefore *time.Time
}
