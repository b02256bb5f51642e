package models

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Field identifies a filterable or sortable inventory attribute.
type Field int

const (
	FieldID Field = iota
	FieldName
	FieldProductType
	FieldDescription
	FieldAveragePrice
	FieldAmount
	FieldUnitOfMeasurement
	FieldBestBeforeDate
	FieldNeverExpires
)

var fieldKeys = [...]string{
	FieldID:                "_id",
	FieldName:              "name",
	FieldProductType:       "productType",
	FieldDescription:       "description",
	FieldAveragePrice:      "averagePrice",
	FieldAmount:            "amount",
	FieldUnitOfMeasurement: "unitOfMeasurement",
	FieldBestBeforeDate:    "bestBeforeDate",
	FieldNeverExpires:      "neverExpires",
}

// Key returns the document key the field is stored under.
func (f Field) Key() string {
	if f < 0 || int(f) >= len(fieldKeys) {
		return ""
	}
	return fieldKeys[f]
}

func (f Field) String() string {
	return f.Key()
}

// ParseField resolves a document key into a Field. "id" is accepted as an
// alias of "_id".
func ParseField(key string) (Field, bool) {
	if key == "id" {
		return FieldID, true
	}
	for i, k := range fieldKeys {
		if k == key {
			return Field(i), true
		}
	}
	return 0, false
}

// ParseValue converts a textual value into the typed value stored for the field.
func (f Field) ParseValue(raw string) (any, error) {
	switch f {
	case FieldAveragePrice, FieldAmount:
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", f.Key(), err)
		}
		return d, nil
	case FieldBestBeforeDate:
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", f.Key(), err)
		}
		return t.UTC(), nil
	case FieldUnitOfMeasurement:
		return ParseUnit(raw)
	case FieldNeverExpires:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", f.Key(), err)
		}
		return b, nil
	case FieldID, FieldName, FieldProductType, FieldDescription:
		return raw, nil
	default:
		return nil, fmt.Errorf("unknown field %d", int(f))
	}
}

// Operator is a comparison applied by a Criterion.
type Operator int

const (
	OpEq Operator = iota
	OpLt
	OpGt
)

func (o Operator) String() string {
	switch o {
	case OpEq:
		return "eq"
	case OpLt:
		return "lt"
	case OpGt:
		return "gt"
	default:
		return "unknown"
	}
}

// Criterion is a single field comparison. Value holds the typed form produced
// by Field.ParseValue.
type Criterion struct {
	Field Field
	Op    Operator
	Value any
}

// Direction is a sort direction.
type Direction int

const (
	Ascending  Direction = 1
	Descending Direction = -1
)

// ParseDirection maps "asc" to Ascending and anything else to Descending.
func ParseDirection(s string) Direction {
	if s == "asc" {
		return Ascending
	}
	return Descending
}

// Sort orders query results by a single field.
type Sort struct {
	Field     Field
	Direction Direction
}

// Collation controls string comparison in queries.
type Collation struct {
	Locale          string
	NumericOrdering bool
}

// NumericCollation compares numeric-looking text by magnitude, so "9" < "10".
func NumericCollation() *Collation {
	return &Collation{Locale: "en", NumericOrdering: true}
}

// Query is a conjunction of criteria with optional ordering and collation.
type Query struct {
	Criteria  []Criterion
	Sort      *Sort
	Collation *Collation
}

// Assignment sets a single field during an update. A nil Value clears it.
type Assignment struct {
	Field Field
	Value any
}

// MutableAssignments lists every field replaced by an update, in a stable order.
func MutableAssignments(i Inventory) []Assignment {
	var unit any
	if i.UnitOfMeasurement != "" {
		unit = i.UnitOfMeasurement
	}
	return []Assignment{
		{Field: FieldName, Value: i.Name},
		{Field: FieldProductType, Value: i.ProductType},
		{Field: FieldDescription, Value: i.Description},
		{Field: FieldAveragePrice, Value: decimalValue(i.AveragePrice)},
		{Field: FieldAmount, Value: decimalValue(i.Amount)},
		{Field: FieldUnitOfMeasurement, Value: unit},
		{Field: FieldBestBeforeDate, Value: timeValue(i.BestBeforeDate)},
		{Field: FieldNeverExpires, Value: i.NeverExpires},
	}
}

func decimalValue(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return *d
}

func timeValue(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
