// Package memory implements repository.DocumentStore in process memory.
// Text comparisons follow the query collation, so numeric-looking strings are
// ordered by magnitude the same way the MongoDB adapter orders them.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/mamadbah2/inventory/internal/domain/models"
)

// Store keeps inventory documents in a map guarded by a RWMutex.
type Store struct {
	mu      sync.RWMutex
	docs    map[string]models.Inventory
	order   []string
	indexes map[models.Field]models.Direction
	newID   func() string
}

// NewStore returns an empty in-memory document store.
func NewStore() *Store {
	return &Store{
		docs:    make(map[string]models.Inventory),
		indexes: make(map[models.Field]models.Direction),
		newID:   uuid.NewString,
	}
}

// Insert stores a copy of doc under a freshly generated id.
func (s *Store) Insert(_ context.Context, doc models.Inventory) (models.Inventory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc = doc.Clone()
	doc.ID = s.newID()
	s.put(doc)
	return doc.Clone(), nil
}

// FindAll returns every document in insertion order.
func (s *Store) FindAll(_ context.Context) ([]models.Inventory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Inventory, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.docs[id].Clone())
	}
	return out, nil
}

// FindByID returns the document with the given id, or nil.
func (s *Store) FindByID(_ context.Context, id string) (*models.Inventory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[id]
	if !ok {
		return nil, nil
	}
	doc = doc.Clone()
	return &doc, nil
}

// Find evaluates the query criteria against every document and applies the sort.
func (s *Store) Find(_ context.Context, query models.Query) ([]models.Inventory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cmp := newComparer(query.Collation)
	out := make([]models.Inventory, 0)
	for _, id := range s.order {
		doc := s.docs[id]
		if cmp.matchesAll(doc, query.Criteria) {
			out = append(out, doc.Clone())
		}
	}

	if query.Sort != nil {
		field, dir := query.Sort.Field, query.Sort.Direction
		sort.SliceStable(out, func(i, j int) bool {
			c := cmp.compareFields(out[i], out[j], field)
			if dir == models.Descending {
				return c > 0
			}
			return c < 0
		})
	}
	return out, nil
}

// Upsert applies the assignments to the document with the given id, creating
// it when it does not exist.
func (s *Store) Upsert(_ context.Context, id string, set []models.Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[id]
	if !ok {
		doc = models.Inventory{ID: id}
	}
	if err := applyAll(&doc, set); err != nil {
		return err
	}
	s.put(doc)
	return nil
}

// UpdateExisting applies the assignments only when the id exists.
func (s *Store) UpdateExisting(_ context.Context, id string, set []models.Assignment) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[id]
	if !ok {
		return false, nil
	}
	if err := applyAll(&doc, set); err != nil {
		return false, err
	}
	s.put(doc)
	return true, nil
}

// FindAndRemove deletes the document with the given id and returns it.
func (s *Store) FindAndRemove(_ context.Context, id string) (*models.Inventory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[id]
	if !ok {
		return nil, nil
	}
	delete(s.docs, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return &doc, nil
}

// EnsureIndex records the index. Lookups are linear regardless.
func (s *Store) EnsureIndex(_ context.Context, field models.Field, direction models.Direction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.indexes[field] = direction
	return nil
}

// Indexes returns the indexes registered so far.
func (s *Store) Indexes() map[models.Field]models.Direction {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[models.Field]models.Direction, len(s.indexes))
	for k, v := range s.indexes {
		out[k] = v
	}
	return out
}

// Close is a no-op.
func (s *Store) Close(context.Context) error {
	return nil
}

func (s *Store) put(doc models.Inventory) {
	if _, ok := s.docs[doc.ID]; !ok {
		s.order = append(s.order, doc.ID)
	}
	s.docs[doc.ID] = doc
}

func applyAll(doc *models.Inventory, set []models.Assignment) error {
	for _, a := range set {
		if err := apply(doc, a); err != nil {
			return err
		}
	}
	return nil
}

func apply(doc *models.Inventory, a models.Assignment) error {
	switch a.Field {
	case models.FieldName:
		v, _ := a.Value.(string)
		doc.Name = v
	case models.FieldProductType:
		v, _ := a.Value.(string)
		doc.ProductType = v
	case models.FieldDescription:
		v, _ := a.Value.(string)
		doc.Description = v
	case models.FieldAveragePrice:
		doc.AveragePrice = decimalPtr(a.Value)
	case models.FieldAmount:
		doc.Amount = decimalPtr(a.Value)
	case models.FieldUnitOfMeasurement:
		switch v := a.Value.(type) {
		case models.UnitOfMeasurement:
			doc.UnitOfMeasurement = v
		case string:
			doc.UnitOfMeasurement = models.UnitOfMeasurement(v)
		default:
			doc.UnitOfMeasurement = ""
		}
	case models.FieldBestBeforeDate:
		if v, ok := a.Value.(time.Time); ok {
			doc.BestBeforeDate = &v
		} else {
			doc.BestBeforeDate = nil
		}
	case models.FieldNeverExpires:
		v, _ := a.Value.(bool)
		doc.NeverExpires = v
	default:
		return fmt.Errorf("field %s cannot be assigned", a.Field)
	}
	return nil
}

func decimalPtr(v any) *decimal.Decimal {
	d, ok := v.(decimal.Decimal)
	if !ok {
		return nil
	}
	return &d
}

// comparer orders values of a single type. Values of different types are
// incomparable and never satisfy a criterion.
type comparer struct {
	collator *collate.Collator
}

func newComparer(c *models.Collation) *comparer {
	if c == nil {
		return &comparer{}
	}
	tag, err := language.Parse(c.Locale)
	if err != nil {
		tag = language.English
	}
	opts := []collate.Option{}
	if c.NumericOrdering {
		opts = append(opts, collate.Numeric)
	}
	return &comparer{collator: collate.New(tag, opts...)}
}

func (c *comparer) matchesAll(doc models.Inventory, criteria []models.Criterion) bool {
	for _, crit := range criteria {
		if !c.matches(doc, crit) {
			return false
		}
	}
	return true
}

func (c *comparer) matches(doc models.Inventory, crit models.Criterion) bool {
	v, ok := fieldValue(doc, crit.Field)
	if !ok {
		return false
	}
	res, ok := c.compare(v, crit.Value)
	if !ok {
		return false
	}
	switch crit.Op {
	case models.OpEq:
		return res == 0
	case models.OpLt:
		return res < 0
	case models.OpGt:
		return res > 0
	default:
		return false
	}
}

// compareFields orders missing values before present ones.
func (c *comparer) compareFields(a, b models.Inventory, field models.Field) int {
	av, aok := fieldValue(a, field)
	bv, bok := fieldValue(b, field)
	switch {
	case !aok && !bok:
		return 0
	case !aok:
		return -1
	case !bok:
		return 1
	}
	res, _ := c.compare(av, bv)
	return res
}

func (c *comparer) compare(a, b any) (int, bool) {
	a, b = normalize(a), normalize(b)
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, false
		}
		if c.collator != nil {
			return c.collator.CompareString(av, bv), true
		}
		return strings.Compare(av, bv), true
	case decimal.Decimal:
		bv, ok := b.(decimal.Decimal)
		if !ok {
			return 0, false
		}
		return av.Cmp(bv), true
	case time.Time:
		bv, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		return av.Compare(bv), true
	case bool:
		bv, ok := b.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case av == bv:
			return 0, true
		case !av:
			return -1, true
		default:
			return 1, true
		}
	default:
		return 0, false
	}
}

func normalize(v any) any {
	switch t := v.(type) {
	case models.UnitOfMeasurement:
		return string(t)
	case *decimal.Decimal:
		if t == nil {
			return nil
		}
		return *t
	case *time.Time:
		if t == nil {
			return nil
		}
		return *t
	default:
		return v
	}
}

func fieldValue(doc models.Inventory, field models.Field) (any, bool) {
	switch field {
	case models.FieldID:
		return doc.ID, true
	case models.FieldName:
		return doc.Name, true
	case models.FieldProductType:
		return doc.ProductType, true
	case models.FieldDescription:
		return doc.Description, doc.Description != ""
	case models.FieldAveragePrice:
		if doc.AveragePrice == nil {
			return nil, false
		}
		return *doc.AveragePrice, true
	case models.FieldAmount:
		if doc.Amount == nil {
			return nil, false
		}
		return *doc.Amount, true
	case models.FieldUnitOfMeasurement:
		return doc.UnitOfMeasurement, doc.UnitOfMeasurement != ""
	case models.FieldBestBeforeDate:
		if doc.BestBeforeDate == nil {
			return nil, false
		}
		return *doc.BestBeforeDate, true
	case models.FieldNeverExpires:
		return doc.NeverExpires, true
	default:
		return nil, false
	}
}
