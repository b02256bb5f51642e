package inventory

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mamadbah2/inventory/internal/domain/models"
	"github.com/mamadbah2/inventory/internal/repository"
)

// ErrInvalidFilter indicates a filter request that names an unknown field or
// operator, or carries a value that does not parse for the field.
var ErrInvalidFilter = errors.New("invalid filter request")

// ErrUnknownField indicates a sort request on a field the record does not have.
var ErrUnknownField = errors.New("unknown field")

// Legacy filter operators accepted by FilterRetrieve.
const (
	OperatorLessThan    = "lt"
	OperatorGreaterThan = "gt"
	OperatorIs          = "is"
)

// Store describes the inventory operations exposed to callers.
type Store interface {
	FindAll(ctx context.Context) ([]models.Inventory, error)
	FindSorted(ctx context.Context, field, direction string) ([]models.Inventory, error)
	Filter(ctx context.Context, params models.FilterParams) ([]models.Inventory, error)
	FilterRetrieve(ctx context.Context, term, operator, value string) ([]models.Inventory, error)
	Create(ctx context.Context, record models.Inventory) (models.Inventory, error)
	Retrieve(ctx context.Context, id string) (*models.Inventory, error)
	Update(ctx context.Context, id string, record models.Inventory) (*models.Inventory, error)
	UpdateExisting(ctx context.Context, id string, record models.Inventory) (*models.Inventory, error)
	Delete(ctx context.Context, ids []string) ([]models.DeleteResult, error)
}

// Service implements Store on top of a repository.DocumentStore.
type Service struct {
	store  repository.DocumentStore
	logger *zap.Logger
}

var _ Store = (*Service)(nil)

// NewService constructs the inventory service and ensures the name and
// productType indexes exist.
func NewService(ctx context.Context, store repository.DocumentStore, logger *zap.Logger) (*Service, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	for _, field := range []models.Field{models.FieldName, models.FieldProductType} {
		if err := store.EnsureIndex(ctx, field, models.Ascending); err != nil {
			return nil, fmt.Errorf("ensure %s index: %w", field.Key(), err)
		}
	}

	return &Service{store: store, logger: logger}, nil
}

// FindAll returns every record in no particular order.
func (s *Service) FindAll(ctx context.Context) ([]models.Inventory, error) {
	return s.store.FindAll(ctx)
}

// FindSorted orders every record by field. Only "asc" sorts ascending; any
// other direction sorts descending.
func (s *Service) FindSorted(ctx context.Context, field, direction string) ([]models.Inventory, error) {
	f, ok := models.ParseField(field)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}

	query := models.Query{
		Sort:      &models.Sort{Field: f, Direction: models.ParseDirection(direction)},
		Collation: models.NumericCollation(),
	}
	s.logger.Debug("find sorted", zap.String("field", f.Key()), zap.String("direction", direction))
	return s.store.Find(ctx, query)
}

// Filter ANDs together the criteria for every parameter that is set: unit
// equality, amount equality and a best-before date strictly before the given
// instant. With no parameters every record matches.
func (s *Service) Filter(ctx context.Context, params models.FilterParams) ([]models.Inventory, error) {
	var criteria []models.Criterion
	if params.Unit != nil {
		criteria = append(criteria, models.Criterion{Field: models.FieldUnitOfMeasurement, Op: models.OpEq, Value: *params.Unit})
	}
	if params.Amount != nil {
		criteria = append(criteria, models.Criterion{Field: models.FieldAmount, Op: models.OpEq, Value: *params.Amount})
	}
	if params.BestBefore != nil {
		criteria = append(criteria, models.Criterion{Field: models.FieldBestBeforeDate, Op: models.OpLt, Value: params.BestBefore.UTC()})
	}

	s.logger.Debug("filter inventory", zap.Int("criteria", len(criteria)))
	return s.store.Find(ctx, models.Query{Criteria: criteria, Collation: models.NumericCollation()})
}

// FilterRetrieve builds a single criterion from loosely typed input. operator
// is one of lt, gt or is; any other operator must be a unit name and matches
// term against that unit. Requests that cannot be interpreted return
// ErrInvalidFilter and a nil slice. Valid requests return a non-nil slice.
func (s *Service) FilterRetrieve(ctx context.Context, term, operator, value string) ([]models.Inventory, error) {
	criterion, err := parseCriterion(term, operator, value)
	if err != nil {
		s.logger.Debug("rejected filter request",
			zap.String("term", term), zap.String("operator", operator), zap.Error(err))
		return nil, err
	}

	s.logger.Debug("filter retrieve",
		zap.String("term", criterion.Field.Key()), zap.Stringer("op", criterion.Op))
	return s.store.Find(ctx, models.Query{
		Criteria:  []models.Criterion{criterion},
		Collation: models.NumericCollation(),
	})
}

func parseCriterion(term, operator, value string) (models.Criterion, error) {
	field, ok := models.ParseField(term)
	if !ok {
		return models.Criterion{}, fmt.Errorf("%w: unknown term %q", ErrInvalidFilter, term)
	}

	var op models.Operator
	switch operator {
	case OperatorLessThan:
		op = models.OpLt
	case OperatorGreaterThan:
		op = models.OpGt
	case OperatorIs:
		op = models.OpEq
	default:
		if !models.IsValidUnit(operator) {
			return models.Criterion{}, fmt.Errorf("%w: unknown operator %q", ErrInvalidFilter, operator)
		}
		return models.Criterion{Field: field, Op: models.OpEq, Value: models.UnitOfMeasurement(operator)}, nil
	}

	typed, err := field.ParseValue(value)
	if err != nil {
		return models.Criterion{}, fmt.Errorf("%w: %w", ErrInvalidFilter, err)
	}
	return models.Criterion{Field: field, Op: op, Value: typed}, nil
}

// Create discards any client supplied id and inserts the record.
func (s *Service) Create(ctx context.Context, record models.Inventory) (models.Inventory, error) {
	record.ID = ""

	created, err := s.store.Insert(ctx, record)
	if err != nil {
		return models.Inventory{}, err
	}

	s.logger.Info("inventory created", zap.String("id", created.ID), zap.String("name", created.Name))
	return created, nil
}

// Retrieve returns the record with the given id, or nil when there is none.
func (s *Service) Retrieve(ctx context.Context, id string) (*models.Inventory, error) {
	return s.store.FindByID(ctx, id)
}

// Update replaces every mutable field of the record identified by id,
// creating it with that id when it does not exist. The input record is
// returned with its id set; the store is not re-read.
func (s *Service) Update(ctx context.Context, id string, record models.Inventory) (*models.Inventory, error) {
	if err := s.store.Upsert(ctx, id, models.MutableAssignments(record)); err != nil {
		return nil, err
	}

	record.ID = id
	s.logger.Info("inventory upserted", zap.String("id", id))
	return &record, nil
}

// UpdateExisting behaves like Update but never creates a record. It returns
// nil without writing anything when id is unknown.
func (s *Service) UpdateExisting(ctx context.Context, id string, record models.Inventory) (*models.Inventory, error) {
	found, err := s.store.UpdateExisting(ctx, id, models.MutableAssignments(record))
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}

	record.ID = id
	s.logger.Info("inventory updated", zap.String("id", id))
	return &record, nil
}

// Delete removes each id in turn and reports the outcome per id. The batch is
// not atomic: on a store error the outcomes so far are returned along with
// the error and the remaining ids are left untouched.
func (s *Service) Delete(ctx context.Context, ids []string) ([]models.DeleteResult, error) {
	results := make([]models.DeleteResult, 0, len(ids))
	for _, id := range ids {
		removed, err := s.store.FindAndRemove(ctx, id)
		if err != nil {
			s.logger.Warn("batch delete interrupted",
				zap.String("id", id), zap.Int("completed", len(results)), zap.Error(err))
			return results, fmt.Errorf("delete %s: %w", id, err)
		}

		if removed == nil {
			results = append(results, models.DeleteResult{ID: id, Status: models.DeleteStatusNotFound})
			continue
		}
		results = append(results, models.DeleteResult{ID: id, Status: models.DeleteStatusDeleted, Record: removed})
	}

	s.logger.Info("inventory deleted", zap.Int("requested", len(ids)), zap.Int("deleted", countDeleted(results)))
	return results, nil
}

// LastDeleted returns the record removed last in a batch, or nil when nothing was removed.
func LastDeleted(results []models.DeleteResult) *models.Inventory {
	for i := len(results) - 1; i >= 0; i-- {
		if results[i].Status == models.DeleteStatusDeleted {
			return results[i].Record
		}
	}
	return nil
}

func countDeleted(results []models.DeleteResult) int {
	n := 0
	for _, r := range results {
		if r.Status == models.DeleteStatusDeleted {
			n++
		}
	}
	return n
}
