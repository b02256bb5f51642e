package inventory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/inventory/internal/domain/models"
	"github.com/mamadbah2/inventory/internal/repository"
	"github.com/mamadbah2/inventory/internal/repository/memory"
)

const (
	testName        = "Amber"
	testProductType = "Hops"
)

var testAmounts = []int64{0, 1, 5, 14, 15, 24}

func newTestService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	svc, err := NewService(context.Background(), store, nil)
	require.NoError(t, err)
	return svc, store
}

func dec(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

// seed inserts one record per test amount, pairing each with a unit and a
// best-before date one day apart starting at base.
func seed(t *testing.T, svc *Service, base time.Time) {
	t.Helper()
	units := models.Units()
	for i, amount := range testAmounts {
		date := base.AddDate(0, 0, i)
		_, err := svc.Create(context.Background(), models.Inventory{
			Name:              testName,
			ProductType:       testProductType,
			Amount:            dec(amount),
			UnitOfMeasurement: units[i],
			BestBeforeDate:    &date,
		})
		require.NoError(t, err)
	}
}

func amounts(items []models.Inventory) []int64 {
	out := make([]int64, 0, len(items))
	for _, it := range items {
		out = append(out, it.Amount.IntPart())
	}
	return out
}

func TestNewServiceEnsuresIndexes(t *testing.T) {
	_, store := newTestService(t)
	assert.Equal(t, map[models.Field]models.Direction{
		models.FieldName:        models.Ascending,
		models.FieldProductType: models.Ascending,
	}, store.Indexes())
}

func TestCreateDiscardsClientID(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	created, err := svc.Create(ctx, models.Inventory{ID: "client-id", Name: testName, ProductType: testProductType})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.NotEqual(t, "client-id", created.ID)

	all, err := svc.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)

	assert.Equal(t, created, all[0])
}

func TestFindAllContainsCreatedRecord(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	date := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

	input := models.Inventory{
		Name:              testName,
		ProductType:       testProductType,
		Description:       "pale",
		AveragePrice:      dec(3),
		Amount:            dec(7),
		UnitOfMeasurement: models.UnitPound,
		BestBeforeDate:    &date,
		NeverExpires:      true,
	}
	created, err := svc.Create(ctx, input)
	require.NoError(t, err)

	all, err := svc.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)

	got := all[0]
	got.ID = ""
	assert.Equal(t, input, got)
	assert.Equal(t, created.ID, all[0].ID)
}

func TestRetrieveUnknownIsAbsent(t *testing.T) {
	svc, _ := newTestService(t)
	got, err := svc.Retrieve(context.Background(), "never-inserted")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDeleteRemovesRecord(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	created, err := svc.Create(ctx, models.Inventory{Name: testName, ProductType: testProductType})
	require.NoError(t, err)

	results, err := svc.Delete(ctx, []string{created.ID})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, models.DeleteStatusDeleted, results[0].Status)
	require.NotNil(t, results[0].Record)
	assert.Equal(t, created.ID, results[0].Record.ID)

	all, err := svc.FindAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	got, err := svc.Retrieve(ctx, created.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDeleteReportsPerID(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	a, _ := svc.Create(ctx, models.Inventory{Name: "a"})
	b, _ := svc.Create(ctx, models.Inventory{Name: "b"})

	results, err := svc.Delete(ctx, []string{a.ID, "missing", b.ID, a.ID})
	require.NoError(t, err)
	require.Len(t, results, 4)

	statuses := make([]models.DeleteStatus, 0, len(results))
	for _, r := range results {
		statuses = append(statuses, r.Status)
	}
	assert.Equal(t, []models.DeleteStatus{
		models.DeleteStatusDeleted,
		models.DeleteStatusNotFound,
		models.DeleteStatusDeleted,
		models.DeleteStatusNotFound,
	}, statuses)

	last := LastDeleted(results)
	require.NotNil(t, last)
	assert.Equal(t, b.ID, last.ID)
}

func TestDeleteEmpty(t *testing.T) {
	svc, _ := newTestService(t)
	results, err := svc.Delete(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Nil(t, LastDeleted(results))
}

// flakyStore fails FindAndRemove for one id.
type flakyStore struct {
	*memory.Store
	failOn string
}

func (f *flakyStore) FindAndRemove(ctx context.Context, id string) (*models.Inventory, error) {
	if id == f.failOn {
		return nil, repository.ErrStoreUnavailable
	}
	return f.Store.FindAndRemove(ctx, id)
}

func TestDeleteIsNotAtomic(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{Store: memory.NewStore(), failOn: "boom"}
	svc, err := NewService(ctx, store, nil)
	require.NoError(t, err)

	a, _ := svc.Create(ctx, models.Inventory{Name: "a"})
	b, _ := svc.Create(ctx, models.Inventory{Name: "b"})

	results, err := svc.Delete(ctx, []string{a.ID, "boom", b.ID})
	require.Error(t, err)
	assert.ErrorIs(t, err, repository.ErrStoreUnavailable)
	require.Len(t, results, 1)
	assert.Equal(t, a.ID, results[0].ID)

	all, _ := svc.FindAll(ctx)
	require.Len(t, all, 1)
	assert.Equal(t, b.ID, all[0].ID)
}

func TestFilterRetrieveAmount(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	seed(t, svc, time.Now().UTC())

	got, err := svc.FilterRetrieve(ctx, "amount", "lt", "14")
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{0, 1, 5}, amounts(got))

	got, err = svc.FilterRetrieve(ctx, "amount", "gt", "14")
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{15, 24}, amounts(got))

	got, err = svc.FilterRetrieve(ctx, "amount", "is", "5")
	require.NoError(t, err)
	assert.Equal(t, []int64{5}, amounts(got))
}

func TestFilterRetrieveIsNumeric(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	_, _ = svc.Create(ctx, models.Inventory{Name: "nine", Amount: dec(9)})
	_, _ = svc.Create(ctx, models.Inventory{Name: "ten", Amount: dec(10)})

	got, err := svc.FilterRetrieve(ctx, "amount", "lt", "10")
	require.NoError(t, err)
	assert.Equal(t, []int64{9}, amounts(got))

	got, err = svc.FilterRetrieve(ctx, "amount", "gt", "9")
	require.NoError(t, err)
	assert.Equal(t, []int64{10}, amounts(got))
}

func TestFilterRetrieveBestBeforeDate(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	base := time.Date(2025, 3, 1, 8, 30, 0, 0, time.UTC)
	seed(t, svc, base)

	pivot := base.AddDate(0, 0, 2).Format("2006-01-02T15:04:05.000Z")

	got, err := svc.FilterRetrieve(ctx, "bestBeforeDate", "lt", pivot)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{0, 1}, amounts(got))

	got, err = svc.FilterRetrieve(ctx, "bestBeforeDate", "is", pivot)
	require.NoError(t, err)
	assert.Equal(t, []int64{5}, amounts(got))

	got, err = svc.FilterRetrieve(ctx, "bestBeforeDate", "gt", pivot)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{14, 15, 24}, amounts(got))
}

func TestFilterRetrieveUnitAsOperator(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	seed(t, svc, time.Now().UTC())

	got, err := svc.FilterRetrieve(ctx, "unitOfMeasurement", "CUP", "0")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, models.UnitCup, got[0].UnitOfMeasurement)

	got, err = svc.FilterRetrieve(ctx, "unitOfMeasurement", "is", "QUART")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, models.UnitQuart, got[0].UnitOfMeasurement)
}

func TestFilterRetrieveInvalid(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	seed(t, svc, time.Now().UTC())

	cases := []struct{ term, op, value string }{
		{"amount", "bogus", "x"},
		{"amount", "c", "0"},
		{"amount", "lt", "many"},
		{"price", "lt", "5"},
		{"bestBeforeDate", "gt", "tomorrow"},
	}
	for _, tc := range cases {
		got, err := svc.FilterRetrieve(ctx, tc.term, tc.op, tc.value)
		assert.ErrorIs(t, err, ErrInvalidFilter, "%+v", tc)
		assert.Nil(t, got, "%+v", tc)
	}
}

func TestFilterRetrieveNoMatchIsEmptyNotNil(t *testing.T) {
	svc, _ := newTestService(t)
	got, err := svc.FilterRetrieve(context.Background(), "amount", "gt", "1000")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestFindSortedNumericOrder(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	for _, i := range []int{3, 0, 5, 1, 4, 2} {
		_, err := svc.Create(ctx, models.Inventory{Name: testName, Amount: dec(testAmounts[i])})
		require.NoError(t, err)
	}

	got, err := svc.FindSorted(ctx, "amount", "asc")
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 1, 5, 14, 15, 24}, amounts(got))

	got, err = svc.FindSorted(ctx, "amount", "desc")
	require.NoError(t, err)
	assert.Equal(t, []int64{24, 15, 14, 5, 1, 0}, amounts(got))

	got, err = svc.FindSorted(ctx, "amount", "sideways")
	require.NoError(t, err)
	assert.Equal(t, []int64{24, 15, 14, 5, 1, 0}, amounts(got))
}

func TestFindSortedUnknownField(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.FindSorted(context.Background(), "colour", "asc")
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestFilterTypedTriple(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	seed(t, svc, base)
	_, err := svc.Create(ctx, models.Inventory{Name: "extra", Amount: dec(5), UnitOfMeasurement: models.UnitOunce})
	require.NoError(t, err)

	got, err := svc.Filter(ctx, models.FilterParams{})
	require.NoError(t, err)
	assert.Len(t, got, 7)

	ounce := models.UnitOunce
	got, err = svc.Filter(ctx, models.FilterParams{Unit: &ounce})
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{5, 5}, amounts(got))

	got, err = svc.Filter(ctx, models.FilterParams{Unit: &ounce, Amount: dec(5)})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	before := base.AddDate(0, 0, 3)
	got, err = svc.Filter(ctx, models.FilterParams{BestBefore: &before})
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{0, 1, 5}, amounts(got))

	got, err = svc.Filter(ctx, models.FilterParams{Unit: &ounce, Amount: dec(5), BestBefore: &before})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, testName, got[0].Name)

	got, err = svc.Filter(ctx, models.FilterParams{Amount: dec(99)})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestUpdateReplacesAllFields(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	created, err := svc.Create(ctx, models.Inventory{
		Name: testName, ProductType: testProductType, Amount: dec(1), UnitOfMeasurement: models.UnitCup,
	})
	require.NoError(t, err)

	date := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	changed := models.Inventory{
		Name:              "Pilsner",
		ProductType:       "Malt",
		Description:       "light",
		AveragePrice:      dec(12),
		Amount:            dec(40),
		UnitOfMeasurement: models.UnitPound,
		BestBeforeDate:    &date,
		NeverExpires:      true,
	}

	updated, err := svc.Update(ctx, created.ID, changed)
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, created.ID, updated.ID)

	got, err := svc.Retrieve(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got)

	want := changed
	want.ID = created.ID
	assert.Equal(t, want, *got)
}

func TestUpdateUpsertsMissingID(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	updated, err := svc.Update(ctx, "new-id", models.Inventory{Name: testName})
	require.NoError(t, err)
	require.NotNil(t, updated)

	got, err := svc.Retrieve(ctx, "new-id")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, testName, got.Name)
}

func TestUpdateExistingSkipsUnknownID(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	updated, err := svc.UpdateExisting(ctx, "ghost", models.Inventory{Name: testName})
	require.NoError(t, err)
	assert.Nil(t, updated)

	all, err := svc.FindAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	created, _ := svc.Create(ctx, models.Inventory{Name: "old"})
	updated, err = svc.UpdateExisting(ctx, created.ID, models.Inventory{Name: "new"})
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, created.ID, updated.ID)

	got, _ := svc.Retrieve(ctx, created.ID)
	assert.Equal(t, "new", got.Name)
}

// unavailableStore fails every call.
type unavailableStore struct {
	repository.DocumentStore
}

func (unavailableStore) EnsureIndex(context.Context, models.Field, models.Direction) error {
	return nil
}

func (unavailableStore) FindAll(context.Context) ([]models.Inventory, error) {
	return nil, repository.ErrStoreUnavailable
}

func (unavailableStore) Insert(context.Context, models.Inventory) (models.Inventory, error) {
	return models.Inventory{}, repository.ErrStoreUnavailable
}

func TestStoreUnavailablePropagates(t *testing.T) {
	ctx := context.Background()
	svc, err := NewService(ctx, unavailableStore{}, nil)
	require.NoError(t, err)

	_, err = svc.FindAll(ctx)
	assert.True(t, errors.Is(err, repository.ErrStoreUnavailable))

	_, err = svc.Create(ctx, models.Inventory{Name: testName})
	assert.ErrorIs(t, err, repository.ErrStoreUnavailable)
}
