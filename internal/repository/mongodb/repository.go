package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/inventory/internal/config"
	"github.com/mamadbah2/inventory/internal/domain/models"
	"github.com/mamadbah2/inventory/internal/repository"
)

// MongoDBRepository implements repository.DocumentStore for MongoDB.
type MongoDBRepository struct {
	client     *mongo.Client
	collection *mongo.Collection
	timeout    time.Duration
}

var _ repository.DocumentStore = (*MongoDBRepository)(nil)

// document wraps an inventory record with its raw _id, which is an ObjectID
// for store-assigned ids and a string for ids created through upsert.
type document struct {
	ID               any `bson:"_id,omitempty"`
	models.Inventory `bson:",inline"`
}

func (d document) toModel() models.Inventory {
	inv := d.Inventory
	inv.ID = idString(d.ID)
	return inv
}

// NewMongoDBRepository creates a new MongoDB repository.
func NewMongoDBRepository(ctx context.Context, cfg config.MongoDBConfig) (*MongoDBRepository, error) {
	clientOptions := options.Client().
		ApplyURI(cfg.URI).
		SetRegistry(newRegistry())
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	// Ping the database to verify connection
	pingCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w: %w", repository.ErrStoreUnavailable, err)
	}

	return &MongoDBRepository{
		client:     client,
		collection: client.Database(cfg.DBName).Collection(cfg.Collection),
		timeout:    cfg.Timeout,
	}, nil
}

// Insert stores the record and returns it with the generated id.
func (r *MongoDBRepository) Insert(ctx context.Context, doc models.Inventory) (models.Inventory, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	res, err := r.collection.InsertOne(ctx, document{Inventory: doc})
	if err != nil {
		return models.Inventory{}, wrapErr("insert inventory", err)
	}
	doc.ID = idString(res.InsertedID)
	return doc, nil
}

// FindAll returns every record in natural order.
func (r *MongoDBRepository) FindAll(ctx context.Context) ([]models.Inventory, error) {
	return r.Find(ctx, models.Query{})
}

// FindByID returns the record with the given id, or nil when none matches.
func (r *MongoDBRepository) FindByID(ctx context.Context, id string) (*models.Inventory, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var doc document
	err := r.collection.FindOne(ctx, idFilter(id)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr("find inventory by id", err)
	}
	inv := doc.toModel()
	return &inv, nil
}

// Find runs the query with its sort and collation.
func (r *MongoDBRepository) Find(ctx context.Context, query models.Query) ([]models.Inventory, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	cursor, err := r.collection.Find(ctx, buildFilter(query.Criteria), findOptions(query))
	if err != nil {
		return nil, wrapErr("find inventory", err)
	}

	var docs []document
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, wrapErr("decode inventory", err)
	}

	out := make([]models.Inventory, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toModel())
	}
	return out, nil
}

// Upsert sets the assigned fields on the matching record, inserting it when absent.
func (r *MongoDBRepository) Upsert(ctx context.Context, id string, set []models.Assignment) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	_, err := r.collection.UpdateOne(ctx, idFilter(id), buildSet(set), options.Update().SetUpsert(true))
	if err != nil {
		return wrapErr("upsert inventory", err)
	}
	return nil
}

// UpdateExisting sets the assigned fields only when the record exists.
func (r *MongoDBRepository) UpdateExisting(ctx context.Context, id string, set []models.Assignment) (bool, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	res, err := r.collection.UpdateOne(ctx, idFilter(id), buildSet(set))
	if err != nil {
		return false, wrapErr("update inventory", err)
	}
	return res.MatchedCount > 0, nil
}

// FindAndRemove deletes the matching record and returns it, or nil when none matched.
func (r *MongoDBRepository) FindAndRemove(ctx context.Context, id string) (*models.Inventory, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var doc document
	err := r.collection.FindOneAndDelete(ctx, idFilter(id)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr("delete inventory", err)
	}
	inv := doc.toModel()
	return &inv, nil
}

// EnsureIndex creates a single-field index. MongoDB ignores requests for an
// index that already exists.
func (r *MongoDBRepository) EnsureIndex(ctx context.Context, field models.Field, direction models.Direction) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: field.Key(), Value: int(direction)}},
	})
	if err != nil {
		return wrapErr("ensure index "+field.Key(), err)
	}
	return nil
}

// Close closes the MongoDB connection.
func (r *MongoDBRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

func (r *MongoDBRepository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}

// buildFilter translates criteria into a BSON filter. Several criteria are
// combined with $and so the same field may appear more than once.
func buildFilter(criteria []models.Criterion) bson.D {
	switch len(criteria) {
	case 0:
		return bson.D{}
	case 1:
		return bson.D{condition(criteria[0])}
	}

	clauses := make(bson.A, 0, len(criteria))
	for _, c := range criteria {
		clauses = append(clauses, bson.D{condition(c)})
	}
	return bson.D{{Key: "$and", Value: clauses}}
}

func condition(c models.Criterion) bson.E {
	value := c.Value
	if c.Field == models.FieldID {
		if s, ok := value.(string); ok {
			value = idValue(s)
		}
	}

	switch c.Op {
	case models.OpLt:
		return bson.E{Key: c.Field.Key(), Value: bson.D{{Key: "$lt", Value: value}}}
	case models.OpGt:
		return bson.E{Key: c.Field.Key(), Value: bson.D{{Key: "$gt", Value: value}}}
	default:
		return bson.E{Key: c.Field.Key(), Value: value}
	}
}

func findOptions(query models.Query) *options.FindOptions {
	opts := options.Find()
	if query.Sort != nil {
		opts.SetSort(bson.D{{Key: query.Sort.Field.Key(), Value: int(query.Sort.Direction)}})
	}
	if query.Collation != nil {
		opts.SetCollation(&options.Collation{
			Locale:          query.Collation.Locale,
			NumericOrdering: query.Collation.NumericOrdering,
		})
	}
	return opts
}

func buildSet(set []models.Assignment) bson.D {
	fields := make(bson.D, 0, len(set))
	for _, a := range set {
		fields = append(fields, bson.E{Key: a.Field.Key(), Value: a.Value})
	}
	return bson.D{{Key: "$set", Value: fields}}
}

func idFilter(id string) bson.D {
	return bson.D{{Key: "_id", Value: idValue(id)}}
}

// idValue matches 24-hex-digit ids as ObjectIDs and everything else verbatim.
func idValue(id string) any {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return oid
	}
	return id
}

func idString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case primitive.ObjectID:
		return t.Hex()
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}

func wrapErr(op string, err error) error {
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) || errors.Is(err, mongo.ErrClientDisconnected) {
		return fmt.Errorf("%s: %w: %w", op, repository.ErrStoreUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
