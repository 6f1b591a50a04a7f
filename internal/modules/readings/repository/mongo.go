package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"envmon/internal/modules/readings/types"
)

type mongoReading struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Timestamp   time.Time          `bson:"timestamp"`
	Temperature *float64           `bson:"temperature"`
	Humidity    *float64           `bson:"humidity"`
	Status      string             `bson:"status"`
}

type mongoStore struct {
	coll *mongo.Collection
}

// NewMongoStore stores readings as documents in coll. Call EnsureIndexes
// once at startup.
func NewMongoStore(coll *mongo.Collection) Store {
	return &mongoStore{coll: coll}
}

// EnsureIndexes creates the timestamp index used for ordering and range
// filters.
func EnsureIndexes(ctx context.Context, coll *mongo.Collection) error {
	_, err := coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "timestamp", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("create indexes: %w", err)
	}
	return nil
}

func mongoFilter(f types.Filter) bson.M {
	q := bson.M{}
	ts := bson.M{}
	if !f.Start.IsZero() {
		ts["$gte"] = f.Start.UTC()
	}
	if !f.End.IsZero() {
		ts["$lte"] = f.End.UTC()
	}
	if len(ts) > 0 {
		q["timestamp"] = ts
	}
	if f.Status != "" {
		q["status"] = string(f.Status)
	}
	return q
}

func (s *mongoStore) Insert(ctx context.Context, r types.Reading) (string, error) {
	doc := mongoReading{
		Timestamp:   r.Timestamp.UTC(),
		Temperature: r.Temperature,
		Humidity:    r.Humidity,
		Status:      string(r.Status),
	}
	res, err := s.coll.InsertOne(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("insert reading: %w", err)
	}
	id, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("insert reading: unexpected id type %T", res.InsertedID)
	}
	return id.Hex(), nil
}

func (s *mongoStore) Find(ctx context.Context, f types.Filter, dir types.SortDirection, skip int, limit int) ([]types.Reading, error) {
	order := -1
	if dir == types.Ascending {
		order = 1
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: order}, {Key: "_id", Value: order}}).
		SetSkip(int64(skip))
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := s.coll.Find(ctx, mongoFilter(f), opts)
	if err != nil {
		return nil, fmt.Errorf("find readings: %w", err)
	}
	var docs []mongoReading
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode readings: %w", err)
	}
	out := make([]types.Reading, 0, len(docs))
	for _, d := range docs {
		out = append(out, types.Reading{
			ID:          d.ID.Hex(),
			Timestamp:   d.Timestamp.UTC(),
			Temperature: d.Temperature,
			Humidity:    d.Humidity,
			Status:      types.Status(d.Status),
		})
	}
	return out, nil
}

func (s *mongoStore) Count(ctx context.Context, f types.Filter) (int, error) {
	n, err := s.coll.CountDocuments(ctx, mongoFilter(f))
	if err != nil {
		return 0, fmt.Errorf("count readings: %w", err)
	}
	return int(n), nil
}

func (s *mongoStore) AggregateNumeric(ctx context.Context, f types.Filter) (types.NumericAggregate, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: mongoFilter(f)}},
		{{Key: "$match", Value: bson.M{
			"temperature": bson.M{"$ne": nil},
			"humidity":    bson.M{"$ne": nil},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":      nil,
			"count":    bson.M{"$sum": 1},
			"avg_temp": bson.M{"$avg": "$temperature"},
			"min_temp": bson.M{"$min": "$temperature"},
			"max_temp": bson.M{"$max": "$temperature"},
			"avg_hum":  bson.M{"$avg": "$humidity"},
			"min_hum":  bson.M{"$min": "$humidity"},
			"max_hum":  bson.M{"$max": "$humidity"},
		}}},
	}
	cur, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return types.NumericAggregate{}, fmt.Errorf("aggregate readings: %w", err)
	}
	var rows []struct {
		Count   int     `bson:"count"`
		AvgTemp float64 `bson:"avg_temp"`
		MinTemp float64 `bson:"min_temp"`
		MaxTemp float64 `bson:"max_temp"`
		AvgHum  float64 `bson:"avg_hum"`
		MinHum  float64 `bson:"min_hum"`
		MaxHum  float64 `bson:"max_hum"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return types.NumericAggregate{}, fmt.Errorf("decode aggregate: %w", err)
	}
	if len(rows) == 0 {
		return types.NumericAggregate{}, nil
	}
	r := rows[0]
	return types.NumericAggregate{
		Count:       r.Count,
		Temperature: types.FieldStats{Avg: r.AvgTemp, Min: r.MinTemp, Max: r.MaxTemp},
		Humidity:    types.FieldStats{Avg: r.AvgHum, Min: r.MinHum, Max: r.MaxHum},
	}, nil
}

func (s *mongoStore) AggregateStatusCounts(ctx context.Context, f types.Filter) (map[types.Status]int, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: mongoFilter(f)}},
		{{Key: "$group", Value: bson.M{"_id": "$status", "count": bson.M{"$sum": 1}}}},
	}
	cur, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate statuses: %w", err)
	}
	var rows []struct {
		Status *string `bson:"_id"`
		Count  int     `bson:"count"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode statuses: %w", err)
	}
	out := make(map[types.Status]int, len(rows))
	for _, r := range rows {
		if r.Status == nil || *r.Status == "" {
			continue
		}
		out[types.Status(*r.Status)] = r.Count
	}
	return out, nil
}

func (s *mongoStore) Ping(ctx context.Context) error {
	if s.coll == nil {
		return errors.New("mongo collection not configured")
	}
	return s.coll.Database().Client().Ping(ctx, readpref.Primary())
}
