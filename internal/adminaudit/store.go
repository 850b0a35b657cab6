// Package adminaudit wires pkg/audit to a MongoDB-backed Storage so admin
// mutations (invoice status overrides, mark-paid) get a durable trail
// independent of the relational store (SPEC_FULL §12.5).
package adminaudit

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/korberlin/apigateway/pkg/audit"
)

const collectionName = "admin_audit_events"

// MongoStorage implements audit.Storage and audit.StorageCounter over a
// single MongoDB collection.
type MongoStorage struct {
	coll *mongo.Collection
}

// NewMongoStorage returns a Storage backed by db's admin_audit_events
// collection.
func NewMongoStorage(db *mongo.Database) *MongoStorage {
	return &MongoStorage{coll: db.Collection(collectionName)}
}

func (s *MongoStorage) Store(ctx context.Context, events ...audit.Event) error {
	if len(events) == 0 {
		return nil
	}
	docs := make([]any, len(events))
	for i, e := range events {
		docs[i] = e
	}
	_, err := s.coll.InsertMany(ctx, docs)
	return err
}

func (s *MongoStorage) Query(ctx context.Context, criteria audit.Criteria) ([]audit.Event, error) {
	filter := filterFromCriteria(criteria)

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if criteria.Limit > 0 {
		opts.SetLimit(int64(criteria.Limit))
	}
	if criteria.Offset > 0 {
		opts.SetSkip(int64(criteria.Offset))
	}

	cur, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var events []audit.Event
	if err := cur.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}

func (s *MongoStorage) Count(ctx context.Context, criteria audit.Criteria) (int64, error) {
	return s.coll.CountDocuments(ctx, filterFromCriteria(criteria))
}

func filterFromCriteria(c audit.Criteria) bson.M {
	filter := bson.M{}
	if c.TenantID != "" {
		filter["tenant_id"] = c.TenantID
	}
	if c.UserID != "" {
		filter["user_id"] = c.UserID
	}
	if c.Action != "" {
		filter["action"] = c.Action
	}
	if c.Resource != "" {
		filter["resource"] = c.Resource
	}
	if c.ResourceID != "" {
		filter["resource_id"] = c.ResourceID
	}
	if c.Result != "" {
		filter["result"] = c.Result
	}
	if !c.StartTime.IsZero() || !c.EndTime.IsZero() {
		rng := bson.M{}
		if !c.StartTime.IsZero() {
			rng["$gte"] = c.StartTime
		}
		if !c.EndTime.IsZero() {
			rng["$lte"] = c.EndTime
		}
		filter["created_at"] = rng
	}
	return filter
}
