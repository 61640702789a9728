package databases

// go generate: mockery --name CollectionRecordDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/cleancity/waste-collection-api/models"
)

const collectionName = "collections"

// CollectionRecordDatabase contains the methods to use with the collections
// collection. Records are append-only; DeleteOne exists solely as the
// compensating write when the paired bin update fails.
type CollectionRecordDatabase interface {
	Find(context.Context, interface{}, ...*options.FindOptions) ([]models.CollectionRecord, error)
	InsertOne(context.Context, models.CollectionRecord) (interface{}, error)
	DeleteOne(context.Context, interface{}) error
	CountDocuments(context.Context, interface{}) (int64, error)
}

type collectionRecordDatabase struct {
	db DatabaseHelper
}

// NewCollectionRecordDatabase initializes a new instance of collection record database with the provided db connection
func NewCollectionRecordDatabase(db DatabaseHelper) CollectionRecordDatabase {
	return &collectionRecordDatabase{
		db: db,
	}
}

func (c *collectionRecordDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.CollectionRecord, error) {
	var records []models.CollectionRecord
	cur, err := c.db.Collection(collectionName).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	err = cur.Decode(&records)
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (c *collectionRecordDatabase) InsertOne(ctx context.Context, record models.CollectionRecord) (interface{}, error) {
	res, err := c.db.Collection(collectionName).InsertOne(ctx, record)
	if err != nil {
		return nil, err
	}
	return res.Decode(), nil
}

func (c *collectionRecordDatabase) DeleteOne(ctx context.Context, filter interface{}) error {
	return c.db.Collection(collectionName).DeleteOne(ctx, filter)
}

func (c *collectionRecordDatabase) CountDocuments(ctx context.Context, filter interface{}) (int64, error) {
	return c.db.Collection(collectionName).CountDocuments(ctx, filter)
}
