package databases

// go generate: mockery --name BinDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/cleancity/waste-collection-api/models"
)

const binName = "bins"

// BinDatabase contains the methods to use with the bins collection
type BinDatabase interface {
	FindOne(context.Context, interface{}, ...*options.FindOneOptions) (*models.Bin, error)
	Find(context.Context, interface{}, ...*options.FindOptions) ([]models.Bin, error)
	FindNear(ctx context.Context, longitude, latitude float64, maxDistanceMeters int) ([]models.Bin, error)
	InsertOne(context.Context, models.Bin) (interface{}, error)
	UpdateOne(context.Context, interface{}, interface{}) error
	DeleteOne(context.Context, interface{}) error
	CountDocuments(context.Context, interface{}) (int64, error)
	EnsureIndexes(context.Context) error
}

type binDatabase struct {
	db DatabaseHelper
}

// NewBinDatabase initializes a new instance of bin database with the provided db connection
func NewBinDatabase(db DatabaseHelper) BinDatabase {
	return &binDatabase{
		db: db,
	}
}

func (b *binDatabase) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.Bin, error) {
	bin := &models.Bin{}
	err := b.db.Collection(binName).FindOne(ctx, filter, opts...).Decode(&bin)
	if err != nil {
		return nil, err
	}
	return bin, nil
}

func (b *binDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Bin, error) {
	var bins []models.Bin
	cur, err := b.db.Collection(binName).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	err = cur.Decode(&bins)
	if err != nil {
		return nil, err
	}
	return bins, nil
}

// FindNear returns bins within maxDistanceMeters of the point, nearest first.
// $near ordering requires the 2dsphere index from EnsureIndexes.
func (b *binDatabase) FindNear(ctx context.Context, longitude, latitude float64, maxDistanceMeters int) ([]models.Bin, error) {
	filter := bson.M{
		"location": bson.M{
			"$near": bson.M{
				"$geometry": bson.M{
					"type":        "Point",
					"coordinates": []float64{longitude, latitude},
				},
				"$maxDistance": maxDistanceMeters,
			},
		},
	}
	return b.Find(ctx, filter)
}

func (b *binDatabase) InsertOne(ctx context.Context, bin models.Bin) (interface{}, error) {
	res, err := b.db.Collection(binName).InsertOne(ctx, bin)
	if err != nil {
		return nil, err
	}
	return res.Decode(), nil
}

func (b *binDatabase) UpdateOne(ctx context.Context, filter interface{}, update interface{}) error {
	_, err := b.db.Collection(binName).UpdateOne(ctx, filter, update)
	return err
}

func (b *binDatabase) DeleteOne(ctx context.Context, filter interface{}) error {
	return b.db.Collection(binName).DeleteOne(ctx, filter)
}

func (b *binDatabase) CountDocuments(ctx context.Context, filter interface{}) (int64, error) {
	return b.db.Collection(binName).CountDocuments(ctx, filter)
}

// EnsureIndexes creates the 2dsphere index the nearby search depends on
func (b *binDatabase) EnsureIndexes(ctx context.Context) error {
	_, err := b.db.Collection(binName).CreateIndex(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "location", Value: "2dsphere"}},
	})
	return err
}
