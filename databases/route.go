package databases

// go generate: mockery --name RouteDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/cleancity/waste-collection-api/models"
)

const routeName = "routes"

// RouteDatabase contains the methods to use with the routes collection
type RouteDatabase interface {
	FindOne(context.Context, interface{}, ...*options.FindOneOptions) (*models.Route, error)
	Find(context.Context, interface{}, ...*options.FindOptions) ([]models.Route, error)
	InsertOne(context.Context, models.Route) (interface{}, error)
	UpdateOne(context.Context, interface{}, interface{}) error
	DeleteOne(context.Context, interface{}) error
	CountDocuments(context.Context, interface{}) (int64, error)
}

type routeDatabase struct {
	db DatabaseHelper
}

// NewRouteDatabase initializes a new instance of route database with the provided db connection
func NewRouteDatabase(db DatabaseHelper) RouteDatabase {
	return &routeDatabase{
		db: db,
	}
}

func (r *routeDatabase) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.Route, error) {
	route := &models.Route{}
	err := r.db.Collection(routeName).FindOne(ctx, filter, opts...).Decode(&route)
	if err != nil {
		return nil, err
	}
	return route, nil
}

func (r *routeDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Route, error) {
	var routes []models.Route
	cur, err := r.db.Collection(routeName).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	err = cur.Decode(&routes)
	if err != nil {
		return nil, err
	}
	return routes, nil
}

func (r *routeDatabase) InsertOne(ctx context.Context, route models.Route) (interface{}, error) {
	res, err := r.db.Collection(routeName).InsertOne(ctx, route)
	if err != nil {
		return nil, err
	}
	return res.Decode(), nil
}

func (r *routeDatabase) UpdateOne(ctx context.Context, filter interface{}, update interface{}) error {
	_, err := r.db.Collection(routeName).UpdateOne(ctx, filter, update)
	return err
}

func (r *routeDatabase) DeleteOne(ctx context.Context, filter interface{}) error {
	return r.db.Collection(routeName).DeleteOne(ctx, filter)
}

func (r *routeDatabase) CountDocuments(ctx context.Context, filter interface{}) (int64, error) {
	return r.db.Collection(routeName).CountDocuments(ctx, filter)
}
