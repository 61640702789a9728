package handlers

import (
	"context"
	"net/http"
	"strconv"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/cleancity/waste-collection-api/databases"
	"github.com/cleancity/waste-collection-api/models"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 200
)

// pageOptions reads limit/skip from the query string and clamps them
func pageOptions(r *http.Request) *options.FindOptions {
	limit := int64(defaultPageLimit)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.ParseInt(raw, 10, 64); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	skip := int64(0)
	if raw := r.URL.Query().Get("skip"); raw != "" {
		if v, err := strconv.ParseInt(raw, 10, 64); err == nil && v > 0 {
			skip = v
		}
	}
	return options.Find().SetLimit(limit).SetSkip(skip)
}

// userRefMap loads the referenced users in one query and indexes their
// projections by id. Missing references simply stay absent from the map.
func userRefMap(ctx context.Context, db databases.UserDatabase, ids []primitive.ObjectID) (map[primitive.ObjectID]models.UserRef, error) {
	refs := make(map[primitive.ObjectID]models.UserRef, len(ids))
	if len(ids) == 0 {
		return refs, nil
	}
	users, err := db.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		refs[u.ID] = u.Ref()
	}
	return refs, nil
}

// binRefMap is the bin counterpart of userRefMap
func binRefMap(ctx context.Context, db databases.BinDatabase, ids []primitive.ObjectID) (map[primitive.ObjectID]models.BinRef, error) {
	refs := make(map[primitive.ObjectID]models.BinRef, len(ids))
	if len(ids) == 0 {
		return refs, nil
	}
	bins, err := db.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	for _, b := range bins {
		refs[b.ID] = b.Ref()
	}
	return refs, nil
}
