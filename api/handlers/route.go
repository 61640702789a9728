package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/cleancity/waste-collection-api/api"
	"github.com/cleancity/waste-collection-api/config"
	"github.com/cleancity/waste-collection-api/databases"
	"github.com/cleancity/waste-collection-api/models"
)

// Route exports all the route handlers
type Route struct {
	DB  databases.RouteDatabase
	UDB databases.UserDatabase
	BDB databases.BinDatabase
}

type createRouteRequest struct {
	DriverID          string   `json:"driverId"`
	Date              string   `json:"date"`
	BinIDs            []string `json:"binIds"`
	OptimizedPath     string   `json:"optimizedPath"`
	EstimatedDuration *float64 `json:"estimatedDuration"`
	Distance          *float64 `json:"distance"`
}

type updateRouteStatusRequest struct {
	Status models.RouteStatus `json:"status"`
}

// RouteHandler returns all routes with driver and bin references populated
func (rt Route) RouteHandler(w http.ResponseWriter, r *http.Request) {
	rt.listRoutes(w, r, bson.M{})
}

// RoutesByDriverHandler returns the routes assigned to one driver
func (rt Route) RoutesByDriverHandler(w http.ResponseWriter, r *http.Request) {
	driverID := mux.Vars(r)["driver_id"]
	dID, err := primitive.ObjectIDFromHex(driverID)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		config.ErrorStatus("driver id is not a valid object id", http.StatusBadRequest, w, err)
		return
	}
	rt.listRoutes(w, r, bson.M{"driverId": dID})
}

// RouteByIDHandler returns a single route with references populated
func (rt Route) RouteByIDHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	routeID := mux.Vars(r)["route_id"]
	rID, err := primitive.ObjectIDFromHex(routeID)
	if err != nil {
		config.ErrorStatus("route id is not a valid object id", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	route, err := rt.DB.FindOne(ctx, bson.M{"_id": rID})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			config.ErrorStatus("Route not found", http.StatusNotFound, w, err)
			return
		}
		config.ErrorStatus("failed to get route", http.StatusInternalServerError, w, err)
		return
	}

	views, err := rt.buildViews(r, []models.Route{*route})
	if err != nil {
		config.ErrorStatus("failed to populate route", http.StatusInternalServerError, w, err)
		return
	}

	b, err := json.Marshal(views[0])
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// CreateRouteHandler assigns a driver a dated sequence of bins. The bin
// order is stored as given; no path optimization happens here.
func (rt Route) CreateRouteHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var req createRouteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("invalid request body", http.StatusBadRequest, w, err)
		return
	}

	dID, err := primitive.ObjectIDFromHex(req.DriverID)
	if err != nil {
		config.ErrorStatus("driver id is not a valid object id", http.StatusBadRequest, w, err)
		return
	}
	if len(req.BinIDs) == 0 {
		config.ErrorStatus("binIds must not be empty", http.StatusBadRequest, w, errors.New("empty binIds"))
		return
	}
	binIDs := make([]primitive.ObjectID, 0, len(req.BinIDs))
	seen := make(map[primitive.ObjectID]struct{}, len(req.BinIDs))
	for _, raw := range req.BinIDs {
		bID, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			config.ErrorStatus("bin id is not a valid object id", http.StatusBadRequest, w, err)
			return
		}
		binIDs = append(binIDs, bID)
		seen[bID] = struct{}{}
	}

	date, err := parseRouteDate(req.Date)
	if err != nil {
		config.ErrorStatus("date must be RFC3339 or YYYY-MM-DD", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	driver, err := rt.UDB.FindOne(ctx, bson.M{"_id": dID})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			config.ErrorStatus("Driver not found", http.StatusNotFound, w, err)
			return
		}
		config.ErrorStatus("failed to get driver", http.StatusInternalServerError, w, err)
		return
	}
	if driver.Role != models.RoleDriver {
		config.ErrorStatus("routes may only be assigned to drivers", http.StatusBadRequest, w, fmt.Errorf("user %s has role %s", dID.Hex(), driver.Role))
		return
	}

	uniqueIDs := make([]primitive.ObjectID, 0, len(seen))
	for id := range seen {
		uniqueIDs = append(uniqueIDs, id)
	}
	count, err := rt.BDB.CountDocuments(ctx, bson.M{"_id": bson.M{"$in": uniqueIDs}})
	if err != nil {
		config.ErrorStatus("failed to check bins", http.StatusInternalServerError, w, err)
		return
	}
	if count != int64(len(uniqueIDs)) {
		config.ErrorStatus("One or more bins not found", http.StatusBadRequest, w, fmt.Errorf("found %d of %d bins", count, len(uniqueIDs)))
		return
	}

	route := models.Route{
		ID:                primitive.NewObjectID(),
		DriverID:          dID,
		Date:              primitive.NewDateTimeFromTime(date),
		BinIDs:            binIDs,
		OptimizedPath:     req.OptimizedPath,
		Status:            models.RouteStatusPending,
		EstimatedDuration: req.EstimatedDuration,
		Distance:          req.Distance,
		CreatedAt:         primitive.NewDateTimeFromTime(time.Now().UTC()),
	}
	if _, err := rt.DB.InsertOne(ctx, route); err != nil {
		config.ErrorStatus("failed to create route", http.StatusInternalServerError, w, err)
		return
	}

	b, err := json.Marshal(route)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	w.Write(b)
}

// UpdateRouteStatusHandler advances a route through its progress states.
// Drivers may only touch their own routes and states never move backward.
func (rt Route) UpdateRouteStatusHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	principal, ok := api.PrincipalFromContext(r.Context())
	if !ok {
		config.ErrorStatus("unauthenticated", http.StatusUnauthorized, w, errors.New("no principal in context"))
		return
	}

	routeID := mux.Vars(r)["route_id"]
	rID, err := primitive.ObjectIDFromHex(routeID)
	if err != nil {
		config.ErrorStatus("route id is not a valid object id", http.StatusBadRequest, w, err)
		return
	}

	var req updateRouteStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("invalid request body", http.StatusBadRequest, w, err)
		return
	}
	if !req.Status.Valid() {
		config.ErrorStatus("Invalid status value", http.StatusBadRequest, w, fmt.Errorf("status %q", req.Status))
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	route, err := rt.DB.FindOne(ctx, bson.M{"_id": rID})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			config.ErrorStatus("Route not found", http.StatusNotFound, w, err)
			return
		}
		config.ErrorStatus("failed to get route", http.StatusInternalServerError, w, err)
		return
	}

	if principal.Role == models.RoleDriver && route.DriverID.Hex() != principal.UserID {
		config.ErrorStatus("route is not assigned to you", http.StatusForbidden, w, errors.New("driver id mismatch"))
		return
	}
	if !route.Status.CanTransition(req.Status) {
		config.ErrorStatus("cannot move route status backward", http.StatusBadRequest, w,
			fmt.Errorf("transition %s -> %s", route.Status, req.Status))
		return
	}

	if err := rt.DB.UpdateOne(ctx, bson.M{"_id": rID}, bson.M{"$set": bson.M{"status": req.Status}}); err != nil {
		config.ErrorStatus("failed to update route", http.StatusInternalServerError, w, err)
		return
	}
	route.Status = req.Status

	b, err := json.Marshal(route)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// DeleteRouteHandler removes a route
func (rt Route) DeleteRouteHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	routeID := mux.Vars(r)["route_id"]
	rID, err := primitive.ObjectIDFromHex(routeID)
	if err != nil {
		config.ErrorStatus("route id is not a valid object id", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	if _, err := rt.DB.FindOne(ctx, bson.M{"_id": rID}); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			config.ErrorStatus("Route not found", http.StatusNotFound, w, err)
			return
		}
		config.ErrorStatus("failed to get route", http.StatusInternalServerError, w, err)
		return
	}

	if err := rt.DB.DeleteOne(ctx, bson.M{"_id": rID}); err != nil {
		config.ErrorStatus("failed to delete route", http.StatusInternalServerError, w, err)
		return
	}

	b, _ := json.Marshal(map[string]string{"message": "Route deleted successfully"})
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

func (rt Route) listRoutes(w http.ResponseWriter, r *http.Request, filter bson.M) {
	w.Header().Set("Content-Type", "application/json")

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	routes, err := rt.DB.Find(ctx, filter, pageOptions(r))
	if err != nil {
		config.ErrorStatus("failed to get routes", http.StatusInternalServerError, w, err)
		return
	}

	views, err := rt.buildViews(r, routes)
	if err != nil {
		config.ErrorStatus("failed to populate routes", http.StatusInternalServerError, w, err)
		return
	}

	b, err := json.Marshal(views)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// buildViews populates driver and bin references for a batch of routes.
// Bins keep the stored visit order; dangling references are skipped.
func (rt Route) buildViews(r *http.Request, routes []models.Route) ([]models.RouteView, error) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	driverIDs := make([]primitive.ObjectID, 0, len(routes))
	var binIDs []primitive.ObjectID
	for _, route := range routes {
		driverIDs = append(driverIDs, route.DriverID)
		binIDs = append(binIDs, route.BinIDs...)
	}
	drivers, err := userRefMap(ctx, rt.UDB, driverIDs)
	if err != nil {
		return nil, err
	}
	bins, err := binRefMap(ctx, rt.BDB, binIDs)
	if err != nil {
		return nil, err
	}

	views := make([]models.RouteView, 0, len(routes))
	for _, route := range routes {
		view := models.RouteView{Route: route, Bins: []models.BinRef{}}
		if driver, ok := drivers[route.DriverID]; ok {
			view.Driver = &driver
		}
		for _, id := range route.BinIDs {
			if bin, ok := bins[id]; ok {
				view.Bins = append(view.Bins, bin)
			}
		}
		views = append(views, view)
	}
	return views, nil
}

func parseRouteDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, errors.New("date is required")
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}
