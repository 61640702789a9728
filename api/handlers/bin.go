package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
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

const defaultNearbyDistanceMeters = 5000

// Bin exports all the bin handlers
type Bin struct {
	DB   databases.BinDatabase
	RDB  databases.RouteDatabase
	CRDB databases.CollectionRecordDatabase
	CDB  databases.ComplaintDatabase
	Hub  *Hub
}

type createBinRequest struct {
	Location models.GeoPoint  `json:"location"`
	Zone     string           `json:"zone"`
	Capacity float64          `json:"capacity"`
	Type     models.BinType   `json:"type"`
	Status   models.BinStatus `json:"status"`
}

type updateBinRequest struct {
	Location     *models.GeoPoint  `json:"location"`
	Zone         *string           `json:"zone"`
	Capacity     *float64          `json:"capacity"`
	CurrentLevel *float64          `json:"currentLevel"`
	Type         *models.BinType   `json:"type"`
	Status       *models.BinStatus `json:"status"`
}

// BinHandler returns all bins, paginated with limit/skip
func (b Bin) BinHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	bins, err := b.DB.Find(ctx, bson.M{}, pageOptions(r))
	if err != nil {
		config.ErrorStatus("failed to get bins", http.StatusInternalServerError, w, err)
		return
	}
	if bins == nil {
		bins = []models.Bin{}
	}

	bb, err := json.Marshal(bins)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(bb)
}

// BinNearbyHandler returns bins within maxDistance meters of the given
// point, nearest first.
func (b Bin) BinNearbyHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	q := r.URL.Query()
	longitude, lonErr := strconv.ParseFloat(q.Get("longitude"), 64)
	latitude, latErr := strconv.ParseFloat(q.Get("latitude"), 64)
	if lonErr != nil || latErr != nil {
		config.ErrorStatus("longitude and latitude query parameters are required", http.StatusBadRequest, w, errors.New("missing or non-numeric coordinates"))
		return
	}

	maxDistance := defaultNearbyDistanceMeters
	if raw := q.Get("maxDistance"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			config.ErrorStatus("maxDistance must be a positive integer", http.StatusBadRequest, w, err)
			return
		}
		maxDistance = v
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	bins, err := b.DB.FindNear(ctx, longitude, latitude, maxDistance)
	if err != nil {
		config.ErrorStatus("failed to get nearby bins", http.StatusInternalServerError, w, err)
		return
	}
	if bins == nil {
		bins = []models.Bin{}
	}

	bb, err := json.Marshal(bins)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(bb)
}

// BinByIDHandler returns a single bin by id
func (b Bin) BinByIDHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	binID := mux.Vars(r)["bin_id"]
	bID, err := primitive.ObjectIDFromHex(binID)
	if err != nil {
		config.ErrorStatus("bin id is not a valid object id", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	bin, err := b.DB.FindOne(ctx, bson.M{"_id": bID})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			config.ErrorStatus("Bin not found", http.StatusNotFound, w, err)
			return
		}
		config.ErrorStatus("failed to get bin", http.StatusInternalServerError, w, err)
		return
	}

	bb, err := json.Marshal(bin)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(bb)
}

// CreateBinHandler registers a new bin. New bins start empty with a zero
// fill level regardless of what the caller sends.
func (b Bin) CreateBinHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var req createBinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("invalid request body", http.StatusBadRequest, w, err)
		return
	}

	if err := req.Location.Validate(); err != nil {
		config.ErrorStatus("Invalid location format", http.StatusBadRequest, w, err)
		return
	}
	if req.Zone == "" {
		config.ErrorStatus("zone is required", http.StatusBadRequest, w, errors.New("missing zone"))
		return
	}
	if req.Capacity <= 0 {
		config.ErrorStatus("capacity must be greater than zero", http.StatusBadRequest, w, fmt.Errorf("capacity %v", req.Capacity))
		return
	}
	if req.Type == "" {
		req.Type = models.BinTypeGeneral
	}
	if !req.Type.Valid() {
		config.ErrorStatus("Invalid bin type", http.StatusBadRequest, w, fmt.Errorf("type %q", req.Type))
		return
	}
	if req.Status == "" {
		req.Status = models.BinStatusEmpty
	}
	if !req.Status.Valid() {
		config.ErrorStatus("Invalid status value", http.StatusBadRequest, w, fmt.Errorf("status %q", req.Status))
		return
	}

	bin := models.Bin{
		ID:           primitive.NewObjectID(),
		Location:     req.Location,
		Zone:         req.Zone,
		Capacity:     req.Capacity,
		CurrentLevel: 0,
		Status:       req.Status,
		Type:         req.Type,
		CreatedAt:    primitive.NewDateTimeFromTime(time.Now().UTC()),
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	if _, err := b.DB.InsertOne(ctx, bin); err != nil {
		config.ErrorStatus("failed to create bin", http.StatusInternalServerError, w, err)
		return
	}
	b.Hub.Broadcast(models.BinEvent{Event: "bin.created", Bin: bin})

	bb, err := json.Marshal(bin)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	w.Write(bb)
}

// UpdateBinHandler applies a partial update to a bin. Absent fields are
// left untouched.
func (b Bin) UpdateBinHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	binID := mux.Vars(r)["bin_id"]
	bID, err := primitive.ObjectIDFromHex(binID)
	if err != nil {
		config.ErrorStatus("bin id is not a valid object id", http.StatusBadRequest, w, err)
		return
	}

	var req updateBinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("invalid request body", http.StatusBadRequest, w, err)
		return
	}

	set := bson.M{}
	if req.Location != nil {
		if err := req.Location.Validate(); err != nil {
			config.ErrorStatus("Invalid location format", http.StatusBadRequest, w, err)
			return
		}
		set["location"] = *req.Location
	}
	if req.Zone != nil {
		if *req.Zone == "" {
			config.ErrorStatus("zone must not be empty", http.StatusBadRequest, w, errors.New("empty zone"))
			return
		}
		set["zone"] = *req.Zone
	}
	if req.Capacity != nil {
		if *req.Capacity <= 0 {
			config.ErrorStatus("capacity must be greater than zero", http.StatusBadRequest, w, fmt.Errorf("capacity %v", *req.Capacity))
			return
		}
		set["capacity"] = *req.Capacity
	}
	if req.CurrentLevel != nil {
		if *req.CurrentLevel < 0 {
			config.ErrorStatus("currentLevel must not be negative", http.StatusBadRequest, w, fmt.Errorf("currentLevel %v", *req.CurrentLevel))
			return
		}
		set["currentLevel"] = *req.CurrentLevel
	}
	if req.Type != nil {
		if !req.Type.Valid() {
			config.ErrorStatus("Invalid bin type", http.StatusBadRequest, w, fmt.Errorf("type %q", *req.Type))
			return
		}
		set["type"] = *req.Type
	}
	if req.Status != nil {
		if !req.Status.Valid() {
			config.ErrorStatus("Invalid status value", http.StatusBadRequest, w, fmt.Errorf("status %q", *req.Status))
			return
		}
		set["status"] = *req.Status
	}
	if len(set) == 0 {
		config.ErrorStatus("no updatable fields in request", http.StatusBadRequest, w, errors.New("empty update"))
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	if _, err := b.DB.FindOne(ctx, bson.M{"_id": bID}); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			config.ErrorStatus("Bin not found", http.StatusNotFound, w, err)
			return
		}
		config.ErrorStatus("failed to get bin", http.StatusInternalServerError, w, err)
		return
	}

	if err := b.DB.UpdateOne(ctx, bson.M{"_id": bID}, bson.M{"$set": set}); err != nil {
		config.ErrorStatus("failed to update bin", http.StatusInternalServerError, w, err)
		return
	}

	bin, err := b.DB.FindOne(ctx, bson.M{"_id": bID})
	if err != nil {
		config.ErrorStatus("failed to get updated bin", http.StatusInternalServerError, w, err)
		return
	}
	b.Hub.Broadcast(models.BinEvent{Event: "bin.updated", Bin: *bin})

	bb, err := json.Marshal(bin)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(bb)
}

// DeleteBinHandler removes a bin unless routes, collection records or
// complaints still reference it.
func (b Bin) DeleteBinHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	binID := mux.Vars(r)["bin_id"]
	bID, err := primitive.ObjectIDFromHex(binID)
	if err != nil {
		config.ErrorStatus("bin id is not a valid object id", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	bin, err := b.DB.FindOne(ctx, bson.M{"_id": bID})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			config.ErrorStatus("Bin not found", http.StatusNotFound, w, err)
			return
		}
		config.ErrorStatus("failed to get bin", http.StatusInternalServerError, w, err)
		return
	}

	routeRefs, err := b.RDB.CountDocuments(ctx, bson.M{"binIds": bID})
	if err != nil {
		config.ErrorStatus("failed to check route references", http.StatusInternalServerError, w, err)
		return
	}
	recordRefs, err := b.CRDB.CountDocuments(ctx, bson.M{"binId": bID})
	if err != nil {
		config.ErrorStatus("failed to check collection references", http.StatusInternalServerError, w, err)
		return
	}
	complaintRefs, err := b.CDB.CountDocuments(ctx, bson.M{"binId": bID})
	if err != nil {
		config.ErrorStatus("failed to check complaint references", http.StatusInternalServerError, w, err)
		return
	}
	if routeRefs+recordRefs+complaintRefs > 0 {
		config.ErrorStatus("Bin is referenced by existing records", http.StatusBadRequest, w,
			fmt.Errorf("bin %s referenced by %d routes, %d collections, %d complaints", binID, routeRefs, recordRefs, complaintRefs))
		return
	}

	if err := b.DB.DeleteOne(ctx, bson.M{"_id": bID}); err != nil {
		config.ErrorStatus("failed to delete bin", http.StatusInternalServerError, w, err)
		return
	}
	b.Hub.Broadcast(models.BinEvent{Event: "bin.deleted", Bin: *bin})

	bb, _ := json.Marshal(map[string]string{"message": "Bin deleted successfully"})
	w.WriteHeader(http.StatusOK)
	w.Write(bb)
}
