package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/cleancity/waste-collection-api/api"
	"github.com/cleancity/waste-collection-api/config"
	"github.com/cleancity/waste-collection-api/databases"
	"github.com/cleancity/waste-collection-api/models"
)

// Collection exports all the collection record handlers
type Collection struct {
	DB  databases.CollectionRecordDatabase
	BDB databases.BinDatabase
	UDB databases.UserDatabase
	Hub *Hub
}

type createCollectionRequest struct {
	BinID                  string           `json:"binId"`
	DriverID               string           `json:"driverId"`
	Notes                  string           `json:"notes"`
	StatusBeforeCollection models.BinStatus `json:"statusBeforeCollection"`
}

// CreateCollectionHandler records a bin collection. The record insert and
// the bin reset are paired: if the bin update fails the record is deleted
// again and the whole operation reports failure.
func (c Collection) CreateCollectionHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	principal, ok := api.PrincipalFromContext(r.Context())
	if !ok {
		config.ErrorStatus("unauthenticated", http.StatusUnauthorized, w, errors.New("no principal in context"))
		return
	}

	var req createCollectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("invalid request body", http.StatusBadRequest, w, err)
		return
	}

	bID, err := primitive.ObjectIDFromHex(req.BinID)
	if err != nil {
		config.ErrorStatus("bin id is not a valid object id", http.StatusBadRequest, w, err)
		return
	}

	driverID, err := primitive.ObjectIDFromHex(principal.UserID)
	if err != nil {
		config.ErrorStatus("unauthenticated", http.StatusUnauthorized, w, err)
		return
	}
	if req.DriverID != "" && req.DriverID != principal.UserID {
		// only admins may record a collection on behalf of another driver
		if principal.Role != models.RoleAdmin {
			config.ErrorStatus("only admins may record collections for other drivers", http.StatusForbidden, w, errors.New("driver id mismatch"))
			return
		}
		driverID, err = primitive.ObjectIDFromHex(req.DriverID)
		if err != nil {
			config.ErrorStatus("driver id is not a valid object id", http.StatusBadRequest, w, err)
			return
		}
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	bin, err := c.BDB.FindOne(ctx, bson.M{"_id": bID})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			config.ErrorStatus("Bin not found", http.StatusNotFound, w, err)
			return
		}
		config.ErrorStatus("failed to get bin", http.StatusInternalServerError, w, err)
		return
	}

	statusBefore := bin.Status
	if req.StatusBeforeCollection != "" {
		if !req.StatusBeforeCollection.Valid() {
			config.ErrorStatus("Invalid status value", http.StatusBadRequest, w, errors.New("bad statusBeforeCollection"))
			return
		}
		statusBefore = req.StatusBeforeCollection
	}

	now := primitive.NewDateTimeFromTime(time.Now().UTC())
	record := models.CollectionRecord{
		ID:                     primitive.NewObjectID(),
		DriverID:               driverID,
		BinID:                  bID,
		CollectedAt:            now,
		Notes:                  req.Notes,
		StatusBeforeCollection: statusBefore,
	}

	if _, err := c.DB.InsertOne(ctx, record); err != nil {
		config.ErrorStatus("failed to record collection", http.StatusInternalServerError, w, err)
		return
	}

	err = c.BDB.UpdateOne(ctx, bson.M{"_id": bID}, bson.M{"$set": bson.M{
		"status":          models.BinStatusEmpty,
		"currentLevel":    0,
		"lastCollectedAt": now,
	}})
	if err != nil {
		// compensate: take the record back out so the pair stays atomic
		if delErr := c.DB.DeleteOne(ctx, bson.M{"_id": record.ID}); delErr != nil {
			zap.S().Errorw("failed to compensate collection record",
				"recordId", record.ID.Hex(),
				"error", delErr)
		}
		config.ErrorStatus("failed to record collection", http.StatusInternalServerError, w, err)
		return
	}

	bin.Status = models.BinStatusEmpty
	bin.CurrentLevel = 0
	bin.LastCollectedAt = &now
	c.Hub.Broadcast(models.BinEvent{Event: "bin.collected", Bin: *bin})

	b, err := json.Marshal(record)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	w.Write(b)
}

// CollectionHandler returns all collection records with their driver and
// bin references populated.
func (c Collection) CollectionHandler(w http.ResponseWriter, r *http.Request) {
	c.listCollections(w, r, bson.M{})
}

// CollectionsByDriverHandler returns the collection records of one driver
func (c Collection) CollectionsByDriverHandler(w http.ResponseWriter, r *http.Request) {
	driverID := mux.Vars(r)["driver_id"]
	dID, err := primitive.ObjectIDFromHex(driverID)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		config.ErrorStatus("driver id is not a valid object id", http.StatusBadRequest, w, err)
		return
	}
	c.listCollections(w, r, bson.M{"driverId": dID})
}

func (c Collection) listCollections(w http.ResponseWriter, r *http.Request, filter bson.M) {
	w.Header().Set("Content-Type", "application/json")

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	records, err := c.DB.Find(ctx, filter, pageOptions(r))
	if err != nil {
		config.ErrorStatus("failed to get collections", http.StatusInternalServerError, w, err)
		return
	}

	driverIDs := make([]primitive.ObjectID, 0, len(records))
	binIDs := make([]primitive.ObjectID, 0, len(records))
	for _, rec := range records {
		driverIDs = append(driverIDs, rec.DriverID)
		binIDs = append(binIDs, rec.BinID)
	}
	drivers, err := userRefMap(ctx, c.UDB, driverIDs)
	if err != nil {
		config.ErrorStatus("failed to get collection drivers", http.StatusInternalServerError, w, err)
		return
	}
	bins, err := binRefMap(ctx, c.BDB, binIDs)
	if err != nil {
		config.ErrorStatus("failed to get collection bins", http.StatusInternalServerError, w, err)
		return
	}

	views := make([]models.CollectionView, 0, len(records))
	for _, rec := range records {
		view := models.CollectionView{CollectionRecord: rec}
		if driver, ok := drivers[rec.DriverID]; ok {
			view.Driver = &driver
		}
		if bin, ok := bins[rec.BinID]; ok {
			view.Bin = &bin
		}
		views = append(views, view)
	}

	b, err := json.Marshal(views)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}
