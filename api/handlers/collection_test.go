package handlers_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/cleancity/waste-collection-api/api"
	"github.com/cleancity/waste-collection-api/api/handlers"
	"github.com/cleancity/waste-collection-api/databases"
	"github.com/cleancity/waste-collection-api/databases/mocks"
	"github.com/cleancity/waste-collection-api/models"
)

func withPrincipal(req *http.Request, userID string, role models.Role) *http.Request {
	ctx := api.ContextWithPrincipal(req.Context(), api.Principal{UserID: userID, Role: role})
	return req.WithContext(ctx)
}

func TestCollection_CreateBinNotFound(t *testing.T) {
	db := &mocks.DatabaseHelper{}
	binConn := &mocks.CollectionHelper{}
	singleResult := &mocks.SingleResultHelper{}

	singleResult.On("Decode", mock.Anything).Return(mongo.ErrNoDocuments)
	binConn.On("FindOne", mock.Anything, mock.Anything).Return(singleResult)
	db.On("Collection", "bins").Return(binConn)

	c := handlers.Collection{
		DB:  databases.NewCollectionRecordDatabase(db),
		BDB: databases.NewBinDatabase(db),
	}

	body := `{"binId":"` + primitive.NewObjectID().Hex() + `"}`
	req, _ := http.NewRequest("POST", "/api/collections", bytes.NewBufferString(body))
	req = withPrincipal(req, primitive.NewObjectID().Hex(), models.RoleDriver)
	rr := httptest.NewRecorder()

	c.CreateCollectionHandler(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Bin not found") {
		t.Errorf("expected bin not found message, got %q", rr.Body.String())
	}
}

func TestCollection_CreateResetsBin(t *testing.T) {
	db := &mocks.DatabaseHelper{}
	binConn := &mocks.CollectionHelper{}
	recordConn := &mocks.CollectionHelper{}
	singleResult := &mocks.SingleResultHelper{}
	insertResult := &mocks.InsertOneResultHelper{}

	binID := primitive.NewObjectID()
	singleResult.On("Decode", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(**models.Bin)
		(*arg).ID = binID
		(*arg).Status = models.BinStatusOverflow
		(*arg).CurrentLevel = 98
	})
	binConn.On("FindOne", mock.Anything, mock.Anything).Return(singleResult)

	var binUpdate bson.M
	binConn.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).
		Return(&mongo.UpdateResult{MatchedCount: 1}, nil).
		Run(func(args mock.Arguments) {
			binUpdate = args.Get(2).(bson.M)
		})

	insertResult.On("Decode").Return(nil)
	recordConn.On("InsertOne", mock.Anything, mock.Anything).Return(insertResult, nil)

	db.On("Collection", "bins").Return(binConn)
	db.On("Collection", "collections").Return(recordConn)

	c := handlers.Collection{
		DB:  databases.NewCollectionRecordDatabase(db),
		BDB: databases.NewBinDatabase(db),
	}

	body := `{"binId":"` + binID.Hex() + `","notes":"north side pickup"}`
	req, _ := http.NewRequest("POST", "/api/collections", bytes.NewBufferString(body))
	req = withPrincipal(req, primitive.NewObjectID().Hex(), models.RoleDriver)
	rr := httptest.NewRecorder()

	c.CreateCollectionHandler(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), `"statusBeforeCollection":"overflow"`) {
		t.Errorf("expected pre-collection status in record, got %q", rr.Body.String())
	}

	set, ok := binUpdate["$set"].(bson.M)
	if !ok {
		t.Fatalf("expected a $set bin update, got %v", binUpdate)
	}
	if set["status"] != models.BinStatusEmpty {
		t.Errorf("expected bin reset to empty, got %v", set["status"])
	}
	if set["currentLevel"] != 0 {
		t.Errorf("expected bin level reset to 0, got %v", set["currentLevel"])
	}
	if _, ok := set["lastCollectedAt"]; !ok {
		t.Error("expected lastCollectedAt to be stamped")
	}
}

func TestCollection_CreateCompensatesOnBinUpdateFailure(t *testing.T) {
	db := &mocks.DatabaseHelper{}
	binConn := &mocks.CollectionHelper{}
	recordConn := &mocks.CollectionHelper{}
	singleResult := &mocks.SingleResultHelper{}
	insertResult := &mocks.InsertOneResultHelper{}

	singleResult.On("Decode", mock.Anything).Return(nil)
	binConn.On("FindOne", mock.Anything, mock.Anything).Return(singleResult)
	binConn.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, mongo.ErrClientDisconnected)

	insertResult.On("Decode").Return(nil)
	recordConn.On("InsertOne", mock.Anything, mock.Anything).Return(insertResult, nil)
	recordConn.On("DeleteOne", mock.Anything, mock.Anything).Return(nil)

	db.On("Collection", "bins").Return(binConn)
	db.On("Collection", "collections").Return(recordConn)

	c := handlers.Collection{
		DB:  databases.NewCollectionRecordDatabase(db),
		BDB: databases.NewBinDatabase(db),
	}

	body := `{"binId":"` + primitive.NewObjectID().Hex() + `"}`
	req, _ := http.NewRequest("POST", "/api/collections", bytes.NewBufferString(body))
	req = withPrincipal(req, primitive.NewObjectID().Hex(), models.RoleDriver)
	rr := httptest.NewRecorder()

	c.CreateCollectionHandler(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rr.Code)
	}
	recordConn.AssertCalled(t, "DeleteOne", mock.Anything, mock.Anything)
}

func TestCollection_CreateForOtherDriverForbidden(t *testing.T) {
	c := handlers.Collection{}

	body := `{"binId":"` + primitive.NewObjectID().Hex() + `","driverId":"` + primitive.NewObjectID().Hex() + `"}`
	req, _ := http.NewRequest("POST", "/api/collections", bytes.NewBufferString(body))
	req = withPrincipal(req, primitive.NewObjectID().Hex(), models.RoleDriver)
	rr := httptest.NewRecorder()

	c.CreateCollectionHandler(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rr.Code)
	}
}

func TestCollection_ListPopulatesReferences(t *testing.T) {
	db := &mocks.DatabaseHelper{}
	recordConn := &mocks.CollectionHelper{}
	userConn := &mocks.CollectionHelper{}
	binConn := &mocks.CollectionHelper{}
	recordCursor := &mocks.CursorHelper{}
	userCursor := &mocks.CursorHelper{}
	binCursor := &mocks.CursorHelper{}

	driverID := primitive.NewObjectID()
	binID := primitive.NewObjectID()

	recordCursor.On("Decode", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(*[]models.CollectionRecord)
		*arg = []models.CollectionRecord{{
			ID:                     primitive.NewObjectID(),
			DriverID:               driverID,
			BinID:                  binID,
			StatusBeforeCollection: models.BinStatusFull,
		}}
	})
	userCursor.On("Decode", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(*[]models.User)
		*arg = []models.User{{ID: driverID, Username: "dara", Email: "dara@example.com"}}
	})
	binCursor.On("Decode", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(*[]models.Bin)
		*arg = []models.Bin{{ID: binID, Zone: "north", Status: models.BinStatusEmpty}}
	})

	recordConn.On("Find", mock.Anything, mock.Anything, mock.Anything).Return(recordCursor, nil)
	userConn.On("Find", mock.Anything, mock.Anything).Return(userCursor, nil)
	binConn.On("Find", mock.Anything, mock.Anything).Return(binCursor, nil)

	db.On("Collection", "collections").Return(recordConn)
	db.On("Collection", "users").Return(userConn)
	db.On("Collection", "bins").Return(binConn)

	c := handlers.Collection{
		DB:  databases.NewCollectionRecordDatabase(db),
		BDB: databases.NewBinDatabase(db),
		UDB: databases.NewUserDatabase(db),
	}

	req, _ := http.NewRequest("GET", "/api/collections", nil)
	rr := httptest.NewRecorder()

	c.CollectionHandler(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), `"username":"dara"`) {
		t.Errorf("expected populated driver, got %q", rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), `"zone":"north"`) {
		t.Errorf("expected populated bin, got %q", rr.Body.String())
	}
}
