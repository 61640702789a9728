package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/cleancity/waste-collection-api/api/handlers"
	"github.com/cleancity/waste-collection-api/databases"
	"github.com/cleancity/waste-collection-api/databases/mocks"
	"github.com/cleancity/waste-collection-api/models"
)

func TestNotification_ListOwn(t *testing.T) {
	db := &mocks.DatabaseHelper{}
	conn := &mocks.CollectionHelper{}
	cursor := &mocks.CursorHelper{}

	callerID := primitive.NewObjectID()

	var filter bson.M
	cursor.On("Decode", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(*[]models.Notification)
		*arg = []models.Notification{{
			ID:      primitive.NewObjectID(),
			UserID:  callerID,
			Message: "Bin in zone north needs attention (status: overflow)",
			Type:    models.NotificationAlert,
		}}
	})
	conn.On("Find", mock.Anything, mock.Anything, mock.Anything).
		Return(cursor, nil).
		Run(func(args mock.Arguments) {
			filter = args.Get(1).(bson.M)
		})
	db.On("Collection", "notifications").Return(conn)

	n := handlers.Notification{DB: databases.NewNotificationDatabase(db)}

	req, _ := http.NewRequest("GET", "/api/notifications", nil)
	req = withPrincipal(req, callerID.Hex(), models.RoleAdmin)
	rr := httptest.NewRecorder()

	n.NotificationsHandler(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if filter["userId"] != callerID {
		t.Errorf("expected query scoped to caller, got %v", filter)
	}
	if !strings.Contains(rr.Body.String(), "needs attention") {
		t.Errorf("expected notification in response, got %q", rr.Body.String())
	}
}

func TestNotification_MarkReadScopedToOwner(t *testing.T) {
	db := &mocks.DatabaseHelper{}
	conn := &mocks.CollectionHelper{}

	callerID := primitive.NewObjectID()
	notificationID := primitive.NewObjectID()

	var filter bson.M
	conn.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, nil).
		Run(func(args mock.Arguments) {
			filter = args.Get(1).(bson.M)
		})
	db.On("Collection", "notifications").Return(conn)

	n := handlers.Notification{DB: databases.NewNotificationDatabase(db)}

	req, _ := http.NewRequest("PUT", "/api/notifications/"+notificationID.Hex()+"/read", nil)
	req = mux.SetURLVars(req, map[string]string{"notification_id": notificationID.Hex()})
	req = withPrincipal(req, callerID.Hex(), models.RoleCitizen)
	rr := httptest.NewRecorder()

	n.MarkNotificationReadHandler(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if filter["_id"] != notificationID || filter["userId"] != callerID {
		t.Errorf("expected update scoped to owner and id, got %v", filter)
	}
}
