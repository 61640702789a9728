package scheduler_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/cleancity/waste-collection-api/api/scheduler"
	"github.com/cleancity/waste-collection-api/databases"
	"github.com/cleancity/waste-collection-api/databases/mocks"
	"github.com/cleancity/waste-collection-api/models"
)

// Start with a tight @every spec and wait for the sweep to fire once.
func TestScheduler_SweepNotifiesAdmins(t *testing.T) {
	db := &mocks.DatabaseHelper{}
	binConn := &mocks.CollectionHelper{}
	userConn := &mocks.CollectionHelper{}
	notificationConn := &mocks.CollectionHelper{}
	binCursor := &mocks.CursorHelper{}
	userCursor := &mocks.CursorHelper{}
	insertResult := &mocks.InsertOneResultHelper{}

	adminID := primitive.NewObjectID()
	binID := primitive.NewObjectID()

	binCursor.On("Decode", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(*[]models.Bin)
		*arg = []models.Bin{{ID: binID, Zone: "north", Status: models.BinStatusOverflow}}
	})
	userCursor.On("Decode", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(*[]models.User)
		*arg = []models.User{{ID: adminID, Role: models.RoleAdmin}}
	})
	binConn.On("Find", mock.Anything, mock.Anything).Return(binCursor, nil)
	userConn.On("Find", mock.Anything, mock.Anything).Return(userCursor, nil)

	notified := make(chan models.Notification, 1)
	insertResult.On("Decode").Return(nil)
	notificationConn.On("InsertOne", mock.Anything, mock.Anything).
		Return(insertResult, nil).
		Run(func(args mock.Arguments) {
			select {
			case notified <- args.Get(1).(models.Notification):
			default:
			}
		})

	db.On("Collection", "bins").Return(binConn)
	db.On("Collection", "users").Return(userConn)
	db.On("Collection", "notifications").Return(notificationConn)

	s := scheduler.New(
		databases.NewBinDatabase(db),
		databases.NewUserDatabase(db),
		databases.NewNotificationDatabase(db),
		"@every 100ms",
	)
	s.Start()
	defer s.Stop()

	select {
	case n := <-notified:
		if n.UserID != adminID {
			t.Errorf("expected notification for the admin, got %v", n.UserID)
		}
		if n.Type != models.NotificationAlert {
			t.Errorf("expected an alert, got %q", n.Type)
		}
		if n.RelatedEntity != "bin" || n.RelatedEntityID == nil || *n.RelatedEntityID != binID {
			t.Errorf("expected notification linked to the bin, got %+v", n)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("sweep did not run within 3s")
	}
}
