package databases

// go generate: mockery --name NotificationDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/cleancity/waste-collection-api/models"
)

const notificationName = "notifications"

// NotificationDatabase contains the methods to use with the notifications collection
type NotificationDatabase interface {
	Find(context.Context, interface{}, ...*options.FindOptions) ([]models.Notification, error)
	InsertOne(context.Context, models.Notification) (interface{}, error)
	UpdateOne(context.Context, interface{}, interface{}) error
}

type notificationDatabase struct {
	db DatabaseHelper
}

// NewNotificationDatabase initializes a new instance of notification database with the provided db connection
func NewNotificationDatabase(db DatabaseHelper) NotificationDatabase {
	return &notificationDatabase{
		db: db,
	}
}

func (n *notificationDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Notification, error) {
	var notifications []models.Notification
	cur, err := n.db.Collection(notificationName).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	err = cur.Decode(&notifications)
	if err != nil {
		return nil, err
	}
	return notifications, nil
}

func (n *notificationDatabase) InsertOne(ctx context.Context, notification models.Notification) (interface{}, error) {
	res, err := n.db.Collection(notificationName).InsertOne(ctx, notification)
	if err != nil {
		return nil, err
	}
	return res.Decode(), nil
}

func (n *notificationDatabase) UpdateOne(ctx context.Context, filter interface{}, update interface{}) error {
	_, err := n.db.Collection(notificationName).UpdateOne(ctx, filter, update)
	return err
}
