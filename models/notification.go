package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// NotificationType categorizes a notification
type NotificationType string

// Notification categories.
const (
	NotificationAlert    NotificationType = "alert"
	NotificationReminder NotificationType = "reminder"
	NotificationInfo     NotificationType = "info"
	NotificationWarning  NotificationType = "warning"
)

// Notification holds the structure for the notifications collection in
// mongo. Notifications are produced by the sweep job and by complaint
// resolution; users only read and acknowledge them.
type Notification struct {
	ID              primitive.ObjectID  `json:"_id" bson:"_id,omitempty"`
	UserID          primitive.ObjectID  `json:"userId" bson:"userId"`
	Message         string              `json:"message" bson:"message"`
	Type            NotificationType    `json:"type" bson:"type"`
	IsRead          bool                `json:"isRead" bson:"isRead"`
	RelatedEntity   string              `json:"relatedEntity,omitempty" bson:"relatedEntity,omitempty"`
	RelatedEntityID *primitive.ObjectID `json:"relatedEntityId,omitempty" bson:"relatedEntityId,omitempty"`
	CreatedAt       primitive.DateTime  `json:"createdAt" bson:"createdAt"`
}
