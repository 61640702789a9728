package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/cleancity/waste-collection-api/api"
	"github.com/cleancity/waste-collection-api/config"
	"github.com/cleancity/waste-collection-api/databases"
	"github.com/cleancity/waste-collection-api/models"
)

// Notification exports the notification handlers
type Notification struct {
	DB databases.NotificationDatabase
}

// NotificationsHandler returns the caller's notifications, unread first,
// newest first within each group.
func (n Notification) NotificationsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	principal, ok := api.PrincipalFromContext(r.Context())
	if !ok {
		config.ErrorStatus("unauthenticated", http.StatusUnauthorized, w, errors.New("no principal in context"))
		return
	}
	uID, err := primitive.ObjectIDFromHex(principal.UserID)
	if err != nil {
		config.ErrorStatus("unauthenticated", http.StatusUnauthorized, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	opts := options.Find().SetSort(bson.D{
		{Key: "isRead", Value: 1},
		{Key: "createdAt", Value: -1},
	})
	notifications, err := n.DB.Find(ctx, bson.M{"userId": uID}, opts)
	if err != nil {
		config.ErrorStatus("failed to get notifications", http.StatusInternalServerError, w, err)
		return
	}
	if notifications == nil {
		notifications = []models.Notification{}
	}

	b, err := json.Marshal(notifications)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// MarkNotificationReadHandler acknowledges one of the caller's
// notifications. The owner filter keeps users off each other's inboxes.
func (n Notification) MarkNotificationReadHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	principal, ok := api.PrincipalFromContext(r.Context())
	if !ok {
		config.ErrorStatus("unauthenticated", http.StatusUnauthorized, w, errors.New("no principal in context"))
		return
	}
	uID, err := primitive.ObjectIDFromHex(principal.UserID)
	if err != nil {
		config.ErrorStatus("unauthenticated", http.StatusUnauthorized, w, err)
		return
	}

	notificationID := mux.Vars(r)["notification_id"]
	nID, err := primitive.ObjectIDFromHex(notificationID)
	if err != nil {
		config.ErrorStatus("notification id is not a valid object id", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	err = n.DB.UpdateOne(ctx,
		bson.M{"_id": nID, "userId": uID},
		bson.M{"$set": bson.M{"isRead": true}})
	if err != nil {
		config.ErrorStatus("failed to update notification", http.StatusInternalServerError, w, err)
		return
	}

	b, _ := json.Marshal(map[string]string{"message": "Notification marked as read"})
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}
