package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/cleancity/waste-collection-api/api"
	"github.com/cleancity/waste-collection-api/config"
	"github.com/cleancity/waste-collection-api/databases"
	"github.com/cleancity/waste-collection-api/models"
)

// User exports all the user handlers
type User struct {
	DB   databases.UserDatabase
	RDB  databases.RouteDatabase
	CRDB databases.CollectionRecordDatabase
}

type updateUserRequest struct {
	Username      *string `json:"username"`
	Email         *string `json:"email"`
	Role          *string `json:"role"`
	Location      *string `json:"location"`
	ContactNumber *string `json:"contactNumber"`
}

// UserHandler returns all users, credential hashes stripped
func (u User) UserHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	users, err := u.DB.Find(ctx, bson.M{}, pageOptions(r))
	if err != nil {
		config.ErrorStatus("failed to get users", http.StatusInternalServerError, w, err)
		return
	}

	sanitized := make([]models.User, 0, len(users))
	for _, user := range users {
		sanitized = append(sanitized, user.Sanitized())
	}

	b, err := json.Marshal(sanitized)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// UserByIDHandler returns a single user by id
func (u User) UserByIDHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	userID := mux.Vars(r)["user_id"]
	uID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		config.ErrorStatus("user id is not a valid object id", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	user, err := u.DB.FindOne(ctx, bson.M{"_id": uID})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			config.ErrorStatus("User not found", http.StatusNotFound, w, err)
			return
		}
		config.ErrorStatus("failed to get user", http.StatusInternalServerError, w, err)
		return
	}

	b, err := json.Marshal(user.Sanitized())
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// UpdateUserByIDHandler applies a partial update to a user. Non-admins may
// only update their own account and never their role.
func (u User) UpdateUserByIDHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	principal, ok := api.PrincipalFromContext(r.Context())
	if !ok {
		config.ErrorStatus("unauthenticated", http.StatusUnauthorized, w, errors.New("no principal in context"))
		return
	}

	userID := mux.Vars(r)["user_id"]
	uID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		config.ErrorStatus("user id is not a valid object id", http.StatusBadRequest, w, err)
		return
	}

	if principal.Role != models.RoleAdmin && principal.UserID != userID {
		config.ErrorStatus("you may only update your own account", http.StatusForbidden, w, errors.New("user id mismatch"))
		return
	}

	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("invalid request body", http.StatusBadRequest, w, err)
		return
	}

	set := bson.M{}
	if req.Username != nil {
		if strings.TrimSpace(*req.Username) == "" {
			config.ErrorStatus("username must not be empty", http.StatusBadRequest, w, errors.New("empty username"))
			return
		}
		set["username"] = strings.TrimSpace(*req.Username)
	}
	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if email == "" {
			config.ErrorStatus("email must not be empty", http.StatusBadRequest, w, errors.New("empty email"))
			return
		}
		set["email"] = email
	}
	if req.Role != nil {
		if principal.Role != models.RoleAdmin {
			config.ErrorStatus("Not authorized to change roles", http.StatusForbidden, w, errors.New("role change by non-admin"))
			return
		}
		role, err := models.ParseRole(*req.Role)
		if err != nil {
			config.ErrorStatus("Invalid role", http.StatusBadRequest, w, err)
			return
		}
		set["role"] = role
	}
	if req.Location != nil {
		set["location"] = *req.Location
	}
	if req.ContactNumber != nil {
		if *req.ContactNumber != "" && !contactNumberRegex.MatchString(*req.ContactNumber) {
			config.ErrorStatus("contactNumber must be 7 to 15 digits", http.StatusBadRequest, w, errors.New("invalid contact number"))
			return
		}
		set["contactNumber"] = *req.ContactNumber
	}
	if len(set) == 0 {
		config.ErrorStatus("no updatable fields in request", http.StatusBadRequest, w, errors.New("empty update"))
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	if _, err := u.DB.FindOne(ctx, bson.M{"_id": uID}); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			config.ErrorStatus("User not found", http.StatusNotFound, w, err)
			return
		}
		config.ErrorStatus("failed to get user", http.StatusInternalServerError, w, err)
		return
	}

	if err := u.DB.UpdateOne(ctx, bson.M{"_id": uID}, bson.M{"$set": set}); err != nil {
		config.ErrorStatus("failed to update user", http.StatusInternalServerError, w, err)
		return
	}

	user, err := u.DB.FindOne(ctx, bson.M{"_id": uID})
	if err != nil {
		config.ErrorStatus("failed to get updated user", http.StatusInternalServerError, w, err)
		return
	}

	b, err := json.Marshal(user.Sanitized())
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// DeleteUserByIDHandler removes a user. Admins cannot delete themselves,
// and users still referenced by routes or collection records stay.
func (u User) DeleteUserByIDHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	principal, ok := api.PrincipalFromContext(r.Context())
	if !ok {
		config.ErrorStatus("unauthenticated", http.StatusUnauthorized, w, errors.New("no principal in context"))
		return
	}

	userID := mux.Vars(r)["user_id"]
	uID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		config.ErrorStatus("user id is not a valid object id", http.StatusBadRequest, w, err)
		return
	}
	if principal.UserID == userID {
		config.ErrorStatus("Cannot delete your own account", http.StatusForbidden, w, errors.New("self deletion"))
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	if _, err := u.DB.FindOne(ctx, bson.M{"_id": uID}); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			config.ErrorStatus("User not found", http.StatusNotFound, w, err)
			return
		}
		config.ErrorStatus("failed to get user", http.StatusInternalServerError, w, err)
		return
	}

	routeRefs, err := u.RDB.CountDocuments(ctx, bson.M{"driverId": uID})
	if err != nil {
		config.ErrorStatus("failed to check route references", http.StatusInternalServerError, w, err)
		return
	}
	recordRefs, err := u.CRDB.CountDocuments(ctx, bson.M{"driverId": uID})
	if err != nil {
		config.ErrorStatus("failed to check collection references", http.StatusInternalServerError, w, err)
		return
	}
	if routeRefs+recordRefs > 0 {
		config.ErrorStatus("User is referenced by existing records", http.StatusBadRequest, w,
			fmt.Errorf("user %s referenced by %d routes, %d collections", userID, routeRefs, recordRefs))
		return
	}

	if err := u.DB.DeleteOne(ctx, bson.M{"_id": uID}); err != nil {
		config.ErrorStatus("failed to delete user", http.StatusInternalServerError, w, err)
		return
	}

	b, _ := json.Marshal(map[string]string{"message": "User removed"})
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}
