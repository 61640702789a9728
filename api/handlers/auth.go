package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"

	"github.com/cleancity/waste-collection-api/api"
	"github.com/cleancity/waste-collection-api/config"
	"github.com/cleancity/waste-collection-api/databases"
	"github.com/cleancity/waste-collection-api/models"
)

// Auth exports the auth handlers
type Auth struct {
	DB     databases.UserDatabase
	Secret []byte
}

var contactNumberRegex = regexp.MustCompile(`^[0-9]{7,15}$`)

type registerRequest struct {
	Username      string `json:"username"`
	Email         string `json:"email"`
	Password      string `json:"password"`
	Role          string `json:"role"`
	Location      string `json:"location"`
	ContactNumber string `json:"contactNumber"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

// RegisterHandler creates a new user account and hands back a signed token
func (a Auth) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("invalid request body", http.StatusBadRequest, w, err)
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Username == "" || req.Email == "" || req.Password == "" {
		config.ErrorStatus("username, email and password are required", http.StatusBadRequest, w, errors.New("missing required fields"))
		return
	}

	role := models.RoleCitizen
	if req.Role != "" {
		parsed, err := models.ParseRole(req.Role)
		if err != nil {
			config.ErrorStatus("Invalid role", http.StatusBadRequest, w, err)
			return
		}
		role = parsed
	}
	if req.ContactNumber != "" && !contactNumberRegex.MatchString(req.ContactNumber) {
		config.ErrorStatus("contactNumber must be 7 to 15 digits", http.StatusBadRequest, w, errors.New("invalid contact number"))
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	_, err := a.DB.FindOne(ctx, bson.M{"email": req.Email})
	if err == nil {
		config.ErrorStatus("User already exists", http.StatusBadRequest, w, errors.New("duplicate email"))
		return
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		config.ErrorStatus("failed to check for existing user", http.StatusInternalServerError, w, err)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		config.ErrorStatus("failed to hash password", http.StatusInternalServerError, w, err)
		return
	}

	user := models.User{
		ID:            primitive.NewObjectID(),
		Username:      req.Username,
		Email:         req.Email,
		Password:      string(hash),
		Role:          role,
		Location:      req.Location,
		ContactNumber: req.ContactNumber,
		CreatedAt:     primitive.NewDateTimeFromTime(time.Now().UTC()),
	}
	if _, err := a.DB.InsertOne(ctx, user); err != nil {
		config.ErrorStatus("failed to create user", http.StatusInternalServerError, w, err)
		return
	}

	token, err := api.NewCredential(user.ID.Hex(), user.Role, a.Secret)
	if err != nil {
		config.ErrorStatus("failed to sign token", http.StatusInternalServerError, w, err)
		return
	}

	b, err := json.Marshal(authResponse{Token: token, User: user.Sanitized()})
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	w.Write(b)
}

// LoginHandler verifies the credentials and hands back a signed token.
// Unknown email and wrong password produce the same response, so the
// endpoint does not leak which accounts exist.
func (a Auth) LoginHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("invalid request body", http.StatusBadRequest, w, err)
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	user, err := a.DB.FindOne(ctx, bson.M{"email": req.Email})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			config.ErrorStatus("Invalid credentials", http.StatusBadRequest, w, err)
			return
		}
		config.ErrorStatus("failed to look up user", http.StatusInternalServerError, w, err)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		config.ErrorStatus("Invalid credentials", http.StatusBadRequest, w, err)
		return
	}

	token, err := api.NewCredential(user.ID.Hex(), user.Role, a.Secret)
	if err != nil {
		config.ErrorStatus("failed to sign token", http.StatusInternalServerError, w, err)
		return
	}

	b, err := json.Marshal(authResponse{Token: token, User: user.Sanitized()})
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// MeHandler returns the account behind the presented credential
func (a Auth) MeHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	principal, ok := api.PrincipalFromContext(r.Context())
	if !ok {
		config.ErrorStatus("unauthenticated", http.StatusUnauthorized, w, errors.New("no principal in context"))
		return
	}
	userID, err := primitive.ObjectIDFromHex(principal.UserID)
	if err != nil {
		config.ErrorStatus("unauthenticated", http.StatusUnauthorized, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	user, err := a.DB.FindOne(ctx, bson.M{"_id": userID})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			config.ErrorStatus("User not found", http.StatusNotFound, w, err)
			return
		}
		config.ErrorStatus("failed to look up user", http.StatusInternalServerError, w, err)
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
