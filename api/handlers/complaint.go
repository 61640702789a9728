package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/cleancity/waste-collection-api/api"
	"github.com/cleancity/waste-collection-api/config"
	"github.com/cleancity/waste-collection-api/databases"
	"github.com/cleancity/waste-collection-api/models"
	templates "github.com/cleancity/waste-collection-api/templates/html"
)

// Complaint exports all the complaint handlers
type Complaint struct {
	DB  databases.ComplaintDatabase
	BDB databases.BinDatabase
	UDB databases.UserDatabase
	NDB databases.NotificationDatabase
}

type createComplaintRequest struct {
	BinID         string `json:"binId"`
	ComplaintText string `json:"complaintText"`
	PhotoURL      string `json:"photoUrl"`
}

type updateComplaintStatusRequest struct {
	Status models.ComplaintStatus `json:"status"`
}

// CreateComplaintHandler files a complaint against a bin on behalf of the
// caller.
func (c Complaint) CreateComplaintHandler(w http.ResponseWriter, r *http.Request) {
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

	var req createComplaintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("invalid request body", http.StatusBadRequest, w, err)
		return
	}
	if strings.TrimSpace(req.ComplaintText) == "" {
		config.ErrorStatus("complaintText is required", http.StatusBadRequest, w, errors.New("empty complaint text"))
		return
	}
	bID, err := primitive.ObjectIDFromHex(req.BinID)
	if err != nil {
		config.ErrorStatus("bin id is not a valid object id", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	if _, err := c.BDB.FindOne(ctx, bson.M{"_id": bID}); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			config.ErrorStatus("Bin not found", http.StatusNotFound, w, err)
			return
		}
		config.ErrorStatus("failed to get bin", http.StatusInternalServerError, w, err)
		return
	}

	complaint := models.Complaint{
		ID:            primitive.NewObjectID(),
		UserID:        uID,
		BinID:         bID,
		ComplaintText: strings.TrimSpace(req.ComplaintText),
		PhotoURL:      req.PhotoURL,
		Status:        models.ComplaintStatusPending,
		CreatedAt:     primitive.NewDateTimeFromTime(time.Now().UTC()),
	}
	if _, err := c.DB.InsertOne(ctx, complaint); err != nil {
		config.ErrorStatus("failed to create complaint", http.StatusInternalServerError, w, err)
		return
	}

	b, err := json.Marshal(complaint)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	w.Write(b)
}

// MyComplaintsHandler returns the caller's own complaints with bin
// references populated.
func (c Complaint) MyComplaintsHandler(w http.ResponseWriter, r *http.Request) {
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
	c.listComplaints(w, r, bson.M{"userId": uID})
}

// ComplaintHandler returns all complaints with filer and bin references
// populated.
func (c Complaint) ComplaintHandler(w http.ResponseWriter, r *http.Request) {
	c.listComplaints(w, r, bson.M{})
}

// UpdateComplaintStatusHandler moves a complaint between its two states.
// Resolution notifies the filer in-app and, when mail is configured, by
// email.
func (c Complaint) UpdateComplaintStatusHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	complaintID := mux.Vars(r)["complaint_id"]
	cID, err := primitive.ObjectIDFromHex(complaintID)
	if err != nil {
		config.ErrorStatus("complaint id is not a valid object id", http.StatusBadRequest, w, err)
		return
	}

	var req updateComplaintStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("invalid request body", http.StatusBadRequest, w, err)
		return
	}
	if !req.Status.Valid() {
		config.ErrorStatus("Invalid status value", http.StatusBadRequest, w, fmt.Errorf("status %q", req.Status))
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	complaint, err := c.DB.FindOne(ctx, bson.M{"_id": cID})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			config.ErrorStatus("Complaint not found", http.StatusNotFound, w, err)
			return
		}
		config.ErrorStatus("failed to get complaint", http.StatusInternalServerError, w, err)
		return
	}

	if err := c.DB.UpdateOne(ctx, bson.M{"_id": cID}, bson.M{"$set": bson.M{"status": req.Status}}); err != nil {
		config.ErrorStatus("failed to update complaint", http.StatusInternalServerError, w, err)
		return
	}
	resolved := complaint.Status != models.ComplaintStatusResolved && req.Status == models.ComplaintStatusResolved
	complaint.Status = req.Status

	if resolved {
		c.notifyResolution(ctx, complaint)
	}

	b, err := json.Marshal(complaint)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

func (c Complaint) listComplaints(w http.ResponseWriter, r *http.Request, filter bson.M) {
	w.Header().Set("Content-Type", "application/json")

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	complaints, err := c.DB.Find(ctx, filter, pageOptions(r))
	if err != nil {
		config.ErrorStatus("failed to get complaints", http.StatusInternalServerError, w, err)
		return
	}

	userIDs := make([]primitive.ObjectID, 0, len(complaints))
	binIDs := make([]primitive.ObjectID, 0, len(complaints))
	for _, cm := range complaints {
		userIDs = append(userIDs, cm.UserID)
		binIDs = append(binIDs, cm.BinID)
	}
	users, err := userRefMap(ctx, c.UDB, userIDs)
	if err != nil {
		config.ErrorStatus("failed to get complaint users", http.StatusInternalServerError, w, err)
		return
	}
	bins, err := binRefMap(ctx, c.BDB, binIDs)
	if err != nil {
		config.ErrorStatus("failed to get complaint bins", http.StatusInternalServerError, w, err)
		return
	}

	views := make([]models.ComplaintView, 0, len(complaints))
	for _, cm := range complaints {
		view := models.ComplaintView{Complaint: cm}
		if user, ok := users[cm.UserID]; ok {
			view.User = &user
		}
		if bin, ok := bins[cm.BinID]; ok {
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

// notifyResolution writes an in-app notification for the filer and sends
// the resolution email. Neither failure blocks the status update.
func (c Complaint) notifyResolution(ctx context.Context, complaint *models.Complaint) {
	notification := models.Notification{
		ID:              primitive.NewObjectID(),
		UserID:          complaint.UserID,
		Message:         "Your complaint has been resolved",
		Type:            models.NotificationInfo,
		RelatedEntity:   "complaint",
		RelatedEntityID: &complaint.ID,
		CreatedAt:       primitive.NewDateTimeFromTime(time.Now().UTC()),
	}
	if _, err := c.NDB.InsertOne(ctx, notification); err != nil {
		zap.S().Errorw("failed to create resolution notification",
			"complaintId", complaint.ID.Hex(),
			"error", err)
	}

	user, err := c.UDB.FindOne(ctx, bson.M{"_id": complaint.UserID})
	if err != nil {
		zap.S().Errorw("failed to look up complaint filer for email",
			"complaintId", complaint.ID.Hex(),
			"error", err)
		return
	}
	go sendResolutionEmail(user.Email, complaint)
}

func sendResolutionEmail(toEmail string, complaint *models.Complaint) {
	apiKey := os.Getenv("SENDGRID_API_KEY")
	if apiKey == "" || toEmail == "" {
		return
	}

	subject := "Your complaint has been resolved"
	plain := fmt.Sprintf("Good news! The complaint you filed on %s has been resolved.\n\nComplaint: %s\n\nThank you for helping keep your city clean.",
		complaint.CreatedAt.Time().Format("January 2, 2006"), complaint.ComplaintText)
	html := templates.RenderGenericEmail(subject, plain)

	from := mail.NewEmail("CleanCity", "no-reply@cleancity.app")
	to := mail.NewEmail("", toEmail)
	msg := mail.NewSingleEmail(from, subject, to, plain, html)
	client := sendgrid.NewSendClient(apiKey)
	if _, err := client.Send(msg); err != nil {
		zap.S().Errorw("failed to send resolution email", "error", err)
	}
}
