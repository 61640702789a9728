package handlers

import (
	"encoding/json"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	cldapi "github.com/cloudinary/cloudinary-go/v2/api"

	"github.com/cleancity/waste-collection-api/config"
)

const complaintPhotoFolder = "complaints"

// Uploads handles Cloudinary related requests
type Uploads struct{}

// GenerateSignature signs the parameters for a direct browser upload of a
// complaint photo. The client uploads straight to Cloudinary; the API
// secret never leaves the server.
func (u Uploads) GenerateSignature(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	cld, err := cloudinary.NewFromURL(os.Getenv("CLOUDINARY_URL"))
	if err != nil {
		config.ErrorStatus("uploads are not configured", http.StatusInternalServerError, w, err)
		return
	}

	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	params := url.Values{}
	params.Set("timestamp", timestamp)
	params.Set("folder", complaintPhotoFolder)
	if preset := os.Getenv("CLOUDINARY_UPLOAD_PRESET"); preset != "" {
		params.Set("upload_preset", preset)
	}

	signature, err := cldapi.SignParameters(params, cld.Config.Cloud.APISecret)
	if err != nil {
		config.ErrorStatus("failed to sign upload parameters", http.StatusInternalServerError, w, err)
		return
	}

	response := map[string]string{
		"timestamp": timestamp,
		"signature": signature,
		"apiKey":    cld.Config.Cloud.APIKey,
		"cloudName": cld.Config.Cloud.CloudName,
		"folder":    complaintPhotoFolder,
	}
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}
