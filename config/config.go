package config

import (
	"encoding/json"
	"net/http"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/cleancity/waste-collection-api/logging"
	"github.com/cleancity/waste-collection-api/models"
)

// Config holds the project config values
type Config struct {
	URL            string
	DatabaseName   string
	BaseURL        string
	Port           string
	JWTSecret      string
	AllowedOrigins []string
	CronSpec       string
}

// New sets up all config related services
func New() *Config {

	//setup zap logger and replace default logger
	if os.Getenv("APP_ENV") == "production" {
		_ = zap.ReplaceGlobals(logging.New().Desugar())
	} else {
		logger := zap.NewExample()
		defer logger.Sync()
		_ = zap.ReplaceGlobals(logger)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "5000"
	}
	cronSpec := os.Getenv("SWEEP_CRON")
	if cronSpec == "" {
		cronSpec = "@hourly"
	}

	return &Config{
		URL:            os.Getenv("DB_URI"),
		DatabaseName:   os.Getenv("DB_NAME"),
		BaseURL:        os.Getenv("BASE_URL"),
		Port:           port,
		JWTSecret:      os.Getenv("JWT_SECRET"),
		AllowedOrigins: splitOrigins(os.Getenv("ALLOWED_ORIGINS")),
		CronSpec:       cronSpec,
	}
}

func splitOrigins(raw string) []string {
	if raw == "" {
		return []string{"http://localhost:3000"}
	}
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// ErrorStatus logs the underlying error and writes the caller-facing
// {"message": ...} envelope. Internal error detail stays in the logs.
func ErrorStatus(message string, httpStatusCode int, w http.ResponseWriter, err error) {
	zap.S().With(err).Error(message)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatusCode)
	b, _ := json.Marshal(models.ErrorResponse{Message: message})
	w.Write(b)
}
