package models

// ErrorResponse is the caller-facing error envelope
type ErrorResponse struct {
	Message string `json:"message"`
}

// HealthCheckResponse returns the health check response, yes we are alive
type HealthCheckResponse struct {
	Alive bool `json:"alive"`
}
