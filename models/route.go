package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// RouteStatus is the progress state of a route assignment
type RouteStatus string

// Route progress states. Transitions only move forward:
// pending -> in-progress -> completed.
const (
	RouteStatusPending    RouteStatus = "pending"
	RouteStatusInProgress RouteStatus = "in-progress"
	RouteStatusCompleted  RouteStatus = "completed"
)

// Valid reports whether the status is one of the declared progress states
func (s RouteStatus) Valid() bool {
	switch s {
	case RouteStatusPending, RouteStatusInProgress, RouteStatusCompleted:
		return true
	}
	return false
}

func (s RouteStatus) rank() int {
	switch s {
	case RouteStatusPending:
		return 0
	case RouteStatusInProgress:
		return 1
	case RouteStatusCompleted:
		return 2
	}
	return -1
}

// CanTransition reports whether moving from s to next is allowed.
// Completed is terminal and states never move backward.
func (s RouteStatus) CanTransition(next RouteStatus) bool {
	if !s.Valid() || !next.Valid() {
		return false
	}
	return next.rank() >= s.rank()
}

// Route holds the structure for the routes collection in mongo. The bin
// order is accepted as given; no path optimization is performed.
type Route struct {
	ID                primitive.ObjectID   `json:"_id" bson:"_id,omitempty"`
	DriverID          primitive.ObjectID   `json:"driverId" bson:"driverId"`
	Date              primitive.DateTime   `json:"date" bson:"date"`
	BinIDs            []primitive.ObjectID `json:"binIds" bson:"binIds"`
	OptimizedPath     string               `json:"optimizedPath,omitempty" bson:"optimizedPath,omitempty"`
	Status            RouteStatus          `json:"status" bson:"status"`
	EstimatedDuration *float64             `json:"estimatedDuration,omitempty" bson:"estimatedDuration,omitempty"`
	Distance          *float64             `json:"distance,omitempty" bson:"distance,omitempty"`
	CreatedAt         primitive.DateTime   `json:"createdAt" bson:"createdAt"`
}

// RouteView is a route with its driver and bin references populated for
// display. Bins keep the stored visit order.
type RouteView struct {
	Route
	Driver *UserRef `json:"driver,omitempty"`
	Bins   []BinRef `json:"bins"`
}
