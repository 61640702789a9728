package models

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// BinStatus is the fill state of a bin. There is no guarded transition
// graph; any authorized writer may set any status, except that recording
// a collection always forces a bin back to empty.
type BinStatus string

// Bin fill states.
const (
	BinStatusEmpty       BinStatus = "empty"
	BinStatusHalfFull    BinStatus = "half-full"
	BinStatusFull        BinStatus = "full"
	BinStatusOverflow    BinStatus = "overflow"
	BinStatusMaintenance BinStatus = "maintenance"
)

// Valid reports whether the status is one of the declared fill states
func (s BinStatus) Valid() bool {
	switch s {
	case BinStatusEmpty, BinStatusHalfFull, BinStatusFull, BinStatusOverflow, BinStatusMaintenance:
		return true
	}
	return false
}

// BinType is the waste category a bin accepts
type BinType string

// Bin waste categories.
const (
	BinTypeGeneral    BinType = "general"
	BinTypeRecyclable BinType = "recyclable"
	BinTypeOrganic    BinType = "organic"
	BinTypeHazardous  BinType = "hazardous"
)

// Valid reports whether the type is one of the declared categories
func (t BinType) Valid() bool {
	switch t {
	case BinTypeGeneral, BinTypeRecyclable, BinTypeOrganic, BinTypeHazardous:
		return true
	}
	return false
}

// GeoPoint is a GeoJSON point, coordinates ordered [longitude, latitude]
type GeoPoint struct {
	Type        string    `json:"type" bson:"type"`
	Coordinates []float64 `json:"coordinates" bson:"coordinates"`
}

// Validate checks the GeoJSON shape: type "Point" and a numeric [lon, lat] pair
func (p GeoPoint) Validate() error {
	if p.Type != "Point" {
		return fmt.Errorf("location type must be Point, got %q", p.Type)
	}
	if len(p.Coordinates) != 2 {
		return fmt.Errorf("coordinates must be [longitude, latitude], got %d values", len(p.Coordinates))
	}
	return nil
}

// Bin holds the structure for the bins collection in mongo
type Bin struct {
	ID              primitive.ObjectID  `json:"_id" bson:"_id,omitempty"`
	Location        GeoPoint            `json:"location" bson:"location"`
	Zone            string              `json:"zone" bson:"zone"`
	Capacity        float64             `json:"capacity" bson:"capacity"`
	CurrentLevel    float64             `json:"currentLevel" bson:"currentLevel"`
	Status          BinStatus           `json:"status" bson:"status"`
	Type            BinType             `json:"type" bson:"type"`
	LastCollectedAt *primitive.DateTime `json:"lastCollectedAt" bson:"lastCollectedAt,omitempty"`
	CreatedAt       primitive.DateTime  `json:"createdAt" bson:"createdAt"`
}

// BinRef is the denormalized bin projection joined into collection,
// route and complaint reads.
type BinRef struct {
	ID       primitive.ObjectID `json:"_id" bson:"_id"`
	Location GeoPoint           `json:"location" bson:"location"`
	Zone     string             `json:"zone" bson:"zone"`
	Status   BinStatus          `json:"status" bson:"status"`
}

// Ref returns the projection of the bin used in denormalized reads
func (b Bin) Ref() BinRef {
	return BinRef{ID: b.ID, Location: b.Location, Zone: b.Zone, Status: b.Status}
}

// BinEvent is pushed over the live feed whenever a bin changes
type BinEvent struct {
	Event string `json:"event"`
	Bin   Bin    `json:"bin"`
}
