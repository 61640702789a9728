package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// CollectionRecord holds the structure for the collections collection in
// mongo. Records are append-only: never updated, never deleted (except as
// a compensating write when the paired bin update fails).
type CollectionRecord struct {
	ID                     primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	DriverID               primitive.ObjectID `json:"driverId" bson:"driverId"`
	BinID                  primitive.ObjectID `json:"binId" bson:"binId"`
	CollectedAt            primitive.DateTime `json:"collectedAt" bson:"collectedAt"`
	Notes                  string             `json:"notes,omitempty" bson:"notes,omitempty"`
	StatusBeforeCollection BinStatus          `json:"statusBeforeCollection" bson:"statusBeforeCollection"`
}

// CollectionView is a collection record with its driver and bin references
// populated for display.
type CollectionView struct {
	CollectionRecord
	Driver *UserRef `json:"driver,omitempty"`
	Bin    *BinRef  `json:"bin,omitempty"`
}
