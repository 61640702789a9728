package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// ComplaintStatus is the resolution state of a complaint
type ComplaintStatus string

// Complaint resolution states. Resolved is terminal.
const (
	ComplaintStatusPending  ComplaintStatus = "Pending"
	ComplaintStatusResolved ComplaintStatus = "Resolved"
)

// Valid reports whether the status is one of the two declared states
func (s ComplaintStatus) Valid() bool {
	return s == ComplaintStatusPending || s == ComplaintStatusResolved
}

// Complaint holds the structure for the complaints collection in mongo
type Complaint struct {
	ID            primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	UserID        primitive.ObjectID `json:"userId" bson:"userId"`
	BinID         primitive.ObjectID `json:"binId" bson:"binId"`
	ComplaintText string             `json:"complaintText" bson:"complaintText"`
	PhotoURL      string             `json:"photoUrl,omitempty" bson:"photoUrl,omitempty"`
	Status        ComplaintStatus    `json:"status" bson:"status"`
	CreatedAt     primitive.DateTime `json:"createdAt" bson:"createdAt"`
}

// ComplaintView is a complaint with its filer and bin references populated
// for display.
type ComplaintView struct {
	Complaint
	User *UserRef `json:"user,omitempty"`
	Bin  *BinRef  `json:"bin,omitempty"`
}
