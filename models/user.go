package models

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role is the closed set of principal roles. Role checks switch on these
// constants rather than comparing free-form strings.
type Role string

// The three roles known to the system.
const (
	RoleAdmin   Role = "admin"
	RoleDriver  Role = "driver"
	RoleCitizen Role = "citizen"
)

// ParseRole converts a raw string into a Role
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RoleDriver, RoleCitizen:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Valid reports whether the role is one of the known constants
func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}

// User holds the structure for the users collection in mongo
type User struct {
	ID            primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	Username      string             `json:"username" bson:"username"`
	Email         string             `json:"email" bson:"email"`
	Password      string             `json:"password,omitempty" bson:"password"`
	Role          Role               `json:"role" bson:"role"`
	Location      string             `json:"location,omitempty" bson:"location,omitempty"`
	ContactNumber string             `json:"contactNumber,omitempty" bson:"contactNumber,omitempty"`
	CreatedAt     primitive.DateTime `json:"createdAt" bson:"createdAt"`
}

// Sanitized returns a copy of the user safe for responses, credential hash removed
func (u User) Sanitized() User {
	u.Password = ""
	return u
}

// UserRef is the denormalized driver/filer projection joined into
// collection, route and complaint reads.
type UserRef struct {
	ID       primitive.ObjectID `json:"_id" bson:"_id"`
	Username string             `json:"username" bson:"username"`
	Email    string             `json:"email" bson:"email"`
}

// Ref returns the projection of the user used in denormalized reads
func (u User) Ref() UserRef {
	return UserRef{ID: u.ID, Username: u.Username, Email: u.Email}
}
