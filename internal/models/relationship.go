package models

import "time"

// RelationshipStatus tracks a relationship request through its one-way transitions
type RelationshipStatus string

const (
	StatusPending  RelationshipStatus = "pending"
	StatusAccepted RelationshipStatus = "accepted"
	StatusDeclined RelationshipStatus = "declined"
)

// RelationshipType describes the kind of connection between two users
type RelationshipType string

const (
	RelationshipRomantic    RelationshipType = "romantic"
	RelationshipPartnership RelationshipType = "partnership"
	RelationshipFriendship  RelationshipType = "friendship"
	RelationshipOther       RelationshipType = "other"
)

// Valid reports whether t is a known relationship type
func (t RelationshipType) Valid() bool {
	switch t {
	case RelationshipRomantic, RelationshipPartnership, RelationshipFriendship, RelationshipOther:
		return true
	}
	return false
}

// Relationship is a bidirectional connection between a requester and a receiver.
// The unordered (requester, receiver) pair is unique at the backend.
type Relationship struct {
	ID               string             `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	RequesterID      string             `json:"requester_id" gorm:"type:uuid;index"`
	ReceiverID       string             `json:"receiver_id" gorm:"type:uuid;index"`
	Status           RelationshipStatus `json:"status" gorm:"type:varchar(20);default:'pending'"`
	RelationshipType RelationshipType   `json:"relationship_type" gorm:"type:varchar(20)"`
	IsPrimary        bool               `json:"is_primary" gorm:"default:false"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`

	Requester *UserProfile `json:"requester,omitempty" gorm:"foreignKey:RequesterID;references:ID;constraint:OnDelete:CASCADE"`
	Receiver  *UserProfile `json:"receiver,omitempty" gorm:"foreignKey:ReceiverID;references:ID;constraint:OnDelete:CASCADE"`

	// Derived relative to the viewer, never persisted.
	PartnerID   string `json:"-" gorm:"-"`
	PartnerName string `json:"-" gorm:"-"`
}

func (Relationship) TableName() string { return TableRelationships }

// SendRelationshipRequest defines the body for requesting a relationship
type SendRelationshipRequest struct {
	Receiver         string           `json:"receiver" validate:"required,min=2,max=320"`
	RelationshipType RelationshipType `json:"relationship_type" validate:"required,oneof=romantic partnership friendship other"`
}

// RespondRelationshipRequest defines the body for accepting/declining a relationship request
type RespondRelationshipRequest struct {
	Accept bool `json:"accept"`
}
