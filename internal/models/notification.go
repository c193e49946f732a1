package models

import "time"

// Notification types
const (
	NotificationInvitation = "invitation"
)

// Notification represents a user notification (PostgreSQL)
type Notification struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Type        string    `json:"type" gorm:"size:30;index"`
	ActorID     string    `json:"actor_id" gorm:"type:uuid;index"`
	RecipientID string    `json:"recipient_id" gorm:"type:uuid;index"`
	TargetID    string    `json:"target_id"`
	TargetType  string    `json:"target_type" gorm:"size:20"`
	Message     string    `json:"message"`
	IsRead      bool      `json:"is_read" gorm:"default:false;index"`
	CreatedAt   time.Time `json:"created_at" gorm:"index"`
}

func (Notification) TableName() string { return TableNotifications }

// InvitationRequest is the body of the send-invitation endpoint
type InvitationRequest struct {
	RelationshipID   string           `json:"relationship_id" validate:"required"`
	ReceiverID       string           `json:"receiver_id" validate:"required"`
	RelationshipType RelationshipType `json:"relationship_type" validate:"required,oneof=romantic partnership friendship other"`
}
