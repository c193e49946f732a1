package models

import "time"

// PostPrivacy is the default visibility applied to a user's new memories
type PostPrivacy string

const (
	PrivacyPublic  PostPrivacy = "public"
	PrivacyPrivate PostPrivacy = "private"
)

// UserProfile is the public-facing profile row of an identity
type UserProfile struct {
	ID                 string      `json:"id" gorm:"type:uuid;primaryKey"`
	DisplayName        string      `json:"display_name" gorm:"index"`
	IsPublicProfile    bool        `json:"is_public_profile" gorm:"default:false"`
	DefaultPostPrivacy PostPrivacy `json:"default_post_privacy" gorm:"type:varchar(10);default:'private'"`
	RelationshipStatus string      `json:"relationship_status"`
	Bio                string      `json:"bio"`
	CreatedAt          time.Time   `json:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at"`
}

func (UserProfile) TableName() string { return TableProfiles }

// ProfileUpdate defines the editable profile fields; nil fields are left unchanged
type ProfileUpdate struct {
	DisplayName        *string      `json:"display_name,omitempty" validate:"omitempty,min=2,max=50"`
	IsPublicProfile    *bool        `json:"is_public_profile,omitempty"`
	DefaultPostPrivacy *PostPrivacy `json:"default_post_privacy,omitempty" validate:"omitempty,oneof=public private"`
	RelationshipStatus *string      `json:"relationship_status,omitempty" validate:"omitempty,max=50"`
	Bio                *string      `json:"bio,omitempty" validate:"omitempty,max=500"`
}

// UserRef identifies a user resolved by the find-user endpoint
type UserRef struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}
