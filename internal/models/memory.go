package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Table names shared by every store implementation
const (
	TableMemories      = "memories"
	TableReactions     = "reactions"
	TableComments      = "comments"
	TableParticipants  = "memory_participants"
	TableRelationships = "relationships"
	TableProfiles      = "profiles"
	TableNotifications = "notifications"
)

// Category classifies a memory on the timeline
type Category string

const (
	CategoryAdventure   Category = "adventure"
	CategoryAnniversary Category = "anniversary"
	CategoryCelebration Category = "celebration"
	CategoryDateNight   Category = "date_night"
	CategoryEveryday    Category = "everyday"
	CategoryMilestone   Category = "milestone"
	CategoryTravel      Category = "travel"
	CategoryOther       Category = "other"
)

// ImageList is the ordered list of public image URLs attached to a memory
type ImageList []string

// Value implements driver.Valuer
func (l ImageList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (l *ImageList) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*l = ImageList{}
		return nil
	case []byte:
		return json.Unmarshal(v, (*[]string)(l))
	case string:
		return json.Unmarshal([]byte(v), (*[]string)(l))
	default:
		return fmt.Errorf("unsupported image list source %T", src)
	}
}

// Memory is a single timeline post
type Memory struct {
	ID           string        `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt    time.Time     `json:"created_at" gorm:"index"`
	UpdatedAt    time.Time     `json:"updated_at"`
	Title        string        `json:"title" gorm:"not null"`
	Description  string        `json:"description"`
	Date         string        `json:"date" gorm:"type:varchar(10)"` // YYYY-MM-DD
	Location     *string       `json:"location"`
	Category     Category      `json:"category" gorm:"type:varchar(20)"`
	IsPublic     bool          `json:"is_public" gorm:"default:false;index"`
	Images       ImageList     `json:"images" gorm:"type:jsonb"`
	AuthorID     string        `json:"author_id" gorm:"type:uuid;index"`
	AuthorName   string        `json:"author_name"`
	Reactions    []Reaction    `json:"reactions" gorm:"foreignKey:MemoryID;constraint:OnDelete:CASCADE"`
	Comments     []Comment     `json:"comments" gorm:"foreignKey:MemoryID;constraint:OnDelete:CASCADE"`
	Participants []Participant `json:"participants" gorm:"foreignKey:MemoryID;constraint:OnDelete:CASCADE"`
}

func (Memory) TableName() string { return TableMemories }

// EnsureCollections replaces nil sub-collections with empty ones
func (m *Memory) EnsureCollections() {
	if m.Images == nil {
		m.Images = ImageList{}
	}
	if m.Reactions == nil {
		m.Reactions = []Reaction{}
	}
	if m.Comments == nil {
		m.Comments = []Comment{}
	}
	if m.Participants == nil {
		m.Participants = []Participant{}
	}
}

// ParticipantInput tags another user on a memory
type ParticipantInput struct {
	UserID   string `json:"user_id" validate:"required"`
	UserName string `json:"user_name" validate:"max=100"`
}

// CreateMemoryRequest defines the fields of a new memory
type CreateMemoryRequest struct {
	Title        string             `json:"title" validate:"required,min=1,max=200"`
	Description  string             `json:"description" validate:"max=5000"`
	Date         string             `json:"date" validate:"required,datetime=2006-01-02"`
	Location     *string            `json:"location,omitempty" validate:"omitempty,max=200"`
	Category     Category           `json:"category" validate:"required,oneof=adventure anniversary celebration date_night everyday milestone travel other"`
	IsPublic     *bool              `json:"is_public,omitempty"` // nil uses the author's default post privacy
	Participants []ParticipantInput `json:"participants,omitempty" validate:"omitempty,dive"`
}

// UpdateMemoryRequest defines the editable fields of a memory; nil fields are left unchanged
type UpdateMemoryRequest struct {
	Title       *string   `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Description *string   `json:"description,omitempty" validate:"omitempty,max=5000"`
	Date        *string   `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Location    *string   `json:"location,omitempty" validate:"omitempty,max=200"`
	Category    *Category `json:"category,omitempty" validate:"omitempty,oneof=adventure anniversary celebration date_night everyday milestone travel other"`
	IsPublic    *bool     `json:"is_public,omitempty"`
	// Participants replaces the whole tag list when non-nil.
	Participants *[]ParticipantInput `json:"participants,omitempty"`
}
