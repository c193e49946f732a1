package models

import "time"

// ReactionType is one of the fixed reactions a user can attach to a memory
type ReactionType string

const (
	ReactionHeart       ReactionType = "heart"
	ReactionSmile       ReactionType = "smile"
	ReactionCelebration ReactionType = "celebration"
)

// Valid reports whether t is a known reaction type
func (t ReactionType) Valid() bool {
	switch t {
	case ReactionHeart, ReactionSmile, ReactionCelebration:
		return true
	}
	return false
}

// Reaction represents a reaction on a memory; unique per (memory, user, type)
type Reaction struct {
	ID           string       `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	MemoryID     string       `json:"memory_id" gorm:"type:uuid;index;uniqueIndex:idx_reaction_memory_user_type"`
	UserID       string       `json:"user_id" gorm:"type:uuid;uniqueIndex:idx_reaction_memory_user_type"`
	ReactionType ReactionType `json:"reaction_type" gorm:"type:varchar(20);uniqueIndex:idx_reaction_memory_user_type"`
	UserName     string       `json:"user_name"`
	CreatedAt    time.Time    `json:"created_at"`
}

func (Reaction) TableName() string { return TableReactions }
