package models

import "time"

// Comment represents a comment on a memory
type Comment struct {
	ID        string    `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	MemoryID  string    `json:"memory_id" gorm:"type:uuid;index"`
	UserID    string    `json:"user_id" gorm:"type:uuid;index"`
	UserName  string    `json:"user_name"`
	Content   string    `json:"content" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
}

func (Comment) TableName() string { return TableComments }

// CreateCommentRequest defines the body of a new comment
type CreateCommentRequest struct {
	MemoryID string `json:"memory_id" validate:"required"`
	Content  string `json:"content" validate:"required,min=1,max=1000"`
}
