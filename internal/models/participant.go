package models

// Participant tags a user on a memory
type Participant struct {
	MemoryID string `json:"memory_id" gorm:"type:uuid;primaryKey"`
	UserID   string `json:"user_id" gorm:"type:uuid;primaryKey"`
	UserName string `json:"user_name"`
}

func (Participant) TableName() string { return TableParticipants }
