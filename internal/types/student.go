package types

import (
	"strings"
	"time"
)

// Student is one bot user, keyed by the transport chat/user identifier.
type Student struct {
	UserID             int64     `gorm:"primaryKey;autoIncrement:false;column:user_id" json:"user_id"`
	Username           string    `gorm:"column:username" json:"username"`
	FirstName          string    `gorm:"column:first_name" json:"first_name"`
	LastName           string    `gorm:"column:last_name" json:"last_name"`
	SelectedBriefIndex *int      `gorm:"column:selected_brief_index" json:"selected_brief_index"`
	CurrentStepIndex   *int      `gorm:"column:current_step_index" json:"current_step_index"`
	CreatedAt          time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt          time.Time `gorm:"not null" json:"updated_at"`
}

func (Student) TableName() string {
	return "students"
}

// DisplayName prefers "First Last", falling back to the username.
func (s *Student) DisplayName() string {
	name := strings.TrimSpace(strings.TrimSpace(s.FirstName) + " " + strings.TrimSpace(s.LastName))
	if name != "" {
		return name
	}
	if s.Username != "" {
		return s.Username
	}
	return "—"
}
