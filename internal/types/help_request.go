package types

import (
	"time"

	"github.com/google/uuid"
)

type RequestKind string

const (
	RequestKindHelp    RequestKind = "help"
	RequestKindMeeting RequestKind = "meeting"
)

// Label is the human label used in admin notifications.
func (k RequestKind) Label() string {
	switch k {
	case RequestKindHelp:
		return "Help needed"
	case RequestKindMeeting:
		return "Review/meeting needed"
	default:
		return string(k)
	}
}

func (k RequestKind) Valid() bool {
	return k == RequestKindHelp || k == RequestKindMeeting
}

// HelpRequest is a free-text help or meeting request submitted by a student.
// Resolved flips one way, unresolved -> resolved.
type HelpRequest struct {
	ID        uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    int64       `gorm:"not null;index;column:user_id" json:"user_id"`
	Kind      RequestKind `gorm:"not null;column:kind" json:"kind"`
	Comment   string      `gorm:"column:comment" json:"comment"`
	Resolved  bool        `gorm:"not null;default:false;column:resolved" json:"resolved"`
	CreatedAt time.Time   `gorm:"not null;index" json:"created_at"`

	Student *Student `gorm:"foreignKey:UserID;references:UserID" json:"student,omitempty"`
}

func (HelpRequest) TableName() string {
	return "help_requests"
}
