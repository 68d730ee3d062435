package types

import "time"

// ChecklistMark records that a student marked one checklist item done for a
// brief. Presence of the row means done.
type ChecklistMark struct {
	UserID      int64     `gorm:"primaryKey;autoIncrement:false;column:user_id" json:"user_id"`
	BriefIndex  int       `gorm:"primaryKey;autoIncrement:false;column:brief_index" json:"brief_index"`
	ItemIndex   int       `gorm:"primaryKey;autoIncrement:false;column:item_index" json:"item_index"`
	CompletedAt time.Time `gorm:"not null" json:"completed_at"`
}

func (ChecklistMark) TableName() string {
	return "checklist_marks"
}
