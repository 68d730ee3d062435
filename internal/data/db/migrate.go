package db

import (
	"gorm.io/gorm"

	"github.com/vkrlab/briefbot/internal/types"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		&types.Student{},
		&types.ChecklistMark{},
		&types.HelpRequest{},
	)
}
