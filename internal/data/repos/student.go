package repos

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vkrlab/briefbot/internal/pkg/logger"
	"github.com/vkrlab/briefbot/internal/types"
)

type StudentRepo interface {
	Upsert(ctx context.Context, tx *gorm.DB, userID int64, username, firstName, lastName string) error
	GetByID(ctx context.Context, tx *gorm.DB, userID int64) (*types.Student, error)
	SetSelection(ctx context.Context, tx *gorm.DB, userID int64, briefIndex int) error
	ClearSelection(ctx context.Context, tx *gorm.DB, userID int64) error
	SetCurrentStep(ctx context.Context, tx *gorm.DB, userID int64, stepIndex int) error
	ListAll(ctx context.Context, tx *gorm.DB) ([]*types.Student, error)
	ListWithSelection(ctx context.Context, tx *gorm.DB) ([]*types.Student, error)
}

type studentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStudentRepo(db *gorm.DB, baseLog *logger.Logger) StudentRepo {
	return &studentRepo{db: db, log: baseLog.With("repo", "StudentRepo")}
}

// Upsert creates the student on first contact and refreshes the display
// fields on every later one. Selection and step columns are left untouched.
func (r *studentRepo) Upsert(ctx context.Context, tx *gorm.DB, userID int64, username, firstName, lastName string) error {
	t := tx
	if t == nil {
		t = r.db
	}
	now := time.Now().UTC()
	row := &types.Student{
		UserID:    userID,
		Username:  username,
		FirstName: firstName,
		LastName:  lastName,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return t.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"username", "first_name", "last_name", "updated_at"}),
		}).
		Create(row).Error
}

func (r *studentRepo) GetByID(ctx context.Context, tx *gorm.DB, userID int64) (*types.Student, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var out types.Student
	err := t.WithContext(ctx).Where("user_id = ?", userID).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *studentRepo) SetSelection(ctx context.Context, tx *gorm.DB, userID int64, briefIndex int) error {
	t := tx
	if t == nil {
		t = r.db
	}
	return t.WithContext(ctx).
		Model(&types.Student{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"selected_brief_index": briefIndex,
			"updated_at":           time.Now().UTC(),
		}).Error
}

func (r *studentRepo) ClearSelection(ctx context.Context, tx *gorm.DB, userID int64) error {
	t := tx
	if t == nil {
		t = r.db
	}
	return t.WithContext(ctx).
		Model(&types.Student{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"selected_brief_index": nil,
			"current_step_index":   nil,
			"updated_at":           time.Now().UTC(),
		}).Error
}

func (r *studentRepo) SetCurrentStep(ctx context.Context, tx *gorm.DB, userID int64, stepIndex int) error {
	t := tx
	if t == nil {
		t = r.db
	}
	return t.WithContext(ctx).
		Model(&types.Student{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"current_step_index": stepIndex,
			"updated_at":         time.Now().UTC(),
		}).Error
}

func (r *studentRepo) ListAll(ctx context.Context, tx *gorm.DB) ([]*types.Student, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var out []*types.Student
	if err := t.WithContext(ctx).
		Order("first_name ASC, last_name ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *studentRepo) ListWithSelection(ctx context.Context, tx *gorm.DB) ([]*types.Student, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var out []*types.Student
	if err := t.WithContext(ctx).
		Where("selected_brief_index IS NOT NULL").
		Order("first_name ASC, last_name ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
