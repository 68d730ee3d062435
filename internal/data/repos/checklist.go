package repos

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vkrlab/briefbot/internal/pkg/logger"
	"github.com/vkrlab/briefbot/internal/types"
)

type ChecklistRepo interface {
	SetMark(ctx context.Context, tx *gorm.DB, userID int64, briefIndex, itemIndex int, done bool) error
	GetMarked(ctx context.Context, tx *gorm.DB, userID int64, briefIndex int) (map[int]struct{}, error)
	CountByUserBrief(ctx context.Context, tx *gorm.DB, userID int64, briefIndex int) (int64, error)
	DeleteByUser(ctx context.Context, tx *gorm.DB, userID int64) error
}

type checklistRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewChecklistRepo(db *gorm.DB, baseLog *logger.Logger) ChecklistRepo {
	return &checklistRepo{db: db, log: baseLog.With("repo", "ChecklistRepo")}
}

// SetMark is idempotent in both directions: marking an already-marked item or
// unmarking an absent one is a no-op.
func (r *checklistRepo) SetMark(ctx context.Context, tx *gorm.DB, userID int64, briefIndex, itemIndex int, done bool) error {
	t := tx
	if t == nil {
		t = r.db
	}
	if !done {
		return t.WithContext(ctx).
			Where("user_id = ? AND brief_index = ? AND item_index = ?", userID, briefIndex, itemIndex).
			Delete(&types.ChecklistMark{}).Error
	}
	row := &types.ChecklistMark{
		UserID:      userID,
		BriefIndex:  briefIndex,
		ItemIndex:   itemIndex,
		CompletedAt: time.Now().UTC(),
	}
	return t.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(row).Error
}

func (r *checklistRepo) GetMarked(ctx context.Context, tx *gorm.DB, userID int64, briefIndex int) (map[int]struct{}, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var rows []types.ChecklistMark
	if err := t.WithContext(ctx).
		Where("user_id = ? AND brief_index = ?", userID, briefIndex).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[int]struct{}, len(rows))
	for _, m := range rows {
		out[m.ItemIndex] = struct{}{}
	}
	return out, nil
}

func (r *checklistRepo) CountByUserBrief(ctx context.Context, tx *gorm.DB, userID int64, briefIndex int) (int64, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var n int64
	if err := t.WithContext(ctx).
		Model(&types.ChecklistMark{}).
		Where("user_id = ? AND brief_index = ?", userID, briefIndex).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (r *checklistRepo) DeleteByUser(ctx context.Context, tx *gorm.DB, userID int64) error {
	t := tx
	if t == nil {
		t = r.db
	}
	return t.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&types.ChecklistMark{}).Error
}
