package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/vkrlab/briefbot/internal/pkg/errors"
	"github.com/vkrlab/briefbot/internal/pkg/logger"
	"github.com/vkrlab/briefbot/internal/types"
)

type RequestRepo interface {
	Create(ctx context.Context, tx *gorm.DB, row *types.HelpRequest) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.HelpRequest, error)
	ListByResolved(ctx context.Context, tx *gorm.DB, resolved bool) ([]*types.HelpRequest, error)
	Resolve(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type requestRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRequestRepo(db *gorm.DB, baseLog *logger.Logger) RequestRepo {
	return &requestRepo{db: db, log: baseLog.With("repo", "RequestRepo")}
}

func (r *requestRepo) Create(ctx context.Context, tx *gorm.DB, row *types.HelpRequest) error {
	t := tx
	if t == nil {
		t = r.db
	}
	if row == nil {
		return pkgerrors.ErrInvalidArgument
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	return t.WithContext(ctx).Create(row).Error
}

func (r *requestRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.HelpRequest, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var out types.HelpRequest
	err := t.WithContext(ctx).Preload("Student").Where("id = ?", id).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListByResolved returns requests newest-first with the student row preloaded.
func (r *requestRepo) ListByResolved(ctx context.Context, tx *gorm.DB, resolved bool) ([]*types.HelpRequest, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var out []*types.HelpRequest
	if err := t.WithContext(ctx).
		Preload("Student").
		Where("resolved = ?", resolved).
		Order("created_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// Resolve flips the request to resolved. Resolving an already-resolved
// request is a no-op.
func (r *requestRepo) Resolve(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	t := tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return pkgerrors.ErrInvalidArgument
	}
	res := t.WithContext(ctx).
		Model(&types.HelpRequest{}).
		Where("id = ?", id).
		Update("resolved", true)
	if res.Error != nil {
		return res.Error
	}
	return nil
}
