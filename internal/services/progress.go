package services

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/vkrlab/briefbot/internal/data/repos"
	"github.com/vkrlab/briefbot/internal/outline"
	"github.com/vkrlab/briefbot/internal/pkg/logger"
	"github.com/vkrlab/briefbot/internal/types"
)

// ProgressRow is one student's checklist completion against the item count
// of their selected brief. Total is 0 when the brief content is unavailable.
type ProgressRow struct {
	Student    *types.Student `json:"student"`
	BriefIndex int            `json:"brief_index"`
	BriefTitle string         `json:"brief_title"`
	Completed  int64          `json:"completed"`
	Total      int            `json:"total"`
}

// ProgressService backs the administrative surface: completion summaries and
// the reset-selection operation.
type ProgressService interface {
	Summary(ctx context.Context) ([]ProgressRow, error)
	ListStudents(ctx context.Context) ([]*types.Student, error)
	ResetStudent(ctx context.Context, userID int64) error
}

type progressService struct {
	db            *gorm.DB
	log           *logger.Logger
	studentRepo   repos.StudentRepo
	checklistRepo repos.ChecklistRepo
	catalog       *outline.Catalog
}

func NewProgressService(db *gorm.DB, log *logger.Logger, studentRepo repos.StudentRepo, checklistRepo repos.ChecklistRepo, catalog *outline.Catalog) ProgressService {
	return &progressService{
		db:            db,
		log:           log.With("service", "ProgressService"),
		studentRepo:   studentRepo,
		checklistRepo: checklistRepo,
		catalog:       catalog,
	}
}

func (s *progressService) Summary(ctx context.Context) ([]ProgressRow, error) {
	students, err := s.studentRepo.ListWithSelection(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}

	briefs, err := s.catalog.Briefs(ctx)
	if err != nil {
		// Totals degrade to 0; completion counts are still reported.
		s.log.Warn("Brief list unavailable for progress summary", "error", err)
	}

	rows := make([]ProgressRow, 0, len(students))
	for _, st := range students {
		if st.SelectedBriefIndex == nil {
			continue
		}
		idx := *st.SelectedBriefIndex
		row := ProgressRow{Student: st, BriefIndex: idx}

		completed, err := s.checklistRepo.CountByUserBrief(ctx, nil, st.UserID, idx)
		if err != nil {
			return nil, fmt.Errorf("count marks for %d: %w", st.UserID, err)
		}
		row.Completed = completed

		if idx >= 0 && idx < len(briefs) {
			brief := briefs[idx]
			row.BriefTitle = brief.Title
			if brief.PageID != "" {
				if content, err := s.catalog.BriefContent(ctx, brief.PageID); err == nil {
					row.Total = len(content.Checklist)
				}
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (s *progressService) ListStudents(ctx context.Context) ([]*types.Student, error) {
	return s.studentRepo.ListAll(ctx, nil)
}

// ResetStudent clears the student's selection and wipes all their checklist
// marks. The next entry event shows the topic list again.
func (s *progressService) ResetStudent(ctx context.Context, userID int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.studentRepo.ClearSelection(ctx, tx, userID); err != nil {
			return err
		}
		return s.checklistRepo.DeleteByUser(ctx, tx, userID)
	})
}
