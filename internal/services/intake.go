package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vkrlab/briefbot/internal/data/repos"
	pkgerrors "github.com/vkrlab/briefbot/internal/pkg/errors"
	"github.com/vkrlab/briefbot/internal/pkg/logger"
	"github.com/vkrlab/briefbot/internal/types"
)

// IntakeService captures help/meeting requests and notifies administrators.
type IntakeService interface {
	Submit(ctx context.Context, userID int64, kind types.RequestKind, text string) (uuid.UUID, error)
	ListUnresolved(ctx context.Context) ([]*types.HelpRequest, error)
	ListResolved(ctx context.Context) ([]*types.HelpRequest, error)
	Resolve(ctx context.Context, id uuid.UUID) error
}

type intakeService struct {
	db          *gorm.DB
	log         *logger.Logger
	studentRepo repos.StudentRepo
	requestRepo repos.RequestRepo
	notifier    AdminNotifier
}

func NewIntakeService(db *gorm.DB, log *logger.Logger, studentRepo repos.StudentRepo, requestRepo repos.RequestRepo, notifier AdminNotifier) IntakeService {
	return &intakeService{
		db:          db,
		log:         log.With("service", "IntakeService"),
		studentRepo: studentRepo,
		requestRepo: requestRepo,
		notifier:    notifier,
	}
}

// Submit persists the request and fans out the admin notification. The
// notification is best effort and cannot fail the submission.
func (s *intakeService) Submit(ctx context.Context, userID int64, kind types.RequestKind, text string) (uuid.UUID, error) {
	text = strings.TrimSpace(text)
	if text == "" || !kind.Valid() {
		return uuid.Nil, pkgerrors.ErrInvalidArgument
	}

	row := &types.HelpRequest{
		ID:        uuid.New(),
		UserID:    userID,
		Kind:      kind,
		Comment:   text,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.requestRepo.Create(ctx, tx, row)
	}); err != nil {
		return uuid.Nil, fmt.Errorf("persist request: %w", err)
	}

	student, err := s.studentRepo.GetByID(ctx, nil, userID)
	if err != nil {
		s.log.Warn("Could not load student for notification", "user_id", userID, "error", err)
	}
	s.notifier.Broadcast(ctx, formatSubmission(student, userID, kind, text))

	return row.ID, nil
}

func (s *intakeService) ListUnresolved(ctx context.Context) ([]*types.HelpRequest, error) {
	return s.requestRepo.ListByResolved(ctx, nil, false)
}

func (s *intakeService) ListResolved(ctx context.Context) ([]*types.HelpRequest, error) {
	return s.requestRepo.ListByResolved(ctx, nil, true)
}

func (s *intakeService) Resolve(ctx context.Context, id uuid.UUID) error {
	return s.requestRepo.Resolve(ctx, nil, id)
}

func formatSubmission(student *types.Student, userID int64, kind types.RequestKind, text string) string {
	emoji := "🆘"
	if kind == types.RequestKindMeeting {
		emoji = "📅"
	}
	who := "—"
	username := "—"
	if student != nil {
		who = student.DisplayName()
		if student.Username != "" {
			username = student.Username
		}
	}
	return fmt.Sprintf(
		"%s %s\n\nWho: %s\nUsername: @%s\nID: %d\n\nText: %s",
		emoji, kind.Label(), who, username, userID, text,
	)
}
