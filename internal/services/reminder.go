package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron"

	"github.com/vkrlab/briefbot/internal/pkg/logger"
	"github.com/vkrlab/briefbot/internal/types"
)

// ReminderService sends administrators a daily digest of unresolved requests.
// Days with nothing unresolved send nothing.
type ReminderService struct {
	log      *logger.Logger
	intake   IntakeService
	notifier AdminNotifier
	hour     int
	minute   int
	loc      *time.Location
	cron     *cron.Cron
}

func NewReminderService(log *logger.Logger, intake IntakeService, notifier AdminNotifier, hour, minute int, tz string) (*ReminderService, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("load reminder timezone %q: %w", tz, err)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return nil, fmt.Errorf("reminder time out of range: %02d:%02d", hour, minute)
	}
	return &ReminderService{
		log:      log.With("service", "ReminderService"),
		intake:   intake,
		notifier: notifier,
		hour:     hour,
		minute:   minute,
		loc:      loc,
	}, nil
}

func (s *ReminderService) Start(ctx context.Context) error {
	if s.cron != nil {
		return nil
	}
	c := cron.NewWithLocation(s.loc)
	spec := fmt.Sprintf("0 %d %d * * *", s.minute, s.hour)
	if err := c.AddFunc(spec, func() { s.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("schedule reminder: %w", err)
	}
	c.Start()
	s.cron = c
	s.log.Info("Daily reminder scheduled", "time", fmt.Sprintf("%02d:%02d", s.hour, s.minute), "tz", s.loc.String())
	return nil
}

func (s *ReminderService) Stop() {
	if s.cron != nil {
		s.cron.Stop()
		s.cron = nil
	}
}

// RunOnce builds and sends the digest immediately. Exposed for the scheduler
// and for manual triggering.
func (s *ReminderService) RunOnce(ctx context.Context) {
	requests, err := s.intake.ListUnresolved(ctx)
	if err != nil {
		s.log.Warn("Reminder digest query failed", "error", err)
		return
	}
	if len(requests) == 0 {
		return
	}
	s.notifier.Broadcast(ctx, FormatDigest(requests))
}

// FormatDigest renders the unresolved-request digest text.
func FormatDigest(requests []*types.HelpRequest) string {
	lines := []string{"📋 Unresolved requests:\n"}
	for _, r := range requests {
		who := "—"
		username := "—"
		if r.Student != nil {
			who = r.Student.DisplayName()
			if r.Student.Username != "" {
				username = r.Student.Username
			}
		}
		lines = append(lines, fmt.Sprintf("• %s — %s (@%s), ID %d", r.Kind.Label(), who, username, r.UserID))
		if comment := strings.TrimSpace(r.Comment); comment != "" {
			if len([]rune(comment)) > 200 {
				comment = string([]rune(comment)[:200]) + "…"
			}
			lines = append(lines, fmt.Sprintf("  «%s»", comment))
		}
		lines = append(lines, "  "+r.CreatedAt.Format(time.RFC3339))
	}
	return strings.Join(lines, "\n")
}
