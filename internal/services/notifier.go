package services

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/vkrlab/briefbot/internal/clients/telegram"
	"github.com/vkrlab/briefbot/internal/pkg/logger"
)

// AdminNotifier fans a plain message out to every configured administrator.
// Delivery is best effort: a failure for one admin is logged and skipped and
// never fails the triggering operation.
type AdminNotifier interface {
	Broadcast(ctx context.Context, text string)
}

type adminNotifier struct {
	log      *logger.Logger
	tg       telegram.Client
	adminIDs []int64
}

func NewAdminNotifier(log *logger.Logger, tg telegram.Client, adminIDs []int64) AdminNotifier {
	return &adminNotifier{
		log:      log.With("service", "AdminNotifier"),
		tg:       tg,
		adminIDs: adminIDs,
	}
}

func (n *adminNotifier) Broadcast(ctx context.Context, text string) {
	if text == "" || len(n.adminIDs) == 0 {
		return
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, adminID := range n.adminIDs {
		adminID := adminID
		g.Go(func() error {
			if _, err := n.tg.SendMessage(gctx, adminID, text, nil); err != nil {
				n.log.Warn("Admin notification failed", "admin_id", adminID, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()
}
