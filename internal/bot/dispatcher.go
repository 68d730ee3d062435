package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/vkrlab/briefbot/internal/clients/telegram"
	"github.com/vkrlab/briefbot/internal/pkg/logger"
	"github.com/vkrlab/briefbot/internal/services"
)

const (
	pollTimeoutSeconds = 50
	pollErrorBackoff   = 3 * time.Second

	msgInternalError = "Something went wrong. Please try again: /start"
)

// Dispatcher routes incoming updates to the state machine and renders the
// resulting screens back through the Bot API. It also owns the admin chat
// commands, which bypass the machine.
type Dispatcher struct {
	log      *logger.Logger
	tg       telegram.Client
	machine  *Machine
	sessions *SessionStore
	progress services.ProgressService
	adminIDs map[int64]struct{}
}

func NewDispatcher(log *logger.Logger, tg telegram.Client, machine *Machine, sessions *SessionStore, progress services.ProgressService, adminIDs []int64) *Dispatcher {
	admins := make(map[int64]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = struct{}{}
	}
	return &Dispatcher{
		log:      log.With("component", "Dispatcher"),
		tg:       tg,
		machine:  machine,
		sessions: sessions,
		progress: progress,
		adminIDs: admins,
	}
}

// RunPolling drops any configured webhook and long-polls for updates until
// the context is cancelled.
func (d *Dispatcher) RunPolling(ctx context.Context) error {
	if err := d.tg.DeleteWebhook(ctx); err != nil {
		d.log.Warn("Could not delete webhook before polling", "error", err)
	}
	d.log.Info("Polling for updates")

	var offset int64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		updates, err := d.tg.GetUpdates(ctx, offset, pollTimeoutSeconds)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			d.log.Warn("getUpdates failed", "error", err)
			time.Sleep(pollErrorBackoff)
			continue
		}
		for _, upd := range updates {
			offset = upd.UpdateID + 1
			d.HandleUpdate(ctx, upd)
		}
	}
}

// HandleUpdate processes one update. Per-user updates arrive in order from
// the poll loop, so no extra serialization is needed here.
func (d *Dispatcher) HandleUpdate(ctx context.Context, upd telegram.Update) {
	switch {
	case upd.CallbackQuery != nil:
		d.handleCallback(ctx, upd.CallbackQuery)
	case upd.Message != nil && upd.Message.Text != "":
		d.handleMessage(ctx, upd.Message)
	}
}

func (d *Dispatcher) handleMessage(ctx context.Context, msg *telegram.Message) {
	if msg.From == nil || msg.From.IsBot {
		return
	}
	u := userInfoFrom(*msg.From)
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)

	switch {
	case text == "/start":
		screen, err := d.machine.Start(ctx, u)
		if err != nil {
			d.log.Error("Start failed", "user_id", u.ID, "error", err)
			d.send(ctx, chatID, Screen{Text: msgInternalError})
			return
		}
		d.send(ctx, chatID, screen)
		return

	case text == "/progress" && d.isAdmin(u.ID):
		rows, err := d.progress.Summary(ctx)
		if err != nil {
			d.log.Error("Progress summary failed", "error", err)
			d.send(ctx, chatID, Screen{Text: msgInternalError})
			return
		}
		d.send(ctx, chatID, Screen{Text: formatProgressReport(rows)})
		return

	case strings.HasPrefix(text, "/reset") && d.isAdmin(u.ID):
		d.handleReset(ctx, chatID, text)
		return
	}

	screen, handled, err := d.machine.HandleText(ctx, u, msg.Text)
	if err != nil {
		d.log.Error("Free text handling failed", "user_id", u.ID, "error", err)
		d.send(ctx, chatID, Screen{Text: msgInternalError})
		return
	}
	if !handled {
		return
	}
	d.send(ctx, chatID, screen)
}

func (d *Dispatcher) handleReset(ctx context.Context, chatID int64, text string) {
	fields := strings.Fields(text)
	if len(fields) != 2 {
		d.send(ctx, chatID, Screen{Text: "Usage: /reset <student_id>"})
		return
	}
	studentID, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		d.send(ctx, chatID, Screen{Text: "Usage: /reset <student_id>"})
		return
	}
	if err := d.progress.ResetStudent(ctx, studentID); err != nil {
		d.log.Error("Reset failed", "student_id", studentID, "error", err)
		d.send(ctx, chatID, Screen{Text: msgInternalError})
		return
	}
	d.sessions.Reset(studentID)
	d.send(ctx, chatID, Screen{Text: fmt.Sprintf("Student %d has been reset.", studentID)})
}

func (d *Dispatcher) handleCallback(ctx context.Context, cq *telegram.CallbackQuery) {
	u := userInfoFrom(cq.From)

	screen, err := d.machine.HandleAction(ctx, u, cq.Data)
	if err != nil {
		d.log.Error("Callback handling failed", "user_id", u.ID, "data", cq.Data, "error", err)
		if ackErr := d.tg.AnswerCallbackQuery(ctx, cq.ID, msgInternalError); ackErr != nil {
			d.log.Warn("Callback ack failed", "error", ackErr)
		}
		return
	}

	if err := d.tg.AnswerCallbackQuery(ctx, cq.ID, screen.Toast); err != nil {
		d.log.Warn("Callback ack failed", "error", err)
	}

	if screen.Text == "" || cq.Message == nil {
		return
	}
	markup := markupFor(screen)
	err = d.tg.EditMessageText(ctx, cq.Message.Chat.ID, cq.Message.MessageID, screen.Text, markup)
	if err == nil || telegram.IsNotModified(err) {
		return
	}
	// Edits fail when the original message is too old; fall back to a new one.
	d.log.Warn("Edit failed, sending new message", "user_id", u.ID, "error", err)
	d.send(ctx, cq.Message.Chat.ID, screen)
}

func (d *Dispatcher) send(ctx context.Context, chatID int64, screen Screen) {
	if screen.Text == "" {
		return
	}
	if _, err := d.tg.SendMessage(ctx, chatID, screen.Text, markupFor(screen)); err != nil {
		d.log.Warn("Send failed", "chat_id", chatID, "error", err)
	}
}

func (d *Dispatcher) isAdmin(userID int64) bool {
	_, ok := d.adminIDs[userID]
	return ok
}

func userInfoFrom(u telegram.User) UserInfo {
	return UserInfo{
		ID:        u.ID,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}

func markupFor(screen Screen) *telegram.InlineKeyboardMarkup {
	if len(screen.Buttons) == 0 {
		return nil
	}
	rows := make([][]telegram.InlineKeyboardButton, 0, len(screen.Buttons))
	for _, row := range screen.Buttons {
		btns := make([]telegram.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			btns = append(btns, telegram.InlineKeyboardButton{
				Text:         b.Label,
				CallbackData: b.Action,
				URL:          b.URL,
			})
		}
		rows = append(rows, btns)
	}
	return &telegram.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func formatProgressReport(rows []services.ProgressRow) string {
	if len(rows) == 0 {
		return "No students have picked a topic yet."
	}
	lines := []string{"📊 Student progress:\n"}
	for _, row := range rows {
		who := "—"
		username := "—"
		if row.Student != nil {
			who = row.Student.DisplayName()
			if row.Student.Username != "" {
				username = row.Student.Username
			}
		}
		title := row.BriefTitle
		if title == "" {
			title = fmt.Sprintf("topic #%d", row.BriefIndex)
		}
		lines = append(lines, fmt.Sprintf("• %s (@%s) — %s: %d/%d", who, username, title, row.Completed, row.Total))
	}
	return strings.Join(lines, "\n")
}
