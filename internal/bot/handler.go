// Package bot is the conversation orchestrator: it ties the quota check,
// session lookup, message persistence and the completion call into one
// sequence per inbound event, and hosts the admin flows.
package bot

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/hkarimi/telegpt/internal/ai"
	"github.com/hkarimi/telegpt/internal/session"
	"github.com/hkarimi/telegpt/internal/user"
)

// TextMessage is an inbound text event from the messaging front-end.
type TextMessage struct {
	UserID    int64
	Username  string
	FirstName string
	Text      string
}

// Callback is an inbound button press with its raw action data.
type Callback struct {
	UserID int64
	Data   string
}

type Handler struct {
	users    *user.Service
	sessions *session.Service
	provider ai.Provider
	state    StateStore
	adminID  int64
}

func NewHandler(users *user.Service, sessions *session.Service, provider ai.Provider, state StateStore, adminID int64) *Handler {
	return &Handler{
		users:    users,
		sessions: sessions,
		provider: provider,
		state:    state,
		adminID:  adminID,
	}
}

func (h *Handler) isAdmin(id int64) bool { return id == h.adminID }

// HandleMessage routes an inbound text event: slash commands to the command
// handlers, everything else to the conversation flow. A nil reply with a
// nil error means the event was deliberately ignored.
func (h *Handler) HandleMessage(ctx context.Context, m TextMessage) (*Reply, error) {
	if strings.HasPrefix(m.Text, "/") {
		return h.handleCommand(ctx, m)
	}
	return h.HandleText(ctx, m)
}

func (h *Handler) handleCommand(ctx context.Context, m TextMessage) (*Reply, error) {
	fields := strings.Fields(m.Text)
	cmd := fields[0]
	if i := strings.IndexByte(cmd, '@'); i > 0 {
		cmd = cmd[:i]
	}
	args := fields[1:]

	switch cmd {
	case "/start":
		return h.handleStart(ctx, m)
	case "/admin":
		if !h.isAdmin(m.UserID) {
			return &Reply{Text: noticeAdminOnly}, nil
		}
		return &Reply{Text: noticeAdminPanel, Keyboard: adminKeyboard()}, nil
	case "/block":
		return h.handleSetBlocked(ctx, m, args, true)
	case "/unblock":
		return h.handleSetBlocked(ctx, m, args, false)
	case "/setlimit":
		return h.handleSetLimit(ctx, m, args)
	}
	// Unknown commands are ignored, like the front-end's own commands.
	return nil, nil
}

func (h *Handler) handleStart(ctx context.Context, m TextMessage) (*Reply, error) {
	if _, err := h.users.GetOrCreate(ctx, m.UserID, m.Username, m.FirstName); err != nil {
		return nil, err
	}
	blocked, err := h.users.IsBlocked(ctx, m.UserID)
	if err != nil {
		return nil, err
	}
	if blocked {
		return &Reply{Text: noticeBlocked}, nil
	}
	active, err := h.sessions.Active(ctx, m.UserID)
	if err != nil {
		return nil, err
	}
	if active == nil {
		if _, err := h.sessions.Create(ctx, m.UserID, ""); err != nil {
			return nil, err
		}
	}
	return &Reply{Text: noticeWelcome, Keyboard: mainKeyboard()}, nil
}

func (h *Handler) handleSetBlocked(ctx context.Context, m TextMessage, args []string, blocked bool) (*Reply, error) {
	if !h.isAdmin(m.UserID) {
		return &Reply{Text: noticeAdminOnly}, nil
	}
	if len(args) < 1 {
		usage := "Usage: /block <user_id>"
		if !blocked {
			usage = "Usage: /unblock <user_id>"
		}
		return &Reply{Text: usage}, nil
	}
	targetID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return &Reply{Text: noticeInvalidID}, nil
	}
	affected, err := h.users.SetBlocked(ctx, targetID, blocked)
	if err != nil {
		return nil, err
	}
	if !affected {
		return &Reply{Text: noticeUserNotFound}, nil
	}
	if blocked {
		return &Reply{Text: fmt.Sprintf("User %d blocked.", targetID)}, nil
	}
	return &Reply{Text: fmt.Sprintf("User %d unblocked.", targetID)}, nil
}

func (h *Handler) handleSetLimit(ctx context.Context, m TextMessage, args []string) (*Reply, error) {
	if !h.isAdmin(m.UserID) {
		return &Reply{Text: noticeAdminOnly}, nil
	}
	if len(args) < 2 {
		return &Reply{Text: "Usage: /setlimit <user_id> <limit>\nUse -1 for unlimited."}, nil
	}
	targetID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return &Reply{Text: noticeInvalidID}, nil
	}
	limit, err := strconv.Atoi(args[1])
	if err != nil {
		return &Reply{Text: noticeInvalidInput}, nil
	}
	return h.applyLimit(ctx, targetID, limit, nil)
}

// applyLimit sets the limit and formats the outcome; keyboard may be nil.
func (h *Handler) applyLimit(ctx context.Context, targetID int64, limit int, keyboard [][]Button) (*Reply, error) {
	affected, err := h.users.SetLimit(ctx, targetID, limit)
	if err != nil {
		return nil, err
	}
	if !affected {
		return &Reply{Text: noticeUserNotFound, Keyboard: keyboard}, nil
	}
	if limit == -1 {
		return &Reply{Text: fmt.Sprintf("Limit removed for user %d.", targetID), Keyboard: keyboard}, nil
	}
	return &Reply{Text: fmt.Sprintf("Limit for user %d set to %d messages per day.", targetID, limit), Keyboard: keyboard}, nil
}

// HandleText runs the conversation sequence for one plain message:
// blocked check, user creation, quota check, session resolution, user
// message append, completion call, then usage increment and assistant
// append only on success. The user's message is never rolled back on
// completion failure; it replays as context on the next attempt.
func (h *Handler) HandleText(ctx context.Context, m TextMessage) (*Reply, error) {
	blocked, err := h.users.IsBlocked(ctx, m.UserID)
	if err != nil {
		return nil, err
	}
	if blocked {
		return &Reply{Text: noticeBlocked}, nil
	}

	if h.isAdmin(m.UserID) {
		if reply, handled, err := h.continuePendingLimit(ctx, m); handled || err != nil {
			return reply, err
		}
	}

	if _, err := h.users.GetOrCreate(ctx, m.UserID, m.Username, m.FirstName); err != nil {
		return nil, err
	}

	allowed, limit, _, err := h.users.CanSendMessage(ctx, m.UserID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return &Reply{
			Text:     fmt.Sprintf("You have reached your daily limit of %d messages. Try again tomorrow.", limit),
			Keyboard: mainKeyboard(),
		}, nil
	}

	active, err := h.sessions.Active(ctx, m.UserID)
	if err != nil {
		return nil, err
	}
	if active == nil {
		active, err = h.sessions.Create(ctx, m.UserID, "")
		if err != nil {
			return nil, err
		}
	}

	if _, err := h.sessions.Append(ctx, active.SessionID, session.RoleUser, m.Text); err != nil {
		return nil, err
	}

	transcript, err := h.sessions.Transcript(ctx, active.SessionID)
	if err != nil {
		return nil, err
	}

	// The only long-blocking step; no store transaction is open here.
	answer, err := h.provider.Chat(ctx, transcript)
	if err != nil {
		log.Printf("completion failed user=%d session=%s err=%v", m.UserID, active.SessionID, err)
		return &Reply{Text: noticeError}, nil
	}

	if _, err := h.users.IncrementDailyUsage(ctx, m.UserID); err != nil {
		return nil, err
	}
	if _, err := h.sessions.Append(ctx, active.SessionID, session.RoleAssistant, answer); err != nil {
		return nil, err
	}

	return &Reply{Text: answer}, nil
}

// continuePendingLimit consumes the admin's awaiting-limit state, if any.
// Non-numeric input keeps the state and re-prompts.
func (h *Handler) continuePendingLimit(ctx context.Context, m TextMessage) (*Reply, bool, error) {
	targetID, pending, err := h.state.PendingLimit(ctx, m.UserID)
	if err != nil {
		return nil, false, err
	}
	if !pending {
		return nil, false, nil
	}
	limit, err := strconv.Atoi(strings.TrimSpace(m.Text))
	if err != nil {
		return &Reply{Text: noticeInvalidInput}, true, nil
	}
	if err := h.state.ClearPending(ctx, m.UserID); err != nil {
		return nil, false, err
	}
	reply, err := h.applyLimit(ctx, targetID, limit, adminKeyboard())
	return reply, true, err
}

// HandleCallback routes a parsed button press. Malformed action data is an
// error for the transport to log; nothing is shown to the user.
func (h *Handler) HandleCallback(ctx context.Context, c Callback) (*Reply, error) {
	blocked, err := h.users.IsBlocked(ctx, c.UserID)
	if err != nil {
		return nil, err
	}
	if blocked {
		return &Reply{Text: noticeBlocked}, nil
	}

	act, err := ParseAction(c.Data)
	if err != nil {
		return nil, err
	}

	// Any action other than starting a set-limit prompt abandons a pending
	// one.
	if h.isAdmin(c.UserID) {
		if _, isSet := act.(SetLimit); !isSet {
			if err := h.state.ClearPending(ctx, c.UserID); err != nil {
				return nil, err
			}
		}
	}

	switch a := act.(type) {
	case NewChat:
		if _, err := h.sessions.Create(ctx, c.UserID, ""); err != nil {
			return nil, err
		}
		return &Reply{Text: noticeNewChat, Keyboard: mainKeyboard()}, nil

	case MyChats:
		list, err := h.sessions.List(ctx, c.UserID)
		if err != nil {
			return nil, err
		}
		if len(list) == 0 {
			return &Reply{Text: noticeNoChats, Keyboard: mainKeyboard()}, nil
		}
		return &Reply{Text: noticeSelectChat, Keyboard: chatsKeyboard(list)}, nil

	case ClearHistory:
		active, err := h.sessions.Active(ctx, c.UserID)
		if err != nil {
			return nil, err
		}
		if active != nil {
			if _, err := h.sessions.ClearHistory(ctx, active.SessionID); err != nil {
				return nil, err
			}
		}
		return &Reply{Text: noticeChatCleared, Keyboard: mainKeyboard()}, nil

	case MyStats:
		return h.handleMyStats(ctx, c.UserID)

	case BackMain:
		return &Reply{Text: noticeWelcome, Keyboard: mainKeyboard()}, nil

	case SwitchChat:
		return h.handleSwitchChat(ctx, c.UserID, a.SessionID)

	case AdminUsers:
		if !h.isAdmin(c.UserID) {
			return &Reply{Text: noticeAdminOnly}, nil
		}
		return h.handleAdminUsers(ctx)

	case UserActions:
		if !h.isAdmin(c.UserID) {
			return nil, nil
		}
		return h.userActionsReply(ctx, a.UserID, "")

	case ToggleBlock:
		if !h.isAdmin(c.UserID) {
			return nil, nil
		}
		blocked, err := h.users.IsBlocked(ctx, a.UserID)
		if err != nil {
			return nil, err
		}
		if _, err := h.users.SetBlocked(ctx, a.UserID, !blocked); err != nil {
			return nil, err
		}
		return h.userActionsReply(ctx, a.UserID, "")

	case Unlimited:
		if !h.isAdmin(c.UserID) {
			return nil, nil
		}
		if _, err := h.users.SetLimit(ctx, a.UserID, -1); err != nil {
			return nil, err
		}
		return h.userActionsReply(ctx, a.UserID, "\nLimit removed.")

	case SetLimit:
		if !h.isAdmin(c.UserID) {
			return nil, nil
		}
		if err := h.state.SetPendingLimit(ctx, c.UserID, a.UserID); err != nil {
			return nil, err
		}
		return &Reply{
			Text: fmt.Sprintf("Send the new daily limit for user %d (a number, or -1 for unlimited):", a.UserID),
		}, nil
	}
	return nil, nil
}

func (h *Handler) handleMyStats(ctx context.Context, userID int64) (*Reply, error) {
	used, err := h.users.DailyUsage(ctx, userID)
	if err != nil {
		return nil, err
	}
	limit, err := h.users.Limit(ctx, userID)
	if err != nil {
		return nil, err
	}
	list, err := h.sessions.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	text := fmt.Sprintf("Your stats:\n\nToday: %d messages\nDaily limit: %s\nChats: %d",
		used, limitLabel(limit), len(list))
	return &Reply{Text: text, Keyboard: mainKeyboard()}, nil
}

func (h *Handler) handleSwitchChat(ctx context.Context, userID int64, sessionID string) (*Reply, error) {
	switched, err := h.sessions.Switch(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if !switched {
		// Foreign or vanished session: nothing changed, nothing to say.
		return nil, nil
	}
	list, err := h.sessions.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	name := sessionID
	for _, s := range list {
		if s.SessionID == sessionID {
			name = s.Name
			break
		}
	}
	return &Reply{Text: fmt.Sprintf("Switched to %q.", name), Keyboard: mainKeyboard()}, nil
}

func (h *Handler) handleAdminUsers(ctx context.Context) (*Reply, error) {
	users, err := h.users.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(users) > 20 {
		users = users[:20]
	}

	var b strings.Builder
	b.WriteString("Users:\n\n")
	rows := make([][]Button, 0, len(users)+1)
	for _, u := range users {
		status := "+"
		if u.IsBlocked {
			status = "x"
		}
		name := displayName(u)
		fmt.Fprintf(&b, "%s %s (ID: %d) - limit: %s\n", status, name, u.ID, limitLabel(u.DailyLimit))
		rows = append(rows, []Button{{
			Text: status + " " + truncate(name, 20),
			Data: UserActions{UserID: u.ID}.Data(),
		}})
	}
	rows = append(rows, []Button{{Text: "Back", Data: "back_main"}})
	return &Reply{Text: b.String(), Keyboard: rows}, nil
}

// userActionsReply rebuilds the per-user admin card after an action.
func (h *Handler) userActionsReply(ctx context.Context, targetID int64, suffix string) (*Reply, error) {
	blocked, err := h.users.IsBlocked(ctx, targetID)
	if err != nil {
		return nil, err
	}
	limit, err := h.users.Limit(ctx, targetID)
	if err != nil {
		return nil, err
	}
	view := &userView{id: targetID, blocked: blocked, limit: limit}
	return &Reply{
		Text:     userCard(view) + suffix,
		Keyboard: userActionsKeyboard(targetID, blocked),
	}, nil
}
