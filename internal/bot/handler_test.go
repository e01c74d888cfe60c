package bot

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/hkarimi/telegpt/internal/ai"
	"github.com/hkarimi/telegpt/internal/session"
	"github.com/hkarimi/telegpt/internal/user"
)

const testAdminID int64 = 99

type fakeProvider struct {
	last  []ai.Message
	reply string
	err   error
	calls int
}

func (p *fakeProvider) Chat(ctx context.Context, messages []ai.Message) (string, error) {
	p.calls++
	p.last = append([]ai.Message(nil), messages...)
	if p.err != nil {
		return "", p.err
	}
	return p.reply, nil
}

func newTestHandler(t *testing.T, p ai.Provider) (*Handler, *user.Service, *session.Service) {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "test.db") + "?_pragma=busy_timeout(5000)"
	db, err := gorm.Open(gormsqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&user.User{}, &user.DailyUsage{}, &session.Session{}, &session.Message{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	users := user.NewService(user.NewRepo(db), -1)
	sessions := session.NewService(session.NewRepo(db))
	h := NewHandler(users, sessions, p, NewMemoryState(), testAdminID)
	return h, users, sessions
}

func TestHandleText_AppendsUserAndAssistant(t *testing.T) {
	prov := &fakeProvider{reply: "hi there"}
	h, users, sessions := newTestHandler(t, prov)
	ctx := context.Background()

	reply, err := h.HandleText(ctx, TextMessage{UserID: 1, Text: "hello"})
	if err != nil {
		t.Fatalf("handle text: %v", err)
	}
	if reply == nil || reply.Text != "hi there" {
		t.Fatalf("unexpected reply: %+v", reply)
	}

	active, err := sessions.Active(ctx, 1)
	if err != nil || active == nil {
		t.Fatalf("active session: %v %v", active, err)
	}
	transcript, err := sessions.Transcript(ctx, active.SessionID)
	if err != nil {
		t.Fatalf("transcript: %v", err)
	}
	if len(transcript) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(transcript))
	}
	if transcript[0].Role != session.RoleUser || transcript[0].Content != "hello" {
		t.Fatalf("unexpected user message: %+v", transcript[0])
	}
	if transcript[1].Role != session.RoleAssistant || transcript[1].Content != "hi there" {
		t.Fatalf("unexpected assistant message: %+v", transcript[1])
	}

	// Provider saw exactly the user's message.
	if len(prov.last) != 1 || prov.last[0].Content != "hello" {
		t.Fatalf("provider got %+v", prov.last)
	}

	used, err := users.DailyUsage(ctx, 1)
	if err != nil {
		t.Fatalf("daily usage: %v", err)
	}
	if used != 1 {
		t.Fatalf("expected usage 1, got %d", used)
	}
}

func TestHandleText_LimitReachedMutatesNothing(t *testing.T) {
	prov := &fakeProvider{reply: "never"}
	h, users, sessions := newTestHandler(t, prov)
	ctx := context.Background()

	if _, err := users.GetOrCreate(ctx, 1, "", ""); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := users.SetLimit(ctx, 1, 3); err != nil {
		t.Fatalf("set limit: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := users.IncrementDailyUsage(ctx, 1); err != nil {
			t.Fatalf("increment: %v", err)
		}
	}

	reply, err := h.HandleText(ctx, TextMessage{UserID: 1, Text: "one more"})
	if err != nil {
		t.Fatalf("handle text: %v", err)
	}
	if reply == nil || !strings.Contains(reply.Text, "daily limit of 3") {
		t.Fatalf("expected limit notice, got %+v", reply)
	}

	if prov.calls != 0 {
		t.Fatalf("provider must not be called on the limit path")
	}
	list, err := sessions.List(ctx, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("no session must be created on the limit path, got %d", len(list))
	}
	used, err := users.DailyUsage(ctx, 1)
	if err != nil {
		t.Fatalf("daily usage: %v", err)
	}
	if used != 3 {
		t.Fatalf("usage must stay 3, got %d", used)
	}
}

func TestHandleText_ProviderTimeoutKeepsUserMessage(t *testing.T) {
	prov := &fakeProvider{err: ai.ErrTimeout}
	h, users, sessions := newTestHandler(t, prov)
	ctx := context.Background()

	reply, err := h.HandleText(ctx, TextMessage{UserID: 1, Text: "hello"})
	if err != nil {
		t.Fatalf("handle text: %v", err)
	}
	if reply == nil || reply.Text != noticeError {
		t.Fatalf("expected error notice, got %+v", reply)
	}

	active, err := sessions.Active(ctx, 1)
	if err != nil || active == nil {
		t.Fatalf("active session: %v %v", active, err)
	}
	transcript, err := sessions.Transcript(ctx, active.SessionID)
	if err != nil {
		t.Fatalf("transcript: %v", err)
	}
	if len(transcript) != 1 || transcript[0].Role != session.RoleUser {
		t.Fatalf("expected only the user message, got %+v", transcript)
	}
	used, err := users.DailyUsage(ctx, 1)
	if err != nil {
		t.Fatalf("daily usage: %v", err)
	}
	if used != 0 {
		t.Fatalf("usage must not be charged on failure, got %d", used)
	}
}

func TestHandleText_BlockedUser(t *testing.T) {
	prov := &fakeProvider{reply: "never"}
	h, users, _ := newTestHandler(t, prov)
	ctx := context.Background()

	if _, err := users.GetOrCreate(ctx, 1, "", ""); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := users.SetBlocked(ctx, 1, true); err != nil {
		t.Fatalf("block: %v", err)
	}

	reply, err := h.HandleText(ctx, TextMessage{UserID: 1, Text: "hello"})
	if err != nil {
		t.Fatalf("handle text: %v", err)
	}
	if reply == nil || reply.Text != noticeBlocked {
		t.Fatalf("expected blocked notice, got %+v", reply)
	}
	if prov.calls != 0 {
		t.Fatalf("provider must not be called for blocked users")
	}
}

func TestCommands_AdminOnly(t *testing.T) {
	h, _, _ := newTestHandler(t, &fakeProvider{})
	ctx := context.Background()

	for _, text := range []string{"/admin", "/block 5", "/unblock 5", "/setlimit 5 3"} {
		reply, err := h.HandleMessage(ctx, TextMessage{UserID: 1, Text: text})
		if err != nil {
			t.Fatalf("%s: %v", text, err)
		}
		if reply == nil || reply.Text != noticeAdminOnly {
			t.Fatalf("%s: expected admin-only notice, got %+v", text, reply)
		}
	}
}

func TestBlockCommand(t *testing.T) {
	h, users, _ := newTestHandler(t, &fakeProvider{})
	ctx := context.Background()

	// Unknown target.
	reply, err := h.HandleMessage(ctx, TextMessage{UserID: testAdminID, Text: "/block 5"})
	if err != nil {
		t.Fatalf("block: %v", err)
	}
	if reply == nil || reply.Text != noticeUserNotFound {
		t.Fatalf("expected not-found notice, got %+v", reply)
	}

	// Invalid id never reaches the store.
	reply, err = h.HandleMessage(ctx, TextMessage{UserID: testAdminID, Text: "/block abc"})
	if err != nil {
		t.Fatalf("block: %v", err)
	}
	if reply == nil || reply.Text != noticeInvalidID {
		t.Fatalf("expected invalid-id notice, got %+v", reply)
	}

	if _, err := users.GetOrCreate(ctx, 5, "", ""); err != nil {
		t.Fatalf("create user: %v", err)
	}
	reply, err = h.HandleMessage(ctx, TextMessage{UserID: testAdminID, Text: "/block 5"})
	if err != nil {
		t.Fatalf("block: %v", err)
	}
	if reply == nil || !strings.Contains(reply.Text, "blocked") {
		t.Fatalf("expected blocked confirmation, got %+v", reply)
	}
	blocked, err := users.IsBlocked(ctx, 5)
	if err != nil || !blocked {
		t.Fatalf("expected user 5 blocked, got %v %v", blocked, err)
	}
}

func TestSetLimitCommand_UnlimitedSentinel(t *testing.T) {
	h, users, _ := newTestHandler(t, &fakeProvider{})
	ctx := context.Background()

	if _, err := users.GetOrCreate(ctx, 5, "", ""); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := users.SetLimit(ctx, 5, 3); err != nil {
		t.Fatalf("set limit: %v", err)
	}

	reply, err := h.HandleMessage(ctx, TextMessage{UserID: testAdminID, Text: "/setlimit 5 -1"})
	if err != nil {
		t.Fatalf("setlimit: %v", err)
	}
	if reply == nil || !strings.Contains(reply.Text, "Limit removed") {
		t.Fatalf("expected removal notice, got %+v", reply)
	}
	limit, err := users.Limit(ctx, 5)
	if err != nil || limit != -1 {
		t.Fatalf("expected -1, got %d %v", limit, err)
	}
}

func TestPendingLimitFlow(t *testing.T) {
	h, users, _ := newTestHandler(t, &fakeProvider{})
	ctx := context.Background()

	if _, err := users.GetOrCreate(ctx, 5, "", ""); err != nil {
		t.Fatalf("create user: %v", err)
	}

	reply, err := h.HandleCallback(ctx, Callback{UserID: testAdminID, Data: "set_limit:5"})
	if err != nil {
		t.Fatalf("callback: %v", err)
	}
	if reply == nil || !strings.Contains(reply.Text, "user 5") {
		t.Fatalf("expected prompt for user 5, got %+v", reply)
	}

	// Non-numeric input keeps the state and re-prompts.
	reply, err = h.HandleMessage(ctx, TextMessage{UserID: testAdminID, Text: "lots"})
	if err != nil {
		t.Fatalf("message: %v", err)
	}
	if reply == nil || reply.Text != noticeInvalidInput {
		t.Fatalf("expected validation notice, got %+v", reply)
	}

	reply, err = h.HandleMessage(ctx, TextMessage{UserID: testAdminID, Text: "7"})
	if err != nil {
		t.Fatalf("message: %v", err)
	}
	if reply == nil || !strings.Contains(reply.Text, "set to 7") {
		t.Fatalf("expected confirmation, got %+v", reply)
	}
	limit, err := users.Limit(ctx, 5)
	if err != nil || limit != 7 {
		t.Fatalf("expected limit 7, got %d %v", limit, err)
	}

	// The state is consumed; the next admin text is a normal message.
	if _, pending, err := h.state.PendingLimit(ctx, testAdminID); err != nil || pending {
		t.Fatalf("expected pending state cleared, got pending=%v err=%v", pending, err)
	}
}

func TestPendingLimit_ClearedByUnrelatedAction(t *testing.T) {
	prov := &fakeProvider{reply: "ok"}
	h, _, _ := newTestHandler(t, prov)
	ctx := context.Background()

	if _, err := h.HandleCallback(ctx, Callback{UserID: testAdminID, Data: "set_limit:5"}); err != nil {
		t.Fatalf("callback: %v", err)
	}
	if _, err := h.HandleCallback(ctx, Callback{UserID: testAdminID, Data: "back_main"}); err != nil {
		t.Fatalf("callback: %v", err)
	}

	// The admin's next text goes to the conversation flow, not the limit
	// prompt.
	reply, err := h.HandleText(ctx, TextMessage{UserID: testAdminID, Text: "7"})
	if err != nil {
		t.Fatalf("text: %v", err)
	}
	if reply == nil || reply.Text != "ok" {
		t.Fatalf("expected model reply, got %+v", reply)
	}
	if prov.calls != 1 {
		t.Fatalf("expected one completion call, got %d", prov.calls)
	}
}

func TestHandleCallback_UnknownAction(t *testing.T) {
	h, _, _ := newTestHandler(t, &fakeProvider{})

	_, err := h.HandleCallback(context.Background(), Callback{UserID: 1, Data: "bogus"})
	if !errors.Is(err, ErrBadAction) {
		t.Fatalf("expected ErrBadAction, got %v", err)
	}
}

func TestHandleCallback_SwitchForeignChat(t *testing.T) {
	h, _, sessions := newTestHandler(t, &fakeProvider{})
	ctx := context.Background()

	theirs, err := sessions.Create(ctx, 2, "theirs")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	reply, err := h.HandleCallback(ctx, Callback{UserID: 1, Data: "switch_chat:" + theirs.SessionID})
	if err != nil {
		t.Fatalf("callback: %v", err)
	}
	if reply != nil {
		t.Fatalf("expected no reply for foreign session, got %+v", reply)
	}
}

func TestHandleCallback_AdminActionsRequireAdmin(t *testing.T) {
	h, _, _ := newTestHandler(t, &fakeProvider{})
	ctx := context.Background()

	reply, err := h.HandleCallback(ctx, Callback{UserID: 1, Data: "admin_users"})
	if err != nil {
		t.Fatalf("callback: %v", err)
	}
	if reply == nil || reply.Text != noticeAdminOnly {
		t.Fatalf("expected admin-only notice, got %+v", reply)
	}

	for _, data := range []string{"toggle_block:5", "unlimited:5", "set_limit:5", "user_actions:5"} {
		reply, err := h.HandleCallback(ctx, Callback{UserID: 1, Data: data})
		if err != nil {
			t.Fatalf("%s: %v", data, err)
		}
		if reply != nil {
			t.Fatalf("%s: expected silent rejection, got %+v", data, reply)
		}
	}
}

func TestHandleCallback_MyStatsUnlimited(t *testing.T) {
	h, users, sessions := newTestHandler(t, &fakeProvider{})
	ctx := context.Background()

	if _, err := users.GetOrCreate(ctx, 1, "", ""); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := sessions.Create(ctx, 1, ""); err != nil {
		t.Fatalf("create session: %v", err)
	}

	reply, err := h.HandleCallback(ctx, Callback{UserID: 1, Data: "my_stats"})
	if err != nil {
		t.Fatalf("callback: %v", err)
	}
	if reply == nil || !strings.Contains(reply.Text, "unlimited") {
		t.Fatalf("expected unlimited in stats, got %+v", reply)
	}
	if !strings.Contains(reply.Text, "Chats: 1") {
		t.Fatalf("expected chat count, got %q", reply.Text)
	}
}

func TestStartCommand_CreatesUserAndSession(t *testing.T) {
	h, users, sessions := newTestHandler(t, &fakeProvider{})
	ctx := context.Background()

	reply, err := h.HandleMessage(ctx, TextMessage{UserID: 1, Username: "alice", FirstName: "Alice", Text: "/start"})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if reply == nil || reply.Text != noticeWelcome {
		t.Fatalf("expected welcome, got %+v", reply)
	}
	if len(reply.Keyboard) == 0 {
		t.Fatalf("expected main keyboard")
	}

	u, err := users.GetOrCreate(ctx, 1, "", "")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if u.Username != "alice" {
		t.Fatalf("expected recorded username, got %q", u.Username)
	}
	active, err := sessions.Active(ctx, 1)
	if err != nil || active == nil {
		t.Fatalf("expected active session after /start: %v %v", active, err)
	}
}
