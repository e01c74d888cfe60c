package bot

import (
	"fmt"

	"github.com/hkarimi/telegpt/internal/session"
	"github.com/hkarimi/telegpt/internal/user"
)

// Button carries a label and the callback data the transport sends back
// when pressed. How buttons are rendered is the transport's business.
type Button struct {
	Text string
	Data string
}

// Reply is what a handler hands back to the transport: notice or answer
// text, plus an optional inline keyboard.
type Reply struct {
	Text     string
	Keyboard [][]Button
}

const (
	noticeWelcome      = "Hi! Send me a message and I'll answer. Use the buttons below to manage your chats."
	noticeBlocked      = "You have been blocked from using this bot."
	noticeAdminOnly    = "This command is for the administrator only."
	noticeError        = "Something went wrong while generating a reply. Please try again."
	noticeNewChat      = "Started a new chat. Go ahead!"
	noticeNoChats      = "You have no chats yet."
	noticeSelectChat   = "Select a chat to continue:"
	noticeChatCleared  = "Chat history cleared."
	noticeAdminPanel   = "Admin panel:\n\nPick an option:"
	noticeUserNotFound = "No such user."
	noticeInvalidID    = "That is not a valid user id."
	noticeInvalidInput = "Please send a valid number."
)

func mainKeyboard() [][]Button {
	return [][]Button{
		{{Text: "New chat", Data: "new_chat"}},
		{{Text: "My chats", Data: "my_chats"}},
		{{Text: "Clear history", Data: "clear_history"}},
		{{Text: "My stats", Data: "my_stats"}},
	}
}

func adminKeyboard() [][]Button {
	return [][]Button{
		{{Text: "List users", Data: "admin_users"}},
		{{Text: "Back", Data: "back_main"}},
	}
}

// chatsKeyboard lists up to ten sessions, marking the active one.
func chatsKeyboard(sessions []session.Session) [][]Button {
	if len(sessions) > 10 {
		sessions = sessions[:10]
	}
	rows := make([][]Button, 0, len(sessions)+1)
	for _, s := range sessions {
		mark := "· "
		if s.IsActive {
			mark = "* "
		}
		name := truncate(s.Name, 30)
		rows = append(rows, []Button{{
			Text: mark + name,
			Data: SwitchChat{SessionID: s.SessionID}.Data(),
		}})
	}
	rows = append(rows, []Button{{Text: "Back", Data: "back_main"}})
	return rows
}

func userActionsKeyboard(userID int64, blocked bool) [][]Button {
	blockLabel := "Block"
	if blocked {
		blockLabel = "Unblock"
	}
	return [][]Button{
		{{Text: blockLabel, Data: ToggleBlock{UserID: userID}.Data()}},
		{
			{Text: "Set limit", Data: SetLimit{UserID: userID}.Data()},
			{Text: "Unlimited", Data: Unlimited{UserID: userID}.Data()},
		},
		{{Text: "Back", Data: "admin_users"}},
	}
}

// truncate cuts s to at most n runes. Byte slicing would split multi-byte
// characters and the front-end rejects invalid UTF-8 in button text.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func limitLabel(limit int) string {
	if limit == -1 {
		return "unlimited"
	}
	return fmt.Sprintf("%d", limit)
}

func userCard(u *userView) string {
	status := "active"
	if u.blocked {
		status = "blocked"
	}
	return fmt.Sprintf("User: %d\nStatus: %s\nLimit: %s\n", u.id, status, limitLabel(u.limit))
}

// userView is the little projection the admin card and keyboard share.
type userView struct {
	id      int64
	blocked bool
	limit   int
}

func displayName(u user.User) string {
	if u.FirstName != "" {
		return u.FirstName
	}
	if u.Username != "" {
		return u.Username
	}
	return fmt.Sprintf("%d", u.ID)
}
