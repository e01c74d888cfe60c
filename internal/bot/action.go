package bot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Action is a button-press decoded at the transport boundary. Raw callback
// data is parsed exactly once, here; handlers switch on concrete types
// instead of matching string prefixes.
type Action interface {
	isAction()
}

type NewChat struct{}
type MyChats struct{}
type ClearHistory struct{}
type MyStats struct{}
type BackMain struct{}

// SwitchChat activates one of the caller's own sessions.
type SwitchChat struct {
	SessionID string
}

// Admin-only actions.
type AdminUsers struct{}
type UserActions struct{ UserID int64 }
type ToggleBlock struct{ UserID int64 }
type Unlimited struct{ UserID int64 }
type SetLimit struct{ UserID int64 }

func (NewChat) isAction()      {}
func (MyChats) isAction()      {}
func (ClearHistory) isAction() {}
func (MyStats) isAction()      {}
func (BackMain) isAction()     {}
func (SwitchChat) isAction()   {}
func (AdminUsers) isAction()   {}
func (UserActions) isAction()  {}
func (ToggleBlock) isAction()  {}
func (Unlimited) isAction()    {}
func (SetLimit) isAction()     {}

var ErrBadAction = errors.New("bot: unrecognized action")

// ParseAction decodes callback data of the form "name" or "name:param".
func ParseAction(data string) (Action, error) {
	name, param, hasParam := strings.Cut(data, ":")

	switch name {
	case "new_chat":
		return NewChat{}, nil
	case "my_chats":
		return MyChats{}, nil
	case "clear_history":
		return ClearHistory{}, nil
	case "my_stats":
		return MyStats{}, nil
	case "back_main":
		return BackMain{}, nil
	case "switch_chat":
		if !hasParam || param == "" {
			return nil, fmt.Errorf("%w: %q", ErrBadAction, data)
		}
		return SwitchChat{SessionID: param}, nil
	case "admin_users":
		return AdminUsers{}, nil
	case "user_actions", "toggle_block", "unlimited", "set_limit":
		id, err := strconv.ParseInt(param, 10, 64)
		if !hasParam || err != nil {
			return nil, fmt.Errorf("%w: %q", ErrBadAction, data)
		}
		switch name {
		case "user_actions":
			return UserActions{UserID: id}, nil
		case "toggle_block":
			return ToggleBlock{UserID: id}, nil
		case "unlimited":
			return Unlimited{UserID: id}, nil
		default:
			return SetLimit{UserID: id}, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrBadAction, data)
}

// Data is the inverse of ParseAction, used when building keyboards.
func (a SwitchChat) Data() string  { return "switch_chat:" + a.SessionID }
func (a UserActions) Data() string { return fmt.Sprintf("user_actions:%d", a.UserID) }
func (a ToggleBlock) Data() string { return fmt.Sprintf("toggle_block:%d", a.UserID) }
func (a Unlimited) Data() string   { return fmt.Sprintf("unlimited:%d", a.UserID) }
func (a SetLimit) Data() string    { return fmt.Sprintf("set_limit:%d", a.UserID) }
