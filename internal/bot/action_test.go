package bot

import (
	"errors"
	"reflect"
	"testing"
)

func TestParseAction(t *testing.T) {
	cases := []struct {
		data string
		want Action
	}{
		{"new_chat", NewChat{}},
		{"my_chats", MyChats{}},
		{"clear_history", ClearHistory{}},
		{"my_stats", MyStats{}},
		{"back_main", BackMain{}},
		{"admin_users", AdminUsers{}},
		{"switch_chat:01JD0PB3V1X5C0Q3H9M7T8K2RZ", SwitchChat{SessionID: "01JD0PB3V1X5C0Q3H9M7T8K2RZ"}},
		{"user_actions:42", UserActions{UserID: 42}},
		{"toggle_block:42", ToggleBlock{UserID: 42}},
		{"unlimited:42", Unlimited{UserID: 42}},
		{"set_limit:42", SetLimit{UserID: 42}},
	}
	for _, tc := range cases {
		got, err := ParseAction(tc.data)
		if err != nil {
			t.Fatalf("%q: %v", tc.data, err)
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("%q: got %#v, want %#v", tc.data, got, tc.want)
		}
	}
}

func TestParseAction_Rejects(t *testing.T) {
	for _, data := range []string{
		"",
		"bogus",
		"switch_chat",
		"switch_chat:",
		"set_limit",
		"set_limit:",
		"set_limit:abc",
		"toggle_block:12.5",
		"user_actions:42:extra",
	} {
		if _, err := ParseAction(data); !errors.Is(err, ErrBadAction) {
			t.Fatalf("%q: expected ErrBadAction, got %v", data, err)
		}
	}
}

func TestActionData_RoundTrips(t *testing.T) {
	for _, a := range []Action{
		SwitchChat{SessionID: "01JD0PB3V1X5C0Q3H9M7T8K2RZ"},
		UserActions{UserID: 7},
		ToggleBlock{UserID: 7},
		Unlimited{UserID: 7},
		SetLimit{UserID: 7},
	} {
		data := a.(interface{ Data() string }).Data()
		got, err := ParseAction(data)
		if err != nil {
			t.Fatalf("%q: %v", data, err)
		}
		if !reflect.DeepEqual(got, a) {
			t.Fatalf("%q: got %#v, want %#v", data, got, a)
		}
	}
}
