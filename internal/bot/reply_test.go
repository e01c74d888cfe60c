package bot

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/hkarimi/telegpt/internal/session"
)

func TestTruncate_KeepsRunesIntact(t *testing.T) {
	cases := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 30, "short"},
		{"exactly-five!", 13, "exactly-five!"},
		{"abcdefgh", 5, "abcde"},
		{"گفتگوی طولانی درباره برنامه", 10, "گفتگوی طول"},
		{"Привет мир", 6, "Привет"},
		{"", 5, ""},
	}
	for _, tc := range cases {
		got := truncate(tc.in, tc.n)
		if got != tc.want {
			t.Fatalf("truncate(%q, %d) = %q, want %q", tc.in, tc.n, got, tc.want)
		}
		if !utf8.ValidString(got) {
			t.Fatalf("truncate(%q, %d) produced invalid UTF-8", tc.in, tc.n)
		}
	}
}

func TestChatsKeyboard_TruncatesByRunes(t *testing.T) {
	long := strings.Repeat("گفتگو ", 10) // 60 runes, 3 bytes per letter
	rows := chatsKeyboard([]session.Session{
		{SessionID: "01JD0PB3V1X5C0Q3H9M7T8K2RZ", Name: long, IsActive: true},
	})
	if len(rows) != 2 {
		t.Fatalf("expected session row plus back row, got %d", len(rows))
	}
	label := rows[0][0].Text
	if !utf8.ValidString(label) {
		t.Fatalf("button label is invalid UTF-8: %q", label)
	}
	// Mark prefix plus at most 30 name runes.
	if n := utf8.RuneCountInString(label); n > 32 {
		t.Fatalf("expected at most 32 runes, got %d (%q)", n, label)
	}
}
