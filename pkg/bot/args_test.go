package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitArgs(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"empty", "", nil},
		{"single word", "/admin", []string{"/admin"}},
		{"plain args", "/admin add 29:u1 Alice", []string{"/admin", "add", "29:u1", "Alice"}},
		{"quoted name", `/admin add 29:u1 "Jane Doe" jane@example.com user`,
			[]string{"/admin", "add", "29:u1", "Jane Doe", "jane@example.com", "user"}},
		{"empty quotes", `add "" user`, []string{"add", "", "user"}},
		{"multiple spaces", "a   b", []string{"a", "b"}},
		{"unterminated quote runs to end", `add "Jane Doe`, []string{"add", "Jane Doe"}},
		{"quotes mid-word", `Jane" "Doe`, []string{"Jane Doe"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitArgs(tt.input))
		})
	}
}
