package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		userID    string
		want      string
		anonymous bool
	}{
		{"signed in", "42", "42", false},
		{"trims whitespace", "  42 ", "42", false},
		{"empty", "", "", true},
		{"whitespace only", "   ", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := New(tt.userID)
			assert.Equal(t, tt.want, ctx.UserID)
			assert.Equal(t, tt.anonymous, ctx.Anonymous())
		})
	}
}

func TestFirstOf(t *testing.T) {
	calls := 0
	counting := TokenFunc(func() string {
		calls++
		return "from-cookie"
	})

	t.Run("first non-empty wins", func(t *testing.T) {
		s := FirstOf(StaticToken(""), nil, counting, StaticToken("static"))
		assert.Equal(t, "from-cookie", s.Token())
	})

	t.Run("earlier supplier short-circuits", func(t *testing.T) {
		calls = 0
		s := FirstOf(StaticToken("static"), counting)
		assert.Equal(t, "static", s.Token())
		assert.Zero(t, calls)
	})

	t.Run("all empty", func(t *testing.T) {
		assert.Empty(t, FirstOf().Token())
		assert.Empty(t, FirstOf(StaticToken("")).Token())
	})
}
