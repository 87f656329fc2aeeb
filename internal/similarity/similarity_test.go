package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScore_Identical(t *testing.T) {
	for _, s := range []string{"a", "missing null check", "Ünïcode ✓", "x y z"} {
		assert.Equal(t, 1.0, Score(s, s), s)
	}
}

func TestScore_CaseInsensitive(t *testing.T) {
	assert.Equal(t, 1.0, Score("Possible Bug", "possible bug"))
}

func TestScore_Empty(t *testing.T) {
	assert.Equal(t, 1.0, Score("", ""))
	assert.Equal(t, 0.0, Score("", "abc"))
	assert.Equal(t, 0.0, Score("abc", ""))
}

func TestScore_Symmetric(t *testing.T) {
	pairs := [][2]string{
		{"kitten", "sitting"},
		{"flaw", "lawn"},
		{"SQL injection in handler", "sql injection in the handler"},
		{"", "x"},
		{"short", "a much longer sentence"},
	}
	for _, p := range pairs {
		assert.Equal(t, Score(p[0], p[1]), Score(p[1], p[0]), "%q vs %q", p[0], p[1])
	}
}

func TestScore_KnownValues(t *testing.T) {
	// kitten -> sitting needs 3 edits over 7 runes.
	assert.InDelta(t, 1-3.0/7.0, Score("kitten", "sitting"), 1e-9)
	assert.InDelta(t, 0.5, Score("flaw", "lawn"), 1e-9)
	assert.Equal(t, 0.0, Score("abc", "xyz"))
}

func TestScore_Range(t *testing.T) {
	s := Score("completely different", "nothing alike here at all")
	assert.GreaterOrEqual(t, s, 0.0)
	assert.LessOrEqual(t, s, 1.0)
}

func TestDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"abc", "abc", 0},
		{"abc", "abd", 1},
		{"abc", "ab", 1},
		{"kitten", "sitting", 3},
		{"héllo", "hello", 1},
	}
	for _, tt := range tests {
		t.Run(tt.a+"_"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, Distance([]rune(tt.a), []rune(tt.b)))
		})
	}
}
