package names

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Los Angeles Lakers", "los angeles lakers"},
		{"  Boston   Celtics ", "boston celtics"},
		{"Atlético Madrid", "atletico madrid"},
		{"St. Louis Blues", "st louis blues"},
		{"Real Madrid LIVE", "real madrid"},
		{"Arsenal FC", "arsenal"},
		{"A.F.C. Bournemouth", "a f c bournemouth"},
		{"", ""},
		{"---", ""},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Normalize(c.in), "input %q", c.in)
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	for _, in := range []string{"Atlético Madrid", "St. Louis Blues", "Arsenal FC"} {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once))
	}
}

func TestMatch(t *testing.T) {
	assert.True(t, Match("los angeles lakers", "los angeles lakers"))
	assert.True(t, Match("lakers", "los angeles lakers"))
	assert.True(t, Match("los angeles lakers", "lakers"))
	assert.False(t, Match("lakers", "clippers"))
	assert.False(t, Match("", "lakers"))
	assert.False(t, Match("", ""))
}
