package sandbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShellEscape(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", "''"},
		{"/nix/store/abc-hello/bin", "/nix/store/abc-hello/bin"},
		{"hello world", "'hello world'"},
		{"it's", `'it'\''s'`},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, ShellEscape(c.in))
	}
}
