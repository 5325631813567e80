package redact

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEmail(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{in: "lennon@thebeatles.com", want: "le***@thebeatles.com"},
		{in: "jo@x.org", want: "***@x.org"},
		{in: "j@x.org", want: "***@x.org"},
		{in: "юзер@пример.рф", want: "юз***@пример.рф"},
		{in: "plain", want: "***"},
		{in: "a@b@c", want: "***"},
		{in: "", want: "***"},
		{in: "@domain", want: "***@domain"},
	}

	for _, tt := range tests {
		require.Equal(t, tt.want, Email(tt.in), tt.in)
	}
}
