package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "empty input",
			in:   "",
			want: "",
		},
		{
			name: "iso timestamp stripped",
			in:   "2024-03-01T12:30:45.123Z request failed",
			want: "request failed",
		},
		{
			name: "time of day stripped",
			in:   "12:30:45 request failed",
			want: "request failed",
		},
		{
			name: "line and column placeholders",
			in:   "SyntaxError at line 42, column 7",
			want: "SyntaxError at line X, column X",
		},
		{
			name: "colon locator removed",
			in:   "app.js:42:7 TypeError",
			want: "app.js TypeError",
		},
		{
			name: "absolute path collapsed to basename",
			in:   "Error in /home/user/src/app/main.py",
			want: "Error in main.py",
		},
		{
			name: "hex address",
			in:   "segfault at 0x7ffee4c3a1b0",
			want: "segfault at 0xADDR",
		},
		{
			name: "long numeric id",
			in:   "record_1700000000123 not found",
			want: "record_TIMESTAMP not found",
		},
		{
			name: "coordinate pair",
			in:   "click at (152.5, 480)",
			want: "click at (X, Y)",
		},
		{
			name: "whitespace collapsed",
			in:   "too   many\t\tspaces\n here",
			want: "too many spaces here",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Clean(tt.in))
		})
	}
}

func TestClean_Idempotent(t *testing.T) {
	inputs := []string{
		"",
		"2024-03-01T12:30:45Z TypeError: Cannot read property 'id' of undefined at line 42",
		"panic at 0xdeadbeef in /usr/local/lib/worker.go:120:4",
		"field_12_34 conflict with rev_1_2 at (10, 20)",
		"plain message with no volatile parts",
	}

	for _, in := range inputs {
		once := Clean(in)
		assert.Equal(t, once, Clean(once), "Clean must be idempotent for %q", in)
	}
}

func TestClean_SameErrorDifferentInstances(t *testing.T) {
	a := Clean("TypeError: Cannot read property 'id' of undefined at line 42")
	b := Clean("TypeError: Cannot read property 'id' of undefined at line 17")
	assert.Equal(t, a, b)
}
