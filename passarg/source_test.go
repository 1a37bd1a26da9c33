package passarg

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		arg  string
		want Source
	}{
		{"pass:omg", Pass("omg")},
		{"pass:", Pass("")},
		{"pass:a:b:c", Pass("a:b:c")},
		{"env:MY_PASS", Env("MY_PASS")},
		{"file:secret.txt", File("secret.txt")},
		{"file:C:/keys/pass.txt", File("C:/keys/pass.txt")},
		{"file:../rel/../path", File("../rel/../path")},
		{"fd:3", Fd(3)},
		{"fd:-1", Fd(-1)},
		{"fd:+7", Fd(7)},
		{"stdin", Stdin()},
		{"prompt", Prompt("")},
		{"prompt:Key: ", Source{Kind: KindPrompt, Value: "Key: "}},
		{"prompt:", Source{Kind: KindPrompt, Value: ""}},
	}

	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			got, err := Parse(tt.arg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_Unrecognized(t *testing.T) {
	tests := []struct {
		arg   string
		token string
	}{
		{"", ""},
		{"bogus:x", "bogus"},
		{"PASS:x", "PASS"},
		{"password", "password"},
		{"pass", "pass"},
		{"env", "env"},
		{"file", "file"},
		{"fd", "fd"},
		{"stdin:extra", "stdin"},
		{":value", ""},
	}

	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			_, err := Parse(tt.arg)
			require.ErrorIs(t, err, ErrUnrecognizedSource)
			assert.Contains(t, err.Error(), strconv.Quote(tt.token))
		})
	}
}

func TestParse_MalformedFd(t *testing.T) {
	for _, arg := range []string{"fd:notanumber", "fd:", "fd:3.0", "fd: 3", "fd:4294967296"} {
		t.Run(arg, func(t *testing.T) {
			_, err := Parse(arg)
			require.ErrorIs(t, err, ErrMalformedFd)
			assert.NotErrorIs(t, err, ErrUnrecognizedSource)
		})
	}
}

func TestSourceString_RoundTrip(t *testing.T) {
	for _, arg := range []string{
		"pass:omg",
		"pass:with:colons",
		"env:SECRET_X",
		"file:/etc/passfs/key",
		"fd:9",
		"stdin",
		"prompt",
		"prompt:Enter PEM pass phrase: ",
		"prompt:",
	} {
		t.Run(arg, func(t *testing.T) {
			src, err := Parse(arg)
			require.NoError(t, err)
			assert.Equal(t, arg, src.String())

			again, err := Parse(src.String())
			require.NoError(t, err)
			assert.Equal(t, src, again)
		})
	}
}

func TestSourceString_DefaultPrompt(t *testing.T) {
	src, err := Parse("prompt:" + DefaultPrompt)
	require.NoError(t, err)
	assert.Equal(t, "prompt", src.String())
	assert.Equal(t, Prompt(""), src)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "file", KindFile.String())
	assert.Equal(t, "Kind(0)", Kind(0).String())
}

func TestMustParse(t *testing.T) {
	assert.Equal(t, Env("X"), MustParse("env:X"))
	assert.Panics(t, func() { MustParse("nope:x") })
}
