// Package passarg implements OpenSSL-style passphrase arguments.
//
// A passphrase argument names where a secret comes from:
//
//	pass:<password>   the argument itself
//	env:<var>         the environment variable var
//	file:<pathname>   the next line of pathname
//	fd:<number>       the next line of file descriptor number (not on Windows)
//	stdin             the next line of standard input
//	prompt[:<text>]   an interactive prompt without echo (default "Password: ")
//
// Arguments that share a file-like source read one line each, in the order
// the caller resolves them. Reading --pass-in before --pass-out gives the
// same input-password-first ordering as OpenSSL.
package passarg

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultPrompt is used by "prompt" when no text is given.
const DefaultPrompt = "Password: "

// Kind identifies the source of a passphrase argument.
type Kind int

const (
	KindPass Kind = iota + 1
	KindEnv
	KindFile
	KindFd
	KindStdin
	KindPrompt
)

func (k Kind) String() string {
	switch k {
	case KindPass:
		return "pass"
	case KindEnv:
		return "env"
	case KindFile:
		return "file"
	case KindFd:
		return "fd"
	case KindStdin:
		return "stdin"
	case KindPrompt:
		return "prompt"
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Source is a parsed passphrase argument. Value holds the password, variable
// name, path or prompt text depending on Kind; Fd is set for KindFd only.
type Source struct {
	Kind  Kind
	Value string
	Fd    int
}

// Pass returns a literal source.
func Pass(password string) Source { return Source{Kind: KindPass, Value: password} }

// Env returns a source reading the environment variable name.
func Env(name string) Source { return Source{Kind: KindEnv, Value: name} }

// File returns a source reading lines of path.
func File(path string) Source { return Source{Kind: KindFile, Value: path} }

// Fd returns a source reading lines of descriptor fd.
func Fd(fd int) Source { return Source{Kind: KindFd, Fd: fd} }

// Stdin returns the standard input source.
func Stdin() Source { return Source{Kind: KindStdin} }

// Prompt returns an interactive source. An empty text means DefaultPrompt.
func Prompt(text string) Source {
	if text == "" {
		text = DefaultPrompt
	}
	return Source{Kind: KindPrompt, Value: text}
}

// Parse parses a passphrase argument. It never touches the environment,
// the filesystem or the terminal.
func Parse(arg string) (Source, error) {
	typ, value, hasValue := strings.Cut(arg, ":")

	switch {
	case typ == "pass" && hasValue:
		return Pass(value), nil
	case typ == "env" && hasValue:
		return Env(value), nil
	case typ == "file" && hasValue:
		return File(value), nil
	case typ == "fd" && hasValue:
		fd, err := strconv.ParseInt(value, 10, 32)
		if err != nil {
			return Source{}, fmt.Errorf("%w: %w", ErrMalformedFd, err)
		}
		return Fd(int(fd)), nil
	case typ == "stdin" && !hasValue:
		return Stdin(), nil
	case typ == "prompt" && !hasValue:
		return Prompt(DefaultPrompt), nil
	case typ == "prompt":
		return Source{Kind: KindPrompt, Value: value}, nil
	}

	return Source{}, fmt.Errorf("%w %q", ErrUnrecognizedSource, typ)
}

// MustParse is like Parse but panics on error. It is meant for flag defaults.
func MustParse(arg string) Source {
	src, err := Parse(arg)
	if err != nil {
		panic(err)
	}
	return src
}

// String formats s back into a passphrase argument accepted by Parse.
func (s Source) String() string {
	switch s.Kind {
	case KindFd:
		return "fd:" + strconv.Itoa(s.Fd)
	case KindStdin:
		return "stdin"
	case KindPrompt:
		if s.Value == DefaultPrompt {
			return "prompt"
		}
		return "prompt:" + s.Value
	case KindPass, KindEnv, KindFile:
		return s.Kind.String() + ":" + s.Value
	default:
		return s.Kind.String()
	}
}
