package passarg

import (
	"errors"
	"io"
	"os"

	"golang.org/x/term"
)

var errNoTerminal = errors.New("no terminal available")

// terminalPrompter reads a password without echo from the controlling
// terminal, falling back to standard input when it is a terminal.
type terminalPrompter struct{}

func (terminalPrompter) Prompt(text string) (string, error) {
	if tty, err := os.OpenFile("/dev/tty", os.O_RDWR, 0); err == nil {
		defer tty.Close()
		return readPassword(tty, tty, text)
	}
	return readPassword(os.Stdin, os.Stderr, text)
}

func readPassword(in *os.File, out io.Writer, text string) (string, error) {
	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		return "", errNoTerminal
	}

	if _, err := io.WriteString(out, text); err != nil {
		return "", err
	}
	pass, err := term.ReadPassword(fd)
	_, _ = io.WriteString(out, "\n")
	if err != nil {
		return "", err
	}
	return string(pass), nil
}
