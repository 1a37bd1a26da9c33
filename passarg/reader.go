package passarg

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

// Prompter asks the user for a secret. The returned line carries no newline.
type Prompter interface {
	Prompt(text string) (string, error)
}

// PrompterFunc adapts a function to the Prompter interface.
type PrompterFunc func(text string) (string, error)

func (f PrompterFunc) Prompt(text string) (string, error) { return f(text) }

// Option configures a Reader.
type Option func(*Reader)

// WithLogger sets the logger used for debug events. Secret values are never logged.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Reader) { r.log = l }
}

// WithStdin replaces the process standard input for the stdin and fd:0 sources.
func WithStdin(in io.Reader) Option {
	return func(r *Reader) { r.stdinSrc = in }
}

// WithPrompter replaces the terminal prompt used by the prompt source.
func WithPrompter(p Prompter) Option {
	return func(r *Reader) { r.prompter = p }
}

type handle struct {
	f  *os.File
	br *bufio.Reader
}

// Reader reads passphrases from passphrase arguments, opening files and
// descriptors on first use and keeping them open so that later arguments
// naming the same source read the following lines.
//
// Close releases every file and descriptor the Reader opened. Standard input
// is left open. A Reader must not be used from multiple goroutines at once.
type Reader struct {
	files map[string]*handle
	fds   map[int]*handle

	stdinSrc io.Reader
	stdin    *bufio.Reader

	prompter Prompter
	log      zerolog.Logger
	closed   bool
}

// NewReader returns an empty Reader.
func NewReader(opts ...Option) *Reader {
	r := &Reader{
		files:    make(map[string]*handle),
		fds:      make(map[int]*handle),
		stdinSrc: os.Stdin,
		prompter: terminalPrompter{},
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ReadPassArg parses arg and reads one passphrase from it.
func (r *Reader) ReadPassArg(arg string) (string, error) {
	src, err := Parse(arg)
	if err != nil {
		return "", err
	}
	return r.Resolve(src)
}

// Resolve reads one passphrase from src.
func (r *Reader) Resolve(src Source) (string, error) {
	if r.closed {
		return "", ErrClosed
	}

	switch src.Kind {
	case KindPass:
		return src.Value, nil
	case KindEnv:
		return lookupEnv(src.Value)
	case KindFile:
		return r.readFile(src.Value)
	case KindFd:
		return r.readFd(src.Fd)
	case KindStdin:
		return r.readStdin()
	case KindPrompt:
		pass, err := r.prompter.Prompt(src.Value)
		if err != nil {
			return "", fmt.Errorf("%w: prompt: %w", ErrIO, err)
		}
		return pass, nil
	}

	return "", fmt.Errorf("%w %q", ErrUnrecognizedSource, src.Kind.String())
}

// Stdin returns the standard input as seen by the Reader. Bytes buffered
// past the last line read by the stdin source are returned first.
func (r *Reader) Stdin() io.Reader {
	if r.stdin != nil {
		return r.stdin
	}
	return r.stdinSrc
}

// Close releases the files and descriptors opened by r.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true

	var errs []error
	for path, h := range r.files {
		if err := h.f.Close(); err != nil {
			errs = append(errs, err)
		}
		r.log.Debug().Str("path", path).Msg("closed passphrase file")
	}
	for fd, h := range r.fds {
		if h.f == nil {
			continue
		}
		if err := h.f.Close(); err != nil {
			errs = append(errs, err)
		}
		r.log.Debug().Int("fd", fd).Msg("closed passphrase descriptor")
	}
	r.files, r.fds = nil, nil

	return errors.Join(errs...)
}

func lookupEnv(name string) (string, error) {
	value, ok := os.LookupEnv(name)
	if !ok {
		return "", fmt.Errorf("%w: environment variable %q not set", ErrEnvLookup, name)
	}
	if !utf8.ValidString(value) {
		return "", fmt.Errorf("%w: environment variable %q is not valid unicode", ErrEnvLookup, name)
	}
	return value, nil
}

func (r *Reader) readFile(path string) (string, error) {
	canonical, err := canonicalize(path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrIO, err)
	}

	h, cached := r.files[canonical]
	if !cached {
		f, err := os.Open(canonical)
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrIO, err)
		}
		h = &handle{f: f, br: bufio.NewReader(f)}
		r.files[canonical] = h
		r.log.Debug().Str("path", canonical).Msg("opened passphrase file")
	}

	line, err := readLine(h.br)
	if err != nil {
		if !cached {
			delete(r.files, canonical)
			_ = h.f.Close()
		}
		return "", fmt.Errorf("%w: %w", ErrIO, err)
	}
	return line, nil
}

func (r *Reader) readFd(fd int) (string, error) {
	if !fdSupported {
		return "", fmt.Errorf("%w: fd:%d", ErrUnsupportedPlatform, fd)
	}
	if fd == 0 {
		return r.readStdin()
	}

	h, cached := r.fds[fd]
	if !cached {
		f, owned, err := adoptFd(fd)
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrIO, err)
		}
		h = &handle{br: bufio.NewReader(f)}
		if owned {
			h.f = f
		}
		r.fds[fd] = h
		r.log.Debug().Int("fd", fd).Bool("owned", owned).Msg("adopted passphrase descriptor")
	}

	line, err := readLine(h.br)
	if err != nil {
		if !cached {
			delete(r.fds, fd)
			if h.f != nil {
				_ = h.f.Close()
			}
		}
		return "", fmt.Errorf("%w: %w", ErrIO, err)
	}
	return line, nil
}

func (r *Reader) readStdin() (string, error) {
	if r.stdin == nil {
		r.stdin = bufio.NewReader(r.stdinSrc)
		r.log.Debug().Msg("attached standard input")
	}

	line, err := readLine(r.stdin)
	if err != nil {
		return "", fmt.Errorf("%w: reading standard input: %w", ErrIO, err)
	}
	return line, nil
}

// canonicalize returns the absolute, symlink-free form of path.
func canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}

// readLine reads through the next newline or end of stream and strips the
// line terminator. End of stream with nothing read yields "".
func readLine(br *bufio.Reader) (string, error) {
	line, err := br.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	return line, nil
}
