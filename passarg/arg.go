package passarg

import "github.com/spf13/pflag"

var _ pflag.Value = (*Arg)(nil)

// Arg is a pflag.Value holding a passphrase argument, so that malformed
// arguments are rejected while flags are parsed rather than when resolved.
type Arg struct {
	src Source
}

// NewArg returns an Arg holding def. An empty def leaves the Arg unset.
func NewArg(def string) *Arg {
	if def == "" {
		return &Arg{}
	}
	return &Arg{src: MustParse(def)}
}

func (a *Arg) Set(s string) error {
	src, err := Parse(s)
	if err != nil {
		return err
	}
	a.src = src
	return nil
}

func (a *Arg) String() string {
	if a == nil || a.src.Kind == 0 {
		return ""
	}
	return a.src.String()
}

func (a *Arg) Type() string { return "passarg" }

// Source returns the parsed argument. Its Kind is zero when the Arg is unset.
func (a *Arg) Source() Source { return a.src }

// IsSet reports whether the Arg holds an argument.
func (a *Arg) IsSet() bool { return a.src.Kind != 0 }
