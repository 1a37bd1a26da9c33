package secretmanager

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/evict/passfs/passarg"
)

var ErrNoOnePassword = errors.New("1password reference but no 1password manager configured")

// Router sends "op://" references to 1Password and everything else to the
// passarg manager.
type Router struct {
	passarg     *PassargManager
	onePassword SecretManager
}

// NewRouter returns a Router. onePassword may be nil.
func NewRouter(pm *PassargManager, onePassword SecretManager) *Router {
	return &Router{passarg: pm, onePassword: onePassword}
}

// OnePasswordAuth selects how the 1Password client authenticates.
type OnePasswordAuth struct {
	Account string
	Token   passarg.Source
	Version string
}

// Connect returns a Router for refs. A 1Password client is only created when
// some reference needs it; its token is then read before any secret, so a
// token sharing a file with secrets consumes the first line.
func Connect(ctx context.Context, pm *PassargManager, refs []string, auth OnePasswordAuth) (*Router, error) {
	if !slices.ContainsFunc(refs, IsOnePasswordReference) {
		return NewRouter(pm, nil), nil
	}

	var token string
	if auth.Account == "" {
		var err error
		token, err = pm.ResolveSource(ctx, auth.Token)
		if err != nil {
			return nil, fmt.Errorf("reading 1password token from %s: %w", auth.Token.Kind, err)
		}
	}

	op, err := NewOnePasswordManager(ctx, auth.Account, token, auth.Version)
	if err != nil {
		return nil, err
	}
	return NewRouter(pm, op), nil
}

func (r *Router) Resolve(ctx context.Context, reference string) (string, error) {
	if IsOnePasswordReference(reference) {
		if r.onePassword == nil {
			return "", ErrNoOnePassword
		}
		return r.onePassword.Resolve(ctx, reference)
	}
	return r.passarg.Resolve(ctx, reference)
}

func (r *Router) Name() string {
	if r.onePassword == nil {
		return r.passarg.Name()
	}
	return r.passarg.Name() + "+" + r.onePassword.Name()
}

// Close releases the resources held by the passarg manager.
func (r *Router) Close() error {
	return r.passarg.Close()
}
