package secretmanager

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/1password/onepassword-sdk-go"
)

const OnePasswordScheme = "op://"

var ErrMissingToken = errors.New("1password: no account and empty service account token")

// IsOnePasswordReference reports whether ref is an "op://vault/item/field" reference.
func IsOnePasswordReference(ref string) bool {
	return strings.HasPrefix(ref, OnePasswordScheme)
}

type OnePasswordManager struct {
	client *onepassword.Client
}

// NewOnePasswordManager authenticates through the desktop app when account is
// set, and with the service account token otherwise.
func NewOnePasswordManager(ctx context.Context, account, token, version string) (*OnePasswordManager, error) {
	opts := []onepassword.ClientOption{
		onepassword.WithIntegrationInfo("passfs", version),
	}

	if account != "" {
		opts = append(opts, onepassword.WithDesktopAppIntegration(account))
	} else {
		if token == "" {
			return nil, ErrMissingToken
		}
		opts = append(opts, onepassword.WithServiceAccountToken(token))
	}

	client, err := onepassword.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating 1password client: %w", err)
	}

	return &OnePasswordManager{client: client}, nil
}

func (m *OnePasswordManager) Resolve(ctx context.Context, reference string) (string, error) {
	return m.client.Secrets().Resolve(ctx, reference)
}

func (m *OnePasswordManager) Name() string {
	return "1password"
}
