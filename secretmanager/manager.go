package secretmanager

import "context"

type SecretManager interface {
	// Resolve fetches the secret value for the given reference
	Resolve(ctx context.Context, reference string) (string, error)

	// Name returns the provider name (e.g., "passarg", "1password")
	Name() string
}
