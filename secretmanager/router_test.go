package secretmanager

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/evict/passfs/passarg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockSecretManager implements SecretManager for testing
type MockSecretManager struct {
	secrets map[string]string
	calls   []string
}

func NewMockSecretManager() *MockSecretManager {
	return &MockSecretManager{
		secrets: make(map[string]string),
	}
}

func (m *MockSecretManager) Resolve(ctx context.Context, reference string) (string, error) {
	m.calls = append(m.calls, reference)
	return m.secrets[reference], nil
}

func (m *MockSecretManager) Name() string {
	return "mock"
}

func TestRouter_Dispatch(t *testing.T) {
	op := NewMockSecretManager()
	op.secrets["op://vault/item/password"] = "from-1password"

	r := NewRouter(NewPassargManager(), op)
	t.Cleanup(func() { _ = r.Close() })
	ctx := context.Background()

	got, err := r.Resolve(ctx, "op://vault/item/password")
	require.NoError(t, err)
	assert.Equal(t, "from-1password", got)

	got, err = r.Resolve(ctx, "pass:literal")
	require.NoError(t, err)
	assert.Equal(t, "literal", got)

	assert.Equal(t, []string{"op://vault/item/password"}, op.calls)
	assert.Equal(t, "passarg+mock", r.Name())
}

func TestRouter_WithoutOnePassword(t *testing.T) {
	r := NewRouter(NewPassargManager(), nil)
	t.Cleanup(func() { _ = r.Close() })

	_, err := r.Resolve(context.Background(), "op://vault/item/field")
	assert.ErrorIs(t, err, ErrNoOnePassword)
	assert.Equal(t, "passarg", r.Name())
}

func TestConnect_PassargOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.txt")
	require.NoError(t, os.WriteFile(path, []byte("token\nsecret\n"), 0o600))

	pm := NewPassargManager()
	r, err := Connect(context.Background(), pm, []string{"file:" + path, "env:HOME"}, OnePasswordAuth{
		Token: passarg.File(path),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })

	// no op:// reference, so the token source is left unread
	got, err := r.Resolve(context.Background(), "file:"+path)
	require.NoError(t, err)
	assert.Equal(t, "token", got)
}

func TestConnect_TokenFailure(t *testing.T) {
	pm := NewPassargManager()
	t.Cleanup(func() { _ = pm.Close() })

	_, err := Connect(context.Background(), pm, []string{"op://vault/item/field"}, OnePasswordAuth{
		Token: passarg.Env("SECRETMANAGER_TEST_UNSET_TOKEN"),
	})
	require.ErrorIs(t, err, passarg.ErrEnvLookup)
	assert.Contains(t, err.Error(), "reading 1password token from env")
}

func TestNewOnePasswordManager_MissingToken(t *testing.T) {
	_, err := NewOnePasswordManager(context.Background(), "", "", "test")
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestIsOnePasswordReference(t *testing.T) {
	assert.True(t, IsOnePasswordReference("op://a/b/c"))
	assert.False(t, IsOnePasswordReference("file:op://a"))
	assert.False(t, IsOnePasswordReference("op:x"))
}
