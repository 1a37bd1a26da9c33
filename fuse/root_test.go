package fuse

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/evict/passfs/passarg"
	"github.com/rs/zerolog"
)

func TestFilenameFor(t *testing.T) {
	tests := []struct {
		ref  string
		want string
	}{
		{"op://Vault/Item/Field", "Vault_Item_Field"},
		{"file:/run/keys/db.txt", "db.txt"},
		{"file:relative/api-key", "api-key"},
		{"env:DB_PASS", "DB_PASS"},
		{"fd:3", "fd3"},
		{"stdin", "stdin"},
		{"prompt:Vault unseal key: ", "prompt"},
	}

	for _, tt := range tests {
		got, err := FilenameFor(tt.ref)
		if err != nil {
			t.Errorf("FilenameFor(%q) failed: %v", tt.ref, err)
			continue
		}
		if got != tt.want {
			t.Errorf("FilenameFor(%q) = %q, want %q", tt.ref, got, tt.want)
		}
	}
}

func TestFilenameForErrors(t *testing.T) {
	if _, err := FilenameFor("pass:hunter2"); !errors.Is(err, ErrFilenameRequired) {
		t.Errorf("pass: got %v, want ErrFilenameRequired", err)
	}
	if _, err := FilenameFor("vault:x"); !errors.Is(err, passarg.ErrUnrecognizedSource) {
		t.Errorf("vault: got %v, want ErrUnrecognizedSource", err)
	}
}

func TestPrepareResolvesInConfigOrder(t *testing.T) {
	manager := NewMockSecretManager()
	manager.secrets["env:A"] = "a"
	manager.secrets["op://v/i/f"] = "op"

	secrets := []SecretConfig{
		{Reference: "env:A"},
		{Reference: "op://v/i/f", Refresh: true},
		{Reference: "pass:literal", Filename: "literal"},
	}
	manager.secrets["pass:literal"] = "literal"

	root := NewSecretRoot(manager, secrets, 0, zerolog.Nop())
	if err := root.Prepare(context.Background()); err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}

	wantNames := []string{"A", "v_i_f", "literal"}
	for i, want := range wantNames {
		if root.names[i] != want {
			t.Errorf("name %d: got %q, want %q", i, root.names[i], want)
		}
	}
	if string(root.pinned[0]) != "a" || string(root.pinned[2]) != "literal" {
		t.Errorf("unexpected pinned values: %q", root.pinned)
	}
	if root.pinned[1] != nil {
		t.Error("refreshed secret should not be pinned")
	}
	if manager.calls != 2 {
		t.Errorf("manager called %d times, want 2", manager.calls)
	}
}

func TestPrepareRejectsBadNames(t *testing.T) {
	tests := []struct {
		name    string
		secrets []SecretConfig
		want    error
	}{
		{"duplicate", []SecretConfig{{Reference: "env:A"}, {Reference: "file:/x/A"}}, ErrDuplicateFilename},
		{"literal without filename", []SecretConfig{{Reference: "pass:x"}}, ErrFilenameRequired},
		{"slash", []SecretConfig{{Reference: "env:A", Filename: "a/b"}}, ErrInvalidFilename},
		{"empty env name", []SecretConfig{{Reference: "env:"}}, ErrInvalidFilename},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := NewSecretRoot(NewMockSecretManager(), tt.secrets, 0, zerolog.Nop())
			if err := root.Prepare(context.Background()); !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestPrepareResolveError(t *testing.T) {
	root := NewSecretRoot(NewMockSecretManager(), []SecretConfig{{Reference: "env:MISSING"}}, 0, zerolog.Nop())
	if err := root.Prepare(context.Background()); err == nil {
		t.Fatal("expected resolve error")
	}
	if root.names != nil {
		t.Error("failed Prepare should leave the root unprepared")
	}
}

func TestCreateSymlinks(t *testing.T) {
	dir := t.TempDir()
	link := filepath.Join(dir, "db-pass")
	mountPoint := filepath.Join(dir, "mnt")

	manager := NewMockSecretManager()
	manager.secrets["env:DB"] = "x"
	root := NewSecretRoot(manager, []SecretConfig{
		{Reference: "env:DB", SymlinkTo: link},
	}, 0, zerolog.Nop())
	if err := root.Prepare(context.Background()); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 2; i++ {
		links, err := root.CreateSymlinks(mountPoint)
		if err != nil {
			t.Fatalf("CreateSymlinks %d failed: %v", i+1, err)
		}
		if len(links) != 1 || links[0] != link {
			t.Fatalf("got links %v", links)
		}
	}

	target, err := os.Readlink(link)
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(mountPoint, "DB"); target != want {
		t.Errorf("symlink target: got %q, want %q", target, want)
	}

	if err := os.Remove(link); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(link, []byte("keep"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := root.CreateSymlinks(mountPoint); err == nil {
		t.Error("expected refusal to replace a regular file")
	}
}
