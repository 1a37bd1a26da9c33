package fuse

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/evict/passfs/passarg"
	"github.com/evict/passfs/secretmanager"
	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/rs/zerolog"
)

var (
	ErrFilenameRequired  = errors.New("filename required")
	ErrInvalidFilename   = errors.New("invalid filename")
	ErrDuplicateFilename = errors.New("duplicate filename")
)

var _ fs.NodeOnAdder = (*SecretRoot)(nil)

type SecretConfig struct {
	Reference   string
	Filename    string   // optional custom filename
	MaxReads    int32    // 0 = unlimited
	AllowedCmds []string // empty = any process
	SymlinkTo   string   // optional symlink pointing at the mounted file
	Refresh     bool     // resolve on every open instead of once at startup
}

type SecretRoot struct {
	fs.Inode
	manager  secretmanager.SecretManager
	secrets  []SecretConfig
	maxReads int32 // default max reads for all secrets
	log      zerolog.Logger

	names  []string
	pinned [][]byte
}

func NewSecretRoot(manager secretmanager.SecretManager, secrets []SecretConfig, defaultMaxReads int32, log zerolog.Logger) *SecretRoot {
	return &SecretRoot{
		manager:  manager,
		secrets:  secrets,
		maxReads: defaultMaxReads,
		log:      log,
	}
}

// Prepare names every secret and resolves the secrets that are not refreshed
// on open, in configuration order. Secrets sharing a file-like source
// therefore get its lines in the order they are configured.
func (r *SecretRoot) Prepare(ctx context.Context) error {
	names := make([]string, len(r.secrets))
	seen := make(map[string]int, len(r.secrets))

	for i, secret := range r.secrets {
		name := secret.Filename
		if name == "" {
			var err error
			if name, err = FilenameFor(secret.Reference); err != nil {
				return fmt.Errorf("secret #%d: %w", i+1, err)
			}
		}
		if name == "" || name == "." || name == ".." || strings.ContainsRune(name, '/') {
			return fmt.Errorf("secret #%d: %w %q", i+1, ErrInvalidFilename, name)
		}
		if j, ok := seen[name]; ok {
			return fmt.Errorf("secret #%d: %w %q (also used by secret #%d)", i+1, ErrDuplicateFilename, name, j+1)
		}
		seen[name] = i
		names[i] = name
	}

	pinned := make([][]byte, len(r.secrets))
	for i, secret := range r.secrets {
		if secret.Refresh {
			continue
		}
		val, err := r.manager.Resolve(ctx, secret.Reference)
		if err != nil {
			return fmt.Errorf("resolving %s: %w", names[i], err)
		}
		pinned[i] = []byte(val)
	}

	r.names = names
	r.pinned = pinned
	return nil
}

func (r *SecretRoot) OnAdd(ctx context.Context) {
	if r.names == nil {
		if err := r.Prepare(ctx); err != nil {
			r.log.Error().Err(err).Msg("preparing secrets")
			return
		}
	}

	for i, secret := range r.secrets {
		maxReads := secret.MaxReads
		if maxReads == 0 {
			maxReads = r.maxReads
		}

		var node *SecretFile
		if secret.Refresh {
			node = NewSecretFile(r.manager, secret.Reference, maxReads)
		} else {
			node = NewPinnedSecretFile(r.names[i], r.pinned[i], maxReads)
		}
		node.allowedCmds = secret.AllowedCmds
		node.log = r.log.With().Str("secret", r.names[i]).Logger()

		child := r.NewInode(ctx, node, fs.StableAttr{Mode: fuse.S_IFREG})
		r.AddChild(r.names[i], child, true)
	}
}

// CreateSymlinks creates the configured symlinks to the files under
// mountPoint and returns their paths. Existing symlinks are replaced; any
// other existing file is an error.
func (r *SecretRoot) CreateSymlinks(mountPoint string) ([]string, error) {
	var links []string
	for i, secret := range r.secrets {
		if secret.SymlinkTo == "" {
			continue
		}

		if fi, err := os.Lstat(secret.SymlinkTo); err == nil {
			if fi.Mode()&os.ModeSymlink == 0 {
				return links, fmt.Errorf("symlink %s: refusing to replace non-symlink", secret.SymlinkTo)
			}
			if err := os.Remove(secret.SymlinkTo); err != nil {
				return links, err
			}
		}

		target := filepath.Join(mountPoint, r.names[i])
		if err := os.Symlink(target, secret.SymlinkTo); err != nil {
			return links, err
		}
		links = append(links, secret.SymlinkTo)
	}
	return links, nil
}

// FilenameFor derives a filename from a reference: "op://Vault/Item/Field"
// becomes "Vault_Item_Field", "file:/run/keys/db.txt" becomes "db.txt",
// "env:DB_PASS" becomes "DB_PASS". Literal "pass:" references need an
// explicit filename so the secret does not end up in the name.
func FilenameFor(ref string) (string, error) {
	if secretmanager.IsOnePasswordReference(ref) {
		return referenceToFilename(ref), nil
	}

	src, err := passarg.Parse(ref)
	if err != nil {
		return "", err
	}

	switch src.Kind {
	case passarg.KindEnv:
		return src.Value, nil
	case passarg.KindFile:
		return filepath.Base(src.Value), nil
	case passarg.KindFd:
		return "fd" + strconv.Itoa(src.Fd), nil
	case passarg.KindStdin, passarg.KindPrompt:
		return src.Kind.String(), nil
	default:
		return "", fmt.Errorf("%w for %s references", ErrFilenameRequired, src.Kind)
	}
}

// referenceToFilename converts "op://Vault/Item/Field" to "Vault_Item_Field"
func referenceToFilename(ref string) string {
	ref = strings.TrimPrefix(ref, secretmanager.OnePasswordScheme)
	ref = strings.ReplaceAll(ref, "/", "_")
	return filepath.Clean(ref)
}
