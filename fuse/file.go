package fuse

import (
	"context"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/evict/passfs/secretmanager"
	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/rs/zerolog"
)

var (
	_ fs.NodeOpener    = (*SecretFile)(nil)
	_ fs.NodeReader    = (*SecretFile)(nil)
	_ fs.NodeGetattrer = (*SecretFile)(nil)
)

type SecretFile struct {
	fs.Inode
	manager     secretmanager.SecretManager
	reference   string
	refresh     bool
	allowedCmds []string
	log         zerolog.Logger

	mu        sync.Mutex
	content   []byte
	readCount atomic.Int32
	maxReads  int32
}

// NewSecretFile returns a file that resolves reference on every open.
func NewSecretFile(manager secretmanager.SecretManager, reference string, maxReads int32) *SecretFile {
	return &SecretFile{
		manager:   manager,
		reference: reference,
		refresh:   true,
		maxReads:  maxReads,
		log:       zerolog.Nop(),
	}
}

// NewPinnedSecretFile returns a file serving content resolved beforehand.
func NewPinnedSecretFile(name string, content []byte, maxReads int32) *SecretFile {
	return &SecretFile{
		reference: name,
		content:   content,
		maxReads:  maxReads,
		log:       zerolog.Nop(),
	}
}

func (f *SecretFile) Open(ctx context.Context, flags uint32) (fs.FileHandle, uint32, syscall.Errno) {
	if flags&(syscall.O_WRONLY|syscall.O_RDWR) != 0 {
		return nil, 0, syscall.EROFS
	}

	if len(f.allowedCmds) > 0 {
		caller, ok := fuse.FromContext(ctx)
		if !ok || !cmdAllowed(caller.Pid, f.allowedCmds) {
			pid := uint32(0)
			if ok {
				pid = caller.Pid
			}
			f.log.Warn().Uint32("pid", pid).Str("cmdline", getCmdline(pid)).Msg("open denied")
			return nil, 0, syscall.EACCES
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	// Check read limit
	if f.maxReads > 0 {
		current := f.readCount.Load()
		if current >= f.maxReads {
			f.log.Warn().Int32("max_reads", f.maxReads).Msg("read limit exhausted")
			return nil, 0, syscall.EACCES
		}
	}

	if f.refresh {
		val, err := f.manager.Resolve(ctx, f.reference)
		if err != nil {
			f.log.Error().Err(err).Msg("resolve failed")
			return nil, 0, syscall.ENOENT
		}
		f.content = []byte(val)
	}

	f.readCount.Add(1)

	if f.maxReads > 0 {
		f.log.Info().Int32("reads", f.readCount.Load()).Int32("max_reads", f.maxReads).Msg("secret read")
	}

	return nil, fuse.FOPEN_DIRECT_IO, 0
}

func (f *SecretFile) Read(ctx context.Context, fh fs.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if int(off) >= len(f.content) {
		return fuse.ReadResultData(nil), 0
	}

	end := min(int(off)+len(dest), len(f.content))

	return fuse.ReadResultData(f.content[off:end]), 0
}

func (f *SecretFile) Getattr(ctx context.Context, fh fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	f.mu.Lock()
	defer f.mu.Unlock()

	out.Size = uint64(len(f.content))
	out.Mode = 0400 // r-------- (read-only)
	out.Mtime = uint64(time.Now().Unix())
	return 0
}
