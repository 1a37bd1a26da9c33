package secretmanager

import (
	"context"
	"sync"

	"github.com/evict/passfs/passarg"
)

// PassargManager resolves passphrase arguments such as "file:key.txt" or
// "env:DB_PASS". References naming the same file-like source read successive
// lines, in the order Resolve is called.
type PassargManager struct {
	mu     sync.Mutex
	reader *passarg.Reader
}

func NewPassargManager(opts ...passarg.Option) *PassargManager {
	return &PassargManager{reader: passarg.NewReader(opts...)}
}

func (m *PassargManager) Resolve(ctx context.Context, reference string) (string, error) {
	src, err := passarg.Parse(reference)
	if err != nil {
		return "", err
	}
	return m.ResolveSource(ctx, src)
}

// ResolveSource resolves an already parsed argument.
func (m *PassargManager) ResolveSource(ctx context.Context, src passarg.Source) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	// passarg.Reader is not safe for concurrent use; FUSE callbacks are.
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.reader.Resolve(src)
}

func (m *PassargManager) Name() string {
	return "passarg"
}

// Close releases the files and descriptors opened so far.
func (m *PassargManager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.reader.Close()
}
