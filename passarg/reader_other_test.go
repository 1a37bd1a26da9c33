//go:build !unix

package passarg

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReader_FdUnsupported(t *testing.T) {
	r := newTestReader(t)

	_, err := r.ReadPassArg("fd:3")
	require.ErrorIs(t, err, ErrUnsupportedPlatform)
}
