//go:build !unix

package passarg

import "os"

const fdSupported = false

func adoptFd(int) (*os.File, bool, error) {
	return nil, false, ErrUnsupportedPlatform
}
