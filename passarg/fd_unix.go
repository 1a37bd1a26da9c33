//go:build unix

package passarg

import (
	"os"
	"strconv"

	"golang.org/x/sys/unix"
)

const fdSupported = true

// adoptFd takes ownership of descriptor fd and returns it as a file. The
// caller must not use or close fd independently afterwards. Standard output
// and standard error are returned as os.Stdout and os.Stderr and are not owned.
func adoptFd(fd int) (f *os.File, owned bool, err error) {
	name := "fd:" + strconv.Itoa(fd)
	if fd < 0 {
		return nil, false, &os.PathError{Op: "adopt", Path: name, Err: unix.EBADF}
	}

	// os.NewFile does not validate the descriptor, and an invalid one would
	// later be closed by the file's finalizer.
	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		return nil, false, &os.PathError{Op: "fstat", Path: name, Err: err}
	}

	switch fd {
	case 1:
		return os.Stdout, false, nil
	case 2:
		return os.Stderr, false, nil
	}
	return os.NewFile(uintptr(fd), name), true, nil
}
