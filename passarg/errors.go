package passarg

import "errors"

var (
	ErrUnrecognizedSource  = errors.New("unrecognized source type")
	ErrMalformedFd         = errors.New("malformed descriptor number")
	ErrEnvLookup           = errors.New("environment lookup failed")
	ErrIO                  = errors.New("i/o failure")
	ErrUnsupportedPlatform = errors.New("unsupported on this platform")
	ErrClosed              = errors.New("use of closed passarg reader")
)
