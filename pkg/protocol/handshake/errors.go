package handshake

import "errors"

// Typed errors
var (
	errBufferTooSmall = errors.New("buffer is too small")
	errLengthOverflow = errors.New("handshake header field exceeds uint24 range")
)
