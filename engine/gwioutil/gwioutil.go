package gwioutil

import (
	"io"
	"net"

	"github.com/pkg/errors"
)

type timeoutError interface {
	Timeout() bool // Is it a timeout error
}

// IsTimeoutError checks if the error is a timeout error
func IsTimeoutError(err error) bool {
	if err == nil {
		return false
	}

	err = errors.Cause(err)
	ne, ok := err.(timeoutError)
	return ok && ne.Timeout()
}

// IsEOF checks if the error means the peer closed the stream, possibly in the middle of a frame
func IsEOF(err error) bool {
	err = errors.Cause(err)
	return err == io.EOF || err == io.ErrUnexpectedEOF || err == io.ErrClosedPipe || err == net.ErrClosed
}
