package gwioutil

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/bmizerany/assert"
	"github.com/pkg/errors"
)

func TestIsTimeoutError(t *testing.T) {
	assert.T(t, !IsTimeoutError(nil), "nil is not timeout")
	assert.T(t, !IsTimeoutError(io.EOF), "EOF is not timeout")

	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()
	a.SetReadDeadline(time.Now().Add(time.Millisecond))
	_, err := a.Read(make([]byte, 1))
	assert.Tf(t, IsTimeoutError(err), "deadline should be timeout: %v", err)
	assert.T(t, IsTimeoutError(errors.Wrap(err, "read")), "wrapped deadline should be timeout")
}

func TestIsEOF(t *testing.T) {
	assert.T(t, IsEOF(io.EOF), "EOF")
	assert.T(t, IsEOF(errors.Wrap(io.ErrUnexpectedEOF, "frame")), "wrapped unexpected EOF")
	assert.T(t, !IsEOF(errors.New("boom")), "plain error")
}
