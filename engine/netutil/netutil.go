package netutil

import (
	"net"

	"github.com/pkg/errors"
	"github.com/yondr/yondr/engine/gwioutil"
)

var errTrailingBytes = errors.New("trailing bytes after message")

// IsConnectionError check if the error is a connection error (close)
func IsConnectionError(_err interface{}) bool {
	err, ok := _err.(error)
	if !ok {
		return false
	}

	if gwioutil.IsEOF(err) {
		return true
	}

	err = errors.Cause(err)
	neterr, ok := err.(net.Error)
	if !ok {
		return false
	}
	if neterr.Timeout() {
		return false
	}

	return true
}

// Dial connects to addr over "tcp" or "kcp"
func Dial(network, addr string) (net.Conn, error) {
	switch network {
	case "", "tcp":
		conn, err := net.Dial("tcp", addr)
		return conn, errors.Wrap(err, "dial tcp")
	case "kcp":
		return DialKCP(addr)
	}
	return nil, errors.Errorf("unknown network: %s", network)
}
