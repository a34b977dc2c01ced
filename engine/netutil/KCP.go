package netutil

import (
	"net"

	"github.com/pkg/errors"
	"github.com/xtaci/kcp-go"
	"github.com/yondr/yondr/engine/consts"
)

const (
	_KCP_DATA_SHARDS   = 10
	_KCP_PARITY_SHARDS = 3
)

type kcpListener struct {
	*kcp.Listener
}

// Accept waits for the next KCP session and tunes it for stream traffic
func (ln kcpListener) Accept() (net.Conn, error) {
	conn, err := ln.AcceptKCP()
	if err != nil {
		return nil, err
	}
	tuneKCPSession(conn)
	return conn, nil
}

// ListenKCP listens on a UDP address with the KCP reliable transport
func ListenKCP(addr string) (net.Listener, error) {
	ln, err := kcp.ListenWithOptions(addr, nil, _KCP_DATA_SHARDS, _KCP_PARITY_SHARDS)
	if err != nil {
		return nil, errors.Wrap(err, "listen kcp")
	}
	return kcpListener{ln}, nil
}

// DialKCP connects to a KCP server
func DialKCP(addr string) (net.Conn, error) {
	conn, err := kcp.DialWithOptions(addr, nil, _KCP_DATA_SHARDS, _KCP_PARITY_SHARDS)
	if err != nil {
		return nil, errors.Wrap(err, "dial kcp")
	}
	tuneKCPSession(conn)
	return conn, nil
}

// turbo mode, see https://github.com/skywind3000/kcp/blob/master/README.en.md#protocol-configuration
func tuneKCPSession(conn *kcp.UDPSession) {
	conn.SetReadBuffer(consts.CLIENT_CONN_READ_BUFFER_SIZE)
	conn.SetWriteBuffer(consts.CLIENT_CONN_WRITE_BUFFER_SIZE)
	conn.SetStreamMode(true)
	conn.SetWriteDelay(true)
	conn.SetNoDelay(1, 10, 2, 1)
}
