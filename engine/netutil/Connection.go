package netutil

import (
	"net"

	"github.com/xiaonanln/netconnutil"
	"github.com/yondr/yondr/engine/consts"
)

// Connection is a network stream whose writes are visible to the peer only after Flush
type Connection interface {
	netconnutil.FlushableConn
}

// NetConn turns a net.Conn into an unbuffered Connection
type NetConn struct {
	net.Conn
}

// Flush does nothing, writes go straight to the socket
func (n NetConn) Flush() error {
	return nil
}

// WrapConnection hides temporary errors of the raw connection and buffers both directions
func WrapConnection(raw net.Conn) Connection {
	raw = netconnutil.NewNoTempErrorConn(raw)
	var conn Connection = NetConn{Conn: raw}
	conn = netconnutil.NewBufferedConn(conn, consts.BUFFERED_READ_BUFFSIZE, consts.BUFFERED_WRITE_BUFFSIZE)
	return conn
}
