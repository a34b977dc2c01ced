package netutil

import (
	"net"
	"time"

	"github.com/yondr/yondr/engine/consts"
	"github.com/yondr/yondr/engine/gwioutil"
	"github.com/yondr/yondr/engine/gwlog"
	"github.com/yondr/yondr/engine/gwutils"
)

// TCPServerDelegate is the implementations that a TCP server should provide
type TCPServerDelegate interface {
	ServeTCPConnection(net.Conn)
}

// ServeForever keeps serving on addresses produced by listen until stopped returns true.
// A failed or panicking listener is restarted after a pause.
func ServeForever(listen func() (net.Listener, error), delegate TCPServerDelegate, stopped func() bool) {
	for !stopped() {
		var err error
		gwutils.RunPanicless(func() {
			var ln net.Listener
			ln, err = listen()
			if err == nil {
				err = Serve(ln, delegate)
			}
		})
		if stopped() {
			return
		}
		gwlog.Errorf("listener failed with error: %v, will restart after %s", err, consts.RESTART_TCP_SERVER_INTERVAL)
		time.Sleep(consts.RESTART_TCP_SERVER_INTERVAL)
	}
}

// Serve accepts connections until the listener fails or is closed, each served on its own goroutine
func Serve(ln net.Listener, delegate TCPServerDelegate) error {
	defer ln.Close()
	gwlog.Infof("Listening on %s ...", ln.Addr())

	for {
		conn, err := ln.Accept()
		if err != nil {
			if gwioutil.IsTimeoutError(err) {
				continue
			}
			return err
		}

		gwlog.Infof("Connection from: %s", conn.RemoteAddr())
		go delegate.ServeTCPConnection(conn)
	}
}

// ListenTCP listens on a TCP address
func ListenTCP(addr string) (net.Listener, error) {
	return net.Listen("tcp", addr)
}
