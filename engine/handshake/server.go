package handshake

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/xiaonanln/go-xnsyncutil/xnsyncutil"
	"github.com/yondr/yondr/engine/consts"
	"github.com/yondr/yondr/engine/gwlog"
	"github.com/yondr/yondr/engine/gwutils"
	"github.com/yondr/yondr/engine/gwvar"
	"github.com/yondr/yondr/engine/netutil"
	"github.com/yondr/yondr/engine/opmon"
	"github.com/yondr/yondr/engine/proto"
	"github.com/yondr/yondr/engine/resource"
)

// ServerConfig holds the settings of the server role
type ServerConfig struct {
	WelcomeMessage       string
	GoodbyeMessage       string
	MaxClientMessageSize uint32
	MaxServerMessageSize uint32
	HandshakeTimeout     time.Duration
}

// Server brings connecting clients up to date with a frozen resource snapshot
type Server struct {
	snapshot *resource.Snapshot
	manifest []proto.ManifestEntry
	cfg      ServerConfig

	clients     map[*serverClient]struct{}
	clientsLock sync.Mutex

	terminating xnsyncutil.AtomicBool
	terminated  *xnsyncutil.OneTimeCond
}

type serverClient struct {
	*proto.SyncConnection
	inSession xnsyncutil.AtomicBool
}

func (sc *serverClient) String() string {
	return fmt.Sprintf("Client<%s>", sc.RemoteAddr())
}

// NewServer creates a Server sharing snap between all connections
func NewServer(snap *resource.Snapshot, cfg ServerConfig) *Server {
	return &Server{
		snapshot:   snap,
		manifest:   proto.ManifestOf(snap),
		cfg:        cfg,
		clients:    map[*serverClient]struct{}{},
		terminated: xnsyncutil.NewOneTimeCond(),
	}
}

// Start publishes the server as serving; call it once listeners are up
func (s *Server) Start() {
	gwvar.Resources.Set(int64(s.snapshot.Len()))
	gwvar.IsServing.Set(true)
	gwlog.Infof("%s: serving", s)
}

func (s *Server) String() string {
	return fmt.Sprintf("Server<%d resources>", s.snapshot.Len())
}

// ServeTCPConnection serves one accepted connection until the session ends
func (s *Server) ServeTCPConnection(conn net.Conn) {
	if tcpConn, ok := conn.(*net.TCPConn); ok {
		tcpConn.SetWriteBuffer(consts.CLIENT_CONN_WRITE_BUFFER_SIZE)
		tcpConn.SetReadBuffer(consts.CLIENT_CONN_READ_BUFFER_SIZE)
		tcpConn.SetNoDelay(consts.CLIENT_CONN_SET_TCP_NO_DELAY)
	}
	s.HandleConnection(conn)
}

// HandleConnection runs the server side handshake and session on conn, then closes it.
// It returns the error that ended the connection, if any.
func (s *Server) HandleConnection(conn net.Conn) error {
	sc := &serverClient{
		SyncConnection: proto.NewServerSyncConnection(netutil.WrapConnection(conn), s.cfg.MaxClientMessageSize, s.cfg.MaxServerMessageSize),
	}
	defer sc.Close()

	if s.terminating.Load() {
		// not accepting more clients
		sc.SendWelcome(false, "server is shutting down")
		return ErrRejected
	}

	s.clientsLock.Lock()
	s.clients[sc] = struct{}{}
	s.clientsLock.Unlock()
	gwvar.ConnectedClients.Add(1)
	defer func() {
		s.clientsLock.Lock()
		delete(s.clients, sc)
		s.clientsLock.Unlock()
		gwvar.ConnectedClients.Add(-1)
	}()

	if consts.DEBUG_CLIENTS {
		gwlog.Debugf("%s: %s connected", s, sc)
	}
	err := gwutils.CatchPanic(func() error {
		return s.serveClient(sc)
	})
	if err == nil {
		gwlog.Infof("%s: %s disconnected", s, sc)
	} else if netutil.IsConnectionError(err) || s.terminating.Load() {
		gwlog.Debugf("%s: %s connection lost: %v", s, sc, err)
	} else {
		gwlog.Errorf("%s: %s dropped: %v", s, sc, err)
	}
	return err
}

func (s *Server) serveClient(sc *serverClient) error {
	ctx := context.Background()
	if s.cfg.HandshakeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.HandshakeTimeout)
		defer cancel()
	}
	stop := watchContext(ctx, sc)
	err := s.handshake(sc)
	stop()
	if err != nil {
		gwvar.HandshakesFailed.Add(1)
		return contextError(ctx, err)
	}
	gwvar.HandshakesCompleted.Add(1)
	return s.session(sc)
}

func (s *Server) handshake(sc *serverClient) error {
	op := opmon.StartOperation("handshake.Server")
	defer op.Finish(consts.HANDSHAKE_WARN_THRESHOLD)

	if err := sc.SendWelcome(true, s.cfg.WelcomeMessage); err != nil {
		return err
	}
	if err := sc.SendCheckResources(s.manifest); err != nil {
		return err
	}
	gwlog.Debugf("%s: sent manifest of %d resources to %s", s, len(s.manifest), sc)

	msg, err := expect(sc.SyncConnection, proto.MT_REQUEST_RESOURCES)
	if err != nil {
		return err
	}
	var wanted []resource.SessionID
	if err := msg.Decode(&wanted); err != nil {
		return err
	}
	gwlog.Debugf("%s: %s requests %d resources", s, sc, len(wanted))

	for _, id := range wanted {
		res := s.snapshot.Resource(id)
		if res == nil {
			return errors.Wrapf(ErrUnknownSessionID, "requested session id %d", id)
		}
		if err := sc.SendResource(id, res.Type(), res.RawData()); err != nil {
			return err
		}
	}

	if _, err := expect(sc.SyncConnection, proto.MT_READY); err != nil {
		return err
	}
	gwlog.Debugf("%s: %s is ready", s, sc)
	return nil
}

// session serves the client after Ready: chat is logged, Goodbye or EOF ends it
func (s *Server) session(sc *serverClient) error {
	sc.inSession.Store(true)
	for {
		msg, err := sc.Recv()
		if err != nil {
			if netutil.IsConnectionError(err) {
				return nil
			}
			return err
		}
		switch msg.Type {
		case proto.MT_CLIENT_CHAT:
			var chat proto.Chat
			if err := msg.Decode(&chat); err != nil {
				return err
			}
			gwlog.Infof("%s: [%s] %s", sc, chat.From, chat.Text)
		case proto.MT_CLIENT_GOODBYE:
			var text string
			if err := msg.Decode(&text); err != nil {
				return err
			}
			gwlog.Debugf("%s: %s says goodbye: %s", s, sc, text)
			return nil
		default:
			return errors.Wrapf(ErrWrongMessage, "unexpected %s in session", msg.Type)
		}
	}
}

// ClientCount returns the number of connected clients
func (s *Server) ClientCount() int {
	s.clientsLock.Lock()
	defer s.clientsLock.Unlock()
	return len(s.clients)
}

// Terminate says goodbye to clients in session, closes every connection and refuses new ones
func (s *Server) Terminate() {
	s.terminating.Store(true)
	gwvar.IsServing.Set(false)

	s.clientsLock.Lock()
	for sc := range s.clients {
		// only the session loop runs on these, and it never writes
		if sc.inSession.Load() {
			sc.SendServerGoodbye(s.cfg.GoodbyeMessage)
		}
		sc.Close()
	}
	s.clientsLock.Unlock()

	s.terminated.Signal()
}

// IsTerminating returns if Terminate has been called
func (s *Server) IsTerminating() bool {
	return s.terminating.Load()
}

// Wait blocks until Terminate is called
func (s *Server) Wait() {
	s.terminated.Wait()
}
