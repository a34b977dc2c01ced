package handshake

import (
	"context"
	"io/ioutil"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bmizerany/assert"
	"github.com/pkg/errors"
	"github.com/yondr/yondr/engine/consts"
	"github.com/yondr/yondr/engine/gwvar"
	"github.com/yondr/yondr/engine/name"
	"github.com/yondr/yondr/engine/netutil"
	"github.com/yondr/yondr/engine/proto"
	"github.com/yondr/yondr/engine/resource"
)

var doorData = []byte("a door that opens both ways")

func testServerConfig() ServerConfig {
	return ServerConfig{
		WelcomeMessage:       "hi",
		GoodbyeMessage:       "closing",
		MaxClientMessageSize: consts.DEFAULT_CLIENT_MESSAGE_LIMIT,
		MaxServerMessageSize: consts.DEFAULT_SERVER_MESSAGE_LIMIT,
	}
}

func testClientConfig() ClientConfig {
	return ClientConfig{
		VerifyVersions:       true,
		GoodbyeMessage:       "thx",
		MaxClientMessageSize: consts.DEFAULT_CLIENT_MESSAGE_LIMIT,
		MaxServerMessageSize: consts.DEFAULT_SERVER_MESSAGE_LIMIT,
	}
}

func newTestServer(t *testing.T) *Server {
	dir := t.TempDir()
	assert.Equal(t, nil, os.MkdirAll(filepath.Join(dir, "core"), 0755))
	assert.Equal(t, nil, ioutil.WriteFile(filepath.Join(dir, "core", "door.bin"), doorData, 0644))

	store, err := resource.NewStore(dir)
	assert.Equal(t, nil, err)
	for _, pkg := range store.Packages() {
		assert.Equal(t, nil, store.LoadPackage(pkg.Index))
	}
	return NewServer(store.Freeze(), testServerConfig())
}

func newClientStore(t *testing.T, dir string) *resource.Store {
	store, err := resource.NewStore(dir)
	assert.Equal(t, nil, err)
	return store
}

// servePipe runs srv on one end of a pipe and returns the other end
func servePipe(srv *Server) (net.Conn, <-chan error) {
	a, b := net.Pipe()
	done := make(chan error, 1)
	go func() {
		done <- srv.HandleConnection(a)
	}()
	return b, done
}

// scripted runs script as a fake server on one end of a pipe and returns the other end
func scripted(script func(sc *proto.SyncConnection) error) (net.Conn, <-chan error) {
	a, b := net.Pipe()
	done := make(chan error, 1)
	go func() {
		sc := proto.NewServerSyncConnection(netutil.WrapConnection(a), consts.DEFAULT_CLIENT_MESSAGE_LIMIT, 0)
		defer sc.Close()
		done <- script(sc)
	}()
	return b, done
}

func recvWantList(sc *proto.SyncConnection) ([]resource.SessionID, error) {
	msg, err := expect(sc, proto.MT_REQUEST_RESOURCES)
	if err != nil {
		return nil, err
	}
	var ids []resource.SessionID
	err = msg.Decode(&ids)
	return ids, err
}

func recvReadyAndGoodbye(sc *proto.SyncConnection) (string, error) {
	if _, err := expect(sc, proto.MT_READY); err != nil {
		return "", err
	}
	msg, err := expect(sc, proto.MT_CLIENT_GOODBYE)
	if err != nil {
		return "", err
	}
	var text string
	err = msg.Decode(&text)
	return text, err
}

func TestSyncEndToEnd(t *testing.T) {
	srv := newTestServer(t)
	cacheDir := t.TempDir()

	conn, done := servePipe(srv)
	result, err := NewClient(newClientStore(t, cacheDir), testClientConfig()).Sync(context.Background(), conn)
	assert.Equal(t, nil, err)
	assert.Equal(t, nil, <-done)
	assert.Equal(t, "hi", result.WelcomeMessage)
	assert.Equal(t, 1, result.Advertised)
	assert.Equal(t, []resource.SessionID{1}, result.Fetched)

	data, err := ioutil.ReadFile(filepath.Join(cacheDir, "core", "door.bin"))
	assert.Equal(t, nil, err)
	assert.Equal(t, doorData, data)

	// a fresh process over the same cache finds everything up to date
	store := newClientStore(t, cacheDir)
	conn, done = servePipe(srv)
	result, err = NewClient(store, testClientConfig()).Sync(context.Background(), conn)
	assert.Equal(t, nil, err)
	assert.Equal(t, nil, <-done)
	assert.Equal(t, 0, len(result.Fetched))

	res := store.Resource(1)
	assert.NotEqual(t, (*resource.Resource)(nil), res)
	assert.Equal(t, "door", res.Name().ID)
	assert.Equal(t, resource.Hash(doorData), res.Version())
	assert.Equal(t, doorData, res.RawData())
}

func TestSyncTrustsVersionWithoutVerification(t *testing.T) {
	cacheDir := t.TempDir()
	manifest := []proto.ManifestEntry{{Package: "core", ID: "door", Version: 7, SessionID: 1}}

	conn, done := scripted(func(sc *proto.SyncConnection) error {
		sc.SendWelcome(true, "hi")
		sc.SendCheckResources(manifest)
		ids, err := recvWantList(sc)
		if err != nil {
			return err
		}
		if len(ids) != 1 || ids[0] != 1 {
			return errors.Errorf("want-list %v", ids)
		}
		sc.SendResource(1, resource.Unknown, doorData)
		goodbye, err := recvReadyAndGoodbye(sc)
		if err != nil {
			return err
		}
		if goodbye != "thx" {
			return errors.Errorf("goodbye %q", goodbye)
		}
		return nil
	})
	cfg := testClientConfig()
	cfg.VerifyVersions = false
	_, err := NewClient(newClientStore(t, cacheDir), cfg).Sync(context.Background(), conn)
	assert.Equal(t, nil, err)
	assert.Equal(t, nil, <-done)

	store := newClientStore(t, cacheDir)
	idx, ok := store.PackageIndex("core")
	assert.T(t, ok, "package core should exist")
	pkg, err := store.Package(idx)
	assert.Equal(t, nil, err)
	versions, err := pkg.Versions()
	assert.Equal(t, nil, err)
	assert.Equal(t, uint64(7), versions["door"])

	// second connection: nothing requested
	conn, done = scripted(func(sc *proto.SyncConnection) error {
		sc.SendWelcome(true, "hi")
		sc.SendCheckResources(manifest)
		ids, err := recvWantList(sc)
		if err != nil {
			return err
		}
		if len(ids) != 0 {
			return errors.Errorf("want-list %v", ids)
		}
		_, err = recvReadyAndGoodbye(sc)
		return err
	})
	_, err = NewClient(store, cfg).Sync(context.Background(), conn)
	assert.Equal(t, nil, err)
	assert.Equal(t, nil, <-done)
	assert.NotEqual(t, (*resource.Resource)(nil), store.ResourceByName(name.New("door", idx)))
}

func TestSyncRejected(t *testing.T) {
	conn, _ := scripted(func(sc *proto.SyncConnection) error {
		return sc.SendWelcome(false, "server full")
	})
	_, err := NewClient(newClientStore(t, t.TempDir()), testClientConfig()).Sync(context.Background(), conn)
	assert.Equal(t, ErrRejected, errors.Cause(err))
	assert.Tf(t, strings.Contains(err.Error(), "server full"), "message missing: %v", err)
}

func TestSyncVersionMismatch(t *testing.T) {
	cacheDir := t.TempDir()
	conn, _ := scripted(func(sc *proto.SyncConnection) error {
		sc.SendWelcome(true, "hi")
		sc.SendCheckResources([]proto.ManifestEntry{{Package: "core", ID: "door", Version: 7, SessionID: 1}})
		if _, err := recvWantList(sc); err != nil {
			return err
		}
		return sc.SendResource(1, resource.Unknown, doorData)
	})
	store := newClientStore(t, cacheDir)
	_, err := NewClient(store, testClientConfig()).Sync(context.Background(), conn)
	assert.Equal(t, ErrVersionMismatch, errors.Cause(err))
	assert.Equal(t, (*resource.Resource)(nil), store.Resource(1))
	_, statErr := os.Stat(filepath.Join(cacheDir, "core", "door.bin"))
	assert.T(t, os.IsNotExist(statErr), "mismatched resource must not be written")
}

func TestSyncUnrequestedResource(t *testing.T) {
	conn, _ := scripted(func(sc *proto.SyncConnection) error {
		sc.SendWelcome(true, "hi")
		sc.SendCheckResources([]proto.ManifestEntry{{Package: "core", ID: "door", Version: resource.Hash(doorData), SessionID: 1}})
		if _, err := recvWantList(sc); err != nil {
			return err
		}
		return sc.SendResource(5, resource.Unknown, doorData)
	})
	_, err := NewClient(newClientStore(t, t.TempDir()), testClientConfig()).Sync(context.Background(), conn)
	assert.Equal(t, ErrUnknownSessionID, errors.Cause(err))
}

func TestSyncDuplicateOfCachedSessionID(t *testing.T) {
	cacheDir := t.TempDir()
	seed := newClientStore(t, cacheDir)
	idx, err := seed.CreatePackage("core")
	assert.Equal(t, nil, err)
	assert.Equal(t, nil, seed.CreateResource(name.New("door", idx), resource.Unknown, resource.Hash(doorData), 1, doorData))

	conn, _ := scripted(func(sc *proto.SyncConnection) error {
		sc.SendWelcome(true, "hi")
		sc.SendCheckResources([]proto.ManifestEntry{
			{Package: "core", ID: "door", Version: resource.Hash(doorData), SessionID: 1},
			{Package: "core", ID: "window", Version: 3, SessionID: 1},
		})
		_, err := sc.Recv()
		return err
	})
	_, err = NewClient(newClientStore(t, cacheDir), testClientConfig()).Sync(context.Background(), conn)
	assert.Equal(t, ErrWrongMessage, errors.Cause(err))
}

func TestSyncWantListTooLarge(t *testing.T) {
	var manifest []proto.ManifestEntry
	for i := 0; i < 400; i++ {
		manifest = append(manifest, proto.ManifestEntry{Package: "core", ID: "r", Version: 1, SessionID: resource.SessionID(1000 + i)})
	}
	conn, _ := scripted(func(sc *proto.SyncConnection) error {
		sc.SendWelcome(true, "hi")
		sc.SendCheckResources(manifest)
		_, err := sc.Recv()
		return err
	})
	_, err := NewClient(newClientStore(t, t.TempDir()), testClientConfig()).Sync(context.Background(), conn)
	assert.Equal(t, proto.ErrMessageTooLarge, errors.Cause(err))
}

func TestSyncTimeout(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	cfg := testClientConfig()
	cfg.HandshakeTimeout = 50 * time.Millisecond
	_, err := NewClient(newClientStore(t, t.TempDir()), cfg).Sync(context.Background(), b)
	assert.Equal(t, context.DeadlineExceeded, errors.Cause(err))
}

func TestSyncCancel(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err := NewClient(newClientStore(t, t.TempDir()), testClientConfig()).Sync(ctx, b)
	assert.Equal(t, context.Canceled, errors.Cause(err))
}

// rawClient drives the client side by hand up to the want-list
func rawClient(t *testing.T, conn net.Conn) *proto.SyncConnection {
	sc := proto.NewClientSyncConnection(netutil.WrapConnection(conn), consts.DEFAULT_CLIENT_MESSAGE_LIMIT, 0)
	_, err := expect(sc, proto.MT_WELCOME)
	assert.Equal(t, nil, err)
	_, err = expect(sc, proto.MT_CHECK_RESOURCES)
	assert.Equal(t, nil, err)
	return sc
}

func TestServerDropsUnknownSessionID(t *testing.T) {
	srv := newTestServer(t)
	conn, done := servePipe(srv)
	sc := rawClient(t, conn)
	defer sc.Close()

	assert.Equal(t, nil, sc.SendRequestResources([]resource.SessionID{99}))
	assert.Equal(t, ErrUnknownSessionID, errors.Cause(<-done))
	_, err := sc.Recv()
	assert.T(t, err != nil, "connection should be dropped")
}

func TestServerDropsWrongMessage(t *testing.T) {
	srv := newTestServer(t)
	conn, done := servePipe(srv)
	sc := rawClient(t, conn)
	defer sc.Close()

	assert.Equal(t, nil, sc.SendReady())
	assert.Equal(t, ErrWrongMessage, errors.Cause(<-done))
}

func TestServerStreamsInRequestedOrder(t *testing.T) {
	dir := t.TempDir()
	assert.Equal(t, nil, os.MkdirAll(filepath.Join(dir, "core"), 0755))
	for _, f := range []string{"a.bin", "b.bin", "c.json"} {
		assert.Equal(t, nil, ioutil.WriteFile(filepath.Join(dir, "core", f), []byte(`{"f":"`+f+`"}`), 0644))
	}
	store := newClientStore(t, dir)
	assert.Equal(t, nil, store.LoadPackage(0))
	srv := NewServer(store.Freeze(), testServerConfig())

	conn, done := servePipe(srv)
	sc := rawClient(t, conn)
	defer sc.Close()
	assert.Equal(t, nil, sc.SendRequestResources([]resource.SessionID{3, 1}))
	for _, id := range []resource.SessionID{3, 1} {
		msg, err := expect(sc, proto.MT_RESOURCE)
		assert.Equal(t, nil, err)
		var body proto.ResourceBody
		assert.Equal(t, nil, msg.Decode(&body))
		assert.Equal(t, id, body.SessionID)
	}
	assert.Equal(t, nil, sc.SendReady())
	assert.Equal(t, nil, sc.SendClientGoodbye("thx"))
	assert.Equal(t, nil, <-done)
}

func waitInSession(t *testing.T, srv *Server) {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		srv.clientsLock.Lock()
		n := 0
		for sc := range srv.clients {
			if sc.inSession.Load() {
				n++
			}
		}
		srv.clientsLock.Unlock()
		if n > 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("client never entered session")
}

func TestServerSessionAndTerminate(t *testing.T) {
	srv := newTestServer(t)
	srv.Start()
	assert.Equal(t, true, gwvar.IsServing.Value())
	assert.Equal(t, int64(1), gwvar.Resources.Value())
	completed := gwvar.HandshakesCompleted.Value()
	conn, done := servePipe(srv)
	sc := rawClient(t, conn)
	defer sc.Close()

	assert.Equal(t, nil, sc.SendRequestResources(nil))
	assert.Equal(t, nil, sc.SendReady())
	assert.Equal(t, nil, sc.SendClientChat("me", "hello"))
	waitInSession(t, srv)
	assert.Equal(t, 1, srv.ClientCount())
	assert.Equal(t, completed+1, gwvar.HandshakesCompleted.Value())

	go srv.Terminate()
	msg, err := expect(sc, proto.MT_SERVER_GOODBYE)
	assert.Equal(t, nil, err)
	var text string
	assert.Equal(t, nil, msg.Decode(&text))
	assert.Equal(t, "closing", text)
	assert.Equal(t, nil, <-done)
	srv.Wait()
	assert.Equal(t, false, gwvar.IsServing.Value())

	// no more clients after terminate
	conn, done = servePipe(srv)
	_, err = NewClient(newClientStore(t, t.TempDir()), testClientConfig()).Sync(context.Background(), conn)
	assert.Equal(t, ErrRejected, errors.Cause(err))
	assert.Equal(t, ErrRejected, <-done)
}

func TestSyncOverTCP(t *testing.T) {
	srv := newTestServer(t)
	ln, err := netutil.ListenTCP("127.0.0.1:0")
	assert.Equal(t, nil, err)
	defer ln.Close()
	go netutil.Serve(ln, srv)

	conn, err := netutil.Dial("tcp", ln.Addr().String())
	assert.Equal(t, nil, err)
	cacheDir := t.TempDir()
	result, err := NewClient(newClientStore(t, cacheDir), testClientConfig()).Sync(context.Background(), conn)
	assert.Equal(t, nil, err)
	assert.Equal(t, []resource.SessionID{1}, result.Fetched)

	data, err := ioutil.ReadFile(filepath.Join(cacheDir, "core", "door.bin"))
	assert.Equal(t, nil, err)
	assert.Equal(t, doorData, data)
}
