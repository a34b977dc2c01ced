package handshake

import (
	"context"
	"net"
	"time"

	"github.com/pkg/errors"
	"github.com/yondr/yondr/engine/consts"
	"github.com/yondr/yondr/engine/gwlog"
	"github.com/yondr/yondr/engine/name"
	"github.com/yondr/yondr/engine/netutil"
	"github.com/yondr/yondr/engine/opmon"
	"github.com/yondr/yondr/engine/proto"
	"github.com/yondr/yondr/engine/resource"
)

// ClientConfig holds the settings of the client role
type ClientConfig struct {
	VerifyVersions       bool
	GoodbyeMessage       string
	MaxClientMessageSize uint32
	MaxServerMessageSize uint32
	HandshakeTimeout     time.Duration
}

// SyncResult describes a finished handshake
type SyncResult struct {
	WelcomeMessage string
	// Advertised is the number of resources in the server manifest
	Advertised int
	// Fetched lists the session ids received from the server
	Fetched []resource.SessionID
}

// Client updates a local resource store from a server
type Client struct {
	store *resource.Store
	cfg   ClientConfig
}

// NewClient creates a Client writing into store
func NewClient(store *resource.Store, cfg ClientConfig) *Client {
	return &Client{store: store, cfg: cfg}
}

// Sync runs the client side handshake on conn and closes it.
// Cancelling ctx, or exceeding the handshake timeout, aborts the handshake with an error.
func (c *Client) Sync(ctx context.Context, conn net.Conn) (*SyncResult, error) {
	sc := proto.NewClientSyncConnection(netutil.WrapConnection(conn), c.cfg.MaxClientMessageSize, c.cfg.MaxServerMessageSize)
	defer sc.Close()

	if c.cfg.HandshakeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.HandshakeTimeout)
		defer cancel()
	}
	stop := watchContext(ctx, sc)
	defer stop()

	op := opmon.StartOperation("handshake.Client")
	defer op.Finish(consts.HANDSHAKE_WARN_THRESHOLD)

	res, err := c.sync(sc)
	return res, contextError(ctx, err)
}

func (c *Client) sync(sc *proto.SyncConnection) (*SyncResult, error) {
	msg, err := expect(sc, proto.MT_WELCOME)
	if err != nil {
		return nil, err
	}
	var welcome proto.Welcome
	if err := msg.Decode(&welcome); err != nil {
		return nil, err
	}
	if !welcome.Accepted {
		return nil, errors.Wrapf(ErrRejected, "server says: %s", welcome.Text)
	}
	gwlog.Infof("%s: welcome: %s", sc, welcome.Text)
	result := &SyncResult{WelcomeMessage: welcome.Text}

	msg, err = expect(sc, proto.MT_CHECK_RESOURCES)
	if err != nil {
		return nil, err
	}
	var manifest []proto.ManifestEntry
	if err := msg.Decode(&manifest); err != nil {
		return nil, err
	}
	result.Advertised = len(manifest)

	missing, wanted, err := c.diff(manifest)
	if err != nil {
		return nil, err
	}
	gwlog.Debugf("%s: %d of %d resources missing", sc, len(wanted), len(manifest))
	if err := sc.SendRequestResources(wanted); err != nil {
		return nil, err
	}

	for len(missing) > 0 {
		msg, err := expect(sc, proto.MT_RESOURCE)
		if err != nil {
			return nil, err
		}
		var body proto.ResourceBody
		if err := msg.Decode(&body); err != nil {
			return nil, err
		}
		entry, ok := missing[body.SessionID]
		if !ok {
			return nil, errors.Wrapf(ErrUnknownSessionID, "received session id %d", body.SessionID)
		}
		delete(missing, body.SessionID)

		if err := c.persist(entry, body); err != nil {
			return nil, err
		}
		result.Fetched = append(result.Fetched, body.SessionID)
	}

	if err := sc.SendReady(); err != nil {
		return nil, err
	}
	if err := sc.SendClientGoodbye(c.cfg.GoodbyeMessage); err != nil {
		return nil, err
	}
	return result, nil
}

// diff registers every advertised resource already cached with the right version,
// and returns the others keyed by session id, plus the want-list in manifest order
func (c *Client) diff(manifest []proto.ManifestEntry) (map[resource.SessionID]proto.ManifestEntry, []resource.SessionID, error) {
	missing := map[resource.SessionID]proto.ManifestEntry{}
	wanted := []resource.SessionID{}
	seen := map[resource.SessionID]struct{}{}
	for _, entry := range manifest {
		if _, dup := seen[entry.SessionID]; dup {
			return nil, nil, errors.Wrapf(ErrWrongMessage, "session id %d advertised twice", entry.SessionID)
		}
		seen[entry.SessionID] = struct{}{}
		if pkgIdx, ok := c.store.PackageIndex(entry.Package); ok {
			err := c.store.CheckResource(name.New(entry.ID, pkgIdx), entry.Version, entry.SessionID)
			if err == nil {
				continue
			}
			gwlog.Debugf("%s:%s needs update: %v", entry.Package, entry.ID, err)
		}
		missing[entry.SessionID] = entry
		wanted = append(wanted, entry.SessionID)
	}
	return missing, wanted, nil
}

func (c *Client) persist(entry proto.ManifestEntry, body proto.ResourceBody) error {
	if c.cfg.VerifyVersions {
		if h := resource.Hash(body.Data); h != entry.Version {
			return errors.Wrapf(ErrVersionMismatch, "%s:%s hashes to %d, advertised %d", entry.Package, entry.ID, h, entry.Version)
		}
	}
	pkgIdx, ok := c.store.PackageIndex(entry.Package)
	if !ok {
		var err error
		if pkgIdx, err = c.store.CreatePackage(entry.Package); err != nil {
			return err
		}
	}
	return c.store.CreateResource(name.New(entry.ID, pkgIdx), body.Type, entry.Version, body.SessionID, body.Data)
}
