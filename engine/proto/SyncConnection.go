package proto

import (
	"fmt"
	"net"

	"github.com/pkg/errors"
	"github.com/xiaonanln/go-xnsyncutil/xnsyncutil"
	"github.com/yondr/yondr/engine/consts"
	"github.com/yondr/yondr/engine/gwlog"
	"github.com/yondr/yondr/engine/netutil"
	"github.com/yondr/yondr/engine/resource"
)

const msgTypeSize = 2

// Message is one received message: its type and undecoded body
type Message struct {
	Type MsgType
	body []byte
}

// Decode unpacks the message body into v
func (m *Message) Decode(v interface{}) error {
	if err := netutil.MSG_PACKER.UnpackMsg(m.body, v); err != nil {
		return errors.Wrapf(ErrDecode, "%s: %v", m.Type, err)
	}
	return nil
}

// SyncConnection is the resource synchronization protocol over a packet connection
type SyncConnection struct {
	packetConn *netutil.PacketConnection
	closed     xnsyncutil.AtomicBool
}

// NewSyncConnection creates a SyncConnection. Messages larger than sendLimit are
// refused before sending, those larger than recvLimit fail to receive; 0 means unbounded.
func NewSyncConnection(conn netutil.Connection, sendLimit, recvLimit uint32) *SyncConnection {
	return &SyncConnection{
		packetConn: netutil.NewPacketConnection(conn, sendLimit, recvLimit),
	}
}

// NewServerSyncConnection creates the server end: it sends server messages and receives client messages
func NewServerSyncConnection(conn netutil.Connection, maxClientMessage, maxServerMessage uint32) *SyncConnection {
	return NewSyncConnection(conn, maxServerMessage, maxClientMessage)
}

// NewClientSyncConnection creates the client end: it sends client messages and receives server messages
func NewClientSyncConnection(conn netutil.Connection, maxClientMessage, maxServerMessage uint32) *SyncConnection {
	return NewSyncConnection(conn, maxClientMessage, maxServerMessage)
}

// SendMsg sends a message of type mt, with body packed unless it is nil
func (sc *SyncConnection) SendMsg(mt MsgType, body interface{}) error {
	buf := make([]byte, msgTypeSize, 64)
	netutil.NETWORK_ENDIAN.PutUint16(buf, uint16(mt))
	if body != nil {
		var err error
		if buf, err = netutil.MSG_PACKER.PackMsg(body, buf); err != nil {
			return errors.Wrapf(err, "pack %s", mt)
		}
	}
	if consts.DEBUG_PACKETS {
		gwlog.Debugf("%s SEND %s: %d bytes", sc, mt, len(buf))
	}
	return translateLimit(sc.packetConn.SendPacket(buf))
}

// Recv blocks until one message is received
func (sc *SyncConnection) Recv() (*Message, error) {
	payload, err := sc.packetConn.RecvPacket()
	if err != nil {
		return nil, translateLimit(err)
	}
	if len(payload) < msgTypeSize {
		return nil, errors.Wrapf(ErrDecode, "payload of %d bytes has no message type", len(payload))
	}
	msg := &Message{
		Type: MsgType(netutil.NETWORK_ENDIAN.Uint16(payload)),
		body: payload[msgTypeSize:],
	}
	if consts.DEBUG_PACKETS {
		gwlog.Debugf("%s RECV %s: %d bytes", sc, msg.Type, len(payload))
	}
	return msg, nil
}

func translateLimit(err error) error {
	if err != nil && errors.Cause(err) == netutil.ErrPacketTooLarge {
		return errors.Wrap(ErrMessageTooLarge, err.Error())
	}
	return err
}

// SendWelcome sends MT_WELCOME message
func (sc *SyncConnection) SendWelcome(accepted bool, text string) error {
	return sc.SendMsg(MT_WELCOME, &Welcome{Accepted: accepted, Text: text})
}

// SendCheckResources sends MT_CHECK_RESOURCES message
func (sc *SyncConnection) SendCheckResources(manifest []ManifestEntry) error {
	if manifest == nil {
		manifest = []ManifestEntry{}
	}
	return sc.SendMsg(MT_CHECK_RESOURCES, manifest)
}

// SendResource sends MT_RESOURCE message
func (sc *SyncConnection) SendResource(id resource.SessionID, typ resource.ResourceType, data []byte) error {
	return sc.SendMsg(MT_RESOURCE, &ResourceBody{SessionID: id, Type: typ, Data: data})
}

// SendServerChat sends MT_SERVER_CHAT message
func (sc *SyncConnection) SendServerChat(text string) error {
	return sc.SendMsg(MT_SERVER_CHAT, &Chat{Text: text})
}

// SendServerGoodbye sends MT_SERVER_GOODBYE message
func (sc *SyncConnection) SendServerGoodbye(text string) error {
	return sc.SendMsg(MT_SERVER_GOODBYE, text)
}

// SendRequestResources sends MT_REQUEST_RESOURCES message
func (sc *SyncConnection) SendRequestResources(ids []resource.SessionID) error {
	if ids == nil {
		ids = []resource.SessionID{}
	}
	return sc.SendMsg(MT_REQUEST_RESOURCES, ids)
}

// SendReady sends MT_READY message
func (sc *SyncConnection) SendReady() error {
	return sc.SendMsg(MT_READY, nil)
}

// SendClientChat sends MT_CLIENT_CHAT message
func (sc *SyncConnection) SendClientChat(from, text string) error {
	return sc.SendMsg(MT_CLIENT_CHAT, &Chat{From: from, Text: text})
}

// SendClientGoodbye sends MT_CLIENT_GOODBYE message
func (sc *SyncConnection) SendClientGoodbye(text string) error {
	return sc.SendMsg(MT_CLIENT_GOODBYE, text)
}

// Close the connection, later calls do nothing
func (sc *SyncConnection) Close() error {
	if sc.closed.Load() {
		return nil
	}
	sc.closed.Store(true)
	return sc.packetConn.Close()
}

// IsClosed returns if the connection is closed
func (sc *SyncConnection) IsClosed() bool {
	return sc.closed.Load()
}

// RemoteAddr returns the remote address
func (sc *SyncConnection) RemoteAddr() net.Addr {
	return sc.packetConn.RemoteAddr()
}

// LocalAddr returns the local address
func (sc *SyncConnection) LocalAddr() net.Addr {
	return sc.packetConn.LocalAddr()
}

func (sc *SyncConnection) String() string {
	return fmt.Sprintf("SyncConnection<%s>", sc.packetConn)
}
