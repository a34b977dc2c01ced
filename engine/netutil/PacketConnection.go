package netutil

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"

	"github.com/pkg/errors"
	"github.com/yondr/yondr/engine/consts"
	"github.com/yondr/yondr/engine/gwlog"
)

const (
	// SIZE_FIELD_SIZE is the length of the payload size prefix
	SIZE_FIELD_SIZE = 4
	// MAX_PAYLOAD_LENGTH is the largest payload a frame can describe
	MAX_PAYLOAD_LENGTH = 0xFFFFFFFF
)

var (
	// NETWORK_ENDIAN is the byte order of frame headers
	NETWORK_ENDIAN = binary.LittleEndian

	// ErrPacketTooLarge means a payload exceeds the limit for its direction
	ErrPacketTooLarge = errors.New("packet too large")
)

// PacketConnection sends and receives length prefixed payloads over a stream connection.
// Each direction has its own payload limit, 0 meaning unbounded.
type PacketConnection struct {
	conn      Connection
	sendLimit uint32
	recvLimit uint32
	sendHead  [SIZE_FIELD_SIZE]byte
	recvHead  [SIZE_FIELD_SIZE]byte
}

// NewPacketConnection creates a packet connection based on a stream connection
func NewPacketConnection(conn Connection, sendLimit, recvLimit uint32) *PacketConnection {
	return &PacketConnection{
		conn:      conn,
		sendLimit: sendLimit,
		recvLimit: recvLimit,
	}
}

func exceeds(payloadLen uint64, limit uint32) bool {
	if payloadLen > MAX_PAYLOAD_LENGTH {
		return true
	}
	return limit > 0 && payloadLen > uint64(limit)
}

// SendPacket writes one frame and flushes it
func (pc *PacketConnection) SendPacket(payload []byte) error {
	if exceeds(uint64(len(payload)), pc.sendLimit) {
		return errors.Wrapf(ErrPacketTooLarge, "send %d bytes, limit %d", len(payload), pc.sendLimit)
	}
	if consts.DEBUG_PACKETS {
		gwlog.Debugf("%s SEND PACKET: %d bytes", pc, len(payload))
	}

	NETWORK_ENDIAN.PutUint32(pc.sendHead[:], uint32(len(payload)))
	if _, err := pc.conn.Write(pc.sendHead[:]); err != nil {
		return errors.Wrap(err, "write packet header")
	}
	if _, err := pc.conn.Write(payload); err != nil {
		return errors.Wrap(err, "write packet payload")
	}
	return errors.Wrap(pc.conn.Flush(), "flush packet")
}

// RecvPacket blocks until one whole frame is read
func (pc *PacketConnection) RecvPacket() ([]byte, error) {
	if _, err := io.ReadFull(pc.conn, pc.recvHead[:]); err != nil {
		return nil, errors.Wrap(err, "read packet header")
	}
	payloadLen := NETWORK_ENDIAN.Uint32(pc.recvHead[:])
	if exceeds(uint64(payloadLen), pc.recvLimit) {
		return nil, errors.Wrapf(ErrPacketTooLarge, "receive %d bytes, limit %d", payloadLen, pc.recvLimit)
	}

	payload := make([]byte, payloadLen)
	if _, err := io.ReadFull(pc.conn, payload); err != nil {
		return nil, errors.Wrap(err, "read packet payload")
	}
	if consts.DEBUG_PACKETS {
		gwlog.Debugf("%s RECV PACKET: %d bytes", pc, payloadLen)
	}
	return payload, nil
}

// Close the connection
func (pc *PacketConnection) Close() error {
	return pc.conn.Close()
}

// RemoteAddr return the remote address
func (pc *PacketConnection) RemoteAddr() net.Addr {
	return pc.conn.RemoteAddr()
}

// LocalAddr returns the local address
func (pc *PacketConnection) LocalAddr() net.Addr {
	return pc.conn.LocalAddr()
}

func (pc *PacketConnection) String() string {
	return fmt.Sprintf("[%s >>> %s]", pc.LocalAddr(), pc.RemoteAddr())
}
