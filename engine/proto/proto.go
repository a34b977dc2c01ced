package proto

import (
	"github.com/pkg/errors"
	"github.com/yondr/yondr/engine/resource"
)

// MsgType is the type of message types
type MsgType uint16

// Message types sent by the server
const (
	// MT_INVALID is the invalid message type
	MT_INVALID = iota
	// MT_WELCOME accepts or rejects a client
	MT_WELCOME
	// MT_CHECK_RESOURCES advertises the resource manifest
	MT_CHECK_RESOURCES
	// MT_RESOURCE carries one resource body
	MT_RESOURCE
	// MT_SERVER_CHAT is a chat line from the server
	MT_SERVER_CHAT
	// MT_SERVER_GOODBYE closes the session from the server side
	MT_SERVER_GOODBYE
)

// Message types sent by the client
const (
	// MT_REQUEST_RESOURCES is the client's want-list
	MT_REQUEST_RESOURCES = 1001 + iota
	// MT_READY tells the server the client cache is up to date
	MT_READY
	// MT_CLIENT_CHAT is a chat line from the client
	MT_CLIENT_CHAT
	// MT_CLIENT_GOODBYE closes the session from the client side
	MT_CLIENT_GOODBYE
)

var (
	// ErrDecode means a payload could not be decoded as the expected message
	ErrDecode = errors.New("malformed message")
	// ErrMessageTooLarge means a message exceeds the size limit of its direction
	ErrMessageTooLarge = errors.New("message too large")
)

var msgTypeNames = map[MsgType]string{
	MT_INVALID:           "INVALID",
	MT_WELCOME:           "WELCOME",
	MT_CHECK_RESOURCES:   "CHECK_RESOURCES",
	MT_RESOURCE:          "RESOURCE",
	MT_SERVER_CHAT:       "SERVER_CHAT",
	MT_SERVER_GOODBYE:    "SERVER_GOODBYE",
	MT_REQUEST_RESOURCES: "REQUEST_RESOURCES",
	MT_READY:             "READY",
	MT_CLIENT_CHAT:       "CLIENT_CHAT",
	MT_CLIENT_GOODBYE:    "CLIENT_GOODBYE",
}

func (mt MsgType) String() string {
	if s, ok := msgTypeNames[mt]; ok {
		return s
	}
	return "UNKNOWN"
}

// Welcome is the first message of every connection
type Welcome struct {
	_msgpack struct{} `msgpack:",asArray"`
	Accepted bool
	Text     string
}

// ManifestEntry advertises one resource of the server
type ManifestEntry struct {
	_msgpack  struct{} `msgpack:",asArray"`
	Package   string
	ID        string
	Version   uint64
	SessionID resource.SessionID
}

// ResourceBody carries the content of one requested resource
type ResourceBody struct {
	_msgpack  struct{} `msgpack:",asArray"`
	SessionID resource.SessionID
	Type      resource.ResourceType
	Data      []byte
}

// Chat is a chat line, From is empty for server chat
type Chat struct {
	_msgpack struct{} `msgpack:",asArray"`
	From     string
	Text     string
}

// ManifestOf converts a snapshot manifest to its wire form
func ManifestOf(snap *resource.Snapshot) []ManifestEntry {
	entries := snap.Manifest()
	manifest := make([]ManifestEntry, len(entries))
	for i, e := range entries {
		manifest[i] = ManifestEntry{Package: e.Package, ID: e.ID, Version: e.Version, SessionID: e.SessionID}
	}
	return manifest
}
