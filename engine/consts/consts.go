package consts

import "time"

// Tunable Options
const (
	// For Underlying Networking
	// BUFFERED_READ_BUFFSIZE is the read buffer size for buffered connections
	BUFFERED_READ_BUFFSIZE = 16384
	// BUFFERED_WRITE_BUFFSIZE is the write buffer size for buffered connections
	BUFFERED_WRITE_BUFFSIZE = 16384

	// CLIENT_CONN_WRITE_BUFFER_SIZE is the socket write buffer size for server side client connections
	CLIENT_CONN_WRITE_BUFFER_SIZE = 1024 * 1024
	// CLIENT_CONN_READ_BUFFER_SIZE is the socket read buffer size for server side client connections
	CLIENT_CONN_READ_BUFFER_SIZE = 64 * 1024
	// CLIENT_CONN_SET_TCP_NO_DELAY = true sets client connections to TcpNoDelay
	CLIENT_CONN_SET_TCP_NO_DELAY = true

	// For Sync Protocol
	// DEFAULT_CLIENT_MESSAGE_LIMIT is the max payload size of a client to server message
	DEFAULT_CLIENT_MESSAGE_LIMIT = 1024
	// DEFAULT_SERVER_MESSAGE_LIMIT is the max payload size of a server to client message, 0 for unbounded
	DEFAULT_SERVER_MESSAGE_LIMIT = 0

	// RESTART_TCP_SERVER_INTERVAL is the wait before restarting a failed listener
	RESTART_TCP_SERVER_INTERVAL = 3 * time.Second

	// For Operation Monitor
	// OPMON_DUMP_INTERVAL is the interval to print opmon infos to output
	OPMON_DUMP_INTERVAL = 0
	// LOAD_PACKAGE_WARN_THRESHOLD warns when loading one package takes longer
	LOAD_PACKAGE_WARN_THRESHOLD = time.Second * 5
	// HANDSHAKE_WARN_THRESHOLD warns when a whole handshake takes longer
	HANDSHAKE_WARN_THRESHOLD = time.Second * 10
)

// Debug Options
const (
	// DEBUG_PACKETS prints packet send/recv debug logs
	DEBUG_PACKETS = false
	// DEBUG_RESOURCES prints every registered resource
	DEBUG_RESOURCES = false
	// DEBUG_CLIENTS prints client connection debug logs
	DEBUG_CLIENTS = true
)
