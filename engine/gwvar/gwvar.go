// Package gwvar publishes server state through expvar, visible at /debug/vars of the http server.
package gwvar

import "expvar"

// Bool is a boolean expvar
type Bool struct {
	val *expvar.Int
}

// NewBool publishes a boolean var
func NewBool(name string) *Bool {
	return &Bool{
		val: expvar.NewInt(name),
	}
}

// Value returns the current value
func (b *Bool) Value() bool {
	return b.val.Value() > 0
}

// Set sets the value
func (b *Bool) Set(v bool) {
	if v {
		b.val.Set(1)
	} else {
		b.val.Set(0)
	}
}

var (
	// IsServing is true while the server accepts clients
	IsServing = NewBool("yondr.IsServing")
	// Resources is the number of resources the server advertises
	Resources = expvar.NewInt("yondr.Resources")
	// ConnectedClients is the number of open client connections
	ConnectedClients = expvar.NewInt("yondr.ConnectedClients")
	// HandshakesCompleted counts clients that reached Ready
	HandshakesCompleted = expvar.NewInt("yondr.HandshakesCompleted")
	// HandshakesFailed counts connections dropped before Ready
	HandshakesFailed = expvar.NewInt("yondr.HandshakesFailed")
)
