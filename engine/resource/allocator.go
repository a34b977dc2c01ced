package resource

// SessionIDAllocator hands out increasing session ids starting at 1.
// Its next value is always max(next, last used id + 1), so ids supplied
// out of order by a peer never collide with ids assigned locally.
type SessionIDAllocator struct {
	next uint32
}

// NewSessionIDAllocator creates an allocator whose first id is 1
func NewSessionIDAllocator() *SessionIDAllocator {
	return &SessionIDAllocator{next: 1}
}

// Next returns the id the allocator would assign now, without consuming it
func (a *SessionIDAllocator) Next() (SessionID, error) {
	if a.next > uint32(MaxSessionID) {
		return 0, ErrSessionIDsExhausted
	}
	return SessionID(a.next), nil
}

// Used records that id was assigned
func (a *SessionIDAllocator) Used(id SessionID) {
	if a.next <= uint32(id) {
		a.next = uint32(id) + 1
	}
}
