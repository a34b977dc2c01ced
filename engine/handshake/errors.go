package handshake

import (
	"context"
	"io"

	"github.com/pkg/errors"
	"github.com/yondr/yondr/engine/proto"
)

var (
	// ErrWrongMessage means the peer sent a message the current step does not expect
	ErrWrongMessage = errors.New("wrong message")
	// ErrRejected means the server declined the client
	ErrRejected = errors.New("rejected")
	// ErrUnknownSessionID means a session id was not advertised or requested before
	ErrUnknownSessionID = errors.New("unknown session id")
	// ErrVersionMismatch means received bytes do not hash to the advertised version
	ErrVersionMismatch = errors.New("version mismatch")
)

// watchContext closes c once ctx is done, unblocking any pending read or write.
// Call the returned func to end the watch.
func watchContext(ctx context.Context, c io.Closer) (stop func()) {
	if ctx.Done() == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			c.Close()
		case <-done:
		}
	}()
	return func() { close(done) }
}

// contextError reports a cancelled or expired ctx in place of the I/O error it caused
func contextError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return errors.Wrapf(ctxErr, "handshake interrupted (%v)", err)
	}
	return err
}

// expect receives one message and checks its type
func expect(sc *proto.SyncConnection, mt proto.MsgType) (*proto.Message, error) {
	msg, err := sc.Recv()
	if err != nil {
		return nil, err
	}
	if msg.Type != mt {
		return nil, errors.Wrapf(ErrWrongMessage, "expect %s, got %s", mt, msg.Type)
	}
	return msg, nil
}
