package netutil

import (
	"bytes"

	"github.com/vmihailenco/msgpack"
)

// MessagePackMsgPacker packs and unpacks message in MessagePack format
type MessagePackMsgPacker struct{}

// PackMsg appends msg in MessagePack format to buf
func (mp MessagePackMsgPacker) PackMsg(msg interface{}, buf []byte) ([]byte, error) {
	buffer := bytes.NewBuffer(buf)
	if err := msgpack.NewEncoder(buffer).Encode(msg); err != nil {
		return buf, err
	}
	return buffer.Bytes(), nil
}

// UnpackMsg unpacks bytes in MessagePack format to msg, rejecting trailing garbage
func (mp MessagePackMsgPacker) UnpackMsg(data []byte, msg interface{}) error {
	reader := bytes.NewReader(data)
	if err := msgpack.NewDecoder(reader).Decode(msg); err != nil {
		return err
	}
	if reader.Len() != 0 {
		return errTrailingBytes
	}
	return nil
}
