package netutil

import (
	"testing"

	"github.com/bmizerany/assert"
)

type testMsg struct {
	ID        string
	F1        float64
	ListField []uint16
	MapField  map[string]uint64
}

func BenchmarkMessagePackMsgPacker(b *testing.B) {
	packer := MessagePackMsgPacker{}
	msg := testMsg{
		ID:        "abc",
		F1:        0.123124234,
		ListField: []uint16{1, 2, 3},
		MapField:  map[string]uint64{},
	}
	for i := 0; i < 100; i++ {
		msg.MapField[string(rune('a'+i%26))+string(rune('a'+i/26))] = uint64(i) << 40
	}

	var totalSize int64
	for i := 0; i < b.N; i++ {
		buf, _ := packer.PackMsg(msg, make([]byte, 0, 100))
		totalSize += int64(len(buf))

		var restoreMsg testMsg
		_ = packer.UnpackMsg(buf, &restoreMsg)
	}
	b.Logf("average size: %d", totalSize/int64(b.N))
}

func TestMessagePackMsgPacker(t *testing.T) {
	msg := testMsg{
		ID:        "door",
		F1:        1.5,
		ListField: []uint16{1, 65535},
		MapField:  map[string]uint64{"big": 13305986590338460966},
	}
	buf, err := MessagePackMsgPacker{}.PackMsg(msg, []byte{0xAA})
	assert.Equal(t, nil, err)
	assert.Equal(t, byte(0xAA), buf[0])

	var out testMsg
	assert.Equal(t, nil, MessagePackMsgPacker{}.UnpackMsg(buf[1:], &out))
	assert.Equal(t, msg, out)
}

func TestMessagePackMsgPackerTrailingBytes(t *testing.T) {
	buf, _ := MSG_PACKER.PackMsg(uint16(7), nil)
	buf = append(buf, 0x01)
	var out uint16
	assert.Equal(t, errTrailingBytes, MSG_PACKER.UnpackMsg(buf, &out))
}
