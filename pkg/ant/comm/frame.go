package comm

import "fmt"

// Sync is the first byte of every frame.
const Sync byte = 0xA4

// frameOverhead is SYNC, LEN, MSG_ID and CHECKSUM.
const frameOverhead = 4

// Frame is a complete, encoded ANT message.
type Frame []byte

// BuildFrame encodes a message with the checksum appended.
func BuildFrame(id MessageID, payload ...byte) Frame {
	f := make(Frame, len(payload)+frameOverhead)
	f[0], f[1], f[2] = Sync, byte(len(payload)), byte(id)
	copy(f[3:], payload)
	f[len(f)-1] = checksum(f[:len(f)-1])
	return f
}

// VerifyChecksum returns true if the XOR of all bytes is zero.
func VerifyChecksum(b []byte) bool {
	return checksum(b) == 0
}

func checksum(b []byte) (x byte) {
	for _, c := range b {
		x ^= c
	}
	return
}

// ID returns the message id.
func (f Frame) ID() MessageID {
	if len(f) < 3 {
		return 0
	}
	return MessageID(f[2])
}

// Data returns the payload without header and checksum.
func (f Frame) Data() []byte {
	if len(f) < frameOverhead {
		return nil
	}
	return f[3 : len(f)-1]
}

// Channel returns the channel number carried in the first payload byte.
// For burst transfers the upper 3 bits carry the sequence number and are
// masked out.
func (f Frame) Channel() (byte, bool) {
	data := f.Data()
	if len(data) == 0 {
		return 0, false
	}
	if f.ID() == BurstTransferData {
		return data[0] & 0x1f, true
	}
	return data[0], true
}

// String implements fmt.Stringer.
func (f Frame) String() string {
	return fmt.Sprintf("%s[% x]", f.ID(), f.Data())
}
