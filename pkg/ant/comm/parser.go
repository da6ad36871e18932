package comm

// Accumulator collects bytes received from the transport and splits them
// into frames.
type Accumulator struct {
	buf []byte
}

// Append adds received bytes.
func (a *Accumulator) Append(b []byte) {
	a.buf = append(a.buf, b...)
}

// Len returns the number of buffered bytes.
func (a *Accumulator) Len() int {
	return len(a.buf)
}

// Bytes returns the buffered bytes. The returned slice must not be modified.
func (a *Accumulator) Bytes() []byte {
	return a.buf
}

// Reset drops all buffered bytes.
func (a *Accumulator) Reset() {
	a.buf = a.buf[:0]
}

// TryParseOne extracts the first frame. It returns nil with no error when
// more data is needed. Bytes before the first SYNC are discarded. A
// complete candidate frame with an invalid checksum is consumed and
// ErrBadChecksum is returned.
func (a *Accumulator) TryParseOne() (Frame, error) {
	start := 0
	for start < len(a.buf) && a.buf[start] != Sync {
		start++
	}
	if start > 0 {
		a.buf = append(a.buf[:0], a.buf[start:]...)
	}
	if len(a.buf) < frameOverhead {
		return nil, nil
	}
	total := int(a.buf[1]) + frameOverhead
	if len(a.buf) < total {
		return nil, nil
	}
	f := make(Frame, total)
	copy(f, a.buf)
	a.buf = append(a.buf[:0], a.buf[total:]...)
	if !VerifyChecksum(f) {
		return nil, ErrBadChecksum
	}
	return f, nil
}
