// Package comm provides the ANT serial message framing over asynchronous
// bulk transfers.
package comm

// An ANT message is carried in a frame:
//
//   SYNC(0xA4) LEN MSG_ID DATA[LEN] CHECKSUM
//
// where CHECKSUM is the XOR of all preceding bytes, so a frame is valid
// iff the XOR of all its bytes is zero.
//
// The transport below the framing is modeled as a pair of endpoints which
// transfer a buffer and report the actual length (see InEndpoint and
// OutEndpoint). *gousb.InEndpoint and *gousb.OutEndpoint satisfy them
// directly. Reader and Writer each keep at most one transfer in flight
// and always wait for a cancelled transfer to complete before releasing it.
