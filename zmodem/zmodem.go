// Package zmodem implements the core of the ZMODEM file transfer protocol:
// a byte-driven frame decoder, a frame encoder, and a transfer-control state
// machine that together drive a file send or receive over an opaque,
// asynchronous byte channel.
//
// The engine never touches a transport directly. The embedder feeds inbound
// bytes one at a time to Engine.ReceiveByte and receives outbound bytes
// through the Handlers.OnData callback; wiring those to a serial port, a
// socket, or an SSH pipe is the embedder's job (see the zssh package and
// cmd/zsend, cmd/zrecv for reference bindings).
package zmodem

// Frame format indicators.
const (
	ZPAD   = '*'        // pad character that begins every frame
	ZDLE   = 0x18        // ZMODEM escape character (Ctrl-X)
	ZDLEE  = ZDLE ^ 0x40 // escaped ZDLE as transmitted
	ZBIN   = 'A'         // binary frame, 16-bit CRC
	ZHEX   = 'B'         // hex-encoded frame, 16-bit CRC
	ZBIN32 = 'C'         // binary frame, 32-bit CRC
)

// FrameType names the semantic role of a decoded or emitted header. It is a
// 5-bit value on the wire; the type itself is not a state, so it stays a
// plain int constant rather than the tagged enum used for decoder states.
type FrameType int

const (
	ZRQINIT FrameType = iota // request receive init
	ZRINIT                   // receive init
	ZSINIT                   // send-init (attention string)
	ZACK                     // ack to above
	ZFILE                    // filename/info from sender
	ZSKIP                    // to sender: skip this file
	ZNAK                     // last header garbled
	ZABORT                   // abort batch transfer
	ZFIN                     // finish session
	ZRPOS                    // resume data transmission at this position
	ZDATA                    // data packet(s) follow
	ZEOF                     // end of file
	ZFERR                    // fatal read/write error
	ZCRC                     // file CRC request/response
	ZCHALLENGE               // receiver's challenge
	ZCOMPL                   // request complete
	ZCAN                     // other end cancelled (CAN x5)
	ZFREECNT                 // request free disk space
	ZCOMMAND                 // command from sending program
	ZSTDERR                  // stderr output follows
)

var frameTypeNames = [...]string{
	"ZRQINIT", "ZRINIT", "ZSINIT", "ZACK", "ZFILE", "ZSKIP", "ZNAK",
	"ZABORT", "ZFIN", "ZRPOS", "ZDATA", "ZEOF", "ZFERR", "ZCRC",
	"ZCHALLENGE", "ZCOMPL", "ZCAN", "ZFREECNT", "ZCOMMAND", "ZSTDERR",
}

// String implements fmt.Stringer, returning "UNKNOWN" for out-of-range
// values instead of panicking on array indexing.
func (t FrameType) String() string {
	if t < 0 || int(t) >= len(frameTypeNames) {
		return "UNKNOWN"
	}
	return frameTypeNames[t]
}

// Header byte positions. Position and flags share the same four bytes with
// opposite byte orders depending on what the frame type carries.
const (
	ZF0 = 3 // flags, first byte
	ZF1 = 2
	ZF2 = 1
	ZF3 = 0

	ZP0 = 0 // position, low order byte
	ZP1 = 1
	ZP2 = 2
	ZP3 = 3 // position, high order byte
)

// ZRINIT flags byte (ZF0) bits.
const (
	CANFDX  = 0x01 // receiver can send and receive full duplex
	CANOVIO = 0x02 // receiver can receive data during disk I/O
	CANBRK  = 0x04 // receiver can send a break signal
	CANCRY  = 0x08 // receiver can decrypt
	CANLZW  = 0x10 // receiver can uncompress
	CANFC32 = 0x20 // receiver can use 32-bit frame check
	ESCCTL  = 0x40 // receiver expects control chars escaped
	ESC8    = 0x80 // receiver expects 8th bit escaped
)

// ZSINIT flags byte (ZF0) bits.
const (
	TESCCTL = 0x40 // transmitter expects control chars escaped
	TESC8   = 0x80 // transmitter expects 8th bit escaped
)

// ZATTNLEN is the maximum length of a ZSINIT attention string.
const ZATTNLEN = 32

// ZFILE conversion options, one of these in ZF0.
const (
	ZCBIN   = 1 // binary transfer, inhibit conversion
	ZCNL    = 2 // convert NL to local end-of-line convention
	ZCRESUM = 3 // resume interrupted file transfer
)

// ZFILE management options (ZF1), ORed with ZF1_ZMSKNOLOC.
const (
	ZF1_ZMSKNOLOC = 0x80 // skip file if not present at receiver
	ZF1_ZMMASK    = 0x1f
	ZF1_ZMNEWL    = 1
	ZF1_ZMCRC     = 2
	ZF1_ZMAPND    = 3
	ZF1_ZMCLOB    = 4
	ZF1_ZMNEW     = 5
	ZF1_ZMDIFF    = 6
	ZF1_ZMPROT    = 7
	ZF1_ZMCHNG    = 8
)

// ZFILE transport options (ZF2).
const (
	ZTLZW   = 1
	ZTCRYPT = 2
	ZTRLE   = 3
)

// ZFILE extended options (ZF3).
const ZXSPARS = 64

// Subpacket terminators: the byte following ZDLE that ends a data
// subpacket.
const (
	ZCRCE = 'h' // end of frame, no ACK expected, header follows
	ZCRCG = 'i' // frame continues, no ACK
	ZCRCQ = 'j' // frame continues, ACK expected
	ZCRCW = 'k' // end of frame, ACK expected
	ZRUB0 = 'l' // translate to rubout 0177
	ZRUB1 = 'm' // translate to rubout 0377
)

// CAN is Ward Christensen's cancel character; five in a row aborts a
// session outright.
const CAN = 0x18

// XON/XOFF flow control bytes, dropped by the unescaper when they arrive
// without a preceding ZDLE.
const (
	XON  = 0x11
	XOFF = 0x13
)
