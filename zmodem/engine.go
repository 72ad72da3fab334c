package zmodem

import (
	"log/slog"
)

// Mode is the transfer session state described in spec §3: an Engine is
// idle (None), actively pushing a file (Sending), waiting for the peer to
// ask for the next file after emitting ZEOF (SendingFin), or pulling a
// file (Receiving).
type Mode int

const (
	ModeNone Mode = iota
	ModeSending
	ModeSendingFin
	ModeReceiving
)

func (m Mode) String() string {
	switch m {
	case ModeNone:
		return "none"
	case ModeSending:
		return "sending"
	case ModeSendingFin:
		return "sending-fin"
	case ModeReceiving:
		return "receiving"
	default:
		return "unknown"
	}
}

// Engine is the transport-agnostic ZMODEM engine: a byte-driven frame
// decoder plus the transfer-control state machine that drives a file send
// or receive. Feed it inbound bytes with ReceiveByte; it writes outbound
// bytes through Handlers.OnData. It touches no transport of its own.
//
// An Engine is not safe for concurrent use; every method, including
// ReceiveByte, must be called from the same goroutine (spec §5).
type Engine struct {
	config   Config
	handlers Handlers
	fileio   FileIO
	logger   *slog.Logger

	decoder *decoder
	mode    Mode

	allow32bit bool // peer advertised CANFC32 on ZRINIT

	// Receive side.
	recvPos    uint32
	recvFile   WriteHandle
	recvPath   string
	recvOffer  FileOffer
	failCount  int
	attnBuf    []byte

	// Send side.
	sendQueue []FileToSend
	sendPos   uint32
	sendFile  ReadHandle

	// pendingSubpacket records which header type armed the decoder for
	// subpacket collection, since ZFILE, ZDATA, ZSINIT, and ZCOMMAND all
	// hand their payload to process_packet through the same callback but
	// need very different handling once it arrives (spec §9 open
	// question: preserve this via a dedicated field, not a buffer replay).
	pendingSubpacket FrameType
	// pendingHeader holds the four header bytes of whichever frame armed
	// pendingSubpacket, since a ZFILE's ZF0-ZF3 carry the
	// conversion/management/transport options that only make sense once
	// the matching subpacket's filename has also arrived.
	pendingHeader Header
}

// NewEngine constructs an Engine. A zero Config is not usable directly;
// pass DefaultConfig() or a Config built from it. A nil FileIO defaults to
// DefaultFileIO{}. The engine logs through slog.Default() until SetLogger
// replaces it.
func NewEngine(config Config, handlers Handlers, fileio FileIO) *Engine {
	if fileio == nil {
		fileio = DefaultFileIO{}
	}
	e := &Engine{
		config:   config,
		handlers: handlers,
		fileio:   fileio,
		logger:   newLogger(nil),
	}
	e.decoder = newDecoder(e)
	return e
}

// SetLogger overrides the engine's logger, e.g. with NewDiscardLogger() or
// a *slog.Logger scoped by an embedder's own logging setup.
func (e *Engine) SetLogger(logger *slog.Logger) {
	e.logger = newLogger(logger)
}

// Mode reports the engine's current transfer session state.
func (e *Engine) Mode() Mode { return e.mode }

// SetFiles populates the send queue from absolute paths, stat-ing each
// file at call time for its size and modification time. Existing queue
// contents are replaced.
func (e *Engine) SetFiles(paths []string) error {
	queue := make([]FileToSend, 0, len(paths))
	for _, p := range paths {
		size, mode, modTime, err := e.fileio.Stat(p)
		if err != nil {
			return err
		}
		queue = append(queue, FileToSend{
			Name:      baseName(p),
			LocalPath: p,
			Size:      size,
			ModTime:   modTime,
			Mode:      mode,
		})
	}
	e.sendQueue = queue
	return nil
}

// StartReceiving begins a receive session: requires Mode() == ModeNone,
// enters ModeReceiving, and emits a ZRINIT header inviting the peer to
// send.
func (e *Engine) StartReceiving() error {
	if e.mode != ModeNone {
		return newError(ErrProtocol, "StartReceiving called while a session is active")
	}
	e.mode = ModeReceiving
	e.failCount = 0
	e.recvPos = 0
	e.sendReceiverRinit()
	return nil
}

// StartSending begins a send session: requires Mode() == ModeNone and a
// non-empty queue (populated by SetFiles), enters ModeSending, and offers
// the first queued file.
func (e *Engine) StartSending() error {
	if e.mode != ModeNone {
		return newError(ErrProtocol, "StartSending called while a session is active")
	}
	if len(e.sendQueue) == 0 {
		return newError(ErrProtocol, "StartSending called with an empty queue")
	}
	e.mode = ModeSending
	e.sendPos = 0
	e.nextSend()
	return nil
}

// AcceptFileAs accepts the most recently offered file (via
// Handlers.OnAcceptFile) and directs its bytes to path. Valid only in
// ModeReceiving, after OnAcceptFile has fired. Opens the output file,
// zeros recv_pos, and emits ZRPOS(0) to start the data stream.
func (e *Engine) AcceptFileAs(path string) error {
	if e.mode != ModeReceiving {
		return newError(ErrProtocol, "AcceptFileAs called outside a receive session")
	}
	f, err := e.fileio.OpenWrite(path, e.recvOffer.Size, e.recvOffer.Mode, e.recvOffer.ModTime)
	if err != nil {
		e.abort(ErrIO, "opening output file: "+err.Error())
		return err
	}
	e.recvFile = f
	e.recvPath = path
	e.recvPos = 0
	e.failCount = 0
	e.sendHex(ZRPOS, positionHeader(0))
	return nil
}

// SkipFile declines the most recently offered file. Valid only in
// ModeReceiving.
func (e *Engine) SkipFile() error {
	if e.mode != ModeReceiving {
		return newError(ErrProtocol, "SkipFile called outside a receive session")
	}
	e.sendHex(ZSKIP, Header{})
	return nil
}

// DenySending declines an inbound send request (a ZRINIT the engine saw
// while idle). Valid only in ModeNone. Unlike the historical
// implementation this is grounded on (spec §9 open question), the mode
// stays None throughout rather than bouncing through Sending, since there
// is nothing to send.
func (e *Engine) DenySending() error {
	if e.mode != ModeNone {
		return newError(ErrProtocol, "DenySending called while a session is active")
	}
	e.sendHex(ZFIN, Header{})
	return nil
}

// ReceiveByte feeds one inbound byte to the frame decoder. Complete
// headers and data subpackets are dispatched synchronously to the
// transfer controller before this call returns.
func (e *Engine) ReceiveByte(b byte) {
	if e.decoder.receiveByte(b) {
		e.abort(ErrCancelled, "peer sent CAN x5")
	}
}

// sendReceiverRinit emits the ZRINIT a receiver uses both to open a
// session and to request the next file after completing one.
func (e *Engine) sendReceiverRinit() {
	// spec.md §8 scenario 1 pins this to 0x23 (CANFDX|CANOVIO|CANFC32):
	// full duplex, can overlap I/O, and can use 32-bit CRC.
	flags := byte(CANFDX | CANOVIO | CANFC32)
	if e.config.EscapeControl {
		flags |= ESCCTL
	}
	e.sendHex(ZRINIT, Header{ZP0: 0, ZP1: 0, ZP2: 0, ZP3: flags})
}

// sendHex emits a HEX-encoded header — the only encoding a receiver-role
// emission ever uses, per spec §6.
func (e *Engine) sendHex(t FrameType, hdr Header) {
	e.logger.Debug("send hex header", "type", t.String(), "hdr", hdr)
	e.emitData(encodeHexHeader(t, hdr))
}

// sendBin emits a BIN or BIN32 header depending on config and the peer's
// advertised capability — the encoding a sender-role emission uses for
// everything except ZFIN's echo response.
func (e *Engine) sendBin(t FrameType, hdr Header) {
	wide := e.config.Use32BitCRC && e.allow32bit
	e.logger.Debug("send bin header", "type", t.String(), "hdr", hdr, "wide", wide)
	e.emitData(encodeBinHeader(t, hdr, wide, e.config.EscapeControl, e.config.ZNulls))
}

// sendSubpacket emits a data subpacket using the same width decision as
// sendBin, so a ZFILE/ZDATA header and its subpacket always agree.
func (e *Engine) sendSubpacket(payload []byte, term byte) {
	wide := e.config.Use32BitCRC && e.allow32bit
	e.emitData(encodeDataSubpacket(payload, term, wide, e.config.EscapeControl))
}

// abort tears the session down: resets the decoder, closes any open file
// handles, returns to ModeNone, and raises OnError.
func (e *Engine) abort(t ErrorType, msg string) {
	e.abortErr(newError(t, msg))
}

// abortFrame is abort with the failing frame type attached to the raised
// Error, for the cases where naming it helps an embedder's logs (e.g. a
// fail-limit abort during ZDATA resync).
func (e *Engine) abortFrame(t ErrorType, msg string, ft FrameType) {
	e.abortErr(newFrameError(t, msg, ft))
}

func (e *Engine) abortErr(err *Error) {
	if err.Type != ErrCancelled {
		e.emitData(cancelSequence(e.config.Attention))
	}
	e.decoder.reset()
	e.closeSendFile()
	e.closeRecvFile(false)
	e.mode = ModeNone
	e.failCount = 0
	e.emitError(err)
}

// cancelSequence builds the classic ZMODEM "canit" banner: five CAN bytes
// to knock the peer out of frame-hunting, eight backspaces to erase
// whatever garbage a dumb terminal echoed, then the configured attention
// string. Skipped when the peer already cancelled us (ErrCancelled) since
// there is nothing left worth interrupting.
func cancelSequence(attn []byte) []byte {
	buf := make([]byte, 0, 5+8+len(attn))
	for i := 0; i < 5; i++ {
		buf = append(buf, CAN)
	}
	for i := 0; i < 8; i++ {
		buf = append(buf, 0x08)
	}
	buf = append(buf, attn...)
	return buf
}

func (e *Engine) closeSendFile() {
	if e.sendFile != nil {
		_ = e.sendFile.Close()
		e.sendFile = nil
	}
}

// closeRecvFile closes the in-progress receive file. Callers pass true on
// success and false on abort, but the flag is not consulted: Close runs
// the same way in both cases, including any mtime restore the handle
// performs.
func (e *Engine) closeRecvFile(_ bool) {
	if e.recvFile != nil {
		_ = e.recvFile.Close()
		e.recvFile = nil
	}
}

func baseName(path string) string {
	// Avoid importing path/filepath solely for Base's OS-specific
	// separator handling; ZMODEM filenames are always forward-slash or
	// bare, matching the wire format both peers exchange.
	i := len(path) - 1
	for i >= 0 && path[i] != '/' && path[i] != '\\' {
		i--
	}
	return path[i+1:]
}
