package zmodem

import (
	"os"
	"time"
)

// FileOffer describes an inbound ZFILE announcement, passed to
// Handlers.OnAcceptFile so the embedder can decide where the file lands
// (or whether it lands at all) before any data arrives.
type FileOffer struct {
	Name    string
	Size    int64
	ModTime time.Time
	Mode    os.FileMode

	// Conversion is ZF0: ZCBIN, ZCNL, or ZCRESUM.
	Conversion byte
	// Management is ZF1's low 5 bits, one of the ZF1_ZM* constants.
	Management byte
	// SkipIfNotFound is ZF1_ZMSKNOLOC, already masked out of Management.
	SkipIfNotFound bool
	// Transport is ZF2, one of the ZT* constants (never acted on: no
	// compression/encryption/RLE support).
	Transport byte
	// Extended is ZF3.
	Extended byte
}

// FileToSend describes an outbound file queued with SetFiles/StartSending.
// Name is what the peer will see; LocalPath is what the configured FileIO
// opens to read the bytes.
type FileToSend struct {
	Name      string
	LocalPath string
	Size      int64
	ModTime   time.Time
	Mode      os.FileMode
}

// Handlers is the set of optional callbacks an embedder registers to drive
// and observe a transfer. A nil field is simply never called; the engine
// never blocks waiting for one to be set. Mirrors the shape of the
// teacher's Callbacks struct, but split along the push engine's actual
// event boundary rather than the blocking Sender/Receiver's.
type Handlers struct {
	// OnData is called with a chunk of outbound protocol bytes the
	// embedder must forward to the transport. This is the engine's only
	// output path.
	OnData func(data []byte)

	// OnProgress reports bytes transferred so far for the active file.
	OnProgress func(name string, transferred, total int64)

	// OnError reports a failure the embedder can't recover from by
	// itself (fail-limit exceeded, file I/O failure, or cancellation). The
	// session is no longer active by the time this fires, except when the
	// error reports a recovered handler panic, which leaves the session
	// running.
	OnError func(err error)

	// OnCompleteFile fires once a file has been fully sent or received.
	OnCompleteFile func(name string, size int64)

	// OnReceiveRequest fires when the engine sees the peer ask to send us
	// something (ZRQINIT), whatever the current mode. The embedder should
	// call StartReceiving in response.
	OnReceiveRequest func()

	// OnSendRequest fires when the engine, idle, sees the peer announce
	// it is ready to receive (an unsolicited ZRINIT). The embedder should
	// call StartSending with files, DenySending to decline, or ignore it.
	OnSendRequest func()

	// OnAcceptFile fires when a ZFILE offer has been fully parsed. The
	// embedder answers with AcceptFileAs or SkipFile; if it calls neither,
	// the engine sends no reply to the offer.
	OnAcceptFile func(offer FileOffer)

	// OnFinish fires when the batch session ends cleanly (ZFIN exchange
	// complete on either role).
	OnFinish func()

	// OnAttentionReceived fires when a ZSINIT attention string arrives.
	// The bytes are opaque; no escape-code expansion is performed.
	OnAttentionReceived func(attn []byte)

	// OnRemoteCommand fires when the peer sends ZCOMMAND. If nil, the
	// engine answers with ZCOMPL to decline automatically.
	OnRemoteCommand func(cmd string)

	// OnRemoteStderr fires when the peer sends ZSTDERR, carrying text the
	// remote command (see OnRemoteCommand) wrote to its standard error.
	OnRemoteStderr func(text string)
}

// dispatch recovers a panic inside a handler and reroutes it through
// OnError instead of letting it unwind into the decoder's call stack —
// a handler must not be able to corrupt engine state by throwing across
// the boundary.
func (e *Engine) dispatch(name string, fn func()) {
	if fn == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("handler panicked", "handler", name, "recovered", r)
			if e.handlers.OnError != nil {
				e.handlers.OnError(newError(ErrProtocol, "handler "+name+" panicked"))
			}
		}
	}()
	fn()
}

func (e *Engine) emitData(b []byte) {
	e.dispatch("OnData", func() {
		if e.handlers.OnData != nil {
			e.handlers.OnData(b)
		}
	})
}

func (e *Engine) emitProgress(name string, transferred, total int64) {
	e.dispatch("OnProgress", func() {
		if e.handlers.OnProgress != nil {
			e.handlers.OnProgress(name, transferred, total)
		}
	})
}

func (e *Engine) emitError(err *Error) {
	e.logger.Error("session error", "type", err.Type.String(), "message", err.Message)
	e.dispatch("OnError", func() {
		if e.handlers.OnError != nil {
			e.handlers.OnError(err)
		}
	})
}

func (e *Engine) emitCompleteFile(name string, size int64) {
	e.dispatch("OnCompleteFile", func() {
		if e.handlers.OnCompleteFile != nil {
			e.handlers.OnCompleteFile(name, size)
		}
	})
}

func (e *Engine) emitReceiveRequest() {
	e.dispatch("OnReceiveRequest", func() {
		if e.handlers.OnReceiveRequest != nil {
			e.handlers.OnReceiveRequest()
		}
	})
}

func (e *Engine) emitSendRequest() {
	e.dispatch("OnSendRequest", func() {
		if e.handlers.OnSendRequest != nil {
			e.handlers.OnSendRequest()
		}
	})
}

func (e *Engine) emitAcceptFile(offer FileOffer) {
	e.dispatch("OnAcceptFile", func() {
		if e.handlers.OnAcceptFile != nil {
			e.handlers.OnAcceptFile(offer)
		}
	})
}

func (e *Engine) emitFinish() {
	e.dispatch("OnFinish", func() {
		if e.handlers.OnFinish != nil {
			e.handlers.OnFinish()
		}
	})
}

func (e *Engine) emitAttention(attn []byte) {
	e.dispatch("OnAttentionReceived", func() {
		if e.handlers.OnAttentionReceived != nil {
			e.handlers.OnAttentionReceived(attn)
		}
	})
}

func (e *Engine) emitRemoteCommand(cmd string) {
	e.dispatch("OnRemoteCommand", func() {
		if e.handlers.OnRemoteCommand != nil {
			e.handlers.OnRemoteCommand(cmd)
		}
	})
}

func (e *Engine) emitRemoteStderr(text string) {
	e.dispatch("OnRemoteStderr", func() {
		if e.handlers.OnRemoteStderr != nil {
			e.handlers.OnRemoteStderr(text)
		}
	})
}
