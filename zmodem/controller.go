package zmodem

import (
	"bytes"
	"os"
	"strconv"
	"strings"
	"time"
)

// headerReady implements decoderSink. It is called synchronously by the
// decoder once a HEX or BIN/BIN32 header has passed CRC validation; this
// is the transfer controller's main dispatch point (spec §4.4).
func (e *Engine) headerReady(t FrameType, hdr Header, wide bool) {
	e.logger.Debug("recv header", "type", t.String(), "hdr", hdr, "wide", wide, "mode", e.mode.String())

	switch t {
	case ZRQINIT:
		e.emitReceiveRequest()

	case ZRINIT:
		flags := hdr[ZF0]
		e.allow32bit = flags&CANFC32 != 0
		switch e.mode {
		case ModeNone:
			e.emitSendRequest()
		case ModeSending:
			e.nextSend()
		case ModeSendingFin:
			e.closeSendFile()
			if len(e.sendQueue) > 0 {
				e.sendQueue = e.sendQueue[1:]
			}
			e.mode = ModeSending
			e.sendPos = 0
			e.nextSend()
		}

	case ZFILE:
		e.pendingSubpacket = ZFILE
		e.pendingHeader = hdr
		e.decoder.armSubpacket(wide)

	case ZSINIT:
		e.pendingSubpacket = ZSINIT
		e.decoder.armSubpacket(wide)

	case ZCOMMAND:
		e.pendingSubpacket = ZCOMMAND
		e.decoder.armSubpacket(wide)

	case ZSTDERR:
		e.pendingSubpacket = ZSTDERR
		e.decoder.armSubpacket(wide)

	case ZDATA:
		pos := hdr.position()
		if pos != e.recvPos {
			e.resyncOrAbort()
			return
		}
		e.pendingSubpacket = ZDATA
		e.decoder.armSubpacket(wide)

	case ZRPOS:
		e.sendPos = hdr.position()
		e.sendData()

	case ZEOF:
		pos := hdr.position()
		if e.mode == ModeReceiving {
			if pos == e.recvPos {
				e.finishReceivedFile()
			} else {
				e.resyncOrAbort()
			}
		}

	case ZACK:
		e.sendPos = hdr.position()
		if e.mode == ModeSending {
			e.sendData()
		}

	case ZFIN:
		switch e.mode {
		case ModeSending:
			e.emitData([]byte{'O', 'O'})
			e.mode = ModeNone
			e.emitFinish()
		case ModeReceiving:
			e.sendHex(ZFIN, Header{})
			e.mode = ModeNone
			e.emitFinish()
		}

	case ZCRC:
		e.answerZCRC()

	case ZABORT, ZCAN:
		e.abort(ErrCancelled, "peer sent "+t.String())

	case ZSKIP:
		e.logger.Info("peer skipped file")

	case ZNAK:
		e.logger.Debug("peer sent ZNAK")

	default:
		e.logger.Debug("unhandled header type", "type", t.String())
	}
}

// resyncOrAbort implements the fail-counter path shared by an
// out-of-position ZDATA/ZEOF and a data-subpacket CRC failure (spec §7
// kinds 3-4): bump the fail counter, ask the peer to resume at recv_pos if
// still under the limit, or give up.
func (e *Engine) resyncOrAbort() {
	e.failCount++
	if e.failCount > e.config.FailLimit {
		e.abortFrame(ErrFailLimit, "Fail count exceeded", e.decoder.lastHeaderType)
		return
	}
	e.sendHex(ZRPOS, positionHeader(e.recvPos))
}

func (e *Engine) finishReceivedFile() {
	name := e.recvOffer.Name
	size := e.recvPos
	e.closeRecvFile(true)
	e.emitCompleteFile(name, int64(size))
	e.sendReceiverRinit()
}

// subpacketReady implements decoderSink. It is called once a data
// subpacket's terminator and trailing CRC have been seen; ok reports
// whether the CRC validated. Which header armed the subpacket
// (pendingSubpacket) decides what the bytes mean.
func (e *Engine) subpacketReady(term byte, data []byte, ok bool) {
	switch e.pendingSubpacket {
	case ZDATA:
		e.handleDataSubpacket(term, data, ok)
	case ZFILE:
		if ok {
			e.handleFileSubpacket(data)
		}
	case ZSINIT:
		if ok {
			e.handleSinitSubpacket(data)
		}
	case ZCOMMAND:
		if ok {
			e.handleCommandSubpacket(data)
		}
	case ZSTDERR:
		if ok {
			e.handleStderrSubpacket(data)
		}
	}
}

func (e *Engine) handleDataSubpacket(term byte, data []byte, ok bool) {
	if !ok {
		e.resyncOrAbort()
		return
	}

	if e.recvFile != nil {
		if _, err := e.recvFile.Write(data); err != nil {
			e.abort(ErrIO, "writing received data: "+err.Error())
			return
		}
	}
	e.recvPos += uint32(len(data))
	e.failCount = 0
	e.emitProgress(e.recvOffer.Name, int64(e.recvPos), e.recvOffer.Size)

	switch term {
	case ZCRCE:
		// Frame complete, no ACK; nothing re-arms the decoder so it stays
		// in the stHunt state finishSubpacket left it in.
	case ZCRCG:
		e.decoder.armSubpacket(e.decoder.lastHeaderWide)
	case ZCRCQ:
		e.sendHex(ZACK, positionHeader(e.recvPos))
		e.decoder.armSubpacket(e.decoder.lastHeaderWide)
	case ZCRCW:
		e.sendHex(ZACK, positionHeader(e.recvPos))
	}
}

// handleFileSubpacket parses a ZFILE subpacket into a FileOffer: a
// NUL-terminated name followed by a space-separated options string
// (size mtime mode serial filesremaining bytesremaining), per spec §4.4.
func (e *Engine) handleFileSubpacket(data []byte) {
	nul := bytes.IndexByte(data, 0)
	var name string
	var rest string
	if nul < 0 {
		name = string(data)
	} else {
		name = string(data[:nul])
		rest = string(data[nul+1:])
	}
	rest = strings.TrimRight(rest, "\x00")
	fields := strings.Fields(rest)

	offer := FileOffer{Name: name, Mode: 0o644}
	if len(fields) > 0 {
		if n, err := strconv.ParseInt(fields[0], 10, 64); err == nil {
			offer.Size = n
		}
	}
	if len(fields) > 1 {
		if secs, err := strconv.ParseInt(fields[1], 8, 64); err == nil {
			offer.ModTime = time.Unix(secs, 0).UTC()
		}
	}
	if len(fields) > 2 {
		if mode, err := strconv.ParseUint(fields[2], 8, 32); err == nil {
			offer.Mode = os.FileMode(mode & 0o777)
		}
	}

	offer.Conversion = e.pendingHeader[ZF0]
	offer.Management = e.pendingHeader[ZF1] & ZF1_ZMMASK
	offer.SkipIfNotFound = e.pendingHeader[ZF1]&ZF1_ZMSKNOLOC != 0
	offer.Transport = e.pendingHeader[ZF2]
	offer.Extended = e.pendingHeader[ZF3]

	e.recvOffer = offer
	e.emitAcceptFile(offer)
}

func (e *Engine) handleSinitSubpacket(data []byte) {
	e.attnBuf = append([]byte{}, data...)
	e.emitAttention(e.attnBuf)
	e.sendHex(ZACK, Header{})
}

func (e *Engine) handleCommandSubpacket(data []byte) {
	cmd := string(data)
	if nul := bytes.IndexByte(data, 0); nul >= 0 {
		cmd = string(data[:nul])
	}
	if e.handlers.OnRemoteCommand == nil {
		e.sendHex(ZCOMPL, Header{})
		return
	}
	e.emitRemoteCommand(cmd)
}

func (e *Engine) handleStderrSubpacket(data []byte) {
	text := string(data)
	if nul := bytes.IndexByte(data, 0); nul >= 0 {
		text = string(data[:nul])
	}
	e.emitRemoteStderr(text)
}

// answerZCRC replies to a receiver's whole-file CRC request (used for
// resume validation) with the CRC32 of the file currently at the head of
// the send queue, matching the historical zsendfile/ZCRC exchange.
func (e *Engine) answerZCRC() {
	if e.mode != ModeSending || len(e.sendQueue) == 0 {
		e.sendBin(ZCRC, Header{})
		return
	}
	f, err := e.fileio.OpenRead(e.sendQueue[0].LocalPath)
	if err != nil {
		e.sendBin(ZCRC, Header{})
		return
	}
	defer f.Close()

	crc := uint32(crc32Seed)
	buf := make([]byte, 4096)
	for {
		n, rerr := f.Read(buf)
		for _, b := range buf[:n] {
			crc = updateCRC32(crc, b)
		}
		if rerr != nil {
			break
		}
	}
	e.sendBin(ZCRC, positionHeader(crc32Finalize(crc)))
}

