package zmodem

// decodeState tags the frame decoder's current position in the byte
// stream. The numbering in spec commentary throughout this file (0, 1, 2,
// 3, 4, 20, 21, 30, 31, 32) cross-references the classic lrzsz zm.c state
// numbers for anyone diffing against that lineage; the type itself is a
// proper Go enum, not a bare int, and the in-progress header/payload bytes
// live in dedicated decoder fields rather than being packed into the state
// value.
type decodeState int

const (
	stHunt        decodeState = iota // 0: waiting for ZPAD
	stSawPad                         // 1: one ZPAD seen
	stSawPadPad                      // 2: two ZPAD seen
	stSawPadZdle                     // 3/4: ZPAD ZPAD ZDLE or ZPAD ZDLE seen, expecting ZHEX, ZBIN or ZBIN32
	stHexHigh                        // 20: collecting a hex header, expecting a high nibble
	stHexLow                         // 21: collecting a hex header, expecting a low nibble
	stBinHeader                      // 30: collecting a BIN/BIN32 header
	stSubpacket                      // 31: collecting a data subpacket
	stSubpacketCRC                   // 32: collecting a subpacket's trailing CRC
)

// decoderSink receives fully-decoded frames from the decoder. Header CRC
// failures never reach the sink — they are silently dropped per spec — but
// subpacket CRC failures do, since the transfer controller must resync.
type decoderSink interface {
	headerReady(t FrameType, hdr Header, wide bool)
	subpacketReady(term byte, data []byte, ok bool)
}

// decoder is the byte-driven ZMODEM frame decoder described in component
// design 4.2. It is fed one byte at a time via receiveByte and holds all of
// its in-progress state internally; the sink is invoked synchronously
// whenever a complete, validated unit is available.
type decoder struct {
	sink decoderSink

	state decodeState

	// Hex header assembly (states stHexHigh/stHexLow).
	hexBuf  []byte
	hexHigh int

	// BIN/BIN32 header assembly (state stBinHeader) and subpacket
	// assembly (states stSubpacket/stSubpacketCRC) share the ZDLE
	// unescape machinery.
	wide          bool // true selects CRC32 framing for the unit in progress
	escapePending bool
	binBuf        []byte // accumulates unescaped header bytes

	dataBuf  []byte // accumulates unescaped subpacket data bytes
	term     byte   // subpacket terminator once seen
	trailBuf []byte // accumulates unescaped subpacket CRC trailer bytes

	// lastHeaderType and lastHeaderWide record the most recently decoded
	// header so process_packet's resync path (spec.md §9 open question:
	// "implicitly assumes the header buffer has not been overwritten
	// between header and subpacket") has a dedicated, explicit field to
	// read instead of reaching back into a shared header buffer.
	lastHeaderType FrameType
	lastHeaderWide bool

	// canRun counts consecutive CAN (0x18) bytes seen while hunting for a
	// frame prefix; five in a row cancels the session (supplement, §3).
	canRun int
}

func newDecoder(sink decoderSink) *decoder {
	return &decoder{sink: sink}
}

// armSubpacket tells the decoder that the next bytes on the wire are a data
// subpacket rather than a new frame header, using wide to select the CRC
// width. The transfer controller calls this after ZFILE/ZDATA/ZSINIT/
// ZCOMMAND headers that are always followed by a subpacket.
func (d *decoder) armSubpacket(wide bool) {
	d.state = stSubpacket
	d.wide = wide
	d.escapePending = false
	d.dataBuf = d.dataBuf[:0]
	d.trailBuf = d.trailBuf[:0]
	d.term = 0
}

// reset returns the decoder to the hunt state, discarding any partial
// frame. Used on framing errors and after a canceled session.
func (d *decoder) reset() {
	d.state = stHunt
	d.escapePending = false
}

// receiveByte advances the decoder state machine by one byte. It reports
// true if the session should be cancelled outright (a CAN x5 run was
// detected while hunting for a frame).
func (d *decoder) receiveByte(b byte) (cancelled bool) {
	if d.state == stHunt {
		if b == CAN {
			d.canRun++
			if d.canRun >= 5 {
				d.canRun = 0
				return true
			}
		} else {
			d.canRun = 0
		}
	}

	switch d.state {
	case stHunt:
		if b == ZPAD {
			d.state = stSawPad
		}

	case stSawPad:
		switch b {
		case ZPAD:
			d.state = stSawPadPad
		case ZDLE:
			d.state = stSawPadZdle
		default:
			d.state = stHunt
		}

	case stSawPadPad:
		if b == ZDLE {
			d.state = stSawPadZdle
		} else {
			d.state = stHunt
		}

	case stSawPadZdle:
		// Both the three-byte ("**\x18") HEX prefix and the two-byte
		// ("*\x18") BIN/BIN32 prefix land here: whichever of ZHEX/ZBIN/
		// ZBIN32 follows selects the encoding, regardless of how many
		// ZPADs preceded the ZDLE.
		switch b {
		case ZHEX:
			d.hexBuf = d.hexBuf[:0]
			d.hexHigh = -1
			d.state = stHexHigh
		case ZBIN:
			d.beginBinHeader(false)
		case ZBIN32:
			d.beginBinHeader(true)
		default:
			d.state = stHunt
		}

	case stHexHigh:
		if b == 0x0D {
			d.finishHexHeader()
			break
		}
		v := hexDigitValue(b)
		if v < 0 {
			d.state = stHunt
			break
		}
		d.hexHigh = v
		d.state = stHexLow

	case stHexLow:
		v := hexDigitValue(b)
		if v < 0 {
			d.state = stHunt
			break
		}
		d.hexBuf = append(d.hexBuf, byte(d.hexHigh<<4|v))
		d.state = stHexHigh

	case stBinHeader:
		if done, val, ok := d.unescapeStep(b, false); ok {
			if done {
				break // ZDLE just latched, nothing to store yet
			}
			d.binBuf = append(d.binBuf, val)
			needed := 7
			if d.wide {
				needed = 9
			}
			if len(d.binBuf) >= needed {
				d.finishBinHeader()
			}
		}

	case stSubpacket:
		if term, val, isTerm, ok := d.subpacketStep(b); ok {
			if isTerm {
				d.term = term
				d.trailBuf = d.trailBuf[:0]
				d.state = stSubpacketCRC
			} else {
				d.dataBuf = append(d.dataBuf, val)
			}
		}

	case stSubpacketCRC:
		if done, val, ok := d.unescapeStep(b, true); ok {
			if done {
				break
			}
			d.trailBuf = append(d.trailBuf, val)
			needed := 2
			if d.wide {
				needed = 4
			}
			if len(d.trailBuf) >= needed {
				d.finishSubpacket()
			}
		}
	}

	return false
}

func (d *decoder) beginBinHeader(wide bool) {
	d.state = stBinHeader
	d.wide = wide
	d.escapePending = false
	d.binBuf = d.binBuf[:0]
}

// unescapeStep applies the ZDLE unescape rule shared by header and
// trailer-CRC collection: no in-band terminator recognition, just XOR
// escaping and XON/XOFF elision. It returns ok=false when an unescaped
// flow-control byte was swallowed; done=true alongside ok=true signals "a
// ZDLE was consumed as this step's input and latched, no byte produced".
func (d *decoder) unescapeStep(b byte, _ bool) (done bool, val byte, ok bool) {
	if d.escapePending {
		d.escapePending = false
		return false, b ^ 0x40, true
	}
	switch b {
	case ZDLE:
		d.escapePending = true
		return true, 0, true
	case XON, XOFF:
		return false, 0, false
	default:
		return false, b, true
	}
}

// subpacketStep applies the ZDLE unescape rule for data-subpacket bytes,
// which additionally recognizes ZDLE followed by a raw byte in 0x68..0x6f
// as a frame terminator (ZCRCE/G/Q/W or a rubout code) instead of an
// escaped data byte.
func (d *decoder) subpacketStep(b byte) (term byte, val byte, isTerm bool, ok bool) {
	if d.escapePending {
		d.escapePending = false
		if isFrameEndByte(b) {
			return b, 0, true, true
		}
		return 0, b ^ 0x40, false, true
	}
	switch b {
	case ZDLE:
		d.escapePending = true
		return 0, 0, false, false
	case XON, XOFF:
		return 0, 0, false, false
	default:
		return 0, b, false, true
	}
}

// finishHexHeader validates and dispatches a completed HEX header. state is
// set to stHunt before calling the sink, not after: headerReady may call
// armSubpacket synchronously to collect the subpacket that follows this
// header on the wire, and that state change must win over the "go back to
// hunting" default rather than be clobbered by it.
func (d *decoder) finishHexHeader() {
	d.state = stHunt

	if len(d.hexBuf) != 7 {
		return
	}
	payload := d.hexBuf[:5]
	if !crc16Trailer(payload, d.hexBuf[5], d.hexBuf[6]) {
		return
	}

	t := FrameType(payload[0])
	hdr := Header{payload[1], payload[2], payload[3], payload[4]}
	d.lastHeaderType = t
	d.lastHeaderWide = false
	d.sink.headerReady(t, hdr, false)
}

// finishBinHeader is finishHexHeader's BIN/BIN32 counterpart; see its
// comment for why the stHunt reset happens before, not after, dispatch.
func (d *decoder) finishBinHeader() {
	d.state = stHunt

	payload := d.binBuf[:5]
	var ok bool
	if d.wide {
		var trailer [4]byte
		copy(trailer[:], d.binBuf[5:9])
		ok = crc32TrailerValid(payload, trailer)
	} else {
		ok = crc16Trailer(payload, d.binBuf[5], d.binBuf[6])
	}
	if !ok {
		return
	}

	t := FrameType(payload[0])
	hdr := Header{payload[1], payload[2], payload[3], payload[4]}
	d.lastHeaderType = t
	d.lastHeaderWide = d.wide
	d.sink.headerReady(t, hdr, d.wide)
}

// finishSubpacket resets to stHunt before calling subpacketReady for the
// same reason finishHexHeader does: ZCRCG/ZCRCQ handling re-arms the
// decoder for another subpacket from inside the callback, and that must
// win over the default reset.
func (d *decoder) finishSubpacket() {
	d.state = stHunt

	var ok bool
	if d.wide {
		var trailer [4]byte
		copy(trailer[:], d.trailBuf[:4])
		full := append(append([]byte{}, d.dataBuf...), d.term)
		ok = crc32TrailerValid(full, trailer)
	} else {
		full := append(append([]byte{}, d.dataBuf...), d.term)
		ok = crc16Trailer(full, d.trailBuf[0], d.trailBuf[1])
	}

	d.sink.subpacketReady(d.term, d.dataBuf, ok)
}
