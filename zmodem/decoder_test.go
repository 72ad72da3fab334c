package zmodem

import (
	"bytes"
	"testing"
)

// recordingSink implements decoderSink and records everything the decoder
// hands it, so tests can assert on decoded frames without an Engine.
type recordingSink struct {
	headers    []decodedHeader
	subpackets []decodedSubpacket
}

type decodedHeader struct {
	t    FrameType
	hdr  Header
	wide bool
}

type decodedSubpacket struct {
	term byte
	data []byte
	ok   bool
}

func (s *recordingSink) headerReady(t FrameType, hdr Header, wide bool) {
	s.headers = append(s.headers, decodedHeader{t, hdr, wide})
}

func (s *recordingSink) subpacketReady(term byte, data []byte, ok bool) {
	s.subpackets = append(s.subpackets, decodedSubpacket{term, append([]byte{}, data...), ok})
}

func feed(d *decoder, buf []byte) (cancelled bool) {
	for _, b := range buf {
		if d.receiveByte(b) {
			return true
		}
	}
	return false
}

func TestDecodeHexHeaderRoundTrip(t *testing.T) {
	sink := &recordingSink{}
	d := newDecoder(sink)

	hdr := positionHeader(0x1234)
	wire := encodeHexHeader(ZRPOS, hdr)
	if feed(d, wire) {
		t.Fatal("unexpected cancellation")
	}

	if len(sink.headers) != 1 {
		t.Fatalf("got %d headers, want 1", len(sink.headers))
	}
	got := sink.headers[0]
	if got.t != ZRPOS || got.hdr != hdr || got.wide {
		t.Errorf("decoded %+v, want type=ZRPOS hdr=%v wide=false", got, hdr)
	}
}

func TestDecodeBinHeaderRoundTrip(t *testing.T) {
	sink := &recordingSink{}
	d := newDecoder(sink)

	hdr := positionHeader(42)
	wire := encodeBinHeader(ZDATA, hdr, false, false, 0)
	if feed(d, wire) {
		t.Fatal("unexpected cancellation")
	}

	if len(sink.headers) != 1 {
		t.Fatalf("got %d headers, want 1", len(sink.headers))
	}
	got := sink.headers[0]
	if got.t != ZDATA || got.hdr != hdr || got.wide {
		t.Errorf("decoded %+v, want type=ZDATA hdr=%v wide=false", got, hdr)
	}
}

func TestDecodeBin32HeaderRoundTrip(t *testing.T) {
	sink := &recordingSink{}
	d := newDecoder(sink)

	hdr := positionHeader(0xDEADBEEF)
	wire := encodeBinHeader(ZDATA, hdr, true, false, 0)
	if feed(d, wire) {
		t.Fatal("unexpected cancellation")
	}

	if len(sink.headers) != 1 {
		t.Fatalf("got %d headers, want 1", len(sink.headers))
	}
	got := sink.headers[0]
	if got.t != ZDATA || got.hdr != hdr || !got.wide {
		t.Errorf("decoded %+v, want type=ZDATA hdr=%v wide=true", got, hdr)
	}
}

func TestDecodeCorruptHexHeaderDropped(t *testing.T) {
	sink := &recordingSink{}
	d := newDecoder(sink)

	wire := encodeHexHeader(ZRINIT, Header{})
	wire[10] ^= 0xFF // corrupt a hex digit of the header payload (ZP2)
	feed(d, wire)

	if len(sink.headers) != 0 {
		t.Errorf("got %d headers from corrupted frame, want 0", len(sink.headers))
	}
}

func TestDecodeSubpacketRoundTrip(t *testing.T) {
	sink := &recordingSink{}
	d := newDecoder(sink)

	d.armSubpacket(false)
	payload := []byte("the quick brown fox")
	wire := encodeDataSubpacket(payload, ZCRCW, false, false)
	feed(d, wire)

	if len(sink.subpackets) != 1 {
		t.Fatalf("got %d subpackets, want 1", len(sink.subpackets))
	}
	got := sink.subpackets[0]
	if !got.ok || got.term != ZCRCW || !bytes.Equal(got.data, payload) {
		t.Errorf("decoded %+v, want ok=true term=ZCRCW data=%q", got, payload)
	}
}

func TestDecodeSubpacketWide(t *testing.T) {
	sink := &recordingSink{}
	d := newDecoder(sink)

	d.armSubpacket(true)
	payload := []byte{0x00, 0x01, 0x02, 0xFF, 0x18, 0x11, 0x13}
	wire := encodeDataSubpacket(payload, ZCRCE, true, false)
	feed(d, wire)

	if len(sink.subpackets) != 1 {
		t.Fatalf("got %d subpackets, want 1", len(sink.subpackets))
	}
	got := sink.subpackets[0]
	if !got.ok || got.term != ZCRCE || !bytes.Equal(got.data, payload) {
		t.Errorf("decoded %+v, want ok=true term=ZCRCE data=%v", got, payload)
	}
}

func TestDecodeSubpacketCorruptedCRC(t *testing.T) {
	sink := &recordingSink{}
	d := newDecoder(sink)

	d.armSubpacket(false)
	wire := encodeDataSubpacket([]byte("data"), ZCRCW, false, false)
	wire[len(wire)-1] ^= 0xFF
	feed(d, wire)

	if len(sink.subpackets) != 1 {
		t.Fatalf("got %d subpackets, want 1", len(sink.subpackets))
	}
	if sink.subpackets[0].ok {
		t.Error("subpacketReady reported ok=true for a corrupted trailer")
	}
}

func TestDecodeEscapedControlBytes(t *testing.T) {
	sink := &recordingSink{}
	d := newDecoder(sink)

	d.armSubpacket(false)
	payload := []byte{ZDLE, 0x10, XON, XOFF, 'A', 'B'}
	wire := encodeDataSubpacket(payload, ZCRCG, false, true)
	feed(d, wire)

	if len(sink.subpackets) != 1 {
		t.Fatalf("got %d subpackets, want 1", len(sink.subpackets))
	}
	got := sink.subpackets[0]
	if !got.ok || !bytes.Equal(got.data, payload) {
		t.Errorf("decoded %+v, want ok=true data=%v", got, payload)
	}
}

func TestCANx5Cancels(t *testing.T) {
	sink := &recordingSink{}
	d := newDecoder(sink)

	cancelled := feed(d, []byte{CAN, CAN, CAN, CAN, CAN})
	if !cancelled {
		t.Error("five consecutive CAN bytes did not report cancellation")
	}
}

func TestCANRunResetsOnOtherByte(t *testing.T) {
	sink := &recordingSink{}
	d := newDecoder(sink)

	cancelled := feed(d, []byte{CAN, CAN, CAN, 'x', CAN, CAN})
	if cancelled {
		t.Error("interrupted CAN run incorrectly reported cancellation")
	}
}

func TestDecoderIgnoresGarbageBeforeFrame(t *testing.T) {
	sink := &recordingSink{}
	d := newDecoder(sink)

	garbage := []byte("garbage noise on the wire\r\n")
	wire := append(garbage, encodeHexHeader(ZACK, Header{})...)
	feed(d, wire)

	if len(sink.headers) != 1 || sink.headers[0].t != ZACK {
		t.Errorf("got headers %+v, want a single ZACK", sink.headers)
	}
}
