package zmodem

import (
	"bytes"
	"io"
	"os"
	"testing"
	"time"
)

// memFileIO is an in-memory FileIO used to drive Engine tests without
// touching the real filesystem, the substitution point fileio.go's
// FileIO interface exists for.
type memFileIO struct {
	files map[string][]byte
	mode  map[string]os.FileMode
	mtime map[string]time.Time
}

func newMemFileIO() *memFileIO {
	return &memFileIO{
		files: map[string][]byte{},
		mode:  map[string]os.FileMode{},
		mtime: map[string]time.Time{},
	}
}

func (m *memFileIO) put(path string, data []byte, mode os.FileMode, mtime time.Time) {
	m.files[path] = data
	m.mode[path] = mode
	m.mtime[path] = mtime
}

func (m *memFileIO) Stat(path string) (int64, os.FileMode, time.Time, error) {
	data, ok := m.files[path]
	if !ok {
		return 0, 0, time.Time{}, os.ErrNotExist
	}
	return int64(len(data)), m.mode[path], m.mtime[path], nil
}

func (m *memFileIO) OpenRead(path string) (ReadHandle, error) {
	data, ok := m.files[path]
	if !ok {
		return nil, os.ErrNotExist
	}
	return &memReadHandle{data: data}, nil
}

func (m *memFileIO) OpenWrite(path string, _ int64, mode os.FileMode, mtime time.Time) (WriteHandle, error) {
	h := &memWriteHandle{fio: m, path: path, mode: mode, mtime: mtime}
	return h, nil
}

type memReadHandle struct {
	data []byte
	pos  int64
}

func (h *memReadHandle) Read(p []byte) (int, error) {
	if h.pos >= int64(len(h.data)) {
		return 0, io.EOF
	}
	n := copy(p, h.data[h.pos:])
	h.pos += int64(n)
	return n, nil
}

func (h *memReadHandle) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case 0:
		h.pos = offset
	case 1:
		h.pos += offset
	case 2:
		h.pos = int64(len(h.data)) + offset
	}
	return h.pos, nil
}

func (h *memReadHandle) Close() error { return nil }

type memWriteHandle struct {
	fio   *memFileIO
	path  string
	mode  os.FileMode
	mtime time.Time
	buf   bytes.Buffer
	pos   int64
}

func (h *memWriteHandle) Write(p []byte) (int, error) {
	n, err := h.buf.Write(p)
	h.pos += int64(n)
	return n, err
}

func (h *memWriteHandle) Seek(offset int64, whence int) (int64, error) {
	return offset, nil
}

func (h *memWriteHandle) Close() error {
	h.fio.put(h.path, h.buf.Bytes(), h.mode, h.mtime)
	return nil
}

// pairEngines wires two engines' Handlers.OnData together so bytes one
// emits are fed synchronously into the other's ReceiveByte, exactly as
// spec §5 describes an embedder driving a byte-oriented transport.
func pairEngines(a, b *Engine) {
	a.handlers.OnData = func(p []byte) {
		for _, c := range p {
			b.ReceiveByte(c)
		}
	}
	b.handlers.OnData = func(p []byte) {
		for _, c := range p {
			a.ReceiveByte(c)
		}
	}
}

func TestEngineSendReceiveEndToEnd(t *testing.T) {
	senderIO := newMemFileIO()
	content := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog "), 200)
	mtime := time.Unix(1_700_000_000, 0).UTC()
	senderIO.put("greeting.txt", content, 0o644, mtime)

	receiverIO := newMemFileIO()

	var recvDone, sendDone bool
	var recvErr, sendErr error

	var receiver *Engine
	receiverHandlers := Handlers{
		OnAcceptFile: func(offer FileOffer) {
			receiver.AcceptFileAs(offer.Name)
		},
		OnFinish: func() { recvDone = true },
		OnError:  func(err error) { recvErr = err },
	}
	receiver = NewEngine(DefaultConfig(), receiverHandlers, receiverIO)
	receiver.SetLogger(NewDiscardLogger())

	var sender *Engine
	senderHandlers := Handlers{
		OnSendRequest: func() { sender.StartSending() },
		OnFinish:      func() { sendDone = true },
		OnError:       func(err error) { sendErr = err },
	}
	sender = NewEngine(DefaultConfig(), senderHandlers, senderIO)
	sender.SetLogger(NewDiscardLogger())
	if err := sender.SetFiles([]string{"greeting.txt"}); err != nil {
		t.Fatalf("SetFiles: %v", err)
	}

	pairEngines(sender, receiver)

	if err := receiver.StartReceiving(); err != nil {
		t.Fatalf("StartReceiving: %v", err)
	}

	if recvErr != nil {
		t.Fatalf("receiver error: %v", recvErr)
	}
	if sendErr != nil {
		t.Fatalf("sender error: %v", sendErr)
	}
	if !recvDone {
		t.Error("receiver never reached OnFinish")
	}
	if !sendDone {
		t.Error("sender never reached OnFinish")
	}

	got, ok := receiverIO.files["greeting.txt"]
	if !ok {
		t.Fatal("receiver never wrote greeting.txt")
	}
	if !bytes.Equal(got, content) {
		t.Errorf("received %d bytes, want %d matching the original", len(got), len(content))
	}
}

func TestEngineDenySendingStaysNone(t *testing.T) {
	e := NewEngine(DefaultConfig(), Handlers{}, DefaultFileIO{})
	if e.Mode() != ModeNone {
		t.Fatalf("fresh engine mode = %v, want none", e.Mode())
	}
	if err := e.DenySending(); err != nil {
		t.Fatalf("DenySending: %v", err)
	}
	if e.Mode() != ModeNone {
		t.Errorf("mode after DenySending = %v, want none (no bounce through sending)", e.Mode())
	}
}

func TestEngineStartSendingRequiresQueue(t *testing.T) {
	e := NewEngine(DefaultConfig(), Handlers{}, DefaultFileIO{})
	if err := e.StartSending(); err == nil {
		t.Error("StartSending with an empty queue should return an error")
	}
}

func TestEngineStartReceivingTwiceFails(t *testing.T) {
	e := NewEngine(DefaultConfig(), Handlers{}, DefaultFileIO{})
	if err := e.StartReceiving(); err != nil {
		t.Fatalf("first StartReceiving: %v", err)
	}
	if err := e.StartReceiving(); err == nil {
		t.Error("second StartReceiving while active should return an error")
	}
}

func TestEngineCANx5Aborts(t *testing.T) {
	var gotErr error
	e := NewEngine(DefaultConfig(), Handlers{
		OnError: func(err error) { gotErr = err },
	}, DefaultFileIO{})
	if err := e.StartReceiving(); err != nil {
		t.Fatalf("StartReceiving: %v", err)
	}
	for i := 0; i < 5; i++ {
		e.ReceiveByte(CAN)
	}
	if gotErr == nil {
		t.Fatal("expected OnError after CAN x5")
	}
	zerr, ok := gotErr.(*Error)
	if !ok || zerr.Type != ErrCancelled {
		t.Errorf("got error %v, want ErrCancelled", gotErr)
	}
	if e.Mode() != ModeNone {
		t.Errorf("mode after abort = %v, want none", e.Mode())
	}
}
