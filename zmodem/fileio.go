package zmodem

import (
	"io"
	"os"
	"time"
)

// ReadHandle is an open file being sent. Seek supports ZRPOS-driven
// restarts mid-file.
type ReadHandle interface {
	io.Reader
	io.Seeker
	io.Closer
}

// WriteHandle is an open file being received.
type WriteHandle interface {
	io.Writer
	io.Seeker
	io.Closer
}

// FileIO abstracts local filesystem access so an embedder can redirect
// transfers into memory, a virtual filesystem, or anywhere else without
// the engine itself touching os directly. DefaultFileIO covers the normal
// case.
type FileIO interface {
	// OpenRead opens path for sending.
	OpenRead(path string) (ReadHandle, error)

	// OpenWrite creates or truncates path for receiving, sized as a hint
	// only (implementations are free to ignore it), and sets mode and
	// modTime once writing is complete via Close, or immediately if the
	// underlying filesystem allows it.
	OpenWrite(path string, size int64, mode os.FileMode, modTime time.Time) (WriteHandle, error)

	// Stat reports the size, permission bits, and modification time of
	// path, used by SetFiles to build the outbound file descriptors
	// without the engine opening the file early.
	Stat(path string) (size int64, mode os.FileMode, modTime time.Time, err error)
}

// DefaultFileIO implements FileIO against the local os filesystem.
type DefaultFileIO struct{}

func (DefaultFileIO) OpenRead(path string) (ReadHandle, error) {
	return os.Open(path)
}

func (DefaultFileIO) Stat(path string) (int64, os.FileMode, time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, 0, time.Time{}, err
	}
	return info.Size(), info.Mode(), info.ModTime(), nil
}

func (DefaultFileIO) OpenWrite(path string, _ int64, mode os.FileMode, modTime time.Time) (WriteHandle, error) {
	if mode == 0 {
		mode = 0o644
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return nil, err
	}
	return &osWriteHandle{f: f, path: path, modTime: modTime}, nil
}

// osWriteHandle restores the peer-supplied mtime on Close, best-effort.
type osWriteHandle struct {
	f       *os.File
	path    string
	modTime time.Time
}

func (h *osWriteHandle) Write(p []byte) (int, error)         { return h.f.Write(p) }
func (h *osWriteHandle) Seek(o int64, w int) (int64, error) { return h.f.Seek(o, w) }

func (h *osWriteHandle) Close() error {
	err := h.f.Close()
	if err == nil && !h.modTime.IsZero() {
		_ = os.Chtimes(h.path, h.modTime, h.modTime)
	}
	return err
}
