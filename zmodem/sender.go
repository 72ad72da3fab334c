package zmodem

import (
	"errors"
	"fmt"
	"io"
)

// nextSend offers the file at the head of the send queue, or finishes the
// batch if the queue is empty (spec §4.4 "next-send").
func (e *Engine) nextSend() {
	if len(e.sendQueue) == 0 {
		e.sendBin(ZFIN, Header{})
		return
	}
	f := e.sendQueue[0]
	e.sendBin(ZFILE, Header{})
	e.sendSubpacket(fileOfferSubpacket(f), ZCRCW)
}

// fileOfferSubpacket builds the NUL-terminated filename plus
// space-separated options string a ZFILE subpacket carries: size (decimal),
// mtime (octal Unix seconds), mode (octal), then serial, files remaining,
// and bytes remaining, all three written as 0 — matching the classic wctxpn() layout
// spec §4.4 describes.
func fileOfferSubpacket(f FileToSend) []byte {
	options := fmt.Sprintf("%d %o %o 0 0 0", f.Size, f.ModTime.Unix(), f.Mode&0o777)
	buf := make([]byte, 0, len(f.Name)+1+len(options))
	buf = append(buf, f.Name...)
	buf = append(buf, 0)
	buf = append(buf, options...)
	return buf
}

// sendData implements spec §4.4's "send-data algorithm": open the current
// file if needed, emit a ZEOF once fully sent, or read up to
// Config.MaxSubpacket bytes and push them as a ZDATA subpacket, choosing
// ZCRCE (last chunk) or ZCRCW (stop-and-wait, more to come).
func (e *Engine) sendData() {
	if len(e.sendQueue) == 0 {
		return
	}
	head := e.sendQueue[0]

	if e.sendFile == nil {
		f, err := e.fileio.OpenRead(head.LocalPath)
		if err != nil {
			e.abort(ErrIO, "opening file to send: "+err.Error())
			return
		}
		e.sendFile = f
	}

	if e.sendPos >= uint32(head.Size) {
		e.sendBin(ZEOF, positionHeader(e.sendPos))
		return
	}

	if _, err := e.sendFile.Seek(int64(e.sendPos), 0); err != nil {
		e.abort(ErrIO, "seeking send file: "+err.Error())
		return
	}

	chunkSize := e.config.MaxSubpacket
	if chunkSize <= 0 {
		chunkSize = 2048
	}
	buf := make([]byte, chunkSize)
	n, err := readFull(e.sendFile, buf)
	if err != nil {
		e.abort(ErrIO, "reading send file: "+err.Error())
		return
	}

	atEOF := e.sendPos+uint32(n) >= uint32(head.Size)

	e.sendBin(ZDATA, positionHeader(e.sendPos))
	if atEOF {
		e.sendSubpacket(buf[:n], ZCRCE)
		e.sendPos += uint32(n)
		e.emitProgress(head.Name, int64(e.sendPos), head.Size)

		e.mode = ModeSendingFin
		e.sendBin(ZEOF, positionHeader(e.sendPos))
		e.emitCompleteFile(head.Name, head.Size)
		return
	}

	e.sendSubpacket(buf[:n], ZCRCW)
	e.sendPos += uint32(n)
	e.emitProgress(head.Name, int64(e.sendPos), head.Size)
}

// readFull reads until buf is full or the reader is exhausted, returning
// however many bytes it got — unlike io.ReadFull, a short read here is
// success (end of file), not an error.
func readFull(r ReadHandle, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := r.Read(buf[total:])
		total += n
		if err != nil {
			if errors.Is(err, io.EOF) {
				return total, nil
			}
			return total, err
		}
		if n == 0 {
			break
		}
	}
	return total, nil
}
