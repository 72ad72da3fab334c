// Command zsend sends files over ZMODEM on stdin/stdout, in the tradition
// of lsz: invoke it from an interactive shell (or a terminal emulator that
// recognizes the ZMODEM trigger sequence) and it drives the transfer over
// whatever stdin/stdout are connected to.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/drunlade/go-zdrive/zmodem"
)

func main() {
	var (
		quiet   = flag.Bool("q", false, "quiet mode, minimal output")
		verbose = flag.Bool("v", false, "verbose mode")
		escape  = flag.Bool("e", false, "escape control characters")
		crc32   = flag.Bool("Z", true, "offer 32-bit CRC framing")
	)
	flag.Usage = usage
	flag.Parse()

	files := flag.Args()
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "zsend: no files specified")
		usage()
		os.Exit(1)
	}

	restore := makeRawIfTerminal(os.Stdin)
	defer restore()

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	config := zmodem.DefaultConfig()
	config.Use32BitCRC = *crc32
	config.EscapeControl = *escape

	done := make(chan error, 1)

	handlers := zmodem.Handlers{
		OnData: func(b []byte) {
			out.Write(b)
			out.Flush()
		},
		OnProgress: func(name string, transferred, total int64) {
			if *quiet {
				return
			}
			pct := 0.0
			if total > 0 {
				pct = float64(transferred) / float64(total) * 100
			}
			fmt.Fprintf(os.Stderr, "\r%s: %6.2f%%", name, pct)
		},
		OnCompleteFile: func(name string, size int64) {
			if !*quiet {
				fmt.Fprintf(os.Stderr, "\n%s: sent %d bytes\n", name, size)
			}
		},
		OnError: func(err error) {
			done <- err
		},
		OnFinish: func() {
			done <- nil
		},
		OnSendRequest: func() {
			if *verbose {
				fmt.Fprintln(os.Stderr, "zsend: peer ready to receive")
			}
		},
	}

	engine := zmodem.NewEngine(config, handlers, zmodem.DefaultFileIO{})
	if *quiet {
		engine.SetLogger(zmodem.NewDiscardLogger())
	}

	if err := engine.SetFiles(files); err != nil {
		fmt.Fprintf(os.Stderr, "zsend: %v\n", err)
		restore()
		os.Exit(1)
	}
	if err := engine.StartSending(); err != nil {
		fmt.Fprintf(os.Stderr, "zsend: %v\n", err)
		restore()
		os.Exit(1)
	}

	go readLoop(os.Stdin, engine, done)

	if err := <-done; err != nil {
		fmt.Fprintf(os.Stderr, "zsend: %v\n", err)
		out.Flush()
		restore()
		os.Exit(1)
	}
}

// readLoop is the embedder's read loop spec §5 requires: the single
// call-in point that feeds ReceiveByte. It runs on its own goroutine, but
// every byte still arrives at the engine serialized one at a time, and
// the engine's own outbound calls (from within ReceiveByte, triggered by
// StartSending's synchronous emissions) happen inline on that goroutine
// too, so there is only ever one goroutine inside the engine at a time.
func readLoop(r *os.File, engine *zmodem.Engine, done chan<- error) {
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		for i := 0; i < n; i++ {
			engine.ReceiveByte(buf[i])
		}
		if err != nil {
			done <- fmt.Errorf("reading input: %w", err)
			return
		}
	}
}

func makeRawIfTerminal(f *os.File) func() {
	fd := int(f.Fd())
	if !term.IsTerminal(fd) {
		return func() {}
	}
	state, err := term.MakeRaw(fd)
	if err != nil {
		return func() {}
	}
	return func() { term.Restore(fd, state) }
}

func usage() {
	fmt.Fprintf(os.Stderr, `zsend - send files with ZMODEM

Usage: zsend [options] file...

Options:
  -e         escape control characters (ESCCTL)
  -q         quiet mode
  -v         verbose mode
  -Z=false   disable 32-bit CRC framing
`)
}
