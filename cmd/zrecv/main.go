// Command zrecv receives files over ZMODEM on stdin/stdout, the receiving
// half of zsend: it emits ZRINIT immediately and waits for whatever the
// peer offers.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/term"

	"github.com/drunlade/go-zdrive/zmodem"
)

func main() {
	var (
		quiet     = flag.Bool("q", false, "quiet mode, minimal output")
		verbose   = flag.Bool("v", false, "verbose mode")
		overwrite = flag.Bool("y", false, "overwrite existing files")
		protect   = flag.Bool("p", false, "protect (skip) existing files")
		escape    = flag.Bool("e", false, "escape control characters")
		destDir   = flag.String("d", ".", "destination directory")
	)
	flag.Usage = usage
	flag.Parse()

	restore := makeRawIfTerminal(os.Stdin)
	defer restore()

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	config := zmodem.DefaultConfig()
	config.EscapeControl = *escape

	done := make(chan error, 1)
	filesReceived := 0

	// engine is assigned below; the OnAcceptFile closure captures it by
	// reference and only calls into it once ReceiveByte starts driving
	// events, by which point construction has long since finished.
	var engine *zmodem.Engine

	handlers := zmodem.Handlers{
		OnData: func(b []byte) {
			out.Write(b)
			out.Flush()
		},
		OnAcceptFile: func(offer zmodem.FileOffer) {
			path := filepath.Join(*destDir, offer.Name)
			if _, statErr := os.Stat(path); statErr == nil {
				if *protect || !*overwrite {
					if *verbose {
						fmt.Fprintf(os.Stderr, "zrecv: skipping %s (already exists)\n", offer.Name)
					}
					engine.SkipFile()
					return
				}
			}
			if *verbose {
				fmt.Fprintf(os.Stderr, "zrecv: receiving %s (%d bytes)\n", offer.Name, offer.Size)
			}
			engine.AcceptFileAs(path)
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
			filesReceived++
			if !*quiet {
				fmt.Fprintf(os.Stderr, "\n%s: received %d bytes\n", name, size)
			}
		},
		OnError: func(err error) {
			done <- err
		},
		OnFinish: func() {
			done <- nil
		},
	}

	engine = zmodem.NewEngine(config, handlers, zmodem.DefaultFileIO{})
	if *quiet {
		engine.SetLogger(zmodem.NewDiscardLogger())
	}

	if err := engine.StartReceiving(); err != nil {
		fmt.Fprintf(os.Stderr, "zrecv: %v\n", err)
		restore()
		os.Exit(1)
	}

	go readLoop(os.Stdin, engine, done)

	if err := <-done; err != nil {
		fmt.Fprintf(os.Stderr, "zrecv: %v\n", err)
		out.Flush()
		restore()
		os.Exit(1)
	}
	if !*quiet {
		fmt.Fprintf(os.Stderr, "zrecv: %d file(s) received\n", filesReceived)
	}
}

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
	fmt.Fprintf(os.Stderr, `zrecv - receive files with ZMODEM

Usage: zrecv [options]

Options:
  -d DIR   destination directory (default ".")
  -e       escape control characters (ESCCTL)
  -p       protect (skip) files that already exist
  -q       quiet mode
  -v       verbose mode
  -y       overwrite files that already exist
`)
}
