// Package zssh binds a zmodem.Engine to an SSH session, starting the
// remote sz/rz command and piping the engine's inbound/outbound bytes
// through the session's stdout/stdin. It carries no protocol logic of its
// own; it exists purely to keep golang.org/x/crypto/ssh out of the
// transport-agnostic zmodem package, per its single-call-in/single-call-out
// contract.
package zssh

import (
	"fmt"
	"io"

	"golang.org/x/crypto/ssh"

	"github.com/drunlade/go-zdrive/zmodem"
)

// Transport drives an Engine from an *ssh.Session: bytes read from the
// session's stdout are fed to Engine.ReceiveByte, and the Engine's
// Handlers.OnData output is written to the session's stdin.
type Transport struct {
	session *ssh.Session
	engine  *zmodem.Engine

	stdin  io.WriteCloser
	stdout io.Reader
	stderr io.Reader
}

// NewTransport opens session's pipes for engine without starting a remote
// command yet. It does not touch engine's Handlers: the caller's OnData
// must forward to the returned Transport's Write for outbound bytes to
// reach the session's stdin.
func NewTransport(session *ssh.Session, engine *zmodem.Engine) (*Transport, error) {
	stdin, err := session.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("zssh: stdin pipe: %w", err)
	}
	stdout, err := session.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("zssh: stdout pipe: %w", err)
	}
	stderr, err := session.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("zssh: stderr pipe: %w", err)
	}

	t := &Transport{
		session: session,
		engine:  engine,
		stdin:   stdin,
		stdout:  stdout,
		stderr:  stderr,
	}
	return t, nil
}

// RunSend starts the remote receiver (`rz --zmodem`) and drives engine as
// the sending side until the session's stdout is exhausted.
// engine must already have SetFiles/StartSending called against it, with
// its OnFinish/OnError handlers wired to signal completion back to the
// caller; RunSend blocks reading stdout and does not itself decide when
// the transfer is complete.
func (t *Transport) RunSend() error {
	if err := t.session.Start("rz --zmodem"); err != nil {
		return fmt.Errorf("zssh: starting remote receiver: %w", err)
	}
	return t.pump()
}

// RunReceive starts the remote sender (`sz --zmodem`) and drives engine as
// the receiving side, symmetric to RunSend.
func (t *Transport) RunReceive() error {
	if err := t.session.Start("sz --zmodem"); err != nil {
		return fmt.Errorf("zssh: starting remote sender: %w", err)
	}
	return t.pump()
}

// pump is the transport's read loop: the single call-in point spec's
// concurrency model requires. It runs until the remote stdout closes,
// which happens once the remote sz/rz process exits.
func (t *Transport) pump() error {
	buf := make([]byte, 4096)
	for {
		n, err := t.stdout.Read(buf)
		for i := 0; i < n; i++ {
			t.engine.ReceiveByte(buf[i])
		}
		if err != nil {
			if err == io.EOF {
				return t.session.Wait()
			}
			return fmt.Errorf("zssh: reading remote stdout: %w", err)
		}
	}
}

// Stderr returns the session's stderr reader for the caller to drain, e.g.
// with io.Copy(os.Stderr, transport.Stderr()). The transport itself never
// reads it: remote sz/rz diagnostics are the caller's concern, not the
// protocol engine's.
func (t *Transport) Stderr() io.Reader {
	return t.stderr
}

// Write matches Handlers.OnData's signature so it can serve as an Engine's
// outbound sink. The Engine copies its Handlers at construction, so the
// OnData passed to NewEngine has to reach the Transport created after it:
//
//	var transport *zssh.Transport
//	handlers.OnData = func(p []byte) { transport.Write(p) }
//	engine := zmodem.NewEngine(config, handlers, nil)
//	transport, _ = zssh.NewTransport(session, engine)
func (t *Transport) Write(p []byte) {
	_, _ = t.stdin.Write(p)
}

// Close closes the underlying stdin pipe, signalling end-of-input to the
// remote command; the remote process's own exit closes stdout, which ends
// pump's read loop.
func (t *Transport) Close() error {
	return t.stdin.Close()
}
