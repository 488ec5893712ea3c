package ilp

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"os"
	"sync"
	"time"
)

// transport is a live duplex channel to the ingestion endpoint. Connect and
// Send block for the duration of the network round-trip; Close is idempotent
// and must be called on every exit path.
type transport interface {
	Connect(ctx context.Context) error
	Send(ctx context.Context, data []byte) error
	Close() error

	// reset drops any faulted connection state so the next Connect starts
	// clean. Never partial repair.
	reset()
}

// connState mirrors the transport lifecycle: disconnected until Connect,
// ready once dialed (and authenticated, for TCP auth), faulted after an I/O
// error until the owner tears it down and reconnects.
type connState uint8

const (
	stateDisconnected connState = iota
	stateReady
	stateFaulted
	stateClosed
)

// tcpTransport streams rows over plain TCP or TLS. Writes are
// fire-and-forget: the protocol has no per-row acknowledgement, so errors
// surface only when the connection itself faults.
type tcpTransport struct {
	addr           string
	tlsConf        *tls.Config // nil for plain TCP
	auth           *tcpAuth    // nil when unauthenticated
	connectTimeout time.Duration

	mu    sync.Mutex
	conn  net.Conn
	state connState
}

func newTCPTransport(conf Config) (*tcpTransport, error) {
	t := &tcpTransport{
		addr:           conf.Address,
		connectTimeout: conf.ConnectTimeout,
	}
	if conf.Protocol == ProtocolTCPS {
		tc, err := newTLSConfig(conf)
		if err != nil {
			return nil, err
		}
		t.tlsConf = tc
	}
	if conf.KeyID != "" {
		auth, err := newTCPAuth(conf.KeyID, conf.Key)
		if err != nil {
			return nil, err
		}
		t.auth = auth
	}
	return t, nil
}

// Connect dials the endpoint, wraps it in TLS when configured, and runs the
// authentication handshake. Dial failures are ErrConnection (retryable),
// handshake trust failures are ErrTLS (not retryable).
func (t *tcpTransport) Connect(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state == stateClosed {
		return ErrClosed
	}
	if t.conn != nil {
		return nil
	}

	dialer := &net.Dialer{Timeout: t.connectTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", t.addr)
	if err != nil {
		return fmt.Errorf("%w: dial %s: %v", ErrConnection, t.addr, err)
	}

	if t.tlsConf != nil {
		tlsConn := tls.Client(conn, t.tlsConf)
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			conn.Close()
			return fmt.Errorf("%w: %s: %v", ErrTLS, t.addr, err)
		}
		conn = tlsConn
	}

	if t.auth != nil {
		if err := t.auth.handshake(ctx, conn); err != nil {
			conn.Close()
			return err
		}
	}

	t.conn = conn
	t.state = stateReady
	return nil
}

// Send writes the full payload. On any write error the connection is marked
// faulted and torn down: reconnect is a full redial, never a partial repair.
func (t *tcpTransport) Send(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state == stateClosed {
		return ErrClosed
	}
	if t.conn == nil || t.state != stateReady {
		return fmt.Errorf("%w: not connected", ErrConnection)
	}

	if deadline, ok := ctx.Deadline(); ok {
		t.conn.SetWriteDeadline(deadline)
	} else {
		t.conn.SetWriteDeadline(time.Time{})
	}

	if _, err := t.conn.Write(data); err != nil {
		t.fault()
		return fmt.Errorf("%w: write: %v", ErrConnection, err)
	}
	return nil
}

// Close tears down the connection. Closing an already-closed transport is a
// no-op.
func (t *tcpTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state == stateClosed {
		return nil
	}
	t.state = stateClosed
	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	return err
}

// reset drops a faulted connection so the next Connect redials. Unlike
// Close, the transport stays usable.
func (t *tcpTransport) reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn != nil {
		t.conn.Close()
		t.conn = nil
	}
	if t.state != stateClosed {
		t.state = stateDisconnected
	}
}

// fault marks the connection broken. Must be called with the lock held.
func (t *tcpTransport) fault() {
	if t.conn != nil {
		t.conn.Close()
		t.conn = nil
	}
	t.state = stateFaulted
}

// newTLSConfig builds the TLS client configuration from the sender config.
// Verification is on unless explicitly disabled for trusted local networks.
func newTLSConfig(conf Config) (*tls.Config, error) {
	tc := &tls.Config{MinVersion: tls.VersionTLS12}

	switch conf.TLSVerify {
	case "", TLSVerifyOn:
	case TLSVerifyUnsafeOff:
		tc.InsecureSkipVerify = true
	default:
		return nil, fmt.Errorf("%w: unknown tls_verify mode %q", ErrTLS, conf.TLSVerify)
	}

	if conf.TLSRoots != "" {
		pem, err := os.ReadFile(conf.TLSRoots)
		if err != nil {
			return nil, fmt.Errorf("%w: read tls_roots: %v", ErrTLS, err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("%w: no certificates in %s", ErrTLS, conf.TLSRoots)
		}
		tc.RootCAs = pool
	}
	return tc, nil
}
