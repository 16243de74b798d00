package smtpc

import (
	"bufio"
	"crypto/tls"
	"net"
)

// protocol tags the two transport variants a Connection can carry:
// plaintext SMTP, upgradeable via STARTTLS, or SMTPS (TLS from the
// first byte).
type protocol int

const (
	protoPlain protocol = iota
	protoTLS
)

// connection is the unified reader/writer facade over a plain TCP or TLS
// socket. Reads and writes always go through the currently active
// layer; upgradeToTLS swaps that layer atomically without disturbing
// the underlying socket.
type connection struct {
	proto protocol

	host string
	port string

	raw     net.Conn
	tlsConn *tls.Conn

	r *bufio.Reader
	w *bufio.Writer
}

func newPlainConnection(raw net.Conn, host, port string) *connection {
	return &connection{
		proto: protoPlain,
		host:  host,
		port:  port,
		raw:   raw,
		r:     bufio.NewReader(raw),
		w:     bufio.NewWriter(raw),
	}
}

func newTLSConnection(raw net.Conn, tlsConn *tls.Conn, host, port string) *connection {
	return &connection{
		proto:   protoTLS,
		host:    host,
		port:    port,
		raw:     raw,
		tlsConn: tlsConn,
		r:       bufio.NewReader(tlsConn),
		w:       bufio.NewWriter(tlsConn),
	}
}

func (c *connection) reader() *bufio.Reader { return c.r }
func (c *connection) writer() *bufio.Writer { return c.w }
func (c *connection) isTLS() bool           { return c.proto == protoTLS }

func (c *connection) flush() error {
	return c.w.Flush()
}

// dialTLSConnection performs a TLS handshake over raw and wraps the
// result directly as a TLS connection, for an endpoint that is TLS from
// the first byte (SMTPS) rather than upgraded mid-session via STARTTLS.
func dialTLSConnection(raw net.Conn, cfg *tls.Config, host, port string) (*connection, error) {
	tlsConn, err := tlsClientHandshake(raw, cfg, host)
	if err != nil {
		return nil, err
	}
	return newTLSConnection(raw, tlsConn, host, port), nil
}

// upgradeToTLS performs the STARTTLS transport swap: it wraps the
// already-negotiated plaintext socket in a TLS client, then replaces
// this connection's reader/writer with ones backed by the TLS conn. The
// caller is responsible for having already sent STARTTLS and received
// the 220 that licenses this call.
func (c *connection) upgradeToTLS(cfg *tls.Config) error {
	tlsConn, err := tlsClientHandshake(c.raw, cfg, c.host)
	if err != nil {
		return err
	}
	c.proto = protoTLS
	c.tlsConn = tlsConn
	c.r = bufio.NewReader(tlsConn)
	c.w = bufio.NewWriter(tlsConn)
	return nil
}

func tlsClientHandshake(raw net.Conn, cfg *tls.Config, host string) (*tls.Conn, error) {
	cfg = ensureTLSServerName(cfg, host)
	tlsConn := tls.Client(raw, cfg)
	if err := tlsConn.Handshake(); err != nil {
		return nil, err
	}
	return tlsConn, nil
}

func ensureTLSServerName(cfg *tls.Config, host string) *tls.Config {
	if cfg == nil {
		cfg = &tls.Config{}
	} else {
		cfg = cfg.Clone()
	}
	if cfg.ServerName == "" {
		cfg.ServerName = host
	}
	return cfg
}

// end sends QUIT, flushes, and (for a TLS connection) sends close_notify.
func (c *connection) end() error {
	if _, err := c.w.WriteString("QUIT\r\n"); err != nil {
		return err
	}
	if err := c.w.Flush(); err != nil {
		return err
	}
	if c.tlsConn != nil {
		return c.tlsConn.CloseWrite()
	}
	return nil
}

// close is the best-effort socket teardown: end, then close the socket
// regardless of end's outcome.
func (c *connection) close() error {
	_ = c.end()
	return c.raw.Close()
}
