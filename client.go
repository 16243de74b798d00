package smtpc

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/oklog/ulid/v2"
)

// ClientConfig configures a Client. The zero value is usable: a nil
// Logger disables wire logging, a nil TLSConfig means crypto/tls's
// defaults, and a nil Now means time.Now.
type ClientConfig struct {
	LocalName string
	TLSConfig *tls.Config
	Logger    *slog.Logger
	Now       func() time.Time
}

// Client drives one SMTP session end-to-end: greeting, extension
// negotiation, optional STARTTLS, optional authentication, the envelope,
// and the DATA stream. It is not safe for concurrent use; each Client
// owns one Connection.
type Client struct {
	cfg     *ClientConfig
	conn    *connection
	ext     ClientExtensions
	traceID string
	now     func() time.Time
	closed  bool
}

// Dial opens a connection to a "smtp://" or "smtps://" endpoint, runs the
// greeting/EHLO/opportunistic-STARTTLS handshake, and returns a Client
// ready for Send. An "smtps://" endpoint is TLS from the first byte; an
// "smtp://" endpoint starts plaintext and upgrades only if the server
// offers STARTTLS.
func Dial(rawURL string, cfg *ClientConfig) (*Client, error) {
	if cfg == nil {
		cfg = &ClientConfig{}
	}

	ep, err := parseEndpoint(rawURL)
	if err != nil {
		return nil, err
	}

	host, port, err := net.SplitHostPort(ep.hostport)
	if err != nil {
		return nil, err
	}

	raw, err := net.Dial("tcp", ep.hostport)
	if err != nil {
		return nil, err
	}

	var conn *connection
	if ep.tls {
		conn, err = dialTLSConnection(raw, cfg.TLSConfig, host, port)
		if err != nil {
			raw.Close()
			return nil, err
		}
	} else {
		conn = newPlainConnection(raw, host, port)
	}

	c := newClient(conn, cfg)
	c.logf("dial", "host", host, "port", port, "tls", ep.tls)

	if err := c.handshake(); err != nil {
		conn.close()
		return nil, err
	}

	return c, nil
}

func newClient(conn *connection, cfg *ClientConfig) *Client {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Client{
		cfg:     cfg,
		conn:    conn,
		traceID: ulid.Make().String(),
		now:     now,
	}
}

// Extensions reports the capabilities negotiated with the server so far.
func (c *Client) Extensions() ClientExtensions { return c.ext }

// handshake reads the greeting, sends EHLO, and, if the connection is
// still plaintext and the server offered STARTTLS, upgrades and sends a
// fresh EHLO: extensions observed before the upgrade cannot be trusted,
// since a man-in-the-middle could have injected them.
func (c *Client) handshake() error {
	if err := c.greet(); err != nil {
		return err
	}
	if err := c.ehlo(); err != nil {
		return err
	}
	if !c.conn.isTLS() && c.ext.STARTTLSOffered {
		if err := c.startTLS(); err != nil {
			return err
		}
		if err := c.ehlo(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) greet() error {
	rep, err := c.readReply(0)
	if err != nil {
		return err
	}
	if rep.code != 220 {
		return newError(ErrInvalidServerGreetings, rep.message())
	}
	return nil
}

// expect reads one reply through the client's logging wrapper and requires
// its code equal want, classifying any mismatch through classifyServerCode
// so every step follows the same rule.
func (c *Client) expect(maxLines, want int) (*reply, error) {
	rep, err := c.readReply(maxLines)
	if err != nil {
		return nil, err
	}
	if rep.code != want {
		return nil, classifyServerCode(rep.code, rep.message())
	}
	return rep, nil
}

// maxEhloLines bounds how many capability lines a single EHLO reply may
// contribute before the handshake gives up as oversized.
const maxEhloLines = 64

func (c *Client) ehlo() error {
	// No hostname argument: this client never advertises its own name.
	if err := c.sendLine("EHLO"); err != nil {
		return err
	}
	rep, err := c.expect(maxEhloLines, 250)
	if err != nil {
		return err
	}
	c.ext = parseExtensions(rep.lines)
	return nil
}

func (c *Client) startTLS() error {
	if err := c.sendLine("STARTTLS"); err != nil {
		return err
	}
	rep, err := c.readReply(0)
	if err != nil {
		return err
	}
	if rep.code != 220 {
		return newError(ErrInvalidTLSHandshakeResponse, rep.message())
	}
	return c.conn.upgradeToTLS(c.cfg.TLSConfig)
}

// Send drives optional authentication, the MAIL FROM/RCPT TO envelope,
// and the DATA stream for one message. Composition happens before any
// command is written, so a composition error (e.g. ErrExpectedEmailDomain,
// ErrExpectToAddress) leaves the session untouched and sends no bytes.
func (c *Client) Send(msg *Message, creds *Credentials) error {
	if len(msg.To) == 0 {
		return newError(ErrExpectToAddress, "message has no To recipients")
	}

	composed, err := composeMessage(msg, c.now)
	if err != nil {
		return err
	}

	if creds != nil {
		if err := c.authenticate(creds); err != nil {
			return err
		}
	}

	if err := c.mailFrom(msg); err != nil {
		return err
	}
	for _, addr := range allRecipients(msg) {
		if err := c.rcptTo(addr); err != nil {
			return err
		}
	}

	return c.dataPhase(composed)
}

func allRecipients(msg *Message) []Address {
	all := make([]Address, 0, len(msg.To)+len(msg.Cc)+len(msg.Bcc))
	all = append(all, msg.To...)
	all = append(all, msg.Cc...)
	all = append(all, msg.Bcc...)
	return all
}

// authenticate requires TLS before any mechanism runs, and uses
// whichever mechanism ehlo already reduced to the single
// highest-precedence choice.
func (c *Client) authenticate(creds *Credentials) error {
	if !c.conn.isTLS() {
		return newError(ErrTLSRequiredForAuth, "TLS required before authentication")
	}

	switch c.ext.Auth {
	case AuthPLAIN:
		return c.authPlain(creds)
	case AuthLOGIN:
		return c.authLogin(creds)
	case AuthXOAUTH2:
		return c.authXOAUTH2(creds)
	default:
		return newError(ErrUnsupportedAuthHandshake, "no supported authentication mechanism offered")
	}
}

func (c *Client) authPlain(creds *Credentials) error {
	if err := c.sendLine("AUTH PLAIN " + encodeAuthPlain(creds)); err != nil {
		return err
	}
	return c.expectAuthSuccess()
}

func (c *Client) authXOAUTH2(creds *Credentials) error {
	if err := c.sendLine("AUTH XOAUTH2 " + encodeAuthXOAUTH2(creds)); err != nil {
		return err
	}
	return c.expectAuthSuccess()
}

func (c *Client) authLogin(creds *Credentials) error {
	if err := c.sendLine("AUTH LOGIN"); err != nil {
		return err
	}
	if err := c.expectLoginChallenge(loginChallengeUsername); err != nil {
		return err
	}

	if err := c.sendLine(encodeAuthLogin(creds.Username)); err != nil {
		return err
	}
	if err := c.expectLoginChallenge(loginChallengePassword); err != nil {
		return err
	}

	if err := c.sendLine(encodeAuthLogin(creds.Password)); err != nil {
		return err
	}
	return c.expectAuthSuccess()
}

// expectLoginChallenge requires a 334 reply whose payload is exactly
// want; any deviation is a protocol violation.
func (c *Client) expectLoginChallenge(want string) error {
	rep, err := c.readReply(0)
	if err != nil {
		return err
	}
	if rep.code != 334 || rep.firstLine() != want {
		return newError(ErrUnexpectedServerResponse, "unexpected AUTH LOGIN challenge: "+rep.message())
	}
	return nil
}

func (c *Client) expectAuthSuccess() error {
	_, err := c.expect(0, 235)
	return err
}

// mailFrom sends "MAIL FROM:<addr>" with the optional 8BITMIME/SMTPUTF8
// suffixes the negotiated extensions license.
func (c *Client) mailFrom(msg *Message) error {
	from, err := wireAddress(msg.From, c.ext)
	if err != nil {
		return err
	}
	cmd := "MAIL FROM:<" + from + ">"
	if c.ext.EightBitMIME {
		cmd += " BODY=8BITMIME"
	}
	if c.ext.SMTPUTF8 {
		cmd += " SMTPUTF8"
	}
	if err := c.sendLine(cmd); err != nil {
		return err
	}
	_, err = c.expect(0, 250)
	return err
}

// rcptTo sends one "RCPT TO:<addr>" per recipient, each awaiting its own
// 250, rather than listing every recipient on a single line.
func (c *Client) rcptTo(addr Address) error {
	wire, err := wireAddress(addr, c.ext)
	if err != nil {
		return err
	}
	if err := c.sendLine("RCPT TO:<" + wire + ">"); err != nil {
		return err
	}
	_, err = c.expect(0, 250)
	return err
}

// dataPhase sends DATA, the dot-stuffed composed bytes, a trailing CRLF
// if one isn't already there, then the bare terminator line.
func (c *Client) dataPhase(composed []byte) error {
	if err := c.sendLine("DATA"); err != nil {
		return err
	}
	if _, err := c.expect(0, 354); err != nil {
		return err
	}

	stuffed := dotStuff(composed)
	w := c.conn.writer()
	if _, err := w.Write(stuffed); err != nil {
		return err
	}
	if len(stuffed) < 2 || stuffed[len(stuffed)-2] != '\r' || stuffed[len(stuffed)-1] != '\n' {
		if _, err := w.WriteString("\r\n"); err != nil {
			return err
		}
	}
	if _, err := w.WriteString(".\r\n"); err != nil {
		return err
	}
	if err := c.conn.flush(); err != nil {
		return err
	}

	_, err := c.expect(0, 250)
	return err
}

// Noop sends NOOP and requires a 250. Useful for probing whether a
// connection is still alive.
func (c *Client) Noop() error {
	if err := c.sendLine("NOOP"); err != nil {
		return err
	}
	_, err := c.expect(0, 250)
	return err
}

// Reset sends RSET, aborting any transaction in progress, and requires a
// 250.
func (c *Client) Reset() error {
	if err := c.sendLine("RSET"); err != nil {
		return err
	}
	_, err := c.expect(0, 250)
	return err
}

// Close sends QUIT and closes the underlying socket, best-effort. It is
// safe to call more than once.
func (c *Client) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	return c.conn.close()
}

func (c *Client) sendLine(line string) error {
	c.logf("wire", "dir", "C", "line", line)
	if _, err := c.conn.writer().WriteString(line); err != nil {
		return err
	}
	if _, err := c.conn.writer().WriteString("\r\n"); err != nil {
		return err
	}
	return c.conn.flush()
}

func (c *Client) readReply(maxLines int) (*reply, error) {
	rep, err := readReply(c.conn.reader(), maxLines)
	if err != nil {
		return nil, err
	}
	for _, line := range rep.lines {
		c.logf("wire", "dir", "S", "line", fmt.Sprintf("%d %s", rep.code, line))
	}
	return rep, nil
}

func (c *Client) logf(msg string, args ...any) {
	if c.cfg.Logger == nil {
		return
	}
	c.cfg.Logger.Debug(msg, append([]any{"trace", c.traceID}, args...)...)
}
