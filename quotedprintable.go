package smtpc

import (
	"bufio"
	"fmt"
	"io"
)

// qpState tracks the one-byte-deep lookahead the quoted-printable
// encoder needs to tell a CRLF from a bare CR, and whitespace adjacent
// to a line terminator from interior whitespace. A CRLF or a
// whitespace+bare-LF pair is never ambiguous and resolves the instant
// it's seen, so only the states that must wait for one more byte to
// disambiguate are persisted here.
type qpState int

const (
	qpStart qpState = iota
	qpSeenR
	qpSeenSpace
	qpSeenRSpace
)

const qpMaxCol = 75

// encodeQuotedPrintable writes the RFC 2045 section 6.7 quoted-printable
// encoding of data to w. The encoder is total: it never fails except
// through a write error from w.
func encodeQuotedPrintable(w io.Writer, data []byte) error {
	bw := bufio.NewWriter(w)

	body, trailing := splitTrailingWhitespace(data)

	enc := &qpEncoder{w: bw}
	if err := enc.run(body); err != nil {
		return err
	}
	for _, b := range trailing {
		if err := enc.escape(b); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// splitTrailingWhitespace separates the run of trailing spaces/tabs at
// the very end of data, if any, from the rest: trailing whitespace on
// the final line would otherwise be lost in transit, so it is stripped
// here and re-emitted as =XX escapes by the caller. Trailing CR/LF need
// no such treatment — a literal CRLF already survives transport, so
// only runs of space/tab are pulled out here.
func splitTrailingWhitespace(data []byte) (body, trailing []byte) {
	i := len(data)
	for i > 0 && (data[i-1] == ' ' || data[i-1] == '\t') {
		i--
	}
	return data[:i], data[i:]
}

// qpEncoder carries the running column count and the one-byte-deep
// pending state of the finite automaton across feed calls.
type qpEncoder struct {
	w         *bufio.Writer
	col       int
	state     qpState
	pendingWS byte
}

func (e *qpEncoder) run(data []byte) error {
	for _, b := range data {
		if err := e.feed(b); err != nil {
			return err
		}
	}
	return e.flushPending()
}

// flushPending resolves whatever state was left open at the end of the
// (trailing-whitespace-stripped) input — a lone pending CR or whitespace
// byte with nothing left to disambiguate it.
func (e *qpEncoder) flushPending() error {
	switch e.state {
	case qpSeenR:
		e.state = qpStart
		return e.escape('\r')
	case qpSeenSpace:
		e.state = qpStart
		return e.escape(e.pendingWS)
	case qpSeenRSpace:
		ws := e.pendingWS
		e.state = qpStart
		if err := e.escape(ws); err != nil {
			return err
		}
		return e.escape('\r')
	}
	return nil
}

func (e *qpEncoder) feed(b byte) error {
	switch e.state {
	case qpSeenR:
		e.state = qpStart
		if b == '\n' {
			return e.hardBreak()
		}
		// bare CR, not followed by LF: escape it rather than passing it through
		if err := e.escape('\r'); err != nil {
			return err
		}
		return e.handleStart(b)

	case qpSeenSpace:
		ws := e.pendingWS
		e.state = qpStart
		switch b {
		case '\r':
			// defer: need one more byte to know CRLF vs bare CR
			e.state = qpSeenRSpace
			e.pendingWS = ws
			return nil
		case '\n':
			// whitespace followed by bare LF: both escaped
			if err := e.escape(ws); err != nil {
				return err
			}
			return e.escape('\n')
		case ' ', '\t':
			// ws wasn't adjacent to a terminator after all; it was an
			// ordinary interior byte, so it passes through literally
			// and the new byte becomes the pending one.
			if err := e.literal(ws); err != nil {
				return err
			}
			e.state = qpSeenSpace
			e.pendingWS = b
			return nil
		default:
			if err := e.literal(ws); err != nil {
				return err
			}
			return e.handleStart(b)
		}

	case qpSeenRSpace:
		ws := e.pendingWS
		e.state = qpStart
		if b == '\n' {
			// whitespace followed by CRLF: escape ws, CRLF literal
			if err := e.escape(ws); err != nil {
				return err
			}
			return e.hardBreak()
		}
		// whitespace followed by a bare CR: both escaped
		if err := e.escape(ws); err != nil {
			return err
		}
		if err := e.escape('\r'); err != nil {
			return err
		}
		return e.handleStart(b)

	default:
		return e.handleStart(b)
	}
}

// handleStart processes one byte with no pending state: the common case.
func (e *qpEncoder) handleStart(b byte) error {
	switch b {
	case '\r':
		e.state = qpSeenR
		return nil
	case ' ', '\t':
		e.state = qpSeenSpace
		e.pendingWS = b
		return nil
	case '=':
		return e.escape(b)
	default:
		if isQPPrintable(b) {
			return e.literal(b)
		}
		return e.escape(b)
	}
}

func (e *qpEncoder) literal(b byte) error {
	if e.col+1 > qpMaxCol {
		if err := e.softBreak(); err != nil {
			return err
		}
	}
	if err := e.w.WriteByte(b); err != nil {
		return err
	}
	e.col++
	return nil
}

func (e *qpEncoder) escape(b byte) error {
	if e.col+3 > qpMaxCol {
		if err := e.softBreak(); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(e.w, "=%02X", b); err != nil {
		return err
	}
	e.col += 3
	return nil
}

func (e *qpEncoder) hardBreak() error {
	if _, err := e.w.WriteString("\r\n"); err != nil {
		return err
	}
	e.col = 0
	return nil
}

func (e *qpEncoder) softBreak() error {
	if _, err := e.w.WriteString("=\r\n"); err != nil {
		return err
	}
	e.col = 0
	return nil
}

// isQPPrintable reports whether b passes through quoted-printable
// literally: RFC 2045's "printable" set minus '=', which is always
// escaped even though it is itself printable.
func isQPPrintable(b byte) bool {
	return b >= 0x21 && b <= 0x7E && b != '='
}
