package smtpc

import (
	"bufio"
	"strconv"
	"strings"
)

// reply is one fully-drained server response: the 3-digit code shared by
// every line, and the payload text of each line (continuation marker and
// code already stripped), in order.
type reply struct {
	code         int
	lines        []string
	enhancedCode string
}

// message joins the reply's payload lines with "\n".
func (r *reply) message() string {
	return strings.Join(r.lines, "\n")
}

// EnhancedCode returns the RFC 2034 "X.Y.Z" prefix captured from the
// first line of this reply, or "" if the server didn't include one.
func (r *reply) EnhancedCode() string {
	return r.enhancedCode
}

// parseEnhancedCode extracts an RFC 2034 enhanced status code ("d.d.d ")
// from the start of payload, returning it and the remainder with the
// code and its trailing space stripped. Returns ("", payload) unchanged
// when payload doesn't start with one.
func parseEnhancedCode(payload string) (string, string) {
	sp := strings.IndexByte(payload, ' ')
	var code string
	if sp < 0 {
		code = payload
	} else {
		code = payload[:sp]
	}

	parts := strings.Split(code, ".")
	if len(parts) != 3 {
		return "", payload
	}
	for _, p := range parts {
		if p == "" {
			return "", payload
		}
		for i := 0; i < len(p); i++ {
			if p[i] < '0' || p[i] > '9' {
				return "", payload
			}
		}
	}
	if sp < 0 {
		return code, ""
	}
	return code, payload[sp+1:]
}

// firstLine returns the payload of the first line, or "" if the reply has
// no lines (never true for a successfully parsed reply).
func (r *reply) firstLine() string {
	if len(r.lines) == 0 {
		return ""
	}
	return r.lines[0]
}

// parseReplyLine splits one server line (without its trailing CR/LF) into
// a 3-digit code, a continuation flag, and the payload.
//
// The first three bytes must be decimal digits. Byte 4, if present,
// distinguishes '-' (continuation: more lines follow) from ' ' (terminal
// line); any other byte 4 is treated as the start of the payload rather
// than a delimiter. Lines shorter than 4 bytes are a protocol violation.
func parseReplyLine(line string) (code int, continuation bool, payload string, err error) {
	if len(line) < 4 {
		return 0, false, "", newError(ErrUnexpectedServerResponse, "reply line too short: "+strconv.Quote(line))
	}

	code, convErr := strconv.Atoi(line[:3])
	if convErr != nil {
		return 0, false, "", newError(ErrUnexpectedServerResponse, "reply code is not numeric: "+strconv.Quote(line))
	}

	switch line[3] {
	case '-':
		return code, true, line[4:], nil
	case ' ':
		return code, false, line[4:], nil
	default:
		return code, false, line[3:], nil
	}
}

// readReply reads one complete server response from r: a run of
// continuation lines ("ddd-...") terminated by one terminal line
// ("ddd ..."), fully drained before the caller proceeds. All lines in a
// reply must share the same code; a mismatch is a protocol violation.
//
// maxLines bounds how many continuation lines will be accepted before the
// read is abandoned with ErrHandshakeOversize — used during EHLO
// negotiation, where a misbehaving server could otherwise stream
// continuation lines forever.
func readReply(r *bufio.Reader, maxLines int) (*reply, error) {
	rep := &reply{}

	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return nil, err
		}
		line = strings.TrimRight(line, "\r\n")

		code, continuation, payload, perr := parseReplyLine(line)
		if perr != nil {
			return nil, perr
		}

		if rep.code == 0 {
			rep.code = code
			if ec, rest := parseEnhancedCode(payload); ec != "" {
				rep.enhancedCode = ec
				payload = rest
			}
		} else if code != rep.code {
			return nil, newError(ErrUnexpectedServerResponse, "inconsistent reply codes in multi-line response")
		}

		rep.lines = append(rep.lines, payload)

		if !continuation {
			return rep, nil
		}

		if maxLines > 0 && len(rep.lines) >= maxLines {
			return nil, newError(ErrHandshakeOversize, "server reply exceeded handshake line budget")
		}
	}
}
