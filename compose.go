package smtpc

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"strings"
	"time"
)

// composeMessage renders msg into the byte stream that follows DATA. It
// does not append the terminating bare "\r\n.\r\n" line or perform
// dot-stuffing — those are the session driver's job, applied uniformly
// to whatever bytes the composer produces rather than baked into
// composition itself.
func composeMessage(msg *Message, now func() time.Time) ([]byte, error) {
	if len(msg.To) == 0 {
		return nil, newError(ErrExpectToAddress, "message has no To recipients")
	}
	id, err := messageID(msg.From)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer

	writeHeader(&buf, "From", msg.From.String())
	writeHeader(&buf, "To", formatAddressList(msg.To))
	if len(msg.Cc) > 0 {
		writeHeader(&buf, "Cc", formatAddressList(msg.Cc))
	}
	if len(msg.Bcc) > 0 {
		writeHeader(&buf, "Bcc", formatAddressList(msg.Bcc))
	}
	writeHeader(&buf, "Subject", encodeSubject(msg.Subject))
	writeHeader(&buf, "Date", rfc822Date(resolveTimestamp(msg, now)))
	writeHeader(&buf, "MIME-Version", "1.0")
	writeHeader(&buf, "Message-ID", "<"+id+">")

	if err := composeBody(&buf, msg.Body); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func writeHeader(buf *bytes.Buffer, name, value string) {
	buf.WriteString(name)
	buf.WriteString(": ")
	buf.WriteString(value)
	buf.WriteString("\r\n")
}

func composeBody(buf *bytes.Buffer, body Body) error {
	switch {
	case body.Single != nil:
		return composeSingle(buf, body.Single)
	case body.Alternative != nil:
		return composeAlternative(buf, body.Alternative, newBoundary())
	case body.Mixed != nil:
		return composeMixed(buf, body.Mixed)
	case body.Related != nil:
		return composeRelated(buf, body.Related)
	default:
		panic("smtpc: message body has no variant set")
	}
}

func composeSingle(buf *bytes.Buffer, s *SingleBody) error {
	switch {
	case s.Attachment != nil:
		if s.Attachment.Kind != AttachmentKindAttached {
			panic("smtpc: a single-part attachment must be AttachmentKindAttached")
		}
		return writeAttachedPart(buf, s.Attachment)
	case s.HTML != "":
		return writeTextLikePart(buf, "text/html", s.HTML)
	default:
		return writeTextLikePart(buf, "text/plain", s.Text)
	}
}

func composeAlternative(buf *bytes.Buffer, alt *AlternativeBody, boundary string) error {
	writeHeader(buf, "Content-Type", `multipart/alternative; boundary="`+boundary+`"`)
	buf.WriteString("\r\n")

	buf.WriteString("--" + boundary + "\r\n")
	if err := writeTextLikePart(buf, "text/plain", alt.Text); err != nil {
		return err
	}
	buf.WriteString("--" + boundary + "\r\n")
	if err := writeTextLikePart(buf, "text/html", alt.HTML); err != nil {
		return err
	}
	buf.WriteString("--" + boundary + "--\r\n")
	return nil
}

func composeMixed(buf *bytes.Buffer, mixed *MixedBody) error {
	boundary := newBoundary()
	writeHeader(buf, "Content-Type", `multipart/mixed; boundary="`+boundary+`"`)
	buf.WriteString("\r\n")

	buf.WriteString("--" + boundary + "\r\n")
	switch {
	case mixed.Text != "" && mixed.HTML != "":
		inner := newBoundary()
		writeHeader(buf, "Content-Type", `multipart/alternative; boundary="`+inner+`"`)
		buf.WriteString("\r\n")
		buf.WriteString("--" + inner + "\r\n")
		if err := writeTextLikePart(buf, "text/plain", mixed.Text); err != nil {
			return err
		}
		buf.WriteString("--" + inner + "\r\n")
		if err := writeTextLikePart(buf, "text/html", mixed.HTML); err != nil {
			return err
		}
		buf.WriteString("--" + inner + "--\r\n")
	case mixed.HTML != "":
		if err := writeTextLikePart(buf, "text/html", mixed.HTML); err != nil {
			return err
		}
	default:
		if err := writeTextLikePart(buf, "text/plain", mixed.Text); err != nil {
			return err
		}
	}

	for i := range mixed.Attachments {
		att := &mixed.Attachments[i]
		if att.Kind != AttachmentKindAttached {
			panic("smtpc: a multipart/mixed attachment must be AttachmentKindAttached")
		}
		buf.WriteString("--" + boundary + "\r\n")
		if err := writeAttachedPart(buf, att); err != nil {
			return err
		}
	}

	buf.WriteString("--" + boundary + "--\r\n")
	return nil
}

func composeRelated(buf *bytes.Buffer, rel *RelatedBody) error {
	writeRelatedBlock := func() error {
		boundary := newBoundary()
		writeHeader(buf, "Content-Type", `multipart/related; boundary="`+boundary+`"`)
		buf.WriteString("\r\n")
		buf.WriteString("--" + boundary + "\r\n")
		if err := writeTextLikePart(buf, "text/html", rel.HTML); err != nil {
			return err
		}
		for i := range rel.Attachments {
			att := &rel.Attachments[i]
			if att.Kind != AttachmentKindInlined {
				panic("smtpc: a multipart/related attachment must be AttachmentKindInlined")
			}
			buf.WriteString("--" + boundary + "\r\n")
			if err := writeInlinedPart(buf, att); err != nil {
				return err
			}
		}
		buf.WriteString("--" + boundary + "--\r\n")
		return nil
	}

	if rel.Text == "" {
		return writeRelatedBlock()
	}

	outer := newBoundary()
	writeHeader(buf, "Content-Type", `multipart/alternative; boundary="`+outer+`"`)
	buf.WriteString("\r\n")
	buf.WriteString("--" + outer + "\r\n")
	if err := writeTextLikePart(buf, "text/plain", rel.Text); err != nil {
		return err
	}
	buf.WriteString("--" + outer + "\r\n")
	if err := writeRelatedBlock(); err != nil {
		return err
	}
	buf.WriteString("--" + outer + "--\r\n")
	return nil
}

func writeTextLikePart(buf *bytes.Buffer, contentType, text string) error {
	writeHeader(buf, "Content-Type", contentType+"; charset=utf-8")
	writeHeader(buf, "Content-Transfer-Encoding", "quoted-printable")
	buf.WriteString("\r\n")
	if err := encodeQuotedPrintable(buf, []byte(text)); err != nil {
		return err
	}
	buf.WriteString("\r\n")
	return nil
}

func writeAttachedPart(buf *bytes.Buffer, att *Attachment) error {
	writeHeader(buf, "Content-Type", att.ContentType)
	writeHeader(buf, "Content-Transfer-Encoding", "base64")
	writeHeader(buf, "Content-Disposition", "attachment; filename="+att.Name)
	buf.WriteString("\r\n")
	writeBase64(buf, att.Bytes)
	buf.WriteString("\r\n")
	return nil
}

func writeInlinedPart(buf *bytes.Buffer, att *Attachment) error {
	writeHeader(buf, "Content-Type", att.ContentType)
	writeHeader(buf, "Content-Transfer-Encoding", "base64")
	writeHeader(buf, "Content-Disposition", "inline; filename="+att.Name)
	writeHeader(buf, "Content-Location", att.Name)
	writeHeader(buf, "Content-Id", "<"+att.ContentID.String()+">")
	buf.WriteString("\r\n")
	writeBase64(buf, att.Bytes)
	buf.WriteString("\r\n")
	return nil
}

func writeBase64(buf *bytes.Buffer, data []byte) {
	buf.WriteString(base64.StdEncoding.EncodeToString(data))
}

// qWordMaxContent bounds the inner content of one RFC 2047 encoded-word:
// 75 bytes fits on one line unfolded, 76 or more triggers a soft break.
const qWordMaxContent = 75

// encodeSubject renders subject for the Subject header: a subject with
// any high-bit byte is wrapped as one or more "=?UTF-8?Q?...?=" encoded
// words, folded with CRLF+space when the content would otherwise exceed
// qWordMaxContent; an ASCII-only subject passes through literally.
func encodeSubject(subject string) string {
	if !containsHighBit(subject) {
		return subject
	}
	return encodeQWords(subject)
}

func containsHighBit(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return true
		}
	}
	return false
}

func encodeQWords(s string) string {
	var words []string
	var cur strings.Builder

	flush := func() {
		if cur.Len() > 0 {
			words = append(words, "=?UTF-8?Q?"+cur.String()+"?=")
			cur.Reset()
		}
	}

	for i := 0; i < len(s); i++ {
		piece := qEncodeByte(s[i])
		if cur.Len()+len(piece) > qWordMaxContent {
			flush()
		}
		cur.WriteString(piece)
	}
	flush()

	return strings.Join(words, "\r\n ")
}

// qEncodeByte renders one byte per RFC 2047's "Q" encoding: space becomes
// '_', '=' / '?' / '_' and anything outside printable ASCII are escaped
// as "=XX", everything else passes through.
func qEncodeByte(b byte) string {
	if b == ' ' {
		return "_"
	}
	if b >= 0x21 && b <= 0x7E && b != '=' && b != '?' && b != '_' {
		return string(b)
	}
	return fmt.Sprintf("=%02X", b)
}
