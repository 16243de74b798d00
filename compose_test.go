package smtpc

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"
)

func fixedNow() func() time.Time {
	return func() time.Time { return time.Unix(0, 0).UTC() }
}

func TestComposeMessage_HeaderOrderAndTerminator(t *testing.T) {
	msg := &Message{
		From:    Address{Address: "sender@example.com"},
		To:      []Address{{Address: "rcpt@example.com"}},
		Subject: "Hello",
		Body:    Body{Single: &SingleBody{Text: "hi"}},
	}
	out, err := composeMessage(msg, fixedNow())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text := string(out)

	for _, want := range []string{"From:", "To:", "Subject:", "Date:", "MIME-Version:", "Message-ID:"} {
		if !strings.Contains(text, want) {
			t.Errorf("missing header %q in:\n%s", want, text)
		}
	}
	fromIdx := strings.Index(text, "From:")
	toIdx := strings.Index(text, "To:")
	subjIdx := strings.Index(text, "Subject:")
	dateIdx := strings.Index(text, "Date:")
	mimeIdx := strings.Index(text, "MIME-Version:")
	midIdx := strings.Index(text, "Message-ID:")
	if !(fromIdx < toIdx && toIdx < subjIdx && subjIdx < dateIdx && dateIdx < mimeIdx && mimeIdx < midIdx) {
		t.Errorf("headers out of order:\n%s", text)
	}

	if strings.Contains(text, "\r\n.\r\n") {
		t.Error("composeMessage must not append the DATA terminator; that is the session driver's job")
	}
}

func TestComposeMessage_NoToRecipientsErrors(t *testing.T) {
	msg := &Message{
		From: Address{Address: "sender@example.com"},
		Body: Body{Single: &SingleBody{Text: "hi"}},
	}
	_, err := composeMessage(msg, fixedNow())
	if err == nil {
		t.Fatal("expected error for missing To")
	}
}

func TestComposeMessage_MissingFromDomainErrors(t *testing.T) {
	msg := &Message{
		From:    Address{Address: "sender"},
		To:      []Address{{Address: "rcpt@example.com"}},
		Body:    Body{Single: &SingleBody{Text: "hi"}},
	}
	_, err := composeMessage(msg, fixedNow())
	if err == nil {
		t.Fatal("expected error for missing @ in From")
	}
	if smtpErr, ok := err.(*Error); !ok || smtpErr.Code != ErrExpectedEmailDomain {
		t.Errorf("got %v, want ErrExpectedEmailDomain", err)
	}
}

func TestComposeMessage_CcAndBccHeadersHaveSpace(t *testing.T) {
	msg := &Message{
		From:    Address{Address: "sender@example.com"},
		To:      []Address{{Address: "rcpt@example.com"}},
		Cc:      []Address{{Address: "cc@example.com"}},
		Bcc:     []Address{{Address: "bcc@example.com"}},
		Subject: "Hello",
		Body:    Body{Single: &SingleBody{Text: "hi"}},
	}
	out, err := composeMessage(msg, fixedNow())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text := string(out)
	if !strings.Contains(text, "Cc: <cc@example.com>") {
		t.Errorf("expected space after Cc:, got:\n%s", text)
	}
	if !strings.Contains(text, "Bcc: <bcc@example.com>") {
		t.Errorf("expected space after Bcc:, got:\n%s", text)
	}
}

func TestComposeMessage_AlternativeBody(t *testing.T) {
	msg := &Message{
		From:    Address{Address: "sender@example.com"},
		To:      []Address{{Address: "rcpt@example.com"}},
		Subject: "Hello",
		Body:    Body{Alternative: &AlternativeBody{Text: "Hello", HTML: "<p>Hi</p>"}},
	}
	out, err := composeMessage(msg, fixedNow())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text := string(out)

	boundaryLine := ""
	for _, line := range strings.Split(text, "\r\n") {
		if strings.HasPrefix(line, "Content-Type: multipart/alternative") {
			idx := strings.Index(line, `boundary="`)
			rest := line[idx+len(`boundary="`):]
			boundaryLine = rest[:strings.Index(rest, `"`)]
		}
	}
	if boundaryLine == "" {
		t.Fatal("no multipart/alternative boundary found")
	}
	if count := strings.Count(text, "--"+boundaryLine); count < 3 {
		t.Errorf("boundary %q appears %d times, want >= 3", boundaryLine, count)
	}
	textIdx := strings.Index(text, "text/plain")
	htmlIdx := strings.Index(text, "text/html")
	if textIdx < 0 || htmlIdx < 0 || textIdx > htmlIdx {
		t.Error("expected text/plain to precede text/html")
	}
	if !strings.Contains(text, "--"+boundaryLine+"--") {
		t.Error("missing closing boundary")
	}
}

func TestComposeMessage_SingleAttachmentMustBeAttached(t *testing.T) {
	msg := &Message{
		From:    Address{Address: "sender@example.com"},
		To:      []Address{{Address: "rcpt@example.com"}},
		Subject: "Hello",
		Body: Body{Single: &SingleBody{Attachment: &Attachment{
			Kind:        AttachmentKindInlined,
			Name:        "a.txt",
			ContentType: "text/plain",
			Bytes:       []byte("data"),
		}}},
	}
	defer func() {
		if recover() == nil {
			t.Error("expected panic for an inlined attachment in a SingleBody")
		}
	}()
	_, _ = composeMessage(msg, fixedNow())
}

func TestComposeMessage_AttachmentBase64RoundTrips(t *testing.T) {
	payload := []byte{0x00, 0x01, 0xFF, 'h', 'i'}
	msg := &Message{
		From:    Address{Address: "sender@example.com"},
		To:      []Address{{Address: "rcpt@example.com"}},
		Subject: "Hello",
		Body: Body{Single: &SingleBody{Attachment: &Attachment{
			Kind:        AttachmentKindAttached,
			Name:        "a.bin",
			ContentType: "application/octet-stream",
			Bytes:       payload,
		}}},
	}
	out, err := composeMessage(msg, fixedNow())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text := string(out)
	lines := strings.Split(text, "\r\n")
	var b64 string
	for i, line := range lines {
		if line == "" && i+1 < len(lines) {
			b64 = lines[i+1]
			break
		}
	}
	decoded, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		t.Fatalf("attachment body is not valid base64: %v", err)
	}
	if string(decoded) != string(payload) {
		t.Errorf("decoded %v, want %v", decoded, payload)
	}
}

func TestEncodeSubject_ASCIIUnwrapped(t *testing.T) {
	got := encodeSubject("Plain subject")
	if got != "Plain subject" {
		t.Errorf("got %q", got)
	}
}

func TestEncodeSubject_HighBitUsesQEncoding(t *testing.T) {
	got := encodeSubject("caf\xc3\xa9")
	if !strings.HasPrefix(got, "=?UTF-8?Q?") || !strings.HasSuffix(got, "?=") {
		t.Errorf("got %q, want an encoded word", got)
	}
}

func TestEncodeSubject_75BytesOneWord(t *testing.T) {
	// 72 literal bytes + one escaped high-bit byte ("=XX", 3 bytes) = 75.
	body := strings.Repeat("a", 72) + "\xe9"
	got := encodeQWords(body)
	if strings.Contains(got, "\r\n") {
		t.Errorf("did not expect a fold for a 75-byte encoded-word body: %q", got)
	}
}

func TestEncodeSubject_76BytesFolds(t *testing.T) {
	// 73 literal bytes + one escaped high-bit byte ("=XX", 3 bytes) = 76.
	body := strings.Repeat("a", 73) + "\xe9"
	got := encodeQWords(body)
	if !strings.Contains(got, "\r\n ") {
		t.Errorf("expected a fold once content exceeds 75 bytes: %q", got)
	}
}
