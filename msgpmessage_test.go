package smtpc

import (
	"reflect"
	"testing"
)

func roundTripMessage(t *testing.T, msg *Message) *Message {
	t.Helper()
	raw, err := msg.MarshalMsg(nil)
	if err != nil {
		t.Fatalf("MarshalMsg failed: %v", err)
	}
	if got, want := len(raw), msg.Msgsize(); got > want {
		t.Errorf("MarshalMsg wrote %d bytes, Msgsize upper bound was %d", got, want)
	}
	var out Message
	rest, err := out.UnmarshalMsg(raw)
	if err != nil {
		t.Fatalf("UnmarshalMsg failed: %v", err)
	}
	if len(rest) != 0 {
		t.Errorf("UnmarshalMsg left %d trailing bytes", len(rest))
	}
	return &out
}

func TestMsgp_RoundTrip_SingleBody(t *testing.T) {
	ts := int64(1700000000)
	msg := &Message{
		From:      Address{Name: "Sender", Address: "sender@example.com"},
		To:        []Address{{Address: "rcpt@example.com"}},
		Subject:   "Hi",
		Timestamp: &ts,
		Body:      Body{Single: &SingleBody{Text: "hello"}},
	}
	out := roundTripMessage(t, msg)
	if !reflect.DeepEqual(msg, out) {
		t.Errorf("round trip mismatch:\ngot  %+v\nwant %+v", out, msg)
	}
}

func TestMsgp_RoundTrip_NilTimestamp(t *testing.T) {
	msg := &Message{
		From: Address{Address: "sender@example.com"},
		To:   []Address{{Address: "rcpt@example.com"}},
		Body: Body{Alternative: &AlternativeBody{Text: "hi", HTML: "<p>hi</p>"}},
	}
	out := roundTripMessage(t, msg)
	if out.Timestamp != nil {
		t.Errorf("expected nil Timestamp, got %v", *out.Timestamp)
	}
	if !reflect.DeepEqual(msg.Body, out.Body) {
		t.Errorf("body mismatch: got %+v want %+v", out.Body, msg.Body)
	}
}

func TestMsgp_RoundTrip_MixedWithAttachment(t *testing.T) {
	msg := &Message{
		From: Address{Address: "sender@example.com"},
		To:   []Address{{Address: "rcpt@example.com"}, {Address: "rcpt2@example.com"}},
		Cc:   []Address{{Address: "cc@example.com"}},
		Body: Body{Mixed: &MixedBody{
			Text: "hi",
			Attachments: []Attachment{{
				Kind:        AttachmentKindAttached,
				Name:        "a.txt",
				ContentType: "text/plain",
				Bytes:       []byte("file contents"),
			}},
		}},
	}
	out := roundTripMessage(t, msg)
	if !reflect.DeepEqual(msg, out) {
		t.Errorf("round trip mismatch:\ngot  %+v\nwant %+v", out, msg)
	}
}

func TestMsgp_RoundTrip_RelatedWithInlinedAttachment(t *testing.T) {
	cid := NewContentID("example.com")
	msg := &Message{
		From: Address{Address: "sender@example.com"},
		To:   []Address{{Address: "rcpt@example.com"}},
		Body: Body{Related: &RelatedBody{
			HTML: `<img src="cid:` + cid.String() + `">`,
			Attachments: []Attachment{{
				Kind:        AttachmentKindInlined,
				Name:        "logo.png",
				ContentType: "image/png",
				Bytes:       []byte{0x89, 0x50, 0x4e, 0x47},
				ContentID:   cid,
			}},
		}},
	}
	out := roundTripMessage(t, msg)
	if !reflect.DeepEqual(msg, out) {
		t.Errorf("round trip mismatch:\ngot  %+v\nwant %+v", out, msg)
	}
}
