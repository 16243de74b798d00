package smtpc

import (
	"fmt"

	"github.com/tinylib/msgp/msgp"
)

// Message and Address implement msgp.Marshaler/Unmarshaler/Sizer by
// hand, letting a caller serialize a composed message to MessagePack
// for handoff across a process boundary before it is sent. There is no
// code generator invocation here (no `go generate` tags); the methods
// are written directly against the msgp wire-format helpers.

const (
	bodyKindSingle = iota
	bodyKindAlternative
	bodyKindMixed
	bodyKindRelated
)

// MarshalMsg implements msgp.Marshaler. An Address is a 2-element array:
// [Name, Address].
func (a Address) MarshalMsg(b []byte) ([]byte, error) {
	o := msgp.AppendArrayHeader(b, 2)
	o = msgp.AppendString(o, a.Name)
	o = msgp.AppendString(o, a.Address)
	return o, nil
}

// UnmarshalMsg implements msgp.Unmarshaler.
func (a *Address) UnmarshalMsg(bts []byte) ([]byte, error) {
	sz, bts, err := msgp.ReadArrayHeaderBytes(bts)
	if err != nil {
		return nil, err
	}
	if sz != 2 {
		return nil, fmt.Errorf("smtpc: Address array has %d elements, want 2", sz)
	}
	if a.Name, bts, err = msgp.ReadStringBytes(bts); err != nil {
		return nil, err
	}
	if a.Address, bts, err = msgp.ReadStringBytes(bts); err != nil {
		return nil, err
	}
	return bts, nil
}

// Msgsize implements msgp.Sizer.
func (a Address) Msgsize() int {
	return msgp.ArrayHeaderSize + msgp.StringPrefixSize + len(a.Name) + msgp.StringPrefixSize + len(a.Address)
}

// MarshalMsg implements msgp.Marshaler. A Message is a 7-element array:
// [From, To, Cc, Bcc, Subject, Timestamp-or-nil, Body].
func (m Message) MarshalMsg(b []byte) ([]byte, error) {
	o := msgp.AppendArrayHeader(b, 7)

	var err error
	if o, err = m.From.MarshalMsg(o); err != nil {
		return nil, err
	}
	if o, err = marshalAddressList(o, m.To); err != nil {
		return nil, err
	}
	if o, err = marshalAddressList(o, m.Cc); err != nil {
		return nil, err
	}
	if o, err = marshalAddressList(o, m.Bcc); err != nil {
		return nil, err
	}
	o = msgp.AppendString(o, m.Subject)

	if m.Timestamp == nil {
		o = msgp.AppendNil(o)
	} else {
		o = msgp.AppendInt64(o, *m.Timestamp)
	}

	o, err = marshalBody(o, m.Body)
	if err != nil {
		return nil, err
	}
	return o, nil
}

// UnmarshalMsg implements msgp.Unmarshaler.
func (m *Message) UnmarshalMsg(bts []byte) ([]byte, error) {
	sz, bts, err := msgp.ReadArrayHeaderBytes(bts)
	if err != nil {
		return nil, err
	}
	if sz != 7 {
		return nil, fmt.Errorf("smtpc: Message array has %d elements, want 7", sz)
	}

	if bts, err = m.From.UnmarshalMsg(bts); err != nil {
		return nil, err
	}
	if m.To, bts, err = unmarshalAddressList(bts); err != nil {
		return nil, err
	}
	if m.Cc, bts, err = unmarshalAddressList(bts); err != nil {
		return nil, err
	}
	if m.Bcc, bts, err = unmarshalAddressList(bts); err != nil {
		return nil, err
	}
	if m.Subject, bts, err = msgp.ReadStringBytes(bts); err != nil {
		return nil, err
	}

	if msgp.IsNil(bts) {
		bts, err = msgp.ReadNilBytes(bts)
		if err != nil {
			return nil, err
		}
		m.Timestamp = nil
	} else {
		var ts int64
		ts, bts, err = msgp.ReadInt64Bytes(bts)
		if err != nil {
			return nil, err
		}
		m.Timestamp = &ts
	}

	m.Body, bts, err = unmarshalBody(bts)
	if err != nil {
		return nil, err
	}
	return bts, nil
}

// Msgsize implements msgp.Sizer.
func (m Message) Msgsize() int {
	size := msgp.ArrayHeaderSize
	size += m.From.Msgsize()
	size += addressListMsgsize(m.To)
	size += addressListMsgsize(m.Cc)
	size += addressListMsgsize(m.Bcc)
	size += msgp.StringPrefixSize + len(m.Subject)
	size += msgp.Int64Size
	size += bodyMsgsize(m.Body)
	return size
}

func marshalAddressList(b []byte, addrs []Address) ([]byte, error) {
	o := msgp.AppendArrayHeader(b, uint32(len(addrs)))
	var err error
	for _, a := range addrs {
		if o, err = a.MarshalMsg(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

func unmarshalAddressList(bts []byte) ([]Address, []byte, error) {
	sz, bts, err := msgp.ReadArrayHeaderBytes(bts)
	if err != nil {
		return nil, nil, err
	}
	addrs := make([]Address, sz)
	for i := range addrs {
		if bts, err = addrs[i].UnmarshalMsg(bts); err != nil {
			return nil, nil, err
		}
	}
	return addrs, bts, nil
}

func addressListMsgsize(addrs []Address) int {
	size := msgp.ArrayHeaderSize
	for _, a := range addrs {
		size += a.Msgsize()
	}
	return size
}

func marshalBody(b []byte, body Body) ([]byte, error) {
	switch {
	case body.Single != nil:
		o := msgp.AppendArrayHeader(b, 2)
		o = msgp.AppendInt(o, bodyKindSingle)
		return marshalSingle(o, body.Single)
	case body.Alternative != nil:
		o := msgp.AppendArrayHeader(b, 2)
		o = msgp.AppendInt(o, bodyKindAlternative)
		return marshalAlternative(o, body.Alternative), nil
	case body.Mixed != nil:
		o := msgp.AppendArrayHeader(b, 2)
		o = msgp.AppendInt(o, bodyKindMixed)
		return marshalMixedOrRelated(o, body.Mixed.Text, body.Mixed.HTML, body.Mixed.Attachments)
	case body.Related != nil:
		o := msgp.AppendArrayHeader(b, 2)
		o = msgp.AppendInt(o, bodyKindRelated)
		return marshalMixedOrRelated(o, body.Related.Text, body.Related.HTML, body.Related.Attachments)
	default:
		panic("smtpc: message body has no variant set")
	}
}

func unmarshalBody(bts []byte) (Body, []byte, error) {
	sz, bts, err := msgp.ReadArrayHeaderBytes(bts)
	if err != nil {
		return Body{}, nil, err
	}
	if sz != 2 {
		return Body{}, nil, fmt.Errorf("smtpc: Body array has %d elements, want 2", sz)
	}
	kind, bts, err := msgp.ReadIntBytes(bts)
	if err != nil {
		return Body{}, nil, err
	}

	switch kind {
	case bodyKindSingle:
		s, rest, err := unmarshalSingle(bts)
		return Body{Single: s}, rest, err
	case bodyKindAlternative:
		alt, rest, err := unmarshalAlternative(bts)
		return Body{Alternative: alt}, rest, err
	case bodyKindMixed:
		text, html, atts, rest, err := unmarshalMixedOrRelated(bts)
		if err != nil {
			return Body{}, nil, err
		}
		return Body{Mixed: &MixedBody{Text: text, HTML: html, Attachments: atts}}, rest, nil
	case bodyKindRelated:
		text, html, atts, rest, err := unmarshalMixedOrRelated(bts)
		if err != nil {
			return Body{}, nil, err
		}
		return Body{Related: &RelatedBody{Text: text, HTML: html, Attachments: atts}}, rest, nil
	default:
		return Body{}, nil, fmt.Errorf("smtpc: unknown body kind %d", kind)
	}
}

func bodyMsgsize(body Body) int {
	size := msgp.ArrayHeaderSize + msgp.IntSize
	switch {
	case body.Single != nil:
		size += singleMsgsize(body.Single)
	case body.Alternative != nil:
		size += alternativeMsgsize(body.Alternative)
	case body.Mixed != nil:
		size += mixedOrRelatedMsgsize(body.Mixed.Text, body.Mixed.HTML, body.Mixed.Attachments)
	case body.Related != nil:
		size += mixedOrRelatedMsgsize(body.Related.Text, body.Related.HTML, body.Related.Attachments)
	}
	return size
}

func marshalSingle(b []byte, s *SingleBody) ([]byte, error) {
	o := msgp.AppendArrayHeader(b, 3)
	o = msgp.AppendString(o, s.Text)
	o = msgp.AppendString(o, s.HTML)
	if s.Attachment == nil {
		o = msgp.AppendNil(o)
		return o, nil
	}
	return marshalAttachment(o, s.Attachment), nil
}

func unmarshalSingle(bts []byte) (*SingleBody, []byte, error) {
	sz, bts, err := msgp.ReadArrayHeaderBytes(bts)
	if err != nil {
		return nil, nil, err
	}
	if sz != 3 {
		return nil, nil, fmt.Errorf("smtpc: SingleBody array has %d elements, want 3", sz)
	}
	s := &SingleBody{}
	if s.Text, bts, err = msgp.ReadStringBytes(bts); err != nil {
		return nil, nil, err
	}
	if s.HTML, bts, err = msgp.ReadStringBytes(bts); err != nil {
		return nil, nil, err
	}
	if msgp.IsNil(bts) {
		bts, err = msgp.ReadNilBytes(bts)
		return s, bts, err
	}
	s.Attachment, bts, err = unmarshalAttachment(bts)
	return s, bts, err
}

func singleMsgsize(s *SingleBody) int {
	size := msgp.ArrayHeaderSize
	size += msgp.StringPrefixSize + len(s.Text)
	size += msgp.StringPrefixSize + len(s.HTML)
	if s.Attachment == nil {
		size += msgp.NilSize
	} else {
		size += attachmentMsgsize(s.Attachment)
	}
	return size
}

func marshalAlternative(b []byte, alt *AlternativeBody) []byte {
	o := msgp.AppendArrayHeader(b, 2)
	o = msgp.AppendString(o, alt.Text)
	o = msgp.AppendString(o, alt.HTML)
	return o
}

func unmarshalAlternative(bts []byte) (*AlternativeBody, []byte, error) {
	sz, bts, err := msgp.ReadArrayHeaderBytes(bts)
	if err != nil {
		return nil, nil, err
	}
	if sz != 2 {
		return nil, nil, fmt.Errorf("smtpc: AlternativeBody array has %d elements, want 2", sz)
	}
	alt := &AlternativeBody{}
	if alt.Text, bts, err = msgp.ReadStringBytes(bts); err != nil {
		return nil, nil, err
	}
	if alt.HTML, bts, err = msgp.ReadStringBytes(bts); err != nil {
		return nil, nil, err
	}
	return alt, bts, nil
}

func alternativeMsgsize(alt *AlternativeBody) int {
	return msgp.ArrayHeaderSize + msgp.StringPrefixSize + len(alt.Text) + msgp.StringPrefixSize + len(alt.HTML)
}

func marshalMixedOrRelated(b []byte, text, html string, atts []Attachment) ([]byte, error) {
	o := msgp.AppendArrayHeader(b, 3)
	o = msgp.AppendString(o, text)
	o = msgp.AppendString(o, html)
	o = msgp.AppendArrayHeader(o, uint32(len(atts)))
	for i := range atts {
		o = marshalAttachment(o, &atts[i])
	}
	return o, nil
}

func unmarshalMixedOrRelated(bts []byte) (text, html string, atts []Attachment, rest []byte, err error) {
	sz, bts, err := msgp.ReadArrayHeaderBytes(bts)
	if err != nil {
		return "", "", nil, nil, err
	}
	if sz != 3 {
		return "", "", nil, nil, fmt.Errorf("smtpc: body array has %d elements, want 3", sz)
	}
	if text, bts, err = msgp.ReadStringBytes(bts); err != nil {
		return "", "", nil, nil, err
	}
	if html, bts, err = msgp.ReadStringBytes(bts); err != nil {
		return "", "", nil, nil, err
	}
	asz, bts, err := msgp.ReadArrayHeaderBytes(bts)
	if err != nil {
		return "", "", nil, nil, err
	}
	atts = make([]Attachment, asz)
	for i := range atts {
		var a *Attachment
		a, bts, err = unmarshalAttachment(bts)
		if err != nil {
			return "", "", nil, nil, err
		}
		atts[i] = *a
	}
	return text, html, atts, bts, nil
}

func mixedOrRelatedMsgsize(text, html string, atts []Attachment) int {
	size := msgp.ArrayHeaderSize
	size += msgp.StringPrefixSize + len(text)
	size += msgp.StringPrefixSize + len(html)
	size += msgp.ArrayHeaderSize
	for i := range atts {
		size += attachmentMsgsize(&atts[i])
	}
	return size
}

func marshalAttachment(b []byte, a *Attachment) []byte {
	o := msgp.AppendArrayHeader(b, 6)
	o = msgp.AppendInt(o, int(a.Kind))
	o = msgp.AppendString(o, a.Name)
	o = msgp.AppendString(o, a.ContentType)
	o = msgp.AppendBytes(o, a.Bytes)
	o = msgp.AppendString(o, a.ContentID.token)
	o = msgp.AppendString(o, a.ContentID.domain)
	return o
}

func unmarshalAttachment(bts []byte) (*Attachment, []byte, error) {
	sz, bts, err := msgp.ReadArrayHeaderBytes(bts)
	if err != nil {
		return nil, nil, err
	}
	if sz != 6 {
		return nil, nil, fmt.Errorf("smtpc: Attachment array has %d elements, want 6", sz)
	}
	a := &Attachment{}
	kind, bts, err := msgp.ReadIntBytes(bts)
	if err != nil {
		return nil, nil, err
	}
	a.Kind = AttachmentKind(kind)
	if a.Name, bts, err = msgp.ReadStringBytes(bts); err != nil {
		return nil, nil, err
	}
	if a.ContentType, bts, err = msgp.ReadStringBytes(bts); err != nil {
		return nil, nil, err
	}
	if a.Bytes, bts, err = msgp.ReadBytesBytes(bts, nil); err != nil {
		return nil, nil, err
	}
	if a.ContentID.token, bts, err = msgp.ReadStringBytes(bts); err != nil {
		return nil, nil, err
	}
	if a.ContentID.domain, bts, err = msgp.ReadStringBytes(bts); err != nil {
		return nil, nil, err
	}
	return a, bts, nil
}

func attachmentMsgsize(a *Attachment) int {
	size := msgp.ArrayHeaderSize
	size += msgp.IntSize
	size += msgp.StringPrefixSize + len(a.Name)
	size += msgp.StringPrefixSize + len(a.ContentType)
	size += msgp.BytesPrefixSize + len(a.Bytes)
	size += msgp.StringPrefixSize + len(a.ContentID.token)
	size += msgp.StringPrefixSize + len(a.ContentID.domain)
	return size
}
