package smtpc

// Message is the structured value a caller hands to Client.Send. From
// is required; at least one address in To is required to send. A nil
// Timestamp means "now" at composition time.
type Message struct {
	From      Address
	To        []Address
	Cc        []Address
	Bcc       []Address
	Subject   string
	Timestamp *int64
	Body      Body
}

// Body is a tagged variant: exactly one of Single, Alternative, Mixed,
// or Related describes the message content. A zero Body is not valid
// for sending.
type Body struct {
	Single      *SingleBody
	Alternative *AlternativeBody
	Mixed       *MixedBody
	Related     *RelatedBody
}

// SingleBody is a single part: text, html, or a lone attachment. Exactly
// one of Text/HTML/Attachment should be set; an Attachment here must be
// of AttachmentKindAttached.
type SingleBody struct {
	Text       string
	HTML       string
	Attachment *Attachment
}

// AlternativeBody renders as multipart/alternative: both Text and HTML
// are required.
type AlternativeBody struct {
	Text string
	HTML string
}

// MixedBody renders as multipart/mixed: Text and/or HTML are optional,
// followed by Attachments, each of which must be AttachmentKindAttached.
type MixedBody struct {
	Text        string
	HTML        string
	Attachments []Attachment
}

// RelatedBody renders as multipart/related: HTML is required, Text is an
// optional sibling rendered via an outer multipart/alternative, and
// Attachments must all be AttachmentKindInlined and referenced from HTML
// via "cid:".
type RelatedBody struct {
	Text        string
	HTML        string
	Attachments []Attachment
}

// AttachmentKind distinguishes a regular file attachment from one meant
// to be referenced inline from an HTML body.
type AttachmentKind int

const (
	AttachmentKindAttached AttachmentKind = iota
	AttachmentKindInlined
)

// Attachment is one file carried by a message. ContentID is only
// meaningful (and only set) for AttachmentKindInlined attachments.
type Attachment struct {
	Kind        AttachmentKind
	Name        string
	ContentType string
	Bytes       []byte
	ContentID   ContentID
}
