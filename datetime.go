package smtpc

import "time"

// rfc822Date formats a Unix timestamp (seconds) as an RFC 822 date
// string. Callers resolve a nil Message.Timestamp to "now" via
// resolveTimestamp before calling this.
func rfc822Date(unixSeconds int64) string {
	return time.Unix(unixSeconds, 0).UTC().Format("02 Jan 2006 15:04:05 -0700")
}

// resolveTimestamp returns msg.Timestamp if set, otherwise now().
func resolveTimestamp(msg *Message, now func() time.Time) int64 {
	if msg.Timestamp != nil {
		return *msg.Timestamp
	}
	return now().Unix()
}
