package smtpc

import "strings"

// Address is an optional display-name paired with an address string,
// rendered in headers as "name <address>" or "<address>" when Name is
// empty.
type Address struct {
	Name    string
	Address string
}

// String renders the address the way it appears in a header value.
func (a Address) String() string {
	if a.Name == "" {
		return "<" + a.Address + ">"
	}
	return a.Name + " <" + a.Address + ">"
}

// domain returns the substring of Address after the last '@', and
// whether one was found. Used for Message-ID generation and for
// SMTPUTF8 punycode fallback.
func (a Address) domain() (string, bool) {
	idx := strings.LastIndexByte(a.Address, '@')
	if idx < 0 {
		return "", false
	}
	return a.Address[idx+1:], true
}

// formatAddressList joins a slice of Address into the comma-separated
// header value used for To/Cc/Bcc.
func formatAddressList(addrs []Address) string {
	parts := make([]string, len(addrs))
	for i, a := range addrs {
		parts[i] = a.String()
	}
	return strings.Join(parts, ", ")
}
