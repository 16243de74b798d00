package smtpc

import (
	"strings"

	"golang.org/x/net/idna"
)

// wireAddress renders addr the way it must appear on a MAIL FROM/RCPT TO
// command line: unchanged when the domain is ASCII or the server
// negotiated SMTPUTF8, otherwise with its domain converted to punycode
// (A-label) form so the command stays within what a non-SMTPUTF8 server
// can parse.
func wireAddress(addr Address, ext ClientExtensions) (string, error) {
	if ext.SMTPUTF8 || !containsHighBit(addr.Address) {
		return addr.Address, nil
	}

	at := strings.LastIndexByte(addr.Address, '@')
	if at < 0 {
		return addr.Address, nil
	}
	local, domain := addr.Address[:at], addr.Address[at+1:]

	ascii, err := idna.ToASCII(domain)
	if err != nil {
		return "", newError(ErrExpectedEmailDomain, "domain punycode conversion failed: "+err.Error())
	}
	return local + "@" + ascii, nil
}
