package smtpc

import "net/url"

const (
	defaultSMTPPort  = "1025"
	defaultSMTPSPort = "465"
)

// endpoint is a parsed server URL: the resolved host:port and whether the
// scheme requires implicit TLS.
type endpoint struct {
	hostport string
	tls      bool
}

// parseEndpoint parses "smtp://host[:port]" (default port 1025) and
// "smtps://host[:port]" (default port 465).
func parseEndpoint(raw string) (*endpoint, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, newError(ErrInvalidSMTPScheme, err.Error())
	}

	var tlsOn bool
	var defaultPort string
	switch u.Scheme {
	case "smtp":
		tlsOn, defaultPort = false, defaultSMTPPort
	case "smtps":
		tlsOn, defaultPort = true, defaultSMTPSPort
	default:
		return nil, newError(ErrInvalidSMTPScheme, "unsupported scheme: "+u.Scheme)
	}

	host := u.Hostname()
	if host == "" {
		return nil, newError(ErrURIMissingHost, "server URL is missing a host")
	}

	port := u.Port()
	if port == "" {
		port = defaultPort
	}

	return &endpoint{hostport: host + ":" + port, tls: tlsOn}, nil
}
