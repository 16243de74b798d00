package smtpc

import "testing"

func TestParseEndpoint_SMTPDefaultPort(t *testing.T) {
	ep, err := parseEndpoint("smtp://mail.example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ep.hostport != "mail.example.com:1025" || ep.tls {
		t.Errorf("got %+v", ep)
	}
}

func TestParseEndpoint_SMTPSDefaultPort(t *testing.T) {
	ep, err := parseEndpoint("smtps://mail.example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ep.hostport != "mail.example.com:465" || !ep.tls {
		t.Errorf("got %+v", ep)
	}
}

func TestParseEndpoint_ExplicitPort(t *testing.T) {
	ep, err := parseEndpoint("smtp://mail.example.com:587")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ep.hostport != "mail.example.com:587" {
		t.Errorf("got %+v", ep)
	}
}

func TestParseEndpoint_UnsupportedScheme(t *testing.T) {
	if _, err := parseEndpoint("ftp://mail.example.com"); err == nil {
		t.Error("expected error for unsupported scheme")
	}
}

func TestParseEndpoint_MissingHost(t *testing.T) {
	if _, err := parseEndpoint("smtp://"); err == nil {
		t.Error("expected error for missing host")
	}
}
