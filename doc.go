// Package smtpc is a client library for the Simple Mail Transfer Protocol.
//
// It dials a mail submission endpoint, negotiates ESMTP extensions,
// optionally upgrades the connection to TLS (implicit TLS from the first
// byte, or opportunistic STARTTLS), authenticates the sender, and streams
// a composed RFC 5322 / MIME message through to the server.
//
// # Basic usage
//
//	client, err := smtpc.Dial("smtp://smtp.example.com:587", nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	err = client.Send(&smtpc.Message{
//	    From:    smtpc.Address{Address: "sender@example.com"},
//	    To:      []smtpc.Address{{Address: "recipient@example.com"}},
//	    Subject: "Hello",
//	    Body:    smtpc.Body{Single: &smtpc.SingleBody{Text: "Hello there"}},
//	}, &smtpc.Credentials{Username: "user", Password: "pass"})
//
// The client is not safe for concurrent use by multiple goroutines; each
// session owns one connection and drives one SMTP dialog at a time.
package smtpc
