// Copyright (c) 2026 Roomkeeper. All rights reserved.

/*
Package mail provides outbound email delivery for transactional notifications.

It defines a narrow [Sender] interface so domain services stay testable, with a
production implementation backed by an authenticated SMTP relay.
*/
package mail

import (
	"context"
	"fmt"
	"net/smtp"
)

// Sender delivers a plain-text email to a single recipient.
type Sender interface {
	Send(ctx context.Context, recipient, subject, body string) error
}

// SMTPSender sends mail through a PLAIN-authenticated SMTP relay.
type SMTPSender struct {
	host     string
	port     int
	username string
	password string
	from     string
}

// NewSMTPSender constructs a sender for the given relay.
//
// # Parameters
//   - host: SMTP server hostname (without port).
//   - port: SMTP server port (typically 587 for STARTTLS).
//   - username: Relay account, also used as the From address.
//   - password: Relay account password.
func NewSMTPSender(host string, port int, username, password string) *SMTPSender {
	return &SMTPSender{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     username,
	}
}

// Send delivers the message, honoring context cancellation while the SMTP
// exchange is in flight.
func (s *SMTPSender) Send(ctx context.Context, recipient, subject, body string) error {
	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	auth := smtp.PlainAuth("", s.username, s.password, s.host)

	msg := []byte("From: " + s.from + "\r\n" +
		"To: " + recipient + "\r\n" +
		"Subject: " + subject + "\r\n\r\n" +
		body + "\r\n")

	// smtp.SendMail has no context support, so run it in a goroutine and
	// abandon the wait if the caller gives up. The SMTP connection itself is
	// bounded by the server's own timeouts.
	done := make(chan error, 1)
	go func() {
		done <- smtp.SendMail(addr, auth, s.from, []string{recipient}, msg)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("mail: delivery to relay %s failed: %w", addr, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("mail: delivery aborted: %w", ctx.Err())
	}
}
