// Package email delivers transactional mail. The concrete client talks to a
// Postmark-compatible HTTP API; handlers depend on the Sender interface so
// tests can capture outgoing mail instead.
package email

import "context"

// Message is a single outgoing email.
type Message struct {
	To       string
	Subject  string
	HTMLBody string
	TextBody string
}

// Sender delivers a message to one recipient.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}
