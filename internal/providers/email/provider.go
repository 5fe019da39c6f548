// Package email delivers transactional mail through a pluggable provider.
package email

import "context"

// Message is a rendered mail ready for delivery.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Provider sends a rendered message. Implementations must be safe for
// concurrent use.
type Provider interface {
	Send(ctx context.Context, msg Message) error
}
