// Package notify delivers outbound text to channel-specific recipient
// handles. Channels are independent: a chat failure never implies an email
// failure and vice versa.
package notify

import "context"

// Sender delivers one message. recipient is channel-specific (a chat handle
// or an email address); subject is ignored by channels without one.
type Sender interface {
	Send(ctx context.Context, recipient, subject, body string) error
}
