// Package mailer defines the rendering and delivery contracts used by the
// notification engine. Transport is a deployment concern; binaries pick an
// implementation at startup.
package mailer

import "context"

// Renderer produces a mail body from a template id and its variables.
type Renderer interface {
	Render(templateID string, vars map[string]any) (string, error)
}

// Sender delivers one message to a set of recipients.
type Sender interface {
	Send(ctx context.Context, recipients []string, subject, body string) error
}
