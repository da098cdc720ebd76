package mail

import "context"

// Mailer is the narrow send-email capability the auth flow depends on.
// Delivery is awaited: a failure must surface to the caller, never be
// swallowed.
type Mailer interface {
	Send(ctx context.Context, to, subject, html string) error
}
