// Package mail defines the outbound notification boundary of the auth core.
// Rendering and delivery belong to an external collaborator; the core only
// hands over fully-formed messages.
package mail

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// Message is a plain transactional email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers transactional messages out-of-band.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LogSender writes messages to the log instead of delivering them. It is
// the development default.
type LogSender struct{}

// Send implements Sender.
func (LogSender) Send(_ context.Context, msg Message) error {
	log.WithField("to", msg.To).WithField("subject", msg.Subject).Info("outbound email")
	return nil
}

// ActivationCodeMessage carries the account activation code.
func ActivationCodeMessage(to, name, code string) Message {
	if name == "" {
		name = to
	}
	return Message{
		To:      to,
		Subject: "Just one more step to join Maskbox",
		Body: fmt.Sprintf(
			"Hi %s,\n\nYour activation code is %s. Enter it in the app to finish signing up.\n", name, code),
	}
}

// SuspiciousLoginMessage warns about a failed second-factor attempt.
func SuspiciousLoginMessage(to, method string) Message {
	return Message{
		To:      to,
		Subject: "Suspicious login attempt on your Maskbox account",
		Body: fmt.Sprintf(
			"Someone just failed a %s check while signing in to your account. If this wasn't you, consider changing your password.\n", method),
	}
}

// WelcomeMessage greets a newly activated account.
func WelcomeMessage(to, name string) Message {
	if name == "" {
		name = to
	}
	return Message{
		To:      to,
		Subject: "Welcome to Maskbox",
		Body:    fmt.Sprintf("Hi %s,\n\nYour account is ready.\n", name),
	}
}

// ResetPasswordMessage starts the password reset flow.
func ResetPasswordMessage(to string) Message {
	return Message{
		To:      to,
		Subject: "Reset your Maskbox password",
		Body:    "Follow the link in your app to choose a new password.\n",
	}
}
