// Package mail builds the account emails TaskFlow sends. Delivery is behind
// the Mailer interface; the shipped LogMailer writes each message to the log.
package mail

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Message is a rendered plain text email.
type Message struct {
	To      string
	Subject string
	Body    string
	Link    string
}

// Mailer delivers account emails. Implementations must be safe for
// concurrent use.
type Mailer interface {
	SendVerification(ctx context.Context, to, firstName, link string) error
	SendPasswordReset(ctx context.Context, to, link string) error
}

// Sender identifies the From address of outgoing mail.
type Sender struct {
	AppName     string
	FromAddress string
	FromName    string
}

func (s Sender) From() string {
	if s.FromName == "" {
		return s.FromAddress
	}
	return fmt.Sprintf("%s <%s>", s.FromName, s.FromAddress)
}

// VerificationMessage renders the email sent after registration and on resend.
func (s Sender) VerificationMessage(to, firstName, link string) Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", firstName)
	fmt.Fprintf(&b, "Thank you for signing up for %s! To get started, please verify your email address by visiting this link:\n\n", s.AppName)
	fmt.Fprintf(&b, "%s\n\n", link)
	b.WriteString("This verification link will expire in 24 hours for security reasons.\n\n")
	fmt.Fprintf(&b, "If you didn't create an account with %s, you can safely ignore this email.\n", s.AppName)

	return Message{
		To:      to,
		Subject: fmt.Sprintf("Verify your %s account", s.AppName),
		Body:    b.String(),
		Link:    link,
	}
}

// PasswordResetMessage renders the reset link email.
func (s Sender) PasswordResetMessage(to, link string) Message {
	var b strings.Builder
	b.WriteString("Password Reset Request\n\n")
	fmt.Fprintf(&b, "We received a request to reset the password for your %s account (%s).\n\n", s.AppName, to)
	fmt.Fprintf(&b, "To reset your password, visit this link:\n%s\n\n", link)
	b.WriteString("This password reset link will expire in 1 hour for security reasons.\n\n")
	b.WriteString("If you didn't request a password reset, you can safely ignore this email. Your password will not be changed.\n")

	return Message{
		To:      to,
		Subject: fmt.Sprintf("Reset your %s password", s.AppName),
		Body:    b.String(),
		Link:    link,
	}
}

// LogMailer logs messages instead of sending them.
type LogMailer struct {
	Sender Sender
	Logger *slog.Logger
}

func NewLogMailer(sender Sender, logger *slog.Logger) *LogMailer {
	return &LogMailer{Sender: sender, Logger: logger}
}

func (m *LogMailer) SendVerification(ctx context.Context, to, firstName, link string) error {
	return m.deliver(ctx, m.Sender.VerificationMessage(to, firstName, link))
}

func (m *LogMailer) SendPasswordReset(ctx context.Context, to, link string) error {
	return m.deliver(ctx, m.Sender.PasswordResetMessage(to, link))
}

func (m *LogMailer) deliver(ctx context.Context, msg Message) error {
	m.Logger.InfoContext(ctx, "email queued",
		slog.String("from", m.Sender.From()),
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.String("link", msg.Link),
	)
	m.Logger.DebugContext(ctx, "email body", slog.String("body", msg.Body))
	return nil
}
