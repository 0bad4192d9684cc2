// Package notify renders and delivers account emails. The only message the
// service sends today is the password reset.
package notify

import (
	"bytes"
	"context"
	"fmt"
	htmltemplate "html/template"
	"net/url"
	"strings"
	texttemplate "text/template"
	"time"

	"fintrack/internal/log"
)

// Email is a rendered message ready for a Sender.
type Email struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

type Sender interface {
	Send(ctx context.Context, msg Email) error
	Name() string
}

// PasswordReset is the payload both the direct path and the queue carry.
type PasswordReset struct {
	Email     string
	FullName  string
	Token     string
	ExpiresAt time.Time
}

const resetSubject = "Fintrack password reset"

var resetHTML = htmltemplate.Must(htmltemplate.New("reset.html").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif;">
  <p>Hi {{.Name}},</p>
  <p>We received a request to reset your Fintrack password.</p>
  {{if .Link}}<p><a href="{{.Link}}">Reset your password</a></p>{{end}}
  <p>Your reset token is:</p>
  <p style="font-family: monospace; font-size: 16px;"><strong>{{.Token}}</strong></p>
  <p>The token expires at {{.Expires}} (UTC).</p>
  <p>If you did not request this, you can ignore this email.</p>
</body>
</html>
`))

var resetText = texttemplate.Must(texttemplate.New("reset.txt").Parse(`Hi {{.Name}},

We received a request to reset your Fintrack password.
{{if .Link}}
Reset link: {{.Link}}
{{end}}
Your reset token is: {{.Token}}
The token expires at {{.Expires}} (UTC).

If you did not request this, you can ignore this email.
`))

type resetView struct {
	Name    string
	Token   string
	Link    string
	Expires string
}

// RenderPasswordReset builds the HTML and plain-text bodies. A reset link is
// included when linkBase is set.
func RenderPasswordReset(msg PasswordReset, linkBase string) (Email, error) {
	view := resetView{
		Name:    strings.TrimSpace(msg.FullName),
		Token:   msg.Token,
		Expires: msg.ExpiresAt.UTC().Format("2006-01-02 15:04"),
	}
	if view.Name == "" {
		view.Name = "there"
	}
	if base := strings.TrimSpace(linkBase); base != "" {
		sep := "?"
		if strings.Contains(base, "?") {
			sep = "&"
		}
		view.Link = base + sep + "token=" + url.QueryEscape(msg.Token)
	}

	var htmlBuf, textBuf bytes.Buffer
	if err := resetHTML.Execute(&htmlBuf, view); err != nil {
		return Email{}, fmt.Errorf("render reset html: %w", err)
	}
	if err := resetText.Execute(&textBuf, view); err != nil {
		return Email{}, fmt.Errorf("render reset text: %w", err)
	}
	return Email{
		To:      msg.Email,
		Subject: resetSubject,
		Text:    textBuf.String(),
		HTML:    htmlBuf.String(),
	}, nil
}

// Mailer renders reset messages and hands them to the configured Sender.
type Mailer struct {
	sender   Sender
	linkBase string
	logger   *log.Logger
}

func NewMailer(sender Sender, linkBase string, logger *log.Logger) *Mailer {
	return &Mailer{
		sender:   sender,
		linkBase: linkBase,
		logger:   logger.WithComponent(log.ComponentNotify),
	}
}

func (m *Mailer) SendPasswordReset(ctx context.Context, msg PasswordReset) error {
	email, err := m.RenderPasswordReset(msg)
	if err != nil {
		return err
	}
	if err := m.sender.Send(ctx, email); err != nil {
		m.logger.ErrorContext(ctx, "Failed to send password reset email",
			log.FieldProvider, m.sender.Name(), log.FieldError, err)
		return fmt.Errorf("send password reset via %s: %w", m.sender.Name(), err)
	}
	m.logger.InfoContext(ctx, "Password reset email sent", log.FieldProvider, m.sender.Name())
	return nil
}

func (m *Mailer) RenderPasswordReset(msg PasswordReset) (Email, error) {
	return RenderPasswordReset(msg, m.linkBase)
}

// Dispatcher hands a reset off for delivery, either directly or through a
// queue consumed by the notify worker.
type Dispatcher interface {
	DispatchPasswordReset(ctx context.Context, msg PasswordReset) error
}

// DispatchPasswordReset sends immediately.
func (m *Mailer) DispatchPasswordReset(ctx context.Context, msg PasswordReset) error {
	return m.SendPasswordReset(ctx, msg)
}
