package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"net"
	"net/mail"
	"net/smtp"
	"strconv"
	"strings"

	"fintrack/internal/log"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/mailgun/mailgun-go/v4"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Settings select and configure an email provider.
type Settings struct {
	Provider      string
	FromEmail     string
	FromName      string
	SMTPHost      string
	SMTPPort      int
	SMTPUsername  string
	SMTPPassword  string
	SMTPEnableSSL bool
	SendGridKey   string
	MailgunDomain string
	MailgunKey    string
	AWSRegion     string
}

func (s Settings) from() string {
	return (&mail.Address{Name: s.FromName, Address: s.FromEmail}).String()
}

// NewSender returns the Sender for s.Provider. Unknown providers, "none", and
// providers with incomplete settings fall back to a sender that only logs.
func NewSender(ctx context.Context, s Settings, logger *log.Logger) (Sender, error) {
	logger = logger.WithComponent(log.ComponentNotify)
	provider := strings.ToLower(strings.TrimSpace(s.Provider))
	skip := func(reason string) Sender {
		logger.Warn("Email delivery disabled", log.FieldProvider, provider, "reason", reason)
		return &NoopSender{logger: logger, reason: reason}
	}

	if provider != "none" && strings.TrimSpace(s.FromEmail) == "" {
		return skip("sender address missing"), nil
	}

	switch provider {
	case "smtp":
		if s.SMTPHost == "" {
			return skip("SMTP host missing"), nil
		}
		return &SMTPSender{settings: s}, nil
	case "sendgrid":
		if s.SendGridKey == "" {
			return skip("SendGrid API key missing"), nil
		}
		return &SendGridSender{client: sendgrid.NewSendClient(s.SendGridKey), fromName: s.FromName, fromEmail: s.FromEmail}, nil
	case "mailgun":
		if s.MailgunDomain == "" || s.MailgunKey == "" {
			return skip("Mailgun domain or API key missing"), nil
		}
		return &MailgunSender{mg: mailgun.NewMailgun(s.MailgunDomain, s.MailgunKey), from: s.from()}, nil
	case "ses":
		opts := []func(*awsconfig.LoadOptions) error{}
		if s.AWSRegion != "" {
			opts = append(opts, awsconfig.WithRegion(s.AWSRegion))
		}
		cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		if cfg.Region == "" {
			return skip("AWS region missing"), nil
		}
		return &SESSender{client: sesv2.NewFromConfig(cfg), from: s.from()}, nil
	case "none":
		return skip("provider set to none"), nil
	default:
		return skip("unknown provider"), nil
	}
}

// NoopSender drops messages with a warning.
type NoopSender struct {
	logger *log.Logger
	reason string
}

func (n *NoopSender) Name() string { return "none" }

func (n *NoopSender) Send(ctx context.Context, msg Email) error {
	n.logger.WarnContext(ctx, "Skipping email send", "subject", msg.Subject, "reason", n.reason)
	return nil
}

// SMTPSender delivers through net/smtp. With SSL enabled it uses implicit
// TLS on port 465 and STARTTLS elsewhere.
type SMTPSender struct {
	settings Settings
}

func (s *SMTPSender) Name() string { return "smtp" }

func (s *SMTPSender) Send(ctx context.Context, msg Email) error {
	st := s.settings
	addr := net.JoinHostPort(st.SMTPHost, strconv.Itoa(st.SMTPPort))

	var auth smtp.Auth
	if st.SMTPUsername != "" {
		auth = smtp.PlainAuth("", st.SMTPUsername, st.SMTPPassword, st.SMTPHost)
	}

	dialer := &net.Dialer{}
	var conn net.Conn
	var err error
	if st.SMTPEnableSSL && st.SMTPPort == 465 {
		conn, err = (&tls.Dialer{NetDialer: dialer, Config: &tls.Config{ServerName: st.SMTPHost}}).DialContext(ctx, "tcp", addr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return fmt.Errorf("dial smtp %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	c, err := smtp.NewClient(conn, st.SMTPHost)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok && st.SMTPEnableSSL && st.SMTPPort != 465 {
		if err := c.StartTLS(&tls.Config{ServerName: st.SMTPHost}); err != nil {
			return fmt.Errorf("smtp starttls: %w", err)
		}
	}
	if auth != nil {
		if err := c.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := c.Mail(st.FromEmail); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := c.Rcpt(msg.To); err != nil {
		return fmt.Errorf("smtp rcpt to: %w", err)
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(buildMIME(st.from(), msg)); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp close data: %w", err)
	}
	return c.Quit()
}

const mimeBoundary = "fintrack-alt-boundary"

// buildMIME writes a multipart/alternative message with text and HTML parts.
func buildMIME(from string, msg Email) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + msg.To + "\r\n")
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", msg.Subject) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: multipart/alternative; boundary=" + mimeBoundary + "\r\n\r\n")
	b.WriteString("--" + mimeBoundary + "\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(msg.Text + "\r\n")
	b.WriteString("--" + mimeBoundary + "\r\n")
	b.WriteString("Content-Type: text/html; charset=utf-8\r\n\r\n")
	b.WriteString(msg.HTML + "\r\n")
	b.WriteString("--" + mimeBoundary + "--\r\n")
	return []byte(b.String())
}

type SendGridSender struct {
	client    *sendgrid.Client
	fromName  string
	fromEmail string
}

func (s *SendGridSender) Name() string { return "sendgrid" }

func (s *SendGridSender) Send(ctx context.Context, msg Email) error {
	from := sgmail.NewEmail(s.fromName, s.fromEmail)
	to := sgmail.NewEmail("", msg.To)
	message := sgmail.NewSingleEmail(from, msg.Subject, to, msg.Text, msg.HTML)
	resp, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid send: status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

type MailgunSender struct {
	mg   *mailgun.MailgunImpl
	from string
}

func (s *MailgunSender) Name() string { return "mailgun" }

func (s *MailgunSender) Send(ctx context.Context, msg Email) error {
	m := s.mg.NewMessage(s.from, msg.Subject, msg.Text, msg.To)
	m.SetHtml(msg.HTML)
	if _, _, err := s.mg.Send(ctx, m); err != nil {
		return fmt.Errorf("mailgun send: %w", err)
	}
	return nil
}

type SESSender struct {
	client *sesv2.Client
	from   string
}

func (s *SESSender) Name() string { return "ses" }

func (s *SESSender) Send(ctx context.Context, msg Email) error {
	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(s.from),
		Destination:      &types.Destination{ToAddresses: []string{msg.To}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(msg.Text), Charset: aws.String("UTF-8")},
					Html: &types.Content{Data: aws.String(msg.HTML), Charset: aws.String("UTF-8")},
				},
			},
		},
	}
	if _, err := s.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("ses send: %w", err)
	}
	return nil
}
