package mail

import (
	"context"
	"fmt"
	"html/template"
	"strings"

	gomail "github.com/wneessen/go-mail"

	"github.com/hivecrm/contactbook/internal/config"
)

// Mailer delivers transactional email. Registration sends the verification
// message through this interface so tests and dev setups can stub delivery.
type Mailer interface {
	SendVerification(ctx context.Context, to, verificationLink string) error
}

var verificationTemplate = template.Must(template.New("verification").Parse(`<html>
<body>
  <p>Welcome! Please confirm your email address.</p>
  <p><a href="{{.Link}}">Verify email</a></p>
  <p>If you did not create an account, ignore this message.</p>
</body>
</html>`))

// SMTPMailer implements Mailer over an SMTP relay.
type SMTPMailer struct {
	host     string
	port     int
	username string
	password string
	from     string
}

var _ Mailer = (*SMTPMailer)(nil)

// NewSMTPMailer constructs a mailer from the mail section of the config.
func NewSMTPMailer(cfg config.Config) *SMTPMailer {
	return &SMTPMailer{
		host:     cfg.MailServer,
		port:     cfg.MailPort,
		username: cfg.MailUsername,
		password: cfg.MailPassword,
		from:     cfg.MailFrom,
	}
}

// SendVerification renders and delivers the verification email.
func (m *SMTPMailer) SendVerification(ctx context.Context, to, verificationLink string) error {
	var body strings.Builder
	if err := verificationTemplate.Execute(&body, struct{ Link string }{Link: verificationLink}); err != nil {
		return fmt.Errorf("render verification email: %w", err)
	}

	msg := gomail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return fmt.Errorf("set sender: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("set recipient: %w", err)
	}
	msg.Subject("Email Verification")
	msg.SetBodyString(gomail.TypeTextHTML, body.String())

	client, err := gomail.NewClient(m.host,
		gomail.WithPort(m.port),
		gomail.WithSSL(),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(m.username),
		gomail.WithPassword(m.password),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send verification email: %w", err)
	}
	return nil
}
