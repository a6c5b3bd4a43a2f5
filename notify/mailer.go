package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"gopkg.in/gomail.v2"

	credAuth "github.com/MrEthical07/credAuth"
)

// Sender delivers composed messages. *gomail.Dialer satisfies it.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// Config holds the SMTP account and message branding.
type Config struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	// Product names the site in subjects and footers.
	Product string `yaml:"product"`
}

// Mailer sends security alerts and welcome mails over SMTP.
type Mailer struct {
	sender  Sender
	from    string
	product string
}

var _ credAuth.Notifier = (*Mailer)(nil)

// NewMailer dials cfg's SMTP server for every message.
func NewMailer(cfg Config) *Mailer {
	return NewMailerWithSender(gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password), cfg)
}

// NewMailerWithSender uses sender instead of an SMTP dialer.
func NewMailerWithSender(sender Sender, cfg Config) *Mailer {
	product := cfg.Product
	if product == "" {
		product = "credAuth"
	}
	return &Mailer{sender: sender, from: cfg.From, product: product}
}

// SendSecurityAlert tells the owner that repeated failed logins came from alert.IP.
func (m *Mailer) SendSecurityAlert(ctx context.Context, alert credAuth.SecurityAlert) error {
	body, err := render(alertTemplate, struct {
		credAuth.SecurityAlert
		Product string
	}{alert, m.product})
	if err != nil {
		return err
	}
	if err := m.send(ctx, alert.Email, "Suspicious Login Attempt Detected!", body); err != nil {
		return fmt.Errorf("failed to send security alert: %w", err)
	}
	return nil
}

// SendWelcome greets a newly registered account.
func (m *Mailer) SendWelcome(ctx context.Context, email, name string) error {
	body, err := render(welcomeTemplate, struct {
		Name    string
		Product string
	}{name, m.product})
	if err != nil {
		return err
	}
	if err := m.send(ctx, email, "Welcome to "+m.product+"!", body); err != nil {
		return fmt.Errorf("failed to send welcome email: %w", err)
	}
	return nil
}

// send runs the blocking SMTP exchange off the caller's goroutine so ctx can abandon it.
func (m *Mailer) send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body)

	done := make(chan error, 1)
	go func() {
		done <- m.sender.DialAndSend(msg)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render mail: %w", err)
	}
	return buf.String(), nil
}
