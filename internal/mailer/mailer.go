// Package mailer sends the transactional emails of the Finance API
package mailer

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/nsvirk/financeapi/internal/config"
	"gopkg.in/gomail.v2"
)

// Dispatcher delivers the two-factor code to a user
type Dispatcher interface {
	SendTwoFactorCode(ctx context.Context, to, firstName, code string) error
}

const twoFactorSubject = "Your verification code"

var twoFactorHTML = template.Must(template.New("twofactor").Parse(
	`<p>Hi {{.FirstName}},</p>
<p>Your verification code is <strong>{{.Code}}</strong>.</p>
<p>The code expires in {{.Minutes}} minutes. If you did not try to sign in, you can ignore this email.</p>`))

// SMTPMailer sends emails through an SMTP relay
type SMTPMailer struct {
	dialer     *gomail.Dialer
	from       string
	ttlMinutes int
}

// NewSMTPMailer creates an SMTP mailer from the configuration
func NewSMTPMailer(cfg *config.Config) *SMTPMailer {
	return &SMTPMailer{
		dialer:     gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword),
		from:       cfg.SMTPFrom,
		ttlMinutes: int(cfg.SessionTTL.Minutes()),
	}
}

// SendTwoFactorCode emails the code, the send is abandoned if ctx is done first
func (m *SMTPMailer) SendTwoFactorCode(ctx context.Context, to, firstName, code string) error {
	msg, err := m.twoFactorMessage(to, firstName, code)
	if err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() {
		done <- m.dialer.DialAndSend(msg)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to send email: %v", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *SMTPMailer) twoFactorMessage(to, firstName, code string) (*gomail.Message, error) {
	var html bytes.Buffer
	err := twoFactorHTML.Execute(&html, struct {
		FirstName string
		Code      string
		Minutes   int
	}{firstName, code, m.ttlMinutes})
	if err != nil {
		return nil, fmt.Errorf("failed to render email: %v", err)
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", twoFactorSubject)
	msg.SetBody("text/plain", fmt.Sprintf("Hi %s,\n\nYour verification code is %s.\nThe code expires in %d minutes.\n", firstName, code, m.ttlMinutes))
	msg.AddAlternative("text/html", html.String())
	return msg, nil
}
