package mailer

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"
)

// Mailer delivers one-time verification codes.
type Mailer interface {
	SendOTP(to, name, code string) error
}

var otpTemplate = template.Must(template.New("otp").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #222;">
  <h2>Welcome to StudX{{if .Name}}, {{.Name}}{{end}}!</h2>
  <p>Use the code below to verify your e-mail address:</p>
  <p style="font-size: 28px; font-weight: bold; letter-spacing: 6px;">{{.Code}}</p>
  <p>The code expires in {{.ExpiresIn}}. If you did not sign up, ignore this message.</p>
</body>
</html>`))

type SMTPMailer struct {
	dialer    *gomail.Dialer
	from      string
	expiresIn string
}

func NewSMTPMailer(host string, port int, username, password, from, expiresIn string) *SMTPMailer {
	if from == "" {
		from = username
	}
	return &SMTPMailer{
		dialer:    gomail.NewDialer(host, port, username, password),
		from:      from,
		expiresIn: expiresIn,
	}
}

func (m *SMTPMailer) SendOTP(to, name, code string) error {
	body, err := renderOTP(name, code, m.expiresIn)
	if err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", "Your StudX verification code")
	msg.SetBody("text/html", body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send otp email: %w", err)
	}
	return nil
}

func renderOTP(name, code, expiresIn string) (string, error) {
	buf := new(bytes.Buffer)
	err := otpTemplate.Execute(buf, map[string]string{
		"Name":      name,
		"Code":      code,
		"ExpiresIn": expiresIn,
	})
	if err != nil {
		return "", fmt.Errorf("render otp template: %w", err)
	}
	return buf.String(), nil
}

// LogMailer writes codes to the log instead of sending them. Used when SMTP
// credentials are absent.
type LogMailer struct {
	logger zerolog.Logger
}

func NewLogMailer(logger zerolog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) SendOTP(to, name, code string) error {
	m.logger.Warn().Str("to", to).Str("otp", code).Msg("SMTP not configured, OTP logged instead of e-mailed")
	return nil
}
