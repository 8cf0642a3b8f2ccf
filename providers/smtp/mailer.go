package smtp

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"blood-bank/providers"
)

type sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// Mailer versendet Nachrichten über SMTP. Port 465 nutzt implizites TLS.
type Mailer struct {
	From   string
	dialer sender
	Logger *zap.Logger
}

// NewMailer erstellt einen Mailer mit Login über Absenderadresse und Passwort.
func NewMailer(host string, port int, from, password string, logger *zap.Logger) *Mailer {
	d := gomail.NewDialer(host, port, from, password)
	d.SSL = port == 465
	return &Mailer{From: from, dialer: d, Logger: logger}
}

func (m *Mailer) Name() string { return "smtp" }

// Send baut die MIME-Nachricht und stellt sie zu. Der Context wird vor dem Wählen geprüft;
// gomail selbst kennt keinen Abbruch.
func (m *Mailer) Send(ctx context.Context, msg providers.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := m.dialer.DialAndSend(m.build(msg)); err != nil {
		m.Logger.Warn("SMTP delivery failed", zap.String("to", msg.To), zap.Error(err))
		return fmt.Errorf("smtp send: %w", err)
	}
	m.Logger.Info("Mail delivered", zap.String("to", msg.To), zap.Int("attachments", len(msg.Attachments)))
	return nil
}

func (m *Mailer) build(msg providers.Message) *gomail.Message {
	gm := gomail.NewMessage()
	gm.SetHeader("From", m.From)
	gm.SetHeader("To", msg.To)
	gm.SetHeader("Subject", msg.Subject)
	gm.SetBody("text/plain", msg.Body)
	for _, a := range msg.Attachments {
		data := a.Data
		settings := []gomail.FileSetting{
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(data)
				return err
			}),
		}
		if a.ContentType != "" {
			settings = append(settings, gomail.SetHeader(map[string][]string{"Content-Type": {a.ContentType}}))
		}
		gm.Attach(a.Name, settings...)
	}
	return gm
}
