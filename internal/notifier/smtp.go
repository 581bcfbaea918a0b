package notifier

import (
	"crypto/tls"
	"fmt"

	"figures/internal/models"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

type SMTPNotifier struct {
	config models.MailerConfiguration
}

func NewSMTPNotifier(config models.MailerConfiguration) *SMTPNotifier {
	return &SMTPNotifier{config: config}
}

func (s *SMTPNotifier) client() (*mail.Client, error) {
	options := []mail.Option{mail.WithPort(s.config.Port)}
	if s.config.Username != "" {
		options = append(options,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.config.Username),
			mail.WithPassword(s.config.Password),
		)
	}
	if s.config.EnableTLS {
		options = append(options,
			mail.WithTLSPolicy(mail.TLSMandatory),
			mail.WithTLSConfig(&tls.Config{
				ServerName:         s.config.Host,
				InsecureSkipVerify: s.config.SkipVerifyTLS, //nolint:gosec
				MinVersion:         tls.VersionTLS12,
			}),
		)
	} else {
		options = append(options, mail.WithTLSPolicy(mail.NoTLS))
	}
	return mail.NewClient(s.config.Host, options...)
}

func (s *SMTPNotifier) NotifyFromTemplate(to string, subject string, templateName string, data any) error {
	textTpl, err := textTemplate(templateName)
	if err != nil {
		return err
	}
	htmlTpl, err := htmlTemplate(templateName)
	if err != nil {
		return err
	}

	msg := mail.NewMsg()
	if err = msg.From(s.config.Sender); err != nil {
		return fmt.Errorf("invalid sender: %w", err)
	}
	if err = msg.To(to); err != nil {
		return fmt.Errorf("invalid recipient: %w", err)
	}
	msg.Subject(subject)
	if err = msg.SetBodyTextTemplate(textTpl, data); err != nil {
		return fmt.Errorf("render %s: %w", templateName, err)
	}
	if err = msg.AddAlternativeHTMLTemplate(htmlTpl, data); err != nil {
		return fmt.Errorf("render %s: %w", templateName, err)
	}

	client, err := s.client()
	if err != nil {
		return fmt.Errorf("failed to create mail client: %w", err)
	}
	if err = client.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}

	zap.L().Info("Notification sent", zap.String("to", to), zap.String("template", templateName))
	return nil
}
