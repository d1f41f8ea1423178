package mail

import (
	"context"
	"errors"
	"fmt"

	"github.com/OdenLounge/Oden-Lounge/internal/config"
	"github.com/OdenLounge/Oden-Lounge/internal/metrics"
	"github.com/rs/zerolog"
	gomail "github.com/wneessen/go-mail"
)

// Sender delivers rendered messages through the SMTP relay. One client is
// built at startup and shared by all requests.
type Sender struct {
	client *gomail.Client
	from   string
	logger *zerolog.Logger
}

func NewSender(cfg config.MailConfig, logger *zerolog.Logger) (*Sender, error) {
	opts := []gomail.Option{
		gomail.WithPort(cfg.Port),
		gomail.WithTimeout(cfg.Timeout),
	}
	if cfg.Port == 465 {
		opts = append(opts, gomail.WithSSL())
	} else {
		opts = append(opts, gomail.WithTLSPolicy(gomail.TLSOpportunistic))
	}
	if cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.Username),
			gomail.WithPassword(cfg.Password),
		)
	}

	client, err := gomail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("mail client: %w", err)
	}
	return &Sender{client: client, from: cfg.From, logger: logger}, nil
}

func (s *Sender) Send(ctx context.Context, m *Message) error {
	msg, err := buildMsg(s.from, m)
	if err != nil {
		return err
	}

	err = s.client.DialAndSendWithContext(ctx, msg)
	metrics.IncEmail(string(m.Kind), err)
	if err != nil {
		s.logger.Error().Err(err).Str("kind", string(m.Kind)).Strs("to", m.To).Msg("Mail relay rejected message")
		return fmt.Errorf("send %s mail: %w", m.Kind, err)
	}

	s.logger.Debug().Str("kind", string(m.Kind)).Strs("to", m.To).Msg("Mail sent")
	return nil
}

func buildMsg(from string, m *Message) (*gomail.Msg, error) {
	if len(m.To) == 0 {
		return nil, errors.New("mail has no recipients")
	}

	msg := gomail.NewMsg()
	if err := msg.From(from); err != nil {
		return nil, fmt.Errorf("invalid from address: %w", err)
	}
	if err := msg.To(m.To...); err != nil {
		return nil, fmt.Errorf("invalid recipient: %w", err)
	}
	if m.ReplyTo != "" {
		if err := msg.ReplyTo(m.ReplyTo); err != nil {
			return nil, fmt.Errorf("invalid reply-to: %w", err)
		}
	}
	msg.Subject(m.Subject)
	msg.SetBodyString(gomail.TypeTextHTML, m.HTML)
	return msg, nil
}
