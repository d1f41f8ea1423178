package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/OdenLounge/Oden-Lounge/internal/domain"
	"github.com/OdenLounge/Oden-Lounge/internal/mail"
	"github.com/OdenLounge/Oden-Lounge/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

type ContactService struct {
	mailer        domain.Mailer
	operatorEmail string
	logoURL       string
	validate      *validator.Validate
	logger        *zerolog.Logger
}

func NewContactService(mailer domain.Mailer, operatorEmail, logoURL string, logger *zerolog.Logger) *ContactService {
	return &ContactService{
		mailer:        mailer,
		operatorEmail: operatorEmail,
		logoURL:       logoURL,
		validate:      validator.New(),
		logger:        logger,
	}
}

// Submit forwards a contact form message to the operator mailbox with the
// sender as reply-to.
func (s *ContactService) Submit(ctx context.Context, in *models.ContactMessage) error {
	if in == nil {
		return fmt.Errorf("%w: empty body", models.ErrMissingField)
	}
	if err := s.validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fe.Field())
			}
			return fmt.Errorf("%w: %s", models.ErrMissingField, strings.Join(fields, ", "))
		}
		return err
	}

	msg, err := mail.Render(mail.KindContact, mail.Data{LogoURL: s.logoURL, Contact: in})
	if err != nil {
		return err
	}
	msg.To = []string{s.operatorEmail}
	msg.ReplyTo = strings.TrimSpace(in.Email)

	if err := s.mailer.Send(ctx, msg); err != nil {
		s.logger.Error().Err(err).Msg("Failed to forward contact message")
		return fmt.Errorf("%w: %w", ErrNotification, err)
	}
	s.logger.Info().Str("from", in.Email).Msg("Contact message forwarded")
	return nil
}
