package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/OdenLounge/Oden-Lounge/internal/domain"
	"github.com/OdenLounge/Oden-Lounge/internal/events"
	"github.com/OdenLounge/Oden-Lounge/internal/mail"
	"github.com/OdenLounge/Oden-Lounge/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// ErrNotification marks a request whose record was stored but whose email
// could not be delivered.
var ErrNotification = errors.New("notification failed")

type ReservationOptions struct {
	OperatorEmail  string
	LogoURL        string
	ContactEmail   string
	ThrottleLimit  int
	ThrottleWindow time.Duration
}

type ReservationService struct {
	repo     domain.ReservationRepository
	mailer   domain.Mailer
	throttle domain.BookingThrottle
	eventBus domain.EventPublisher
	opts     ReservationOptions
	newRef   ReferenceGenerator
	validate *validator.Validate
	now      func() time.Time
	logger   *zerolog.Logger
}

func NewReservationService(
	repo domain.ReservationRepository,
	mailer domain.Mailer,
	throttle domain.BookingThrottle,
	eventBus domain.EventPublisher,
	opts ReservationOptions,
	logger *zerolog.Logger,
) *ReservationService {
	return &ReservationService{
		repo:     repo,
		mailer:   mailer,
		throttle: throttle,
		eventBus: eventBus,
		opts:     opts,
		newRef:   NewReference,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      time.Now,
		logger:   logger,
	}
}

// Create stores a new pending reservation under a unique reference number and
// then mails the customer and the operator concurrently. If either email fails
// the stored reservation is returned together with an ErrNotification error.
func (s *ReservationService) Create(ctx context.Context, in *models.Reservation) (*models.Reservation, error) {
	if err := s.validateInput(in); err != nil {
		return nil, err
	}

	if err := s.checkThrottle(ctx, in.Email); err != nil {
		return nil, err
	}

	r := *in
	r.ID = ""
	r.Status = models.StatusPending
	r.CreatedAt = s.now().UTC()

	if err := s.insertWithUniqueReference(ctx, &r); err != nil {
		return nil, err
	}

	log := s.logger.With().Str("ref", r.ReferenceNumber).Str("id", r.ID).Logger()
	log.Info().Msg("Reservation created")
	s.publish(events.EventReservationCreated, &r, "")

	if err := s.sendCreationEmails(ctx, &r); err != nil {
		log.Error().Err(err).Msg("Reservation stored but notification failed")
		return &r, fmt.Errorf("%w: %w", ErrNotification, err)
	}
	return &r, nil
}

func (s *ReservationService) insertWithUniqueReference(ctx context.Context, r *models.Reservation) error {
	for attempt := 1; attempt <= models.MaxReferenceAttempts; attempt++ {
		ref, err := s.newRef()
		if err != nil {
			return err
		}
		r.ReferenceNumber = ref
		r.ID = ""

		err = s.repo.CreateReservation(ctx, r)
		if err == nil {
			return nil
		}
		if !errors.Is(err, models.ErrDuplicateReference) {
			return fmt.Errorf("store reservation: %w", err)
		}
		s.logger.Warn().Str("ref", ref).Int("attempt", attempt).Msg("Reference number collision, regenerating")
	}
	return fmt.Errorf("%w: gave up after %d attempts", models.ErrDuplicateReference, models.MaxReferenceAttempts)
}

func (s *ReservationService) sendCreationEmails(ctx context.Context, r *models.Reservation) error {
	data := s.mailData(r)

	customer, err := mail.Render(mail.KindConfirmation, data)
	if err != nil {
		return err
	}
	customer.To = []string{r.Email}

	operator, err := mail.Render(mail.KindOperator, data)
	if err != nil {
		return err
	}
	operator.To = []string{s.opts.OperatorEmail}
	operator.ReplyTo = r.Email

	// both sends run to completion; one failing must not cancel the other
	var g errgroup.Group
	g.Go(func() error { return s.mailer.Send(ctx, customer) })
	g.Go(func() error { return s.mailer.Send(ctx, operator) })
	return g.Wait()
}

func (s *ReservationService) List(ctx context.Context) ([]*models.Reservation, error) {
	return s.repo.ListReservations(ctx)
}

func (s *ReservationService) FindByReference(ctx context.Context, ref string) (*models.Reservation, error) {
	ref = strings.ToUpper(strings.TrimSpace(ref))
	if ref == "" {
		return nil, models.ErrNotFound
	}
	return s.repo.GetReservationByReference(ctx, ref)
}

// UpdateStatus normalizes rawStatus, changes only the status of an existing
// reservation and mails the customer once. Unknown ids yield ErrNotFound
// without any write.
func (s *ReservationService) UpdateStatus(ctx context.Context, id string, rawStatus string) (*models.Reservation, error) {
	status, err := models.ParseStatus(rawStatus)
	if err != nil {
		return nil, err
	}

	r, err := s.repo.GetReservationByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateReservationStatus(ctx, id, status); err != nil {
		return nil, err
	}

	previous := r.Status
	r.Status = status
	s.logger.Info().Str("ref", r.ReferenceNumber).Str("from", string(previous)).Str("to", string(status)).Msg("Reservation status updated")
	s.publish(events.EventReservationStatusChanged, r, previous)

	msg, err := mail.Render(mail.KindStatus, s.mailData(r))
	if err != nil {
		return r, fmt.Errorf("%w: %w", ErrNotification, err)
	}
	msg.To = []string{r.Email}
	if err := s.mailer.Send(ctx, msg); err != nil {
		return r, fmt.Errorf("%w: %w", ErrNotification, err)
	}
	return r, nil
}

func (s *ReservationService) validateInput(r *models.Reservation) error {
	if r == nil {
		return fmt.Errorf("%w: empty body", models.ErrMissingField)
	}
	r.Email = strings.TrimSpace(r.Email)
	if err := s.validate.Struct(r); err != nil {
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
	return nil
}

func (s *ReservationService) checkThrottle(ctx context.Context, email string) error {
	if s.throttle == nil || s.opts.ThrottleLimit <= 0 {
		return nil
	}
	allowed, err := s.throttle.Allow(ctx, strings.ToLower(email), s.opts.ThrottleLimit, s.opts.ThrottleWindow)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Booking throttle unavailable, allowing request")
		return nil
	}
	if !allowed {
		return models.ErrThrottled
	}
	return nil
}

func (s *ReservationService) mailData(r *models.Reservation) mail.Data {
	return mail.Data{LogoURL: s.opts.LogoURL, ContactEmail: s.opts.ContactEmail, Reservation: r}
}

func (s *ReservationService) publish(eventType string, r *models.Reservation, previous models.Status) {
	if s.eventBus == nil {
		return
	}
	payload := ReservationPayload(r)
	payload.PreviousStatus = string(previous)
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Warn().Err(err).Str("event", eventType).Msg("Failed to publish event")
	}
}

// ReservationPayload converts r into its event form.
func ReservationPayload(r *models.Reservation) events.ReservationPayload {
	return events.ReservationPayload{
		ID:              r.ID,
		ReferenceNumber: r.ReferenceNumber,
		FirstName:       r.FirstName,
		LastName:        r.LastName,
		Email:           r.Email,
		Phone:           r.Phone,
		Guests:          r.Guests,
		Date:            r.Date,
		Time:            r.Time,
		Status:          string(r.Status),
		CreatedAt:       r.CreatedAt,
	}
}
