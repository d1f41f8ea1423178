package service

import (
	"context"
	"fmt"
	"time"

	"github.com/OdenLounge/Oden-Lounge/internal/domain"
	"github.com/OdenLounge/Oden-Lounge/internal/events"
	"github.com/OdenLounge/Oden-Lounge/internal/metrics"
	"github.com/OdenLounge/Oden-Lounge/internal/models"
)

const syncEnqueueTimeout = 5 * time.Second

// MetricsHandler counts reservation events by resulting status.
func MetricsHandler(event *events.Event) error {
	switch event.Type {
	case events.EventReservationCreated, events.EventReservationStatusChanged:
		var p events.ReservationPayload
		if err := event.Decode(&p); err != nil {
			return err
		}
		metrics.IncReservation(p.Status)
	}
	return nil
}

// SheetsSyncHandler turns reservation events into spreadsheet tasks.
// upsertType and statusType are the task names understood by the worker.
func SheetsSyncHandler(w domain.SyncWorker, upsertType, statusType string) events.EventHandler {
	return func(event *events.Event) error {
		var taskType string
		switch event.Type {
		case events.EventReservationCreated:
			taskType = upsertType
		case events.EventReservationStatusChanged:
			taskType = statusType
		default:
			return nil
		}

		var p events.ReservationPayload
		if err := event.Decode(&p); err != nil {
			return fmt.Errorf("decode %s: %w", event.Type, err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), syncEnqueueTimeout)
		defer cancel()
		return w.EnqueueTask(ctx, taskType, reservationFromPayload(&p))
	}
}

func reservationFromPayload(p *events.ReservationPayload) *models.Reservation {
	return &models.Reservation{
		ID:              p.ID,
		FirstName:       p.FirstName,
		LastName:        p.LastName,
		Email:           p.Email,
		Phone:           p.Phone,
		Guests:          p.Guests,
		Date:            p.Date,
		Time:            p.Time,
		Status:          models.Status(p.Status),
		ReferenceNumber: p.ReferenceNumber,
		CreatedAt:       p.CreatedAt,
	}
}
