package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/OdenLounge/Oden-Lounge/internal/domain"
	"github.com/OdenLounge/Oden-Lounge/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	TaskUpsert       = "upsert"
	TaskUpdateStatus = "update_status"
)

// SheetTask is one spreadsheet write, serialized as JSON on the Redis list.
type SheetTask struct {
	Type        string              `json:"type"`
	Reservation *models.Reservation `json:"reservation"`
	Attempt     int                 `json:"attempt"`
	LastError   string              `json:"last_error,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
}

// SheetsWorker applies reservation changes to the spreadsheet off the request
// path. Tasks go through a Redis list when one is configured and an
// in-memory channel otherwise.
type SheetsWorker struct {
	sheets        domain.SheetsWriter
	redis         *redis.Client
	retryPolicy   RetryPolicy
	queue         chan SheetTask
	redisQueueKey string
	deadLetterKey string
	pollInterval  time.Duration
	logger        *zerolog.Logger
}

func NewSheetsWorker(sheets domain.SheetsWriter, redisClient *redis.Client, retry RetryPolicy, logger *zerolog.Logger) *SheetsWorker {
	if retry.MaxRetries == 0 {
		retry.MaxRetries = 5
	}
	if retry.InitialDelay == 0 {
		retry.InitialDelay = 2 * time.Second
	}
	if retry.MaxDelay == 0 {
		retry.MaxDelay = time.Minute
	}
	if retry.BackoffFactor == 0 {
		retry.BackoffFactor = 2
	}

	return &SheetsWorker{
		sheets:        sheets,
		redis:         redisClient,
		retryPolicy:   retry,
		queue:         make(chan SheetTask, 128),
		redisQueueKey: "oden:sheets:queue",
		deadLetterKey: "oden:sheets:deadletter",
		pollInterval:  time.Second,
		logger:        logger,
	}
}

// EnqueueTask schedules a write for r.
func (w *SheetsWorker) EnqueueTask(ctx context.Context, taskType string, r *models.Reservation) error {
	if taskType != TaskUpsert && taskType != TaskUpdateStatus {
		return fmt.Errorf("unknown task type: %s", taskType)
	}
	if r == nil || r.ReferenceNumber == "" {
		return errors.New("reservation with reference number is required")
	}

	snapshot := *r
	return w.push(ctx, SheetTask{Type: taskType, Reservation: &snapshot, CreatedAt: time.Now()})
}

func (w *SheetsWorker) push(ctx context.Context, task SheetTask) error {
	if w.redis != nil {
		err := w.pushRedis(ctx, w.redisQueueKey, task)
		if err == nil {
			return nil
		}
		w.logger.Warn().Err(err).Msg("Redis push failed, using memory queue")
	}

	select {
	case w.queue <- task:
		return nil
	default:
		return errors.New("sheets queue is full")
	}
}

// Start consumes tasks until ctx is done.
func (w *SheetsWorker) Start(ctx context.Context) {
	w.logger.Info().Msg("Sheets worker started")
	defer w.logger.Info().Msg("Sheets worker stopped")

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if t, ok := w.tryLocalQueue(); ok {
			w.processTask(ctx, &t)
			continue
		}

		if t, ok := w.tryRedis(ctx); ok {
			w.processTask(ctx, &t)
			continue
		}

		select {
		case <-ctx.Done():
			return
		case t := <-w.queue:
			w.processTask(ctx, &t)
		case <-time.After(w.pollInterval):
		}
	}
}

func (w *SheetsWorker) tryLocalQueue() (SheetTask, bool) {
	select {
	case t := <-w.queue:
		return t, true
	default:
		return SheetTask{}, false
	}
}

func (w *SheetsWorker) tryRedis(ctx context.Context) (SheetTask, bool) {
	if w.redis == nil {
		return SheetTask{}, false
	}
	res, err := w.redis.BRPop(ctx, w.pollInterval, w.redisQueueKey).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			w.logger.Warn().Err(err).Msg("Redis BRPOP failed")
		}
		return SheetTask{}, false
	}
	if len(res) != 2 {
		return SheetTask{}, false
	}

	var task SheetTask
	if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
		w.logger.Error().Err(err).Msg("Dropping undecodable sheets task")
		return SheetTask{}, false
	}
	return task, true
}

func (w *SheetsWorker) processTask(ctx context.Context, task *SheetTask) {
	if err := w.handle(ctx, task); err != nil {
		w.retryOrFail(ctx, task, err)
		return
	}
	w.logger.Debug().Str("type", task.Type).Str("ref", task.Reservation.ReferenceNumber).Msg("Sheets task done")
}

func (w *SheetsWorker) handle(ctx context.Context, task *SheetTask) error {
	if task.Reservation == nil {
		return errors.New("reservation payload missing")
	}
	switch task.Type {
	case TaskUpsert:
		return w.sheets.UpsertReservation(ctx, task.Reservation)
	case TaskUpdateStatus:
		return w.sheets.UpdateReservationStatus(ctx, task.Reservation.ReferenceNumber, task.Reservation.Status)
	default:
		return fmt.Errorf("unknown task type: %s", task.Type)
	}
}

func (w *SheetsWorker) retryOrFail(ctx context.Context, task *SheetTask, cause error) {
	task.Attempt++
	task.LastError = cause.Error()

	if w.retryPolicy.Exhausted(task.Attempt) {
		w.logger.Error().Err(cause).Str("type", task.Type).Int("attempt", task.Attempt).Msg("Sheets task failed permanently")
		w.pushDeadLetter(ctx, task)
		return
	}

	delay := w.retryPolicy.NextDelay(task.Attempt)
	w.logger.Warn().Err(cause).Str("type", task.Type).Int("attempt", task.Attempt).Dur("retry_in", delay).Msg("Sheets task failed, retrying")

	retry := *task
	time.AfterFunc(delay, func() {
		if ctx.Err() != nil {
			return
		}
		if err := w.push(ctx, retry); err != nil {
			w.logger.Error().Err(err).Msg("Could not requeue sheets task")
		}
	})
}

func (w *SheetsWorker) pushRedis(ctx context.Context, key string, task SheetTask) error {
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return w.redis.LPush(ctx, key, data).Err()
}

func (w *SheetsWorker) pushDeadLetter(ctx context.Context, task *SheetTask) {
	if w.redis == nil {
		return
	}
	if err := w.pushRedis(ctx, w.deadLetterKey, *task); err != nil {
		w.logger.Error().Err(err).Msg("Dead letter push failed")
	}
}
