package repository

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/OdenLounge/Oden-Lounge/internal/domain"

	"github.com/rs/zerolog"
)

const primaryRetryAfter = time.Minute

// FailoverThrottle uses the primary throttle until it errors, then serves from
// the fallback and probes the primary again once a minute.
type FailoverThrottle struct {
	primary   domain.BookingThrottle
	fallback  domain.BookingThrottle
	logger    *zerolog.Logger
	isDown    atomic.Bool
	downSince atomic.Int64
	now       func() time.Time
}

func NewFailoverThrottle(primary, fallback domain.BookingThrottle, logger *zerolog.Logger) *FailoverThrottle {
	return &FailoverThrottle{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
		now:      time.Now,
	}
}

func (r *FailoverThrottle) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if !r.isDown.Load() || r.shouldProbe() {
		allowed, err := r.primary.Allow(ctx, key, limit, window)
		if err == nil {
			if r.isDown.Swap(false) {
				r.logger.Info().Msg("Primary throttle store recovered")
			}
			return allowed, nil
		}
		if !r.isDown.Swap(true) {
			r.logger.Error().Err(err).Msg("Primary throttle store failed, falling back to memory")
		}
		r.downSince.Store(r.now().UnixNano())
	}

	return r.fallback.Allow(ctx, key, limit, window)
}

func (r *FailoverThrottle) shouldProbe() bool {
	return r.now().Sub(time.Unix(0, r.downSince.Load())) > primaryRetryAfter
}
