package waitlist

import (
	"context"
	"time"

	"ticketly/pkg/logger"
)

// ExpiryJob periodically expires notified entries whose booking window
// lapsed without a conversion.
type ExpiryJob struct {
	service  Service
	interval time.Duration
	log      *logger.Logger
	done     chan struct{}
}

func NewExpiryJob(service Service, interval time.Duration, log *logger.Logger) *ExpiryJob {
	if interval <= 0 {
		interval = time.Minute
	}
	if log == nil {
		log = logger.GetDefault()
	}
	return &ExpiryJob{
		service:  service,
		interval: interval,
		log:      log,
		done:     make(chan struct{}),
	}
}

// Start runs the expiry loop until Stop is called or the context is cancelled.
func (j *ExpiryJob) Start(ctx context.Context) {
	go j.run(ctx)
	j.log.Info("waitlist expiry job started", "interval", j.interval.String())
}

func (j *ExpiryJob) Stop() {
	close(j.done)
	j.log.Info("waitlist expiry job stopped")
}

func (j *ExpiryJob) run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			j.sweep(ctx)
		case <-j.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (j *ExpiryJob) sweep(ctx context.Context) {
	expired, err := j.service.ProcessExpired(ctx)
	if err != nil {
		j.log.ErrorWithContext(ctx, "failed to process expired waitlist entries", err, nil)
		return
	}
	if expired > 0 {
		j.log.Info("expired lapsed waitlist entries", "count", expired)
	}
}
