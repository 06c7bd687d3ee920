package admin

import (
	"context"
	"time"

	"github.com/miosa/aac-board/client"
)

// HealthInterval is how often the system view polls the backend.
const HealthInterval = 30 * time.Second

// HealthStatus is the outcome of one ping.
type HealthStatus struct {
	Response  *client.HealthResponse
	Err       error
	Latency   time.Duration
	CheckedAt time.Time
}

// Up reports whether the ping succeeded and the backend reported itself
// healthy.
func (h HealthStatus) Up() bool {
	return h.Err == nil && h.Response != nil && h.Response.Healthy()
}

// CheckHealth pings the backend once.
func (s *Service) CheckHealth(ctx context.Context) HealthStatus {
	start := time.Now()
	resp, err := s.api.Health(ctx)
	st := HealthStatus{Response: resp, Err: err, Latency: time.Since(start), CheckedAt: start}
	if err != nil {
		s.log.Warn("health check failed", "err", err)
	}
	return st
}

// PollHealth checks immediately and then every interval (HealthInterval when
// zero), calling fn with each result until ctx is done.
func (s *Service) PollHealth(ctx context.Context, interval time.Duration, fn func(HealthStatus)) {
	if interval <= 0 {
		interval = HealthInterval
	}
	fn(s.CheckHealth(ctx))
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			fn(s.CheckHealth(ctx))
		}
	}
}
