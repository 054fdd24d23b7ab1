package calendar

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultHealthWindow = 15 * time.Minute

// HealthMonitor counts external calendar fetch outcomes in per-minute Redis
// buckets so every replica reports the same picture.
type HealthMonitor struct {
	redis  redis.Cmdable
	prefix string
	window time.Duration
	now    func() time.Time
}

type HealthStatus struct {
	Successes   int64   `json:"successes"`
	Failures    int64   `json:"failures"`
	FailureRate float64 `json:"failure_rate"`
	Window      string  `json:"window"`
	Healthy     bool    `json:"healthy"`
}

func NewHealthMonitor(client redis.Cmdable, window time.Duration) *HealthMonitor {
	if window < time.Minute {
		window = defaultHealthWindow
	}
	return &HealthMonitor{redis: client, prefix: "calendar:health", window: window, now: time.Now}
}

func (h *HealthMonitor) bucketKey(outcome string, minute int64) string {
	return fmt.Sprintf("%s:%s:%d", h.prefix, outcome, minute)
}

// Record counts one fetch. Redis errors are ignored; health tracking must
// never fail a request.
func (h *HealthMonitor) Record(ctx context.Context, ok bool) {
	if h == nil || h.redis == nil {
		return
	}
	outcome := "fail"
	if ok {
		outcome = "ok"
	}
	key := h.bucketKey(outcome, h.now().Unix()/60)
	pipe := h.redis.TxPipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, h.window+time.Minute)
	_, _ = pipe.Exec(ctx)
}

// Status sums the buckets covering the rolling window. The monitor is
// unhealthy when at least half of a non-trivial sample failed.
func (h *HealthMonitor) Status(ctx context.Context) (HealthStatus, error) {
	minutes := int64(h.window / time.Minute)
	current := h.now().Unix() / 60
	var okKeys, failKeys []string
	for m := current - minutes + 1; m <= current; m++ {
		okKeys = append(okKeys, h.bucketKey("ok", m))
		failKeys = append(failKeys, h.bucketKey("fail", m))
	}

	successes, err := h.sum(ctx, okKeys)
	if err != nil {
		return HealthStatus{}, err
	}
	failures, err := h.sum(ctx, failKeys)
	if err != nil {
		return HealthStatus{}, err
	}
	st := HealthStatus{Successes: successes, Failures: failures, Window: h.window.String(), Healthy: true}
	if total := successes + failures; total > 0 {
		st.FailureRate = float64(failures) / float64(total)
		st.Healthy = total < 4 || st.FailureRate < 0.5
	}
	return st, nil
}

func (h *HealthMonitor) sum(ctx context.Context, keys []string) (int64, error) {
	vals, err := h.redis.MGet(ctx, keys...).Result()
	if err != nil {
		return 0, err
	}
	var total int64
	for _, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err == nil {
			total += n
		}
	}
	return total, nil
}
