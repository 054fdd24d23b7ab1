package scheduling

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/md-rashed-zaman/elevacare/libs/schedule"
	"github.com/md-rashed-zaman/elevacare/libs/schedulingv1"
	"github.com/redis/go-redis/v9"
)

type countingProvider struct {
	schedules map[string]*schedule.Schedule
	calls     int
}

func (p *countingProvider) GetSchedule(_ context.Context, ownerID string) (*schedule.Schedule, error) {
	p.calls++
	return p.schedules[ownerID], nil
}

func (p *countingProvider) GetEvent(_ context.Context, eventID string) (schedulingv1.Event, error) {
	p.calls++
	if eventID != "evt-1" {
		return schedulingv1.Event{}, ErrNotFound
	}
	return schedulingv1.Event{ID: "evt-1", ExpertID: "expert-1", DurationMinutes: 30, Active: true}, nil
}

func newCache(t *testing.T, next Provider) (*CachedProvider, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCachedProvider(next, client, time.Minute, slog.New(slog.NewTextHandler(io.Discard, nil))), mr
}

func TestCachedScheduleReadThrough(t *testing.T) {
	upstream := &countingProvider{schedules: map[string]*schedule.Schedule{
		"expert-1": {OwnerID: "expert-1", Timezone: "UTC", Windows: []schedule.Window{{DayOfWeek: "monday", StartTime: "09:00", EndTime: "10:00"}}},
	}}
	cache, mr := newCache(t, upstream)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		s, err := cache.GetSchedule(ctx, "expert-1")
		if err != nil {
			t.Fatalf("GetSchedule: %v", err)
		}
		if s == nil || len(s.Windows) != 1 {
			t.Fatalf("unexpected schedule %+v", s)
		}
	}
	if upstream.calls != 1 {
		t.Fatalf("expected one upstream call, got %d", upstream.calls)
	}
	if ttl := mr.TTL("schedule:expert-1"); ttl != time.Minute {
		t.Fatalf("expected 1m ttl, got %s", ttl)
	}

	if err := cache.Invalidate(ctx, "expert-1"); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if _, err := cache.GetSchedule(ctx, "expert-1"); err != nil {
		t.Fatalf("GetSchedule: %v", err)
	}
	if upstream.calls != 2 {
		t.Fatalf("expected refetch after invalidate, got %d calls", upstream.calls)
	}
}

func TestCachedMissingSchedule(t *testing.T) {
	upstream := &countingProvider{}
	cache, _ := newCache(t, upstream)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		s, err := cache.GetSchedule(ctx, "nobody")
		if err != nil || s != nil {
			t.Fatalf("expected nil schedule, got %+v %v", s, err)
		}
	}
	if upstream.calls != 1 {
		t.Fatalf("missing schedule should be cached, got %d calls", upstream.calls)
	}
}

func TestCacheFallsBackWhenRedisDown(t *testing.T) {
	upstream := &countingProvider{}
	cache, mr := newCache(t, upstream)
	mr.Close()

	evt, err := cache.GetEvent(context.Background(), "evt-1")
	if err != nil {
		t.Fatalf("GetEvent: %v", err)
	}
	if evt.DurationMinutes != 30 {
		t.Fatalf("unexpected event %+v", evt)
	}
	if _, err := cache.GetEvent(context.Background(), "evt-2"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
