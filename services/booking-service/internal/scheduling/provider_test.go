package scheduling

import (
	"context"
	"errors"
	"testing"

	"github.com/md-rashed-zaman/elevacare/libs/schedule"
	"github.com/md-rashed-zaman/elevacare/libs/schedulingv1"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type stubClient struct {
	scheduleErr error
	eventErr    error
}

func (c stubClient) GetSchedule(_ context.Context, in *schedulingv1.GetScheduleRequest, _ ...grpc.CallOption) (*schedulingv1.GetScheduleResponse, error) {
	if c.scheduleErr != nil {
		return nil, c.scheduleErr
	}
	return &schedulingv1.GetScheduleResponse{Schedule: &schedule.Schedule{OwnerID: in.OwnerID, Timezone: "UTC"}}, nil
}

func (c stubClient) GetEvent(_ context.Context, in *schedulingv1.GetEventRequest, _ ...grpc.CallOption) (*schedulingv1.Event, error) {
	if c.eventErr != nil {
		return nil, c.eventErr
	}
	return &schedulingv1.Event{ID: in.EventID, DurationMinutes: 60}, nil
}

func TestGRPCProviderMapsNotFound(t *testing.T) {
	p := NewGRPCProvider(stubClient{
		scheduleErr: status.Error(codes.NotFound, "schedule not found"),
		eventErr:    status.Error(codes.NotFound, "event not found"),
	})

	s, err := p.GetSchedule(context.Background(), "expert-1")
	if err != nil || s != nil {
		t.Fatalf("missing schedule should be (nil, nil), got %+v %v", s, err)
	}
	if _, err := p.GetEvent(context.Background(), "evt-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGRPCProviderPassesThroughErrors(t *testing.T) {
	p := NewGRPCProvider(stubClient{scheduleErr: status.Error(codes.Unavailable, "down")})
	if _, err := p.GetSchedule(context.Background(), "expert-1"); status.Code(err) != codes.Unavailable {
		t.Fatalf("expected Unavailable, got %v", err)
	}

	evt, err := NewGRPCProvider(stubClient{}).GetEvent(context.Background(), "evt-9")
	if err != nil || evt.ID != "evt-9" || evt.DurationMinutes != 60 {
		t.Fatalf("unexpected event %+v %v", evt, err)
	}
}
