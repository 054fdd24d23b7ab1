package scheduling

import (
	"context"
	"errors"
	"time"

	"github.com/md-rashed-zaman/elevacare/libs/grpcx"
	"github.com/md-rashed-zaman/elevacare/libs/schedule"
	"github.com/md-rashed-zaman/elevacare/libs/schedulingv1"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var ErrNotFound = errors.New("not found")

// Provider reads expert schedules and event types from the scheduling service.
type Provider interface {
	// GetSchedule returns (nil, nil) when the expert has not configured availability.
	GetSchedule(ctx context.Context, ownerID string) (*schedule.Schedule, error)
	GetEvent(ctx context.Context, eventID string) (schedulingv1.Event, error)
}

type grpcProvider struct {
	client  schedulingv1.SchedulingServiceClient
	timeout time.Duration
}

// Dial connects to the scheduling service without waiting for the connection.
func Dial(ctx context.Context, addr string) (Provider, *grpc.ClientConn, error) {
	conn, err := grpcx.Dial(ctx, addr, grpcx.DialOptions{Timeout: 3 * time.Second, NonBlocking: true})
	if err != nil {
		return nil, nil, err
	}
	return NewGRPCProvider(schedulingv1.NewSchedulingServiceClient(conn)), conn, nil
}

func NewGRPCProvider(client schedulingv1.SchedulingServiceClient) Provider {
	return &grpcProvider{client: client, timeout: 3 * time.Second}
}

func (p *grpcProvider) GetSchedule(ctx context.Context, ownerID string) (*schedule.Schedule, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.client.GetSchedule(ctx, &schedulingv1.GetScheduleRequest{OwnerID: ownerID})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, err
	}
	return resp.Schedule, nil
}

func (p *grpcProvider) GetEvent(ctx context.Context, eventID string) (schedulingv1.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	evt, err := p.client.GetEvent(ctx, &schedulingv1.GetEventRequest{EventID: eventID})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return schedulingv1.Event{}, ErrNotFound
		}
		return schedulingv1.Event{}, err
	}
	return *evt, nil
}
