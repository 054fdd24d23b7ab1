package grpcserver

import (
	"context"
	"errors"
	"strings"

	"github.com/md-rashed-zaman/elevacare/libs/schedule"
	"github.com/md-rashed-zaman/elevacare/libs/schedulingv1"
	"github.com/md-rashed-zaman/elevacare/services/scheduling-service/internal/metrics"
	"github.com/md-rashed-zaman/elevacare/services/scheduling-service/internal/storage"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type Store interface {
	GetSchedule(ctx context.Context, expertID string) (*schedule.Schedule, error)
	GetEvent(ctx context.Context, eventID string) (schedulingv1.Event, error)
}

type server struct {
	store   Store
	metrics *metrics.SchedulingMetrics
}

func Register(grpcServer grpc.ServiceRegistrar, store Store, m *metrics.SchedulingMetrics) {
	schedulingv1.RegisterSchedulingServiceServer(grpcServer, &server{store: store, metrics: m})
}

func (s *server) GetSchedule(ctx context.Context, req *schedulingv1.GetScheduleRequest) (*schedulingv1.GetScheduleResponse, error) {
	ownerID := strings.TrimSpace(req.OwnerID)
	if ownerID == "" {
		return nil, status.Error(codes.InvalidArgument, "owner_id is required")
	}
	sched, err := s.store.GetSchedule(ctx, ownerID)
	if err != nil {
		return nil, s.lookupError("GetSchedule", "schedule", err)
	}
	s.metrics.ObserveLookup("GetSchedule", "ok")
	return &schedulingv1.GetScheduleResponse{Schedule: sched}, nil
}

func (s *server) GetEvent(ctx context.Context, req *schedulingv1.GetEventRequest) (*schedulingv1.Event, error) {
	eventID := strings.TrimSpace(req.EventID)
	if eventID == "" {
		return nil, status.Error(codes.InvalidArgument, "event_id is required")
	}
	evt, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, s.lookupError("GetEvent", "event", err)
	}
	s.metrics.ObserveLookup("GetEvent", "ok")
	return &evt, nil
}

func (s *server) lookupError(method, what string, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		s.metrics.ObserveLookup(method, "not_found")
		return status.Error(codes.NotFound, what+" not found")
	}
	s.metrics.ObserveLookup(method, "error")
	return status.Errorf(codes.Internal, "load %s: %v", what, err)
}
