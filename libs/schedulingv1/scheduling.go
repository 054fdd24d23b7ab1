// Package schedulingv1 is the gRPC contract of the scheduling service.
// Messages are plain structs carried with the grpcx JSON codec.
package schedulingv1

import (
	"github.com/md-rashed-zaman/elevacare/libs/schedule"
)

const ServiceName = "elevacare.scheduling.v1.SchedulingService"

const (
	GetScheduleFullMethod = "/" + ServiceName + "/GetSchedule"
	GetEventFullMethod    = "/" + ServiceName + "/GetEvent"
)

type GetScheduleRequest struct {
	OwnerID string `json:"owner_id"`
}

type GetScheduleResponse struct {
	Schedule *schedule.Schedule `json:"schedule"`
}

type GetEventRequest struct {
	EventID string `json:"event_id"`
}

// Event is a bookable event type offered by an expert.
type Event struct {
	ID              string `json:"id"`
	ExpertID        string `json:"expert_id"`
	Slug            string `json:"slug"`
	Name            string `json:"name"`
	DurationMinutes int    `json:"duration_minutes"`
	Active          bool   `json:"active"`
}
