// Package outbox implements the transactional outbox: events are inserted in
// the same transaction as the state change and relayed to Kafka by Publisher.
package outbox

// Event is the domain event envelope written to the outbox table.
// The Kafka topic name equals EventType (one topic per event type).
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

const (
	EventScheduleUpdated      = "scheduling.schedule.updated.v1"
	EventAppointmentBooked    = "booking.appointment.booked.v1"
	EventAppointmentCancelled = "booking.appointment.cancelled.v1"
)
