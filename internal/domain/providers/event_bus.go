package providers

import (
	"context"
	"strconv"

	"github.com/agastya-health/clinic-admin/internal/domain/entities"
)

// EventBus defines the interface for publishing and subscribing to appointment events
type EventBus interface {
	// Publish publishes an event to all subscribers of channel
	Publish(ctx context.Context, channel string, event *entities.AppointmentEvent) error

	// Subscribe subscribes to events on a channel until ctx is done
	Subscribe(ctx context.Context, channel string) (<-chan *entities.AppointmentEvent, error)

	// Close closes the event bus and all subscriptions
	Close() error
}

const (
	// EventChannelAppointmentUpdates carries every appointment event
	EventChannelAppointmentUpdates = "appointments:updates"

	// EventChannelDoctorPrefix is the prefix for per-doctor channels
	EventChannelDoctorPrefix = "appointments:doctor:"
)

// GetDoctorChannel returns the channel name for a specific doctor
func GetDoctorChannel(doctorID int64) string {
	return EventChannelDoctorPrefix + strconv.FormatInt(doctorID, 10)
}
