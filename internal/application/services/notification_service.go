package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/agastya-health/clinic-admin/internal/domain/entities"
	"github.com/agastya-health/clinic-admin/internal/domain/providers"
	"github.com/agastya-health/clinic-admin/pkg/utils"
)

const notificationTimeout = 10 * time.Second

// NotificationService sends booking confirmations and cancellation notices
// for the appointment events it receives
type NotificationService struct {
	eventBus   providers.EventBus
	whatsapp   providers.MessageSender
	sms        providers.MessageSender
	email      providers.EmailSender
	clinicName string

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewNotificationService creates a new notification service. Any sender may be
// nil, which disables that channel.
func NewNotificationService(
	eventBus providers.EventBus,
	whatsapp providers.MessageSender,
	sms providers.MessageSender,
	email providers.EmailSender,
	clinicName string,
) *NotificationService {
	return &NotificationService{
		eventBus:   eventBus,
		whatsapp:   whatsapp,
		sms:        sms,
		email:      email,
		clinicName: clinicName,
	}
}

// Start subscribes to appointment updates and processes them in the background
func (n *NotificationService) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	events, err := n.eventBus.Subscribe(ctx, providers.EventChannelAppointmentUpdates)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to subscribe to appointment updates: %w", err)
	}
	n.cancel = cancel

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.processEvents(ctx, events)
	}()

	log.Info().
		Bool("whatsapp", n.whatsapp != nil).
		Bool("sms", n.sms != nil).
		Bool("email", n.email != nil).
		Msg("Notification service started")
	return nil
}

// Stop stops processing events and waits for the worker to exit
func (n *NotificationService) Stop() {
	if n.cancel != nil {
		n.cancel()
	}
	n.wg.Wait()
	log.Info().Msg("Notification service stopped")
}

func (n *NotificationService) processEvents(ctx context.Context, events <-chan *entities.AppointmentEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if event == nil {
				continue
			}
			n.HandleEvent(ctx, event)
		}
	}
}

// HandleEvent sends the notifications for a single event. Delivery failures
// are logged and do not stop the other channels.
func (n *NotificationService) HandleEvent(ctx context.Context, event *entities.AppointmentEvent) {
	var subject, body string
	switch event.Type {
	case entities.AppointmentEventBooked:
		subject = fmt.Sprintf("Appointment confirmed at %s", n.clinicName)
		body = n.bookingMessage(event)
	case entities.AppointmentEventCancelled:
		subject = fmt.Sprintf("Appointment cancelled at %s", n.clinicName)
		body = n.cancellationMessage(event)
	default:
		return
	}

	ctx, cancel := context.WithTimeout(ctx, notificationTimeout)
	defer cancel()

	logger := log.With().
		Str("event_id", event.ID).
		Str("event_type", string(event.Type)).
		Int64("appointment_id", event.AppointmentID).
		Logger()

	if event.Mobile != "" {
		sender, channel := n.sms, "sms"
		if event.IsWhatsAppNumber {
			sender, channel = n.whatsapp, "whatsapp"
		}
		if sender != nil {
			if err := sender.SendMessage(ctx, event.Mobile, body); err != nil {
				logger.Error().Err(err).Str("channel", channel).Msg("Failed to send notification")
			} else {
				logger.Info().Str("channel", channel).Msg("Notification sent")
			}
		}
	}

	if event.Email != "" && n.email != nil {
		if err := n.email.SendEmail(ctx, event.Email, subject, body); err != nil {
			logger.Error().Err(err).Str("channel", "email").Msg("Failed to send notification")
		} else {
			logger.Info().Str("channel", "email").Msg("Notification sent")
		}
	}
}

func (n *NotificationService) bookingMessage(event *entities.AppointmentEvent) string {
	return fmt.Sprintf("Hello %s, your appointment%s at %s is confirmed for %s, %s to %s. Appointment ID: %d.",
		nameOr(event.PatientName, "there"), withDoctor(event.DoctorName), n.clinicName,
		eventDay(event), event.StartTime, event.EndTime, event.AppointmentID)
}

func (n *NotificationService) cancellationMessage(event *entities.AppointmentEvent) string {
	return fmt.Sprintf("Hello %s, your appointment%s at %s on %s at %s has been cancelled. Appointment ID: %d.",
		nameOr(event.PatientName, "there"), withDoctor(event.DoctorName), n.clinicName,
		eventDay(event), event.StartTime, event.AppointmentID)
}

func nameOr(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}

func withDoctor(doctorName string) string {
	if doctorName == "" {
		return ""
	}
	return " with " + doctorName
}

func eventDay(event *entities.AppointmentEvent) string {
	if event.Date == nil {
		return ""
	}
	return event.Date.Format(utils.DateLayout)
}
