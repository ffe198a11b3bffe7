package services

import (
	"context"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"github.com/agastya-health/clinic-admin/internal/application/loaders"
	"github.com/agastya-health/clinic-admin/internal/domain/entities"
	"github.com/agastya-health/clinic-admin/internal/domain/providers"
	"github.com/agastya-health/clinic-admin/internal/domain/repositories"
	"github.com/agastya-health/clinic-admin/internal/infrastructure/observability"
	apperrors "github.com/agastya-health/clinic-admin/pkg/errors"
	"github.com/agastya-health/clinic-admin/pkg/utils"
)

const (
	statusSourceAPI = "api"

	msgCreateRequired = "doctorID, date, startTime, mobile, fullName required"
	msgSlotBooked     = "Slot already booked"
)

// CreateAppointmentInput carries a booking request
type CreateAppointmentInput struct {
	DoctorID         int64
	Date             time.Time
	StartTime        string
	EndTime          string
	Mobile           string
	FullName         string
	Email            string
	CountryCode      string
	IsWhatsAppNumber bool
	TermsAccepted    bool
	MarketingConsent bool
}

// CreateAppointmentResult is the outcome of a booking
type CreateAppointmentResult struct {
	Patient     *entities.Patient         `json:"patient"`
	Appointment *entities.AppointmentView `json:"appointment"`
}

// AppointmentQuery is a list request. Filter predicates run in the store; the
// contact fields match against the joined patient.
type AppointmentQuery struct {
	Filter      repositories.AppointmentFilter
	Email       string
	Mobile      string
	CountryCode string
	FullMobile  string
	SortBy      string
	SortOrder   string
}

func (q AppointmentQuery) hasContactFilter() bool {
	return q.Email != "" || q.Mobile != "" || q.CountryCode != "" || q.FullMobile != ""
}

// AppointmentService handles the appointment lifecycle
type AppointmentService struct {
	appointmentRepo repositories.AppointmentRepository
	patientRepo     repositories.PatientRepository
	doctorRepo      repositories.DoctorRepository
	slotRepo        repositories.DoctorSlotRepository
	sequenceRepo    repositories.SequenceRepository
	sweeper         *ExpirySweeper
	eventBus        providers.EventBus
	metrics         *observability.Metrics
}

// NewAppointmentService creates a new appointment service. eventBus and metrics may be nil.
func NewAppointmentService(
	appointmentRepo repositories.AppointmentRepository,
	patientRepo repositories.PatientRepository,
	doctorRepo repositories.DoctorRepository,
	slotRepo repositories.DoctorSlotRepository,
	sequenceRepo repositories.SequenceRepository,
	sweeper *ExpirySweeper,
	eventBus providers.EventBus,
	metrics *observability.Metrics,
) *AppointmentService {
	return &AppointmentService{
		appointmentRepo: appointmentRepo,
		patientRepo:     patientRepo,
		doctorRepo:      doctorRepo,
		slotRepo:        slotRepo,
		sequenceRepo:    sequenceRepo,
		sweeper:         sweeper,
		eventBus:        eventBus,
		metrics:         metrics,
	}
}

// List returns the appointments matching query, joined with doctor and patient data.
// Listing booked appointments first completes the ones that already ended.
func (s *AppointmentService) List(ctx context.Context, query AppointmentQuery) ([]*entities.AppointmentView, error) {
	ctx, span := observability.StartSpan(ctx, "AppointmentService.List")
	defer span.End()

	less, err := appointmentSorter(query.SortBy)
	if err != nil {
		return nil, err
	}

	status := query.Filter.Status
	if status != "" && !status.Valid() {
		return nil, apperrors.NewValidationError("Invalid status", string(status))
	}
	if s.sweeper != nil && (status == "" || status == entities.AppointmentStatusBooked) {
		if _, err := s.sweeper.sweep(ctx, SweepTriggerList); err != nil {
			observability.RecordError(span, err)
			return nil, err
		}
	}

	appointments, err := s.appointmentRepo.List(ctx, query.Filter)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	views, err := s.enrich(ctx, appointments)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	if query.hasContactFilter() {
		views = slices.DeleteFunc(views, func(v *entities.AppointmentView) bool {
			return !matchesContact(v.PatientContact, query)
		})
	}

	// sortOrder only applies to an explicit sortBy.
	if less != nil {
		sort.SliceStable(views, func(i, j int) bool { return less(views[i], views[j]) })
		if strings.EqualFold(query.SortOrder, "desc") {
			slices.Reverse(views)
		}
	}

	span.SetAttributes(attribute.Int("appointments.count", len(views)))
	return views, nil
}

// Get returns a single appointment joined with doctor and patient data
func (s *AppointmentService) Get(ctx context.Context, appointmentID int64) (*entities.AppointmentView, error) {
	appointment, err := s.appointmentRepo.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	views, err := s.enrich(ctx, []*entities.Appointment{appointment})
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

// Create books a slot, registering the patient by mobile when needed
func (s *AppointmentService) Create(ctx context.Context, input CreateAppointmentInput) (*CreateAppointmentResult, error) {
	ctx, span := observability.StartSpan(ctx, "AppointmentService.Create",
		attribute.Int64("doctor.id", input.DoctorID),
	)
	defer span.End()

	input.Mobile = strings.TrimSpace(input.Mobile)
	input.FullName = strings.TrimSpace(input.FullName)
	if input.DoctorID <= 0 || input.Date.IsZero() || input.StartTime == "" || input.Mobile == "" || input.FullName == "" {
		return nil, apperrors.NewValidationError(msgCreateRequired)
	}
	if !utils.IsTimeOfDay(input.StartTime) {
		return nil, apperrors.NewValidationError("startTime must be HH:MM", input.StartTime)
	}
	if input.EndTime != "" && !utils.IsTimeOfDay(input.EndTime) {
		return nil, apperrors.NewValidationError("endTime must be HH:MM", input.EndTime)
	}
	day := utils.StartOfDay(input.Date)

	patient, err := s.findOrCreatePatient(ctx, input)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	endTime := input.EndTime
	if endTime == "" {
		endTime, err = s.defaultEndTime(ctx, input.DoctorID, input.StartTime)
		if err != nil {
			observability.RecordError(span, err)
			return nil, err
		}
	}

	taken, err := s.appointmentRepo.ExistsOccupying(ctx, input.DoctorID, day, input.StartTime, endTime)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}
	if taken {
		observability.RecordBooking(ctx, s.metrics, input.DoctorID, true)
		return nil, apperrors.NewConflictError(msgSlotBooked, nil)
	}

	appointmentID, err := s.sequenceRepo.NextValue(ctx, repositories.SequenceAppointmentID)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	appointment := &entities.Appointment{
		AppointmentID:    appointmentID,
		DoctorID:         input.DoctorID,
		PatientID:        patient.PatientID,
		Date:             day,
		StartTime:        input.StartTime,
		EndTime:          endTime,
		Status:           entities.AppointmentStatusBooked,
		Mobile:           input.Mobile,
		Email:            strings.TrimSpace(input.Email),
		IsWhatsAppNumber: input.IsWhatsAppNumber,
		TermsAccepted:    input.TermsAccepted,
		MarketingConsent: input.MarketingConsent,
	}
	if err := s.appointmentRepo.Create(ctx, appointment); err != nil {
		observability.RecordError(span, err)
		if apperrors.IsType(err, apperrors.ErrorTypeConflict) {
			observability.RecordBooking(ctx, s.metrics, input.DoctorID, true)
		}
		return nil, err
	}

	view := &entities.AppointmentView{
		Appointment:    *appointment,
		PatientName:    &patient.FullName,
		PatientContact: contactOf(patient),
	}
	if doctor, err := s.doctorRepo.GetByID(ctx, input.DoctorID); err == nil {
		view.DoctorName = &doctor.FullName
	} else if !apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
		log.Warn().Err(err).Int64("doctor_id", input.DoctorID).Msg("Failed to resolve doctor name")
	}

	observability.RecordBooking(ctx, s.metrics, input.DoctorID, false)
	observability.AuditStatusChange(ctx, appointmentID, string(appointment.Status), statusSourceAPI)
	s.publish(ctx, entities.AppointmentEventBooked, view)

	log.Info().
		Int64("appointment_id", appointmentID).
		Int64("doctor_id", input.DoctorID).
		Str("date", day.Format(utils.DateLayout)).
		Str("start_time", input.StartTime).
		Msg("Appointment booked")

	return &CreateAppointmentResult{Patient: patient, Appointment: view}, nil
}

// Update applies a partial update. Fields left nil keep their stored value.
func (s *AppointmentService) Update(ctx context.Context, appointmentID int64, patch entities.AppointmentPatch) (*entities.AppointmentView, error) {
	ctx, span := observability.StartSpan(ctx, "AppointmentService.Update",
		attribute.Int64("appointment.id", appointmentID),
	)
	defer span.End()

	if patch.StartTime != nil && !utils.IsTimeOfDay(*patch.StartTime) {
		return nil, apperrors.NewValidationError("startTime must be HH:MM", *patch.StartTime)
	}
	if patch.EndTime != nil && !utils.IsTimeOfDay(*patch.EndTime) {
		return nil, apperrors.NewValidationError("endTime must be HH:MM", *patch.EndTime)
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return nil, apperrors.NewValidationError("Invalid status", string(*patch.Status))
	}
	if patch.Date != nil {
		day := utils.StartOfDay(*patch.Date)
		patch.Date = &day
	}

	appointment, err := s.appointmentRepo.Update(ctx, appointmentID, patch)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	if patch.Status != nil {
		observability.AuditStatusChange(ctx, appointmentID, string(appointment.Status), statusSourceAPI)
	}
	return s.afterChange(ctx, entities.AppointmentEventUpdated, appointment)
}

// Cancel marks the appointment cancelled regardless of its current status
func (s *AppointmentService) Cancel(ctx context.Context, appointmentID int64) (*entities.AppointmentView, error) {
	return s.setStatus(ctx, appointmentID, entities.AppointmentStatusCancelled, entities.AppointmentEventCancelled)
}

// Complete marks the appointment completed regardless of its current status
func (s *AppointmentService) Complete(ctx context.Context, appointmentID int64) (*entities.AppointmentView, error) {
	return s.setStatus(ctx, appointmentID, entities.AppointmentStatusCompleted, entities.AppointmentEventCompleted)
}

// Delete removes the appointments matching filter. An empty filter is rejected.
func (s *AppointmentService) Delete(ctx context.Context, filter repositories.AppointmentFilter) ([]*entities.Appointment, error) {
	ctx, span := observability.StartSpan(ctx, "AppointmentService.Delete")
	defer span.End()

	if filter.IsEmpty() {
		return nil, apperrors.NewValidationError("No filter provided")
	}

	deleted, err := s.appointmentRepo.Delete(ctx, filter)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}
	if len(deleted) == 0 {
		return nil, apperrors.NewNotFoundError("No appointments found")
	}

	for _, appointment := range deleted {
		s.publish(ctx, entities.AppointmentEventDeleted, &entities.AppointmentView{Appointment: *appointment})
	}
	log.Info().Int("count", len(deleted)).Msg("Appointments deleted")

	return deleted, nil
}

// TriggerSweep runs the expiry sweep on demand
func (s *AppointmentService) TriggerSweep(ctx context.Context) (SweepResult, error) {
	return s.sweeper.Sweep(ctx)
}

func (s *AppointmentService) setStatus(ctx context.Context, appointmentID int64, status entities.AppointmentStatus, eventType entities.AppointmentEventType) (*entities.AppointmentView, error) {
	ctx, span := observability.StartSpan(ctx, "AppointmentService.SetStatus",
		attribute.Int64("appointment.id", appointmentID),
		attribute.String("appointment.status", string(status)),
	)
	defer span.End()

	appointment, err := s.appointmentRepo.SetStatus(ctx, appointmentID, status)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	observability.AuditStatusChange(ctx, appointmentID, string(status), statusSourceAPI)
	return s.afterChange(ctx, eventType, appointment)
}

// afterChange joins the names of a changed appointment and announces the change
func (s *AppointmentService) afterChange(ctx context.Context, eventType entities.AppointmentEventType, appointment *entities.Appointment) (*entities.AppointmentView, error) {
	views, err := s.enrich(ctx, []*entities.Appointment{appointment})
	if err != nil {
		log.Warn().Err(err).Int64("appointment_id", appointment.AppointmentID).Msg("Failed to join appointment details")
		views = []*entities.AppointmentView{{Appointment: *appointment}}
	}
	s.publish(ctx, eventType, views[0])
	return views[0], nil
}

func (s *AppointmentService) findOrCreatePatient(ctx context.Context, input CreateAppointmentInput) (*entities.Patient, error) {
	patient, err := s.patientRepo.GetByMobile(ctx, input.Mobile)
	if err == nil {
		return patient, nil
	}
	if !apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
		return nil, err
	}

	patientID, err := s.sequenceRepo.NextValue(ctx, repositories.SequencePatientID)
	if err != nil {
		return nil, err
	}

	patient = &entities.Patient{
		PatientID: patientID,
		FullName:  input.FullName,
		Mobile:    input.Mobile,
		DoctorID:  input.DoctorID,
	}
	if email := strings.TrimSpace(input.Email); email != "" {
		patient.Email = &email
	}
	if code := strings.TrimSpace(input.CountryCode); code != "" {
		patient.CountryCode = &code
	}

	if err := s.patientRepo.Create(ctx, patient); err != nil {
		// Registered concurrently under the same mobile.
		if apperrors.IsType(err, apperrors.ErrorTypeConflict) {
			return s.patientRepo.GetByMobile(ctx, input.Mobile)
		}
		return nil, err
	}

	log.Info().Int64("patient_id", patientID).Msg("Patient registered")
	return patient, nil
}

func (s *AppointmentService) defaultEndTime(ctx context.Context, doctorID int64, startTime string) (string, error) {
	doctorSlot, err := s.slotRepo.GetActiveByDoctor(ctx, doctorID)
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			return "", apperrors.NewNotFoundError("Doctor slots not found")
		}
		return "", err
	}
	return utils.AddMinutes(startTime, doctorSlot.SlotInterval())
}

// enrich joins doctor and patient records in one batch per kind
func (s *AppointmentService) enrich(ctx context.Context, appointments []*entities.Appointment) ([]*entities.AppointmentView, error) {
	views := make([]*entities.AppointmentView, 0, len(appointments))
	if len(appointments) == 0 {
		return views, nil
	}

	var doctorIDs, patientIDs []int64
	for _, a := range appointments {
		if !slices.Contains(doctorIDs, a.DoctorID) {
			doctorIDs = append(doctorIDs, a.DoctorID)
		}
		if !slices.Contains(patientIDs, a.PatientID) {
			patientIDs = append(patientIDs, a.PatientID)
		}
	}

	l := loaders.NewLoaders(s.doctorRepo, s.patientRepo)
	doctors, err := l.Doctors(ctx, doctorIDs)
	if err != nil {
		return nil, err
	}
	patients, err := l.Patients(ctx, patientIDs)
	if err != nil {
		return nil, err
	}

	for _, a := range appointments {
		view := &entities.AppointmentView{Appointment: *a}
		if d, ok := doctors[a.DoctorID]; ok {
			view.DoctorName = &d.FullName
		}
		if p, ok := patients[a.PatientID]; ok {
			view.PatientName = &p.FullName
			view.PatientContact = contactOf(p)
		}
		views = append(views, view)
	}
	return views, nil
}

func (s *AppointmentService) publish(ctx context.Context, eventType entities.AppointmentEventType, view *entities.AppointmentView) {
	if s.eventBus == nil {
		return
	}

	event := entities.NewAppointmentEvent(eventType, &view.Appointment)
	if view.DoctorName != nil {
		event.DoctorName = *view.DoctorName
	}
	if view.PatientName != nil {
		event.PatientName = *view.PatientName
	}

	for _, channel := range []string{providers.EventChannelAppointmentUpdates, providers.GetDoctorChannel(view.DoctorID)} {
		if err := s.eventBus.Publish(ctx, channel, event); err != nil {
			log.Warn().Err(err).Str("channel", channel).Str("event_type", string(eventType)).Msg("Failed to publish appointment event")
		}
	}
}

func contactOf(p *entities.Patient) entities.PatientContact {
	mobile := p.Mobile
	fullMobile := p.FullMobile()
	return entities.PatientContact{
		Email:       p.Email,
		Mobile:      &mobile,
		CountryCode: p.CountryCode,
		FullMobile:  &fullMobile,
	}
}

func matchesContact(c entities.PatientContact, q AppointmentQuery) bool {
	if q.Email != "" && (c.Email == nil || !strings.EqualFold(*c.Email, q.Email)) {
		return false
	}
	if q.Mobile != "" && (c.Mobile == nil || *c.Mobile != q.Mobile) {
		return false
	}
	if q.CountryCode != "" && (c.CountryCode == nil || *c.CountryCode != q.CountryCode) {
		return false
	}
	if q.FullMobile != "" {
		full := c.FullMobile != nil && *c.FullMobile == q.FullMobile
		bare := c.Mobile != nil && *c.Mobile == q.FullMobile
		if !full && !bare {
			return false
		}
	}
	return true
}

type viewLess func(a, b *entities.AppointmentView) bool

// appointmentSorter returns the ordering for sortBy; nil keeps the store order
func appointmentSorter(sortBy string) (viewLess, error) {
	switch sortBy {
	case "":
		return nil, nil
	case "appointmentID":
		return func(a, b *entities.AppointmentView) bool { return a.AppointmentID < b.AppointmentID }, nil
	case "doctorID":
		return func(a, b *entities.AppointmentView) bool { return a.DoctorID < b.DoctorID }, nil
	case "patientID":
		return func(a, b *entities.AppointmentView) bool { return a.PatientID < b.PatientID }, nil
	case "date":
		return func(a, b *entities.AppointmentView) bool {
			if !a.Date.Equal(b.Date) {
				return a.Date.Before(b.Date)
			}
			return a.StartTime < b.StartTime
		}, nil
	case "startTime":
		return func(a, b *entities.AppointmentView) bool { return a.StartTime < b.StartTime }, nil
	case "endTime":
		return func(a, b *entities.AppointmentView) bool { return a.EndTime < b.EndTime }, nil
	case "status":
		return func(a, b *entities.AppointmentView) bool { return a.Status < b.Status }, nil
	case "createdAt":
		return func(a, b *entities.AppointmentView) bool { return a.CreatedAt.Before(b.CreatedAt) }, nil
	case "updatedAt":
		return func(a, b *entities.AppointmentView) bool { return a.UpdatedAt.Before(b.UpdatedAt) }, nil
	case "doctorName":
		return func(a, b *entities.AppointmentView) bool { return deref(a.DoctorName) < deref(b.DoctorName) }, nil
	case "patientName":
		return func(a, b *entities.AppointmentView) bool { return deref(a.PatientName) < deref(b.PatientName) }, nil
	}
	return nil, apperrors.NewValidationError("Invalid sortBy field", sortBy)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
