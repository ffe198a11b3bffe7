package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/agastya-health/clinic-admin/internal/application/services"
	"github.com/agastya-health/clinic-admin/internal/domain/entities"
	"github.com/agastya-health/clinic-admin/internal/domain/repositories"
	apperrors "github.com/agastya-health/clinic-admin/pkg/errors"
	"github.com/agastya-health/clinic-admin/pkg/utils"
)

// AppointmentService defines the interface for appointment operations
type AppointmentService interface {
	List(ctx context.Context, query services.AppointmentQuery) ([]*entities.AppointmentView, error)
	Get(ctx context.Context, appointmentID int64) (*entities.AppointmentView, error)
	Create(ctx context.Context, input services.CreateAppointmentInput) (*services.CreateAppointmentResult, error)
	Update(ctx context.Context, appointmentID int64, patch entities.AppointmentPatch) (*entities.AppointmentView, error)
	Cancel(ctx context.Context, appointmentID int64) (*entities.AppointmentView, error)
	Complete(ctx context.Context, appointmentID int64) (*entities.AppointmentView, error)
	Delete(ctx context.Context, filter repositories.AppointmentFilter) ([]*entities.Appointment, error)
	TriggerSweep(ctx context.Context) (services.SweepResult, error)
}

// SlotService defines the interface for slot availability
type SlotService interface {
	AvailableSlots(ctx context.Context, doctorID int64, date time.Time) ([]entities.TimeSlot, error)
}

// AppointmentHandler handles appointment requests
type AppointmentHandler struct {
	service     AppointmentService
	slotService SlotService
	clinicName  string
}

// NewAppointmentHandler creates a new appointment handler
func NewAppointmentHandler(service AppointmentService, slotService SlotService, clinicName string) *AppointmentHandler {
	return &AppointmentHandler{
		service:     service,
		slotService: slotService,
		clinicName:  clinicName,
	}
}

type createAppointmentRequest struct {
	DoctorID         int64  `json:"doctorID" validate:"required,gt=0"`
	Date             string `json:"date" validate:"required"`
	StartTime        string `json:"startTime" validate:"required"`
	EndTime          string `json:"endTime"`
	Mobile           string `json:"mobile" validate:"required"`
	FullName         string `json:"fullName" validate:"required"`
	Email            string `json:"email" validate:"omitempty,email"`
	CountryCode      string `json:"countryCode"`
	IsWhatsAppNumber bool   `json:"isWhatsAppNumber"`
	TermsAccepted    bool   `json:"termsAccepted"`
	MarketingConsent bool   `json:"marketingConsent"`
}

type updateAppointmentRequest struct {
	DoctorID         *int64                      `json:"doctorID"`
	PatientID        *int64                      `json:"patientID"`
	Date             *string                     `json:"date"`
	StartTime        *string                     `json:"startTime"`
	EndTime          *string                     `json:"endTime"`
	Status           *entities.AppointmentStatus `json:"status"`
	Mobile           *string                     `json:"mobile"`
	Email            *string                     `json:"email"`
	IsWhatsAppNumber *bool                       `json:"isWhatsAppNumber"`
	TermsAccepted    *bool                       `json:"termsAccepted"`
	MarketingConsent *bool                       `json:"marketingConsent"`
}

type deleteFilterRequest struct {
	Filter *struct {
		AppointmentID  *int64  `json:"appointmentID"`
		AppointmentIDs []int64 `json:"appointmentIDs"`
		DoctorID       int64   `json:"doctorID"`
		PatientID      int64   `json:"patientID"`
		Status         string  `json:"status"`
		Date           string  `json:"date"`
		FromDate       string  `json:"fromDate"`
		ToDate         string  `json:"toDate"`
	} `json:"filter"`
}

// ListAppointments handles GET /api/appointments
func (h *AppointmentHandler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter, err := parseAppointmentFilter(q)
	if err != nil {
		writeError(w, r, err)
		return
	}

	single := q.Get("appointmentID") != ""
	if single && len(filter.AppointmentIDs) != 1 {
		respondWithError(w, http.StatusBadRequest, "Invalid appointmentID")
		return
	}

	views, err := h.service.List(r.Context(), services.AppointmentQuery{
		Filter:      filter,
		Email:       q.Get("patientContact.email"),
		Mobile:      q.Get("patientContact.mobile"),
		CountryCode: q.Get("patientContact.countryCode"),
		FullMobile:  q.Get("patientContact.fullMobile"),
		SortBy:      q.Get("sortBy"),
		SortOrder:   q.Get("sortOrder"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	if single {
		if len(views) == 0 {
			respondWithError(w, http.StatusNotFound, "Appointment not found")
			return
		}
		respondWithJSON(w, http.StatusOK, views[0])
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"count":        len(views),
		"appointments": views,
	})
}

// GetAvailableSlots handles GET /api/appointments/availableSlots
func (h *AppointmentHandler) GetAvailableSlots(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	doctorID, ok := parseID(q.Get("doctorID"))
	if !ok || q.Get("date") == "" {
		respondWithError(w, http.StatusBadRequest, "doctorID and date required")
		return
	}
	date, err := utils.ParseDate(q.Get("date"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "doctorID and date required")
		return
	}

	slots, err := h.slotService.AvailableSlots(r.Context(), doctorID, date)
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"doctorID":       doctorID,
		"date":           date.Format(utils.DateLayout),
		"availableSlots": slots,
	})
}

// CreateAppointment handles POST /api/appointments
func (h *AppointmentHandler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	var req createAppointmentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if err := validate.Struct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && fieldErrs[0].Field() == "Email" {
			respondWithError(w, http.StatusBadRequest, "Invalid email")
			return
		}
		respondWithError(w, http.StatusBadRequest, "doctorID, date, startTime, mobile, fullName required")
		return
	}

	date, err := utils.ParseDate(req.Date)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid date")
		return
	}

	result, err := h.service.Create(r.Context(), services.CreateAppointmentInput{
		DoctorID:         req.DoctorID,
		Date:             date,
		StartTime:        req.StartTime,
		EndTime:          req.EndTime,
		Mobile:           req.Mobile,
		FullName:         req.FullName,
		Email:            req.Email,
		CountryCode:      req.CountryCode,
		IsWhatsAppNumber: req.IsWhatsAppNumber,
		TermsAccepted:    req.TermsAccepted,
		MarketingConsent: req.MarketingConsent,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"message":     "Appointment booked successfully",
		"patient":     result.Patient,
		"appointment": result.Appointment,
	})
}

// UpdateAppointment handles PUT /api/appointments/{id}
func (h *AppointmentHandler) UpdateAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r.PathValue("id"))
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid appointment ID")
		return
	}

	var req updateAppointmentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	patch := entities.AppointmentPatch{
		DoctorID:         req.DoctorID,
		PatientID:        req.PatientID,
		StartTime:        req.StartTime,
		EndTime:          req.EndTime,
		Status:           req.Status,
		Mobile:           req.Mobile,
		Email:            req.Email,
		IsWhatsAppNumber: req.IsWhatsAppNumber,
		TermsAccepted:    req.TermsAccepted,
		MarketingConsent: req.MarketingConsent,
	}
	if req.Date != nil {
		date, err := utils.ParseDate(*req.Date)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid date")
			return
		}
		patch.Date = &date
	}

	view, err := h.service.Update(r.Context(), id, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"message":     "Appointment updated successfully",
		"appointment": view,
	})
}

// CancelAppointment handles PUT /api/appointments/{id}/status/cancel
func (h *AppointmentHandler) CancelAppointment(w http.ResponseWriter, r *http.Request) {
	h.changeStatus(w, r, h.service.Cancel, "Appointment cancelled")
}

// CompleteAppointment handles PUT /api/appointments/{id}/status/complete
func (h *AppointmentHandler) CompleteAppointment(w http.ResponseWriter, r *http.Request) {
	h.changeStatus(w, r, h.service.Complete, "Appointment marked completed")
}

func (h *AppointmentHandler) changeStatus(
	w http.ResponseWriter,
	r *http.Request,
	change func(context.Context, int64) (*entities.AppointmentView, error),
	message string,
) {
	id, ok := parseID(r.PathValue("id"))
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid appointment ID")
		return
	}

	view, err := change(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"message":     message,
		"appointment": view,
	})
}

// MarkExpired handles POST /api/appointments/status/expired
func (h *AppointmentHandler) MarkExpired(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.TriggerSweep(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"message":      "Expired appointments updated successfully",
		"updatedCount": result.Updated,
	})
}

// DeleteAppointmentsBulk handles DELETE /api/appointments/bulk/{ids}
func (h *AppointmentHandler) DeleteAppointmentsBulk(w http.ResponseWriter, r *http.Request) {
	ids := parseIDList(r.PathValue("ids"))
	if len(ids) == 0 {
		respondWithError(w, http.StatusBadRequest, "No valid IDs provided")
		return
	}
	h.deleteMatching(w, r, repositories.AppointmentFilter{AppointmentIDs: ids})
}

// DeleteAppointments handles DELETE /api/appointments. The filter comes from
// the query when it has any, otherwise from the body's "filter" object.
func (h *AppointmentHandler) DeleteAppointments(w http.ResponseWriter, r *http.Request) {
	filter, err := parseAppointmentFilter(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}

	if filter.IsEmpty() {
		var req deleteFilterRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		if req.Filter != nil {
			b := req.Filter
			values := url.Values{}
			set := func(key, value string) {
				if value != "" {
					values.Set(key, value)
				}
			}
			if b.AppointmentID != nil {
				set("appointmentID", strconv.FormatInt(*b.AppointmentID, 10))
			}
			if b.DoctorID != 0 {
				set("doctorID", strconv.FormatInt(b.DoctorID, 10))
			}
			if b.PatientID != 0 {
				set("patientID", strconv.FormatInt(b.PatientID, 10))
			}
			set("status", b.Status)
			set("date", b.Date)
			set("fromDate", b.FromDate)
			set("toDate", b.ToDate)

			filter, err = parseAppointmentFilter(values)
			if err != nil {
				writeError(w, r, err)
				return
			}
			filter.AppointmentIDs = append(filter.AppointmentIDs, b.AppointmentIDs...)
		}
	}

	if filter.IsEmpty() {
		respondWithError(w, http.StatusBadRequest, "No filter provided")
		return
	}
	h.deleteMatching(w, r, filter)
}

func (h *AppointmentHandler) deleteMatching(w http.ResponseWriter, r *http.Request, filter repositories.AppointmentFilter) {
	deleted, err := h.service.Delete(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}

	message := "Appointments deleted"
	if len(deleted) == 1 {
		message = "Appointment deleted"
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"message":             message,
		"deletedCount":        len(deleted),
		"deletedAppointments": deleted,
	})
}

// DownloadSlip handles GET /api/appointments/{id}/slip
func (h *AppointmentHandler) DownloadSlip(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r.PathValue("id"))
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid appointment ID")
		return
	}

	view, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	pdf, err := renderSlip(h.clinicName, view)
	if err != nil {
		writeError(w, r, apperrors.NewInternalError("failed to render slip", err))
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="appointment-%d.pdf"`, id))
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.WriteHeader(http.StatusOK)
	w.Write(pdf)
}

// parseAppointmentFilter reads the appointment-level predicates of q.
// appointmentID accepts a comma separated list.
func parseAppointmentFilter(q url.Values) (repositories.AppointmentFilter, error) {
	var filter repositories.AppointmentFilter

	if raw := q.Get("appointmentID"); raw != "" {
		filter.AppointmentIDs = parseIDList(raw)
		if len(filter.AppointmentIDs) == 0 {
			return filter, apperrors.NewValidationError("Invalid appointmentID")
		}
	}
	if raw := q.Get("doctorID"); raw != "" {
		id, ok := parseID(raw)
		if !ok {
			return filter, apperrors.NewValidationError("Invalid doctorID")
		}
		filter.DoctorID = id
	}
	if raw := q.Get("patientID"); raw != "" {
		id, ok := parseID(raw)
		if !ok {
			return filter, apperrors.NewValidationError("Invalid patientID")
		}
		filter.PatientID = id
	}
	if raw := q.Get("status"); raw != "" {
		status := entities.AppointmentStatus(raw)
		if !status.Valid() {
			return filter, apperrors.NewValidationError("Invalid status")
		}
		filter.Status = status
	}

	// A fromDate/toDate range takes precedence over date.
	fromRaw, toRaw := q.Get("fromDate"), q.Get("toDate")
	if fromRaw == "" && toRaw == "" {
		if raw := q.Get("date"); raw != "" {
			day, err := utils.ParseDate(raw)
			if err != nil {
				return filter, apperrors.NewValidationError("Invalid date")
			}
			end := utils.EndOfDay(day)
			filter.From, filter.To = &day, &end
		}
		return filter, nil
	}
	if fromRaw != "" {
		from, err := utils.ParseDate(fromRaw)
		if err != nil {
			return filter, apperrors.NewValidationError("Invalid fromDate")
		}
		filter.From = &from
	}
	if toRaw != "" {
		to, err := utils.ParseDate(toRaw)
		if err != nil {
			return filter, apperrors.NewValidationError("Invalid toDate")
		}
		end := utils.EndOfDay(to)
		filter.To = &end
	}
	return filter, nil
}
