package list_availability

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/m04kA/SMC-ScheduleService/internal/api/handlers"
	"github.com/m04kA/SMC-ScheduleService/internal/service/availability"
	"github.com/m04kA/SMC-ScheduleService/internal/service/availability/models"
)

const (
	msgInvalidDoctorID  = "некорректный ID врача"
	msgInvalidDayOfWeek = "некорректный день недели, ожидается число 0-6"
	msgDoctorNotFound   = "врач не найден"
)

type Handler struct {
	service AvailabilityService
	logger  Logger
}

func NewHandler(service AvailabilityService, logger Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Handle GET /api/v1/doctors/{doctorId}/availability
// Query params: startDate, endDate (YYYY-MM-DD), dayOfWeek (0-6), все необязательные
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	doctorID, err := strconv.ParseInt(mux.Vars(r)["doctorId"], 10, 64)
	if err != nil {
		h.logger.Warn("GET /doctors/{id}/availability - Invalid doctor ID: %v", err)
		handlers.RespondBadRequest(w, msgInvalidDoctorID)
		return
	}

	query := r.URL.Query()
	req := &models.ListRequest{DoctorID: doctorID}

	if v := query.Get("startDate"); v != "" {
		req.StartDate = &v
	}
	if v := query.Get("endDate"); v != "" {
		req.EndDate = &v
	}
	if v := query.Get("dayOfWeek"); v != "" {
		day, err := strconv.Atoi(v)
		if err != nil {
			h.logger.Warn("GET /doctors/{id}/availability - Invalid dayOfWeek: %v", err)
			handlers.RespondBadRequest(w, msgInvalidDayOfWeek)
			return
		}
		req.DayOfWeek = &day
	}

	resp, err := h.service.List(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, availability.ErrInvalidInput):
			h.logger.Warn("GET /doctors/{id}/availability - Validation failed: %v", err)
			handlers.RespondBadRequest(w, err.Error())

		case errors.Is(err, availability.ErrDoctorNotFound):
			h.logger.Warn("GET /doctors/{id}/availability - Doctor not found: doctor_id=%d", doctorID)
			handlers.RespondNotFound(w, msgDoctorNotFound)

		default:
			h.logger.Error("GET /doctors/{id}/availability - Failed to list rules: doctor_id=%d, error=%v", doctorID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("GET /doctors/{id}/availability - Returned %d rules, %d appointments: doctor_id=%d",
		len(resp.Rules), len(resp.Appointments), doctorID)
	handlers.RespondJSON(w, http.StatusOK, resp)
}
