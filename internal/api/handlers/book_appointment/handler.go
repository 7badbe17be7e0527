package book_appointment

import (
	"errors"
	"net/http"

	"github.com/m04kA/SMC-ScheduleService/internal/api/handlers"
	"github.com/m04kA/SMC-ScheduleService/internal/api/middleware"
	bookAppointment "github.com/m04kA/SMC-ScheduleService/internal/usecase/book_appointment"
)

const (
	msgInvalidRequestBody = "некорректное тело запроса"
	msgInvalidStartTime   = "некорректное время начала, ожидается RFC3339"
	msgMissingUserID      = "отсутствует ID пользователя"
	msgDoctorNotFound     = "врач не найден"
	msgForbidden          = "доступ запрещен"
	msgNotAvailable       = "врач не принимает в выбранное время"
	msgSlotConflict       = "выбранное время уже занято"
)

type Handler struct {
	useCase BookAppointmentUseCase
	logger  Logger
}

func NewHandler(useCase BookAppointmentUseCase, logger Logger) *Handler {
	return &Handler{
		useCase: useCase,
		logger:  logger,
	}
}

// Handle POST /api/v1/appointments
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		h.logger.Warn("POST /appointments - Missing user ID")
		handlers.RespondUnauthorized(w, msgMissingUserID)
		return
	}

	var req BookAppointmentRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("POST /appointments - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}

	useCaseReq, err := req.ToUseCaseRequest(userID)
	if err != nil {
		h.logger.Warn("POST /appointments - Invalid start time: %v", err)
		handlers.RespondBadRequest(w, msgInvalidStartTime)
		return
	}

	result, err := h.useCase.Execute(r.Context(), useCaseReq)
	if err != nil {
		var conflict *bookAppointment.SlotConflictError
		switch {
		case errors.As(err, &conflict):
			h.logger.Warn("POST /appointments - Slot conflict: doctor_id=%d, %v", req.DoctorID, err)
			handlers.RespondConflict(w, msgSlotConflict, fromDomainConflict(conflict.Appointment))

		case errors.Is(err, bookAppointment.ErrNotAvailable):
			h.logger.Warn("POST /appointments - Not available: doctor_id=%d, start=%s", req.DoctorID, req.StartTime)
			handlers.RespondUnprocessable(w, msgNotAvailable)

		case errors.Is(err, bookAppointment.ErrInvalidInput):
			h.logger.Warn("POST /appointments - Validation failed: %v", err)
			handlers.RespondBadRequest(w, err.Error())

		case errors.Is(err, bookAppointment.ErrAccessDenied):
			h.logger.Warn("POST /appointments - Access denied: doctor_id=%d, user_id=%d", req.DoctorID, userID)
			handlers.RespondForbidden(w, msgForbidden)

		case errors.Is(err, bookAppointment.ErrDoctorNotFound):
			h.logger.Warn("POST /appointments - Doctor not found: doctor_id=%d", req.DoctorID)
			handlers.RespondNotFound(w, msgDoctorNotFound)

		default:
			h.logger.Error("POST /appointments - Failed to book: doctor_id=%d, user_id=%d, error=%v", req.DoctorID, userID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("POST /appointments - Appointment booked: appointment_id=%d, doctor_id=%d, patient_id=%d",
		result.ID, result.DoctorID, result.PatientID)
	handlers.RespondJSON(w, http.StatusCreated, result)
}
