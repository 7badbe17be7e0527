package availability_events

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/m04kA/SMC-ScheduleService/internal/api/handlers"
	"github.com/m04kA/SMC-ScheduleService/internal/api/middleware"
	"github.com/m04kA/SMC-ScheduleService/internal/domain"
	"github.com/m04kA/SMC-ScheduleService/internal/service/subscriptions"
)

const (
	msgInvalidDoctorID = "некорректный ID врача"
	msgMissingUserID   = "отсутствует ID пользователя"
	msgDoctorNotFound  = "врач не найден"
	msgForbidden       = "доступ запрещен"

	// frameWriteTimeout дедлайн на запись одного кадра; сбрасывает WriteTimeout сервера
	frameWriteTimeout = 10 * time.Second
)

type Handler struct {
	service   SubscriptionService
	heartbeat time.Duration
	logger    Logger
}

// NewHandler создает handler потока событий. heartbeat 0 - без ping комментариев.
func NewHandler(service SubscriptionService, heartbeat time.Duration, logger Logger) *Handler {
	return &Handler{
		service:   service,
		heartbeat: heartbeat,
		logger:    logger,
	}
}

// Handle GET /api/v1/doctors/{doctorId}/availability/events
// Server-Sent Events: первым приходит {"type":"connected"}, затем события расписания врача.
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	doctorID, err := strconv.ParseInt(mux.Vars(r)["doctorId"], 10, 64)
	if err != nil {
		h.logger.Warn("GET /doctors/{id}/availability/events - Invalid doctor ID: %v", err)
		handlers.RespondBadRequest(w, msgInvalidDoctorID)
		return
	}

	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		h.logger.Warn("GET /doctors/{id}/availability/events - Missing user ID")
		handlers.RespondUnauthorized(w, msgMissingUserID)
		return
	}

	if lastID := r.Header.Get("Last-Event-ID"); lastID != "" {
		h.logger.Info("GET /doctors/{id}/availability/events - Last-Event-ID=%s ignored, replay is not supported: doctor_id=%d",
			lastID, doctorID)
	}

	sub, err := h.service.Subscribe(r.Context(), userID, doctorID)
	if err != nil {
		switch {
		case errors.Is(err, subscriptions.ErrInvalidInput):
			h.logger.Warn("GET /doctors/{id}/availability/events - Validation failed: %v", err)
			handlers.RespondBadRequest(w, msgInvalidDoctorID)

		case errors.Is(err, subscriptions.ErrAccessDenied):
			h.logger.Warn("GET /doctors/{id}/availability/events - Access denied: doctor_id=%d, user_id=%d", doctorID, userID)
			handlers.RespondForbidden(w, msgForbidden)

		case errors.Is(err, subscriptions.ErrDoctorNotFound):
			h.logger.Warn("GET /doctors/{id}/availability/events - Doctor not found: doctor_id=%d", doctorID)
			handlers.RespondNotFound(w, msgDoctorNotFound)

		default:
			h.logger.Error("GET /doctors/{id}/availability/events - Failed to subscribe: doctor_id=%d, error=%v", doctorID, err)
			handlers.RespondInternalError(w)
		}
		return
	}
	defer h.service.Unsubscribe(sub)

	rc := http.NewResponseController(w)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	var heartbeat <-chan time.Time
	if h.heartbeat > 0 {
		ticker := time.NewTicker(h.heartbeat)
		defer ticker.Stop()
		heartbeat = ticker.C
	}

	h.logger.Info("GET /doctors/{id}/availability/events - Stream opened: doctor_id=%d, user_id=%d, subscriber=%s",
		doctorID, userID, sub.ID)

	for {
		select {
		case <-r.Context().Done():
			h.logger.Info("GET /doctors/{id}/availability/events - Client disconnected: subscriber=%s", sub.ID)
			return

		case event, ok := <-sub.Events():
			if !ok {
				h.logger.Warn("GET /doctors/{id}/availability/events - Subscriber dropped by hub: subscriber=%s", sub.ID)
				return
			}
			if err := writeEvent(w, rc, event); err != nil {
				h.logger.Warn("GET /doctors/{id}/availability/events - Write failed: subscriber=%s, error=%v", sub.ID, err)
				return
			}

		case <-heartbeat:
			if err := writeFrame(w, rc, ": ping\n\n"); err != nil {
				h.logger.Warn("GET /doctors/{id}/availability/events - Heartbeat failed: subscriber=%s, error=%v", sub.ID, err)
				return
			}
		}
	}
}

func writeEvent(w http.ResponseWriter, rc *http.ResponseController, event domain.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return writeFrame(w, rc, "data: "+string(payload)+"\n\n")
}

func writeFrame(w http.ResponseWriter, rc *http.ResponseController, frame string) error {
	if err := rc.SetWriteDeadline(time.Now().Add(frameWriteTimeout)); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return err
	}
	if _, err := fmt.Fprint(w, frame); err != nil {
		return err
	}
	return rc.Flush()
}
