package subscriptions

import (
	"context"
	"errors"
	"fmt"

	"github.com/m04kA/SMC-ScheduleService/internal/domain"
	"github.com/m04kA/SMC-ScheduleService/internal/hub"
	doctorClient "github.com/m04kA/SMC-ScheduleService/internal/integrations/doctorservice"
)

// Service открывает подписки на события расписания врача
type Service struct {
	hub          Hub
	doctorClient DoctorServiceClient
	authClient   AuthServiceClient
	logger       Logger
}

// NewService создает новый экземпляр сервиса подписок
func NewService(h Hub, doctorClient DoctorServiceClient, authClient AuthServiceClient, logger Logger) *Service {
	return &Service{
		hub:          h,
		doctorClient: doctorClient,
		authClient:   authClient,
		logger:       logger,
	}
}

// Subscribe проверяет права и регистрирует подписчика на события врача.
// Первым событием в канале всегда будет connected.
func (s *Service) Subscribe(ctx context.Context, callerID, doctorID int64) (*hub.Subscriber, error) {
	if doctorID <= 0 {
		return nil, fmt.Errorf("%w: doctorID must be positive", ErrInvalidInput)
	}

	allowed, err := s.authClient.CanAccess(ctx, callerID, doctorID, domain.PermissionSubscribe)
	if err != nil {
		s.logger.Error("Subscribe: failed to check access for user id=%d: %v", callerID, err)
		return nil, fmt.Errorf("%w: Subscribe - check access: %w", ErrInternal, err)
	}
	if !allowed {
		s.logger.Warn("Subscribe: user id=%d has no %s permission for doctor id=%d", callerID, domain.PermissionSubscribe, doctorID)
		return nil, ErrAccessDenied
	}

	if _, err := s.doctorClient.GetDoctor(ctx, doctorID); err != nil {
		if errors.Is(err, doctorClient.ErrDoctorNotFound) {
			s.logger.Warn("Subscribe: doctor id=%d not found", doctorID)
			return nil, ErrDoctorNotFound
		}
		s.logger.Error("Subscribe: failed to get doctor id=%d: %v", doctorID, err)
		return nil, fmt.Errorf("%w: Subscribe - get doctor: %w", ErrInternal, err)
	}

	sub := s.hub.Subscribe(doctorID)
	s.logger.Info("Subscribe: user id=%d subscribed to doctor id=%d, subscriber=%s", callerID, doctorID, sub.ID)
	return sub, nil
}

// Unsubscribe снимает подписку. Повторный вызов безопасен.
func (s *Service) Unsubscribe(sub *hub.Subscriber) {
	if sub == nil {
		return
	}
	s.hub.Unsubscribe(sub.ID)
	s.logger.Info("Unsubscribe: subscriber=%s, doctor id=%d", sub.ID, sub.DoctorID)
}
