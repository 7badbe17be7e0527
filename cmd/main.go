package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	availabilityEventsHandler "github.com/m04kA/SMC-ScheduleService/internal/api/handlers/availability_events"
	bookAppointmentHandler "github.com/m04kA/SMC-ScheduleService/internal/api/handlers/book_appointment"
	cancelAppointmentHandler "github.com/m04kA/SMC-ScheduleService/internal/api/handlers/cancel_appointment"
	createAvailabilityHandler "github.com/m04kA/SMC-ScheduleService/internal/api/handlers/create_availability"
	deleteAvailabilityHandler "github.com/m04kA/SMC-ScheduleService/internal/api/handlers/delete_availability"
	getAppointmentHandler "github.com/m04kA/SMC-ScheduleService/internal/api/handlers/get_appointment"
	getSlotsHandler "github.com/m04kA/SMC-ScheduleService/internal/api/handlers/get_slots"
	listAvailabilityHandler "github.com/m04kA/SMC-ScheduleService/internal/api/handlers/list_availability"
	transitionAppointmentHandler "github.com/m04kA/SMC-ScheduleService/internal/api/handlers/transition_appointment"
	updateAvailabilityHandler "github.com/m04kA/SMC-ScheduleService/internal/api/handlers/update_availability"
	"github.com/m04kA/SMC-ScheduleService/internal/api/middleware"
	"github.com/m04kA/SMC-ScheduleService/internal/config"
	"github.com/m04kA/SMC-ScheduleService/internal/domain"
	"github.com/m04kA/SMC-ScheduleService/internal/hub"
	appointmentRepo "github.com/m04kA/SMC-ScheduleService/internal/infra/storage/appointment"
	ruleRepo "github.com/m04kA/SMC-ScheduleService/internal/infra/storage/availability"
	authServiceClient "github.com/m04kA/SMC-ScheduleService/internal/integrations/authservice"
	doctorServiceClient "github.com/m04kA/SMC-ScheduleService/internal/integrations/doctorservice"
	"github.com/m04kA/SMC-ScheduleService/internal/integrations/redisrelay"
	appointmentsService "github.com/m04kA/SMC-ScheduleService/internal/service/appointments"
	availabilityService "github.com/m04kA/SMC-ScheduleService/internal/service/availability"
	subscriptionsService "github.com/m04kA/SMC-ScheduleService/internal/service/subscriptions"
	bookAppointmentUC "github.com/m04kA/SMC-ScheduleService/internal/usecase/book_appointment"
	generateSlotsUC "github.com/m04kA/SMC-ScheduleService/internal/usecase/generate_slots"
	"github.com/m04kA/SMC-ScheduleService/pkg/dbmetrics"
	"github.com/m04kA/SMC-ScheduleService/pkg/logger"
	"github.com/m04kA/SMC-ScheduleService/pkg/metrics"
	"github.com/m04kA/SMC-ScheduleService/pkg/simpletxmanager"
	"github.com/m04kA/SMC-ScheduleService/pkg/txmanager"
)

// publisher получатель событий изменения расписания: локальный хаб или Redis relay
type publisher interface {
	Publish(doctorID int64, event domain.Event)
}

func main() {
	// Загружаем конфигурацию
	configPath := "config.toml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		configPath = v
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Инициализируем логгер
	log, err := logger.New(cfg.Logs.File, cfg.Logs.Level)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	log.Info("Starting SMC-ScheduleService...")
	log.Info("Configuration loaded from %s", configPath)

	location, err := cfg.Schedule.Location()
	if err != nil {
		log.Fatal("Failed to load clinic timezone %q: %v", cfg.Schedule.Timezone, err)
	}
	log.Info("Clinic timezone: %s", location)

	// Инициализируем метрики (если включены)
	var metricsCollector *metrics.Metrics
	stopMetricsCh := make(chan struct{})

	if cfg.Metrics.Enabled {
		metricsCollector = metrics.New(cfg.Metrics.ServiceName)
		log.Info("Metrics enabled at %s", cfg.Metrics.Path)
	}

	// Подключаемся к базе данных
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatal("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Настраиваем connection pool
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetime) * time.Second)

	// Проверяем соединение
	if err := db.Ping(); err != nil {
		log.Fatal("Failed to ping database: %v", err)
	}
	log.Info("Successfully connected to database (host=%s, port=%d, db=%s)",
		cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName)

	// Инициализируем интеграционных клиентов
	authClient := authServiceClient.NewClient(
		cfg.AuthService.URL,
		time.Duration(cfg.AuthService.Timeout)*time.Second,
		log,
	)
	doctorClient := doctorServiceClient.NewClient(
		cfg.DoctorService.URL,
		time.Duration(cfg.DoctorService.Timeout)*time.Second,
		log,
	)
	log.Info("Integration clients initialized (AuthService=%s timeout=%ds, DoctorService=%s timeout=%ds)",
		cfg.AuthService.URL, cfg.AuthService.Timeout, cfg.DoctorService.URL, cfg.DoctorService.Timeout)

	// Инициализируем репозитории и transaction manager (с метриками или без)
	var (
		rules        *ruleRepo.Repository
		appointments *appointmentRepo.Repository
		txMgr        *txmanager.TransactionManager
	)

	if cfg.Metrics.Enabled {
		wrappedDB := dbmetrics.WrapWithDefault(db, metricsCollector, cfg.Metrics.ServiceName, stopMetricsCh)
		log.Info("Database metrics collection started")

		rules = ruleRepo.NewRepository(wrappedDB)
		appointments = appointmentRepo.NewRepository(wrappedDB)
		txMgr = txmanager.NewTransactionManager(wrappedDB)
	} else {
		rules = ruleRepo.NewRepository(db)
		appointments = appointmentRepo.NewRepository(db)
		txMgr = simpletxmanager.NewTransactionManager(db)
	}

	// Хаб подписчиков на события расписания
	hubOpts := []hub.Option{hub.WithBufferSize(cfg.Schedule.SubscriberBuffer)}
	if cfg.Metrics.Enabled {
		hubOpts = append(hubOpts, hub.WithRecorder(metricsCollector))
	}
	eventHub := hub.New(log, hubOpts...)

	relayCtx, stopRelay := context.WithCancel(context.Background())
	defer stopRelay()

	var events publisher = eventHub
	if cfg.Redis.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()

		if err := redisClient.Ping(relayCtx).Err(); err != nil {
			log.Fatal("Failed to ping redis at %s: %v", cfg.Redis.Addr, err)
		}

		relay := redisrelay.NewRelay(redisClient, eventHub, cfg.Redis.ChannelPrefix, log)
		relayErr := make(chan error, 1)
		go func() {
			relayErr <- relay.Run(relayCtx)
		}()

		select {
		case <-relay.Ready():
		case err := <-relayErr:
			log.Fatal("Failed to start redis relay: %v", err)
		}

		events = relay
		log.Info("Redis event relay enabled (addr=%s, prefix=%s)", cfg.Redis.Addr, cfg.Redis.ChannelPrefix)
	}

	// Общий порядок изменений по врачу: фиксация и публикация события под одной блокировкой
	sequencer := hub.NewSequencer()

	// Инициализируем сервисы
	availabilitySvc := availabilityService.NewService(
		rules,
		appointments,
		doctorClient,
		authClient,
		txMgr,
		events,
		location,
		log,
		availabilityService.WithSequencer(sequencer),
	)
	appointmentsSvc := appointmentsService.NewService(
		appointments,
		authClient,
		txMgr,
		events,
		log,
		appointmentsService.WithSequencer(sequencer),
	)
	subscriptionsSvc := subscriptionsService.NewService(
		eventHub,
		doctorClient,
		authClient,
		log,
	)

	// Инициализируем use cases
	bookOpts := []bookAppointmentUC.Option{bookAppointmentUC.WithSequencer(sequencer)}
	if cfg.Metrics.Enabled {
		bookOpts = append(bookOpts, bookAppointmentUC.WithRecorder(metricsCollector))
	}
	bookAppointmentUseCase := bookAppointmentUC.NewUseCase(
		rules,
		appointments,
		doctorClient,
		authClient,
		txMgr,
		events,
		location,
		log,
		bookOpts...,
	)
	generateSlotsUseCase := generateSlotsUC.NewUseCase(
		rules,
		appointments,
		doctorClient,
		location,
		log,
	)

	// Инициализируем handlers
	listAvailability := listAvailabilityHandler.NewHandler(availabilitySvc, log)
	createAvailability := createAvailabilityHandler.NewHandler(availabilitySvc, log)
	updateAvailability := updateAvailabilityHandler.NewHandler(availabilitySvc, log)
	deleteAvailability := deleteAvailabilityHandler.NewHandler(availabilitySvc, log)
	availabilityEvents := availabilityEventsHandler.NewHandler(subscriptionsSvc, cfg.Schedule.HeartbeatInterval(), log)
	getSlots := getSlotsHandler.NewHandler(generateSlotsUseCase, log)
	bookAppointment := bookAppointmentHandler.NewHandler(bookAppointmentUseCase, log)
	getAppointment := getAppointmentHandler.NewHandler(appointmentsSvc, log)
	transitionAppointment := transitionAppointmentHandler.NewHandler(appointmentsSvc, log)
	cancelAppointment := cancelAppointmentHandler.NewHandler(appointmentsSvc, log)

	// Настраиваем роутер
	r := mux.NewRouter()

	// Metrics middleware и endpoint (публичный, без аутентификации)
	if cfg.Metrics.Enabled {
		r.Use(middleware.MetricsMiddleware(metricsCollector))
		r.Handle(cfg.Metrics.Path, metricsCollector.Handler()).Methods(http.MethodGet)
		log.Info("Prometheus metrics endpoint exposed at %s", cfg.Metrics.Path)
	}

	// API prefix
	api := r.PathPrefix("/api/v1").Subrouter()

	// ============================================================
	// PUBLIC ROUTES (без аутентификации)
	// ============================================================

	// Расписание врача: правила и активные приёмы
	api.HandleFunc("/doctors/{doctorId}/availability", listAvailability.Handle).Methods(http.MethodGet)

	// Слоты врача на дату
	api.HandleFunc("/doctors/{doctorId}/slots", getSlots.Handle).Methods(http.MethodGet)

	// ============================================================
	// PROTECTED ROUTES (требуют X-User-ID header)
	// ============================================================

	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.Auth)

	// --- Правила доступности ---
	protected.HandleFunc("/doctors/{doctorId}/availability", createAvailability.Handle).Methods(http.MethodPost)
	protected.HandleFunc("/availability/{ruleId}", updateAvailability.Handle).Methods(http.MethodPatch)
	protected.HandleFunc("/availability/{ruleId}", deleteAvailability.Handle).Methods(http.MethodDelete)

	// Поток событий расписания (SSE)
	protected.HandleFunc("/doctors/{doctorId}/availability/events", availabilityEvents.Handle).Methods(http.MethodGet)

	// --- Приёмы ---
	protected.HandleFunc("/appointments", bookAppointment.Handle).Methods(http.MethodPost)
	protected.HandleFunc("/appointments/{appointmentId}", getAppointment.Handle).Methods(http.MethodGet)
	protected.HandleFunc("/appointments/{appointmentId}/status", transitionAppointment.Handle).Methods(http.MethodPatch)
	protected.HandleFunc("/appointments/{appointmentId}/cancel", cancelAppointment.Handle).Methods(http.MethodPatch)

	// Создаем HTTP сервер
	addr := fmt.Sprintf(":%d", cfg.Server.HTTPPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info("Starting server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start: %v", err)
		}
	}()

	// Ожидаем сигнал завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	// SSE потоки не завершаются сами, поэтому сначала закрываем подписки
	stopRelay()
	eventHub.Close()
	log.Info("Event subscribers disconnected")

	// Останавливаем сбор метрик connection pool
	if cfg.Metrics.Enabled {
		close(stopMetricsCh)
		log.Info("Metrics collection stopped")
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown: %v", err)
	}

	log.Info("Server stopped gracefully")
}
