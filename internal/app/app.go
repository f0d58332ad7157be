// Package app wires configuration, infrastructure and services into one
// container shared by the API server and the operator CLI.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/academic-registrar-api/internal/handler"
	"github.com/noah-isme/academic-registrar-api/internal/repository"
	"github.com/noah-isme/academic-registrar-api/internal/router"
	"github.com/noah-isme/academic-registrar-api/internal/service"
	"github.com/noah-isme/academic-registrar-api/pkg/cache"
	"github.com/noah-isme/academic-registrar-api/pkg/config"
	"github.com/noah-isme/academic-registrar-api/pkg/database"
	"github.com/noah-isme/academic-registrar-api/pkg/events"
	"github.com/noah-isme/academic-registrar-api/pkg/jobs"
)

// Container holds the long-lived dependencies of a running process.
type Container struct {
	Config *config.Config
	Logger *zap.Logger
	DB     *sqlx.DB
	Redis  *redis.Client

	Publisher events.Publisher
	Metrics   *service.MetricsService
	Queue     *jobs.Queue

	Users        *repository.UserRepository
	Sections     *repository.SectionRepository
	Terms        *repository.TermRepository
	Meetings     *repository.MeetingRepository
	Enrollments  *repository.EnrollmentRepository
	Appointments *repository.AppointmentRepository

	Tokens      *service.TokenService
	Enrollment  *service.EnrollmentService
	Promotions  *service.PromotionWorker
	Conflicts   *service.ConflictService
	Schedule    *service.ScheduleService
	Appointment *service.AppointmentService
	Calendar    *service.CalendarExportService
	Roster      *service.RosterService
}

// Build connects to Postgres, optionally Redis and NATS, and constructs every
// service. The promotion queue is created but not started.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Container, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if cfg.Database.AutoMigrate {
		if err := database.RunMigrations(db.DB, logger); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	rdb, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logger.Warn("redis unavailable, conflict cache disabled", zap.Error(err))
		rdb = nil
	}

	var publisher events.Publisher = events.NewLogPublisher(logger)
	if cfg.Events.NATSURL != "" {
		nats, err := events.NewNATSPublisher(cfg.Events.NATSURL, cfg.Events.SubjectPrefix, logger)
		if err != nil {
			logger.Warn("nats unavailable, domain events go to the log", zap.Error(err))
		} else {
			publisher = nats
		}
	}

	c := &Container{Config: cfg, Logger: logger, DB: db, Redis: rdb, Publisher: publisher}
	c.wire()
	return c, nil
}

func (c *Container) wire() {
	cfg, logger := c.Config, c.Logger
	retry := database.RetryPolicy{Attempts: cfg.Enrollment.LockRetries, Delay: cfg.Enrollment.LockRetryDelay}
	validate := service.NewValidator()

	c.Metrics = service.NewMetricsService()
	c.Users = repository.NewUserRepository(c.DB)
	c.Sections = repository.NewSectionRepository(c.DB)
	c.Terms = repository.NewTermRepository(c.DB)
	c.Meetings = repository.NewMeetingRepository(c.DB)
	c.Enrollments = repository.NewEnrollmentRepository(c.DB, retry, cfg.Database.LockTimeout)
	c.Appointments = repository.NewAppointmentRepository(c.DB, retry)
	rooms := repository.NewRoomRepository(c.DB)
	prerequisites := service.NewPrerequisiteService(repository.NewPrerequisiteRepository(c.DB), logger)

	cacheSvc := service.NewCacheService(repository.NewCacheRepository(c.Redis, logger), c.Metrics, cfg.Calendar.ConflictCacheTTL, logger, c.Redis != nil)
	c.Conflicts = service.NewConflictService(c.Terms, c.Meetings, c.Appointments, cacheSvc, cfg.Calendar.ConflictCacheTTL, c.Metrics, logger)
	c.Schedule = service.NewScheduleService(c.Meetings, c.Sections, c.Terms, rooms, c.Conflicts, validate, logger)
	c.Appointment = service.NewAppointmentService(c.Appointments, c.Sections, c.Terms, c.Users, c.Conflicts, validate, logger)

	c.Enrollment = service.NewEnrollmentService(c.Enrollments, c.Sections, c.Terms, c.Users, prerequisites, c.Publisher, c.Metrics, validate, logger)
	c.Promotions = service.NewPromotionWorker(c.Enrollment, c.Sections, c.Metrics, logger)
	c.Queue = jobs.NewQueue(service.PromotionTopic, c.Promotions.Handle, jobs.QueueConfig{
		Workers:     cfg.Enrollment.PromotionWorkers,
		BufferSize:  cfg.Enrollment.PromotionBuffer,
		MaxRetries:  cfg.Enrollment.PromotionRetries,
		RetryDelay:  cfg.Enrollment.PromotionRetryDelay,
		Logger:      logger,
		OnExhausted: c.Promotions.OnExhausted,
	})
	c.Promotions.Attach(c.Queue)
	c.Enrollment.SetPromotionDispatcher(c.Promotions)

	c.Calendar = service.NewCalendarExportService(c.Sections, c.Terms, c.Users, c.Meetings, c.Enrollments,
		service.CalendarOptions{ProductID: cfg.Calendar.ProductID, UIDDomain: cfg.Calendar.UIDDomain}, logger)
	c.Roster = service.NewRosterService(c.Sections, c.Enrollments, logger)
	c.Tokens = service.NewTokenService(service.TokenConfig{Secret: cfg.JWT.Secret, Expiry: cfg.JWT.Expiration, Issuer: "academic-registrar"})
}

// StartWorkers starts the promotion queue and, when configured, re-enqueues
// sections that have free seats and a waitlist.
func (c *Container) StartWorkers(ctx context.Context) {
	c.Queue.Start(ctx)
	if !c.Config.Enrollment.RecoverOnStart {
		return
	}
	n, err := c.Promotions.Recover(ctx)
	if err != nil {
		c.Logger.Error("promotion recovery failed", zap.Error(err))
		return
	}
	c.Logger.Info("promotion recovery enqueued sections", zap.Int("sections", n))
}

// Router builds the HTTP engine over the container's services.
func (c *Container) Router() *gin.Engine {
	checks := []handler.ReadinessCheck{{Name: "postgres", Check: c.DB.PingContext}}
	if c.Redis != nil {
		checks = append(checks, handler.ReadinessCheck{Name: "redis", Check: func(ctx context.Context) error {
			return c.Redis.Ping(ctx).Err()
		}})
	}

	return router.Setup(c.Config, router.Handlers{
		Enrollment:  handler.NewEnrollmentHandler(c.Enrollment),
		Schedule:    handler.NewScheduleHandler(c.Schedule),
		Appointment: handler.NewAppointmentHandler(c.Appointment),
		Conflict:    handler.NewConflictHandler(c.Schedule, c.Appointment, c.Conflicts),
		Calendar:    handler.NewCalendarHandler(c.Calendar),
		Roster:      handler.NewRosterHandler(c.Roster),
		Metrics:     handler.NewMetricsHandler(c.Metrics, checks...),
	}, c.Tokens, c.Metrics, c.Logger)
}

// Close stops the queue and releases connections.
func (c *Container) Close() error {
	c.Queue.Stop()
	var errs []error
	if err := c.Publisher.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close publisher: %w", err))
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if err := c.DB.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close postgres: %w", err))
	}
	return errors.Join(errs...)
}
