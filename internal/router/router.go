package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/academic-registrar-api/internal/handler"
	"github.com/noah-isme/academic-registrar-api/internal/middleware"
	"github.com/noah-isme/academic-registrar-api/internal/models"
	"github.com/noah-isme/academic-registrar-api/internal/service"
	"github.com/noah-isme/academic-registrar-api/pkg/config"
	"github.com/noah-isme/academic-registrar-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/academic-registrar-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/academic-registrar-api/pkg/middleware/requestid"
)

// Handlers groups every HTTP handler mounted by Setup.
type Handlers struct {
	Enrollment  *handler.EnrollmentHandler
	Schedule    *handler.ScheduleHandler
	Appointment *handler.AppointmentHandler
	Conflict    *handler.ConflictHandler
	Calendar    *handler.CalendarHandler
	Roster      *handler.RosterHandler
	Metrics     *handler.MetricsHandler
}

// Setup builds the gin engine with global middleware, health endpoints and the
// authenticated API group.
func Setup(cfg *config.Config, h Handlers, tokens middleware.TokenValidator, metrics *service.MetricsService, logr *zap.Logger) *gin.Engine {
	if logr == nil {
		logr = zap.NewNop()
	}
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics, "/metrics"))

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	staff := middleware.RequireStaff()
	teaching := middleware.RequireRoles(models.RoleAdmin, models.RoleRegistrar, models.RoleLecturer)

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(tokens))
	{
		sections := api.Group("/sections/:id")
		{
			sections.POST("/enrollments", h.Enrollment.Enroll)
			sections.GET("/enrollments", teaching, h.Enrollment.ListBySection)

			sections.GET("/meetings", h.Schedule.List)
			sections.POST("/meetings", staff, h.Schedule.Create)

			sections.GET("/appointments", h.Appointment.List)
			sections.POST("/appointments", staff, h.Appointment.Create)

			sections.GET("/conflicts", teaching, h.Conflict.SectionMatrix)
			sections.GET("/calendar.ics", h.Calendar.Section)
			sections.GET("/roster", teaching, h.Roster.Export)
		}

		enrollments := api.Group("/enrollments/:id")
		{
			enrollments.GET("", h.Enrollment.Get)
			enrollments.POST("/withdraw", h.Enrollment.Withdraw)
			enrollments.POST("/override", staff, h.Enrollment.Override)
		}

		meetings := api.Group("/meetings/:id")
		{
			meetings.PUT("", staff, h.Schedule.Update)
			meetings.DELETE("", staff, h.Schedule.Delete)
			meetings.GET("/occurrences", h.Schedule.Occurrences)
		}

		appointments := api.Group("/appointments/:id")
		{
			appointments.PUT("", staff, h.Appointment.Update)
			appointments.DELETE("", staff, h.Appointment.Delete)
		}

		conflicts := api.Group("/conflicts", teaching)
		{
			conflicts.POST("/meetings", h.Conflict.CheckMeeting)
			conflicts.POST("/appointments", h.Conflict.CheckAppointment)
		}

		api.GET("/students/:id/calendar.ics",
			middleware.RBAC(string(models.RoleAdmin), string(models.RoleRegistrar), string(models.RoleLecturer), middleware.Self),
			h.Calendar.Student)
	}

	return r
}
