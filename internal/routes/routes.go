package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/BruksfildServices01/salon-scheduler/internal/audit"
	"github.com/BruksfildServices01/salon-scheduler/internal/clock"
	"github.com/BruksfildServices01/salon-scheduler/internal/config"
	domain "github.com/BruksfildServices01/salon-scheduler/internal/domain/appointment"
	"github.com/BruksfildServices01/salon-scheduler/internal/handlers"
	"github.com/BruksfildServices01/salon-scheduler/internal/infra/cache"
	infraRepo "github.com/BruksfildServices01/salon-scheduler/internal/infra/repository"
	"github.com/BruksfildServices01/salon-scheduler/internal/metrics"
	"github.com/BruksfildServices01/salon-scheduler/internal/middleware"
	"github.com/BruksfildServices01/salon-scheduler/internal/models"
	"github.com/BruksfildServices01/salon-scheduler/internal/timezone"
	ucAppointment "github.com/BruksfildServices01/salon-scheduler/internal/usecase/appointment"
	ucCustomer "github.com/BruksfildServices01/salon-scheduler/internal/usecase/customer"
	ucPayment "github.com/BruksfildServices01/salon-scheduler/internal/usecase/payment"
	"github.com/BruksfildServices01/salon-scheduler/pkg/logging"
)

// Infra carries the collaborators built by main. Nil fields fall back to
// no-op implementations where the use cases allow it.
type Infra struct {
	Repo     domain.Repository
	Cache    cache.Cache
	Notifier domain.Notifier
	Payments ucPayment.Provider
	Archive  ucPayment.WebhookArchive
	Audit    audit.Recorder
	Metrics  *metrics.BookingMetrics
	Gatherer prometheus.Gatherer
	Clock    clock.Clock
	Logger   *logging.Logger
}

func RegisterRoutes(r *gin.Engine, db *gorm.DB, cfg *config.Config, infra Infra) {

	// ======================================================
	// MIDDLEWARE
	// ======================================================
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(infra.Logger))
	r.Use(middleware.CORSMiddleware())

	// ======================================================
	// INFRA
	// ======================================================
	repo := infra.Repo
	if repo == nil {
		repo = infraRepo.NewAppointmentGormRepository(db)
	}

	loc := timezone.Location(cfg.Timezone)

	notifications := ucAppointment.NewNotifications(
		infra.Notifier,
		cfg.NotifyTimeout,
		infra.Metrics,
		infra.Logger,
	)

	resolver := ucCustomer.NewResolver(repo)

	// ======================================================
	// USE CASES
	// ======================================================
	availabilityUC := ucAppointment.NewGetAvailability(
		repo,
		infra.Cache,
		cfg.AvailabilityCacheTTL,
		infra.Clock,
		loc,
		infra.Metrics,
		infra.Logger,
	)

	createAppointmentUC := ucAppointment.NewCreateAppointment(
		repo,
		availabilityUC,
		resolver,
		notifications,
		infra.Audit,
		infra.Clock,
		cfg.DepositPercent,
		infra.Metrics,
		infra.Logger,
	)

	cancelAppointmentUC := ucAppointment.NewCancelAppointment(
		repo,
		availabilityUC,
		notifications,
		infra.Audit,
		infra.Clock,
		infra.Metrics,
	)

	rescheduleAppointmentUC := ucAppointment.NewRescheduleAppointment(
		repo,
		availabilityUC,
		notifications,
		infra.Audit,
		infra.Metrics,
	)

	updateStatusUC := ucAppointment.NewUpdateAppointmentStatus(
		repo,
		availabilityUC,
		notifications,
		infra.Audit,
		infra.Clock,
		infra.Metrics,
	)

	listAppointmentsByDateUC := ucAppointment.NewListAppointmentsByDate(repo, loc)
	listAppointmentsByMonthUC := ucAppointment.NewListAppointmentsByMonth(repo, loc)

	startCheckoutUC := ucPayment.NewStartCheckout(
		repo,
		availabilityUC,
		infra.Payments,
		cfg.DepositPercent,
		cfg.Currency,
		cfg.PaymentTimeout,
		infra.Logger,
	)

	reconciler := ucPayment.NewReconciler(ucPayment.ReconcilerDeps{
		Repo:           repo,
		Availability:   availabilityUC,
		Resolver:       resolver,
		Notifications:  notifications,
		Audit:          infra.Audit,
		Provider:       infra.Payments,
		Archive:        infra.Archive,
		Clock:          infra.Clock,
		DepositPercent: cfg.DepositPercent,
		Timeout:        cfg.PaymentTimeout,
		Metrics:        infra.Metrics,
		Logger:         infra.Logger,
	})

	// ======================================================
	// HANDLERS
	// ======================================================
	authHandler := handlers.NewAuthHandler(db, cfg)
	meHandler := handlers.NewMeHandler(db)

	serviceHandler := handlers.NewServiceHandler(db)
	customerHandler := handlers.NewCustomerHandler(db)
	workingHoursHandler := handlers.NewWorkingHoursHandler(db)
	auditLogsHandler := handlers.NewAuditLogsHandler(db, loc)

	appointmentHandler := handlers.NewAppointmentHandler(
		cancelAppointmentUC,
		rescheduleAppointmentUC,
		updateStatusUC,
		listAppointmentsByDateUC,
		listAppointmentsByMonthUC,
		loc,
	)

	publicHandler := handlers.NewPublicHandler(
		db,
		availabilityUC,
		createAppointmentUC,
		startCheckoutUC,
		reconciler,
	)

	webhookHandler := handlers.NewPaymentWebhookHandler(reconciler, infra.Logger)

	// ======================================================
	// HEALTH + METRICS
	// ======================================================
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if infra.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(infra.Gatherer, promhttp.HandlerOpts{})))
	}

	// ======================================================
	// API (JSON)
	// ======================================================
	api := r.Group("/api")
	{
		// ------------------------------
		// PUBLIC
		// ------------------------------
		publicAPI := api.Group("/public")
		{
			publicAPI.GET("/services", publicHandler.ListServices)
			publicAPI.GET("/staff", publicHandler.ListStaff)
			publicAPI.GET("/staff/:staffId/availability", publicHandler.Availability)
			publicAPI.GET("/checkout/verify", publicHandler.VerifyCheckout)
		}

		booking := publicAPI.Group("/")
		booking.Use(middleware.OptionalAuth(cfg))
		{
			booking.POST("/appointments", publicHandler.CreateAppointment)
			booking.POST("/checkout", publicHandler.StartCheckout)
		}

		api.POST("/webhooks/payments", webhookHandler.Handle)

		// ------------------------------
		// AUTH
		// ------------------------------
		api.POST("/auth/register", authHandler.Register)
		api.POST("/auth/login", authHandler.Login)

		// ------------------------------
		// AUTHENTICATED
		// ------------------------------
		secured := api.Group("/")
		secured.Use(middleware.AuthMiddleware(cfg))
		{
			secured.GET("/me", meHandler.GetMe)

			secured.PATCH("/appointments/:id/cancel", appointmentHandler.Cancel)
			secured.PATCH("/appointments/:id/reschedule", appointmentHandler.Reschedule)
		}

		// ------------------------------
		// SALON (STAFF + ADMIN)
		// ------------------------------
		salon := api.Group("/admin")
		salon.Use(
			middleware.AuthMiddleware(cfg),
			middleware.RequireRole(models.RoleAdmin, models.RoleStaff),
		)
		{
			salon.PATCH("/appointments/:id/status", appointmentHandler.UpdateStatus)
			salon.GET("/appointments", appointmentHandler.ListByDate)
			salon.GET("/appointments/month", appointmentHandler.ListByMonth)

			salon.GET("/staff/:staffId/working-hours", workingHoursHandler.Get)
			salon.GET("/services", serviceHandler.List)
			salon.GET("/customers", customerHandler.List)
		}

		// ------------------------------
		// ADMIN ONLY
		// ------------------------------
		admin := api.Group("/admin")
		admin.Use(
			middleware.AuthMiddleware(cfg),
			middleware.RequireRole(models.RoleAdmin),
		)
		{
			admin.POST("/staff", authHandler.CreateStaff)
			admin.PUT("/staff/:staffId/working-hours", workingHoursHandler.Update)

			admin.POST("/services", serviceHandler.Create)
			admin.PATCH("/services/:id", serviceHandler.Update)

			admin.GET("/audit-logs", auditLogsHandler.List)
		}
	}
}
