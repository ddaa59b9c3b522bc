package router

import (
	"time"

	"github.com/kupferco/lv-notas/internal/config"
	"github.com/kupferco/lv-notas/internal/handler"
	"github.com/kupferco/lv-notas/internal/infra"
	"github.com/kupferco/lv-notas/internal/middleware"
	"github.com/kupferco/lv-notas/internal/repository"
	"github.com/kupferco/lv-notas/internal/service"
	"github.com/kupferco/lv-notas/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, provider infra.InvoiceProvider, cb *infra.CircuitBreaker) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute)) // 1000 req/min per IP

	// ── Infrastructure ───────────────────────────────────────────────────────
	agenda := infra.NewAgendaClient(cfg.AgendaURL)

	// ── Repositories ─────────────────────────────────────────────────────────
	therapistRepo := repository.NewTherapistRepository(db)
	patientRepo := repository.NewPatientRepository(db)
	periodRepo := repository.NewBillingPeriodRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	txnRepo := repository.NewBankTransactionRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)

	// Worker dispatcher — injected into services that enqueue async jobs
	dispatcher := worker.NewDispatcher(rdb)

	// ── Services ─────────────────────────────────────────────────────────────
	authSvc := service.NewAuthService(therapistRepo, cfg)
	patientSvc := service.NewPatientService(patientRepo)
	outstandingSvc := service.NewOutstandingService(periodRepo, patientRepo)
	billingSvc := service.NewBillingPeriodService(periodRepo, patientRepo, invoiceRepo, agenda, dispatcher)
	paymentSvc := service.NewPaymentService(paymentRepo, periodRepo, dispatcher)
	matchingSvc := service.NewMatchingService(txnRepo, periodRepo, patientRepo, service.DefaultMatcherWeights(), cfg.MatchLookbackMonths)
	txnSvc := service.NewTransactionService(txnRepo)
	invoiceSvc := service.NewInvoiceService(invoiceRepo, periodRepo, patientRepo, therapistRepo, provider, cb, cfg.PDFStoragePath)

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(authSvc)
	patientsH := handler.NewPatientsHandler(patientSvc, outstandingSvc)
	billingH := handler.NewBillingHandler(billingSvc)
	paymentsH := handler.NewPaymentsHandler(paymentSvc)
	matchesH := handler.NewMatchesHandler(matchingSvc)
	transactionsH := handler.NewTransactionsHandler(txnSvc)
	invoicesH := handler.NewInvoicesHandler(invoiceSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb))

	// Auth (public)
	auth := r.Group("/v1/auth")
	{
		auth.POST("/login", middleware.LoginRateLimiter(), authH.Login)
		auth.POST("/refresh", authH.Refresh)
	}

	// Protected routes — every operation is scoped to the authenticated therapist
	jwtMW := middleware.JWTAuth(cfg.JWTSecret)
	v1 := r.Group("/v1", jwtMW)
	{
		patients := v1.Group("/patients")
		{
			patients.POST("", patientsH.Create)
			patients.GET("", patientsH.List)
			patients.GET("/:id", patientsH.Get)
			patients.PUT("/:id", patientsH.Update)
			patients.DELETE("/:id", patientsH.Deactivate)
			patients.GET("/:id/outstanding", patientsH.Outstanding)
		}

		billing := v1.Group("/billing")
		{
			billing.POST("/process", billingH.ProcessCharges)
			billing.GET("/summary", billingH.Summary)
			billing.GET("/periods/:id", billingH.GetPeriod)
			billing.DELETE("/periods/:id", billingH.VoidPeriod)
			billing.GET("/periods/:id/invoices", invoicesH.ListByPeriod)
		}

		v1.POST("/payments", paymentsH.Record)
		v1.DELETE("/payments/:id", paymentsH.Cancel)

		v1.POST("/bank-transactions/import", transactionsH.Import)
		v1.GET("/matches", matchesH.List)

		invoices := v1.Group("/invoices")
		{
			invoices.POST("", invoicesH.Request)
			invoices.GET("/:id", invoicesH.Get)
			invoices.DELETE("/:id", invoicesH.Cancel)
			invoices.GET("/:id/pdf", invoicesH.PDF)
		}
	}

	return r
}
