package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"marketplace-payments/config"
	"marketplace-payments/database"
	adminapi "marketplace-payments/internal/api/admin"
	"marketplace-payments/internal/api/billing"
	escrowapi "marketplace-payments/internal/api/escrow"
	plansapi "marketplace-payments/internal/api/plans"
	stripewebhooks "marketplace-payments/internal/api/stripewebhook"
	usersapi "marketplace-payments/internal/api/users"
	routes "marketplace-payments/internal/app/http"
	"marketplace-payments/internal/app/payments"
	"marketplace-payments/internal/app/settlement"
	"marketplace-payments/internal/domain/escrow"
	"marketplace-payments/internal/domain/plans"
	calc "marketplace-payments/internal/domain/settlement"
	"marketplace-payments/internal/infra/commitlock"
	"marketplace-payments/internal/infra/documents"
	"marketplace-payments/internal/infra/notify"
	stripegw "marketplace-payments/internal/infra/stripe"
	"marketplace-payments/internal/logger"
	"marketplace-payments/internal/task"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	config.LoadEnv()

	l, err := logger.New(config.LOG_LEVEL, config.LOG_FILE)
	if err != nil {
		logger.Fatal("Failed to initialize logger: %v", err)
	}
	logger.SetDefaultLogger(l)
	defer logger.Sync()

	if config.APP_ENV == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.InitDB(config.DB_URL)
	if err != nil {
		logger.Fatal("Failed to initialize database: %v", err)
	}
	if err := plans.Seed(db, config.PLAN_MONTHLY_PRICE, config.PLAN_ANNUAL_PRICE); err != nil {
		logger.Fatal("Failed to seed plans: %v", err)
	}

	tasks, err := task.NewManager()
	if err != nil {
		logger.Fatal("Failed to create task manager: %v", err)
	}

	// Commit locks: Redis when several instances share the ledger, otherwise in-process.
	var locks commitlock.Registry
	if config.REDIS_URL != "" {
		client, err := commitlock.Connect(config.REDIS_URL)
		if err != nil {
			logger.Fatal("Failed to connect to redis: %v", err)
		}
		defer client.Close()
		locks = commitlock.NewRedis(client, config.COMMIT_LOCK_TTL)
	} else {
		mem := commitlock.NewMemory(config.COMMIT_LOCK_TTL)
		locks = mem
		mustRegister(tasks, task.NewLockSweepJob(mem, config.LOCK_SWEEP_INTERVAL))
	}

	var sink notify.Notifier = notify.LogNotifier{}
	if len(config.KAFKA_BROKERS) > 0 {
		kn, err := notify.NewKafkaNotifier(config.KAFKA_BROKERS, config.KAFKA_TOPIC)
		if err != nil {
			logger.Fatal("Failed to create kafka notifier: %v", err)
		}
		defer kn.Close()
		sink = kn
	}
	notifier, err := notify.NewAsync(sink, config.NOTIFY_POOL_SIZE, 10*time.Second)
	if err != nil {
		logger.Fatal("Failed to create notification pool: %v", err)
	}
	defer notifier.Close(5 * time.Second)

	gen, err := documents.NewFileGenerator(config.DOCUMENTS_DIR)
	if err != nil {
		logger.Fatal("Failed to prepare documents dir: %v", err)
	}

	ledger := payments.NewLedger()
	escrowMgr := escrow.NewManager()
	calculator := calc.NewCalculator(config.COMMISSION_RATE)

	adapter := payments.NewGatewayAdapter(db, stripegw.NewGateway(config.STRIPE_SECRET_KEY, config.CURRENCY), locks, ledger, payments.AdapterConfig{
		LockGrace:      config.COMMIT_LOCK_GRACE,
		GatewayTimeout: config.GATEWAY_TIMEOUT,
	})
	commits := payments.NewCommitOrchestrator(db, ledger, adapter, escrowMgr, notifier)
	docs := settlement.NewDocumentIssuer(db, gen)
	release := settlement.NewReleaseService(db, escrowMgr, calculator, docs, notifier)
	disputes := settlement.NewDisputeService(db, escrowMgr, calculator, docs, notifier)

	mustRegister(tasks, task.NewStaleTransactionJob(commits, config.STALE_PROCESSING_AFTER, time.Minute))
	mustRegister(tasks, task.NewDocumentBackfillJob(docs, config.DOC_BACKFILL_INTERVAL))
	tasks.Start()
	defer tasks.Stop()

	r := gin.Default()

	// ✅ Add CORS middleware BEFORE registering routes
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{config.CORS_ORIGIN},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.RegisterRoutes(r, routes.Handlers{
		Billing: billing.NewHandler(db, ledger, adapter, commits),
		Escrow:  escrowapi.NewHandler(release),
		Admin:   adminapi.NewHandler(db, ledger, disputes, docs),
		Plans:   plansapi.NewHandler(db),
		Users:   usersapi.NewHandler(db),
		Webhook: stripewebhooks.NewHandler(config.STRIPE_WEBHOOK_SECRET, commits),
	})

	srv := &http.Server{Addr: ":" + config.PORT, Handler: r}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("Server starting on port %s", config.PORT)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown: %v", err)
	}
}

func mustRegister(m *task.Manager, job task.Job) {
	if err := m.Register(job); err != nil {
		logger.Fatal("%v", err)
	}
}
