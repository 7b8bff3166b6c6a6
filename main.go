package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fenilmodi00/ipo-subscription-backend/config"
	"github.com/fenilmodi00/ipo-subscription-backend/database"
	"github.com/fenilmodi00/ipo-subscription-backend/handlers"
	"github.com/fenilmodi00/ipo-subscription-backend/jobs"
	"github.com/fenilmodi00/ipo-subscription-backend/middleware"
	"github.com/fenilmodi00/ipo-subscription-backend/models"
	"github.com/fenilmodi00/ipo-subscription-backend/services"
	"github.com/fenilmodi00/ipo-subscription-backend/shared"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

func main() {
	envFile := pflag.String("env-file", ".env", "dotenv file loaded before reading the environment")
	skipSync := pflag.Bool("skip-sync", false, "do not start the periodic IPO sync job")
	devToken := pflag.String("dev-token", "", "print a 24h bearer token for USER_ID:ROLE and exit")
	pflag.Parse()

	// Load config
	cfg, err := config.LoadConfig(*envFile)
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	cfg.ConfigureLogging()

	tokens := middleware.NewTokenManager(cfg.JWTSecret)
	if *devToken != "" {
		printDevToken(tokens, *devToken)
		return
	}

	tuning := shared.NewDefaultUnifiedConfiguration()
	tuning.ValidateAndApplyDefaults()

	// Connect to database
	db, err := database.ConnectWithConfig(cfg.DatabaseURL, &tuning.Database)
	if err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(db)

	// Run migrations
	migrateCtx, cancelMigrate := context.WithTimeout(context.Background(), time.Minute)
	err = database.Migrate(migrateCtx, db)
	cancelMigrate()
	if err != nil {
		logrus.Fatalf("Failed to migrate database: %v", err)
	}

	metrics := shared.NewMetricsRegistry()
	optimizer := database.NewDatabaseOptimizer(metrics.Database)
	ids := services.TimeOrderedIdentifierGenerator{}

	// Persistence and core services
	ipoRepo := database.NewIPORepository(db, optimizer)
	applicationRepo := database.NewApplicationRepository(db, optimizer)
	transactionRepo := database.NewTransactionRepository(db, optimizer)

	ipoService := services.NewIPOService(ipoRepo, metrics.Service("ipo_registry"))
	ledgerService := services.NewLedgerService(transactionRepo, ids, metrics.Service("ledger"))
	applicationService := services.NewApplicationService(applicationRepo, ipoService, ledgerService, ids, metrics.Service("applications"))

	// Market data proxies share one pooled client
	clientFactory := shared.NewHTTPClientFactory(tuning.Upstream.HTTPRequestTimeout)
	defer clientFactory.CleanupAllClients()
	httpClient := clientFactory.CreateOptimizedHTTPClient(tuning.Upstream.HTTPRequestTimeout)

	marketService := services.NewMarketDataService(services.MarketDataConfig{
		AlphaVantageKey: cfg.AlphaVantageAPIKey,
		FinnhubKey:      cfg.FinnhubAPIKey,
		PolygonKey:      cfg.PolygonAPIKey,
	}, httpClient, tuning.Upstream, metrics.HTTP)
	indianMarketService := services.NewIndianMarketService(services.IndianMarketConfig{
		RapidAPIKey:  cfg.RapidAPIKey,
		RapidAPIHost: cfg.RapidAPIHost,
	}, httpClient, tuning.Upstream, metrics.HTTP)

	// IPO sync: Finnhub calendar, then the HTML calendar page, then demo data
	syncService := services.NewIPOSyncService(ipoService, metrics.Service("ipo_sync"),
		services.NewFinnhubIPOCalendarProvider(marketService),
		services.NewHTMLIPOCalendarScraper(cfg.IPOScrapeURL, tuning.Scraper, metrics.HTTP),
		services.NewDemoIPOCalendarProvider(),
	)

	logrus.WithFields(logrus.Fields{
		"upstream_timeout": tuning.Upstream.HTTPRequestTimeout,
		"scraper_timeout":  tuning.Scraper.HTTPRequestTimeout,
		"sync_interval":    cfg.IPOSyncInterval,
	}).Info("IPO subscription backend services initialized")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start background jobs
	var syncDone <-chan struct{}
	if cfg.IPOSyncEnabled && !*skipSync {
		syncDone = jobs.NewIPOSyncJob(syncService, cfg.IPOSyncInterval).Start(ctx)
	} else {
		logrus.Info("IPO Sync Job disabled")
	}

	// Setup Fiber
	app := fiber.New(fiber.Config{
		AppName:      "IPO Subscription Backend",
		ErrorHandler: handlers.ErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(helmet.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(cfg.CORSOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	app.Use(compress.New())

	api := app.Group("/api", limiter.New(limiter.Config{
		Max:        cfg.RateLimitMax,
		Expiration: cfg.RateLimitWindow,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"success": false,
				"message": "Too many requests from this IP, please try again later.",
			})
		},
	}))

	routes := &handlers.Routes{
		Tokens:       tokens,
		Health:       handlers.NewHealthHandler(func(ctx context.Context) error { return database.HealthCheck(ctx, db) }),
		IPOs:         handlers.NewIPOHandler(ipoService),
		Applications: handlers.NewApplicationHandler(applicationService),
		Transactions: handlers.NewTransactionHandler(ledgerService),
		Market:       handlers.NewMarketHandler(marketService),
		IndianMarket: handlers.NewIndianMarketHandler(indianMarketService),
		Admin:        handlers.NewAdminHandler(syncService, metrics, db),
	}
	routes.Register(api)
	app.Use(handlers.NotFound)

	// Start server
	go func() {
		logrus.Infof("Server starting on port %s", cfg.ServerPort)
		if err := app.Listen(":" + cfg.ServerPort); err != nil {
			logrus.Errorf("Server stopped: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	logrus.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logrus.Errorf("Server shutdown failed: %v", err)
	}
	if syncDone != nil {
		<-syncDone
	}
	for _, name := range []string{"ipo_registry", "applications", "ledger", "ipo_sync"} {
		metrics.Service(name).LogSummary()
	}
	logrus.Info("Server exited")
}

func printDevToken(tokens *middleware.TokenManager, spec string) {
	userID, role, _ := strings.Cut(spec, ":")
	if role == "" {
		role = models.RoleUser
	}
	token, err := tokens.Issue(models.Principal{UserID: userID, Role: role}, 24*time.Hour)
	if err != nil {
		logrus.Fatalf("Failed to sign token: %v", err)
	}
	fmt.Println(token)
}
