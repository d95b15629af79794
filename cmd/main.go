package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"

	"github.com/climatescope/climatescope/internal/facades"
	"github.com/climatescope/climatescope/internal/handlers"
	"github.com/climatescope/climatescope/internal/jwt"
	"github.com/climatescope/climatescope/internal/logger"
	"github.com/climatescope/climatescope/internal/middlewares"
	"github.com/climatescope/climatescope/internal/repositories"
	"github.com/climatescope/climatescope/internal/scheduler"
	"github.com/climatescope/climatescope/internal/services"
	"github.com/climatescope/climatescope/migrations"

	_ "github.com/jackc/pgx/v5/stdlib"
	httpSwagger "github.com/swaggo/http-swagger"
)

// Build info variables, set via ldflags at build time.
var (
	buildVersion = "N/A" // Version of the service
	buildDate    = "N/A" // Build date
	buildCommit  = "N/A" // Git commit hash
)

// config holds all application settings resolved from the environment.
type config struct {
	AppHost  string
	AppPort  string
	LogLevel string

	PGHost         string
	PGPort         int
	PGUser         string
	PGPassword     string
	PGDB           string
	PGMaxOpenConns int
	PGMaxIdleConns int

	RedisHost         string
	RedisPort         int
	RedisDB           int
	RedisPassword     string
	RedisPoolSize     int
	RedisMinIdleConns int

	KafkaAddr  string
	KafkaTopic string

	OpenCageAPIKey    string
	GeocoderURL       string
	WeatherArchiveURL string
	UpstreamTimeout   time.Duration

	ReconcileInterval time.Duration

	JWTSecretKey string
	JWTExp       time.Duration
}

// @title ClimateScope API
// @version 1.0.0
// @description Service for generating and storing historical weather reports per user
// @host localhost:8080
// @BasePath /
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	printBuildInfo()
	configPath := parseFlags()

	cfg, err := parseConfig(configPath)
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}

	if err := run(context.Background(), cfg); err != nil {
		log.Fatalf("application stopped with error: %v", err)
	}
}

// printBuildInfo prints the build version, commit hash, and build date.
func printBuildInfo() {
	fmt.Printf("Starting service version %s, commit %s, build %s\n", buildVersion, buildCommit, buildDate)
}

// parseFlags parses command-line flags and returns the config file path.
func parseFlags() string {
	c := flag.String("c", "config.env", "Path to configuration file")
	flag.Parse()
	return *c
}

// parseConfig loads environment variables from a file and resolves all
// application, database, Redis, Kafka, upstream, and JWT configuration.
func parseConfig(path string) (*config, error) {
	_ = godotenv.Load(path)

	getEnv := func(key, defaultValue string) string {
		if val, ok := os.LookupEnv(key); ok && val != "" {
			return val
		}
		return defaultValue
	}
	getEnvInt := func(key string, defaultValue int) (int, error) {
		return strconv.Atoi(getEnv(key, strconv.Itoa(defaultValue)))
	}

	cfg := &config{
		AppHost:  getEnv("APP_HOST", "localhost"),
		AppPort:  getEnv("APP_PORT", "8080"),
		LogLevel: getEnv("APP_LOG_LEVEL", "info"),

		PGHost:     getEnv("POSTGRES_HOST", "localhost"),
		PGUser:     getEnv("POSTGRES_USER", "user"),
		PGPassword: getEnv("POSTGRES_PASSWORD", "password"),
		PGDB:       getEnv("POSTGRES_DB", "climatescope"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		KafkaAddr:  getEnv("KAFKA_ADDR", ""),
		KafkaTopic: getEnv("KAFKA_TOPIC", "report.generated"),

		OpenCageAPIKey:    getEnv("OPENCAGE_API_KEY", ""),
		GeocoderURL:       getEnv("GEOCODER_URL", "https://api.opencagedata.com/geocode/v1/json"),
		WeatherArchiveURL: getEnv("WEATHER_ARCHIVE_URL", "https://archive-api.open-meteo.com/v1/archive"),

		JWTSecretKey: getEnv("JWT_SECRET_KEY", "my_super_secret_key"),
	}

	var err error
	if cfg.PGPort, err = getEnvInt("POSTGRES_PORT", 5432); err != nil {
		return nil, err
	}
	if cfg.PGMaxOpenConns, err = getEnvInt("POSTGRES_MAX_OPEN_CONNS", 16); err != nil {
		return nil, err
	}
	if cfg.PGMaxIdleConns, err = getEnvInt("POSTGRES_MAX_IDLE_CONNS", 8); err != nil {
		return nil, err
	}
	if cfg.RedisPort, err = getEnvInt("REDIS_PORT", 6379); err != nil {
		return nil, err
	}
	if cfg.RedisDB, err = getEnvInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.RedisPoolSize, err = getEnvInt("REDIS_POOL_SIZE", 10); err != nil {
		return nil, err
	}
	if cfg.RedisMinIdleConns, err = getEnvInt("REDIS_MIN_IDLE_CONNS", 2); err != nil {
		return nil, err
	}

	upstreamTimeoutSecond, err := getEnvInt("UPSTREAM_TIMEOUT_SECOND", 10)
	if err != nil {
		return nil, err
	}
	cfg.UpstreamTimeout = time.Duration(upstreamTimeoutSecond) * time.Second

	reconcileIntervalMinute, err := getEnvInt("RECONCILE_INTERVAL_MINUTE", 15)
	if err != nil {
		return nil, err
	}
	cfg.ReconcileInterval = time.Duration(reconcileIntervalMinute) * time.Minute

	jwtExpSecond, err := getEnvInt("JWT_EXP_SECOND", 3600)
	if err != nil {
		return nil, err
	}
	cfg.JWTExp = time.Duration(jwtExpSecond) * time.Second

	return cfg, nil
}

// run initializes the logger, storage, Redis, Kafka, upstream clients, and the
// HTTP server. It sets up routes, applies middleware, starts the reconciliation
// job, and handles graceful shutdown.
func run(ctx context.Context, cfg *config) error {
	if err := logger.Initialize(cfg.LogLevel); err != nil {
		fmt.Println("failed to initialize logger:", err)
		return err
	}
	defer logger.Log.Sync()
	logger.Log.Infof("Logger initialized with level %s", cfg.LogLevel)

	// Connect to PostgreSQL
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		cfg.PGUser, cfg.PGPassword, cfg.PGHost, cfg.PGPort, cfg.PGDB)

	db, err := sqlx.ConnectContext(ctx, "pgx", dsn)
	if err != nil {
		return fmt.Errorf("PostgreSQL connection error: %w", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.PGMaxOpenConns)
	db.SetMaxIdleConns(cfg.PGMaxIdleConns)
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("PostgreSQL ping failed: %w", err)
	}

	// Apply schema migrations
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, db.DB, "."); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	// Connect to Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.RedisHost, cfg.RedisPort),
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		PoolSize:     cfg.RedisPoolSize,
		MinIdleConns: cfg.RedisMinIdleConns,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("Redis connection error: %w", err)
	}
	defer rdb.Close()

	// Kafka writer for report events, optional
	var kafkaWriter services.KafkaWriter
	if cfg.KafkaAddr != "" {
		w := &kafka.Writer{
			Addr:     kafka.TCP(cfg.KafkaAddr),
			Topic:    cfg.KafkaTopic,
			Balancer: &kafka.LeastBytes{},
		}
		defer w.Close()
		kafkaWriter = w
		logger.Log.Infof("Kafka writer configured for %s, topic %s", cfg.KafkaAddr, cfg.KafkaTopic)
	} else {
		logger.Log.Warn("KAFKA_ADDR not set, report events will not be published")
	}

	// Upstream clients
	httpClient := &http.Client{Timeout: cfg.UpstreamTimeout}
	geocoder := facades.NewGeocoderFacade(cfg.OpenCageAPIKey, cfg.GeocoderURL, httpClient)
	archive := facades.NewArchiveFacade(cfg.WeatherArchiveURL, httpClient)

	// JWT service
	jwtSvc := jwt.New(cfg.JWTSecretKey, cfg.JWTExp)

	// Repositories
	userReadRepo := repositories.NewUserReadRepository(db)
	userWriteRepo := repositories.NewUserWriteRepository(db, middlewares.GetTxFromContext)
	reportReadRepo := repositories.NewReportReadRepository(db)
	reportWriteRepo := repositories.NewReportWriteRepository(db, middlewares.GetTxFromContext)
	tokenRepo := repositories.NewRevokedTokenRepository(rdb)

	// Services
	authService := services.NewAuthService(userReadRepo, userWriteRepo, jwtSvc, tokenRepo)
	reportService := services.NewReportService(geocoder, archive, reportWriteRepo, reportReadRepo, kafkaWriter)
	reconcilerService := services.NewReconcilerService(reportWriteRepo)

	// Handlers
	registerHandler := handlers.NewRegisterHandler(authService)
	loginHandler := handlers.NewLoginHandler(authService)
	logoutHandler := handlers.NewLogoutHandler(authService, jwtSvc)
	generateReportHandler := handlers.NewGenerateReportHandler(reportService, jwtSvc)
	getReportHandler := handlers.NewGetReportHandler(reportService, jwtSvc)
	listReportsHandler := handlers.NewListReportsHandler(reportService, jwtSvc)

	// Router
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(middlewares.LoggingMiddleware)

	// Public routes
	r.Post("/api/auth/register", registerHandler)
	r.Post("/api/auth/login", loginHandler)

	// Protected routes with JWT middleware
	authMiddleware := middlewares.AuthMiddleware(jwtSvc, tokenRepo)
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Post("/api/auth/logout", logoutHandler)
		r.With(middlewares.TxMiddleware(db)).Post("/api/generate-report", generateReportHandler)
		r.Get("/api/report/{reportId}", getReportHandler)
		r.Get("/api/reports", listReportsHandler)
	})

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL(fmt.Sprintf("http://%s:%s/swagger/doc.json", cfg.AppHost, cfg.AppPort)),
	))

	// Reconciliation job
	reconcileScheduler := scheduler.New(reconcilerService, cfg.ReconcileInterval)
	if err := reconcileScheduler.Start(); err != nil {
		return fmt.Errorf("failed to start reconciliation scheduler: %w", err)
	}
	defer reconcileScheduler.Stop()

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%s", cfg.AppHost, cfg.AppPort),
		Handler: r,
	}

	// Graceful shutdown
	errChan := make(chan error, 1)
	ctxShutdown, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	go func() {
		logger.Log.Infof("HTTP server listening on %s:%s", cfg.AppHost, cfg.AppPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("HTTP server failed: %w", err)
		}
	}()

	select {
	case <-ctxShutdown.Done():
		logger.Log.Info("Shutdown signal received, stopping HTTP server...")
	case serveErr := <-errChan:
		return serveErr
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Errorw("HTTP server shutdown error", "error", err)
	}

	logger.Log.Info("HTTP server stopped gracefully")
	return nil
}
