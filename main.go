package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver for database/sql (migrations)
	"go.uber.org/zap"

	"github.com/dataloom-io/review-engine/pkg/config"
	"github.com/dataloom-io/review-engine/pkg/database"
	"github.com/dataloom-io/review-engine/pkg/handlers"
	"github.com/dataloom-io/review-engine/pkg/middleware"
	"github.com/dataloom-io/review-engine/pkg/repositories"
	"github.com/dataloom-io/review-engine/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("base_url", cfg.BaseURL),
		zap.String("database", cfg.Database.Host),
		zap.Bool("auth_enabled", cfg.APIToken != ""),
		zap.Bool("redis_enabled", cfg.Redis.Host != ""))

	ctx := context.Background()

	connStr := cfg.Database.ConnectionString()
	db, err := database.NewConnection(ctx, &database.Config{
		URL:            connStr,
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Migrations run through database/sql (required by golang-migrate).
	sqlDB, err := sql.Open("pgx", connStr)
	if err != nil {
		logger.Fatal("Failed to open migration connection", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, cfg.Database.MigrationsPath, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}
	sqlDB.Close()

	redisClient, err := database.NewRedisClient(&cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}

	bucketRepo := repositories.NewBucketRepository(db)
	commentRepo := repositories.NewCommentRepository(db)
	recordRepo := repositories.NewRecordRepository(db)
	sourceTableRepo := repositories.NewSourceTableRepository(db)

	bucketService := services.NewBucketService(bucketRepo, recordRepo, &cfg.Review, logger)
	analysisService := services.NewAnalysisService(recordRepo, bucketRepo, logger)
	commentService := services.NewCommentService(commentRepo, redisClient, &cfg.Review, logger)
	recordService := services.NewRecordService(recordRepo, &cfg.Review, logger)
	statsService := services.NewTableStatsService(sourceTableRepo, recordRepo, logger)

	mux := http.NewServeMux()
	reportHandler := handlers.NewReportHandler(bucketService, analysisService, recordService, logger)
	reportHandler.RegisterRoutes(mux)
	commentHandler := handlers.NewCommentHandler(commentService, logger)
	handlers.RegisterTaskOpRoutes(mux, reportHandler, commentHandler)
	handlers.NewTablesHandler(statsService, logger).RegisterRoutes(mux)

	// Liveness endpoints stay outside the token check.
	root := http.NewServeMux()
	handlers.NewHealthHandler(cfg.Version, logger).RegisterRoutes(root)
	root.Handle("/", middleware.RequireToken(cfg.APIToken, logger)(mux))

	handler := middleware.RequestLogger(logger)(root)

	addr := cfg.BindAddr + ":" + cfg.Port
	logger.Info("Starting review-engine",
		zap.String("addr", addr),
		zap.String("version", cfg.Version))
	if err := http.ListenAndServe(addr, handler); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "local" || env == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
