// Package bootstrap wires configuration, storage, services, and transports
// into runnable API and worker processes.
package bootstrap

import (
	"strings"
	"time"

	"assistant_server/adapter/out/messaging"
	"assistant_server/adapter/out/notify"
	"assistant_server/adapter/out/persistence"
	"assistant_server/config"
	"assistant_server/core/domain"
	"assistant_server/core/port/out"
	"assistant_server/core/service/analysis"
	"assistant_server/core/service/learning"
	"assistant_server/infra/database"
	"assistant_server/pkg/cache"
	"assistant_server/pkg/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver for database/sql
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

type Dependencies struct {
	Config *config.Config
	DB     *pgxpool.Pool
	SQLDB  *sqlx.DB
	Redis  *redis.Client
	Cache  *cache.RedisCache

	// Repositories
	AnalysisRepo domain.AnalysisRepository
	PatternRepo  domain.PatternRepository

	// Messaging
	MessageProducer out.MessageProducer

	// Services
	AnalysisService  *analysis.Service
	Learner          *learning.Learner
	AdaptationEngine *learning.AdaptationEngine
}

func NewDependencies(cfg *config.Config) (*Dependencies, func(), error) {
	deps := &Dependencies{Config: cfg}
	var cleanups []func()

	// Database (pgxpool)
	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	deps.DB = db
	cleanups = append(cleanups, func() { db.Close() })

	// Database (sqlx for the pattern adapter)
	logger.Debug("Connecting to database via sqlx...")
	sqlxURL := cfg.DatabaseURL
	if strings.Contains(sqlxURL, "?") {
		sqlxURL += "&default_query_exec_mode=simple_protocol"
	} else {
		sqlxURL += "?default_query_exec_mode=simple_protocol"
	}
	sqlDB, err := sqlx.Connect("pgx", sqlxURL)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	deps.SQLDB = sqlDB
	cleanups = append(cleanups, func() { sqlDB.Close() })

	// Redis
	redisClient, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		logger.Warn("Redis connection failed: %v", err)
	} else {
		deps.Redis = redisClient
		deps.Cache = cache.NewRedisCache(redisClient)
		cleanups = append(cleanups, func() { redisClient.Close() })
	}

	// Repositories
	deps.AnalysisRepo = persistence.NewAnalysisAdapter(db)
	deps.PatternRepo = persistence.NewPatternAdapter(sqlDB, logger.Default())

	// Messaging
	if deps.Redis != nil {
		deps.MessageProducer = messaging.NewRedisProducer(deps.Redis)
	} else {
		logger.Warn("Redis not available, async pipeline disabled")
	}

	// Urgent notification webhook
	notifier := notify.NewWebhookNotifier(cfg.WebhookURL, logger.Default())

	// Services
	deps.AnalysisService = analysis.NewService(deps.AnalysisRepo, notifier, logger.Default())
	deps.Learner = learning.NewLearner(deps.PatternRepo, deps.Cache, logger.Default())
	deps.AdaptationEngine = learning.NewAdaptationEngine(deps.PatternRepo, deps.Cache, logger.Default())

	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	return deps, cleanup, nil
}
