package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/scholarseek/scholarseek/admin"
	gateway "github.com/scholarseek/scholarseek/apigateway"
	"github.com/scholarseek/scholarseek/models"
	"github.com/scholarseek/scholarseek/session"
	"github.com/scholarseek/scholarseek/store"
	"github.com/scholarseek/scholarseek/users"
)

var appConfig models.Config
var logrusLogger = logrus.New()
var database *store.DB
var storeSvc *store.Store
var ormDb *gorm.DB
var sessions *session.Manager
var userService users.Service
var adminService admin.Service
var logSampling gateway.LogSamplingConfig

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := GetMainEngine()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			logrusLogger.WithError(err).Warn("shutdown failed")
		}
	}()

	if appConfig.Port == "" {
		appConfig.Port = ":8080"
	}
	if err := app.Listen(appConfig.Port); err != nil {
		logrusLogger.Fatalf("server stopped: %v", err)
	}
}

func init() {
	logrusLogger.Out = os.Stderr

	if err := loadConfig(&appConfig); err != nil {
		logrusLogger.Fatalf("error loading config: %v", err)
	}
	appConfig.Defaults()
	configureLogger(appConfig)

	var err error
	database, err = store.OpenFromConfig(appConfig.DatabaseURL, appConfig.DatabasePath, appConfig.DatabaseDriver)
	if err != nil {
		logrusLogger.Fatalf("error in connecting to db: %v", err)
	}
	storeSvc = store.New(database)

	migrateCtx, cancelMigrate := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelMigrate()
	if err := store.Migrate(migrateCtx, database); err != nil {
		logrusLogger.Fatalf("error in migrations: %v", err)
	}

	ormDb, err = database.Gorm(appConfig.IsDebug)
	if err != nil {
		logrusLogger.Fatalf("error opening orm over db: %v", err)
	}

	sessions = newSessionManager(appConfig)

	userService = users.Service{Db: ormDb, Sessions: sessions, Config: appConfig, Logger: logrusLogger}
	adminService = admin.Service{
		Db:       ormDb,
		Store:    storeSvc,
		Sessions: sessions,
		Auth:     gateway.AdminAuthConfig{Email: appConfig.AdminEmail, Password: appConfig.AdminPassword},
		Logger:   logrusLogger,
	}
}

// newSessionManager prefers redis; without an address configured it falls
// back to the in-process store, which is only suitable for a single node.
func newSessionManager(cfg models.Config) *session.Manager {
	ttl := time.Duration(cfg.SessionTTLHours) * time.Hour
	cookie := session.CookieOptions{Secure: cfg.CookieSecure}

	if cfg.RedisAddress == "" {
		logrusLogger.Warn("redis address not configured, using in-memory sessions")
		return session.NewManager(session.NewMemoryStore(), ttl, cookie)
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddress,
		Password: cfg.RedisPassword,
	})
	return session.NewManager(session.NewRedisStore(client), ttl, cookie)
}
