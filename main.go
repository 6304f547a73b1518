package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/siddhant-rajhans/ducknest/internal/config"
	"github.com/siddhant-rajhans/ducknest/internal/database"
	"github.com/siddhant-rajhans/ducknest/internal/handler"
	"github.com/siddhant-rajhans/ducknest/internal/logging"
	"github.com/siddhant-rajhans/ducknest/internal/repository"
	"github.com/siddhant-rajhans/ducknest/internal/service"
	"github.com/siddhant-rajhans/ducknest/internal/session"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("loading .env: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("ducknest stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	db, err := database.Connect(ctx, cfg.DatabaseURL, database.Options{MaxOpenConns: cfg.DBMaxOpenConns})
	if err != nil {
		return err
	}
	defer db.Close()

	version, changed, err := database.Migrate(ctx, db)
	if err != nil {
		return err
	}
	logger.Info("schema ready", zap.Uint("version", version), zap.Bool("migrated", changed))

	var store session.Store
	switch cfg.SessionStore {
	case config.SessionStoreRedis:
		rs, err := session.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer rs.Close()
		store = rs
	default:
		store = session.NewPostgresStore(db)
	}
	sessions := session.NewManager(store, []byte(cfg.JWTSecret), cfg.SessionTTL)

	users := repository.NewUserRepository(db)
	listings := service.NewListingService(users, repository.NewListingRepository(db), logger)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := handler.NewRouter(logger, cfg.RequestTimeout, handler.Deps{
		Accounts:  service.NewAccountService(users, sessions, cfg.InstitutionDomain, logger),
		Listings:  listings,
		Search:    service.NewSearchService(listings, logger),
		Messaging: service.NewMessagingService(repository.NewThreadRepository(db), logger),
		Sessions:  sessions,
		DB:        db,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("ducknest listening",
			zap.String("addr", srv.Addr),
			zap.String("institution_domain", cfg.InstitutionDomain),
			zap.String("session_store", cfg.SessionStore))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
