package main

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	cacheadapter "github.com/hivecrm/contactbook/internal/adapter/cache"
	"github.com/hivecrm/contactbook/internal/adapter/mail"
	"github.com/hivecrm/contactbook/internal/adapter/storage"
	"github.com/hivecrm/contactbook/internal/bootstrap"
	"github.com/hivecrm/contactbook/internal/config"
	httptransport "github.com/hivecrm/contactbook/internal/http"
	"github.com/hivecrm/contactbook/internal/http/handler"
	httpmiddleware "github.com/hivecrm/contactbook/internal/http/middleware"
	apimiddleware "github.com/hivecrm/contactbook/internal/middleware"
	"github.com/hivecrm/contactbook/internal/repository"
	"github.com/hivecrm/contactbook/internal/rolecache"
	"github.com/hivecrm/contactbook/internal/server"
	"github.com/hivecrm/contactbook/internal/service"
	"github.com/hivecrm/contactbook/internal/telemetry"
	"github.com/hivecrm/contactbook/internal/token"
)

func main() {
	app := fx.New(
		fx.Provide(
			newConfig,
			newLogger,
			newTelemetry,
			newSnowflake,
			newPGXPool,
			newUserRepository,
			newRoleRepository,
			newContactRepository,
			rolecache.New,
			newRedisClient,
			newCounterStore,
			newRateLimiter,
			newTokenService,
			newMailer,
			newImageStore,
			service.NewAuthService,
			service.NewContactsService,
			handler.NewAuthHandler,
			handler.NewContactsHandler,
			newAuthMiddleware,
			httptransport.NewRouter,
			server.NewHTTPServer,
		),
		fx.Invoke(useTelemetry, bootstrap.Seed, startHTTPServer),
	)

	app.Run()
}

func newConfig() (config.Config, error) {
	return config.Load()
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.Environment == "development" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)
	return logger, nil
}

func newTelemetry(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (*telemetry.Provider, error) {
	provider, err := telemetry.New(context.Background(), cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("telemetry init: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			return provider.Shutdown(stopCtx)
		},
	})

	return provider, nil
}

func newSnowflake() (*snowflake.Node, error) {
	node, err := snowflake.NewNode(1)
	return node, err
}

func newPGXPool(lc fx.Lifecycle, cfg config.Config) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := repository.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			pool.Close()
			return nil
		},
	})

	return pool, nil
}

func newUserRepository(pool *pgxpool.Pool) repository.UserRepository {
	return repository.NewPostgresUserRepo(pool)
}

func newRoleRepository(pool *pgxpool.Pool) repository.RoleRepository {
	return repository.NewPostgresRoleRepo(pool)
}

func newContactRepository(pool *pgxpool.Pool) repository.ContactRepository {
	return repository.NewPostgresContactRepo(pool)
}

// newRedisClient connects to Redis when it is reachable. The service keeps
// running without it; rate limiting then degrades to the in-process fallback.
func newRedisClient(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) redis.UniversalClient {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		logger.Warn("redis unavailable, rate limiting falls back to in-process counters", zap.Error(err))
		return nil
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return client
}

func newCounterStore(client redis.UniversalClient) cacheadapter.CounterStore {
	if client == nil {
		return nil
	}
	return cacheadapter.NewRedisCounterStore(client)
}

func newRateLimiter(counters cacheadapter.CounterStore, cfg config.Config) *apimiddleware.RateLimiter {
	return apimiddleware.NewRateLimiter(counters, cfg.RateLimitRequests, cfg.RateLimitWindow)
}

func newTokenService(cfg config.Config) *token.Service {
	return token.NewService(cfg.SecretKey, cfg.AccessTokenTTL, cfg.RefreshTokenTTL, cfg.VerificationTokenTTL)
}

func newMailer(cfg config.Config) mail.Mailer {
	return mail.NewSMTPMailer(cfg)
}

func newImageStore(cfg config.Config) (storage.ImageStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return storage.NewS3ImageStore(ctx, cfg)
}

func newAuthMiddleware(authService *service.AuthService) *httpmiddleware.Auth {
	return &httpmiddleware.Auth{AuthService: authService}
}

func startHTTPServer(lc fx.Lifecycle, srv *server.HTTPServer, logger *zap.Logger) {
	var (
		cancel context.CancelFunc
		done   chan struct{}
	)

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			runCtx, stop := context.WithCancel(context.Background())
			cancel = stop
			done = make(chan struct{})

			logger.Info("http server listening", zap.String("addr", srv.Addr()))
			go func() {
				if err := srv.Run(runCtx); err != nil {
					logger.Error("http server stopped", zap.Error(err))
				}
				close(done)
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			if cancel != nil {
				cancel()
			}
			if done == nil {
				return nil
			}
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
}

func useTelemetry(*telemetry.Provider) {}
