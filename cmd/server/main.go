package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/sudo-init-do/timerenting/internal/admin"
	"github.com/sudo-init-do/timerenting/internal/alerts"
	"github.com/sudo-init-do/timerenting/internal/auth"
	"github.com/sudo-init-do/timerenting/internal/config"
	"github.com/sudo-init-do/timerenting/internal/db"
	"github.com/sudo-init-do/timerenting/internal/marketplace"
	"github.com/sudo-init-do/timerenting/internal/messaging"
	mware "github.com/sudo-init-do/timerenting/internal/middleware"
	"github.com/sudo-init-do/timerenting/internal/observability"
	"github.com/sudo-init-do/timerenting/internal/store"
	"github.com/sudo-init-do/timerenting/internal/store/memory"
	"github.com/sudo-init-do/timerenting/internal/user"
	"github.com/sudo-init-do/timerenting/internal/wallet"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	log := observability.SetupLogging(cfg.Env)

	if err := run(cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	ledger := wallet.NewLedger(cfg.AllowNegativeBalance)
	issuer := auth.NewIssuer(cfg.JWTSecret, cfg.TokenTTL())
	authSvc := auth.NewService(st, ledger, issuer, cfg.InitialCreditBalance)

	hub := messaging.NewHub()
	var rdb *redis.Client
	mkOpts := []marketplace.Option{}
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()

		redisOpt := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
		client := asynq.NewClient(redisOpt)
		defer client.Close()
		queue := alerts.NewQueue(client, cfg.AppURL)
		authSvc = authSvc.WithWelcomer(queue)
		mkOpts = append(mkOpts, marketplace.WithNotifier(queue))

		worker := alerts.NewWorker(redisOpt, alerts.NewSender(alerts.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPass,
			From:     cfg.MailFrom,
		}))
		if err := worker.Start(); err != nil {
			return err
		}
		defer worker.Shutdown()
	} else {
		log.Warn("REDIS_ADDR is empty, websocket fanout is local and emails are disabled")
	}

	fanout := messaging.NewFanout(rdb, hub)
	if err := fanout.Start(ctx); err != nil {
		return err
	}
	mkOpts = append(mkOpts, marketplace.WithPublisher(fanout))
	mk := marketplace.New(st, ledger, mkOpts...)

	e := newServer(st, log)
	jwt := mware.JWT(issuer)

	authHandler := auth.NewHandler(authSvc)
	authGroup := e.Group("/auth")
	authGroup.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(20)))
	authGroup.POST("/signup", authHandler.Signup)
	authGroup.POST("/login", authHandler.Login)
	e.GET("/auth/me", authHandler.Me, jwt)
	e.POST("/auth/password", authHandler.ChangePassword, jwt)

	userHandler := user.NewHandler(user.NewService(st))
	mkHandler := marketplace.NewHandler(mk)
	e.GET("/users/:username/profile", userHandler.GetPublicProfile)
	e.GET("/users/:username/reviews", mkHandler.UserReviews)
	e.PATCH("/user/profile", userHandler.UpdateProfile, jwt)

	walletHandler := wallet.NewHandler(st)
	e.GET("/wallet/balance", walletHandler.Balance, jwt)
	e.GET("/wallet/transactions", walletHandler.Transactions, jwt)

	mkHandler.Register(e.Group("/marketplace", jwt))

	msgHandler := messaging.NewHandler(messaging.NewService(st, fanout), hub)
	msgs := e.Group("/messages", jwt)
	msgs.POST("", msgHandler.Send)
	msgs.GET("", msgHandler.Conversations)
	msgs.GET("/unread", msgHandler.UnreadCount)
	msgs.GET("/:username", msgHandler.Conversation)
	msgs.POST("/:username/read", msgHandler.MarkRead)
	e.GET("/ws", msgHandler.WS, jwt)

	admins := cfg.Admins()
	if len(admins) == 0 {
		log.Warn("ADMIN_USERNAMES is empty, admin routes will reject everyone")
	}
	admin.NewHandler(admin.NewService(st)).Register(e.Group("/admin", jwt, mware.AdminGuard(admins)))

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", "port", cfg.Port, "env", cfg.Env, "store", cfg.StoreDriver)
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	if cfg.StoreDriver == "memory" {
		slog.Warn("using the in-memory store, data is lost on restart")
		return memory.New(), nil
	}
	pool, err := db.Connect(ctx, cfg.DatabaseDSN())
	if err != nil {
		return nil, err
	}
	return db.NewStore(pool), nil
}

func newServer(st store.Store, log *slog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:   true,
		LogURI:      true,
		LogMethod:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{"method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency}
			if v.Error != nil {
				log.Warn("request", append(attrs, "error", v.Error)...)
				return nil
			}
			log.Info("request", attrs...)
			return nil
		},
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})
	e.GET("/ready", func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := st.Ping(ctx); err != nil {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "not_ready", "error": "store unreachable"})
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "ready"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	return e
}
