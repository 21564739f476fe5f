package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/peopledesk/peopledesk/cmd/peopledesk/cli"
	"github.com/peopledesk/peopledesk/internal/app"
	"github.com/peopledesk/peopledesk/internal/audit"
	"github.com/peopledesk/peopledesk/internal/auth"
	"github.com/peopledesk/peopledesk/internal/departments"
	"github.com/peopledesk/peopledesk/internal/employees"
	"github.com/peopledesk/peopledesk/internal/observability"
	"github.com/peopledesk/peopledesk/internal/platform/cache"
	"github.com/peopledesk/peopledesk/internal/platform/db"
	"github.com/peopledesk/peopledesk/internal/rbac"
	"github.com/peopledesk/peopledesk/internal/shared"
	"github.com/peopledesk/peopledesk/internal/users"
	"github.com/peopledesk/peopledesk/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)
	if len(os.Args) > 1 && os.Args[1] == "jobs" {
		if err := runJobs(ctx, cfg, os.Args[2:]); err != nil {
			logger.Error("jobs command", slog.Any("error", err))
			os.Exit(1)
		}
		return
	}
	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
}

// runJobs handles "peopledesk jobs ..." maintenance commands.
func runJobs(ctx context.Context, cfg *app.Config, args []string) error {
	c := cli.NewJobsCLI(asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}, cfg.SessionPurgeGrace)
	defer c.Close()
	return c.Run(ctx, args, os.Stdout)
}

func run(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	pool, err := db.New(ctx, cfg.PGDSN, db.Options{MaxConns: cfg.PGMaxConns, MaxConnIdleTime: 5 * time.Minute})
	if err != nil {
		return err
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	sessionManager := shared.NewSessionManager(redisClient, cfg.SessionCookie, cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	auditLogger := shared.NewAuditLogger(pool)

	store := rbac.SessionStore{Logger: logger}
	guard := rbac.Guard{Store: store, Logger: logger, Recorder: metrics}

	rbacService := rbac.NewService(rbac.NewRepository(pool), auditLogger, logger)
	authService := auth.NewService(auth.NewRepository(pool), rbacService)
	usersService := users.NewService(users.NewRepository(pool), rbacService)
	employeesService := employees.NewService(employees.NewRepository(pool))
	departmentsService := departments.NewService(departments.NewRepository(pool))

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("asynq inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		SessionManager:     sessionManager,
		CSRFManager:        csrfManager,
		Guard:              guard,
		Metrics:            metrics,
		Pool:               pool,
		Redis:              redisClient,
		AuthHandler:        auth.NewHandler(logger, authService, sessionManager, csrfManager, store),
		RolesHandler:       rbac.NewHandler(logger, rbacService, guard),
		EmployeesHandler:   employees.NewHandler(logger, employeesService, guard),
		DepartmentsHandler: departments.NewHandler(logger, departmentsService, guard),
		UsersHandler:       users.NewHandler(logger, usersService, guard),
		JobHandler:         jobs.NewHandler(inspector, logger, guard),
		AuditHandler:       audit.NewHandler(logger, audit.NewService(audit.NewRepository(pool)), guard),
	})

	server := &http.Server{
		Addr:              cfg.AppAddr,
		Handler:           router,
		ReadTimeout:       cfg.AppReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.AppWriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr), slog.String("env", cfg.AppEnv))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info("shutting down http server")
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
