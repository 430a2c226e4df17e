/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the payslip engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags and load configuration
  2. Open the SQLite store (migrations run on open)
  3. Choose the idempotency ledger (sqlite, memory or redis)
  4. Wire renderer, artifact store, mailer and coordinator
  5. Configure HTTP router and start the server

COMMAND-LINE FLAGS:
  -config      YAML configuration file (optional; env overrides apply)
  -mint-token  Print a bearer token for an employee id and exit

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests (app.shutdown_timeout)
  3. Close database and Redis connections
  4. Exit

EXAMPLES:
  # Run with the sample configuration
  ./server -config=assets/config.yaml

  # Token for employee 1, signed with the configured secret
  ./server -config=assets/config.yaml -mint-token=1

ENVIRONMENT:
  See config/config.go. A .env file in the working directory is loaded
  when present.

SEE ALSO:
  - config/config.go: Configuration layers
  - api/server.go: Router configuration
  - delivery/coordinator.go: The operations
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/warp/payslip-engine/api"
	"github.com/warp/payslip-engine/artifact"
	"github.com/warp/payslip-engine/auth"
	"github.com/warp/payslip-engine/config"
	"github.com/warp/payslip-engine/delivery"
	"github.com/warp/payslip-engine/idempotency"
	"github.com/warp/payslip-engine/mail"
	"github.com/warp/payslip-engine/payroll"
	"github.com/warp/payslip-engine/render"
	"github.com/warp/payslip-engine/store/redis"
	"github.com/warp/payslip-engine/store/sqlite"
	"github.com/warp/payslip-engine/timeoff"
)

func main() {
	configPath := flag.String("config", "", "YAML configuration file")
	mintToken := flag.String("mint-token", "", "print a token for this employee id and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := newLogger(cfg.App)
	slog.SetDefault(logger)

	if err := run(cfg, logger, *mintToken); err != nil {
		logger.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func newLogger(app config.AppConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(app.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if app.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func run(cfg *config.Config, logger *slog.Logger, mintToken string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize store
	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer store.Close()

	if mintToken != "" {
		return printToken(ctx, cfg.Auth, store, mintToken)
	}

	configured, err := timeoff.NewStaticCalendar(cfg.Payroll.Holidays...)
	if err != nil {
		return fmt.Errorf("configured holidays: %w", err)
	}
	// The store answers from its own table, including holidays seeded later.
	calendar := timeoff.Calendars{configured, store}

	ledger, closeLedger, err := openLedger(ctx, cfg.Idempotency, store)
	if err != nil {
		return err
	}
	defer closeLedger()
	guard := idempotency.NewGuard(ledger, logger)
	guard.StrictOperation = cfg.Idempotency.StrictOperation

	artifacts, err := artifact.NewStore(cfg.Storage.Root)
	if err != nil {
		return fmt.Errorf("open artifact store: %w", err)
	}

	smtp := mail.NewSMTPSender(mail.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		SSL:      cfg.SMTP.SSL,
		Insecure: cfg.SMTP.Insecure,
	})
	mailer := mail.NewRetryingSender(smtp, mail.RetryPolicy{
		MaxAttempts:     cfg.Mail.MaxAttempts,
		InitialInterval: cfg.Mail.InitialInterval,
		MaxInterval:     cfg.Mail.MaxInterval,
	}, logger)

	coord := delivery.NewCoordinator(delivery.Deps{
		Directory:  store,
		Aggregator: payroll.NewAggregator(store, timeoff.NewWeekdayOverlap(calendar), logger),
		Slips:      render.NewSlips(cfg.Payroll.Currency, cfg.Payroll.Company),
		Artifacts:  artifacts,
		Mailer:     mailer,
		Guard:      guard,
		Journal:    store.Journal(),
		Logger:     logger,
	}, delivery.Options{
		From:    cfg.Mail.From,
		AppName: cfg.App.Name,
		Workers: cfg.Payroll.Workers,
	})

	handler := api.NewHandler(coord, store, api.HealthDTO{
		Status: "ok",
		Env:    cfg.App.Env,
		SMTP:   fmt.Sprintf("%s:%d", cfg.SMTP.Host, cfg.SMTP.Port),
	}, logger)
	handler.Seeder = store
	handler.Holidays = configured

	router := api.NewRouter(handler, auth.NewVerifier([]byte(cfg.Auth.Secret), cfg.Auth.Issuer, logger), api.RouterConfig{
		CORSOrigins: cfg.App.CORSOrigins,
		Production:  cfg.App.IsProduction(),
		FilesRoot:   artifacts.Root,
	})

	server := &http.Server{
		Addr:         cfg.App.ListenAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", cfg.App.ListenAddr, "env", cfg.App.Env,
			"ledger", cfg.Idempotency.Backend, "storage", artifacts.Root)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

// openLedger returns the configured idempotency store and its cleanup.
func openLedger(ctx context.Context, cfg config.IdempotencyConfig, store *sqlite.Store) (idempotency.Store, func(), error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return idempotency.NewMemoryStore(), func() {}, nil
	case config.BackendRedis:
		client, err := redis.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		opts := []redis.Option{redis.WithTTL(cfg.Redis.TTL)}
		if cfg.Redis.Prefix != "" {
			opts = append(opts, redis.WithPrefix(cfg.Redis.Prefix))
		}
		return redis.NewLedger(client, opts...), func() { client.Close() }, nil
	default:
		return store, func() {}, nil
	}
}

func printToken(ctx context.Context, cfg config.AuthConfig, store *sqlite.Store, raw string) error {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return fmt.Errorf("mint-token: employee id %q: %w", raw, err)
	}
	emp, err := store.Employee(ctx, payroll.EmployeeID(id))
	if err != nil {
		return fmt.Errorf("mint-token: %w", err)
	}
	tok, err := auth.NewIssuer([]byte(cfg.Secret), cfg.Issuer, cfg.TokenTTL).Issue(auth.Principal{
		EmployeeID: emp.ID,
		Role:       emp.Role,
	})
	if err != nil {
		return err
	}
	fmt.Println(tok)
	return nil
}
