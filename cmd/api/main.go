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

	"github.com/cmlabs-hris/payroll-engine/internal/config"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	appHTTP "github.com/cmlabs-hris/payroll-engine/internal/handler/http"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/database"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/jwt"
	"github.com/cmlabs-hris/payroll-engine/internal/repository/postgresql"
	"github.com/cmlabs-hris/payroll-engine/internal/repository/redis"
	attendanceService "github.com/cmlabs-hris/payroll-engine/internal/service/attendance"
	payrollService "github.com/cmlabs-hris/payroll-engine/internal/service/payroll"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel()})))

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	regulationDefaults, err := config.LoadRegulationDefaults(cfg.Payroll.RegulationDefaultsFile)
	if err != nil {
		return err
	}
	defaults := regulationDefaults.Effective(payroll.DefaultRegulations())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgreSQLDB(cfg.DatabaseURL())
	if err != nil {
		return fmt.Errorf("error connecting to database: %w", err)
	}
	defer db.Close()

	redisClient, err := database.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Username, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return fmt.Errorf("error connecting to redis: %w", err)
	}
	defer redisClient.Close()

	transactor := postgresql.NewTransactor(db)
	attendanceRepo := postgresql.NewAttendanceRepository(db)
	leaveRepo := postgresql.NewLeaveRequestRepository(db)
	employeeDirectory := postgresql.NewEmployeeDirectory(db)
	compensationRepo := postgresql.NewCompensationRepository(db)
	regulationRepo := postgresql.NewRegulationRepository(db)
	payrollRepo := postgresql.NewPayrollRepository(db)
	previewStore := redis.NewPreviewStore(redisClient)

	JWTService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration)

	attendanceSvc := attendanceService.NewAttendanceService(
		attendanceRepo,
		employeeDirectory,
		leaveRepo,
		transactor,
		cfg.App.OrgCode,
		loc,
	)
	payrollSvc := payrollService.NewPayrollService(
		payrollRepo,
		regulationRepo,
		compensationRepo,
		attendanceSvc,
		previewStore,
		transactor,
		payrollService.Options{
			Defaults:   &defaults,
			Workers:    cfg.Payroll.Workers,
			PreviewTTL: cfg.Redis.PreviewTTL,
		},
	)

	attendanceHandler := appHTTP.NewAttendanceHandler(attendanceSvc)
	payrollHandler := appHTTP.NewPayrollHandler(payrollSvc)

	router := appHTTP.NewRouter(
		JWTService,
		attendanceHandler,
		payrollHandler,
		appHTTP.RouterOptions{
			Env:            cfg.App.Env,
			AllowedOrigins: cfg.App.AllowedOrigins,
			LogLevel:       cfg.LogLevel(),
		},
	)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server running", "addr", server.Addr, "timezone", loc.String(), "workers", cfg.Payroll.Workers)
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

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
