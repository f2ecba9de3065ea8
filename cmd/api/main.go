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

	"github.com/cmlabs-hris/attendance-core/internal/config"
	"github.com/cmlabs-hris/attendance-core/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-core/internal/domain/employee"
	"github.com/cmlabs-hris/attendance-core/internal/domain/leave"
	appHTTP "github.com/cmlabs-hris/attendance-core/internal/handler/http"
	"github.com/cmlabs-hris/attendance-core/internal/pkg/cron"
	"github.com/cmlabs-hris/attendance-core/internal/pkg/database"
	"github.com/cmlabs-hris/attendance-core/internal/pkg/jwt"
	"github.com/cmlabs-hris/attendance-core/internal/pkg/sse"
	"github.com/cmlabs-hris/attendance-core/internal/repository/memory"
	"github.com/cmlabs-hris/attendance-core/internal/repository/postgresql"
	attendanceService "github.com/cmlabs-hris/attendance-core/internal/service/attendance"
	leaveService "github.com/cmlabs-hris/attendance-core/internal/service/leave"
	"github.com/go-chi/httplog/v3"
	"golang.org/x/sync/errgroup"
)

type stores struct {
	attendance attendance.Repository
	leaves     leave.Repository
	directory  employee.Directory
	close      func()
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	switch cfg.App.StorageDriver {
	case config.StorageDriverMemory:
		directory := memory.NewDirectory()
		if cfg.App.MemorySeedFile != "" {
			var err error
			directory, err = memory.LoadDirectoryFile(cfg.App.MemorySeedFile)
			if err != nil {
				return nil, err
			}
		}
		return &stores{
			attendance: memory.NewAttendanceRepository(),
			leaves:     memory.NewLeaveRepository(),
			directory:  directory,
			close:      func() {},
		}, nil

	default:
		db, err := database.NewPostgreSQLDB(ctx, cfg.DatabaseURL(), database.PoolConfig{
			MaxConns: int32(cfg.Database.MaxConns),
			MinConns: int32(cfg.Database.MinConns),
		})
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		return &stores{
			attendance: postgresql.NewAttendanceRepository(db),
			leaves:     postgresql.NewLeaveRepository(db),
			directory:  postgresql.NewEmployeeDirectory(db),
			close:      db.Close,
		}, nil
	}
}

func main() {
	if err := run(); err != nil {
		slog.Error("Server stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logFormat := httplog.SchemaECS.Concise(false)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:       cfg.SlogLevel(),
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "attendance-core"),
		slog.String("env", cfg.App.Env),
	)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.close()

	hub := sse.NewHub(64)

	JWTService, err := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration)
	if err != nil {
		return err
	}

	attendanceSvc := attendanceService.NewAttendanceService(st.attendance, st.leaves, st.directory, hub, cfg.Sweep.Identity)
	leaveSvc := leaveService.NewLeaveService(st.leaves, st.directory)

	scheduler := cron.NewScheduler(attendance.Location, cfg.Sweep.Timeout)
	jobs := cron.NewAttendanceJobs(attendanceSvc)
	if err := jobs.RegisterJobs(scheduler, cron.Schedules{
		PrimarySweep:   cfg.Sweep.PrimarySchedule,
		SafetyNetSweep: cfg.Sweep.SafetyNetSchedule,
		Absence:        cfg.Sweep.AbsenceSchedule,
	}); err != nil {
		return err
	}

	router := appHTTP.NewRouter(
		appHTTP.RouterConfig{
			AllowedOrigins: cfg.App.CORSAllowedOrigins,
			DeviceKeyHash:  cfg.Device.KeyHash,
			Logger:         logger,
			LogLevel:       cfg.SlogLevel(),
		},
		JWTService,
		appHTTP.NewAttendanceHandler(attendanceSvc),
		appHTTP.NewScanHandler(attendanceSvc),
		appHTTP.NewLeaveHandler(leaveSvc),
		appHTTP.NewStreamHandler(JWTService, hub),
	)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.App.Port),
		Handler: router,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("Server running", "addr", server.Addr, "storage", cfg.App.StorageDriver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	scheduler.Start()

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
		defer cancel()

		scheduler.Stop(shutdownCtx)
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
