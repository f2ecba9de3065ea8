package http

import (
	"log/slog"

	"github.com/cmlabs-hris/attendance-core/internal/handler/http/middleware"
	"github.com/cmlabs-hris/attendance-core/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
)

type RouterConfig struct {
	AllowedOrigins []string
	DeviceKeyHash  string
	Logger         *slog.Logger
	LogLevel       slog.Level
}

func NewRouter(
	cfg RouterConfig,
	JWTService jwt.Service,
	attendanceHandler AttendanceHandler,
	scanHandler ScanHandler,
	leaveHandler LeaveHandler,
	streamHandler StreamHandler,
) *chi.Mux {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.DeviceKeyHeader, ReaderIDHeader},
		ExposedHeaders:   []string{"Link"},
		MaxAge:           300,
	}))

	if cfg.Logger != nil {
		r.Use(httplog.RequestLogger(cfg.Logger, &httplog.Options{
			Level:  cfg.LogLevel,
			Schema: httplog.SchemaECS,
		}))
	}

	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	r.Route("/api/v1", func(r chi.Router) {
		// Badge readers authenticate with the shared device key
		r.With(
			chiMiddleware.AllowContentType("application/json"),
			middleware.DeviceKey(cfg.DeviceKeyHash),
		).Post("/scans", scanHandler.Submit)

		// SSE token travels in the query string
		r.Get("/attendances/stream", streamHandler.Stream)

		// Requires an admin access token
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(JWTService.JWTAuth()))
			r.Use(middleware.AuthRequired(JWTService.JWTAuth()))
			r.Use(middleware.AdminOnly)

			r.Get("/attendances", attendanceHandler.List)
			r.Get("/attendances/stream/token", streamHandler.GetSSEToken)
			r.Post("/attendances/manual", attendanceHandler.Manual)
			r.Post("/attendances/manual/bulk", attendanceHandler.Bulk)
			r.Post("/attendances/sweeps", attendanceHandler.Sweep)
			r.Post("/attendances/absences", attendanceHandler.MarkAbsent)
			r.Get("/attendances/{id}", attendanceHandler.Get)
			r.Patch("/attendances/{id}", attendanceHandler.Correct)

			r.Get("/leaves", leaveHandler.List)
			r.Post("/leaves", leaveHandler.Assign)
			r.Delete("/leaves/{id}", leaveHandler.Remove)
		})
	})
	return r
}
