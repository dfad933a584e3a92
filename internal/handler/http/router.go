package http

import (
	"log/slog"
	"os"

	"github.com/cmlabs-hris/payroll-engine/internal/handler/http/middleware"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
)

// RouterOptions carries the environment-dependent router settings.
type RouterOptions struct {
	Env            string
	AllowedOrigins []string
	LogLevel       slog.Level
}

func NewRouter(JWTService jwt.Service, attendanceHandler AttendanceHandler, payrollHandler PayrollHandler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()
	logFormat := httplog.SchemaECS.Concise(opts.Env != "production")
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:       opts.LogLevel,
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "cmlabs-payroll"),
		slog.String("version", "v1.0.0"),
		slog.String("env", opts.Env),
	)

	allowedOrigins := opts.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:3000"}
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelDebug,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.AllowContentEncoding("application/json"))
	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	r.Route("/api/v1", func(r chi.Router) {

		// Requires authentication
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(JWTService.JWTAuth()))
			r.Use(middleware.AuthRequired(JWTService.JWTAuth()))
			r.Use(middleware.RequireRole(jwt.RoleOwner, jwt.RoleManager, jwt.RoleHR))

			r.Route("/attendance", func(r chi.Router) {
				r.Get("/summary", attendanceHandler.GetSummaries)

				r.Route("/timesheet", func(r chi.Router) {
					r.Get("/", attendanceHandler.GetTimesheet)
					r.Put("/", attendanceHandler.SaveTimesheet)
					r.Post("/import", attendanceHandler.ImportTimesheet)
					r.Post("/confirm-checkout", attendanceHandler.ConfirmCheckout)
				})
			})

			r.Route("/payroll", func(r chi.Router) {
				r.Get("/regulations/latest", payrollHandler.GetLatestRegulations)
				r.Get("/records", payrollHandler.ListPayrollRecords)
				r.Put("/records/{employeeID}", payrollHandler.RecalculateRecord)

				r.Route("/batches", func(r chi.Router) {
					r.Post("/preview", payrollHandler.PreviewBatch)
					r.Post("/{runID}/commit", payrollHandler.CommitBatch)
				})
			})
		})
	})
	return r
}
