package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/clinic-portal/internal/clinicapi"
	httpmiddleware "github.com/wolfman30/clinic-portal/internal/http/middleware"
	"github.com/wolfman30/clinic-portal/internal/observability/metrics"
	"github.com/wolfman30/clinic-portal/internal/portal"
	"github.com/wolfman30/clinic-portal/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	Portal             *portal.Handler
	MetricsHandler     http.Handler
	PortalMetrics      *metrics.PortalMetrics
	RateLimiter        *httpmiddleware.RateLimiter
	CORSAllowedOrigins []string
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	r.Use(httpmiddleware.RequestLogger(cfg.Logger, cfg.PortalMetrics))
	if cfg.RateLimiter != nil {
		r.Use(httpmiddleware.RateLimit(cfg.RateLimiter, cfg.PortalMetrics))
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	p := cfg.Portal
	r.Group(func(r chi.Router) {
		r.Use(httpmiddleware.BearerSession(cfg.Logger))

		r.Route("/auth", func(r chi.Router) {
			r.Post("/{role}/login", p.Login)
			r.Post("/{role}/register", p.Register)
			r.Post("/forgot-password", p.ForgotPassword)
			r.Post("/reset-password", p.ResetPassword)
		})

		r.Route("/views", func(r chi.Router) {
			r.Get("/blogs", p.Blogs)
			r.Get("/doctors", p.Doctors)

			r.Group(func(r chi.Router) {
				r.Use(requireRole(clinicapi.RoleDoctor))
				r.Get("/slots", p.ListSlots)
				r.Post("/slots/generate", p.GenerateSlots)
				r.Patch("/slots/{id}/availability", p.SetSlotAvailability)
				r.Patch("/slots/{id}/timings", p.EditSlotTimings)
			})

			r.Group(func(r chi.Router) {
				r.Use(requireRole(clinicapi.RolePatient))
				r.Get("/dashboard", p.Dashboard)
				r.Get("/booking/slots", p.BookingSlots)
				r.Post("/booking", p.Book)
				r.Get("/appointments/{id}/reschedule-slots", p.RescheduleSlots)
				r.Put("/appointments/{id}", p.RescheduleAppointment)
			})

			r.Group(func(r chi.Router) {
				r.Use(requireRole(clinicapi.RoleDoctor, clinicapi.RolePatient))
				r.Get("/appointments", p.ListAppointments)
				r.Patch("/appointments/{id}/status", p.SetAppointmentStatus)
				r.Delete("/appointments/{id}", p.DeleteAppointment)
				r.Get("/profile", p.GetProfile)
				r.Patch("/profile/{field}", p.UpdateProfileField)
			})
		})
	})

	return r
}
