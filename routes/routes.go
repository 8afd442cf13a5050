package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/upb/travel-control-plane/app"
	"github.com/upb/travel-control-plane/middleware"
	"github.com/upb/travel-control-plane/models"
	"github.com/upb/travel-control-plane/utils"
)

// requestTimeout bounds every request, including the approval transaction
const requestTimeout = 60 * time.Second

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()
	h := deps.Handlers
	authMW := deps.AuthMiddleware
	adminOnly := authMW.RequireRole(models.RoleTravelAdmin, models.RoleSuperAdmin)

	// Core middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestInfo)
	r.Use(middleware.AccessLog(deps.Logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(requestTimeout))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Config.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           deps.Config.CORS.MaxAge,
	}))

	// Health check endpoints
	r.Get("/healthz", h.Health.HandleHealth)
	r.Get("/readyz", h.Health.HandleReadiness)

	if h.Token != nil {
		r.Post("/auth/token", h.Token.HandleIssue)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", h.Health.HandleStatus)

		r.Group(func(r chi.Router) {
			r.Use(authMW.RequireAuth)

			r.Route("/users", func(r chi.Router) {
				r.Get("/me", h.Directory.HandleMe)
				r.Get("/", h.Directory.HandleListUsers)
				r.Get("/{id}", h.Directory.HandleGetUser)
				r.With(adminOnly).Post("/", h.Directory.HandleCreateUser)
				r.With(adminOnly).Patch("/{id}", h.Directory.HandleUpdateUser)
			})

			r.Route("/companies", func(r chi.Router) {
				r.Get("/{id}", h.Directory.HandleGetCompany)
				r.With(authMW.RequireRole(models.RoleSuperAdmin)).Get("/", h.Directory.HandleListCompanies)
				r.With(authMW.RequireRole(models.RoleSuperAdmin)).Post("/", h.Directory.HandleCreateCompany)
			})

			r.Route("/policies", func(r chi.Router) {
				r.Get("/active", h.Policy.HandleActivePolicy)
				r.Group(func(r chi.Router) {
					r.Use(adminOnly)
					r.Get("/", h.Policy.HandleListPolicies)
					r.Post("/", h.Policy.HandleCreatePolicy)
					r.Get("/{id}", h.Policy.HandleGetPolicy)
					r.Put("/{id}", h.Policy.HandleUpdatePolicy)
					r.Delete("/{id}", h.Policy.HandleDeletePolicy)
				})
			})

			r.Route("/bookings", func(r chi.Router) {
				r.Post("/", h.Booking.HandleSubmit)
				r.Get("/", h.Booking.HandleList)
				r.Post("/check", h.Booking.HandleCheck)
				r.Get("/{id}", h.Booking.HandleGet)
				r.Post("/{id}/confirm", h.Booking.HandleConfirm)
				r.Post("/{id}/cancel", h.Booking.HandleCancel)
				r.Get("/{id}/approvals", h.Approval.HandleListForBooking)
				r.Get("/{id}/history", h.Audit.HandleBookingHistory)
			})

			r.Route("/approvals", func(r chi.Router) {
				r.Get("/", h.Approval.HandleListPending)
				r.Get("/{id}", h.Approval.HandleGet)
				r.Post("/{id}/resolve", h.Approval.HandleResolve)
			})

			r.Route("/trips", func(r chi.Router) {
				r.Post("/", h.Trip.HandleCreate)
				r.Get("/", h.Trip.HandleList)
				r.Get("/{id}", h.Trip.HandleGet)
				r.Patch("/{id}", h.Trip.HandleUpdate)
			})

			r.Route("/expenses", func(r chi.Router) {
				r.Post("/", h.Expense.HandleCreate)
				r.Get("/", h.Expense.HandleList)
				r.Get("/{id}", h.Expense.HandleGet)
				r.Patch("/{id}", h.Expense.HandleUpdate)
				r.Delete("/{id}", h.Expense.HandleDelete)
			})

			r.Route("/audit", func(r chi.Router) {
				r.Use(adminOnly)
				r.Get("/logs", h.Audit.HandleListLogs)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteNotFound(w, "endpoint not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteError(w, http.StatusMethodNotAllowed, "method not allowed", nil)
	})

	return r
}
