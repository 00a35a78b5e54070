package http

import (
	"net/http"

	"clinic-backend/internal/delivery/http/handler"
	"clinic-backend/internal/delivery/http/middleware"

	"github.com/gorilla/mux"
)

type Router struct {
	router             *mux.Router
	appointmentHandler *handler.AppointmentHandler
	queueHandler       *handler.QueueHandler
	providerHandler    *handler.ProviderHandler
	auditLogHandler    *handler.AuditLogHandler
	realtimeHandler    *handler.RealtimeHandler
	authMiddleware     *middleware.AuthMiddleware
	corsMiddleware     *middleware.CORSMiddleware
}

func NewRouter(
	appointmentHandler *handler.AppointmentHandler,
	queueHandler *handler.QueueHandler,
	providerHandler *handler.ProviderHandler,
	auditLogHandler *handler.AuditLogHandler,
	realtimeHandler *handler.RealtimeHandler,
	authMiddleware *middleware.AuthMiddleware,
	corsMiddleware *middleware.CORSMiddleware,
) *Router {
	return &Router{
		router:             mux.NewRouter(),
		appointmentHandler: appointmentHandler,
		queueHandler:       queueHandler,
		providerHandler:    providerHandler,
		auditLogHandler:    auditLogHandler,
		realtimeHandler:    realtimeHandler,
		authMiddleware:     authMiddleware,
		corsMiddleware:     corsMiddleware,
	}
}

func (r *Router) Setup() *mux.Router {
	// API versioning
	api := r.router.PathPrefix("/api/v1").Subrouter()

	// Health check
	api.HandleFunc("/health", r.healthCheck).Methods(http.MethodGet)

	// Provider directory and availability (public)
	api.HandleFunc("/providers", r.providerHandler.ListProviders).Methods(http.MethodGet)
	api.HandleFunc("/providers/{id}/slots", r.providerHandler.GetSlots).Methods(http.MethodGet)
	api.HandleFunc("/providers/{id}/recommendations", r.providerHandler.GetRecommendations).Methods(http.MethodGet)

	// Appointments (protected)
	appointments := api.PathPrefix("/appointments").Subrouter()
	appointments.Use(r.authMiddleware.Authenticate)
	appointments.Handle("", middleware.RequireAdminOrPatient(http.HandlerFunc(r.appointmentHandler.CreateAppointment))).Methods(http.MethodPost)
	appointments.HandleFunc("", r.appointmentHandler.GetAppointments).Methods(http.MethodGet)
	appointments.HandleFunc("/{id}", r.appointmentHandler.GetAppointment).Methods(http.MethodGet)
	appointments.HandleFunc("/{id}", r.appointmentHandler.UpdateAppointment).Methods(http.MethodPatch)

	// Queue (protected)
	queue := api.PathPrefix("/queue").Subrouter()
	queue.Use(r.authMiddleware.Authenticate)
	queue.HandleFunc("/checkin/{appointmentId}", r.queueHandler.CheckIn).Methods(http.MethodPost)
	queue.HandleFunc("/status/{appointmentId}", r.queueHandler.GetStatus).Methods(http.MethodGet)
	queue.Handle("/next/{providerId}", middleware.RequireAdminOrDoctor(http.HandlerFunc(r.queueHandler.CallNext))).Methods(http.MethodPost)
	queue.Handle("/entries/{appointmentId}", middleware.RequireAdminOrDoctor(http.HandlerFunc(r.queueHandler.UpdateEntry))).Methods(http.MethodPatch)
	queue.Handle("/providers/{providerId}", middleware.RequireAdminOrDoctor(http.HandlerFunc(r.queueHandler.ListQueue))).Methods(http.MethodGet)

	// Real-time events (protected)
	ws := api.PathPrefix("/ws").Subrouter()
	ws.Use(r.authMiddleware.Authenticate)
	ws.HandleFunc("", r.realtimeHandler.ServeWS).Methods(http.MethodGet)

	// Admin routes (protected - admin only)
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(r.authMiddleware.Authenticate)
	admin.Use(middleware.RequireAdmin)
	admin.HandleFunc("/audit-logs", r.auditLogHandler.GetAllAuditLogs).Methods(http.MethodGet)
	admin.HandleFunc("/audit-logs/{id}", r.auditLogHandler.GetAuditLog).Methods(http.MethodGet)

	// Add CORS middleware
	r.router.Use(r.corsMiddleware.Handle)

	return r.router
}

func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status": "ok"}`))
}
