package routes

import (
	"net/http"

	"github.com/agastya-health/clinic-admin/internal/api/handlers"
	"github.com/agastya-health/clinic-admin/internal/api/middleware"
	"github.com/agastya-health/clinic-admin/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	appointmentHandler *handlers.AppointmentHandler
	blogHandler        *handlers.BlogHandler
	sseHandler         *handlers.SSEHandler

	cacheMiddleware *middleware.CacheMiddleware
	metrics         *observability.Metrics
	allowedOrigins  []string
}

// NewRouter creates a new router. cacheMiddleware and sseHandler may be nil.
func NewRouter(
	appointmentHandler *handlers.AppointmentHandler,
	blogHandler *handlers.BlogHandler,
	sseHandler *handlers.SSEHandler,
	cacheMiddleware *middleware.CacheMiddleware,
	metrics *observability.Metrics,
	allowedOrigins []string,
) *Router {
	return &Router{
		mux:                http.NewServeMux(),
		appointmentHandler: appointmentHandler,
		blogHandler:        blogHandler,
		sseHandler:         sseHandler,
		cacheMiddleware:    cacheMiddleware,
		metrics:            metrics,
		allowedOrigins:     allowedOrigins,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			return
		}
	})

	// Appointment endpoints
	r.mux.HandleFunc("GET /api/appointments", r.appointmentHandler.ListAppointments)
	r.mux.HandleFunc("GET /api/appointments/availableSlots", r.appointmentHandler.GetAvailableSlots)
	r.mux.HandleFunc("GET /api/appointments/{id}/slip", r.appointmentHandler.DownloadSlip)
	r.mux.HandleFunc("POST /api/appointments", r.appointmentHandler.CreateAppointment)
	r.mux.HandleFunc("POST /api/appointments/status/expired", r.appointmentHandler.MarkExpired)
	r.mux.HandleFunc("PUT /api/appointments/{id}", r.appointmentHandler.UpdateAppointment)
	r.mux.HandleFunc("PUT /api/appointments/{id}/status/cancel", r.appointmentHandler.CancelAppointment)
	r.mux.HandleFunc("PUT /api/appointments/{id}/status/complete", r.appointmentHandler.CompleteAppointment)
	r.mux.HandleFunc("DELETE /api/appointments", r.appointmentHandler.DeleteAppointments)
	r.mux.HandleFunc("DELETE /api/appointments/bulk/{ids}", r.appointmentHandler.DeleteAppointmentsBulk)

	// Blog endpoints
	r.mux.HandleFunc("GET /api/blogs", r.blogHandler.ListBlogs)
	r.mux.HandleFunc("GET /api/blogs/search", r.blogHandler.SearchBlogs)
	r.mux.HandleFunc("POST /api/blogs", r.blogHandler.CreateBlog)
	r.mux.HandleFunc("PUT /api/blogs", r.blogHandler.UpdateBlog)
	r.mux.HandleFunc("DELETE /api/blogs", r.blogHandler.DeleteBlogs)
	r.mux.HandleFunc("DELETE /api/blogs/bulk/{ids}", r.blogHandler.DeleteBlogsBulk)

	// Live updates
	if r.sseHandler != nil {
		r.mux.HandleFunc("GET /api/stream/appointments", r.sseHandler.StreamAppointments)
	}

	// Apply middleware in reverse order (last middleware wraps first)
	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)

	if r.cacheMiddleware != nil {
		handler = r.cacheMiddleware.Middleware(handler)
	}

	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	handler = middleware.ResponseOptimization(handler)

	// CORS wraps everything so headers are set even on cache HITs
	handler = middleware.CORSMiddleware(r.allowedOrigins)(handler)

	return handler
}
