package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"presence.service/internal/api/handler"
	"presence.service/internal/api/middleware"
)

// Options configures the router. Auth wraps every /api/v1 route; Gatherer
// backs /metrics and defaults to the global registry.
type Options struct {
	Auth     func(http.Handler) http.Handler
	Gatherer prometheus.Gatherer
}

// NewRouter sets up the gorilla/mux router and defines all API routes.
func NewRouter(service handler.AttendanceCommands, query handler.AttendanceQueries, opts Options) *mux.Router {
	attendance := handler.AttendanceHandler{
		Service: service,
		Query:   query,
	}

	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	r := mux.NewRouter()
	r.Use(middleware.Logger)

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("Service is operational."))
	}).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	if opts.Auth != nil {
		api.Use(mux.MiddlewareFunc(opts.Auth))
	}

	// Fixed paths are registered ahead of /attendance/{id}.
	api.HandleFunc("/attendance/check-in", attendance.ManualCheckIn).Methods(http.MethodPost)
	api.HandleFunc("/attendance/check-out", attendance.ManualCheckOut).Methods(http.MethodPost)
	api.HandleFunc("/attendance/geo/check-in", attendance.GeoCheckIn).Methods(http.MethodPost)
	api.HandleFunc("/attendance/geo/check-out", attendance.GeoCheckOut).Methods(http.MethodPost)
	api.HandleFunc("/attendance/employee/{employeeId}", attendance.EmployeeAttendance).Methods(http.MethodGet)

	api.HandleFunc("/attendance", attendance.CreateAttendance).Methods(http.MethodPost)
	api.HandleFunc("/attendance", attendance.ListAttendance).Methods(http.MethodGet)
	api.HandleFunc("/attendance/{id}", attendance.GetAttendance).Methods(http.MethodGet)
	api.HandleFunc("/attendance/{id}", attendance.UpdateAttendance).Methods(http.MethodPut)
	api.HandleFunc("/attendance/{id}", attendance.DeleteAttendance).Methods(http.MethodDelete)

	return r
}
