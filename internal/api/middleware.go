package api

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// RequestLogger logs method, path, status and latency for every request.
func RequestLogger(logger *log.Logger) mux.MiddlewareFunc {
	if logger == nil {
		logger = log.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			logger.Printf("%s %s %d %v", r.Method, r.URL.RequestURI(), rec.status, time.Since(start))
		})
	}
}

// NewRouter builds the service router with request logging attached.
func NewRouter(h *Handler, logger *log.Logger) *mux.Router {
	router := mux.NewRouter()
	router.Use(RequestLogger(logger))
	h.RegisterRoutes(router)
	return router
}
