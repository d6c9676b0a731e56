package web

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/felixge/httpsnoop"
	"github.com/google/uuid"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
)

const requestIDHeader = "X-Request-Id"

func (s *Server) withMiddleware(h http.Handler) http.Handler {
	h = cors.New(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type", "Datastar-Request", requestIDHeader},
	}).Handler(h)
	return s.observe(h)
}

// observe assigns a request id, then logs and counts every request once it completes.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, reqID)

		m := httpsnoop.CaptureMetrics(next, w, r)

		// ServeMux records the matched pattern on the request.
		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		s.metrics.requests.WithLabelValues(route, strconv.Itoa(m.Code)).Inc()
		s.metrics.latency.WithLabelValues(route).Observe(m.Duration.Seconds())

		entry := s.log.WithFields(logrus.Fields{
			"action":      "http_request",
			"request_id":  reqID,
			"method":      r.Method,
			"path":        r.URL.Path,
			"route":       route,
			"status":      m.Code,
			"bytes":       m.Written,
			"duration_ms": m.Duration.Milliseconds(),
		})
		if m.Code >= 500 {
			entry.Error("request failed")
			return
		}
		entry.Debug("request served")
	})
}
