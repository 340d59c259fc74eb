package rest

import (
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// instrument оборачивает обработчик логированием и метриками; route — шаблон
// маршрута, чтобы не раздувать кардинальность меток конкретными id.
func (s *Server) instrument(route string, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.metrics != nil {
			s.metrics.RecordRequestStarted()
			defer s.metrics.RecordRequestFinished()
		}

		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next(recorder, r)
		duration := time.Since(start)

		if s.metrics != nil {
			s.metrics.RecordRequest(r.Method, route, recorder.status, duration)
		}
		s.logger.WithFields(log.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      recorder.status,
			"duration_ms": duration.Milliseconds(),
		}).Debug("request handled")
	})
}
