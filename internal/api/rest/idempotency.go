package rest

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/vladislavdragonenkov/ims/internal/domain"
)

const (
	idempotencyKeyHeader = "Idempotency-Key"
	idempotencyTTL       = 24 * time.Hour

	maxRequestBody = 1 << 20 // 1 MiB
)

// readBody читает тело запроса с ограничением размера.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err != nil {
		return nil, err
	}
	return body, nil
}

// runIdempotent выполняет изменяющую операцию с учётом заголовка
// Idempotency-Key. Без заголовка операция выполняется напрямую. Повтор
// завершённого запроса возвращает сохранённый ответ, конкурирующий дубликат
// получает конфликт, тот же ключ с другим телом — ошибку несоответствия.
func (s *Server) runIdempotent(w http.ResponseWriter, r *http.Request, body []byte, execute func() (int, any, error)) {
	key := strings.TrimSpace(r.Header.Get(idempotencyKeyHeader))
	if key == "" || s.idempotency == nil {
		s.finish(w, execute)
		return
	}

	hash := buildRequestHash(r.Method, r.URL.Path, body)
	record, err := s.idempotency.CreateProcessing(key, hash, time.Now().UTC().Add(idempotencyTTL))
	if err != nil {
		s.replayIdempotent(w, err, record)
		return
	}

	status, payload, runErr := execute()
	if runErr != nil {
		errStatus, info := classifyError(runErr)
		cached, marshalErr := json.Marshal(errorBody{Error: info})
		if marshalErr != nil {
			cached = nil
		}
		if markErr := s.idempotency.MarkFailed(key, cached, errStatus); markErr != nil {
			s.logger.WithError(markErr).WithField("idempotency_key", key).
				Warn("failed to store idempotent failure response")
		}
		s.writeError(w, runErr)
		return
	}

	var cached []byte
	if payload != nil {
		cached, err = json.Marshal(payload)
		if err != nil {
			s.logger.WithError(err).WithField("idempotency_key", key).
				Warn("failed to encode idempotent response for cache")
		}
	}
	if markErr := s.idempotency.MarkDone(key, cached, status); markErr != nil {
		s.logger.WithError(markErr).WithField("idempotency_key", key).
			Warn("failed to store idempotent success response")
	}
	writeRawJSON(w, status, cached)
}

func (s *Server) replayIdempotent(w http.ResponseWriter, createErr error, record domain.IdempotencyRecord) {
	switch {
	case errors.Is(createErr, domain.ErrIdempotencyHashMismatch):
		s.writeError(w, domain.ErrIdempotencyHashMismatch)
	case errors.Is(createErr, domain.ErrIdempotencyKeyAlreadyExists):
		switch record.Status {
		case domain.IdempotencyStatusDone, domain.IdempotencyStatusFailed:
			status := record.HTTPStatus
			if status == 0 {
				status = http.StatusInternalServerError
			}
			writeRawJSON(w, status, record.ResponseBody)
		case domain.IdempotencyStatusProcessing:
			writeJSON(w, http.StatusConflict, errorBody{Error: errorInfo{
				Kind:    errorKindConflict,
				Message: "request with the same idempotency key is already processing",
			}})
		default:
			s.logger.WithField("idempotency_key", record.Key).
				Warn("unknown idempotency record status")
			writeJSON(w, http.StatusInternalServerError, errorBody{Error: errorInfo{
				Kind:    errorKindInternal,
				Message: "internal error",
			}})
		}
	default:
		s.logger.WithError(createErr).Warn("failed to create idempotency record")
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: errorInfo{
			Kind:    errorKindInternal,
			Message: "internal error",
		}})
	}
}

// finish выполняет операцию без идемпотентности.
func (s *Server) finish(w http.ResponseWriter, execute func() (int, any, error)) {
	status, payload, err := execute()
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, status, payload)
}

func buildRequestHash(method, path string, body []byte) string {
	payload := make([]byte, 0, len(method)+len(path)+len(body)+2)
	payload = append(payload, method...)
	payload = append(payload, ':')
	payload = append(payload, path...)
	payload = append(payload, ':')
	payload = append(payload, body...)
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
