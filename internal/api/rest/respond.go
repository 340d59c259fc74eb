package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vladislavdragonenkov/ims/internal/domain"
)

const (
	errorKindValidation   = "validation"
	errorKindNotFound     = "not_found"
	errorKindConflict     = "conflict"
	errorKindInsufficient = "insufficient_stock"
	errorKindLockTimeout  = "lock_timeout"
	errorKindIdempotency  = "idempotency_mismatch"
	errorKindInternal     = "internal"
)

type errorBody struct {
	Error errorInfo `json:"error"`
}

type errorInfo struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

var notFoundErrors = []error{
	domain.ErrProductNotFound,
	domain.ErrCategoryNotFound,
	domain.ErrCustomerNotFound,
	domain.ErrUserNotFound,
	domain.ErrOrderNotFound,
	domain.ErrMovementNotFound,
}

var validationErrors = []error{
	domain.ErrCategoryNameRequired,
	domain.ErrProductNameRequired,
	domain.ErrCategoryRequired,
	domain.ErrPriceNegative,
	domain.ErrQuantityNegative,
	domain.ErrCustomerRequired,
	domain.ErrCustomerNameRequired,
	domain.ErrUsernameRequired,
	domain.ErrUserRoleInvalid,
	domain.ErrItemsRequired,
	domain.ErrItemProductRequired,
	domain.ErrItemQtyInvalid,
	domain.ErrItemDuplicateProduct,
	domain.ErrInvalidDelta,
	domain.ErrInvalidStatus,
	domain.ErrMovementTypeInvalid,
	domain.ErrMovementQtyInvalid,
	domain.ErrActorRequired,
	domain.ErrIdempotencyKeyRequired,
}

var conflictErrors = []error{
	domain.ErrProductNameTaken,
	domain.ErrCategoryNameTaken,
	domain.ErrUsernameTaken,
	domain.ErrOrderAlreadyExists,
	domain.ErrProductHasMovements,
	domain.ErrProductInOrders,
	domain.ErrCategoryHasProducts,
	domain.ErrInvalidTransition,
	domain.ErrIdempotencyKeyAlreadyExists,
}

// classifyError сопоставляет доменную ошибку с HTTP-статусом и видом ошибки.
// Непредвиденные ошибки хранилища наружу не раскрываются.
func classifyError(err error) (int, errorInfo) {
	switch {
	case matchesAny(err, notFoundErrors):
		return http.StatusNotFound, errorInfo{Kind: errorKindNotFound, Message: err.Error()}
	case errors.Is(err, domain.ErrInsufficientStock):
		return http.StatusConflict, errorInfo{Kind: errorKindInsufficient, Message: err.Error()}
	case errors.Is(err, domain.ErrLockTimeout):
		return http.StatusServiceUnavailable, errorInfo{Kind: errorKindLockTimeout, Message: err.Error()}
	case errors.Is(err, domain.ErrIdempotencyHashMismatch):
		return http.StatusUnprocessableEntity, errorInfo{Kind: errorKindIdempotency, Message: err.Error()}
	case matchesAny(err, conflictErrors):
		return http.StatusConflict, errorInfo{Kind: errorKindConflict, Message: err.Error()}
	case matchesAny(err, validationErrors):
		return http.StatusBadRequest, errorInfo{Kind: errorKindValidation, Message: err.Error()}
	default:
		return http.StatusInternalServerError, errorInfo{Kind: errorKindInternal, Message: "internal error"}
	}
}

func matchesAny(err error, sentinels []error) bool {
	for _, sentinel := range sentinels {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status, info := classifyError(err)
	if status == http.StatusInternalServerError {
		s.logger.WithError(err).Error("request failed")
	}
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "1")
	}
	writeJSON(w, status, errorBody{Error: info})
}

// writeValidationError возвращает 400 с текстом, не являющимся доменной ошибкой
// (сломанный JSON, некорректные query-параметры).
func writeValidationError(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: errorInfo{
		Kind:    errorKindValidation,
		Message: message,
	}})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

// writeRawJSON отдаёт заранее сериализованное тело (кэш идемпотентных ответов).
func writeRawJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if len(body) > 0 {
		_, _ = w.Write(body)
	}
}
