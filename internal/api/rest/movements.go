package rest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/vladislavdragonenkov/ims/internal/domain"
	"github.com/vladislavdragonenkov/ims/internal/service/movement"
)

type movementRequest struct {
	ProductID string `json:"product_id"`
	ActorID   string `json:"actor_id"`
	Type      string `json:"type"`
	Quantity  int64  `json:"quantity"`
}

func (s *Server) listMovements(w http.ResponseWriter, r *http.Request) {
	filter, page, err := parseMovementQuery(r)
	if err != nil {
		writeValidationError(w, err.Error())
		return
	}

	movements, total, err := s.movements.List(filter, page)
	if err != nil {
		s.writeError(w, err)
		return
	}

	items := make([]movementResponse, 0, len(movements))
	for _, m := range movements {
		items = append(items, toMovementResponse(m))
	}
	writeJSON(w, http.StatusOK, movementListResponse{
		Movements:  items,
		Total:      total,
		TotalPages: totalPages(total, page.Limit()),
		Page:       page.Number,
		PageSize:   page.Limit(),
	})
}

func (s *Server) createMovement(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeValidationError(w, "failed to read request body")
		return
	}

	var req movementRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeValidationError(w, "invalid request body")
		return
	}

	input := movement.RecordInput{
		ProductID: strings.TrimSpace(req.ProductID),
		ActorID:   strings.TrimSpace(req.ActorID),
		Type:      req.Type,
		Quantity:  req.Quantity,
	}

	s.runIdempotent(w, r, body, func() (int, any, error) {
		recorded, err := s.movements.Record(input)
		if err != nil {
			return 0, nil, err
		}
		return http.StatusCreated, toMovementResponse(recorded), nil
	})
}

func (s *Server) getMovement(w http.ResponseWriter, r *http.Request) {
	m, err := s.movements.Get(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMovementResponse(m))
}

func parseMovementQuery(r *http.Request) (domain.MovementFilter, domain.Page, error) {
	query := r.URL.Query()

	filter := domain.MovementFilter{
		ProductID: strings.TrimSpace(query.Get("product_id")),
		ActorID:   strings.TrimSpace(query.Get("actor_id")),
	}
	if raw := strings.TrimSpace(query.Get("type")); raw != "" {
		movementType, err := domain.ParseMovementType(raw)
		if err != nil {
			return domain.MovementFilter{}, domain.Page{}, err
		}
		filter.Type = movementType
	}
	if raw := query.Get("from"); raw != "" {
		value, err := parseDate(raw)
		if err != nil {
			return domain.MovementFilter{}, domain.Page{}, fmt.Errorf("invalid from %q", raw)
		}
		filter.From = &value
	}
	if raw := query.Get("to"); raw != "" {
		value, err := parseDate(raw)
		if err != nil {
			return domain.MovementFilter{}, domain.Page{}, fmt.Errorf("invalid to %q", raw)
		}
		filter.To = &value
	}

	page, err := parsePage(r)
	if err != nil {
		return domain.MovementFilter{}, domain.Page{}, err
	}

	return filter, page, nil
}

// parseDate принимает дату или полный timestamp.
func parseDate(raw string) (time.Time, error) {
	if value, err := time.Parse("2006-01-02", raw); err == nil {
		return value.UTC(), nil
	}
	value, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, err
	}
	return value.UTC(), nil
}
