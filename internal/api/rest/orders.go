package rest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/vladislavdragonenkov/ims/internal/domain"
	"github.com/vladislavdragonenkov/ims/internal/service/order"
)

type orderItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int64  `json:"quantity"`
}

type orderRequest struct {
	CustomerID    string             `json:"customer_id"`
	OrderDate     *time.Time         `json:"order_date,omitempty"`
	PaymentMethod string             `json:"payment_method"`
	Items         []orderItemRequest `json:"items"`
}

type orderStatusRequest struct {
	Status string `json:"status"`
}

func (s *Server) listOrders(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	limit := 0
	if raw := query.Get("limit"); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value < 0 {
			writeValidationError(w, fmt.Sprintf("invalid limit %q", raw))
			return
		}
		limit = value
	}

	orders, err := s.orders.List(strings.TrimSpace(query.Get("customer_id")), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}

	items := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		items = append(items, toOrderResponse(o))
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": items})
}

func (s *Server) createOrder(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeValidationError(w, "failed to read request body")
		return
	}

	var req orderRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeValidationError(w, "invalid request body")
		return
	}

	input := order.CreateInput{
		CustomerID:    strings.TrimSpace(req.CustomerID),
		PaymentMethod: strings.TrimSpace(req.PaymentMethod),
	}
	if req.OrderDate != nil {
		input.OrderDate = req.OrderDate.UTC()
	}
	for _, item := range req.Items {
		input.Items = append(input.Items, order.ItemInput{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}

	s.runIdempotent(w, r, body, func() (int, any, error) {
		created, err := s.orders.Create(input)
		if err != nil {
			return 0, nil, err
		}
		return http.StatusCreated, toOrderResponse(created), nil
	})
}

func (s *Server) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := s.orders.Get(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

func (s *Server) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeValidationError(w, "failed to read request body")
		return
	}

	var req orderStatusRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeValidationError(w, "invalid request body")
		return
	}

	orderID := r.PathValue("id")
	next := domain.OrderStatus(strings.ToLower(strings.TrimSpace(req.Status)))

	s.runIdempotent(w, r, body, func() (int, any, error) {
		updated, err := s.orders.UpdateStatus(orderID, next)
		if err != nil {
			return 0, nil, err
		}
		return http.StatusOK, toOrderResponse(updated), nil
	})
}

func (s *Server) deleteOrder(w http.ResponseWriter, r *http.Request) {
	orderID := r.PathValue("id")

	s.runIdempotent(w, r, nil, func() (int, any, error) {
		if err := s.orders.Delete(orderID); err != nil {
			return 0, nil, err
		}
		return http.StatusNoContent, nil, nil
	})
}
