package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/ims/internal/domain"
)

type customerRequest struct {
	Name string `json:"name"`
	City string `json:"city"`
}

func (s *Server) listCustomers(w http.ResponseWriter, _ *http.Request) {
	customers, err := s.customers.List()
	if err != nil {
		s.writeError(w, err)
		return
	}

	items := make([]customerResponse, 0, len(customers))
	for _, customer := range customers {
		items = append(items, toCustomerResponse(customer))
	}
	writeJSON(w, http.StatusOK, map[string]any{"customers": items})
}

func (s *Server) createCustomer(w http.ResponseWriter, r *http.Request) {
	var req customerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeValidationError(w, "invalid request body")
		return
	}

	customer := domain.Customer{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(req.Name),
		City:      strings.TrimSpace(req.City),
		CreatedAt: time.Now().UTC(),
	}
	if errs := customer.Validate(); len(errs) > 0 {
		s.writeError(w, errors.Join(errs...))
		return
	}
	if err := s.customers.Create(customer); err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toCustomerResponse(customer))
}

func (s *Server) getCustomer(w http.ResponseWriter, r *http.Request) {
	customer, err := s.customers.Get(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCustomerResponse(customer))
}

func (s *Server) updateCustomer(w http.ResponseWriter, r *http.Request) {
	var req customerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeValidationError(w, "invalid request body")
		return
	}

	customer, err := s.customers.Get(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	customer.Name = strings.TrimSpace(req.Name)
	customer.City = strings.TrimSpace(req.City)
	if errs := customer.Validate(); len(errs) > 0 {
		s.writeError(w, errors.Join(errs...))
		return
	}
	if err := s.customers.Update(customer); err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toCustomerResponse(customer))
}

func (s *Server) deleteCustomer(w http.ResponseWriter, r *http.Request) {
	if err := s.customers.Delete(r.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

type userRequest struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

func (s *Server) listUsers(w http.ResponseWriter, _ *http.Request) {
	users, err := s.users.List()
	if err != nil {
		s.writeError(w, err)
		return
	}

	items := make([]userResponse, 0, len(users))
	for _, user := range users {
		items = append(items, toUserResponse(user))
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": items})
}

func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeValidationError(w, "invalid request body")
		return
	}

	user := domain.User{
		ID:        uuid.NewString(),
		Username:  strings.TrimSpace(req.Username),
		Role:      domain.UserRole(strings.ToLower(strings.TrimSpace(req.Role))),
		CreatedAt: time.Now().UTC(),
	}
	if errs := user.Validate(); len(errs) > 0 {
		s.writeError(w, errors.Join(errs...))
		return
	}
	if err := s.users.Create(user); err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toUserResponse(user))
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.users.Get(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

func (s *Server) updateUser(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeValidationError(w, "invalid request body")
		return
	}

	user, err := s.users.Get(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	user.Username = strings.TrimSpace(req.Username)
	user.Role = domain.UserRole(strings.ToLower(strings.TrimSpace(req.Role)))
	if errs := user.Validate(); len(errs) > 0 {
		s.writeError(w, errors.Join(errs...))
		return
	}
	if err := s.users.Update(user); err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}

func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request) {
	if err := s.users.Delete(r.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}
