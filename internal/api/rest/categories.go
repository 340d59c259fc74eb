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

type categoryRequest struct {
	Name string `json:"name"`
}

func (s *Server) listCategories(w http.ResponseWriter, _ *http.Request) {
	categories, err := s.categories.List()
	if err != nil {
		s.writeError(w, err)
		return
	}

	items := make([]categoryResponse, 0, len(categories))
	for _, category := range categories {
		items = append(items, toCategoryResponse(category))
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": items})
}

func (s *Server) createCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeValidationError(w, "invalid request body")
		return
	}

	category := domain.Category{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(req.Name),
		CreatedAt: time.Now().UTC(),
	}
	if errs := category.Validate(); len(errs) > 0 {
		s.writeError(w, errors.Join(errs...))
		return
	}
	if err := s.categories.Create(category); err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toCategoryResponse(category))
}

func (s *Server) getCategory(w http.ResponseWriter, r *http.Request) {
	category, err := s.categories.Get(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCategoryResponse(category))
}

func (s *Server) updateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeValidationError(w, "invalid request body")
		return
	}

	category, err := s.categories.Get(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	category.Name = strings.TrimSpace(req.Name)
	if errs := category.Validate(); len(errs) > 0 {
		s.writeError(w, errors.Join(errs...))
		return
	}
	if err := s.categories.Update(category); err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toCategoryResponse(category))
}

func (s *Server) deleteCategory(w http.ResponseWriter, r *http.Request) {
	category, err := s.categories.Get(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	// Категория с товарами не удаляется; postgres дополнительно закрывает
	// гонку внешним ключом.
	_, total, err := s.products.List(
		domain.ProductFilter{CategoryName: category.Name},
		domain.ProductSort{},
		domain.Page{Number: 1, Size: 1},
	)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if total > 0 {
		s.writeError(w, domain.ErrCategoryHasProducts)
		return
	}

	if err := s.categories.Delete(category.ID); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}
