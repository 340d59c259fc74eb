package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/ims/internal/domain"
)

type productRequest struct {
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	CategoryID string          `json:"category_id"`
	Quantity   int64           `json:"quantity"`
}

func (s *Server) listProducts(w http.ResponseWriter, r *http.Request) {
	filter, sort, page, err := parseProductQuery(r)
	if err != nil {
		writeValidationError(w, err.Error())
		return
	}

	products, total, err := s.products.List(filter, sort, page)
	if err != nil {
		s.writeError(w, err)
		return
	}

	items := make([]productResponse, 0, len(products))
	for _, product := range products {
		items = append(items, toProductResponse(product))
	}
	writeJSON(w, http.StatusOK, productListResponse{
		Products:   items,
		Total:      total,
		TotalPages: totalPages(total, page.Limit()),
		Page:       page.Number,
		PageSize:   page.Limit(),
	})
}

func (s *Server) createProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeValidationError(w, "invalid request body")
		return
	}

	now := time.Now().UTC()
	product := domain.Product{
		ID:         uuid.NewString(),
		Name:       strings.TrimSpace(req.Name),
		Price:      req.Price,
		CategoryID: req.CategoryID,
		Quantity:   req.Quantity,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if errs := product.Validate(); len(errs) > 0 {
		s.writeError(w, errors.Join(errs...))
		return
	}
	if _, err := s.categories.Get(product.CategoryID); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.products.Create(product); err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toProductResponse(product))
}

func (s *Server) getProduct(w http.ResponseWriter, r *http.Request) {
	product, err := s.products.Get(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(product))
}

// updateProduct меняет имя, цену и категорию; остаток товара через этот
// endpoint не изменяется.
func (s *Server) updateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeValidationError(w, "invalid request body")
		return
	}

	product, err := s.products.Get(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	product.Name = strings.TrimSpace(req.Name)
	product.Price = req.Price
	product.CategoryID = req.CategoryID
	if errs := product.Validate(); len(errs) > 0 {
		s.writeError(w, errors.Join(errs...))
		return
	}
	if err := s.products.Update(product); err != nil {
		s.writeError(w, err)
		return
	}

	updated, err := s.products.Get(product.ID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(updated))
}

func (s *Server) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if s.movements != nil {
		referenced, err := s.movements.HasMovements(id)
		if err != nil {
			s.writeError(w, err)
			return
		}
		if referenced {
			s.writeError(w, domain.ErrProductHasMovements)
			return
		}
	}

	if err := s.products.Delete(id); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) listProductMovements(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r)
	if err != nil {
		writeValidationError(w, err.Error())
		return
	}

	filter := domain.MovementFilter{ProductID: r.PathValue("id")}
	movements, total, err := s.movements.List(filter, page)
	if err != nil {
		s.writeError(w, err)
		return
	}

	items := make([]movementResponse, 0, len(movements))
	for _, movement := range movements {
		items = append(items, toMovementResponse(movement))
	}
	writeJSON(w, http.StatusOK, movementListResponse{
		Movements:  items,
		Total:      total,
		TotalPages: totalPages(total, page.Limit()),
		Page:       page.Number,
		PageSize:   page.Limit(),
	})
}

func parseProductQuery(r *http.Request) (domain.ProductFilter, domain.ProductSort, domain.Page, error) {
	query := r.URL.Query()

	filter := domain.ProductFilter{
		Name:         strings.TrimSpace(query.Get("name")),
		CategoryName: strings.TrimSpace(query.Get("category")),
	}
	if raw := query.Get("min_price"); raw != "" {
		value, err := decimal.NewFromString(raw)
		if err != nil {
			return domain.ProductFilter{}, domain.ProductSort{}, domain.Page{}, fmt.Errorf("invalid min_price %q", raw)
		}
		filter.MinPrice = &value
	}
	if raw := query.Get("max_price"); raw != "" {
		value, err := decimal.NewFromString(raw)
		if err != nil {
			return domain.ProductFilter{}, domain.ProductSort{}, domain.Page{}, fmt.Errorf("invalid max_price %q", raw)
		}
		filter.MaxPrice = &value
	}

	sort := domain.ProductSort{Field: domain.ProductSortByID}
	if raw := query.Get("sort"); raw != "" {
		field := domain.ProductSortField(strings.ToLower(raw))
		if !field.Valid() {
			return domain.ProductFilter{}, domain.ProductSort{}, domain.Page{}, fmt.Errorf("invalid sort field %q", raw)
		}
		sort.Field = field
	}
	switch strings.ToLower(query.Get("order")) {
	case "", "asc":
	case "desc":
		sort.Descending = true
	default:
		return domain.ProductFilter{}, domain.ProductSort{}, domain.Page{}, fmt.Errorf("invalid order %q", query.Get("order"))
	}

	page, err := parsePage(r)
	if err != nil {
		return domain.ProductFilter{}, domain.ProductSort{}, domain.Page{}, err
	}

	return filter, sort, page, nil
}

func parsePage(r *http.Request) (domain.Page, error) {
	page := domain.Page{Number: 1}
	query := r.URL.Query()

	if raw := query.Get("page"); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value < 1 {
			return domain.Page{}, fmt.Errorf("invalid page %q", raw)
		}
		page.Number = value
	}
	if raw := query.Get("page_size"); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value < 1 {
			return domain.Page{}, fmt.Errorf("invalid page_size %q", raw)
		}
		page.Size = value
	}

	return page, nil
}
