package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestProduct_Validate(t *testing.T) {
	product := Product{
		ID:         "product-1",
		Name:       "Laptop",
		Price:      decimal.NewFromInt(1200),
		CategoryID: "category-1",
		Quantity:   5,
	}
	if errs := product.Validate(); len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}

	product.Name = "  "
	product.Price = decimal.NewFromInt(-1)
	product.CategoryID = ""
	product.Quantity = -3

	errs := product.Validate()
	if len(errs) != 4 {
		t.Fatalf("expected 4 errors, got %d: %v", len(errs), errs)
	}
}

func TestPage_Normalization(t *testing.T) {
	p := Page{}
	if p.Limit() != DefaultPageSize {
		t.Errorf("expected default limit %d, got %d", DefaultPageSize, p.Limit())
	}
	if p.Offset() != 0 {
		t.Errorf("expected zero offset, got %d", p.Offset())
	}

	p = Page{Number: 3, Size: 20}
	if p.Offset() != 40 {
		t.Errorf("expected offset 40, got %d", p.Offset())
	}
}

func TestProductSortField_Valid(t *testing.T) {
	for _, f := range []ProductSortField{ProductSortByID, ProductSortByName, ProductSortByPrice, ProductSortByQuantity} {
		if !f.Valid() {
			t.Errorf("expected %s to be valid", f)
		}
	}
	if ProductSortField("color").Valid() {
		t.Error("unknown sort field must be invalid")
	}
}
