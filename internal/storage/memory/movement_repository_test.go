package memory_test

import (
	"errors"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/ims/internal/domain"
	"github.com/vladislavdragonenkov/ims/internal/storage/memory"
)

func seedMovements(t *testing.T) domain.MovementRepository {
	t.Helper()

	repo := memory.NewMovementRepository()
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	seed := []domain.StockMovement{
		{ID: "m-1", ProductID: "p-laptop", ActorID: "u-1", Type: domain.MovementSale, Quantity: 5, QuantityBefore: 20, QuantityAfter: 15, OccurredAt: base},
		{ID: "m-2", ProductID: "p-laptop", ActorID: "u-2", Type: domain.MovementReturn, Quantity: 2, QuantityBefore: 15, QuantityAfter: 17, OccurredAt: base.Add(time.Hour)},
		{ID: "m-3", ProductID: "p-phone", ActorID: "u-1", Type: domain.MovementTransfer, Quantity: 10, QuantityBefore: 0, QuantityAfter: 10, OccurredAt: base.Add(48 * time.Hour)},
	}
	for _, m := range seed {
		if err := repo.Insert(m); err != nil {
			t.Fatalf("insert %s: %v", m.ID, err)
		}
	}
	return repo
}

func TestMovementRepository_ListNewestFirst(t *testing.T) {
	repo := seedMovements(t)

	movements, total, err := repo.List(domain.MovementFilter{}, domain.Page{Number: 1, Size: 10})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 3 || len(movements) != 3 {
		t.Fatalf("expected 3 movements, got total=%d len=%d", total, len(movements))
	}
	if movements[0].ID != "m-3" || movements[2].ID != "m-1" {
		t.Fatalf("expected newest first, got %s..%s", movements[0].ID, movements[2].ID)
	}
}

func TestMovementRepository_Filters(t *testing.T) {
	repo := seedMovements(t)

	movements, total, err := repo.List(domain.MovementFilter{ProductID: "p-laptop"}, domain.Page{})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 2 {
		t.Fatalf("expected 2 laptop movements, got %d", total)
	}
	for _, m := range movements {
		if m.ProductID != "p-laptop" {
			t.Fatalf("unexpected product %s", m.ProductID)
		}
	}

	_, total, err = repo.List(domain.MovementFilter{Type: domain.MovementSale}, domain.Page{})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 1 {
		t.Fatalf("expected 1 sale, got %d", total)
	}

	_, total, err = repo.List(domain.MovementFilter{ActorID: "u-1"}, domain.Page{})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 2 {
		t.Fatalf("expected 2 movements by u-1, got %d", total)
	}
}

func TestMovementRepository_DateRangeInclusiveEnd(t *testing.T) {
	repo := seedMovements(t)

	from := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	// Конец периода включает весь день 10 марта: обе записи этого дня попадают.
	_, total, err := repo.List(domain.MovementFilter{From: &from, To: &to}, domain.Page{})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 2 {
		t.Fatalf("expected 2 movements on 2026-03-10, got %d", total)
	}
}

func TestMovementRepository_ExistsForProduct(t *testing.T) {
	repo := seedMovements(t)

	ok, err := repo.ExistsForProduct("p-laptop")
	if err != nil {
		t.Fatalf("exists failed: %v", err)
	}
	if !ok {
		t.Fatal("expected movements for p-laptop")
	}

	ok, err = repo.ExistsForProduct("p-unknown")
	if err != nil {
		t.Fatalf("exists failed: %v", err)
	}
	if ok {
		t.Fatal("expected no movements for unknown product")
	}
}

func TestMovementRepository_Get(t *testing.T) {
	repo := seedMovements(t)

	movement, err := repo.Get("m-2")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if movement.Type != domain.MovementReturn || movement.QuantityAfter != 17 {
		t.Fatalf("unexpected movement: %+v", movement)
	}

	if _, err := repo.Get("missing"); !errors.Is(err, domain.ErrMovementNotFound) {
		t.Fatalf("expected ErrMovementNotFound, got %v", err)
	}
}
