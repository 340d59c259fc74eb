package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vladislavdragonenkov/ims/internal/domain"
)

type movementRepository struct {
	db *sql.DB
}

// NewMovementRepository создаёт PostgreSQL-реализацию MovementRepository.
func NewMovementRepository(store *Store) domain.MovementRepository {
	return &movementRepository{db: store.DB()}
}

func (r *movementRepository) Insert(movement domain.StockMovement) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if movement.OccurredAt.IsZero() {
		movement.OccurredAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO stock_movements (
			id, product_id, actor_id, type, quantity, quantity_before, quantity_after, occurred_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`,
		movement.ID, movement.ProductID, movement.ActorID, string(movement.Type),
		movement.Quantity, movement.QuantityBefore, movement.QuantityAfter, movement.OccurredAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrProductNotFound
		}
		return fmt.Errorf("insert stock movement: %w", err)
	}

	return nil
}

func (r *movementRepository) Get(id string) (domain.StockMovement, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var (
		movement domain.StockMovement
		typeRaw  string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, product_id, actor_id, type, quantity, quantity_before, quantity_after, occurred_at
		FROM stock_movements
		WHERE id = $1
	`, id).Scan(
		&movement.ID, &movement.ProductID, &movement.ActorID, &typeRaw,
		&movement.Quantity, &movement.QuantityBefore, &movement.QuantityAfter, &movement.OccurredAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.StockMovement{}, domain.ErrMovementNotFound
		}
		return domain.StockMovement{}, fmt.Errorf("select stock movement: %w", err)
	}
	movement.Type = domain.MovementType(typeRaw)

	return movement, nil
}

func (r *movementRepository) List(filter domain.MovementFilter, page domain.Page) ([]domain.StockMovement, int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var (
		conditions []string
		args       []any
	)
	appendArg := func(condition string, value any) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(condition, len(args)))
	}

	if filter.ProductID != "" {
		appendArg("product_id = $%d", filter.ProductID)
	}
	if filter.ActorID != "" {
		appendArg("actor_id = $%d", filter.ActorID)
	}
	if filter.Type != "" {
		appendArg("type = $%d", string(filter.Type))
	}
	if filter.From != nil {
		appendArg("occurred_at >= $%d", *filter.From)
	}
	if filter.To != nil {
		// Конец периода включает весь день.
		endOfDay := filter.To.AddDate(0, 0, 1).Add(-time.Nanosecond)
		appendArg("occurred_at <= $%d", endOfDay)
	}

	query := `
		SELECT id, product_id, actor_id, type, quantity, quantity_before, quantity_after, occurred_at,
		       COUNT(*) OVER() AS total
		FROM stock_movements
	`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY occurred_at DESC, id DESC"

	args = append(args, page.Limit())
	query += fmt.Sprintf(" LIMIT $%d", len(args))
	args = append(args, page.Offset())
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list stock movements: %w", err)
	}
	defer rows.Close()

	var (
		movements []domain.StockMovement
		total     int
	)
	for rows.Next() {
		var (
			movement domain.StockMovement
			typeRaw  string
		)
		if err := rows.Scan(
			&movement.ID, &movement.ProductID, &movement.ActorID, &typeRaw,
			&movement.Quantity, &movement.QuantityBefore, &movement.QuantityAfter,
			&movement.OccurredAt, &total,
		); err != nil {
			return nil, 0, fmt.Errorf("scan stock movement: %w", err)
		}
		movement.Type = domain.MovementType(typeRaw)
		movements = append(movements, movement)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate stock movements: %w", err)
	}

	if len(movements) == 0 && page.Offset() > 0 {
		countQuery := `SELECT COUNT(*) FROM stock_movements`
		countArgs := args[:len(args)-2]
		if len(conditions) > 0 {
			countQuery += " WHERE " + strings.Join(conditions, " AND ")
		}
		if err := r.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
			return nil, 0, fmt.Errorf("count stock movements: %w", err)
		}
	}

	return movements, total, nil
}

func (r *movementRepository) ExistsForProduct(productID string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM stock_movements WHERE product_id = $1)
	`, productID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check stock movements for product: %w", err)
	}

	return exists, nil
}

var _ domain.MovementRepository = (*movementRepository)(nil)
