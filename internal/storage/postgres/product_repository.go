package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vladislavdragonenkov/ims/internal/domain"
)

const (
	opTimeout = 5 * time.Second

	// Предел ожидания row-level блокировки товара в AdjustQuantity.
	adjustLockTimeout = "2000ms"
)

type productRepository struct {
	db *sql.DB
}

// NewProductRepository создаёт PostgreSQL-реализацию ProductRepository.
func NewProductRepository(store *Store) domain.ProductRepository {
	return &productRepository{db: store.DB()}
}

func (r *productRepository) Create(product domain.Product) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	now := time.Now().UTC()
	if product.CreatedAt.IsZero() {
		product.CreatedAt = now
	}
	if product.UpdatedAt.IsZero() {
		product.UpdatedAt = now
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO products (
			id, name, price, category_id, quantity, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7)
	`,
		product.ID, product.Name, product.Price, product.CategoryID,
		product.Quantity, product.CreatedAt, product.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrProductNameTaken
		}
		if isForeignKeyViolation(err) {
			return domain.ErrCategoryNotFound
		}
		return fmt.Errorf("insert product: %w", err)
	}

	return nil
}

func (r *productRepository) Get(id string) (domain.Product, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var product domain.Product
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, price, category_id, quantity, created_at, updated_at
		FROM products
		WHERE id = $1
	`, id).Scan(
		&product.ID, &product.Name, &product.Price, &product.CategoryID,
		&product.Quantity, &product.CreatedAt, &product.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, fmt.Errorf("select product: %w", err)
	}

	return product, nil
}

func (r *productRepository) List(filter domain.ProductFilter, sort domain.ProductSort, page domain.Page) ([]domain.Product, int, error) {
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

	if name := strings.TrimSpace(filter.Name); name != "" {
		appendArg("p.name ILIKE '%%' || $%d || '%%'", name)
	}
	if categoryName := strings.TrimSpace(filter.CategoryName); categoryName != "" {
		appendArg("LOWER(c.name) = LOWER($%d)", categoryName)
	}
	if filter.MinPrice != nil {
		appendArg("p.price >= $%d", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		appendArg("p.price <= $%d", *filter.MaxPrice)
	}

	query := `
		SELECT p.id, p.name, p.price, p.category_id, p.quantity, p.created_at, p.updated_at,
		       COUNT(*) OVER() AS total
		FROM products p
		JOIN categories c ON c.id = p.category_id
	`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY " + productOrderClause(sort)

	args = append(args, page.Limit())
	query += fmt.Sprintf(" LIMIT $%d", len(args))
	args = append(args, page.Offset())
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var (
		products []domain.Product
		total    int
	)
	for rows.Next() {
		var product domain.Product
		if err := rows.Scan(
			&product.ID, &product.Name, &product.Price, &product.CategoryID,
			&product.Quantity, &product.CreatedAt, &product.UpdatedAt, &total,
		); err != nil {
			return nil, 0, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate products: %w", err)
	}

	// Пустая страница за пределами выборки: total приходится добирать отдельно.
	if len(products) == 0 && page.Offset() > 0 {
		countQuery := `
			SELECT COUNT(*)
			FROM products p
			JOIN categories c ON c.id = p.category_id
		`
		countArgs := args[:len(args)-2]
		if len(conditions) > 0 {
			countQuery += " WHERE " + strings.Join(conditions, " AND ")
		}
		if err := r.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
			return nil, 0, fmt.Errorf("count products: %w", err)
		}
	}

	return products, total, nil
}

func (r *productRepository) Update(product domain.Product) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	// Quantity намеренно не обновляется: остаток меняет только Stock Ledger.
	res, err := r.db.ExecContext(ctx, `
		UPDATE products
		SET name = $1, price = $2, category_id = $3, updated_at = $4
		WHERE id = $5
	`,
		product.Name, product.Price, product.CategoryID, time.Now().UTC(), product.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrProductNameTaken
		}
		if isForeignKeyViolation(err) {
			return domain.ErrCategoryNotFound
		}
		return fmt.Errorf("update product: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("product rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrProductNotFound
	}

	return nil
}

func (r *productRepository) Delete(id string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			if referencedByOrderItems(err) {
				return domain.ErrProductInOrders
			}
			return domain.ErrProductHasMovements
		}
		return fmt.Errorf("delete product: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("product rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrProductNotFound
	}

	return nil
}

// AdjustQuantity атомарно применяет дельту к остатку: строка товара берётся
// под row-level блокировку, остаток никогда не уходит ниже нуля. Ожидание
// блокировки ограничено, по истечении возвращается domain.ErrLockTimeout.
func (r *productRepository) AdjustQuantity(id string, delta int64) (domain.Product, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Product{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%s'", adjustLockTimeout)); err != nil {
		return domain.Product{}, fmt.Errorf("set lock timeout: %w", err)
	}

	var product domain.Product
	err = tx.QueryRowContext(ctx, `
		SELECT id, name, price, category_id, quantity, created_at, updated_at
		FROM products
		WHERE id = $1
		FOR UPDATE
	`, id).Scan(
		&product.ID, &product.Name, &product.Price, &product.CategoryID,
		&product.Quantity, &product.CreatedAt, &product.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = domain.ErrProductNotFound
			return domain.Product{}, err
		}
		if isLockNotAvailable(err) {
			err = domain.ErrLockTimeout
			return domain.Product{}, err
		}
		return domain.Product{}, fmt.Errorf("lock product row: %w", err)
	}

	next := product.Quantity + delta
	if next < 0 {
		err = domain.ErrInsufficientStock
		return domain.Product{}, err
	}

	now := time.Now().UTC()
	if _, err = tx.ExecContext(ctx, `
		UPDATE products
		SET quantity = $1, updated_at = $2
		WHERE id = $3
	`, next, now, id); err != nil {
		return domain.Product{}, fmt.Errorf("update product quantity: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return domain.Product{}, fmt.Errorf("commit adjust quantity: %w", err)
	}

	product.Quantity = next
	product.UpdatedAt = now
	return product, nil
}

func productOrderClause(sort domain.ProductSort) string {
	column := "p.id"
	switch sort.Field {
	case domain.ProductSortByName:
		column = "LOWER(p.name)"
	case domain.ProductSortByPrice:
		column = "p.price"
	case domain.ProductSortByQuantity:
		column = "p.quantity"
	case domain.ProductSortByID:
		column = "p.id"
	}

	direction := "ASC"
	if sort.Descending {
		direction = "DESC"
	}

	return fmt.Sprintf("%s %s, p.id ASC", column, direction)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

// referencedByOrderItems отличает FK из позиций заказов от FK из журнала
// операций: на products ссылаются обе таблицы.
func referencedByOrderItems(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.ConstraintName == "order_items_product_id_fkey"
}

func isLockNotAvailable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "55P03"
}

var _ domain.ProductRepository = (*productRepository)(nil)
