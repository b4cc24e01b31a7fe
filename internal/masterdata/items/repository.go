package items

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	mdshared "github.com/track-invoice/track-invoice/internal/masterdata/shared"
	"github.com/track-invoice/track-invoice/internal/shared"
)

type Repository interface {
	List(ctx context.Context, filters mdshared.ListFilters, extra Filters) ([]Item, int, error)
	Get(ctx context.Context, id int64) (Item, error)
	Create(ctx context.Context, item Item) (Item, error)
	Update(ctx context.Context, id int64, item Item) (Item, error)
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

var sortColumns = map[string]string{
	"id":       "id",
	"name":     "item_name",
	"category": "category",
	"price":    "default_price",
}

const itemColumns = `id, item_name, description, category, default_price, created_at`

func (r *repository) List(ctx context.Context, filters mdshared.ListFilters, extra Filters) ([]Item, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	if filters.Search != "" {
		args = append(args, mdshared.SearchPattern(filters.Search))
		n := strconv.Itoa(len(args))
		where += ` AND (item_name ILIKE $` + n + ` OR description ILIKE $` + n + `)`
	}
	if extra.Category != "" {
		args = append(args, extra.Category)
		where += ` AND category = $` + strconv.Itoa(len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM items`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count items: %w", err)
	}

	query := `SELECT ` + itemColumns + ` FROM items` + where +
		` ORDER BY ` + mdshared.SortClause(filters.SortBy, filters.SortDir, sortColumns, "item_name") +
		` LIMIT $` + strconv.Itoa(len(args)+1) + ` OFFSET $` + strconv.Itoa(len(args)+2)
	args = append(args, filters.Limit, filters.Offset())

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	out := []Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, item)
	}
	return out, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Item, error) {
	item, err := scanItem(r.pool.QueryRow(ctx, `SELECT `+itemColumns+` FROM items WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Item{}, fmt.Errorf("%w: item %d", shared.ErrNotFound, id)
	}
	return item, err
}

func (r *repository) Create(ctx context.Context, item Item) (Item, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO items (item_name, description, category, default_price)
VALUES ($1, $2, $3, $4) RETURNING `+itemColumns,
		item.ItemName, item.Description, item.Category, item.DefaultPrice)
	created, err := scanItem(row)
	if err != nil {
		return Item{}, fmt.Errorf("insert item: %w", err)
	}
	return created, nil
}

func (r *repository) Update(ctx context.Context, id int64, item Item) (Item, error) {
	row := r.pool.QueryRow(ctx, `UPDATE items SET item_name = $2, description = $3, category = $4, default_price = $5
WHERE id = $1 RETURNING `+itemColumns,
		id, item.ItemName, item.Description, item.Category, item.DefaultPrice)
	updated, err := scanItem(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Item{}, fmt.Errorf("%w: item %d", shared.ErrNotFound, id)
	}
	if err != nil {
		return Item{}, fmt.Errorf("update item: %w", err)
	}
	return updated, nil
}

// Delete removes the catalogue entry; quotation and invoice lines keep
// their copied description with item_id nulled.
func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: item %d", shared.ErrNotFound, id)
	}
	return nil
}

func scanItem(row pgx.Row) (Item, error) {
	var it Item
	err := row.Scan(&it.ID, &it.ItemName, &it.Description, &it.Category, &it.DefaultPrice, &it.CreatedAt)
	return it, err
}
