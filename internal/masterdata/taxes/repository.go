package taxes

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
	List(ctx context.Context, filters mdshared.ListFilters) ([]Tax, int, error)
	Get(ctx context.Context, id int64) (Tax, error)
	Create(ctx context.Context, tax Tax) (Tax, error)
	Update(ctx context.Context, id int64, tax Tax) (Tax, error)
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

var sortColumns = map[string]string{
	"id":         "id",
	"name":       "tax_name",
	"percentage": "tax_percentage",
}

// List uses a dynamic query due to filter complexity
func (r *repository) List(ctx context.Context, filters mdshared.ListFilters) ([]Tax, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	if filters.Search != "" {
		args = append(args, mdshared.SearchPattern(filters.Search))
		where += ` AND tax_name ILIKE $1`
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM taxes`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count taxes: %w", err)
	}

	query := `SELECT id, tax_name, tax_percentage, created_at FROM taxes` + where +
		` ORDER BY ` + mdshared.SortClause(filters.SortBy, filters.SortDir, sortColumns, "tax_name") +
		` LIMIT $` + strconv.Itoa(len(args)+1) + ` OFFSET $` + strconv.Itoa(len(args)+2)
	args = append(args, filters.Limit, filters.Offset())

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list taxes: %w", err)
	}
	defer rows.Close()

	taxes := []Tax{}
	for rows.Next() {
		var t Tax
		if err := rows.Scan(&t.ID, &t.TaxName, &t.TaxPercentage, &t.CreatedAt); err != nil {
			return nil, 0, err
		}
		taxes = append(taxes, t)
	}
	return taxes, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Tax, error) {
	var t Tax
	err := r.pool.QueryRow(ctx, `SELECT id, tax_name, tax_percentage, created_at FROM taxes WHERE id = $1`, id).
		Scan(&t.ID, &t.TaxName, &t.TaxPercentage, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Tax{}, fmt.Errorf("%w: tax %d", shared.ErrNotFound, id)
	}
	return t, err
}

func (r *repository) Create(ctx context.Context, tax Tax) (Tax, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO taxes (tax_name, tax_percentage) VALUES ($1, $2)
RETURNING id, created_at`, tax.TaxName, tax.TaxPercentage).Scan(&tax.ID, &tax.CreatedAt)
	if err != nil {
		return Tax{}, fmt.Errorf("insert tax: %w", err)
	}
	return tax, nil
}

func (r *repository) Update(ctx context.Context, id int64, tax Tax) (Tax, error) {
	err := r.pool.QueryRow(ctx, `UPDATE taxes SET tax_name = $2, tax_percentage = $3 WHERE id = $1
RETURNING id, created_at`, id, tax.TaxName, tax.TaxPercentage).Scan(&tax.ID, &tax.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Tax{}, fmt.Errorf("%w: tax %d", shared.ErrNotFound, id)
	}
	if err != nil {
		return Tax{}, fmt.Errorf("update tax: %w", err)
	}
	return tax, nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM taxes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete tax: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: tax %d", shared.ErrNotFound, id)
	}
	return nil
}
