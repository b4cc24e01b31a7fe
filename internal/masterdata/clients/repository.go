package clients

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	mdshared "github.com/track-invoice/track-invoice/internal/masterdata/shared"
	"github.com/track-invoice/track-invoice/internal/platform/db"
	"github.com/track-invoice/track-invoice/internal/shared"
)

type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	List(ctx context.Context, filters mdshared.ListFilters) ([]Client, int, error)
	Get(ctx context.Context, id int64) (Client, error)
	GetForUpdate(ctx context.Context, id int64) (Client, error)
	FindByUserID(ctx context.Context, userID int64) (Client, error)
	Create(ctx context.Context, c Client) (Client, error)
	Update(ctx context.Context, c Client) error
	Delete(ctx context.Context, id int64) error
	CountReferences(ctx context.Context, id int64) (int, error)
	CreateUser(ctx context.Context, username, passwordHash string) (int64, error)
	UpdateUser(ctx context.Context, userID int64, username, passwordHash string) error
	DeleteUser(ctx context.Context, userID int64) error
	RecordAudit(ctx context.Context, log shared.AuditLog) error
}

type repository struct {
	db    db.DBTX
	pool  *pgxpool.Pool
	audit *shared.AuditLogger
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool, audit: shared.NewAuditLogger()}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool, audit: r.audit})
	})
}

var sortColumns = map[string]string{
	"id":      "c.id",
	"company": "c.company_name",
	"pic":     "c.pic_name",
	"created": "c.created_at",
}

const selectClient = `
SELECT c.id, c.company_name, c.pic_name, c.email, c.contact, c.address,
       c.user_id, COALESCE(u.username, ''), c.created_at
FROM clients c
LEFT JOIN users u ON u.id = c.user_id`

func (r *repository) List(ctx context.Context, filters mdshared.ListFilters) ([]Client, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	if filters.Search != "" {
		args = append(args, mdshared.SearchPattern(filters.Search))
		where += ` AND (c.company_name ILIKE $1 OR c.pic_name ILIKE $1 OR c.email ILIKE $1)`
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM clients c`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count clients: %w", err)
	}

	query := selectClient + where +
		` ORDER BY ` + mdshared.SortClause(filters.SortBy, filters.SortDir, sortColumns, "c.company_name") +
		` LIMIT $` + strconv.Itoa(len(args)+1) + ` OFFSET $` + strconv.Itoa(len(args)+2)
	args = append(args, filters.Limit, filters.Offset())

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list clients: %w", err)
	}
	defer rows.Close()

	out := []Client{}
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Client, error) {
	return r.getOne(ctx, selectClient+` WHERE c.id = $1`, id, "client")
}

func (r *repository) GetForUpdate(ctx context.Context, id int64) (Client, error) {
	return r.getOne(ctx, selectClient+` WHERE c.id = $1 FOR UPDATE OF c`, id, "client")
}

func (r *repository) FindByUserID(ctx context.Context, userID int64) (Client, error) {
	return r.getOne(ctx, selectClient+` WHERE c.user_id = $1`, userID, "client for user")
}

func (r *repository) getOne(ctx context.Context, query string, id int64, what string) (Client, error) {
	c, err := scanClient(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Client{}, fmt.Errorf("%w: %s %d", shared.ErrNotFound, what, id)
	}
	if err != nil {
		return Client{}, fmt.Errorf("get client: %w", err)
	}
	return c, nil
}

func (r *repository) Create(ctx context.Context, c Client) (Client, error) {
	err := r.db.QueryRow(ctx, `INSERT INTO clients (company_name, pic_name, email, contact, address, user_id)
VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, created_at`,
		c.CompanyName, c.PICName, c.Email, c.Contact, c.Address, c.UserID).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return Client{}, fmt.Errorf("insert client: %w", err)
	}
	return c, nil
}

func (r *repository) Update(ctx context.Context, c Client) error {
	tag, err := r.db.Exec(ctx, `UPDATE clients
SET company_name = $2, pic_name = $3, email = $4, contact = $5, address = $6, user_id = $7
WHERE id = $1`, c.ID, c.CompanyName, c.PICName, c.Email, c.Contact, c.Address, c.UserID)
	if err != nil {
		return fmt.Errorf("update client: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: client %d", shared.ErrNotFound, c.ID)
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM clients WHERE id = $1`, id)
	if db.IsCode(err, db.CodeForeignKeyViolation) {
		return fmt.Errorf("%w: client %d is still referenced", shared.ErrConflict, id)
	}
	if err != nil {
		return fmt.Errorf("delete client: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: client %d", shared.ErrNotFound, id)
	}
	return nil
}

func (r *repository) CountReferences(ctx context.Context, id int64) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT
  (SELECT COUNT(*) FROM quotations WHERE client_id = $1) +
  (SELECT COUNT(*) FROM invoices WHERE client_id = $1)`, id).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count client references: %w", err)
	}
	return n, nil
}

func (r *repository) CreateUser(ctx context.Context, username, passwordHash string) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO users (username, password_hash, role) VALUES ($1, $2, $3) RETURNING id`,
		username, passwordHash, shared.RoleClient).Scan(&id)
	if db.IsCode(err, db.CodeUniqueViolation) {
		return 0, fmt.Errorf("%w: username %q already taken", shared.ErrConflict, username)
	}
	if err != nil {
		return 0, fmt.Errorf("insert user: %w", err)
	}
	return id, nil
}

// UpdateUser renames the login and, when passwordHash is non-empty,
// replaces its password.
func (r *repository) UpdateUser(ctx context.Context, userID int64, username, passwordHash string) error {
	_, err := r.db.Exec(ctx, `UPDATE users
SET username = $2, password_hash = COALESCE(NULLIF($3, ''), password_hash)
WHERE id = $1`, userID, username, passwordHash)
	if db.IsCode(err, db.CodeUniqueViolation) {
		return fmt.Errorf("%w: username %q already taken", shared.ErrConflict, username)
	}
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

func (r *repository) DeleteUser(ctx context.Context, userID int64) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, userID); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

func (r *repository) RecordAudit(ctx context.Context, log shared.AuditLog) error {
	return r.audit.Record(ctx, r.db, log)
}

func scanClient(row pgx.Row) (Client, error) {
	var c Client
	err := row.Scan(&c.ID, &c.CompanyName, &c.PICName, &c.Email, &c.Contact, &c.Address,
		&c.UserID, &c.Username, &c.CreatedAt)
	return c, err
}
