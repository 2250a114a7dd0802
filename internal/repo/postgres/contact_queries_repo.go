package postgres

import (
	"context"
	"time"

	"github.com/geocoder89/carebook/internal/domain/contact"
	"github.com/geocoder89/carebook/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ContactQueriesRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewContactQueriesRepo(pool *pgxpool.Pool, prom *observability.Prom) *ContactQueriesRepo {
	return &ContactQueriesRepo{pool: pool, prom: prom}
}

func (repo *ContactQueriesRepo) observe(op string, fn func() error) error {
	if repo.prom != nil {
		return repo.prom.ObserveDB(op, fn)
	}
	return fn()
}

func (repo *ContactQueriesRepo) Create(ctx context.Context, req contact.CreateQueryRequest) (contact.Query, error) {
	q := contact.NewFromCreateRequest(req)

	err := repo.observe("contact_queries.create", func() error {
		_, e := repo.pool.Exec(ctx, `
		INSERT INTO contact_queries (id, name, email, message, status, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
			q.ID, q.Name, q.Email, q.Message, string(q.Status), q.SubmittedAt)
		return e
	})
	if err != nil {
		return contact.Query{}, err
	}
	return q, nil
}

// List returns every query, newest first.
func (repo *ContactQueriesRepo) List(ctx context.Context) (items []contact.Query, err error) {
	var rows pgx.Rows

	err = repo.observe("contact_queries.list", func() error {
		rows, err = repo.pool.Query(ctx, `
		SELECT id, name, email, message, status, submitted_at, updated_at
		FROM contact_queries
		ORDER BY submitted_at DESC, id DESC`)
		return err
	})
	if err != nil {
		return
	}
	defer rows.Close()

	items = make([]contact.Query, 0)
	for rows.Next() {
		var q contact.Query
		var status string
		if e := rows.Scan(&q.ID, &q.Name, &q.Email, &q.Message, &status, &q.SubmittedAt, &q.UpdatedAt); e != nil {
			err = e
			return
		}
		q.Status = contact.Status(status)
		items = append(items, q)
	}

	err = rows.Err()
	return
}

func (repo *ContactQueriesRepo) UpdateStatus(ctx context.Context, id string, status contact.Status, at time.Time) error {
	var affected int64

	err := repo.observe("contact_queries.update_status", func() error {
		tag, e := repo.pool.Exec(ctx, `
		UPDATE contact_queries SET status = $2, updated_at = $3 WHERE id = $1`,
			id, string(status), at)
		affected = tag.RowsAffected()
		return e
	})
	if err != nil {
		return err
	}

	if affected == 0 {
		return contact.ErrNotFound
	}
	return nil
}
