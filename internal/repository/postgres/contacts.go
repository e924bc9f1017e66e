package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nordscene/boxoffice/internal/domain"
	"github.com/nordscene/boxoffice/internal/repository"
)

type ContactRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *ContactRepo) With(db DB) *ContactRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *ContactRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

func (r *ContactRepo) Subscribe(ctx context.Context, c *domain.NewsletterContact) error {
	const op = "postgres.ContactRepo.Subscribe"

	c.Email = domain.NormalizeEmail(c.Email)

	err := r.handle().QueryRow(ctx,
		`INSERT INTO newsletter_contacts (email, name)
		 VALUES ($1, $2)
		 RETURNING id, subscribed_at`,
		c.Email, c.Name,
	).Scan(&c.ID, &c.SubscribedAt)
	if err != nil {
		if wrapped := wrapDBErr(op, err); errors.Is(wrapped, repository.ErrConflict) {
			return fmt.Errorf("%s:%w", op, repository.ErrContactExists)
		}
		return wrapDBErr(op, err)
	}

	return nil
}

func (r *ContactRepo) List(ctx context.Context, limit, offset int) ([]domain.NewsletterContact, error) {
	const op = "postgres.ContactRepo.List"

	rows, err := r.handle().Query(ctx,
		`SELECT id, email, name, subscribed_at
		 FROM newsletter_contacts
		 ORDER BY subscribed_at DESC
		 LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}
	defer rows.Close()

	var out []domain.NewsletterContact
	for rows.Next() {
		var c domain.NewsletterContact
		if err := rows.Scan(&c.ID, &c.Email, &c.Name, &c.SubscribedAt); err != nil {
			return nil, wrapDBErr(op, err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

func (r *ContactRepo) Remove(ctx context.Context, email string) error {
	const op = "postgres.ContactRepo.Remove"

	tag, err := r.handle().Exec(ctx,
		`DELETE FROM newsletter_contacts WHERE email = $1`,
		domain.NormalizeEmail(email),
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return nil
}
