package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nordscene/boxoffice/internal/domain"
	"github.com/nordscene/boxoffice/internal/repository"
)

type WaitlistRepo struct {
	pool  *pgxpool.Pool
	store *Store
	db    DB
}

func (r *WaitlistRepo) With(db DB) *WaitlistRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *WaitlistRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// Add appends a person to a course's waitlist, assigning the next
// position inside a transaction. A second entry for the same email is
// rejected with repository.ErrAlreadyWaiting.
func (r *WaitlistRepo) Add(ctx context.Context, e *domain.WaitlistEntry) error {
	const op = "postgres.WaitlistRepo.Add"

	e.Email = domain.NormalizeEmail(e.Email)

	insert := func(ctx context.Context, db DB) error {
		return db.QueryRow(ctx,
			`INSERT INTO waitlist_entries (course_id, name, email, message, position)
			 VALUES ($1, $2, $3, $4,
				(SELECT COALESCE(MAX(position), 0) + 1
				 FROM waitlist_entries WHERE course_id = $1))
			 RETURNING id, position, created_at`,
			e.CourseID, e.Name, e.Email, e.Message,
		).Scan(&e.ID, &e.Position, &e.CreatedAt)
	}

	var err error
	if r.db != nil {
		err = insert(ctx, r.db)
	} else {
		err = r.store.RunTx(ctx, insert)
	}
	if err != nil {
		if wrapped := wrapDBErr(op, err); errors.Is(wrapped, repository.ErrConflict) {
			return fmt.Errorf("%s:%w", op, repository.ErrAlreadyWaiting)
		}
		return wrapDBErr(op, err)
	}

	return nil
}

func (r *WaitlistRepo) Get(ctx context.Context, courseID int64, email string) (*domain.WaitlistEntry, error) {
	const op = "postgres.WaitlistRepo.Get"

	var e domain.WaitlistEntry
	err := r.handle().QueryRow(ctx,
		`SELECT id, course_id, name, email, message, position, created_at
		 FROM waitlist_entries
		 WHERE course_id = $1 AND email = $2`,
		courseID, domain.NormalizeEmail(email),
	).Scan(&e.ID, &e.CourseID, &e.Name, &e.Email, &e.Message, &e.Position, &e.CreatedAt)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &e, nil
}

func (r *WaitlistRepo) ListByCourse(ctx context.Context, courseID int64) ([]domain.WaitlistEntry, error) {
	const op = "postgres.WaitlistRepo.ListByCourse"

	rows, err := r.handle().Query(ctx,
		`SELECT id, course_id, name, email, message, position, created_at
		 FROM waitlist_entries
		 WHERE course_id = $1
		 ORDER BY position`,
		courseID,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}
	defer rows.Close()

	var out []domain.WaitlistEntry
	for rows.Next() {
		var e domain.WaitlistEntry
		if err := rows.Scan(
			&e.ID, &e.CourseID, &e.Name, &e.Email, &e.Message, &e.Position, &e.CreatedAt,
		); err != nil {
			return nil, wrapDBErr(op, err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

// Remove deletes an entry if present. Removing an entry that is already
// gone is not an error: both the promoter and the reconciler may try.
func (r *WaitlistRepo) Remove(ctx context.Context, courseID int64, email string) error {
	const op = "postgres.WaitlistRepo.Remove"

	_, err := r.handle().Exec(ctx,
		`DELETE FROM waitlist_entries WHERE course_id = $1 AND email = $2`,
		courseID, domain.NormalizeEmail(email),
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

func (r *WaitlistRepo) CreateOffer(ctx context.Context, o *domain.WaitlistOffer) error {
	const op = "postgres.WaitlistRepo.CreateOffer"

	if o.Status == "" {
		o.Status = domain.OfferPending
	}

	o.Email = domain.NormalizeEmail(o.Email)

	err := r.handle().QueryRow(ctx,
		`INSERT INTO waitlist_offers (course_id, email, session_id, status)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		o.CourseID, o.Email, o.SessionID, o.Status,
	).Scan(&o.ID, &o.CreatedAt)
	if err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

func (r *WaitlistRepo) AttachOfferSession(ctx context.Context, offerID int64, sessionID string) error {
	const op = "postgres.WaitlistRepo.AttachOfferSession"

	tag, err := r.handle().Exec(ctx,
		`UPDATE waitlist_offers SET session_id = $1 WHERE id = $2`,
		sessionID, offerID,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrOfferNotFound)
	}

	return nil
}

func (r *WaitlistRepo) MarkOfferPaid(ctx context.Context, offerID int64) error {
	const op = "postgres.WaitlistRepo.MarkOfferPaid"

	tag, err := r.handle().Exec(ctx,
		`UPDATE waitlist_offers SET status = $1 WHERE id = $2`,
		domain.OfferPaid, offerID,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrOfferNotFound)
	}

	return nil
}
