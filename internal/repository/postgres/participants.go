package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nordscene/boxoffice/internal/domain"
	"github.com/nordscene/boxoffice/internal/repository"
)

// sharedParticipantTable backs every target that has no dedicated
// physical table assigned.
const sharedParticipantTable = "participants"

// ParticipantRepo routes participant-set operations to the target's
// dedicated table when one is configured, or to the shared table keyed
// by (kind, target id) otherwise. Dedicated tables carry the same
// columns minus the target key.
type ParticipantRepo struct {
	pool  *pgxpool.Pool
	store *Store
	db    DB
}

func (r *ParticipantRepo) With(db DB) *ParticipantRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *ParticipantRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// dedicated reports whether the target routes to its own table.
func dedicated(t domain.Target) bool {
	return t.Table != "" && safeIdent(t.Table)
}

func (r *ParticipantRepo) Insert(ctx context.Context, t domain.Target, p domain.Participant) error {
	const op = "postgres.ParticipantRepo.Insert"

	email := domain.NormalizeEmail(p.Email)

	var err error
	if dedicated(t) {
		_, err = r.handle().Exec(ctx,
			fmt.Sprintf(`INSERT INTO %s
				(name, email, phone, street, postal_code, city, message)
			 VALUES ($1,$2,$3,$4,$5,$6,$7)`, t.Table),
			p.Name, email, p.Phone, p.Street, p.PostalCode, p.City, p.Message,
		)
	} else {
		_, err = r.handle().Exec(ctx,
			`INSERT INTO `+sharedParticipantTable+`
				(target_kind, target_id, name, email, phone, street, postal_code, city, message)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			t.Kind, t.ID, p.Name, email, p.Phone, p.Street, p.PostalCode, p.City, p.Message,
		)
	}
	if err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

func (r *ParticipantRepo) Exists(ctx context.Context, t domain.Target, email string) (bool, error) {
	const op = "postgres.ParticipantRepo.Exists"

	email = domain.NormalizeEmail(email)

	var found bool
	var err error
	if dedicated(t) {
		err = r.handle().QueryRow(ctx,
			fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE email = $1)`, t.Table),
			email,
		).Scan(&found)
	} else {
		err = r.handle().QueryRow(ctx,
			`SELECT EXISTS (
				SELECT 1 FROM `+sharedParticipantTable+`
				WHERE target_kind = $1 AND target_id = $2 AND email = $3)`,
			t.Kind, t.ID, email,
		).Scan(&found)
	}
	if err != nil {
		return false, wrapDBErr(op, err)
	}

	return found, nil
}

func (r *ParticipantRepo) Count(ctx context.Context, t domain.Target) (int, error) {
	const op = "postgres.ParticipantRepo.Count"

	var n int
	var err error
	if dedicated(t) {
		err = r.handle().QueryRow(ctx,
			fmt.Sprintf(`SELECT count(*) FROM %s`, t.Table),
		).Scan(&n)
	} else {
		err = r.handle().QueryRow(ctx,
			`SELECT count(*) FROM `+sharedParticipantTable+`
			 WHERE target_kind = $1 AND target_id = $2`,
			t.Kind, t.ID,
		).Scan(&n)
	}
	if err != nil {
		return 0, wrapDBErr(op, err)
	}

	return n, nil
}

func (r *ParticipantRepo) Get(ctx context.Context, t domain.Target, email string) (*domain.Participant, error) {
	const op = "postgres.ParticipantRepo.Get"

	email = domain.NormalizeEmail(email)

	var row pgx.Row
	if dedicated(t) {
		row = r.handle().QueryRow(ctx,
			fmt.Sprintf(`SELECT id, name, email, phone, street, postal_code, city,
				message, confirmation_resends, created_at
			 FROM %s WHERE email = $1`, t.Table),
			email,
		)
	} else {
		row = r.handle().QueryRow(ctx,
			`SELECT id, name, email, phone, street, postal_code, city,
				message, confirmation_resends, created_at
			 FROM `+sharedParticipantTable+`
			 WHERE target_kind = $1 AND target_id = $2 AND email = $3`,
			t.Kind, t.ID, email,
		)
	}

	var p domain.Participant
	if err := row.Scan(
		&p.ID, &p.Name, &p.Email, &p.Phone, &p.Street, &p.PostalCode,
		&p.City, &p.Message, &p.ConfirmationResends, &p.CreatedAt,
	); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &p, nil
}

func (r *ParticipantRepo) List(ctx context.Context, t domain.Target) ([]domain.Participant, error) {
	const op = "postgres.ParticipantRepo.List"

	var rows pgx.Rows
	var err error
	if dedicated(t) {
		rows, err = r.handle().Query(ctx,
			fmt.Sprintf(`SELECT id, name, email, phone, street, postal_code, city,
				message, confirmation_resends, created_at
			 FROM %s ORDER BY created_at`, t.Table),
		)
	} else {
		rows, err = r.handle().Query(ctx,
			`SELECT id, name, email, phone, street, postal_code, city,
				message, confirmation_resends, created_at
			 FROM `+sharedParticipantTable+`
			 WHERE target_kind = $1 AND target_id = $2
			 ORDER BY created_at`,
			t.Kind, t.ID,
		)
	}
	if err != nil {
		return nil, wrapDBErr(op, err)
	}
	defer rows.Close()

	var out []domain.Participant
	for rows.Next() {
		var p domain.Participant
		if err := rows.Scan(
			&p.ID, &p.Name, &p.Email, &p.Phone, &p.Street, &p.PostalCode,
			&p.City, &p.Message, &p.ConfirmationResends, &p.CreatedAt,
		); err != nil {
			return nil, wrapDBErr(op, err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

func (r *ParticipantRepo) Delete(ctx context.Context, t domain.Target, email string) error {
	const op = "postgres.ParticipantRepo.Delete"

	email = domain.NormalizeEmail(email)

	var tag pgconn.CommandTag
	var err error
	if dedicated(t) {
		tag, err = r.handle().Exec(ctx,
			fmt.Sprintf(`DELETE FROM %s WHERE email = $1`, t.Table), email)
	} else {
		tag, err = r.handle().Exec(ctx,
			`DELETE FROM `+sharedParticipantTable+`
			 WHERE target_kind = $1 AND target_id = $2 AND email = $3`,
			t.Kind, t.ID, email)
	}
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return nil
}

// Move transfers a participant between two targets in one transaction.
// The unique constraint on the destination rejects a move onto an email
// that already holds a seat there.
func (r *ParticipantRepo) Move(ctx context.Context, from, to domain.Target, email string) error {
	const op = "postgres.ParticipantRepo.Move"

	err := r.store.RunTx(ctx, func(ctx context.Context, tx DB) error {
		txRepo := r.With(tx)

		p, err := txRepo.Get(ctx, from, email)
		if err != nil {
			return err
		}

		if err := txRepo.Delete(ctx, from, email); err != nil {
			return err
		}

		return txRepo.Insert(ctx, to, *p)
	})
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

func (r *ParticipantRepo) IncrementResendCount(ctx context.Context, t domain.Target, email string) (int, error) {
	const op = "postgres.ParticipantRepo.IncrementResendCount"

	email = domain.NormalizeEmail(email)

	var n int
	var err error
	if dedicated(t) {
		err = r.handle().QueryRow(ctx,
			fmt.Sprintf(`UPDATE %s
				SET confirmation_resends = confirmation_resends + 1
			 WHERE email = $1
			 RETURNING confirmation_resends`, t.Table),
			email,
		).Scan(&n)
	} else {
		err = r.handle().QueryRow(ctx,
			`UPDATE `+sharedParticipantTable+`
				SET confirmation_resends = confirmation_resends + 1
			 WHERE target_kind = $1 AND target_id = $2 AND email = $3
			 RETURNING confirmation_resends`,
			t.Kind, t.ID, email,
		).Scan(&n)
	}
	if err != nil {
		return 0, wrapDBErr(op, err)
	}

	return n, nil
}
