package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nordscene/boxoffice/internal/domain"
	"github.com/nordscene/boxoffice/internal/repository"
)

type CatalogRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *CatalogRepo) With(db DB) *CatalogRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *CatalogRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

const courseColumns = `id, slug, title, participant_table, max_participants,
	price_cents, discount_price_cents, active`

func (r *CatalogRepo) GetCourse(ctx context.Context, id int64) (*domain.CourseInstance, error) {
	const op = "postgres.CatalogRepo.GetCourse"
	return r.scanCourse(op, r.handle().QueryRow(ctx,
		`SELECT `+courseColumns+` FROM course_instances WHERE id = $1`, id))
}

func (r *CatalogRepo) GetCourseBySlug(ctx context.Context, slug string) (*domain.CourseInstance, error) {
	const op = "postgres.CatalogRepo.GetCourseBySlug"
	return r.scanCourse(op, r.handle().QueryRow(ctx,
		`SELECT `+courseColumns+` FROM course_instances WHERE slug = $1`, slug))
}

func (r *CatalogRepo) ListCourses(ctx context.Context, activeOnly bool) ([]domain.CourseInstance, error) {
	const op = "postgres.CatalogRepo.ListCourses"

	q := `SELECT ` + courseColumns + ` FROM course_instances`
	if activeOnly {
		q += ` WHERE active`
	}
	q += ` ORDER BY id`

	rows, err := r.handle().Query(ctx, q)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}
	defer rows.Close()

	var out []domain.CourseInstance
	for rows.Next() {
		var c domain.CourseInstance
		if err := rows.Scan(
			&c.ID, &c.Slug, &c.Title, &c.ParticipantTable, &c.MaxParticipants,
			&c.PriceCents, &c.DiscountPriceCents, &c.Active,
		); err != nil {
			return nil, wrapDBErr(op, err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

func (r *CatalogRepo) CreateCourse(ctx context.Context, c *domain.CourseInstance) error {
	const op = "postgres.CatalogRepo.CreateCourse"

	err := r.handle().QueryRow(ctx,
		`INSERT INTO course_instances
			(slug, title, participant_table, max_participants, price_cents,
			 discount_price_cents, active)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)
		 RETURNING id`,
		c.Slug, c.Title, c.ParticipantTable, c.MaxParticipants,
		c.PriceCents, c.DiscountPriceCents, c.Active,
	).Scan(&c.ID)
	if err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

func (r *CatalogRepo) UpdateCourse(ctx context.Context, c *domain.CourseInstance) error {
	const op = "postgres.CatalogRepo.UpdateCourse"

	tag, err := r.handle().Exec(ctx,
		`UPDATE course_instances
		 SET slug = $2, title = $3, participant_table = $4,
			 max_participants = $5, price_cents = $6,
			 discount_price_cents = $7, active = $8
		 WHERE id = $1`,
		c.ID, c.Slug, c.Title, c.ParticipantTable, c.MaxParticipants,
		c.PriceCents, c.DiscountPriceCents, c.Active,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return nil
}

const showColumns = `id, slug, title, max_tickets, price_cents,
	discount_price_cents, active`

func (r *CatalogRepo) GetShow(ctx context.Context, id int64) (*domain.Show, error) {
	const op = "postgres.CatalogRepo.GetShow"
	return r.scanShow(op, r.handle().QueryRow(ctx,
		`SELECT `+showColumns+` FROM shows WHERE id = $1`, id))
}

func (r *CatalogRepo) GetShowBySlug(ctx context.Context, slug string) (*domain.Show, error) {
	const op = "postgres.CatalogRepo.GetShowBySlug"
	return r.scanShow(op, r.handle().QueryRow(ctx,
		`SELECT `+showColumns+` FROM shows WHERE slug = $1`, slug))
}

func (r *CatalogRepo) ListShows(ctx context.Context, activeOnly bool) ([]domain.Show, error) {
	const op = "postgres.CatalogRepo.ListShows"

	q := `SELECT ` + showColumns + ` FROM shows`
	if activeOnly {
		q += ` WHERE active`
	}
	q += ` ORDER BY id`

	rows, err := r.handle().Query(ctx, q)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}
	defer rows.Close()

	var out []domain.Show
	for rows.Next() {
		var s domain.Show
		if err := rows.Scan(
			&s.ID, &s.Slug, &s.Title, &s.MaxTickets, &s.PriceCents,
			&s.DiscountPriceCents, &s.Active,
		); err != nil {
			return nil, wrapDBErr(op, err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

func (r *CatalogRepo) CreateShow(ctx context.Context, s *domain.Show) error {
	const op = "postgres.CatalogRepo.CreateShow"

	err := r.handle().QueryRow(ctx,
		`INSERT INTO shows
			(slug, title, max_tickets, price_cents, discount_price_cents, active)
		 VALUES ($1,$2,$3,$4,$5,$6)
		 RETURNING id`,
		s.Slug, s.Title, s.MaxTickets, s.PriceCents, s.DiscountPriceCents, s.Active,
	).Scan(&s.ID)
	if err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

func (r *CatalogRepo) UpdateShow(ctx context.Context, s *domain.Show) error {
	const op = "postgres.CatalogRepo.UpdateShow"

	tag, err := r.handle().Exec(ctx,
		`UPDATE shows
		 SET slug = $2, title = $3, max_tickets = $4, price_cents = $5,
			 discount_price_cents = $6, active = $7
		 WHERE id = $1`,
		s.ID, s.Slug, s.Title, s.MaxTickets, s.PriceCents,
		s.DiscountPriceCents, s.Active,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return nil
}

func (r *CatalogRepo) GetDiscountCode(ctx context.Context, code string) (*domain.DiscountCode, error) {
	const op = "postgres.CatalogRepo.GetDiscountCode"

	var d domain.DiscountCode
	err := r.handle().QueryRow(ctx,
		`SELECT id, code, discount_type, discount_amount, valid_from,
			valid_until, max_uses, used_count, active
		 FROM discount_codes WHERE code = $1`,
		normalizeCode(code),
	).Scan(&d.ID, &d.Code, &d.Type, &d.Amount, &d.ValidFrom,
		&d.ValidUntil, &d.MaxUses, &d.UsedCount, &d.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s:%w", op, repository.ErrCodeNotFound)
		}
		return nil, wrapDBErr(op, err)
	}

	return &d, nil
}

func (r *CatalogRepo) CreateDiscountCode(ctx context.Context, d *domain.DiscountCode) error {
	const op = "postgres.CatalogRepo.CreateDiscountCode"

	d.Code = normalizeCode(d.Code)

	err := r.handle().QueryRow(ctx,
		`INSERT INTO discount_codes
			(code, discount_type, discount_amount, valid_from, valid_until,
			 max_uses, active)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)
		 RETURNING id`,
		d.Code, d.Type, d.Amount, d.ValidFrom, d.ValidUntil, d.MaxUses, d.Active,
	).Scan(&d.ID)
	if err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

// IncrementCodeUsage bumps the usage counter, refusing to pass the cap.
// The guarded update keeps concurrent checkouts from overspending a code.
func (r *CatalogRepo) IncrementCodeUsage(ctx context.Context, code string) error {
	const op = "postgres.CatalogRepo.IncrementCodeUsage"

	tag, err := r.handle().Exec(ctx,
		`UPDATE discount_codes
		 SET used_count = used_count + 1
		 WHERE code = $1 AND (max_uses IS NULL OR used_count < max_uses)`,
		normalizeCode(code),
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrCodeExhausted)
	}

	return nil
}

func (r *CatalogRepo) DeactivateDiscountCode(ctx context.Context, code string) error {
	const op = "postgres.CatalogRepo.DeactivateDiscountCode"

	tag, err := r.handle().Exec(ctx,
		`UPDATE discount_codes SET active = false WHERE code = $1`,
		normalizeCode(code),
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrCodeNotFound)
	}

	return nil
}

func (r *CatalogRepo) scanCourse(op string, row pgx.Row) (*domain.CourseInstance, error) {
	var c domain.CourseInstance
	if err := row.Scan(
		&c.ID, &c.Slug, &c.Title, &c.ParticipantTable, &c.MaxParticipants,
		&c.PriceCents, &c.DiscountPriceCents, &c.Active,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s:%w", op, repository.ErrTargetNotFound)
		}
		return nil, wrapDBErr(op, err)
	}
	return &c, nil
}

func (r *CatalogRepo) scanShow(op string, row pgx.Row) (*domain.Show, error) {
	var s domain.Show
	if err := row.Scan(
		&s.ID, &s.Slug, &s.Title, &s.MaxTickets, &s.PriceCents,
		&s.DiscountPriceCents, &s.Active,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s:%w", op, repository.ErrTargetNotFound)
		}
		return nil, wrapDBErr(op, err)
	}
	return &s, nil
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
