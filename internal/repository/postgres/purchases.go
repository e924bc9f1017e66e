package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nordscene/boxoffice/internal/domain"
	"github.com/nordscene/boxoffice/internal/repository"
)

const purchaseColumns = `id, kind, target_id, participant_table,
	buyer_name, buyer_email, buyer_phone, buyer_street, buyer_postal_code,
	buyer_city, buyer_message, quantity, amount_cents, currency, session_id,
	status, offer_id, ticket_code, scanned_at, created_at, paid_at`

type PurchaseRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *PurchaseRepo) With(db DB) *PurchaseRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *PurchaseRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// Create persists a pending purchase tied to a checkout session. Rows are
// append-only; abandoned sessions simply stay pending.
func (r *PurchaseRepo) Create(ctx context.Context, p *domain.Purchase) error {
	const op = "postgres.PurchaseRepo.Create"

	if p.Status == "" {
		p.Status = domain.PaymentPending
	}

	err := r.handle().QueryRow(ctx,
		`INSERT INTO purchases (
			id, kind, target_id, participant_table,
			buyer_name, buyer_email, buyer_phone, buyer_street,
			buyer_postal_code, buyer_city, buyer_message,
			quantity, amount_cents, currency, session_id, status,
			offer_id, ticket_code)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
		 RETURNING created_at`,
		p.ID, p.Kind, p.TargetID, p.Table,
		p.Buyer.Name, domain.NormalizeEmail(p.Buyer.Email), p.Buyer.Phone,
		p.Buyer.Street, p.Buyer.PostalCode, p.Buyer.City, p.Buyer.Message,
		p.Quantity, p.AmountCents, p.Currency, p.SessionID, p.Status,
		p.OfferID, p.TicketCode,
	).Scan(&p.CreatedAt)
	if err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

func (r *PurchaseRepo) GetBySession(ctx context.Context, sessionID string) (*domain.Purchase, error) {
	const op = "postgres.PurchaseRepo.GetBySession"

	p, err := r.scanOne(ctx, `SELECT `+purchaseColumns+` FROM purchases WHERE session_id = $1`, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s:%w", op, repository.ErrUnknownSession)
		}
		return nil, wrapDBErr(op, err)
	}

	return p, nil
}

// MarkPaid performs the single pending→paid transition for a session and
// reports whether this call won it. The conditional update is the only
// concurrency arbiter: of any number of racing reconcilers, exactly one
// sees true here.
func (r *PurchaseRepo) MarkPaid(ctx context.Context, sessionID string) (bool, error) {
	const op = "postgres.PurchaseRepo.MarkPaid"

	tag, err := r.handle().Exec(ctx,
		`UPDATE purchases
		 SET status = $1, paid_at = now()
		 WHERE session_id = $2 AND status = $3`,
		domain.PaymentPaid, sessionID, domain.PaymentPending,
	)
	if err != nil {
		return false, wrapDBErr(op, err)
	}

	return tag.RowsAffected() == 1, nil
}

func (r *PurchaseRepo) GetByTicketCode(ctx context.Context, ticketCode string) (*domain.Purchase, error) {
	const op = "postgres.PurchaseRepo.GetByTicketCode"

	p, err := r.scanOne(ctx, `SELECT `+purchaseColumns+` FROM purchases WHERE ticket_code = $1`, ticketCode)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return p, nil
}

// MarkScanned marks a paid ticket as scanned exactly once. A second scan
// returns repository.ErrAlreadyScanned with the original purchase so the
// scanner UI can show who already entered and when.
func (r *PurchaseRepo) MarkScanned(ctx context.Context, ticketCode string) (*domain.Purchase, error) {
	const op = "postgres.PurchaseRepo.MarkScanned"

	p, err := r.scanOne(ctx,
		`UPDATE purchases
		 SET scanned_at = now()
		 WHERE ticket_code = $1 AND status = $2 AND scanned_at IS NULL
		 RETURNING `+purchaseColumns,
		ticketCode, domain.PaymentPaid,
	)
	if err == nil {
		return p, nil
	}

	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, wrapDBErr(op, err)
	}

	existing, lookupErr := r.GetByTicketCode(ctx, ticketCode)
	if lookupErr != nil {
		return nil, fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	if existing.ScannedAt != nil {
		return existing, fmt.Errorf("%s:%w", op, repository.ErrAlreadyScanned)
	}

	// Paid check failed: the ticket exists but was never paid for.
	return nil, fmt.Errorf("%s:%w", op, repository.ErrNotFound)
}

func (r *PurchaseRepo) ListByStatus(
	ctx context.Context,
	status domain.PaymentStatus,
	limit, offset int,
) ([]domain.Purchase, error) {
	const op = "postgres.PurchaseRepo.ListByStatus"

	rows, err := r.handle().Query(ctx,
		`SELECT `+purchaseColumns+`
		 FROM purchases
		 WHERE status = $1
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`,
		status, limit, offset,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}
	defer rows.Close()

	var out []domain.Purchase
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, wrapDBErr(op, err)
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

func (r *PurchaseRepo) scanOne(ctx context.Context, sql string, args ...any) (*domain.Purchase, error) {
	return scanPurchase(r.handle().QueryRow(ctx, sql, args...))
}

func scanPurchase(row pgx.Row) (*domain.Purchase, error) {
	var p domain.Purchase
	var paidAt, scannedAt *time.Time

	err := row.Scan(
		&p.ID, &p.Kind, &p.TargetID, &p.Table,
		&p.Buyer.Name, &p.Buyer.Email, &p.Buyer.Phone, &p.Buyer.Street,
		&p.Buyer.PostalCode, &p.Buyer.City, &p.Buyer.Message,
		&p.Quantity, &p.AmountCents, &p.Currency, &p.SessionID,
		&p.Status, &p.OfferID, &p.TicketCode, &scannedAt, &p.CreatedAt, &paidAt,
	)
	if err != nil {
		return nil, err
	}

	p.PaidAt = paidAt
	p.ScannedAt = scannedAt

	return &p, nil
}
