package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nordscene/boxoffice/internal/domain"
	"github.com/nordscene/boxoffice/internal/repository"
	redisrepo "github.com/nordscene/boxoffice/internal/repository/redis"
)

// Verifier asks the processor whether a session is paid. The processor
// is the source of truth; client-asserted success is never enough.
type Verifier interface {
	SessionPaid(ctx context.Context, sessionID string) (bool, error)
}

// Catalog resolves target titles for confirmation emails.
type Catalog interface {
	GetCourse(ctx context.Context, id int64) (*domain.CourseInstance, error)
	GetShow(ctx context.Context, id int64) (*domain.Show, error)
}

// Notifier sends the post-payment confirmations, best-effort.
type Notifier interface {
	SendBookingConfirmation(ctx context.Context, buyer domain.Buyer, courseTitle string)
	SendTicketConfirmation(ctx context.Context, purchase domain.Purchase, showTitle string)
}

// Service settles a paid checkout session exactly once. Both delivery
// paths land here: the processor webhook and the fallback verify the
// success page triggers when the webhook is late or lost.
type Service struct {
	verifier     Verifier
	purchases    repository.PurchaseStore
	participants repository.ParticipantStore
	waitlist     repository.WaitlistStore
	catalog      Catalog
	notify       Notifier
	cache        *redisrepo.Cache
	logger       *slog.Logger
}

func New(
	verifier Verifier,
	purchases repository.PurchaseStore,
	participants repository.ParticipantStore,
	waitlist repository.WaitlistStore,
	catalog Catalog,
	notify Notifier,
	cache *redisrepo.Cache,
	logger *slog.Logger,
) *Service {
	return &Service{
		verifier:     verifier,
		purchases:    purchases,
		participants: participants,
		waitlist:     waitlist,
		catalog:      catalog,
		notify:       notify,
		cache:        cache,
		logger:       logger,
	}
}

// Summary reports what a reconcile call found and did.
type Summary struct {
	SessionID        string
	Confirmed        bool
	AlreadyProcessed bool
	Kind             domain.TargetKind
	TargetID         int64
	Buyer            domain.Buyer
	AmountCents      int
	TicketCode       string
}

// Reconcile verifies payment with the processor and applies the durable
// consequences of a confirmed purchase exactly once. Safe to call any
// number of times per session, concurrently: the conditional
// pending→paid update in the purchase store elects the single caller
// that performs side effects. The status write is never retried; a
// transient failure there surfaces to the caller, which may invoke
// Reconcile again from scratch.
//
// Returns:
//   - reconcile.ErrUpstream when the processor cannot be reached.
//   - reconcile.ErrUnknownSession when no purchase matches the session.
func (s *Service) Reconcile(ctx context.Context, sessionID string) (*Summary, error) {
	const op = "service.reconcile.Reconcile"

	paid, err := s.verifier.SessionPaid(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%s:%w: %w", op, ErrUpstream, err)
	}

	if !paid {
		// Payment still in flight or abandoned. Nothing is mutated, the
		// caller may poll again.
		return &Summary{SessionID: sessionID}, nil
	}

	purchase, err := s.purchases.GetBySession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrUnknownSession) {
			s.logger.Error("payment confirmed for unknown session, manual reconciliation required",
				"session_id", sessionID,
			)
			return nil, fmt.Errorf("%s:%w", op, ErrUnknownSession)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if purchase.Status == domain.PaymentPaid {
		return summarize(purchase, true), nil
	}

	won, err := s.purchases.MarkPaid(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if !won {
		// A concurrent reconcile got there first and owns the side effects.
		return summarize(purchase, true), nil
	}

	s.applySideEffects(ctx, purchase)

	return summarize(purchase, false), nil
}

// applySideEffects performs the one-time consequences of a confirmed
// purchase. Failures past the status transition are logged, not rolled
// back: the payment is real and the booking stands.
func (s *Service) applySideEffects(ctx context.Context, purchase *domain.Purchase) {
	target := purchase.Target()

	if !s.isDuplicate(ctx, target, purchase.Buyer.Email) {
		p := domain.Participant{
			Name:       purchase.Buyer.Name,
			Email:      purchase.Buyer.Email,
			Phone:      purchase.Buyer.Phone,
			Street:     purchase.Buyer.Street,
			PostalCode: purchase.Buyer.PostalCode,
			City:       purchase.Buyer.City,
			Message:    purchase.Buyer.Message,
		}

		if err := s.participants.Insert(ctx, target, p); err != nil {
			// Unique-constraint backstop: a racing direct booking won the
			// seat. The purchase stays paid for the audit trail.
			s.logger.Error("participant insert after payment failed",
				"session_id", purchase.SessionID,
				"target_id", target.ID,
				"error", err,
			)
		}
	}

	if purchase.OfferID != nil {
		if err := s.waitlist.MarkOfferPaid(ctx, *purchase.OfferID); err != nil {
			s.logger.Warn("could not mark waitlist offer paid",
				"offer_id", *purchase.OfferID,
				"error", err,
			)
		}
		if err := s.waitlist.Remove(ctx, purchase.TargetID, purchase.Buyer.Email); err != nil {
			s.logger.Warn("could not remove settled waitlist entry",
				"course_id", purchase.TargetID,
				"email", purchase.Buyer.Email,
				"error", err,
			)
		}
	}

	if s.cache != nil && purchase.Kind == domain.TargetCourse {
		_ = s.cache.InvalidateCourse(ctx, purchase.TargetID, "")
	}

	s.sendConfirmation(ctx, purchase)
}

func (s *Service) isDuplicate(ctx context.Context, target domain.Target, email string) bool {
	found, err := s.participants.Exists(ctx, target, email)
	if err != nil {
		s.logger.Warn("duplicate check failed during reconcile, inserting anyway",
			"target_id", target.ID,
			"error", err,
		)
		return false
	}
	return found
}

func (s *Service) sendConfirmation(ctx context.Context, purchase *domain.Purchase) {
	switch purchase.Kind {
	case domain.TargetCourse:
		title := fmt.Sprintf("course #%d", purchase.TargetID)
		if course, err := s.catalog.GetCourse(ctx, purchase.TargetID); err == nil {
			title = course.Title
		}
		s.notify.SendBookingConfirmation(ctx, purchase.Buyer, title)
	case domain.TargetShow:
		title := fmt.Sprintf("show #%d", purchase.TargetID)
		if show, err := s.catalog.GetShow(ctx, purchase.TargetID); err == nil {
			title = show.Title
		}
		s.notify.SendTicketConfirmation(ctx, *purchase, title)
	}
}

func summarize(p *domain.Purchase, already bool) *Summary {
	return &Summary{
		SessionID:        p.SessionID,
		Confirmed:        true,
		AlreadyProcessed: already,
		Kind:             p.Kind,
		TargetID:         p.TargetID,
		Buyer:            p.Buyer,
		AmountCents:      p.AmountCents,
		TicketCode:       p.TicketCode,
	}
}
