package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/nordscene/boxoffice/internal/domain"
	"github.com/nordscene/boxoffice/internal/payment"
	"github.com/nordscene/boxoffice/internal/repository"
)

// SessionCreator is the processor capability the orchestrator needs.
type SessionCreator interface {
	CreateSession(ctx context.Context, req payment.SessionRequest) (*payment.Session, error)
}

// Catalog is the slice of the catalog the checkout flow reads: show
// lookups and discount codes.
type Catalog interface {
	GetShow(ctx context.Context, id int64) (*domain.Show, error)
	GetDiscountCode(ctx context.Context, code string) (*domain.DiscountCode, error)
	IncrementCodeUsage(ctx context.Context, code string) error
}

type Config struct {
	Currency string
	// SuccessURL should contain the processor's session-id placeholder so
	// the success page can drive the fallback verify.
	SuccessURL string
	CancelURL  string
}

// Service creates hosted checkout sessions and the pending purchase rows
// tied to them. It never touches participants or waitlists; those are
// reconciliation side effects.
type Service struct {
	sessions  SessionCreator
	purchases repository.PurchaseStore
	catalog   Catalog
	logger    *slog.Logger
	cfg       Config
	now       func() time.Time
}

func New(
	sessions SessionCreator,
	purchases repository.PurchaseStore,
	catalog Catalog,
	logger *slog.Logger,
	cfg Config,
) *Service {
	if cfg.Currency == "" {
		cfg.Currency = "nok"
	}

	return &Service{
		sessions:  sessions,
		purchases: purchases,
		catalog:   catalog,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Result hands the caller what it needs to send the buyer to the hosted
// payment page.
type Result struct {
	SessionID   string
	RedirectURL string
}

// CreateShowCheckout starts a ticket purchase: optional discount code,
// session creation, pending purchase persisted against the session id.
//
// Returns:
//   - checkout.ErrShowNotFound / checkout.ErrShowInactive on bad targets.
//   - checkout.ErrInvalidQuantity when quantity is not positive.
//   - checkout.ErrInvalidCode when the promo code is unusable.
//   - checkout.ErrProcessor when the processor call fails.
func (s *Service) CreateShowCheckout(
	ctx context.Context,
	showID int64,
	buyer domain.Buyer,
	quantity int,
	discountTier bool,
	promoCode string,
) (*Result, error) {
	const op = "service.checkout.CreateShowCheckout"

	if quantity <= 0 {
		return nil, fmt.Errorf("%s:%w", op, ErrInvalidQuantity)
	}

	show, err := s.catalog.GetShow(ctx, showID)
	if err != nil {
		if errors.Is(err, repository.ErrTargetNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrShowNotFound)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if !show.Active {
		return nil, fmt.Errorf("%s:%w", op, ErrShowInactive)
	}

	unit := tierPrice(show.PriceCents, show.DiscountPriceCents, discountTier)
	total := unit * quantity

	if promoCode != "" {
		total, err = s.applyCode(ctx, promoCode, total)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
	}

	purchase := &domain.Purchase{
		ID:          uuid.New(),
		Kind:        domain.TargetShow,
		TargetID:    show.ID,
		Buyer:       buyer,
		Quantity:    quantity,
		AmountCents: total,
		Currency:    s.cfg.Currency,
		TicketCode:  uuid.NewString(),
	}

	return s.finish(ctx, purchase, payment.SessionRequest{
		Title:           fmt.Sprintf("%s (%d tickets)", show.Title, quantity),
		UnitAmountCents: total,
		Quantity:        1,
		Currency:        s.cfg.Currency,
		CustomerEmail:   buyer.Email,
		Metadata: map[string]string{
			"kind":    string(domain.TargetShow),
			"show_id": strconv.FormatInt(show.ID, 10),
		},
	})
}

// CreateCourseCheckout starts a course-fee purchase for a booking the
// capacity check already admitted.
func (s *Service) CreateCourseCheckout(
	ctx context.Context,
	course *domain.CourseInstance,
	buyer domain.Buyer,
	discountTier bool,
) (sessionID, redirectURL string, err error) {
	const op = "service.checkout.CreateCourseCheckout"

	res, err := s.courseCheckout(ctx, course, buyer, discountTier, nil)
	if err != nil {
		return "", "", fmt.Errorf("%s:%w", op, err)
	}

	return res.SessionID, res.RedirectURL, nil
}

// CreatePromotionCheckout starts a course-fee purchase on behalf of a
// waitlisted person. The purchase links back to the offer row so the
// reconciler can settle it.
func (s *Service) CreatePromotionCheckout(
	ctx context.Context,
	course *domain.CourseInstance,
	entry *domain.WaitlistEntry,
	discountTier bool,
	offerID int64,
) (*Result, error) {
	const op = "service.checkout.CreatePromotionCheckout"

	buyer := domain.Buyer{
		Name:    entry.Name,
		Email:   entry.Email,
		Message: entry.Message,
	}

	res, err := s.courseCheckout(ctx, course, buyer, discountTier, &offerID)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return res, nil
}

// ValidateCode checks a discount code without consuming a use.
func (s *Service) ValidateCode(ctx context.Context, code string) (*domain.DiscountCode, error) {
	const op = "service.checkout.ValidateCode"

	d, err := s.catalog.GetDiscountCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrCodeNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrInvalidCode)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if !d.Usable(s.now()) {
		return nil, fmt.Errorf("%s:%w", op, ErrInvalidCode)
	}

	return d, nil
}

func (s *Service) courseCheckout(
	ctx context.Context,
	course *domain.CourseInstance,
	buyer domain.Buyer,
	discountTier bool,
	offerID *int64,
) (*Result, error) {
	total := tierPrice(course.PriceCents, course.DiscountPriceCents, discountTier)

	purchase := &domain.Purchase{
		ID:          uuid.New(),
		Kind:        domain.TargetCourse,
		TargetID:    course.ID,
		Table:       course.ParticipantTable,
		Buyer:       buyer,
		Quantity:    1,
		AmountCents: total,
		Currency:    s.cfg.Currency,
		OfferID:     offerID,
		TicketCode:  uuid.NewString(),
	}

	return s.finish(ctx, purchase, payment.SessionRequest{
		Title:           course.Title,
		UnitAmountCents: total,
		Quantity:        1,
		Currency:        s.cfg.Currency,
		CustomerEmail:   buyer.Email,
		Metadata: map[string]string{
			"kind":      string(domain.TargetCourse),
			"course_id": strconv.FormatInt(course.ID, 10),
		},
	})
}

// finish creates the processor session and persists the pending
// purchase. A persistence failure after the session exists is an
// orphaned external session: logged loudly for manual reconciliation,
// never retried automatically.
func (s *Service) finish(ctx context.Context, purchase *domain.Purchase, req payment.SessionRequest) (*Result, error) {
	const op = "service.checkout.finish"

	req.SuccessURL = s.cfg.SuccessURL
	req.CancelURL = s.cfg.CancelURL

	sess, err := s.sessions.CreateSession(ctx, req)
	if err != nil {
		s.logger.Warn("checkout session creation failed", "error", err)
		return nil, fmt.Errorf("%s:%w", op, ErrProcessor)
	}

	purchase.SessionID = sess.ID
	purchase.Status = domain.PaymentPending

	if err := s.purchases.Create(ctx, purchase); err != nil {
		s.logger.Error("orphaned checkout session: purchase row not persisted",
			"session_id", sess.ID,
			"kind", purchase.Kind,
			"target_id", purchase.TargetID,
			"amount_cents", purchase.AmountCents,
			"error", err,
		)
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &Result{SessionID: sess.ID, RedirectURL: sess.URL}, nil
}

func (s *Service) applyCode(ctx context.Context, code string, total int) (int, error) {
	d, err := s.ValidateCode(ctx, code)
	if err != nil {
		return 0, err
	}

	if err := s.catalog.IncrementCodeUsage(ctx, d.Code); err != nil {
		if errors.Is(err, repository.ErrCodeExhausted) {
			return 0, ErrInvalidCode
		}
		return 0, err
	}

	return total - d.DiscountCents(total), nil
}

func tierPrice(regular int, discounted *int, discountTier bool) int {
	if discountTier && discounted != nil {
		return *discounted
	}
	return regular
}
