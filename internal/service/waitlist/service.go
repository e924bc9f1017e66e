package waitlist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nordscene/boxoffice/internal/domain"
	"github.com/nordscene/boxoffice/internal/repository"
	redisrepo "github.com/nordscene/boxoffice/internal/repository/redis"
	"github.com/nordscene/boxoffice/internal/service/checkout"
)

// Catalog resolves the course a promotion targets.
type Catalog interface {
	GetCourse(ctx context.Context, id int64) (*domain.CourseInstance, error)
}

// PromotionCheckout starts a payment session on behalf of a waitlisted
// person.
type PromotionCheckout interface {
	CreatePromotionCheckout(ctx context.Context, course *domain.CourseInstance, entry *domain.WaitlistEntry, discountTier bool, offerID int64) (*checkout.Result, error)
}

// Notifier sends the confirmation for a free promotion.
type Notifier interface {
	SendBookingConfirmation(ctx context.Context, buyer domain.Buyer, courseTitle string)
}

// Service promotes waitlisted people into course seats.
type Service struct {
	waitlist     repository.WaitlistStore
	participants repository.ParticipantStore
	catalog      Catalog
	checkout     PromotionCheckout
	notify       Notifier
	cache        *redisrepo.Cache
	pubsub       *redisrepo.AvailabilityPubSub
	logger       *slog.Logger
}

func New(
	waitlist repository.WaitlistStore,
	participants repository.ParticipantStore,
	catalog Catalog,
	checkout PromotionCheckout,
	notify Notifier,
	cache *redisrepo.Cache,
	pubsub *redisrepo.AvailabilityPubSub,
	logger *slog.Logger,
) *Service {
	return &Service{
		waitlist:     waitlist,
		participants: participants,
		catalog:      catalog,
		checkout:     checkout,
		notify:       notify,
		cache:        cache,
		pubsub:       pubsub,
		logger:       logger,
	}
}

// PromotionResult describes how a promotion proceeded. A free course
// seats the person immediately; a paid one hands back a checkout
// redirect and settles on payment confirmation.
type PromotionResult struct {
	RequiresPayment bool
	SessionID       string
	RedirectURL     string
}

// Promote moves one waitlisted person toward a seat. For free courses
// the entry converts to a participant right away. For paid courses the
// entry is taken off the list as soon as the checkout session exists,
// before the payment completes; staff see the list shrink the moment
// they act, and an abandoned session means re-adding the person by
// hand.
//
// Parameters:
//   - courseID: the course whose waitlist is being worked.
//   - email: identifies the entry, matched case-insensitively.
//   - discountTier: charge the member price when the course has one.
//
// Returns:
//   - waitlist.ErrCourseNotFound when the course does not exist.
//   - waitlist.ErrNotOnWaitlist when no entry matches the email.
func (s *Service) Promote(ctx context.Context, courseID int64, email string, discountTier bool) (*PromotionResult, error) {
	const op = "service.waitlist.Promote"

	course, err := s.catalog.GetCourse(ctx, courseID)
	if err != nil {
		if errors.Is(err, repository.ErrTargetNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrCourseNotFound)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	entry, err := s.waitlist.Get(ctx, courseID, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrNotOnWaitlist)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if course.Free() {
		return s.promoteFree(ctx, course, entry)
	}

	return s.promotePaid(ctx, course, entry, discountTier)
}

func (s *Service) promoteFree(ctx context.Context, course *domain.CourseInstance, entry *domain.WaitlistEntry) (*PromotionResult, error) {
	const op = "service.waitlist.promoteFree"

	p := domain.Participant{
		Name:    entry.Name,
		Email:   entry.Email,
		Message: entry.Message,
	}

	if err := s.participants.Insert(ctx, course.Target(), p); err != nil {
		if !errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
		// Already seated through another path; fall through and clean up
		// the stale entry.
		s.logger.Warn("promoted waitlist entry was already a participant",
			"course_id", course.ID,
			"email", entry.Email,
		)
	}

	if err := s.waitlist.Remove(ctx, course.ID, entry.Email); err != nil {
		s.logger.Warn("could not remove promoted waitlist entry",
			"course_id", course.ID,
			"email", entry.Email,
			"error", err,
		)
	}

	s.invalidate(ctx, course)

	s.notify.SendBookingConfirmation(ctx, domain.Buyer{
		Name:  entry.Name,
		Email: entry.Email,
	}, course.Title)

	return &PromotionResult{RequiresPayment: false}, nil
}

func (s *Service) promotePaid(ctx context.Context, course *domain.CourseInstance, entry *domain.WaitlistEntry, discountTier bool) (*PromotionResult, error) {
	const op = "service.waitlist.promotePaid"

	offer := domain.WaitlistOffer{
		CourseID: course.ID,
		Email:    entry.Email,
	}
	if err := s.waitlist.CreateOffer(ctx, &offer); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	res, err := s.checkout.CreatePromotionCheckout(ctx, course, entry, discountTier, offer.ID)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if err := s.waitlist.AttachOfferSession(ctx, offer.ID, res.SessionID); err != nil {
		s.logger.Warn("could not attach session to waitlist offer",
			"offer_id", offer.ID,
			"error", err,
		)
	}

	// The entry leaves the list now, not on payment. Staff working the
	// list see it shrink immediately.
	if err := s.waitlist.Remove(ctx, course.ID, entry.Email); err != nil {
		s.logger.Warn("could not remove waitlist entry after creating offer",
			"course_id", course.ID,
			"email", entry.Email,
			"error", err,
		)
	}

	return &PromotionResult{
		RequiresPayment: true,
		SessionID:       res.SessionID,
		RedirectURL:     res.RedirectURL,
	}, nil
}

func (s *Service) invalidate(ctx context.Context, course *domain.CourseInstance) {
	if s.cache != nil {
		_ = s.cache.InvalidateCourse(ctx, course.ID, course.Slug)
	}
	if s.pubsub != nil {
		_ = s.pubsub.PublishCourseChanged(ctx, course.ID)
	}
}
