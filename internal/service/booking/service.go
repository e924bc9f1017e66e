package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/nordscene/boxoffice/internal/domain"
	"github.com/nordscene/boxoffice/internal/repository"
	redisrepo "github.com/nordscene/boxoffice/internal/repository/redis"
)

// FewSeatsThreshold is the informational "few seats left" flag cutoff.
// It never gates a booking.
const FewSeatsThreshold = 5

// Catalog is the slice of the catalog the booking flow reads.
type Catalog interface {
	GetCourse(ctx context.Context, id int64) (*domain.CourseInstance, error)
}

// CheckoutStarter hands a paid-course booking over to the checkout flow.
type CheckoutStarter interface {
	CreateCourseCheckout(ctx context.Context, course *domain.CourseInstance, buyer domain.Buyer, discountTier bool) (sessionID, redirectURL string, err error)
}

// Notifier sends the post-booking emails, best-effort.
type Notifier interface {
	SendBookingConfirmation(ctx context.Context, buyer domain.Buyer, courseTitle string)
	SendWaitlistConfirmation(ctx context.Context, buyer domain.Buyer, courseTitle string, position int)
}

type Config struct {
	AvailabilityTTL time.Duration
}

// Service implements booking submission: duplicate guarding, capacity
// routing and the free-course insert. Paid courses are handed to the
// checkout flow; full courses to the waitlist.
type Service struct {
	catalog      Catalog
	participants repository.ParticipantStore
	waitlist     repository.WaitlistStore
	checkout     CheckoutStarter
	notify       Notifier
	cache        *redisrepo.Cache
	pubsub       *redisrepo.AvailabilityPubSub
	logger       *slog.Logger
	cfg          Config
}

func New(
	catalog Catalog,
	participants repository.ParticipantStore,
	waitlist repository.WaitlistStore,
	checkout CheckoutStarter,
	notify Notifier,
	cache *redisrepo.Cache,
	pubsub *redisrepo.AvailabilityPubSub,
	logger *slog.Logger,
	cfg Config,
) *Service {
	if cfg.AvailabilityTTL <= 0 {
		cfg.AvailabilityTTL = 15 * time.Second
	}

	return &Service{
		catalog:      catalog,
		participants: participants,
		waitlist:     waitlist,
		checkout:     checkout,
		notify:       notify,
		cache:        cache,
		pubsub:       pubsub,
		logger:       logger,
		cfg:          cfg,
	}
}

// Outcome is the discriminated result of a booking submission.
type Outcome struct {
	Waitlisted       bool
	WaitlistPosition int
	RequiresPayment  bool
	SessionID        string
	RedirectURL      string
}

// SubmitCourseBooking routes one booking request: reject duplicates,
// join the waitlist when the course is full, insert directly when the
// course is free, otherwise start a checkout. discountTier selects the
// member price when the course has one.
//
// Returns:
//   - booking.ErrCourseNotFound / booking.ErrCourseInactive on bad targets.
//   - booking.ErrInvalidInput when required contact fields are missing.
//   - booking.ErrDuplicateBooking when the email already holds a seat.
//   - booking.ErrAlreadyWaiting when the email is already queued.
func (s *Service) SubmitCourseBooking(ctx context.Context, courseID int64, buyer domain.Buyer, discountTier bool) (*Outcome, error) {
	const op = "service.booking.SubmitCourseBooking"

	if err := validateBuyer(buyer); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	buyer.Email = domain.NormalizeEmail(buyer.Email)

	course, err := s.catalog.GetCourse(ctx, courseID)
	if err != nil {
		if errors.Is(err, repository.ErrTargetNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrCourseNotFound)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if !course.Active {
		return nil, fmt.Errorf("%s:%w", op, ErrCourseInactive)
	}

	if s.IsDuplicate(ctx, course.Target(), buyer.Email) {
		return nil, fmt.Errorf("%s:%w", op, ErrDuplicateBooking)
	}

	remaining, err := s.RemainingSeats(ctx, course)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if remaining != nil && *remaining <= 0 {
		return s.joinWaitlist(ctx, course, buyer)
	}

	if course.Free() {
		if err := s.participants.Insert(ctx, course.Target(), participantFrom(buyer)); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return nil, fmt.Errorf("%s:%w", op, ErrDuplicateBooking)
			}
			return nil, fmt.Errorf("%s:%w", op, err)
		}

		s.invalidateAvailability(ctx, course)
		s.notify.SendBookingConfirmation(ctx, buyer, course.Title)

		return &Outcome{}, nil
	}

	sessionID, redirectURL, err := s.checkout.CreateCourseCheckout(ctx, course, buyer, discountTier)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &Outcome{RequiresPayment: true, SessionID: sessionID, RedirectURL: redirectURL}, nil
}

func (s *Service) joinWaitlist(ctx context.Context, course *domain.CourseInstance, buyer domain.Buyer) (*Outcome, error) {
	const op = "service.booking.joinWaitlist"

	entry := domain.WaitlistEntry{
		CourseID: course.ID,
		Name:     buyer.Name,
		Email:    buyer.Email,
		Message:  buyer.Message,
	}

	if err := s.waitlist.Add(ctx, &entry); err != nil {
		if errors.Is(err, repository.ErrAlreadyWaiting) {
			return nil, fmt.Errorf("%s:%w", op, ErrAlreadyWaiting)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	s.notify.SendWaitlistConfirmation(ctx, buyer, course.Title, entry.Position)

	return &Outcome{Waitlisted: true, WaitlistPosition: entry.Position}, nil
}

// IsDuplicate checks whether the email already holds a seat in the
// target's participant set. A failing existence check never blocks a
// booking: a false negative costs at worst one duplicate row, a false
// positive would wrongly turn away a real customer.
func (s *Service) IsDuplicate(ctx context.Context, target domain.Target, email string) bool {
	found, err := s.participants.Exists(ctx, target, domain.NormalizeEmail(email))
	if err != nil {
		s.logger.Warn("duplicate check failed, allowing booking",
			"target_kind", target.Kind,
			"target_id", target.ID,
			"error", err,
		)
		return false
	}

	return found
}

// RemainingSeats computes free capacity for a course. nil means the
// course has no configured maximum.
func (s *Service) RemainingSeats(ctx context.Context, course *domain.CourseInstance) (*int, error) {
	const op = "service.booking.RemainingSeats"

	if course.MaxParticipants == nil {
		return nil, nil
	}

	count, err := s.participants.Count(ctx, course.Target())
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	remaining := *course.MaxParticipants - count
	return &remaining, nil
}

// Availability is the UI-facing seat summary for one course.
type Availability struct {
	Remaining    *int `json:"remaining"`
	SoldOut      bool `json:"sold_out"`
	FewSeatsLeft bool `json:"few_seats_left"`
}

// Availability reports remaining seats for a course, served through a
// short-lived cache.
func (s *Service) Availability(ctx context.Context, courseID int64) (*Availability, error) {
	const op = "service.booking.Availability"

	load := func(ctx context.Context) (Availability, error) {
		course, err := s.catalog.GetCourse(ctx, courseID)
		if err != nil {
			if errors.Is(err, repository.ErrTargetNotFound) {
				return Availability{}, ErrCourseNotFound
			}
			return Availability{}, err
		}

		remaining, err := s.RemainingSeats(ctx, course)
		if err != nil {
			return Availability{}, err
		}

		return availabilityFrom(remaining), nil
	}

	if s.cache == nil {
		a, err := load(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
		return &a, nil
	}

	a, err := redisrepo.GetOrSetJSON(
		ctx,
		s.cache,
		redisrepo.KeyCourseAvailability(courseID),
		s.cfg.AvailabilityTTL,
		load,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &a, nil
}

func availabilityFrom(remaining *int) Availability {
	a := Availability{Remaining: remaining}
	if remaining == nil {
		return a
	}
	if *remaining <= 0 {
		a.SoldOut = true
	} else if *remaining <= FewSeatsThreshold {
		a.FewSeatsLeft = true
	}
	return a
}

func (s *Service) invalidateAvailability(ctx context.Context, course *domain.CourseInstance) {
	if s.cache != nil {
		_ = s.cache.InvalidateCourse(ctx, course.ID, course.Slug)
	}
	if s.pubsub != nil {
		_ = s.pubsub.PublishCourseChanged(ctx, course.ID)
	}
}

func participantFrom(buyer domain.Buyer) domain.Participant {
	return domain.Participant{
		Name:       buyer.Name,
		Email:      buyer.Email,
		Phone:      buyer.Phone,
		Street:     buyer.Street,
		PostalCode: buyer.PostalCode,
		City:       buyer.City,
		Message:    buyer.Message,
	}
}

func validateBuyer(buyer domain.Buyer) error {
	if strings.TrimSpace(buyer.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}

	addr := strings.TrimSpace(buyer.Email)
	if addr == "" {
		return fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(addr); err != nil {
		return fmt.Errorf("%w: invalid email address", ErrInvalidInput)
	}

	return nil
}
