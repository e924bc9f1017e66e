package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nordscene/boxoffice/internal/domain"
	"github.com/nordscene/boxoffice/internal/repository"
	redisrepo "github.com/nordscene/boxoffice/internal/repository/redis"
)

// Notifier resends booking confirmations on request.
type Notifier interface {
	SendBookingConfirmation(ctx context.Context, buyer domain.Buyer, courseTitle string)
}

// Service is the back office: catalog upkeep, participant management,
// waitlist oversight, discount codes and the newsletter list. Every
// operation here sits behind the admin auth middleware; none of them
// touch payment.
type Service struct {
	catalog      repository.CatalogStore
	participants repository.ParticipantAdminStore
	waitlist     repository.WaitlistStore
	purchases    repository.PurchaseStore
	contacts     repository.ContactStore
	notify       Notifier
	cache        *redisrepo.Cache
	pubsub       *redisrepo.AvailabilityPubSub
	logger       *slog.Logger
}

func New(
	catalog repository.CatalogStore,
	participants repository.ParticipantAdminStore,
	waitlist repository.WaitlistStore,
	purchases repository.PurchaseStore,
	contacts repository.ContactStore,
	notify Notifier,
	cache *redisrepo.Cache,
	pubsub *redisrepo.AvailabilityPubSub,
	logger *slog.Logger,
) *Service {
	return &Service{
		catalog:      catalog,
		participants: participants,
		waitlist:     waitlist,
		purchases:    purchases,
		contacts:     contacts,
		notify:       notify,
		cache:        cache,
		pubsub:       pubsub,
		logger:       logger,
	}
}

// --- catalog ---

func (s *Service) CreateCourse(ctx context.Context, c *domain.CourseInstance) error {
	const op = "service.admin.CreateCourse"

	if err := validateCourse(c); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	if err := s.catalog.CreateCourse(ctx, c); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	s.invalidateCourse(ctx, c.ID, c.Slug)
	return nil
}

func (s *Service) UpdateCourse(ctx context.Context, c *domain.CourseInstance) error {
	const op = "service.admin.UpdateCourse"

	if err := validateCourse(c); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	if err := s.catalog.UpdateCourse(ctx, c); err != nil {
		if errors.Is(err, repository.ErrTargetNotFound) {
			return fmt.Errorf("%s:%w", op, ErrCourseNotFound)
		}
		return fmt.Errorf("%s:%w", op, err)
	}

	s.invalidateCourse(ctx, c.ID, c.Slug)
	return nil
}

func (s *Service) ListCourses(ctx context.Context) ([]domain.CourseInstance, error) {
	const op = "service.admin.ListCourses"

	courses, err := s.catalog.ListCourses(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	return courses, nil
}

func (s *Service) CreateShow(ctx context.Context, show *domain.Show) error {
	const op = "service.admin.CreateShow"

	if err := validateShow(show); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	if err := s.catalog.CreateShow(ctx, show); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	s.invalidateShow(ctx, show.Slug)
	return nil
}

func (s *Service) UpdateShow(ctx context.Context, show *domain.Show) error {
	const op = "service.admin.UpdateShow"

	if err := validateShow(show); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	if err := s.catalog.UpdateShow(ctx, show); err != nil {
		if errors.Is(err, repository.ErrTargetNotFound) {
			return fmt.Errorf("%s:%w", op, ErrShowNotFound)
		}
		return fmt.Errorf("%s:%w", op, err)
	}

	s.invalidateShow(ctx, show.Slug)
	return nil
}

func (s *Service) ListShows(ctx context.Context) ([]domain.Show, error) {
	const op = "service.admin.ListShows"

	shows, err := s.catalog.ListShows(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	return shows, nil
}

// --- discount codes ---

func (s *Service) CreateDiscountCode(ctx context.Context, d *domain.DiscountCode) error {
	const op = "service.admin.CreateDiscountCode"

	if strings.TrimSpace(d.Code) == "" || d.Amount <= 0 {
		return fmt.Errorf("%s:%w", op, ErrInvalidInput)
	}
	if d.Type != domain.DiscountPercentage && d.Type != domain.DiscountFixed {
		return fmt.Errorf("%s:%w", op, ErrInvalidInput)
	}
	if d.Type == domain.DiscountPercentage && d.Amount > 100 {
		return fmt.Errorf("%s:%w", op, ErrInvalidInput)
	}

	if err := s.catalog.CreateDiscountCode(ctx, d); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return fmt.Errorf("%s:%w", op, ErrCodeExists)
		}
		return fmt.Errorf("%s:%w", op, err)
	}
	return nil
}

func (s *Service) DeactivateDiscountCode(ctx context.Context, code string) error {
	const op = "service.admin.DeactivateDiscountCode"

	if err := s.catalog.DeactivateDiscountCode(ctx, code); err != nil {
		if errors.Is(err, repository.ErrCodeNotFound) {
			return fmt.Errorf("%s:%w", op, ErrCodeNotFound)
		}
		return fmt.Errorf("%s:%w", op, err)
	}
	return nil
}

// --- participants ---

func (s *Service) ListParticipants(ctx context.Context, courseID int64) ([]domain.Participant, error) {
	const op = "service.admin.ListParticipants"

	course, err := s.getCourse(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	list, err := s.participants.List(ctx, course.Target())
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	return list, nil
}

// AddParticipant registers someone directly, bypassing capacity and
// payment. Used for phone bookings and comps.
func (s *Service) AddParticipant(ctx context.Context, courseID int64, p domain.Participant) error {
	const op = "service.admin.AddParticipant"

	course, err := s.getCourse(ctx, courseID)
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	p.Email = domain.NormalizeEmail(p.Email)
	if p.Email == "" || strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%s:%w", op, ErrInvalidInput)
	}

	if err := s.participants.Insert(ctx, course.Target(), p); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return fmt.Errorf("%s:%w", op, ErrParticipantExists)
		}
		return fmt.Errorf("%s:%w", op, err)
	}

	s.invalidateCourse(ctx, course.ID, course.Slug)
	return nil
}

func (s *Service) RemoveParticipant(ctx context.Context, courseID int64, email string) error {
	const op = "service.admin.RemoveParticipant"

	course, err := s.getCourse(ctx, courseID)
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	if err := s.participants.Delete(ctx, course.Target(), email); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%s:%w", op, ErrParticipantNotFound)
		}
		return fmt.Errorf("%s:%w", op, err)
	}

	s.invalidateCourse(ctx, course.ID, course.Slug)
	return nil
}

// MoveParticipant transfers a registration between courses, keeping the
// original registration data. No payment adjustment happens here; price
// differences are settled out of band.
func (s *Service) MoveParticipant(ctx context.Context, fromCourseID, toCourseID int64, email string) error {
	const op = "service.admin.MoveParticipant"

	from, err := s.getCourse(ctx, fromCourseID)
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}
	to, err := s.getCourse(ctx, toCourseID)
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	if err := s.participants.Move(ctx, from.Target(), to.Target(), email); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return fmt.Errorf("%s:%w", op, ErrParticipantNotFound)
		case errors.Is(err, repository.ErrConflict):
			return fmt.Errorf("%s:%w", op, ErrParticipantExists)
		}
		return fmt.Errorf("%s:%w", op, err)
	}

	s.invalidateCourse(ctx, from.ID, from.Slug)
	s.invalidateCourse(ctx, to.ID, to.Slug)
	return nil
}

// ResendConfirmation sends the booking confirmation again and bumps the
// per-participant resend counter so staff can spot delivery problems.
func (s *Service) ResendConfirmation(ctx context.Context, courseID int64, email string) (int, error) {
	const op = "service.admin.ResendConfirmation"

	course, err := s.getCourse(ctx, courseID)
	if err != nil {
		return 0, fmt.Errorf("%s:%w", op, err)
	}

	p, err := s.participants.Get(ctx, course.Target(), email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, fmt.Errorf("%s:%w", op, ErrParticipantNotFound)
		}
		return 0, fmt.Errorf("%s:%w", op, err)
	}

	count, err := s.participants.IncrementResendCount(ctx, course.Target(), email)
	if err != nil {
		return 0, fmt.Errorf("%s:%w", op, err)
	}

	s.notify.SendBookingConfirmation(ctx, domain.Buyer{
		Name:  p.Name,
		Email: p.Email,
	}, course.Title)

	return count, nil
}

// --- waitlist ---

func (s *Service) ListWaitlist(ctx context.Context, courseID int64) ([]domain.WaitlistEntry, error) {
	const op = "service.admin.ListWaitlist"

	if _, err := s.getCourse(ctx, courseID); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	entries, err := s.waitlist.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	return entries, nil
}

func (s *Service) RemoveFromWaitlist(ctx context.Context, courseID int64, email string) error {
	const op = "service.admin.RemoveFromWaitlist"

	if _, err := s.getCourse(ctx, courseID); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	if err := s.waitlist.Remove(ctx, courseID, email); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}
	return nil
}

// --- purchases ---

func (s *Service) ListPurchases(ctx context.Context, status domain.PaymentStatus, limit, offset int) ([]domain.Purchase, error) {
	const op = "service.admin.ListPurchases"

	if status != domain.PaymentPending && status != domain.PaymentPaid {
		return nil, fmt.Errorf("%s:%w", op, ErrInvalidInput)
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	list, err := s.purchases.ListByStatus(ctx, status, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	return list, nil
}

// --- newsletter contacts ---

func (s *Service) ListContacts(ctx context.Context, limit, offset int) ([]domain.NewsletterContact, error) {
	const op = "service.admin.ListContacts"

	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	list, err := s.contacts.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	return list, nil
}

func (s *Service) RemoveContact(ctx context.Context, email string) error {
	const op = "service.admin.RemoveContact"

	if err := s.contacts.Remove(ctx, email); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%s:%w", op, ErrContactNotFound)
		}
		return fmt.Errorf("%s:%w", op, err)
	}
	return nil
}

// --- helpers ---

func (s *Service) getCourse(ctx context.Context, id int64) (*domain.CourseInstance, error) {
	course, err := s.catalog.GetCourse(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrTargetNotFound) {
			return nil, ErrCourseNotFound
		}
		return nil, err
	}
	return course, nil
}

func (s *Service) invalidateCourse(ctx context.Context, id int64, slug string) {
	if s.cache != nil {
		_ = s.cache.InvalidateCourse(ctx, id, slug)
	}
	if s.pubsub != nil {
		_ = s.pubsub.PublishCourseChanged(ctx, id)
	}
}

func (s *Service) invalidateShow(ctx context.Context, slug string) {
	if s.cache != nil {
		_ = s.cache.InvalidateShow(ctx, slug)
	}
}

func validateCourse(c *domain.CourseInstance) error {
	if strings.TrimSpace(c.Slug) == "" || strings.TrimSpace(c.Title) == "" {
		return ErrInvalidInput
	}
	if c.PriceCents < 0 {
		return ErrInvalidInput
	}
	if c.MaxParticipants != nil && *c.MaxParticipants < 0 {
		return ErrInvalidInput
	}
	return nil
}

func validateShow(s *domain.Show) error {
	if strings.TrimSpace(s.Slug) == "" || strings.TrimSpace(s.Title) == "" {
		return ErrInvalidInput
	}
	if s.PriceCents < 0 {
		return ErrInvalidInput
	}
	return nil
}
