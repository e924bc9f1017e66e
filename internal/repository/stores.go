package repository

import (
	"context"

	"github.com/nordscene/boxoffice/internal/domain"
)

// ParticipantStore is the capability the booking and reconciliation
// flows use to touch a target's participant set. Implementations route
// to a per-target physical table when the target carries one, falling
// back to the shared table otherwise. Callers never see table naming.
type ParticipantStore interface {
	Insert(ctx context.Context, target domain.Target, p domain.Participant) error
	Exists(ctx context.Context, target domain.Target, email string) (bool, error)
	Count(ctx context.Context, target domain.Target) (int, error)
}

// PurchaseStore owns the purchase ledger. MarkPaid performs the single
// conditional pending→paid transition and reports whether this call won
// it; it is the sole concurrency arbiter for reconciliation.
type PurchaseStore interface {
	Create(ctx context.Context, p *domain.Purchase) error
	GetBySession(ctx context.Context, sessionID string) (*domain.Purchase, error)
	MarkPaid(ctx context.Context, sessionID string) (bool, error)
	MarkScanned(ctx context.Context, ticketCode string) (*domain.Purchase, error)
	GetByTicketCode(ctx context.Context, ticketCode string) (*domain.Purchase, error)
	ListByStatus(ctx context.Context, status domain.PaymentStatus, limit, offset int) ([]domain.Purchase, error)
}

// ParticipantAdminStore extends ParticipantStore with the back-office
// operations: listing, direct delete, moving between courses and the
// confirmation-resend counter. None of these touch payment.
type ParticipantAdminStore interface {
	ParticipantStore
	Get(ctx context.Context, target domain.Target, email string) (*domain.Participant, error)
	List(ctx context.Context, target domain.Target) ([]domain.Participant, error)
	Delete(ctx context.Context, target domain.Target, email string) error
	Move(ctx context.Context, from, to domain.Target, email string) error
	IncrementResendCount(ctx context.Context, target domain.Target, email string) (int, error)
}

// WaitlistStore owns waitlist entries and promotion offers. Remove is
// tolerant of already-removed entries so the reconciler can call it
// unconditionally.
type WaitlistStore interface {
	Add(ctx context.Context, e *domain.WaitlistEntry) error
	Get(ctx context.Context, courseID int64, email string) (*domain.WaitlistEntry, error)
	ListByCourse(ctx context.Context, courseID int64) ([]domain.WaitlistEntry, error)
	Remove(ctx context.Context, courseID int64, email string) error
	CreateOffer(ctx context.Context, o *domain.WaitlistOffer) error
	AttachOfferSession(ctx context.Context, offerID int64, sessionID string) error
	MarkOfferPaid(ctx context.Context, offerID int64) error
}

// CatalogStore reads and mutates course/show metadata and discount codes.
type CatalogStore interface {
	GetCourse(ctx context.Context, id int64) (*domain.CourseInstance, error)
	GetCourseBySlug(ctx context.Context, slug string) (*domain.CourseInstance, error)
	ListCourses(ctx context.Context, activeOnly bool) ([]domain.CourseInstance, error)
	CreateCourse(ctx context.Context, c *domain.CourseInstance) error
	UpdateCourse(ctx context.Context, c *domain.CourseInstance) error
	GetShow(ctx context.Context, id int64) (*domain.Show, error)
	GetShowBySlug(ctx context.Context, slug string) (*domain.Show, error)
	ListShows(ctx context.Context, activeOnly bool) ([]domain.Show, error)
	CreateShow(ctx context.Context, s *domain.Show) error
	UpdateShow(ctx context.Context, s *domain.Show) error
	GetDiscountCode(ctx context.Context, code string) (*domain.DiscountCode, error)
	CreateDiscountCode(ctx context.Context, d *domain.DiscountCode) error
	IncrementCodeUsage(ctx context.Context, code string) error
	DeactivateDiscountCode(ctx context.Context, code string) error
}

// ContactStore owns newsletter contacts.
type ContactStore interface {
	Subscribe(ctx context.Context, c *domain.NewsletterContact) error
	List(ctx context.Context, limit, offset int) ([]domain.NewsletterContact, error)
	Remove(ctx context.Context, email string) error
}
