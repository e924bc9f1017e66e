package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
)

type TargetKind string

const (
	TargetCourse TargetKind = "course"
	TargetShow   TargetKind = "show"
)

// Target identifies which participant set a booking operation works
// against. Table, when set, names a dedicated physical participant
// table for the target; when empty the shared table is used.
type Target struct {
	Kind  TargetKind
	ID    int64
	Table string
}

// Buyer holds the contact fields collected at checkout or booking time.
type Buyer struct {
	Name       string
	Email      string
	Phone      string
	Street     string
	PostalCode string
	City       string
	Message    string
}

// NormalizeEmail lower-cases and trims an address. All duplicate and
// waitlist checks compare normalized addresses.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Purchase tracks one checkout attempt from session creation to payment.
// Rows are never deleted; abandoned checkouts stay pending.
type Purchase struct {
	ID          uuid.UUID
	Kind        TargetKind
	TargetID    int64
	Table       string
	Buyer       Buyer
	Quantity    int
	AmountCents int
	Currency    string
	SessionID   string
	Status      PaymentStatus
	// OfferID links a purchase that originated from a waitlist
	// promotion to its offer row.
	OfferID    *int64
	TicketCode string
	ScannedAt  *time.Time
	CreatedAt  time.Time
	PaidAt     *time.Time
}

func (p *Purchase) Target() Target {
	return Target{Kind: p.Kind, ID: p.TargetID, Table: p.Table}
}

// Participant is a confirmed seat in a course or a confirmed ticket
// holder for a show. Email is unique within one target's participant set.
type Participant struct {
	ID                  int64
	Name                string
	Email               string
	Phone               string
	Street              string
	PostalCode          string
	City                string
	Message             string
	ConfirmationResends int
	CreatedAt           time.Time
}

// WaitlistEntry is a queued request for a seat in a specific course
// instance. Position is monotonic per course.
type WaitlistEntry struct {
	ID        int64
	CourseID  int64
	Name      string
	Email     string
	Message   string
	Position  int
	CreatedAt time.Time
}

type OfferStatus string

const (
	OfferPending OfferStatus = "pending"
	OfferPaid    OfferStatus = "paid"
)

// WaitlistOffer records a paid-course promotion: a checkout session was
// generated for a waitlisted person and is awaiting payment.
type WaitlistOffer struct {
	ID        int64
	CourseID  int64
	Email     string
	SessionID string
	Status    OfferStatus
	CreatedAt time.Time
}

// CourseInstance is a capacity-bearing booking target. The confirmed
// count is derived by counting participant rows, never stored.
type CourseInstance struct {
	ID                 int64
	Slug               string
	Title              string
	ParticipantTable   string
	MaxParticipants    *int
	PriceCents         int
	DiscountPriceCents *int
	Active             bool
}

func (c *CourseInstance) Target() Target {
	return Target{Kind: TargetCourse, ID: c.ID, Table: c.ParticipantTable}
}

// Free reports whether the course has no price attached.
func (c *CourseInstance) Free() bool { return c.PriceCents <= 0 }

type Show struct {
	ID                 int64
	Slug               string
	Title              string
	MaxTickets         *int
	PriceCents         int
	DiscountPriceCents *int
	Active             bool
}

func (s *Show) Target() Target {
	return Target{Kind: TargetShow, ID: s.ID}
}

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// DiscountCode adjusts a show checkout total. Amount is a percentage
// for percentage codes and a cent value for fixed codes.
type DiscountCode struct {
	ID         int64
	Code       string
	Type       DiscountType
	Amount     int
	ValidFrom  *time.Time
	ValidUntil *time.Time
	MaxUses    *int
	UsedCount  int
	Active     bool
}

// Usable reports whether the code may be applied at the given time:
// active, inside its validity window and under its usage cap.
func (d *DiscountCode) Usable(now time.Time) bool {
	if !d.Active {
		return false
	}
	if d.ValidFrom != nil && now.Before(*d.ValidFrom) {
		return false
	}
	if d.ValidUntil != nil && now.After(*d.ValidUntil) {
		return false
	}
	if d.MaxUses != nil && d.UsedCount >= *d.MaxUses {
		return false
	}
	return true
}

// DiscountCents computes the discount for a total, in cents. Percentage
// codes are computed on the cent value directly so no rounding happens
// before the final total.
func (d *DiscountCode) DiscountCents(totalCents int) int {
	var off int
	switch d.Type {
	case DiscountPercentage:
		off = totalCents * d.Amount / 100
	case DiscountFixed:
		off = d.Amount
	}
	if off > totalCents {
		off = totalCents
	}
	if off < 0 {
		off = 0
	}
	return off
}

type NewsletterContact struct {
	ID           int64
	Email        string
	Name         string
	SubscribedAt time.Time
}
