package waitlist

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nordscene/boxoffice/internal/domain"
	"github.com/nordscene/boxoffice/internal/repository"
	"github.com/nordscene/boxoffice/internal/service/checkout"
)

type fakeCatalog struct {
	courses map[int64]*domain.CourseInstance
}

func (f *fakeCatalog) GetCourse(_ context.Context, id int64) (*domain.CourseInstance, error) {
	c, ok := f.courses[id]
	if !ok {
		return nil, repository.ErrTargetNotFound
	}
	cp := *c
	return &cp, nil
}

type fakeParticipants struct {
	mu    sync.Mutex
	seats map[string]struct{}
}

func newFakeParticipants() *fakeParticipants {
	return &fakeParticipants{seats: make(map[string]struct{})}
}

func seatKey(t domain.Target, email string) string {
	return fmt.Sprintf("%s:%d:%s", t.Kind, t.ID, email)
}

func (f *fakeParticipants) Insert(_ context.Context, target domain.Target, p domain.Participant) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := seatKey(target, p.Email)
	if _, ok := f.seats[k]; ok {
		return repository.ErrConflict
	}
	f.seats[k] = struct{}{}
	return nil
}

func (f *fakeParticipants) Exists(_ context.Context, target domain.Target, email string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.seats[seatKey(target, email)]
	return ok, nil
}

func (f *fakeParticipants) Count(context.Context, domain.Target) (int, error) { return 0, nil }

type fakeWaitlist struct {
	mu       sync.Mutex
	entries  map[string]domain.WaitlistEntry
	offers   []domain.WaitlistOffer
	attached map[int64]string
}

func newFakeWaitlist() *fakeWaitlist {
	return &fakeWaitlist{
		entries:  make(map[string]domain.WaitlistEntry),
		attached: make(map[int64]string),
	}
}

func wlKey(courseID int64, email string) string {
	return fmt.Sprintf("%d:%s", courseID, email)
}

func (f *fakeWaitlist) Add(_ context.Context, e *domain.WaitlistEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[wlKey(e.CourseID, e.Email)] = *e
	return nil
}

func (f *fakeWaitlist) Get(_ context.Context, courseID int64, email string) (*domain.WaitlistEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[wlKey(courseID, email)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &e, nil
}

func (f *fakeWaitlist) ListByCourse(context.Context, int64) ([]domain.WaitlistEntry, error) {
	return nil, nil
}

func (f *fakeWaitlist) Remove(_ context.Context, courseID int64, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.entries, wlKey(courseID, email))
	return nil
}

func (f *fakeWaitlist) CreateOffer(_ context.Context, o *domain.WaitlistOffer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o.ID = int64(len(f.offers) + 1)
	f.offers = append(f.offers, *o)
	return nil
}

func (f *fakeWaitlist) AttachOfferSession(_ context.Context, offerID int64, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attached[offerID] = sessionID
	return nil
}

func (f *fakeWaitlist) MarkOfferPaid(context.Context, int64) error { return nil }

type fakeCheckout struct {
	lastOfferID int64
	lastTier    bool
}

func (f *fakeCheckout) CreatePromotionCheckout(_ context.Context, course *domain.CourseInstance, entry *domain.WaitlistEntry, discountTier bool, offerID int64) (*checkout.Result, error) {
	f.lastOfferID = offerID
	f.lastTier = discountTier
	return &checkout.Result{SessionID: "cs_promo", RedirectURL: "https://pay.example/cs_promo"}, nil
}

type fakeNotify struct {
	bookings int
}

func (f *fakeNotify) SendBookingConfirmation(context.Context, domain.Buyer, string) {
	f.bookings++
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(catalog *fakeCatalog, parts *fakeParticipants, wl *fakeWaitlist, co *fakeCheckout, n *fakeNotify) *Service {
	return New(wl, parts, catalog, co, n, nil, nil, testLogger())
}

func TestPromoteFreeCourse(t *testing.T) {
	catalog := &fakeCatalog{courses: map[int64]*domain.CourseInstance{
		1: {ID: 1, Title: "Improv basics", Active: true},
	}}
	parts := newFakeParticipants()
	wl := newFakeWaitlist()
	notify := &fakeNotify{}
	require.NoError(t, wl.Add(context.Background(), &domain.WaitlistEntry{CourseID: 1, Name: "Kari", Email: "kari@example.no"}))

	svc := newTestService(catalog, parts, wl, &fakeCheckout{}, notify)

	res, err := svc.Promote(context.Background(), 1, "kari@example.no", false)
	require.NoError(t, err)

	assert.False(t, res.RequiresPayment)
	assert.Empty(t, wl.entries)
	assert.Equal(t, 1, notify.bookings)

	found, _ := parts.Exists(context.Background(), domain.Target{Kind: domain.TargetCourse, ID: 1}, "kari@example.no")
	assert.True(t, found)
}

func TestPromotePaidCourse(t *testing.T) {
	catalog := &fakeCatalog{courses: map[int64]*domain.CourseInstance{
		2: {ID: 2, Title: "Stage combat", PriceCents: 45000, Active: true},
	}}
	parts := newFakeParticipants()
	wl := newFakeWaitlist()
	co := &fakeCheckout{}
	notify := &fakeNotify{}
	require.NoError(t, wl.Add(context.Background(), &domain.WaitlistEntry{CourseID: 2, Name: "Ola", Email: "ola@example.no"}))

	svc := newTestService(catalog, parts, wl, co, notify)

	res, err := svc.Promote(context.Background(), 2, "ola@example.no", true)
	require.NoError(t, err)

	assert.True(t, res.RequiresPayment)
	assert.Equal(t, "cs_promo", res.SessionID)
	assert.True(t, co.lastTier)

	// the entry leaves the list before any payment confirmation
	assert.Empty(t, wl.entries)

	// nobody is seated yet
	found, _ := parts.Exists(context.Background(), domain.Target{Kind: domain.TargetCourse, ID: 2}, "ola@example.no")
	assert.False(t, found)

	// the offer exists and carries the session
	require.Len(t, wl.offers, 1)
	assert.Equal(t, "cs_promo", wl.attached[wl.offers[0].ID])
	assert.Equal(t, wl.offers[0].ID, co.lastOfferID)

	assert.Equal(t, 0, notify.bookings)
}

func TestPromoteNotOnWaitlist(t *testing.T) {
	catalog := &fakeCatalog{courses: map[int64]*domain.CourseInstance{
		1: {ID: 1, Title: "Improv basics", Active: true},
	}}
	svc := newTestService(catalog, newFakeParticipants(), newFakeWaitlist(), &fakeCheckout{}, &fakeNotify{})

	_, err := svc.Promote(context.Background(), 1, "ghost@example.no", false)
	assert.ErrorIs(t, err, ErrNotOnWaitlist)
}

func TestPromoteUnknownCourse(t *testing.T) {
	svc := newTestService(&fakeCatalog{courses: map[int64]*domain.CourseInstance{}}, newFakeParticipants(), newFakeWaitlist(), &fakeCheckout{}, &fakeNotify{})

	_, err := svc.Promote(context.Background(), 99, "kari@example.no", false)
	assert.ErrorIs(t, err, ErrCourseNotFound)
}

func TestPromoteFreeAlreadySeated(t *testing.T) {
	catalog := &fakeCatalog{courses: map[int64]*domain.CourseInstance{
		1: {ID: 1, Title: "Improv basics", Active: true},
	}}
	parts := newFakeParticipants()
	wl := newFakeWaitlist()
	require.NoError(t, parts.Insert(context.Background(),
		domain.Target{Kind: domain.TargetCourse, ID: 1},
		domain.Participant{Email: "kari@example.no"},
	))
	require.NoError(t, wl.Add(context.Background(), &domain.WaitlistEntry{CourseID: 1, Name: "Kari", Email: "kari@example.no"}))

	svc := newTestService(catalog, parts, wl, &fakeCheckout{}, &fakeNotify{})

	// stale entry cleans up instead of failing
	res, err := svc.Promote(context.Background(), 1, "kari@example.no", false)
	require.NoError(t, err)
	assert.False(t, res.RequiresPayment)
	assert.Empty(t, wl.entries)
}
