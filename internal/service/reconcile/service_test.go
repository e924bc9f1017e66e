package reconcile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nordscene/boxoffice/internal/domain"
	"github.com/nordscene/boxoffice/internal/repository"
)

type fakeVerifier struct {
	paid map[string]bool
	err  error
}

func (f *fakeVerifier) SessionPaid(_ context.Context, sessionID string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.paid[sessionID], nil
}

type fakePurchases struct {
	mu        sync.Mutex
	bySession map[string]*domain.Purchase
}

func newFakePurchases(purchases ...*domain.Purchase) *fakePurchases {
	f := &fakePurchases{bySession: make(map[string]*domain.Purchase)}
	for _, p := range purchases {
		f.bySession[p.SessionID] = p
	}
	return f
}

func (f *fakePurchases) Create(_ context.Context, p *domain.Purchase) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bySession[p.SessionID] = p
	return nil
}

func (f *fakePurchases) GetBySession(_ context.Context, sessionID string) (*domain.Purchase, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.bySession[sessionID]
	if !ok {
		return nil, repository.ErrUnknownSession
	}
	cp := *p
	return &cp, nil
}

// MarkPaid mirrors the conditional update: exactly one caller wins the
// pending-to-paid transition.
func (f *fakePurchases) MarkPaid(_ context.Context, sessionID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.bySession[sessionID]
	if !ok || p.Status != domain.PaymentPending {
		return false, nil
	}
	p.Status = domain.PaymentPaid
	return true, nil
}

func (f *fakePurchases) MarkScanned(context.Context, string) (*domain.Purchase, error) {
	return nil, repository.ErrNotFound
}
func (f *fakePurchases) GetByTicketCode(context.Context, string) (*domain.Purchase, error) {
	return nil, repository.ErrNotFound
}
func (f *fakePurchases) ListByStatus(context.Context, domain.PaymentStatus, int, int) ([]domain.Purchase, error) {
	return nil, nil
}

type fakeParticipants struct {
	mu        sync.Mutex
	seats     map[string]map[string]struct{}
	existsErr error
}

func newFakeParticipants() *fakeParticipants {
	return &fakeParticipants{seats: make(map[string]map[string]struct{})}
}

func targetKey(t domain.Target) string {
	return fmt.Sprintf("%s:%d", t.Kind, t.ID)
}

func (f *fakeParticipants) Insert(_ context.Context, target domain.Target, p domain.Participant) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := targetKey(target)
	if f.seats[k] == nil {
		f.seats[k] = make(map[string]struct{})
	}
	if _, ok := f.seats[k][p.Email]; ok {
		return repository.ErrConflict
	}
	f.seats[k][p.Email] = struct{}{}
	return nil
}

func (f *fakeParticipants) Exists(_ context.Context, target domain.Target, email string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.existsErr != nil {
		return false, f.existsErr
	}
	_, ok := f.seats[targetKey(target)][email]
	return ok, nil
}

func (f *fakeParticipants) Count(_ context.Context, target domain.Target) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.seats[targetKey(target)]), nil
}

type fakeWaitlist struct {
	mu         sync.Mutex
	entries    map[string]struct{}
	offersPaid []int64
}

func newFakeWaitlist() *fakeWaitlist {
	return &fakeWaitlist{entries: make(map[string]struct{})}
}

func wlKey(courseID int64, email string) string {
	return fmt.Sprintf("%d:%s", courseID, email)
}

func (f *fakeWaitlist) Add(_ context.Context, e *domain.WaitlistEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[wlKey(e.CourseID, e.Email)] = struct{}{}
	return nil
}

func (f *fakeWaitlist) Get(context.Context, int64, string) (*domain.WaitlistEntry, error) {
	return nil, repository.ErrNotFound
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

func (f *fakeWaitlist) CreateOffer(context.Context, *domain.WaitlistOffer) error { return nil }
func (f *fakeWaitlist) AttachOfferSession(context.Context, int64, string) error  { return nil }

func (f *fakeWaitlist) MarkOfferPaid(_ context.Context, offerID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.offersPaid = append(f.offersPaid, offerID)
	return nil
}

type fakeCatalog struct{}

func (fakeCatalog) GetCourse(_ context.Context, id int64) (*domain.CourseInstance, error) {
	return &domain.CourseInstance{ID: id, Title: "Improv basics"}, nil
}

func (fakeCatalog) GetShow(_ context.Context, id int64) (*domain.Show, error) {
	return &domain.Show{ID: id, Title: "Peer Gynt"}, nil
}

type fakeNotify struct {
	mu      sync.Mutex
	courses int
	shows   int
}

func (f *fakeNotify) SendBookingConfirmation(context.Context, domain.Buyer, string) {
	f.mu.Lock()
	f.courses++
	f.mu.Unlock()
}

func (f *fakeNotify) SendTicketConfirmation(context.Context, domain.Purchase, string) {
	f.mu.Lock()
	f.shows++
	f.mu.Unlock()
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func pendingCoursePurchase(sessionID string) *domain.Purchase {
	return &domain.Purchase{
		Kind:        domain.TargetCourse,
		TargetID:    1,
		Buyer:       domain.Buyer{Name: "Kari", Email: "kari@example.no"},
		Quantity:    1,
		AmountCents: 45000,
		SessionID:   sessionID,
		Status:      domain.PaymentPending,
		TicketCode:  "tc-1",
	}
}

func newTestService(v *fakeVerifier, purchases *fakePurchases, parts *fakeParticipants, wl *fakeWaitlist, n *fakeNotify) *Service {
	return New(v, purchases, parts, wl, fakeCatalog{}, n, nil, testLogger())
}

func TestReconcileHappyPath(t *testing.T) {
	purchases := newFakePurchases(pendingCoursePurchase("cs_1"))
	parts := newFakeParticipants()
	notify := &fakeNotify{}
	svc := newTestService(&fakeVerifier{paid: map[string]bool{"cs_1": true}}, purchases, parts, newFakeWaitlist(), notify)

	sum, err := svc.Reconcile(context.Background(), "cs_1")
	require.NoError(t, err)

	assert.True(t, sum.Confirmed)
	assert.False(t, sum.AlreadyProcessed)
	assert.Equal(t, "tc-1", sum.TicketCode)

	n, _ := parts.Count(context.Background(), domain.Target{Kind: domain.TargetCourse, ID: 1})
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, notify.courses)
}

func TestReconcileRepeatedCallsOneParticipant(t *testing.T) {
	purchases := newFakePurchases(pendingCoursePurchase("cs_1"))
	parts := newFakeParticipants()
	notify := &fakeNotify{}
	svc := newTestService(&fakeVerifier{paid: map[string]bool{"cs_1": true}}, purchases, parts, newFakeWaitlist(), notify)

	for i := 0; i < 5; i++ {
		sum, err := svc.Reconcile(context.Background(), "cs_1")
		require.NoError(t, err)
		assert.True(t, sum.Confirmed)
		if i > 0 {
			assert.True(t, sum.AlreadyProcessed)
		}
	}

	n, _ := parts.Count(context.Background(), domain.Target{Kind: domain.TargetCourse, ID: 1})
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, notify.courses)
}

func TestReconcileConcurrentRace(t *testing.T) {
	purchases := newFakePurchases(pendingCoursePurchase("cs_1"))
	parts := newFakeParticipants()
	notify := &fakeNotify{}
	svc := newTestService(&fakeVerifier{paid: map[string]bool{"cs_1": true}}, purchases, parts, newFakeWaitlist(), notify)

	const workers = 16
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_, err := svc.Reconcile(context.Background(), "cs_1")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	n, _ := parts.Count(context.Background(), domain.Target{Kind: domain.TargetCourse, ID: 1})
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, notify.courses)
}

func TestReconcileUnpaidSessionNoOp(t *testing.T) {
	purchases := newFakePurchases(pendingCoursePurchase("cs_1"))
	parts := newFakeParticipants()
	notify := &fakeNotify{}
	svc := newTestService(&fakeVerifier{paid: map[string]bool{}}, purchases, parts, newFakeWaitlist(), notify)

	sum, err := svc.Reconcile(context.Background(), "cs_1")
	require.NoError(t, err)

	assert.False(t, sum.Confirmed)

	p, _ := purchases.GetBySession(context.Background(), "cs_1")
	assert.Equal(t, domain.PaymentPending, p.Status)

	n, _ := parts.Count(context.Background(), domain.Target{Kind: domain.TargetCourse, ID: 1})
	assert.Equal(t, 0, n)
	assert.Equal(t, 0, notify.courses)
}

func TestReconcileUnknownSession(t *testing.T) {
	purchases := newFakePurchases()
	svc := newTestService(&fakeVerifier{paid: map[string]bool{"cs_ghost": true}}, purchases, newFakeParticipants(), newFakeWaitlist(), &fakeNotify{})

	_, err := svc.Reconcile(context.Background(), "cs_ghost")
	assert.ErrorIs(t, err, ErrUnknownSession)
}

func TestReconcileProcessorDown(t *testing.T) {
	purchases := newFakePurchases(pendingCoursePurchase("cs_1"))
	svc := newTestService(&fakeVerifier{err: errors.New("timeout")}, purchases, newFakeParticipants(), newFakeWaitlist(), &fakeNotify{})

	_, err := svc.Reconcile(context.Background(), "cs_1")
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestReconcileSettlesWaitlistOffer(t *testing.T) {
	offerID := int64(42)
	p := pendingCoursePurchase("cs_1")
	p.OfferID = &offerID

	purchases := newFakePurchases(p)
	parts := newFakeParticipants()
	wl := newFakeWaitlist()
	require.NoError(t, wl.Add(context.Background(), &domain.WaitlistEntry{CourseID: 1, Email: "kari@example.no"}))

	svc := newTestService(&fakeVerifier{paid: map[string]bool{"cs_1": true}}, purchases, parts, wl, &fakeNotify{})

	_, err := svc.Reconcile(context.Background(), "cs_1")
	require.NoError(t, err)

	assert.Equal(t, []int64{42}, wl.offersPaid)
	assert.Empty(t, wl.entries)
}

func TestReconcileDuplicateGuardFailsOpen(t *testing.T) {
	purchases := newFakePurchases(pendingCoursePurchase("cs_1"))
	parts := newFakeParticipants()
	parts.existsErr = errors.New("store down")
	svc := newTestService(&fakeVerifier{paid: map[string]bool{"cs_1": true}}, purchases, parts, newFakeWaitlist(), &fakeNotify{})

	sum, err := svc.Reconcile(context.Background(), "cs_1")
	require.NoError(t, err)
	assert.True(t, sum.Confirmed)

	// insert still went through despite the failed existence check
	parts.existsErr = nil
	found, _ := parts.Exists(context.Background(), domain.Target{Kind: domain.TargetCourse, ID: 1}, "kari@example.no")
	assert.True(t, found)
}

func TestReconcileShowSendsTicketConfirmation(t *testing.T) {
	p := &domain.Purchase{
		Kind:        domain.TargetShow,
		TargetID:    7,
		Buyer:       domain.Buyer{Name: "Ola", Email: "ola@example.no"},
		Quantity:    2,
		AmountCents: 2000,
		SessionID:   "cs_show",
		Status:      domain.PaymentPending,
		TicketCode:  "tc-7",
	}
	purchases := newFakePurchases(p)
	notify := &fakeNotify{}
	svc := newTestService(&fakeVerifier{paid: map[string]bool{"cs_show": true}}, purchases, newFakeParticipants(), newFakeWaitlist(), notify)

	sum, err := svc.Reconcile(context.Background(), "cs_show")
	require.NoError(t, err)

	assert.True(t, sum.Confirmed)
	assert.Equal(t, 1, notify.shows)
	assert.Equal(t, 0, notify.courses)
}
