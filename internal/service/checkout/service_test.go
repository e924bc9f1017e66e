package checkout

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nordscene/boxoffice/internal/domain"
	"github.com/nordscene/boxoffice/internal/payment"
	"github.com/nordscene/boxoffice/internal/repository"
)

type fakeSessions struct {
	lastReq payment.SessionRequest
	err     error
}

func (f *fakeSessions) CreateSession(_ context.Context, req payment.SessionRequest) (*payment.Session, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &payment.Session{ID: "cs_test_abc", URL: "https://pay.example/cs_test_abc"}, nil
}

type fakePurchases struct {
	created   []*domain.Purchase
	createErr error
}

func (f *fakePurchases) Create(_ context.Context, p *domain.Purchase) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, p)
	return nil
}

func (f *fakePurchases) GetBySession(context.Context, string) (*domain.Purchase, error) {
	return nil, repository.ErrUnknownSession
}
func (f *fakePurchases) MarkPaid(context.Context, string) (bool, error) { return false, nil }
func (f *fakePurchases) MarkScanned(context.Context, string) (*domain.Purchase, error) {
	return nil, repository.ErrNotFound
}
func (f *fakePurchases) GetByTicketCode(context.Context, string) (*domain.Purchase, error) {
	return nil, repository.ErrNotFound
}
func (f *fakePurchases) ListByStatus(context.Context, domain.PaymentStatus, int, int) ([]domain.Purchase, error) {
	return nil, nil
}

type fakeShowCatalog struct {
	shows    map[int64]*domain.Show
	codes    map[string]*domain.DiscountCode
	usageErr error
}

func (f *fakeShowCatalog) GetShow(_ context.Context, id int64) (*domain.Show, error) {
	s, ok := f.shows[id]
	if !ok {
		return nil, repository.ErrTargetNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeShowCatalog) GetDiscountCode(_ context.Context, code string) (*domain.DiscountCode, error) {
	d, ok := f.codes[code]
	if !ok {
		return nil, repository.ErrCodeNotFound
	}
	cp := *d
	return &cp, nil
}

func (f *fakeShowCatalog) IncrementCodeUsage(_ context.Context, code string) error {
	if f.usageErr != nil {
		return f.usageErr
	}
	d, ok := f.codes[code]
	if !ok {
		return repository.ErrCodeNotFound
	}
	d.UsedCount++
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func intPtr(v int) *int { return &v }

func newTestService(sessions *fakeSessions, purchases *fakePurchases, catalog *fakeShowCatalog) *Service {
	return New(sessions, purchases, catalog, testLogger(), Config{
		SuccessURL: "https://nordscene.example/takk?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  "https://nordscene.example/avbrutt",
	})
}

func activeShow() *domain.Show {
	return &domain.Show{ID: 7, Slug: "peer-gynt", Title: "Peer Gynt", PriceCents: 1000, DiscountPriceCents: intPtr(800), Active: true}
}

func TestShowCheckoutTotals(t *testing.T) {
	sessions := &fakeSessions{}
	purchases := &fakePurchases{}
	catalog := &fakeShowCatalog{shows: map[int64]*domain.Show{7: activeShow()}}
	svc := newTestService(sessions, purchases, catalog)

	res, err := svc.CreateShowCheckout(context.Background(), 7, domain.Buyer{Name: "Kari", Email: "kari@example.no"}, 3, false, "")
	require.NoError(t, err)

	assert.Equal(t, "cs_test_abc", res.SessionID)
	assert.Equal(t, 3000, sessions.lastReq.UnitAmountCents)

	require.Len(t, purchases.created, 1)
	p := purchases.created[0]
	assert.Equal(t, domain.PaymentPending, p.Status)
	assert.Equal(t, 3000, p.AmountCents)
	assert.Equal(t, 3, p.Quantity)
	assert.Equal(t, "cs_test_abc", p.SessionID)
	assert.NotEmpty(t, p.TicketCode)
}

func TestShowCheckoutDiscountTier(t *testing.T) {
	sessions := &fakeSessions{}
	purchases := &fakePurchases{}
	catalog := &fakeShowCatalog{shows: map[int64]*domain.Show{7: activeShow()}}
	svc := newTestService(sessions, purchases, catalog)

	_, err := svc.CreateShowCheckout(context.Background(), 7, domain.Buyer{Name: "Kari", Email: "kari@example.no"}, 2, true, "")
	require.NoError(t, err)

	assert.Equal(t, 1600, purchases.created[0].AmountCents)
}

func TestShowCheckoutPercentageCode(t *testing.T) {
	sessions := &fakeSessions{}
	purchases := &fakePurchases{}
	catalog := &fakeShowCatalog{
		shows: map[int64]*domain.Show{7: activeShow()},
		codes: map[string]*domain.DiscountCode{
			"VENN10": {Code: "VENN10", Type: domain.DiscountPercentage, Amount: 10, Active: true},
		},
	}
	svc := newTestService(sessions, purchases, catalog)

	// 10% of 1000 is exactly 100
	_, err := svc.CreateShowCheckout(context.Background(), 7, domain.Buyer{Name: "Kari", Email: "kari@example.no"}, 1, false, "VENN10")
	require.NoError(t, err)

	assert.Equal(t, 900, purchases.created[0].AmountCents)
	assert.Equal(t, 1, catalog.codes["VENN10"].UsedCount)
}

func TestShowCheckoutFixedCodeClamps(t *testing.T) {
	sessions := &fakeSessions{}
	purchases := &fakePurchases{}
	catalog := &fakeShowCatalog{
		shows: map[int64]*domain.Show{7: activeShow()},
		codes: map[string]*domain.DiscountCode{
			"MEGA": {Code: "MEGA", Type: domain.DiscountFixed, Amount: 5000, Active: true},
		},
	}
	svc := newTestService(sessions, purchases, catalog)

	_, err := svc.CreateShowCheckout(context.Background(), 7, domain.Buyer{Name: "Kari", Email: "kari@example.no"}, 1, false, "MEGA")
	require.NoError(t, err)

	assert.Equal(t, 0, purchases.created[0].AmountCents)
}

func TestShowCheckoutInvalidCodes(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	one := 1
	catalog := &fakeShowCatalog{
		shows: map[int64]*domain.Show{7: activeShow()},
		codes: map[string]*domain.DiscountCode{
			"EXPIRED": {Code: "EXPIRED", Type: domain.DiscountPercentage, Amount: 10, Active: true, ValidUntil: &past},
			"USEDUP":  {Code: "USEDUP", Type: domain.DiscountPercentage, Amount: 10, Active: true, MaxUses: &one, UsedCount: 1},
		},
	}
	svc := newTestService(&fakeSessions{}, &fakePurchases{}, catalog)
	buyer := domain.Buyer{Name: "Kari", Email: "kari@example.no"}

	_, err := svc.CreateShowCheckout(context.Background(), 7, buyer, 1, false, "NOPE")
	assert.ErrorIs(t, err, ErrInvalidCode)

	_, err = svc.CreateShowCheckout(context.Background(), 7, buyer, 1, false, "EXPIRED")
	assert.ErrorIs(t, err, ErrInvalidCode)

	_, err = svc.CreateShowCheckout(context.Background(), 7, buyer, 1, false, "USEDUP")
	assert.ErrorIs(t, err, ErrInvalidCode)
}

func TestShowCheckoutExhaustedOnIncrement(t *testing.T) {
	catalog := &fakeShowCatalog{
		shows: map[int64]*domain.Show{7: activeShow()},
		codes: map[string]*domain.DiscountCode{
			"RACE": {Code: "RACE", Type: domain.DiscountPercentage, Amount: 10, Active: true},
		},
		usageErr: repository.ErrCodeExhausted,
	}
	svc := newTestService(&fakeSessions{}, &fakePurchases{}, catalog)

	// the guarded increment lost the race for the last use
	_, err := svc.CreateShowCheckout(context.Background(), 7, domain.Buyer{Name: "Kari", Email: "kari@example.no"}, 1, false, "RACE")
	assert.ErrorIs(t, err, ErrInvalidCode)
}

func TestShowCheckoutValidation(t *testing.T) {
	catalog := &fakeShowCatalog{shows: map[int64]*domain.Show{
		7: activeShow(),
		8: {ID: 8, Title: "Dark stage", PriceCents: 1000, Active: false},
	}}
	svc := newTestService(&fakeSessions{}, &fakePurchases{}, catalog)
	buyer := domain.Buyer{Name: "Kari", Email: "kari@example.no"}

	_, err := svc.CreateShowCheckout(context.Background(), 7, buyer, 0, false, "")
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = svc.CreateShowCheckout(context.Background(), 99, buyer, 1, false, "")
	assert.ErrorIs(t, err, ErrShowNotFound)

	_, err = svc.CreateShowCheckout(context.Background(), 8, buyer, 1, false, "")
	assert.ErrorIs(t, err, ErrShowInactive)
}

func TestProcessorFailure(t *testing.T) {
	sessions := &fakeSessions{err: errors.New("processor timeout")}
	purchases := &fakePurchases{}
	catalog := &fakeShowCatalog{shows: map[int64]*domain.Show{7: activeShow()}}
	svc := newTestService(sessions, purchases, catalog)

	_, err := svc.CreateShowCheckout(context.Background(), 7, domain.Buyer{Name: "Kari", Email: "kari@example.no"}, 1, false, "")
	assert.ErrorIs(t, err, ErrProcessor)
	assert.Empty(t, purchases.created)
}

func TestOrphanedSessionNotRetried(t *testing.T) {
	sessions := &fakeSessions{}
	purchases := &fakePurchases{createErr: errors.New("db down")}
	catalog := &fakeShowCatalog{shows: map[int64]*domain.Show{7: activeShow()}}
	svc := newTestService(sessions, purchases, catalog)

	_, err := svc.CreateShowCheckout(context.Background(), 7, domain.Buyer{Name: "Kari", Email: "kari@example.no"}, 1, false, "")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrProcessor)
	assert.Empty(t, purchases.created)
}

func TestCourseCheckoutLinksOffer(t *testing.T) {
	sessions := &fakeSessions{}
	purchases := &fakePurchases{}
	catalog := &fakeShowCatalog{}
	svc := newTestService(sessions, purchases, catalog)

	course := &domain.CourseInstance{ID: 3, Title: "Stage combat", PriceCents: 45000, DiscountPriceCents: intPtr(40000), Active: true}
	entry := &domain.WaitlistEntry{CourseID: 3, Name: "Ola", Email: "ola@example.no"}

	res, err := svc.CreatePromotionCheckout(context.Background(), course, entry, true, 42)
	require.NoError(t, err)
	assert.Equal(t, "cs_test_abc", res.SessionID)

	require.Len(t, purchases.created, 1)
	p := purchases.created[0]
	require.NotNil(t, p.OfferID)
	assert.Equal(t, int64(42), *p.OfferID)
	assert.Equal(t, 40000, p.AmountCents)
	assert.Equal(t, "ola@example.no", p.Buyer.Email)
}
