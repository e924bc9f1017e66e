package scan

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nordscene/boxoffice/internal/domain"
	"github.com/nordscene/boxoffice/internal/repository"
)

type fakePurchases struct {
	mu        sync.Mutex
	purchases map[string]*domain.Purchase
}

func newFakePurchases(ps ...*domain.Purchase) *fakePurchases {
	f := &fakePurchases{purchases: make(map[string]*domain.Purchase)}
	for _, p := range ps {
		f.purchases[p.TicketCode] = p
	}
	return f
}

func (f *fakePurchases) Create(context.Context, *domain.Purchase) error { return nil }

func (f *fakePurchases) GetBySession(context.Context, string) (*domain.Purchase, error) {
	return nil, repository.ErrUnknownSession
}

func (f *fakePurchases) MarkPaid(context.Context, string) (bool, error) { return false, nil }

func (f *fakePurchases) MarkScanned(_ context.Context, ticketCode string) (*domain.Purchase, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.purchases[ticketCode]
	if !ok || p.Status != domain.PaymentPaid {
		return nil, repository.ErrNotFound
	}
	if p.ScannedAt != nil {
		cp := *p
		return &cp, repository.ErrAlreadyScanned
	}
	now := time.Now()
	p.ScannedAt = &now
	cp := *p
	return &cp, nil
}

func (f *fakePurchases) GetByTicketCode(_ context.Context, ticketCode string) (*domain.Purchase, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.purchases[ticketCode]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakePurchases) ListByStatus(context.Context, domain.PaymentStatus, int, int) ([]domain.Purchase, error) {
	return nil, nil
}

func paidTicket(code string) *domain.Purchase {
	return &domain.Purchase{
		SessionID:  "cs_" + code,
		Kind:       domain.TargetShow,
		TargetID:   7,
		Buyer:      domain.Buyer{Name: "Kari Nordmann", Email: "kari@example.no"},
		Quantity:   2,
		Status:     domain.PaymentPaid,
		TicketCode: code,
	}
}

func TestScanAdmitsOnce(t *testing.T) {
	purchases := newFakePurchases(paidTicket("TIX-AAAA"))
	svc := New(purchases)

	first, err := svc.ScanTicket(context.Background(), "TIX-AAAA")
	require.NoError(t, err)
	assert.True(t, first.Admitted)
	assert.False(t, first.AlreadyUsed)
	assert.Equal(t, "Kari Nordmann", first.HolderName)
	assert.Equal(t, 2, first.Quantity)
	assert.Equal(t, int64(7), first.ShowID)

	second, err := svc.ScanTicket(context.Background(), "TIX-AAAA")
	require.NoError(t, err)
	assert.False(t, second.Admitted)
	assert.True(t, second.AlreadyUsed)
	require.NotNil(t, second.FirstScanned)
	assert.Equal(t, "TIX-AAAA", second.TicketCode)
}

func TestScanUnknownCode(t *testing.T) {
	svc := New(newFakePurchases())

	_, err := svc.ScanTicket(context.Background(), "TIX-NOPE")
	assert.ErrorIs(t, err, ErrTicketNotFound)
}

func TestScanUnpaidTicket(t *testing.T) {
	pending := paidTicket("TIX-BBBB")
	pending.Status = domain.PaymentPending
	svc := New(newFakePurchases(pending))

	// a pending purchase is not a ticket, so the code does not match
	_, err := svc.ScanTicket(context.Background(), "TIX-BBBB")
	assert.ErrorIs(t, err, ErrTicketNotFound)
}

func TestTicketQR(t *testing.T) {
	svc := New(newFakePurchases(paidTicket("TIX-CCCC")))

	png, err := svc.TicketQR(context.Background(), "TIX-CCCC")
	require.NoError(t, err)
	assert.NotEmpty(t, png)
	// PNG signature
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, png[:4])
}

func TestTicketQRUnpaid(t *testing.T) {
	pending := paidTicket("TIX-DDDD")
	pending.Status = domain.PaymentPending
	svc := New(newFakePurchases(pending))

	_, err := svc.TicketQR(context.Background(), "TIX-DDDD")
	assert.ErrorIs(t, err, ErrTicketUnpaid)
}

func TestTicketQRUnknown(t *testing.T) {
	svc := New(newFakePurchases())

	_, err := svc.TicketQR(context.Background(), "TIX-EEEE")
	assert.ErrorIs(t, err, ErrTicketNotFound)
}
