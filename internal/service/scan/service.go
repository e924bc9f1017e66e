package scan

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/skip2/go-qrcode"

	"github.com/nordscene/boxoffice/internal/domain"
	"github.com/nordscene/boxoffice/internal/repository"
)

const qrSize = 256

// Service handles ticket QR codes and door scanning.
type Service struct {
	purchases repository.PurchaseStore
}

func New(purchases repository.PurchaseStore) *Service {
	return &Service{purchases: purchases}
}

// ScanResult tells the door staff what happened. A repeat scan still
// identifies the ticket so staff can see who scanned it first and when.
type ScanResult struct {
	Admitted     bool
	AlreadyUsed  bool
	FirstScanned *time.Time
	TicketCode   string
	HolderName   string
	HolderEmail  string
	Quantity     int
	ShowID       int64
}

// ScanTicket marks a ticket used. The first scan for a code admits;
// every later scan reports when the code was first used. The mark is a
// conditional update so two doors scanning the same code at once cannot
// both admit.
//
// Returns:
//   - scan.ErrTicketNotFound when the code matches no paid purchase.
func (s *Service) ScanTicket(ctx context.Context, ticketCode string) (*ScanResult, error) {
	const op = "service.scan.ScanTicket"

	p, err := s.purchases.MarkScanned(ctx, ticketCode)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrAlreadyScanned):
			return resultFrom(p, false), nil
		case errors.Is(err, repository.ErrNotFound):
			return nil, fmt.Errorf("%s:%w", op, ErrTicketNotFound)
		default:
			return nil, fmt.Errorf("%s:%w", op, err)
		}
	}

	return resultFrom(p, true), nil
}

// TicketQR renders the PNG a ticket holder presents at the door. Only
// paid purchases get a code; a pending purchase is not a ticket yet.
//
// Returns:
//   - scan.ErrTicketNotFound when the code matches no purchase.
//   - scan.ErrTicketUnpaid when the purchase was never paid.
func (s *Service) TicketQR(ctx context.Context, ticketCode string) ([]byte, error) {
	const op = "service.scan.TicketQR"

	p, err := s.purchases.GetByTicketCode(ctx, ticketCode)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrTicketNotFound)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if p.Status != domain.PaymentPaid {
		return nil, fmt.Errorf("%s:%w", op, ErrTicketUnpaid)
	}

	png, err := qrcode.Encode(p.TicketCode, qrcode.Medium, qrSize)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return png, nil
}

func resultFrom(p *domain.Purchase, admitted bool) *ScanResult {
	return &ScanResult{
		Admitted:     admitted,
		AlreadyUsed:  !admitted,
		FirstScanned: p.ScannedAt,
		TicketCode:   p.TicketCode,
		HolderName:   p.Buyer.Name,
		HolderEmail:  p.Buyer.Email,
		Quantity:     p.Quantity,
		ShowID:       p.TargetID,
	}
}
