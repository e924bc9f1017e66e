package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nordscene/boxoffice/internal/domain"
	"github.com/nordscene/boxoffice/internal/mailer"
)

// Service dispatches transactional email. Every send is best-effort:
// failures are logged and swallowed, a booking never fails because its
// confirmation could not be delivered. Sending the same confirmation
// more than once is harmless.
type Service struct {
	sender mailer.Sender
	logger *slog.Logger
}

func New(sender mailer.Sender, logger *slog.Logger) *Service {
	return &Service{sender: sender, logger: logger}
}

func (s *Service) SendBookingConfirmation(ctx context.Context, buyer domain.Buyer, courseTitle string) {
	body := fmt.Sprintf(
		"Hei %s,\n\nyour spot in %q is confirmed. We look forward to seeing you.\n\nNordscene",
		buyer.Name, courseTitle,
	)

	s.send(ctx, mailer.Message{
		To:      buyer.Email,
		Subject: "Booking confirmed: " + courseTitle,
		Body:    body,
	})
}

func (s *Service) SendWaitlistConfirmation(ctx context.Context, buyer domain.Buyer, courseTitle string, position int) {
	body := fmt.Sprintf(
		"Hei %s,\n\n%q is currently full. You are number %d on the waitlist and we will contact you as soon as a spot opens up.\n\nNordscene",
		buyer.Name, courseTitle, position,
	)

	s.send(ctx, mailer.Message{
		To:      buyer.Email,
		Subject: "Waitlist: " + courseTitle,
		Body:    body,
	})
}

func (s *Service) SendTicketConfirmation(ctx context.Context, purchase domain.Purchase, showTitle string) {
	body := fmt.Sprintf(
		"Hei %s,\n\nthank you for your purchase: %d ticket(s) for %q.\n\nShow this code at the entrance:\n\n    %s\n\nNordscene",
		purchase.Buyer.Name, purchase.Quantity, showTitle, purchase.TicketCode,
	)

	s.send(ctx, mailer.Message{
		To:      purchase.Buyer.Email,
		Subject: "Your tickets: " + showTitle,
		Body:    body,
	})
}

func (s *Service) send(ctx context.Context, msg mailer.Message) {
	if err := s.sender.Send(ctx, msg); err != nil {
		s.logger.Error("email dispatch failed",
			"to", msg.To,
			"subject", msg.Subject,
			"error", err,
		)
	}
}
