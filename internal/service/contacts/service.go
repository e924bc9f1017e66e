package contacts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"

	"github.com/nordscene/boxoffice/internal/domain"
	"github.com/nordscene/boxoffice/internal/repository"
)

var ErrInvalidEmail = errors.New("invalid email address")

// Service handles public newsletter signups.
type Service struct {
	contacts repository.ContactStore
	logger   *slog.Logger
}

func New(contacts repository.ContactStore, logger *slog.Logger) *Service {
	return &Service{contacts: contacts, logger: logger}
}

// Subscribe adds an email to the newsletter list. Subscribing twice is
// not an error; the caller cannot tell a fresh signup from a repeat, so
// the endpoint leaks nothing about who is already on the list.
//
// Returns:
//   - contacts.ErrInvalidEmail when the address does not parse.
func (s *Service) Subscribe(ctx context.Context, email, name string) error {
	const op = "service.contacts.Subscribe"

	email = domain.NormalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("%s:%w", op, ErrInvalidEmail)
	}

	c := domain.NewsletterContact{Email: email, Name: name}
	if err := s.contacts.Subscribe(ctx, &c); err != nil {
		if errors.Is(err, repository.ErrContactExists) {
			return nil
		}
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}
