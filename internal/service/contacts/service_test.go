package contacts

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nordscene/boxoffice/internal/domain"
	"github.com/nordscene/boxoffice/internal/repository"
)

type fakeContacts struct {
	subscribed map[string]domain.NewsletterContact
}

func newFakeContacts() *fakeContacts {
	return &fakeContacts{subscribed: make(map[string]domain.NewsletterContact)}
}

func (f *fakeContacts) Subscribe(_ context.Context, c *domain.NewsletterContact) error {
	if _, ok := f.subscribed[c.Email]; ok {
		return repository.ErrContactExists
	}
	f.subscribed[c.Email] = *c
	return nil
}

func (f *fakeContacts) List(context.Context, int, int) ([]domain.NewsletterContact, error) {
	return nil, nil
}

func (f *fakeContacts) Remove(context.Context, string) error { return nil }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSubscribe(t *testing.T) {
	store := newFakeContacts()
	svc := New(store, testLogger())

	require.NoError(t, svc.Subscribe(context.Background(), "Kari@Example.NO", "Kari Nordmann"))

	c, ok := store.subscribed["kari@example.no"]
	require.True(t, ok, "email should be stored normalized")
	assert.Equal(t, "Kari Nordmann", c.Name)
}

func TestSubscribeRepeatIsSilent(t *testing.T) {
	store := newFakeContacts()
	svc := New(store, testLogger())

	require.NoError(t, svc.Subscribe(context.Background(), "kari@example.no", "Kari"))
	assert.NoError(t, svc.Subscribe(context.Background(), "kari@example.no", "Kari"))
	assert.Len(t, store.subscribed, 1)
}

func TestSubscribeInvalidEmail(t *testing.T) {
	svc := New(newFakeContacts(), testLogger())

	assert.ErrorIs(t, svc.Subscribe(context.Background(), "not-an-address", ""), ErrInvalidEmail)
	assert.ErrorIs(t, svc.Subscribe(context.Background(), "", ""), ErrInvalidEmail)
}
