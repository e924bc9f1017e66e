package service

import (
	"log/slog"

	"github.com/nordscene/boxoffice/internal/mailer"
	postgres "github.com/nordscene/boxoffice/internal/repository/postgres"
	redis "github.com/nordscene/boxoffice/internal/repository/redis"
	"github.com/nordscene/boxoffice/internal/service/admin"
	"github.com/nordscene/boxoffice/internal/service/booking"
	"github.com/nordscene/boxoffice/internal/service/checkout"
	"github.com/nordscene/boxoffice/internal/service/contacts"
	"github.com/nordscene/boxoffice/internal/service/content"
	"github.com/nordscene/boxoffice/internal/service/notify"
	"github.com/nordscene/boxoffice/internal/service/reconcile"
	"github.com/nordscene/boxoffice/internal/service/scan"
	"github.com/nordscene/boxoffice/internal/service/waitlist"
)

type Services struct {
	Booking   *booking.Service
	Checkout  *checkout.Service
	Reconcile *reconcile.Service
	Waitlist  *waitlist.Service
	Content   *content.Service
	Admin     *admin.Service
	Scan      *scan.Service
	Contacts  *contacts.Service
	Notify    *notify.Service
}

type Config struct {
	Booking  booking.Config
	Checkout checkout.Config
	Content  content.Config
}

// Verifier is the payment-processor surface the reconciler needs.
type Verifier = reconcile.Verifier

// SessionCreator is the payment-processor surface checkout needs.
type SessionCreator = checkout.SessionCreator

func NewServices(
	store *postgres.Store,
	cache *redis.Cache,
	pubsub *redis.AvailabilityPubSub,
	sessions SessionCreator,
	verifier Verifier,
	fetcher content.Fetcher,
	sender mailer.Sender,
	logger *slog.Logger,
	cfg Config,
) *Services {
	notifier := notify.New(sender, logger)

	checkoutSvc := checkout.New(sessions, store.Purchases(), store.Catalog(), logger, cfg.Checkout)

	return &Services{
		Booking:   booking.New(store.Catalog(), store.Participants(), store.Waitlist(), checkoutSvc, notifier, cache, pubsub, logger, cfg.Booking),
		Checkout:  checkoutSvc,
		Reconcile: reconcile.New(verifier, store.Purchases(), store.Participants(), store.Waitlist(), store.Catalog(), notifier, cache, logger),
		Waitlist:  waitlist.New(store.Waitlist(), store.Participants(), store.Catalog(), checkoutSvc, notifier, cache, pubsub, logger),
		Content:   content.New(fetcher, store.Catalog(), cache, logger, cfg.Content),
		Admin:     admin.New(store.Catalog(), store.Participants(), store.Waitlist(), store.Purchases(), store.Contacts(), notifier, cache, pubsub, logger),
		Scan:      scan.New(store.Purchases()),
		Contacts:  contacts.New(store.Contacts(), logger),
		Notify:    notifier,
	}
}
