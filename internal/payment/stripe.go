package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"github.com/stripe/stripe-go/v82/webhook"
)

type Config struct {
	SecretKey     string
	WebhookSecret string
	// Timeout bounds every processor call. Checkout and reconcile paths
	// must fail fast rather than hang a booking request.
	Timeout time.Duration
}

// Client wraps the hosted-checkout processor: session creation, webhook
// signature verification and the fallback status fetch. Constructed once
// in the process entry point and injected.
type Client struct {
	api           *client.API
	webhookSecret string
	timeout       time.Duration
}

func NewClient(cfg Config) *Client {
	api := &client.API{}
	api.Init(cfg.SecretKey, nil)

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &Client{
		api:           api,
		webhookSecret: cfg.WebhookSecret,
		timeout:       timeout,
	}
}

// SessionRequest describes one hosted checkout page: a single line item
// with quantity, plus metadata carrying the local target identifiers.
type SessionRequest struct {
	Title           string
	UnitAmountCents int
	Quantity        int
	Currency        string
	CustomerEmail   string
	SuccessURL      string
	CancelURL       string
	Metadata        map[string]string
}

// Session is the processor's handle on a checkout attempt: its id keys
// the local purchase row, its URL is where the buyer gets redirected.
type Session struct {
	ID  string
	URL string
}

func (c *Client) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	const op = "payment.Client.CreateSession"

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := &stripe.CheckoutSessionParams{
		Mode:          stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:    stripe.String(req.SuccessURL),
		CancelURL:     stripe.String(req.CancelURL),
		CustomerEmail: stripe.String(req.CustomerEmail),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Quantity: stripe.Int64(int64(req.Quantity)),
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(req.Currency),
					UnitAmount: stripe.Int64(int64(req.UnitAmountCents)),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(req.Title),
					},
				},
			},
		},
	}
	params.Context = ctx
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	sess, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &Session{ID: sess.ID, URL: sess.URL}, nil
}

// SessionPaid asks the processor for the current payment status of a
// session. This is the source of truth; a client-supplied success flag
// is never trusted on its own.
func (c *Client) SessionPaid(ctx context.Context, sessionID string) (bool, error) {
	const op = "payment.Client.SessionPaid"

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	sess, err := c.api.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		return false, fmt.Errorf("%s:%w", op, err)
	}

	return sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid, nil
}

// WebhookEvent is the verified payload of a processor notification.
// SessionID is set for checkout.session.completed events.
type WebhookEvent struct {
	ID        string
	Type      string
	SessionID string
}

// ParseWebhook verifies the signature header and extracts the session id
// for completed-checkout events. Unverifiable payloads are rejected.
func (c *Client) ParseWebhook(payload []byte, sigHeader string) (*WebhookEvent, error) {
	const op = "payment.Client.ParseWebhook"

	event, err := webhook.ConstructEvent(payload, sigHeader, c.webhookSecret)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	out := &WebhookEvent{ID: event.ID, Type: string(event.Type)}

	if event.Type == "checkout.session.completed" {
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
		out.SessionID = sess.ID
	}

	return out, nil
}
