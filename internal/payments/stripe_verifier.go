package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
)

// StripeLogger defines the logging contract for Stripe operations.
type StripeLogger func(ctx context.Context, event string, fields map[string]any)

type stripePaymentMethodAPI interface {
	Get(id string, params *stripe.PaymentMethodParams) (*stripe.PaymentMethod, error)
}

// ErrPaymentMethodInvalid indicates the token does not resolve to a usable
// payment instrument.
var ErrPaymentMethodInvalid = errors.New("stripe: payment method invalid")

// PaymentMethodDetails captures PSP-sourced metadata for a payment instrument.
type PaymentMethodDetails struct {
	Token    string
	Brand    string
	Last4    string
	ExpMonth int
	ExpYear  int
}

// StripeVerifierConfig configures the StripeVerifier.
type StripeVerifierConfig struct {
	APIKey    string
	AccountID string
	Backends  *stripe.Backends
	Logger    StripeLogger
	Clock     func() time.Time

	// API overrides the Stripe client, for tests.
	API stripePaymentMethodAPI
}

// StripeVerifier resolves and validates payment method tokens against Stripe
// before an order is submitted.
type StripeVerifier struct {
	api     stripePaymentMethodAPI
	account string
	clock   func() time.Time
	logger  StripeLogger
}

// NewStripeVerifier constructs a verifier using the provided configuration.
func NewStripeVerifier(cfg StripeVerifierConfig) (*StripeVerifier, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" && cfg.API == nil {
		return nil, errors.New("stripe: api key is required")
	}

	api := cfg.API
	if api == nil {
		sc := client.New(apiKey, cfg.Backends)
		api = sc.PaymentMethods
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &StripeVerifier{
		api:     api,
		account: strings.TrimSpace(cfg.AccountID),
		clock: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
	}, nil
}

// Lookup fetches metadata for the provided token from Stripe.
func (v *StripeVerifier) Lookup(ctx context.Context, token string) (PaymentMethodDetails, error) {
	if v == nil {
		return PaymentMethodDetails{}, errors.New("stripe: verifier is nil")
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return PaymentMethodDetails{}, fmt.Errorf("%w: token is required", ErrPaymentMethodInvalid)
	}

	params := &stripe.PaymentMethodParams{}
	params.Context = ctx
	if v.account != "" {
		params.SetStripeAccount(v.account)
	}

	pm, err := v.api.Get(token, params)
	if err != nil {
		return PaymentMethodDetails{}, fmt.Errorf("stripe: get payment method: %w", err)
	}

	details := PaymentMethodDetails{
		Token: token,
	}
	if pm == nil {
		return details, nil
	}
	if trimmed := strings.TrimSpace(pm.ID); trimmed != "" {
		details.Token = trimmed
	}

	if pm.Type == stripe.PaymentMethodTypeCard && pm.Card != nil {
		details.Brand = strings.ToLower(string(pm.Card.Brand))
		details.Last4 = strings.TrimSpace(pm.Card.Last4)
		details.ExpMonth = int(pm.Card.ExpMonth)
		details.ExpYear = int(pm.Card.ExpYear)
	}

	return details, nil
}

// VerifyPaymentMethod checks that the token resolves to a Stripe payment
// method whose card, when present, has not expired.
func (v *StripeVerifier) VerifyPaymentMethod(ctx context.Context, token string) error {
	details, err := v.Lookup(ctx, token)
	if err != nil {
		return err
	}

	if details.ExpYear != 0 && cardExpired(details, v.clock()) {
		v.logger(ctx, "payments.stripe.method.expired", map[string]any{
			"brand": details.Brand,
			"last4": details.Last4,
		})
		return fmt.Errorf("%w: card expired %02d/%d", ErrPaymentMethodInvalid, details.ExpMonth, details.ExpYear)
	}

	v.logger(ctx, "payments.stripe.method.verified", map[string]any{
		"brand": details.Brand,
		"last4": details.Last4,
	})
	return nil
}

// cardExpired reports whether the card's expiry month has fully elapsed.
func cardExpired(details PaymentMethodDetails, now time.Time) bool {
	if details.ExpYear < now.Year() {
		return true
	}
	if details.ExpYear > now.Year() {
		return false
	}
	return details.ExpMonth < int(now.Month())
}
