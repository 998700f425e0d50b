// Package stripe calls the Stripe API directly with a publishable key: bank
// account tokenization and the confirmation of setup and payment intents
// created by the backend. Raw bank details and card confirmation never go
// through the backend.
package stripe

import (
	"context"
	"net/http"
	"strings"

	stripeapi "github.com/stripe/stripe-go/v81"
	stripepaymentintent "github.com/stripe/stripe-go/v81/paymentintent"
	stripesetupintent "github.com/stripe/stripe-go/v81/setupintent"
	stripetoken "github.com/stripe/stripe-go/v81/token"
	"github.com/vocdoni/connect-client/api/apicommon"
	"github.com/vocdoni/connect-client/errors"
	"github.com/vocdoni/connect-client/metrics"
	"go.vocdoni.io/dvote/log"
)

// StatusSucceeded is the intent status of a completed confirmation.
const StatusSucceeded = "succeeded"

const secretSeparator = "_secret_"

// ConfirmResult is the outcome of an intent confirmation.
type ConfirmResult struct {
	ID            string
	Status        string
	PaymentMethod string
}

// Succeeded reports whether the intent reached the succeeded status.
func (r *ConfirmResult) Succeeded() bool {
	return r != nil && r.Status == StatusSucceeded
}

// Client wraps the Stripe API resources reachable with a publishable key.
type Client struct {
	config         *Config
	tokens         stripetoken.Client
	setupIntents   stripesetupintent.Client
	paymentIntents stripepaymentintent.Client
}

// NewClient creates a new Stripe client with the given configuration.
// httpClient may be nil; requests are never retried.
func NewClient(config *Config, httpClient *http.Client) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.ErrMissingConfig.WithErr(err)
	}
	if httpClient == nil {
		timeout := config.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	backendConfig := &stripeapi.BackendConfig{
		HTTPClient:        httpClient,
		MaxNetworkRetries: stripeapi.Int64(0),
		LeveledLogger:     leveledLogger{},
		EnableTelemetry:   stripeapi.Bool(false),
	}
	if config.APIURL != "" {
		backendConfig.URL = stripeapi.String(strings.TrimRight(config.APIURL, "/"))
	}
	backend := stripeapi.GetBackendWithConfig(stripeapi.APIBackend, backendConfig)

	return &Client{
		config:         config,
		tokens:         stripetoken.Client{B: backend, Key: config.PublishableKey},
		setupIntents:   stripesetupintent.Client{B: backend, Key: config.PublishableKey},
		paymentIntents: stripepaymentintent.Client{B: backend, Key: config.PublishableKey},
	}, nil
}

// CreateBankAccountToken tokenizes the bank details and returns the token
// ID, to be sent to the backend. An empty holder type defaults to
// individual.
func (c *Client) CreateBankAccountToken(ctx context.Context, details *apicommon.BankAccountDetails) (string, error) {
	holderType := details.AccountHolderType
	if holderType == "" {
		holderType = apicommon.DefaultAccountHolderType
	}
	params := &stripeapi.TokenParams{
		BankAccount: &stripeapi.BankAccountParams{
			Country:           stripeapi.String(details.Country),
			Currency:          stripeapi.String(details.Currency),
			RoutingNumber:     stripeapi.String(details.RoutingNumber),
			AccountNumber:     stripeapi.String(details.AccountNumber),
			AccountHolderName: stripeapi.String(details.AccountHolderName),
			AccountHolderType: stripeapi.String(holderType),
		},
	}
	params.Context = metrics.WithRoute(ctx, "/v1/tokens")

	token, err := c.tokens.New(params)
	if err != nil {
		return "", wrapError("create_token", errors.ErrTokenization, err)
	}
	if token.ID == "" {
		return "", errors.ErrTokenization
	}
	log.Debugw("bank account tokenized", "token", token.ID)
	return token.ID, nil
}

// ConfirmSetupIntent confirms the setup intent behind clientSecret with the
// given payment method, attaching it to the customer.
func (c *Client) ConfirmSetupIntent(ctx context.Context, clientSecret, paymentMethod string) (*ConfirmResult, error) {
	id, err := IntentIDFromSecret(clientSecret)
	if err != nil {
		return nil, err
	}
	params := &stripeapi.SetupIntentConfirmParams{
		PaymentMethod: stripeapi.String(paymentMethod),
	}
	params.AddExtra("client_secret", clientSecret)
	params.Context = metrics.WithRoute(ctx, "/v1/setup_intents/{intent}/confirm")

	si, err := c.setupIntents.Confirm(id, params)
	if err != nil {
		return nil, wrapError("confirm_setup_intent", errors.ErrStripeRequest, err)
	}
	result := &ConfirmResult{ID: si.ID, Status: string(si.Status)}
	if si.PaymentMethod != nil {
		result.PaymentMethod = si.PaymentMethod.ID
	}
	return result, nil
}

// ConfirmPaymentIntent confirms the payment intent behind clientSecret with
// the given payment method.
func (c *Client) ConfirmPaymentIntent(ctx context.Context, clientSecret, paymentMethod string) (*ConfirmResult, error) {
	id, err := IntentIDFromSecret(clientSecret)
	if err != nil {
		return nil, err
	}
	params := &stripeapi.PaymentIntentConfirmParams{
		PaymentMethod: stripeapi.String(paymentMethod),
	}
	params.AddExtra("client_secret", clientSecret)
	params.Context = metrics.WithRoute(ctx, "/v1/payment_intents/{intent}/confirm")

	pi, err := c.paymentIntents.Confirm(id, params)
	if err != nil {
		return nil, wrapError("confirm_payment_intent", errors.ErrStripeRequest, err)
	}
	result := &ConfirmResult{ID: pi.ID, Status: string(pi.Status)}
	if pi.PaymentMethod != nil {
		result.PaymentMethod = pi.PaymentMethod.ID
	}
	return result, nil
}

// IntentIDFromSecret extracts the intent ID from a client secret of the form
// <id>_secret_<random>.
func IntentIDFromSecret(clientSecret string) (string, error) {
	idx := strings.Index(clientSecret, secretSeparator)
	if idx <= 0 || idx+len(secretSeparator) == len(clientSecret) {
		return "", errors.ErrInvalidSecret
	}
	return clientSecret[:idx], nil
}

// leveledLogger routes the stripe-go log lines to the debug level of the
// application logger.
type leveledLogger struct{}

func (leveledLogger) Debugf(format string, v ...any) { log.Debugf(format, v...) }
func (leveledLogger) Infof(format string, v ...any)  { log.Debugf(format, v...) }
func (leveledLogger) Warnf(format string, v ...any)  { log.Warnf(format, v...) }
func (leveledLogger) Errorf(format string, v ...any) { log.Warnf(format, v...) }
