// Package test provides testing utilities for the connect client: an
// in-memory implementation of the backend REST API and of the few Stripe
// endpoints called with the publishable key.
package test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/vocdoni/connect-client/api/apicommon"
	"github.com/vocdoni/connect-client/errors"
	"github.com/vocdoni/connect-client/internal"
)

// MinimumChargeCents is the smallest amount the backend accepts.
const MinimumChargeCents = 50

// RecordedRequest is a request received by the fake backend.
type RecordedRequest struct {
	Method         string
	Path           string
	RawQuery       string
	RequestID      string
	IdempotencyKey string
	Body           []byte
}

// Failure is a canned response returned instead of running a handler.
type Failure struct {
	Status int
	Body   string
}

type platformAccount struct {
	id               string
	stripeAccountID  string
	stripeCustomerID string
	name             string
	email            string
	country          string
	created          string
	recipient        bool
	onboarding       bool
	paymentMethods   []apicommon.PaymentMethod
	externalAccounts []apicommon.ExternalAccount
}

type setupIntent struct {
	id        string
	secret    string
	accountID string
	status    string
}

type paymentIntent struct {
	id          string
	secret      string
	senderID    string
	recipientID string
	amount      int64
	currency    string
	status      string
	save        bool
}

// Backend is an in-memory implementation of the Connect demo REST API. It is
// safe for concurrent use.
type Backend struct {
	mu             sync.Mutex
	accounts       map[string]*platformAccount
	order          []string
	setupIntents   map[string]*setupIntent
	paymentIntents map[string]*paymentIntent
	bankTokens     map[string]apicommon.ExternalAccount
	failures       map[string][]Failure
	requests       []RecordedRequest

	router *chi.Mux
}

// NewBackend returns an empty backend.
func NewBackend() *Backend {
	b := &Backend{
		accounts:       make(map[string]*platformAccount),
		setupIntents:   make(map[string]*setupIntent),
		paymentIntents: make(map[string]*paymentIntent),
		bankTokens:     make(map[string]apicommon.ExternalAccount),
		failures:       make(map[string][]Failure),
	}
	b.router = b.initRouter()
	return b
}

// NewBackendServer starts an httptest server for a new backend. The caller
// closes the server.
func NewBackendServer() (*Backend, *httptest.Server) {
	b := NewBackend()
	return b, httptest.NewServer(b)
}

// ServeHTTP implements http.Handler.
func (b *Backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.router.ServeHTTP(w, r)
}

func (b *Backend) initRouter() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(b.recordRequest)

	b.handle(r, http.MethodPost, apicommon.AccountsEndpoint, b.createAccountHandler)
	b.handle(r, http.MethodGet, apicommon.AccountsEndpoint, b.listAccountsHandler)
	b.handle(r, http.MethodGet, apicommon.AccountEndpoint, b.accountHandler)
	b.handle(r, http.MethodDelete, apicommon.AccountEndpoint, b.deleteAccountHandler)
	b.handle(r, http.MethodPost, apicommon.AccountUpgradeEndpoint, b.upgradeToRecipientHandler)
	b.handle(r, http.MethodPost, apicommon.AccountOnboardingLinkEndpoint, b.onboardingLinkHandler)

	b.handle(r, http.MethodPost, apicommon.SetupIntentEndpoint, b.setupIntentHandler)
	b.handle(r, http.MethodGet, apicommon.PaymentMethodsEndpoint, b.listPaymentMethodsHandler)
	b.handle(r, http.MethodDelete, apicommon.PaymentMethodEndpoint, b.deletePaymentMethodHandler)

	b.handle(r, http.MethodPost, apicommon.ExternalAccountsEndpoint, b.createExternalAccountHandler)
	b.handle(r, http.MethodGet, apicommon.ExternalAccountsEndpoint, b.listExternalAccountsHandler)
	b.handle(r, http.MethodDelete, apicommon.ExternalAccountEndpoint, b.deleteExternalAccountHandler)
	b.handle(r, http.MethodPatch, apicommon.ExternalAccountDefaultEndpoint, b.setDefaultExternalAccountHandler)

	b.handle(r, http.MethodPost, apicommon.PayUserEndpoint, b.payUserHandler)
	b.handle(r, http.MethodPost, apicommon.CreatePaymentIntentEndpoint, b.createPaymentIntentHandler)
	return r
}

// handle registers h for method and route, answering with a queued Failure
// when one exists.
func (b *Backend) handle(r chi.Router, method, route string, h http.HandlerFunc) {
	key := method + " " + route
	r.MethodFunc(method, route, func(w http.ResponseWriter, req *http.Request) {
		if f, ok := b.popFailure(key); ok {
			w.WriteHeader(f.Status)
			_, _ = w.Write([]byte(f.Body))
			return
		}
		h(w, req)
	})
}

func (b *Backend) recordRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body []byte
		if r.Body != nil {
			body, _ = io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewReader(body))
		}
		b.mu.Lock()
		b.requests = append(b.requests, RecordedRequest{
			Method:         r.Method,
			Path:           r.URL.Path,
			RawQuery:       r.URL.RawQuery,
			RequestID:      r.Header.Get("X-Request-ID"),
			IdempotencyKey: r.Header.Get("Idempotency-Key"),
			Body:           body,
		})
		b.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

// FailNext makes the next request to method and route (a route template from
// apicommon) answer with status and the raw body.
func (b *Backend) FailNext(method, route string, status int, body string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := method + " " + route
	b.failures[key] = append(b.failures[key], Failure{Status: status, Body: body})
}

func (b *Backend) popFailure(key string) (Failure, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	queue := b.failures[key]
	if len(queue) == 0 {
		return Failure{}, false
	}
	b.failures[key] = queue[1:]
	return queue[0], true
}

// Requests returns a copy of the requests received so far.
func (b *Backend) Requests() []RecordedRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]RecordedRequest(nil), b.requests...)
}

// ResetRequests forgets the recorded requests.
func (b *Backend) ResetRequests() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.requests = nil
}

// AddAccount seeds a platform account and returns its ID.
func (b *Backend) AddAccount(name, email string, recipient bool) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	pa := b.newAccountLocked(name, email, apicommon.DefaultCountry)
	pa.recipient = recipient
	return pa.id
}

// SetOnboarding sets whether the recipient onboarding of the account is
// still pending.
func (b *Backend) SetOnboarding(accountID string, onboarding bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if pa, ok := b.accounts[accountID]; ok {
		pa.onboarding = onboarding
	}
}

// AttachCard seeds a saved card on the account. testCard is one of the
// pm_card_* test payment methods.
func (b *Backend) AttachCard(accountID, testCard string) (apicommon.PaymentMethod, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.attachCardLocked(accountID, testCard)
}

// PaymentIntentStatus returns the status of a payment intent created by the
// backend.
func (b *Backend) PaymentIntentStatus(id string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	pi, ok := b.paymentIntents[id]
	if !ok {
		return "", false
	}
	return pi.status, true
}

func (b *Backend) newAccountLocked(name, email, country string) *platformAccount {
	pa := &platformAccount{
		id:               internal.NewID("plat", 8),
		stripeAccountID:  internal.NewID("acct", 8),
		stripeCustomerID: internal.NewID("cus", 7),
		name:             name,
		email:            email,
		country:          country,
		created:          time.Now().UTC().Format(time.RFC3339),
	}
	b.accounts[pa.id] = pa
	b.order = append(b.order, pa.id)
	return pa
}

func (b *Backend) attachCardLocked(accountID, testCard string) (apicommon.PaymentMethod, error) {
	pa, ok := b.accounts[accountID]
	if !ok {
		return apicommon.PaymentMethod{}, errors.ErrAccountNotFound
	}
	card, ok := testCards[testCard]
	if !ok {
		return apicommon.PaymentMethod{}, errors.ErrPaymentMethodNotFound.With(testCard)
	}
	pm := apicommon.PaymentMethod{
		ID:      internal.NewID("pm", 12),
		Type:    "card",
		Card:    &card,
		Created: time.Now().Unix(),
	}
	pa.paymentMethods = append(pa.paymentMethods, pm)
	return pm, nil
}

// account returns the account or writes the 404 error.
func (b *Backend) accountLocked(w http.ResponseWriter, r *http.Request, notFound errors.Error) (*platformAccount, bool) {
	pa, ok := b.accounts[chi.URLParam(r, apicommon.AccountIDParam)]
	if !ok {
		notFound.Write(w)
		return nil, false
	}
	return pa, true
}

func (pa *platformAccount) listView() apicommon.Account {
	merchant := false
	return apicommon.Account{
		ID:               pa.id,
		StripeAccountID:  pa.stripeAccountID,
		StripeCustomerID: apicommon.StringPtr(pa.stripeCustomerID),
		Email:            apicommon.StringPtr(pa.email),
		DisplayName:      apicommon.StringPtr(pa.name),
		Created:          pa.created,
		IsCustomer:       true,
		IsRecipient:      pa.recipient,
		IsMerchant:       &merchant,
	}
}

func (pa *platformAccount) detailView() apicommon.Account {
	a := pa.listView()
	a.IsMerchant = nil
	onboarding := pa.recipient && pa.onboarding
	a.IsOnboarding = &onboarding
	a.Requirements = json.RawMessage(`{"entries":[]}`)
	a.CustomerCapabilities = map[string]any{
		"automatic_indirect_tax": map[string]any{"status": "active"},
	}
	if pa.recipient {
		status := "active"
		if pa.onboarding {
			status = "restricted"
		}
		a.RecipientCapabilities = recipientCapabilities(status)
	}
	return a
}

func recipientCapabilities(status string) map[string]any {
	return map[string]any{
		"stripe_balance": map[string]any{
			"payouts":          map[string]any{"status": status},
			"stripe_transfers": map[string]any{"status": status},
		},
	}
}

// decodeBody decodes the JSON request body, writing a 422 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		errors.ErrMalformedBody.Write(w)
		return false
	}
	return true
}

// writeFieldErrors answers like a schema validation failure: 422 with a list
// as detail.
func writeFieldErrors(w http.ResponseWriter, fields ...string) {
	type fieldError struct {
		Loc  []string `json:"loc"`
		Msg  string   `json:"msg"`
		Type string   `json:"type"`
	}
	detail := make([]fieldError, 0, len(fields))
	for _, f := range fields {
		detail = append(detail, fieldError{Loc: []string{"body", f}, Msg: "field required", Type: "value_error.missing"})
	}
	apicommon.HTTPWriteJSONStatus(w, http.StatusUnprocessableEntity, map[string]any{"detail": detail})
}

func clientSecret(id string) string {
	return fmt.Sprintf("%s_secret_%s", id, internal.RandomHex(12))
}
