package test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/vocdoni/connect-client/api/apicommon"
	"github.com/vocdoni/connect-client/internal"
)

// TestBankName is the bank name of every tokenized test bank account.
const TestBankName = "STRIPE TEST BANK"

var nineDigits = regexp.MustCompile(`^\d{9}$`)

// StripeAPI serves the Stripe endpoints the client calls with a publishable
// key: bank account tokens and intent confirmation. Tokens and confirmed
// cards are handed to the Backend so the two fakes behave as one system.
type StripeAPI struct {
	backend *Backend
	router  *chi.Mux
}

// NewStripeAPI returns a fake Stripe API linked to backend.
func NewStripeAPI(backend *Backend) *StripeAPI {
	s := &StripeAPI{backend: backend}
	r := chi.NewRouter()
	r.Use(s.authenticate)
	r.Post("/v1/tokens", s.createTokenHandler)
	r.Post("/v1/setup_intents/{intentId}/confirm", s.confirmSetupIntentHandler)
	r.Post("/v1/payment_intents/{intentId}/confirm", s.confirmPaymentIntentHandler)
	s.router = r
	return s
}

// NewStripeServer starts an httptest server for a fake Stripe API linked to
// backend. The caller closes the server.
func NewStripeServer(backend *Backend) *httptest.Server {
	return httptest.NewServer(NewStripeAPI(backend))
}

// ServeHTTP implements http.Handler.
func (s *StripeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

type stripeErrorBody struct {
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
	Param   string `json:"param,omitempty"`
}

func writeStripeError(w http.ResponseWriter, status int, e stripeErrorBody) {
	apicommon.HTTPWriteJSONStatus(w, status, map[string]any{"error": e})
}

func (*StripeAPI) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !strings.HasPrefix(key, "pk_") {
			writeStripeError(w, http.StatusUnauthorized, stripeErrorBody{
				Type:    "invalid_request_error",
				Message: "Invalid API Key provided",
			})
			return
		}
		if err := r.ParseForm(); err != nil {
			writeStripeError(w, http.StatusBadRequest, stripeErrorBody{Type: "invalid_request_error", Message: err.Error()})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *StripeAPI) createTokenHandler(w http.ResponseWriter, r *http.Request) {
	form := r.PostForm
	country := form.Get("bank_account[country]")
	routing := form.Get("bank_account[routing_number]")
	number := form.Get("bank_account[account_number]")
	switch {
	case country == "":
		writeStripeError(w, http.StatusBadRequest, stripeErrorBody{
			Type: "invalid_request_error", Code: "parameter_missing",
			Message: "Missing required param: bank_account[country].", Param: "bank_account[country]",
		})
		return
	case country == apicommon.DefaultCountry && !nineDigits.MatchString(routing):
		writeStripeError(w, http.StatusBadRequest, stripeErrorBody{
			Type: "invalid_request_error", Code: "routing_number_invalid",
			Message: "Routing number must have 9 digits", Param: "bank_account[routing_number]",
		})
		return
	case len(number) < 4:
		writeStripeError(w, http.StatusBadRequest, stripeErrorBody{
			Type: "invalid_request_error", Code: "account_number_invalid",
			Message: "Your bank account number is invalid.", Param: "bank_account[account_number]",
		})
		return
	}

	bankName := TestBankName
	ea := apicommon.ExternalAccount{
		ID:            internal.NewID("ba", 12),
		Object:        "bank_account",
		BankName:      &bankName,
		Last4:         number[len(number)-4:],
		RoutingNumber: apicommon.StringPtr(routing),
		Currency:      form.Get("bank_account[currency]"),
		Country:       country,
		Status:        apicommon.StringPtr("new"),
	}
	token := internal.NewID("btok", 12)
	s.backend.mu.Lock()
	s.backend.bankTokens[token] = ea
	s.backend.mu.Unlock()

	apicommon.HTTPWriteJSON(w, map[string]any{
		"id":       token,
		"object":   "token",
		"type":     "bank_account",
		"livemode": false,
		"used":     false,
		"created":  time.Now().Unix(),
		"bank_account": map[string]any{
			"id":                  ea.ID,
			"object":              "bank_account",
			"account_holder_name": form.Get("bank_account[account_holder_name]"),
			"account_holder_type": form.Get("bank_account[account_holder_type]"),
			"bank_name":           bankName,
			"country":             ea.Country,
			"currency":            ea.Currency,
			"last4":               ea.Last4,
			"routing_number":      routing,
			"status":              "new",
		},
	})
}

// secretMatches checks the client_secret form value against the stored one,
// writing the Stripe error when it does not match.
func secretMatches(w http.ResponseWriter, r *http.Request, secret string) bool {
	if r.PostForm.Get("client_secret") != secret {
		writeStripeError(w, http.StatusBadRequest, stripeErrorBody{
			Type: "invalid_request_error", Code: "resource_missing",
			Message: "The client_secret provided does not match any associated intent.", Param: "client_secret",
		})
		return false
	}
	return true
}

func writeNoSuchIntent(w http.ResponseWriter, id string) {
	writeStripeError(w, http.StatusNotFound, stripeErrorBody{
		Type: "invalid_request_error", Code: "resource_missing",
		Message: "No such intent: '" + id + "'", Param: "intent",
	})
}

func (s *StripeAPI) confirmSetupIntentHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "intentId")
	b := s.backend
	b.mu.Lock()
	defer b.mu.Unlock()
	si, ok := b.setupIntents[id]
	if !ok {
		writeNoSuchIntent(w, id)
		return
	}
	if !secretMatches(w, r, si.secret) {
		return
	}
	pm, err := b.attachCardLocked(si.accountID, r.PostForm.Get("payment_method"))
	if err != nil {
		writeStripeError(w, http.StatusBadRequest, stripeErrorBody{
			Type: "invalid_request_error", Code: "resource_missing",
			Message: "No such PaymentMethod: '" + r.PostForm.Get("payment_method") + "'", Param: "payment_method",
		})
		return
	}
	si.status = "succeeded"
	writeIntent(w, "setup_intent", si.id, si.status, pm.ID, nil)
}

func (s *StripeAPI) confirmPaymentIntentHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "intentId")
	b := s.backend
	b.mu.Lock()
	defer b.mu.Unlock()
	pi, ok := b.paymentIntents[id]
	if !ok || pi.secret == "" {
		writeNoSuchIntent(w, id)
		return
	}
	if !secretMatches(w, r, pi.secret) {
		return
	}
	testCard := r.PostForm.Get("payment_method")
	card, ok := testCards[testCard]
	if !ok {
		writeStripeError(w, http.StatusBadRequest, stripeErrorBody{
			Type: "invalid_request_error", Code: "resource_missing",
			Message: "No such PaymentMethod: '" + testCard + "'", Param: "payment_method",
		})
		return
	}
	if card.Last4 == declinedLast4 {
		pi.status = "requires_payment_method"
		writeStripeError(w, http.StatusPaymentRequired, stripeErrorBody{
			Type: "card_error", Code: "card_declined", Message: "Your card was declined.",
		})
		return
	}
	pmID := internal.NewID("pm", 12)
	if pi.save {
		pm, err := b.attachCardLocked(pi.senderID, testCard)
		if err == nil {
			pmID = pm.ID
		}
	}
	pi.status = "succeeded"
	writeIntent(w, "payment_intent", pi.id, pi.status, pmID, map[string]any{
		"amount":   pi.amount,
		"currency": pi.currency,
	})
}

func writeIntent(w http.ResponseWriter, object, id, status, paymentMethod string, extra map[string]any) {
	body := map[string]any{
		"id":             id,
		"object":         object,
		"status":         status,
		"payment_method": paymentMethod,
		"livemode":       false,
		"created":        time.Now().Unix(),
	}
	for k, v := range extra {
		body[k] = v
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}
