package session

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/golang/mock/gomock"
	"github.com/vocdoni/connect-client/api/apicommon"
	"github.com/vocdoni/connect-client/client"
	"github.com/vocdoni/connect-client/errors"
	"github.com/vocdoni/connect-client/prefs"
	"github.com/vocdoni/connect-client/stripe"
	"github.com/vocdoni/connect-client/test"
	"go.vocdoni.io/dvote/db/metadb"
)

type env struct {
	backend *test.Backend
	api     *client.Client
	stripe  *stripe.Client
	prefs   *prefs.Store
}

func newEnv(t *testing.T) *env {
	t.Helper()
	backend, backendSrv := test.NewBackendServer()
	t.Cleanup(backendSrv.Close)
	stripeSrv := test.NewStripeServer(backend)
	t.Cleanup(stripeSrv.Close)

	sc, err := stripe.NewClient(&stripe.Config{PublishableKey: "pk_test_session", APIURL: stripeSrv.URL}, nil)
	qt.Assert(t, err, qt.IsNil)
	return &env{
		backend: backend,
		api:     client.New(backendSrv.URL),
		stripe:  sc,
		prefs:   prefs.NewWithDB(metadb.NewTest(t)),
	}
}

// session returns a session using the Stripe client of the environment.
func (e *env) session() *Session {
	return New(e.api, e.stripe, e.prefs)
}

func validBankForm() *apicommon.BankAccountForm {
	return &apicommon.BankAccountForm{
		AccountHolderName:    "Jenny Rosen",
		RoutingNumber:        "110000000",
		AccountNumber:        "000123456789",
		ConfirmAccountNumber: "000123456789",
	}
}

// findRequest returns the last recorded request whose path ends with suffix.
func findRequest(c *qt.C, backend *test.Backend, method, suffix string) test.RecordedRequest {
	requests := backend.Requests()
	for i := len(requests) - 1; i >= 0; i-- {
		if requests[i].Method == method && strings.HasSuffix(requests[i].Path, suffix) {
			return requests[i]
		}
	}
	c.Fatalf("no %s request to *%s", method, suffix)
	return test.RecordedRequest{}
}

func TestLoadAccounts(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()

	c.Run("selects the first account", func(c *qt.C) {
		e := newEnv(t)
		first := e.backend.AddAccount("Alice", "alice@example.com", false)
		e.backend.AddAccount("Bob", "bob@example.com", true)
		_, err := e.backend.AttachCard(first, "pm_card_visa")
		c.Assert(err, qt.IsNil)

		s := e.session()
		c.Assert(s.LoadAccounts(ctx), qt.IsNil)
		st := s.State()
		c.Assert(st.Accounts, qt.HasLen, 2)
		c.Assert(st.SelectedAccountID, qt.Equals, first)
		c.Assert(st.SelectedAccount, qt.IsNotNil)
		c.Assert(st.SelectedAccount.Label(), qt.Equals, "Alice")
		c.Assert(st.PaymentMethods, qt.HasLen, 1)
		c.Assert(st.ExternalAccounts, qt.HasLen, 0)
		c.Assert(st.Loading, qt.IsFalse)
		c.Assert(st.Error, qt.Equals, "")
		c.Assert(e.prefs.SelectedAccountID(), qt.Equals, first)
	})

	c.Run("restores the persisted selection", func(c *qt.C) {
		e := newEnv(t)
		e.backend.AddAccount("Alice", "alice@example.com", false)
		second := e.backend.AddAccount("Bob", "bob@example.com", true)
		c.Assert(e.prefs.SetSelectedAccountID(second), qt.IsNil)

		s := e.session()
		c.Assert(s.LoadAccounts(ctx), qt.IsNil)
		c.Assert(s.State().SelectedAccountID, qt.Equals, second)
	})

	c.Run("drops a persisted account that no longer exists", func(c *qt.C) {
		e := newEnv(t)
		first := e.backend.AddAccount("Alice", "alice@example.com", false)
		c.Assert(e.prefs.SetSelectedAccountID("plat_gone"), qt.IsNil)

		s := e.session()
		c.Assert(s.LoadAccounts(ctx), qt.IsNil)
		c.Assert(s.State().SelectedAccountID, qt.Equals, first)
		c.Assert(e.prefs.SelectedAccountID(), qt.Equals, first)
	})

	c.Run("no accounts", func(c *qt.C) {
		e := newEnv(t)
		c.Assert(e.prefs.SetSelectedAccountID("plat_gone"), qt.IsNil)

		s := e.session()
		c.Assert(s.LoadAccounts(ctx), qt.IsNil)
		st := s.State()
		c.Assert(st.Accounts, qt.HasLen, 0)
		c.Assert(st.SelectedAccountID, qt.Equals, "")
		c.Assert(st.SelectedAccount, qt.IsNil)
		c.Assert(e.prefs.SelectedAccountID(), qt.Equals, "")
	})

	c.Run("selected account data errors do not fail the load", func(c *qt.C) {
		e := newEnv(t)
		first := e.backend.AddAccount("Alice", "alice@example.com", false)
		e.backend.AddAccount("Bob", "bob@example.com", true)
		e.backend.FailNext(http.MethodGet, apicommon.PaymentMethodsEndpoint,
			http.StatusBadRequest, `{"detail":"No such customer"}`)

		s := e.session()
		c.Assert(s.LoadAccounts(ctx), qt.IsNil)
		st := s.State()
		c.Assert(st.Accounts, qt.HasLen, 2)
		c.Assert(st.SelectedAccountID, qt.Equals, first)
		c.Assert(st.SelectedAccount, qt.IsNotNil)
		c.Assert(st.Error, qt.Equals, "No such customer")
		c.Assert(st.Loading, qt.IsFalse)
		// the bank accounts are still requested
		findRequest(c, e.backend, http.MethodGet, "/external-accounts")

		// the next operation starts from a clean error
		c.Assert(s.LoadPaymentMethods(ctx), qt.IsNil)
		c.Assert(s.State().Error, qt.Equals, "")
	})

	c.Run("backend error is surfaced", func(c *qt.C) {
		e := newEnv(t)
		e.backend.FailNext(http.MethodGet, apicommon.AccountsEndpoint, http.StatusInternalServerError, "oops")

		s := e.session()
		err := s.LoadAccounts(ctx)
		c.Assert(err, qt.ErrorMatches, "HTTP 500")
		st := s.State()
		c.Assert(st.Error, qt.Equals, "HTTP 500")
		c.Assert(st.Loading, qt.IsFalse)

		s.ClearError()
		c.Assert(s.State().Error, qt.Equals, "")
	})
}

func TestSelect(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	e := newEnv(t)
	alice := e.backend.AddAccount("Alice", "alice@example.com", false)
	bob := e.backend.AddAccount("Bob", "bob@example.com", true)
	_, err := e.backend.AttachCard(alice, "pm_card_visa")
	c.Assert(err, qt.IsNil)

	s := e.session()
	c.Assert(s.LoadAccounts(ctx), qt.IsNil)
	c.Assert(s.State().PaymentMethods, qt.HasLen, 1)
	c.Assert(s.Recipients(), qt.HasLen, 1)
	c.Assert(s.Recipients()[0].ID, qt.Equals, bob)

	c.Assert(s.Select(ctx, bob), qt.IsNil)
	st := s.State()
	c.Assert(st.SelectedAccountID, qt.Equals, bob)
	c.Assert(st.SelectedAccount.ID, qt.Equals, bob)
	c.Assert(st.PaymentMethods, qt.HasLen, 0)
	c.Assert(e.prefs.SelectedAccountID(), qt.Equals, bob)
	// an account never lists itself as a recipient
	c.Assert(s.Recipients(), qt.HasLen, 0)

	err = s.Select(ctx, "plat_missing")
	c.Assert(err, qt.ErrorMatches, "Account not found")
	c.Assert(errors.StatusCode(err), qt.Equals, http.StatusNotFound)
	c.Assert(s.State().Error, qt.Equals, "Account not found")
	// the previous selection is kept, in memory and on disk
	st = s.State()
	c.Assert(st.SelectedAccountID, qt.Equals, bob)
	c.Assert(st.SelectedAccount.ID, qt.Equals, bob)
	c.Assert(e.prefs.SelectedAccountID(), qt.Equals, bob)
}

func TestCreateAccount(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	e := newEnv(t)
	e.backend.AddAccount("Alice", "alice@example.com", false)
	s := e.session()
	c.Assert(s.LoadAccounts(ctx), qt.IsNil)

	c.Assert(s.CreateAccount(ctx, "  Carol ", "carol@example.com", "us"), qt.IsNil)
	st := s.State()
	c.Assert(st.Accounts, qt.HasLen, 2)
	c.Assert(st.SelectedAccount, qt.IsNotNil)
	c.Assert(st.SelectedAccount.Label(), qt.Equals, "Carol")
	c.Assert(st.SelectedAccountID, qt.Equals, st.Accounts[1].ID)
	c.Assert(st.Success, qt.Equals, "Account created successfully")

	var sent apicommon.CreateAccountRequest
	c.Assert(json.Unmarshal(findRequest(c, e.backend, http.MethodPost, "/api/accounts").Body, &sent), qt.IsNil)
	c.Assert(sent, qt.DeepEquals, apicommon.CreateAccountRequest{Name: "Carol", Email: "carol@example.com", Country: "US"})

	s.ClearSuccess()
	c.Assert(s.State().Success, qt.Equals, "")

	for _, tc := range []struct {
		name, email, want string
	}{
		{"", "dave@example.com", "Name is required"},
		{"D", "dave@example.com", "Name must be at least 2 characters"},
		{strings.Repeat("d", 101), "dave@example.com", "Name must be less than 100 characters"},
		{"Dave", "", "Email is required"},
		{"Dave", "dave@", "Invalid email format"},
	} {
		e.backend.ResetRequests()
		err := s.CreateAccount(ctx, tc.name, tc.email, "")
		c.Assert(err, qt.ErrorIs, errors.ErrInvalidInput)
		c.Assert(s.State().Error, qt.Equals, tc.want)
		c.Assert(e.backend.Requests(), qt.HasLen, 0)
	}
}

func TestDeleteSelectedAccountClearsState(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	e := newEnv(t)
	alice := e.backend.AddAccount("Alice", "alice@example.com", true)
	bob := e.backend.AddAccount("Bob", "bob@example.com", true)
	_, err := e.backend.AttachCard(alice, "pm_card_visa")
	c.Assert(err, qt.IsNil)

	s := e.session()
	c.Assert(s.LoadAccounts(ctx), qt.IsNil)
	c.Assert(s.AddBankAccount(ctx, validBankForm()), qt.IsNil)
	c.Assert(s.CreateOnboardingLink(ctx, "https://example.com/refresh", "https://example.com/return"), qt.IsNil)

	st := s.State()
	c.Assert(st.SelectedAccountID, qt.Equals, alice)
	c.Assert(st.PaymentMethods, qt.HasLen, 1)
	c.Assert(st.ExternalAccounts, qt.HasLen, 1)
	c.Assert(st.OnboardingURL, qt.Not(qt.Equals), "")

	c.Assert(s.DeleteAccount(ctx, alice), qt.IsNil)
	st = s.State()
	c.Assert(st.Accounts, qt.HasLen, 1)
	c.Assert(st.Accounts[0].ID, qt.Equals, bob)
	c.Assert(st.SelectedAccountID, qt.Equals, "")
	c.Assert(st.SelectedAccount, qt.IsNil)
	c.Assert(st.PaymentMethods, qt.HasLen, 0)
	c.Assert(st.ExternalAccounts, qt.HasLen, 0)
	c.Assert(st.OnboardingURL, qt.Equals, "")
	c.Assert(st.Success, qt.Equals, "Account deleted successfully")
	c.Assert(e.prefs.SelectedAccountID(), qt.Equals, "")

	_, err = s.selectedAccountID()
	c.Assert(err, qt.ErrorIs, errors.ErrNoAccountSelected)
}

func TestDeleteOtherAccountKeepsSelection(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	e := newEnv(t)
	alice := e.backend.AddAccount("Alice", "alice@example.com", false)
	bob := e.backend.AddAccount("Bob", "bob@example.com", true)
	_, err := e.backend.AttachCard(alice, "pm_card_visa")
	c.Assert(err, qt.IsNil)

	s := e.session()
	c.Assert(s.LoadAccounts(ctx), qt.IsNil)
	c.Assert(s.DeleteAccount(ctx, bob), qt.IsNil)
	st := s.State()
	c.Assert(st.Accounts, qt.HasLen, 1)
	c.Assert(st.SelectedAccountID, qt.Equals, alice)
	c.Assert(st.PaymentMethods, qt.HasLen, 1)
	c.Assert(e.prefs.SelectedAccountID(), qt.Equals, alice)

	err = s.DeleteAccount(ctx, bob)
	c.Assert(err, qt.ErrorMatches, "Account not found")
	c.Assert(s.State().SelectedAccountID, qt.Equals, alice)
}

func TestRecipientOnboarding(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	e := newEnv(t)
	e.backend.AddAccount("Alice", "alice@example.com", false)
	s := e.session()
	c.Assert(s.LoadAccounts(ctx), qt.IsNil)

	err := s.CreateOnboardingLink(ctx, "https://example.com/refresh", "https://example.com/return")
	c.Assert(err, qt.ErrorMatches, "Account must be a recipient to create an onboarding link")
	c.Assert(errors.StatusCode(err), qt.Equals, http.StatusBadRequest)

	c.Assert(s.UpgradeToRecipient(ctx), qt.IsNil)
	st := s.State()
	c.Assert(st.Success, qt.Equals, "Account upgraded to recipient")
	c.Assert(st.SelectedAccount.IsRecipient, qt.IsTrue)
	c.Assert(st.SelectedAccount.Onboarding(), qt.IsTrue)
	c.Assert(st.Accounts[0].IsRecipient, qt.IsTrue)

	e.backend.ResetRequests()
	err = s.CreateOnboardingLink(ctx, "not a url", "https://example.com/return")
	c.Assert(err, qt.ErrorIs, errors.ErrInvalidInput)
	c.Assert(s.State().Error, qt.Equals, "Invalid URL format")
	c.Assert(e.backend.Requests(), qt.HasLen, 0)

	c.Assert(s.CreateOnboardingLink(ctx, "https://example.com/refresh", "https://example.com/return"), qt.IsNil)
	st = s.State()
	c.Assert(st.OnboardingURL, qt.Matches, `https://connect\.stripe\.com/setup/e/acct_.*`)
	c.Assert(st.Error, qt.Equals, "")

	s.ClearOnboardingURL()
	c.Assert(s.State().OnboardingURL, qt.Equals, "")
}

func TestNoAccountSelected(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	e := newEnv(t)
	s := e.session()

	ops := map[string]func() error{
		"upgrade":        func() error { return s.UpgradeToRecipient(ctx) },
		"onboarding":     func() error { return s.CreateOnboardingLink(ctx, "https://a.example", "https://b.example") },
		"cards":          func() error { return s.LoadPaymentMethods(ctx) },
		"addCard":        func() error { return s.AddCard(ctx, "pm_card_visa") },
		"deleteCard":     func() error { return s.DeletePaymentMethod(ctx, "pm_1") },
		"banks":          func() error { return s.LoadExternalAccounts(ctx) },
		"addBank":        func() error { return s.AddBankAccount(ctx, validBankForm()) },
		"deleteBank":     func() error { return s.DeleteExternalAccount(ctx, "ba_1") },
		"defaultBank":    func() error { return s.SetDefaultExternalAccount(ctx, "ba_1") },
		"pay":            func() error { return s.PayUser(ctx, "plat_1", "pm_1", "10.00") },
		"payWithNewCard": func() error { return s.PayWithNewCard(ctx, "plat_1", "10.00", "pm_card_visa", false) },
	}
	for name, op := range ops {
		c.Run(name, func(c *qt.C) {
			c.Assert(op(), qt.ErrorIs, errors.ErrNoAccountSelected)
			c.Assert(s.State().Error, qt.Equals, "no account selected")
		})
	}
	c.Assert(e.backend.Requests(), qt.HasLen, 0)
}

func TestCards(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	e := newEnv(t)
	alice := e.backend.AddAccount("Alice", "alice@example.com", false)
	s := e.session()
	c.Assert(s.LoadAccounts(ctx), qt.IsNil)

	c.Assert(s.AddCard(ctx, "pm_card_visa"), qt.IsNil)
	st := s.State()
	c.Assert(st.Success, qt.Equals, "Card added successfully")
	c.Assert(st.PaymentMethods, qt.HasLen, 1)
	c.Assert(st.PaymentMethods[0].Label(), qt.Equals, "VISA ending in 4242")

	// the setup intent is created for the customer of the selected account
	req := findRequest(c, e.backend, http.MethodPost, "/payment-methods/setup-intent")
	c.Assert(req.Path, qt.Equals, apicommon.BuildPath(apicommon.SetupIntentEndpoint, alice))
	c.Assert(req.RawQuery, qt.Equals, "customer_id="+apicommon.Deref(st.SelectedAccount.StripeCustomerID))

	err := s.AddCard(ctx, "pm_card_bogus")
	c.Assert(err, qt.ErrorMatches, "No such PaymentMethod: 'pm_card_bogus'")
	c.Assert(s.State().Error, qt.Equals, "No such PaymentMethod: 'pm_card_bogus'")
	c.Assert(s.State().PaymentMethods, qt.HasLen, 1)

	err = s.AddCard(ctx, "")
	c.Assert(err, qt.ErrorIs, errors.ErrInvalidInput)
	c.Assert(s.State().Error, qt.Equals, "Payment method is required")

	c.Assert(s.DeletePaymentMethod(ctx, st.PaymentMethods[0].ID), qt.IsNil)
	st = s.State()
	c.Assert(st.Success, qt.Equals, "Payment method removed")
	c.Assert(st.PaymentMethods, qt.HasLen, 0)

	err = s.DeletePaymentMethod(ctx, "pm_missing")
	c.Assert(err, qt.ErrorMatches, "Payment method not found")
}

func TestAddCardNotSucceeded(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	e := newEnv(t)
	e.backend.AddAccount("Alice", "alice@example.com", false)

	tokenizer := NewMockTokenizer(ctrl)
	tokenizer.EXPECT().
		ConfirmSetupIntent(gomock.Any(), gomock.Any(), "pm_card_visa").
		Return(&stripe.ConfirmResult{ID: "seti_1", Status: "requires_action"}, nil).
		Times(1)

	s := New(e.api, tokenizer, nil)
	c.Assert(s.LoadAccounts(ctx), qt.IsNil)
	err := s.AddCard(ctx, "pm_card_visa")
	c.Assert(err, qt.ErrorIs, errors.ErrIntentNotSucceeded)
	c.Assert(s.State().Error, qt.Equals, "Card setup was not completed. Please try again.")
	c.Assert(s.State().Success, qt.Equals, "")
}

func TestBankAccounts(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	e := newEnv(t)
	e.backend.AddAccount("Alice", "alice@example.com", true)
	s := e.session()
	c.Assert(s.LoadAccounts(ctx), qt.IsNil)

	c.Assert(s.AddBankAccount(ctx, validBankForm()), qt.IsNil)
	st := s.State()
	c.Assert(st.Success, qt.Equals, "Bank account added successfully")
	c.Assert(st.ExternalAccounts, qt.HasLen, 1)
	c.Assert(st.ExternalAccounts[0].Label(), qt.Equals, test.TestBankName+" ••••6789")
	c.Assert(st.ExternalAccounts[0].Currency, qt.Equals, "usd")
	c.Assert(st.ExternalAccounts[0].DefaultForCurrency, qt.IsTrue)

	// only the token reaches the backend
	req := findRequest(c, e.backend, http.MethodPost, "/external-accounts")
	c.Assert(string(req.Body), qt.Not(qt.Contains), "000123456789")
	var sent apicommon.CreateExternalAccountRequest
	c.Assert(json.Unmarshal(req.Body, &sent), qt.IsNil)
	c.Assert(sent.Token, qt.Matches, `btok_.*`)

	second := validBankForm()
	second.AccountNumber = "000999990000"
	second.ConfirmAccountNumber = "000999990000"
	c.Assert(s.AddBankAccount(ctx, second), qt.IsNil)
	st = s.State()
	c.Assert(st.ExternalAccounts, qt.HasLen, 2)
	c.Assert(st.ExternalAccounts[1].DefaultForCurrency, qt.IsFalse)

	c.Assert(s.SetDefaultExternalAccount(ctx, st.ExternalAccounts[1].ID), qt.IsNil)
	st = s.State()
	c.Assert(st.Success, qt.Equals, "Default bank account updated")
	c.Assert(st.ExternalAccounts[0].DefaultForCurrency, qt.IsFalse)
	c.Assert(st.ExternalAccounts[1].DefaultForCurrency, qt.IsTrue)

	first := st.ExternalAccounts[0].ID
	c.Assert(s.DeleteExternalAccount(ctx, first), qt.IsNil)
	st = s.State()
	c.Assert(st.Success, qt.Equals, "Bank account removed")
	c.Assert(st.ExternalAccounts, qt.HasLen, 1)
	c.Assert(st.ExternalAccounts[0].ID, qt.Not(qt.Equals), first)

	err := s.DeleteExternalAccount(ctx, first)
	c.Assert(err, qt.ErrorMatches, "External account not found")
}

func TestBankAccountTokenizationError(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	e := newEnv(t)
	e.backend.AddAccount("Alice", "alice@example.com", true)

	tokenizer := NewMockTokenizer(ctrl)
	tokenizer.EXPECT().
		CreateBankAccountToken(gomock.Any(), &apicommon.BankAccountDetails{
			AccountHolderName: "Jenny Rosen",
			AccountHolderType: "individual",
			RoutingNumber:     "110000000",
			AccountNumber:     "000123456789",
			Country:           "US",
			Currency:          "usd",
		}).
		Return("", errors.ErrTokenization).
		Times(1)

	s := New(e.api, tokenizer, nil)
	c.Assert(s.LoadAccounts(ctx), qt.IsNil)
	e.backend.ResetRequests()

	err := s.AddBankAccount(ctx, validBankForm())
	c.Assert(err, qt.ErrorIs, errors.ErrTokenization)
	c.Assert(s.State().Error, qt.Equals, "Failed to create bank token")
	c.Assert(s.State().ExternalAccounts, qt.HasLen, 0)
	c.Assert(e.backend.Requests(), qt.HasLen, 0)
}

func TestBankAccountValidationBeforeNetwork(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	e := newEnv(t)
	e.backend.AddAccount("Alice", "alice@example.com", true)

	tokenizer := NewMockTokenizer(ctrl)
	tokenizer.EXPECT().CreateBankAccountToken(gomock.Any(), gomock.Any()).Times(0)

	s := New(e.api, tokenizer, nil)
	c.Assert(s.LoadAccounts(ctx), qt.IsNil)

	tests := []struct {
		name   string
		modify func(f *apicommon.BankAccountForm)
		want   string
	}{
		{
			name:   "short US routing number",
			modify: func(f *apicommon.BankAccountForm) { f.RoutingNumber = "11000000" },
			want:   "US routing number must be 9 digits",
		},
		{
			name:   "US routing number with letters",
			modify: func(f *apicommon.BankAccountForm) { f.RoutingNumber = "11000000a" },
			want:   "US routing number must be 9 digits",
		},
		{
			name: "short UK sort code",
			modify: func(f *apicommon.BankAccountForm) {
				f.Country = "GB"
				f.RoutingNumber = "10-88-0"
			},
			want: "UK sort code must be 6 digits",
		},
		{
			name:   "missing routing number",
			modify: func(f *apicommon.BankAccountForm) { f.RoutingNumber = " " },
			want:   "Routing number is required",
		},
		{
			name:   "mismatched confirmation",
			modify: func(f *apicommon.BankAccountForm) { f.ConfirmAccountNumber = "000123456788" },
			want:   "Account numbers do not match",
		},
		{
			name: "account number with letters",
			modify: func(f *apicommon.BankAccountForm) {
				f.AccountNumber = "00012345678x"
				f.ConfirmAccountNumber = "00012345678x"
			},
			want: "Account number must contain only digits",
		},
		{
			name:   "missing holder name",
			modify: func(f *apicommon.BankAccountForm) { f.AccountHolderName = "" },
			want:   "Account holder name is required",
		},
	}
	for _, tc := range tests {
		c.Run(tc.name, func(c *qt.C) {
			e.backend.ResetRequests()
			form := validBankForm()
			tc.modify(form)
			err := s.AddBankAccount(ctx, form)
			c.Assert(err, qt.ErrorIs, errors.ErrInvalidInput)
			c.Assert(s.State().Error, qt.Equals, tc.want)
			c.Assert(e.backend.Requests(), qt.HasLen, 0)
		})
	}
}

func TestMissingTokenizer(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	e := newEnv(t)
	recipient := e.backend.AddAccount("Bob", "bob@example.com", true)
	e.backend.AddAccount("Alice", "alice@example.com", false)

	s := New(e.api, nil, nil)
	c.Assert(s.LoadAccounts(ctx), qt.IsNil)
	e.backend.ResetRequests()

	err := s.AddBankAccount(ctx, validBankForm())
	c.Assert(err, qt.ErrorIs, errors.ErrMissingConfig)
	c.Assert(s.State().Error, qt.Equals, "missing configuration: stripe publishable key")
	c.Assert(s.AddCard(ctx, "pm_card_visa"), qt.ErrorIs, errors.ErrMissingConfig)
	c.Assert(s.PayWithNewCard(ctx, recipient, "10.00", "pm_card_visa", false), qt.ErrorIs, errors.ErrMissingConfig)
	c.Assert(e.backend.Requests(), qt.HasLen, 0)
}

func TestPayUser(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	e := newEnv(t)
	alice := e.backend.AddAccount("Alice", "alice@example.com", false)
	bob := e.backend.AddAccount("Bob", "bob@example.com", true)
	carol := e.backend.AddAccount("Carol", "carol@example.com", false)
	visa, err := e.backend.AttachCard(alice, "pm_card_visa")
	c.Assert(err, qt.IsNil)
	declined, err := e.backend.AttachCard(alice, "pm_card_chargeDeclined")
	c.Assert(err, qt.IsNil)

	s := e.session()
	c.Assert(s.LoadAccounts(ctx), qt.IsNil)
	c.Assert(s.Recipients(), qt.HasLen, 1)

	c.Assert(s.PayUser(ctx, bob, visa.ID, "10.00"), qt.IsNil)
	c.Assert(s.State().Success, qt.Equals, "Payment of $10.00 sent successfully!")
	req := findRequest(c, e.backend, http.MethodPost, "/pay-user")
	c.Assert(req.Path, qt.Equals, apicommon.BuildPath(apicommon.PayUserEndpoint, alice))
	c.Assert(req.IdempotencyKey, qt.Not(qt.Equals), "")
	var sent apicommon.PayUserRequest
	c.Assert(json.Unmarshal(req.Body, &sent), qt.IsNil)
	c.Assert(sent, qt.DeepEquals, apicommon.PayUserRequest{
		Amount:             1000,
		Currency:           "usd",
		RecipientAccountID: bob,
		PaymentMethodID:    visa.ID,
	})

	c.Assert(s.PayUser(ctx, bob, visa.ID, "$1,234.5"), qt.IsNil)
	c.Assert(s.State().Success, qt.Equals, "Payment of $1,234.50 sent successfully!")

	failures := []struct {
		name                  string
		recipient, pm, amount string
		want                  string
		network               bool
	}{
		{"empty amount", bob, visa.ID, "", "Amount is required", false},
		{"not a number", bob, visa.ID, "ten", "Invalid amount", false},
		{"below minimum", bob, visa.ID, "0.49", "Minimum amount is $0.50", false},
		{"above maximum", bob, visa.ID, "1000000", "Maximum amount is $999,999.99", false},
		{"three decimals", bob, visa.ID, "10.001", "Amount cannot have more than 2 decimal places", false},
		{"no payment method", bob, "", "10.00", "Payment method id is required", false},
		{"declined card", bob, declined.ID, "10.00", "Your card was declined.", true},
		{"not a recipient", carol, visa.ID, "10.00", "Recipient account cannot receive transfers", true},
		{"unknown recipient", "plat_missing", visa.ID, "10.00", "Recipient account not found", true},
	}
	for _, tc := range failures {
		c.Run(tc.name, func(c *qt.C) {
			e.backend.ResetRequests()
			err := s.PayUser(ctx, tc.recipient, tc.pm, tc.amount)
			c.Assert(err, qt.IsNotNil)
			c.Assert(s.State().Error, qt.Equals, tc.want)
			if tc.network {
				c.Assert(e.backend.Requests(), qt.HasLen, 1)
			} else {
				c.Assert(e.backend.Requests(), qt.HasLen, 0)
			}
		})
	}
}

func TestPayWithNewCard(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	e := newEnv(t)
	alice := e.backend.AddAccount("Alice", "alice@example.com", false)
	bob := e.backend.AddAccount("Bob", "bob@example.com", true)
	s := e.session()
	c.Assert(s.LoadAccounts(ctx), qt.IsNil)

	c.Assert(s.PayWithNewCard(ctx, bob, "25.00", "pm_card_mastercard", false), qt.IsNil)
	c.Assert(s.State().Success, qt.Equals, "Payment completed successfully!")
	c.Assert(s.State().PaymentMethods, qt.HasLen, 0)

	req := findRequest(c, e.backend, http.MethodPost, "/create-payment-intent")
	c.Assert(req.Path, qt.Equals, apicommon.BuildPath(apicommon.CreatePaymentIntentEndpoint, alice))
	var sent apicommon.CreatePaymentIntentRequest
	c.Assert(json.Unmarshal(req.Body, &sent), qt.IsNil)
	c.Assert(sent.Amount, qt.Equals, int64(2500))

	c.Run("saving the card", func(c *qt.C) {
		c.Assert(s.PayWithNewCard(ctx, bob, "5", "pm_card_visa", true), qt.IsNil)
		st := s.State()
		c.Assert(st.PaymentMethods, qt.HasLen, 1)
		c.Assert(st.PaymentMethods[0].Label(), qt.Equals, "VISA ending in 4242")
	})

	c.Run("declined card", func(c *qt.C) {
		err := s.PayWithNewCard(ctx, bob, "5", "pm_card_chargeDeclined", false)
		c.Assert(err, qt.ErrorMatches, "Your card was declined.")
		c.Assert(s.State().Error, qt.Equals, "Your card was declined.")
	})

	c.Run("invalid amount", func(c *qt.C) {
		e.backend.ResetRequests()
		err := s.PayWithNewCard(ctx, bob, "0.10", "pm_card_visa", false)
		c.Assert(err, qt.ErrorIs, errors.ErrInvalidAmount)
		c.Assert(s.State().Error, qt.Equals, "Minimum amount is $0.50")
		c.Assert(e.backend.Requests(), qt.HasLen, 0)
	})
}

func TestPayWithNewCardNotSucceeded(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	e := newEnv(t)
	e.backend.AddAccount("Alice", "alice@example.com", false)
	bob := e.backend.AddAccount("Bob", "bob@example.com", true)

	tokenizer := NewMockTokenizer(ctrl)
	tokenizer.EXPECT().
		ConfirmPaymentIntent(gomock.Any(), gomock.Any(), "pm_card_visa").
		DoAndReturn(func(_ context.Context, secret, _ string) (*stripe.ConfirmResult, error) {
			id, err := stripe.IntentIDFromSecret(secret)
			c.Assert(err, qt.IsNil)
			return &stripe.ConfirmResult{ID: id, Status: "processing"}, nil
		}).
		Times(1)

	s := New(e.api, tokenizer, nil)
	c.Assert(s.LoadAccounts(ctx), qt.IsNil)
	err := s.PayWithNewCard(ctx, bob, "10.00", "pm_card_visa", false)
	c.Assert(err, qt.ErrorIs, errors.ErrIntentNotSucceeded)
	c.Assert(s.State().Error, qt.Equals, "Payment was not completed. Please try again.")
	c.Assert(s.State().Success, qt.Equals, "")
}

func TestStaleListsAreDiscarded(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	e := newEnv(t)
	alice := e.backend.AddAccount("Alice", "alice@example.com", false)
	bob := e.backend.AddAccount("Bob", "bob@example.com", true)
	_, err := e.backend.AttachCard(alice, "pm_card_visa")
	c.Assert(err, qt.IsNil)

	s := e.session()
	c.Assert(s.Select(ctx, bob), qt.IsNil)
	// a late answer for an account that is no longer selected is ignored
	c.Assert(s.loadPaymentMethods(ctx, alice), qt.IsNil)
	c.Assert(s.State().PaymentMethods, qt.HasLen, 0)
}
