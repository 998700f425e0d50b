// Package session holds the presentation state shared by every front end:
// the account list, the selected account and its payment methods and bank
// accounts, plus the busy flag and the last error and success messages.
// Each operation calls the backend through the typed client and writes the
// outcome into the state; front ends only read State().
package session

//go:generate mockgen -destination=mock_tokenizer_test.go -package=session . Tokenizer

import (
	"context"
	stderrors "errors"
	"sync"

	"github.com/vocdoni/connect-client/api/apicommon"
	"github.com/vocdoni/connect-client/client"
	"github.com/vocdoni/connect-client/errors"
	"github.com/vocdoni/connect-client/prefs"
	"github.com/vocdoni/connect-client/stripe"
	"github.com/vocdoni/connect-client/validator"
	"go.vocdoni.io/dvote/log"
)

// Tokenizer is the part of the Stripe client used with the publishable key.
type Tokenizer interface {
	CreateBankAccountToken(ctx context.Context, details *apicommon.BankAccountDetails) (string, error)
	ConfirmSetupIntent(ctx context.Context, clientSecret, paymentMethod string) (*stripe.ConfirmResult, error)
	ConfirmPaymentIntent(ctx context.Context, clientSecret, paymentMethod string) (*stripe.ConfirmResult, error)
}

// State is a snapshot of the session.
type State struct {
	Accounts          []apicommon.Account         `json:"accounts"`
	SelectedAccountID string                      `json:"selected_account_id,omitempty"`
	SelectedAccount   *apicommon.Account          `json:"selected_account,omitempty"`
	PaymentMethods    []apicommon.PaymentMethod   `json:"payment_methods"`
	ExternalAccounts  []apicommon.ExternalAccount `json:"external_accounts"`
	OnboardingURL     string                      `json:"onboarding_url,omitempty"`
	Loading           bool                        `json:"loading"`
	Error             string                      `json:"error,omitempty"`
	Success           string                      `json:"success,omitempty"`
}

// Session is the shared view-model. It is safe for concurrent use; requests
// are not serialized, and when two operations write the same part of the
// state the last one to complete wins.
type Session struct {
	api       *client.Client
	tokenizer Tokenizer
	prefs     *prefs.Store
	validator *validator.Validator

	mu               sync.Mutex
	busy             int
	accounts         []apicommon.Account
	selectedID       string
	selected         *apicommon.Account
	paymentMethods   []apicommon.PaymentMethod
	externalAccounts []apicommon.ExternalAccount
	onboardingURL    string
	errorMessage     string
	successMessage   string
}

// New returns a session over api. tokenizer may be nil, in which case the
// operations that talk to Stripe fail with a configuration error. store may
// be nil; when set, the persisted selection is restored on the first
// LoadAccounts.
func New(api *client.Client, tokenizer Tokenizer, store *prefs.Store) *Session {
	return &Session{
		api:        api,
		tokenizer:  tokenizer,
		prefs:      store,
		validator:  validator.New(),
		selectedID: store.SelectedAccountID(),
	}
}

// State returns a copy of the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := State{
		Accounts:          append([]apicommon.Account{}, s.accounts...),
		SelectedAccountID: s.selectedID,
		PaymentMethods:    append([]apicommon.PaymentMethod{}, s.paymentMethods...),
		ExternalAccounts:  append([]apicommon.ExternalAccount{}, s.externalAccounts...),
		OnboardingURL:     s.onboardingURL,
		Loading:           s.busy > 0,
		Error:             s.errorMessage,
		Success:           s.successMessage,
	}
	if s.selected != nil {
		selected := *s.selected
		st.SelectedAccount = &selected
	}
	return st
}

// Recipients returns the accounts that can receive a payment from the
// selected account: recipients other than the selected account itself.
func (s *Session) Recipients() []apicommon.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	var recipients []apicommon.Account
	for _, a := range s.accounts {
		if a.IsRecipient && a.ID != s.selectedID {
			recipients = append(recipients, a)
		}
	}
	return recipients
}

// ClearError forgets the last error message.
func (s *Session) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errorMessage = ""
}

// ClearSuccess forgets the last success message.
func (s *Session) ClearSuccess() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.successMessage = ""
}

// ClearOnboardingURL forgets the onboarding link once it has been opened.
func (s *Session) ClearOnboardingURL() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onboardingURL = ""
}

// run marks the session busy while fn runs and records its outcome: the
// error message on failure, success on success when not empty.
func (s *Session) run(op string, fn func() (success string, err error)) error {
	s.mu.Lock()
	s.busy++
	s.errorMessage = ""
	s.mu.Unlock()

	success, err := fn()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy--
	if err != nil {
		s.errorMessage = errors.Message(err)
		log.Debugw("session operation failed", "op", op, "error", err)
		return err
	}
	if success != "" {
		s.successMessage = success
	}
	return nil
}

// selectedAccountID returns the selected account or ErrNoAccountSelected.
func (s *Session) selectedAccountID() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selectedID == "" {
		return "", errors.ErrNoAccountSelected
	}
	return s.selectedID, nil
}

func (s *Session) isSelected(accountID string) bool {
	return s.selectedID == accountID
}

// validate runs the form rules and turns a failure into the message of its
// first field.
func (s *Session) validate(form any) error {
	if err := s.validator.Validate(form); err != nil {
		var verrs validator.ValidationErrors
		if stderrors.As(err, &verrs) {
			return errors.ErrInvalidInput.WithMessage(verrs.First())
		}
		return errors.ErrInvalidInput.WithErr(err)
	}
	return nil
}

func (s *Session) requireTokenizer() error {
	if s.tokenizer == nil {
		return errors.ErrMissingConfig.With("stripe publishable key")
	}
	return nil
}
