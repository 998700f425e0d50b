package apicommon

//revive:disable:max-public-structs

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Account represents a platform account as returned by the backend. The
// platform ID wraps the Stripe account and customer IDs.
// swagger:model Account
type Account struct {
	// The platform account ID (plat_...)
	ID string `json:"id"`

	// The underlying Stripe account ID
	StripeAccountID string `json:"stripe_account_id"`

	// The underlying Stripe customer ID, if any
	StripeCustomerID *string `json:"stripe_customer_id,omitempty"`

	// Contact email of the account
	Email *string `json:"email,omitempty"`

	// Display name of the account
	DisplayName *string `json:"display_name,omitempty"`

	// Creation timestamp as sent by Stripe
	Created string `json:"created"`

	// Whether the account has the customer configuration
	IsCustomer bool `json:"is_customer"`

	// Whether the account can receive transfers
	IsRecipient bool `json:"is_recipient"`

	// Whether the account has the merchant configuration (list endpoint only)
	IsMerchant *bool `json:"is_merchant,omitempty"`

	// Whether the recipient onboarding is still pending (detail endpoint only)
	IsOnboarding *bool `json:"is_onboarding,omitempty"`

	// Outstanding Stripe requirements, passed through as received
	Requirements json.RawMessage `json:"requirements,omitempty"`

	// Capability maps, free form
	CustomerCapabilities  map[string]any `json:"customer_capabilities,omitempty"`
	MerchantCapabilities  map[string]any `json:"merchant_capabilities,omitempty"`
	RecipientCapabilities map[string]any `json:"recipient_capabilities,omitempty"`
}

// Label returns the name used to present the account in pickers: the
// display name, else the email, else the platform ID.
func (a *Account) Label() string {
	if a.DisplayName != nil && *a.DisplayName != "" {
		return *a.DisplayName
	}
	if a.Email != nil && *a.Email != "" {
		return *a.Email
	}
	return a.ID
}

// Onboarding reports whether the recipient onboarding is pending.
func (a *Account) Onboarding() bool {
	return a.IsOnboarding != nil && *a.IsOnboarding
}

// AccountList is the envelope of GET /api/accounts.
type AccountList struct {
	Accounts []Account `json:"accounts"`
}

// CreateAccountRequest is the body of POST /api/accounts.
type CreateAccountRequest struct {
	Name    string `json:"name" validate:"required,trimmedmin=2,trimmedmax=100"`
	Email   string `json:"email" validate:"required,email"`
	Country string `json:"country" validate:"omitempty,len=2"`
}

// DeleteAccountResponse is returned by DELETE /api/accounts/{id}.
type DeleteAccountResponse struct {
	Status    string `json:"status"`
	AccountID string `json:"account_id"`
}

// UpgradeToRecipientResponse is returned by POST
// /api/accounts/{id}/upgrade-to-recipient.
type UpgradeToRecipientResponse struct {
	ID                    string         `json:"id"`
	StripeAccountID       string         `json:"stripe_account_id"`
	IsMerchant            bool           `json:"is_merchant"`
	IsRecipient           bool           `json:"is_recipient"`
	MerchantCapabilities  map[string]any `json:"merchant_capabilities,omitempty"`
	RecipientCapabilities map[string]any `json:"recipient_capabilities,omitempty"`
}

// AccountLinkRequest is the body of POST /api/accounts/{id}/onboarding-link.
type AccountLinkRequest struct {
	RefreshURL string `json:"refresh_url" validate:"required,url"`
	ReturnURL  string `json:"return_url" validate:"required,url"`
}

// AccountLinkResponse holds the hosted onboarding URL.
type AccountLinkResponse struct {
	URL       string `json:"url"`
	Created   string `json:"created"`
	ExpiresAt string `json:"expires_at"`
}

// CardDetails is the card summary of a payment method.
type CardDetails struct {
	Brand    string `json:"brand"`
	Last4    string `json:"last4"`
	ExpMonth int    `json:"exp_month"`
	ExpYear  int    `json:"exp_year"`
}

// PaymentMethod is a saved payment method of an account.
// swagger:model PaymentMethod
type PaymentMethod struct {
	ID      string       `json:"id"`
	Type    string       `json:"type"`
	Card    *CardDetails `json:"card"`
	Created int64        `json:"created"`
}

// Label returns "VISA ending in 4242" for cards and the ID otherwise.
func (pm *PaymentMethod) Label() string {
	if pm.Card == nil {
		return pm.ID
	}
	return fmt.Sprintf("%s ending in %s", strings.ToUpper(pm.Card.Brand), pm.Card.Last4)
}

// PaymentMethodList is the envelope of GET /api/accounts/{id}/payment-methods.
type PaymentMethodList struct {
	PaymentMethods []PaymentMethod `json:"payment_methods"`
}

// SetupIntentResponse carries the client secret used to confirm a card.
type SetupIntentResponse struct {
	ClientSecret  string `json:"client_secret"`
	SetupIntentID string `json:"setup_intent_id"`
	CustomerID    string `json:"customer_id,omitempty"`
}

// DetachPaymentMethodResponse is returned by DELETE
// /api/accounts/{id}/payment-methods/{pmId}.
type DetachPaymentMethodResponse struct {
	Status          string `json:"status"`
	PaymentMethodID string `json:"payment_method_id"`
}

// ExternalAccount is a bank account linked as payout destination.
// swagger:model ExternalAccount
type ExternalAccount struct {
	ID                 string  `json:"id"`
	Object             string  `json:"object"`
	BankName           *string `json:"bank_name"`
	Last4              string  `json:"last4"`
	RoutingNumber      *string `json:"routing_number"`
	Currency           string  `json:"currency"`
	Country            string  `json:"country"`
	DefaultForCurrency bool    `json:"default_for_currency"`
	Status             *string `json:"status"`
}

// Label returns "<bank> ••••1234", or just the masked number when the bank
// name is unknown.
func (ea *ExternalAccount) Label() string {
	if ea.BankName != nil && *ea.BankName != "" {
		return fmt.Sprintf("%s ••••%s", *ea.BankName, ea.Last4)
	}
	return "••••" + ea.Last4
}

// ExternalAccountList is the envelope of GET
// /api/accounts/{id}/external-accounts.
type ExternalAccountList struct {
	ExternalAccounts []ExternalAccount `json:"external_accounts"`
}

// CreateExternalAccountRequest is the body of POST
// /api/accounts/{id}/external-accounts. Token is a Stripe bank account token.
type CreateExternalAccountRequest struct {
	Token string `json:"token" validate:"required"`
}

// DeleteExternalAccountResponse is returned by DELETE
// /api/accounts/{id}/external-accounts/{eaId}.
type DeleteExternalAccountResponse struct {
	Status            string `json:"status"`
	ExternalAccountID string `json:"external_account_id"`
}

// PayUserRequest is the body of POST /api/transactions/{id}/pay-user.
// Amount is in cents.
type PayUserRequest struct {
	Amount             int64  `json:"amount" validate:"required,gt=0"`
	Currency           string `json:"currency"`
	RecipientAccountID string `json:"recipient_account_id" validate:"required"`
	PaymentMethodID    string `json:"payment_method_id" validate:"required"`
}

// PayUserResponse describes the destination charge created by pay-user.
type PayUserResponse struct {
	ID        string  `json:"id"`
	Amount    int64   `json:"amount"`
	Currency  string  `json:"currency"`
	Status    string  `json:"status"`
	Recipient string  `json:"recipient"`
	Transfer  *string `json:"transfer"`
	Created   int64   `json:"created"`
}

// CreatePaymentIntentRequest is the body of POST
// /api/transactions/{id}/create-payment-intent. Amount is in cents.
type CreatePaymentIntentRequest struct {
	Amount             int64  `json:"amount" validate:"required,gt=0"`
	Currency           string `json:"currency"`
	RecipientAccountID string `json:"recipient_account_id" validate:"required"`
	SavePaymentMethod  bool   `json:"save_payment_method"`
}

// CreatePaymentIntentResponse carries the client secret used to pay with a
// new card.
type CreatePaymentIntentResponse struct {
	ClientSecret    string `json:"client_secret"`
	PaymentIntentID string `json:"payment_intent_id"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
	Recipient       string `json:"recipient"`
}

// ErrorResponse is the backend error envelope.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// BankAccountDetails is the bank data sent to Stripe for tokenization. It
// never reaches the backend, only the resulting token does.
type BankAccountDetails struct {
	AccountHolderName string `json:"account_holder_name" validate:"required"`
	AccountHolderType string `json:"account_holder_type" validate:"omitempty,oneof=individual company"`
	RoutingNumber     string `json:"routing_number" validate:"routingnumber=Country"`
	AccountNumber     string `json:"account_number" validate:"accountnumber"`
	Country           string `json:"country" validate:"required,len=2"`
	Currency          string `json:"currency" validate:"required,len=3"`
}

// BankAccountForm is the bank account entry form: the details plus the
// account number typed a second time.
type BankAccountForm struct {
	AccountHolderName    string `json:"account_holder_name" validate:"required,trimmedmin=1"`
	RoutingNumber        string `json:"routing_number" validate:"routingnumber=Country"`
	AccountNumber        string `json:"account_number" validate:"accountnumber"`
	ConfirmAccountNumber string `json:"confirm_account_number" validate:"eqfield=AccountNumber"`
	Country              string `json:"country" validate:"omitempty,len=2"`
	Currency             string `json:"currency" validate:"omitempty,len=3"`
}

// Details returns the bank details to tokenize. An empty country defaults
// to US and an empty currency to the one of the country.
func (f *BankAccountForm) Details() *BankAccountDetails {
	country := strings.ToUpper(strings.TrimSpace(f.Country))
	if country == "" {
		country = DefaultCountry
	}
	currency := strings.ToLower(strings.TrimSpace(f.Currency))
	if currency == "" {
		currency = CountryCurrency(country)
	}
	return &BankAccountDetails{
		AccountHolderName: strings.TrimSpace(f.AccountHolderName),
		AccountHolderType: DefaultAccountHolderType,
		RoutingNumber:     strings.TrimSpace(f.RoutingNumber),
		AccountNumber:     f.AccountNumber,
		Country:           country,
		Currency:          currency,
	}
}
