package apicommon

import (
	"net/url"
	"strings"
)

// Route templates of the backend REST API. The {param} placeholders follow
// the chi syntax so the same constants register the test backend routes.
const (
	// POST to create, GET to list platform accounts
	AccountsEndpoint = "/api/accounts"
	// GET a platform account, DELETE it together with its Stripe account
	AccountEndpoint = "/api/accounts/{accountId}"
	// POST to add the recipient configuration
	AccountUpgradeEndpoint = "/api/accounts/{accountId}/upgrade-to-recipient"
	// POST to create a hosted recipient onboarding link
	AccountOnboardingLinkEndpoint = "/api/accounts/{accountId}/onboarding-link"

	// POST to create a SetupIntent, optional customer_id query param
	SetupIntentEndpoint = "/api/accounts/{accountId}/payment-methods/setup-intent"
	// GET saved payment methods
	PaymentMethodsEndpoint = "/api/accounts/{accountId}/payment-methods"
	// DELETE (detach) a payment method
	PaymentMethodEndpoint = "/api/accounts/{accountId}/payment-methods/{paymentMethodId}"

	// POST to link, GET to list bank accounts
	ExternalAccountsEndpoint = "/api/accounts/{accountId}/external-accounts"
	// DELETE a bank account
	ExternalAccountEndpoint = "/api/accounts/{accountId}/external-accounts/{externalAccountId}"
	// PATCH to make a bank account the payout default
	ExternalAccountDefaultEndpoint = "/api/accounts/{accountId}/external-accounts/{externalAccountId}/default"

	// POST a destination charge with a saved payment method
	PayUserEndpoint = "/api/transactions/{accountId}/pay-user"
	// POST to create a PaymentIntent paid with a new card
	CreatePaymentIntentEndpoint = "/api/transactions/{accountId}/create-payment-intent"
)

// Route URL parameter names.
const (
	AccountIDParam         = "accountId"
	PaymentMethodIDParam   = "paymentMethodId"
	ExternalAccountIDParam = "externalAccountId"
)

// BuildPath fills the {param} placeholders of a route template with the
// given values, in order, escaping each one as a path segment.
func BuildPath(template string, params ...string) string {
	var sb strings.Builder
	rest := template
	for _, p := range params {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			break
		}
		end := strings.IndexByte(rest[open:], '}')
		if end < 0 {
			break
		}
		sb.WriteString(rest[:open])
		sb.WriteString(url.PathEscape(p))
		rest = rest[open+end+1:]
	}
	sb.WriteString(rest)
	return sb.String()
}
