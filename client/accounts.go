package client

import (
	"context"
	"net/http"
	"strings"

	"github.com/vocdoni/connect-client/api/apicommon"
)

// CreateAccount creates a platform account with the customer configuration.
// An empty country defaults to US.
func (c *Client) CreateAccount(ctx context.Context, req *apicommon.CreateAccountRequest) (*apicommon.Account, error) {
	body := *req
	body.Name = strings.TrimSpace(body.Name)
	body.Email = strings.TrimSpace(body.Email)
	if body.Country == "" {
		body.Country = apicommon.DefaultCountry
	}
	var account apicommon.Account
	if err := c.doJSON(ctx, request{
		method: http.MethodPost,
		route:  apicommon.AccountsEndpoint,
		body:   &body,
	}, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

// ListAccounts returns every platform account.
func (c *Client) ListAccounts(ctx context.Context) ([]apicommon.Account, error) {
	var list apicommon.AccountList
	if err := c.doJSON(ctx, request{
		method: http.MethodGet,
		route:  apicommon.AccountsEndpoint,
	}, &list); err != nil {
		return nil, err
	}
	return list.Accounts, nil
}

// Account returns the details of a platform account, including its
// onboarding state and requirements.
func (c *Client) Account(ctx context.Context, accountID string) (*apicommon.Account, error) {
	var account apicommon.Account
	if err := c.doJSON(ctx, request{
		method: http.MethodGet,
		route:  apicommon.AccountEndpoint,
		params: []string{accountID},
	}, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

// DeleteAccount deletes the platform account and its Stripe account.
func (c *Client) DeleteAccount(ctx context.Context, accountID string) (*apicommon.DeleteAccountResponse, error) {
	var resp apicommon.DeleteAccountResponse
	if err := c.doJSON(ctx, request{
		method: http.MethodDelete,
		route:  apicommon.AccountEndpoint,
		params: []string{accountID},
	}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UpgradeToRecipient adds the recipient configuration so the account can
// receive transfers.
func (c *Client) UpgradeToRecipient(ctx context.Context, accountID string) (*apicommon.UpgradeToRecipientResponse, error) {
	var resp apicommon.UpgradeToRecipientResponse
	if err := c.doJSON(ctx, request{
		method: http.MethodPost,
		route:  apicommon.AccountUpgradeEndpoint,
		params: []string{accountID},
	}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreateOnboardingLink returns a hosted onboarding URL for a recipient.
func (c *Client) CreateOnboardingLink(
	ctx context.Context,
	accountID string,
	req *apicommon.AccountLinkRequest,
) (*apicommon.AccountLinkResponse, error) {
	var resp apicommon.AccountLinkResponse
	if err := c.doJSON(ctx, request{
		method: http.MethodPost,
		route:  apicommon.AccountOnboardingLinkEndpoint,
		params: []string{accountID},
		body:   req,
	}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
