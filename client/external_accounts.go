package client

import (
	"context"
	"net/http"

	"github.com/vocdoni/connect-client/api/apicommon"
)

// CreateExternalAccount links the bank account behind a Stripe bank account
// token as payout destination.
func (c *Client) CreateExternalAccount(ctx context.Context, accountID, token string) (*apicommon.ExternalAccount, error) {
	var ea apicommon.ExternalAccount
	if err := c.doJSON(ctx, request{
		method: http.MethodPost,
		route:  apicommon.ExternalAccountsEndpoint,
		params: []string{accountID},
		body:   &apicommon.CreateExternalAccountRequest{Token: token},
	}, &ea); err != nil {
		return nil, err
	}
	return &ea, nil
}

// ListExternalAccounts returns the linked bank accounts.
func (c *Client) ListExternalAccounts(ctx context.Context, accountID string) ([]apicommon.ExternalAccount, error) {
	var list apicommon.ExternalAccountList
	if err := c.doJSON(ctx, request{
		method: http.MethodGet,
		route:  apicommon.ExternalAccountsEndpoint,
		params: []string{accountID},
	}, &list); err != nil {
		return nil, err
	}
	return list.ExternalAccounts, nil
}

// DeleteExternalAccount unlinks a bank account.
func (c *Client) DeleteExternalAccount(
	ctx context.Context,
	accountID, externalAccountID string,
) (*apicommon.DeleteExternalAccountResponse, error) {
	var resp apicommon.DeleteExternalAccountResponse
	if err := c.doJSON(ctx, request{
		method: http.MethodDelete,
		route:  apicommon.ExternalAccountEndpoint,
		params: []string{accountID, externalAccountID},
	}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SetDefaultExternalAccount makes the bank account the default payout
// destination for its currency.
func (c *Client) SetDefaultExternalAccount(
	ctx context.Context,
	accountID, externalAccountID string,
) (*apicommon.ExternalAccount, error) {
	var ea apicommon.ExternalAccount
	if err := c.doJSON(ctx, request{
		method: http.MethodPatch,
		route:  apicommon.ExternalAccountDefaultEndpoint,
		params: []string{accountID, externalAccountID},
	}, &ea); err != nil {
		return nil, err
	}
	return &ea, nil
}
