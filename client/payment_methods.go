package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/vocdoni/connect-client/api/apicommon"
)

// CreateSetupIntent starts attaching a card to the account. customerID is
// sent as the customer_id query parameter only when not empty.
func (c *Client) CreateSetupIntent(ctx context.Context, accountID, customerID string) (*apicommon.SetupIntentResponse, error) {
	var query url.Values
	if customerID != "" {
		query = url.Values{"customer_id": []string{customerID}}
	}
	var resp apicommon.SetupIntentResponse
	if err := c.doJSON(ctx, request{
		method: http.MethodPost,
		route:  apicommon.SetupIntentEndpoint,
		params: []string{accountID},
		query:  query,
	}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListPaymentMethods returns the saved cards of the account.
func (c *Client) ListPaymentMethods(ctx context.Context, accountID string) ([]apicommon.PaymentMethod, error) {
	var list apicommon.PaymentMethodList
	if err := c.doJSON(ctx, request{
		method: http.MethodGet,
		route:  apicommon.PaymentMethodsEndpoint,
		params: []string{accountID},
	}, &list); err != nil {
		return nil, err
	}
	return list.PaymentMethods, nil
}

// DeletePaymentMethod detaches a saved card.
func (c *Client) DeletePaymentMethod(
	ctx context.Context,
	accountID, paymentMethodID string,
) (*apicommon.DetachPaymentMethodResponse, error) {
	var resp apicommon.DetachPaymentMethodResponse
	if err := c.doJSON(ctx, request{
		method: http.MethodDelete,
		route:  apicommon.PaymentMethodEndpoint,
		params: []string{accountID, paymentMethodID},
	}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
