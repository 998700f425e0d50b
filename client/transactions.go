package client

import (
	"context"
	"net/http"

	"github.com/vocdoni/connect-client/api/apicommon"
)

// PayUser charges a saved card of the sender and sends the money to the
// recipient, minus the platform fee. An empty currency defaults to usd.
func (c *Client) PayUser(
	ctx context.Context,
	senderAccountID string,
	req *apicommon.PayUserRequest,
) (*apicommon.PayUserResponse, error) {
	body := *req
	if body.Currency == "" {
		body.Currency = apicommon.DefaultCurrency
	}
	var resp apicommon.PayUserResponse
	if err := c.doJSON(ctx, request{
		method:     http.MethodPost,
		route:      apicommon.PayUserEndpoint,
		params:     []string{senderAccountID},
		body:       &body,
		idempotent: true,
	}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreatePaymentIntent creates a payment to the recipient that is completed
// by confirming the returned client secret with a new card.
func (c *Client) CreatePaymentIntent(
	ctx context.Context,
	senderAccountID string,
	req *apicommon.CreatePaymentIntentRequest,
) (*apicommon.CreatePaymentIntentResponse, error) {
	body := *req
	if body.Currency == "" {
		body.Currency = apicommon.DefaultCurrency
	}
	var resp apicommon.CreatePaymentIntentResponse
	if err := c.doJSON(ctx, request{
		method:     http.MethodPost,
		route:      apicommon.CreatePaymentIntentEndpoint,
		params:     []string{senderAccountID},
		body:       &body,
		idempotent: true,
	}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
