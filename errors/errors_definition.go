// Package errors provides the coded error type shared by the client, the
// session layer and the test backend, and the helpers that turn any failure
// into the single message shown to the user.
//
//nolint:lll
package errors

import (
	"fmt"
	"net/http"
)

// Error codes in the 10001-19999 range are transport failures detected by the
// client (the request never produced a usable response).
//
// Error codes 20001-29999 are input errors detected before any network call.
//
// Error codes 30001-39999 are failures talking to Stripe directly.
//
// Error codes 40001-49999 are the backend contract errors, written by the test
// backend with the HTTP status the real backend uses for them.
//
// NEVER change any of the current error codes, only append new errors after
// the current last one of each range.
var (
	// Transport errors
	ErrNetwork       = Error{Code: 10001, Err: fmt.Errorf("network error")}
	ErrDecoding      = Error{Code: 10002, Err: fmt.Errorf("failed to decode response")}
	ErrEmptyResponse = Error{Code: 10003, Err: fmt.Errorf("empty response")}
	ErrEncoding      = Error{Code: 10004, Err: fmt.Errorf("failed to encode request")}

	// Input errors
	ErrInvalidInput      = Error{Code: 20001, Err: fmt.Errorf("invalid input")}
	ErrInvalidAmount     = Error{Code: 20002, Err: fmt.Errorf("invalid amount")}
	ErrNoAccountSelected = Error{Code: 20003, Err: fmt.Errorf("no account selected")}
	ErrMissingConfig     = Error{Code: 20004, Err: fmt.Errorf("missing configuration")}

	// Stripe errors
	ErrTokenization       = Error{Code: 30001, Err: fmt.Errorf("Failed to create bank token")}
	ErrIntentNotSucceeded = Error{Code: 30002, Err: fmt.Errorf("Payment was not completed. Please try again.")}
	ErrStripeRequest      = Error{Code: 30003, Err: fmt.Errorf("An error occurred")}
	ErrInvalidSecret      = Error{Code: 30004, Err: fmt.Errorf("invalid client secret")}

	// Backend contract errors
	ErrAccountNotFound          = Error{Code: 40001, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("Account not found")}
	ErrSenderNotFound           = Error{Code: 40002, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("Sender account not found")}
	ErrRecipientNotFound        = Error{Code: 40003, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("Recipient account not found")}
	ErrPaymentMethodNotFound    = Error{Code: 40004, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("Payment method not found")}
	ErrExternalAccountNotFound  = Error{Code: 40005, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("External account not found")}
	ErrRecipientRequired        = Error{Code: 40006, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("Account must be a recipient to create an onboarding link")}
	ErrInvalidToken             = Error{Code: 40007, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("Invalid bank account token")}
	ErrMalformedBody            = Error{Code: 40008, HTTPstatus: http.StatusUnprocessableEntity, Err: fmt.Errorf("invalid JSON request body")}
	ErrCardDeclined             = Error{Code: 40009, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("Your card was declined.")}
	ErrRecipientNotTransferable = Error{Code: 40010, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("Recipient account cannot receive transfers")}
)
