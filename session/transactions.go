package session

import (
	"context"
	"fmt"

	"github.com/vocdoni/connect-client/api/apicommon"
	"github.com/vocdoni/connect-client/errors"
	"github.com/vocdoni/connect-client/money"
	"go.vocdoni.io/dvote/log"
)

// PayUser sends amount, a dollar string such as "10.00", from the selected
// account to recipientID charging a saved card. The amount is checked and
// converted to cents before any request is made.
func (s *Session) PayUser(ctx context.Context, recipientID, paymentMethodID, amount string) error {
	return s.run("payUser", func() (string, error) {
		senderID, err := s.selectedAccountID()
		if err != nil {
			return "", err
		}
		cents, err := money.ParseDollars(amount)
		if err != nil {
			return "", err
		}
		req := &apicommon.PayUserRequest{
			Amount:             cents,
			Currency:           apicommon.DefaultCurrency,
			RecipientAccountID: recipientID,
			PaymentMethodID:    paymentMethodID,
		}
		if err := s.validate(req); err != nil {
			return "", err
		}
		charge, err := s.api.PayUser(ctx, senderID, req)
		if err != nil {
			return "", err
		}
		log.Infow("payment sent", "sender", senderID, "recipient", recipientID,
			"charge", charge.ID, "amount", charge.Amount, "status", charge.Status)
		return fmt.Sprintf("Payment of %s sent successfully!", money.FormatCents(cents, req.Currency)), nil
	})
}

// PayWithNewCard pays recipientID with a card that is not saved yet: the
// backend creates a PaymentIntent and the card is confirmed against it
// directly with Stripe. With save set the card is kept for later payments.
// The payment only counts as done when the intent reaches succeeded.
func (s *Session) PayWithNewCard(ctx context.Context, recipientID, amount, paymentMethod string, save bool) error {
	return s.run("payWithNewCard", func() (string, error) {
		senderID, err := s.selectedAccountID()
		if err != nil {
			return "", err
		}
		cents, err := money.ParseDollars(amount)
		if err != nil {
			return "", err
		}
		req := &apicommon.CreatePaymentIntentRequest{
			Amount:             cents,
			Currency:           apicommon.DefaultCurrency,
			RecipientAccountID: recipientID,
			SavePaymentMethod:  save,
		}
		if err := s.validate(req); err != nil {
			return "", err
		}
		if paymentMethod == "" {
			return "", errors.ErrInvalidInput.WithMessage("Payment method is required")
		}
		if err := s.requireTokenizer(); err != nil {
			return "", err
		}
		intent, err := s.api.CreatePaymentIntent(ctx, senderID, req)
		if err != nil {
			return "", err
		}
		result, err := s.tokenizer.ConfirmPaymentIntent(ctx, intent.ClientSecret, paymentMethod)
		if err != nil {
			return "", err
		}
		if !result.Succeeded() {
			return "", errors.ErrIntentNotSucceeded
		}
		log.Infow("payment intent confirmed", "sender", senderID, "recipient", recipientID,
			"intent", result.ID, "amount", cents)
		if save {
			if err := s.loadPaymentMethods(ctx, senderID); err != nil {
				return "", err
			}
		}
		return "Payment completed successfully!", nil
	})
}
