package session

import (
	"context"

	"github.com/vocdoni/connect-client/api/apicommon"
	"github.com/vocdoni/connect-client/errors"
)

// LoadPaymentMethods reloads the saved cards of the selected account.
func (s *Session) LoadPaymentMethods(ctx context.Context) error {
	return s.run("loadPaymentMethods", func() (string, error) {
		accountID, err := s.selectedAccountID()
		if err != nil {
			return "", err
		}
		return "", s.loadPaymentMethods(ctx, accountID)
	})
}

// loadPaymentMethods stores the result only if accountID is still selected.
func (s *Session) loadPaymentMethods(ctx context.Context, accountID string) error {
	methods, err := s.api.ListPaymentMethods(ctx, accountID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isSelected(accountID) {
		s.paymentMethods = methods
	}
	return nil
}

// AddCard attaches a card to the selected account: the backend creates a
// SetupIntent and the card is confirmed against it directly with Stripe.
// paymentMethod is a Stripe payment method ID such as pm_card_visa.
func (s *Session) AddCard(ctx context.Context, paymentMethod string) error {
	return s.run("addCard", func() (string, error) {
		accountID, err := s.selectedAccountID()
		if err != nil {
			return "", err
		}
		if paymentMethod == "" {
			return "", errors.ErrInvalidInput.WithMessage("Payment method is required")
		}
		if err := s.requireTokenizer(); err != nil {
			return "", err
		}
		intent, err := s.api.CreateSetupIntent(ctx, accountID, s.customerID(accountID))
		if err != nil {
			return "", err
		}
		result, err := s.tokenizer.ConfirmSetupIntent(ctx, intent.ClientSecret, paymentMethod)
		if err != nil {
			return "", err
		}
		if !result.Succeeded() {
			return "", errors.ErrIntentNotSucceeded.WithMessage("Card setup was not completed. Please try again.")
		}
		if err := s.loadPaymentMethods(ctx, accountID); err != nil {
			return "", err
		}
		return "Card added successfully", nil
	})
}

// DeletePaymentMethod detaches a saved card of the selected account.
func (s *Session) DeletePaymentMethod(ctx context.Context, paymentMethodID string) error {
	return s.run("deletePaymentMethod", func() (string, error) {
		accountID, err := s.selectedAccountID()
		if err != nil {
			return "", err
		}
		if _, err := s.api.DeletePaymentMethod(ctx, accountID, paymentMethodID); err != nil {
			return "", err
		}
		if err := s.loadPaymentMethods(ctx, accountID); err != nil {
			return "", err
		}
		return "Payment method removed", nil
	})
}

// customerID returns the Stripe customer of the selected account, if known.
func (s *Session) customerID(accountID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected == nil || s.selected.ID != accountID {
		return ""
	}
	return apicommon.Deref(s.selected.StripeCustomerID)
}
