package session

import (
	"context"

	"github.com/vocdoni/connect-client/api/apicommon"
	"go.vocdoni.io/dvote/log"
)

// LoadExternalAccounts reloads the bank accounts of the selected account.
func (s *Session) LoadExternalAccounts(ctx context.Context) error {
	return s.run("loadExternalAccounts", func() (string, error) {
		accountID, err := s.selectedAccountID()
		if err != nil {
			return "", err
		}
		return "", s.loadExternalAccounts(ctx, accountID)
	})
}

// loadExternalAccounts stores the result only if accountID is still selected.
func (s *Session) loadExternalAccounts(ctx context.Context, accountID string) error {
	accounts, err := s.api.ListExternalAccounts(ctx, accountID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isSelected(accountID) {
		s.externalAccounts = accounts
	}
	return nil
}

// AddBankAccount links a bank account to the selected account. The form is
// validated first, then the details are tokenized with Stripe and only the
// token is sent to the backend. Nothing leaves the process when the form is
// invalid.
func (s *Session) AddBankAccount(ctx context.Context, form *apicommon.BankAccountForm) error {
	return s.run("addBankAccount", func() (string, error) {
		accountID, err := s.selectedAccountID()
		if err != nil {
			return "", err
		}
		if err := s.validate(form); err != nil {
			return "", err
		}
		if err := s.requireTokenizer(); err != nil {
			return "", err
		}
		details := form.Details()
		token, err := s.tokenizer.CreateBankAccountToken(ctx, details)
		if err != nil {
			return "", err
		}
		bank, err := s.api.CreateExternalAccount(ctx, accountID, token)
		if err != nil {
			return "", err
		}
		log.Debugw("bank account linked", "account", accountID, "externalAccount", bank.ID)
		if err := s.loadExternalAccounts(ctx, accountID); err != nil {
			return "", err
		}
		return "Bank account added successfully", nil
	})
}

// DeleteExternalAccount removes a bank account of the selected account.
func (s *Session) DeleteExternalAccount(ctx context.Context, externalAccountID string) error {
	return s.run("deleteExternalAccount", func() (string, error) {
		accountID, err := s.selectedAccountID()
		if err != nil {
			return "", err
		}
		if _, err := s.api.DeleteExternalAccount(ctx, accountID, externalAccountID); err != nil {
			return "", err
		}
		if err := s.loadExternalAccounts(ctx, accountID); err != nil {
			return "", err
		}
		return "Bank account removed", nil
	})
}

// SetDefaultExternalAccount makes a bank account the payout default for its
// currency.
func (s *Session) SetDefaultExternalAccount(ctx context.Context, externalAccountID string) error {
	return s.run("setDefaultExternalAccount", func() (string, error) {
		accountID, err := s.selectedAccountID()
		if err != nil {
			return "", err
		}
		if _, err := s.api.SetDefaultExternalAccount(ctx, accountID, externalAccountID); err != nil {
			return "", err
		}
		if err := s.loadExternalAccounts(ctx, accountID); err != nil {
			return "", err
		}
		return "Default bank account updated", nil
	})
}
