package session

import (
	"context"
	"strings"

	"github.com/vocdoni/connect-client/api/apicommon"
	"github.com/vocdoni/connect-client/errors"
	"go.vocdoni.io/dvote/log"
)

// LoadAccounts fetches the account list. The current selection is kept when
// the account still exists, otherwise the first account is selected. Only a
// failure to list the accounts fails the operation: when the details, payment
// methods or bank accounts of the selected account cannot be loaded, the
// message is left in State().Error and the selection stays usable.
func (s *Session) LoadAccounts(ctx context.Context) error {
	return s.run("loadAccounts", func() (string, error) {
		accounts, err := s.api.ListAccounts(ctx)
		if err != nil {
			return "", err
		}
		s.mu.Lock()
		s.accounts = accounts
		target := ""
		for _, a := range accounts {
			if a.ID == s.selectedID {
				target = a.ID
				break
			}
		}
		if target == "" && len(accounts) > 0 {
			target = accounts[0].ID
		}
		if target == "" {
			s.clearSelectionLocked()
		}
		s.mu.Unlock()
		if target == "" {
			return "", s.prefs.ClearSelectedAccountID()
		}
		s.setSelection(target)
		if err := s.loadSelected(ctx, target); err != nil {
			log.Warnw("cannot load selected account data", "account", target, "error", err)
			s.mu.Lock()
			s.errorMessage = errors.Message(err)
			s.mu.Unlock()
		}
		return "", nil
	})
}

// Select makes accountID the selected account, loads its details, payment
// methods and bank accounts, and persists the choice.
func (s *Session) Select(ctx context.Context, accountID string) error {
	return s.run("select", func() (string, error) {
		return "", s.selectAccount(ctx, accountID)
	})
}

// selectAccount switches the selection once the details of accountID load,
// so an unknown account never becomes the selected or persisted one.
func (s *Session) selectAccount(ctx context.Context, accountID string) error {
	account, err := s.api.Account(ctx, accountID)
	if err != nil {
		return err
	}
	s.setSelection(accountID)
	return s.storeAccountData(ctx, accountID, account)
}

// setSelection makes accountID the selected account and persists it. Lists
// left over from the previous account are dropped right away.
func (s *Session) setSelection(accountID string) {
	s.mu.Lock()
	if s.selectedID != accountID {
		s.clearSelectionLocked()
	}
	s.selectedID = accountID
	s.mu.Unlock()
	if err := s.prefs.SetSelectedAccountID(accountID); err != nil {
		log.Warnw("cannot persist selected account", "account", accountID, "error", err)
	}
}

// loadSelected loads the details, payment methods and bank accounts of an
// account that is already selected.
func (s *Session) loadSelected(ctx context.Context, accountID string) error {
	account, err := s.api.Account(ctx, accountID)
	if err != nil {
		return err
	}
	return s.storeAccountData(ctx, accountID, account)
}

// storeAccountData stores the details of accountID and loads its payment
// methods and bank accounts. Both lists are requested even when the first
// one fails.
func (s *Session) storeAccountData(ctx context.Context, accountID string, account *apicommon.Account) error {
	s.mu.Lock()
	if s.isSelected(accountID) {
		s.selected = account
	}
	s.mu.Unlock()

	pmErr := s.loadPaymentMethods(ctx, accountID)
	eaErr := s.loadExternalAccounts(ctx, accountID)
	if pmErr != nil {
		return pmErr
	}
	return eaErr
}

// CreateAccount validates the form, creates the account, reloads the list and
// selects the new account. country may be empty.
func (s *Session) CreateAccount(ctx context.Context, name, email, country string) error {
	return s.run("createAccount", func() (string, error) {
		req := &apicommon.CreateAccountRequest{
			Name:    strings.TrimSpace(name),
			Email:   strings.TrimSpace(email),
			Country: strings.ToUpper(strings.TrimSpace(country)),
		}
		if err := s.validate(req); err != nil {
			return "", err
		}
		account, err := s.api.CreateAccount(ctx, req)
		if err != nil {
			return "", err
		}
		log.Infow("account created", "account", account.ID)
		accounts, err := s.api.ListAccounts(ctx)
		if err != nil {
			return "", err
		}
		s.mu.Lock()
		s.accounts = accounts
		s.mu.Unlock()
		if err := s.selectAccount(ctx, account.ID); err != nil {
			return "", err
		}
		return "Account created successfully", nil
	})
}

// DeleteAccount deletes the account and its Stripe account. When it was the
// selected account, every piece of state that depends on it is cleared,
// including the persisted selection.
func (s *Session) DeleteAccount(ctx context.Context, accountID string) error {
	return s.run("deleteAccount", func() (string, error) {
		if _, err := s.api.DeleteAccount(ctx, accountID); err != nil {
			return "", err
		}
		s.mu.Lock()
		accounts := make([]apicommon.Account, 0, len(s.accounts))
		for _, a := range s.accounts {
			if a.ID != accountID {
				accounts = append(accounts, a)
			}
		}
		s.accounts = accounts
		wasSelected := s.isSelected(accountID)
		if wasSelected {
			s.clearSelectionLocked()
		}
		s.mu.Unlock()
		if wasSelected {
			if err := s.prefs.ClearSelectedAccountID(); err != nil {
				log.Warnw("cannot clear persisted account", "account", accountID, "error", err)
			}
		}
		return "Account deleted successfully", nil
	})
}

// UpgradeToRecipient adds the recipient configuration to the selected
// account and refreshes it.
func (s *Session) UpgradeToRecipient(ctx context.Context) error {
	return s.run("upgradeToRecipient", func() (string, error) {
		accountID, err := s.selectedAccountID()
		if err != nil {
			return "", err
		}
		if _, err := s.api.UpgradeToRecipient(ctx, accountID); err != nil {
			return "", err
		}
		if err := s.refreshAccount(ctx, accountID); err != nil {
			return "", err
		}
		return "Account upgraded to recipient", nil
	})
}

// CreateOnboardingLink asks for a hosted onboarding link for the selected
// account. The URL is left in State().OnboardingURL for the front end to
// open.
func (s *Session) CreateOnboardingLink(ctx context.Context, refreshURL, returnURL string) error {
	return s.run("createOnboardingLink", func() (string, error) {
		accountID, err := s.selectedAccountID()
		if err != nil {
			return "", err
		}
		req := &apicommon.AccountLinkRequest{RefreshURL: refreshURL, ReturnURL: returnURL}
		if err := s.validate(req); err != nil {
			return "", err
		}
		link, err := s.api.CreateOnboardingLink(ctx, accountID, req)
		if err != nil {
			return "", err
		}
		s.mu.Lock()
		if s.isSelected(accountID) {
			s.onboardingURL = link.URL
		}
		s.mu.Unlock()
		return "", nil
	})
}

// refreshAccount reloads the account list and the details of accountID.
func (s *Session) refreshAccount(ctx context.Context, accountID string) error {
	accounts, err := s.api.ListAccounts(ctx)
	if err != nil {
		return err
	}
	account, err := s.api.Account(ctx, accountID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts = accounts
	if s.isSelected(accountID) {
		s.selected = account
	}
	return nil
}

func (s *Session) clearSelectionLocked() {
	s.selectedID = ""
	s.selected = nil
	s.paymentMethods = nil
	s.externalAccounts = nil
	s.onboardingURL = ""
}
