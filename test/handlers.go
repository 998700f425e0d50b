package test

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/vocdoni/connect-client/api/apicommon"
	"github.com/vocdoni/connect-client/errors"
	"github.com/vocdoni/connect-client/internal"
)

// testCards are the pm_card_* payment methods accepted when confirming
// intents, with the card they resolve to.
var testCards = map[string]apicommon.CardDetails{
	"pm_card_visa":           {Brand: "visa", Last4: "4242", ExpMonth: 12, ExpYear: 2034},
	"pm_card_mastercard":     {Brand: "mastercard", Last4: "4444", ExpMonth: 12, ExpYear: 2034},
	"pm_card_amex":           {Brand: "amex", Last4: "8431", ExpMonth: 12, ExpYear: 2034},
	"pm_card_chargeDeclined": {Brand: "visa", Last4: "0002", ExpMonth: 12, ExpYear: 2034},
}

// declinedLast4 marks saved cards that fail when charged.
const declinedLast4 = "0002"

func (b *Backend) createAccountHandler(w http.ResponseWriter, r *http.Request) {
	req := &apicommon.CreateAccountRequest{}
	if !decodeBody(w, r, req) {
		return
	}
	var missing []string
	if strings.TrimSpace(req.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(req.Email) == "" {
		missing = append(missing, "email")
	}
	if len(missing) > 0 {
		writeFieldErrors(w, missing...)
		return
	}
	if req.Country == "" {
		req.Country = apicommon.DefaultCountry
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	pa := b.newAccountLocked(req.Name, req.Email, req.Country)
	view := pa.listView()
	view.IsMerchant = nil
	apicommon.HTTPWriteJSON(w, view)
}

func (b *Backend) listAccountsHandler(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	list := apicommon.AccountList{Accounts: make([]apicommon.Account, 0, len(b.order))}
	for _, id := range b.order {
		list.Accounts = append(list.Accounts, b.accounts[id].listView())
	}
	apicommon.HTTPWriteJSON(w, list)
}

func (b *Backend) accountHandler(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	pa, ok := b.accountLocked(w, r, errors.ErrAccountNotFound)
	if !ok {
		return
	}
	apicommon.HTTPWriteJSON(w, pa.detailView())
}

func (b *Backend) deleteAccountHandler(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	pa, ok := b.accountLocked(w, r, errors.ErrAccountNotFound)
	if !ok {
		return
	}
	delete(b.accounts, pa.id)
	for i, id := range b.order {
		if id == pa.id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	apicommon.HTTPWriteJSON(w, apicommon.DeleteAccountResponse{Status: apicommon.StatusDeleted, AccountID: pa.id})
}

func (b *Backend) upgradeToRecipientHandler(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	pa, ok := b.accountLocked(w, r, errors.ErrAccountNotFound)
	if !ok {
		return
	}
	if !pa.recipient {
		pa.recipient = true
		pa.onboarding = true
	}
	status := "active"
	if pa.onboarding {
		status = "restricted"
	}
	apicommon.HTTPWriteJSON(w, apicommon.UpgradeToRecipientResponse{
		ID:                    pa.id,
		StripeAccountID:       pa.stripeAccountID,
		IsMerchant:            false,
		IsRecipient:           true,
		MerchantCapabilities:  map[string]any{},
		RecipientCapabilities: recipientCapabilities(status),
	})
}

func (b *Backend) onboardingLinkHandler(w http.ResponseWriter, r *http.Request) {
	req := &apicommon.AccountLinkRequest{}
	if !decodeBody(w, r, req) {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	pa, ok := b.accountLocked(w, r, errors.ErrAccountNotFound)
	if !ok {
		return
	}
	if !pa.recipient {
		errors.ErrRecipientRequired.Write(w)
		return
	}
	now := time.Now().UTC()
	apicommon.HTTPWriteJSON(w, apicommon.AccountLinkResponse{
		URL:       "https://connect.stripe.com/setup/e/" + pa.stripeAccountID + "/" + internal.RandomHex(6),
		Created:   now.Format(time.RFC3339),
		ExpiresAt: now.Add(5 * time.Minute).Format(time.RFC3339),
	})
}

func (b *Backend) setupIntentHandler(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	pa, ok := b.accountLocked(w, r, errors.ErrAccountNotFound)
	if !ok {
		return
	}
	si := &setupIntent{id: internal.NewID("seti", 12), accountID: pa.id, status: "requires_payment_method"}
	si.secret = clientSecret(si.id)
	b.setupIntents[si.id] = si

	customerID := r.URL.Query().Get("customer_id")
	if customerID == "" {
		customerID = pa.stripeCustomerID
	}
	apicommon.HTTPWriteJSON(w, apicommon.SetupIntentResponse{
		ClientSecret:  si.secret,
		SetupIntentID: si.id,
		CustomerID:    customerID,
	})
}

func (b *Backend) listPaymentMethodsHandler(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	pa, ok := b.accountLocked(w, r, errors.ErrAccountNotFound)
	if !ok {
		return
	}
	list := apicommon.PaymentMethodList{PaymentMethods: append([]apicommon.PaymentMethod{}, pa.paymentMethods...)}
	apicommon.HTTPWriteJSON(w, list)
}

func (b *Backend) deletePaymentMethodHandler(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	pa, ok := b.accountLocked(w, r, errors.ErrAccountNotFound)
	if !ok {
		return
	}
	pmID := chi.URLParam(r, apicommon.PaymentMethodIDParam)
	for i, pm := range pa.paymentMethods {
		if pm.ID == pmID {
			pa.paymentMethods = append(pa.paymentMethods[:i], pa.paymentMethods[i+1:]...)
			apicommon.HTTPWriteJSON(w, apicommon.DetachPaymentMethodResponse{
				Status:          apicommon.StatusDetached,
				PaymentMethodID: pmID,
			})
			return
		}
	}
	errors.ErrPaymentMethodNotFound.Write(w)
}

func (b *Backend) createExternalAccountHandler(w http.ResponseWriter, r *http.Request) {
	req := &apicommon.CreateExternalAccountRequest{}
	if !decodeBody(w, r, req) {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	pa, ok := b.accountLocked(w, r, errors.ErrAccountNotFound)
	if !ok {
		return
	}
	ea, ok := b.bankTokens[req.Token]
	if !ok {
		errors.ErrInvalidToken.Write(w)
		return
	}
	delete(b.bankTokens, req.Token)
	ea.DefaultForCurrency = true
	for _, existing := range pa.externalAccounts {
		if existing.Currency == ea.Currency && existing.DefaultForCurrency {
			ea.DefaultForCurrency = false
			break
		}
	}
	pa.externalAccounts = append(pa.externalAccounts, ea)
	apicommon.HTTPWriteJSON(w, ea)
}

func (b *Backend) listExternalAccountsHandler(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	pa, ok := b.accountLocked(w, r, errors.ErrAccountNotFound)
	if !ok {
		return
	}
	list := apicommon.ExternalAccountList{ExternalAccounts: append([]apicommon.ExternalAccount{}, pa.externalAccounts...)}
	apicommon.HTTPWriteJSON(w, list)
}

func (b *Backend) deleteExternalAccountHandler(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	pa, ok := b.accountLocked(w, r, errors.ErrExternalAccountNotFound)
	if !ok {
		return
	}
	eaID := chi.URLParam(r, apicommon.ExternalAccountIDParam)
	for i, ea := range pa.externalAccounts {
		if ea.ID == eaID {
			pa.externalAccounts = append(pa.externalAccounts[:i], pa.externalAccounts[i+1:]...)
			apicommon.HTTPWriteJSON(w, apicommon.DeleteExternalAccountResponse{
				Status:            apicommon.StatusDeleted,
				ExternalAccountID: eaID,
			})
			return
		}
	}
	errors.ErrExternalAccountNotFound.Write(w)
}

func (b *Backend) setDefaultExternalAccountHandler(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	pa, ok := b.accountLocked(w, r, errors.ErrExternalAccountNotFound)
	if !ok {
		return
	}
	eaID := chi.URLParam(r, apicommon.ExternalAccountIDParam)
	idx := -1
	for i := range pa.externalAccounts {
		if pa.externalAccounts[i].ID == eaID {
			idx = i
			break
		}
	}
	if idx < 0 {
		errors.ErrExternalAccountNotFound.Write(w)
		return
	}
	currency := pa.externalAccounts[idx].Currency
	for i := range pa.externalAccounts {
		if pa.externalAccounts[i].Currency == currency {
			pa.externalAccounts[i].DefaultForCurrency = i == idx
		}
	}
	apicommon.HTTPWriteJSON(w, pa.externalAccounts[idx])
}

// transferTarget resolves the sender and recipient of a transaction, writing
// the error response when one of them is unusable.
func (b *Backend) transferTarget(w http.ResponseWriter, r *http.Request, recipientID string, amount int64) (
	sender, recipient *platformAccount, ok bool,
) {
	sender, ok = b.accountLocked(w, r, errors.ErrSenderNotFound)
	if !ok {
		return nil, nil, false
	}
	recipient, ok = b.accounts[recipientID]
	if !ok {
		errors.ErrRecipientNotFound.Write(w)
		return nil, nil, false
	}
	if !recipient.recipient {
		errors.ErrRecipientNotTransferable.Write(w)
		return nil, nil, false
	}
	if amount < MinimumChargeCents {
		tooSmall := errors.ErrInvalidAmount.WithMessage("Amount must be at least $0.50 usd")
		tooSmall.HTTPstatus = http.StatusBadRequest
		tooSmall.Write(w)
		return nil, nil, false
	}
	return sender, recipient, true
}

func (b *Backend) payUserHandler(w http.ResponseWriter, r *http.Request) {
	req := &apicommon.PayUserRequest{}
	if !decodeBody(w, r, req) {
		return
	}
	if req.Currency == "" {
		req.Currency = apicommon.DefaultCurrency
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	sender, recipient, ok := b.transferTarget(w, r, req.RecipientAccountID, req.Amount)
	if !ok {
		return
	}
	var card *apicommon.CardDetails
	for _, pm := range sender.paymentMethods {
		if pm.ID == req.PaymentMethodID {
			card = pm.Card
			break
		}
	}
	if card == nil {
		errors.ErrPaymentMethodNotFound.Write(w)
		return
	}
	if card.Last4 == declinedLast4 {
		errors.ErrCardDeclined.Write(w)
		return
	}
	pi := &paymentIntent{
		id:          internal.NewID("pi", 12),
		senderID:    sender.id,
		recipientID: recipient.id,
		amount:      req.Amount,
		currency:    req.Currency,
		status:      "succeeded",
	}
	b.paymentIntents[pi.id] = pi
	transfer := recipient.stripeAccountID
	apicommon.HTTPWriteJSON(w, apicommon.PayUserResponse{
		ID:        pi.id,
		Amount:    pi.amount,
		Currency:  pi.currency,
		Status:    pi.status,
		Recipient: recipient.id,
		Transfer:  &transfer,
		Created:   time.Now().Unix(),
	})
}

func (b *Backend) createPaymentIntentHandler(w http.ResponseWriter, r *http.Request) {
	req := &apicommon.CreatePaymentIntentRequest{}
	if !decodeBody(w, r, req) {
		return
	}
	if req.Currency == "" {
		req.Currency = apicommon.DefaultCurrency
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	sender, recipient, ok := b.transferTarget(w, r, req.RecipientAccountID, req.Amount)
	if !ok {
		return
	}
	pi := &paymentIntent{
		id:          internal.NewID("pi", 12),
		senderID:    sender.id,
		recipientID: recipient.id,
		amount:      req.Amount,
		currency:    req.Currency,
		status:      "requires_payment_method",
		save:        req.SavePaymentMethod,
	}
	pi.secret = clientSecret(pi.id)
	b.paymentIntents[pi.id] = pi
	apicommon.HTTPWriteJSON(w, apicommon.CreatePaymentIntentResponse{
		ClientSecret:    pi.secret,
		PaymentIntentID: pi.id,
		Amount:          pi.amount,
		Currency:        pi.currency,
		Recipient:       recipient.id,
	})
}
