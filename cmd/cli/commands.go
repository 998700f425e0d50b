package main

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/vocdoni/connect-client/api/apicommon"
	"github.com/vocdoni/connect-client/client"
	"github.com/vocdoni/connect-client/errors"
	"github.com/vocdoni/connect-client/metrics"
	"github.com/vocdoni/connect-client/prefs"
	"github.com/vocdoni/connect-client/session"
	"github.com/vocdoni/connect-client/stripe"
	"go.vocdoni.io/dvote/log"
)

var errUsage = stderrors.New("invalid command")

// run executes the command in args and writes the resulting state, or the
// error message, to out.
func run(ctx context.Context, cfg *Config, args []string, out io.Writer) error {
	m := metrics.New()
	if cfg.MetricsAddr != "" {
		stop, err := serveMetrics(cfg.MetricsAddr, m)
		if err != nil {
			return printError(out, err)
		}
		defer stop()
	}

	api := client.New(cfg.APIURL, client.WithTimeout(cfg.Timeout), client.WithMetrics(m))

	var tokenizer session.Tokenizer
	if cfg.StripeKey != "" {
		sc, err := stripe.NewClient(&stripe.Config{
			PublishableKey: cfg.StripeKey,
			APIURL:         cfg.StripeURL,
			Timeout:        cfg.Timeout,
		}, &http.Client{Timeout: cfg.Timeout, Transport: m.RoundTripper(nil)})
		if err != nil {
			return printError(out, err)
		}
		tokenizer = sc
	}

	var store *prefs.Store
	if cfg.DataDir != "" {
		var err error
		if store, err = prefs.New(cfg.DataDir); err != nil {
			log.Warnw("selected account will not be remembered", "dataDir", cfg.DataDir, "error", err)
		} else {
			defer store.Close()
		}
	}

	sess := session.New(api, tokenizer, store)
	result, err := execute(ctx, sess, cfg, args)
	if err != nil {
		if stderrors.Is(err, errUsage) {
			fmt.Fprint(out, usage())
		}
		return printError(out, err)
	}
	return printJSON(out, result)
}

// execute dispatches args to the session. The account list is loaded first
// so the persisted selection is in place for every command.
func execute(ctx context.Context, sess *session.Session, cfg *Config, args []string) (any, error) {
	if len(args) == 0 {
		return nil, errUsage
	}
	if err := sess.LoadAccounts(ctx); err != nil {
		return nil, err
	}
	command, sub, rest := args[0], "list", []string{}
	if len(args) > 1 {
		sub, rest = args[1], args[2:]
	}

	var err error
	switch command {
	case "accounts":
		err = accountsCommand(ctx, sess, sub, rest)
	case "select":
		if len(args) != 2 {
			return nil, errUsage
		}
		err = sess.Select(ctx, args[1])
	case "cards":
		err = cardsCommand(ctx, sess, sub, rest)
	case "banks":
		err = banksCommand(ctx, sess, sub, rest)
	case "recipients":
		return recipientsView(sess.Recipients()), nil
	case "pay":
		if len(args) != 4 {
			return nil, errUsage
		}
		err = sess.PayUser(ctx, args[1], args[2], args[3])
	case "pay-new":
		if len(args) != 4 {
			return nil, errUsage
		}
		err = sess.PayWithNewCard(ctx, args[1], args[2], args[3], cfg.Save)
	default:
		return nil, errUsage
	}
	if err != nil {
		return nil, err
	}
	return sess.State(), nil
}

func accountsCommand(ctx context.Context, sess *session.Session, sub string, args []string) error {
	switch {
	case sub == "list" && len(args) == 0:
		return nil
	case sub == "create" && (len(args) == 2 || len(args) == 3):
		country := ""
		if len(args) == 3 {
			country = args[2]
		}
		return sess.CreateAccount(ctx, args[0], args[1], country)
	case sub == "show" && len(args) == 0:
		return nil
	case sub == "show" && len(args) == 1:
		return sess.Select(ctx, args[0])
	case sub == "delete" && len(args) == 1:
		return sess.DeleteAccount(ctx, args[0])
	case sub == "upgrade" && len(args) == 0:
		return sess.UpgradeToRecipient(ctx)
	case sub == "onboard" && len(args) == 2:
		return sess.CreateOnboardingLink(ctx, args[0], args[1])
	}
	return errUsage
}

func cardsCommand(ctx context.Context, sess *session.Session, sub string, args []string) error {
	switch {
	case sub == "list" && len(args) == 0:
		return sess.LoadPaymentMethods(ctx)
	case sub == "add" && len(args) == 1:
		return sess.AddCard(ctx, args[0])
	case sub == "delete" && len(args) == 1:
		return sess.DeletePaymentMethod(ctx, args[0])
	}
	return errUsage
}

func banksCommand(ctx context.Context, sess *session.Session, sub string, args []string) error {
	switch {
	case sub == "list" && len(args) == 0:
		return sess.LoadExternalAccounts(ctx)
	case sub == "add" && len(args) >= 4 && len(args) <= 6:
		form := &apicommon.BankAccountForm{
			AccountHolderName:    args[0],
			RoutingNumber:        args[1],
			AccountNumber:        args[2],
			ConfirmAccountNumber: args[3],
		}
		if len(args) > 4 {
			form.Country = args[4]
		}
		if len(args) > 5 {
			form.Currency = args[5]
		}
		return sess.AddBankAccount(ctx, form)
	case sub == "delete" && len(args) == 1:
		return sess.DeleteExternalAccount(ctx, args[0])
	case sub == "default" && len(args) == 1:
		return sess.SetDefaultExternalAccount(ctx, args[0])
	}
	return errUsage
}

// recipient is the entry of the recipient picker.
type recipient struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

func recipientsView(accounts []apicommon.Account) []recipient {
	recipients := make([]recipient, 0, len(accounts))
	for i := range accounts {
		recipients = append(recipients, recipient{ID: accounts[i].ID, Label: accounts[i].Label()})
	}
	return recipients
}

// serveMetrics exposes the metrics on addr until the returned function is
// called.
func serveMetrics(addr string, m *metrics.Metrics) (func(), error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("cannot listen on %s: %w", addr, err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(listener); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			log.Warnw("metrics server stopped", "error", err)
		}
	}()
	log.Infow("serving metrics", "address", listener.Addr().String())
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}

func printJSON(out io.Writer, data any) error {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return printError(out, err)
	}
	fmt.Fprintln(out, string(jsonData))
	return nil
}

func printError(out io.Writer, err error) error {
	fmt.Fprintf(out, "error: %s\n", errors.Message(err))
	return err
}
