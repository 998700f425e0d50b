// Package main provides a command line front end for the Connect demo
// backend. Each invocation loads the accounts, runs one command through the
// shared session and prints the resulting state as JSON. The selected
// account is remembered between invocations in the data directory.
package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/vocdoni/connect-client/client"
	"github.com/vocdoni/connect-client/stripe"
	"go.vocdoni.io/dvote/log"
)

const (
	defaultAPIURL = "http://localhost:6969"
	envPrefix     = "CONNECT"
)

// Config contains the CLI inputs.
type Config struct {
	APIURL      string
	StripeKey   string
	StripeURL   string
	DataDir     string
	LogLevel    string
	Timeout     time.Duration
	MetricsAddr string
	Save        bool
}

func main() {
	// a missing .env file is fine, the environment and flags still apply
	if err := godotenv.Load(); err != nil && !stderrors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "could not load .env: %v\n", err)
	}
	cfg, args, err := parseConfig(os.Args[1:], os.Stderr)
	if err != nil {
		if stderrors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "configuration: %v\n", err)
		os.Exit(2)
	}
	log.Init(cfg.LogLevel, "stderr", nil)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if err := run(ctx, cfg, args, os.Stdout); err != nil {
		cancel()
		os.Exit(1)
	}
}

// parseConfig reads the flags, falling back to CONNECT_* environment
// variables, and returns the remaining positional arguments.
func parseConfig(arguments []string, output io.Writer) (*Config, []string, error) {
	flags := flag.NewFlagSet("connect-cli", flag.ContinueOnError)
	flags.SetOutput(output)
	flags.Usage = func() {
		fmt.Fprint(output, usage())
		flags.PrintDefaults()
	}
	flags.StringP("apiURL", "a", defaultAPIURL, "backend API URL")
	flags.StringP("stripeKey", "k", "", "Stripe publishable key (pk_...), defaults to STRIPE_PUBLISHABLE_KEY")
	flags.String("stripeURL", "", "Stripe API URL override")
	flags.StringP("dataDir", "d", defaultDataDir(), "directory where the selected account is stored")
	flags.StringP("logLevel", "l", "error", "log level (debug, info, warn, error)")
	flags.DurationP("timeout", "t", client.DefaultTimeout, "timeout of each request")
	flags.String("metricsAddr", "", "serve Prometheus metrics on this address while the command runs")
	flags.Bool("save", false, "keep the card used with pay-new")
	if err := flags.Parse(arguments); err != nil {
		return nil, nil, err
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	if err := v.BindPFlags(flags); err != nil {
		return nil, nil, fmt.Errorf("could not bind flags: %w", err)
	}
	v.AutomaticEnv()

	cfg := &Config{
		APIURL:      v.GetString("apiURL"),
		StripeKey:   v.GetString("stripeKey"),
		StripeURL:   v.GetString("stripeURL"),
		DataDir:     v.GetString("dataDir"),
		LogLevel:    v.GetString("logLevel"),
		Timeout:     v.GetDuration("timeout"),
		MetricsAddr: v.GetString("metricsAddr"),
		Save:        v.GetBool("save"),
	}
	if cfg.StripeKey == "" {
		if stripeCfg, err := stripe.NewConfig(); err == nil {
			cfg.StripeKey = stripeCfg.PublishableKey
			if cfg.StripeURL == "" {
				cfg.StripeURL = stripeCfg.APIURL
			}
		}
	}
	if cfg.APIURL == "" {
		return nil, nil, fmt.Errorf("apiURL is required")
	}
	return cfg, flags.Args(), nil
}

func defaultDataDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "connect-client")
}

func usage() string {
	return `Usage: connect-cli [flags] <command> [arguments]

Commands:
  accounts [list]                              list the accounts
  accounts create <name> <email> [country]     create an account and select it
  accounts show [accountId]                    show the selected (or given) account
  accounts delete <accountId>                  delete an account
  accounts upgrade                             make the selected account a recipient
  accounts onboard <refreshURL> <returnURL>    create a recipient onboarding link
  select <accountId>                           select an account
  cards [list]                                 list the saved cards
  cards add <paymentMethod>                    attach a card, e.g. pm_card_visa
  cards delete <paymentMethodId>               remove a saved card
  banks [list]                                 list the bank accounts
  banks add <holder> <routing> <account> <confirmAccount> [country] [currency]
  banks delete <externalAccountId>             remove a bank account
  banks default <externalAccountId>            make a bank account the payout default
  recipients                                   list the accounts that can be paid
  pay <recipientId> <paymentMethodId> <amount> pay with a saved card
  pay-new <recipientId> <amount> <paymentMethod> [--save]
                                               pay with a new card

Flags:
`
}
