package stripe

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// PublishableKeyPrefix is the prefix of every Stripe publishable key.
const PublishableKeyPrefix = "pk_"

// DefaultTimeout bounds each Stripe request.
const DefaultTimeout = 30 * time.Second

// Config holds the Stripe configuration of the client. Only the publishable
// key is used: secret keys never reach a client.
type Config struct {
	PublishableKey string        `yaml:"publishable_key" json:"publishable_key"`
	APIURL         string        `yaml:"api_url" json:"api_url"`
	Timeout        time.Duration `yaml:"timeout" json:"timeout"`
}

// NewConfig creates a new Stripe configuration from environment variables
func NewConfig() (*Config, error) {
	config := &Config{
		PublishableKey: os.Getenv("STRIPE_PUBLISHABLE_KEY"),
		APIURL:         os.Getenv("STRIPE_API_URL"),
		Timeout:        DefaultTimeout,
	}
	if config.PublishableKey == "" {
		return nil, fmt.Errorf("STRIPE_PUBLISHABLE_KEY environment variable is required")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks the publishable key format.
func (c *Config) Validate() error {
	if c.PublishableKey == "" {
		return fmt.Errorf("stripe publishable key is required")
	}
	if !strings.HasPrefix(c.PublishableKey, PublishableKeyPrefix) {
		return fmt.Errorf("stripe key must be a publishable key (%s...)", PublishableKeyPrefix)
	}
	return nil
}
