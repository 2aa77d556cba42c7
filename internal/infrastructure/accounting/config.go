package accounting

import (
	"errors"
	"time"
)

// Config holds the accounting platform API configuration
type Config struct {
	// BaseURL is the accounting API root, e.g. "https://api.example.com/v1".
	BaseURL string
	// Token is the API access token, sent as a bearer credential.
	Token string
	// Timeout bounds each HTTP call.
	Timeout time.Duration
}

// Validate checks that required fields are set
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return errors.New("accounting: base URL is required")
	}
	if c.Token == "" {
		return errors.New("accounting: access token is required")
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	return nil
}
