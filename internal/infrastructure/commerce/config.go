package commerce

import (
	"errors"
	"time"
)

// Config holds the commerce platform API configuration
type Config struct {
	// BaseURL is the store API root, e.g. "https://shop.example.com/api".
	BaseURL string
	// Token is the private app access token.
	Token string
	// Timeout bounds each HTTP call.
	Timeout time.Duration
}

// Validate checks that required fields are set
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return errors.New("commerce: base URL is required")
	}
	if c.Token == "" {
		return errors.New("commerce: access token is required")
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	return nil
}
