package probe

import (
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/sirupsen/logrus"

	"github.com/plprobelab/go-kbucket/kaderr"
)

// Config specifies optional configuration for a Prober
type Config struct {
	Timeout time.Duration  // the time to wait for the oldest contact of a full bucket to answer a ping
	Clock   clock.Clock    // a clock that may replaced by a mock when testing
	Logger  *logrus.Logger // the logger used to report ping outcomes
}

// Validate checks the configuration options and returns an error if any have invalid values.
func (cfg *Config) Validate() error {
	if cfg.Clock == nil {
		return &kaderr.ConfigurationError{
			Component: "ProberConfig",
			Err:       fmt.Errorf("clock must not be nil"),
		}
	}

	if cfg.Timeout < 1 {
		return &kaderr.ConfigurationError{
			Component: "ProberConfig",
			Err:       fmt.Errorf("timeout must be greater than zero"),
		}
	}

	if cfg.Logger == nil {
		return &kaderr.ConfigurationError{
			Component: "ProberConfig",
			Err:       fmt.Errorf("logger must not be nil"),
		}
	}

	return nil
}

// DefaultConfig returns the default configuration options for a Prober.
// Options may be overridden before passing to New
func DefaultConfig() *Config {
	return &Config{
		Timeout: 10 * time.Second,
		Clock:   clock.New(), // use standard time
		Logger:  logrus.StandardLogger(),
	}
}
