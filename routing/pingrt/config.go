package pingrt

import (
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/sirupsen/logrus"

	"github.com/plprobelab/go-kbucket/kaderr"
)

// DefaultBucketSize is the number of contacts a bucket holds before new contacts
// must wait for the oldest one to be evicted.
const DefaultBucketSize = 20

// Config specifies optional configuration for a Table
type Config struct {
	PingTimeout time.Duration  // how long a pending contact waits before the oldest contact of its bucket is evicted
	BucketSize  int            // the maximum number of contacts held by each bucket
	Clock       clock.Clock    // a clock that may replaced by a mock when testing
	Logger      *logrus.Logger // the logger used to report evictions and rejected updates
}

// Validate checks the configuration options and returns an error if any have invalid values.
func (cfg *Config) Validate() error {
	if cfg.Clock == nil {
		return &kaderr.ConfigurationError{
			Component: "TableConfig",
			Err:       fmt.Errorf("clock must not be nil"),
		}
	}

	if cfg.PingTimeout < 1 {
		return &kaderr.ConfigurationError{
			Component: "TableConfig",
			Err:       fmt.Errorf("ping timeout must be greater than zero"),
		}
	}

	if cfg.BucketSize < 1 {
		return &kaderr.ConfigurationError{
			Component: "TableConfig",
			Err:       fmt.Errorf("bucket size must be greater than zero"),
		}
	}

	if cfg.Logger == nil {
		return &kaderr.ConfigurationError{
			Component: "TableConfig",
			Err:       fmt.Errorf("logger must not be nil"),
		}
	}

	return nil
}

// DefaultConfig returns the default configuration options for a Table.
// Options may be overridden before passing to New
func DefaultConfig() *Config {
	return &Config{
		PingTimeout: time.Minute,
		BucketSize:  DefaultBucketSize,
		Clock:       clock.New(), // use standard time
		Logger:      logrus.StandardLogger(),
	}
}
