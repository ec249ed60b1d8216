package acquire

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// ConfigureWithRetry applies settings to src, retrying up to retries more
// times with delay between attempts. It gives up early when ctx is done.
func ConfigureWithRetry(ctx context.Context, src Source, settings Settings, retries int, delay time.Duration, logger *logrus.Logger) error {
	var err error

	for attempt := 0; attempt <= retries; attempt++ {
		if err = src.Configure(ctx, settings); err == nil {
			return nil
		}

		logger.WithError(err).WithFields(logrus.Fields{
			"attempt": attempt + 1,
			"retries": retries,
		}).Warn("Failed to configure source")

		if attempt == retries {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return fmt.Errorf("giving up after %d attempts: %w", retries+1, err)
}
