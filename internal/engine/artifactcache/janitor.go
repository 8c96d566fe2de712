package artifactcache

import (
	"context"
	"fmt"
	"time"
)

// StartJanitor removes expired entries every interval until ctx is done.
// The returned channel is closed when the janitor has stopped.
func (c *Cache[A]) StartJanitor(ctx context.Context, interval time.Duration) <-chan struct{} {
	done := make(chan struct{})
	if interval <= 0 {
		close(done)
		return done
	}

	go func() {
		defer close(done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := c.CleanupExpired(); n > 0 {
					c.logger.Info(fmt.Sprintf("artifact cache: removed %d expired entries", n))
				}
			}
		}
	}()

	return done
}
