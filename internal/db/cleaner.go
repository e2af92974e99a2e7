package db

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// StartPoolJanitor closes mirror pools that stayed idle longer than ttl,
// checking every interval until ctx is done.
func StartPoolJanitor(
	ctx context.Context,
	pools *MySQLPools,
	interval time.Duration,
	ttl time.Duration,
	log *zap.Logger,
) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if closed := pools.CloseIdle(ttl); closed > 0 {
					log.Info("closed idle mirror pools", zap.Int("closed", closed), zap.Int("open", pools.Len()))
				}
			}
		}
	}()
}
