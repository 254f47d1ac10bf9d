package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/user/pricewatch-service/pkg/utils"
)

const (
	extractionFailurePrefix = "extract_fail:"
	extractionFailureTTL    = 24 * time.Hour
)

// ExtractionFailureRepoImpl keeps per-URL counters of unparseable checks.
type ExtractionFailureRepoImpl struct {
	client *redis.Client
}

// NewExtractionFailureRepo creates a new instance of ExtractionFailureRepoImpl.
func NewExtractionFailureRepo(client *redis.Client) *ExtractionFailureRepoImpl {
	return &ExtractionFailureRepoImpl{client: client}
}

// generateKey creates a consistent Redis key for a given URL by hashing it.
func (r *ExtractionFailureRepoImpl) generateKey(url string) string {
	return fmt.Sprintf("%s%s", extractionFailurePrefix, utils.HashURL(url))
}

// Increment bumps the counter and refreshes its expiry in one transaction so
// a page that recovers on its own is forgotten after a day.
func (r *ExtractionFailureRepoImpl) Increment(ctx context.Context, url string) (int64, error) {
	key := r.generateKey(url)
	var incr *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, extractionFailureTTL)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// Reset deletes the counter.
func (r *ExtractionFailureRepoImpl) Reset(ctx context.Context, url string) error {
	return r.client.Del(ctx, r.generateKey(url)).Err()
}
