package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/user/pricewatch-service/internal/entity"
	"github.com/user/pricewatch-service/internal/repository"
)

const (
	lastRunKey = "pricewatch:last_run"
	lastRunTTL = 7 * 24 * time.Hour
)

// RunStatusRepoImpl stores the last run report as JSON.
type RunStatusRepoImpl struct {
	client *redis.Client
}

// NewRunStatusRepo creates a new instance of RunStatusRepoImpl.
func NewRunStatusRepo(client *redis.Client) *RunStatusRepoImpl {
	return &RunStatusRepoImpl{client: client}
}

func (r *RunStatusRepoImpl) SaveLastRun(ctx context.Context, report *entity.RunReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal run report: %w", err)
	}
	// SETEX is atomic and sets the key with an expiry.
	return r.client.SetEx(ctx, lastRunKey, payload, lastRunTTL).Err()
}

func (r *RunStatusRepoImpl) LastRun(ctx context.Context) (*entity.RunReport, error) {
	payload, err := r.client.Get(ctx, lastRunKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, repository.ErrNoRunRecorded
	}
	if err != nil {
		return nil, err
	}
	var report entity.RunReport
	if err := json.Unmarshal(payload, &report); err != nil {
		return nil, fmt.Errorf("decode run report: %w", err)
	}
	return &report, nil
}

// Ping checks Redis connectivity.
func (r *RunStatusRepoImpl) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
