package redis

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/user/pricewatch-service/internal/entity"
	"github.com/user/pricewatch-service/internal/repository"
)

var (
	_ repository.RunStatusRepository         = (*RunStatusRepoImpl)(nil)
	_ repository.ExtractionFailureRepository = (*ExtractionFailureRepoImpl)(nil)
)

func TestFailureKeyIsHashed(t *testing.T) {
	r := NewExtractionFailureRepo(nil)
	key := r.generateKey("https://shop.example.com/p/1?ref=mail")
	if !strings.HasPrefix(key, extractionFailurePrefix) {
		t.Errorf("key %q missing prefix", key)
	}
	if strings.Contains(key, "shop.example.com") {
		t.Errorf("key %q leaks the raw URL", key)
	}
	if key != r.generateKey("https://shop.example.com/p/1?ref=mail") {
		t.Error("key is not stable")
	}
}

// newTestClient connects to PRICEWATCH_TEST_REDIS_ADDR, skipping otherwise.
func newTestClient(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("PRICEWATCH_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("PRICEWATCH_TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr, DB: 15})
	t.Cleanup(func() { _ = client.Close() })
	if err := client.FlushDB(context.Background()).Err(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	return client
}

func TestRunStatusRoundTrip(t *testing.T) {
	client := newTestClient(t)
	repo := NewRunStatusRepo(client)
	ctx := context.Background()

	if _, err := repo.LastRun(ctx); !errors.Is(err, repository.ErrNoRunRecorded) {
		t.Fatalf("LastRun() on empty store error = %v", err)
	}

	report := &entity.RunReport{
		Trigger:    entity.TriggerManual,
		StartedAt:  time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		FinishedAt: time.Date(2025, 3, 1, 12, 1, 0, 0, time.UTC),
		Checked:    7,
		Notified:   2,
	}
	if err := repo.SaveLastRun(ctx, report); err != nil {
		t.Fatal(err)
	}
	got, err := repo.LastRun(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got.Checked != 7 || got.Notified != 2 || !got.FinishedAt.Equal(report.FinishedAt) {
		t.Errorf("LastRun() = %+v", got)
	}
	if ttl := client.TTL(ctx, lastRunKey).Val(); ttl <= 0 {
		t.Errorf("TTL = %v, want a positive expiry", ttl)
	}
}

func TestExtractionFailureCounter(t *testing.T) {
	repo := NewExtractionFailureRepo(newTestClient(t))
	ctx := context.Background()
	url := "https://shop.example.com/p/1"

	for want := int64(1); want <= 3; want++ {
		got, err := repo.Increment(ctx, url)
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Errorf("Increment() = %d, want %d", got, want)
		}
	}
	if err := repo.Reset(ctx, url); err != nil {
		t.Fatal(err)
	}
	if got, _ := repo.Increment(ctx, url); got != 1 {
		t.Errorf("Increment() after Reset() = %d, want 1", got)
	}
}
