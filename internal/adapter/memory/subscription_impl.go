// Package memory keeps subscriptions in process memory. It backs local runs
// without Postgres and the use case tests.
package memory

import (
	"context"
	"iter"
	"sync"
	"time"

	"github.com/user/pricewatch-service/internal/entity"
	"github.com/user/pricewatch-service/internal/repository"
)

type pairKey struct {
	contact string
	url     string
}

// SubscriptionRepoImpl is a concurrency-safe, insertion-ordered store.
type SubscriptionRepoImpl struct {
	mu     sync.RWMutex
	order  []string
	byID   map[string]*entity.Subscription
	byPair map[pairKey]string
}

func NewSubscriptionRepo() *SubscriptionRepoImpl {
	return &SubscriptionRepoImpl{
		byID:   make(map[string]*entity.Subscription),
		byPair: make(map[pairKey]string),
	}
}

// Create checks the (contact, url) pair under the same lock as the insert.
func (r *SubscriptionRepoImpl) Create(_ context.Context, sub *entity.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := pairKey{contact: sub.SubscriberContact, url: sub.ProductURL}
	if _, exists := r.byPair[key]; exists {
		return repository.ErrDuplicateSubscription
	}
	r.byPair[key] = sub.ID
	r.byID[sub.ID] = sub.Clone()
	r.order = append(r.order, sub.ID)
	return nil
}

func (r *SubscriptionRepoImpl) FindByID(_ context.Context, id string) (*entity.Subscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sub, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrSubscriptionNotFound
	}
	return sub.Clone(), nil
}

// FindEligible walks the insertion order one record at a time without
// holding the lock while the consumer runs.
func (r *SubscriptionRepoImpl) FindEligible(ctx context.Context, now time.Time, minCheckInterval time.Duration) iter.Seq2[*entity.Subscription, error] {
	return func(yield func(*entity.Subscription, error) bool) {
		for i := 0; ; i++ {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			sub, ok := r.at(i)
			if !ok {
				return
			}
			if sub == nil || !sub.IsEligible(now, minCheckInterval) {
				continue
			}
			if !yield(sub, nil) {
				return
			}
		}
	}
}

// at returns a copy of the i-th record; nil when it was deleted.
func (r *SubscriptionRepoImpl) at(i int) (*entity.Subscription, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if i >= len(r.order) {
		return nil, false
	}
	sub, ok := r.byID[r.order[i]]
	if !ok {
		return nil, true
	}
	return sub.Clone(), true
}

// Save replaces the tracking fields. LastCheckedAt never moves backwards.
func (r *SubscriptionRepoImpl) Save(_ context.Context, sub *entity.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byID[sub.ID]
	if !ok {
		return repository.ErrSubscriptionNotFound
	}
	next := sub.Clone()
	next.SubscriberContact = stored.SubscriberContact
	next.ProductURL = stored.ProductURL
	next.ClaimedPriceText = stored.ClaimedPriceText
	next.CreatedAt = stored.CreatedAt
	if stored.LastCheckedAt != nil && (next.LastCheckedAt == nil || next.LastCheckedAt.Before(*stored.LastCheckedAt)) {
		t := *stored.LastCheckedAt
		next.LastCheckedAt = &t
	}
	r.byID[sub.ID] = next
	return nil
}

// Delete leaves a hole in the order slice so running iterators keep their place.
func (r *SubscriptionRepoImpl) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.byID[id]
	if !ok {
		return repository.ErrSubscriptionNotFound
	}
	delete(r.byPair, pairKey{contact: sub.SubscriberContact, url: sub.ProductURL})
	delete(r.byID, id)
	return nil
}

// Len returns the number of stored subscriptions.
func (r *SubscriptionRepoImpl) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
