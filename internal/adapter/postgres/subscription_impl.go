package postgres

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/user/pricewatch-service/internal/entity"
	"github.com/user/pricewatch-service/internal/repository"
)

const defaultPageSize = 100

const subscriptionColumns = `id, subscriber_contact, product_url, product_name, claimed_price_text,
	last_seen_price, last_checked_at, last_notified_at, created_at`

// SubscriptionRepoImpl provides a concrete implementation for the SubscriptionRepository interface using PostgreSQL.
type SubscriptionRepoImpl struct {
	db       *pgxpool.Pool
	pageSize int
}

// NewSubscriptionRepo creates a new instance of SubscriptionRepoImpl.
// pageSize bounds how many rows one eligibility query loads.
func NewSubscriptionRepo(db *pgxpool.Pool, pageSize int) *SubscriptionRepoImpl {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &SubscriptionRepoImpl{db: db, pageSize: pageSize}
}

// Create inserts a subscription. The unique (subscriber_contact, product_url)
// constraint turns a concurrent duplicate into ErrDuplicateSubscription.
func (r *SubscriptionRepoImpl) Create(ctx context.Context, sub *entity.Subscription) error {
	query := `
		INSERT INTO subscriptions (id, subscriber_contact, product_url, product_name, claimed_price_text,
			last_seen_price, last_checked_at, last_notified_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (subscriber_contact, product_url) DO NOTHING
		RETURNING id;
	`
	var id string
	err := r.db.QueryRow(ctx, query,
		sub.ID,
		sub.SubscriberContact,
		sub.ProductURL,
		sub.ProductName,
		sub.ClaimedPriceText,
		sub.LastSeenPrice,
		sub.LastCheckedAt,
		sub.LastNotifiedAt,
		sub.CreatedAt,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrDuplicateSubscription
	}
	return err
}

// FindByID retrieves one subscription.
func (r *SubscriptionRepoImpl) FindByID(ctx context.Context, id string) (*entity.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id = $1;`
	sub, err := scanSubscription(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrSubscriptionNotFound
	}
	return sub, err
}

// FindEligible pages through eligible rows ordered by (created_at, id) so
// that no more than one page is held in memory and rows updated during the
// walk are neither skipped nor repeated.
func (r *SubscriptionRepoImpl) FindEligible(ctx context.Context, now time.Time, minCheckInterval time.Duration) iter.Seq2[*entity.Subscription, error] {
	cutoff := now.Add(-minCheckInterval)
	return func(yield func(*entity.Subscription, error) bool) {
		var (
			afterCreated time.Time
			afterID      string
			first        = true
		)
		for {
			page, err := r.eligiblePage(ctx, cutoff, first, afterCreated, afterID)
			if err != nil {
				yield(nil, fmt.Errorf("query eligible subscriptions: %w", err))
				return
			}
			for _, sub := range page {
				if !yield(sub, nil) {
					return
				}
			}
			if len(page) < r.pageSize {
				return
			}
			last := page[len(page)-1]
			afterCreated, afterID, first = last.CreatedAt, last.ID, false
		}
	}
}

func (r *SubscriptionRepoImpl) eligiblePage(ctx context.Context, cutoff time.Time, first bool, afterCreated time.Time, afterID string) ([]*entity.Subscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE (last_checked_at IS NULL OR last_checked_at < $1)
		  AND ($2 OR (created_at, id) > ($3, $4))
		ORDER BY created_at ASC, id ASC
		LIMIT $5;
	`
	rows, err := r.db.Query(ctx, query, cutoff, first, afterCreated, afterID, r.pageSize)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	page := make([]*entity.Subscription, 0, r.pageSize)
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		page = append(page, sub)
	}
	return page, rows.Err()
}

// Save writes back the tracking fields in a single-row UPDATE. last_checked_at
// only moves forward.
func (r *SubscriptionRepoImpl) Save(ctx context.Context, sub *entity.Subscription) error {
	query := `
		UPDATE subscriptions SET
			product_name = $2,
			last_seen_price = $3,
			last_checked_at = GREATEST(last_checked_at, $4),
			last_notified_at = $5
		WHERE id = $1;
	`
	tag, err := r.db.Exec(ctx, query,
		sub.ID,
		sub.ProductName,
		sub.LastSeenPrice,
		sub.LastCheckedAt,
		sub.LastNotifiedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrSubscriptionNotFound
	}
	return nil
}

// Delete removes a subscription.
func (r *SubscriptionRepoImpl) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM subscriptions WHERE id = $1;`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrSubscriptionNotFound
	}
	return nil
}

// Ping checks database connectivity.
func (r *SubscriptionRepoImpl) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

func scanSubscription(row pgx.Row) (*entity.Subscription, error) {
	var sub entity.Subscription
	if err := row.Scan(
		&sub.ID,
		&sub.SubscriberContact,
		&sub.ProductURL,
		&sub.ProductName,
		&sub.ClaimedPriceText,
		&sub.LastSeenPrice,
		&sub.LastCheckedAt,
		&sub.LastNotifiedAt,
		&sub.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &sub, nil
}
