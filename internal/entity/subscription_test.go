package entity

import (
	"strings"
	"testing"
	"time"
)

func TestNewSubscriptionSeedsLastSeenPrice(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	sub := NewSubscription("a@example.com", "https://shop.example/p/1", "Phone", "EGP6,555.00", now)
	if sub.ID == "" {
		t.Fatal("expected an id")
	}
	if sub.LastSeenPrice == nil || *sub.LastSeenPrice != 6555 {
		t.Fatalf("LastSeenPrice = %v, want 6555", sub.LastSeenPrice)
	}
	if sub.LastCheckedAt != nil || sub.LastNotifiedAt != nil {
		t.Error("check and notify timestamps must start unset")
	}

	unpriced := NewSubscription("a@example.com", "https://shop.example/p/2", "Phone", "call for price", now)
	if unpriced.LastSeenPrice != nil {
		t.Errorf("LastSeenPrice = %v, want nil", *unpriced.LastSeenPrice)
	}

	oversized := NewSubscription("a@example.com", "https://shop.example/p/3", "Phone", strings.Repeat("9", 400), now)
	if oversized.LastSeenPrice != nil {
		t.Errorf("LastSeenPrice = %v, want nil for a price that overflows", *oversized.LastSeenPrice)
	}
}

func TestSubscriptionIsEligible(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	minute := now.Add(-time.Minute)
	tenMinutes := now.Add(-10 * time.Minute)

	tests := []struct {
		name        string
		lastChecked *time.Time
		want        bool
	}{
		{name: "never checked", lastChecked: nil, want: true},
		{name: "inside cooldown", lastChecked: &minute, want: false},
		{name: "cooldown elapsed", lastChecked: &tenMinutes, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := &Subscription{LastCheckedAt: tt.lastChecked}
			if got := sub.IsEligible(now, 5*time.Minute); got != tt.want {
				t.Errorf("IsEligible() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMarkCheckedIsMonotonic(t *testing.T) {
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	sub := &Subscription{CreatedAt: created}

	sub.MarkChecked(created.Add(-time.Hour))
	if !sub.LastCheckedAt.Equal(created) {
		t.Fatalf("LastCheckedAt = %v, want createdAt %v", sub.LastCheckedAt, created)
	}

	later := created.Add(10 * time.Minute)
	sub.MarkChecked(later)
	sub.MarkChecked(created.Add(5 * time.Minute))
	if !sub.LastCheckedAt.Equal(later) {
		t.Errorf("LastCheckedAt = %v, want %v", sub.LastCheckedAt, later)
	}
}

func TestCloneDoesNotShareState(t *testing.T) {
	p := 10.0
	orig := &Subscription{ID: "x", LastSeenPrice: &p}
	c := orig.Clone()
	*c.LastSeenPrice = 5
	if *orig.LastSeenPrice != 10 {
		t.Error("clone mutated the original price")
	}
}
