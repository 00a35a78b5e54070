package service

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"clinic-backend/pkg/timezone"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestSequencer(t *testing.T, queueRepo *fakeQueueRepo) (*QueueSequenceService, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	clock := timezone.FixedClock{At: time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)}
	// EXPIREAT is evaluated against miniredis' clock
	mr.SetTime(clock.At)
	svc := NewQueueSequenceService(fakeTransactor{}, queueRepo, client, newTestLogger(), clock)
	t.Cleanup(svc.Stop)
	return svc, mr
}

func TestNextPosition_StartsAtOneAndIncrements(t *testing.T) {
	svc, _ := newTestSequencer(t, &fakeQueueRepo{})
	ctx := context.Background()
	day := time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC)

	for want := 1; want <= 3; want++ {
		got, err := svc.NextPosition(ctx, day)
		if err != nil {
			t.Fatalf("NextPosition: %v", err)
		}
		if got != want {
			t.Fatalf("expected position %d, got %d", want, got)
		}
	}
}

func TestNextPosition_SeedsFromDatabaseMax(t *testing.T) {
	repo := &fakeQueueRepo{}
	day := time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC)
	repo.setMax(day, 7)

	svc, mr := newTestSequencer(t, repo)

	got, err := svc.NextPosition(context.Background(), day)
	if err != nil {
		t.Fatalf("NextPosition: %v", err)
	}
	if got != 8 {
		t.Fatalf("expected position 8 after seeding from max 7, got %d", got)
	}
	if ttl := mr.TTL(positionKey(day)); ttl <= 0 {
		t.Fatalf("expected counter to carry an expiry, got %v", ttl)
	}
}

func TestNextPosition_DatesAreIndependent(t *testing.T) {
	svc, _ := newTestSequencer(t, &fakeQueueRepo{})
	ctx := context.Background()
	monday := time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC)

	if _, err := svc.NextPosition(ctx, monday); err != nil {
		t.Fatalf("NextPosition: %v", err)
	}
	got, err := svc.NextPosition(ctx, monday.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("NextPosition: %v", err)
	}
	if got != 1 {
		t.Fatalf("expected a fresh sequence for the next day, got %d", got)
	}
}

func TestSeed_NeverLowersCounter(t *testing.T) {
	repo := &fakeQueueRepo{}
	svc, _ := newTestSequencer(t, repo)
	ctx := context.Background()
	day := time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		if _, err := svc.NextPosition(ctx, day); err != nil {
			t.Fatalf("NextPosition: %v", err)
		}
	}

	repo.setMax(day, 2)
	current, err := svc.Seed(ctx, day)
	if err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if current != 5 {
		t.Fatalf("expected counter to stay at 5, got %d", current)
	}
}

func TestNextPosition_ConcurrentCallsAreUnique(t *testing.T) {
	svc, _ := newTestSequencer(t, &fakeQueueRepo{})
	ctx := context.Background()
	day := time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC)

	const n = 50
	positions := make([]int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := svc.NextPosition(ctx, day)
			if err != nil {
				t.Errorf("NextPosition: %v", err)
				return
			}
			positions[i] = p
		}(i)
	}
	wg.Wait()

	sort.Ints(positions)
	for i, p := range positions {
		if p != i+1 {
			t.Fatalf("expected positions 1..%d without gaps, got %v", n, positions)
		}
	}
}

func TestSyncOnStartup_SeedsToday(t *testing.T) {
	repo := &fakeQueueRepo{}
	today := time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC)
	repo.setMax(today, 4)

	svc, mr := newTestSequencer(t, repo)
	if err := svc.SyncOnStartup(context.Background()); err != nil {
		t.Fatalf("SyncOnStartup: %v", err)
	}

	value, err := mr.Get(positionKey(today))
	if err != nil {
		t.Fatalf("expected seeded key: %v", err)
	}
	if value != "4" {
		t.Fatalf("expected counter 4, got %s", value)
	}
}
