package service

import (
	"context"
	"testing"
	"time"

	"clinic-backend/internal/domain/entity"
	"clinic-backend/pkg/timezone"

	"github.com/google/uuid"
)

// stubAvailability returns the same slots for every weekday, none on blocked days
type stubAvailability struct {
	slots   []string
	blocked map[string]bool
}

func (s stubAvailability) ComputeSlots(_ context.Context, _ uuid.UUID, date time.Time) []string {
	if s.blocked[date.Format(entity.DateLayout)] {
		return []string{}
	}
	return append([]string(nil), s.slots...)
}

// Monday 2026-05-04
var rankerMonday = time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC)

func TestScoreSlot(t *testing.T) {
	saturday := rankerMonday.AddDate(0, 0, 5)

	cases := []struct {
		name      string
		urgency   float64
		day       time.Time
		slot      string
		daysAhead int
		want      float64
	}{
		{"routine morning", 5.0, rankerMonday, "09:00", 0, 6.0},
		{"routine afternoon", 5.0, rankerMonday, "14:30", 0, 5.5},
		{"routine evening", 5.0, rankerMonday, "17:00", 0, 5.0},
		{"moderate", 7.0, rankerMonday, "12:00", 0, 6.0},
		{"urgent first day clamps", 9.0, rankerMonday, "10:00", 0, 10.0},
		{"urgent later day", 7.5, rankerMonday, "12:00", 4, 7.0},
		{"urgent bonus exhausted", 7.5, rankerMonday, "12:00", 6, 6.0},
		{"weekend penalty", 5.0, saturday, "12:00", 0, 4.5},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ScoreSlot(tc.urgency, tc.day, tc.slot, tc.daysAhead); got != tc.want {
				t.Fatalf("ScoreSlot = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestScoreSlot_UrgentPenaltyNonIncreasing(t *testing.T) {
	prev := ScoreSlot(9.0, rankerMonday, "09:00", 0)
	for offset := 1; offset < 7; offset++ {
		day := rankerMonday.AddDate(0, 0, offset)
		if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		score := ScoreSlot(9.0, day, "09:00", offset)
		if score > prev {
			t.Fatalf("score rose from %v to %v at offset %d", prev, score, offset)
		}
		prev = score
	}

	first := ScoreSlot(9.0, rankerMonday, "09:00", 0)
	last := ScoreSlot(9.0, rankerMonday.AddDate(0, 0, 6), "09:00", 6)
	if first < last {
		t.Fatalf("first day %v scored below sixth day %v", first, last)
	}
}

func TestRecommendSlots_TopTenDescending(t *testing.T) {
	availability := stubAvailability{slots: []string{"09:00", "10:00", "12:00", "14:00", "16:30"}}
	ranker := NewSlotRanker(availability, newTestLogger(), 10, timezone.FixedClock{At: rankerMonday.Add(8 * time.Hour)})

	got := ranker.RecommendSlots(context.Background(), uuid.New(), 9.0, nil, 7)
	if len(got) != 10 {
		t.Fatalf("expected 10 recommendations, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].Score > got[i-1].Score {
			t.Fatalf("not sorted at %d: %v > %v", i, got[i].Score, got[i-1].Score)
		}
	}

	tomorrow := rankerMonday.AddDate(0, 0, 1).Format(entity.DateLayout)
	if got[0].Date != tomorrow || got[0].Time != "09:00" {
		t.Fatalf("expected tomorrow 09:00 first, got %+v", got[0])
	}
	if !got[0].UrgencyMatch || !got[0].Recommended {
		t.Fatalf("expected first-day urgent slot flagged, got %+v", got[0])
	}
}

func TestRecommendSlots_StableTies(t *testing.T) {
	availability := stubAvailability{slots: []string{"09:00", "10:00", "11:00"}}
	ranker := NewSlotRanker(availability, newTestLogger(), 10, timezone.FixedClock{At: rankerMonday})
	preferred := rankerMonday

	got := ranker.RecommendSlots(context.Background(), uuid.New(), 5.0, &preferred, 2)
	want := []struct{ date, time string }{
		{"2026-05-04", "09:00"}, {"2026-05-04", "10:00"}, {"2026-05-04", "11:00"},
		{"2026-05-05", "09:00"}, {"2026-05-05", "10:00"}, {"2026-05-05", "11:00"},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(got))
	}
	for i, w := range want {
		if got[i].Date != w.date || got[i].Time != w.time {
			t.Fatalf("entry %d: expected %s %s, got %s %s", i, w.date, w.time, got[i].Date, got[i].Time)
		}
		if got[i].UrgencyMatch || got[i].Recommended {
			t.Fatalf("routine urgency must not flag entries: %+v", got[i])
		}
	}
}

func TestRecommendSlots_EmptyWhenNothingAvailable(t *testing.T) {
	ranker := NewSlotRanker(stubAvailability{}, newTestLogger(), 10, timezone.FixedClock{At: rankerMonday})

	got := ranker.RecommendSlots(context.Background(), uuid.New(), 9.0, nil, 7)
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty recommendations, got %#v", got)
	}
}

func TestRecommendSlots_CancelledContext(t *testing.T) {
	ranker := NewSlotRanker(stubAvailability{slots: []string{"09:00"}}, newTestLogger(), 10, timezone.FixedClock{At: rankerMonday})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if got := ranker.RecommendSlots(ctx, uuid.New(), 9.0, nil, 7); len(got) != 0 {
		t.Fatalf("expected no recommendations after cancellation, got %d", len(got))
	}
}
