package service

import (
	"context"
	"sort"
	"time"

	"clinic-backend/internal/domain/entity"
	"clinic-backend/pkg/timezone"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc/iter"
)

const (
	baseSlotScore      = 5.0
	maxSlotScore       = 10.0
	recommendedScore   = 8.0
	urgentThreshold    = 7.0
	maxRankerWorkers   = 4
	DefaultHorizonDays = 7
)

// RankedSlot is one scored candidate returned by the ranker
type RankedSlot struct {
	Date         string  `json:"date"`
	Time         string  `json:"time"`
	Score        float64 `json:"score"`
	UrgencyMatch bool    `json:"urgency_match"`
	Recommended  bool    `json:"recommended"`
}

// SlotRanker recommends the best free slots for an urgency level
type SlotRanker interface {
	RecommendSlots(ctx context.Context, providerID uuid.UUID, urgency float64, preferredDate *time.Time, horizonDays int) []RankedSlot
}

type slotRanker struct {
	availability AvailabilityService
	log          *logrus.Logger
	limit        int
	clock        timezone.Clock
}

func NewSlotRanker(availability AvailabilityService, log *logrus.Logger, limit int, clock timezone.Clock) SlotRanker {
	if limit <= 0 {
		limit = 10
	}
	return &slotRanker{
		availability: availability,
		log:          log,
		limit:        limit,
		clock:        clock,
	}
}

func (r *slotRanker) RecommendSlots(ctx context.Context, providerID uuid.UUID, urgency float64, preferredDate *time.Time, horizonDays int) []RankedSlot {
	if horizonDays <= 0 {
		horizonDays = DefaultHorizonDays
	}

	start := timezone.Today(r.clock).AddDate(0, 0, 1)
	if preferredDate != nil {
		start = entity.DateOnly(*preferredDate)
	}

	days := make([]int, horizonDays)
	for i := range days {
		days[i] = i
	}

	// iter.Map keeps results in input order, so candidates stay date ascending
	mapper := iter.Mapper[int, []RankedSlot]{MaxGoroutines: maxRankerWorkers}
	perDay := mapper.Map(days, func(offset *int) []RankedSlot {
		day := start.AddDate(0, 0, *offset)
		slots := r.availability.ComputeSlots(ctx, providerID, day)

		scored := make([]RankedSlot, 0, len(slots))
		for _, slot := range slots {
			score := ScoreSlot(urgency, day, slot, *offset)
			scored = append(scored, RankedSlot{
				Date:         day.Format(entity.DateLayout),
				Time:         slot,
				Score:        score,
				UrgencyMatch: urgency > urgentThreshold && *offset == 0,
				Recommended:  score > recommendedScore,
			})
		}
		return scored
	})

	if ctx.Err() != nil {
		r.log.Debugf("Recommendation for provider %s abandoned: %v", providerID, ctx.Err())
		return []RankedSlot{}
	}

	candidates := []RankedSlot{}
	for _, slots := range perDay {
		candidates = append(candidates, slots...)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	if len(candidates) > r.limit {
		candidates = candidates[:r.limit]
	}
	return candidates
}

// ScoreSlot rates a slot for the given urgency. daysAhead is the 0-based
// offset of the slot's day from the first day of the horizon.
func ScoreSlot(urgency float64, day time.Time, slot string, daysAhead int) float64 {
	score := baseSlotScore

	switch {
	case urgency > 8.0:
		score += 3.0
	case urgency > 6.0:
		score += 1.0
	}

	if urgency > urgentThreshold {
		if bonus := 3.0 - 0.5*float64(daysAhead); bonus > 0 {
			score += bonus
		}
	}

	if t, err := time.Parse(entity.TimeLayout, slot); err == nil {
		hour := t.Hour()
		switch {
		case hour >= 9 && hour <= 11:
			score += 1.0
		case hour >= 14 && hour <= 16:
			score += 0.5
		}
	}

	if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
		score -= 0.5
	}

	if score > maxSlotScore {
		score = maxSlotScore
	}
	return score
}
