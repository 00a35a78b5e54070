package service

import (
	"context"
	"errors"
	"io"
	"regexp"
	"testing"
	"time"

	"clinic-backend/config"
	"clinic-backend/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

func newTestLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

var testScheduling = config.SchedulingConfig{
	SlotDuration:        30 * time.Minute,
	SlotStride:          30 * time.Minute,
	HorizonDays:         7,
	DefaultWaitMinutes:  30,
	RecommendationLimit: 10,
}

func newAvailability(hours string) (AvailabilityService, uuid.UUID, *fakeBookedTimes) {
	providerID := uuid.New()
	doctors := &fakeDoctorRepo{profiles: map[uuid.UUID]*entity.DoctorProfile{
		providerID: {UserID: providerID, WorkingHours: hours},
	}}
	appointments := &fakeBookedTimes{}
	svc := NewAvailabilityService(fakeTransactor{}, newTestLogger(), doctors, appointments, testScheduling)
	return svc, providerID, appointments
}

func TestComputeSlots_FullDay(t *testing.T) {
	svc, providerID, _ := newAvailability("09:00-17:00")
	date := time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC)

	slots := svc.ComputeSlots(context.Background(), providerID, date)
	if len(slots) != 16 {
		t.Fatalf("expected 16 slots, got %d: %v", len(slots), slots)
	}

	pattern := regexp.MustCompile(`^\d{2}:(00|30)$`)
	for _, slot := range slots {
		if !pattern.MatchString(slot) {
			t.Fatalf("slot %q does not match HH:MM on the half hour", slot)
		}
	}
	if slots[0] != "09:00" || slots[15] != "16:30" {
		t.Fatalf("unexpected bounds: first=%s last=%s", slots[0], slots[15])
	}
}

func TestComputeSlots_BookingRemovesExactlyThatSlot(t *testing.T) {
	svc, providerID, appointments := newAvailability("09:00-17:00")
	date := time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC)
	ctx := context.Background()

	before := svc.ComputeSlots(ctx, providerID, date)
	appointments.book(providerID, date, "10:00")
	after := svc.ComputeSlots(ctx, providerID, date)

	if len(after) != len(before)-1 {
		t.Fatalf("expected one slot fewer, before=%d after=%d", len(before), len(after))
	}

	remaining := make(map[string]bool, len(after))
	for _, s := range after {
		remaining[s] = true
	}
	for _, s := range before {
		if s == "10:00" {
			if remaining[s] {
				t.Fatal("10:00 should no longer be available")
			}
			continue
		}
		if !remaining[s] {
			t.Fatalf("slot %s disappeared unexpectedly", s)
		}
	}

	otherDay := svc.ComputeSlots(ctx, providerID, date.AddDate(0, 0, 1))
	if len(otherDay) != 16 {
		t.Fatalf("booking leaked into another day: %d slots", len(otherDay))
	}
}

func TestComputeSlots_DegradesToEmpty(t *testing.T) {
	date := time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC)
	ctx := context.Background()

	for _, hours := range []string{"", "nine to five", "17:00-09:00", "09:00"} {
		svc, providerID, _ := newAvailability(hours)
		if slots := svc.ComputeSlots(ctx, providerID, date); len(slots) != 0 {
			t.Fatalf("hours %q: expected no slots, got %v", hours, slots)
		}
	}

	svc, _, _ := newAvailability("09:00-17:00")
	if slots := svc.ComputeSlots(ctx, uuid.New(), date); len(slots) != 0 {
		t.Fatalf("unknown provider: expected no slots, got %v", slots)
	}

	svc, providerID, appointments := newAvailability("09:00-17:00")
	appointments.err = errors.New("connection reset")
	if slots := svc.ComputeSlots(ctx, providerID, date); slots == nil || len(slots) != 0 {
		t.Fatalf("storage failure: expected empty non-nil slice, got %#v", slots)
	}
}

func TestGenerateSlots_DropsPartialSlot(t *testing.T) {
	hours, err := entity.ParseWorkingHours("09:00-10:45")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	got := GenerateSlots(hours, 30*time.Minute, 30*time.Minute, nil)
	want := []string{"09:00", "09:30", "10:00"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestGenerateSlots_StrideLongerThanDuration(t *testing.T) {
	hours, _ := entity.ParseWorkingHours("09:00-11:00")

	got := GenerateSlots(hours, 30*time.Minute, 45*time.Minute, nil)
	want := []string{"09:00", "09:45"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("expected %v, got %v", want, got)
	}
}
