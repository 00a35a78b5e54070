package service

import (
	"context"
	"sync"
	"time"

	"clinic-backend/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type fakeTransactor struct{}

func (fakeTransactor) Conn(ctx context.Context) *gorm.DB { return nil }

func (fakeTransactor) WithinTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakeDoctorRepo struct {
	profiles map[uuid.UUID]*entity.DoctorProfile
	err      error
}

func (r *fakeDoctorRepo) FindByUserID(ctx context.Context, db *gorm.DB, userID uuid.UUID) (*entity.DoctorProfile, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.profiles[userID], nil
}

func (r *fakeDoctorRepo) LockByUserID(ctx context.Context, db *gorm.DB, userID uuid.UUID) (*entity.DoctorProfile, error) {
	return r.FindByUserID(ctx, db, userID)
}

func (r *fakeDoctorRepo) FindAll(ctx context.Context, db *gorm.DB) ([]entity.DoctorProfile, error) {
	var out []entity.DoctorProfile
	for _, p := range r.profiles {
		out = append(out, *p)
	}
	return out, nil
}

// fakeBookedTimes implements only what the availability service reads
type fakeBookedTimes struct {
	mu     sync.Mutex
	booked map[string][]string // provider|date -> times
	err    error
}

func bookedKey(providerID uuid.UUID, date time.Time) string {
	return providerID.String() + "|" + date.Format(entity.DateLayout)
}

func (r *fakeBookedTimes) book(providerID uuid.UUID, date time.Time, t string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.booked == nil {
		r.booked = map[string][]string{}
	}
	k := bookedKey(providerID, date)
	r.booked[k] = append(r.booked[k], t)
}

func (r *fakeBookedTimes) Create(ctx context.Context, db *gorm.DB, a *entity.Appointment) error {
	r.book(a.ProviderID, a.AppointmentDate, a.AppointmentTime)
	return nil
}

func (r *fakeBookedTimes) FindByID(ctx context.Context, db *gorm.DB, id uuid.UUID) (*entity.Appointment, error) {
	return nil, nil
}

func (r *fakeBookedTimes) FindByIDForUpdate(ctx context.Context, db *gorm.DB, id uuid.UUID) (*entity.Appointment, error) {
	return nil, nil
}

func (r *fakeBookedTimes) FindAll(ctx context.Context, db *gorm.DB, filter entity.AppointmentFilter) ([]entity.Appointment, error) {
	return nil, nil
}

func (r *fakeBookedTimes) ExistsActiveAtSlot(ctx context.Context, db *gorm.DB, providerID uuid.UUID, date time.Time, timeOfDay string, excludeID *uuid.UUID) (bool, error) {
	return false, nil
}

func (r *fakeBookedTimes) FindBookedTimes(ctx context.Context, db *gorm.DB, providerID uuid.UUID, date time.Time) ([]string, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.booked[bookedKey(providerID, date)]...), nil
}

func (r *fakeBookedTimes) Update(ctx context.Context, db *gorm.DB, a *entity.Appointment) error {
	return nil
}

type fakeQueueRepo struct {
	mu          sync.Mutex
	maxPosition map[string]int
}

func (r *fakeQueueRepo) setMax(date time.Time, max int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.maxPosition == nil {
		r.maxPosition = map[string]int{}
	}
	r.maxPosition[date.Format(entity.DateLayout)] = max
}

func (r *fakeQueueRepo) Create(ctx context.Context, db *gorm.DB, e *entity.QueueEntry) error {
	return nil
}

func (r *fakeQueueRepo) FindByAppointmentID(ctx context.Context, db *gorm.DB, id uuid.UUID) (*entity.QueueEntry, error) {
	return nil, nil
}

func (r *fakeQueueRepo) FindNextWaiting(ctx context.Context, db *gorm.DB, providerID uuid.UUID, d time.Time) (*entity.QueueEntry, error) {
	return nil, nil
}

func (r *fakeQueueRepo) FindByProviderAndDate(ctx context.Context, db *gorm.DB, providerID uuid.UUID, d time.Time) ([]entity.QueueEntry, error) {
	return nil, nil
}

func (r *fakeQueueRepo) CountAhead(ctx context.Context, db *gorm.DB, d time.Time, position int) (int64, error) {
	return 0, nil
}

func (r *fakeQueueRepo) MaxPosition(ctx context.Context, db *gorm.DB, d time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.maxPosition[d.Format(entity.DateLayout)], nil
}

func (r *fakeQueueRepo) Update(ctx context.Context, db *gorm.DB, e *entity.QueueEntry) error {
	return nil
}

func (r *fakeQueueRepo) Delete(ctx context.Context, db *gorm.DB, e *entity.QueueEntry) error {
	return nil
}
