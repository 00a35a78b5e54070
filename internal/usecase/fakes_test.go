package usecase

import (
	"context"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"clinic-backend/config"
	"clinic-backend/internal/domain/entity"
	"clinic-backend/internal/service"
	"clinic-backend/pkg/timezone"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func newTestLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// memStore backs every fake repository. Transactions run one at a time and
// restore the previous state when fn fails, which is what row locks and
// rollbacks give the real store.
type memStore struct {
	txMu sync.Mutex

	mu           sync.Mutex
	appointments map[uuid.UUID]entity.Appointment
	queue        map[uuid.UUID]entity.QueueEntry
	patients     map[uuid.UUID]entity.PatientProfile
	providers    map[uuid.UUID]entity.DoctorProfile
	audits       []entity.AuditLog
}

func newMemStore() *memStore {
	return &memStore{
		appointments: map[uuid.UUID]entity.Appointment{},
		queue:        map[uuid.UUID]entity.QueueEntry{},
		patients:     map[uuid.UUID]entity.PatientProfile{},
		providers:    map[uuid.UUID]entity.DoctorProfile{},
	}
}

func (s *memStore) addPatient() uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.New()
	s.patients[id] = entity.PatientProfile{UserID: id}
	return id
}

func (s *memStore) addProvider() uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.New()
	s.providers[id] = entity.DoctorProfile{UserID: id, WorkingHours: "09:00-17:00"}
	return id
}

func (s *memStore) auditCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.audits)
}

// memStore is its own Transactor
func (s *memStore) Conn(ctx context.Context) *gorm.DB {
	return nil
}

func (s *memStore) WithinTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	appointments := make(map[uuid.UUID]entity.Appointment, len(s.appointments))
	for k, v := range s.appointments {
		appointments[k] = v
	}
	queue := make(map[uuid.UUID]entity.QueueEntry, len(s.queue))
	for k, v := range s.queue {
		queue[k] = v
	}
	audits := len(s.audits)
	s.mu.Unlock()

	if err := fn(nil); err != nil {
		s.mu.Lock()
		s.appointments = appointments
		s.queue = queue
		s.audits = s.audits[:audits]
		s.mu.Unlock()
		return err
	}
	return nil
}

type memAppointmentRepo struct{ s *memStore }

func (r memAppointmentRepo) Create(ctx context.Context, db *gorm.DB, a *entity.Appointment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if a.Status != entity.AppointmentStatusCancelled && r.slotTakenLocked(a.ProviderID, a.AppointmentDate, a.AppointmentTime, nil) {
		return gorm.ErrDuplicatedKey
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	r.s.appointments[a.ID] = *a
	return nil
}

func (r memAppointmentRepo) FindByID(ctx context.Context, db *gorm.DB, id uuid.UUID) (*entity.Appointment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.appointments[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (r memAppointmentRepo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, id uuid.UUID) (*entity.Appointment, error) {
	return r.FindByID(ctx, db, id)
}

func (r memAppointmentRepo) FindAll(ctx context.Context, db *gorm.DB, filter entity.AppointmentFilter) ([]entity.Appointment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []entity.Appointment
	for _, a := range r.s.appointments {
		if filter.PatientID != nil && a.PatientID != *filter.PatientID {
			continue
		}
		if filter.ProviderID != nil && a.ProviderID != *filter.ProviderID {
			continue
		}
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		ki := out[i].AppointmentDate.Format(entity.DateLayout) + out[i].AppointmentTime
		kj := out[j].AppointmentDate.Format(entity.DateLayout) + out[j].AppointmentTime
		if filter.Ascending {
			return ki < kj
		}
		return ki > kj
	})
	return out, nil
}

func (r memAppointmentRepo) ExistsActiveAtSlot(ctx context.Context, db *gorm.DB, providerID uuid.UUID, date time.Time, timeOfDay string, excludeID *uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.slotTakenLocked(providerID, date, timeOfDay, excludeID), nil
}

func (r memAppointmentRepo) slotTakenLocked(providerID uuid.UUID, date time.Time, timeOfDay string, excludeID *uuid.UUID) bool {
	for _, a := range r.s.appointments {
		if excludeID != nil && a.ID == *excludeID {
			continue
		}
		if a.ProviderID == providerID && a.IsOnDate(date) && a.AppointmentTime == timeOfDay && !a.IsCancelled() {
			return true
		}
	}
	return false
}

func (r memAppointmentRepo) FindBookedTimes(ctx context.Context, db *gorm.DB, providerID uuid.UUID, date time.Time) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var times []string
	for _, a := range r.s.appointments {
		if a.ProviderID == providerID && a.IsOnDate(date) && !a.IsCancelled() {
			times = append(times, a.AppointmentTime)
		}
	}
	return times, nil
}

func (r memAppointmentRepo) Update(ctx context.Context, db *gorm.DB, a *entity.Appointment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if !a.IsCancelled() && r.slotTakenLocked(a.ProviderID, a.AppointmentDate, a.AppointmentTime, &a.ID) {
		return gorm.ErrDuplicatedKey
	}
	r.s.appointments[a.ID] = *a
	return nil
}

type memQueueRepo struct{ s *memStore }

func (r memQueueRepo) Create(ctx context.Context, db *gorm.DB, e *entity.QueueEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.queue[e.AppointmentID]; ok {
		return gorm.ErrDuplicatedKey
	}
	for _, other := range r.s.queue {
		if other.ServiceDate.Equal(e.ServiceDate) && other.QueuePosition == e.QueuePosition {
			return gorm.ErrDuplicatedKey
		}
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	r.s.queue[e.AppointmentID] = *e
	return nil
}

func (r memQueueRepo) FindByAppointmentID(ctx context.Context, db *gorm.DB, appointmentID uuid.UUID) (*entity.QueueEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.queue[appointmentID]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (r memQueueRepo) FindNextWaiting(ctx context.Context, db *gorm.DB, providerID uuid.UUID, serviceDate time.Time) (*entity.QueueEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var next *entity.QueueEntry
	for _, e := range r.s.queue {
		if e.ProviderID != providerID || !e.ServiceDate.Equal(serviceDate) || !e.IsWaiting() {
			continue
		}
		if next == nil || e.QueuePosition < next.QueuePosition {
			found := e
			next = &found
		}
	}
	return next, nil
}

func (r memQueueRepo) FindByProviderAndDate(ctx context.Context, db *gorm.DB, providerID uuid.UUID, serviceDate time.Time) ([]entity.QueueEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []entity.QueueEntry
	for _, e := range r.s.queue {
		if e.ProviderID == providerID && e.ServiceDate.Equal(serviceDate) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QueuePosition < out[j].QueuePosition })
	return out, nil
}

func (r memQueueRepo) CountAhead(ctx context.Context, db *gorm.DB, serviceDate time.Time, position int) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, e := range r.s.queue {
		if e.ServiceDate.Equal(serviceDate) && e.QueuePosition < position && e.IsActive() {
			n++
		}
	}
	return n, nil
}

func (r memQueueRepo) MaxPosition(ctx context.Context, db *gorm.DB, serviceDate time.Time) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	max := 0
	for _, e := range r.s.queue {
		if e.ServiceDate.Equal(serviceDate) && e.QueuePosition > max {
			max = e.QueuePosition
		}
	}
	return max, nil
}

func (r memQueueRepo) Update(ctx context.Context, db *gorm.DB, e *entity.QueueEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.queue[e.AppointmentID] = *e
	return nil
}

func (r memQueueRepo) Delete(ctx context.Context, db *gorm.DB, e *entity.QueueEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.queue, e.AppointmentID)
	return nil
}

type memDoctorRepo struct{ s *memStore }

func (r memDoctorRepo) FindByUserID(ctx context.Context, db *gorm.DB, userID uuid.UUID) (*entity.DoctorProfile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.providers[userID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r memDoctorRepo) LockByUserID(ctx context.Context, db *gorm.DB, userID uuid.UUID) (*entity.DoctorProfile, error) {
	return r.FindByUserID(ctx, db, userID)
}

func (r memDoctorRepo) FindAll(ctx context.Context, db *gorm.DB) ([]entity.DoctorProfile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]entity.DoctorProfile, 0, len(r.s.providers))
	for _, p := range r.s.providers {
		out = append(out, p)
	}
	return out, nil
}

type memPatientRepo struct{ s *memStore }

func (r memPatientRepo) FindByUserID(ctx context.Context, db *gorm.DB, userID uuid.UUID) (*entity.PatientProfile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.patients[userID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

type memAuditRepo struct{ s *memStore }

func (r memAuditRepo) Create(ctx context.Context, db *gorm.DB, log *entity.AuditLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	log.ID = int64(len(r.s.audits) + 1)
	r.s.audits = append(r.s.audits, *log)
	return nil
}

func (r memAuditRepo) FindAll(ctx context.Context, db *gorm.DB, limit, offset int) ([]entity.AuditLog, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if offset >= len(r.s.audits) {
		return []entity.AuditLog{}, nil
	}
	end := offset + limit
	if end > len(r.s.audits) {
		end = len(r.s.audits)
	}
	return append([]entity.AuditLog(nil), r.s.audits[offset:end]...), nil
}

func (r memAuditRepo) Count(ctx context.Context, db *gorm.DB) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return int64(len(r.s.audits)), nil
}

func (r memAuditRepo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*entity.AuditLog, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, l := range r.s.audits {
		if l.ID == id {
			found := l
			return &found, nil
		}
	}
	return nil, nil
}

type publishedEvent struct {
	Channel string
	Event   string
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) Publish(_ context.Context, channel, event string, _ any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{Channel: channel, Event: event})
}

func (p *recordingPublisher) has(channel, event string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, e := range p.events {
		if e.Channel == channel && e.Event == event {
			return true
		}
	}
	return false
}

// stubRanker returns one fixed slot and remembers the preferred date it was asked for
type stubRanker struct {
	mu            sync.Mutex
	preferredDate *time.Time
}

func (r *stubRanker) RecommendSlots(ctx context.Context, providerID uuid.UUID, urgency float64, preferredDate *time.Time, horizonDays int) []service.RankedSlot {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.preferredDate = preferredDate
	return []service.RankedSlot{{Date: "2026-05-05", Time: "09:00", Score: 9, Recommended: true}}
}

func (r *stubRanker) lastPreferredDate() *time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.preferredDate
}

// fixture wires the usecases against one memStore and a miniredis-backed sequencer
type fixture struct {
	store        *memStore
	publisher    *recordingPublisher
	ranker       *stubRanker
	clock        timezone.Clock
	today        time.Time
	appointments AppointmentUsecase
	queue        QueueUsecase
	scheduling   SchedulingUsecase
	audit        AuditLogUsecase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	log := newTestLogger()
	store := newMemStore()
	publisher := &recordingPublisher{}
	ranker := &stubRanker{}
	clock := timezone.FixedClock{At: time.Date(2026, 5, 4, 10, 15, 0, 0, time.UTC)}

	mr := miniredis.RunT(t)
	mr.SetTime(clock.At)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	appointmentRepo := memAppointmentRepo{store}
	queueRepo := memQueueRepo{store}
	doctorRepo := memDoctorRepo{store}
	auditService := service.NewAuditService(log, memAuditRepo{store})

	sequencer := service.NewQueueSequenceService(store, queueRepo, client, log, clock)
	t.Cleanup(sequencer.Stop)
	appointmentMu := service.NewKeyedMutex("test-appointment", log)
	t.Cleanup(appointmentMu.Stop)

	availability := service.NewAvailabilityService(store, log, doctorRepo, appointmentRepo, config.SchedulingConfig{
		SlotDuration: 30 * time.Minute,
		SlotStride:   30 * time.Minute,
		HorizonDays:  7,
	})

	return &fixture{
		store:     store,
		publisher: publisher,
		ranker:    ranker,
		clock:     clock,
		today:     timezone.Today(clock),
		appointments: NewAppointmentUsecase(store, log, appointmentRepo, queueRepo, doctorRepo, memPatientRepo{store},
			auditService, service.NewRuleBasedDiagnoser(), ranker, publisher, clock),
		queue: NewQueueUsecase(store, log, appointmentRepo, queueRepo, auditService, sequencer,
			publisher, clock, 30, appointmentMu),
		scheduling: NewSchedulingUsecase(store, log, doctorRepo, availability,
			service.NewSlotRanker(availability, log, 10, clock)),
		audit: NewAuditLogUsecase(store, log, memAuditRepo{store}),
	}
}

// seedAppointment stores an appointment directly, bypassing the usecase
func (f *fixture) seedAppointment(patientID, providerID uuid.UUID, date time.Time, at string) entity.Appointment {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	a := entity.Appointment{
		ID:              uuid.New(),
		PatientID:       patientID,
		ProviderID:      providerID,
		AppointmentDate: date,
		AppointmentTime: at,
		UrgencyScore:    service.DefaultUrgencyScore,
		Status:          entity.AppointmentStatusScheduled,
	}
	f.store.appointments[a.ID] = a
	return a
}

// seedQueueEntry stores a queue entry directly, bypassing check-in
func (f *fixture) seedQueueEntry(a entity.Appointment, serviceDate time.Time, position int, status entity.QueueEntryStatus) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	f.store.queue[a.ID] = entity.QueueEntry{
		ID:            uuid.New(),
		AppointmentID: a.ID,
		ProviderID:    a.ProviderID,
		PatientID:     a.PatientID,
		ServiceDate:   serviceDate,
		QueuePosition: position,
		CheckedInAt:   f.clock.Now().AddDate(0, 0, -1),
		Status:        status,
	}
}

func patientActor(id uuid.UUID) entity.Actor {
	return entity.Actor{UserID: id, Role: entity.RolePatient}
}

func doctorActor(id uuid.UUID) entity.Actor {
	return entity.Actor{UserID: id, Role: entity.RoleDoctor}
}

func adminActor() entity.Actor {
	return entity.Actor{UserID: uuid.New(), Role: entity.RoleAdmin}
}

func strPtr(s string) *string {
	return &s
}
