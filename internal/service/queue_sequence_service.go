package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"clinic-backend/internal/domain/entity"
	"clinic-backend/internal/domain/repository"
	"clinic-backend/pkg/timezone"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// QueueSequencer hands out queue positions for a service date.
// Every call returns a value no other caller has received for that date.
type QueueSequencer interface {
	NextPosition(ctx context.Context, serviceDate time.Time) (int, error)
}

// ErrSequenceUnseeded is returned when the counter key is missing after seeding
var ErrSequenceUnseeded = errors.New("queue position sequence is not seeded")

const (
	RedisQueuePositionKeyPrefix = "queue:position:"

	// Counters live two days past their service date
	queueSequenceRetention = 48 * time.Hour
)

// nextPositionScript increments an existing counter. A missing key returns -1
// so the caller seeds it from the database instead of starting again at 1.
var nextPositionScript = redis.NewScript(`
	if redis.call('EXISTS', KEYS[1]) == 0 then
		return -1
	end
	local position = redis.call('INCR', KEYS[1])
	redis.call('EXPIREAT', KEYS[1], ARGV[1])
	return position
`)

// seedPositionScript raises the counter to at least ARGV[1] and never lowers it
var seedPositionScript = redis.NewScript(`
	local current = redis.call('GET', KEYS[1])
	local floor = tonumber(ARGV[1])
	if (not current) or tonumber(current) < floor then
		redis.call('SET', KEYS[1], floor)
		current = floor
	end
	redis.call('EXPIREAT', KEYS[1], ARGV[2])
	return tonumber(current)
`)

// QueueSequenceService keeps per-date position counters in Redis, seeded from
// MAX(queue_position) in PostgreSQL.
type QueueSequenceService struct {
	tx          repository.Transactor
	queueRepo   repository.QueueEntryRepository
	redisClient *redis.Client
	log         *logrus.Logger
	clock       timezone.Clock

	// Per-date mutex around seeding
	dateMu *KeyedMutex
}

func NewQueueSequenceService(
	tx repository.Transactor,
	queueRepo repository.QueueEntryRepository,
	redisClient *redis.Client,
	log *logrus.Logger,
	clock timezone.Clock,
) *QueueSequenceService {
	return &QueueSequenceService{
		tx:          tx,
		queueRepo:   queueRepo,
		redisClient: redisClient,
		log:         log,
		clock:       clock,
		dateMu:      NewKeyedMutex("queue-date", log),
	}
}

// Stop gracefully shuts down the service
func (s *QueueSequenceService) Stop() {
	s.dateMu.Stop()
	s.log.Info("QueueSequenceService stopped")
}

// NextPosition returns the next position for serviceDate
func (s *QueueSequenceService) NextPosition(ctx context.Context, serviceDate time.Time) (int, error) {
	key := positionKey(serviceDate)
	expireAt := s.expireAt(serviceDate)

	position, err := nextPositionScript.Run(ctx, s.redisClient, []string{key}, expireAt).Int()
	if err != nil {
		s.log.Warnf("Failed Lua script NextPosition for %s: %+v", key, err)
		return 0, fmt.Errorf("lua next position for %s: %w", key, err)
	}
	if position > 0 {
		return position, nil
	}

	if _, err := s.Seed(ctx, serviceDate); err != nil {
		return 0, err
	}

	position, err = nextPositionScript.Run(ctx, s.redisClient, []string{key}, expireAt).Int()
	if err != nil {
		s.log.Warnf("Failed Lua script NextPosition for %s after seeding: %+v", key, err)
		return 0, fmt.Errorf("lua next position for %s: %w", key, err)
	}
	if position < 1 {
		return 0, ErrSequenceUnseeded
	}

	s.log.Debugf("Assigned queue position %d for %s", position, key)
	return position, nil
}

// Seed raises the counter for serviceDate to the highest position stored in the database
func (s *QueueSequenceService) Seed(ctx context.Context, serviceDate time.Time) (int, error) {
	key := positionKey(serviceDate)

	unlock := s.dateMu.Lock(key)
	defer unlock()

	maxPosition, err := s.queueRepo.MaxPosition(ctx, s.tx.Conn(ctx), serviceDate)
	if err != nil {
		s.log.Warnf("Failed to query max queue position for %s: %+v", key, err)
		return 0, fmt.Errorf("query max queue position for %s: %w", key, err)
	}

	current, err := seedPositionScript.Run(ctx, s.redisClient, []string{key}, maxPosition, s.expireAt(serviceDate)).Int()
	if err != nil {
		s.log.Warnf("Failed to seed %s: %+v", key, err)
		return 0, fmt.Errorf("seed %s: %w", key, err)
	}

	s.log.Debugf("Seeded %s: db_max=%d, counter=%d", key, maxPosition, current)
	return current, nil
}

// SyncOnStartup seeds today's counter before the server accepts traffic
func (s *QueueSequenceService) SyncOnStartup(ctx context.Context) error {
	s.log.Info("Starting Redis queue sequence re-sync from database...")
	startTime := time.Now()

	if err := s.redisClient.Ping(ctx).Err(); err != nil {
		s.log.Warnf("Redis is not available, skipping sync: %+v", err)
		return fmt.Errorf("redis ping failed: %w", err)
	}

	today := timezone.Today(s.clock)
	current, err := s.Seed(ctx, today)
	if err != nil {
		return err
	}

	s.log.Infof("Redis queue sequence re-sync completed: %s at %d in %v", today.Format(entity.DateLayout), current, time.Since(startTime))
	return nil
}

func positionKey(serviceDate time.Time) string {
	return RedisQueuePositionKeyPrefix + serviceDate.Format(entity.DateLayout)
}

// expireAt returns the Unix time after which the counter for serviceDate is dropped.
// Past dates get a short grace period.
func (s *QueueSequenceService) expireAt(serviceDate time.Time) int64 {
	expire := entity.DateOnly(serviceDate).Add(queueSequenceRetention)
	if floor := s.clock.Now().Add(time.Minute); expire.Before(floor) {
		expire = floor
	}
	return expire.Unix()
}
