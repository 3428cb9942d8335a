package leadership

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/friendsincode/ministry_platform/internal/telemetry"
)

const (
	defaultElectionKey     = "ministry:leader:workers"
	defaultLeaseDuration   = 15 * time.Second
	defaultRenewalInterval = 5 * time.Second
)

// Leader is what leader-gated workers need from an election.
type Leader interface {
	IsLeader() bool
	LeaderCh() <-chan bool
}

// Election manages distributed leader election using Redis.
type Election struct {
	client     *redis.Client
	logger     zerolog.Logger
	config     ElectionConfig
	instanceID string

	mu       sync.RWMutex
	isLeader bool
	leaderCh chan bool
	stopOnce sync.Once
	cancel   context.CancelFunc
	done     chan struct{}
}

// ElectionConfig configures leader election behavior.
type ElectionConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// ElectionKey is the Redis key holding the leader's instance ID.
	ElectionKey string

	// LeaseDuration is how long the lease lives without renewal.
	LeaseDuration time.Duration

	// RenewalInterval is how often every instance campaigns. It must be
	// well under LeaseDuration.
	RenewalInterval time.Duration

	InstanceID string
}

// DefaultConfig returns default election configuration.
func DefaultConfig() ElectionConfig {
	return ElectionConfig{
		RedisAddr:       "localhost:6379",
		ElectionKey:     defaultElectionKey,
		LeaseDuration:   defaultLeaseDuration,
		RenewalInterval: defaultRenewalInterval,
		InstanceID:      uuid.NewString(),
	}
}

func (c *ElectionConfig) applyDefaults() {
	if c.ElectionKey == "" {
		c.ElectionKey = defaultElectionKey
	}
	if c.LeaseDuration <= 0 {
		c.LeaseDuration = defaultLeaseDuration
	}
	if c.RenewalInterval <= 0 || c.RenewalInterval >= c.LeaseDuration {
		c.RenewalInterval = c.LeaseDuration / 3
	}
	if c.InstanceID == "" {
		c.InstanceID = uuid.NewString()
	}
}

// NewElection connects to Redis and prepares an election.
func NewElection(config ElectionConfig, logger zerolog.Logger) (*Election, error) {
	config.applyDefaults()

	client := redis.NewClient(&redis.Options{
		Addr:     config.RedisAddr,
		Password: config.RedisPassword,
		DB:       config.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	logger.Info().
		Str("redis_addr", config.RedisAddr).
		Str("instance_id", config.InstanceID).
		Msg("connected to Redis for leader election")

	return &Election{
		client:     client,
		logger:     logger.With().Str("component", "leader_election").Logger(),
		config:     config,
		instanceID: config.InstanceID,
		leaderCh:   make(chan bool, 1),
		done:       make(chan struct{}),
	}, nil
}

// InstanceID returns this instance's identity.
func (e *Election) InstanceID() string { return e.instanceID }

// Start begins campaigning in the background.
func (e *Election) Start(ctx context.Context) {
	ctx, e.cancel = context.WithCancel(ctx)

	e.logger.Info().
		Dur("lease_duration", e.config.LeaseDuration).
		Msg("starting leader election")

	go func() {
		defer close(e.done)
		e.campaignLoop(ctx)
	}()
}

// Stop ends the campaign, releases the lease if held and closes Redis.
func (e *Election) Stop() error {
	var err error
	e.stopOnce.Do(func() {
		if e.cancel != nil {
			e.cancel()
			<-e.done
		}

		if e.IsLeader() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if relErr := e.releaseLock(ctx); relErr != nil {
				e.logger.Error().Err(relErr).Msg("failed to release leadership lock")
			}
			e.updateLeadershipStatus(false)
		}
		err = e.client.Close()
	})
	return err
}

// IsLeader returns whether this instance currently holds the lease.
func (e *Election) IsLeader() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.isLeader
}

// LeaderCh receives leadership changes. Only the latest change is buffered.
func (e *Election) LeaderCh() <-chan bool {
	return e.leaderCh
}

// GetLeader returns the current leader instance ID, or "" if none.
func (e *Election) GetLeader(ctx context.Context) (string, error) {
	leaderID, err := e.client.Get(ctx, e.config.ElectionKey).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get leader: %w", err)
	}
	return leaderID, nil
}

func (e *Election) campaignLoop(ctx context.Context) {
	ticker := time.NewTicker(e.config.RenewalInterval)
	defer ticker.Stop()

	e.attemptLeadership(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.attemptLeadership(ctx)
		}
	}
}

func (e *Election) attemptLeadership(ctx context.Context) {
	acquired, err := e.acquireLock(ctx)
	if err != nil {
		if ctx.Err() == nil {
			e.logger.Error().Err(err).Msg("failed to acquire leadership lock")
		}
		e.updateLeadershipStatus(false)
		return
	}
	e.updateLeadershipStatus(acquired)
}

func (e *Election) acquireLock(ctx context.Context) (bool, error) {
	ok, err := e.client.SetNX(ctx, e.config.ElectionKey, e.instanceID, e.config.LeaseDuration).Result()
	if err != nil {
		return false, fmt.Errorf("set lock: %w", err)
	}
	if ok {
		return true, nil
	}

	current, err := e.client.Get(ctx, e.config.ElectionKey).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get current leader: %w", err)
	}
	if current != e.instanceID {
		return false, nil
	}

	if err := e.client.Expire(ctx, e.config.ElectionKey, e.config.LeaseDuration).Err(); err != nil {
		return false, fmt.Errorf("renew lock: %w", err)
	}
	return true, nil
}

const releaseScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`

func (e *Election) releaseLock(ctx context.Context) error {
	if err := e.client.Eval(ctx, releaseScript, []string{e.config.ElectionKey}, e.instanceID).Err(); err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	e.logger.Info().Msg("released leadership lock")
	return nil
}

func (e *Election) updateLeadershipStatus(isLeader bool) {
	e.mu.Lock()
	changed := e.isLeader != isLeader
	e.isLeader = isLeader
	e.mu.Unlock()
	if !changed {
		return
	}

	if isLeader {
		e.logger.Info().Msg("acquired leadership")
		telemetry.LeaderElectionStatus.WithLabelValues(e.instanceID).Set(1)
		telemetry.LeaderElectionChanges.WithLabelValues(e.instanceID, "acquired").Inc()
	} else {
		e.logger.Warn().Msg("lost leadership")
		telemetry.LeaderElectionStatus.WithLabelValues(e.instanceID).Set(0)
		telemetry.LeaderElectionChanges.WithLabelValues(e.instanceID, "lost").Inc()
	}

	// keep only the newest state in the buffer
	select {
	case <-e.leaderCh:
	default:
	}
	select {
	case e.leaderCh <- isLeader:
	default:
	}
}

// Static is a Leader whose status never changes. Single-instance deployments
// use Static(true).
type Static bool

// IsLeader reports the fixed status.
func (s Static) IsLeader() bool { return bool(s) }

// LeaderCh never fires.
func (s Static) LeaderCh() <-chan bool { return nil }
