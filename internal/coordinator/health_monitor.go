// This file implements health monitoring for the configured shard stores.
package coordinator

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dreamware/catalogd/internal/shard"
)

// ShardHealth tracks the health status of a single shard store.
// Thread-safe: protected by HealthMonitor's mutex when accessed.
type ShardHealth struct {
	LastCheck        time.Time // Timestamp of the last health check attempt
	LastHealthy      time.Time // Timestamp of the last successful check
	ShardID          string    // Identifier of the shard
	Healthy          bool      // Result of the most recent evaluation
	ConsecutiveFails int       // Number of consecutive failed checks
}

// HealthMonitor periodically pings every shard store in the registry
// and flips the shard's state between active and faulted. A faulted
// shard keeps its data; it is merely excluded from the aggregated view
// until its store answers again. The monitor never retries failed
// writes and never tears down subscriptions itself.
//
// Thread-safe: all methods are safe for concurrent access.
type HealthMonitor struct {
	log         *zap.Logger
	registry    *ShardRegistry
	health      map[string]*ShardHealth
	checkFunc   func(ctx context.Context, s *shard.Shard) error
	onChange    func(shardID string, healthy bool)
	interval    time.Duration
	timeout     time.Duration
	maxFailures int
	mu          sync.RWMutex
	cancel      context.CancelFunc
	wg          sync.WaitGroup
}

// NewHealthMonitor creates a monitor over the registry's shards.
// Shards are marked faulted after 3 consecutive failed pings.
func NewHealthMonitor(log *zap.Logger, registry *ShardRegistry, interval time.Duration) *HealthMonitor {
	return &HealthMonitor{
		log:         log,
		registry:    registry,
		health:      make(map[string]*ShardHealth),
		interval:    interval,
		timeout:     2 * time.Second,
		maxFailures: 3,
	}
}

// SetOnChange sets the callback invoked when a shard transitions
// between healthy and faulted.
func (h *HealthMonitor) SetOnChange(callback func(shardID string, healthy bool)) {
	h.onChange = callback
}

// SetCheckFunction overrides the default ping, useful in tests.
func (h *HealthMonitor) SetCheckFunction(checkFunc func(ctx context.Context, s *shard.Shard) error) {
	h.checkFunc = checkFunc
}

// Start begins periodic checking in a background goroutine.
func (h *HealthMonitor) Start(ctx context.Context) {
	ctx, h.cancel = context.WithCancel(ctx)

	if h.checkFunc == nil {
		h.checkFunc = h.defaultCheck
	}

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()

		ticker := time.NewTicker(h.interval)
		defer ticker.Stop()

		h.checkAllShards(ctx)
		for {
			select {
			case <-ticker.C:
				h.checkAllShards(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()

	h.log.Info("shard health monitor started", zap.Duration("interval", h.interval))
}

// Stop cancels monitoring and waits for the check loop to finish.
func (h *HealthMonitor) Stop() {
	if h.cancel != nil {
		h.cancel()
	}
	h.wg.Wait()
	h.log.Info("shard health monitor stopped")
}

func (h *HealthMonitor) checkAllShards(ctx context.Context) {
	for _, shardID := range h.registry.ShardIDs() {
		s, err := h.registry.ShardFor(shardID)
		if err != nil {
			continue
		}
		h.checkShard(ctx, s)
	}
}

// checkShard pings one shard store and updates its health record,
// flipping the shard state on threshold crossings.
func (h *HealthMonitor) checkShard(ctx context.Context, s *shard.Shard) {
	h.mu.Lock()
	health, exists := h.health[s.ID]
	if !exists {
		health = &ShardHealth{
			ShardID:     s.ID,
			Healthy:     true,
			LastCheck:   time.Now(),
			LastHealthy: time.Now(),
		}
		h.health[s.ID] = health
	}
	h.mu.Unlock()

	pingCtx, cancel := context.WithTimeout(ctx, h.timeout)
	err := h.checkFunc(pingCtx, s)
	cancel()

	h.mu.Lock()
	defer h.mu.Unlock()

	health.LastCheck = time.Now()

	if err != nil {
		health.ConsecutiveFails++
		h.log.Warn("shard health check failed",
			zap.String("shard_id", s.ID),
			zap.Int("attempt", health.ConsecutiveFails),
			zap.Int("max_failures", h.maxFailures),
			zap.Error(err))

		if health.ConsecutiveFails >= h.maxFailures && health.Healthy {
			health.Healthy = false
			s.SetState(shard.StateFaulted)
			h.log.Error("shard marked faulted",
				zap.String("shard_id", s.ID),
				zap.Int("failures", health.ConsecutiveFails))
			if h.onChange != nil {
				// Callback runs without holding the lock
				go h.onChange(s.ID, false)
			}
		}
		return
	}

	if !health.Healthy {
		h.log.Info("shard recovered", zap.String("shard_id", s.ID))
		s.SetState(shard.StateActive)
		if h.onChange != nil {
			go h.onChange(s.ID, true)
		}
	}
	health.Healthy = true
	health.ConsecutiveFails = 0
	health.LastHealthy = time.Now()
}

// defaultCheck pings the shard's underlying store.
func (h *HealthMonitor) defaultCheck(ctx context.Context, s *shard.Shard) error {
	return s.Store.Ping(ctx)
}

// GetShardHealth returns the current health record for a shard, or nil
// if the shard has not been checked yet. Returns a copy.
func (h *HealthMonitor) GetShardHealth(shardID string) *ShardHealth {
	h.mu.RLock()
	defer h.mu.RUnlock()

	health, exists := h.health[shardID]
	if !exists {
		return nil
	}
	cp := *health
	return &cp
}

// IsHealthy reports whether a shard's store is currently healthy.
// Unknown shards report false.
func (h *HealthMonitor) IsHealthy(shardID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	health, exists := h.health[shardID]
	return exists && health.Healthy
}
