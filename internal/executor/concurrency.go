package executor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ConcurrencyConfig holds admission-gating configuration for the Executor.
type ConcurrencyConfig struct {
	// MaxGlobalInstances caps the number of instances this Executor will
	// have admitted (Submitted but not yet terminal) at once.
	MaxGlobalInstances int

	// DefaultTemplateConcurrency is the default per-DAGID cap, overridable
	// per template via SetTemplateLimit.
	DefaultTemplateConcurrency int

	// Pools names concurrency gates for external integration endpoints —
	// an IntegrationOperator task can declare config["pool"] to share a
	// cap across tasks that hit the same rate-limited downstream service.
	Pools map[string]int

	// RedisClient, when set, backs AcquireDistributedLock and
	// ReleaseDistributedLock. The admission counters stay in process memory.
	RedisClient *redis.Client

	// LockTTL bounds how long a distributed lock is held.
	LockTTL time.Duration
}

// ConcurrencyManager gates Instance admission at the global and per-DAGID
// level, and separately gates named integration pools — a per-endpoint-
// family cap an IntegrationOperator task opts into via config["pool"], for
// rate-limited downstream services.
type ConcurrencyManager struct {
	config *ConcurrencyConfig

	mu             sync.RWMutex
	globalCount    int
	templateCounts map[string]int
	templateLimits map[string]int
	poolCounts     map[string]int

	redis *redis.Client
}

// NewConcurrencyManager creates a concurrency manager. config may be nil.
func NewConcurrencyManager(config *ConcurrencyConfig) *ConcurrencyManager {
	if config == nil {
		config = &ConcurrencyConfig{
			MaxGlobalInstances:         1000,
			DefaultTemplateConcurrency: 100,
			Pools:                      make(map[string]int),
			LockTTL:                    30 * time.Second,
		}
	}
	if config.Pools == nil {
		config.Pools = make(map[string]int)
	}

	return &ConcurrencyManager{
		config:         config,
		templateCounts: make(map[string]int),
		templateLimits: make(map[string]int),
		poolCounts:     make(map[string]int),
		redis:          config.RedisClient,
	}
}

// CanAdmitGlobal reports whether one more instance can be admitted overall.
func (cm *ConcurrencyManager) CanAdmitGlobal() bool {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.globalCount < cm.config.MaxGlobalInstances
}

// CanAdmitTemplate reports whether one more instance of dagID can be
// admitted.
func (cm *ConcurrencyManager) CanAdmitTemplate(dagID string) bool {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.templateCounts[dagID] < cm.templateLimit(dagID)
}

// IncrementGlobal records one more admitted instance.
func (cm *ConcurrencyManager) IncrementGlobal() {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.globalCount++
}

// DecrementGlobal records one fewer admitted instance (it reached a
// terminal state).
func (cm *ConcurrencyManager) DecrementGlobal() {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if cm.globalCount > 0 {
		cm.globalCount--
	}
}

// IncrementTemplate records one more admitted instance of dagID.
func (cm *ConcurrencyManager) IncrementTemplate(dagID string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.templateCounts[dagID]++
}

// DecrementTemplate records one fewer admitted instance of dagID.
func (cm *ConcurrencyManager) DecrementTemplate(dagID string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if cm.templateCounts[dagID] > 0 {
		cm.templateCounts[dagID]--
	}
}

// SetTemplateLimit overrides the per-DAGID concurrency cap.
func (cm *ConcurrencyManager) SetTemplateLimit(dagID string, limit int) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.templateLimits[dagID] = limit
}

func (cm *ConcurrencyManager) templateLimit(dagID string) int {
	if limit, ok := cm.templateLimits[dagID]; ok {
		return limit
	}
	return cm.config.DefaultTemplateConcurrency
}

// AcquirePool claims a slot in a named integration pool, returning false
// when the pool is at capacity. A pool not registered via CreatePool allows
// unlimited concurrency.
func (cm *ConcurrencyManager) AcquirePool(name string) bool {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	max, exists := cm.config.Pools[name]
	if !exists {
		return true
	}
	if cm.poolCounts[name] >= max {
		return false
	}
	cm.poolCounts[name]++
	return true
}

// ReleasePool releases a previously-acquired slot in a named pool.
func (cm *ConcurrencyManager) ReleasePool(name string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if cm.poolCounts[name] > 0 {
		cm.poolCounts[name]--
	}
}

// CreatePool registers a named integration pool with a fixed capacity.
func (cm *ConcurrencyManager) CreatePool(name string, maxSlots int) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.config.Pools[name] = maxSlots
}

// GlobalCount returns the current global admitted-instance count.
func (cm *ConcurrencyManager) GlobalCount() int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.globalCount
}

// TemplateCount returns the current admitted-instance count for dagID.
func (cm *ConcurrencyManager) TemplateCount(dagID string) int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.templateCounts[dagID]
}

// AcquireDistributedLock attempts a Redis-backed lock shared across
// Executor nodes, used when more than one process drives the same instance
// queue (e.g. the distributed executor's dispatch path).
func (cm *ConcurrencyManager) AcquireDistributedLock(ctx context.Context, key string) (bool, error) {
	if cm.redis == nil {
		return false, fmt.Errorf("redis client not configured")
	}
	ok, err := cm.redis.SetNX(ctx, key, "locked", cm.config.LockTTL).Result()
	if err != nil {
		return false, fmt.Errorf("acquire distributed lock: %w", err)
	}
	return ok, nil
}

// ReleaseDistributedLock releases a previously-acquired distributed lock.
func (cm *ConcurrencyManager) ReleaseDistributedLock(ctx context.Context, key string) error {
	if cm.redis == nil {
		return fmt.Errorf("redis client not configured")
	}
	if _, err := cm.redis.Del(ctx, key).Result(); err != nil {
		return fmt.Errorf("release distributed lock: %w", err)
	}
	return nil
}

// Reset clears all in-memory counters. Intended for tests.
func (cm *ConcurrencyManager) Reset() {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.globalCount = 0
	cm.templateCounts = make(map[string]int)
	cm.poolCounts = make(map[string]int)
}
