package operator

import (
	"context"

	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/internal/circuitbreaker"
)

// GuardedIntegrationAdapter wraps an IntegrationAdapter with a circuit
// breaker, so a flapping downstream integration trips open instead of
// letting every IntegrationOperator
// task in flight pile up retries against it. One breaker instance should be
// shared across every call to the same downstream endpoint family.
type GuardedIntegrationAdapter struct {
	adapter IntegrationAdapter
	breaker *circuitbreaker.CircuitBreaker
}

// NewGuardedIntegrationAdapter wraps adapter with breaker. A nil breaker
// uses circuitbreaker.DefaultConfig.
func NewGuardedIntegrationAdapter(adapter IntegrationAdapter, breaker *circuitbreaker.CircuitBreaker) *GuardedIntegrationAdapter {
	if breaker == nil {
		breaker = circuitbreaker.New(nil)
	}
	return &GuardedIntegrationAdapter{adapter: adapter, breaker: breaker}
}

// Call proxies to the wrapped adapter under circuit breaker protection. A
// circuitbreaker.ErrCircuitOpen is returned verbatim so IntegrationOperator
// reports it as a FAILED result the same as any other transport error.
func (a *GuardedIntegrationAdapter) Call(ctx context.Context, endpoint string, payload map[string]interface{}) (map[string]interface{}, error) {
	return circuitbreaker.ExecuteWithValue(ctx, a.breaker, func() (map[string]interface{}, error) {
		return a.adapter.Call(ctx, endpoint, payload)
	})
}
