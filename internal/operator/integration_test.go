package operator

import (
	"context"
	"errors"
	"testing"

	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/pkg/models"
)

type fakeIntegrationAdapter struct {
	gotEndpoint string
	gotPayload  map[string]interface{}
	out         map[string]interface{}
	err         error
}

func (f *fakeIntegrationAdapter) Call(ctx context.Context, endpoint string, payload map[string]interface{}) (map[string]interface{}, error) {
	f.gotEndpoint = endpoint
	f.gotPayload = payload
	return f.out, f.err
}

func TestIntegrationOperator_NilAdapterFails(t *testing.T) {
	op := &IntegrationOperator{}
	result, err := op.Execute(context.Background(), Input{Config: map[string]interface{}{"endpoint": "/x"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != models.TaskResultFailed {
		t.Fatalf("expected FAILED without adapter, got %s", result.Status)
	}
}

func TestIntegrationOperator_MissingEndpointFails(t *testing.T) {
	op := &IntegrationOperator{adapter: &fakeIntegrationAdapter{}}
	result, _ := op.Execute(context.Background(), Input{Config: map[string]interface{}{}})
	if result.Status != models.TaskResultFailed {
		t.Fatalf("expected FAILED without endpoint, got %s", result.Status)
	}
}

func TestIntegrationOperator_AdapterErrorFails(t *testing.T) {
	op := &IntegrationOperator{adapter: &fakeIntegrationAdapter{err: errors.New("timeout")}}
	result, _ := op.Execute(context.Background(), Input{Config: map[string]interface{}{"endpoint": "/verify"}})
	if result.Status != models.TaskResultFailed {
		t.Fatalf("expected FAILED on adapter error, got %s", result.Status)
	}
}

func TestIntegrationOperator_SuccessfulCallCompletesWithAdapterOutput(t *testing.T) {
	adapter := &fakeIntegrationAdapter{out: map[string]interface{}{"verified": true}}
	op := &IntegrationOperator{adapter: adapter}
	in := Input{
		Config:  map[string]interface{}{"endpoint": "/verify", "payload": map[string]interface{}{"id": "123"}},
		Context: map[string]interface{}{"id": "should-not-be-used"},
	}

	result, err := op.Execute(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != models.TaskResultCompleted || result.Data["verified"] != true {
		t.Fatalf("expected completed with adapter output, got %+v", result)
	}
	if adapter.gotPayload["id"] != "123" {
		t.Fatalf("expected configured payload used, got %+v", adapter.gotPayload)
	}
}

func TestIntegrationOperator_PayloadDefaultsToContext(t *testing.T) {
	adapter := &fakeIntegrationAdapter{out: map[string]interface{}{"ok": true}}
	op := &IntegrationOperator{adapter: adapter}
	in := Input{
		Config:  map[string]interface{}{"endpoint": "/verify"},
		Context: map[string]interface{}{"id": "ctx-id"},
	}

	_, err := op.Execute(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if adapter.gotPayload["id"] != "ctx-id" {
		t.Fatalf("expected context used as payload default, got %+v", adapter.gotPayload)
	}
}
