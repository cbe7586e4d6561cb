package executor

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/internal/operator"
	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/internal/state"
	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/internal/storage"
	"github.com/therealutkarshpriyadarshi/workflow-orchestrator/pkg/models"
)

type fakeInstances struct {
	mu   sync.Mutex
	byID map[string]*models.Instance
}

func newFakeInstances() *fakeInstances {
	return &fakeInstances{byID: make(map[string]*models.Instance)}
}

func (f *fakeInstances) Create(ctx context.Context, instance *models.Instance) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[instance.InstanceID] = cloneInstance(instance)
	return nil
}

func (f *fakeInstances) Load(ctx context.Context, instanceID string) (*models.Instance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inst, ok := f.byID[instanceID]
	if !ok {
		return nil, fmt.Errorf("instance %s not found", instanceID)
	}
	return cloneInstance(inst), nil
}

func (f *fakeInstances) Save(ctx context.Context, instance *models.Instance) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.byID[instance.InstanceID]
	if !ok {
		return fmt.Errorf("instance %s not found", instance.InstanceID)
	}
	if stored.Version != instance.Version {
		return state.ErrOptimisticLock
	}
	instance.Version++
	f.byID[instance.InstanceID] = cloneInstance(instance)
	return nil
}

func (f *fakeInstances) List(ctx context.Context, filters storage.InstanceFilters) ([]*models.Instance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*models.Instance
	for _, inst := range f.byID {
		if filters.Status != nil && inst.Status != *filters.Status {
			continue
		}
		if filters.DAGID != "" && inst.DAGID != filters.DAGID {
			continue
		}
		out = append(out, cloneInstance(inst))
	}
	return out, nil
}

func cloneInstance(instance *models.Instance) *models.Instance {
	c := *instance
	c.Context = make(map[string]interface{}, len(instance.Context))
	for k, v := range instance.Context {
		c.Context[k] = v
	}
	c.TaskStates = make(map[string]*models.TaskState, len(instance.TaskStates))
	for k, v := range instance.TaskStates {
		ts := *v
		c.TaskStates[k] = &ts
	}
	c.CompletedTasks = make(map[string]bool, len(instance.CompletedTasks))
	for k, v := range instance.CompletedTasks {
		c.CompletedTasks[k] = v
	}
	c.FailedTasks = make(map[string]bool, len(instance.FailedTasks))
	for k, v := range instance.FailedTasks {
		c.FailedTasks[k] = v
	}
	return &c
}

type fakeTemplates struct {
	byKey map[string]*models.Template
}

func (f *fakeTemplates) GetTemplate(dagID, version string) (*models.Template, error) {
	tmpl, ok := f.byKey[dagID+"/"+version]
	if !ok {
		return nil, fmt.Errorf("template %s/%s not found", dagID, version)
	}
	return tmpl, nil
}

func waitUntil(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}

func newTestExecutor(t *testing.T, tmpl *models.Template) (*LocalExecutor, *fakeInstances) {
	t.Helper()
	instances := newFakeInstances()
	templates := &fakeTemplates{byKey: map[string]*models.Template{tmpl.DAGID + "/" + tmpl.Version: tmpl}}
	registry := operator.NewRegistry(operator.Deps{})
	sm := state.NewManager(nil)
	cfg := DefaultExecutorConfig()
	cfg.WorkerCount = 2

	exec := NewLocalExecutor(templates, instances, registry, sm, cfg)

	ctx := context.Background()
	if err := exec.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() { exec.Stop(context.Background()) })

	return exec, instances
}

func straightThroughTemplate() *models.Template {
	return &models.Template{
		DAGID:   "linear",
		Version: "1",
		Tasks: map[string]*models.TaskDef{
			"a": {TaskID: "a", OperatorKind: models.OperatorKindAction},
			"b": {TaskID: "b", OperatorKind: models.OperatorKindAction, Dependencies: []string{"a"}},
		},
	}
}

func TestLocalExecutor_StraightThroughRunCompletes(t *testing.T) {
	tmpl := straightThroughTemplate()
	exec, instances := newTestExecutor(t, tmpl)

	instance := models.NewInstance("inst-1", tmpl, "user-1", nil)
	instances.byID[instance.InstanceID] = instance

	if err := exec.Submit(context.Background(), instance.InstanceID); err != nil {
		t.Fatalf("submit: %v", err)
	}

	waitUntil(t, 2*time.Second, func() bool {
		loaded, _ := instances.Load(context.Background(), instance.InstanceID)
		return loaded != nil && loaded.Status == models.InstanceStatusCompleted
	})
}

func waitingTemplate() *models.Template {
	return &models.Template{
		DAGID:   "waits",
		Version: "1",
		Tasks: map[string]*models.TaskDef{
			"ask":    {TaskID: "ask", OperatorKind: models.OperatorKindUserInput},
			"finish": {TaskID: "finish", OperatorKind: models.OperatorKindAction, Dependencies: []string{"ask"}},
		},
	}
}

func TestLocalExecutor_WaitingTaskResumesAndCompletes(t *testing.T) {
	tmpl := waitingTemplate()
	exec, instances := newTestExecutor(t, tmpl)

	instance := models.NewInstance("inst-2", tmpl, "user-1", nil)
	instances.byID[instance.InstanceID] = instance

	if err := exec.Submit(context.Background(), instance.InstanceID); err != nil {
		t.Fatalf("submit: %v", err)
	}

	waitUntil(t, 2*time.Second, func() bool {
		loaded, _ := instances.Load(context.Background(), instance.InstanceID)
		return loaded != nil && loaded.Status == models.InstanceStatusWaitingForInput
	})

	if err := exec.Resume(context.Background(), instance.InstanceID, "ask", map[string]interface{}{"answer": "yes"}); err != nil {
		t.Fatalf("resume: %v", err)
	}

	waitUntil(t, 2*time.Second, func() bool {
		loaded, _ := instances.Load(context.Background(), instance.InstanceID)
		return loaded != nil && loaded.Status == models.InstanceStatusCompleted
	})

	loaded, _ := instances.Load(context.Background(), instance.InstanceID)
	if loaded.Context["answer"] != "yes" {
		t.Fatalf("expected resume payload merged into context, got %+v", loaded.Context)
	}
}

func failingTemplate() *models.Template {
	return &models.Template{
		DAGID:   "fails",
		Version: "1",
		Tasks: map[string]*models.TaskDef{
			"a": {
				TaskID:       "a",
				OperatorKind: models.OperatorKindAction,
				Config:       map[string]interface{}{"required_inputs": []interface{}{"missing_key"}},
			},
		},
	}
}

func TestLocalExecutor_FailedTaskFailsInstance(t *testing.T) {
	tmpl := failingTemplate()
	exec, instances := newTestExecutor(t, tmpl)

	instance := models.NewInstance("inst-3", tmpl, "user-1", nil)
	instances.byID[instance.InstanceID] = instance

	if err := exec.Submit(context.Background(), instance.InstanceID); err != nil {
		t.Fatalf("submit: %v", err)
	}

	waitUntil(t, 2*time.Second, func() bool {
		loaded, _ := instances.Load(context.Background(), instance.InstanceID)
		return loaded != nil && loaded.Status == models.InstanceStatusFailed
	})
}

type fakeDeadLetter struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeDeadLetter) AddFailedInstance(ctx context.Context, instance *models.Instance, taskID string, err error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, instance.InstanceID+"/"+taskID)
	return nil
}

func TestLocalExecutor_FailedTaskRecordsDeadLetter(t *testing.T) {
	tmpl := failingTemplate()
	exec, instances := newTestExecutor(t, tmpl)
	dlq := &fakeDeadLetter{}
	exec.WithDeadLetterQueue(dlq)

	instance := models.NewInstance("inst-3b", tmpl, "user-1", nil)
	instances.byID[instance.InstanceID] = instance

	if err := exec.Submit(context.Background(), instance.InstanceID); err != nil {
		t.Fatalf("submit: %v", err)
	}

	waitUntil(t, 2*time.Second, func() bool {
		dlq.mu.Lock()
		defer dlq.mu.Unlock()
		return len(dlq.calls) == 1
	})

	dlq.mu.Lock()
	defer dlq.mu.Unlock()
	if dlq.calls[0] != "inst-3b/a" {
		t.Fatalf("expected dead letter entry for inst-3b/a, got %+v", dlq.calls)
	}
}

func TestLocalExecutor_CancelMarksNonTerminalInstanceCancelled(t *testing.T) {
	tmpl := waitingTemplate()
	exec, instances := newTestExecutor(t, tmpl)

	instance := models.NewInstance("inst-4", tmpl, "user-1", nil)
	instances.byID[instance.InstanceID] = instance

	if err := exec.Submit(context.Background(), instance.InstanceID); err != nil {
		t.Fatalf("submit: %v", err)
	}
	waitUntil(t, 2*time.Second, func() bool {
		loaded, _ := instances.Load(context.Background(), instance.InstanceID)
		return loaded != nil && loaded.Status == models.InstanceStatusWaitingForInput
	})

	if err := exec.Cancel(context.Background(), instance.InstanceID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	loaded, _ := instances.Load(context.Background(), instance.InstanceID)
	if loaded.Status != models.InstanceStatusCancelled {
		t.Fatalf("expected cancelled, got %s", loaded.Status)
	}
}

type fakeLifecycleEvents struct {
	mu     sync.Mutex
	events []*models.Event
}

func (f *fakeLifecycleEvents) Publish(ctx context.Context, evt *models.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, evt)
	return nil
}

func (f *fakeLifecycleEvents) types() []models.EventType {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.EventType, len(f.events))
	for i, e := range f.events {
		out[i] = e.EventType
	}
	return out
}

func TestLocalExecutor_PublishesLifecycleEvents(t *testing.T) {
	tmpl := waitingTemplate()
	exec, instances := newTestExecutor(t, tmpl)
	bus := &fakeLifecycleEvents{}
	exec.WithEventBus(bus)

	instance := models.NewInstance("inst-5", tmpl, "user-1", nil)
	instances.byID[instance.InstanceID] = instance

	if err := exec.Submit(context.Background(), instance.InstanceID); err != nil {
		t.Fatalf("submit: %v", err)
	}
	waitUntil(t, 2*time.Second, func() bool {
		loaded, _ := instances.Load(context.Background(), instance.InstanceID)
		return loaded != nil && loaded.Status == models.InstanceStatusWaitingForInput
	})
	if err := exec.Resume(context.Background(), instance.InstanceID, "ask", map[string]interface{}{"answer": "yes"}); err != nil {
		t.Fatalf("resume: %v", err)
	}
	waitUntil(t, 2*time.Second, func() bool {
		loaded, _ := instances.Load(context.Background(), instance.InstanceID)
		return loaded != nil && loaded.Status == models.InstanceStatusCompleted
	})

	want := []models.EventType{
		models.EventTypeStarted,
		models.EventTypePaused,
		models.EventTypeResumed,
		models.EventTypeCompleted,
	}
	waitUntil(t, 2*time.Second, func() bool { return len(bus.types()) == len(want) })
	got := bus.types()
	for i, typ := range want {
		if got[i] != typ {
			t.Fatalf("expected lifecycle sequence %v, got %v", want, got)
		}
	}

	bus.mu.Lock()
	defer bus.mu.Unlock()
	last := bus.events[len(bus.events)-1]
	if last.WorkflowID != tmpl.DAGID || last.InstanceID != instance.InstanceID {
		t.Fatalf("completed event misaddressed: %+v", last)
	}
	if last.EventData["answer"] != "yes" {
		t.Fatalf("expected final context in completed event data, got %+v", last.EventData)
	}
}
