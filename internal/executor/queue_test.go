package executor

import "testing"

func TestAdmissionQueue_HigherPriorityPopsFirst(t *testing.T) {
	q := newAdmissionQueue()
	q.push("low", "dag-1", 1)
	q.push("high", "dag-1", 9)
	q.push("medium", "dag-1", 5)

	first := q.pop()
	if first.instanceID != "high" {
		t.Fatalf("expected high priority item first, got %s", first.instanceID)
	}
	second := q.pop()
	if second.instanceID != "medium" {
		t.Fatalf("expected medium priority item second, got %s", second.instanceID)
	}
	third := q.pop()
	if third.instanceID != "low" {
		t.Fatalf("expected low priority item last, got %s", third.instanceID)
	}
}

func TestAdmissionQueue_SamePriorityIsFIFO(t *testing.T) {
	q := newAdmissionQueue()
	q.push("first", "dag-1", 5)
	q.push("second", "dag-1", 5)
	q.push("third", "dag-1", 5)

	if got := q.pop().instanceID; got != "first" {
		t.Fatalf("expected FIFO order, got %s first", got)
	}
	if got := q.pop().instanceID; got != "second" {
		t.Fatalf("expected FIFO order, got %s second", got)
	}
}

func TestAdmissionQueue_PopEmptyReturnsNil(t *testing.T) {
	q := newAdmissionQueue()
	if q.pop() != nil {
		t.Fatalf("expected nil from an empty queue")
	}
}

func TestAdmissionQueue_Len(t *testing.T) {
	q := newAdmissionQueue()
	q.push("a", "dag-1", 1)
	q.push("b", "dag-1", 1)
	if q.len() != 2 {
		t.Fatalf("expected len 2, got %d", q.len())
	}
}
