package assignment

import "testing"

func TestRotationTable_CyclesThroughIndices(t *testing.T) {
	r := newRotationTable()

	seen := []int{
		r.next("k", 3),
		r.next("k", 3),
		r.next("k", 3),
		r.next("k", 3),
	}

	want := []int{0, 1, 2, 0}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("next()[%d] = %d, want %d", i, seen[i], want[i])
		}
	}
}

func TestRotationTable_IndependentKeys(t *testing.T) {
	r := newRotationTable()

	if got := r.next("a", 2); got != 0 {
		t.Fatalf("expected first call for key a to return 0, got %d", got)
	}
	if got := r.next("b", 2); got != 0 {
		t.Fatalf("expected independent cursor for key b to return 0, got %d", got)
	}
	if got := r.next("a", 2); got != 1 {
		t.Fatalf("expected second call for key a to return 1, got %d", got)
	}
}
