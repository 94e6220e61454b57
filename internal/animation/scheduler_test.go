package animation

import (
	"testing"
	"time"
)

func TestSchedulerRunsTasksInDueOrder(t *testing.T) {
	t.Parallel()

	s := NewScheduler()
	var order []string
	s.Schedule("b", 20*time.Millisecond, func() { order = append(order, "b") })
	s.Schedule("a", 10*time.Millisecond, func() { order = append(order, "a") })
	s.Schedule("c", 20*time.Millisecond, func() { order = append(order, "c") })

	s.Advance(5 * time.Millisecond)
	if len(order) != 0 {
		t.Fatalf("Expected nothing to run before due, got %v", order)
	}

	s.Advance(15 * time.Millisecond)
	want := []string{"a", "b", "c"}
	if len(order) != len(want) {
		t.Fatalf("Expected %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("Expected %v, got %v", want, order)
			break
		}
	}
	if s.Len() != 0 {
		t.Errorf("Expected no pending tasks, got %d", s.Len())
	}
}

func TestSchedulerReplacesTaskWithSameKey(t *testing.T) {
	t.Parallel()

	s := NewScheduler()
	fired := ""
	first := s.Schedule("hide", 10*time.Millisecond, func() { fired = "first" })
	s.Schedule("hide", 30*time.Millisecond, func() { fired = "second" })

	if first.Pending() {
		t.Error("Expected replaced task not to be pending")
	}
	if first.Cancel() {
		t.Error("Expected Cancel on replaced task to report false")
	}

	s.Advance(20 * time.Millisecond)
	if fired != "" {
		t.Fatalf("Expected replaced task not to fire, got %q", fired)
	}
	s.Advance(10 * time.Millisecond)
	if fired != "second" {
		t.Errorf("Expected second task to fire, got %q", fired)
	}
}

func TestSchedulerCancelPrefix(t *testing.T) {
	t.Parallel()

	s := NewScheduler()
	ran := 0
	for _, key := range []string{"burst/0", "burst/1", "caption"} {
		s.Schedule(key, time.Millisecond, func() { ran++ })
	}
	s.CancelPrefix("burst/")
	s.Advance(time.Millisecond)

	if ran != 1 {
		t.Errorf("Expected only the caption task to run, got %d runs", ran)
	}
}

func TestSchedulerRunsChainedDueTasks(t *testing.T) {
	t.Parallel()

	s := NewScheduler()
	ran := 0
	s.Schedule("outer", 10*time.Millisecond, func() {
		ran++
		s.Schedule("inner", 0, func() { ran++ })
	})

	s.Advance(10 * time.Millisecond)
	if ran != 2 {
		t.Errorf("Expected chained zero-delay task to run in the same advance, got %d", ran)
	}
}
