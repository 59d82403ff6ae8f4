package schedule

import (
	"testing"
	"time"
)

func TestManualScheduler_RunsDueTasksInOrder(t *testing.T) {
	s := NewManualScheduler()
	var order []string

	s.AfterFunc(30*time.Millisecond, func() { order = append(order, "c") })
	s.AfterFunc(10*time.Millisecond, func() { order = append(order, "a") })
	s.AfterFunc(20*time.Millisecond, func() { order = append(order, "b") })

	s.Advance(25 * time.Millisecond)
	if len(order) != 2 || order[0] != "a" || order[1] != "b" {
		t.Fatalf("order = %v, expected [a b]", order)
	}

	s.Advance(5 * time.Millisecond)
	if len(order) != 3 || order[2] != "c" {
		t.Fatalf("order = %v, expected [a b c]", order)
	}
}

func TestManualScheduler_StopCancels(t *testing.T) {
	s := NewManualScheduler()
	ran := false
	task := s.AfterFunc(time.Second, func() { ran = true })

	if !task.Stop() {
		t.Error("Stop() = false on a pending task, expected true")
	}
	if task.Stop() {
		t.Error("Stop() = true on a stopped task, expected false")
	}

	s.Advance(2 * time.Second)
	if ran {
		t.Error("stopped task ran")
	}
	if s.Pending() != 0 {
		t.Errorf("Pending() = %d, expected 0", s.Pending())
	}
}

func TestManualScheduler_CallbackCanReschedule(t *testing.T) {
	s := NewManualScheduler()
	ticks := 0
	var tick func()
	tick = func() {
		ticks++
		s.AfterFunc(10*time.Millisecond, tick)
	}
	s.AfterFunc(10*time.Millisecond, tick)

	s.Advance(35 * time.Millisecond)
	if ticks != 3 {
		t.Errorf("ticks = %d, expected 3", ticks)
	}
	if s.Pending() != 1 {
		t.Errorf("Pending() = %d, expected 1", s.Pending())
	}
}
