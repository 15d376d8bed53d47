package watch

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestDebouncer_CoalescesRapidTriggers(t *testing.T) {
	var (
		count atomic.Int32
		last  atomic.Value
	)
	d := NewDebouncer(50*time.Millisecond, func(ev ChangeEvent) {
		count.Add(1)
		last.Store(ev.ChangeType)
	})
	defer d.Stop()

	d.Trigger(ChangeEvent{ChangeType: "create"})
	for i := 0; i < 5; i++ {
		time.Sleep(10 * time.Millisecond)
		d.Trigger(ChangeEvent{ChangeType: "write"})
	}

	time.Sleep(150 * time.Millisecond)

	if got := count.Load(); got != 1 {
		t.Errorf("expected 1 callback invocation, got %d", got)
	}
	if got, _ := last.Load().(string); got != "write" {
		t.Errorf("callback got %q, want the latest event", got)
	}
}

func TestDebouncer_Stop(t *testing.T) {
	var count atomic.Int32
	d := NewDebouncer(50*time.Millisecond, func(ChangeEvent) {
		count.Add(1)
	})

	d.Trigger(ChangeEvent{})
	d.Stop()

	time.Sleep(100 * time.Millisecond)

	if got := count.Load(); got != 0 {
		t.Errorf("expected 0 callback invocations after stop, got %d", got)
	}
}
