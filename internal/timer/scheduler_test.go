package timer

import (
	"sync"
	"testing"
	"time"
)

func TestSchedule_FiresAtDueTime(t *testing.T) {
	s := NewScheduler()

	fired := 0
	s.Schedule(func() time.Duration { fired++; return Stop }, 500*time.Millisecond)

	s.Step(499 * time.Millisecond)
	if fired != 0 {
		t.Fatalf("fired %d times before due", fired)
	}

	s.Step(500 * time.Millisecond)
	if fired != 1 {
		t.Fatalf("expected 1 firing, got %d", fired)
	}
	if s.Len() != 0 {
		t.Fatalf("expected empty table after one-shot, got %d pending", s.Len())
	}

	// Already fired; later steps must not fire again.
	s.Step(10 * time.Second)
	if fired != 1 {
		t.Fatalf("one-shot fired again, total %d", fired)
	}
}

func TestStep_DueOrder_TiesByID(t *testing.T) {
	s := NewScheduler()

	var order []string
	record := func(name string) Callback {
		return func() time.Duration {
			order = append(order, name)
			return Stop
		}
	}

	// Scheduled out of order on purpose.
	s.Schedule(record("late"), 300*time.Millisecond)
	s.Schedule(record("tieA"), 100*time.Millisecond) // lower ID
	s.Schedule(record("tieB"), 100*time.Millisecond) // same due, higher ID
	s.Schedule(record("early"), 50*time.Millisecond)

	s.Step(time.Second)

	want := []string{"early", "tieA", "tieB", "late"}
	if len(order) != len(want) {
		t.Fatalf("expected %d firings, got %v", len(want), order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("firing order %v, want %v", order, want)
		}
	}
}

func TestCancel_BeforeDue(t *testing.T) {
	s := NewScheduler()

	fired := false
	id := s.Schedule(func() time.Duration { fired = true; return Stop }, time.Second)

	if !s.Cancel(id) {
		t.Fatal("Cancel on pending event should return true")
	}
	if s.Cancel(id) {
		t.Fatal("second Cancel should return false")
	}

	s.Step(time.Minute)
	if fired {
		t.Fatal("cancelled event must never fire")
	}
}

func TestCancel_UnknownID(t *testing.T) {
	s := NewScheduler()
	if s.Cancel(12345) {
		t.Fatal("Cancel on unknown ID should return false, not error")
	}
}

func TestRepeating_ReschedulesRelativeToFiringTime(t *testing.T) {
	s := NewScheduler()

	var fireTimes []time.Duration
	s.Schedule(func() time.Duration {
		fireTimes = append(fireTimes, s.Now())
		return 300 * time.Millisecond
	}, 100*time.Millisecond)

	// Step lands late: event due at 100ms fires at 250ms, so the next firing
	// is due at 250+300 = 550ms.
	s.Step(250 * time.Millisecond)
	s.Step(540 * time.Millisecond)
	if len(fireTimes) != 1 {
		t.Fatalf("expected 1 firing by 540ms, got %d", len(fireTimes))
	}
	s.Step(550 * time.Millisecond)
	if len(fireTimes) != 2 {
		t.Fatalf("expected 2 firings by 550ms, got %d", len(fireTimes))
	}
}

func TestRepeating_StopEndsEvent(t *testing.T) {
	s := NewScheduler()

	fired := 0
	s.Schedule(func() time.Duration {
		fired++
		if fired == 3 {
			return Stop
		}
		return 100 * time.Millisecond
	}, 100*time.Millisecond)

	for i := 1; i <= 10; i++ {
		s.Step(time.Duration(i) * 100 * time.Millisecond)
	}

	if fired != 3 {
		t.Fatalf("expected exactly 3 firings, got %d", fired)
	}
	if s.Len() != 0 {
		t.Fatalf("stopped event still pending, table size %d", s.Len())
	}
}

func TestRepeating_CancelBetweenFirings(t *testing.T) {
	s := NewScheduler()

	fired := 0
	id := s.Schedule(func() time.Duration {
		fired++
		return 100 * time.Millisecond
	}, 100*time.Millisecond)

	s.Step(100 * time.Millisecond)
	s.Step(200 * time.Millisecond)
	if fired != 2 {
		t.Fatalf("expected 2 firings, got %d", fired)
	}

	// The ID stays valid across reschedules.
	if !s.Cancel(id) {
		t.Fatal("Cancel between firings should return true")
	}
	s.Step(time.Minute)
	if fired != 2 {
		t.Fatalf("event fired after cancel, total %d", fired)
	}
}

func TestStep_EventScheduledDuringStepWaitsForNextStep(t *testing.T) {
	s := NewScheduler()

	childFired := false
	s.Schedule(func() time.Duration {
		// Already due the moment it is scheduled, but must not fire within
		// the same Step.
		s.Schedule(func() time.Duration { childFired = true; return Stop }, 0)
		return Stop
	}, 0)

	s.Step(time.Second)
	if childFired {
		t.Fatal("event scheduled during Step fired in the same Step")
	}

	s.Step(time.Second + time.Millisecond)
	if !childFired {
		t.Fatal("event scheduled during Step never fired")
	}
}

func TestStep_PanickingCallbackIsDroppedOthersFire(t *testing.T) {
	s := NewScheduler()

	id := s.Schedule(func() time.Duration {
		panic("boom")
	}, 100*time.Millisecond)

	otherFired := false
	s.Schedule(func() time.Duration { otherFired = true; return Stop }, 100*time.Millisecond)

	s.Step(time.Second)

	if !otherFired {
		t.Fatal("unrelated event did not fire after a panicking callback")
	}
	if s.Len() != 0 {
		t.Fatal("panicking event must be treated as stopped")
	}
	if s.Cancel(id) {
		t.Fatal("panicking event should already be gone")
	}
}

func TestEventIDs_MonotonicNeverReused(t *testing.T) {
	s := NewScheduler()

	a := s.Schedule(func() time.Duration { return Stop }, time.Millisecond)
	b := s.Schedule(func() time.Duration { return Stop }, time.Millisecond)
	if b <= a {
		t.Fatalf("IDs not monotonic: %d then %d", a, b)
	}

	s.Step(time.Second)
	c := s.Schedule(func() time.Duration { return Stop }, time.Millisecond)
	if c <= b {
		t.Fatalf("ID reused after firing: %d then %d", b, c)
	}
}

func TestScheduler_ClockNeverMovesBackward(t *testing.T) {
	s := NewScheduler()
	s.Step(5 * time.Second)
	s.Step(3 * time.Second)
	if s.Now() != 5*time.Second {
		t.Fatalf("clock moved backward: %v", s.Now())
	}
}

func TestScheduler_ConcurrentSchedule(t *testing.T) {
	s := NewScheduler()

	const goroutines = 32
	var fired sync.Map
	var wg sync.WaitGroup
	wg.Add(goroutines)

	for i := range goroutines {
		go func(n int) {
			defer wg.Done()
			s.Schedule(func() time.Duration {
				fired.Store(n, true)
				return Stop
			}, time.Duration(n)*time.Millisecond)
		}(i)
	}
	wg.Wait()

	if s.Len() != goroutines {
		t.Fatalf("expected %d pending events, got %d", goroutines, s.Len())
	}

	s.Step(time.Second)

	count := 0
	fired.Range(func(_, _ any) bool { count++; return true })
	if count != goroutines {
		t.Fatalf("expected %d firings, got %d", goroutines, count)
	}
}
