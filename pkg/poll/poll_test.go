package poll

import (
	"testing"
	"time"
)

// trueAfter returns a condition that is false for the first k evaluations.
func trueAfter(k int) (func() bool, *int) {
	evals := 0
	return func() bool {
		evals++
		return evals > k
	}, &evals
}

func TestRepeatUntil_ActionCount(t *testing.T) {
	tests := []struct {
		name        string
		k           int
		maxAttempts int
		wantActions int
		wantOK      bool
	}{
		{"immediately true", 0, 3, 0, true},
		{"true on second check", 1, 3, 1, true},
		{"true on last check", 3, 3, 3, true},
		{"budget exhausted", 5, 3, 3, false},
		{"zero budget", 2, 0, 0, false},
		{"negative budget", 2, -1, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cond, _ := trueAfter(tt.k)
			actions := 0
			res := RepeatUntil(cond, func() { actions++ }, tt.maxAttempts, 0)

			if actions != tt.wantActions {
				t.Errorf("actions = %d, want %d", actions, tt.wantActions)
			}
			if res.Attempts != actions {
				t.Errorf("Attempts = %d, actions = %d", res.Attempts, actions)
			}
			if res.Succeeded != tt.wantOK {
				t.Errorf("Succeeded = %v, want %v", res.Succeeded, tt.wantOK)
			}
		})
	}
}

func TestRepeatUntil_NeverTrue(t *testing.T) {
	actions := 0
	res := RepeatUntil(func() bool { return false }, func() { actions++ }, 3, 0)

	if actions != 3 {
		t.Errorf("expected 3 actions, got %d", actions)
	}
	if res.Succeeded {
		t.Error("expected failure")
	}
	if res.Budget != 3 {
		t.Errorf("Budget = %d, want 3", res.Budget)
	}
}

func TestRepeatUntil_NoActionAfterSuccess(t *testing.T) {
	succeeded := false
	calls := 0
	cond := func() bool {
		calls++
		if calls == 2 {
			succeeded = true
		}
		return succeeded
	}
	RepeatUntil(cond, func() {
		if succeeded {
			t.Error("action ran after condition succeeded")
		}
	}, 10, 0)

	if calls != 2 {
		t.Errorf("condition evaluated %d times, want 2", calls)
	}
}

func TestLoop_SleepsBetweenAttempts(t *testing.T) {
	var slept []time.Duration
	l := Loop{MaxAttempts: 2, Delay: time.Second, Sleep: func(d time.Duration) { slept = append(slept, d) }}

	l.Until(func() bool { return false }, nil)
	if len(slept) != 2 {
		t.Fatalf("expected 2 sleeps, got %d", len(slept))
	}
	if slept[0] != time.Second {
		t.Errorf("slept %v, want 1s", slept[0])
	}
}

func TestLoop_NoSleepWhenImmediate(t *testing.T) {
	l := Loop{MaxAttempts: 5, Delay: time.Hour, Sleep: func(time.Duration) {
		t.Error("unexpected sleep")
	}}
	res := l.Until(func() bool { return true }, nil)
	if !res.Succeeded || res.Attempts != 0 {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestProbe(t *testing.T) {
	swipes := 0
	value, res := Probe(New(5, 0), func() (int, bool) {
		if swipes >= 2 {
			return 42, true
		}
		return 0, false
	}, func() { swipes++ })

	if !res.Succeeded || value != 42 {
		t.Errorf("got %d/%+v, want 42 and success", value, res)
	}
	if swipes != 2 {
		t.Errorf("swipes = %d, want 2", swipes)
	}
}

func TestProbe_NotFound(t *testing.T) {
	value, res := Probe(New(2, 0), func() (string, bool) { return "partial", false }, nil)
	if res.Succeeded {
		t.Error("expected failure")
	}
	if value != "" {
		t.Errorf("expected zero value, got %q", value)
	}
}
