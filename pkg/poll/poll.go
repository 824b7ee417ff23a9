// Package poll implements the bounded "check, act, wait, check again" loop
// that every UI wait in msgrelay is built on.
package poll

import (
	"time"

	"github.com/devicelab-dev/msgrelay/pkg/logger"
	"github.com/devicelab-dev/msgrelay/pkg/metrics"
)

// Result is the state of one finished loop.
type Result struct {
	Attempts  int  // actions performed
	Budget    int  // maximum actions allowed
	Succeeded bool // condition was met
}

// Loop is a retry policy. The zero value checks the condition once and
// never acts.
type Loop struct {
	MaxAttempts int
	Delay       time.Duration

	// Sleep replaces time.Sleep, for tests.
	Sleep func(time.Duration)
}

// New returns a Loop with the given budget and delay.
func New(maxAttempts int, delay time.Duration) Loop {
	return Loop{MaxAttempts: maxAttempts, Delay: delay}
}

// Until evaluates cond, running action between evaluations until cond
// holds or MaxAttempts actions have been performed. action never runs
// after cond has returned true. A nil action only waits.
func (l Loop) Until(cond func() bool, action func()) Result {
	res := Result{Budget: max(l.MaxAttempts, 0)}
	for {
		if cond() {
			res.Succeeded = true
			break
		}
		if res.Attempts >= res.Budget {
			break
		}
		if action != nil {
			action()
		}
		res.Attempts++
		metrics.PollAttempts.Inc()
		l.sleep()
	}

	metrics.PollLoops.WithLabelValues(metrics.Outcome(res.Succeeded)).Inc()
	if !res.Succeeded {
		logger.Debug("poll: condition not met after %d attempts", res.Attempts)
	}
	return res
}

func (l Loop) sleep() {
	if l.Delay <= 0 {
		return
	}
	if l.Sleep != nil {
		l.Sleep(l.Delay)
		return
	}
	time.Sleep(l.Delay)
}

// RepeatUntil runs a Loop with the given budget and delay.
func RepeatUntil(cond func() bool, action func(), maxAttempts int, delay time.Duration) Result {
	return New(maxAttempts, delay).Until(cond, action)
}

// Probe is Until for conditions that produce a value, such as the
// coordinates of an element that may need scrolling into view. It returns
// the value from the successful evaluation, or the zero value.
func Probe[T any](l Loop, probe func() (T, bool), action func()) (T, Result) {
	var found T
	res := l.Until(func() bool {
		v, ok := probe()
		if ok {
			found = v
		}
		return ok
	}, action)
	return found, res
}
