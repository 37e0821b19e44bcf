package freqswitch

import (
	"testing"
	"time"
)

var testThresholds = Thresholds{
	Lower:   10 * time.Millisecond,
	Upper:   50 * time.Millisecond,
	Stopped: 500 * time.Millisecond,
}

func assertState(t testing.TB, got, want State) {
	t.Helper()

	if got != want {
		t.Errorf("got state %v want %v", got, want)
	}
}

func TestNewValidatesThresholds(t *testing.T) {
	cases := []struct {
		name string
		th   Thresholds
	}{
		{"zero lower", Thresholds{0, 50 * time.Millisecond, 500 * time.Millisecond}},
		{"lower above upper", Thresholds{60 * time.Millisecond, 50 * time.Millisecond, 500 * time.Millisecond}},
		{"upper above stopped", Thresholds{10 * time.Millisecond, 600 * time.Millisecond, 500 * time.Millisecond}},
		{"equal lower upper", Thresholds{50 * time.Millisecond, 50 * time.Millisecond, 500 * time.Millisecond}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := New(c.th)
			if err == nil {
				t.Error("got nil error for invalid thresholds")
			}
		})
	}

	_, err := New(testThresholds)
	if err != nil {
		t.Errorf("got error for valid thresholds: %v", err)
	}
}

// The smoothing filter is accumulator arithmetic, weight 1/4 on the
// newest sample: accumulator += delta - smoothed; smoothed = acc >> 2.
func TestSampleSmoothing(t *testing.T) {
	s, _ := New(testThresholds)

	start := time.Unix(1000, 0)

	// first edge only arms the timestamp
	s.Sample(start)
	if s.Period() != 0 {
		t.Errorf("period after arming edge: got %v want 0", s.Period())
	}

	// second edge, delta 100ms: acc = 100ms, smoothed = 25ms
	s.Sample(start.Add(100 * time.Millisecond))
	if s.Period() != 25*time.Millisecond {
		t.Errorf("got period %v want 25ms", s.Period())
	}

	// third edge, delta 100ms: acc = 100 + 100 - 25 = 175ms, smoothed = 43.75ms
	s.Sample(start.Add(200 * time.Millisecond))
	if s.Period() != 175*time.Millisecond/4 {
		t.Errorf("got period %v want %v", s.Period(), 175*time.Millisecond/4)
	}
}

func TestSampleConvergesToSteadyPeriod(t *testing.T) {
	s, _ := New(testThresholds)

	now := time.Unix(1000, 0)
	for i := 0; i < 100; i++ {
		s.Sample(now)
		now = now.Add(40 * time.Millisecond)
	}

	got := s.Period()
	want := 40 * time.Millisecond
	// converges from below, never overshoots a steady input
	if got < want-time.Millisecond || got > want {
		t.Errorf("got period %v, want within 1ms below %v", got, want)
	}
}

func feedPeriod(s *Switch, period time.Duration) {
	s.smoothed.Store(int64(period))
	s.accumulator.Store(int64(period) << smoothingShift)
}

func TestHysteresisTransitions(t *testing.T) {
	s, _ := New(testThresholds)
	now := time.Unix(1000, 0)

	// no edges seen yet
	assertState(t, s.Tick(now), Stopped)

	s.lastEdge.Store(now.UnixNano())

	// dead band period from Stopped resolves by the upper threshold:
	// 30ms <= 50ms counts as fast
	feedPeriod(s, 30*time.Millisecond)
	assertState(t, s.Tick(now), High)

	// inside the dead band nothing moves
	feedPeriod(s, 45*time.Millisecond)
	assertState(t, s.Tick(now), High)
	feedPeriod(s, 12*time.Millisecond)
	assertState(t, s.Tick(now), High)

	// above upper: High -> Low
	feedPeriod(s, 60*time.Millisecond)
	assertState(t, s.Tick(now), Low)

	// dead band again, Low holds
	feedPeriod(s, 30*time.Millisecond)
	assertState(t, s.Tick(now), Low)
	feedPeriod(s, 49*time.Millisecond)
	assertState(t, s.Tick(now), Low)

	// below lower: Low -> High
	feedPeriod(s, 5*time.Millisecond)
	assertState(t, s.Tick(now), High)

	// measured period beyond the stopped threshold: High -> Stopped
	feedPeriod(s, 600*time.Millisecond)
	assertState(t, s.Tick(now), Stopped)
}

func TestStoppedToLowOnSlowSignal(t *testing.T) {
	s, _ := New(testThresholds)
	now := time.Unix(1000, 0)

	s.lastEdge.Store(now.UnixNano())
	feedPeriod(s, 100*time.Millisecond) // slow but alive
	assertState(t, s.Tick(now), Low)
}

// Edge silence longer than the stopped threshold forces Stopped no
// matter what the FSM would otherwise do.
func TestSilenceForcesStopped(t *testing.T) {
	s, _ := New(testThresholds)
	now := time.Unix(1000, 0)

	s.lastEdge.Store(now.UnixNano())
	feedPeriod(s, 20*time.Millisecond)
	assertState(t, s.Tick(now), High)

	// still within the silence window
	assertState(t, s.Tick(now.Add(400*time.Millisecond)), High)

	// signal gone
	assertState(t, s.Tick(now.Add(600*time.Millisecond)), Stopped)

	// edges resume, state recovers through the FSM
	s.lastEdge.Store(now.Add(700 * time.Millisecond).UnixNano())
	assertState(t, s.Tick(now.Add(700*time.Millisecond)), High)
}

func TestStateString(t *testing.T) {
	cases := map[State]string{
		Stopped: "stopped",
		Low:     "low",
		High:    "high",
	}

	for state, want := range cases {
		if got := state.String(); got != want {
			t.Errorf("State(%d).String(): got %q want %q", state, got, want)
		}
	}
}
