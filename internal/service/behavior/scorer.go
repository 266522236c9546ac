// Package behavior derives a heuristic suspicion score from the burstiness
// and timing regularity of recent client actions. Advisory telemetry only:
// the chat pipeline records actions but never blocks on the score.
package behavior

import (
	"sync"
	"time"
)

// Scoring rules. A burst of more than burstThreshold actions inside
// burstWindow adds burstPenalty; five or more inter-arrival intervals with
// population variance under regularityVariance (ms²) add regularityPenalty —
// near-perfectly even spacing is characteristic of scripted traffic. Every
// recorded action then decays the score by one point, clamped to [0, 100].
const (
	retention          = 60 * time.Second
	burstWindow        = 10 * time.Second
	burstThreshold     = 20
	burstPenalty       = 10
	minIntervals       = 5
	regularityVariance = 100.0
	regularityPenalty  = 20
	suspicionThreshold = 50.0
	maxScore           = 100.0
)

type action struct {
	kind string
	at   time.Time
}

// ActionLog tracks one client session's recent actions and suspicion score.
// Safe for concurrent use.
type ActionLog struct {
	mu      sync.Mutex
	actions []action
	score   float64
}

// NewActionLog constructs an empty log.
func NewActionLog() *ActionLog { return &ActionLog{} }

// RecordAction appends the action, purges entries older than the retention
// horizon, and recomputes the score.
func (l *ActionLog) RecordAction(kind string, now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.actions = append(l.actions, action{kind: kind, at: now})

	cutoff := now.Add(-retention)
	i := 0
	for i < len(l.actions) && l.actions[i].at.Before(cutoff) {
		i++
	}
	if i > 0 {
		l.actions = append(l.actions[:0], l.actions[i:]...)
	}

	l.recalculate(now)
}

// recalculate applies burst and regularity bonuses, then the one-point decay.
// Caller holds mu.
func (l *ActionLog) recalculate(now time.Time) {
	burstCutoff := now.Add(-burstWindow)
	var recent []action
	for _, a := range l.actions {
		if !a.at.Before(burstCutoff) {
			recent = append(recent, a)
		}
	}

	if len(recent) > burstThreshold {
		l.score += burstPenalty
	}

	if len(recent) >= minIntervals+1 {
		intervals := make([]float64, 0, len(recent)-1)
		for i := 1; i < len(recent); i++ {
			intervals = append(intervals, float64(recent[i].at.Sub(recent[i-1].at).Milliseconds()))
		}
		var sum float64
		for _, iv := range intervals {
			sum += iv
		}
		mean := sum / float64(len(intervals))
		var variance float64
		for _, iv := range intervals {
			d := iv - mean
			variance += d * d
		}
		variance /= float64(len(intervals))
		if variance < regularityVariance {
			l.score += regularityPenalty
		}
	}

	l.score--
	if l.score < 0 {
		l.score = 0
	}
	if l.score > maxScore {
		l.score = maxScore
	}
}

// Score returns the current suspicion score in [0, 100].
func (l *ActionLog) Score() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.score
}

// IsSuspicious reports whether the score has crossed the alert threshold.
func (l *ActionLog) IsSuspicious() bool {
	return l.Score() > suspicionThreshold
}

// Reset clears the log and score (administrative operation).
func (l *ActionLog) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.actions = l.actions[:0]
	l.score = 0
}

// Tracker owns one ActionLog per client session, created at first use.
// Safe for concurrent use.
type Tracker struct {
	mu   sync.Mutex
	logs map[string]*ActionLog
}

// NewTracker constructs an empty per-session tracker.
func NewTracker() *Tracker {
	return &Tracker{logs: make(map[string]*ActionLog)}
}

// Log returns the session's ActionLog, creating it if needed.
func (t *Tracker) Log(session string) *ActionLog {
	t.mu.Lock()
	defer t.mu.Unlock()
	l, ok := t.logs[session]
	if !ok {
		l = NewActionLog()
		t.logs[session] = l
	}
	return l
}

// RecordAction records an action for the session and reports whether the
// session now looks suspicious, along with its score.
func (t *Tracker) RecordAction(session, kind string, now time.Time) (suspicious bool, score float64) {
	l := t.Log(session)
	l.RecordAction(kind, now)
	s := l.Score()
	return s > suspicionThreshold, s
}

// ResetAll clears every session's log (administrative operation).
func (t *Tracker) ResetAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, l := range t.logs {
		l.Reset()
	}
}
