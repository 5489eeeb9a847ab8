// Package checkin tracks the burnout score and decides when the next
// check-in question may be asked.
package checkin

import (
	"math"
	"sync"
	"time"
)

const (
	// MinIntervalMinutes and MaxIntervalMinutes bound the cooldown curve.
	MinIntervalMinutes = 30
	MaxIntervalMinutes = 240

	// logisticSteepness controls how sharply the interval tightens around
	// the score midpoint.
	logisticSteepness = 4.0

	// initialQuestions is the size of the initial assessment: these are
	// asked back-to-back with no cooldown between them.
	initialQuestions = 5
)

// Question is the currently open check-in item, if any.
type Question struct {
	QID  string
	Text string
}

// Scheduler owns the check-in state: the running burnout score, the cooldown
// gate, and the currently open question. All mutation goes through it.
type Scheduler struct {
	mu sync.Mutex

	score         float64
	scoreSet      bool
	cooldownUntil time.Time
	completed     int
	open          *Question

	wake   *time.Timer
	onWake func()
}

// NewScheduler creates a Scheduler. onWake is invoked (on the timer
// goroutine) when a cooldown expires; it may be nil.
func NewScheduler(onWake func()) *Scheduler {
	return &Scheduler{onWake: onWake}
}

// SetOnWake installs the wake callback after construction, for callers with
// a dependency cycle between the scheduler and its consumer.
func (s *Scheduler) SetOnWake(onWake func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onWake = onWake
}

// Clamp constrains a score to [0,100]. Out-of-range inputs are clamped,
// never rejected.
func Clamp(score float64) float64 {
	return math.Max(0, math.Min(100, score))
}

// NextInterval maps a burnout score to the minutes until the next check-in.
// Higher score means shorter interval; the curve is logistic, centered at 50,
// rescaled so score 0 yields exactly MaxIntervalMinutes and score 100 exactly
// MinIntervalMinutes.
func NextInterval(score float64) float64 {
	s := Clamp(score)
	ratio := logistic(s)
	// Normalize over the reachable ratio range so the endpoints are exact.
	norm := (ratio - logistic(0)) / (logistic(100) - logistic(0))
	return MinIntervalMinutes + (MaxIntervalMinutes-MinIntervalMinutes)*(1.0-norm)
}

func logistic(score float64) float64 {
	return 1.0 / (1.0 + math.Exp(-logisticSteepness*(score/100.0-0.5)))
}

// RestoreScore seeds the running score, e.g. from persisted history.
// It does not count as an answer and sets no cooldown.
func (s *Scheduler) RestoreScore(score float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.score = Clamp(score)
	s.scoreSet = true
}

// RestoreCompleted seeds the answered-question count from persisted history
// so a restart does not re-enter the no-cooldown initial assessment for a
// user who already finished it. Negative counts are ignored.
func (s *Scheduler) RestoreCompleted(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n > s.completed {
		s.completed = n
	}
}

// Score returns the current burnout score; ok is false until a score exists.
func (s *Scheduler) Score() (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.score, s.scoreSet
}

// CompletedCount returns how many questions have been answered.
func (s *Scheduler) CompletedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completed
}

// Available reports whether a new question may be asked at the given time.
// During the initial assessment there is no gate; afterwards availability is
// exactly now >= cooldownUntil.
func (s *Scheduler) Available(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.completed < initialQuestions {
		return true
	}
	return !now.Before(s.cooldownUntil)
}

// CooldownRemaining returns how long until the next question is available.
// Zero means available now.
func (s *Scheduler) CooldownRemaining(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.completed < initialQuestions || !now.Before(s.cooldownUntil) {
		return 0
	}
	return s.cooldownUntil.Sub(now)
}

// RecordAnswer updates the score with the latest backend value (0..100) and
// applies the cooldown rule: the first initialQuestions answers run
// back-to-back; from the initialQuestions-th answer on, every answer starts
// a cooldown of NextInterval(score) minutes. It returns the applied cooldown
// (zero while still inside the initial assessment).
func (s *Scheduler) RecordAnswer(score float64, now time.Time) time.Duration {
	s.mu.Lock()
	s.score = Clamp(score)
	s.scoreSet = true
	s.completed++
	s.open = nil

	var cooldown time.Duration
	if s.completed >= initialQuestions {
		minutes := NextInterval(s.score)
		cooldown = time.Duration(minutes * float64(time.Minute))
		s.cooldownUntil = now.Add(cooldown)
	}
	s.mu.Unlock()

	if cooldown > 0 {
		s.scheduleWake(cooldown)
	}
	return cooldown
}

// SetOpenQuestion marks a question as awaiting an answer.
func (s *Scheduler) SetOpenQuestion(qid, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = &Question{QID: qid, Text: text}
}

// OpenQuestion returns the question awaiting an answer, if any.
func (s *Scheduler) OpenQuestion() (Question, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.open == nil {
		return Question{}, false
	}
	return *s.open, true
}

// ClearOpenQuestion drops the pending question without recording an answer.
func (s *Scheduler) ClearOpenQuestion() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = nil
}

// scheduleWake arms the single cooldown timer, replacing any previous one.
func (s *Scheduler) scheduleWake(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.wake != nil {
		s.wake.Stop()
	}
	if s.onWake == nil {
		return
	}
	s.wake = time.AfterFunc(d, s.fireWake)
}

func (s *Scheduler) fireWake() {
	s.mu.Lock()
	cb := s.onWake
	s.mu.Unlock()
	if cb != nil {
		cb()
	}
}

// Stop cancels the pending wake task. Idempotent; after Stop the timer can
// no longer fire into a torn-down bot.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.wake != nil {
		s.wake.Stop()
		s.wake = nil
	}
	s.onWake = nil
}
