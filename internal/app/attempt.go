package app

import (
	"sync"
	"time"

	"quizwale-service/internal/domain"
)

// AttemptState is the lifecycle position of a quiz attempt.
type AttemptState int

const (
	AttemptNotStarted AttemptState = iota
	AttemptInProgress
	AttemptSubmitted
)

func (s AttemptState) String() string {
	switch s {
	case AttemptNotStarted:
		return "not_started"
	case AttemptInProgress:
		return "in_progress"
	case AttemptSubmitted:
		return "submitted"
	}
	return "unknown"
}

// Attempt tracks the countdown, the current question, the selected answers and
// the per-question time of one pass through a quiz.
type Attempt struct {
	mu  sync.Mutex
	now func() time.Time

	quizID        string
	duration      int
	remaining     int
	state         AttemptState
	current       int
	answers       []string
	times         []int
	questionStart time.Time
	auto          bool
}

// AttemptSnapshot is a read-only view of an attempt.
type AttemptSnapshot struct {
	QuizID    string       `json:"quizId"`
	State     AttemptState `json:"-"`
	Status    string       `json:"state"`
	Remaining int          `json:"remaining"`
	Current   int          `json:"current"`
	Selected  string       `json:"selected"`
	Answered  int          `json:"answered"`
	Total     int          `json:"total"`
	Auto      bool         `json:"autoSubmitted"`
}

func NewAttempt(quiz domain.Quiz) *Attempt {
	return NewAttemptWithClock(quiz, time.Now)
}

// NewAttemptWithClock allows deterministic timing in tests.
func NewAttemptWithClock(quiz domain.Quiz, now func() time.Time) *Attempt {
	n := len(quiz.Questions)
	return &Attempt{
		now:       now,
		quizID:    quiz.ID,
		duration:  quiz.Duration,
		remaining: quiz.Duration,
		answers:   make([]string, n),
		times:     make([]int, n),
	}
}

// Start begins the countdown. Starting twice is a no-op.
func (a *Attempt) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch a.state {
	case AttemptSubmitted:
		return domain.ErrAttemptFinished
	case AttemptInProgress:
		return nil
	}
	a.state = AttemptInProgress
	a.remaining = a.duration
	a.questionStart = a.now()
	if a.remaining <= 0 {
		a.remaining = 0
		a.finishLocked(true)
	}
	return nil
}

// Tick advances the countdown by one second and reports whether the attempt
// was auto-submitted because time ran out.
func (a *Attempt) Tick() (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.activeLocked(); err != nil {
		return false, err
	}
	a.remaining--
	if a.remaining > 0 {
		return false, nil
	}
	a.remaining = 0
	a.finishLocked(true)
	return true, nil
}

// Select records the answer for the current question.
func (a *Attempt) Select(answer string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.activeLocked(); err != nil {
		return err
	}
	if len(a.answers) > 0 {
		a.answers[a.current] = answer
	}
	return nil
}

// Next leaves the current question. On the last question it submits and
// reports true.
func (a *Attempt) Next() (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.activeLocked(); err != nil {
		return false, err
	}
	if a.current < len(a.answers)-1 {
		a.recordLocked()
		a.current++
		return false, nil
	}
	a.finishLocked(false)
	return true, nil
}

// Previous moves back one question; on the first question it only records time.
func (a *Attempt) Previous() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.activeLocked(); err != nil {
		return err
	}
	a.recordLocked()
	if a.current > 0 {
		a.current--
	}
	return nil
}

// Submit finishes the attempt manually.
func (a *Attempt) Submit() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.activeLocked(); err != nil {
		return err
	}
	a.finishLocked(false)
	return nil
}

// Result returns the collected answers once the attempt is submitted.
func (a *Attempt) Result() (domain.SubmitRequest, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != AttemptSubmitted {
		return domain.SubmitRequest{}, domain.ErrAttemptNotStarted
	}
	answers := make([]domain.AnswerInput, len(a.answers))
	for i := range a.answers {
		answers[i] = domain.AnswerInput{SelectedAnswer: a.answers[i], TimeSpent: a.times[i]}
	}
	return domain.SubmitRequest{Answers: answers, TimeSpent: a.duration - a.remaining}, nil
}

func (a *Attempt) Snapshot() AttemptSnapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	snap := AttemptSnapshot{
		QuizID:    a.quizID,
		State:     a.state,
		Status:    a.state.String(),
		Remaining: a.remaining,
		Current:   a.current,
		Total:     len(a.answers),
		Auto:      a.auto,
	}
	if len(a.answers) > 0 {
		snap.Selected = a.answers[a.current]
	}
	for _, ans := range a.answers {
		if ans != "" {
			snap.Answered++
		}
	}
	return snap
}

func (a *Attempt) activeLocked() error {
	switch a.state {
	case AttemptNotStarted:
		return domain.ErrAttemptNotStarted
	case AttemptSubmitted:
		return domain.ErrAttemptFinished
	}
	return nil
}

// recordLocked adds the whole seconds spent on the current question to its total.
func (a *Attempt) recordLocked() {
	now := a.now()
	if len(a.times) > 0 {
		a.times[a.current] += int(now.Sub(a.questionStart) / time.Second)
	}
	a.questionStart = now
}

func (a *Attempt) finishLocked(auto bool) {
	a.recordLocked()
	a.state = AttemptSubmitted
	a.auto = auto
}
