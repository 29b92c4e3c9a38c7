package attempt

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/somaedu/soma-backend/internal/model"
)

// Phase enumerates attempt lifecycle states. SUBMITTING is the explicit
// single-shot guard: while an attempt is in it, every other submit trigger
// is rejected, so the sink is invoked at most once per attempt.
type Phase string

const (
	PhaseEntry      Phase = "ENTRY"
	PhaseInProgress Phase = "IN_PROGRESS"
	PhaseReviewing  Phase = "REVIEWING"
	PhaseSubmitting Phase = "SUBMITTING"
	PhaseSubmitted  Phase = "SUBMITTED"
	PhaseBlocked    Phase = "BLOCKED"
	PhaseClosed     Phase = "CLOSED"
)

// terminal reports whether no further operation is valid in the phase.
func (p Phase) terminal() bool {
	return p == PhaseSubmitted || p == PhaseBlocked || p == PhaseClosed
}

// QuizMeta is the read-only quiz metadata an attempt runs against.
type QuizMeta struct {
	QuizID           uuid.UUID
	Title            string
	TimeLimitMinutes int
	DueAt            time.Time
	PINRequired      bool
}

// Identity is the information a student supplies at quiz entry.
type Identity struct {
	FirstName string
	LastName  string
	PIN       string
}

// Deps bundles the controller's collaborators.
type Deps struct {
	Store     Store
	Source    QuestionSource
	Sink      SubmissionSink
	Registrar IdentityRegistrar
	Checker   PriorSubmissionChecker
	Log       zerolog.Logger
	// Now overrides the wall clock; nil means time.Now. Tests use it to
	// drive the timer deterministically.
	Now func() time.Time
}

// QuestionStatus is one cell of the review summary grid.
type QuestionStatus struct {
	QuestionID uuid.UUID `json:"question_id"`
	OrderNum   int       `json:"order_num"`
	Answered   bool      `json:"answered"`
}

// Snapshot is a point-in-time view of the attempt for rendering.
type Snapshot struct {
	Phase            Phase             `json:"phase"`
	StudentID        int               `json:"student_id,omitempty"`
	CurrentIndex     int               `json:"current_index"`
	QuestionCount    int               `json:"question_count"`
	Answers          map[string]string `json:"answers"`
	RemainingSeconds int               `json:"remaining_seconds"`
	Summary          []QuestionStatus  `json:"summary"`
}

// Controller drives a single quiz attempt from entry to a terminal state,
// enforcing one-attempt semantics and time-boxing. Methods are safe for
// concurrent use; the periodic timer and HTTP/WebSocket handlers share one
// instance.
type Controller struct {
	mu sync.Mutex

	quiz      QuizMeta
	store     Store
	source    QuestionSource
	sink      SubmissionSink
	registrar IdentityRegistrar
	checker   PriorSubmissionChecker
	log       zerolog.Logger
	now       func() time.Time

	phase        Phase
	studentID    int
	questions    []model.QuestionForStudent
	startTime    time.Time
	answers      map[string]string
	currentIndex int

	// expiryFired latches on the first zero reading of the countdown so
	// repeated zero ticks never re-trigger the auto-submit.
	expiryFired bool
	terminalAt  time.Time
}

// NewController creates a controller in the ENTRY phase.
func NewController(quiz QuizMeta, deps Deps) *Controller {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Controller{
		quiz:      quiz,
		store:     deps.Store,
		source:    deps.Source,
		sink:      deps.Sink,
		registrar: deps.Registrar,
		checker:   deps.Checker,
		log:       deps.Log.With().Str("quiz_id", quiz.QuizID.String()).Logger(),
		now:       now,
		phase:     PhaseEntry,
		answers:   map[string]string{},
	}
}

// Quiz returns the quiz metadata the attempt runs against.
func (c *Controller) Quiz() QuizMeta {
	return c.quiz
}

// BeginEntry validates that the attempt may proceed past the entry screen.
// A pre-existing completed marker moves the attempt straight to BLOCKED; a
// passed due date moves it to CLOSED. Both are terminal and incur no
// collaborator calls.
func (c *Controller) BeginEntry() (Phase, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhaseEntry {
		return c.phase, nil
	}

	completed, err := c.store.Completed(c.quiz.QuizID)
	if err != nil {
		// Store unavailability must not lock students out; the sink
		// re-checks duplicates at submission time.
		c.log.Warn().Err(err).Msg("completed marker check failed, proceeding")
	} else if completed {
		c.toTerminal(PhaseBlocked)
		return PhaseBlocked, ErrAttemptBlocked
	}

	if c.now().After(c.quiz.DueAt) {
		c.toTerminal(PhaseClosed)
		return PhaseClosed, ErrQuizClosed
	}

	return PhaseEntry, nil
}

// CheckPriorSubmission asks the remote checker whether the student already
// submitted. A local completed marker short-circuits without a remote call.
// Remote failure is swallowed (fail-open): the attempt proceeds and the sink
// remains the enforcement point.
func (c *Controller) CheckPriorSubmission(ctx context.Context, firstName, lastName string) (bool, error) {
	c.mu.Lock()
	if c.phase != PhaseEntry {
		phase := c.phase
		c.mu.Unlock()
		if phase == PhaseBlocked {
			return true, ErrAttemptBlocked
		}
		return false, ErrInvalidPhase
	}

	completed, err := c.store.Completed(c.quiz.QuizID)
	if err == nil && completed {
		c.toTerminal(PhaseBlocked)
		c.mu.Unlock()
		return true, ErrAttemptBlocked
	}
	c.mu.Unlock()

	submitted, err := c.checker.HasSubmitted(ctx, c.quiz.QuizID, firstName, lastName)
	if err != nil {
		c.log.Warn().Err(err).Msg("prior submission check failed, allowing attempt")
		return false, nil
	}

	if submitted {
		c.mu.Lock()
		if err := c.store.SetCompleted(c.quiz.QuizID); err != nil {
			c.log.Warn().Err(err).Msg("failed to persist completed marker")
		}
		c.toTerminal(PhaseBlocked)
		c.mu.Unlock()
		return true, ErrAttemptBlocked
	}

	return false, nil
}

// StartAttempt registers the student identity, loads the question list, and
// transitions ENTRY → IN_PROGRESS. The start time is read from the store if a
// prior value exists for this quiz+student pair, so a reload mid-exam never
// resets the clock.
func (c *Controller) StartAttempt(ctx context.Context, identity Identity) error {
	c.mu.Lock()
	if c.phase != PhaseEntry {
		defer c.mu.Unlock()
		if c.phase == PhaseInProgress || c.phase == PhaseReviewing {
			return nil // already started; reload hits this path
		}
		return ErrInvalidPhase
	}
	c.mu.Unlock()

	studentID, err := c.registrar.Register(ctx, identity.FirstName, identity.LastName)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRegistrationFailed, err)
	}

	questions, err := c.source.Questions(ctx, c.quiz.QuizID, identity.PIN)
	if err != nil {
		if errors.Is(err, ErrInvalidPIN) || errors.Is(err, ErrQuizNotFound) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrQuizLoadFailed, err)
	}
	if len(questions) == 0 {
		return ErrQuizLoadFailed
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhaseEntry {
		return nil
	}

	c.studentID = studentID
	c.questions = questions

	start, found, err := c.store.StartTime(c.quiz.QuizID, studentID)
	if err != nil {
		c.log.Warn().Err(err).Msg("start time read failed, initializing fresh")
		found = false
	}
	if !found {
		start = c.now()
		if err := c.store.SaveStartTime(c.quiz.QuizID, studentID, start); err != nil {
			return fmt.Errorf("persist start time: %w", err)
		}
	}
	c.startTime = start

	saved, err := c.store.Answers(c.quiz.QuizID, studentID)
	if err != nil {
		c.log.Warn().Err(err).Msg("answers read failed, starting empty")
		saved = map[string]string{}
	}
	c.answers = saved

	c.currentIndex = 0
	c.phase = PhaseInProgress

	c.log.Info().
		Int("student_id", studentID).
		Time("start_time", start).
		Int("restored_answers", len(saved)).
		Msg("Attempt started")
	return nil
}

// SelectAnswer records the selected option for a question and persists the
// answer map. Valid only while IN_PROGRESS or REVIEWING.
func (c *Controller) SelectAnswer(questionID uuid.UUID, option string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhaseInProgress && c.phase != PhaseReviewing {
		return ErrInvalidPhase
	}
	if !c.ownsQuestion(questionID) {
		return ErrUnknownQuestion
	}

	c.answers[questionID.String()] = option
	return c.store.SaveAnswers(c.quiz.QuizID, c.studentID, c.answers)
}

// Next advances the question pointer by one, clamped at the last question.
func (c *Controller) Next() int { return c.navigate(1) }

// Prev moves the question pointer back by one, clamped at zero.
func (c *Controller) Prev() int { return c.navigate(-1) }

func (c *Controller) navigate(delta int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.currentIndex = clamp(c.currentIndex+delta, 0, len(c.questions)-1)
	return c.currentIndex
}

// JumpTo moves the question pointer to an explicit index (review grid and
// progress strip). The index is clamped; navigation never touches answers or
// the timer.
func (c *Controller) JumpTo(index int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.currentIndex = clamp(index, 0, len(c.questions)-1)
	return c.currentIndex
}

// EnterReview transitions IN_PROGRESS → REVIEWING.
func (c *Controller) EnterReview() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != PhaseInProgress {
		return ErrInvalidPhase
	}
	c.phase = PhaseReviewing
	return nil
}

// ExitReview transitions REVIEWING → IN_PROGRESS.
func (c *Controller) ExitReview() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != PhaseReviewing {
		return ErrInvalidPhase
	}
	c.phase = PhaseInProgress
	return nil
}

// RemainingSeconds reports the countdown at the given instant. Pure with
// respect to now, startTime and the time limit.
func (c *Controller) RemainingSeconds(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remainingAt(now)
}

func (c *Controller) remainingAt(now time.Time) int {
	if c.startTime.IsZero() {
		return c.quiz.TimeLimitMinutes * 60
	}
	limit := c.quiz.TimeLimitMinutes * 60
	elapsed := int(now.Sub(c.startTime) / time.Second)
	if elapsed >= limit {
		return 0
	}
	return limit - elapsed
}

// Tick advances the countdown. When the countdown reaches zero for the first
// time while the attempt is active, it fires the auto-submit exactly once;
// later zero readings are ignored. Driven by a 1-second periodic callback.
func (c *Controller) Tick(ctx context.Context, now time.Time) int {
	c.mu.Lock()
	remaining := c.remainingAt(now)
	fire := false
	if remaining == 0 && !c.expiryFired &&
		(c.phase == PhaseInProgress || c.phase == PhaseReviewing) {
		c.expiryFired = true
		fire = true
	}
	c.mu.Unlock()

	if fire {
		if _, err := c.submit(ctx, true); err != nil {
			c.log.Error().Err(err).Msg("auto-submit on expiry failed")
		}
	}
	return remaining
}

// Submit finishes the attempt by user action. Manual submission is only
// permitted from the review phase; the timer path bypasses this restriction
// via Tick.
func (c *Controller) Submit(ctx context.Context) (*model.Submission, error) {
	c.mu.Lock()
	if c.phase == PhaseSubmitting {
		c.mu.Unlock()
		return nil, ErrSubmitInFlight
	}
	if c.phase != PhaseReviewing {
		c.mu.Unlock()
		return nil, ErrInvalidPhase
	}
	c.mu.Unlock()

	return c.submit(ctx, false)
}

// submit is the single funnel to the sink. The SUBMITTING phase is entered
// under the lock, so concurrent triggers (timer expiry racing a manual click)
// collapse to exactly one sink invocation.
func (c *Controller) submit(ctx context.Context, auto bool) (*model.Submission, error) {
	c.mu.Lock()
	if c.phase != PhaseInProgress && c.phase != PhaseReviewing {
		c.mu.Unlock()
		if c.phase == PhaseSubmitting {
			return nil, ErrSubmitInFlight
		}
		return nil, ErrInvalidPhase
	}
	prev := c.phase
	c.phase = PhaseSubmitting

	req := SubmissionRequest{
		QuizID:     c.quiz.QuizID,
		StudentID:  c.studentID,
		Answers:    copyAnswers(c.answers),
		StartedAt:  c.startTime,
		AutoSubmit: auto,
	}
	c.mu.Unlock()

	sub, err := c.sink.Submit(ctx, req)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		if errors.Is(err, ErrDuplicateAttempt) {
			// The server already holds a submission for this student.
			// Erase local state and block rather than leave the student
			// retrying forever.
			if clearErr := c.store.ClearAttempt(c.quiz.QuizID, c.studentID); clearErr != nil {
				c.log.Warn().Err(clearErr).Msg("failed to clear attempt storage")
			}
			if markErr := c.store.SetCompleted(c.quiz.QuizID); markErr != nil {
				c.log.Warn().Err(markErr).Msg("failed to set completed marker")
			}
			c.toTerminal(PhaseBlocked)
			return nil, err
		}
		// Recoverable: answers stay intact, the guard is released and the
		// student may retry.
		c.phase = prev
		return nil, fmt.Errorf("%w: %v", ErrSubmissionFailed, err)
	}

	c.finishLocked()

	c.log.Info().
		Int("student_id", c.studentID).
		Bool("auto", auto).
		Float64("score", sub.Score).
		Msg("Attempt submitted")
	return sub, nil
}

// finishLocked performs the terminal-transition bookkeeping: per-attempt
// storage is erased and the completed marker is set. Caller holds the lock.
func (c *Controller) finishLocked() {
	if err := c.store.ClearAttempt(c.quiz.QuizID, c.studentID); err != nil {
		c.log.Warn().Err(err).Msg("failed to clear attempt storage")
	}
	if err := c.store.SetCompleted(c.quiz.QuizID); err != nil {
		c.log.Warn().Err(err).Msg("failed to set completed marker")
	}
	c.toTerminal(PhaseSubmitted)
}

func (c *Controller) toTerminal(p Phase) {
	c.phase = p
	c.terminalAt = c.now()
}

// Terminal reports whether the attempt reached a terminal phase, and when.
func (c *Controller) Terminal() (bool, time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase.terminal(), c.terminalAt
}

// Phase returns the current lifecycle phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Questions returns the ordered question list loaded for this attempt.
func (c *Controller) Questions() []model.QuestionForStudent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.questions
}

// State renders a snapshot of the attempt at the given instant.
func (c *Controller) State(now time.Time) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	summary := make([]QuestionStatus, len(c.questions))
	for i, q := range c.questions {
		_, answered := c.answers[q.ID.String()]
		summary[i] = QuestionStatus{
			QuestionID: q.ID,
			OrderNum:   q.OrderNum,
			Answered:   answered,
		}
	}

	return Snapshot{
		Phase:            c.phase,
		StudentID:        c.studentID,
		CurrentIndex:     c.currentIndex,
		QuestionCount:    len(c.questions),
		Answers:          copyAnswers(c.answers),
		RemainingSeconds: c.remainingAt(now),
		Summary:          summary,
	}
}

func (c *Controller) ownsQuestion(id uuid.UUID) bool {
	for i := range c.questions {
		if c.questions[i].ID == id {
			return true
		}
	}
	return false
}

func copyAnswers(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
