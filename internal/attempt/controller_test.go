package attempt

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/somaedu/soma-backend/internal/model"
)

// ─── Fakes ──────────────────────────────────────────────────────────

type fakeSource struct {
	questions []model.QuestionForStudent
	pin       string
	err       error
	calls     int
}

func (f *fakeSource) Questions(_ context.Context, _ uuid.UUID, pin string) ([]model.QuestionForStudent, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.pin != "" && pin != f.pin {
		return nil, ErrInvalidPIN
	}
	return f.questions, nil
}

type fakeSink struct {
	mu    sync.Mutex
	calls int
	last  SubmissionRequest
	err   error
	delay time.Duration
}

func (f *fakeSink) Submit(_ context.Context, req SubmissionRequest) (*model.Submission, error) {
	f.mu.Lock()
	f.calls++
	f.last = req
	err := f.err
	delay := f.delay
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if err != nil {
		return nil, err
	}
	return &model.Submission{
		ID:        uuid.New(),
		QuizID:    req.QuizID,
		StudentID: req.StudentID,
		Score:     42,
	}, nil
}

func (f *fakeSink) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeSink) lastRequest() SubmissionRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

type fakeRegistrar struct {
	id    int
	err   error
	calls int
}

func (f *fakeRegistrar) Register(_ context.Context, _, _ string) (int, error) {
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	return f.id, nil
}

type fakeChecker struct {
	submitted bool
	err       error
	calls     int
}

func (f *fakeChecker) HasSubmitted(_ context.Context, _ uuid.UUID, _, _ string) (bool, error) {
	f.calls++
	return f.submitted, f.err
}

// clock is a manual wall clock for driving the countdown deterministically.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock(t time.Time) *clock { return &clock{t: t} }

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// ─── Harness ────────────────────────────────────────────────────────

type harness struct {
	quiz      QuizMeta
	store     *MemoryStore
	source    *fakeSource
	sink      *fakeSink
	registrar *fakeRegistrar
	checker   *fakeChecker
	clock     *clock
}

func twoQuestions() []model.QuestionForStudent {
	return []model.QuestionForStudent{
		{ID: uuid.New(), Prompt: "2+2?", Options: []string{"3", "4"}, Marks: 1, OrderNum: 0},
		{ID: uuid.New(), Prompt: "3*3?", Options: []string{"9", "6"}, Marks: 2, OrderNum: 1},
	}
}

func newHarness(limitMinutes int) *harness {
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	return &harness{
		quiz: QuizMeta{
			QuizID:           uuid.New(),
			Title:            "Algebra Checkpoint",
			TimeLimitMinutes: limitMinutes,
			DueAt:            base.Add(24 * time.Hour),
		},
		store:     NewMemoryStore(),
		source:    &fakeSource{questions: twoQuestions()},
		sink:      &fakeSink{},
		registrar: &fakeRegistrar{id: 7},
		checker:   &fakeChecker{},
		clock:     newClock(base),
	}
}

func (h *harness) controller() *Controller {
	return NewController(h.quiz, Deps{
		Store:     h.store,
		Source:    h.source,
		Sink:      h.sink,
		Registrar: h.registrar,
		Checker:   h.checker,
		Log:       zerolog.Nop(),
		Now:       h.clock.now,
	})
}

func (h *harness) started(t *testing.T) *Controller {
	t.Helper()
	c := h.controller()
	if _, err := c.BeginEntry(); err != nil {
		t.Fatalf("BeginEntry: %v", err)
	}
	if _, err := c.CheckPriorSubmission(context.Background(), "Ada", "Lovelace"); err != nil {
		t.Fatalf("CheckPriorSubmission: %v", err)
	}
	if err := c.StartAttempt(context.Background(), Identity{FirstName: "Ada", LastName: "Lovelace"}); err != nil {
		t.Fatalf("StartAttempt: %v", err)
	}
	return c
}

// ─── Timer and auto-submit ──────────────────────────────────────────

func TestTickAutoSubmitsExactlyOnce(t *testing.T) {
	h := newHarness(2)
	c := h.started(t)

	h.clock.advance(119 * time.Second)
	if got := c.Tick(context.Background(), h.clock.now()); got != 1 {
		t.Fatalf("remaining = %d, want 1", got)
	}
	if h.sink.callCount() != 0 {
		t.Fatalf("sink called before expiry")
	}

	h.clock.advance(time.Second)
	if got := c.Tick(context.Background(), h.clock.now()); got != 0 {
		t.Fatalf("remaining = %d, want 0", got)
	}

	// Repeated zero readings must not re-trigger.
	for i := 0; i < 5; i++ {
		h.clock.advance(time.Second)
		if got := c.Tick(context.Background(), h.clock.now()); got != 0 {
			t.Fatalf("remaining = %d, want 0", got)
		}
	}

	if got := h.sink.callCount(); got != 1 {
		t.Fatalf("sink calls = %d, want exactly 1", got)
	}
	if c.Phase() != PhaseSubmitted {
		t.Fatalf("phase = %s, want SUBMITTED", c.Phase())
	}
	if !h.sink.lastRequest().AutoSubmit {
		t.Fatalf("expected auto-submit request")
	}
}

func TestPartialAnswersSubmitOnExpiry(t *testing.T) {
	h := newHarness(1)
	c := h.started(t)

	q1 := h.source.questions[0]
	if err := c.SelectAnswer(q1.ID, "4"); err != nil {
		t.Fatalf("SelectAnswer: %v", err)
	}

	h.clock.advance(61 * time.Second)
	c.Tick(context.Background(), h.clock.now())

	if got := h.sink.callCount(); got != 1 {
		t.Fatalf("sink calls = %d, want 1", got)
	}
	req := h.sink.lastRequest()
	if len(req.Answers) != 1 {
		t.Fatalf("answers = %v, want only q1", req.Answers)
	}
	if req.Answers[q1.ID.String()] != "4" {
		t.Fatalf("q1 answer = %q, want %q", req.Answers[q1.ID.String()], "4")
	}
}

func TestRemainingSecondsFloorsAtZero(t *testing.T) {
	h := newHarness(1)
	c := h.started(t)

	h.clock.advance(10 * time.Minute)
	if got := c.RemainingSeconds(h.clock.now()); got != 0 {
		t.Fatalf("remaining = %d, want 0", got)
	}
}

// ─── Answer capture ─────────────────────────────────────────────────

func TestSelectAnswerIdempotent(t *testing.T) {
	h := newHarness(10)
	c := h.started(t)
	q := h.source.questions[0]

	for i := 0; i < 3; i++ {
		if err := c.SelectAnswer(q.ID, "4"); err != nil {
			t.Fatalf("SelectAnswer: %v", err)
		}
	}

	snap := c.State(h.clock.now())
	if len(snap.Answers) != 1 {
		t.Fatalf("answers size = %d, want 1", len(snap.Answers))
	}
	if snap.Answers[q.ID.String()] != "4" {
		t.Fatalf("answer = %q, want %q", snap.Answers[q.ID.String()], "4")
	}
}

func TestSelectAnswerOverwritesPrior(t *testing.T) {
	h := newHarness(10)
	c := h.started(t)
	q := h.source.questions[0]

	_ = c.SelectAnswer(q.ID, "3")
	_ = c.SelectAnswer(q.ID, "4")

	snap := c.State(h.clock.now())
	if got := snap.Answers[q.ID.String()]; got != "4" {
		t.Fatalf("answer = %q, want overwrite to %q", got, "4")
	}
}

func TestSelectAnswerRejectedOutsideActivePhases(t *testing.T) {
	h := newHarness(10)
	c := h.controller()
	q := h.source.questions[0]

	if err := c.SelectAnswer(q.ID, "4"); !errors.Is(err, ErrInvalidPhase) {
		t.Fatalf("err = %v, want ErrInvalidPhase in entry", err)
	}
}

func TestSelectAnswerUnknownQuestion(t *testing.T) {
	h := newHarness(10)
	c := h.started(t)

	if err := c.SelectAnswer(uuid.New(), "4"); !errors.Is(err, ErrUnknownQuestion) {
		t.Fatalf("err = %v, want ErrUnknownQuestion", err)
	}
}

// ─── Reload resilience ──────────────────────────────────────────────

func TestReloadPreservesStartTimeAndAnswers(t *testing.T) {
	h := newHarness(30)
	c := h.started(t)
	q := h.source.questions[1]
	_ = c.SelectAnswer(q.ID, "9")

	first := c.State(h.clock.now())

	// Ten minutes pass, then the page reloads: a fresh controller against
	// the same store and the same identity.
	h.clock.advance(10 * time.Minute)
	reloaded := h.started(t)
	snap := reloaded.State(h.clock.now())

	if snap.Answers[q.ID.String()] != "9" {
		t.Fatalf("reloaded answers = %v, want q2=9", snap.Answers)
	}
	if want := first.RemainingSeconds - 600; snap.RemainingSeconds != want {
		t.Fatalf("remaining after reload = %d, want %d (clock must not reset)", snap.RemainingSeconds, want)
	}
}

// ─── Submission guard ───────────────────────────────────────────────

func TestConcurrentSubmitTriggersInvokeSinkOnce(t *testing.T) {
	h := newHarness(1)
	c := h.started(t)
	if err := c.EnterReview(); err != nil {
		t.Fatalf("EnterReview: %v", err)
	}

	h.sink.delay = 50 * time.Millisecond
	h.clock.advance(61 * time.Second)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		c.Tick(context.Background(), h.clock.now())
	}()
	go func() {
		defer wg.Done()
		_, _ = c.Submit(context.Background())
	}()
	wg.Wait()

	if got := h.sink.callCount(); got != 1 {
		t.Fatalf("sink calls = %d, want exactly 1", got)
	}
}

func TestManualSubmitOnlyFromReview(t *testing.T) {
	h := newHarness(10)
	c := h.started(t)

	if _, err := c.Submit(context.Background()); !errors.Is(err, ErrInvalidPhase) {
		t.Fatalf("err = %v, want ErrInvalidPhase from in-progress", err)
	}

	_ = c.EnterReview()
	if _, err := c.Submit(context.Background()); err != nil {
		t.Fatalf("Submit from review: %v", err)
	}
	if c.Phase() != PhaseSubmitted {
		t.Fatalf("phase = %s, want SUBMITTED", c.Phase())
	}
}

func TestSubmitFailureIsRetryable(t *testing.T) {
	h := newHarness(10)
	c := h.started(t)
	q := h.source.questions[0]
	_ = c.SelectAnswer(q.ID, "4")
	_ = c.EnterReview()

	h.sink.err = errors.New("sink unavailable")
	if _, err := c.Submit(context.Background()); !errors.Is(err, ErrSubmissionFailed) {
		t.Fatalf("err = %v, want ErrSubmissionFailed", err)
	}
	if c.Phase() != PhaseReviewing {
		t.Fatalf("phase = %s, want REVIEWING after failure", c.Phase())
	}
	snap := c.State(h.clock.now())
	if snap.Answers[q.ID.String()] != "4" {
		t.Fatalf("answers lost on failed submit")
	}

	// Retry succeeds once the sink recovers.
	h.sink.mu.Lock()
	h.sink.err = nil
	h.sink.mu.Unlock()
	if _, err := c.Submit(context.Background()); err != nil {
		t.Fatalf("retry Submit: %v", err)
	}
	if got := h.sink.callCount(); got != 2 {
		t.Fatalf("sink calls = %d, want 2 (fail then retry)", got)
	}
}

func TestDuplicateRejectionBlocksAttempt(t *testing.T) {
	h := newHarness(10)
	c := h.started(t)
	_ = c.EnterReview()

	h.sink.err = ErrDuplicateAttempt
	if _, err := c.Submit(context.Background()); !errors.Is(err, ErrDuplicateAttempt) {
		t.Fatalf("err = %v, want ErrDuplicateAttempt", err)
	}
	if c.Phase() != PhaseBlocked {
		t.Fatalf("phase = %s, want BLOCKED", c.Phase())
	}
	if done, _ := h.store.Completed(h.quiz.QuizID); !done {
		t.Fatalf("completed marker not set after duplicate rejection")
	}
}

// ─── Terminal-state bookkeeping ─────────────────────────────────────

func TestSubmitClearsStorageAndBlocksReentry(t *testing.T) {
	h := newHarness(10)
	c := h.started(t)
	_ = c.EnterReview()

	if _, err := c.Submit(context.Background()); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if done, _ := h.store.Completed(h.quiz.QuizID); !done {
		t.Fatalf("completed marker not set")
	}
	if h.store.HasAttemptState(h.quiz.QuizID, h.registrar.id) {
		t.Fatalf("per-attempt storage keys survived submission")
	}

	// A fresh controller for the same quiz must report blocked from the
	// marker alone, without a remote prior-submission call.
	checkerCallsBefore := h.checker.calls
	fresh := h.controller()
	phase, err := fresh.BeginEntry()
	if phase != PhaseBlocked || !errors.Is(err, ErrAttemptBlocked) {
		t.Fatalf("BeginEntry = (%s, %v), want (BLOCKED, ErrAttemptBlocked)", phase, err)
	}
	if h.checker.calls != checkerCallsBefore {
		t.Fatalf("prior-submission checker called despite local marker")
	}
}

// ─── Entry gates ────────────────────────────────────────────────────

func TestPastDueDateClosesWithoutCollaboratorCalls(t *testing.T) {
	h := newHarness(10)
	h.quiz.DueAt = h.clock.now().Add(-time.Hour)
	c := h.controller()

	phase, err := c.BeginEntry()
	if phase != PhaseClosed || !errors.Is(err, ErrQuizClosed) {
		t.Fatalf("BeginEntry = (%s, %v), want (CLOSED, ErrQuizClosed)", phase, err)
	}
	if h.registrar.calls != 0 || h.source.calls != 0 {
		t.Fatalf("registrar/source called for a closed quiz")
	}
}

func TestPriorSubmissionDetectedSetsMarkerAndBlocks(t *testing.T) {
	h := newHarness(10)
	h.checker.submitted = true
	c := h.controller()
	_, _ = c.BeginEntry()

	submitted, err := c.CheckPriorSubmission(context.Background(), "Ada", "Lovelace")
	if !submitted || !errors.Is(err, ErrAttemptBlocked) {
		t.Fatalf("CheckPriorSubmission = (%v, %v), want (true, ErrAttemptBlocked)", submitted, err)
	}
	if c.Phase() != PhaseBlocked {
		t.Fatalf("phase = %s, want BLOCKED", c.Phase())
	}
	if done, _ := h.store.Completed(h.quiz.QuizID); !done {
		t.Fatalf("marker not set after remote check reported submitted")
	}
}

func TestPriorSubmissionCheckFailsOpen(t *testing.T) {
	h := newHarness(10)
	h.checker.err = errors.New("checker unreachable")
	c := h.controller()
	_, _ = c.BeginEntry()

	submitted, err := c.CheckPriorSubmission(context.Background(), "Ada", "Lovelace")
	if submitted || err != nil {
		t.Fatalf("CheckPriorSubmission = (%v, %v), want fail-open (false, nil)", submitted, err)
	}
	if err := c.StartAttempt(context.Background(), Identity{FirstName: "Ada", LastName: "Lovelace"}); err != nil {
		t.Fatalf("StartAttempt after fail-open: %v", err)
	}
}

func TestRegistrationFailureKeepsEntryPhase(t *testing.T) {
	h := newHarness(10)
	h.registrar.err = errors.New("registrar down")
	c := h.controller()
	_, _ = c.BeginEntry()

	err := c.StartAttempt(context.Background(), Identity{FirstName: "Ada", LastName: "Lovelace"})
	if !errors.Is(err, ErrRegistrationFailed) {
		t.Fatalf("err = %v, want ErrRegistrationFailed", err)
	}
	if c.Phase() != PhaseEntry {
		t.Fatalf("phase = %s, want ENTRY (retryable)", c.Phase())
	}
}

func TestPINVariant(t *testing.T) {
	h := newHarness(10)
	h.quiz.PINRequired = true
	h.source.pin = "4711"
	c := h.controller()
	_, _ = c.BeginEntry()

	err := c.StartAttempt(context.Background(), Identity{FirstName: "Ada", LastName: "Lovelace", PIN: "9999"})
	if !errors.Is(err, ErrInvalidPIN) {
		t.Fatalf("err = %v, want ErrInvalidPIN", err)
	}

	if err := c.StartAttempt(context.Background(), Identity{FirstName: "Ada", LastName: "Lovelace", PIN: "4711"}); err != nil {
		t.Fatalf("StartAttempt with correct PIN: %v", err)
	}
}

// ─── Navigation and review ──────────────────────────────────────────

func TestNavigationClampsWithoutWraparound(t *testing.T) {
	h := newHarness(10)
	c := h.started(t)

	if got := c.Prev(); got != 0 {
		t.Fatalf("Prev at start = %d, want clamp at 0", got)
	}
	if got := c.Next(); got != 1 {
		t.Fatalf("Next = %d, want 1", got)
	}
	if got := c.Next(); got != 1 {
		t.Fatalf("Next at end = %d, want clamp at 1", got)
	}
	if got := c.JumpTo(99); got != 1 {
		t.Fatalf("JumpTo(99) = %d, want clamp at 1", got)
	}
	if got := c.JumpTo(-3); got != 0 {
		t.Fatalf("JumpTo(-3) = %d, want clamp at 0", got)
	}
}

func TestReviewToggleAndSummary(t *testing.T) {
	h := newHarness(10)
	c := h.started(t)
	q1 := h.source.questions[0]
	_ = c.SelectAnswer(q1.ID, "4")

	if err := c.EnterReview(); err != nil {
		t.Fatalf("EnterReview: %v", err)
	}
	snap := c.State(h.clock.now())
	if snap.Phase != PhaseReviewing {
		t.Fatalf("phase = %s, want REVIEWING", snap.Phase)
	}
	if len(snap.Summary) != 2 || !snap.Summary[0].Answered || snap.Summary[1].Answered {
		t.Fatalf("summary = %+v, want [answered, unanswered]", snap.Summary)
	}

	if err := c.ExitReview(); err != nil {
		t.Fatalf("ExitReview: %v", err)
	}
	if c.Phase() != PhaseInProgress {
		t.Fatalf("phase = %s, want IN_PROGRESS", c.Phase())
	}
}
