package attempt

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// tickInterval drives the countdown for every live attempt.
	tickInterval = time.Second
	// evictAfter is how long a terminal controller lingers so late state
	// polls still see the terminal phase before re-entry rebuilds it.
	evictAfter = 10 * time.Minute
)

// StoreFactory builds the durable attempt store for one exam client sid.
type StoreFactory func(sid string) Store

// Manager owns the live controllers, keyed by (sid, quizID), and drives
// their countdowns with a shared 1-second ticker.
type Manager struct {
	mu          sync.Mutex
	controllers map[string]*Controller

	stores    StoreFactory
	source    QuestionSource
	sink      SubmissionSink
	registrar IdentityRegistrar
	checker   PriorSubmissionChecker
	log       zerolog.Logger
	now       func() time.Time
}

// NewManager creates a Manager. now may be nil (defaults to time.Now).
func NewManager(
	stores StoreFactory,
	source QuestionSource,
	sink SubmissionSink,
	registrar IdentityRegistrar,
	checker PriorSubmissionChecker,
	log zerolog.Logger,
	now func() time.Time,
) *Manager {
	if now == nil {
		now = time.Now
	}
	return &Manager{
		controllers: make(map[string]*Controller),
		stores:      stores,
		source:      source,
		sink:        sink,
		registrar:   registrar,
		checker:     checker,
		log:         log.With().Str("component", "attempt_manager").Logger(),
		now:         now,
	}
}

func key(sid string, quizID uuid.UUID) string {
	return sid + ":" + quizID.String()
}

// Get returns the live controller for the client+quiz pair, if any.
func (m *Manager) Get(sid string, quizID uuid.UUID) (*Controller, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.controllers[key(sid, quizID)]
	return c, ok
}

// GetOrCreate returns the live controller for the client+quiz pair, creating
// one in the ENTRY phase if none exists.
func (m *Manager) GetOrCreate(sid string, quiz QuizMeta) *Controller {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := key(sid, quiz.QuizID)
	if c, ok := m.controllers[k]; ok {
		return c
	}

	c := NewController(quiz, Deps{
		Store:     m.stores(sid),
		Source:    m.source,
		Sink:      m.sink,
		Registrar: m.registrar,
		Checker:   m.checker,
		Log:       m.log.With().Str("sid", sid).Logger(),
		Now:       m.now,
	})
	m.controllers[k] = c
	return c
}

// Start runs the ticker loop until ctx is cancelled. Call in a goroutine.
// Each sweep advances every live countdown (firing auto-submits on expiry)
// and evicts controllers that have been terminal long enough.
func (m *Manager) Start(ctx context.Context) {
	m.log.Info().Msg("Attempt manager started")

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.log.Info().Msg("Attempt manager stopped")
			return
		case <-ticker.C:
			m.sweep(ctx)
		}
	}
}

func (m *Manager) sweep(ctx context.Context) {
	now := m.now()

	m.mu.Lock()
	live := make([]*Controller, 0, len(m.controllers))
	for k, c := range m.controllers {
		if terminal, at := c.Terminal(); terminal && now.Sub(at) > evictAfter {
			delete(m.controllers, k)
			continue
		}
		live = append(live, c)
	}
	m.mu.Unlock()

	// Tick outside the registry lock: an auto-submit blocks on the sink.
	for _, c := range live {
		if p := c.Phase(); p == PhaseInProgress || p == PhaseReviewing {
			c.Tick(ctx, now)
		}
	}
}

// Count returns the number of live controllers. Used by ops endpoints and
// tests.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.controllers)
}
