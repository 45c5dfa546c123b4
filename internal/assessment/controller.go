// Package assessment drives one multiple-choice assessment attempt: fetch a
// question set for a chosen (area, level), track the current question and
// the per-question answers through non-linear navigation, and submit every
// answer atomically at the end.
package assessment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/diploy/competency-gateway/internal/mapping"
	"github.com/diploy/competency-gateway/internal/models"
	"github.com/diploy/competency-gateway/internal/statestore"
)

// State is the controller's lifecycle position.
type State string

const (
	StateIdle       State = "idle"
	StateLoading    State = "loading"
	StateReady      State = "ready"
	StateSubmitting State = "submitting"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

const (
	// maxAttempts bounds the question fetch: one initial try plus two
	// retries, separated by a fixed delay. An explicit loop, never
	// recursion, so the ceiling is independently testable.
	maxAttempts       = 3
	defaultRetryDelay = time.Second
)

// Common errors
var (
	// ErrUpstreamUnavailable is the terminal fetch failure after all
	// attempts; the UI offers a manual retry.
	ErrUpstreamUnavailable = errors.New("question service unavailable")

	ErrNotReady = errors.New("assessment is not ready")
	ErrBusy     = errors.New("submission already in flight")
)

// QuestionService is the subset of the backend SDK the controller needs.
type QuestionService interface {
	GenerateQuestions(ctx context.Context, token, area string, level int) (*models.QuestionSet, error)
	SubmitAssessment(ctx context.Context, token string, req models.SubmissionRequest) (*models.SubmissionAck, error)
}

// TokenFunc resolves the session's bearer token. It returns an
// unauthenticated error when the session is stale; the controller
// propagates that without retrying.
type TokenFunc func(ctx context.Context) (string, error)

// Controller is the assessment flow state machine for one attempt.
// Questions and answers live in memory only; nothing is cached across
// attempts.
type Controller struct {
	svc       QuestionService
	token     TokenFunc
	store     statestore.Store
	sessionID string

	area  string
	level int

	mu        sync.Mutex
	state     State
	questions []models.Question
	answers   models.AnswerSet
	current   int
	busy      bool
	score     float64

	retryDelay time.Duration
}

// NewController creates a controller for one (area, level) attempt.
func NewController(svc QuestionService, token TokenFunc, store statestore.Store, sessionID, area string, level int) *Controller {
	return &Controller{
		svc:        svc,
		token:      token,
		store:      store,
		sessionID:  sessionID,
		area:       area,
		level:      level,
		state:      StateIdle,
		answers:    make(models.AnswerSet),
		retryDelay: defaultRetryDelay,
	}
}

// Load fetches the question set, retrying transient failures up to two
// additional times with a fixed delay. A missing or expired token aborts
// immediately with the unauthenticated error from the token source.
func (c *Controller) Load(ctx context.Context) error {
	c.mu.Lock()
	c.state = StateLoading
	c.questions = nil
	c.answers = make(models.AnswerSet)
	c.current = 0
	c.mu.Unlock()

	token, err := c.token(ctx)
	if err != nil {
		c.setState(StateFailed)
		return err
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		set, err := c.svc.GenerateQuestions(ctx, token, c.area, c.level)
		if err == nil {
			err = validateSet(set)
		}
		if err == nil {
			c.mu.Lock()
			c.questions = set.Questions
			c.state = StateReady
			c.mu.Unlock()
			return nil
		}
		lastErr = err

		slog.Warn("question fetch attempt failed",
			"area", c.area,
			"level", c.level,
			"attempt", attempt,
			"error", err,
		)

		if attempt == maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			c.setState(StateFailed)
			return ctx.Err()
		case <-time.After(c.retryDelay):
		}
	}

	c.setState(StateFailed)
	return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, lastErr)
}

// validateSet enforces the malformed-payload rules: a non-empty question
// list whose every entry has one prompt, the fixed-arity option mapping
// and an ordinal no other entry uses. Answers are keyed by ordinal, so a
// duplicate would silently merge two questions' answers.
func validateSet(set *models.QuestionSet) error {
	if set == nil || len(set.Questions) == 0 {
		return errors.New("empty question set")
	}
	seen := make(map[int]struct{}, len(set.Questions))
	for i := range set.Questions {
		if !set.Questions[i].WellFormed() {
			return fmt.Errorf("malformed question at index %d", i)
		}
		ordinal := set.Questions[i].Ordinal
		if _, dup := seen[ordinal]; dup {
			return fmt.Errorf("duplicate question number %d", ordinal)
		}
		seen[ordinal] = struct{}{}
	}
	return nil
}

// SelectAnswer records a choice for an ordinal. The upsert is idempotent,
// and by design there is no check that choiceText matches one of the
// question's own option texts; a stale text after a re-fetch would be
// recorded as-is.
func (c *Controller) SelectAnswer(ordinal int, choiceText string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateReady {
		return
	}
	c.answers.Select(ordinal, choiceText)
}

// Navigate jumps to a question index. Out-of-range targets are clamped so
// the view never renders undefined state.
func (c *Controller) Navigate(target int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.questions) == 0 {
		return
	}
	if target < 0 {
		target = 0
	}
	if target >= len(c.questions) {
		target = len(c.questions) - 1
	}
	c.current = target
}

// Submit posts every question with its answer in one request. Unanswered
// questions go out as empty strings. On failure the controller returns to
// Ready so the user can resubmit; on success the area is marked attempted
// and the flow is Done.
func (c *Controller) Submit(ctx context.Context) (*models.SubmissionAck, error) {
	c.mu.Lock()
	if c.state != StateReady {
		c.mu.Unlock()
		return nil, ErrNotReady
	}
	if c.busy {
		c.mu.Unlock()
		return nil, ErrBusy
	}
	c.busy = true
	c.state = StateSubmitting
	req := models.BuildSubmission(c.area, c.questions, c.answers)
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.busy = false
		c.mu.Unlock()
	}()

	token, err := c.token(ctx)
	if err != nil {
		c.setState(StateReady)
		return nil, err
	}

	ack, err := c.svc.SubmitAssessment(ctx, token, req)
	if err != nil {
		c.setState(StateReady)
		return nil, fmt.Errorf("failed to submit assessment: %w", err)
	}

	key := mapping.MapAreaKey(c.area)
	if key != models.AreaNonTIK {
		marker := statestore.KeyAssessPrefix + string(key)
		if err := c.store.Set(ctx, c.sessionID, marker, "assessed"); err != nil {
			slog.Warn("failed to mark area attempted", "area", key, "error", err)
		}
	}

	c.mu.Lock()
	c.state = StateDone
	c.score = ack.Score
	c.mu.Unlock()

	return ack, nil
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// Snapshot is a consistent read of the controller for rendering.
type Snapshot struct {
	State     State             `json:"state"`
	Area      string            `json:"area"`
	Level     int               `json:"level"`
	Questions []models.Question `json:"questions,omitempty"`
	Answers   map[int]string    `json:"answers,omitempty"`
	Current   int               `json:"current"`
	Score     float64           `json:"score,omitempty"`
}

// Snapshot returns a copy of the current flow state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	answers := make(map[int]string, len(c.answers))
	for k, v := range c.answers {
		answers[k] = v
	}
	questions := make([]models.Question, len(c.questions))
	copy(questions, c.questions)

	return Snapshot{
		State:     c.state,
		Area:      c.area,
		Level:     c.level,
		Questions: questions,
		Answers:   answers,
		Current:   c.current,
		Score:     c.score,
	}
}
