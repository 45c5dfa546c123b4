package assessment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diploy/competency-gateway/internal/models"
	"github.com/diploy/competency-gateway/internal/statestore"
)

type fakeService struct {
	failures  int
	calls     int
	set       *models.QuestionSet
	submitErr error
	submitted []models.SubmissionRequest
}

func (f *fakeService) GenerateQuestions(ctx context.Context, token, area string, level int) (*models.QuestionSet, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, errors.New("upstream timeout")
	}
	return f.set, nil
}

func (f *fakeService) SubmitAssessment(ctx context.Context, token string, req models.SubmissionRequest) (*models.SubmissionAck, error) {
	f.submitted = append(f.submitted, req)
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	return &models.SubmissionAck{Success: true, Score: 80}, nil
}

func staticToken(ctx context.Context) (string, error) { return "tok", nil }

func questionSet(ordinals ...int) *models.QuestionSet {
	set := &models.QuestionSet{Area: "Sains Data", Level: 2}
	for _, n := range ordinals {
		set.Questions = append(set.Questions, models.Question{
			Ordinal: n,
			Prompt:  "Pertanyaan",
			Options: map[string]string{"a": "A", "b": "B", "c": "C", "d": "D"},
		})
	}
	return set
}

func newTestController(svc *fakeService) (*Controller, statestore.Store) {
	store := statestore.NewMemoryStore()
	ctrl := NewController(svc, staticToken, store, "sess-1", "Sains Data", 2)
	ctrl.retryDelay = time.Millisecond
	return ctrl, store
}

func TestLoadRetriesTransientFailures(t *testing.T) {
	svc := &fakeService{failures: 2, set: questionSet(1, 2, 3)}
	ctrl, _ := newTestController(svc)

	require.NoError(t, ctrl.Load(context.Background()))

	assert.Equal(t, 3, svc.calls)
	assert.Equal(t, StateReady, ctrl.Snapshot().State)
	assert.Len(t, ctrl.Snapshot().Questions, 3)
}

func TestLoadGivesUpAfterThreeAttempts(t *testing.T) {
	svc := &fakeService{failures: 10, set: questionSet(1)}
	ctrl, _ := newTestController(svc)

	err := ctrl.Load(context.Background())

	require.ErrorIs(t, err, ErrUpstreamUnavailable)
	assert.Equal(t, 3, svc.calls, "exactly three attempts, no more")
	assert.Equal(t, StateFailed, ctrl.Snapshot().State)
}

func TestLoadAbortsWithoutTokenBeforeAnyFetch(t *testing.T) {
	svc := &fakeService{set: questionSet(1)}
	store := statestore.NewMemoryStore()
	tokenErr := errors.New("no active session")
	ctrl := NewController(svc, func(ctx context.Context) (string, error) {
		return "", tokenErr
	}, store, "sess-1", "Sains Data", 2)

	err := ctrl.Load(context.Background())

	require.ErrorIs(t, err, tokenErr)
	assert.Zero(t, svc.calls, "unauthenticated must not hit the question service")
}

func TestLoadRejectsMalformedQuestions(t *testing.T) {
	tests := []struct {
		name string
		set  *models.QuestionSet
	}{
		{"empty set", &models.QuestionSet{Area: "Sains Data"}},
		{"missing prompt", &models.QuestionSet{Questions: []models.Question{{
			Ordinal: 1,
			Options: map[string]string{"a": "A", "b": "B", "c": "C", "d": "D"},
		}}}},
		{"three options", &models.QuestionSet{Questions: []models.Question{{
			Ordinal: 1,
			Prompt:  "Pertanyaan",
			Options: map[string]string{"a": "A", "b": "B", "c": "C"},
		}}}},
		{"wrong option keys", &models.QuestionSet{Questions: []models.Question{{
			Ordinal: 1,
			Prompt:  "Pertanyaan",
			Options: map[string]string{"a": "A", "b": "B", "c": "C", "e": "E"},
		}}}},
		{"duplicate question number", &models.QuestionSet{Questions: []models.Question{
			{
				Ordinal: 1,
				Prompt:  "Pertanyaan pertama",
				Options: map[string]string{"a": "A", "b": "B", "c": "C", "d": "D"},
			},
			{
				Ordinal: 1,
				Prompt:  "Pertanyaan kedua",
				Options: map[string]string{"a": "A", "b": "B", "c": "C", "d": "D"},
			},
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{set: tt.set}
			ctrl, _ := newTestController(svc)

			err := ctrl.Load(context.Background())

			require.ErrorIs(t, err, ErrUpstreamUnavailable)
			assert.Equal(t, StateFailed, ctrl.Snapshot().State)
		})
	}
}

func TestSelectAnswerIsIdempotentUpsert(t *testing.T) {
	svc := &fakeService{set: questionSet(1, 2)}
	ctrl, _ := newTestController(svc)
	require.NoError(t, ctrl.Load(context.Background()))

	ctrl.SelectAnswer(1, "Jawaban pertama")
	ctrl.SelectAnswer(1, "Jawaban pertama")
	ctrl.SelectAnswer(1, "Jawaban revisi")

	assert.Equal(t, map[int]string{1: "Jawaban revisi"}, ctrl.Snapshot().Answers)
}

func TestSelectAnswerIgnoredBeforeReady(t *testing.T) {
	svc := &fakeService{set: questionSet(1)}
	ctrl, _ := newTestController(svc)

	ctrl.SelectAnswer(1, "terlalu cepat")

	assert.Empty(t, ctrl.Snapshot().Answers)
}

func TestNavigateClampsOutOfRange(t *testing.T) {
	svc := &fakeService{set: questionSet(1, 2, 3)}
	ctrl, _ := newTestController(svc)
	require.NoError(t, ctrl.Load(context.Background()))

	ctrl.Navigate(99)
	assert.Equal(t, 2, ctrl.Snapshot().Current)

	ctrl.Navigate(-5)
	assert.Equal(t, 0, ctrl.Snapshot().Current)

	ctrl.Navigate(1)
	assert.Equal(t, 1, ctrl.Snapshot().Current)
}

func TestSubmitSendsEveryQuestionInOrdinalOrder(t *testing.T) {
	svc := &fakeService{set: questionSet(3, 1, 2)}
	ctrl, store := newTestController(svc)
	require.NoError(t, ctrl.Load(context.Background()))

	// Answer out of order and leave ordinal 2 unanswered.
	ctrl.Navigate(2)
	ctrl.SelectAnswer(3, "C")
	ctrl.SelectAnswer(1, "A")

	ack, err := ctrl.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 80.0, ack.Score)
	assert.Equal(t, StateDone, ctrl.Snapshot().State)

	require.Len(t, svc.submitted, 1)
	req := svc.submitted[0]
	assert.Equal(t, "Sains Data", req.Area)
	require.Len(t, req.Answers, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{req.Answers[0].Ordinal, req.Answers[1].Ordinal, req.Answers[2].Ordinal})
	assert.Equal(t, "A", req.Answers[0].UserAnswer)
	assert.Equal(t, "", req.Answers[1].UserAnswer, "unanswered goes out as empty string")
	assert.Equal(t, "C", req.Answers[2].UserAnswer)

	marker, err := store.Get(context.Background(), "sess-1", statestore.KeyAssessPrefix+"DSC")
	require.NoError(t, err)
	assert.Equal(t, "assessed", marker)
}

func TestSubmitFailureReturnsToReady(t *testing.T) {
	svc := &fakeService{set: questionSet(1), submitErr: errors.New("upstream 500")}
	ctrl, store := newTestController(svc)
	require.NoError(t, ctrl.Load(context.Background()))

	_, err := ctrl.Submit(context.Background())

	require.Error(t, err)
	assert.Equal(t, StateReady, ctrl.Snapshot().State, "failed submit must allow a retry")

	_, err = store.Get(context.Background(), "sess-1", statestore.KeyAssessPrefix+"DSC")
	assert.Error(t, err, "no attempted marker on failure")
}

func TestSubmitRequiresReadyState(t *testing.T) {
	svc := &fakeService{set: questionSet(1)}
	ctrl, _ := newTestController(svc)

	_, err := ctrl.Submit(context.Background())

	assert.ErrorIs(t, err, ErrNotReady)
}
