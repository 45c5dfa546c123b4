package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diploy/competency-gateway/internal/models"
)

func decodeJSONBody(r *http.Request, v interface{}) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func TestLoginSendsOAuth2FormFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/login", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "budi@example.com", r.PostFormValue("username"))
		assert.Equal(t, "rahasia", r.PostFormValue("password"))
		w.Write([]byte(`{"access_token":"jwt-abc","token_type":"bearer"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	token, err := c.Login(context.Background(), "budi@example.com", "rahasia")

	require.NoError(t, err)
	assert.Equal(t, "jwt-abc", token.AccessToken)
}

func TestUnauthorizedMapsToErrUnauthenticated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.GetProfile(context.Background(), "stale")

	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestGenerateQuestionsUnwrapsEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/ai/questions", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Write([]byte(`{
			"success": true,
			"message": "ok",
			"data": {
				"area_fungsi": "Sains Data",
				"level_kompetensi": 2,
				"kumpulan_soal": [
					{"nomor_soal": 1, "soal": "Apa itu overfitting?",
					 "opsi_jawaban": {"a":"A","b":"B","c":"C","d":"D"},
					 "jawaban_benar": "a"}
				]
			}
		}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	set, err := c.GenerateQuestions(context.Background(), "tok", "Sains Data", 2)

	require.NoError(t, err)
	assert.Equal(t, "Sains Data", set.Area)
	require.Len(t, set.Questions, 1)
	assert.True(t, set.Questions[0].WellFormed())
}

func TestGenerateQuestionsSurfacesEnvelopeFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success": false, "message": "generator overloaded"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.GenerateQuestions(context.Background(), "tok", "Sains Data", 2)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "generator overloaded")
}

func TestSendInterviewDecodesAnswer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/ai/interview", r.URL.Path)
		w.Write([]byte(`{"success": true, "data": {"answer": "Ceritakan proyek terakhirmu."}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	reply, err := c.SendInterview(context.Background(), "tok", "Halo")

	require.NoError(t, err)
	assert.Equal(t, "Ceritakan proyek terakhirmu.", reply)
}

func TestFetchMappingPreservesUpstreamOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"success": true,
			"data": {
				"Tata Kelola dan Manajemen TI": {"level_kompetensi": 0, "status": "unassessed"},
				"Keamanan Informasi dan Siber": {"level_kompetensi": 2, "status": "lulus"},
				"Sains Data": {"level_kompetensi": 3, "status": "gagal"}
			}
		}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	records, err := c.FetchMapping(context.Background(), "tok")

	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "Tata Kelola dan Manajemen TI", records[0].Area)
	assert.Equal(t, "Keamanan Informasi dan Siber", records[1].Area)
	assert.Equal(t, 2, records[1].Level)
	assert.Equal(t, "Sains Data", records[2].Area)
}

func TestSubmitAssessmentPayload(t *testing.T) {
	var got models.SubmissionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/ai/assessment/submit", r.URL.Path)
		require.NoError(t, decodeJSONBody(r, &got))
		w.Write([]byte(`{"success": true, "score": 75, "message": "tersimpan"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	ack, err := c.SubmitAssessment(context.Background(), "tok", models.SubmissionRequest{
		Area: "Sains Data",
		Answers: []models.SubmissionItem{
			{Ordinal: 1, Prompt: "Apa itu overfitting?", UserAnswer: "A", CorrectKey: "a"},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, 75.0, ack.Score)
	assert.Equal(t, "Sains Data", got.Area)
	require.Len(t, got.Answers, 1)
	assert.Equal(t, 1, got.Answers[0].Ordinal)
}
