package models

import "sort"

// OptionKeys is the fixed choice alphabet for multiple-choice questions.
// The question generator always produces exactly these four options.
var OptionKeys = []string{"a", "b", "c", "d"}

// Question is a single multiple-choice item inside an assessment attempt.
// Questions live in memory for the duration of one attempt only.
type Question struct {
	Ordinal        int               `json:"nomor_soal"`
	CriticalAspect string            `json:"aspek_kritis,omitempty"`
	Prompt         string            `json:"soal"`
	Options        map[string]string `json:"opsi_jawaban"`
	CorrectKey     string            `json:"jawaban_benar,omitempty"`
}

// WellFormed reports whether the question decomposes into exactly one prompt
// and the fixed-arity option mapping.
func (q *Question) WellFormed() bool {
	if q.Prompt == "" || len(q.Options) != len(OptionKeys) {
		return false
	}
	for _, k := range OptionKeys {
		if _, ok := q.Options[k]; !ok {
			return false
		}
	}
	return true
}

// QuestionSet is the question batch returned for one (area, level) request.
type QuestionSet struct {
	Area      string     `json:"area_fungsi"`
	Level     int        `json:"level_kompetensi"`
	Questions []Question `json:"kumpulan_soal"`
}

// AnswerSet maps question ordinal to the selected choice text.
// Selection is an idempotent upsert; there is deliberately no check that the
// text matches one of the question's own options (see SubmissionItem).
type AnswerSet map[int]string

// Select records the choice for an ordinal, overwriting any previous choice.
func (a AnswerSet) Select(ordinal int, choiceText string) {
	a[ordinal] = choiceText
}

// Answered reports whether an ordinal has a recorded choice.
func (a AnswerSet) Answered(ordinal int) bool {
	_, ok := a[ordinal]
	return ok
}

// SubmissionItem pairs one question with the user's answer for submission.
type SubmissionItem struct {
	Ordinal    int               `json:"nomor_soal"`
	Prompt     string            `json:"soal"`
	Options    map[string]string `json:"opsi_jawaban"`
	UserAnswer string            `json:"jawaban_user"`
	CorrectKey string            `json:"kunci_jawaban"`
}

// SubmissionRequest is the full answer payload posted in one request.
type SubmissionRequest struct {
	Area    string           `json:"area_fungsi"`
	Answers []SubmissionItem `json:"jawaban"`
}

// SubmissionAck is the backend acknowledgement for a submitted attempt.
type SubmissionAck struct {
	Success bool    `json:"success"`
	Score   float64 `json:"score"`
	Message string  `json:"message"`
}

// BuildSubmission builds one entry per question, in ordinal order regardless
// of the navigation order performed by the user. Unanswered questions are
// submitted with an empty-string answer.
func BuildSubmission(area string, questions []Question, answers AnswerSet) SubmissionRequest {
	items := make([]SubmissionItem, 0, len(questions))
	for _, q := range questions {
		items = append(items, SubmissionItem{
			Ordinal:    q.Ordinal,
			Prompt:     q.Prompt,
			Options:    q.Options,
			UserAnswer: answers[q.Ordinal],
			CorrectKey: q.CorrectKey,
		})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Ordinal < items[j].Ordinal })
	return SubmissionRequest{Area: area, Answers: items}
}
