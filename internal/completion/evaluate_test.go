package completion

import (
	"testing"

	"github.com/Authority98/feedo-sub000/internal/models"
)

func textQuestion(id string, required bool) *models.Question {
	return &models.Question{ID: id, Type: models.QuestionText, Question: id, Required: required}
}

func answer(id, typ string, value any) *models.AnswerEntry {
	return &models.AnswerEntry{ID: id, Type: typ, Answer: value}
}

func doc(entries ...*models.AnswerEntry) *models.SectionAnswerDocument {
	return &models.SectionAnswerDocument{ID: "sec", Questions: entries}
}

func TestIsSectionCompleteNoDocument(t *testing.T) {
	sec := &models.Section{ID: "sec", Questions: []*models.Question{textQuestion("q1", true)}}
	if IsSectionComplete(sec, nil) {
		t.Fatal("nil document should not be complete")
	}
	if IsSectionComplete(sec, &models.SectionAnswerDocument{ID: "sec"}) {
		t.Fatal("document without questions should not be complete")
	}
}

func TestIsSectionCompleteRequiredSubset(t *testing.T) {
	sec := &models.Section{ID: "sec", Questions: []*models.Question{
		textQuestion("q1", true),
		textQuestion("q2", false),
	}}
	// only the required question answered: complete
	if !IsSectionComplete(sec, doc(answer("q1", models.QuestionText, "hello"))) {
		t.Fatal("required-only answers should complete the section")
	}
	// required question blank: incomplete
	if IsSectionComplete(sec, doc(answer("q1", models.QuestionText, " "), answer("q2", models.QuestionText, "x"))) {
		t.Fatal("blank required answer should not complete the section")
	}
}

func TestIsSectionCompleteFallsBackToAllQuestions(t *testing.T) {
	sec := &models.Section{ID: "sec", Questions: []*models.Question{
		textQuestion("q1", false),
		textQuestion("q2", false),
	}}
	if IsSectionComplete(sec, doc(answer("q1", models.QuestionText, "only one"))) {
		t.Fatal("with no explicitly-required questions, all must be answered")
	}
	if !IsSectionComplete(sec, doc(answer("q1", models.QuestionText, "a"), answer("q2", models.QuestionText, "b"))) {
		t.Fatal("all questions answered should complete the section")
	}
}

func TestIsSectionCompleteMissingEntry(t *testing.T) {
	sec := &models.Section{ID: "sec", Questions: []*models.Question{textQuestion("q1", true)}}
	if IsSectionComplete(sec, doc(answer("other", models.QuestionText, "x"))) {
		t.Fatal("answer for a different question must not count")
	}
}

func TestIsSectionCompleteRepeater(t *testing.T) {
	rep := &models.Question{
		ID:       "jobs",
		Type:     models.QuestionRepeater,
		Required: true,
		RepeaterFields: []*models.RepeaterField{
			{ID: "title", Type: models.QuestionText, Required: true},
			{ID: "notes", Type: models.QuestionTextarea},
		},
	}
	sec := &models.Section{ID: "sec", Questions: []*models.Question{rep}}

	cases := []struct {
		name  string
		value any
		want  bool
	}{
		{"nil answer", nil, false},
		{"not an array", "oops", false},
		{"empty array", []any{}, false},
		{"required field filled", []any{map[string]any{"title": "Dev"}}, true},
		{"required field blank in one group", []any{
			map[string]any{"title": "Dev"},
			map[string]any{"title": "  ", "notes": "x"},
		}, false},
		{"non-object group", []any{"not a group"}, false},
	}
	for _, c := range cases {
		got := IsSectionComplete(sec, doc(answer("jobs", models.QuestionRepeater, c.value)))
		if got != c.want {
			t.Errorf("%s: IsSectionComplete = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestIsSectionCompleteRepeaterFieldFallback(t *testing.T) {
	// no repeater field is explicitly required: all of them become required
	rep := &models.Question{
		ID:   "jobs",
		Type: models.QuestionRepeater,
		RepeaterFields: []*models.RepeaterField{
			{ID: "title", Type: models.QuestionText},
			{ID: "company", Type: models.QuestionText},
		},
	}
	sec := &models.Section{ID: "sec", Questions: []*models.Question{rep}}
	partial := []any{map[string]any{"title": "Dev"}}
	full := []any{map[string]any{"title": "Dev", "company": "Acme"}}
	if IsSectionComplete(sec, doc(answer("jobs", models.QuestionRepeater, partial))) {
		t.Fatal("partial group should not complete when all fields are implicitly required")
	}
	if !IsSectionComplete(sec, doc(answer("jobs", models.QuestionRepeater, full))) {
		t.Fatal("full group should complete the section")
	}
}
