package service

import (
	"elearning_backend/internal/model"
	"testing"
)

func uintPtr(v uint) *uint    { return &v }
func boolPtr(v bool) *bool    { return &v }
func strPtr(v string) *string { return &v }

func option(id uint, text string, correct bool) model.Option {
	o := model.Option{Text: text, IsCorrect: correct}
	o.ID = id
	return o
}

func question(typ model.QuestionType, score float64, opts ...model.Option) *model.Question {
	q := &model.Question{QuestionType: typ, Score: score, Options: opts}
	q.ID = 1
	return q
}

func withBoolean(q *model.Question, v bool) *model.Question {
	q.CorrectBoolean = &v
	return q
}

func assertGrade(t *testing.T, got GradeResult, correct bool, earned float64) {
	t.Helper()
	if got.IsCorrect != correct || got.EarnedScore != earned {
		t.Fatalf("Grade() = %+v, want correct=%v earned=%v", got, correct, earned)
	}
}

func TestGrade_SingleChoice(t *testing.T) {
	q := question(model.SingleChoice, 2,
		option(10, "A", false),
		option(11, "B", true),
		option(12, "C", false),
	)

	tests := []struct {
		name    string
		answer  *SubmittedAnswer
		correct bool
		earned  float64
	}{
		{name: "correct option", answer: &SubmittedAnswer{SelectedOptionID: uintPtr(11)}, correct: true, earned: 2},
		{name: "wrong option", answer: &SubmittedAnswer{SelectedOptionID: uintPtr(10)}, correct: false, earned: 0},
		{name: "foreign option", answer: &SubmittedAnswer{SelectedOptionID: uintPtr(99)}, correct: false, earned: 0},
		{name: "nothing selected", answer: &SubmittedAnswer{}, correct: false, earned: 0},
		{name: "unanswered", answer: nil, correct: false, earned: 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assertGrade(t, Grade(q, tc.answer), tc.correct, tc.earned)
		})
	}
}

func TestGrade_MultipleChoiceExact(t *testing.T) {
	q := question(model.MultipleChoice, 4,
		option(1, "A", true),
		option(2, "B", false),
		option(3, "C", false),
		option(4, "D", true),
	)

	tests := []struct {
		name     string
		selected []uint
		correct  bool
		earned   float64
	}{
		{name: "exact set", selected: []uint{4, 1}, correct: true, earned: 4},
		{name: "exact set with repeat", selected: []uint{1, 4, 1}, correct: true, earned: 4},
		{name: "strict subset", selected: []uint{1}, correct: false, earned: 0},
		{name: "strict superset", selected: []uint{1, 2, 4}, correct: false, earned: 0},
		{name: "foreign id added", selected: []uint{1, 4, 99}, correct: false, earned: 0},
		{name: "empty", selected: nil, correct: false, earned: 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assertGrade(t, Grade(q, &SubmittedAnswer{SelectedOptionIDs: tc.selected}), tc.correct, tc.earned)
		})
	}
}

func TestGrade_TrueFalse(t *testing.T) {
	tests := []struct {
		name    string
		q       *model.Question
		answer  *SubmittedAnswer
		correct bool
	}{
		{
			name:    "explicit boolean",
			q:       &model.Question{QuestionType: model.TrueFalse, Score: 1, CorrectBoolean: boolPtr(false)},
			answer:  &SubmittedAnswer{TrueFalseAnswer: boolPtr(false)},
			correct: true,
		},
		{
			name:    "explicit boolean wrong",
			q:       &model.Question{QuestionType: model.TrueFalse, Score: 1, CorrectBoolean: boolPtr(true)},
			answer:  &SubmittedAnswer{TrueFalseAnswer: boolPtr(false)},
			correct: false,
		},
		{
			name:    "derived from flagged option regardless of order",
			q:       question(model.TrueFalse, 1, option(1, "True", false), option(2, "False", true)),
			answer:  &SubmittedAnswer{TrueFalseAnswer: boolPtr(false)},
			correct: true,
		},
		{
			name:    "vietnamese option text",
			q:       question(model.TrueFalse, 1, option(1, "Sai", false), option(2, "Đúng", true)),
			answer:  &SubmittedAnswer{TrueFalseAnswer: boolPtr(true)},
			correct: true,
		},
		{
			name:    "selected option graded as single choice",
			q:       question(model.TrueFalse, 1, option(1, "True", false), option(2, "False", true)),
			answer:  &SubmittedAnswer{SelectedOptionID: uintPtr(2)},
			correct: true,
		},
		{
			name:    "explicit boolean decides selected option",
			q:       withBoolean(question(model.TrueFalse, 1, option(1, "True", false), option(2, "False", true)), true),
			answer:  &SubmittedAnswer{SelectedOptionID: uintPtr(1)},
			correct: true,
		},
		{
			name:    "explicit boolean rejects contradicting flag",
			q:       withBoolean(question(model.TrueFalse, 1, option(1, "True", false), option(2, "False", true)), true),
			answer:  &SubmittedAnswer{SelectedOptionID: uintPtr(2)},
			correct: false,
		},
		{
			name:    "explicit boolean with unreadable option",
			q:       withBoolean(question(model.TrueFalse, 1, option(1, "Maybe", true)), true),
			answer:  &SubmittedAnswer{SelectedOptionID: uintPtr(1)},
			correct: false,
		},
		{
			name:    "no canonical value",
			q:       question(model.TrueFalse, 1, option(1, "Maybe", true), option(2, "Never", false)),
			answer:  &SubmittedAnswer{TrueFalseAnswer: boolPtr(true)},
			correct: false,
		},
		{
			name:    "two flagged options",
			q:       question(model.TrueFalse, 1, option(1, "True", true), option(2, "False", true)),
			answer:  &SubmittedAnswer{TrueFalseAnswer: boolPtr(true)},
			correct: false,
		},
		{
			name:    "missing answer",
			q:       &model.Question{QuestionType: model.TrueFalse, Score: 1, CorrectBoolean: boolPtr(true)},
			answer:  &SubmittedAnswer{},
			correct: false,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			want := 0.0
			if tc.correct {
				want = 1
			}
			assertGrade(t, Grade(tc.q, tc.answer), tc.correct, want)
		})
	}
}

func TestGrade_FillInBlank(t *testing.T) {
	q := question(model.FillInBlank, 3,
		option(1, "Ha Noi", true),
		option(2, "Hanoi", true),
		option(3, "Saigon", false),
	)

	tests := []struct {
		name    string
		text    *string
		correct bool
	}{
		{name: "exact", text: strPtr("Hanoi"), correct: true},
		{name: "case and spacing", text: strPtr("  ha    NOI "), correct: true},
		{name: "option not flagged correct", text: strPtr("Saigon"), correct: false},
		{name: "blank", text: strPtr("   "), correct: false},
		{name: "missing", text: nil, correct: false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			want := 0.0
			if tc.correct {
				want = 3
			}
			assertGrade(t, Grade(q, &SubmittedAnswer{EssayAnswer: tc.text}), tc.correct, want)
		})
	}
}

func TestGrade_NegativeWeightEarnsNothing(t *testing.T) {
	q := question(model.SingleChoice, -5, option(1, "A", true))
	got := Grade(q, &SubmittedAnswer{SelectedOptionID: uintPtr(1)})
	assertGrade(t, got, true, 0)
}

func TestAnswerTexts(t *testing.T) {
	q := question(model.MultipleChoice, 1,
		option(1, "Go", true),
		option(2, "Java", false),
		option(3, "Rust", true),
	)
	if got := CorrectAnswerText(q); got != "Go, Rust" {
		t.Fatalf("CorrectAnswerText = %q", got)
	}
	if got := UserAnswerText(q, &SubmittedAnswer{SelectedOptionIDs: []uint{3, 2}}); got != "Java, Rust" {
		t.Fatalf("UserAnswerText = %q", got)
	}
	if got := UserAnswerText(q, nil); got != "" {
		t.Fatalf("UserAnswerText(nil) = %q", got)
	}

	tf := &model.Question{QuestionType: model.TrueFalse, CorrectBoolean: boolPtr(true)}
	if got := CorrectAnswerText(tf); got != "true" {
		t.Fatalf("CorrectAnswerText(tf) = %q", got)
	}
}

func TestSubmittedValueRoundTrip(t *testing.T) {
	a := &SubmittedAnswer{QuestionID: 5, SelectedOptionIDs: []uint{1, 2}}
	got := decodeSubmittedValue(submittedValue(a))
	if got == nil || got.QuestionID != 5 || len(got.SelectedOptionIDs) != 2 {
		t.Fatalf("decoded %+v", got)
	}
	if decodeSubmittedValue(submittedValue(nil)) != nil {
		t.Fatalf("nil answer should decode to nil")
	}
}
