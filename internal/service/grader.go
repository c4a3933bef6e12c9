package service

import (
	"elearning_backend/internal/model"
	"encoding/json"
	"strconv"
	"strings"

	"gorm.io/datatypes"
)

// SubmittedAnswer is one entry of a quiz submission. Which field is read
// depends on the question type.
type SubmittedAnswer struct {
	QuestionID        uint    `json:"questionId" binding:"required"`
	SelectedOptionID  *uint   `json:"selectedOptionId,omitempty"`
	SelectedOptionIDs []uint  `json:"selectedOptionIds,omitempty"`
	TrueFalseAnswer   *bool   `json:"trueFalseAnswer,omitempty"`
	EssayAnswer       *string `json:"essayAnswer,omitempty"`
}

type GradeResult struct {
	IsCorrect   bool
	EarnedScore float64
}

// Grade scores a single answer. It never fails: a missing or malformed answer
// is simply incorrect and earns nothing.
func Grade(q *model.Question, a *SubmittedAnswer) GradeResult {
	if q == nil || a == nil {
		return GradeResult{}
	}

	var correct bool
	switch q.QuestionType {
	case model.SingleChoice:
		correct = gradeSingleChoice(q, a.SelectedOptionID)
	case model.MultipleChoice:
		correct = gradeMultipleChoice(q, a.SelectedOptionIDs)
	case model.TrueFalse:
		correct = gradeTrueFalse(q, a)
	case model.FillInBlank:
		correct = gradeFillInBlank(q, a.EssayAnswer)
	}

	if !correct {
		return GradeResult{}
	}
	return GradeResult{IsCorrect: true, EarnedScore: questionWeight(q)}
}

func questionWeight(q *model.Question) float64 {
	if q.Score < 0 {
		return 0
	}
	return q.Score
}

func gradeSingleChoice(q *model.Question, selected *uint) bool {
	if selected == nil {
		return false
	}
	for _, opt := range q.Options {
		if opt.ID == *selected {
			return opt.IsCorrect
		}
	}
	return false
}

// no partial credit: the selection must equal the correct set exactly
func gradeMultipleChoice(q *model.Question, selected []uint) bool {
	if len(selected) == 0 {
		return false
	}

	picked := make(map[uint]struct{}, len(selected))
	for _, id := range selected {
		picked[id] = struct{}{}
	}

	correct := 0
	for _, opt := range q.Options {
		_, ok := picked[opt.ID]
		if opt.IsCorrect != ok {
			return false
		}
		if opt.IsCorrect {
			correct++
		}
	}
	// ids that are not options of this question
	return correct == len(picked)
}

// An explicit CorrectBoolean also decides selected options: the option text is
// read as a boolean, so both answer shapes grade the same.
func gradeTrueFalse(q *model.Question, a *SubmittedAnswer) bool {
	if a.SelectedOptionID != nil {
		if q.CorrectBoolean == nil {
			return gradeSingleChoice(q, a.SelectedOptionID)
		}
		got, ok := parseBoolText(optionText(q, *a.SelectedOptionID))
		return ok && got == *q.CorrectBoolean
	}
	if a.TrueFalseAnswer == nil {
		return false
	}
	want, ok := CanonicalBoolean(q)
	if !ok {
		return false
	}
	return *a.TrueFalseAnswer == want
}

func gradeFillInBlank(q *model.Question, text *string) bool {
	if text == nil {
		return false
	}
	got := normalizeText(*text)
	if got == "" {
		return false
	}
	for _, opt := range q.Options {
		if opt.IsCorrect && normalizeText(opt.Text) == got {
			return true
		}
	}
	return false
}

// CanonicalBoolean returns the correct value of a TRUE_FALSE question. The
// explicit CorrectBoolean wins; otherwise the text of the single option
// flagged correct is parsed. Option order is never used.
func CanonicalBoolean(q *model.Question) (bool, bool) {
	if q.CorrectBoolean != nil {
		return *q.CorrectBoolean, true
	}

	var flagged []model.Option
	for _, opt := range q.Options {
		if opt.IsCorrect {
			flagged = append(flagged, opt)
		}
	}
	if len(flagged) != 1 {
		return false, false
	}
	return parseBoolText(flagged[0].Text)
}

func parseBoolText(s string) (bool, bool) {
	switch normalizeText(s) {
	case "true", "yes", "đúng":
		return true, true
	case "false", "no", "sai":
		return false, true
	}
	return false, false
}

func normalizeText(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// submittedValue is what gets stored on the answer row for later review.
func submittedValue(a *SubmittedAnswer) datatypes.JSON {
	if a == nil {
		return datatypes.JSON("null")
	}
	raw, err := json.Marshal(a)
	if err != nil {
		return datatypes.JSON("null")
	}
	return datatypes.JSON(raw)
}

func decodeSubmittedValue(raw datatypes.JSON) *SubmittedAnswer {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var a SubmittedAnswer
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil
	}
	return &a
}

func optionText(q *model.Question, id uint) string {
	for _, opt := range q.Options {
		if opt.ID == id {
			return opt.Text
		}
	}
	return ""
}

// UserAnswerText renders what the learner answered, for review screens.
func UserAnswerText(q *model.Question, a *SubmittedAnswer) string {
	if q == nil || a == nil {
		return ""
	}

	switch {
	case a.SelectedOptionID != nil:
		return optionText(q, *a.SelectedOptionID)
	case len(a.SelectedOptionIDs) > 0:
		picked := make(map[uint]struct{}, len(a.SelectedOptionIDs))
		for _, id := range a.SelectedOptionIDs {
			picked[id] = struct{}{}
		}
		var texts []string
		for _, opt := range q.Options {
			if _, ok := picked[opt.ID]; ok {
				texts = append(texts, opt.Text)
			}
		}
		return strings.Join(texts, ", ")
	case a.TrueFalseAnswer != nil:
		return strconv.FormatBool(*a.TrueFalseAnswer)
	case a.EssayAnswer != nil:
		return strings.TrimSpace(*a.EssayAnswer)
	}
	return ""
}

// CorrectAnswerText renders the expected answer of q.
func CorrectAnswerText(q *model.Question) string {
	if q.QuestionType == model.TrueFalse && q.CorrectBoolean != nil {
		return strconv.FormatBool(*q.CorrectBoolean)
	}

	sep := ", "
	if q.QuestionType == model.FillInBlank {
		sep = " / "
	}
	var texts []string
	for _, opt := range q.Options {
		if opt.IsCorrect {
			texts = append(texts, opt.Text)
		}
	}
	return strings.Join(texts, sep)
}
