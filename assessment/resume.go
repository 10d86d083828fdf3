package assessment

import (
	"errors"
	"fmt"

	"github.com/krshsl/praxis/feedback/apperrors"
	"github.com/tidwall/gjson"
)

// ResumeCategories lists the resume review categories in response order.
var ResumeCategories = []Category{
	ContentQuality,
	FormattingAndDesign,
	KeywordsAndATS,
	ExperienceAchievements,
	SkillsAndCompetencies,
}

const (
	SuggestedImprovementsField = "suggestedImprovements"
	KeywordSuggestionsField    = "keywordSuggestions"
)

// ResumeSchema returns the schema used for resume reviews. It shares the
// score bounds and text minimums of DefaultSchema.
func ResumeSchema() Schema {
	s := DefaultSchema()
	s.Name = "resume_analysis"
	s.Categories = ResumeCategories
	s.ExtraLists = []ListField{
		{Name: SuggestedImprovementsField, MinLength: 10},
		{Name: KeywordSuggestionsField, MinLength: 2},
	}
	return s
}

// ResumeAnalysis is a scored resume review. The embedded Assessment's total
// score is the overall resume score.
type ResumeAnalysis struct {
	Assessment
	SuggestedImprovements []string `json:"suggestedImprovements"`
	KeywordSuggestions    []string `json:"keywordSuggestions"`
}

// DecodeResume parses raw generator output into a ResumeAnalysis with the
// same tolerance as Decode. A missing suggestion list decodes as empty.
func DecodeResume(raw []byte) (*ResumeAnalysis, error) {
	a, err := Decode(raw)
	if err != nil {
		return nil, err
	}
	doc := gjson.ParseBytes(StripCodeFence(raw))

	var violations []string
	list := func(field string) []string {
		out := []string{}
		v := doc.Get(field)
		if !v.Exists() || v.Type == gjson.Null {
			return out
		}
		if !v.IsArray() {
			violations = append(violations, field+" is not an array")
			return out
		}
		for i, item := range v.Array() {
			if item.Type != gjson.String {
				violations = append(violations, fmt.Sprintf("%s[%d] is not a string", field, i))
				continue
			}
			out = append(out, item.Str)
		}
		return out
	}

	r := &ResumeAnalysis{
		Assessment:            *a,
		SuggestedImprovements: list(SuggestedImprovementsField),
		KeywordSuggestions:    list(KeywordSuggestionsField),
	}
	if len(violations) > 0 {
		return nil, &apperrors.GenerationValidationError{Violations: violations}
	}
	return r, nil
}

// ValidateResume applies s to the assessment part of r and checks the entry
// lengths of the suggestion lists, reporting every violation together.
func (s Schema) ValidateResume(r *ResumeAnalysis) error {
	if r == nil {
		return &apperrors.GenerationValidationError{Violations: []string{"resume analysis is missing"}}
	}

	var violations []string
	if err := s.Validate(&r.Assessment); err != nil {
		var gve *apperrors.GenerationValidationError
		if !errors.As(err, &gve) {
			return err
		}
		violations = append(violations, gve.Violations...)
	}

	lists := map[string][]string{
		SuggestedImprovementsField: r.SuggestedImprovements,
		KeywordSuggestionsField:    r.KeywordSuggestions,
	}
	for _, l := range s.ExtraLists {
		for i, v := range lists[l.Name] {
			if textLen(v) < l.MinLength {
				violations = append(violations, fmt.Sprintf("%s[%d] is shorter than %d characters", l.Name, i, l.MinLength))
			}
		}
	}

	if len(violations) > 0 {
		return &apperrors.GenerationValidationError{Violations: violations}
	}
	return nil
}
