// Package assessment defines the structured assessment produced for an
// interview and the schema every generated assessment must satisfy before it
// is stored.
package assessment

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/krshsl/praxis/feedback/apperrors"
	"github.com/tidwall/gjson"
)

// CategoryScore is the score of a single category.
type CategoryScore struct {
	Name    Category `json:"name"`
	Score   int      `json:"score"`
	Comment string   `json:"comment"`
}

// Assessment is the structured result requested from the generation backend.
type Assessment struct {
	TotalScore          int             `json:"totalScore"`
	CategoryScores      []CategoryScore `json:"categoryScores"`
	Strengths           []string        `json:"strengths"`
	AreasForImprovement []string        `json:"areasForImprovement"`
	FinalAssessment     string          `json:"finalAssessment"`
}

// Schema holds the constraints of an assessment. It is rendered into the
// provider specific response schema and used to re-check whatever comes back.
type Schema struct {
	// Name identifies the schema to providers that label response formats.
	Name                     string
	Categories               []Category
	MinScore                 int
	MaxScore                 int
	MinCommentLength         int
	MinStrengthLength        int
	MinImprovementLength     int
	MinFinalAssessmentLength int
	// ExtraLists are additional required string arrays beyond the
	// assessment fields, in response order.
	ExtraLists []ListField
}

// ListField is a required array of strings with a minimum entry length.
type ListField struct {
	Name      string
	MinLength int
}

// DefaultSchema returns the schema used for interview feedback.
func DefaultSchema() Schema {
	return Schema{
		Name:                     "interview_assessment",
		Categories:               Categories,
		MinScore:                 0,
		MaxScore:                 100,
		MinCommentLength:         10,
		MinStrengthLength:        5,
		MinImprovementLength:     10,
		MinFinalAssessmentLength: 50,
	}
}

// Validate checks a against every constraint of s and reports all violations
// at once as a *apperrors.GenerationValidationError.
func (s Schema) Validate(a *Assessment) error {
	if a == nil {
		return &apperrors.GenerationValidationError{Violations: []string{"assessment is missing"}}
	}

	var violations []string
	add := func(format string, args ...any) {
		violations = append(violations, fmt.Sprintf(format, args...))
	}

	if !s.inRange(a.TotalScore) {
		add("totalScore %d is outside %d-%d", a.TotalScore, s.MinScore, s.MaxScore)
	}

	allowed := make(map[Category]bool, len(s.Categories))
	for _, c := range s.Categories {
		allowed[c] = true
	}
	seen := make(map[Category]bool, len(a.CategoryScores))
	for i, cs := range a.CategoryScores {
		switch {
		case !allowed[cs.Name]:
			add("categoryScores[%d] has unknown category %q", i, cs.Name)
		case seen[cs.Name]:
			add("categoryScores[%d] duplicates category %q", i, cs.Name)
		}
		seen[cs.Name] = true
		if !s.inRange(cs.Score) {
			add("categoryScores[%d] score %d is outside %d-%d", i, cs.Score, s.MinScore, s.MaxScore)
		}
		if textLen(cs.Comment) < s.MinCommentLength {
			add("categoryScores[%d] comment is shorter than %d characters", i, s.MinCommentLength)
		}
	}
	for _, c := range s.Categories {
		if !seen[c] {
			add("categoryScores is missing category %q", c)
		}
	}

	for i, v := range a.Strengths {
		if textLen(v) < s.MinStrengthLength {
			add("strengths[%d] is shorter than %d characters", i, s.MinStrengthLength)
		}
	}
	for i, v := range a.AreasForImprovement {
		if textLen(v) < s.MinImprovementLength {
			add("areasForImprovement[%d] is shorter than %d characters", i, s.MinImprovementLength)
		}
	}
	if textLen(a.FinalAssessment) < s.MinFinalAssessmentLength {
		add("finalAssessment is shorter than %d characters", s.MinFinalAssessmentLength)
	}

	if len(violations) > 0 {
		return &apperrors.GenerationValidationError{Violations: violations}
	}
	return nil
}

func (s Schema) inRange(score int) bool {
	return score >= s.MinScore && score <= s.MaxScore
}

func textLen(s string) int {
	return utf8.RuneCountInString(strings.TrimSpace(s))
}

// wire mirrors Assessment with loose number types so non-integer scores are
// reported as violations instead of decode failures.
type wire struct {
	TotalScore     *float64 `json:"totalScore"`
	CategoryScores []struct {
		Name    string   `json:"name"`
		Score   *float64 `json:"score"`
		Comment string   `json:"comment"`
	} `json:"categoryScores"`
	Strengths           []string `json:"strengths"`
	AreasForImprovement []string `json:"areasForImprovement"`
	FinalAssessment     string   `json:"finalAssessment"`
}

// Decode parses raw generator output into an Assessment. It tolerates a
// surrounding markdown code fence but nothing else: shape and type problems
// are returned as a *apperrors.GenerationValidationError. Decode does not
// apply the schema; call Schema.Validate on the result.
func Decode(raw []byte) (*Assessment, error) {
	body := StripCodeFence(raw)
	if len(body) == 0 {
		return nil, &apperrors.GenerationValidationError{Violations: []string{"output is empty"}}
	}
	if !gjson.ValidBytes(body) {
		return nil, &apperrors.GenerationValidationError{Violations: []string{"output is not valid JSON"}}
	}
	if !gjson.ParseBytes(body).IsObject() {
		return nil, &apperrors.GenerationValidationError{Violations: []string{"output is not a JSON object"}}
	}

	var w wire
	if err := json.Unmarshal(body, &w); err != nil {
		return nil, &apperrors.GenerationValidationError{Violations: []string{fmt.Sprintf("output does not match the assessment shape: %v", err)}}
	}

	var violations []string
	toInt := func(field string, v *float64) int {
		if v == nil {
			violations = append(violations, field+" is required")
			return 0
		}
		if *v != math.Trunc(*v) {
			violations = append(violations, fmt.Sprintf("%s %v is not an integer", field, *v))
		}
		return int(*v)
	}

	a := &Assessment{
		TotalScore:          toInt("totalScore", w.TotalScore),
		Strengths:           w.Strengths,
		AreasForImprovement: w.AreasForImprovement,
		FinalAssessment:     w.FinalAssessment,
	}
	for i, cs := range w.CategoryScores {
		a.CategoryScores = append(a.CategoryScores, CategoryScore{
			Name:    Category(cs.Name),
			Score:   toInt(fmt.Sprintf("categoryScores[%d].score", i), cs.Score),
			Comment: cs.Comment,
		})
	}

	if len(violations) > 0 {
		return nil, &apperrors.GenerationValidationError{Violations: violations}
	}
	return a, nil
}

// StripCodeFence removes a leading ``` or ```json line and a trailing ```
// from model output.
func StripCodeFence(raw []byte) []byte {
	body := bytes.TrimSpace(raw)
	if !bytes.HasPrefix(body, []byte("```")) {
		return body
	}
	if i := bytes.IndexByte(body, '\n'); i >= 0 {
		body = body[i+1:]
	} else {
		body = bytes.TrimPrefix(body, []byte("```"))
	}
	body = bytes.TrimSpace(body)
	body = bytes.TrimSuffix(body, []byte("```"))
	return bytes.TrimSpace(body)
}

// JSONSchema renders s as a JSON Schema document for providers that accept
// one verbatim.
func (s Schema) JSONSchema() map[string]any {
	score := map[string]any{"type": "integer", "minimum": s.MinScore, "maximum": s.MaxScore}
	stringList := func(minLength int) map[string]any {
		return map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "string", "minLength": minLength},
		}
	}
	names := make([]string, len(s.Categories))
	for i, c := range s.Categories {
		names[i] = string(c)
	}

	properties := map[string]any{
		"totalScore": score,
		"categoryScores": map[string]any{
			"type":     "array",
			"minItems": len(s.Categories),
			"maxItems": len(s.Categories),
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"name":    map[string]any{"type": "string", "enum": names},
					"score":   score,
					"comment": map[string]any{"type": "string", "minLength": s.MinCommentLength},
				},
				"required":             []string{"name", "score", "comment"},
				"additionalProperties": false,
			},
		},
		"strengths":           stringList(s.MinStrengthLength),
		"areasForImprovement": stringList(s.MinImprovementLength),
		"finalAssessment":     map[string]any{"type": "string", "minLength": s.MinFinalAssessmentLength},
	}
	for _, l := range s.ExtraLists {
		properties[l.Name] = stringList(l.MinLength)
	}

	return map[string]any{
		"type":                 "object",
		"properties":           properties,
		"required":             s.RequiredFields(),
		"additionalProperties": false,
	}
}

// RequiredFields lists every top level field in response order.
func (s Schema) RequiredFields() []string {
	fields := []string{"totalScore", "categoryScores", "strengths", "areasForImprovement"}
	for _, l := range s.ExtraLists {
		fields = append(fields, l.Name)
	}
	return append(fields, "finalAssessment")
}
