package assessment

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/krshsl/praxis/feedback/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validResumeAnalysis() *ResumeAnalysis {
	r := &ResumeAnalysis{
		Assessment: Assessment{
			TotalScore:          72,
			Strengths:           []string{"Concise project summaries"},
			AreasForImprovement: []string{"Add measurable outcomes to each role"},
			FinalAssessment:     "A readable resume with relevant experience that undersells the impact of the candidate's work.",
		},
		SuggestedImprovements: []string{"Lead each bullet with an action verb"},
		KeywordSuggestions:    []string{"Kubernetes", "CI/CD"},
	}
	for _, c := range ResumeCategories {
		r.CategoryScores = append(r.CategoryScores, CategoryScore{Name: c, Score: 70, Comment: "Solid but could be sharper"})
	}
	return r
}

func TestResumeSchema(t *testing.T) {
	s := ResumeSchema()
	assert.Equal(t, "resume_analysis", s.Name)
	assert.Equal(t, ResumeCategories, s.Categories)
	assert.Equal(t, []string{
		"totalScore", "categoryScores", "strengths", "areasForImprovement",
		SuggestedImprovementsField, KeywordSuggestionsField, "finalAssessment",
	}, s.RequiredFields())

	raw, err := json.Marshal(s.JSONSchema())
	require.NoError(t, err)
	for _, c := range ResumeCategories {
		assert.Contains(t, string(raw), string(c))
		assert.NotEmpty(t, c.Description())
	}
	assert.Contains(t, string(raw), `"keywordSuggestions"`)
	assert.NotContains(t, string(raw), string(CommunicationSkills))
}

func TestDecodeResume(t *testing.T) {
	valid, err := json.Marshal(validResumeAnalysis())
	require.NoError(t, err)

	t.Run("round trip", func(t *testing.T) {
		r, err := DecodeResume(valid)
		require.NoError(t, err)
		assert.Equal(t, validResumeAnalysis(), r)
	})

	t.Run("missing suggestion lists decode as empty", func(t *testing.T) {
		a, err := json.Marshal(validResumeAnalysis().Assessment)
		require.NoError(t, err)

		r, err := DecodeResume([]byte("```json\n" + string(a) + "\n```"))
		require.NoError(t, err)
		assert.Empty(t, r.SuggestedImprovements)
		assert.NotNil(t, r.KeywordSuggestions)
	})

	tests := []struct {
		name    string
		raw     string
		wantErr string
	}{
		{"not json", "Here is my review", "output is not valid JSON"},
		{"list is an object", `{"totalScore":70,"keywordSuggestions":{"a":1}}`, "keywordSuggestions is not an array"},
		{"list entry not a string", `{"totalScore":70,"suggestedImprovements":["Use verbs",3]}`, "suggestedImprovements[1] is not a string"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeResume([]byte(tt.raw))
			require.ErrorIs(t, err, apperrors.ErrGenerationValidation)
			assert.Contains(t, strings.Join(violationsOf(t, err), "\n"), tt.wantErr)
		})
	}
}

func TestValidateResume(t *testing.T) {
	schema := ResumeSchema()

	tests := []struct {
		name    string
		mutate  func(r *ResumeAnalysis)
		wantErr []string
	}{
		{
			name:   "valid",
			mutate: func(r *ResumeAnalysis) {},
		},
		{
			name: "empty suggestion lists are accepted",
			mutate: func(r *ResumeAnalysis) {
				r.SuggestedImprovements = nil
				r.KeywordSuggestions = nil
			},
		},
		{
			name: "interview categories are rejected",
			mutate: func(r *ResumeAnalysis) {
				r.CategoryScores[0].Name = CommunicationSkills
			},
			wantErr: []string{`unknown category "Communication Skills"`, `missing category "Content Quality"`},
		},
		{
			name: "short entries are reported with assessment violations",
			mutate: func(r *ResumeAnalysis) {
				r.TotalScore = 120
				r.SuggestedImprovements = []string{"Fix it"}
				r.KeywordSuggestions = []string{"Go", "k"}
			},
			wantErr: []string{
				"totalScore 120 is outside 0-100",
				"suggestedImprovements[0] is shorter than 10",
				"keywordSuggestions[1] is shorter than 2",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validResumeAnalysis()
			tt.mutate(r)

			err := schema.ValidateResume(r)
			if len(tt.wantErr) == 0 {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, apperrors.ErrGenerationValidation)
			joined := strings.Join(violationsOf(t, err), "\n")
			for _, want := range tt.wantErr {
				assert.Contains(t, joined, want)
			}
		})
	}

	assert.ErrorIs(t, schema.ValidateResume(nil), apperrors.ErrGenerationValidation)
}
