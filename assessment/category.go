package assessment

// Category is one of the fixed scoring dimensions of an assessment.
type Category string

const (
	CommunicationSkills  Category = "Communication Skills"
	TechnicalKnowledge   Category = "Technical Knowledge"
	ProblemSolving       Category = "Problem Solving"
	CulturalFit          Category = "Cultural Fit"
	ConfidenceAndClarity Category = "Confidence and Clarity"
)

const (
	ContentQuality         Category = "Content Quality"
	FormattingAndDesign    Category = "Formatting & Design"
	KeywordsAndATS         Category = "Keywords & ATS Optimization"
	ExperienceAchievements Category = "Experience & Achievements"
	SkillsAndCompetencies  Category = "Skills & Competencies"
)

// Categories lists every category in the order they are requested and shown.
var Categories = []Category{
	CommunicationSkills,
	TechnicalKnowledge,
	ProblemSolving,
	CulturalFit,
	ConfidenceAndClarity,
}

var categoryDescriptions = map[Category]string{
	CommunicationSkills:  "Clarity, articulation, professional presentation",
	TechnicalKnowledge:   "Understanding of role-relevant concepts and technologies",
	ProblemSolving:       "Analytical thinking, approach to challenges, solution quality",
	CulturalFit:          "Professional demeanor, collaboration indicators, company alignment",
	ConfidenceAndClarity: "Self-assurance, clear responses, engagement level",

	ContentQuality:         "Clarity, relevance, completeness, and professionalism of the content",
	FormattingAndDesign:    "Visual appeal, organization, readability, and proper use of formatting",
	KeywordsAndATS:         "Use of industry-specific keywords and ATS-friendly formatting",
	ExperienceAchievements: "Quality and impact of work experience descriptions",
	SkillsAndCompetencies:  "Relevance and presentation of technical and soft skills",
}

// Description returns the scoring guidance given to the model for c.
func (c Category) Description() string {
	return categoryDescriptions[c]
}

// IsCategory reports whether name is one of the fixed interview categories.
func IsCategory(name string) bool {
	for _, c := range Categories {
		if string(c) == name {
			return true
		}
	}
	return false
}

// CategoryNames returns the category labels as plain strings.
func CategoryNames() []string {
	names := make([]string, len(Categories))
	for i, c := range Categories {
		names[i] = string(c)
	}
	return names
}
