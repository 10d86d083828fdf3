package services

import (
	"fmt"
	"strings"

	"github.com/krshsl/praxis/feedback/assessment"
	"github.com/krshsl/praxis/feedback/models"
)

// PromptVersion is stored with every feedback so results can be traced back
// to the prompt that produced them. Bump it whenever the prompts change.
const PromptVersion = "2.0"

const feedbackSystemPrompt = "You are a professional interview coach providing detailed, constructive feedback to help candidates improve their interview skills."

// buildFeedbackPrompt embeds the interview context, the normalized
// transcript and the scoring rubric into a single prompt
func buildFeedbackPrompt(interview *models.Interview, normalized string, turns int, schema assessment.Schema) Prompt {
	var criteria strings.Builder
	for _, c := range schema.Categories {
		fmt.Fprintf(&criteria, "- %s: %s\n", c, c.Description())
	}

	user := fmt.Sprintf(`You are an expert technical interviewer analyzing a mock interview session.

INTERVIEW CONTEXT:
- Role: %s
- Level: %s
- Type: %s
- Technologies: %s
- Duration: Approximately %d exchanges

TRANSCRIPT:
%s

ANALYSIS INSTRUCTIONS:
Please provide a comprehensive evaluation with specific, actionable feedback. Be thorough but constructive.

SCORING CRITERIA (%d-%d):
%s
Score every category above exactly once, using these exact names, with a comment of at least %d characters.
totalScore is an integer between %d and %d reflecting the overall performance.

REQUIREMENTS:
- Provide specific examples from the transcript
- Offer actionable improvement suggestions of at least %d characters each
- Be encouraging while identifying areas for growth
- Consider the experience level (%s) in your evaluation
- Focus on interview performance, not just technical accuracy
- Write a final assessment of at least %d characters`,
		interview.Role,
		interview.Level,
		interview.Type,
		strings.Join(interview.TechStack, ", "),
		turns,
		normalized,
		schema.MinScore, schema.MaxScore,
		criteria.String(),
		schema.MinCommentLength,
		schema.MinScore, schema.MaxScore,
		schema.MinImprovementLength,
		interview.Level,
		schema.MinFinalAssessmentLength,
	)

	return Prompt{System: feedbackSystemPrompt, User: user}
}

// buildQuestionsPrompt asks for a JSON array of voice friendly questions
func buildQuestionsPrompt(req QuestionRequest) Prompt {
	techstack := strings.Join(req.TechStack, ", ")
	user := fmt.Sprintf(`Generate %d professional interview questions for a %s position.

Requirements:
- Experience Level: %s
- Technology Stack: %s
- Focus: %s (behavioral vs technical balance)
- Format: Return ONLY a valid JSON array of strings
- Voice-friendly: No special characters like "/", "*", or complex formatting
- Professional tone: Suitable for real interview scenarios

Example format: ["Question 1 here", "Question 2 here", "Question 3 here"]

Generate exactly %d questions that are:
1. Relevant to the %s role
2. Appropriate for %s experience level
3. Incorporating %s technologies where applicable
4. Balanced towards %s interview style
5. Clear and conversational for voice interaction`,
		req.Amount, req.Role,
		req.Level,
		techstack,
		req.Type,
		req.Amount,
		req.Role,
		req.Level,
		techstack,
		req.Type,
	)
	return Prompt{User: user}
}

const resumeSystemPrompt = "You are a professional resume reviewer with extensive experience in HR, recruitment, and career coaching. Provide detailed, constructive feedback that helps candidates improve their resumes."

// buildResumePrompt asks for a scored review of resumeText against jobTitle
func buildResumePrompt(resumeText, jobTitle string, schema assessment.Schema) Prompt {
	var criteria strings.Builder
	for i, c := range schema.Categories {
		fmt.Fprintf(&criteria, "%d. %s: %s\n", i+1, c, c.Description())
	}

	user := fmt.Sprintf(`You are an expert resume reviewer and career coach. Analyze the following resume content for a %s position. Provide detailed, constructive feedback to help improve the resume.

Resume Content:
%s

Please evaluate the resume on a scale of %d-%d in the following categories:

%s
Score every category above exactly once, using these exact names, with a comment of at least %d characters.
totalScore is the overall resume score between %d and %d.

Provide:
- Specific strengths of the resume
- Areas that need improvement, at least %d characters each
- Concrete suggestions for enhancement in %s
- Relevant keywords that should be included in %s
- An overall assessment with actionable advice of at least %d characters

Be thorough, specific, and provide actionable recommendations. Focus on both content and presentation aspects.`,
		jobTitle,
		resumeText,
		schema.MinScore, schema.MaxScore,
		criteria.String(),
		schema.MinCommentLength,
		schema.MinScore, schema.MaxScore,
		schema.MinImprovementLength,
		assessment.SuggestedImprovementsField,
		assessment.KeywordSuggestionsField,
		schema.MinFinalAssessmentLength,
	)
	return Prompt{System: resumeSystemPrompt, User: user}
}

// buildChatPrompt frames a single assistant turn. previous is optional
// conversation context supplied by the client.
func buildChatPrompt(message, previous string) Prompt {
	var b strings.Builder
	b.WriteString("You are an expert AI assistant specializing in job interviews and Data Structures & Algorithms (DSA). Help users with their interview preparation and technical questions.\n\n")
	fmt.Fprintf(&b, "User's question: %q\n\n", message)
	if previous != "" {
		fmt.Fprintf(&b, "Previous context: %s\n\n", previous)
	}
	b.WriteString(`Guidelines for your response:
1. Be helpful, accurate, and encouraging
2. Focus on job interview preparation and DSA concepts
3. Provide clear, step-by-step explanations
4. Include relevant examples when helpful
5. Suggest follow-up questions or related topics
6. Keep responses conversational but informative
7. If the question is not related to interviews or DSA, politely redirect to those topics`)
	return Prompt{User: b.String()}
}
