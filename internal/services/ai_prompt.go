package services

import (
	"fmt"
	"slices"
	"strings"

	"github.com/SAP-F-2025/quiz-service/internal/models"
)

var difficultyGuidelines = map[models.AIDifficulty]string{
	models.DifficultyBeginner: `- Focus on basic concepts, definitions, and fundamental principles
- Questions should test recognition and basic understanding
- Use simple language and avoid complex terminology
- Expect direct answers from core course content`,
	models.DifficultyIntermediate: `- Focus on application, analysis, and problem-solving
- Questions should require understanding relationships between concepts
- Include practical scenarios and real-world applications
- Test ability to apply knowledge, not just memorize facts`,
	models.DifficultyAdvanced: `- Focus on complex scenarios, critical thinking, and evaluation
- Questions should require synthesis of multiple concepts
- Include analysis of trade-offs, design decisions, and advanced applications
- Test deep understanding and ability to critique or extend concepts`,
}

var questionTypeSpecs = map[models.QuestionType]string{
	models.MultipleChoice: `For multiple_choice questions:
- Provide exactly 4 options (A, B, C, D)
- Only one correct answer, other options must be plausible but incorrect
- Options should be similar in length and format
- correct_answer should be the index (0, 1, 2, or 3) of the correct option
- Make distractors educational, not obviously wrong`,
	models.TrueFalse: `For true_false questions:
- Statement must be clearly either true or false based on course content
- Avoid ambiguous statements that could be interpreted differently
- correct_answer should be exactly "True" or "False" (case-sensitive)
- Statements should be specific factual claims`,
	models.ShortAnswer: `For short_answer questions:
- Require a specific, concise factual answer (1-3 words typically)
- Answer should be unambiguous and directly from course content
- Avoid questions that could have multiple valid answers
- Test specific knowledge rather than opinions`,
}

// courseExample maps title keywords to sample questions. Order matters: the
// first entry with a matching keyword wins.
type courseExample struct {
	keywords []string
	examples []string
}

var courseExamples = []courseExample{
	{[]string{"python", "programming"}, []string{
		"What is the output of print(2**3) in Python?",
		"How do you define a function in Python?",
		"What is the difference between list and tuple?",
	}},
	{[]string{"data science", "data"}, []string{
		"What is the difference between supervised and unsupervised learning?",
		"How does linear regression work?",
		"What is the purpose of data preprocessing?",
		"How do you handle missing values in a dataset?",
	}},
	{[]string{"petroleum", "oil"}, []string{
		"What is the process of oil refining?",
		"How does hydraulic fracturing work?",
		"What are the main components of crude oil?",
		"What is reservoir engineering?",
	}},
	{[]string{"computer engineering"}, []string{
		"What is the difference between Von Neumann and Harvard architecture?",
		"How does a CPU execute instructions?",
		"What are the main components of an operating system?",
		"How does memory hierarchy work?",
	}},
	{[]string{"mechanical engineering"}, []string{
		"What are Newton's laws of motion?",
		"How does a heat engine work?",
		"What is stress-strain relationship in materials?",
		"How do you calculate moment of inertia?",
	}},
	{[]string{"civil engineering"}, []string{
		"What are the different types of foundations?",
		"How do you calculate beam deflection?",
		"What is the purpose of reinforced concrete?",
		"How does structural analysis work?",
	}},
	{[]string{"electrical engineering"}, []string{
		"What is Ohm's law?",
		"How does an electric circuit work?",
		"What is electromagnetic induction?",
		"How do transformers work?",
	}},
	{[]string{"chemical engineering"}, []string{
		"What is mass balance in chemical processes?",
		"How does distillation work?",
		"What are the principles of chemical reactors?",
		"How do you calculate reaction rates?",
	}},
	{[]string{"database", "sql"}, []string{
		"What is the purpose of SQL JOIN?",
		"What is database normalization?",
		"What is the difference between PRIMARY KEY and FOREIGN KEY?",
	}},
	{[]string{"web", "django"}, []string{
		"What is the MVC pattern in web development?",
		"How does Django handle URL routing?",
		"What is the purpose of middleware?",
	}},
	{[]string{"math", "calculus"}, []string{
		"What is the derivative of x²?",
		"How do you solve quadratic equations?",
		"What is the Pythagorean theorem?",
	}},
	{[]string{"statistics", "probability"}, []string{
		"What is the difference between mean and median?",
		"How does hypothesis testing work?",
		"What is a normal distribution?",
		"How do you calculate confidence intervals?",
	}},
	{[]string{"physics"}, []string{
		"What is Newton's second law?",
		"How does wave interference work?",
		"What is the photoelectric effect?",
		"How do you calculate work and energy?",
	}},
	{[]string{"chemistry"}, []string{
		"What is the periodic table organization?",
		"How does acid-base titration work?",
		"What are chemical reaction types?",
		"How do you balance chemical equations?",
	}},
}

const outputFormat = `[
  {
    "type": "multiple_choice",
    "content": "Specific question about course content",
    "options": ["Option A", "Option B", "Correct Option C", "Option D"],
    "correct_answer": 2,
    "explanation": "Clear explanation of why this is correct and why other options are wrong"
  },
  {
    "type": "true_false",
    "content": "Clear true/false statement about course content",
    "correct_answer": "True",
    "explanation": "Explanation supporting the true/false nature of the statement"
  },
  {
    "type": "short_answer",
    "content": "Question requiring a specific, concise answer",
    "correct_answer": "Precise answer",
    "explanation": "Context for the correct answer"
  }
]`

// BuildPrompt renders the generation prompt for a course
func BuildPrompt(course *models.Course, params GenerationParams) string {
	types := make([]string, 0, len(params.QuestionTypes))
	for _, t := range params.QuestionTypes {
		types = append(types, string(t))
	}

	var b strings.Builder
	b.WriteString("# AI QUIZ GENERATION TASK\n\n")

	b.WriteString("## COURSE CONTEXT\n")
	b.WriteString(courseContext(course))
	b.WriteString("\n\n")

	b.WriteString("## QUIZ CONFIGURATION\n")
	fmt.Fprintf(&b, "- Difficulty Level: %s\n", params.Difficulty)
	fmt.Fprintf(&b, "- Number of Questions: %d (MUST generate exactly this many)\n", params.NumQuestions)
	fmt.Fprintf(&b, "- Question Types: %s\n", strings.Join(types, ", "))
	b.WriteString(topicFocus(params.Topics))
	b.WriteString("\n\n")

	b.WriteString("## DIFFICULTY GUIDELINES\n")
	b.WriteString(guidelinesFor(params.Difficulty))
	b.WriteString("\n\n")

	b.WriteString("## QUESTION FORMAT REQUIREMENTS\n")
	var specs []string
	for _, t := range models.AIQuestionTypes {
		if slices.Contains(params.QuestionTypes, t) {
			specs = append(specs, questionTypeSpecs[t])
		}
	}
	b.WriteString(strings.Join(specs, "\n\n"))
	b.WriteString("\n\n")

	b.WriteString(`## QUALITY STANDARDS
- Questions MUST be directly related to the course content
- Avoid generic questions not specific to this course
- Ensure questions test understanding, not just memorization
- Make distractors (wrong answers) plausible and educational
- Include clear, helpful explanations for each correct answer

`)

	b.WriteString("## COURSE-SPECIFIC EXAMPLES\n")
	for _, example := range examplesFor(course) {
		fmt.Fprintf(&b, "- %s\n", example)
	}
	b.WriteString("\n")

	b.WriteString("## OUTPUT FORMAT\n")
	fmt.Fprintf(&b, "Generate exactly %d questions in this JSON format:\n\n", params.NumQuestions)
	b.WriteString(outputFormat)
	b.WriteString("\n\nIMPORTANT: Return ONLY the JSON array. No markdown, no explanations, no additional text.\n")

	return b.String()
}

func courseContext(course *models.Course) string {
	title := course.Title
	if title == "" {
		title = "General Course"
	}
	code := course.Code
	if code == "" {
		code = "N/A"
	}

	parts := []string{
		"Course Title: " + title,
		"Course Code: " + code,
	}
	if course.Summary != "" {
		parts = append(parts, "Course Description: "+course.Summary)
	}
	if course.Program != nil {
		parts = append(parts, "Program: "+course.Program.Title)
		if course.Program.Summary != "" {
			parts = append(parts, "Program Summary: "+course.Program.Summary)
		}
	}
	if course.Level != "" {
		parts = append(parts, "Academic Level: "+string(course.Level))
	}
	if course.Year > 0 {
		parts = append(parts, fmt.Sprintf("Year: %d", course.Year))
	}
	if course.Semester != "" {
		parts = append(parts, "Semester: "+string(course.Semester))
	}
	if course.Credit > 0 {
		parts = append(parts, fmt.Sprintf("Credit Hours: %d", course.Credit))
	}
	if course.IsElective {
		parts = append(parts, "Course Type: Elective")
	} else {
		parts = append(parts, "Course Type: Required")
	}

	lines := make([]string, len(parts))
	for i, part := range parts {
		lines[i] = "- " + part
	}
	return strings.Join(lines, "\n")
}

func topicFocus(topics []string) string {
	if len(topics) == 0 {
		return "- Specific Topics: Focus on all core course content areas"
	}
	return "- Specific Topics to emphasize: " + strings.Join(topics, ", ") +
		"\n- Ensure questions specifically relate to these topics within the course context"
}

func guidelinesFor(difficulty models.AIDifficulty) string {
	if g, ok := difficultyGuidelines[models.AIDifficulty(strings.ToLower(string(difficulty)))]; ok {
		return g
	}
	return difficultyGuidelines[models.DifficultyIntermediate]
}

func examplesFor(course *models.Course) []string {
	title := strings.ToLower(course.Title)
	for _, entry := range courseExamples {
		for _, keyword := range entry.keywords {
			if strings.Contains(title, keyword) {
				return entry.examples
			}
		}
	}

	name := course.Title
	if name == "" {
		name = "General Course"
	}
	return []string{
		"Key concepts from " + name,
		"Important theories or principles",
		"Practical applications",
		"Historical context or developments",
	}
}
