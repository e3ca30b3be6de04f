package generator

import (
	"fmt"
	"strings"

	"github.com/readlevel/backend/internal/models"
	"github.com/readlevel/backend/internal/questions"
)

// questionSkills are the comprehension skills a drafted quiz should spread
// across.
var questionSkills = []string{
	"recall of a key plot event",
	"character motivation",
	"cause and effect",
	"sequence of events",
	"vocabulary in context",
	"main idea or theme",
	"setting",
	"inference from evidence in the text",
}

// typeShapes documents the JSON fields of each question type for the model.
var typeShapes = map[questions.Type]string{
	questions.TypeMultipleChoice: `{"type":"multiple_choice","prompt":"...","options":["...","...","...","..."],"correct_index":0}`,
	questions.TypeMultiSelect:    `{"type":"multi_select","prompt":"...","options":["...","...","...","..."],"correct_indices":[0,2]}`,
	questions.TypeShortAnswer:    `{"type":"short_answer","prompt":"...","accepted_values":["...","..."]}`,
	questions.TypeTrueFalse:      `{"type":"true_false","prompt":"...","correct_answer":true}`,
}

const quizSystemPrompt = `You write reading comprehension quizzes for school-age readers.

A quiz checks that a student actually read and understood a specific book. Every question must be
answerable by someone who read the book and hard to guess for someone who did not.

RULES:
- Ask about the book's content: events, characters, setting, vocabulary, themes.
- Match the reading level of the book. Keep prompts to one or two short sentences.
- Never reveal the answer in the prompt.
- multiple_choice: 4 options, exactly one correct; distractors must be plausible for the book.
- multi_select: 4 or 5 options, two or more correct.
- short_answer: the answer is one word or a short name; list every reasonable spelling in accepted_values.
- true_false: state a specific fact from the book, true or false.
- Vary which option index is correct.

OUTPUT: respond with a single JSON object {"questions":[...]} and nothing else. No markdown.`

// QuizSystemPrompt returns the system prompt for drafting quiz questions.
func QuizSystemPrompt() string {
	return quizSystemPrompt
}

// BuildQuizUserPrompt asks for count questions about book using only the
// listed question types.
func BuildQuizUserPrompt(book models.Book, count int, types []questions.Type) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Write %d quiz questions about the book %q", count, book.Title)
	if book.Author != "" {
		fmt.Fprintf(&b, " by %s", book.Author)
	}
	b.WriteString(".\n\n")

	if book.LexileMeasure > 0 {
		fmt.Fprintf(&b, "Book reading level: %.0fL.\n", book.LexileMeasure)
	}
	if len(book.Genres) > 0 {
		fmt.Fprintf(&b, "Genres: %s.\n", strings.Join(book.Genres, ", "))
	}
	if book.Description != "" {
		fmt.Fprintf(&b, "Summary: %s\n", book.Description)
	}

	b.WriteString("\nCover a mix of these skills:\n")
	for _, s := range questionSkills {
		fmt.Fprintf(&b, "- %s\n", s)
	}

	b.WriteString("\nUse only these question shapes:\n")
	for _, t := range types {
		if shape, ok := typeShapes[t]; ok {
			fmt.Fprintf(&b, "%s\n", shape)
		}
	}

	fmt.Fprintf(&b, "\nReturn exactly %d questions in {\"questions\":[...]}.", count)
	return b.String()
}

const verificationSystemPrompt = `You are a careful student who has read the book named below.
Answer the quiz question using only your knowledge of the book.
Respond with a single JSON object and nothing else:
{"answer": <your answer in the same JSON form the question expects>, "confidence": "high" | "medium" | "low"}`

func buildVerificationPrompt(book models.Book, q questions.Question) (string, error) {
	redacted, err := q.Redact().MarshalJSON()
	if err != nil {
		return "", err
	}

	var expect string
	switch q.Type {
	case questions.TypeMultipleChoice:
		expect = "the index of the single correct option, e.g. 2"
	case questions.TypeMultiSelect:
		expect = "an array of the indices of every correct option, e.g. [0,3]"
	case questions.TypeShortAnswer:
		expect = `a short string, e.g. "Wilbur"`
	case questions.TypeTrueFalse:
		expect = "true or false"
	default:
		expect = "a JSON value"
	}

	return fmt.Sprintf("Book: %q\n\nQuestion:\n%s\n\nYour answer must be %s.", book.Title, redacted, expect), nil
}
