package domain

// Well-known prompt names. Each template uses fmt verbs as documented.
const (
	// PromptSuggestTitle expects %s (similar titles, comma separated) and %s (content).
	PromptSuggestTitle = "suggest_title"

	// PromptSuggestTags expects %s (content).
	PromptSuggestTags = "suggest_tags"

	// PromptConcepts expects %s (content).
	PromptConcepts = "atomize_concepts"

	// PromptAtomicNote expects %s (concept) and %s (source content).
	PromptAtomicNote = "atomize_note"

	// PromptCleanText expects %s (text).
	PromptCleanText = "clean_text"

	// PromptNLPTask expects %s (task) and %s (text).
	PromptNLPTask = "nlp_task"
)

// DefaultPrompts returns the built-in prompt templates keyed by name.
//
//nolint:lll // Prompt content is intentionally long and should not be wrapped.
func DefaultPrompts() map[string]string {
	return map[string]string{
		PromptSuggestTitle: `Suggest a title for the following note content. Consider these similar note titles for context: %s. Return only the suggested title as plain text:

%s`,

		PromptSuggestTags: `Suggest relevant tags for the following note content. Return the tags as a JSON array of strings, without any symbols:

%s`,

		PromptConcepts: `Identify key concepts in the following text. Return the concepts as a JSON array of strings:

%s`,

		PromptAtomicNote: `Generate an atomic note about "%s" based on the following source content. Return the result as a JSON object with "title" and "content" fields. The content should include a reference back to the original note:

%s`,

		PromptCleanText: `Please clean and improve the following text. Fix any grammatical errors, improve clarity and conciseness, and ensure proper formatting. Return only the cleaned text without any additional comments:

%s`,

		PromptNLPTask: "Perform the following NLP task: %s\n\nText: %s\n\nResult:",
	}
}
