package generation

import (
	"fmt"
	"strings"
)

var cardTypeInstructions = map[string]string{
	"basic":          "Each card has a question on the front and a concise answer on the back.",
	"cloze":          "Each card is a cloze deletion: the front contains a sentence with the key term replaced by {{c1::...}}, the back repeats the full sentence.",
	"basic_reversed": "Each card is a term/definition pair that reads well in both directions.",
}

func cardSystemPrompt(cardType, difficulty, language string) string {
	instruction, ok := cardTypeInstructions[cardType]
	if !ok {
		instruction = cardTypeInstructions["basic"]
	}
	return fmt.Sprintf(
		"You are an expert flashcard author. Create %s-difficulty flashcards in %s. %s "+
			"Respond with a JSON array of objects, each with \"front\", \"back\" and optional \"tags\" fields. "+
			"Keep fronts unambiguous and backs factual and short.",
		difficulty, language, instruction,
	)
}

func cardUserPrompt(topic string, numCards int, contextItems []RetrievedContext, tags []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Create exactly %d flashcards about: %s\n", numCards, topic)
	if len(contextItems) > 0 {
		b.WriteString("\nUse the following source material where relevant:\n")
		for _, item := range contextItems {
			fmt.Fprintf(&b, "- [%s] %s\n", item.Source, item.Content)
		}
	}
	if len(tags) > 0 {
		fmt.Fprintf(&b, "\nSuggested tags: %s\n", strings.Join(tags, ", "))
	}
	return b.String()
}

// cardResponseSchema constrains structured generation to a cards array.
// Structured outputs require an object at the top level, so the array is
// wrapped under a "cards" key.
func cardResponseSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"cards": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"front": map[string]any{"type": "string"},
						"back":  map[string]any{"type": "string"},
						"tags":  map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
					},
					"required":             []string{"front", "back", "tags"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []string{"cards"},
		"additionalProperties": false,
	}
}

const claimSystemPrompt = "You extract verifiable factual claims from text. " +
	"Respond with a JSON array of objects, each with \"claim\" (the assertion), " +
	"\"type\" (historical, definition, statistic, scientific or other) and " +
	"\"importance\" (high, medium or low)."

func claimUserPrompt(content string) string {
	return "Extract the factual claims from the following text:\n\n" + content
}

func claimResponseSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"claims": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"claim":      map[string]any{"type": "string"},
						"type":       map[string]any{"type": "string"},
						"importance": map[string]any{"type": "string"},
					},
					"required":             []string{"claim", "type", "importance"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []string{"claims"},
		"additionalProperties": false,
	}
}
