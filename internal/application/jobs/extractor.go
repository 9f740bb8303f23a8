package jobs

import (
	"context"
	"strings"
)

// ExtractedRecipe is the structured result of transcript extraction.
type ExtractedRecipe struct {
	Title        string   `json:"title"`
	Ingredients  []string `json:"ingredients"`
	Instructions []string `json:"instructions"`
	// Source records which extractor produced the recipe: "llm" for the
	// primary pipeline, "keyword" for the deterministic fallback.
	Source string `json:"source"`
}

// Extractor turns a cooking-video transcript into a structured recipe.
// The primary implementation is the platform's LLM pipeline, which this
// engine treats as a black box and which may fail.
type Extractor interface {
	Extract(ctx context.Context, transcript string) (*ExtractedRecipe, error)
}

// measurement words that mark an ingredient line in a transcript.
var measurementWords = []string{
	"cup", "cups", "tablespoon", "tablespoons", "tbsp", "teaspoon",
	"teaspoons", "tsp", "ounce", "ounces", "oz", "pound", "pounds", "lb",
	"gram", "grams", "clove", "cloves", "pinch", "dash",
}

// instruction verbs that mark a step line.
var instructionVerbs = []string{
	"preheat", "mix", "stir", "whisk", "combine", "add", "pour", "bake",
	"fry", "saute", "simmer", "boil", "chop", "dice", "slice", "fold",
	"knead", "season", "serve", "cook", "heat",
}

// KeywordExtractor is the deterministic fallback used when the primary
// extractor fails. It always succeeds.
type KeywordExtractor struct{}

// Extract scans the transcript line by line: lines with measurement
// words become ingredients, lines starting with instruction verbs become
// steps. The first non-empty line is the title.
func (KeywordExtractor) Extract(ctx context.Context, transcript string) (*ExtractedRecipe, error) {
	recipe := &ExtractedRecipe{Source: "keyword"}

	for _, line := range strings.Split(transcript, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lower := strings.ToLower(line)

		if recipe.Title == "" {
			recipe.Title = line
			continue
		}
		if containsAny(lower, measurementWords) {
			recipe.Ingredients = append(recipe.Ingredients, line)
			continue
		}
		if startsWithAny(lower, instructionVerbs) {
			recipe.Instructions = append(recipe.Instructions, line)
		}
	}

	if recipe.Title == "" {
		recipe.Title = "Untitled recipe"
	}
	return recipe, nil
}

func containsAny(line string, words []string) bool {
	for _, field := range strings.Fields(line) {
		field = strings.Trim(field, ",.;:")
		for _, w := range words {
			if field == w {
				return true
			}
		}
	}
	return false
}

func startsWithAny(line string, verbs []string) bool {
	first, _, _ := strings.Cut(line, " ")
	first = strings.Trim(first, ",.;:")
	for _, v := range verbs {
		if first == v {
			return true
		}
	}
	return false
}
