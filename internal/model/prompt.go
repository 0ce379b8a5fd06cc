package model

// PromptCategory groups generated questions by intent.
type PromptCategory string

const (
	CategoryRecommendation PromptCategory = "recommendation"
	CategoryComparison     PromptCategory = "comparison"
	CategoryLocal          PromptCategory = "local"
	CategoryProblem        PromptCategory = "problem"
	CategoryService        PromptCategory = "service"
)

// AllPromptCategories returns the categories in generation order.
func AllPromptCategories() []PromptCategory {
	return []PromptCategory{
		CategoryRecommendation,
		CategoryComparison,
		CategoryLocal,
		CategoryProblem,
		CategoryService,
	}
}

// ParsePromptCategory maps a free-form label to a known category, falling
// back to recommendation.
func ParsePromptCategory(s string) PromptCategory {
	for _, c := range AllPromptCategories() {
		if string(c) == s {
			return c
		}
	}
	return CategoryRecommendation
}

// Prompt is one generated question posed to every platform.
type Prompt struct {
	ID       string         `json:"id"`
	RunID    string         `json:"run_id"`
	Index    int            `json:"index"`
	Text     string         `json:"text"`
	Category PromptCategory `json:"category"`
}
