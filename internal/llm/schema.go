package llm

// BuildCategoryJSONSchema returns a JSON-Schema (draft 2020-12 subset) as a generic map.
// We pass this to OpenAI as a structured output constraint and also use it locally to validate.
func BuildCategoryJSONSchema(labels []string) map[string]any {
	category := map[string]any{"type": "string", "minLength": 1}
	if len(labels) > 0 {
		category = map[string]any{
			"type": "string",
			"enum": labels,
		}
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"category": category,
		},
		"required": []string{"category"},
	}
}
