package llm

// ContextVerdictSchema is the JSON-Schema the contextual check response must satisfy.
func ContextVerdictSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"is_appropriate":        map[string]any{"type": "boolean"},
			"confidence":            map[string]any{"type": "number", "minimum": 0.0, "maximum": 1.0},
			"issue_description":     map[string]any{"type": "string"},
			"suggested_alternative": map[string]any{"type": "string"},
		},
		"required": []string{"is_appropriate"},
	}
}

// FormStructureSchema describes the JSON form-structure files accepted by the forms loader.
func FormStructureSchema() map[string]any {
	field := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"id":       map[string]any{"type": "string", "minLength": 1},
			"name":     map[string]any{"type": "string"},
			"type":     map[string]any{"type": "string"},
			"context":  map[string]any{"type": "string"},
			"section":  map[string]any{"type": "string"},
			"required": map[string]any{"type": "boolean"},
			"location": map[string]any{"type": "string"},
		},
		"required": []string{"id"},
	}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name": map[string]any{"type": "string"},
			"sections": map[string]any{
				"type":     "array",
				"minItems": 1,
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"name":   map[string]any{"type": "string"},
						"fields": map[string]any{"type": "array", "items": field},
					},
					"required": []string{"fields"},
				},
			},
			"field_relationships": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"kind":      map[string]any{"type": "string"},
						"field_ids": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
					},
				},
			},
		},
		"required": []string{"sections"},
	}
}
