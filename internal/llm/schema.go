package llm

// BuildItemsJSONSchema returns the JSON-Schema (draft 2020-12 subset) an
// extraction response must satisfy. Category and condition stay free-form
// strings here; they are canonicalized after validation.
func BuildItemsJSONSchema() map[string]any {
	item := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name":        map[string]any{"type": "string", "minLength": 1},
			"description": nullableString(),
			"category":    nullableString(),
			"condition":   nullableString(),
			"location":    nullableString(),
		},
		"required": []string{"name"},
	}
	return map[string]any{
		"type":  "array",
		"items": item,
	}
}

// BuildEnrichmentJSONSchema returns the schema for a single enrichment object.
func BuildEnrichmentJSONSchema() map[string]any {
	props := map[string]any{
		"product_match":         nullableString(),
		"manufacturer":          nullableString(),
		"estimated_value_low":   nullableNumber(),
		"estimated_value_high":  nullableNumber(),
		"recommended_start_bid": nullableNumber(),
		"enhanced_description":  nullableString(),
		"notable_details":       nullableString(),
		"confidence":            nullableString(),
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
	}
}

func nullableString() map[string]any {
	return map[string]any{"type": []string{"string", "null"}}
}

func nullableNumber() map[string]any {
	return map[string]any{"type": []string{"number", "null"}}
}
