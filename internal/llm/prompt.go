package llm

import (
	"strings"

	"github.com/dwesselviax/EstateLogger/constants"
)

const extractionExample = `Example input: "In the living room there's a mahogany bookcase, about six feet tall, good shape. Also a brass floor lamp, needs rewiring."
Example output: [{"name":"Mahogany Bookcase","description":"Six feet tall mahogany bookcase in good condition","category":"Furniture","condition":"good","location":"Living Room"},{"name":"Brass Floor Lamp","description":"Brass floor lamp, needs rewiring","category":"Art & Decor","condition":"fair","location":"Living Room"}]`

// BuildExtractionSystemPrompt composes the instruction for turning a spoken
// walkthrough into item records.
func BuildExtractionSystemPrompt() string {
	parts := []string{
		"You are an estate auction item extraction assistant. Given a transcript of someone describing items in a property, extract each distinct item as a structured record.",
		"",
		"Return a JSON array of items. Each item must have:",
		`- "name": string (concise item name)`,
		`- "description": string (detailed description from context)`,
		`- "category": string (one of: ` + strings.Join(constants.AsStringSlice(), ", ") + ")",
		`- "condition": string (one of: ` + strings.Join(constants.ConditionsAsStringSlice(), ", ") + ")",
		`- "location": string or null (where in the property)`,
		"",
		"Rules:",
		"- Extract EVERY distinct physical item mentioned",
		`- Handle corrections mid-stream (e.g., "actually that's walnut not oak"): update the relevant item instead of adding a second one`,
		`- If unsure about a field, use reasonable defaults (condition: "unknown", category: "Miscellaneous")`,
		"- Return ONLY the JSON array, no other text",
		"",
		extractionExample,
	}
	return strings.Join(parts, "\n")
}

// BuildEnrichmentSystemPrompt asks for auction pricing and listing copy for one item.
func BuildEnrichmentSystemPrompt() string {
	parts := []string{
		"You are an estate auction enrichment specialist. Given an item name, description, category, and condition, provide market intelligence for auction listing.",
		"",
		"Return a single JSON object with:",
		`- "product_match": string or null (specific product identification: manufacturer, model, era)`,
		`- "manufacturer": string or null`,
		`- "estimated_value_low": number (low end of estimated auction value in USD)`,
		`- "estimated_value_high": number (high end of estimated auction value in USD)`,
		`- "recommended_start_bid": number (suggested opening bid in USD)`,
		`- "enhanced_description": string (a polished, auction-ready description of 2-3 sentences)`,
		`- "notable_details": string (era, maker, provenance signals, collectibility factors)`,
		`- "confidence": "high" | "medium" | "low" (how confident you are in the pricing)`,
		"",
		"Base your estimates on typical auction results for similar items. Be realistic and do not inflate values. Factor in condition when pricing.",
		"",
		"Return ONLY the JSON object, no other text.",
	}
	return strings.Join(parts, "\n")
}

// BuildEnrichmentUserPrompt lists the item's known attributes, one per line.
func BuildEnrichmentUserPrompt(item ItemContext) string {
	orDefault := func(s, def string) string {
		if strings.TrimSpace(s) == "" {
			return def
		}
		return s
	}

	var b strings.Builder
	b.WriteString("Item: ")
	b.WriteString(item.Name)
	b.WriteString("\nDescription: ")
	b.WriteString(orDefault(item.Description, "No description"))
	b.WriteString("\nCategory: ")
	b.WriteString(item.Category)
	b.WriteString("\nCondition: ")
	b.WriteString(orDefault(item.Condition, string(constants.ConditionUnknown)))
	b.WriteString("\nLocation: ")
	b.WriteString(orDefault(item.Location, "Unknown"))
	return b.String()
}
