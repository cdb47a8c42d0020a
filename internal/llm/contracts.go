package llm

import "context"

// ExtractedItem is one object of the extraction array as the model returned it,
// before category and condition normalization.
type ExtractedItem struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	Category    string  `json:"category,omitempty"`
	Condition   string  `json:"condition,omitempty"`
	Location    *string `json:"location,omitempty"`
}

// ItemContext is what the enrichment prompt is told about an item.
type ItemContext struct {
	Name        string
	Description string
	Category    string
	Condition   string
	Location    string
}

// ItemEnrichment is the normalized shape we want back from the enrichment call.
type ItemEnrichment struct {
	ProductMatch        *string  `json:"product_match"`
	Manufacturer        *string  `json:"manufacturer"`
	EstimatedValueLow   *float64 `json:"estimated_value_low"`
	EstimatedValueHigh  *float64 `json:"estimated_value_high"`
	RecommendedStartBid *float64 `json:"recommended_start_bid"`
	EnhancedDescription *string  `json:"enhanced_description"`
	NotableDetails      *string  `json:"notable_details"`
	Confidence          string   `json:"confidence"`
}

// ItemExtractor turns a transcript chunk into item records.
type ItemExtractor interface {
	ExtractItems(ctx context.Context, transcript string) ([]ExtractedItem, []byte /*rawJSON*/, error)
}

// ItemEnricher produces market intelligence for one item.
type ItemEnricher interface {
	EnrichItem(ctx context.Context, item ItemContext) (ItemEnrichment, []byte /*rawJSON*/, error)
}
