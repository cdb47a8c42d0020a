package llm

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"regexp"
	"strconv"
	"strings"
)

var reFence = regexp.MustCompile("```(?:json)?\\n?")

// StripCodeFences removes markdown code fences the model sometimes wraps JSON in.
func StripCodeFences(content string) string {
	return strings.TrimSpace(reFence.ReplaceAllString(content, ""))
}

// NormalizeEnrichmentJSON
// - Renames known synonyms (starting_bid -> recommended_start_bid)
// - Coerces money strings ("$1,200") to numbers; unparseable becomes null
// - Blank strings become null; confidence is lower-cased
// - Removes unknown keys (strict additionalProperties = false friendliness)
func NormalizeEnrichmentJSON(raw []byte, logger *slog.Logger) ([]byte, []string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}

	changed := make([]string, 0, 8)
	renamed := func(from, to string) {
		if v, ok := m[from]; ok {
			if _, exists := m[to]; !exists {
				m[to] = v
			}
			delete(m, from)
			changed = append(changed, from+"->"+to)
		}
	}
	renamed("starting_bid", "recommended_start_bid")
	renamed("start_bid", "recommended_start_bid")
	renamed("value_low", "estimated_value_low")
	renamed("value_high", "estimated_value_high")
	renamed("description", "enhanced_description")

	for _, k := range []string{"estimated_value_low", "estimated_value_high", "recommended_start_bid"} {
		v, ok := m[k]
		if !ok {
			continue
		}
		switch t := v.(type) {
		case nil, float64:
		case string:
			if f, ok := parseMoney(t); ok {
				m[k] = f
				changed = append(changed, k+"(string)")
			} else {
				m[k] = nil
				changed = append(changed, k+"(unparseable)")
			}
		default:
			m[k] = nil
			changed = append(changed, k+"(type)")
		}
	}

	for _, k := range []string{"product_match", "manufacturer", "enhanced_description", "notable_details", "confidence"} {
		v, ok := m[k]
		if !ok {
			continue
		}
		switch t := v.(type) {
		case nil:
		case string:
			s := strings.TrimSpace(t)
			if s == "" || strings.EqualFold(s, "null") {
				m[k] = nil
				changed = append(changed, k+"(empty)")
			} else {
				m[k] = s
			}
		case []any:
			// notable details sometimes arrive as a list of phrases
			parts := make([]string, 0, len(t))
			for _, p := range t {
				parts = append(parts, strings.TrimSpace(fmt.Sprint(p)))
			}
			m[k] = strings.Join(parts, "; ")
			changed = append(changed, k+"(list)")
		default:
			m[k] = fmt.Sprint(t)
			changed = append(changed, k+"(type)")
		}
	}
	if v, ok := m["confidence"].(string); ok {
		m["confidence"] = strings.ToLower(v)
	}

	allowed := map[string]struct{}{
		"product_match": {}, "manufacturer": {}, "estimated_value_low": {}, "estimated_value_high": {},
		"recommended_start_bid": {}, "enhanced_description": {}, "notable_details": {}, "confidence": {},
	}
	for k := range maps.Clone(m) {
		if _, ok := allowed[k]; !ok {
			delete(m, k)
			changed = append(changed, k+"(unknown)")
		}
	}

	out, err := json.Marshal(m)
	if err != nil {
		return nil, changed, fmt.Errorf("sanitize: encode: %w", err)
	}
	if len(changed) > 0 {
		logger.Warn("llm.enrich.normalize_sanitize", "changed", changed)
	}
	return out, changed, nil
}

// parseMoney accepts "1200", "$1,200.50" and "USD 80".
func parseMoney(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.ToUpper(s), "USD")
	s = strings.NewReplacer("$", "", ",", "", " ", "").Replace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
