package llm

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

var itemOptionals = []string{"description", "category", "condition", "location"}

// NormalizeItemsJSON prepares an extraction response for schema validation.
// A well-formed document that is not an array yields "[]" and isArray=false.
// Within array elements only OPTIONAL fields are touched: blank or non-string
// values are dropped and strings trimmed. Unknown keys are removed. Elements
// that are not objects, or lack a name, are left for the schema to reject.
func NormalizeItemsJSON(doc []byte) (out []byte, isArray bool, dropped []string, err error) {
	var v any
	if err := json.Unmarshal(doc, &v); err != nil {
		return nil, false, nil, err
	}
	arr, ok := v.([]any)
	if !ok {
		return []byte("[]"), false, nil, nil
	}

	for i, el := range arr {
		m, ok := el.(map[string]any)
		if !ok {
			continue
		}
		if name, ok := m["name"].(string); ok {
			m["name"] = strings.TrimSpace(name)
		}
		for _, k := range itemOptionals {
			raw, present := m[k]
			if !present {
				continue
			}
			s, isStr := raw.(string)
			s = strings.TrimSpace(s)
			if !isStr || s == "" || strings.EqualFold(s, "null") {
				delete(m, k)
				if raw != nil {
					dropped = append(dropped, fmt.Sprintf("[%d].%s", i, k))
				}
				continue
			}
			m[k] = s
		}
		for k := range m {
			if k == "name" || slices.Contains(itemOptionals, k) {
				continue
			}
			delete(m, k)
			dropped = append(dropped, fmt.Sprintf("[%d].%s(unknown)", i, k))
		}
	}

	b, err := json.Marshal(arr)
	if err != nil {
		return nil, true, dropped, err
	}
	return b, true, dropped, nil
}
