package bracket

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Lookup walks a dotted path through nested maps and slices. Slice elements
// are addressed by index ("plan.contacts.0.name"). A missing or nil value
// yields "".
func Lookup(data map[string]any, path string) string {
	path = strings.TrimSpace(path)
	if path == "" || data == nil {
		return ""
	}
	var cur any = data
	for _, part := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[part]
			if !ok {
				return ""
			}
			cur = v
		case []any:
			i, err := strconv.Atoi(part)
			if err != nil || i < 0 || i >= len(node) {
				return ""
			}
			cur = node[i]
		default:
			return ""
		}
	}
	return display(cur)
}

func display(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case map[string]any, []any:
		return ""
	default:
		return fmt.Sprint(val)
	}
}

// ContextData converts any JSON-encodable value into the map form Lookup
// walks, so structs can be used as resolution context by their JSON names.
func ContextData(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal context: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("unmarshal context: %w", err)
	}
	return out, nil
}
