package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// jsonMaxDepth caps recursion so hostile nesting cannot blow the stack.
const jsonMaxDepth = 100

// JSONExtractor flattens arbitrary JSON into dotted key-value lines.
// Object keys are emitted in sorted order so the same document always
// extracts to the same text.
type JSONExtractor struct{}

var _ Extractor = (*JSONExtractor)(nil)

// NewJSONExtractor creates a JSON extractor.
func NewJSONExtractor() *JSONExtractor { return &JSONExtractor{} }

func (e *JSONExtractor) Extract(content []byte) (string, error) {
	content = bytes.TrimSpace(content)
	if len(content) == 0 {
		return "", nil
	}
	var data any
	if err := json.Unmarshal(content, &data); err != nil {
		return "", fmt.Errorf("ingest: extract json: %w", err)
	}
	var lines []string
	flattenJSON("", data, &lines, 0)
	return strings.Join(lines, "\n"), nil
}

func flattenJSON(prefix string, v any, lines *[]string, depth int) {
	if depth >= jsonMaxDepth {
		*lines = append(*lines, jsonLabel(prefix)+": <truncated>")
		return
	}
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			flattenJSON(joinKey(prefix, k), val[k], lines, depth+1)
		}
	case []any:
		if scalars := scalarList(val); scalars != nil {
			*lines = append(*lines, jsonLabel(prefix)+": "+strings.Join(scalars, ", "))
			return
		}
		for i, item := range val {
			flattenJSON(prefix+"["+strconv.Itoa(i)+"]", item, lines, depth+1)
		}
	default:
		*lines = append(*lines, jsonLabel(prefix)+": "+jsonScalar(val))
	}
}

// scalarList renders a list of scalars inline, or nil if any element is
// itself an object or array.
func scalarList(items []any) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		switch item.(type) {
		case map[string]any, []any:
			return nil
		}
		out = append(out, jsonScalar(item))
	}
	return out
}

func jsonScalar(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%v", val)
	}
}

func joinKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

func jsonLabel(prefix string) string {
	if prefix == "" {
		return "value"
	}
	return prefix
}
