package generation

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var fencedBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// ExtractJSONArray pulls a JSON array of objects out of free-text model
// output. Precedence: a fenced code block first, then the first top-level
// bracketed span. Returns an error only when neither strategy yields a
// decodable array; callers treat that as zero results, not a failure.
func ExtractJSONArray(text string) ([]map[string]any, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("empty text")
	}

	// The whole payload may already be the array (schema-constrained output).
	if out, err := decodeArray(text); err == nil {
		return out, nil
	}

	if m := fencedBlockRe.FindStringSubmatch(text); m != nil {
		if out, err := decodeArray(strings.TrimSpace(m[1])); err == nil {
			return out, nil
		}
	}

	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start >= 0 && end > start {
		if out, err := decodeArray(text[start : end+1]); err == nil {
			return out, nil
		}
	}

	return nil, fmt.Errorf("no JSON array found")
}

func decodeObject(s string, out any) error {
	return json.Unmarshal([]byte(strings.TrimSpace(s)), out)
}

func decodeArray(s string) ([]map[string]any, error) {
	var out []map[string]any
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func stringField(obj map[string]any, key string) string {
	if v, ok := obj[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func stringSliceField(obj map[string]any, key string) []string {
	raw, ok := obj[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, strings.TrimSpace(s))
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
