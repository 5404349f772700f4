package perception

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Structured holds a parsed model response. Values are kept as raw JSON
// values; String/Strings/Float accessors normalize the common shapes.
type Structured map[string]interface{}

// String returns the named field as a trimmed string, or "" when absent.
func (s Structured) String(key string) string {
	v, ok := s[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strings.TrimSpace(fmt.Sprintf("%v", t))
	case bool:
		return fmt.Sprintf("%v", t)
	}
	return ""
}

// Strings returns the named field as a string slice. A scalar value becomes
// a one-element slice.
func (s Structured) Strings(key string) []string {
	v, ok := s[key]
	if !ok || v == nil {
		return nil
	}
	switch t := v.(type) {
	case []interface{}:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if str, ok := e.(string); ok && strings.TrimSpace(str) != "" {
				out = append(out, strings.TrimSpace(str))
			}
		}
		return out
	case string:
		if strings.TrimSpace(t) == "" {
			return nil
		}
		return []string{strings.TrimSpace(t)}
	}
	return nil
}

// Bool returns the named field as a bool; string "true"/"yes" count.
func (s Structured) Bool(key string) bool {
	v, ok := s[key]
	if !ok {
		return false
	}
	switch t := v.(type) {
	case bool:
		return t
	case string:
		lower := strings.ToLower(strings.TrimSpace(t))
		return lower == "true" || lower == "yes"
	}
	return false
}

var (
	fencedBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")
	kvSalvageRe   = regexp.MustCompile(`"([A-Za-z_][A-Za-z0-9_]*)"\s*:\s*"((?:[^"\\]|\\.)*)"`)
)

// ParseStructured recovers a JSON object from a model response, trying in
// order: direct parse, fenced-code-block unwrap, substring bounded by the
// first '{' and last '}', then a regex key-value salvage of string pairs.
// Returns an error only when every strategy fails.
func ParseStructured(raw string) (Structured, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("empty response")
	}

	// Strategy 1: the whole response is the object.
	if obj := tryUnmarshal(raw); obj != nil {
		return obj, nil
	}

	// Strategy 2: object inside a fenced code block.
	if m := fencedBlockRe.FindStringSubmatch(raw); m != nil {
		if obj := tryUnmarshal(strings.TrimSpace(m[1])); obj != nil {
			return obj, nil
		}
	}

	// Strategy 3: widest brace-bounded substring.
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		if obj := tryUnmarshal(raw[start : end+1]); obj != nil {
			return obj, nil
		}
	}

	// Strategy 4: salvage flat "key": "value" pairs from malformed output.
	pairs := kvSalvageRe.FindAllStringSubmatch(raw, -1)
	if len(pairs) > 0 {
		obj := make(Structured, len(pairs))
		for _, p := range pairs {
			var val string
			// Re-decode escapes through the JSON decoder.
			if err := json.Unmarshal([]byte(`"`+p[2]+`"`), &val); err != nil {
				val = p[2]
			}
			obj[p[1]] = val
		}
		return obj, nil
	}

	return nil, fmt.Errorf("no JSON object found in response")
}

func tryUnmarshal(s string) Structured {
	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return nil
	}
	if len(obj) == 0 {
		return nil
	}
	return Structured(obj)
}
