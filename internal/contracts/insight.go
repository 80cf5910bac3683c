package contracts

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Insight is language-model output for a sector: either a JSON value
// (kept verbatim) or plain text.
type Insight struct {
	raw json.RawMessage
}

// TextInsight wraps plain text
func TextInsight(s string) Insight {
	b, _ := json.Marshal(s)
	return Insight{raw: b}
}

// ParseInsight keeps valid JSON as structured and anything else as text.
// Markdown code fences around the content are dropped first.
func ParseInsight(content string) Insight {
	s := StripCodeFence(content)
	if s != "" && json.Valid([]byte(s)) {
		return Insight{raw: json.RawMessage(s)}
	}
	return TextInsight(s)
}

// StripCodeFence removes a surrounding ```json ... ``` block
func StripCodeFence(content string) string {
	s := strings.TrimSpace(content)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = ""
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// IsZero reports an unset insight
func (i Insight) IsZero() bool {
	return len(i.raw) == 0
}

// IsStructured reports a JSON object or array
func (i Insight) IsStructured() bool {
	t := bytes.TrimSpace(i.raw)
	return len(t) > 0 && (t[0] == '{' || t[0] == '[')
}

// Field returns a top-level string field of a structured insight
func (i Insight) Field(name string) string {
	if !i.IsStructured() {
		return ""
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(i.raw, &m); err != nil {
		return ""
	}
	var s string
	if err := json.Unmarshal(m[name], &s); err != nil {
		return ""
	}
	return s
}

// String renders the insight as prose: the text itself, or the
// actionable_insight / summary field of a structured reply.
func (i Insight) String() string {
	if i.IsZero() {
		return ""
	}
	var s string
	if err := json.Unmarshal(i.raw, &s); err == nil {
		return s
	}
	for _, key := range []string{"actionable_insight", "summary", "reason"} {
		if v := i.Field(key); v != "" {
			return v
		}
	}
	return string(i.raw)
}

// MarshalJSON emits the stored value verbatim
func (i Insight) MarshalJSON() ([]byte, error) {
	if i.IsZero() {
		return []byte("null"), nil
	}
	return i.raw, nil
}

// UnmarshalJSON keeps a copy of the raw value
func (i *Insight) UnmarshalJSON(data []byte) error {
	if string(bytes.TrimSpace(data)) == "null" {
		i.raw = nil
		return nil
	}
	i.raw = append(json.RawMessage(nil), data...)
	return nil
}
