package extract

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// cleanJSON strips markdown fences and surrounding prose, keeping the
// outermost JSON object.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimPrefix(text, "json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}

// decodeObject cleans text and unmarshals it into v.
func decodeObject(text string, v any) error {
	cleaned := cleanJSON(text)
	if cleaned == "" {
		return eris.New("empty response")
	}
	if !strings.HasPrefix(cleaned, "{") {
		return eris.New("response is not a JSON object")
	}
	if err := json.Unmarshal([]byte(cleaned), v); err != nil {
		return eris.Wrap(err, "decode response")
	}
	return nil
}

var jsonNull = []byte("null")

// flexNumber accepts a JSON number or a purely numeric string such as
// "1 500,50". Anything else, units included, decodes to null.
type flexNumber struct {
	Value *float64
}

func (n *flexNumber) UnmarshalJSON(b []byte) error {
	n.Value = nil
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, jsonNull) {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
		if f, ok := parseNumber(s); ok {
			n.Value = &f
		}
		return nil
	}
	if f, err := strconv.ParseFloat(string(b), 64); err == nil {
		n.Value = &f
	}
	return nil
}

// parseNumber reads numbers written with spaces as thousand separators and
// either a comma or a period as the decimal mark.
func parseNumber(s string) (float64, bool) {
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\u00a0', '\u202f', '\'':
			return -1
		}
		return r
	}, s)
	if s == "" {
		return 0, false
	}

	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")
	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case strings.Count(s, ",") == 1:
		s = strings.Replace(s, ",", ".", 1)
	case strings.Count(s, ",") > 1:
		s = strings.ReplaceAll(s, ",", "")
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// flexString accepts a JSON string or number. Blank strings decode to null.
type flexString struct {
	Value *string
}

func (s *flexString) UnmarshalJSON(b []byte) error {
	s.Value = nil
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, jsonNull) {
		return nil
	}
	var str string
	if b[0] == '"' {
		if err := json.Unmarshal(b, &str); err != nil {
			return nil
		}
	} else if _, err := strconv.ParseFloat(string(b), 64); err == nil {
		str = string(b)
	} else {
		return nil
	}
	if str = strings.TrimSpace(str); str != "" {
		s.Value = &str
	}
	return nil
}

func (s flexString) String() string {
	if s.Value == nil {
		return ""
	}
	return *s.Value
}

// flexBool accepts true/false or their string forms.
type flexBool bool

func (v *flexBool) UnmarshalJSON(b []byte) error {
	switch strings.ToLower(strings.Trim(string(bytes.TrimSpace(b)), `"`)) {
	case "true", "1", "yes", "oui":
		*v = true
	default:
		*v = false
	}
	return nil
}

// clampConfidence rounds and clamps a confidence to 0–100.
func clampConfidence(v *float64) int {
	if v == nil {
		return 0
	}
	c := *v
	switch {
	case c < 0:
		return 0
	case c > 100:
		return 100
	}
	return int(c + 0.5)
}
