package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
)

const (
	// NoMatch is the token the model answers with when no key fits.
	NoMatch = "NO_MATCH"

	DefaultChoiceConfidence = 0.8
	MinChoiceConfidence     = 0.5
)

var (
	// ErrNoJSON is returned when a response carries no JSON object.
	ErrNoJSON = errors.New("no json object in response")

	reFence = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*(.*?)```")
	reFloat = regexp.MustCompile(`\d*\.?\d+`)
)

// StripCodeFences returns the body of the first fenced block, or the trimmed text when there is none.
func StripCodeFences(s string) string {
	if m := reFence.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(s)
}

// FirstJSONObject extracts the first balanced {...} object from s, honoring string literals.
func FirstJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// ParseFieldChoice reads a "KEY|CONFIDENCE" or "NO_MATCH" answer.
// Missing or unparsable confidences default to 0.8; parsed ones are clamped to [0.5, 1].
func ParseFieldChoice(resp string) (FieldChoice, bool) {
	body := StripCodeFences(resp)
	var line string
	for _, l := range strings.Split(body, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			line = l
			break
		}
	}
	line = strings.Trim(line, "\"'`")
	if line == "" {
		return FieldChoice{}, false
	}
	if strings.HasPrefix(strings.ToUpper(line), NoMatch) {
		return FieldChoice{NoMatch: true}, true
	}

	key, rest, hasConf := strings.Cut(line, "|")
	key = strings.Trim(strings.TrimSpace(key), "\"'`")
	if key == "" {
		return FieldChoice{}, false
	}
	conf := DefaultChoiceConfidence
	if hasConf {
		if tok := reFloat.FindString(rest); tok != "" {
			if f, err := strconv.ParseFloat(tok, 64); err == nil {
				conf = min(max(f, MinChoiceConfidence), 1)
			}
		}
	}
	return FieldChoice{Key: key, Confidence: conf}, true
}

// ResolveKey maps the model's chosen key onto an offered key: exact match first,
// then case-insensitive, then containment. Containment must be unambiguous: every
// matching key has to lie inside the longest one, otherwise there is no match.
func ResolveKey(choice string, keys []string) (string, bool) {
	for _, k := range keys {
		if k == choice {
			return k, true
		}
	}
	lc := strings.ToLower(strings.TrimSpace(choice))
	if lc == "" {
		return "", false
	}
	for _, k := range keys {
		if strings.ToLower(k) == lc {
			return k, true
		}
	}
	var matches []string
	best := ""
	for _, k := range keys {
		lk := strings.ToLower(k)
		if lk == "" || !(strings.Contains(lc, lk) || strings.Contains(lk, lc)) {
			continue
		}
		matches = append(matches, lk)
		if len(k) > len(best) {
			best = k
		}
	}
	if best == "" {
		return "", false
	}
	lb := strings.ToLower(best)
	for _, lk := range matches {
		if !strings.Contains(lb, lk) {
			return "", false
		}
	}
	return best, true
}

// CompleteJSON asks the completer for a JSON answer, normalizes it, validates it
// against schema and decodes it into out.
func CompleteJSON(ctx context.Context, c Completer, systemPrompt, userPrompt string, schema map[string]any,
	normalize func([]byte, *slog.Logger) ([]byte, []string, error), out any, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	resp, err := c.Complete(ctx, systemPrompt, userPrompt)
	if err != nil {
		return err
	}
	obj, ok := FirstJSONObject(StripCodeFences(resp))
	if !ok {
		return ErrNoJSON
	}
	raw := []byte(obj)
	if err := ValidateJSONAgainstSchema(schema, raw); err != nil && normalize != nil {
		cleaned, dropped, sErr := normalize(raw, logger)
		if sErr != nil {
			return fmt.Errorf("sanitize failed: %w", sErr)
		}
		if vErr := ValidateJSONAgainstSchema(schema, cleaned); vErr != nil {
			return fmt.Errorf("schema validation failed: %w", vErr)
		}
		logger.Debug("llm.json.lenient_sanitize_applied", "dropped", dropped)
		raw = cleaned
	} else if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}
