package llm

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"strconv"
	"strings"
)

// NormalizeVerdictJSON
// - Renames known synonyms (appropriate -> is_appropriate)
// - Coerces "true"/"yes" strings to booleans and numeric strings to numbers
// - Clamps confidence into [0,1] (percentages are scaled down)
// - Drops null/empty optionals and unknown keys
func NormalizeVerdictJSON(raw []byte, logger *slog.Logger) ([]byte, []string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}

	dropped := make([]string, 0, 4)
	renamed := func(from, to string) {
		if v, ok := m[from]; ok {
			if _, exists := m[to]; !exists {
				m[to] = v
			}
			delete(m, from)
			dropped = append(dropped, from+"->"+to)
		}
	}
	renamed("appropriate", "is_appropriate")
	renamed("isAppropriate", "is_appropriate")
	renamed("issue", "issue_description")
	renamed("suggestion", "suggested_alternative")

	switch t := m["is_appropriate"].(type) {
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "yes", "y", "1":
			m["is_appropriate"] = true
		case "false", "no", "n", "0":
			m["is_appropriate"] = false
		}
	case float64:
		m["is_appropriate"] = t != 0
	}

	if v, ok := m["confidence"]; ok {
		var f float64
		var valid bool
		switch t := v.(type) {
		case float64:
			f, valid = t, true
		case string:
			s := strings.TrimSuffix(strings.TrimSpace(t), "%")
			if p, err := strconv.ParseFloat(s, 64); err == nil {
				f, valid = p, true
			}
		}
		if !valid {
			delete(m, "confidence")
			dropped = append(dropped, "confidence(type)")
		} else {
			if f > 1 && f <= 100 {
				f /= 100
			}
			m["confidence"] = min(max(f, 0), 1)
		}
	}

	for _, k := range []string{"issue_description", "suggested_alternative"} {
		v, ok := m[k]
		if !ok {
			continue
		}
		s, isStr := v.(string)
		if !isStr || strings.TrimSpace(s) == "" {
			delete(m, k)
			dropped = append(dropped, k+"(empty)")
			continue
		}
		m[k] = strings.TrimSpace(s)
	}

	allowed := map[string]struct{}{
		"is_appropriate": {}, "confidence": {}, "issue_description": {}, "suggested_alternative": {},
	}
	for k := range maps.Clone(m) {
		if _, ok := allowed[k]; !ok {
			delete(m, k)
			dropped = append(dropped, k+"(unknown)")
		}
	}

	out, err := json.Marshal(m)
	if err != nil {
		return nil, dropped, fmt.Errorf("sanitize: encode: %w", err)
	}
	if len(dropped) > 0 {
		logger.Warn("llm.verdict.normalize_sanitize", "dropped", dropped)
	}
	return out, dropped, nil
}
