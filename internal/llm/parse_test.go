package llm_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/form-filler/internal/llm"
)

func TestParseFieldChoice(t *testing.T) {
	tests := []struct {
		name   string
		resp   string
		want   llm.FieldChoice
		wantOK bool
	}{
		{"key and confidence", "Kundenname|0.85", llm.FieldChoice{Key: "Kundenname", Confidence: 0.85}, true},
		{"bare key defaults", "firma", llm.FieldChoice{Key: "firma", Confidence: 0.8}, true},
		{"no match", "NO_MATCH", llm.FieldChoice{NoMatch: true}, true},
		{"clamped low", "firma|0.2", llm.FieldChoice{Key: "firma", Confidence: 0.5}, true},
		{"clamped high", "firma|3", llm.FieldChoice{Key: "firma", Confidence: 1}, true},
		{"unparsable confidence", "firma|high", llm.FieldChoice{Key: "firma", Confidence: 0.8}, true},
		{"fenced with commentary", "```\nfirma|0.95 because it is the employer\n```", llm.FieldChoice{Key: "firma", Confidence: 0.95}, true},
		{"quoted", "\"email|0.9\"", llm.FieldChoice{Key: "email", Confidence: 0.9}, true},
		{"empty", "   ", llm.FieldChoice{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := llm.ParseFieldChoice(tt.resp)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want.Key, got.Key)
			assert.Equal(t, tt.want.NoMatch, got.NoMatch)
			assert.InDelta(t, tt.want.Confidence, got.Confidence, 1e-9)
		})
	}
}

func TestResolveKey(t *testing.T) {
	keys := []string{"Firma", "Firma Adresse", "email"}

	k, ok := llm.ResolveKey("firma", keys)
	require.True(t, ok)
	assert.Equal(t, "Firma", k)

	k, ok = llm.ResolveKey("the Firma Adresse field", keys)
	require.True(t, ok)
	assert.Equal(t, "Firma Adresse", k)

	_, ok = llm.ResolveKey("telefon", keys)
	assert.False(t, ok)
}

func TestResolveKeyAmbiguousContainment(t *testing.T) {
	tests := []struct {
		choice string
		keys   []string
	}{
		{"name", []string{"vorname", "nachname"}},
		{"e", []string{"email", "telefon"}},
		{"  ", []string{"email"}},
	}
	for _, tt := range tests {
		t.Run(tt.choice, func(t *testing.T) {
			k, ok := llm.ResolveKey(tt.choice, tt.keys)
			assert.False(t, ok, "resolved to %q", k)
		})
	}

	k, ok := llm.ResolveKey("name", []string{"vorname", "telefon"})
	require.True(t, ok)
	assert.Equal(t, "vorname", k)
}

func TestFirstJSONObject(t *testing.T) {
	got, ok := llm.FirstJSONObject(`Sure! {"a": "x}y", "b": {"c": 1}} trailing {"d":2}`)
	require.True(t, ok)
	assert.Equal(t, `{"a": "x}y", "b": {"c": 1}}`, got)

	_, ok = llm.FirstJSONObject(`{"open": `)
	assert.False(t, ok)
}

func TestStripCodeFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, llm.StripCodeFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, "plain", llm.StripCodeFences("  plain  "))
}

func TestCompleteJSON(t *testing.T) {
	schema := llm.ContextVerdictSchema()

	t.Run("lenient normalization", func(t *testing.T) {
		c := llm.CompleterFunc(func(ctx context.Context, _, _ string) (string, error) {
			return "```json\n{\"is_appropriate\": \"false\", \"confidence\": \"85%\", \"issue\": \"birth date\", \"extra\": 1}\n```", nil
		})
		var v llm.ContextVerdict
		require.NoError(t, llm.CompleteJSON(context.Background(), c, "s", "u", schema, llm.NormalizeVerdictJSON, &v, nil))
		assert.False(t, v.IsAppropriate)
		assert.InDelta(t, 0.85, v.Confidence, 1e-9)
		assert.Equal(t, "birth date", v.IssueDescription)
	})

	t.Run("no json", func(t *testing.T) {
		c := llm.CompleterFunc(func(ctx context.Context, _, _ string) (string, error) { return "I think so", nil })
		var v llm.ContextVerdict
		assert.ErrorIs(t, llm.CompleteJSON(context.Background(), c, "s", "u", schema, llm.NormalizeVerdictJSON, &v, nil), llm.ErrNoJSON)
	})

	t.Run("collaborator error", func(t *testing.T) {
		boom := errors.New("boom")
		c := llm.CompleterFunc(func(ctx context.Context, _, _ string) (string, error) { return "", boom })
		var v llm.ContextVerdict
		assert.ErrorIs(t, llm.CompleteJSON(context.Background(), c, "s", "u", schema, nil, &v, nil), boom)
	})

	t.Run("missing required key", func(t *testing.T) {
		c := llm.CompleterFunc(func(ctx context.Context, _, _ string) (string, error) { return `{"confidence": 0.4}`, nil })
		var v llm.ContextVerdict
		assert.Error(t, llm.CompleteJSON(context.Background(), c, "s", "u", schema, llm.NormalizeVerdictJSON, &v, nil))
	})
}

func TestBuildFieldMatchPrompts(t *testing.T) {
	cands := make([]llm.SourceCandidate, 0, 25)
	for i := 0; i < 25; i++ {
		cands = append(cands, llm.SourceCandidate{Key: "key" + string(rune('a'+i)), Value: "v"})
	}
	cands[0].Value = "this value is far longer than fifty characters and must be truncated"
	sys, user := llm.BuildFieldMatchPrompts(entityField(), cands, "avoid 01.01.1990")
	assert.Contains(t, sys, "NO_MATCH")
	assert.Contains(t, user, "keya")
	assert.NotContains(t, user, "keyu")
	assert.NotContains(t, user, "must be truncated")
	assert.Contains(t, user, "avoid 01.01.1990")
}

func TestValidateJSONAgainstSchema(t *testing.T) {
	schema := llm.ContextVerdictSchema()

	// repeated validation reuses the compiled schema
	for i := 0; i < 2; i++ {
		require.NoError(t, llm.ValidateJSONAgainstSchema(schema, []byte(`{"is_appropriate": true, "confidence": 0.8}`)))
	}
	assert.Error(t, llm.ValidateJSONAgainstSchema(schema, []byte(`{"confidence": 0.8}`)))
	assert.Error(t, llm.ValidateJSONAgainstSchema(schema, []byte(`{"is_appropriate": true, "confidence": 2}`)))
	assert.Error(t, llm.ValidateJSONAgainstSchema(schema, []byte(`not json`)))
}
