package forms

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/joseph-ayodele/form-filler/internal/common"
	"github.com/joseph-ayodele/form-filler/internal/entity"
	"github.com/joseph-ayodele/form-filler/internal/llm"
	"github.com/joseph-ayodele/form-filler/internal/rules"
)

// LoadStructure reads a JSON form description, cached per file version.
func (l *Loader) LoadStructure(path string) (entity.FormStructure, error) {
	return l.structures.GetFile(path, func(path string) (entity.FormStructure, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return entity.FormStructure{}, common.PreconditionError(fmt.Sprintf("read form structure %s", path), err)
		}
		return ParseStructure(data, l.rules)
	})
}

// ParseStructure validates and decodes a form description. Missing names default to the id
// and missing types are inferred from the name.
func ParseStructure(data []byte, t *rules.Table) (entity.FormStructure, error) {
	if err := llm.ValidateJSONAgainstSchema(llm.FormStructureSchema(), data); err != nil {
		return entity.FormStructure{}, common.NewAppError("FORM_STRUCTURE_INVALID", "form structure does not match schema", err)
	}
	var s entity.FormStructure
	if err := json.Unmarshal(data, &s); err != nil {
		return entity.FormStructure{}, fmt.Errorf("decode form structure: %w", err)
	}
	if t == nil {
		t = rules.Default()
	}
	seen := map[string]bool{}
	for si := range s.Sections {
		for fi := range s.Sections[si].Fields {
			f := &s.Sections[si].Fields[fi]
			f.ID = strings.TrimSpace(f.ID)
			if seen[f.ID] {
				return entity.FormStructure{}, common.NewAppError("FORM_STRUCTURE_INVALID",
					fmt.Sprintf("duplicate field id %q", f.ID), common.ErrInvalidInput)
			}
			seen[f.ID] = true
			if f.Name == "" {
				f.Name = f.ID
			}
			if f.Type == "" {
				f.Type = InferType(t, f.Name)
			}
		}
	}
	return s, nil
}

// MemoryTarget holds values for a form described out-of-band.
type MemoryTarget struct {
	structure entity.FormStructure
	fields    map[string]struct{}
	values    map[string]string
}

func NewMemoryTarget(s entity.FormStructure) *MemoryTarget {
	m := &MemoryTarget{structure: s, fields: map[string]struct{}{}, values: map[string]string{}}
	for _, f := range s.Fields() {
		m.fields[f.ID] = struct{}{}
	}
	return m
}

func (m *MemoryTarget) Structure() entity.FormStructure { return m.structure }

func (m *MemoryTarget) Fields() []entity.FieldDescriptor { return m.structure.Fields() }

func (m *MemoryTarget) Write(fieldID, value string) bool {
	if _, ok := m.fields[fieldID]; !ok {
		return false
	}
	m.values[fieldID] = value
	return true
}

func (m *MemoryTarget) Values() map[string]string {
	out := make(map[string]string, len(m.values))
	for k, v := range m.values {
		if strings.TrimSpace(v) != "" {
			out[k] = v
		}
	}
	return out
}

// Save writes the filled values as JSON, keyed by field id.
func (m *MemoryTarget) Save(path string) error {
	ids := make([]string, 0, len(m.values))
	for id := range m.values {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	type value struct {
		FieldID string `json:"field_id"`
		Value   string `json:"value"`
	}
	out := struct {
		Form   string  `json:"form"`
		Values []value `json:"values"`
	}{Form: m.structure.Name}
	for _, id := range ids {
		out.Values = append(out.Values, value{FieldID: id, Value: m.values[id]})
	}
	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("encode filled form: %w", err)
	}
	return os.WriteFile(path, b, 0o644)
}

func (m *MemoryTarget) Close() error { return nil }
