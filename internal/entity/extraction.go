package entity

import (
	"sort"
	"strings"
)

// ExtractedField is one value pulled out of a source document.
type ExtractedField struct {
	SourceID       string  `json:"source_id"`
	Value          string  `json:"value"`
	OriginDocument string  `json:"origin_document,omitempty"`
	Confidence     float64 `json:"confidence,omitempty"`
}

// SourceDocument is the plain text of one input document.
type SourceDocument struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

// KeyValue is a structured key/value pair reported by a layout extractor.
type KeyValue struct {
	Key        string  `json:"key"`
	Value      string  `json:"value"`
	Document   string  `json:"document,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

// DocumentSet is everything the extraction collaborator produced for one run.
type DocumentSet struct {
	Documents []SourceDocument          `json:"documents"`
	Extracted map[string]ExtractedField `json:"extracted"`
	KeyValues []KeyValue                `json:"key_values,omitempty"`
}

// CombinedText concatenates all documents with name separators.
func (d DocumentSet) CombinedText() string {
	var b strings.Builder
	for _, doc := range d.Documents {
		b.WriteString("\n--- ")
		b.WriteString(doc.Name)
		b.WriteString(" ---\n")
		b.WriteString(doc.Text)
		b.WriteString("\n")
	}
	return b.String()
}

// SortedKeys returns the extracted source ids in a stable order.
func (d DocumentSet) SortedKeys() []string {
	keys := make([]string, 0, len(d.Extracted))
	for k := range d.Extracted {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// IsEmpty reports whether the set carries no usable data at all.
func (d DocumentSet) IsEmpty() bool {
	return len(d.Extracted) == 0 && len(d.KeyValues) == 0 && strings.TrimSpace(d.CombinedText()) == ""
}
