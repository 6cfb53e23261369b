package entity

import (
	"strings"

	"github.com/joseph-ayodele/form-filler/constants"
)

// FieldDescriptor describes one fillable field of a target form.
type FieldDescriptor struct {
	ID       string              `json:"id"`
	Name     string              `json:"name"`
	Type     constants.FieldType `json:"type"`
	Context  string              `json:"context,omitempty"`
	Section  string              `json:"section,omitempty"`
	Required bool                `json:"required,omitempty"`
	Location string              `json:"location,omitempty"`
}

// Text returns the lower-cased name and context joined, used for vocabulary lookups.
func (f FieldDescriptor) Text() string {
	return strings.ToLower(strings.TrimSpace(f.Name + " " + f.Context))
}

// Section groups fields the way the form lays them out.
type Section struct {
	Name   string            `json:"name"`
	Fields []FieldDescriptor `json:"fields"`
}

// RelationAgeBirth links an age field to the birth date it must agree with.
const RelationAgeBirth = "age_birth"

// FieldRelationship links fields that must agree with each other (e.g. age and birth date).
type FieldRelationship struct {
	Kind     string   `json:"kind"`
	FieldIDs []string `json:"field_ids"`
}

// FormStructure is the analyzed layout of a target form.
type FormStructure struct {
	Name          string              `json:"name"`
	Sections      []Section           `json:"sections"`
	Relationships []FieldRelationship `json:"field_relationships,omitempty"`
}

// Fields flattens all sections, copying the section name onto each field.
func (s FormStructure) Fields() []FieldDescriptor {
	var out []FieldDescriptor
	for _, sec := range s.Sections {
		for _, f := range sec.Fields {
			if f.Section == "" {
				f.Section = sec.Name
			}
			out = append(out, f)
		}
	}
	return out
}
