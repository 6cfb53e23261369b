package llm_test

import (
	"github.com/joseph-ayodele/form-filler/constants"
	"github.com/joseph-ayodele/form-filler/internal/entity"
)

func entityField() entity.FieldDescriptor {
	return entity.FieldDescriptor{ID: "company_name", Name: "Firma", Type: constants.FieldText, Section: "Arbeitgeber"}
}
