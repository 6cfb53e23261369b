package fieldvalue_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/form-filler/constants"
	"github.com/joseph-ayodele/form-filler/internal/fieldvalue"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		value string
		typ   constants.FieldType
		want  bool
	}{
		{"german date", "24.06.2025", constants.FieldDate, true},
		{"german short year", "1.6.25", constants.FieldDate, true},
		{"iso date", "2025-06-24", constants.FieldDate, true},
		{"us date", "06/24/2025", constants.FieldDate, true},
		{"us short date", "6/24/25", constants.FieldDate, true},
		{"date with text", "am 24.06.2025", constants.FieldDate, false},
		{"not a date", "June 24", constants.FieldDate, false},
		{"email", "max@example.com", constants.FieldEmail, true},
		{"email without at", "max.example.com", constants.FieldEmail, false},
		{"email without dot after at", "max@example", constants.FieldEmail, false},
		{"phone", "+49 30 1234567", constants.FieldPhone, true},
		{"phone too short", "12-34-5", constants.FieldPhone, false},
		{"number plain", "42", constants.FieldNumber, true},
		{"number decimal comma", "3,5", constants.FieldNumber, true},
		{"number thousands", "1,234.50", constants.FieldNumber, true},
		{"number text", "viele", constants.FieldNumber, false},
		{"text", " Acme ", constants.FieldText, true},
		{"text blank", "   ", constants.FieldText, false},
		{"checkbox ja", "Ja", constants.FieldCheckbox, true},
		{"checkbox junk", "vielleicht", constants.FieldCheckbox, false},
		{"dropdown", "Option A", constants.FieldDropdown, true},
		{"unknown type uses text rule", "x", constants.FieldType("signature"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, fieldvalue.Validate(tt.value, tt.typ))
		})
	}
}

func TestFormat(t *testing.T) {
	tests := []struct {
		name  string
		value string
		typ   constants.FieldType
		want  string
	}{
		{"iso to german", "2025-06-24", constants.FieldDate, "24.06.2025"},
		{"pads day and month", "1.6.2025", constants.FieldDate, "01.06.2025"},
		{"short year expanded", "01.01.95", constants.FieldDate, "01.01.1995"},
		{"slash is day first", "24/06/2025", constants.FieldDate, "24.06.2025"},
		{"email lowercased", " Max@Example.COM ", constants.FieldEmail, "max@example.com"},
		{"phone cleaned", "+49 (30) 123-4567", constants.FieldPhone, "+49301234567"},
		{"phone double zero prefix", "0049 30 1234567", constants.FieldPhone, "+49301234567"},
		{"number decimal comma", "EUR 3,50", constants.FieldNumber, "3.50"},
		{"number thousands", "1,234.50", constants.FieldNumber, "1234.50"},
		{"checkbox true", "x", constants.FieldCheckbox, "TRUE"},
		{"checkbox false", "nein", constants.FieldCheckbox, "FALSE"},
		{"text untouched", "  Acme GmbH ", constants.FieldText, "Acme GmbH"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, fieldvalue.Format(tt.value, tt.typ))
		})
	}
}

func TestFormatDateRoundTrip(t *testing.T) {
	for _, v := range []string{"24.06.2025", "1.2.99", "2024-02-29", "12/31/2024", "3/4/05", "7.7.07"} {
		t.Run(v, func(t *testing.T) {
			require.True(t, fieldvalue.Validate(v, constants.FieldDate))
			assert.True(t, fieldvalue.Validate(fieldvalue.Format(v, constants.FieldDate), constants.FieldDate))
		})
	}
}

func TestParseDate(t *testing.T) {
	d, ok := fieldvalue.ParseDate("24.06.2025")
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 6, 24, 0, 0, 0, 0, time.UTC), d)

	_, ok = fieldvalue.ParseDate("31.02.2025")
	assert.False(t, ok)

	d, ok = fieldvalue.ParseDate("01.01.49")
	require.True(t, ok)
	assert.Equal(t, 2049, d.Year())

	d, ok = fieldvalue.ParseDate("01.01.50")
	require.True(t, ok)
	assert.Equal(t, 1950, d.Year())
}

func TestLooksLikeDate(t *testing.T) {
	assert.True(t, fieldvalue.LooksLikeDate("01.01.1995"))
	assert.True(t, fieldvalue.LooksLikeDate("2025-01-01 extra"))
	assert.False(t, fieldvalue.LooksLikeDate("Max Mustermann"))
	assert.True(t, fieldvalue.ContainsDate("born 01.01.1995 in Berlin"))
}
