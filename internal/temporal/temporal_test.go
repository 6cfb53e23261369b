package temporal_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/form-filler/constants"
	"github.com/joseph-ayodele/form-filler/internal/entity"
	"github.com/joseph-ayodele/form-filler/internal/rules"
	"github.com/joseph-ayodele/form-filler/internal/temporal"
)

func fixedClock(y int, m time.Month, d int) func() time.Time {
	return func() time.Time { return time.Date(y, m, d, 12, 0, 0, 0, time.UTC) }
}

const applicationText = `--- lebenslauf.txt ---
Lebenslauf
Name: Max Mustermann
geboren am 01.01.1995 in Hamburg
Ausbildung an der Universität Hamburg von 2014 bis 2019 mit Abschluss.
Weitere Stationen folgen hier in ausführlicher Form und ohne Daten.

--- anschreiben.txt ---
Berlin, 24.06.2025
Bewerbung als Softwareentwickler`

func TestDisambiguatePrefersSubmissionDate(t *testing.T) {
	d := temporal.New(temporal.WithClock(fixedClock(2025, time.July, 1)))
	field := entity.FieldDescriptor{ID: "f1", Name: "Eingangsdatum", Type: constants.FieldDate, Context: "application received"}

	got, ok := d.DisambiguateText(applicationText, field)
	require.True(t, ok)
	assert.Equal(t, "24.06.2025", got)
}

func TestDisambiguateOrderIndependent(t *testing.T) {
	d := temporal.New(temporal.WithClock(fixedClock(2025, time.July, 1)))
	field := entity.FieldDescriptor{ID: "f1", Name: "Eingangsdatum", Type: constants.FieldDate}

	reversed := "Berlin, 24.06.2025\nBewerbung als Softwareentwickler\n\n" +
		"Die folgenden Angaben stammen aus dem beigefügten Dokument.\n\n" +
		"Lebenslauf\ngeboren am 01.01.1995 in Hamburg"
	got, ok := d.DisambiguateText(reversed, field)
	require.True(t, ok)
	assert.Equal(t, "24.06.2025", got)
}

func TestDisambiguateBelowThreshold(t *testing.T) {
	d := temporal.New(temporal.WithClock(fixedClock(2025, time.July, 1)))
	_, ok := d.DisambiguateText("geboren am 01.01.1995", entity.FieldDescriptor{ID: "x"})
	assert.False(t, ok)

	_, _, ok = d.Disambiguate(nil, entity.FieldDescriptor{ID: "x"})
	assert.False(t, ok)
}

func TestOldCutoffIsRelative(t *testing.T) {
	cand := temporal.Candidate{Value: "15.03.2021", Context: "15.03.2021"}

	in2025 := temporal.New(temporal.WithClock(fixedClock(2025, time.July, 1)))
	assert.Equal(t, 0, in2025.Score(cand))

	in2030 := temporal.New(temporal.WithClock(fixedClock(2030, time.July, 1)))
	assert.Equal(t, -50, in2030.Score(cand))

	recent := temporal.Candidate{Value: "15.03.30", Context: "15.03.30"}
	assert.Equal(t, 40, in2030.Score(recent))
}

func TestScan(t *testing.T) {
	cands := temporal.Scan("Hamburg, 01.02.2024 und 3/4/25")
	require.Len(t, cands, 2)
	assert.Equal(t, "01.02.2024", cands[0].Value)
	assert.Equal(t, "Hamburg, ", cands[0].Before)
	assert.Equal(t, "3/4/25", cands[1].Value)
}

func TestIsDocumentDateField(t *testing.T) {
	tbl := rules.Default()
	tests := []struct {
		name  string
		field entity.FieldDescriptor
		want  bool
	}{
		{"eingangsdatum", entity.FieldDescriptor{Name: "Eingangsdatum", Type: constants.FieldDate}, true},
		{"context submission", entity.FieldDescriptor{Name: "Datum", Type: constants.FieldDate, Context: "date of application submission"}, true},
		{"birth date", entity.FieldDescriptor{Name: "Geburtsdatum", Type: constants.FieldDate}, false},
		{"not a date", entity.FieldDescriptor{Name: "Antragsteller", Type: constants.FieldText}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, temporal.IsDocumentDateField(tbl, tt.field))
		})
	}
}

func TestRealism(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	birth := time.Date(1995, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 30, temporal.CompletedYears(birth, now))
	assert.InDelta(t, 30.4, temporal.AgeYears(birth, now), 0.1)
	assert.True(t, temporal.IsFuture(time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), now))
	assert.False(t, temporal.IsFuture(now, now))
	assert.Equal(t, 365, temporal.DaysOld(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), now))
}
