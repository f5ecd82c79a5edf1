package period

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParse_NamedMonths(t *testing.T) {
	tests := []struct {
		input string
		want  time.Time
	}{
		{"Janeiro/2024", time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)},
		{"Dezembro/2023", time.Date(2023, time.December, 1, 0, 0, 0, 0, time.UTC)},
		{"fevereiro/2022", time.Date(2022, time.February, 1, 0, 0, 0, 0, time.UTC)},
		{"Jan/2024", time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)},
		{"dez/1999", time.Date(1999, time.December, 1, 0, 0, 0, 0, time.UTC)},
		{"Agosto 2021", time.Date(2021, time.August, 1, 0, 0, 0, 0, time.UTC)},
		{"  Maio/2020  ", time.Date(2020, time.May, 1, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.input))
		})
	}
}

func TestParse_NumericForms(t *testing.T) {
	tests := []struct {
		input string
		want  time.Time
	}{
		{"01/2024", time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)},
		{"12/2023", time.Date(2023, time.December, 1, 0, 0, 0, 0, time.UTC)},
		{"2024-01", time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)},
		{"2023-7", time.Date(2023, time.July, 1, 0, 0, 0, 0, time.UTC)},
		{"7/2023", time.Date(2023, time.July, 1, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.input))
		})
	}
}

func TestParse_NamedAndNumericAgree(t *testing.T) {
	assert.Equal(t, Parse("Janeiro/2024"), Parse("01/2024"))
	assert.Equal(t, Parse("Março/2024"), Parse("03/2024"))
	assert.Equal(t, Parse("Dezembro/2023"), Parse("2023-12"))
}

func TestParse_AccentInsensitiveMarch(t *testing.T) {
	assert.Equal(t, Parse("Março/2024"), Parse("Marco/2024"))
}

func TestParse_UnparseableReturnsEpoch(t *testing.T) {
	for _, input := range []string{"", "   ", "not a date", "13/2024", "abc/20", "mes/2024"} {
		assert.Equal(t, Epoch, Parse(input), "input %q", input)
	}
}

func TestParse_YearOutOfRange(t *testing.T) {
	assert.Equal(t, Epoch, Parse("janeiro/1899"))
	assert.Equal(t, Epoch, Parse("janeiro/2101"))
	assert.NotEqual(t, Epoch, Parse("janeiro/1900"))
	assert.NotEqual(t, Epoch, Parse("janeiro/2100"))
}

func TestParse_InvalidMonthNumberRejected(t *testing.T) {
	assert.Equal(t, Epoch, Parse("00/2024"))
	assert.Equal(t, Epoch, Parse("2024-13"))
}

func TestParse_GenericDateFallback(t *testing.T) {
	assert.Equal(t, time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC), Parse("2024-03-15"))
	assert.Equal(t, time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC), Parse("15/03/2024"))
}

func TestParse_SortsChronologically(t *testing.T) {
	labels := []string{"Dezembro/2023", "Janeiro/2024", "", "Março/2023"}

	sort.Slice(labels, func(i, j int) bool {
		return Before(labels[i], labels[j])
	})

	assert.Equal(t, []string{"", "Março/2023", "Dezembro/2023", "Janeiro/2024"}, labels)
}

func TestParse_Deterministic(t *testing.T) {
	first := Parse("Junho/2022")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Parse("Junho/2022"))
	}
}
