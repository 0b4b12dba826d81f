package lexicon

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPluralPl(t *testing.T) {
	tests := []struct {
		n        int
		expected string
	}{
		{1, "miejsce"},
		{2, "miejsca"},
		{4, "miejsca"},
		{5, "miejsc"},
		{11, "miejsc"},
		{12, "miejsc"},
		{14, "miejsc"},
		{22, "miejsca"},
		{25, "miejsc"},
		{104, "miejsca"},
		{112, "miejsc"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, PluralPl(tt.n, "miejsce", "miejsca", "miejsc"), "n=%d", tt.n)
	}
}

func TestParseOrdinal(t *testing.T) {
	tests := []struct {
		input    string
		expected int
	}{
		{"pierwsza", 1},
		{"ta druga", 2},
		{"poproszę trzecią", 3},
		{"czwarty", 4},
		{"piąta opcja", 5},
		{"ósma", 8},
		{"dziesiąta", 10},
		{"3", 3},
		{"nic tu nie ma", 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, ParseOrdinal(tt.input), "input=%q", tt.input)
	}
}

func TestParsePosition(t *testing.T) {
	tests := []struct {
		input    string
		expected int
	}{
		{"dwa", 2},
		{"druga", 2},
		{"2", 2},
		{"weź piątą", 5},
		{"dziesięć", 10},
		{"pięćdziesiąt złotych", 0},
		{"", 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, ParsePosition(tt.input), "input=%q", tt.input)
	}
}

func TestParseQuantity(t *testing.T) {
	assert.Equal(t, 2, ParseQuantity("dwa kebaby"))
	assert.Equal(t, 3, ParseQuantity("poproszę 3 pizze"))
	assert.Equal(t, 0, ParseQuantity("kebab"))
}

func TestSpokenOrdinal(t *testing.T) {
	assert.Equal(t, "Po pierwsze,", SpokenOrdinal(1))
	assert.Equal(t, "Po drugie,", SpokenOrdinal(2))
	assert.Equal(t, "Po dziesiąte,", SpokenOrdinal(10))
	assert.Equal(t, "Po 11,", SpokenOrdinal(11))
}

func TestFormatDistance(t *testing.T) {
	assert.Equal(t, "450 m", FormatDistance(450))
	assert.Equal(t, "999 m", FormatDistance(999.2))
	assert.Equal(t, "1.0 km", FormatDistance(1000))
	assert.Equal(t, "2.3 km", FormatDistance(2345))
}

func TestExpandCuisine(t *testing.T) {
	assert.ElementsMatch(t, []string{"Wietnamska", "Chińska", "Tajska"}, ExpandCuisine("azjatyckie"))
	assert.Equal(t, []string{"Pizza", "Włoska"}, ExpandCuisine("pizzeria"))
	assert.Equal(t, []string{"Meksykańska"}, ExpandCuisine("meksykańska"))
	assert.Nil(t, ExpandCuisine(""))
}

func TestCityStem(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Bytom", "bytom"},
		{"Bytomiu", "bytom"},
		{"Katowicach", "katowic"},
		{"Katowice", "katowic"},
		{"Warszawie", "warszaw"},
		{"Krakowie", "krakow"},
		{"Łodzi", "lodz"},
		{"Poznaniu", "poznan"},
		{"Zielonej Górze", "zielonej gorz"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, CityStem(tt.input), "input=%q", tt.input)
	}
}
