package food

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-voice-orders/internal/app/models"
)

func TestParseOrderTextQuantities(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		items []models.RequestedItem
	}{
		{
			name:  "bare dish defaults to one",
			text:  "Zamawiam kebab",
			items: []models.RequestedItem{{Name: "kebab", Quantity: 1}},
		},
		{
			name:  "digit quantity",
			text:  "poproszę 3 pierogi",
			items: []models.RequestedItem{{Name: "pierogi", Quantity: 3}},
		},
		{
			name:  "times form",
			text:  "2x kebab",
			items: []models.RequestedItem{{Name: "kebab", Quantity: 2}},
		},
		{
			name:  "spaced times form",
			text:  "2 x kebab",
			items: []models.RequestedItem{{Name: "kebab", Quantity: 2}},
		},
		{
			name:  "polish cardinal",
			text:  "wezmę dwie zupy pho",
			items: []models.RequestedItem{{Name: "zupy pho", Quantity: 2}},
		},
		{
			name: "two dishes joined with i",
			text: "Zamawiam dwa pad thai i zupę pho",
			items: []models.RequestedItem{
				{Name: "pad thai", Quantity: 2},
				{Name: "zupe pho", Quantity: 1},
			},
		},
		{
			name: "comma separated",
			text: "kebab, frytki",
			items: []models.RequestedItem{
				{Name: "kebab", Quantity: 1},
				{Name: "frytki", Quantity: 1},
			},
		},
		{
			name:  "filler words dropped",
			text:  "poproszę 3 sztuki frytek",
			items: []models.RequestedItem{{Name: "frytek", Quantity: 3}},
		},
		{
			name:  "jeszcze jedna",
			text:  "jeszcze jedną colę",
			items: []models.RequestedItem{{Name: "cole", Quantity: 1}},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			parsed := ParseOrderText(tc.text)
			assert.Equal(t, tc.items, parsed.Items)
		})
	}
}

func TestParseOrderTextSize(t *testing.T) {
	parsed := ParseOrderText("dużą pizzę margherita")
	require.Len(t, parsed.Items, 1)
	assert.Equal(t, "pizze margherita", parsed.Items[0].Name)
	assert.Equal(t, "duża", parsed.Size)

	parsed = ParseOrderText("mały kebab")
	require.Len(t, parsed.Items, 1)
	assert.Equal(t, "mała", parsed.Size)

	parsed = ParseOrderText("kebab")
	assert.Empty(t, parsed.Size)
}

func TestParseOrderTextExtras(t *testing.T) {
	tests := []struct {
		text   string
		extras []string
	}{
		{"kebab na ostro", []string{"ostre"}},
		{"zamawiam ostrą pizzę", []string{"ostre"}},
		{"pizza z kurczakiem", []string{"kurczak"}},
		{"kebab bez cebuli", []string{"bez cebuli"}},
		{"burger z serem bez sosu", []string{"ser", "bez sosu"}},
		{"kebab", nil},
	}

	for _, tc := range tests {
		t.Run(tc.text, func(t *testing.T) {
			parsed := ParseOrderText(tc.text)
			assert.Equal(t, tc.extras, parsed.Extras)
			require.NotEmpty(t, parsed.Items)
		})
	}
}

func TestParseOrderTextVerbStripping(t *testing.T) {
	for _, text := range []string{
		"zamawiam kebab",
		"poproszę kebab",
		"wezmę kebab",
		"chciałbym kebab",
		"daj mi kebab",
		"dla mnie kebab",
	} {
		t.Run(text, func(t *testing.T) {
			parsed := ParseOrderText(text)
			require.Len(t, parsed.Items, 1)
			assert.Equal(t, "kebab", parsed.Items[0].Name)
		})
	}
}

func TestParseOrderTextEmpty(t *testing.T) {
	assert.Empty(t, ParseOrderText("").Items)
	assert.Empty(t, ParseOrderText("zamawiam").Items)
	assert.Empty(t, ParseOrderText("poproszę o").Items)
}
