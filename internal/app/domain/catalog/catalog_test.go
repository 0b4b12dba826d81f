package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-voice-orders/internal/app/models"
)

func testRestaurants() []models.Restaurant {
	return []models.Restaurant{
		{ID: "1", Name: "Bar Praha", Aliases: []string{"praha", "u bronka"}, City: "Bytom", CuisineType: "Polska"},
		{ID: "2", Name: "Pizzeria Roma", Aliases: []string{"roma"}, City: "Bytom", CuisineType: "Pizza"},
		{ID: "3", Name: "Tasty King", Aliases: []string{"tasty"}, City: "Katowice", CuisineType: "Kebab"},
		{ID: "4", Name: "Pizzeria Roma Express", City: "Chorzów", CuisineType: "Pizza"},
	}
}

func TestIndexFindByText(t *testing.T) {
	idx := NewIndex(testRestaurants(), nil)

	tests := []struct {
		name       string
		input      string
		expectedID string
	}{
		{"main name", "pokaż menu Bar Praha", "1"},
		{"alias", "zamów coś z u bronka", "1"},
		{"diacritics and case", "PIZZERIA ROMA proszę", "2"},
		{"longest name wins", "pizzeria roma express w Chorzowie", "4"},
		{"no match", "coś dobrego na obiad", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := idx.FindByText(tt.input)
			if tt.expectedID == "" {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.expectedID, got.ID)
		})
	}
}

func TestIndexWholeWordOnly(t *testing.T) {
	idx := NewIndex([]models.Restaurant{
		{ID: "9", Name: "Bar", Aliases: []string{"roma"}},
	}, nil)

	assert.Nil(t, idx.FindByText("zupa barszczowa"), "name inside a longer word must not match")
	assert.Nil(t, idx.FindByText("aromat kawy"), "alias inside a longer word must not match")
	require.NotNil(t, idx.FindByText("wchodzę do bar"))
}

func TestIndexFindMentions(t *testing.T) {
	idx := NewIndex(testRestaurants(), nil)

	mentions := idx.FindMentions("bar praha czy tasty king?")
	require.Len(t, mentions, 2)
	assert.Equal(t, "1", mentions[0].ID)
	assert.Equal(t, "3", mentions[1].ID)

	assert.Empty(t, idx.FindMentions("nic znajomego"))
}

func TestIndexByID(t *testing.T) {
	idx := NewIndex(testRestaurants(), nil)

	r := idx.ByID("3")
	require.NotNil(t, r)
	assert.Equal(t, "Tasty King", r.Name)
	assert.Nil(t, idx.ByID("missing"))
}
