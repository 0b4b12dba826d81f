// Package catalog keeps the restaurant index the NLU binds names against
// and the repository the handlers query for restaurants and menus.
package catalog

import (
	ahocorasick "github.com/petar-dambovaliev/aho-corasick"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-voice-orders/internal/app/domain/lexicon"
	"github.com/FACorreiaa/go-voice-orders/internal/app/models"
)

// Index is the static name index built once at boot. Lookup runs a single
// multi-pattern scan; patterns are normalized names and aliases, matched
// only on whole words so "roma" never fires inside "aromat".
type Index struct {
	restaurants []models.Restaurant
	byID        map[string]int
	matcher     ahocorasick.AhoCorasick
	owners      []patternOwner
	logger      *zap.Logger
}

type patternOwner struct {
	restaurant int
	mainName   bool
	length     int
}

// NewIndex builds the alias automaton over the given restaurants.
func NewIndex(restaurants []models.Restaurant, logger *zap.Logger) *Index {
	if logger == nil {
		logger = zap.NewNop()
	}

	idx := &Index{
		restaurants: restaurants,
		byID:        make(map[string]int, len(restaurants)),
		logger:      logger,
	}

	var patterns []string
	for i, r := range restaurants {
		idx.byID[r.ID] = i

		name := lexicon.Normalize(r.Name)
		if name != "" {
			patterns = append(patterns, name)
			idx.owners = append(idx.owners, patternOwner{restaurant: i, mainName: true, length: len(name)})
		}
		for _, alias := range r.Aliases {
			a := lexicon.Normalize(alias)
			if a == "" || a == name {
				continue
			}
			patterns = append(patterns, a)
			idx.owners = append(idx.owners, patternOwner{restaurant: i, mainName: false, length: len(a)})
		}
	}

	builder := ahocorasick.NewAhoCorasickBuilder(ahocorasick.Opts{
		AsciiCaseInsensitive: true,
		MatchOnlyWholeWords:  true,
		MatchKind:            ahocorasick.LeftMostLongestMatch,
		DFA:                  true,
	})
	idx.matcher = builder.Build(patterns)

	logger.Info("Restaurant index built",
		zap.Int("restaurants", len(restaurants)),
		zap.Int("patterns", len(patterns)),
	)
	return idx
}

// FindByText resolves an utterance to one restaurant. Main-name matches
// beat alias matches; longer patterns beat shorter ones.
func (idx *Index) FindByText(text string) *models.Restaurant {
	best := idx.bestMatch(text)
	if best < 0 {
		return nil
	}
	r := idx.restaurants[best]
	return &r
}

// FindMentions returns every distinct restaurant named in the utterance,
// in order of first appearance.
func (idx *Index) FindMentions(text string) []models.Restaurant {
	normalized := lexicon.Normalize(text)
	if normalized == "" || len(idx.owners) == 0 {
		return nil
	}

	seen := make(map[int]struct{})
	var out []models.Restaurant
	for _, m := range idx.matcher.FindAll(normalized) {
		owner := idx.owners[m.Pattern()]
		if _, dup := seen[owner.restaurant]; dup {
			continue
		}
		seen[owner.restaurant] = struct{}{}
		out = append(out, idx.restaurants[owner.restaurant])
	}
	return out
}

// ByID returns the indexed restaurant or nil.
func (idx *Index) ByID(id string) *models.Restaurant {
	i, ok := idx.byID[id]
	if !ok {
		return nil
	}
	r := idx.restaurants[i]
	return &r
}

// All returns the indexed restaurants.
func (idx *Index) All() []models.Restaurant {
	return idx.restaurants
}

func (idx *Index) bestMatch(text string) int {
	normalized := lexicon.Normalize(text)
	if normalized == "" || len(idx.owners) == 0 {
		return -1
	}

	bestIdx := -1
	var bestOwner patternOwner
	for _, m := range idx.matcher.FindAll(normalized) {
		owner := idx.owners[m.Pattern()]
		if bestIdx < 0 || betterOwner(owner, bestOwner) {
			bestIdx = owner.restaurant
			bestOwner = owner
		}
	}
	return bestIdx
}

func betterOwner(a, b patternOwner) bool {
	if a.mainName != b.mainName {
		return a.mainName
	}
	return a.length > b.length
}
