// Package foodmatch implements the fuzzy ingredient-to-master-food-table
// linker used by the persistence layer at insertion time.
package foodmatch

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/recipeforge/admission/internal/model"
)

const acceptThreshold = 0.5

// Matcher scores a raw ingredient name against a fixed snapshot of food
// items. Deterministic for a given (rawName, snapshot) pair (spec P4).
type Matcher struct {
	items      []model.FoodItem
	normalized []string
}

// NewMatcher takes an immutable snapshot of the master food table.
func NewMatcher(items []model.FoodItem) *Matcher {
	normalized := make([]string, len(items))
	for i, it := range items {
		normalized[i] = normalize(it.Name)
	}
	return &Matcher{items: items, normalized: normalized}
}

// Match returns the best food item for rawName, or nil if nothing scores
// at least acceptThreshold. Ties break by first-seen order in the
// snapshot.
func (m *Matcher) Match(rawName string) *model.FoodItem {
	target := normalize(rawName)
	if target == "" {
		return nil
	}

	best := -1.0
	bestIdx := -1
	for i, candidate := range m.normalized {
		score := Score(target, candidate)
		if score > best {
			best = score
			bestIdx = i
		}
	}

	if bestIdx == -1 || best < acceptThreshold {
		return nil
	}
	return &m.items[bestIdx]
}

// normalize lower-cases, NFD-normalizes, strips combining marks, and
// collapses whitespace.
func normalize(s string) string {
	s = strings.ToLower(s)
	decomposed := norm.NFD.String(s)

	var sb strings.Builder
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		sb.WriteRune(r)
	}

	return strings.Join(strings.Fields(sb.String()), " ")
}

// Score computes the similarity between two already-normalized strings.
func Score(a, b string) float64 {
	if a == b {
		return 1.0
	}

	shorter, longer := a, b
	if len(longer) < len(shorter) {
		shorter, longer = longer, shorter
	}
	if len(shorter) >= 3 && strings.Contains(longer, shorter) {
		return 0.8
	}

	wordsA := wordSet(a)
	wordsB := wordSet(b)
	shorterWords, longerWords := wordsA, wordsB
	if len(longerWords) < len(shorterWords) {
		shorterWords, longerWords = longerWords, shorterWords
	}

	overlap := 0
	for w := range wordsA {
		if wordsB[w] {
			overlap++
		}
	}
	denom := len(wordsA)
	if len(wordsB) > denom {
		denom = len(wordsB)
	}
	if denom == 0 {
		return 0
	}
	wordScore := float64(overlap) / float64(denom)

	contained := true
	for w := range shorterWords {
		if !longerWords[w] {
			contained = false
			break
		}
	}
	if contained && len(shorterWords) > 0 {
		if wordScore < 0.7 {
			return 0.7
		}
		return wordScore
	}

	return wordScore
}

func wordSet(s string) map[string]bool {
	fields := strings.Fields(s)
	set := make(map[string]bool, len(fields))
	for _, f := range fields {
		set[f] = true
	}
	return set
}
