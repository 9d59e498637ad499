package foodmatch

import (
	"testing"

	"github.com/google/uuid"

	"github.com/recipeforge/admission/internal/model"
)

func items(names ...string) []model.FoodItem {
	out := make([]model.FoodItem, len(names))
	for i, n := range names {
		out[i] = model.FoodItem{ID: uuid.New(), Name: n}
	}
	return out
}

func TestMatchExactName(t *testing.T) {
	m := NewMatcher(items("chicken breast", "rice", "olive oil"))

	got := m.Match("chicken breast")
	if got == nil || got.Name != "chicken breast" {
		t.Fatalf("expected exact match, got %+v", got)
	}
}

func TestMatchCaseAndAccentInsensitive(t *testing.T) {
	m := NewMatcher(items("jalapeño"))

	got := m.Match("JALAPENO")
	if got == nil || got.Name != "jalapeño" {
		t.Fatalf("expected accent-insensitive match, got %+v", got)
	}
}

func TestMatchSubstringContainment(t *testing.T) {
	m := NewMatcher(items("onion"))

	got := m.Match("red onion, diced")
	if got == nil || got.Name != "onion" {
		t.Fatalf("expected substring match to onion, got %+v", got)
	}
}

func TestMatchNoAcceptableCandidate(t *testing.T) {
	m := NewMatcher(items("chicken breast", "rice"))

	got := m.Match("xyzzyunrelatedterm")
	if got != nil {
		t.Fatalf("expected no match, got %+v", got)
	}
}

func TestMatchEmptyNameReturnsNil(t *testing.T) {
	m := NewMatcher(items("rice"))
	if got := m.Match(""); got != nil {
		t.Fatalf("expected nil for empty input, got %+v", got)
	}
}

func TestMatchTiesBreakByFirstSeen(t *testing.T) {
	m := NewMatcher(items("garlic", "garlic"))
	got := m.Match("garlic")
	if got == nil {
		t.Fatal("expected a match")
	}
	if *got != m.items[0] {
		t.Fatal("expected first-seen candidate to win a tie")
	}
}

func TestScoreExactMatch(t *testing.T) {
	if Score("rice", "rice") != 1.0 {
		t.Fatal("expected exact match score of 1.0")
	}
}

func TestScoreWordOverlap(t *testing.T) {
	score := Score("olive oil extra virgin", "olive oil")
	if score <= 0 || score > 1 {
		t.Fatalf("expected a score in (0,1], got %f", score)
	}
}

func TestScoreNoOverlap(t *testing.T) {
	if got := Score("apple", "screwdriver"); got != 0 {
		t.Fatalf("expected zero overlap score, got %f", got)
	}
}
