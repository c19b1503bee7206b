package textsim

import (
	"reflect"
	"testing"
)

func TestGreedy_GroupsNearIdenticalBatch(t *testing.T) {
	t.Parallel()

	// Three near-identical posts and one unrelated post.
	texts := []string{
		"This brand is a total scam, avoid their products #ExampleTag",
		"this brand is a total scam avoid their products #exampletag",
		"Brand is a total scam, avoid their products!! #ExampleTag",
		"Lovely weather for sailing around the harbor today",
	}

	g := NewGreedy(0.7, 2, 1000)
	groups := g.Group(texts)

	if len(groups) != 1 {
		t.Fatalf("got %d groups, want 1: %v", len(groups), groups)
	}
	if want := []int{0, 1, 2}; !reflect.DeepEqual(groups[0], want) {
		t.Errorf("group = %v, want %v", groups[0], want)
	}
}

func TestGreedy_IsolatedItemsYieldNoGroups(t *testing.T) {
	t.Parallel()

	texts := []string{
		"This brand is a total scam",
		"Lovely weather for sailing today",
		"New recipe for chocolate cake dropped",
	}

	g := NewGreedy(0.7, 2, 1000)
	if groups := g.Group(texts); groups != nil {
		t.Errorf("got groups %v, want none for mutually dissimilar texts", groups)
	}
}

func TestGreedy_BatchBelowMinSize(t *testing.T) {
	t.Parallel()

	g := NewGreedy(0.7, 3, 1000)
	if groups := g.Group([]string{"one post", "one post"}); groups != nil {
		t.Errorf("got groups %v, want none for batch below min size", groups)
	}
}

func TestGreedy_MinSizeFloorsAtTwo(t *testing.T) {
	t.Parallel()

	g := NewGreedy(0.7, 0, 1000)
	texts := []string{
		"identical threat post about the scandal",
		"identical threat post about the scandal",
	}
	groups := g.Group(texts)
	if len(groups) != 1 || len(groups[0]) != 2 {
		t.Fatalf("groups = %v, want one group of two", groups)
	}
}

func TestGreedy_DegenerateTexts(t *testing.T) {
	t.Parallel()

	g := NewGreedy(0.7, 2, 1000)

	// Empty and stopword-only texts vectorize to empty vectors, which are
	// similar to nothing, including themselves.
	if groups := g.Group([]string{"", "", "the and of"}); groups != nil {
		t.Errorf("got groups %v, want none for vocabulary-free batch", groups)
	}
	if groups := g.Group(nil); groups != nil {
		t.Errorf("got groups %v, want none for empty batch", groups)
	}
}

func TestGreedy_Deterministic(t *testing.T) {
	t.Parallel()

	texts := []string{
		"the corruption scandal is spreading #corruption",
		"corruption scandal spreading everywhere #corruption",
		"gardening tips for spring",
		"more corruption scandal coverage today #corruption",
		"gardening tips for early spring planting",
	}

	g := NewGreedy(0.5, 2, 1000)
	first := g.Group(texts)
	for i := 0; i < 10; i++ {
		if got := g.Group(texts); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d produced %v, first run produced %v", i, got, first)
		}
	}
}

func TestGreedy_ConsumedItemsNotRegrouped(t *testing.T) {
	t.Parallel()

	// Two identical pairs: each item must land in exactly one group.
	texts := []string{
		"alpha topic post about the breach",
		"alpha topic post about the breach",
		"beta subject entirely different matter",
		"beta subject entirely different matter",
	}

	g := NewGreedy(0.9, 2, 1000)
	groups := g.Group(texts)

	seen := make(map[int]int)
	for _, grp := range groups {
		for _, idx := range grp {
			seen[idx]++
		}
	}
	for idx, n := range seen {
		if n != 1 {
			t.Errorf("index %d appears in %d groups, want 1", idx, n)
		}
	}
	if len(groups) != 2 {
		t.Errorf("got %d groups, want 2", len(groups))
	}
}
