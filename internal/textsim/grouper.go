package textsim

// Greedy groups texts by single-pass, order-stable thresholding: items are
// visited in input order, each unconsumed item collects every unconsumed
// item (itself included) whose similarity to it meets the threshold, and the
// collection is emitted as a group when it is large enough. This is a
// single-link clustering approximation, kept behind campaign.Grouper so a
// different strategy can replace it without touching the engine.
type Greedy struct {
	// Threshold is the minimum cosine similarity to treat two texts as related.
	Threshold float64

	// MinSize is the smallest group worth emitting.
	MinSize int

	// VocabularySize caps the batch vocabulary.
	VocabularySize int
}

// NewGreedy returns a Greedy grouper with the given tuning.
func NewGreedy(threshold float64, minSize, vocabularySize int) *Greedy {
	return &Greedy{
		Threshold:      threshold,
		MinSize:        minSize,
		VocabularySize: vocabularySize,
	}
}

// Group returns groups of indexes into texts. Batches smaller than MinSize
// and degenerate batches (empty or vocabulary-free texts) yield no groups;
// Group never fails.
func (g *Greedy) Group(texts []string) [][]int {
	minSize := g.MinSize
	if minSize < 2 {
		minSize = 2
	}
	if len(texts) < minSize {
		return nil
	}

	vz := Vectorizer{VocabularySize: g.VocabularySize}
	vecs := vz.Vectorize(texts)

	consumed := make([]bool, len(texts))
	var groups [][]int

	for i := range texts {
		if consumed[i] {
			continue
		}
		var group []int
		for j := range texts {
			if consumed[j] {
				continue
			}
			if Cosine(vecs[i], vecs[j]) >= g.Threshold {
				group = append(group, j)
			}
		}
		if len(group) < minSize {
			continue
		}
		for _, j := range group {
			consumed[j] = true
		}
		groups = append(groups, group)
	}
	return groups
}
