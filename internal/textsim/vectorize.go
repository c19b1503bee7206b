package textsim

import (
	"math"
	"sort"
)

// Vector is a sparse, L2-normalized term-weight vector over one batch's
// vocabulary. Keys are vocabulary indexes.
type Vector map[int]float64

// Vectorizer builds TF-IDF weighted vectors over the vocabulary of a single
// batch of texts. The vocabulary is unigrams plus bigrams of content tokens,
// capped at the VocabularySize most frequent terms.
type Vectorizer struct {
	VocabularySize int
}

// Vectorize returns one vector per input text, over a shared vocabulary
// built from the whole batch. Texts with no vocabulary terms produce an
// empty vector. Output is deterministic for identical input.
func (v *Vectorizer) Vectorize(texts []string) []Vector {
	docs := make([][]string, len(texts))
	for i, t := range texts {
		docs[i] = docTerms(t)
	}

	vocab := buildVocabulary(docs, v.VocabularySize)
	if len(vocab) == 0 {
		out := make([]Vector, len(texts))
		for i := range out {
			out[i] = Vector{}
		}
		return out
	}

	// Document frequency per vocabulary term.
	df := make([]int, len(vocab))
	index := make(map[string]int, len(vocab))
	for i, term := range vocab {
		index[term] = i
	}
	for _, doc := range docs {
		seen := make(map[int]struct{})
		for _, term := range doc {
			if i, ok := index[term]; ok {
				seen[i] = struct{}{}
			}
		}
		for i := range seen {
			df[i]++
		}
	}

	n := float64(len(docs))
	idf := make([]float64, len(vocab))
	for i := range idf {
		idf[i] = math.Log((1+n)/(1+float64(df[i]))) + 1
	}

	out := make([]Vector, len(texts))
	for d, doc := range docs {
		vec := Vector{}
		for _, term := range doc {
			if i, ok := index[term]; ok {
				vec[i] += idf[i]
			}
		}
		normalize(vec)
		out[d] = vec
	}
	return out
}

// Cosine returns the cosine similarity of two vectors from the same batch.
// Vectors are already L2-normalized, so this is their dot product. An empty
// vector is similar to nothing, including itself.
func Cosine(a, b Vector) float64 {
	if len(a) > len(b) {
		a, b = b, a
	}
	var dot float64
	for i, w := range a {
		dot += w * b[i]
	}
	return dot
}

// docTerms produces the unigram+bigram terms of one text.
func docTerms(text string) []string {
	toks := contentTokens(Normalize(text))
	if len(toks) == 0 {
		return nil
	}
	terms := make([]string, 0, 2*len(toks))
	terms = append(terms, toks...)
	for i := 0; i+1 < len(toks); i++ {
		terms = append(terms, toks[i]+" "+toks[i+1])
	}
	return terms
}

// buildVocabulary keeps the `limit` terms with the highest total frequency
// across the batch, breaking ties alphabetically so identical batches always
// produce identical vocabularies.
func buildVocabulary(docs [][]string, limit int) []string {
	counts := make(map[string]int)
	for _, doc := range docs {
		for _, term := range doc {
			counts[term]++
		}
	}
	if len(counts) == 0 {
		return nil
	}

	terms := make([]string, 0, len(counts))
	for term := range counts {
		terms = append(terms, term)
	}
	sort.Slice(terms, func(i, j int) bool {
		if counts[terms[i]] != counts[terms[j]] {
			return counts[terms[i]] > counts[terms[j]]
		}
		return terms[i] < terms[j]
	})

	if limit > 0 && len(terms) > limit {
		terms = terms[:limit]
	}
	sort.Strings(terms)
	return terms
}

func normalize(vec Vector) {
	var sum float64
	for _, w := range vec {
		sum += w * w
	}
	if sum == 0 {
		return
	}
	norm := math.Sqrt(sum)
	for i := range vec {
		vec[i] /= norm
	}
}
