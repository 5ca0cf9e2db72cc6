package classifier

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

// Word tokens of at least two letters/digits, unicode-aware so Spanish
// accented words survive tokenization.
var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)

// Vectorizer maps free text onto a fixed-length TF-IDF feature vector over
// a bounded unigram+bigram vocabulary. Terms outside the vocabulary
// contribute zero weight.
type Vectorizer struct {
	MaxFeatures int
	Vocabulary  map[string]int
	IDF         []float64
}

// NewVectorizer returns an unfitted vectorizer with the given feature cap.
func NewVectorizer(maxFeatures int) *Vectorizer {
	if maxFeatures <= 0 {
		maxFeatures = 200
	}
	return &Vectorizer{MaxFeatures: maxFeatures}
}

// tokenize lowercases text and expands it into unigrams and bigrams.
func tokenize(text string) []string {
	words := tokenPattern.FindAllString(strings.ToLower(text), -1)
	terms := make([]string, 0, len(words)*2)
	terms = append(terms, words...)
	for i := 0; i+1 < len(words); i++ {
		terms = append(terms, words[i]+" "+words[i+1])
	}
	return terms
}

// Fit builds the vocabulary and inverse document frequencies from the
// training corpus. When the corpus yields more distinct terms than the
// feature cap, the most frequent terms across the corpus are kept, ties
// broken lexicographically for determinism.
func (v *Vectorizer) Fit(docs []string) {
	termCount := make(map[string]int)
	docFreq := make(map[string]int)
	for _, doc := range docs {
		terms := tokenize(doc)
		inDoc := make(map[string]struct{}, len(terms))
		for _, t := range terms {
			termCount[t]++
			inDoc[t] = struct{}{}
		}
		for t := range inDoc {
			docFreq[t]++
		}
	}

	kept := make([]string, 0, len(termCount))
	for t := range termCount {
		kept = append(kept, t)
	}
	sort.Slice(kept, func(i, j int) bool {
		if termCount[kept[i]] != termCount[kept[j]] {
			return termCount[kept[i]] > termCount[kept[j]]
		}
		return kept[i] < kept[j]
	})
	if len(kept) > v.MaxFeatures {
		kept = kept[:v.MaxFeatures]
	}
	// Column order is alphabetical over the kept terms.
	sort.Strings(kept)

	n := float64(len(docs))
	v.Vocabulary = make(map[string]int, len(kept))
	v.IDF = make([]float64, len(kept))
	for i, t := range kept {
		v.Vocabulary[t] = i
		// Smoothed idf: ln((1+n)/(1+df)) + 1.
		v.IDF[i] = math.Log((1+n)/(1+float64(docFreq[t]))) + 1
	}
}

// Transform converts one document into an L2-normalized TF-IDF vector.
// Out-of-vocabulary terms are ignored.
func (v *Vectorizer) Transform(doc string) []float64 {
	vec := make([]float64, len(v.IDF))
	for _, t := range tokenize(doc) {
		if col, ok := v.Vocabulary[t]; ok {
			vec[col] += v.IDF[col]
		}
	}
	var norm float64
	for _, x := range vec {
		norm += x * x
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec
}

// TransformAll converts a corpus into its feature matrix.
func (v *Vectorizer) TransformAll(docs []string) [][]float64 {
	rows := make([][]float64, len(docs))
	for i, doc := range docs {
		rows[i] = v.Transform(doc)
	}
	return rows
}

// NumFeatures returns the fitted vocabulary size.
func (v *Vectorizer) NumFeatures() int {
	return len(v.IDF)
}
