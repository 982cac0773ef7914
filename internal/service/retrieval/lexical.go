package retrieval

import (
	"math"
	"strings"

	"FinSage/internal/domain/models"
)

// lexicalIndex scores chunks by TF-IDF weighted term overlap with the
// query. Built once per snapshot, read-only afterwards.
type lexicalIndex struct {
	docTerms []map[string]float64 // chunk position -> term -> tf
	docNorm  []float64
	df       map[string]int
	n        int
}

func buildLexicalIndex(chunks []models.DocumentChunk) *lexicalIndex {
	idx := &lexicalIndex{
		docTerms: make([]map[string]float64, len(chunks)),
		docNorm:  make([]float64, len(chunks)),
		df:       make(map[string]int),
		n:        len(chunks),
	}

	for i, c := range chunks {
		tf := make(map[string]float64)
		for _, term := range terms(c.Text) {
			tf[term]++
		}
		for term := range tf {
			idx.df[term]++
		}
		idx.docTerms[i] = tf
	}

	// Precompute document vector norms in idf-weighted space.
	for i, tf := range idx.docTerms {
		var norm float64
		for term, f := range tf {
			w := f * idx.idf(term)
			norm += w * w
		}
		idx.docNorm[i] = math.Sqrt(norm)
	}
	return idx
}

// score returns cosine similarity between the query and chunk i in
// TF-IDF space. Zero when they share no vocabulary.
func (idx *lexicalIndex) score(queryTerms map[string]float64, queryNorm float64, i int) float64 {
	if queryNorm == 0 || idx.docNorm[i] == 0 {
		return 0
	}
	tf := idx.docTerms[i]
	var dot float64
	for term, qf := range queryTerms {
		f, ok := tf[term]
		if !ok {
			continue
		}
		w := idx.idf(term)
		dot += (qf * w) * (f * w)
	}
	return dot / (queryNorm * idx.docNorm[i])
}

// queryVector builds the query's term frequencies and norm once so
// scoring each candidate is a map walk.
func (idx *lexicalIndex) queryVector(query string) (map[string]float64, float64) {
	tf := make(map[string]float64)
	for _, term := range terms(query) {
		tf[term]++
	}
	var norm float64
	for term, f := range tf {
		w := f * idx.idf(term)
		norm += w * w
	}
	return tf, math.Sqrt(norm)
}

func (idx *lexicalIndex) idf(term string) float64 {
	df := idx.df[term]
	if df == 0 {
		return 0
	}
	return math.Log(1 + float64(idx.n)/float64(df))
}

func terms(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
}
