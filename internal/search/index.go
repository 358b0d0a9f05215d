// Package search provides fuzzy title search over approved listings.
package search

import (
	"strings"
	"sync"
	"unicode/utf8"

	"campus_market/models"

	"github.com/sahilm/fuzzy"
)

const (
	// MaxResults caps every result set.
	MaxResults = 10
	// MinSimilarity is the fixed threshold a match must reach. Similarity is
	// the query length divided by the span of text the match covers, so 1.0
	// is a contiguous hit and 0.5 allows one stray character per query rune.
	MinSimilarity = 0.5
)

type Result struct {
	Product    models.Product `json:"product"`
	Similarity float64        `json:"similarity"`
}

// Index is an immutable-between-rebuilds set of searchable listings.
type Index struct {
	mu   sync.RWMutex
	docs documents
}

type documents []document

type document struct {
	product models.Product
	text    string
}

func (d documents) String(i int) string { return d[i].text }
func (d documents) Len() int            { return len(d) }

func NewIndex() *Index {
	return &Index{}
}

// Rebuild replaces the indexed listings.
func (ix *Index) Rebuild(products []models.Product) {
	docs := make(documents, 0, len(products))
	for _, p := range products {
		docs = append(docs, document{
			product: p,
			text:    strings.ToLower(p.Title + " " + p.Category),
		})
	}
	ix.mu.Lock()
	ix.docs = docs
	ix.mu.Unlock()
}

func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.docs)
}

// Search returns at most MaxResults listings ordered by fuzzy score.
func (ix *Index) Search(query string) []Result {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil
	}

	ix.mu.RLock()
	docs := ix.docs
	ix.mu.RUnlock()

	matches := fuzzy.FindFrom(query, docs)
	results := make([]Result, 0, MaxResults)
	for _, m := range matches {
		sim := similarity(query, m)
		if sim < MinSimilarity {
			continue
		}
		results = append(results, Result{Product: docs[m.Index].product, Similarity: sim})
		if len(results) == MaxResults {
			break
		}
	}
	return results
}

func similarity(query string, m fuzzy.Match) float64 {
	if len(m.MatchedIndexes) == 0 {
		return 0
	}
	first := m.MatchedIndexes[0]
	last := m.MatchedIndexes[len(m.MatchedIndexes)-1]
	// MatchedIndexes are byte offsets; measure the span in runes.
	span := utf8.RuneCountInString(m.Str[first:last]) + 1
	return float64(utf8.RuneCountInString(query)) / float64(span)
}
