package retrieval

import (
	"sort"
	"strings"

	domret "github.com/helpdesk-cloud/ragdesk/internal/domain/retrieval"
)

// keywordScore measures lexical overlap as the fraction of distinct query
// words present in the document. Case-insensitive, whitespace tokenization.
// The ratio is intentionally normalized by the query length only: a short
// query fully covered by a long document scores 1.0.
func keywordScore(query, doc string) float64 {
	queryWords := wordSet(query)
	if len(queryWords) == 0 {
		return 0
	}
	docWords := wordSet(doc)

	overlap := 0
	for w := range queryWords {
		if docWords[w] {
			overlap++
		}
	}
	return float64(overlap) / float64(len(queryWords))
}

func wordSet(s string) map[string]bool {
	fields := strings.Fields(strings.ToLower(s))
	set := make(map[string]bool, len(fields))
	for _, w := range fields {
		set[w] = true
	}
	return set
}

// fuseHybrid scores candidates as weight*vector + (1-weight)*keyword and
// sorts by combined score descending. Candidates must arrive in index rank
// order: the stable sort resolves combined-score ties by that rank, making
// the output deterministic for identical input.
func fuseHybrid(candidates []domret.Candidate, query string, weight float64) []domret.Result {
	results := make([]domret.Result, 0, len(candidates))

	for _, c := range candidates {
		chunk := c.Chunk()
		vectorScore := c.Similarity()
		kwScore := keywordScore(query, chunk.Text())
		combined := weight*vectorScore + (1-weight)*kwScore

		results = append(results, domret.NewResult(
			chunk.ID(), chunk.Text(), chunk.Metadata(),
			vectorScore, kwScore, combined,
		))
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].CombinedScore() > results[j].CombinedScore()
	})

	return results
}
